package sessioncreation

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		AnalysisTimeout: 90 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("analysis_timeout must be positive")
	}
	return nil
}
