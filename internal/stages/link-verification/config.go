package linkverification

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	LinkParam string        `mapstructure:"link_param"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:   15 * time.Second,
		LinkParam: "job_id",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.LinkParam == "" {
		return fmt.Errorf("link_param is required")
	}
	return nil
}
