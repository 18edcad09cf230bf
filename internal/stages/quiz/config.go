package quiz

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	TimeLimit time.Duration `mapstructure:"time_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:   15 * time.Second,
		TimeLimit: 10 * time.Minute,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.TimeLimit <= 0 {
		return fmt.Errorf("time_limit must be positive")
	}
	return nil
}
