package identityverification

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	CodeLength int           `mapstructure:"code_length"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    15 * time.Second,
		CodeLength: 6,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CodeLength < 4 || c.CodeLength > 10 {
		return fmt.Errorf("code_length must be between 4 and 10")
	}
	return nil
}
