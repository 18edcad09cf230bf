package codingassessment

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	AllowedLanguages []string      `mapstructure:"allowed_languages"`
	MaxSourceBytes   int           `mapstructure:"max_source_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:          20 * time.Second,
		AllowedLanguages: []string{"c", "cpp", "python", "java", "javascript"},
		MaxSourceBytes:   64 << 10,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if len(c.AllowedLanguages) == 0 {
		return fmt.Errorf("at least one allowed language is required")
	}
	if c.MaxSourceBytes <= 0 {
		return fmt.Errorf("max_source_bytes must be positive")
	}
	return nil
}
