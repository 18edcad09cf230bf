package resumeintake

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxFileSize       int64         `mapstructure:"max_file_size"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		MaxFileSize:       10 << 20,
		AllowedExtensions: []string{".pdf", ".doc", ".docx"},
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}
	return nil
}
