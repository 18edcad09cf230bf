package videointerview

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAnswerLength int           `mapstructure:"max_answer_length"`
	MaxAudioBytes   int           `mapstructure:"max_audio_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:         2 * time.Minute,
		MaxAnswerLength: 5000,
		MaxAudioBytes:   25 << 20,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAnswerLength <= 0 {
		return fmt.Errorf("max_answer_length must be positive")
	}
	if c.MaxAudioBytes <= 0 {
		return fmt.Errorf("max_audio_bytes must be positive")
	}
	return nil
}
