package integrity

import (
	"fmt"
	"time"

	"candidate-interview/internal/common/config"
)

type Config struct {
	Policy            string        `mapstructure:"policy"`
	Threshold         int           `mapstructure:"threshold"`
	RedirectDelay     time.Duration `mapstructure:"reload_redirect_delay"`
	EntryURL          string        `mapstructure:"entry_url"`
	RequireFullscreen bool          `mapstructure:"require_fullscreen"`
}

func DefaultConfig() *Config {
	return &Config{
		Policy:            config.PolicyLog,
		Threshold:         3,
		RedirectDelay:     3 * time.Second,
		EntryURL:          "/",
		RequireFullscreen: true,
	}
}

// ConfigFrom converts the integrity section of the application config.
func ConfigFrom(cfg config.IntegrityConfig) *Config {
	out := DefaultConfig()
	if cfg.Policy != "" {
		out.Policy = cfg.Policy
	}
	if cfg.Threshold > 0 {
		out.Threshold = cfg.Threshold
	}
	if cfg.ReloadRedirectDelay > 0 {
		out.RedirectDelay = config.GetDuration(cfg.ReloadRedirectDelay)
	}
	if cfg.EntryURL != "" {
		out.EntryURL = cfg.EntryURL
	}
	out.RequireFullscreen = cfg.RequireFullscreen
	return out
}

func (c *Config) Validate() error {
	switch c.Policy {
	case config.PolicyLog, config.PolicyFlag, config.PolicyFail:
	default:
		return fmt.Errorf("policy must be one of log, flag, fail")
	}
	if c.Threshold < 1 {
		return fmt.Errorf("threshold must be positive")
	}
	if c.RedirectDelay < 0 {
		return fmt.Errorf("reload_redirect_delay must not be negative")
	}
	if c.EntryURL == "" {
		return fmt.Errorf("entry_url is required")
	}
	return nil
}
