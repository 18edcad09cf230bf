package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env overrides for bound keys.
	for _, key := range []string{
		"api.base_url", "api.timeout", "api.max_retries", "api.retry_delay",
		"credentials.backend", "session.snapshot_backend",
		"integrity.policy", "integrity.threshold", "integrity.entry_url",
		"review.backend", "logging.level", "logging.format",
		"metrics.enabled", "metrics.address",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.API.BaseURL == "" {
		if val := os.Getenv("INTERVIEW_API_BASE_URL"); val != "" {
			cfg.API.BaseURL = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "candidate-interview"
	}

	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30000
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 3
	}
	if cfg.API.RetryDelay == 0 {
		cfg.API.RetryDelay = 1000
	}

	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = BackendMemory
	}
	if cfg.Credentials.KeyPrefix == "" {
		cfg.Credentials.KeyPrefix = "candidate-interview"
	}

	if cfg.Session.SnapshotBackend == "" {
		cfg.Session.SnapshotBackend = BackendMemory
	}
	if cfg.Session.SnapshotTable == "" {
		cfg.Session.SnapshotTable = "interview_session_snapshots"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Integrity.Policy == "" {
		cfg.Integrity.Policy = PolicyLog
	}
	if cfg.Integrity.Threshold == 0 {
		cfg.Integrity.Threshold = 3
	}
	if cfg.Integrity.ReloadRedirectDelay == 0 {
		cfg.Integrity.ReloadRedirectDelay = 3000
	}
	if cfg.Integrity.EntryURL == "" {
		cfg.Integrity.EntryURL = "/"
	}

	if cfg.Review.Backend == "" {
		cfg.Review.Backend = "log"
	}
	if cfg.Review.Index == "" {
		cfg.Review.Index = "interview-review-flags"
	}

	for key, stage := range cfg.Stages {
		if stage.Timeout == 0 {
			stage.Timeout = cfg.API.Timeout
		}
		cfg.Stages[key] = stage
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch cfg.Credentials.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis credential backend")
		}
	default:
		return fmt.Errorf("credentials.backend must be one of memory, redis")
	}

	switch cfg.Session.SnapshotBackend {
	case BackendMemory, BackendNone:
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("session.snapshot_backend must be one of memory, postgres, none")
	}

	switch cfg.Integrity.Policy {
	case PolicyLog, PolicyFlag, PolicyFail:
	default:
		return fmt.Errorf("integrity.policy must be one of log, flag, fail")
	}
	if cfg.Integrity.Threshold < 1 {
		return fmt.Errorf("integrity.threshold must be positive")
	}

	switch cfg.Review.Backend {
	case "log":
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres review backend")
		}
	default:
		return fmt.Errorf("review.backend must be one of log, elasticsearch, postgres")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetStageConfig returns the overrides for a stage, or API-derived defaults.
// Keys may use hyphens or underscores.
func GetStageConfig(cfg *Config, stageName string) StageConfig {
	if cfg != nil {
		if stage, exists := cfg.Stages[stageName]; exists {
			return stage
		}
		if stage, exists := cfg.Stages[strings.ReplaceAll(stageName, "-", "_")]; exists {
			return stage
		}
		return StageConfig{Timeout: cfg.API.Timeout}
	}
	return StageConfig{Timeout: 30000}
}
