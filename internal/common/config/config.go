package config

import "fmt"

type Config struct {
	App         AppConfig              `mapstructure:"app"`
	API         APIConfig              `mapstructure:"api"`
	Credentials CredentialsConfig      `mapstructure:"credentials"`
	Session     SessionConfig          `mapstructure:"session"`
	Database    DatabaseConfig         `mapstructure:"database"`
	Integrity   IntegrityConfig        `mapstructure:"integrity"`
	Review      ReviewConfig           `mapstructure:"review"`
	Stages      map[string]StageConfig `mapstructure:"stages"`
	Registry    RegistryConfig         `mapstructure:"registry"`
	Logging     LoggingConfig          `mapstructure:"logging"`
	Metrics     MetricsConfig          `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig points at the interview service.
type APIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // milliseconds
	MaxRetries int    `mapstructure:"max_retries"` // transport-level retries
	RetryDelay int    `mapstructure:"retry_delay"` // milliseconds, multiplied by attempt
}

// Credential backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

type CredentialsConfig struct {
	Backend   string `mapstructure:"backend"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // seconds, 0 keeps keys until cleared
}

type SessionConfig struct {
	SnapshotBackend string `mapstructure:"snapshot_backend"`
	SnapshotTable   string `mapstructure:"snapshot_table"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Integrity policies.
const (
	PolicyLog  = "log"
	PolicyFlag = "flag"
	PolicyFail = "fail"
)

type IntegrityConfig struct {
	Policy              string `mapstructure:"policy"`
	Threshold           int    `mapstructure:"threshold"`
	ReloadRedirectDelay int    `mapstructure:"reload_redirect_delay"` // milliseconds
	EntryURL            string `mapstructure:"entry_url"`
	RequireFullscreen   bool   `mapstructure:"require_fullscreen"`
}

type ReviewConfig struct {
	Backend string `mapstructure:"backend"` // "log", "elasticsearch" or "postgres"
	Index   string `mapstructure:"index"`
	Table   string `mapstructure:"table"`
}

// StageConfig carries per-stage overrides.
type StageConfig struct {
	Timeout    int `mapstructure:"timeout"` // milliseconds
	MaxRetries int `mapstructure:"max_retries"`
	CodeLength int `mapstructure:"code_length"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
