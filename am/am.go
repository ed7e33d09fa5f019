package am

import (
	"net/url"
	"time"
)

// Config is the jobsweep configuration. It is built once at startup by Load
// and passed by value to everything that needs it; nothing mutates it after
// construction.
type Config struct {
	Store   StoreConfig   `mapstructure:"store" toml:"store" json:"store" yaml:"store"`
	Reset   ResetConfig   `mapstructure:"reset" toml:"reset" json:"reset" yaml:"reset"`
	Retry   RetryConfig   `mapstructure:"retry" toml:"retry" json:"retry" yaml:"retry"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics" json:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// StoreConfig locates the document store
type StoreConfig struct {
	ConnectionString string `mapstructure:"connection_string" toml:"connection_string" json:"connection_string" yaml:"connection_string"`
}

// ResetConfig configures the job resetter
type ResetConfig struct {
	DatabaseName   string `mapstructure:"database_name" toml:"database_name" json:"database_name" yaml:"database_name"`
	CollectionName string `mapstructure:"collection_name" toml:"collection_name" json:"collection_name" yaml:"collection_name"`
}

// RetryConfig configures the job retrier
type RetryConfig struct {
	DatabaseName   string  `mapstructure:"database_name" toml:"database_name" json:"database_name" yaml:"database_name"`
	CollectionName string  `mapstructure:"collection_name" toml:"collection_name" json:"collection_name" yaml:"collection_name"`
	BaseURL        string  `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"`                         // retry endpoint root, e.g. http://localhost:3000
	RetryDelay     float64 `mapstructure:"retry_delay" toml:"retry_delay" json:"retry_delay" yaml:"retry_delay"`             // seconds between calls, 0 = no pause
	BatchSize      int     `mapstructure:"batch_size" toml:"batch_size" json:"batch_size" yaml:"batch_size"`                 // cursor batch size
	TimeoutSeconds int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"` // per-request timeout
	BlockPrivateIP bool    `mapstructure:"block_private_ip" toml:"block_private_ip" json:"block_private_ip" yaml:"block_private_ip"`
	Schedule       string  `mapstructure:"schedule" toml:"schedule" json:"schedule" yaml:"schedule"` // cron spec; empty = run once
}

// Delay returns the pause between consecutive retry calls
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.RetryDelay * float64(time.Second))
}

// Timeout returns the per-request timeout
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Redacted returns a copy safe to print: a password in the connection
// string is masked. Strings that do not parse as URLs are masked whole.
func (c Config) Redacted() Config {
	out := c
	if c.Store.ConnectionString == "" {
		return out
	}
	u, err := url.Parse(c.Store.ConnectionString)
	if err != nil {
		out.Store.ConnectionString = "xxxxx"
		return out
	}
	out.Store.ConnectionString = u.Redacted()
	return out
}

// MetricsConfig configures the optional Prometheus Pushgateway export
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" toml:"pushgateway_url" json:"pushgateway_url" yaml:"pushgateway_url"` // empty = disabled
	JobName        string `mapstructure:"job_name" toml:"job_name" json:"job_name" yaml:"job_name"`
}

// LogConfig configures console output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Theme string `mapstructure:"theme" toml:"theme" json:"theme" yaml:"theme"` // everforest, gruvbox
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644

	// ConfigFileName is the file searched for in each config location
	ConfigFileName = "jobsweep.toml"

	// EnvPrefix prefixes every environment override (JOBSWEEP_RETRY_BASE_URL, ...)
	EnvPrefix = "JOBSWEEP"
)
