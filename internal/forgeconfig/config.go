// Package forgeconfig loads engine configuration from defaults, a config
// file, and environment variables, layered the way the teacher's
// internal/config package does with Viper.
package forgeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"contentforge/pkg/bytesize"
)

const (
	defaultConcurrency        = 0 // 0 = auto-tune from runtime.NumCPU()
	defaultRetryBase          = 500 * time.Millisecond
	defaultRetryCap           = 30 * time.Second
	defaultRetryFactor        = 2.0
	defaultMaxRetries         = 3
	defaultCompressionBytes   = 8 * 1024
	defaultRecoveryPoll       = 2 * time.Minute
	defaultMaxOpenConns       = 10
	defaultMaxIdleConns       = 5
	defaultConnMaxIdleTime    = 10 * time.Minute
)

// Config holds all configuration for the engine and its CLI wrapper.
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Recovery  RecoveryConfig  `mapstructure:"recovery"`
}

// WorkspaceConfig locates the on-disk build tree (§4.5 layout).
type WorkspaceConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// DatabaseConfig configures the ledgerdb secondary index.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig configures the slog-based logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ExecutionConfig bounds the executor's concurrency and retry policy.
type ExecutionConfig struct {
	// Concurrency is the worker pool size; 0 auto-tunes from available CPU
	// and memory headroom (see internal/execution.ResolveConcurrency).
	Concurrency           int           `mapstructure:"concurrency"`
	RetryBaseDelay         time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay          time.Duration `mapstructure:"retry_max_delay"`
	RetryFactor            float64       `mapstructure:"retry_factor"`
	DefaultMaxRetries      int           `mapstructure:"default_max_retries"`
	CompressionThresholdBytes int64      `mapstructure:"compression_threshold_bytes"`

	// CompressionThreshold optionally overrides CompressionThresholdBytes
	// with a human-readable size ("8KB", "1MiB"), parsed by pkg/bytesize at
	// load time so operators can write config files in the same units the
	// engine reports back in its logs.
	CompressionThreshold string `mapstructure:"compression_threshold"`
}

// RecoveryConfig configures the recovery prepass scheduler.
type RecoveryConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	CronSchedule string        `mapstructure:"cron_schedule"`
}

// Load reads configuration from file and environment variables.
// Environment variables are prefixed CONTENTFORGE_ and take precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/contentforge")
	}

	v.SetEnvPrefix("CONTENTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Execution.CompressionThreshold != "" {
		size, err := bytesize.Parse(cfg.Execution.CompressionThreshold)
		if err != nil {
			return nil, fmt.Errorf("parsing execution.compression_threshold: %w", err)
		}
		cfg.Execution.CompressionThresholdBytes = size.Bytes()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults installs default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workspace.base_dir", "./data")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "contentforge.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("execution.concurrency", defaultConcurrency)
	v.SetDefault("execution.retry_base_delay", defaultRetryBase)
	v.SetDefault("execution.retry_max_delay", defaultRetryCap)
	v.SetDefault("execution.retry_factor", defaultRetryFactor)
	v.SetDefault("execution.default_max_retries", defaultMaxRetries)
	v.SetDefault("execution.compression_threshold_bytes", defaultCompressionBytes)

	v.SetDefault("recovery.poll_interval", defaultRecoveryPoll)
	v.SetDefault("recovery.cron_schedule", "0 */5 * * * *")
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Workspace.BaseDir == "" {
		return fmt.Errorf("workspace.base_dir is required")
	}
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	if c.Execution.Concurrency < 0 {
		return fmt.Errorf("execution.concurrency must not be negative")
	}
	if c.Execution.DefaultMaxRetries < 0 {
		return fmt.Errorf("execution.default_max_retries must not be negative")
	}
	return nil
}

// BlobsDir returns the content-addressed blob storage root for a movie.
func (c *WorkspaceConfig) BlobsDir(movieID string) string {
	return fmt.Sprintf("%s/builds/%s/blobs", c.BaseDir, movieID)
}

// EventsDir returns the append-only event log directory for a movie.
func (c *WorkspaceConfig) EventsDir(movieID string) string {
	return fmt.Sprintf("%s/builds/%s/events", c.BaseDir, movieID)
}

// ManifestsDir returns the materialized manifest directory for a movie.
func (c *WorkspaceConfig) ManifestsDir(movieID string) string {
	return fmt.Sprintf("%s/builds/%s/manifests", c.BaseDir, movieID)
}

// CurrentPointerPath returns the path to the movie's current.json pointer.
func (c *WorkspaceConfig) CurrentPointerPath(movieID string) string {
	return fmt.Sprintf("%s/builds/%s/current.json", c.BaseDir, movieID)
}
