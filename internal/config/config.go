// Package config provides configuration loading, defaults, and validation
// for the TrialSync platform.
package config

import (
	"fmt"
	"time"

	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
)

// Config is the root configuration tree.  Every field can be set from YAML
// or from a TRIALSYNC_* environment variable.
type Config struct {
	Server   ServerConfig      `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka" yaml:"kafka"`
	Registry RegistryConfig    `mapstructure:"registry" yaml:"registry"`
	Oracle   OracleConfig      `mapstructure:"oracle" yaml:"oracle"`
	Matching MatchingConfig    `mapstructure:"matching" yaml:"matching"`
	Worker   WorkerConfig      `mapstructure:"worker" yaml:"worker"`
	Log      logging.LogConfig `mapstructure:"log" yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimitRPS    int           `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig controls the PostgreSQL pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Name            string        `mapstructure:"name" yaml:"name"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path" yaml:"migrations_path"`
}

// DSN returns a keyword/value connection string accepted by both pgx and
// lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL returns the postgres:// form of the connection string, used by the
// migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig controls the cache connection.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	PoolSize int           `mapstructure:"pool_size" yaml:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// KafkaConfig controls the event bus.  Leaving Brokers empty disables event
// publishing entirely.
type KafkaConfig struct {
	Brokers     []string      `mapstructure:"brokers" yaml:"brokers"`
	TopicPrefix string        `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	GroupID     string        `mapstructure:"group_id" yaml:"group_id"`
	BatchSize   int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Enabled reports whether event publishing is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// RegistryConfig controls the clinical-trial registry client.  Periodic
// background sync requires SyncEnabled and at least one entry in
// SyncConditions.
type RegistryConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	PageSize       int           `mapstructure:"page_size" yaml:"page_size"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	SyncEnabled    bool          `mapstructure:"sync_enabled" yaml:"sync_enabled"`
	SyncPeriod     time.Duration `mapstructure:"sync_period" yaml:"sync_period"`
	SyncConditions []string      `mapstructure:"sync_conditions" yaml:"sync_conditions"`
}

// OracleConfig controls the language-model endpoint used for profile
// extraction and condition progression.
type OracleConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
}

// MatchingConfig controls the batch matcher.
type MatchingConfig struct {
	MinScore    int `mapstructure:"min_score" yaml:"min_score"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// WorkerConfig controls the background worker process.  The worker has no
// API surface, so its metrics get their own listener.
type WorkerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host must not be empty")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name must not be empty")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be at least 1, got %d", c.Database.MaxConns)
	}
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url must not be empty")
	}
	if c.Registry.PageSize < 1 || c.Registry.PageSize > 1000 {
		return fmt.Errorf("registry.page_size must be in [1, 1000], got %d", c.Registry.PageSize)
	}
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		return fmt.Errorf("matching.min_score must be in [0, 100], got %d", c.Matching.MinScore)
	}
	if c.Matching.Concurrency < 1 {
		return fmt.Errorf("matching.concurrency must be at least 1, got %d", c.Matching.Concurrency)
	}
	return nil
}
