package config

import "time"

// Default values applied to unset fields.
const (
	DefaultServerPort      = 8080
	DefaultRegistryBaseURL = "https://clinicaltrials.gov/api/v2"
	DefaultPageSize        = 10
	DefaultMinScore        = 50
)

// ApplyDefaults fills every zero-valued field that has a sensible default.
// Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 100
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "trialsync"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "trialsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "internal/infrastructure/database/postgres/migrations"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = time.Hour
	}

	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = "trialsync"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "trialsync-workers"
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.Timeout == 0 {
		cfg.Kafka.Timeout = 10 * time.Second
	}

	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = DefaultRegistryBaseURL
	}
	if cfg.Registry.PageSize == 0 {
		cfg.Registry.PageSize = DefaultPageSize
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = 30 * time.Second
	}
	if cfg.Registry.MaxRetries == 0 {
		cfg.Registry.MaxRetries = 3
	}
	if cfg.Registry.RetryDelay == 0 {
		cfg.Registry.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Registry.CacheTTL == 0 {
		cfg.Registry.CacheTTL = 15 * time.Minute
	}
	if cfg.Registry.SyncPeriod == 0 {
		cfg.Registry.SyncPeriod = 6 * time.Hour
	}

	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gpt-4o"
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 60 * time.Second
	}
	if cfg.Oracle.MaxRetries == 0 {
		cfg.Oracle.MaxRetries = 2
	}

	if cfg.Matching.MinScore == 0 {
		cfg.Matching.MinScore = DefaultMinScore
	}
	if cfg.Matching.Concurrency == 0 {
		cfg.Matching.Concurrency = 4
	}

	if cfg.Worker.MetricsAddr == "" {
		cfg.Worker.MetricsAddr = ":9090"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}
