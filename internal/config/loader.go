package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all platform settings.
const envPrefix = "TRIALSYNC"

// configKeys is every settable key.  Viper only unmarshals env-sourced
// values for keys it has been told about, so each one is bound explicitly.
var configKeys = []string{
	"server.host", "server.port", "server.read_timeout", "server.write_timeout",
	"server.idle_timeout", "server.shutdown_timeout", "server.cors_origins",
	"server.rate_limit_rps",
	"database.host", "database.port", "database.user", "database.password",
	"database.name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.migrations_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.ttl",
	"kafka.brokers", "kafka.topic_prefix", "kafka.group_id", "kafka.batch_size",
	"kafka.timeout",
	"registry.base_url", "registry.page_size", "registry.timeout",
	"registry.max_retries", "registry.retry_delay", "registry.cache_ttl",
	"registry.sync_enabled", "registry.sync_period", "registry.sync_conditions",
	"oracle.base_url", "oracle.api_key", "oracle.model", "oracle.timeout",
	"oracle.max_retries", "oracle.temperature",
	"matching.min_score", "matching.concurrency",
	"worker.metrics_addr",
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
}

// newViper builds a pre-configured viper instance: YAML file type,
// TRIALSYNC_ env prefix, automatic env binding, and a "." to "_" key
// replacer so that "database.host" resolves to TRIALSYNC_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges TRIALSYNC_* environment
// overrides, applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from TRIALSYNC_* environment
// variables, with no config file required.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config on every change that parses and validates; invalid edits are
// skipped so the application never observes a broken config.  Non-blocking;
// viper manages the watcher goroutine.  Callers apply only the safe subset
// of changes at runtime, typically log level.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error. For use in main, where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
