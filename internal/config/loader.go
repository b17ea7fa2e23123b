// Package config provides configuration loading, defaults, and validation for
// the CiteDisrupt engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "CITEDISRUPT"

// configKeys registers every known key with its zero value. Viper's
// Unmarshal only visits keys it has seen; registering them here is what
// lets values provided solely through the environment reach the struct.
// Effective defaults live in ApplyDefaults, not in this map.
var configKeys = map[string]interface{}{
	"engine.gamma":           0.0,
	"engine.lambda":          0.0,
	"engine.alpha":           0.0,
	"engine.horizon_years":   0,
	"engine.min_year":        0,
	"engine.max_year":        0,
	"engine.score_precision": 0,
	"engine.weight_high":     0.0,
	"engine.weight_medium":   0.0,
	"engine.weight_low":      0.0,
	"engine.weight_poor":     0.0,

	"pipeline.concurrency":    0,
	"pipeline.queue_depth":    0,
	"pipeline.cache_enabled":  false,
	"pipeline.cache_ttl":      time.Duration(0),
	"pipeline.publish_events": false,
	"pipeline.fail_fast":      false,

	"ingest.input_dir":    "",
	"ingest.file_pattern": "",

	"database.host":               "",
	"database.port":               0,
	"database.user":               "",
	"database.password":           "",
	"database.db_name":            "",
	"database.ssl_mode":           "",
	"database.max_conns":          0,
	"database.min_conns":          0,
	"database.conn_max_lifetime":  time.Duration(0),
	"database.conn_max_idle_time": time.Duration(0),
	"database.migration_path":     "",

	"neo4j.enabled":                  false,
	"neo4j.uri":                      "",
	"neo4j.user":                     "",
	"neo4j.password":                 "",
	"neo4j.max_connection_pool_size": 0,
	"neo4j.connection_timeout":       time.Duration(0),
	"neo4j.database":                 "",

	"redis.addr":           "",
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      0,
	"redis.min_idle_conns": 0,
	"redis.dial_timeout":   time.Duration(0),
	"redis.read_timeout":   time.Duration(0),
	"redis.write_timeout":  time.Duration(0),
	"redis.default_ttl":    time.Duration(0),
	"redis.key_prefix":     "",

	"kafka.brokers":            []string{},
	"kafka.group_id":           "",
	"kafka.auto_offset_reset":  "",
	"kafka.timeout_ms":         0,
	"kafka.producer_retries":   0,
	"kafka.batch_size":         0,
	"kafka.auto_create_topics": false,
	"kafka.topic_compute":      "",
	"kafka.topic_completed":    "",
	"kafka.topic_failed":       "",

	"minio.endpoint":       "",
	"minio.access_key":     "",
	"minio.secret_key":     "",
	"minio.bucket":         "",
	"minio.use_ssl":        false,
	"minio.presign_expiry": time.Duration(0),

	"metrics.enabled":   false,
	"metrics.addr":      "",
	"metrics.namespace": "",

	"worker.concurrency":        0,
	"worker.queue_depth":        0,
	"worker.heartbeat_interval": time.Duration(0),
	"worker.max_retries":        0,
	"worker.retry_backoff":      time.Duration(0),
	"worker.health_addr":        "",

	"log.level":              "",
	"log.format":             "",
	"log.output_paths":       []string{},
	"log.error_output_paths": []string{},
}

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, CITEDISRUPT_ env prefix, automatic env binding,
// and a key replacer that maps "." → "_" so that nested keys like
// "database.host" resolve to "CITEDISRUPT_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, zero := range configKeys {
		v.SetDefault(key, zero)
	}
	return v
}

// Load reads the YAML file at configPath, merges any CITEDISRUPT_* environment
// variable overrides, applies engine defaults for unset fields, and validates
// the result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigFileUnreadable,
			fmt.Sprintf("config: failed to read config file %q", configPath))
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CITEDISRUPT_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	CITEDISRUPT_<SECTION>_<FIELD>   e.g.  CITEDISRUPT_DATABASE_HOST, CITEDISRUPT_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file; rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValueInvalid,
			"config: failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "config: validation failed")
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and pipeline
// concurrency; callers are responsible for applying only the safe subset of
// changes at runtime.  Engine parameters are never hot-reloaded: a running
// computation keeps the parameter set it started with.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
