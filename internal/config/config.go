// Package config defines all configuration structures for the CiteDisrupt
// engine.  No I/O or parsing logic lives here: only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// EngineConfig holds the metric parameters.  Zero values are replaced by the
// engine defaults in ApplyDefaults; explicit values always win.
type EngineConfig struct {
	Gamma          float64 `mapstructure:"gamma"`
	Lambda         float64 `mapstructure:"lambda"`
	Alpha          float64 `mapstructure:"alpha"`
	HorizonYears   int     `mapstructure:"horizon_years"`
	MinYear        int     `mapstructure:"min_year"`
	MaxYear        int     `mapstructure:"max_year"`
	ScorePrecision int     `mapstructure:"score_precision"`
	WeightHigh     float64 `mapstructure:"weight_high"`
	WeightMedium   float64 `mapstructure:"weight_medium"`
	WeightLow      float64 `mapstructure:"weight_low"`
	WeightPoor     float64 `mapstructure:"weight_poor"`
}

// Params converts the raw configuration fields into the immutable parameter
// value consumed by the domain packages.
func (e EngineConfig) Params() engine.Params {
	return engine.Params{
		Gamma:          e.Gamma,
		Lambda:         e.Lambda,
		Alpha:          e.Alpha,
		HorizonYears:   e.HorizonYears,
		MinYear:        e.MinYear,
		MaxYear:        e.MaxYear,
		ScorePrecision: e.ScorePrecision,
		Weights: engine.QualityWeights{
			High:   e.WeightHigh,
			Medium: e.WeightMedium,
			Low:    e.WeightLow,
			Poor:   e.WeightPoor,
		},
	}
}

// PipelineConfig holds run-execution tunables.
type PipelineConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	QueueDepth    int           `mapstructure:"queue_depth"`
	CacheEnabled  bool          `mapstructure:"cache_enabled"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	PublishEvents bool          `mapstructure:"publish_events"`
	FailFast      bool          `mapstructure:"fail_fast"`
}

// IngestConfig holds citation-dataset ingestion parameters.
type IngestConfig struct {
	InputDir    string `mapstructure:"input_dir"`
	FilePattern string `mapstructure:"file_pattern"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// Neo4jConfig holds Neo4j / citation-graph connection parameters.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	GroupID          string   `mapstructure:"group_id"`
	AutoOffsetReset  string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	TimeoutMS        int      `mapstructure:"timeout_ms"`
	ProducerRetries  int      `mapstructure:"producer_retries"`
	BatchSize        int      `mapstructure:"batch_size"`
	AutoCreateTopics bool     `mapstructure:"auto_create_topics"`
	TopicCompute     string   `mapstructure:"topic_compute"`
	TopicCompleted   string   `mapstructure:"topic_completed"`
	TopicFailed      string   `mapstructure:"topic_failed"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	QueueDepth        int           `mapstructure:"queue_depth"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	HealthAddr        string        `mapstructure:"health_addr"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire engine.
// Every infrastructure component and application service reads its settings
// from the relevant sub-struct.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Database DatabaseConfig `mapstructure:"database"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers must treat any error as
// fatal and refuse to start a run.
func (c *Config) Validate() error {
	// Engine parameters share one validator with the domain layer.
	if err := c.Engine.Params().Validate(); err != nil {
		return err
	}

	// Pipeline
	if c.Pipeline.Concurrency < 1 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency))
	}
	if c.Pipeline.QueueDepth < 1 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: pipeline.queue_depth must be >= 1, got %d", c.Pipeline.QueueDepth))
	}

	// Database
	if c.Database.Host == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: database.port %d is out of range [1, 65535]", c.Database.Port))
	}
	if c.Database.User == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns))
	}

	// Neo4j is optional; when enabled its endpoint is mandatory.
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: neo4j.uri is required when neo4j.enabled")
	}

	// Redis
	if c.Redis.Addr == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: redis.db must be >= 0, got %d", c.Redis.DB))
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return errors.New(errors.ErrCodeConfigFieldMissing,
			"config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: kafka.group_id is required")
	}

	// MinIO
	if c.MinIO.Endpoint == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: minio.endpoint is required")
	}
	if c.MinIO.Bucket == "" {
		return errors.New(errors.ErrCodeConfigFieldMissing, "config: minio.bucket is required")
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency))
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("config: log.format %q is invalid; expected json|console", c.Log.Format))
	}

	return nil
}
