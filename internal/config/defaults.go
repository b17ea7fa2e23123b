// Package config provides configuration loading, defaults, and validation for
// the CiteDisrupt engine.
package config

import (
	"time"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "citedisrupt"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "citedisrupt"

	DefaultKafkaBroker    = "localhost:9092"
	DefaultKafkaGroupID   = "citedisrupt-workers"
	DefaultTopicCompute   = "citation.company.compute"
	DefaultTopicCompleted = "citation.company.completed"
	DefaultTopicFailed    = "citation.company.failed"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "citedisrupt-artifacts"

	DefaultMetricsAddr      = ":9090"
	DefaultMetricsNamespace = "citedisrupt"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultPipelineConcurrency = 8
	DefaultPipelineQueueDepth  = 64
	DefaultWorkerConcurrency   = 4
	DefaultWorkerHealthAddr    = ":8081"

	DefaultIngestFilePattern = "*.csv"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	def := engine.Default()
	if cfg.Engine.Gamma == 0 {
		cfg.Engine.Gamma = def.Gamma
	}
	if cfg.Engine.Lambda == 0 {
		cfg.Engine.Lambda = def.Lambda
	}
	if cfg.Engine.Alpha == 0 {
		cfg.Engine.Alpha = def.Alpha
	}
	if cfg.Engine.HorizonYears == 0 {
		cfg.Engine.HorizonYears = def.HorizonYears
	}
	if cfg.Engine.MinYear == 0 {
		cfg.Engine.MinYear = def.MinYear
	}
	if cfg.Engine.MaxYear == 0 {
		cfg.Engine.MaxYear = def.MaxYear
	}
	if cfg.Engine.ScorePrecision == 0 {
		cfg.Engine.ScorePrecision = def.ScorePrecision
	}
	if cfg.Engine.WeightHigh == 0 {
		cfg.Engine.WeightHigh = def.Weights.High
	}
	if cfg.Engine.WeightMedium == 0 {
		cfg.Engine.WeightMedium = def.Weights.Medium
	}
	if cfg.Engine.WeightLow == 0 {
		cfg.Engine.WeightLow = def.Weights.Low
	}
	if cfg.Engine.WeightPoor == 0 {
		cfg.Engine.WeightPoor = def.Weights.Poor
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultPipelineConcurrency
	}
	if cfg.Pipeline.QueueDepth == 0 {
		cfg.Pipeline.QueueDepth = DefaultPipelineQueueDepth
	}
	if cfg.Pipeline.CacheTTL == 0 {
		cfg.Pipeline.CacheTTL = 24 * time.Hour
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	if cfg.Ingest.FilePattern == "" {
		cfg.Ingest.FilePattern = DefaultIngestFilePattern
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.TopicCompute == "" {
		cfg.Kafka.TopicCompute = DefaultTopicCompute
	}
	if cfg.Kafka.TopicCompleted == "" {
		cfg.Kafka.TopicCompleted = DefaultTopicCompleted
	}
	if cfg.Kafka.TopicFailed == "" {
		cfg.Kafka.TopicFailed = DefaultTopicFailed
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.QueueDepth == 0 {
		cfg.Worker.QueueDepth = DefaultPipelineQueueDepth
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.HealthAddr == "" {
		cfg.Worker.HealthAddr = DefaultWorkerHealthAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
