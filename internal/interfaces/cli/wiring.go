package cli

import (
	"github.com/turtacn/CiteDisrupt/internal/config"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	neo4jdb "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/storage/minio"
)

// The loaded Config keeps one struct per backend; each infrastructure
// package defines its own narrower config. These conversions are the
// single place the two shapes meet.

func postgresConfig(cfg *config.Config) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

func neo4jConfig(cfg *config.Config) neo4jdb.Neo4jConfig {
	return neo4jdb.Neo4jConfig{
		URI:                   cfg.Neo4j.URI,
		User:                  cfg.Neo4j.User,
		Password:              cfg.Neo4j.Password,
		Database:              cfg.Neo4j.Database,
		MaxConnectionPoolSize: cfg.Neo4j.MaxConnectionPoolSize,
		ConnectionTimeout:     cfg.Neo4j.ConnectionTimeout,
	}
}

func redisConfig(cfg *config.Config) *redis.RedisConfig {
	return &redis.RedisConfig{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
}

func minioConfig(cfg *config.Config) minio.MinIOConfig {
	return minio.MinIOConfig{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKey,
		SecretAccessKey: cfg.MinIO.SecretKey,
		Bucket:          cfg.MinIO.Bucket,
		UseSSL:          cfg.MinIO.UseSSL,
		PresignExpiry:   cfg.MinIO.PresignExpiry,
	}
}

func producerConfig(cfg *config.Config) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		MaxRetries:       cfg.Kafka.ProducerRetries,
		BatchSize:        cfg.Kafka.BatchSize,
		AutoCreateTopics: cfg.Kafka.AutoCreateTopics,
	}
}

// openPanelStore connects to PostgreSQL and returns the panel and run
// repositories bound to one pool, plus the pool's close function.
func openPanelStore(cliCtx *CLIContext) (panel.PanelRepository, panel.RunRepository, func(), error) {
	conn, err := postgres.NewConnection(postgresConfig(cliCtx.Config), cliCtx.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	precision := cliCtx.Config.Engine.Params().ScorePrecision
	repo := pgrepo.NewPanelRepository(conn.Pool(), cliCtx.Logger, pgrepo.WithScorePrecision(precision))
	runs := pgrepo.NewRunRepository(conn.Pool(), cliCtx.Logger)
	return repo, runs, conn.Close, nil
}
