// Package main runs the compute worker: a Kafka consumer group member
// that executes company computation jobs from the compute topic. Each
// job carries the run's engine parameters, so a worker fleet can serve
// runs with different configurations concurrently.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
	"github.com/turtacn/CiteDisrupt/internal/config"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/ingest"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
	"github.com/turtacn/CiteDisrupt/pkg/types/common"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	shutdownTimeout          = 10 * time.Second
	lockPollInterval         = 2 * time.Second
	lockReleaseTimeout       = 5 * time.Second
)

func main() {
	var (
		configPath  string
		workerCount int
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file (default: environment variables)")
	flag.IntVar(&workerCount, "workers", 0, "concurrent consumers (default: worker.concurrency)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("citedisrupt-worker %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if workerCount <= 0 {
		workerCount = cfg.Worker.Concurrency
	}

	if err := run(cfg, workerCount, log); err != nil {
		log.Error("worker terminated", logging.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads the file when one is given, otherwise environment
// variables and defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, workers int, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("compute worker starting",
		logging.String("version", version),
		logging.Int("workers", workers),
		logging.String("topic", cfg.Kafka.TopicCompute),
		logging.String("group", cfg.Kafka.GroupID))

	// ── Metrics ───────────────────────────────────────────────────────────────

	var app *prometheus.AppMetrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            "worker",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return err
		}
		app = prometheus.NewAppMetrics(collector)

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics server listening", logging.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	// ── Shared collaborators ──────────────────────────────────────────────────

	handler := &jobHandler{
		cacheTTL: cfg.Pipeline.CacheTTL,
		metrics:  app,
		log:      log,
	}

	if cfg.Pipeline.CacheEnabled {
		client, err := redis.NewClient(&redis.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, log)
		if err != nil {
			log.Warn("result cache unavailable, computing every job", logging.Err(err))
		} else {
			defer client.Close()
			handler.cache = redis.NewResultCache(client, log,
				redis.WithPrefix(cfg.Redis.KeyPrefix),
				redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
			handler.locks = client
		}
	}

	if cfg.Pipeline.PublishEvents {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			MaxRetries:       cfg.Kafka.ProducerRetries,
			BatchSize:        cfg.Kafka.BatchSize,
			AutoCreateTopics: cfg.Kafka.AutoCreateTopics,
		}, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		handler.events = kafka.NewCompanyEventPublisher(producer, kafka.EventPublisherConfig{
			CompletedTopic: cfg.Kafka.TopicCompleted,
			FailedTopic:    cfg.Kafka.TopicFailed,
			Source:         "citedisrupt-worker",
		}, log)
	}

	if handler.cache == nil && handler.events == nil {
		log.Warn("cache and event publishing both disabled, results are only logged")
	}

	// ── Consumers ─────────────────────────────────────────────────────────────

	// The consume loop is sequential per consumer, so concurrency comes
	// from group members: one consumer per worker slot, all in the same
	// group. The broker assigns each member a share of the partitions.
	consumers := make([]*kafka.Consumer, 0, workers)
	closeConsumers := func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				log.Error("consumer close failed", logging.Err(err))
			}
		}
	}

	topic := cfg.Kafka.TopicCompute
	for i := 0; i < workers; i++ {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.GroupID,
			Topics:          []string{topic},
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			SessionTimeout:  time.Duration(cfg.Kafka.TimeoutMS) * time.Millisecond,
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      cfg.Worker.MaxRetries,
				RetryBackoff:    cfg.Worker.RetryBackoff,
				DeadLetterTopic: kafka.DeadLetterTopic(topic),
			},
		}, log)
		if err != nil {
			closeConsumers()
			return err
		}
		if err := consumer.Subscribe(topic, handler.Handle); err != nil {
			closeConsumers()
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			closeConsumers()
			return err
		}
		consumers = append(consumers, consumer)
	}

	// ── Health endpoints ──────────────────────────────────────────────────────

	var ready atomic.Bool
	ready.Store(true)
	if app != nil {
		prometheus.RecordHealth(app, "worker", true)
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	healthMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "shutting down")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ready")
	})
	healthSrv := &http.Server{Addr: cfg.Worker.HealthAddr, Handler: healthMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("health server listening", logging.String("addr", cfg.Worker.HealthAddr))
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", logging.Err(err))
		}
	}()

	// ── Heartbeat ─────────────────────────────────────────────────────────────

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := cfg.Worker.HeartbeatInterval
		if interval <= 0 {
			interval = defaultHeartbeatInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logStats(log, consumers)
				if app != nil {
					prometheus.RecordHealth(app, "worker", true)
				}
			}
		}
	}()

	// ── Shutdown ──────────────────────────────────────────────────────────────

	<-ctx.Done()
	log.Info("shutdown signal received")
	ready.Store(false)
	if app != nil {
		prometheus.RecordHealth(app, "worker", false)
	}

	closeConsumers()
	wg.Wait()
	logStats(log, consumers)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", logging.Err(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	log.Info("compute worker stopped")
	return nil
}

// logStats aggregates the per-consumer counters into one line.
func logStats(log logging.Logger, consumers []*kafka.Consumer) {
	var total kafka.ConsumerStats
	for _, c := range consumers {
		s := c.Stats()
		total.Consumed += s.Consumed
		total.Processed += s.Processed
		total.Failed += s.Failed
		total.Retried += s.Retried
		total.DeadLettered += s.DeadLettered
	}
	log.Info("consumer stats",
		logging.Int64("consumed", total.Consumed),
		logging.Int64("processed", total.Processed),
		logging.Int64("failed", total.Failed),
		logging.Int64("retried", total.Retried),
		logging.Int64("dead_lettered", total.DeadLettered))
}

// jobHandler executes one company computation per delivered message.
// Compute failures surface as company.failed events from the pipeline
// service; delivery failures (undecodable jobs, unreadable inputs) ride
// the consumer's retry and dead letter policy instead.
type jobHandler struct {
	cache    pipeline.ResultCache
	events   pipeline.EventPublisher
	locks    *redis.Client
	metrics  *prometheus.AppMetrics
	cacheTTL time.Duration
	log      logging.Logger
}

// Handle decodes the job, reads the company's citation table and runs
// the computation with the parameters carried by the job.
func (h *jobHandler) Handle(ctx context.Context, msg *common.Message) (err error) {
	started := time.Now()
	if h.metrics != nil {
		h.metrics.ActiveWorkers.WithLabelValues().Inc()
		defer h.metrics.ActiveWorkers.WithLabelValues().Dec()
		defer func() { prometheus.RecordJob(h.metrics, msg.Topic, err, time.Since(started)) }()
	}

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	var job kafka.CompanyComputeJob
	if err = env.DecodePayload(&job); err != nil {
		return err
	}
	if job.CompanyName == "" || job.InputPath == "" {
		return errors.New(errors.ErrCodeValidation, "compute job missing company name or input path")
	}
	if err = job.Params.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidParam, "compute job carries invalid params")
	}

	ctx = logging.WithRunID(ctx, job.RunID)
	log := h.log.With(
		logging.String("run_id", job.RunID),
		logging.String("company", job.CompanyName))
	log.Info("compute job accepted",
		logging.String("input", job.InputPath),
		logging.Int64("offset", msg.Offset))

	release, err := h.acquireCompanyLock(ctx, log, job.CompanyName)
	if err != nil {
		return err
	}
	defer release()

	table, err := ingest.NewCSVReader(job.Params, h.log).ReadCompanyFile(ctx, job.InputPath)
	if err != nil {
		return err
	}

	var metrics pipeline.Metrics
	if h.metrics != nil {
		metrics = prometheus.NewPipelineMetrics(h.metrics)
	}
	svc := pipeline.NewService(pipeline.ServiceConfig{
		Params:   job.Params,
		Cache:    h.cache,
		Events:   h.events,
		Metrics:  metrics,
		CacheTTL: h.cacheTTL,
	}, h.log)

	res, err := svc.ProcessCompany(ctx, pipeline.CompanyInput{
		CompanyName: job.CompanyName,
		Records:     table.Records,
		RowErrors:   table.RowErrors,
	})
	if err != nil {
		return err
	}

	log.Info("compute job finished",
		logging.Int("panel_rows", len(res.Records)),
		logging.Int("row_errors", len(res.RowErrors)),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// acquireCompanyLock serializes computation per company across the
// fleet, so a rebalanced duplicate delivery waits instead of racing the
// holder's cache fill. Lock errors degrade to computing without it; the
// wait only ends with the lock or a cancelled context.
func (h *jobHandler) acquireCompanyLock(ctx context.Context, log logging.Logger, company string) (func(), error) {
	if h.locks == nil {
		return func() {}, nil
	}
	lock := redis.NewCompanyLock(h.locks, company, h.log)
	waited := false
	for {
		ok, err := lock.TryLock(ctx)
		if err != nil {
			log.Warn("company lock unavailable, computing without it", logging.Err(err))
			return func() {}, nil
		}
		if ok {
			return func() {
				unlockCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
				defer cancel()
				if err := lock.Unlock(unlockCtx); err != nil {
					log.Warn("company lock release failed", logging.Err(err))
				}
			}, nil
		}
		if !waited {
			log.Info("company locked by another worker, waiting")
			waited = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
