package pipeline

import (
	"context"
	"time"

	"github.com/turtacn/CiteDisrupt/pkg/types/common"
)

// ResultCache stores finished company results keyed by input
// fingerprint, so reruns over unchanged tables skip the computation.
// Implemented by the Redis cache adapter.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
}

// CompanyCompletedEvent announces one finished company.
type CompanyCompletedEvent struct {
	common.BaseEvent
	RunID       string  `json:"run_id"`
	CompanyName string  `json:"company_name"`
	Years       int     `json:"years"`
	Patents     int     `json:"patents"`
	RowErrors   int     `json:"row_errors"`
	Warnings    int     `json:"warnings"`
	FromCache   bool    `json:"from_cache"`
	Seconds     float64 `json:"seconds"`
}

// CompanyFailedEvent announces a company omitted from the panel.
type CompanyFailedEvent struct {
	common.BaseEvent
	RunID       string `json:"run_id"`
	CompanyName string `json:"company_name"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
}

// EventPublisher emits per-company lifecycle events. Implemented by the
// Kafka producer adapter; publish failures are logged, never fatal.
type EventPublisher interface {
	PublishCompanyCompleted(ctx context.Context, evt CompanyCompletedEvent) error
	PublishCompanyFailed(ctx context.Context, evt CompanyFailedEvent) error
}

// Metrics receives pipeline counters. Implemented by the Prometheus
// collector.
type Metrics interface {
	CompanyProcessed(seconds float64)
	CompanyFailed()
	CacheHit()
	RowErrors(n int)
	ScoreWarnings(n int)
	PanelRows(n int)
}

type nopMetrics struct{}

func (nopMetrics) CompanyProcessed(float64) {}
func (nopMetrics) CompanyFailed()           {}
func (nopMetrics) CacheHit()                {}
func (nopMetrics) RowErrors(int)            {}
func (nopMetrics) ScoreWarnings(int)        {}
func (nopMetrics) PanelRows(int)            {}
