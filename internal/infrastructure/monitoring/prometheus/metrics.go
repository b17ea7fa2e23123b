package prometheus

import (
	"time"

	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
)

// AppMetrics holds every instrument the batch and the worker record.
type AppMetrics struct {
	// Pipeline
	CompaniesTotal         CounterVec // status: ok | failed
	CompanyProcessDuration HistogramVec
	CacheHitsTotal         CounterVec
	RowErrorsTotal         CounterVec
	ScoreWarningsTotal     CounterVec
	PanelRowsTotal         CounterVec

	// Ingest
	IngestDuration  HistogramVec // source
	IngestRowsTotal CounterVec   // source, status: parsed | skipped

	// Citation graph persistence
	GraphPersistDuration HistogramVec // operation
	GraphNodesTotal      GaugeVec     // company
	GraphEdgesTotal      GaugeVec     // company

	// Artifact store
	ArtifactsSavedTotal CounterVec // kind
	ArtifactBytesTotal  CounterVec // kind

	// Job queue
	JobsTotal          CounterVec   // topic, status: ok | failed
	JobProcessDuration HistogramVec // topic
	DeadLettersTotal   CounterVec   // topic
	ActiveWorkers      GaugeVec

	// Infrastructure
	DBQueryDuration   HistogramVec // operation
	HealthCheckStatus GaugeVec     // component, 1=up 0=down
	ErrorsTotal       CounterVec   // component, code
}

var (
	// Company and job spans run from under a second for cached hits to
	// minutes for dense citation graphs.
	ComputeDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	DBDurationBuckets      = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	PersistDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60}
)

// NewAppMetrics registers the full instrument set on the collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.CompaniesTotal = c.RegisterCounter("companies_total", "Companies processed by final status", "status")
	m.CompanyProcessDuration = c.RegisterHistogram("company_process_duration_seconds", "Per-company processing time", ComputeDurationBuckets)
	m.CacheHitsTotal = c.RegisterCounter("cache_hits_total", "Company results served from cache")
	m.RowErrorsTotal = c.RegisterCounter("row_errors_total", "Input rows rejected during ingest")
	m.ScoreWarningsTotal = c.RegisterCounter("score_warnings_total", "Citation quality score warnings")
	m.PanelRowsTotal = c.RegisterCounter("panel_rows_total", "Panel rows emitted")

	m.IngestDuration = c.RegisterHistogram("ingest_duration_seconds", "Input parse time", ComputeDurationBuckets, "source")
	m.IngestRowsTotal = c.RegisterCounter("ingest_rows_total", "Input rows by outcome", "source", "status")

	m.GraphPersistDuration = c.RegisterHistogram("graph_persist_duration_seconds", "Citation graph write time", PersistDurationBuckets, "operation")
	m.GraphNodesTotal = c.RegisterGauge("graph_nodes_total", "Patents stored per company graph", "company")
	m.GraphEdgesTotal = c.RegisterGauge("graph_edges_total", "Citation edges stored per company graph", "company")

	m.ArtifactsSavedTotal = c.RegisterCounter("artifacts_saved_total", "Artifacts written to the object store", "kind")
	m.ArtifactBytesTotal = c.RegisterCounter("artifact_bytes_total", "Artifact payload bytes written", "kind")

	m.JobsTotal = c.RegisterCounter("jobs_total", "Queue jobs by outcome", "topic", "status")
	m.JobProcessDuration = c.RegisterHistogram("job_process_duration_seconds", "Queue job handling time", ComputeDurationBuckets, "topic")
	m.DeadLettersTotal = c.RegisterCounter("dead_letters_total", "Jobs routed to the dead letter topic", "topic")
	m.ActiveWorkers = c.RegisterGauge("active_workers", "Concurrent company computations in flight")

	m.DBQueryDuration = c.RegisterHistogram("db_query_duration_seconds", "Relational query time", DBDurationBuckets, "operation")
	m.HealthCheckStatus = c.RegisterGauge("health_check_status", "Component health (1=up, 0=down)", "component")
	m.ErrorsTotal = c.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// ─────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────

func RecordIngest(m *AppMetrics, source string, parsed, skipped int, d time.Duration) {
	m.IngestDuration.WithLabelValues(source).Observe(d.Seconds())
	m.IngestRowsTotal.WithLabelValues(source, "parsed").Add(float64(parsed))
	m.IngestRowsTotal.WithLabelValues(source, "skipped").Add(float64(skipped))
}

func RecordArtifact(m *AppMetrics, kind string, bytes int) {
	m.ArtifactsSavedTotal.WithLabelValues(kind).Inc()
	m.ArtifactBytesTotal.WithLabelValues(kind).Add(float64(bytes))
}

func RecordJob(m *AppMetrics, topic string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.JobsTotal.WithLabelValues(topic, status).Inc()
	m.JobProcessDuration.WithLabelValues(topic).Observe(d.Seconds())
}

func RecordGraphSize(m *AppMetrics, company string, nodes, edges int) {
	m.GraphNodesTotal.WithLabelValues(company).Set(float64(nodes))
	m.GraphEdgesTotal.WithLabelValues(company).Set(float64(edges))
}

func RecordDBQuery(m *AppMetrics, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues("postgres", "query").Inc()
	}
}

func RecordHealth(m *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// PipelineMetrics feeds the batch runner's counters into the
// registered instruments.
type PipelineMetrics struct {
	app *AppMetrics
}

var _ pipeline.Metrics = (*PipelineMetrics)(nil)

func NewPipelineMetrics(app *AppMetrics) *PipelineMetrics {
	return &PipelineMetrics{app: app}
}

func (m *PipelineMetrics) CompanyProcessed(seconds float64) {
	m.app.CompaniesTotal.WithLabelValues("ok").Inc()
	m.app.CompanyProcessDuration.WithLabelValues().Observe(seconds)
}

func (m *PipelineMetrics) CompanyFailed() {
	m.app.CompaniesTotal.WithLabelValues("failed").Inc()
}

func (m *PipelineMetrics) CacheHit() {
	m.app.CacheHitsTotal.WithLabelValues().Inc()
}

func (m *PipelineMetrics) RowErrors(n int) {
	m.app.RowErrorsTotal.WithLabelValues().Add(float64(n))
}

func (m *PipelineMetrics) ScoreWarnings(n int) {
	m.app.ScoreWarningsTotal.WithLabelValues().Add(float64(n))
}

func (m *PipelineMetrics) PanelRows(n int) {
	m.app.PanelRowsTotal.WithLabelValues().Add(float64(n))
}
