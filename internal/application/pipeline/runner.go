package pipeline

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// defaultTopN bounds the ranking lists when the caller does not say.
const defaultTopN = 100

// RunnerConfig sizes the batch run.
type RunnerConfig struct {
	// Workers caps concurrent companies; <= 0 uses NumCPU.
	Workers int
	// TopN truncates the ranking lists; <= 0 uses the default.
	TopN int
	// Metrics receives batch-level counters; nil disables them.
	Metrics Metrics
}

// BatchResult is the consolidated output of one batch run.
type BatchResult struct {
	RunID    string                    `json:"run_id"`
	Panel    []panel.CompanyYearRecord `json:"panel"`
	Summary  panel.Summary             `json:"summary"`
	Rankings panel.Rankings            `json:"rankings"`
	Results  []*CompanyResult          `json:"results"`
	Failed   []panel.CompanyFailure    `json:"failed,omitempty"`
	Warnings []engine.Warning          `json:"warnings,omitempty"`
}

// Runner fans companies out over a worker pool and collects the panel
// at the fan-in barrier. Companies never synchronize with each other;
// the assembled output only depends on the inputs, so any worker count
// yields byte-identical batches.
type Runner struct {
	svc     Service
	params  engine.Params
	workers int
	topN    int
	metrics Metrics
	log     logging.Logger
}

// NewRunner creates a batch runner on top of the company service.
func NewRunner(svc Service, params engine.Params, cfg RunnerConfig, log logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Runner{
		svc:     svc,
		params:  params,
		workers: workers,
		topN:    topN,
		metrics: metrics,
		log:     log,
	}
}

// Run processes every input company and assembles the panel. A
// cancelled context stops scheduling further companies; companies
// already finished stay in the result, and the unscheduled rest are
// reported as failed. Per-company failures are collected, never
// propagated as a batch failure.
func (r *Runner) Run(ctx context.Context, inputs []CompanyInput) *BatchResult {
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	log := r.log.WithContext(ctx)
	log.Info("batch started",
		logging.Int("companies", len(inputs)),
		logging.Int("workers", r.workers))

	type outcome struct {
		input CompanyInput
		res   *CompanyResult
		err   error
	}
	var (
		mu      sync.Mutex
		done    []outcome
		skipped []CompanyInput
	)
	grp := new(errgroup.Group)
	grp.SetLimit(r.workers)
	for _, input := range inputs {
		if ctx.Err() != nil {
			skipped = append(skipped, input)
			continue
		}
		input := input
		grp.Go(func() error {
			res, err := r.svc.ProcessCompany(ctx, input)
			mu.Lock()
			done = append(done, outcome{input: input, res: res, err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()

	// Completion order depends on scheduling; merging in name order
	// keeps the assembled batch identical across runs.
	sort.Slice(done, func(i, j int) bool {
		return done[i].input.CompanyName < done[j].input.CompanyName
	})

	agg := panel.NewAggregator(r.params, r.log)
	results := make([]*CompanyResult, 0, len(done))
	for _, o := range done {
		if o.err != nil {
			agg.MarkFailed(o.input.CompanyName, o.err)
			continue
		}
		agg.Merge(panel.CompanyPanel{
			CompanyName:  o.res.CompanyName,
			TotalPatents: o.res.NetworkStats.FocalPatents,
			Records:      o.res.Records,
		})
		results = append(results, o.res)
	}
	for _, input := range skipped {
		agg.MarkFailed(input.CompanyName,
			errors.Wrap(ctx.Err(), errors.ErrCodePanelCompanyFailed, "batch cancelled before scheduling"))
	}

	rows := agg.Panel()
	r.metrics.PanelRows(len(rows))
	out := &BatchResult{
		RunID:    runID,
		Panel:    rows,
		Summary:  agg.Summary(),
		Rankings: agg.Rankings(r.topN),
		Results:  results,
		Failed:   agg.Failed(),
		Warnings: agg.Warnings(),
	}
	log.Info("batch finished",
		logging.Int("panel_rows", len(out.Panel)),
		logging.Int("processed", len(out.Results)),
		logging.Int("failed", len(out.Failed)))
	return out
}
