// Package pipeline runs the per-company computation batch: graph
// construction, match classification, disruption and Pure F scoring,
// and the fan-in into the cross-company panel. Per-company work is a
// pure function of that company's rows, so results are identical
// whatever the worker count or schedule.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/disruption"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/match"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/domain/puref"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
	"github.com/turtacn/CiteDisrupt/pkg/types/common"
)

// cacheKeyPrefix namespaces result-cache entries in Redis.
const cacheKeyPrefix = "citedisrupt:result"

// defaultCacheTTL bounds how long a cached company result stays valid.
const defaultCacheTTL = 24 * time.Hour

// CompanyInput is one company's parsed citation table plus the row
// diagnostics collected while reading it.
type CompanyInput struct {
	CompanyName string                  `json:"company_name"`
	Records     []citation.PatentRecord `json:"records"`
	RowErrors   []citation.RowError     `json:"row_errors,omitempty"`
}

// CompanyResult is everything the batch derives from one company.
type CompanyResult struct {
	CompanyName     string                    `json:"company_name"`
	FlagCounts      []match.FlagCount         `json:"flag_counts"`
	PureFYears      []puref.YearSummary       `json:"pure_f_years"`
	DisruptionYears []disruption.YearMetrics  `json:"disruption_years"`
	Records         []panel.CompanyYearRecord `json:"records"`
	NetworkStats    citation.NetworkStats     `json:"network_stats"`
	CDMetrics       disruption.CDMetrics      `json:"cd_metrics"`
	Warnings        []engine.Warning          `json:"warnings,omitempty"`
	RowErrors       []citation.RowError       `json:"row_errors,omitempty"`
}

// Service computes company results.
type Service interface {
	ProcessCompany(ctx context.Context, input CompanyInput) (*CompanyResult, error)
}

// ServiceConfig wires the optional collaborators. Nil cache, events or
// metrics simply disable that concern.
type ServiceConfig struct {
	Params   engine.Params
	Cache    ResultCache
	Events   EventPublisher
	Metrics  Metrics
	CacheTTL time.Duration
}

type serviceImpl struct {
	params   engine.Params
	cache    ResultCache
	events   EventPublisher
	metrics  Metrics
	cacheTTL time.Duration
	log      logging.Logger
}

// NewService creates the company computation service.
func NewService(cfg ServiceConfig, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &serviceImpl{
		params:   cfg.Params,
		cache:    cfg.Cache,
		events:   cfg.Events,
		metrics:  metrics,
		cacheTTL: ttl,
		log:      log,
	}
}

// ProcessCompany runs the full computation for one company. A cached
// result for the identical input is returned as-is; a failure omits
// the company and leaves every other company untouched.
func (s *serviceImpl) ProcessCompany(ctx context.Context, input CompanyInput) (*CompanyResult, error) {
	start := time.Now()
	log := s.log.WithContext(ctx)

	if input.CompanyName == "" {
		err := errors.New(errors.ErrCodePanelCompanyFailed, "company name required")
		s.reportFailure(ctx, input.CompanyName, err)
		return nil, err
	}

	key := s.cacheKey(input)
	if s.cache != nil && key != "" {
		var cached CompanyResult
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached.CompanyName == input.CompanyName {
			s.metrics.CacheHit()
			log.Info("company result served from cache",
				logging.String(logging.FieldCompany, input.CompanyName))
			s.publishCompleted(ctx, &cached, true, time.Since(start))
			return &cached, nil
		}
	}

	res, err := s.compute(input)
	if err != nil {
		s.reportFailure(ctx, input.CompanyName, err)
		return nil, err
	}

	if s.cache != nil && key != "" {
		if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
			log.Warn("result cache write failed",
				logging.String(logging.FieldCompany, input.CompanyName),
				logging.Err(err))
		}
	}

	elapsed := time.Since(start)
	s.metrics.CompanyProcessed(elapsed.Seconds())
	s.metrics.RowErrors(len(res.RowErrors))
	s.metrics.ScoreWarnings(len(res.Warnings))
	log.Info("company processed",
		logging.String(logging.FieldCompany, input.CompanyName),
		logging.Int("patents", res.NetworkStats.FocalPatents),
		logging.Int("years", len(res.Records)),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("elapsed", elapsed))
	s.publishCompleted(ctx, res, false, elapsed)
	return res, nil
}

func (s *serviceImpl) compute(input CompanyInput) (*CompanyResult, error) {
	g, err := citation.NewBuilder(s.params, s.log).Build(input.CompanyName, input.Records)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePanelCompanyFailed, "citation graph build failed")
	}

	classifier := match.NewClassifier(g, s.log)
	matches := classifier.ClassifyAll()

	disCalc := disruption.NewCalculator(g, s.log)
	disYears := disCalc.YearMetrics(matches)

	pureCalc := puref.NewCalculator(g, disCalc, s.log)
	pureYears := pureCalc.YearSummaries(matches)

	warnings := append(disCalc.Warnings(), pureCalc.Warnings()...)

	return &CompanyResult{
		CompanyName:     input.CompanyName,
		FlagCounts:      classifier.FlagCounts(),
		PureFYears:      pureYears,
		DisruptionYears: disYears,
		Records:         panel.BuildRecords(disYears, pureYears),
		NetworkStats:    g.Stats(),
		CDMetrics:       disCalc.CDMetrics(),
		Warnings:        warnings,
		RowErrors:       input.RowErrors,
	}, nil
}

// cacheKey fingerprints the company's rows together with the engine
// parameters, so a parameter change never serves stale scores.
func (s *serviceImpl) cacheKey(input CompanyInput) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(s.params); err != nil {
		return ""
	}
	if err := enc.Encode(input.Records); err != nil {
		return ""
	}
	return fmt.Sprintf("%s:%s:%x", cacheKeyPrefix, input.CompanyName, h.Sum(nil))
}

func (s *serviceImpl) publishCompleted(ctx context.Context, res *CompanyResult, fromCache bool, elapsed time.Duration) {
	if s.events == nil {
		return
	}
	evt := CompanyCompletedEvent{
		BaseEvent:   common.NewBaseEvent(res.CompanyName),
		RunID:       logging.RunIDFromContext(ctx),
		CompanyName: res.CompanyName,
		Years:       len(res.Records),
		Patents:     res.NetworkStats.FocalPatents,
		RowErrors:   len(res.RowErrors),
		Warnings:    len(res.Warnings),
		FromCache:   fromCache,
		Seconds:     elapsed.Seconds(),
	}
	if err := s.events.PublishCompanyCompleted(ctx, evt); err != nil {
		s.log.Warn("company completed event not published",
			logging.String(logging.FieldCompany, res.CompanyName),
			logging.Err(err))
	}
}

func (s *serviceImpl) reportFailure(ctx context.Context, company string, cause error) {
	s.metrics.CompanyFailed()
	s.log.WithContext(ctx).Error("company processing failed",
		logging.String(logging.FieldCompany, company),
		logging.Err(cause))
	if s.events == nil {
		return
	}
	evt := CompanyFailedEvent{
		BaseEvent:   common.NewBaseEvent(company),
		RunID:       logging.RunIDFromContext(ctx),
		CompanyName: company,
		Code:        errors.GetCode(cause).String(),
		Reason:      cause.Error(),
	}
	if err := s.events.PublishCompanyFailed(ctx, evt); err != nil {
		s.log.Warn("company failed event not published",
			logging.String(logging.FieldCompany, company),
			logging.Err(err))
	}
}
