// Package export serializes batch output into the published artifact
// shapes and hands the bytes to an artifact store. The computation
// core stays free of file and object I/O; this is the only layer that
// knows what the artifacts look like on disk.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
	"github.com/turtacn/CiteDisrupt/internal/domain/disruption"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/domain/puref"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeJSON = "application/json"
)

// ArtifactStore receives finished artifact bytes. Implemented by the
// MinIO repository and by the CLI's local directory store.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// Artifact describes one stored object.
type Artifact struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

// Manifest lists what one batch export produced.
type Manifest struct {
	RunID     string     `json:"run_id"`
	Artifacts []Artifact `json:"artifacts"`
}

// Service writes batch artifacts.
type Service interface {
	ExportBatch(ctx context.Context, batch *pipeline.BatchResult) (*Manifest, error)
}

type serviceImpl struct {
	store ArtifactStore
	log   logging.Logger
}

// NewService creates the export service on top of an artifact store.
func NewService(store ArtifactStore, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &serviceImpl{store: store, log: log}
}

// ExportBatch writes the panel CSV, the summary and ranking JSON and
// the two per-company year summaries under runs/<run_id>/. The first
// storage failure aborts the export.
func (s *serviceImpl) ExportBatch(ctx context.Context, batch *pipeline.BatchResult) (*Manifest, error) {
	if batch == nil {
		return nil, errors.New(errors.ErrCodePanelExportFailed, "nil batch")
	}
	m := &Manifest{RunID: batch.RunID}

	panelCSV, err := PanelCSV(batch.Panel)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, m, s.key(batch, "panel.csv"), panelCSV, contentTypeCSV); err != nil {
		return nil, err
	}

	summaryJSON, err := marshalArtifact(batch.Summary)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, m, s.key(batch, "summary.json"), summaryJSON, contentTypeJSON); err != nil {
		return nil, err
	}

	rankingsJSON, err := marshalArtifact(batch.Rankings)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, m, s.key(batch, "rankings.json"), rankingsJSON, contentTypeJSON); err != nil {
		return nil, err
	}

	for _, res := range batch.Results {
		pureJSON, err := PureFSummaryJSON(res.PureFYears)
		if err != nil {
			return nil, err
		}
		key := s.key(batch, fmt.Sprintf("companies/%s/pure_f.json", res.CompanyName))
		if err := s.save(ctx, m, key, pureJSON, contentTypeJSON); err != nil {
			return nil, err
		}

		diJSON, err := DISummaryJSON(res.DisruptionYears)
		if err != nil {
			return nil, err
		}
		key = s.key(batch, fmt.Sprintf("companies/%s/disruption.json", res.CompanyName))
		if err := s.save(ctx, m, key, diJSON, contentTypeJSON); err != nil {
			return nil, err
		}
	}

	s.log.Info("batch exported",
		logging.String(logging.FieldRunID, batch.RunID),
		logging.Int("artifacts", len(m.Artifacts)))
	return m, nil
}

func (s *serviceImpl) key(batch *pipeline.BatchResult, name string) string {
	return fmt.Sprintf("runs/%s/%s", batch.RunID, name)
}

func (s *serviceImpl) save(ctx context.Context, m *Manifest, key string, data []byte, contentType string) error {
	if err := s.store.Save(ctx, key, data, contentType); err != nil {
		return errors.Wrap(err, errors.ErrCodePanelExportFailed, "artifact write failed: "+key)
	}
	m.Artifacts = append(m.Artifacts, Artifact{Key: key, ContentType: contentType, Bytes: len(data)})
	return nil
}

// panelHeader is the published column order of the panel CSV.
var panelHeader = []string{
	"company_name", "year",
	"disruption_index", "modified_disruption_index",
	"j5_score", "i5_score", "k5_score", "pure_f_score",
	"total_citations", "matched_citations",
	"network_density", "citations_per_patent",
}

// PanelCSV renders the panel rows in their stored order.
func PanelCSV(records []panel.CompanyYearRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(panelHeader); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePanelExportFailed, "panel csv header")
	}
	for _, r := range records {
		row := []string{
			r.CompanyName,
			strconv.Itoa(r.Year),
			formatScore(r.DisruptionIndex),
			formatScore(r.ModifiedDisruptionIndex),
			formatScore(r.J5Score),
			formatScore(r.I5Score),
			formatScore(r.K5Score),
			formatScore(r.PureFScore),
			strconv.Itoa(r.TotalCitations),
			strconv.Itoa(r.MatchedCitations),
			formatScore(r.NetworkDensity),
			formatScore(r.CitationsPerPatent),
		}
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePanelExportFailed, "panel csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePanelExportFailed, "panel csv flush")
	}
	return buf.Bytes(), nil
}

type pureFYearArtifact struct {
	TotalCitations   int     `json:"total_citations"`
	MatchedCitations int     `json:"matched_citations"`
	PureFScore       float64 `json:"pure_f_score"`
	MatchRate        float64 `json:"match_rate"`
	PerfectMatches   int     `json:"perfect_matches"`
	NoMatches        int     `json:"no_matches"`
	TotalPatents     int     `json:"total_patents"`
}

// PureFSummaryJSON renders a company's Pure F years as a year-keyed
// object.
func PureFSummaryJSON(years []puref.YearSummary) ([]byte, error) {
	out := make(map[int]pureFYearArtifact, len(years))
	for _, y := range years {
		out[y.Year] = pureFYearArtifact{
			TotalCitations:   y.TotalCitations,
			MatchedCitations: y.MatchedCitations,
			PureFScore:       y.PureFScore,
			MatchRate:        y.MatchRate,
			PerfectMatches:   y.PerfectMatches,
			NoMatches:        y.NoMatches,
			TotalPatents:     y.TotalPatents,
		}
	}
	return marshalArtifact(out)
}

type diComponentsArtifact struct {
	J5 float64 `json:"j5"`
	I5 float64 `json:"i5"`
	K5 float64 `json:"k5"`
}

type diMetricsArtifact struct {
	TotalPatents              int     `json:"total_patents"`
	TotalCitations            int     `json:"total_citations"`
	CitationsPerPatent        float64 `json:"citations_per_patent"`
	MatchedCitationsPerPatent float64 `json:"matched_citations_per_patent"`
}

type diYearArtifact struct {
	DisruptionIndex         float64                        `json:"disruption_index"`
	ModifiedDisruptionIndex float64                        `json:"modified_disruption_index"`
	Components              diComponentsArtifact           `json:"components"`
	Metrics                 diMetricsArtifact              `json:"metrics"`
	QualityDistribution     disruption.QualityDistribution `json:"quality_distribution"`
}

// DISummaryJSON renders a company's disruption years as a year-keyed
// object.
func DISummaryJSON(years []disruption.YearMetrics) ([]byte, error) {
	out := make(map[int]diYearArtifact, len(years))
	for _, y := range years {
		out[y.Year] = diYearArtifact{
			DisruptionIndex:         y.DI,
			ModifiedDisruptionIndex: y.MDI,
			Components:              diComponentsArtifact{J5: y.J5, I5: y.I5, K5: y.K5},
			Metrics: diMetricsArtifact{
				TotalPatents:              y.Metrics.TotalPatents,
				TotalCitations:            y.Metrics.TotalCitations,
				CitationsPerPatent:        y.Metrics.CitationsPerPatent,
				MatchedCitationsPerPatent: y.Metrics.MatchedCitationsPerPatent,
			},
			QualityDistribution: y.Quality,
		}
	}
	return marshalArtifact(out)
}

func marshalArtifact(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePanelExportFailed, "artifact marshal")
	}
	return data, nil
}

// formatScore prints a score without trailing zeros; values are
// already rounded to the configured precision.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
