// Package repositories provides the PostgreSQL-backed implementations
// of the panel domain's repository interfaces.
package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

var _ panel.PanelRepository = (*PanelRepository)(nil)

// panelColumns is the select list shared by every panel query. Its
// order must match scanPanelRecord.
const panelColumns = `company_name, year,
	disruption_index, modified_disruption_index,
	j5_score, i5_score, k5_score, pure_f_score,
	total_citations, matched_citations, network_density, citations_per_patent`

// Ranking metrics name the ORDER BY column of the shared aggregate
// query; only these three values ever reach the query template.
const (
	metricDisruption = "average_di"
	metricPureF      = "average_pure_f"
	metricIntensity  = "citations_per_patent"
)

// PanelRepository is the PostgreSQL implementation of
// panel.PanelRepository. Every method takes a context for cancellation
// and uses parameterised queries exclusively.
type PanelRepository struct {
	pool      *pgxpool.Pool
	logger    logging.Logger
	precision int
}

// PanelRepositoryOption adjusts repository behavior.
type PanelRepositoryOption func(*PanelRepository)

// WithScorePrecision overrides the rounding applied to ranking
// averages computed in the database.
func WithScorePrecision(digits int) PanelRepositoryOption {
	return func(r *PanelRepository) { r.precision = digits }
}

// NewPanelRepository constructs a ready-to-use PanelRepository.
func NewPanelRepository(pool *pgxpool.Pool, log logging.Logger, opts ...PanelRepositoryOption) *PanelRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &PanelRepository{
		pool:      pool,
		logger:    log,
		precision: engine.Default().ScorePrecision,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SavePanels replaces each company's rows and patent total inside a
// single transaction. Deleting before inserting makes a rerun drop
// years the company no longer grants, matching the in-memory merge.
func (r *PanelRepository) SavePanels(ctx context.Context, panels []panel.CompanyPanel) error {
	if len(panels) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("PanelRepository.SavePanels: begin tx", logging.Err(err))
		return errors.Wrap(err, errors.CodeDBConnectionError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows := 0
	for _, p := range panels {
		if err := r.saveCompany(ctx, tx, p); err != nil {
			return err
		}
		rows += len(p.Records)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("PanelRepository.SavePanels: commit", logging.Err(err))
		return errors.Wrap(err, errors.CodeDBConnectionError, "failed to commit transaction")
	}

	r.logger.Debug("panel saved",
		logging.Int("companies", len(panels)),
		logging.Int("rows", rows))
	return nil
}

func (r *PanelRepository) saveCompany(ctx context.Context, tx pgx.Tx, p panel.CompanyPanel) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO company_stats (company_name, total_patents)
		VALUES ($1, $2)
		ON CONFLICT (company_name) DO UPDATE SET
			total_patents = EXCLUDED.total_patents,
			updated_at    = NOW()`,
		p.CompanyName, p.TotalPatents,
	)
	if err != nil {
		r.logger.Error("PanelRepository.saveCompany: stats",
			logging.String(logging.FieldCompany, p.CompanyName), logging.Err(err))
		return errors.Wrap(err, errors.CodeDBQueryError, "failed to upsert company stats")
	}

	_, err = tx.Exec(ctx, `DELETE FROM company_year_panel WHERE company_name = $1`, p.CompanyName)
	if err != nil {
		r.logger.Error("PanelRepository.saveCompany: clear rows",
			logging.String(logging.FieldCompany, p.CompanyName), logging.Err(err))
		return errors.Wrap(err, errors.CodeDBQueryError, "failed to clear company rows")
	}

	for _, rec := range p.Records {
		_, err := tx.Exec(ctx, `
			INSERT INTO company_year_panel (
				company_name, year,
				disruption_index, modified_disruption_index,
				j5_score, i5_score, k5_score, pure_f_score,
				total_citations, matched_citations, network_density, citations_per_patent
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
			)
			ON CONFLICT (company_name, year) DO UPDATE SET
				disruption_index          = EXCLUDED.disruption_index,
				modified_disruption_index = EXCLUDED.modified_disruption_index,
				j5_score                  = EXCLUDED.j5_score,
				i5_score                  = EXCLUDED.i5_score,
				k5_score                  = EXCLUDED.k5_score,
				pure_f_score              = EXCLUDED.pure_f_score,
				total_citations           = EXCLUDED.total_citations,
				matched_citations         = EXCLUDED.matched_citations,
				network_density           = EXCLUDED.network_density,
				citations_per_patent      = EXCLUDED.citations_per_patent,
				updated_at                = NOW()`,
			rec.CompanyName, rec.Year,
			rec.DisruptionIndex, rec.ModifiedDisruptionIndex,
			rec.J5Score, rec.I5Score, rec.K5Score, rec.PureFScore,
			rec.TotalCitations, rec.MatchedCitations, rec.NetworkDensity, rec.CitationsPerPatent,
		)
		if err != nil {
			r.logger.Error("PanelRepository.saveCompany: row",
				logging.String(logging.FieldCompany, rec.CompanyName),
				logging.Int("year", rec.Year), logging.Err(err))
			return errors.Wrap(err, errors.CodeDBQueryError, "failed to insert panel row")
		}
	}
	return nil
}

// GetPanel returns every row ordered by (company_name, year).
func (r *PanelRepository) GetPanel(ctx context.Context) ([]panel.CompanyYearRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+panelColumns+`
		FROM company_year_panel
		ORDER BY company_name ASC, year ASC`)
	if err != nil {
		r.logger.Error("PanelRepository.GetPanel", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to query panel")
	}
	defer rows.Close()

	return scanPanelRecords(rows)
}

// GetCompanyYears returns one company's rows ordered by year. An
// unknown company yields an empty slice, not an error.
func (r *PanelRepository) GetCompanyYears(ctx context.Context, company string) ([]panel.CompanyYearRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+panelColumns+`
		FROM company_year_panel
		WHERE company_name = $1
		ORDER BY year ASC`, company)
	if err != nil {
		r.logger.Error("PanelRepository.GetCompanyYears",
			logging.String(logging.FieldCompany, company), logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to query company rows")
	}
	defer rows.Close()

	return scanPanelRecords(rows)
}

// CompanyTotals returns every company's focal patent total.
func (r *PanelRepository) CompanyTotals(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT company_name, total_patents
		FROM company_stats
		ORDER BY company_name ASC`)
	if err != nil {
		r.logger.Error("PanelRepository.CompanyTotals", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to query company stats")
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var company string
		var patents int
		if err := rows.Scan(&company, &patents); err != nil {
			return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan company stats row")
		}
		totals[company] = patents
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to read company stats rows")
	}
	return totals, nil
}

// TopByDisruption ranks companies by mean disruption index.
func (r *PanelRepository) TopByDisruption(ctx context.Context, limit int) ([]panel.RankedCompany, error) {
	return r.topBy(ctx, metricDisruption, limit)
}

// TopByPureF ranks companies by mean Pure F score.
func (r *PanelRepository) TopByPureF(ctx context.Context, limit int) ([]panel.RankedCompany, error) {
	return r.topBy(ctx, metricPureF, limit)
}

// TopByCitationsPerPatent ranks companies by total citations over
// focal patents, the same denominator the in-memory aggregator uses.
func (r *PanelRepository) TopByCitationsPerPatent(ctx context.Context, limit int) ([]panel.RankedCompany, error) {
	return r.topBy(ctx, metricIntensity, limit)
}

func (r *PanelRepository) topBy(ctx context.Context, metric string, limit int) ([]panel.RankedCompany, error) {
	// Ties break on company name so reruns rank identically.
	q := fmt.Sprintf(`
		SELECT p.company_name,
		       COUNT(*)                AS years,
		       AVG(p.disruption_index) AS average_di,
		       AVG(p.pure_f_score)     AS average_pure_f,
		       SUM(p.total_citations)  AS total_citations,
		       COALESCE(SUM(p.total_citations)::double precision / NULLIF(s.total_patents, 0), 0)
		           AS citations_per_patent
		FROM company_year_panel p
		LEFT JOIN company_stats s ON s.company_name = p.company_name
		GROUP BY p.company_name, s.total_patents
		ORDER BY %s DESC, p.company_name ASC`, metric)

	var args []interface{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("PanelRepository.topBy",
			logging.String("metric", metric), logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to query rankings")
	}
	defer rows.Close()

	var out []panel.RankedCompany
	for rows.Next() {
		var rc panel.RankedCompany
		if err := rows.Scan(
			&rc.CompanyName, &rc.Years,
			&rc.AverageDI, &rc.AveragePureF,
			&rc.TotalCitations, &rc.CitationsPerPatent,
		); err != nil {
			return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan ranking row")
		}
		rc.AverageDI = numeric.Round(rc.AverageDI, r.precision)
		rc.AveragePureF = numeric.Round(rc.AveragePureF, r.precision)
		rc.CitationsPerPatent = numeric.Round(rc.CitationsPerPatent, r.precision)
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to read ranking rows")
	}
	return out, nil
}

func scanPanelRecords(rows pgx.Rows) ([]panel.CompanyYearRecord, error) {
	var out []panel.CompanyYearRecord
	for rows.Next() {
		rec, err := scanPanelRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to read panel rows")
	}
	return out, nil
}

func scanPanelRecord(s rowScanner) (panel.CompanyYearRecord, error) {
	var rec panel.CompanyYearRecord
	err := s.Scan(
		&rec.CompanyName, &rec.Year,
		&rec.DisruptionIndex, &rec.ModifiedDisruptionIndex,
		&rec.J5Score, &rec.I5Score, &rec.K5Score, &rec.PureFScore,
		&rec.TotalCitations, &rec.MatchedCitations, &rec.NetworkDensity, &rec.CitationsPerPatent,
	)
	if err != nil {
		return panel.CompanyYearRecord{}, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan panel row")
	}
	return rec, nil
}
