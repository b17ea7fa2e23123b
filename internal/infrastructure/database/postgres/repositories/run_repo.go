package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

var _ panel.RunRepository = (*RunRepository)(nil)

// RunRepository is the PostgreSQL implementation of panel.RunRepository.
type RunRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRunRepository constructs a ready-to-use RunRepository.
func NewRunRepository(pool *pgxpool.Pool, log logging.Logger) *RunRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunRepository{pool: pool, logger: log}
}

// RecordRun upserts the run row. A zero FinishedAt stores NULL so an
// in-flight run is distinguishable from one that finished instantly.
func (r *RunRepository) RecordRun(ctx context.Context, run panel.RunRecord) error {
	if run.RunID == "" {
		return errors.New(errors.ErrCodeInvalidParam, "run id is required")
	}

	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO panel_runs (
			run_id, started_at, finished_at, companies_total, companies_failed
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			started_at       = EXCLUDED.started_at,
			finished_at      = EXCLUDED.finished_at,
			companies_total  = EXCLUDED.companies_total,
			companies_failed = EXCLUDED.companies_failed`,
		run.RunID, run.StartedAt, finished, run.CompaniesTotal, run.CompaniesFailed,
	)
	if err != nil {
		r.logger.Error("RunRepository.RecordRun",
			logging.String(logging.FieldRunID, run.RunID), logging.Err(err))
		return errors.Wrap(err, errors.CodeDBQueryError, "failed to record run")
	}
	return nil
}

// GetRun returns one run row or ErrCodePanelRunNotFound.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (panel.RunRecord, error) {
	rec, err := scanRun(r.pool.QueryRow(ctx, `
		SELECT run_id, started_at, finished_at, companies_total, companies_failed
		FROM panel_runs
		WHERE run_id = $1`, runID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return panel.RunRecord{}, errors.New(errors.ErrCodePanelRunNotFound,
				"run "+runID+" not found")
		}
		r.logger.Error("RunRepository.GetRun",
			logging.String(logging.FieldRunID, runID), logging.Err(err))
		return panel.RunRecord{}, errors.Wrap(err, errors.CodeDBQueryError, "failed to load run")
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first. Ties on
// started_at break on run ID for stable output.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]panel.RunRecord, error) {
	q := `
		SELECT run_id, started_at, finished_at, companies_total, companies_failed
		FROM panel_runs
		ORDER BY started_at DESC, run_id ASC`

	var args []interface{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("RunRepository.ListRuns", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to query runs")
	}
	defer rows.Close()

	var out []panel.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to scan run row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "failed to read run rows")
	}
	return out, nil
}

// scanRun returns the raw scan error so callers can map pgx.ErrNoRows.
func scanRun(s rowScanner) (panel.RunRecord, error) {
	var (
		rec      panel.RunRecord
		finished *time.Time
	)
	if err := s.Scan(&rec.RunID, &rec.StartedAt, &finished,
		&rec.CompaniesTotal, &rec.CompaniesFailed); err != nil {
		return panel.RunRecord{}, err
	}
	if finished != nil {
		rec.FinishedAt = *finished
	}
	return rec, nil
}
