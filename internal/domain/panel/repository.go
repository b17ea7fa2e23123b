package panel

import (
	"context"
	"time"
)

// PanelRepository persists panel rows and answers the ranking queries
// served from storage rather than from an in-memory batch.
type PanelRepository interface {
	// SavePanels replaces each company's rows and patent total with
	// the batch contents. Saving the same batch twice leaves the
	// tables unchanged; a rerun drops years the company no longer
	// grants, exactly as the in-memory merge does.
	SavePanels(ctx context.Context, panels []CompanyPanel) error

	// GetPanel returns every row ordered by (company_name, year).
	GetPanel(ctx context.Context) ([]CompanyYearRecord, error)

	// GetCompanyYears returns one company's rows ordered by year.
	GetCompanyYears(ctx context.Context, company string) ([]CompanyYearRecord, error)

	// TopByDisruption ranks companies by mean disruption index.
	TopByDisruption(ctx context.Context, limit int) ([]RankedCompany, error)

	// TopByPureF ranks companies by mean Pure F score.
	TopByPureF(ctx context.Context, limit int) ([]RankedCompany, error)

	// TopByCitationsPerPatent ranks companies by citation intensity.
	TopByCitationsPerPatent(ctx context.Context, limit int) ([]RankedCompany, error)

	// CompanyTotals returns each company's focal patent total, the
	// denominator citation-intensity figures divide by.
	CompanyTotals(ctx context.Context) (map[string]int, error)
}

// RunRecord is one batch run's metadata line.
type RunRecord struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	CompaniesTotal  int       `json:"companies_total"`
	CompaniesFailed int       `json:"companies_failed"`
}

// RunRepository records batch runs for later inspection.
type RunRepository interface {
	// RecordRun upserts a run's metadata keyed by run ID.
	RecordRun(ctx context.Context, run RunRecord) error

	// GetRun returns one run or ErrCodePanelRunNotFound.
	GetRun(ctx context.Context, runID string) (RunRecord, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
