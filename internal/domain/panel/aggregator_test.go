package panel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

func row(company string, year int, di, pureF float64, cites, matched int) CompanyYearRecord {
	return CompanyYearRecord{
		CompanyName:      company,
		Year:             year,
		DisruptionIndex:  di,
		PureFScore:       pureF,
		TotalCitations:   cites,
		MatchedCitations: matched,
	}
}

func acmePanel() CompanyPanel {
	return CompanyPanel{
		CompanyName:  "acme",
		TotalPatents: 3,
		Records: []CompanyYearRecord{
			row("acme", 2000, 0.6, 0.4, 10, 5),
			row("acme", 2002, 0.3, 0.2, 2, 1),
		},
	}
}

func betaPanel() CompanyPanel {
	return CompanyPanel{
		CompanyName:  "beta",
		TotalPatents: 2,
		Records: []CompanyYearRecord{
			row("beta", 2000, 0.9, 0.7, 8, 8),
			row("beta", 2001, 0.1, 0.1, 0, 0),
		},
	}
}

func newTestAggregator() *Aggregator {
	return NewAggregator(engine.Default(), nil)
}

func TestMerge_PanelOrdered(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(betaPanel(), acmePanel())

	rows := a.Panel()
	require.Len(t, rows, 4)
	keys := make([]Key, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []Key{
		{CompanyName: "acme", Year: 2000},
		{CompanyName: "acme", Year: 2002},
		{CompanyName: "beta", Year: 2000},
		{CompanyName: "beta", Year: 2001},
	}, keys)
	assert.Empty(t, a.Warnings())
}

func TestMerge_RemergeIsIdempotent(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(acmePanel(), betaPanel())
	panel := a.Panel()
	summary := a.Summary()

	a.Merge(acmePanel())
	assert.Equal(t, panel, a.Panel())
	assert.Equal(t, summary, a.Summary())
}

func TestMerge_ReplacesCompanyRows(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(acmePanel())

	a.Merge(CompanyPanel{
		CompanyName:  "acme",
		TotalPatents: 1,
		Records:      []CompanyYearRecord{row("acme", 2005, 0.5, 0.5, 4, 2)},
	})

	rows := a.Panel()
	require.Len(t, rows, 1)
	assert.Equal(t, 2005, rows[0].Year)
	assert.Equal(t, 1, a.Summary().TotalPatents)
}

func TestMerge_ValidationWarningKeepsRow(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	bad := row("acme", 2000, 1.5, 0.4, 5, 2)
	a.Merge(CompanyPanel{CompanyName: "acme", TotalPatents: 1, Records: []CompanyYearRecord{bad}})

	rows := a.Panel()
	require.Len(t, rows, 1)
	assert.Equal(t, 1.5, rows[0].DisruptionIndex)

	ws := a.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, errors.ErrCodePanelRecordInvalid, ws[0].Code)
	assert.Equal(t, 1.5, ws[0].Value)
}

func TestMerge_ConflictingRecordSkipped(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(CompanyPanel{
		CompanyName:  "acme",
		TotalPatents: 2,
		Records: []CompanyYearRecord{
			row("acme", 2000, 0.5, 0.5, 1, 1),
			row("zeta", 2000, 0.5, 0.5, 1, 1),
		},
	})

	rows := a.Panel()
	require.Len(t, rows, 1)
	assert.Equal(t, "acme", rows[0].CompanyName)

	ws := a.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, errors.ErrCodePanelMergeConflict, ws[0].Code)
}

func TestMerge_UnnamedBatchSkipped(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(CompanyPanel{Records: []CompanyYearRecord{row("", 2000, 0.5, 0.5, 1, 1)}})

	assert.Empty(t, a.Panel())
	require.Len(t, a.Warnings(), 1)
	assert.Equal(t, errors.ErrCodePanelRecordInvalid, a.Warnings()[0].Code)
}

func TestMarkFailed_OmitsCompanyOnly(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(acmePanel(), betaPanel())

	a.MarkFailed("beta", errors.New(errors.ErrCodeRowFieldMissing, "grant_date column absent"))

	rows := a.Panel()
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "acme", r.CompanyName)
	}

	failed := a.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "beta", failed[0].CompanyName)
	assert.Contains(t, failed[0].Reason, "grant_date")

	s := a.Summary()
	assert.Equal(t, 1, s.TotalCompanies)
	assert.Equal(t, 3, s.TotalPatents)
}

func TestSummary_Statistics(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(acmePanel(), betaPanel())

	s := a.Summary()
	assert.Equal(t, 2, s.TotalCompanies)
	assert.Equal(t, 5, s.TotalPatents)
	assert.Equal(t, 20, s.TotalCitations)
	assert.InDelta(t, 0.475, s.AverageDI, 1e-9)
	assert.InDelta(t, 0.35, s.AveragePureF, 1e-9)
	// Sample deviation of {0.6, 0.3, 0.9, 0.1} about 0.475.
	assert.InDelta(t, 0.35, s.StdDevDI, 1e-9)
	// Empirical quantiles of {0.1, 0.3, 0.6, 0.9} and {0.1, 0.2, 0.4, 0.7}.
	assert.InDelta(t, 0.3, s.MedianDI, 1e-9)
	assert.InDelta(t, 0.2, s.MedianPureF, 1e-9)
}

func TestSummary_EmptyPanel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Summary{}, newTestAggregator().Summary())
}

func TestSummary_SingleRowHasZeroStdDev(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(CompanyPanel{
		CompanyName:  "solo",
		TotalPatents: 1,
		Records:      []CompanyYearRecord{row("solo", 2000, 0.4, 0.3, 2, 1)},
	})

	s := a.Summary()
	assert.Equal(t, 0.0, s.StdDevDI)
	assert.Equal(t, 0.4, s.MedianDI)
	assert.Equal(t, 0.4, s.AverageDI)
}

func TestRankings(t *testing.T) {
	t.Parallel()
	a := newTestAggregator()
	a.Merge(acmePanel(), betaPanel())

	r := a.Rankings(0)
	require.Len(t, r.ByDisruption, 2)
	assert.Equal(t, "beta", r.ByDisruption[0].CompanyName)
	assert.InDelta(t, 0.5, r.ByDisruption[0].AverageDI, 1e-9)
	assert.Equal(t, "acme", r.ByDisruption[1].CompanyName)
	assert.InDelta(t, 0.45, r.ByDisruption[1].AverageDI, 1e-9)

	assert.Equal(t, "beta", r.ByPureF[0].CompanyName)
	assert.InDelta(t, 0.4, r.ByPureF[0].AveragePureF, 1e-9)

	// Both firms sit at 4.0 citations per patent; the tie breaks on name.
	require.Len(t, r.ByCitationsPerPatent, 2)
	assert.Equal(t, "acme", r.ByCitationsPerPatent[0].CompanyName)
	assert.InDelta(t, 4.0, r.ByCitationsPerPatent[0].CitationsPerPatent, 1e-9)
	assert.Equal(t, "beta", r.ByCitationsPerPatent[1].CompanyName)

	top1 := a.Rankings(1)
	require.Len(t, top1.ByDisruption, 1)
	assert.Equal(t, "beta", top1.ByDisruption[0].CompanyName)
	require.Len(t, top1.ByCitationsPerPatent, 1)
	assert.Equal(t, "acme", top1.ByCitationsPerPatent[0].CompanyName)
}

func TestPanel_DeterministicAcrossMergeOrder(t *testing.T) {
	t.Parallel()
	first := newTestAggregator()
	first.Merge(acmePanel(), betaPanel())
	second := newTestAggregator()
	second.Merge(betaPanel())
	second.Merge(acmePanel())

	a, err := json.Marshal(first.Panel())
	require.NoError(t, err)
	b, err := json.Marshal(second.Panel())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, first.Summary(), second.Summary())
	assert.Equal(t, first.Rankings(0), second.Rankings(0))
}
