// Package panel assembles per-company yearly metric rows into the
// cross-company longitudinal panel and derives its summary statistics
// and rankings. The panel is the batch's end product: one immutable
// record per (company, grant year), sparse where a company granted
// nothing.
package panel

import (
	"fmt"
	"sort"

	"github.com/turtacn/CiteDisrupt/internal/domain/disruption"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/domain/puref"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Key identifies a panel row.
type Key struct {
	CompanyName string
	Year        int
}

// CompanyYearRecord is one panel row. All float fields arrive rounded
// to the configured score precision; the record is never mutated after
// construction.
type CompanyYearRecord struct {
	CompanyName             string  `json:"company_name"`
	Year                    int     `json:"year"`
	DisruptionIndex         float64 `json:"disruption_index"`
	ModifiedDisruptionIndex float64 `json:"modified_disruption_index"`
	J5Score                 float64 `json:"j5_score"`
	I5Score                 float64 `json:"i5_score"`
	K5Score                 float64 `json:"k5_score"`
	PureFScore              float64 `json:"pure_f_score"`
	TotalCitations          int     `json:"total_citations"`
	MatchedCitations        int     `json:"matched_citations"`
	NetworkDensity          float64 `json:"network_density"`
	CitationsPerPatent      float64 `json:"citations_per_patent"`
}

// Key returns the row's panel key.
func (r CompanyYearRecord) Key() Key {
	return Key{CompanyName: r.CompanyName, Year: r.Year}
}

const boundsEps = 1e-9

// validate reports range violations as warnings. Values are kept as
// computed; a questionable row still enters the panel.
func (r CompanyYearRecord) validate() []engine.Warning {
	var ws []engine.Warning
	warn := func(field string, value float64) {
		ws = append(ws, engine.Warning{
			Code:    errors.ErrCodePanelRecordInvalid,
			Message: fmt.Sprintf("%s/%d: %s out of range", r.CompanyName, r.Year, field),
			Value:   value,
		})
	}
	if !numeric.InRange(r.DisruptionIndex, 0, 1, boundsEps) {
		warn("disruption_index", r.DisruptionIndex)
	}
	if !numeric.InRange(r.ModifiedDisruptionIndex, 0, 4, boundsEps) {
		warn("modified_disruption_index", r.ModifiedDisruptionIndex)
	}
	if !numeric.InRange(r.I5Score, 0, 1, boundsEps) {
		warn("i5_score", r.I5Score)
	}
	// j5 and k5 legitimately exceed 1 in dense corpora; only negatives
	// are anomalous here.
	if r.J5Score < -boundsEps {
		warn("j5_score", r.J5Score)
	}
	if r.K5Score < -boundsEps {
		warn("k5_score", r.K5Score)
	}
	if r.PureFScore < -boundsEps {
		warn("pure_f_score", r.PureFScore)
	}
	if !numeric.InRange(r.NetworkDensity, 0, 1, boundsEps) {
		warn("network_density", r.NetworkDensity)
	}
	if r.TotalCitations < 0 || r.MatchedCitations < 0 {
		warn("citation_counts", float64(r.MatchedCitations))
	} else if r.MatchedCitations > r.TotalCitations {
		warn("matched_citations", float64(r.MatchedCitations))
	}
	return ws
}

// BuildRecords pairs a company's disruption rows with its Pure F rows
// by grant year and emits the panel records, ordered by year. The two
// inputs derive from the same graph, so their year sets coincide; a
// year absent from the Pure F side simply carries a zero score.
func BuildRecords(disYears []disruption.YearMetrics, pureYears []puref.YearSummary) []CompanyYearRecord {
	pureByYear := make(map[int]puref.YearSummary, len(pureYears))
	for _, py := range pureYears {
		pureByYear[py.Year] = py
	}

	out := make([]CompanyYearRecord, 0, len(disYears))
	for _, dy := range disYears {
		out = append(out, CompanyYearRecord{
			CompanyName:             dy.CompanyName,
			Year:                    dy.Year,
			DisruptionIndex:         dy.DI,
			ModifiedDisruptionIndex: dy.MDI,
			J5Score:                 dy.J5,
			I5Score:                 dy.I5,
			K5Score:                 dy.K5,
			PureFScore:              pureByYear[dy.Year].PureFScore,
			TotalCitations:          dy.Metrics.TotalCitations,
			MatchedCitations:        dy.Metrics.MatchedCitations,
			NetworkDensity:          dy.Metrics.NetworkDensity,
			CitationsPerPatent:      dy.Metrics.CitationsPerPatent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
