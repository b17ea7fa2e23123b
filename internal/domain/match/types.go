// Package match classifies forward citations against the focal patent's
// reference list and aggregates the results into company-year flag
// counts.
package match

import (
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
)

// PatentMatch is the per-patent classification result. TotalForward is
// the reconciled forward count, so Matched <= TotalForward always holds.
type PatentMatch struct {
	PatentID     string         `json:"patent_id"`
	GrantYear    int            `json:"grant_year"`
	TotalForward int            `json:"total_forward"`
	Matched      int            `json:"matched"`
	MatchRate    float64        `json:"match_rate"`
	Bucket       engine.Quality `json:"bucket"`
}

// Perfect reports whether every declared citer was matched. Patents
// without forward citations are never perfect.
func (m PatentMatch) Perfect() bool {
	return m.TotalForward > 0 && m.Matched == m.TotalForward
}

// NoMatch reports whether no citer was matched, which includes patents
// with no forward citations at all.
func (m PatentMatch) NoMatch() bool {
	return m.Matched == 0
}

// FlagCount is one company-year row of the match-quality artifact.
// AverageMatchRate and WeightedQuality are rounded to the configured
// score precision; a FlagCount is immutable once built.
type FlagCount struct {
	CompanyName           string  `json:"company_name"`
	Year                  int     `json:"year"`
	TotalPatents          int     `json:"total_patents"`
	TotalForwardCitations int     `json:"total_forward_citations"`
	MatchedCitations      int     `json:"matched_citations"`
	AverageMatchRate      float64 `json:"average_match_rate"`
	PerfectMatchPatents   int     `json:"perfect_match_patents"`
	NoMatchPatents        int     `json:"no_match_patents"`
	High                  int     `json:"high"`
	Medium                int     `json:"medium"`
	Low                   int     `json:"low"`
	Poor                  int     `json:"poor"`
	WeightedQuality       float64 `json:"weighted_quality"`
}
