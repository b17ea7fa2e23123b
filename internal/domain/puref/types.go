// Package puref computes the Pure F citation-matching quality score:
// the product of a temporal factor, a network factor, and a quality
// factor, evaluated at the configured post-grant horizon.
package puref

// Factors holds the multiplicative components of one patent's Pure F
// score. Values are kept at full precision; rounding happens when they
// cross a record boundary.
type Factors struct {
	PatentID  string  `json:"patent_id"`
	GrantYear int     `json:"grant_year"`
	Temporal  float64 `json:"temporal_factor"`
	Network   float64 `json:"network_factor"`
	Quality   float64 `json:"quality_factor"`
	PureF     float64 `json:"pure_f"`
}

// YearSummary is one company-year row of the Pure F artifact.
// PureFScore is the population mean over the year's patents with
// zero-citation patents included at zero; MatchRate is the matched
// share of the year's total forward citations. Both are rounded to the
// configured score precision.
type YearSummary struct {
	CompanyName      string  `json:"company_name"`
	Year             int     `json:"year"`
	TotalPatents     int     `json:"total_patents"`
	TotalCitations   int     `json:"total_citations"`
	MatchedCitations int     `json:"matched_citations"`
	PureFScore       float64 `json:"pure_f_score"`
	MatchRate        float64 `json:"match_rate"`
	PerfectMatches   int     `json:"perfect_matches"`
	NoMatches        int     `json:"no_matches"`
}
