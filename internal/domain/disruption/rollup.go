package disruption

import (
	"sort"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/match"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
)

// QualityDistribution counts the year's patents per match-quality
// bucket.
type QualityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Poor   int `json:"poor"`
}

// Metrics carries the citation volume figures attached to a company-year
// disruption row.
type Metrics struct {
	TotalPatents              int     `json:"total_patents"`
	TotalCitations            int     `json:"total_citations"`
	MatchedCitations          int     `json:"matched_citations"`
	CitationsPerPatent        float64 `json:"citations_per_patent"`
	MatchedCitationsPerPatent float64 `json:"matched_citations_per_patent"`
	NetworkDensity            float64 `json:"network_density"`
}

// YearMetrics is one company-year disruption row: population means of
// the patent scores granted that year, zero-citation patents included
// at zero. All float fields are rounded to the configured score
// precision.
type YearMetrics struct {
	CompanyName string              `json:"company_name"`
	Year        int                 `json:"year"`
	DI          float64             `json:"disruption_index"`
	MDI         float64             `json:"modified_disruption_index"`
	J5          float64             `json:"j5_score"`
	I5          float64             `json:"i5_score"`
	K5          float64             `json:"k5_score"`
	Metrics     Metrics             `json:"metrics"`
	Quality     QualityDistribution `json:"quality"`
}

// YearMetrics rolls the per-patent scores up into one row per grant
// year, ordered by year. The match results supply citation totals and
// the quality distribution; patents missing from the match set only
// contribute their score means.
func (c *Calculator) YearMetrics(matches []match.PatentMatch) []YearMetrics {
	scores := c.ScoreAll()
	matchByID := make(map[string]match.PatentMatch, len(matches))
	for _, m := range matches {
		matchByID[m.PatentID] = m
	}

	byYear := make(map[int][]PatentScore)
	for _, s := range scores {
		byYear[s.GrantYear] = append(byYear[s.GrantYear], s)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	prec := c.params.ScorePrecision
	out := make([]YearMetrics, 0, len(years))
	for _, year := range years {
		group := byYear[year]
		ym := YearMetrics{
			CompanyName: c.graph.Company(),
			Year:        year,
		}
		var di, mdi, j5, i5, k5, density float64
		for _, s := range group {
			di += s.DI
			mdi += s.MDI
			j5 += s.J5
			i5 += s.I5
			k5 += s.K5
			density += c.graph.LocalDensity(s.PatentID)

			ym.Metrics.TotalPatents++
			if m, ok := matchByID[s.PatentID]; ok {
				ym.Metrics.TotalCitations += m.TotalForward
				ym.Metrics.MatchedCitations += m.Matched
				switch m.Bucket {
				case engine.QualityHigh:
					ym.Quality.High++
				case engine.QualityMedium:
					ym.Quality.Medium++
				case engine.QualityLow:
					ym.Quality.Low++
				default:
					ym.Quality.Poor++
				}
			}
		}
		n := float64(ym.Metrics.TotalPatents)
		ym.DI = numeric.Round(numeric.Ratio(di, n), prec)
		ym.MDI = numeric.Round(numeric.Ratio(mdi, n), prec)
		ym.J5 = numeric.Round(numeric.Ratio(j5, n), prec)
		ym.I5 = numeric.Round(numeric.Ratio(i5, n), prec)
		ym.K5 = numeric.Round(numeric.Ratio(k5, n), prec)
		ym.Metrics.CitationsPerPatent = numeric.Round(numeric.Ratio(float64(ym.Metrics.TotalCitations), n), prec)
		ym.Metrics.MatchedCitationsPerPatent = numeric.Round(numeric.Ratio(float64(ym.Metrics.MatchedCitations), n), prec)
		ym.Metrics.NetworkDensity = numeric.Round(numeric.Ratio(density, n), prec)
		out = append(out, ym)
	}
	return out
}
