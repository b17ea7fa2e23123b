package match

import (
	"sort"

	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Classifier scores citation matches over one company graph.
//
// A citer f of focal patent i counts as matched when f's resolved
// backward set shares at least one patent with i's backward set.
// Dangling citers have unknown reference lists and always count as
// unmatched.
type Classifier struct {
	graph  *citation.Graph
	params engine.Params
	log    logging.Logger
}

// NewClassifier returns a classifier over the given graph. A nil logger
// falls back to a no-op logger.
func NewClassifier(g *citation.Graph, log logging.Logger) *Classifier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Classifier{graph: g, params: g.Params(), log: log}
}

// ClassifyPatent classifies one in-corpus patent.
func (c *Classifier) ClassifyPatent(id string) (PatentMatch, error) {
	p, ok := c.graph.Patent(id)
	if !ok {
		return PatentMatch{}, errors.New(errors.ErrCodeGraphPatentMissing, "patent not in corpus").WithDetail(id)
	}

	focalRefs := make(map[string]struct{})
	for _, b := range c.graph.Backward(id) {
		focalRefs[b.PatentID] = struct{}{}
	}

	matched := 0
	for _, f := range c.graph.Forward(id) {
		if !c.graph.InCorpus(f.PatentID) {
			continue
		}
		if c.citesAny(f.PatentID, focalRefs) {
			matched++
		}
	}

	total := c.graph.ForwardCount(id)
	rate := numeric.RatioInt(matched, total)
	return PatentMatch{
		PatentID:     id,
		GrantYear:    p.GrantYear,
		TotalForward: total,
		Matched:      matched,
		MatchRate:    rate,
		Bucket:       engine.BucketFor(rate),
	}, nil
}

// ClassifyAll classifies every in-corpus patent in ascending ID order.
func (c *Classifier) ClassifyAll() []PatentMatch {
	ids := c.graph.PatentIDs()
	out := make([]PatentMatch, 0, len(ids))
	for _, id := range ids {
		m, err := c.ClassifyPatent(id)
		if err != nil {
			// Unreachable for corpus IDs; log and keep going.
			c.log.Warn("classification skipped a corpus patent",
				logging.String(logging.FieldCompany, c.graph.Company()),
				logging.String(logging.FieldPatent, id),
				logging.Err(err))
			continue
		}
		out = append(out, m)
	}
	return out
}

// FlagCounts aggregates per-patent matches into one row per grant year,
// ordered by year. Zero-patent years never appear.
func (c *Classifier) FlagCounts() []FlagCount {
	matches := c.ClassifyAll()
	byYear := make(map[int][]PatentMatch)
	for _, m := range matches {
		byYear[m.GrantYear] = append(byYear[m.GrantYear], m)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]FlagCount, 0, len(years))
	for _, year := range years {
		out = append(out, c.buildFlagCount(year, byYear[year]))
	}
	return out
}

func (c *Classifier) buildFlagCount(year int, matches []PatentMatch) FlagCount {
	fc := FlagCount{
		CompanyName:  c.graph.Company(),
		Year:         year,
		TotalPatents: len(matches),
	}
	var rateSum, weightSum float64
	for _, m := range matches {
		fc.TotalForwardCitations += m.TotalForward
		fc.MatchedCitations += m.Matched
		rateSum += m.MatchRate
		weightSum += c.params.Weights.For(m.Bucket)
		if m.Perfect() {
			fc.PerfectMatchPatents++
		}
		if m.NoMatch() {
			fc.NoMatchPatents++
		}
		switch m.Bucket {
		case engine.QualityHigh:
			fc.High++
		case engine.QualityMedium:
			fc.Medium++
		case engine.QualityLow:
			fc.Low++
		default:
			fc.Poor++
		}
	}
	fc.AverageMatchRate = numeric.Round(numeric.Ratio(rateSum, float64(fc.TotalPatents)), c.params.ScorePrecision)
	fc.WeightedQuality = numeric.Round(numeric.Ratio(weightSum, float64(fc.TotalPatents)), c.params.ScorePrecision)
	return fc
}
