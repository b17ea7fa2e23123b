package puref

import (
	"fmt"
	"math"
	"sort"

	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/disruption"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/match"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// boundsEps absorbs float noise when checking documented factor bounds.
const boundsEps = 1e-9

// Calculator computes Pure F factors over one company graph. It shares
// the disruption calculator so j5/k5 are evaluated once per patent and
// run. Not safe for concurrent use.
type Calculator struct {
	graph    *citation.Graph
	comps    *disruption.Calculator
	params   engine.Params
	log      logging.Logger
	cache    map[string]Factors
	warnings []engine.Warning
}

// NewCalculator returns a calculator over the given graph and component
// source. A nil logger falls back to a no-op logger.
func NewCalculator(g *citation.Graph, comps *disruption.Calculator, log logging.Logger) *Calculator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Calculator{
		graph:  g,
		comps:  comps,
		params: g.Params(),
		log:    log,
		cache:  make(map[string]Factors),
	}
}

// Factors computes the Pure F components of one in-corpus patent at the
// configured horizon, caching the result per patent so repeated
// aggregation passes neither recompute nor re-warn.
//
// The temporal factor is the patent's share of the citations received
// by itself and its in-corpus predecessors up to grant+horizon, 0 when
// nobody received any. The network factor is (1+density)*exp(-gamma*n)
// over the in-corpus neighborhood. The quality factor averages the j5
// and k5 components.
func (c *Calculator) Factors(id string) (Factors, error) {
	if f, ok := c.cache[id]; ok {
		return f, nil
	}
	p, ok := c.graph.Patent(id)
	if !ok {
		return Factors{}, errors.New(errors.ErrCodeGraphPatentMissing, "patent not in corpus").WithDetail(id)
	}
	comps, err := c.comps.Components(id)
	if err != nil {
		return Factors{}, errors.Wrap(err, errors.ErrCodePureFComputeFailed, "component scores unavailable")
	}

	cutoff := p.GrantDate.AddDate(c.params.HorizonYears, 0, 0)
	m := c.graph.CitationsBy(id, cutoff)
	n := m
	for _, b := range c.graph.Backward(id) {
		if c.graph.InCorpus(b.PatentID) {
			n += c.graph.CitationsBy(b.PatentID, cutoff)
		}
	}
	temporal := numeric.RatioInt(m, n)

	size := c.graph.NeighborhoodSize(id)
	network := (1 + c.graph.LocalDensity(id)) * math.Exp(-c.params.Gamma*float64(size))

	quality := (comps.J5 + comps.K5) / 2

	c.checkFactor(id, "temporal_factor", temporal, 0, 1)
	c.checkFactor(id, "network_factor", network, 0, 2)
	c.checkFactor(id, "quality_factor", quality, 0, 1)

	f := Factors{
		PatentID:  id,
		GrantYear: p.GrantYear,
		Temporal:  temporal,
		Network:   network,
		Quality:   quality,
		PureF:     temporal * network * quality,
	}
	c.cache[id] = f
	return f, nil
}

// FactorsAll computes factors for every in-corpus patent in ascending
// ID order.
func (c *Calculator) FactorsAll() []Factors {
	ids := c.graph.PatentIDs()
	out := make([]Factors, 0, len(ids))
	for _, id := range ids {
		f, err := c.Factors(id)
		if err != nil {
			c.log.Warn("pure f skipped a corpus patent",
				logging.String(logging.FieldCompany, c.graph.Company()),
				logging.String(logging.FieldPatent, id),
				logging.Err(err))
			continue
		}
		out = append(out, f)
	}
	return out
}

// YearSummaries aggregates the per-patent scores into one row per grant
// year, ordered by year. The match results supply citation totals and
// the perfect/no-match counts.
func (c *Calculator) YearSummaries(matches []match.PatentMatch) []YearSummary {
	factors := c.FactorsAll()
	matchByID := make(map[string]match.PatentMatch, len(matches))
	for _, m := range matches {
		matchByID[m.PatentID] = m
	}

	byYear := make(map[int][]Factors)
	for _, f := range factors {
		byYear[f.GrantYear] = append(byYear[f.GrantYear], f)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	prec := c.params.ScorePrecision
	out := make([]YearSummary, 0, len(years))
	for _, year := range years {
		group := byYear[year]
		ys := YearSummary{
			CompanyName:  c.graph.Company(),
			Year:         year,
			TotalPatents: len(group),
		}
		var pureFSum float64
		for _, f := range group {
			pureFSum += f.PureF
			if m, ok := matchByID[f.PatentID]; ok {
				ys.TotalCitations += m.TotalForward
				ys.MatchedCitations += m.Matched
				if m.Perfect() {
					ys.PerfectMatches++
				}
				if m.NoMatch() {
					ys.NoMatches++
				}
			}
		}
		ys.PureFScore = numeric.Round(numeric.Ratio(pureFSum, float64(ys.TotalPatents)), prec)
		ys.MatchRate = numeric.Round(numeric.RatioInt(ys.MatchedCitations, ys.TotalCitations), prec)
		out = append(out, ys)
	}
	return out
}

// Warnings returns the validation warnings collected so far, in the
// order they were raised.
func (c *Calculator) Warnings() []engine.Warning {
	out := make([]engine.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Calculator) checkFactor(id, name string, v, lo, hi float64) {
	if numeric.InRange(v, lo, hi, boundsEps) {
		return
	}
	w := engine.Warning{
		PatentID: id,
		Code:     errors.ErrCodePureFFactorOutOfRange,
		Message:  fmt.Sprintf("%s outside [%g, %g]", name, lo, hi),
		Value:    v,
	}
	c.warnings = append(c.warnings, w)
	c.log.Warn(w.Message,
		logging.String(logging.FieldCompany, c.graph.Company()),
		logging.String(logging.FieldPatent, id),
		logging.String("code", w.Code.String()),
		logging.Float64("value", v))
}
