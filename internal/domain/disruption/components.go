// Package disruption computes the per-patent disruption components
// (j5, i5, k5), the linear and modified disruption indices, and the
// time-decayed consolidation/destabilization score.
package disruption

import (
	"fmt"
	"math"

	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// boundsEps absorbs float noise when checking documented score bounds.
const boundsEps = 1e-9

// ComponentScores holds the three disruption components of one patent.
//
//	j5: how much the patent draws on predecessors that few others draw on
//	i5: saturating influence of the patent's own forward citations
//	k5: how exclusively the patent's citers cite it
type ComponentScores struct {
	PatentID string  `json:"patent_id"`
	J5       float64 `json:"j5"`
	I5       float64 `json:"i5"`
	K5       float64 `json:"k5"`
}

// PatentScore is the full per-patent disruption result.
type PatentScore struct {
	PatentID  string  `json:"patent_id"`
	GrantYear int     `json:"grant_year"`
	J5        float64 `json:"j5"`
	I5        float64 `json:"i5"`
	K5        float64 `json:"k5"`
	DI        float64 `json:"disruption_index"`
	MDI       float64 `json:"modified_disruption_index"`
}

// DI returns the linear disruption index (j5+i5+k5)/3.
func DI(j5, i5, k5 float64) float64 {
	return (j5 + i5 + k5) / 3
}

// MDI returns the modified disruption index j5*(1+i5)*(1+k5), which
// rewards patents strong on all three components at once.
func MDI(j5, i5, k5 float64) float64 {
	return j5 * (1 + i5) * (1 + k5)
}

// Calculator computes disruption scores over one company graph.
// Component scores are cached per patent, so the Pure F quality factor
// and the index computation share one evaluation. Not safe for
// concurrent use; the pipeline gives each company its own calculator.
type Calculator struct {
	graph    *citation.Graph
	params   engine.Params
	log      logging.Logger
	cache    map[string]ComponentScores
	warnings []engine.Warning
}

// NewCalculator returns a calculator over the given graph. A nil logger
// falls back to a no-op logger.
func NewCalculator(g *citation.Graph, log logging.Logger) *Calculator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Calculator{
		graph:  g,
		params: g.Params(),
		log:    log,
		cache:  make(map[string]ComponentScores),
	}
}

// Components returns the cached component scores of one in-corpus
// patent, computing them on first use.
//
// j5 sums 1/|B_j| over the patent's in-corpus predecessors j, with a
// zero term when a predecessor cites nothing. k5 sums 1/|F_j| over
// in-corpus citers j. Dangling predecessors and citers have unknown
// neighborhoods and contribute nothing to either sum. i5 saturates in
// the full forward count, dangling citers included.
func (c *Calculator) Components(id string) (ComponentScores, error) {
	if s, ok := c.cache[id]; ok {
		return s, nil
	}
	if !c.graph.InCorpus(id) {
		return ComponentScores{}, errors.New(errors.ErrCodeGraphPatentMissing, "patent not in corpus").WithDetail(id)
	}

	var j5 float64
	for _, b := range c.graph.Backward(id) {
		if c.graph.InCorpus(b.PatentID) {
			j5 += numeric.RatioInt(1, c.graph.BackwardCount(b.PatentID))
		}
	}

	i5 := 1 - math.Exp(-c.params.Lambda*float64(c.graph.ForwardCount(id)))

	var k5 float64
	for _, f := range c.graph.Forward(id) {
		if c.graph.InCorpus(f.PatentID) {
			k5 += numeric.RatioInt(1, c.graph.ForwardCount(f.PatentID))
		}
	}

	s := ComponentScores{PatentID: id, J5: j5, I5: i5, K5: k5}
	c.checkComponent(id, "j5", j5)
	c.checkComponent(id, "i5", i5)
	c.checkComponent(id, "k5", k5)
	c.cache[id] = s
	return s, nil
}

// Score computes the disruption indices of one in-corpus patent.
func (c *Calculator) Score(id string) (PatentScore, error) {
	comps, err := c.Components(id)
	if err != nil {
		return PatentScore{}, err
	}
	p, _ := c.graph.Patent(id)

	di := DI(comps.J5, comps.I5, comps.K5)
	mdi := MDI(comps.J5, comps.I5, comps.K5)
	c.checkScore(id, "disruption_index", di, 0, 1)
	c.checkScore(id, "modified_disruption_index", mdi, 0, 4)

	return PatentScore{
		PatentID:  id,
		GrantYear: p.GrantYear,
		J5:        comps.J5,
		I5:        comps.I5,
		K5:        comps.K5,
		DI:        di,
		MDI:       mdi,
	}, nil
}

// ScoreAll scores every in-corpus patent in ascending ID order.
func (c *Calculator) ScoreAll() []PatentScore {
	ids := c.graph.PatentIDs()
	out := make([]PatentScore, 0, len(ids))
	for _, id := range ids {
		s, err := c.Score(id)
		if err != nil {
			c.log.Warn("scoring skipped a corpus patent",
				logging.String(logging.FieldCompany, c.graph.Company()),
				logging.String(logging.FieldPatent, id),
				logging.Err(err))
			continue
		}
		out = append(out, s)
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

func (c *Calculator) checkComponent(id, name string, v float64) {
	if numeric.InRange(v, 0, 1, boundsEps) {
		return
	}
	c.warn(engine.Warning{
		PatentID: id,
		Code:     errors.ErrCodeDIComponentOutOfRange,
		Message:  fmt.Sprintf("%s outside [0, 1]", name),
		Value:    v,
	})
}

func (c *Calculator) checkScore(id, name string, v, lo, hi float64) {
	if numeric.InRange(v, lo, hi, boundsEps) {
		return
	}
	c.warn(engine.Warning{
		PatentID: id,
		Code:     errors.ErrCodeDIScoreOutOfRange,
		Message:  fmt.Sprintf("%s outside [%g, %g]", name, lo, hi),
		Value:    v,
	})
}

func (c *Calculator) warn(w engine.Warning) {
	c.warnings = append(c.warnings, w)
	c.log.Warn(w.Message,
		logging.String(logging.FieldCompany, c.graph.Company()),
		logging.String(logging.FieldPatent, w.PatentID),
		logging.String("code", w.Code.String()),
		logging.Float64("value", w.Value))
}
