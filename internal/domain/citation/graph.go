package citation

import (
	"math"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
)

// daysPerYear converts citation lags to fractional years.
const daysPerYear = 365.25

// Graph is an immutable per-company citation network. Forward and
// backward adjacency are derived from one deduplicated edge set, so the
// declared forward lists and the backward lists of other rows can never
// disagree once the graph is built. All list-returning queries order
// their results by patent ID.
type Graph struct {
	company  string
	params   engine.Params
	patents  map[string]*Patent
	forward  map[string][]Citation // corpus patent to its citers
	backward map[string][]Citation // corpus patent to the patents it cites
	edgeSet  map[edgeKey]struct{}
	edges    []CitationEdge // sorted by (citing, cited)
	ids      []string       // sorted corpus IDs
	report   *BuildReport
}

type edgeKey struct {
	citing string
	cited  string
}

// Company returns the owning company name.
func (g *Graph) Company() string { return g.company }

// Params returns the engine parameters the graph was built with.
func (g *Graph) Params() engine.Params { return g.params }

// Size returns the number of in-corpus focal patents.
func (g *Graph) Size() int { return len(g.patents) }

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Report returns the build diagnostics.
func (g *Graph) Report() *BuildReport { return g.report }

// PatentIDs returns the in-corpus patent IDs in ascending order.
func (g *Graph) PatentIDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Patent returns the in-corpus patent with the given ID.
func (g *Graph) Patent(id string) (*Patent, bool) {
	p, ok := g.patents[id]
	return p, ok
}

// InCorpus reports whether the patent appeared as a focal row.
func (g *Graph) InCorpus(id string) bool {
	_, ok := g.patents[id]
	return ok
}

// Edges returns every distinct edge ordered by (citing, cited).
func (g *Graph) Edges() []CitationEdge {
	out := make([]CitationEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

// HasEdge reports whether a directed citing-to-cited edge exists.
func (g *Graph) HasEdge(citingID, citedID string) bool {
	_, ok := g.edgeSet[edgeKey{citing: citingID, cited: citedID}]
	return ok
}

// Forward returns the resolved citers of the patent, dangling citers
// included, ordered by citer ID.
func (g *Graph) Forward(id string) []Citation {
	return copyCitations(g.forward[id])
}

// Backward returns the patents the given patent cites, dangling targets
// included, ordered by cited ID.
func (g *Graph) Backward(id string) []Citation {
	return copyCitations(g.backward[id])
}

// ForwardCount returns the full forward citation count: the resolved
// citer edges reconciled upward to the declared count when the source
// table declared more citers than it listed.
func (g *Graph) ForwardCount(id string) int {
	n := len(g.forward[id])
	if p, ok := g.patents[id]; ok && p.DeclaredForward > n {
		return p.DeclaredForward
	}
	return n
}

// BackwardCount returns the number of distinct patents the patent cites.
// Patents outside the corpus have no rows of their own, so their count
// is 0.
func (g *Graph) BackwardCount(id string) int {
	return len(g.backward[id])
}

// Neighborhood returns the in-corpus members of the union of the
// patent's citers and cited patents, in ascending order. Dangling
// endpoints contribute to degree counts but are never expanded into the
// neighbor set.
func (g *Graph) Neighborhood(id string) []string {
	seen := make(map[string]struct{})
	for _, c := range g.forward[id] {
		if g.InCorpus(c.PatentID) {
			seen[c.PatentID] = struct{}{}
		}
	}
	for _, c := range g.backward[id] {
		if g.InCorpus(c.PatentID) {
			seen[c.PatentID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for _, pid := range g.ids {
		if _, ok := seen[pid]; ok {
			out = append(out, pid)
		}
	}
	return out
}

// NeighborhoodSize returns the size of the in-corpus neighborhood.
func (g *Graph) NeighborhoodSize(id string) int {
	return len(g.Neighborhood(id))
}

// LocalDensity returns the directed edge density within the patent's
// neighborhood: edges between neighborhood members over n*(n-1) where n
// is the neighborhood size. Neighborhoods of one or zero patents have
// density 0.
func (g *Graph) LocalDensity(id string) float64 {
	members := g.Neighborhood(id)
	if len(members) <= 1 {
		return 0
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	within := 0
	for _, m := range members {
		for _, c := range g.backward[m] {
			if _, ok := set[c.PatentID]; ok {
				within++
			}
		}
	}
	return numeric.RatioInt(within, len(members)*(len(members)-1))
}

// TemporalLags returns the citation lag in years for each resolved
// forward citation of the patent, in citer-ID order. Lag is measured
// from the focal grant date to the citing date over a 365.25-day year.
func (g *Graph) TemporalLags(id string) []float64 {
	p, ok := g.patents[id]
	if !ok {
		return nil
	}
	citers := g.forward[id]
	if len(citers) == 0 {
		return nil
	}
	lags := make([]float64, 0, len(citers))
	for _, c := range citers {
		lags = append(lags, YearsBetween(p.GrantDate, c.Date))
	}
	return lags
}

// TemporalWeight returns exp(-alpha*delta) for a citation lag of delta
// years.
func (g *Graph) TemporalWeight(deltaYears float64) float64 {
	return math.Exp(-g.params.Alpha * deltaYears)
}

// CitationsBy returns how many resolved citers of the patent have a
// citing date on or before the cutoff.
func (g *Graph) CitationsBy(id string, cutoff time.Time) int {
	n := 0
	for _, c := range g.forward[id] {
		if !c.Date.After(cutoff) {
			n++
		}
	}
	return n
}

// Stats summarizes the assembled network. CompanyDensity relates the
// edge count to the product of focal patents and distinct counterparts.
// MeanCitationLag averages the citing-to-cited date gap in years over
// all edges. Both fall back to 0 on empty networks.
func (g *Graph) Stats() NetworkStats {
	citing := make(map[string]struct{})
	cited := make(map[string]struct{})
	var lagSum float64
	for _, e := range g.edges {
		citing[e.CitingID] = struct{}{}
		cited[e.CitedID] = struct{}{}
		lagSum += YearsBetween(e.CitedDate, e.CitingDate)
	}
	counterparts := len(citing) + len(cited)
	return NetworkStats{
		CompanyName:         g.company,
		FocalPatents:        len(g.patents),
		Edges:               len(g.edges),
		UniqueCitingPatents: len(citing),
		UniqueCitedPatents:  len(cited),
		CompanyDensity:      numeric.RatioInt(len(g.edges), len(g.patents)*counterparts),
		MeanCitationLag:     numeric.Ratio(lagSum, float64(len(g.edges))),
	}
}

// YearsBetween returns the elapsed time from one date to another in
// fractional 365.25-day years. The result is negative when to precedes
// from.
func YearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / daysPerYear
}

func copyCitations(src []Citation) []Citation {
	if len(src) == 0 {
		return nil
	}
	out := make([]Citation, len(src))
	copy(out, src)
	return out
}
