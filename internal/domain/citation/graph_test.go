package citation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
)

func TestGraph_ForwardBackwardOrdering(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	forward := g.Forward("p1")
	require.Len(t, forward, 2)
	assert.Equal(t, "f9", forward[0].PatentID)
	assert.Equal(t, "p3", forward[1].PatentID)

	backward := g.Backward("p1")
	require.Len(t, backward, 2)
	assert.Equal(t, "p2", backward[0].PatentID)
	assert.Equal(t, "x1", backward[1].PatentID)
}

func TestGraph_ForwardCountReconciliation(t *testing.T) {
	t.Parallel()
	records := []PatentRecord{
		{
			PatentID:        "p1",
			GrantDate:       d(2000, 1, 1),
			DeclaredForward: 10, // source lists only two citers
			Forward: []Citation{
				{PatentID: "a", Date: d(2001, 1, 1)},
				{PatentID: "b", Date: d(2002, 1, 1)},
			},
		},
		{
			PatentID:        "p2",
			GrantDate:       d(1998, 1, 1),
			DeclaredForward: 1,
		},
		{
			PatentID:  "p3",
			GrantDate: d(2001, 1, 1),
			Backward: []Citation{
				{PatentID: "p2", Date: d(1998, 1, 1)},
			},
		},
		{
			PatentID:  "p4",
			GrantDate: d(2002, 1, 1),
			Backward: []Citation{
				{PatentID: "p2", Date: d(1998, 1, 1)},
			},
		},
	}
	g, err := NewBuilder(engine.Default(), nil).Build("acme", records)
	require.NoError(t, err)

	// Declaration exceeds resolved citers: declaration wins.
	assert.Equal(t, 10, g.ForwardCount("p1"))
	// Resolved citers exceed declaration: resolved count wins.
	assert.Equal(t, 2, g.ForwardCount("p2"))
	// Unknown patents have no citers.
	assert.Equal(t, 0, g.ForwardCount("nope"))
}

func TestGraph_BackwardCount(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	assert.Equal(t, 2, g.BackwardCount("p1"))
	assert.Equal(t, 0, g.BackwardCount("p2"))
	// Dangling patents have no rows, so no backward count.
	assert.Equal(t, 0, g.BackwardCount("x1"))
}

func TestGraph_NeighborhoodExcludesDangling(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	// p1 touches x1, p2, p3, f9; only in-corpus neighbors survive.
	assert.Equal(t, []string{"p2", "p3"}, g.Neighborhood("p1"))
	assert.Equal(t, 2, g.NeighborhoodSize("p1"))
}

func TestGraph_LocalDensity(t *testing.T) {
	t.Parallel()
	records := []PatentRecord{
		{PatentID: "pa", GrantDate: d(2000, 1, 1)},
		{PatentID: "pb", GrantDate: d(2001, 1, 1), Backward: []Citation{
			{PatentID: "pa", Date: d(2000, 1, 1)},
		}},
		{PatentID: "pc", GrantDate: d(2002, 1, 1), Backward: []Citation{
			{PatentID: "pa", Date: d(2000, 1, 1)},
			{PatentID: "pb", Date: d(2001, 1, 1)},
		}},
		{PatentID: "pd", GrantDate: d(2003, 1, 1), Backward: []Citation{
			{PatentID: "pb", Date: d(2001, 1, 1)},
			{PatentID: "pc", Date: d(2002, 1, 1)},
		}},
	}
	g, err := NewBuilder(engine.Default(), nil).Build("t", records)
	require.NoError(t, err)

	// N(pb) = {pa, pc, pd}; edges within: pc cites pa, pd cites pc.
	assert.Equal(t, []string{"pa", "pc", "pd"}, g.Neighborhood("pb"))
	assert.InDelta(t, 2.0/6.0, g.LocalDensity("pb"), 1e-12)

	// N(pa) = {pb, pc}; pc cites pb.
	assert.InDelta(t, 0.5, g.LocalDensity("pa"), 1e-12)
}

func TestGraph_LocalDensitySmallNeighborhoods(t *testing.T) {
	t.Parallel()
	records := []PatentRecord{
		// Only dangling contacts: neighborhood is empty.
		{PatentID: "s1", GrantDate: d(2000, 1, 1), Backward: []Citation{
			{PatentID: "ext", Date: d(1999, 1, 1)},
		}},
		// Exactly one in-corpus neighbor.
		{PatentID: "s2", GrantDate: d(2001, 1, 1), Backward: []Citation{
			{PatentID: "s1", Date: d(2000, 1, 1)},
		}},
	}
	g, err := NewBuilder(engine.Default(), nil).Build("solo", records)
	require.NoError(t, err)

	assert.Equal(t, 0.0, g.LocalDensity("ext"))
	assert.Equal(t, 0.0, g.LocalDensity("s2"))
	// s1 has one in-corpus neighbor (s2): density defined as 0.
	assert.Equal(t, 1, g.NeighborhoodSize("s1"))
	assert.Equal(t, 0.0, g.LocalDensity("s1"))
}

func TestGraph_TemporalLags(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	lags := g.TemporalLags("p1")
	require.Len(t, lags, 2)
	// Citer order is f9 then p3.
	assert.InDelta(t, YearsBetween(d(2000, 6, 15), d(2001, 7, 7)), lags[0], 1e-12)
	assert.InDelta(t, YearsBetween(d(2000, 6, 15), d(2002, 5, 1)), lags[1], 1e-12)
	assert.Greater(t, lags[1], lags[0])

	assert.Nil(t, g.TemporalLags("p4"))
	assert.Nil(t, g.TemporalLags("unknown"))
}

func TestGraph_TemporalWeight(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	assert.Equal(t, 1.0, g.TemporalWeight(0))
	assert.InDelta(t, math.Exp(-0.1*3), g.TemporalWeight(3), 1e-12)
	assert.Less(t, g.TemporalWeight(5), g.TemporalWeight(1))
}

func TestGraph_CitationsBy(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	assert.Equal(t, 1, g.CitationsBy("p1", d(2001, 12, 31)))
	// Cutoff is inclusive.
	assert.Equal(t, 2, g.CitationsBy("p1", d(2002, 5, 1)))
	assert.Equal(t, 0, g.CitationsBy("p1", d(2000, 12, 31)))
	assert.Equal(t, 0, g.CitationsBy("unknown", d(2020, 1, 1)))
}

func TestGraph_HasEdge(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	assert.True(t, g.HasEdge("p1", "p2"))
	assert.True(t, g.HasEdge("f9", "p1"))
	assert.False(t, g.HasEdge("p2", "p1"))
	assert.False(t, g.HasEdge("nope", "p1"))
}

func TestGraph_Stats(t *testing.T) {
	t.Parallel()
	g := buildAcme(t)

	stats := g.Stats()
	assert.Equal(t, "acme", stats.CompanyName)
	assert.Equal(t, 4, stats.FocalPatents)
	assert.Equal(t, 6, stats.Edges)
	// Citers: p1, p3, f9, p4. Cited: x1, p2, p1, p3.
	assert.Equal(t, 4, stats.UniqueCitingPatents)
	assert.Equal(t, 4, stats.UniqueCitedPatents)
	assert.InDelta(t, 6.0/(4.0*8.0), stats.CompanyDensity, 1e-12)

	var lagSum float64
	for _, e := range g.Edges() {
		lagSum += YearsBetween(e.CitedDate, e.CitingDate)
	}
	assert.InDelta(t, lagSum/6.0, stats.MeanCitationLag, 1e-12)
	assert.Greater(t, stats.MeanCitationLag, 0.0)
}

func TestYearsBetween(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, YearsBetween(d(2000, 1, 1), d(2001, 1, 1)), 0.01)
	assert.InDelta(t, -1.0, YearsBetween(d(2001, 1, 1), d(2000, 1, 1)), 0.01)
	assert.Equal(t, 0.0, YearsBetween(d(2000, 1, 1), d(2000, 1, 1)))
}
