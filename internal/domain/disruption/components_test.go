package disruption

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

func d(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// acmeRecords builds a six-patent fixture with hand-checkable
// components:
//
//	b1 (1995): cites nothing, cited by b2, p1 and c1.
//	b2 (1996): cites b1 only.
//	p1 (2000): cites b1, b2 and dangling xb; cited by c1 and dangling xd.
//	z1 (2001): no citations at all.
//	c1 (2002): cites p1 and b1; cited by c2.
//	c2 (2003): cites c1 only.
func acmeRecords() []citation.PatentRecord {
	return []citation.PatentRecord{
		{PatentID: "b1", GrantDate: d(1995, 1, 1)},
		{PatentID: "b2", GrantDate: d(1996, 1, 1), Backward: []citation.Citation{
			{PatentID: "b1", Date: d(1995, 1, 1)},
		}},
		{
			PatentID:        "p1",
			GrantDate:       d(2000, 1, 1),
			DeclaredForward: 2,
			Backward: []citation.Citation{
				{PatentID: "b1", Date: d(1995, 1, 1)},
				{PatentID: "b2", Date: d(1996, 1, 1)},
				{PatentID: "xb", Date: d(1994, 1, 1)},
			},
			Forward: []citation.Citation{
				{PatentID: "c1", Date: d(2002, 1, 1)},
				{PatentID: "xd", Date: d(2004, 1, 1)},
			},
		},
		{PatentID: "z1", GrantDate: d(2001, 1, 1)},
		{PatentID: "c1", GrantDate: d(2002, 1, 1), Backward: []citation.Citation{
			{PatentID: "p1", Date: d(2000, 1, 1)},
			{PatentID: "b1", Date: d(1995, 1, 1)},
		}},
		{PatentID: "c2", GrantDate: d(2003, 1, 1), Backward: []citation.Citation{
			{PatentID: "c1", Date: d(2002, 1, 1)},
		}},
	}
}

func buildCalculator(t *testing.T) *Calculator {
	t.Helper()
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", acmeRecords())
	require.NoError(t, err)
	return NewCalculator(g, nil)
}

func TestDI_Composition(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.666667, DI(1, 0, 1), 1e-6)
	assert.Equal(t, 0.0, DI(0, 0, 0))
	assert.Equal(t, 1.0, DI(1, 1, 1))
}

func TestMDI_Composition(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, MDI(1, 0, 1), 1e-12)
	assert.Equal(t, 0.0, MDI(0, 1, 1))
	assert.Equal(t, 4.0, MDI(1, 1, 1))
}

func TestComponents_KnownValues(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	p1, err := c.Components("p1")
	require.NoError(t, err)
	// b1 cites nothing (zero term), b2 cites one patent, xb is dangling.
	assert.InDelta(t, 1.0, p1.J5, 1e-12)
	assert.InDelta(t, 1-math.Exp(-0.2*2), p1.I5, 1e-12)
	// Citer c1 has one citer itself; xd is dangling.
	assert.InDelta(t, 1.0, p1.K5, 1e-12)

	b2, err := c.Components("b2")
	require.NoError(t, err)
	// Sole predecessor b1 cites nothing: zero term, not an error.
	assert.Equal(t, 0.0, b2.J5)
	assert.InDelta(t, 1-math.Exp(-0.2), b2.I5, 1e-12)
	assert.InDelta(t, 0.5, b2.K5, 1e-12)

	c1, err := c.Components("c1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, c1.J5, 1e-12)
	// Sole citer c2 has no citers of its own: zero term.
	assert.Equal(t, 0.0, c1.K5)
}

func TestComponents_ZeroCitationPatent(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	z1, err := c.Components("z1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, z1.J5)
	assert.Equal(t, 0.0, z1.I5)
	assert.Equal(t, 0.0, z1.K5)

	s, err := c.Score("z1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.DI)
	assert.Equal(t, 0.0, s.MDI)
}

func TestComponents_NotInCorpus(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	_, err := c.Components("xb")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphPatentMissing))
}

func TestComponents_CachedOnce(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	first, err := c.Components("b1")
	require.NoError(t, err)
	warnCount := len(c.Warnings())

	second, err := c.Components("b1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Cache hits must not re-raise warnings.
	assert.Equal(t, warnCount, len(c.Warnings()))
}

func TestComponents_OutOfBoundWarnsWithoutClamping(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	b1, err := c.Components("b1")
	require.NoError(t, err)
	// b1's three citers cite it near-exclusively: k5 = 1 + 1 + 1/2.
	assert.InDelta(t, 2.5, b1.K5, 1e-12)

	warnings := c.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.ErrCodeDIComponentOutOfRange, warnings[0].Code)
	assert.Equal(t, "b1", warnings[0].PatentID)
	assert.InDelta(t, 2.5, warnings[0].Value, 1e-12)
}

func TestScore_OutOfBoundIndicesWarn(t *testing.T) {
	t.Parallel()
	records := []citation.PatentRecord{
		{PatentID: "r1", GrantDate: d(1990, 1, 1), Backward: []citation.Citation{
			{PatentID: "r0", Date: d(1980, 1, 1)},
		}},
		{PatentID: "r2", GrantDate: d(1991, 1, 1), Backward: []citation.Citation{
			{PatentID: "r0", Date: d(1980, 1, 1)},
		}},
		{
			PatentID:  "q",
			GrantDate: d(2000, 1, 1),
			Backward: []citation.Citation{
				{PatentID: "r1", Date: d(1990, 1, 1)},
				{PatentID: "r2", Date: d(1991, 1, 1)},
			},
			Forward: []citation.Citation{{PatentID: "c", Date: d(2002, 1, 1)}},
		},
		{PatentID: "c", GrantDate: d(2002, 1, 1), Backward: []citation.Citation{
			{PatentID: "q", Date: d(2000, 1, 1)},
		}},
		{PatentID: "cc", GrantDate: d(2003, 1, 1), Backward: []citation.Citation{
			{PatentID: "c", Date: d(2002, 1, 1)},
		}},
	}
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", records)
	require.NoError(t, err)
	c := NewCalculator(g, nil)

	s, err := c.Score("q")
	require.NoError(t, err)

	// Both predecessors are cited by nobody else: j5 = 2, beyond its
	// documented bound, and it drags DI and mDI over theirs. Values
	// stay untouched.
	assert.InDelta(t, 2.0, s.J5, 1e-12)
	assert.Greater(t, s.DI, 1.0)
	assert.Greater(t, s.MDI, 4.0)

	codes := make(map[errors.ErrorCode]int)
	for _, w := range c.Warnings() {
		codes[w.Code]++
	}
	assert.Equal(t, 1, codes[errors.ErrCodeDIComponentOutOfRange])
	assert.Equal(t, 2, codes[errors.ErrCodeDIScoreOutOfRange])
}

func TestScoreAll_OrderedAndComplete(t *testing.T) {
	t.Parallel()
	c := buildCalculator(t)

	all := c.ScoreAll()
	require.Len(t, all, 6)
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.PatentID)
	}
	assert.Equal(t, []string{"b1", "b2", "c1", "c2", "p1", "z1"}, ids)

	for _, s := range all {
		assert.Equal(t, DI(s.J5, s.I5, s.K5), s.DI, s.PatentID)
		assert.Equal(t, MDI(s.J5, s.I5, s.K5), s.MDI, s.PatentID)
	}
}
