package match

import (
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

// matchRecords covers the full classification range: a perfect match,
// a partial match with a dangling citer, and no-match patents.
//
//	b1 (1995): cited by f1, g1 and c1; cites nothing, so no citer can match.
//	f1 (2000): cites b1 and dangling xb; citers c1 (shares b1), c2 (shares
//	           nothing) and dangling xd.
//	g1 (2001): cites b1; single citer c1 shares b1, a perfect match.
//	c1 (2002), c2 (2003): citers of the above, never cited themselves.
func matchRecords() []citation.PatentRecord {
	return []citation.PatentRecord{
		{
			PatentID:  "b1",
			GrantDate: d(1995, 4, 1),
		},
		{
			PatentID:        "f1",
			GrantDate:       d(2000, 6, 15),
			DeclaredForward: 3,
			Backward: []citation.Citation{
				{PatentID: "b1", Date: d(1995, 4, 1)},
				{PatentID: "xb", Date: d(1994, 1, 1)},
			},
			Forward: []citation.Citation{
				{PatentID: "c1", Date: d(2002, 3, 1)},
				{PatentID: "c2", Date: d(2003, 8, 1)},
				{PatentID: "xd", Date: d(2004, 2, 1)},
			},
		},
		{
			PatentID:  "g1",
			GrantDate: d(2001, 6, 1),
			Backward:  []citation.Citation{{PatentID: "b1", Date: d(1995, 4, 1)}},
		},
		{
			PatentID:  "c1",
			GrantDate: d(2002, 3, 1),
			Backward: []citation.Citation{
				{PatentID: "f1", Date: d(2000, 6, 15)},
				{PatentID: "b1", Date: d(1995, 4, 1)},
				{PatentID: "g1", Date: d(2001, 6, 1)},
			},
		},
		{
			PatentID:  "c2",
			GrantDate: d(2003, 8, 1),
			Backward: []citation.Citation{
				{PatentID: "f1", Date: d(2000, 6, 15)},
				{PatentID: "z9", Date: d(1990, 1, 1)},
			},
		},
	}
}

func buildClassifier(t *testing.T) *Classifier {
	t.Helper()
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", matchRecords())
	require.NoError(t, err)
	return NewClassifier(g, nil)
}

func TestClassifyPatent_PartialMatchWithDanglingCiter(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	m, err := c.ClassifyPatent("f1")
	require.NoError(t, err)

	// c1 shares b1 with f1; c2 shares nothing; xd is dangling.
	assert.Equal(t, 3, m.TotalForward)
	assert.Equal(t, 1, m.Matched)
	assert.InDelta(t, 1.0/3.0, m.MatchRate, 1e-12)
	assert.Equal(t, engine.QualityLow, m.Bucket)
	assert.False(t, m.Perfect())
	assert.False(t, m.NoMatch())
	assert.Equal(t, 2000, m.GrantYear)
}

func TestClassifyPatent_PerfectMatch(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	m, err := c.ClassifyPatent("g1")
	require.NoError(t, err)

	assert.Equal(t, 1, m.TotalForward)
	assert.Equal(t, 1, m.Matched)
	assert.Equal(t, 1.0, m.MatchRate)
	assert.Equal(t, engine.QualityHigh, m.Bucket)
	assert.True(t, m.Perfect())
}

func TestClassifyPatent_EmptyBackwardNeverMatches(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	m, err := c.ClassifyPatent("b1")
	require.NoError(t, err)

	// Three citers resolve against b1, but b1 cites nothing.
	assert.Equal(t, 3, m.TotalForward)
	assert.Equal(t, 0, m.Matched)
	assert.Equal(t, 0.0, m.MatchRate)
	assert.True(t, m.NoMatch())
	assert.Equal(t, engine.QualityPoor, m.Bucket)
}

func TestClassifyPatent_ZeroForwardCitations(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	m, err := c.ClassifyPatent("c1")
	require.NoError(t, err)

	assert.Equal(t, 0, m.TotalForward)
	assert.Equal(t, 0.0, m.MatchRate)
	assert.True(t, m.NoMatch())
	assert.False(t, m.Perfect())
}

func TestClassifyPatent_NotInCorpus(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	_, err := c.ClassifyPatent("xd")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphPatentMissing))
}

func TestClassifyPatent_DeclaredCountDilutesRate(t *testing.T) {
	t.Parallel()
	records := []citation.PatentRecord{
		{PatentID: "b1", GrantDate: d(1995, 1, 1)},
		{
			PatentID:        "p1",
			GrantDate:       d(2000, 1, 1),
			DeclaredForward: 10, // eight citers the source never listed
			Backward:        []citation.Citation{{PatentID: "b1", Date: d(1995, 1, 1)}},
			Forward: []citation.Citation{
				{PatentID: "c1", Date: d(2002, 1, 1)},
				{PatentID: "c2", Date: d(2003, 1, 1)},
			},
		},
		{PatentID: "c1", GrantDate: d(2002, 1, 1), Backward: []citation.Citation{
			{PatentID: "p1", Date: d(2000, 1, 1)},
			{PatentID: "b1", Date: d(1995, 1, 1)},
		}},
		{PatentID: "c2", GrantDate: d(2003, 1, 1), Backward: []citation.Citation{
			{PatentID: "p1", Date: d(2000, 1, 1)},
			{PatentID: "b1", Date: d(1995, 1, 1)},
		}},
	}
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", records)
	require.NoError(t, err)

	m, err := NewClassifier(g, nil).ClassifyPatent("p1")
	require.NoError(t, err)

	// Both resolved citers match, but the declaration says ten citers exist.
	assert.Equal(t, 10, m.TotalForward)
	assert.Equal(t, 2, m.Matched)
	assert.InDelta(t, 0.2, m.MatchRate, 1e-12)
	assert.Equal(t, engine.QualityPoor, m.Bucket)
	assert.False(t, m.Perfect())
}

func TestClassifyPatent_MediumBucket(t *testing.T) {
	t.Parallel()
	records := []citation.PatentRecord{
		{PatentID: "b1", GrantDate: d(1995, 1, 1)},
		{
			PatentID:  "h1",
			GrantDate: d(2000, 1, 1),
			Backward:  []citation.Citation{{PatentID: "b1", Date: d(1995, 1, 1)}},
			Forward: []citation.Citation{
				{PatentID: "c1", Date: d(2002, 1, 1)},
				{PatentID: "c2", Date: d(2003, 1, 1)},
			},
		},
		{PatentID: "c1", GrantDate: d(2002, 1, 1), Backward: []citation.Citation{
			{PatentID: "h1", Date: d(2000, 1, 1)},
			{PatentID: "b1", Date: d(1995, 1, 1)},
		}},
		{PatentID: "c2", GrantDate: d(2003, 1, 1), Backward: []citation.Citation{
			{PatentID: "h1", Date: d(2000, 1, 1)},
		}},
	}
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", records)
	require.NoError(t, err)

	m, err := NewClassifier(g, nil).ClassifyPatent("h1")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.MatchRate, 1e-12)
	assert.Equal(t, engine.QualityMedium, m.Bucket)
}

func TestClassifyAll_OrderedByPatentID(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	all := c.ClassifyAll()
	require.Len(t, all, 5)
	ids := make([]string, 0, len(all))
	for _, m := range all {
		ids = append(ids, m.PatentID)
	}
	assert.Equal(t, []string{"b1", "c1", "c2", "f1", "g1"}, ids)
}

func TestFlagCounts_PerYearRows(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	counts := c.FlagCounts()
	require.Len(t, counts, 5)

	years := make([]int, 0, len(counts))
	for _, fc := range counts {
		years = append(years, fc.Year)
	}
	assert.Equal(t, []int{1995, 2000, 2001, 2002, 2003}, years)

	y1995 := counts[0]
	assert.Equal(t, "acme", y1995.CompanyName)
	assert.Equal(t, 1, y1995.TotalPatents)
	assert.Equal(t, 3, y1995.TotalForwardCitations)
	assert.Equal(t, 0, y1995.MatchedCitations)
	assert.Equal(t, 1, y1995.NoMatchPatents)
	assert.Equal(t, 1, y1995.Poor)
	assert.InDelta(t, 0.1, y1995.WeightedQuality, 1e-9)

	y2000 := counts[1]
	assert.Equal(t, 3, y2000.TotalForwardCitations)
	assert.Equal(t, 1, y2000.MatchedCitations)
	assert.Equal(t, 1, y2000.Low)
	assert.InDelta(t, 0.333333, y2000.AverageMatchRate, 1e-9)
	assert.InDelta(t, 0.4, y2000.WeightedQuality, 1e-9)

	y2001 := counts[2]
	assert.Equal(t, 1, y2001.PerfectMatchPatents)
	assert.Equal(t, 1, y2001.High)
	assert.Equal(t, 1.0, y2001.AverageMatchRate)
	assert.InDelta(t, 1.0, y2001.WeightedQuality, 1e-9)
}

func TestFlagCounts_RoundedToScorePrecision(t *testing.T) {
	t.Parallel()
	c := buildClassifier(t)

	for _, fc := range c.FlagCounts() {
		assert.Equal(t, roundTo6(fc.AverageMatchRate), fc.AverageMatchRate)
		assert.Equal(t, roundTo6(fc.WeightedQuality), fc.WeightedQuality)
	}
}

func roundTo6(x float64) float64 {
	return float64(int64(x*1e6+0.5)) / 1e6
}

func TestFlagCounts_EmptyGraph(t *testing.T) {
	t.Parallel()
	g, err := citation.NewBuilder(engine.Default(), nil).Build("acme", nil)
	require.NoError(t, err)

	assert.Empty(t, NewClassifier(g, nil).FlagCounts())
}
