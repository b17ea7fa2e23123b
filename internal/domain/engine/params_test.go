package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefault_Values(t *testing.T) {
	p := Default()
	assert.Equal(t, 0.05, p.Gamma)
	assert.Equal(t, 0.2, p.Lambda)
	assert.Equal(t, 0.1, p.Alpha)
	assert.Equal(t, 5, p.HorizonYears)
	assert.Equal(t, 1976, p.MinYear)
	assert.Equal(t, 2025, p.MaxYear)
	assert.Equal(t, 6, p.ScorePrecision)
	assert.Equal(t, 1.0, p.Weights.High)
	assert.Equal(t, 0.7, p.Weights.Medium)
	assert.Equal(t, 0.4, p.Weights.Low)
	assert.Equal(t, 0.1, p.Weights.Poor)
}

func TestValidate_RejectsNonPositiveGamma(t *testing.T) {
	p := Default()
	p.Gamma = 0
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigValueInvalid))
	assert.True(t, errors.IsFatal(errors.GetCode(err)))
}

func TestValidate_RejectsNonPositiveLambda(t *testing.T) {
	p := Default()
	p.Lambda = -0.1
	assert.Error(t, p.Validate())
}

func TestValidate_RejectsNonPositiveAlpha(t *testing.T) {
	p := Default()
	p.Alpha = 0
	assert.Error(t, p.Validate())
}

func TestValidate_RejectsZeroHorizon(t *testing.T) {
	p := Default()
	p.HorizonYears = 0
	assert.Error(t, p.Validate())
}

func TestValidate_RejectsInvertedYearRange(t *testing.T) {
	p := Default()
	p.MinYear = 2030
	p.MaxYear = 1976
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigYearRange))
}

func TestValidate_RejectsOutOfRangePrecision(t *testing.T) {
	p := Default()
	p.ScorePrecision = 13
	assert.Error(t, p.Validate())

	p.ScorePrecision = -1
	assert.Error(t, p.Validate())
}

func TestValidate_RejectsWeightOutOfUnitInterval(t *testing.T) {
	p := Default()
	p.Weights.High = 1.5
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigWeightInvalid))
}

func TestValidate_RejectsNonMonotoneWeights(t *testing.T) {
	p := Default()
	p.Weights.Medium = 0.2
	p.Weights.Low = 0.4
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigWeightInvalid))
}

func TestBucketFor_Thresholds(t *testing.T) {
	cases := []struct {
		rate float64
		want Quality
	}{
		{1.0, QualityHigh},
		{0.75, QualityHigh},
		{0.74, QualityMedium},
		{0.50, QualityMedium},
		{0.49, QualityLow},
		{0.25, QualityLow},
		{0.24, QualityPoor},
		{0.0, QualityPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BucketFor(tc.rate), "rate=%g", tc.rate)
	}
}

func TestQualityWeights_For(t *testing.T) {
	w := Default().Weights
	assert.Equal(t, 1.0, w.For(QualityHigh))
	assert.Equal(t, 0.7, w.For(QualityMedium))
	assert.Equal(t, 0.4, w.For(QualityLow))
	assert.Equal(t, 0.1, w.For(QualityPoor))
	assert.Equal(t, 0.1, w.For(Quality("unknown")))
}
