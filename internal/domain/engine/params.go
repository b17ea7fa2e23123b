// Package engine defines the tunable parameter set shared by every metric
// component of the disruption pipeline.  A Params value is assembled once per
// run and validated up front; it is then passed by value so that no component
// can observe a mid-run change.
package engine

import (
	"fmt"

	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Quality buckets for forward-citation match rates.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
	QualityPoor   Quality = "poor"
)

// Match-rate thresholds separating the quality buckets.  A patent whose
// matched share of forward citations is at least the threshold falls into the
// corresponding bucket.
const (
	ThresholdHigh   = 0.75
	ThresholdMedium = 0.50
	ThresholdLow    = 0.25
)

// QualityWeights maps the four match-quality buckets to weighting factors.
type QualityWeights struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
	Poor   float64 `json:"poor"`
}

// For returns the weight assigned to bucket q.
func (w QualityWeights) For(q Quality) float64 {
	switch q {
	case QualityHigh:
		return w.High
	case QualityMedium:
		return w.Medium
	case QualityLow:
		return w.Low
	default:
		return w.Poor
	}
}

// Params is the immutable parameter set threaded through graph construction,
// match classification, and metric computation.
type Params struct {
	// Gamma is the exponential decay applied to network size in the
	// network factor: (1 + density) * exp(-Gamma * |N|).
	Gamma float64 `json:"gamma"`

	// Lambda is the saturation rate of the forward-influence component:
	// i5 = 1 - exp(-Lambda * |F|).
	Lambda float64 `json:"lambda"`

	// Alpha is the per-year decay of forward-citation weights in the
	// time-decayed consolidation/destabilization index.
	Alpha float64 `json:"alpha"`

	// HorizonYears bounds the post-grant window used for matched-within-
	// horizon counts.
	HorizonYears int `json:"horizon_years"`

	// MinYear and MaxYear bound the grant years admitted into the corpus;
	// rows outside the window are skipped during ingestion.
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`

	// ScorePrecision is the number of decimal places kept on every metric
	// value that crosses a record boundary.
	ScorePrecision int `json:"score_precision"`

	// Weights assigns factors to the match-quality buckets.
	Weights QualityWeights `json:"weights"`
}

// Default returns the parameter set used when configuration supplies nothing.
func Default() Params {
	return Params{
		Gamma:          0.05,
		Lambda:         0.2,
		Alpha:          0.1,
		HorizonYears:   5,
		MinYear:        1976,
		MaxYear:        2025,
		ScorePrecision: 6,
		Weights: QualityWeights{
			High:   1.0,
			Medium: 0.7,
			Low:    0.4,
			Poor:   0.1,
		},
	}
}

// Validate checks every parameter against its admissible range.  Any failure
// is fatal: the pipeline refuses to start a run with a broken parameter set.
func (p Params) Validate() error {
	if p.Gamma <= 0 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("engine: gamma must be positive, got %g", p.Gamma))
	}
	if p.Lambda <= 0 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("engine: lambda must be positive, got %g", p.Lambda))
	}
	if p.Alpha <= 0 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("engine: alpha must be positive, got %g", p.Alpha))
	}
	if p.HorizonYears < 1 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("engine: horizon_years must be >= 1, got %d", p.HorizonYears))
	}
	if p.MinYear > p.MaxYear {
		return errors.New(errors.ErrCodeConfigYearRange,
			fmt.Sprintf("engine: min_year %d exceeds max_year %d", p.MinYear, p.MaxYear))
	}
	if p.ScorePrecision < 0 || p.ScorePrecision > 12 {
		return errors.New(errors.ErrCodeConfigValueInvalid,
			fmt.Sprintf("engine: score_precision %d is out of range [0, 12]", p.ScorePrecision))
	}
	for _, wq := range []struct {
		name string
		w    float64
	}{
		{"high", p.Weights.High},
		{"medium", p.Weights.Medium},
		{"low", p.Weights.Low},
		{"poor", p.Weights.Poor},
	} {
		if wq.w < 0 || wq.w > 1 {
			return errors.New(errors.ErrCodeConfigWeightInvalid,
				fmt.Sprintf("engine: weight %q must be in [0, 1], got %g", wq.name, wq.w))
		}
	}
	if p.Weights.High < p.Weights.Medium || p.Weights.Medium < p.Weights.Low || p.Weights.Low < p.Weights.Poor {
		return errors.New(errors.ErrCodeConfigWeightInvalid,
			"engine: quality weights must be non-increasing from high to poor")
	}
	return nil
}

// BucketFor returns the quality bucket for a forward-citation match rate.
func BucketFor(matchRate float64) Quality {
	switch {
	case matchRate >= ThresholdHigh:
		return QualityHigh
	case matchRate >= ThresholdMedium:
		return QualityMedium
	case matchRate >= ThresholdLow:
		return QualityLow
	default:
		return QualityPoor
	}
}
