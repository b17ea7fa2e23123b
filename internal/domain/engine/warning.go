package engine

import (
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Warning records a non-fatal validation finding attached to a patent or
// record. Values that trip a bound are reported as-is and never clamped;
// a warning only annotates the output.
type Warning struct {
	PatentID string           `json:"patent_id,omitempty"`
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
	Value    float64          `json:"value"`
}
