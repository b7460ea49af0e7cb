package scan

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Axis identifies one of the two sweep axes.
type Axis string

const (
	AxisPhi   Axis = "phi"
	AxisTheta Axis = "theta"
)

// ViolationKind classifies a validation failure.
type ViolationKind string

const (
	OrderingViolation    ViolationKind = "ordering"
	IncrementMismatch    ViolationKind = "increment_mismatch"
	RangeViolation       ViolationKind = "range"
	UnsupportedFrequency ViolationKind = "unsupported_frequency"
)

// Violation is a single failed check. Axis is set for ordering violations,
// Field for range violations.
type Violation struct {
	Kind    ViolationKind `json:"kind" yaml:"kind"`
	Axis    Axis          `json:"axis,omitempty" yaml:"axis,omitempty"`
	Field   string        `json:"field,omitempty" yaml:"field,omitempty"`
	Message string        `json:"message" yaml:"message"`
}

// Fixed messages shown to the user.
const (
	msgPhiOrdering       = "PHI start angle must be less than PHI stop angle."
	msgThetaOrdering     = "THETA start angle must be less than THETA stop angle."
	msgIncrementMismatch = "PHI and THETA increments must be equal for a uniform point cloud."
	msgFrequency         = "Pulse frequency must be 100 kHz or 300 kHz."
)

// Validation is the outcome of Validate. A zero Validation means the inputs are valid.
type Validation struct {
	Violations []Violation `json:"violations" yaml:"violations"`
}

// OK reports whether no violation was found.
func (v Validation) OK() bool {
	return len(v.Violations) == 0
}

// Has reports whether a violation of the given kind was found.
func (v Validation) Has(kind ViolationKind) bool {
	for _, viol := range v.Violations {
		if viol.Kind == kind {
			return true
		}
	}
	return false
}

// Messages returns the human-readable messages in check order.
func (v Validation) Messages() []string {
	msgs := make([]string, 0, len(v.Violations))
	for _, viol := range v.Violations {
		msgs = append(msgs, viol.Message)
	}
	return msgs
}

func (v *Validation) add(viol Violation) {
	v.Violations = append(v.Violations, viol)
}

// Validate checks every constraint on in and reports all violations found.
// It never stops at the first failure.
func Validate(in Inputs) Validation {
	var v Validation

	checkRange(&v, "phi_start", float64(in.PhiStart), PhiMinDeg, PhiMaxDeg)
	checkRange(&v, "phi_stop", float64(in.PhiStop), PhiMinDeg, PhiMaxDeg)
	checkRange(&v, "phi_increment", in.PhiIncrement, MinIncrementDeg, MaxPhiIncrementDeg)
	checkRange(&v, "theta_start", float64(in.ThetaStart), ThetaMinDeg, ThetaMaxDeg)
	checkRange(&v, "theta_stop", float64(in.ThetaStop), ThetaMinDeg, ThetaMaxDeg)
	checkRange(&v, "theta_increment", in.ThetaIncrement, MinIncrementDeg, MaxThetaIncrement)

	if !in.PulseFrequency.IsValid() {
		v.add(Violation{Kind: UnsupportedFrequency, Message: msgFrequency})
	}

	if in.PhiStart >= in.PhiStop {
		v.add(Violation{Kind: OrderingViolation, Axis: AxisPhi, Message: msgPhiOrdering})
	}
	if in.ThetaStart >= in.ThetaStop {
		v.add(Violation{Kind: OrderingViolation, Axis: AxisTheta, Message: msgThetaOrdering})
	}
	// NaN fails this comparison too, so a non-finite increment also counts as a mismatch.
	if !(math.Abs(in.PhiIncrement-in.ThetaIncrement) < IncrementTolerance) {
		v.add(Violation{Kind: IncrementMismatch, Message: msgIncrementMismatch})
	}

	return v
}

func checkRange(v *Validation, field string, val, lo, hi float64) {
	if math.IsNaN(val) || math.IsInf(val, 0) || val < lo || val > hi {
		v.add(Violation{
			Kind:    RangeViolation,
			Field:   field,
			Message: fmt.Sprintf("%s must be between %g and %g.", field, lo, hi),
		})
	}
}

// ErrInvalidInputs is matched by errors returned from Compute for inputs
// that fail validation.
var ErrInvalidInputs = errors.New("invalid scan inputs")

// ValidationError carries the violations that prevented a computation.
type ValidationError struct {
	Validation Validation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidInputs, strings.Join(e.Validation.Messages(), " "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInputs
}
