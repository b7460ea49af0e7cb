package scan

import (
	"fmt"
	"math"

	"github.com/cjeanneret/ScanGo/internal/debug"
)

// Line rates of the rectangular FOV pattern, in lines per second.
const (
	LineRate100kHz = 34
	LineRate300kHz = 100
)

// Metrics holds the performance figures derived from one set of Inputs.
// Values are unrounded; rounding is a formatting concern.
type Metrics struct {
	ThetaTotal      float64 `json:"theta_total" yaml:"theta_total"`             // [°]
	PhiTotal        float64 `json:"phi_total" yaml:"phi_total"`                 // [°]
	LineRate        float64 `json:"line_rate" yaml:"line_rate"`                 // N [lines/s]
	PointsPerLine   float64 `json:"points_per_line" yaml:"points_per_line"`     // M [points/line]
	PointsPerSecond float64 `json:"points_per_second" yaml:"points_per_second"` // P [points/s]
	SweepSpeed      float64 `json:"sweep_speed" yaml:"sweep_speed"`             // Vb [°/s]
	Duration        float64 `json:"duration" yaml:"duration"`                   // T [s]
	DurationRounded int     `json:"duration_rounded" yaml:"duration_rounded"`   // ceil(T) [s]
	TotalPoints     float64 `json:"total_points" yaml:"total_points"`           // PT [points]
}

// LineRate returns the number of scan lines per second for f.
func LineRate(f PulseFrequency) (float64, error) {
	switch f {
	case Freq100kHz:
		return LineRate100kHz, nil
	case Freq300kHz:
		return LineRate300kHz, nil
	default:
		return 0, fmt.Errorf("no line rate for pulse frequency %v", f)
	}
}

// Compute derives the scan metrics for in.
// Inputs that fail Validate yield a *ValidationError and no metrics.
func Compute(in Inputs) (Metrics, error) {
	if v := Validate(in); !v.OK() {
		return Metrics{}, &ValidationError{Validation: v}
	}

	n, err := LineRate(in.PulseFrequency)
	if err != nil {
		return Metrics{}, err
	}

	thetaTotal := in.ThetaTotal()
	phiTotal := in.PhiTotal()

	m := thetaTotal / in.ThetaIncrement
	p := m * n
	vb := in.PhiIncrement * n
	t := phiTotal / vb
	debug.Verbose("N = %g lines/s, M = %g points/line, P = %g points/s, Vb = %g °/s", n, m, p, vb)

	return Metrics{
		ThetaTotal:      thetaTotal,
		PhiTotal:        phiTotal,
		LineRate:        n,
		PointsPerLine:   m,
		PointsPerSecond: p,
		SweepSpeed:      vb,
		Duration:        t,
		DurationRounded: int(math.Ceil(t)),
		TotalPoints:     p * t,
	}, nil
}

// Evaluation bundles one validation pass with its metrics.
// Metrics is nil whenever Validation is not OK.
type Evaluation struct {
	Inputs     Inputs     `json:"inputs" yaml:"inputs"`
	Validation Validation `json:"validation" yaml:"validation"`
	Metrics    *Metrics   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Evaluate validates in and computes the metrics only when no violation was found.
func Evaluate(in Inputs) Evaluation {
	ev := Evaluation{Inputs: in, Validation: Validate(in)}
	if !ev.Validation.OK() {
		return ev
	}
	m, err := Compute(in)
	if err != nil {
		// Validate already passed, so only LineRate can fail here and it cannot
		// for a valid frequency.
		return ev
	}
	ev.Metrics = &m
	return ev
}
