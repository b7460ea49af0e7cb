package sensitivity

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/cjeanneret/ScanGo/internal/logic/scan"
)

// Sample count limits for Curve.
const (
	MinSamples = 2
	MaxSamples = 500
)

// Increment range shared by both axes: a uniform cloud needs Δφ == Δθ, so the
// tighter THETA bound applies.
const (
	LowIncrementDeg  = scan.MinIncrementDeg
	HighIncrementDeg = scan.MaxThetaIncrement
)

// Point is one sample of the curve.
type Point struct {
	Increment       float64 `json:"increment"`         // Δφ = Δθ [°]
	Duration        float64 `json:"duration"`          // T [s]
	DurationRounded int     `json:"duration_rounded"`  // ceil(T) [s]
	TotalPoints     float64 `json:"total_points"`      // PT [points]
	PointsPerSecond float64 `json:"points_per_second"` // P [points/s]
}

// Curve evaluates base at evenly spaced increments between LowIncrementDeg and
// HighIncrementDeg, with both axes set to the same increment. The increments
// of base are ignored; its ranges and frequency must be valid.
func Curve(base scan.Inputs, samples int) ([]Point, error) {
	if samples < MinSamples || samples > MaxSamples {
		return nil, fmt.Errorf("samples must be between %d and %d, got %d", MinSamples, MaxSamples, samples)
	}

	if v := scan.Validate(base.WithIncrement(LowIncrementDeg)); !v.OK() {
		return nil, fmt.Errorf("%w: %s", scan.ErrInvalidInputs, strings.Join(v.Messages(), " "))
	}

	incs := floats.Span(make([]float64, samples), LowIncrementDeg, HighIncrementDeg)
	// Pin the end point so rounding in the step cannot push it past the THETA limit.
	incs[len(incs)-1] = HighIncrementDeg

	pts := make([]Point, 0, samples)
	for _, inc := range incs {
		m, err := scan.Compute(base.WithIncrement(inc))
		if err != nil {
			return nil, fmt.Errorf("increment %g: %w", inc, err)
		}
		pts = append(pts, Point{
			Increment:       inc,
			Duration:        m.Duration,
			DurationRounded: m.DurationRounded,
			TotalPoints:     m.TotalPoints,
			PointsPerSecond: m.PointsPerSecond,
		})
	}
	return pts, nil
}

// Increments returns the x values of pts.
func Increments(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Increment
	}
	return out
}

// Durations returns the T values of pts.
func Durations(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Duration
	}
	return out
}

// TotalPoints returns the PT values of pts.
func TotalPoints(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.TotalPoints
	}
	return out
}

// Longest returns the largest duration on the curve, in seconds.
func Longest(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	return floats.Max(Durations(pts))
}
