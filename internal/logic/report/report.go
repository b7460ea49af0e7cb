// Package report turns a scan evaluation into the structure shown to users:
// an input summary, the validation messages, headline and full-precision
// metrics, and the formulas behind them.
package report

import (
	"fmt"
	"strconv"

	"github.com/cjeanneret/ScanGo/internal/logic/scan"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
)

// InputSummary is the formatted echo of the inputs.
type InputSummary struct {
	PhiStart       string `json:"phi_start" yaml:"phi_start"`
	PhiStop        string `json:"phi_stop" yaml:"phi_stop"`
	PhiIncrement   string `json:"phi_increment" yaml:"phi_increment"`
	ThetaStart     string `json:"theta_start" yaml:"theta_start"`
	ThetaStop      string `json:"theta_stop" yaml:"theta_stop"`
	ThetaIncrement string `json:"theta_increment" yaml:"theta_increment"`
	Frequency      string `json:"frequency" yaml:"frequency"`
}

// Metric is one formatted result value.
type Metric struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Label  string `json:"label" yaml:"label"`
	Value  string `json:"value" yaml:"value"`
}

// Formula documents how a metric is derived.
type Formula struct {
	Symbol     string `json:"symbol" yaml:"symbol"`
	Expression string `json:"expression" yaml:"expression"`
	Unit       string `json:"unit" yaml:"unit"`
}

// Meta carries the caller-side context of an evaluation.
type Meta struct {
	ID      string   // evaluation id
	Scanner string   // scanner model
	Notices []string // non-blocking input notices
}

// Report is the display structure for one evaluation.
type Report struct {
	ID         string           `json:"id" yaml:"id"`
	Scanner    string           `json:"scanner" yaml:"scanner"`
	Inputs     scan.Inputs      `json:"inputs" yaml:"inputs"`
	Summary    InputSummary     `json:"summary" yaml:"summary"`
	Valid      bool             `json:"valid" yaml:"valid"`
	Violations []scan.Violation `json:"violations" yaml:"violations"`
	Messages   []string         `json:"messages" yaml:"messages"`
	Notices    []string         `json:"notices,omitempty" yaml:"notices,omitempty"`
	Headline   []Metric         `json:"headline,omitempty" yaml:"headline,omitempty"`
	RealValues []Metric         `json:"real_values,omitempty" yaml:"real_values,omitempty"`
	Metrics    *scan.Metrics    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Formulas   []Formula        `json:"formulas" yaml:"formulas"`
}

// Build assembles the report for ev. Metrics are only included when ev is valid.
func Build(ev scan.Evaluation, meta Meta) (*Report, error) {
	in := ev.Inputs
	r := &Report{
		ID:         meta.ID,
		Scanner:    meta.Scanner,
		Inputs:     in,
		Summary:    summarize(in),
		Valid:      ev.Validation.OK() && ev.Metrics != nil,
		Violations: ev.Validation.Violations,
		Messages:   ev.Validation.Messages(),
		Notices:    meta.Notices,
		Formulas:   Formulas(in.PulseFrequency),
	}
	if r.Violations == nil {
		r.Violations = []scan.Violation{}
	}
	if !r.Valid {
		return r, nil
	}

	m := *ev.Metrics
	headline, err := formatMetrics([]metricSpec{
		{"N", "N (lines/s)", m.LineRate, 0},
		{"M", "M (points/line)", m.PointsPerLine, 0},
		{"P", "P (points/s)", m.PointsPerSecond, 0},
		{"Vb", "Vb (°/s)", m.SweepSpeed, 2},
		{"T", "T (seconds)", float64(m.DurationRounded), 0},
		{"PT", "PT (points)", m.TotalPoints, 0},
	})
	if err != nil {
		return nil, fmt.Errorf("format headline metrics: %w", err)
	}
	full, err := formatMetrics([]metricSpec{
		{"N", "N (lines/s)", m.LineRate, 0},
		{"M", "M (points/line)", m.PointsPerLine, 4},
		{"P", "P (points/s)", m.PointsPerSecond, 2},
		{"Vb", "Vb (°/s)", m.SweepSpeed, 4},
		{"T", "T (seconds)", m.Duration, 2},
		{"PT", "PT (points)", m.TotalPoints, 2},
	})
	if err != nil {
		return nil, fmt.Errorf("format real values: %w", err)
	}

	r.Headline = headline
	r.RealValues = full
	r.Metrics = &m
	return r, nil
}

type metricSpec struct {
	symbol   string
	label    string
	value    float64
	decimals int
}

func formatMetrics(specs []metricSpec) ([]Metric, error) {
	out := make([]Metric, 0, len(specs))
	for _, s := range specs {
		v, err := numfmt.Format(s.value, s.decimals)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.symbol, err)
		}
		out = append(out, Metric{Symbol: s.symbol, Label: s.label, Value: v})
	}
	return out, nil
}

// summarize formats the inputs. Values the formatter rejects (negative or
// non-finite input) are echoed raw so invalid inputs can still be shown.
func summarize(in scan.Inputs) InputSummary {
	return InputSummary{
		PhiStart:       degrees(float64(in.PhiStart), 0),
		PhiStop:        degrees(float64(in.PhiStop), 0),
		PhiIncrement:   degrees(in.PhiIncrement, 4),
		ThetaStart:     degrees(float64(in.ThetaStart), 0),
		ThetaStop:      degrees(float64(in.ThetaStop), 0),
		ThetaIncrement: degrees(in.ThetaIncrement, 4),
		Frequency:      numfmt.Frequency(in.PulseFrequency.Hz()),
	}
}

func degrees(v float64, decimals int) string {
	s, err := numfmt.Format(v, decimals)
	if err != nil {
		s = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return s + "°"
}

// Formulas lists the formulas used, with N annotated for the selected frequency.
func Formulas(f scan.PulseFrequency) []Formula {
	n := "lines/s (depends on the pulse frequency)"
	if rate, err := scan.LineRate(f); err == nil {
		n = fmt.Sprintf("%s lines/s at %s", numfmt.MustFormat(rate, 0), numfmt.Frequency(f.Hz()))
	}
	return []Formula{
		{Symbol: "N", Expression: n, Unit: "lines/s"},
		{Symbol: "M", Expression: "θ_total / Δθ", Unit: "points/line"},
		{Symbol: "P", Expression: "M × N", Unit: "points/s"},
		{Symbol: "Vb", Expression: "Δφ × N", Unit: "°/s"},
		{Symbol: "T", Expression: "φ_total / Vb", Unit: "s"},
		{Symbol: "PT", Expression: "P × T", Unit: "points"},
	}
}
