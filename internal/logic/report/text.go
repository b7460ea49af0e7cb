package report

import (
	"fmt"
	"io"
	"strings"
)

// WriteText renders r for a terminal.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s - rectangular FOV (evaluation %s)\n\n", r.Scanner, r.ID)

	b.WriteString("Input parameters\n")
	fmt.Fprintf(&b, "  PHI SOCS    start %-6s stop %-6s Δφ %s\n", r.Summary.PhiStart, r.Summary.PhiStop, r.Summary.PhiIncrement)
	fmt.Fprintf(&b, "  THETA SOCS  start %-6s stop %-6s Δθ %s\n", r.Summary.ThetaStart, r.Summary.ThetaStop, r.Summary.ThetaIncrement)
	fmt.Fprintf(&b, "  Frequency   %s\n", r.Summary.Frequency)

	for _, n := range r.Notices {
		fmt.Fprintf(&b, "  note: %s\n", n)
	}
	b.WriteString("\n")

	if !r.Valid {
		b.WriteString("Results cannot be calculated because of errors in the input parameters:\n")
		for _, m := range r.Messages {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("Formulas\n")
	for _, f := range r.Formulas {
		fmt.Fprintf(&b, "  %-3s = %s [%s]\n", f.Symbol, f.Expression, f.Unit)
	}
	b.WriteString("\n")

	b.WriteString("Results\n")
	writeMetrics(&b, r.Headline)
	b.WriteString("\nReal values\n")
	writeMetrics(&b, r.RealValues)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMetrics(b *strings.Builder, ms []Metric) {
	for _, m := range ms {
		fmt.Fprintf(b, "  %-16s %s\n", m.Label, m.Value)
	}
}
