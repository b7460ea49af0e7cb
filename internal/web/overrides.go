package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/logic/scan"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
)

// FreeText is a numeric field typed by a user. It decodes from a JSON string
// ("0,05") or a JSON number (0.05) and is parsed later with numfmt.ParseLocalized.
type FreeText string

func (f *FreeText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FreeText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("increment must be a string or a number: %w", err)
	}
	*f = FreeText(n.String())
	return nil
}

// Overrides holds acquisition parameters that replace the configured defaults.
// Nil angles, empty increments and a zero frequency keep the default.
// The CLI and POST /calculate both go through Apply.
type Overrides struct {
	PhiStart       *int     `json:"phi_start,omitempty"`
	PhiStop        *int     `json:"phi_stop,omitempty"`
	PhiIncrement   FreeText `json:"phi_increment,omitempty"`
	ThetaStart     *int     `json:"theta_start,omitempty"`
	ThetaStop      *int     `json:"theta_stop,omitempty"`
	ThetaIncrement FreeText `json:"theta_increment,omitempty"`
	PulseFrequency int      `json:"pulse_frequency,omitempty"`
}

// Apply returns defaults with o applied. Increments that cannot be parsed
// fall back to the default and produce a notice for the user.
func (o Overrides) Apply(defaults scan.Inputs) (scan.Inputs, []string) {
	in := defaults
	var notices []string

	if o.PhiStart != nil {
		in.PhiStart = *o.PhiStart
	}
	if o.PhiStop != nil {
		in.PhiStop = *o.PhiStop
	}
	if o.ThetaStart != nil {
		in.ThetaStart = *o.ThetaStart
	}
	if o.ThetaStop != nil {
		in.ThetaStop = *o.ThetaStop
	}
	if o.PulseFrequency != 0 {
		in.PulseFrequency = scan.PulseFrequency(o.PulseFrequency)
	}

	in.PhiIncrement = parseIncrement("phi_increment", o.PhiIncrement, defaults.PhiIncrement, &notices)
	in.ThetaIncrement = parseIncrement("theta_increment", o.ThetaIncrement, defaults.ThetaIncrement, &notices)

	return in, notices
}

func parseIncrement(field string, text FreeText, fallback float64, notices *[]string) float64 {
	if text == "" {
		return fallback
	}
	v, err := numfmt.ParseLocalized(string(text), fallback)
	debug.Trace("%s: %q parsed as %g (err: %v)", field, string(text), v, err)
	if err != nil {
		shown, ferr := numfmt.Format(fallback, 4)
		if ferr != nil {
			shown = fmt.Sprint(fallback)
		}
		*notices = append(*notices, fmt.Sprintf("%s: %q is not a number, using %s instead.", field, string(text), shown))
	}
	return v
}

// String renders o for the debug trace. Unset fields show as "-".
func (o Overrides) String() string {
	angle := func(p *int) string {
		if p == nil {
			return "-"
		}
		return strconv.Itoa(*p)
	}
	text := func(f FreeText) string {
		if f == "" {
			return "-"
		}
		return strconv.Quote(string(f))
	}
	freq := "-"
	if o.PulseFrequency != 0 {
		freq = strconv.Itoa(o.PulseFrequency)
	}
	return fmt.Sprintf("phi %s..%s step %s, theta %s..%s step %s, freq %s",
		angle(o.PhiStart), angle(o.PhiStop), text(o.PhiIncrement),
		angle(o.ThetaStart), angle(o.ThetaStop), text(o.ThetaIncrement), freq)
}

// IntPtr returns a pointer to v, for filling Overrides.
func IntPtr(v int) *int {
	return &v
}
