// Package numfmt renders and parses numbers using the dotted-thousands,
// comma-decimal convention shown to users (8250.25 -> "8.250,25").
package numfmt

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	thousandSep = "."
	decimalSep  = ","

	// MaxDecimals is the largest precision humanize.FormatFloat supports.
	MaxDecimals = 9

	// maxValue keeps the integer part well inside int64 and float64 exact range.
	maxValue = 1e15
)

var (
	// ErrInvalidArgument is returned by Format for values it refuses to render.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidNumericInput is returned by ParseLocalized when the text is not a number.
	ErrInvalidNumericInput = errors.New("invalid numeric input")
)

// Format renders value with the given number of decimal places.
// Zero renders as "0". A fractional part that rounds to zero is dropped.
// Negative, non-finite and very large values fail with ErrInvalidArgument.
func Format(value float64, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", fmt.Errorf("%w: decimals must be between 0 and %d, got %d", ErrInvalidArgument, MaxDecimals, decimals)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("%w: non-finite value %v", ErrInvalidArgument, value)
	}
	if value < 0 {
		return "", fmt.Errorf("%w: negative value %v", ErrInvalidArgument, value)
	}
	if value >= maxValue {
		return "", fmt.Errorf("%w: value %v too large", ErrInvalidArgument, value)
	}
	if value == 0 {
		return "0", nil
	}

	// "#.###," + one '#' per decimal: '.' groups thousands, ',' marks the
	// decimal separator and the digit count after it sets the precision.
	s := humanize.FormatFloat("#.###,"+strings.Repeat("#", decimals), value)

	if i := strings.LastIndex(s, decimalSep); i >= 0 {
		if strings.Trim(s[i+1:], "0") == "" {
			s = s[:i]
		}
	}
	return s, nil
}

// MustFormat is Format for values already known to be in range.
// It panics on error.
func MustFormat(value float64, decimals int) string {
	s, err := Format(value, decimals)
	if err != nil {
		panic(err)
	}
	return s
}

// plainDecimal is the only shape ParseLocalized accepts: unsigned digits with
// at most one "." or "," decimal separator.
var plainDecimal = regexp.MustCompile(`^(?:[0-9]+(?:[.,][0-9]+)?|[.,][0-9]+)$`)

// ParseLocalized parses free-form numeric text, accepting a comma as the
// decimal separator ("0,05" == "0.05"). Signs, exponents, hex floats,
// thousands separators and names such as "Inf" are rejected.
//
// When the text cannot be parsed, ParseLocalized returns fallback together
// with an error wrapping ErrInvalidNumericInput, so callers can keep going
// with the fallback and still tell the user.
func ParseLocalized(s string, fallback float64) (float64, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return fallback, fmt.Errorf("%w: empty value", ErrInvalidNumericInput)
	}
	if !plainDecimal.MatchString(text) {
		return fallback, fmt.Errorf("%w: %q", ErrInvalidNumericInput, s)
	}
	v, err := strconv.ParseFloat(strings.Replace(text, decimalSep, thousandSep, 1), 64)
	if err != nil {
		return fallback, fmt.Errorf("%w: %q", ErrInvalidNumericInput, s)
	}
	return v, nil
}

// Frequency renders a frequency in Hz with an SI prefix, e.g. "100 kHz".
func Frequency(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + prefix + "Hz"
}
