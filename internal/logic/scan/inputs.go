package scan

import "fmt"

// PulseFrequency is the laser pulse repetition rate in Hz.
// The VZ-400 only offers two rates.
type PulseFrequency int

const (
	Freq100kHz PulseFrequency = 100_000
	Freq300kHz PulseFrequency = 300_000
)

// Frequencies lists the supported pulse frequencies in display order.
var Frequencies = []PulseFrequency{Freq100kHz, Freq300kHz}

// IsValid reports whether f is one of the supported pulse frequencies.
func (f PulseFrequency) IsValid() bool {
	return f == Freq100kHz || f == Freq300kHz
}

// Hz returns the frequency as a float64 in Hz.
func (f PulseFrequency) Hz() float64 {
	return float64(f)
}

func (f PulseFrequency) String() string {
	return fmt.Sprintf("%d Hz", int(f))
}

// Input bounds, as accepted by the scanner's rectangular FOV pattern.
const (
	PhiMinDeg          = 0
	PhiMaxDeg          = 360
	ThetaMinDeg        = 30
	ThetaMaxDeg        = 130
	MinIncrementDeg    = 0.0024
	MaxPhiIncrementDeg = 0.5
	MaxThetaIncrement  = 0.288

	// IncrementTolerance is the largest difference between the two increments
	// that still yields a uniform point cloud.
	IncrementTolerance = 1e-4
)

// Inputs holds one snapshot of the acquisition parameters.
// Angles are in degrees. Start/stop angles are whole degrees.
type Inputs struct {
	PhiStart       int            `json:"phi_start" yaml:"phi_start"`
	PhiStop        int            `json:"phi_stop" yaml:"phi_stop"`
	PhiIncrement   float64        `json:"phi_increment" yaml:"phi_increment"`
	ThetaStart     int            `json:"theta_start" yaml:"theta_start"`
	ThetaStop      int            `json:"theta_stop" yaml:"theta_stop"`
	ThetaIncrement float64        `json:"theta_increment" yaml:"theta_increment"`
	PulseFrequency PulseFrequency `json:"pulse_frequency" yaml:"pulse_frequency"`
}

// DefaultInputs returns the values the calculator starts with.
func DefaultInputs() Inputs {
	return Inputs{
		PhiStart:       0,
		PhiStop:        180,
		PhiIncrement:   0.05,
		ThetaStart:     30,
		ThetaStop:      100,
		ThetaIncrement: 0.05,
		PulseFrequency: Freq100kHz,
	}
}

// PhiTotal returns the horizontal range in degrees (stop - start).
func (in Inputs) PhiTotal() float64 {
	return float64(in.PhiStop - in.PhiStart)
}

// ThetaTotal returns the vertical range in degrees (stop - start).
func (in Inputs) ThetaTotal() float64 {
	return float64(in.ThetaStop - in.ThetaStart)
}

// WithIncrement returns a copy of in with both increments set to inc.
func (in Inputs) WithIncrement(inc float64) Inputs {
	in.PhiIncrement = inc
	in.ThetaIncrement = inc
	return in
}
