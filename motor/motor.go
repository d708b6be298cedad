// Package motor generates periodic joint drive signals.
package motor

import (
	"errors"
	"fmt"
	"math"
)

// ErrWaveform is returned for waveform codes other than Pulse and Sine.
var ErrWaveform = errors.New("unknown waveform")

// Waveform selects the signal shape.
type Waveform int

const (
	Pulse Waveform = iota // Square wave of +/- amplitude
	Sine
)

func (w Waveform) String() string {
	switch w {
	case Pulse:
		return "pulse"
	case Sine:
		return "sine"
	default:
		return fmt.Sprintf("waveform(%d)", int(w))
	}
}

// Controller is a stateful oscillator. Each call to Next advances the phase
// by the frequency and returns the new output.
type Controller struct {
	waveform Waveform
	amp      float64
	freq     float64
	phase    float64
}

// NewController builds a controller from a decoded waveform code.
func NewController(waveform int, amp, freq float64) (*Controller, error) {
	w := Waveform(waveform)
	if w != Pulse && w != Sine {
		return nil, fmt.Errorf("%w: %d", ErrWaveform, waveform)
	}
	return &Controller{waveform: w, amp: amp, freq: freq}, nil
}

// Next advances the phase and returns the drive value.
func (c *Controller) Next() float64 {
	c.phase += c.freq
	if c.waveform == Sine {
		return c.amp * math.Sin(c.phase)
	}

	m := math.Mod(c.phase, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	if (int(math.Ceil(m))+1)%2 == 0 {
		return c.amp
	}
	return -c.amp
}

func (c *Controller) Waveform() Waveform { return c.waveform }
func (c *Controller) Amp() float64       { return c.amp }
func (c *Controller) Freq() float64      { return c.freq }
func (c *Controller) Phase() float64     { return c.phase }

// Reset returns the phase to zero.
func (c *Controller) Reset() {
	c.phase = 0
}

// Clone returns an independent controller with the same state.
func (c *Controller) Clone() *Controller {
	cp := *c
	return &cp
}

func (c *Controller) String() string {
	return fmt.Sprintf("%s amp=%g freq=%g", c.waveform, c.amp, c.freq)
}

// Bank holds one controller per joint, in joint order.
type Bank []*Controller

// Next advances every controller and returns their outputs.
func (b Bank) Next() []float64 {
	out := make([]float64, len(b))
	for i, c := range b {
		out[i] = c.Next()
	}
	return out
}

// Reset resets every controller.
func (b Bank) Reset() {
	for _, c := range b {
		c.Reset()
	}
}

// Clone deep-copies the bank.
func (b Bank) Clone() Bank {
	if b == nil {
		return nil
	}
	out := make(Bank, len(b))
	for i, c := range b {
		out[i] = c.Clone()
	}
	return out
}
