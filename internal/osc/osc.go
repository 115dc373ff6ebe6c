package osc

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform accepts the names returned by String plus "saw".
func ParseWaveform(name string) (Waveform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "saw" {
		return Sawtooth, nil
	}
	for i, n := range waveformNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", name)
}

// Valid reports whether w is one of the defined shapes.
func (w Waveform) Valid() bool {
	return w >= Sine && w <= Triangle
}

// Oscillator is a phase-accumulating audio-rate oscillator. The frequency
// may be changed between samples, which is how pitch sweeps are rendered.
type Oscillator struct {
	waveform Waveform
	freq     float64 // Hz
	phase    float64 // current phase [0, 1)
}

// New returns an oscillator at phase 0.
func New(waveform Waveform, freq float64) *Oscillator {
	if !waveform.Valid() {
		waveform = Sine
	}
	return &Oscillator{waveform: waveform, freq: freq}
}

// SetFrequency changes the frequency from the next sample on.
func (o *Oscillator) SetFrequency(freq float64) {
	o.freq = freq
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.freq
}

// Sample returns the value at the current phase in [-1, 1] and advances
// the phase by one sample.
func (o *Oscillator) Sample(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	var v float64
	switch o.waveform {
	case Square:
		if o.phase < 0.5 {
			v = 1.0
		} else {
			v = -1.0
		}
	case Sawtooth:
		v = 2.0*o.phase - 1.0
	case Triangle:
		// Quarter-cycle shift so the wave starts at zero and rises, like sine.
		p := o.phase + 0.25
		if p >= 1.0 {
			p -= 1.0
		}
		if p < 0.5 {
			v = 4.0*p - 1.0
		} else {
			v = 3.0 - 4.0*p
		}
	default: // Sine
		v = math.Sin(2 * math.Pi * o.phase)
	}

	o.phase += o.freq / sampleRate
	if o.phase >= 1.0 || o.phase < 0 {
		o.phase -= math.Floor(o.phase)
	}
	return v
}

// Reset zeros the phase.
func (o *Oscillator) Reset() {
	o.phase = 0
}
