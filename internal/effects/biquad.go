package effects

import "math"

// FilterType selects the biquad response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

// Biquad is a second-order IIR filter using the Web Audio coefficient
// formulas: for lowpass and highpass q is a resonance in dB, for bandpass it
// is the linear quality factor.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewBiquad designs a filter at freq Hz.
func NewBiquad(kind FilterType, sampleRate, freq, q float64) *Biquad {
	f := &Biquad{}
	f.Set(kind, sampleRate, freq, q)
	return f
}

// Set redesigns the filter without clearing its state.
func (f *Biquad) Set(kind FilterType, sampleRate, freq, q float64) {
	nyquist := sampleRate / 2
	if freq >= nyquist {
		// Web Audio: a lowpass at Nyquist passes everything, a highpass
		// blocks everything.
		switch kind {
		case Lowpass:
			f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		default:
			f.b0, f.b1, f.b2, f.a1, f.a2 = 0, 0, 0, 0, 0
		}
		return
	}
	if freq <= 0 {
		switch kind {
		case Highpass:
			f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		default:
			f.b0, f.b1, f.b2, f.a1, f.a2 = 0, 0, 0, 0, 0
		}
		return
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cosw := math.Cos(w0)
	sinw := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case Highpass:
		alpha := sinw / (2 * math.Pow(10, q/20))
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case Bandpass:
		if q <= 0 {
			q = 1e-4
		}
		alpha := sinw / (2 * q)
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	default: // Lowpass
		alpha := sinw / (2 * math.Pow(10, q/20))
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	}
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
}

// Process filters one sample (direct form I).
func (f *Biquad) Process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2 = f.x1
	f.x1 = x
	f.y2 = f.y1
	f.y1 = y
	return y
}

func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
