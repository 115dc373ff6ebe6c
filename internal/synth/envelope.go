package synth

import "math"

// expRamp follows an exponential ramp from v0 to v1 over dur seconds and
// holds v1 afterwards. A ramp that starts at zero or crosses zero holds v0.
func expRamp(v0, v1, t, dur float64) float64 {
	if v0 == 0 || v0*v1 < 0 {
		return v0
	}
	if t <= 0 {
		return v0
	}
	if t >= dur {
		return v1
	}
	return v0 * math.Pow(v1/v0, t/dur)
}

// expEnv steps the same curve as expRamp one sample at a time with a
// constant multiplier.
type expEnv struct {
	v, mul, end float64
	n           float64 // ramp length in samples
	i           int
	hold        bool
}

func newExpEnv(v0, v1, dur, sampleRate float64) expEnv {
	e := expEnv{v: v0, end: v1, n: dur * sampleRate, mul: 1}
	if v0 == 0 || v0*v1 < 0 {
		e.hold = true
		return e
	}
	if e.n > 0 {
		e.mul = math.Pow(v1/v0, 1/e.n)
	}
	return e
}

// next returns the value at the current sample and advances.
func (e *expEnv) next() float64 {
	i := e.i
	e.i++
	if e.hold {
		return e.v
	}
	if i > 0 && float64(i) >= e.n {
		return e.end
	}
	v := e.v
	e.v *= e.mul
	return v
}

// linRamp interpolates linearly from v0 to v1 over dur seconds.
func linRamp(v0, v1, t, dur float64) float64 {
	if t <= 0 {
		return v0
	}
	if t >= dur {
		return v1
	}
	return v0 + (v1-v0)*t/dur
}

// clapBursts is the length of the clap's three opening bursts, in seconds.
const clapBursts = 0.03

// clapEnvelope is three quick bursts followed by an exponential decay:
// 0 -> tone at 10ms, -> 0 at 20ms, -> 0.8*tone at 30ms, then down to the
// floor at decay.
func clapEnvelope(t, tone, decay float64) float64 {
	switch {
	case t < 0.01:
		return linRamp(0, tone, t, 0.01)
	case t < 0.02:
		return linRamp(tone, 0, t-0.01, 0.01)
	case t < 0.03:
		return linRamp(0, tone*0.8, t-0.02, 0.01)
	}
	if decay <= clapBursts {
		return tone * 0.8
	}
	return expRamp(tone*0.8, envelopeFloor, t-clapBursts, decay-clapBursts)
}
