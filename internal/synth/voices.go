package synth

import (
	"math/rand"

	"github.com/cbegin/drumsmith-go/internal/effects"
	"github.com/cbegin/drumsmith-go/internal/osc"
	"github.com/cbegin/drumsmith-go/internal/pattern"
)

// Web Audio's default BiquadFilterNode Q.
const defaultQ = 1

// kickVoice is a sine swept exponentially from the base frequency down to
// 1Hz, lowpassed at twice the base frequency.
type kickVoice struct {
	i, n   int
	sr     float64
	pitch  expEnv
	gain   expEnv
	osc    *osc.Oscillator
	filter *effects.Biquad
}

func newKick(sr float64, n int, p pattern.VoiceParams) *kickVoice {
	return &kickVoice{
		n:      n,
		sr:     sr,
		pitch:  newExpEnv(p.Frequency, 1, p.Decay, sr),
		gain:   newExpEnv(p.Tone, envelopeFloor, p.Decay, sr),
		osc:    osc.New(osc.Sine, p.Frequency),
		filter: effects.NewBiquad(effects.Lowpass, sr, p.Frequency*2, defaultQ),
	}
}

func (k *kickVoice) Sample() (float64, bool) {
	if k.i >= k.n {
		return 0, true
	}
	k.osc.SetFrequency(k.pitch.next())
	v := k.filter.Process(k.osc.Sample(k.sr)) * k.gain.next()
	k.i++
	return v, false
}

// tomVoice is a sine swept down one octave with no filter.
type tomVoice struct {
	i, n  int
	sr    float64
	pitch expEnv
	gain  expEnv
	osc   *osc.Oscillator
}

func newTom(sr float64, n int, p pattern.VoiceParams) *tomVoice {
	return &tomVoice{
		n:     n,
		sr:    sr,
		pitch: newExpEnv(p.Frequency, p.Frequency/2, p.Decay, sr),
		gain:  newExpEnv(p.Tone, envelopeFloor, p.Decay, sr),
		osc:   osc.New(osc.Sine, p.Frequency),
	}
}

func (v *tomVoice) Sample() (float64, bool) {
	if v.i >= v.n {
		return 0, true
	}
	v.osc.SetFrequency(v.pitch.next())
	out := v.osc.Sample(v.sr) * v.gain.next()
	v.i++
	return out, false
}

// noise is white noise in [-1, 1) drawn on demand from a per-voice source.
type noise struct {
	rng *rand.Rand
}

func newNoise(seed int64) noise {
	return noise{rng: rand.New(rand.NewSource(seed))}
}

func (n noise) next() float64 {
	return n.rng.Float64()*2 - 1
}

// snareVoice mixes a fixed-pitch triangle body with bandpassed noise. The
// body dies away over 70% of the decay, the noise at half level over all
// of it.
type snareVoice struct {
	i, n      int
	sr        float64
	bodyGain  expEnv
	noiseGain expEnv
	osc       *osc.Oscillator
	noise     noise
	filter    *effects.Biquad
}

func newSnare(sr float64, n int, p pattern.VoiceParams, seed int64) *snareVoice {
	return &snareVoice{
		n:         n,
		sr:        sr,
		bodyGain:  newExpEnv(p.Tone, envelopeFloor, p.Decay*0.7, sr),
		noiseGain: newExpEnv(p.Tone*0.5, envelopeFloor, p.Decay, sr),
		osc:       osc.New(osc.Triangle, p.Frequency),
		noise:     newNoise(seed),
		filter:    effects.NewBiquad(effects.Bandpass, sr, p.NoiseFrequency, 1),
	}
}

func (s *snareVoice) Sample() (float64, bool) {
	if s.i >= s.n {
		return 0, true
	}
	body := s.osc.Sample(s.sr) * s.bodyGain.next()
	rattle := s.filter.Process(s.noise.next()) * s.noiseGain.next()
	s.i++
	return body + rattle, false
}

// noiseVoice is filtered white noise under an exponential decay. Hihat and
// crash differ only in resonance and level.
type noiseVoice struct {
	i, n   int
	gain   expEnv
	noise  noise
	filter *effects.Biquad
}

func newHighpassNoise(sr float64, n int, freq, q, level, decay float64, seed int64) *noiseVoice {
	return &noiseVoice{
		n:      n,
		gain:   newExpEnv(level, envelopeFloor, decay, sr),
		noise:  newNoise(seed),
		filter: effects.NewBiquad(effects.Highpass, sr, freq, q),
	}
}

func (v *noiseVoice) Sample() (float64, bool) {
	if v.i >= v.n {
		return 0, true
	}
	out := v.filter.Process(v.noise.next()) * v.gain.next()
	v.i++
	return out, false
}

// clapVoice is bandpassed noise shaped by a multi-burst envelope.
type clapVoice struct {
	i, n   int
	sr     float64
	decay  float64
	tone   float64
	tail   expEnv
	noise  noise
	filter *effects.Biquad
}

func newClap(sr float64, n int, p pattern.VoiceParams, seed int64) *clapVoice {
	return &clapVoice{
		n:      n,
		sr:     sr,
		decay:  p.Decay,
		tone:   p.Tone,
		tail:   newExpEnv(p.Tone*0.8, envelopeFloor, p.Decay-clapBursts, sr),
		noise:  newNoise(seed),
		filter: effects.NewBiquad(effects.Bandpass, sr, p.Frequency, 2),
	}
}

func (c *clapVoice) Sample() (float64, bool) {
	if c.i >= c.n {
		return 0, true
	}
	var gain float64
	if t := float64(c.i) / c.sr; t < clapBursts || c.decay <= clapBursts {
		gain = clapEnvelope(t, c.tone, c.decay)
	} else {
		gain = c.tail.next()
	}
	out := c.filter.Process(c.noise.next()) * gain
	c.i++
	return out, false
}
