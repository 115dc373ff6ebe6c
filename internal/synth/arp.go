package synth

import (
	"math"

	"github.com/cbegin/drumsmith-go/internal/effects"
	"github.com/cbegin/drumsmith-go/internal/osc"
	"github.com/cbegin/drumsmith-go/internal/pattern"
)

// arpVoice is one arpeggiator note: oscillator -> lowpass -> decaying gain,
// with the gain output sent both dry and through a feedback delay.
type arpVoice struct {
	i, n     int // n is the length of the note itself
	total    int // note plus delay tail
	sr       float64
	gain     expEnv
	osc      *osc.Oscillator
	filter   *effects.Biquad
	delay    *effects.FeedbackDelay
}

func newArpNote(sr float64, arp pattern.Arpeggiator, freq, duration float64) *arpVoice {
	n := int(math.Round(duration * sr))
	if n < 1 {
		n = 1
	}
	delay := effects.NewFeedbackDelay(int(sr), arp.DelayTime, arp.Feedback)
	return &arpVoice{
		n:        n,
		total:    n + tailFrames(delay.Len(), delay.Feedback(), int(maxArpTail*sr)-n),
		sr:       sr,
		gain:     newExpEnv(ArpGain, envelopeFloor, duration, sr),
		osc:      osc.New(arp.Waveform, freq),
		filter:   effects.NewBiquad(effects.Lowpass, sr, arp.Cutoff, arp.Resonance),
		delay:    delay,
	}
}

// tailFrames returns how long the echoes of a note take to fall below
// -60dB, limited to max.
func tailFrames(delayLen int, feedback float64, max int) int {
	repeats := 1
	if feedback > 0 {
		repeats += int(math.Ceil(math.Log(envelopeFloor) / math.Log(feedback)))
	}
	tail := delayLen * repeats
	if tail > max {
		tail = max
	}
	if tail < 0 {
		tail = 0
	}
	return tail
}

func (a *arpVoice) Sample() (float64, bool) {
	if a.i >= a.total {
		return 0, true
	}
	var dry float64
	if a.i < a.n {
		dry = a.filter.Process(a.osc.Sample(a.sr)) * a.gain.next()
	}
	a.i++
	return a.delay.Process(dry), false
}
