package effects

import "math"

// FeedbackDelay is a mono delay line with a feedback loop. The output is
// the dry input plus the delayed signal, and the delayed signal is fed back
// into the line scaled by the feedback gain:
//
//	line <- in + delayed*feedback
//	out   = in + delayed
type FeedbackDelay struct {
	buf      []float64
	pos      int
	feedback float64
}

// NewFeedbackDelay creates a delay of delaySec seconds. feedback is clamped
// to [0, 0.95] so the loop always decays.
func NewFeedbackDelay(sampleRate int, delaySec, feedback float64) *FeedbackDelay {
	samples := int(math.Round(delaySec * float64(sampleRate)))
	if samples < 1 {
		samples = 1
	}
	return &FeedbackDelay{
		buf:      make([]float64, samples),
		feedback: clamp(feedback, 0, 0.95),
	}
}

func (d *FeedbackDelay) Process(in float64) float64 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.feedback
	d.pos++
	if d.pos >= len(d.buf) {
		d.pos = 0
	}
	return in + delayed
}

// Len returns the delay length in samples.
func (d *FeedbackDelay) Len() int { return len(d.buf) }

// Feedback returns the effective (clamped) feedback gain.
func (d *FeedbackDelay) Feedback() float64 { return d.feedback }

func (d *FeedbackDelay) Reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.pos = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
