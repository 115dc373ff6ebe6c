// Package audio mixes scheduled voices into stereo frames and streams them
// to the sound card.
package audio

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/cbegin/drumsmith-go/internal/effects"
	"github.com/cbegin/drumsmith-go/internal/synth"
)

// Channels is the number of output channels. Voices are mono and are sent
// to both.
const Channels = 2

// renderBlock is how many frames Render mixes between context checks.
const renderBlock = 1024

type scheduledVoice struct {
	start int64
	seq   uint64
	voice synth.Voice
}

// Mixer is a synth.Target with its own sample clock. Voices are started on
// the exact frame their time maps to; the clock only advances as frames
// are pulled through Process or Render.
type Mixer struct {
	sampleRate int

	mu      sync.Mutex
	frame   int64
	seq     uint64
	pending []scheduledVoice // sorted by start, then seq
	active  []synth.Voice
	master  effects.Effector
	volume  *effects.Volume
}

// NewMixer returns a mixer at full volume with no master effects.
func NewMixer(sampleRate int) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		volume:     effects.NewVolume(1),
	}
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// Schedule starts v at the frame nearest to at seconds. Times already in
// the past start on the next frame mixed.
func (m *Mixer) Schedule(at float64, v synth.Voice) {
	if v == nil {
		return
	}
	start := int64(math.Round(at * float64(m.sampleRate)))
	m.mu.Lock()
	defer m.mu.Unlock()
	if start < m.frame {
		start = m.frame
	}
	m.seq++
	sv := scheduledVoice{start: start, seq: m.seq, voice: v}
	i := sort.Search(len(m.pending), func(i int) bool {
		return m.pending[i].start > start
	})
	m.pending = append(m.pending, scheduledVoice{})
	copy(m.pending[i+1:], m.pending[i:])
	m.pending[i] = sv
}

// Now returns the audio clock: frames mixed so far, in seconds.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame) / float64(m.sampleRate)
}

// Frame returns the number of frames mixed so far.
func (m *Mixer) Frame() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// Voices returns the number of playing and pending voices.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active) + len(m.pending)
}

// SetMaster installs a master-bus effect, or removes it when e is nil.
func (m *Mixer) SetMaster(e effects.Effector) {
	m.mu.Lock()
	m.master = e
	m.mu.Unlock()
}

// SetVolume sets the master gain in [0, 1].
func (m *Mixer) SetVolume(v float64) { m.volume.Set(v) }

func (m *Mixer) Volume() float64 { return m.volume.Gain() }

// Clear drops every playing and pending voice. The clock keeps its value.
func (m *Mixer) Clear() {
	m.mu.Lock()
	m.pending = nil
	m.active = nil
	if m.master != nil {
		m.master.Reset()
	}
	m.mu.Unlock()
}

// Process fills dst with interleaved stereo frames.
func (m *Mixer) Process(dst []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i+1 < len(dst); i += Channels {
		dst[i], dst[i+1] = m.nextFrame()
	}
}

// Render mixes frames frames into planar stereo buffers. It stops early
// with the context's error if ctx is done.
func (m *Mixer) Render(ctx context.Context, frames int) ([][]float32, error) {
	out := make([][]float32, Channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for base := 0; base < frames; base += renderBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := base + renderBlock
		if end > frames {
			end = frames
		}
		m.mu.Lock()
		for i := base; i < end; i++ {
			out[0][i], out[1][i] = m.nextFrame()
		}
		m.mu.Unlock()
	}
	return out, nil
}

// nextFrame mixes one frame. Callers hold m.mu.
func (m *Mixer) nextFrame() (float32, float32) {
	for len(m.pending) > 0 && m.pending[0].start <= m.frame {
		m.active = append(m.active, m.pending[0].voice)
		m.pending[0] = scheduledVoice{}
		m.pending = m.pending[1:]
	}

	var sum float64
	live := m.active[:0]
	for _, v := range m.active {
		s, done := v.Sample()
		if done {
			continue
		}
		sum += s
		live = append(live, v)
	}
	for i := len(live); i < len(m.active); i++ {
		m.active[i] = nil
	}
	m.active = live
	m.frame++

	l, r := float32(sum), float32(sum)
	if m.master != nil {
		l, r = m.master.Process(l, r)
	}
	return m.volume.Process(l, r)
}
