// Package synth builds the procedural drum and arpeggiator voices. Every
// voice is generated from numbers alone; nothing is sample based.
//
// The engine never owns an output. Each trigger names the Target it plays
// into, so the live mixer and an offline render can share one engine
// without swapping a global destination.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/cbegin/drumsmith-go/internal/pattern"
)

// Voice is a self-terminating sample generator. Sample returns the next
// sample, or done=true once the voice has finished.
type Voice interface {
	Sample() (v float64, done bool)
}

// Target receives voices to be started at an absolute time in seconds.
type Target interface {
	Schedule(at float64, v Voice)
}

// ArpGain is the peak level of an arpeggiator note.
const ArpGain = 0.3

// envelopeFloor is the level every exponential decay ends on.
const envelopeFloor = 0.001

// maxArpTail caps the delay tail of an arpeggiator note.
const maxArpTail = 4.0

var (
	ErrBadParams  = errors.New("invalid voice parameters")
	ErrSampleRate = errors.New("sample rate must be positive")
)

// Engine turns instrument parameters into voices. It is safe for concurrent
// use; the only shared state is the noise generator.
type Engine struct {
	sampleRate int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an engine. Two engines with the same seed produce identical
// noise for the same sequence of triggers.
func New(sampleRate int, seed int64) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSampleRate, sampleRate)
	}
	return &Engine{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// Reseed restarts the noise sequence.
func (e *Engine) Reseed(seed int64) {
	e.mu.Lock()
	e.rng.Seed(seed)
	e.mu.Unlock()
}

// Trigger schedules one drum hit on target at time at.
func (e *Engine) Trigger(target Target, at float64, inst pattern.Instrument, p pattern.VoiceParams) error {
	v, err := e.Voice(inst, p)
	if err != nil {
		return err
	}
	target.Schedule(at, v)
	return nil
}

// Voice builds a drum voice without scheduling it.
func (e *Engine) Voice(inst pattern.Instrument, p pattern.VoiceParams) (Voice, error) {
	if err := checkParams(inst, p); err != nil {
		return nil, err
	}
	sr := float64(e.sampleRate)
	n := e.frames(p.Decay)
	switch inst {
	case pattern.Kick:
		return newKick(sr, n, p), nil
	case pattern.Snare:
		return newSnare(sr, n, p, e.noiseSeed()), nil
	case pattern.Hihat:
		return newHighpassNoise(sr, n, p.Frequency, 8, p.Tone, p.Decay, e.noiseSeed()), nil
	case pattern.Tom:
		return newTom(sr, n, p), nil
	case pattern.Crash:
		return newHighpassNoise(sr, n, p.Frequency, 3, p.Tone*0.8, p.Decay, e.noiseSeed()), nil
	case pattern.Clap:
		return newClap(sr, n, p, e.noiseSeed()), nil
	}
	return nil, fmt.Errorf("%w: %d", pattern.ErrUnknownInstrument, int(inst))
}

// TriggerNote schedules the arpeggiator note at step. A resting step
// schedules nothing. stepSeconds is the step duration of the owning pattern.
func (e *Engine) TriggerNote(target Target, at float64, arp pattern.Arpeggiator, step int, stepSeconds float64) error {
	v, err := e.NoteVoice(arp, step, stepSeconds)
	if err != nil || v == nil {
		return err
	}
	target.Schedule(at, v)
	return nil
}

// NoteVoice builds the arpeggiator voice for step, or nil for a rest.
func (e *Engine) NoteVoice(arp pattern.Arpeggiator, step int, stepSeconds float64) (Voice, error) {
	if step < 0 || step >= pattern.Steps {
		return nil, fmt.Errorf("%w: step %d", ErrBadParams, step)
	}
	if arp.Pattern[step].IsRest() {
		return nil, nil
	}
	if !finite(stepSeconds) || stepSeconds <= 0 {
		return nil, fmt.Errorf("%w: step duration %v", ErrBadParams, stepSeconds)
	}
	if err := arp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return newArpNote(float64(e.sampleRate), arp, arp.NoteFrequency(step), stepSeconds*arp.NoteLength), nil
}

func (e *Engine) frames(seconds float64) int {
	n := int(math.Round(seconds * float64(e.sampleRate)))
	if n < 1 {
		n = 1
	}
	return n
}

// noiseSeed draws the seed of one voice's noise source. Voices generate
// their noise as they play, so a trigger costs the same at any decay.
func (e *Engine) noiseSeed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Int63()
}

func checkParams(inst pattern.Instrument, p pattern.VoiceParams) error {
	if !inst.Valid() {
		return fmt.Errorf("%w: %d", pattern.ErrUnknownInstrument, int(inst))
	}
	for _, f := range []float64{p.Frequency, p.NoiseFrequency, p.Decay, p.Tone} {
		if !finite(f) {
			return fmt.Errorf("%s: %w", inst, pattern.ErrNonFinite)
		}
	}
	if p.Decay <= 0 {
		return fmt.Errorf("%w: %s decay %v", ErrBadParams, inst, p.Decay)
	}
	if p.Frequency <= 0 {
		return fmt.Errorf("%w: %s frequency %v", ErrBadParams, inst, p.Frequency)
	}
	if inst == pattern.Snare && p.NoiseFrequency <= 0 {
		return fmt.Errorf("%w: snare noise frequency %v", ErrBadParams, p.NoiseFrequency)
	}
	if p.Tone < 0 {
		return fmt.Errorf("%w: %s tone %v", ErrBadParams, inst, p.Tone)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
