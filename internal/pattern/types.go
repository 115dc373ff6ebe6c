package pattern

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/drumsmith-go/internal/osc"
)

// Steps is the number of sixteenth-note steps in every pattern.
const Steps = 16

const (
	MinTempo     = 60
	MaxTempo     = 180
	MinSwing     = 0
	MaxSwing     = 100
	MinOctave    = -2
	MaxOctave    = 2
	DefaultTempo = 120
	DefaultSwing = 50
)

// Instrument identifies one of the six percussive voices. The numeric order
// is also the order in which simultaneous steps are triggered.
type Instrument int

const (
	Kick Instrument = iota
	Snare
	Hihat
	Tom
	Crash
	Clap
	NumInstruments
)

var instrumentNames = [...]string{"kick", "snare", "hihat", "tom", "crash", "clap"}

func (i Instrument) String() string {
	if i < 0 || i >= NumInstruments {
		return fmt.Sprintf("instrument(%d)", int(i))
	}
	return instrumentNames[i]
}

// Valid reports whether i names a defined instrument.
func (i Instrument) Valid() bool {
	return i >= Kick && i < NumInstruments
}

// Noisy reports whether the voice is built from a noise source.
func (i Instrument) Noisy() bool {
	switch i {
	case Snare, Hihat, Crash, Clap:
		return true
	}
	return false
}

// Instruments returns all instruments in trigger order.
func Instruments() []Instrument {
	out := make([]Instrument, NumInstruments)
	for i := range out {
		out[i] = Instrument(i)
	}
	return out
}

func ParseInstrument(name string) (Instrument, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range instrumentNames {
		if n == name {
			return Instrument(i), nil
		}
	}
	return Kick, fmt.Errorf("%w: %q", ErrUnknownInstrument, name)
}

// VoiceParams are the synthesis knobs of one instrument. NoiseFrequency is
// only read by the snare.
type VoiceParams struct {
	Frequency      float64
	NoiseFrequency float64
	Decay          float64 // seconds
	Tone           float64 // peak gain
}

// DefaultVoiceParams returns the factory knob settings for inst.
func DefaultVoiceParams(inst Instrument) VoiceParams {
	switch inst {
	case Kick:
		return VoiceParams{Frequency: 50, Decay: 0.5, Tone: 0.7}
	case Snare:
		return VoiceParams{Frequency: 200, NoiseFrequency: 1000, Decay: 0.2, Tone: 0.7}
	case Hihat:
		return VoiceParams{Frequency: 2000, Decay: 0.1, Tone: 0.7}
	case Tom:
		return VoiceParams{Frequency: 100, Decay: 0.3, Tone: 0.7}
	case Crash:
		return VoiceParams{Frequency: 3000, Decay: 1, Tone: 0.7}
	case Clap:
		return VoiceParams{Frequency: 1500, Decay: 0.2, Tone: 0.7}
	}
	return VoiceParams{}
}

// Validate checks the knob ranges for inst.
func (v VoiceParams) Validate(inst Instrument) error {
	if !inst.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownInstrument, int(inst))
	}
	for _, f := range []float64{v.Frequency, v.NoiseFrequency, v.Decay, v.Tone} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%s: %w", inst, ErrNonFinite)
		}
	}
	maxFreq := 2000.0
	if inst.Noisy() {
		maxFreq = 10000
	}
	if v.Frequency < 20 || v.Frequency > maxFreq {
		return fmt.Errorf("%s: frequency %.2f outside [20, %.0f]", inst, v.Frequency, maxFreq)
	}
	if inst == Snare && (v.NoiseFrequency < 200 || v.NoiseFrequency > 10000) {
		return fmt.Errorf("%s: noise frequency %.2f outside [200, 10000]", inst, v.NoiseFrequency)
	}
	if v.Decay < 0.01 || v.Decay > 2 {
		return fmt.Errorf("%s: decay %.3f outside [0.01, 2]", inst, v.Decay)
	}
	if v.Tone < 0 || v.Tone > 1 {
		return fmt.Errorf("%s: tone %.3f outside [0, 1]", inst, v.Tone)
	}
	return nil
}

// StepSequence holds the on/off grid for every instrument. Its shape makes
// the 16-step length invariant impossible to break.
type StepSequence [NumInstruments][Steps]bool

func (s *StepSequence) Active(inst Instrument, step int) bool {
	if !inst.Valid() || step < 0 || step >= Steps {
		return false
	}
	return s[inst][step]
}

func (s *StepSequence) Set(inst Instrument, step int, on bool) {
	if !inst.Valid() || step < 0 || step >= Steps {
		return
	}
	s[inst][step] = on
}

func (s *StepSequence) Toggle(inst Instrument, step int) {
	s.Set(inst, step, !s.Active(inst, step))
}

// ActiveAt returns the instruments sounding at step, in trigger order.
func (s *StepSequence) ActiveAt(step int) []Instrument {
	var out []Instrument
	for i := Kick; i < NumInstruments; i++ {
		if s.Active(i, step) {
			out = append(out, i)
		}
	}
	return out
}

// Note is an arpeggiator note index 0..15, or Rest.
type Note int8

const Rest Note = -1

// Notes in the arpeggiator range, C3 through D#4.
var noteFrequencies = [16]float64{
	130.81, 138.59, 146.83, 155.56, 164.81, 174.61, 185.00, 196.00,
	207.65, 220.00, 233.08, 246.94, 261.63, 277.18, 293.66, 311.13,
}

var noteNames = [16]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B", "C", "C#", "D", "D#"}

func (n Note) IsRest() bool { return n < 0 || n > 15 }

// Frequency returns the base frequency before octave shift, or 0 for a rest.
func (n Note) Frequency() float64 {
	if n.IsRest() {
		return 0
	}
	return noteFrequencies[n]
}

func (n Note) String() string {
	if n.IsRest() {
		return "-"
	}
	return noteNames[n]
}

// Arpeggiator is the monophonic melodic voice of a pattern.
type Arpeggiator struct {
	Waveform    osc.Waveform
	OctaveShift int
	Pattern     [Steps]Note
	NoteLength  float64 // multiple of the step duration
	DelayTime   float64 // seconds
	Feedback    float64
	Cutoff      float64 // Hz
	Resonance   float64
}

// DefaultArpeggiator returns a sawtooth arp with every step resting.
func DefaultArpeggiator() Arpeggiator {
	a := Arpeggiator{
		Waveform:   osc.Sawtooth,
		NoteLength: 1.0,
		DelayTime:  0.3,
		Feedback:   0.3,
		Cutoff:     2000,
		Resonance:  1,
	}
	for i := range a.Pattern {
		a.Pattern[i] = Rest
	}
	return a
}

// ShiftOctave moves the octave by delta, clamped to [-2, 2].
func (a *Arpeggiator) ShiftOctave(delta int) {
	a.OctaveShift = clampInt(a.OctaveShift+delta, MinOctave, MaxOctave)
}

// StepNote moves the note at step by delta, wrapping within 0..15. A resting
// step starts from G (7).
func (a *Arpeggiator) StepNote(step, delta int) {
	if step < 0 || step >= Steps {
		return
	}
	n := a.Pattern[step]
	if n.IsRest() {
		n = 7
	}
	v := (int(n) + delta) % 16
	if v < 0 {
		v += 16
	}
	a.Pattern[step] = Note(v)
}

// NoteFrequency returns the shifted frequency of the note at step, or 0.
func (a *Arpeggiator) NoteFrequency(step int) float64 {
	if step < 0 || step >= Steps {
		return 0
	}
	return a.Pattern[step].Frequency() * math.Pow(2, float64(a.OctaveShift))
}

func (a *Arpeggiator) Validate() error {
	if !a.Waveform.Valid() {
		return fmt.Errorf("arpeggiator: invalid waveform %d", int(a.Waveform))
	}
	if a.OctaveShift < MinOctave || a.OctaveShift > MaxOctave {
		return fmt.Errorf("arpeggiator: %w: %d", ErrOctaveRange, a.OctaveShift)
	}
	for _, f := range []float64{a.NoteLength, a.DelayTime, a.Feedback, a.Cutoff, a.Resonance} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("arpeggiator: %w", ErrNonFinite)
		}
	}
	if a.NoteLength <= 0 {
		return fmt.Errorf("arpeggiator: note length %.3f must be positive", a.NoteLength)
	}
	if a.DelayTime < 0 || a.DelayTime > 1 {
		return fmt.Errorf("arpeggiator: delay time %.3f outside [0, 1]", a.DelayTime)
	}
	if a.Feedback < 0 || a.Feedback >= 1 {
		return fmt.Errorf("arpeggiator: feedback %.3f outside [0, 1)", a.Feedback)
	}
	if a.Cutoff < 20 || a.Cutoff > 20000 {
		return fmt.Errorf("arpeggiator: cutoff %.1f outside [20, 20000]", a.Cutoff)
	}
	if a.Resonance < 0 || a.Resonance > 30 {
		return fmt.Errorf("arpeggiator: resonance %.2f outside [0, 30]", a.Resonance)
	}
	return nil
}

// Pattern is a snapshot of everything needed to play one bar.
type Pattern struct {
	ID       uint64
	Slot     int // display slot number, 1-based
	Name     string
	Tempo    float64 // beats per minute
	Swing    float64 // percent
	Sequence StepSequence
	Voices   [NumInstruments]VoiceParams
	Arp      Arpeggiator
}

// New returns an empty pattern with factory voices.
func New() Pattern {
	p := Pattern{
		Tempo: DefaultTempo,
		Swing: DefaultSwing,
		Arp:   DefaultArpeggiator(),
	}
	for _, inst := range Instruments() {
		p.Voices[inst] = DefaultVoiceParams(inst)
	}
	return p
}

// Validate checks every pattern invariant.
func (p *Pattern) Validate() error {
	if math.IsNaN(p.Tempo) || p.Tempo < MinTempo || p.Tempo > MaxTempo {
		return fmt.Errorf("%w: %v", ErrTempoRange, p.Tempo)
	}
	if math.IsNaN(p.Swing) || p.Swing < MinSwing || p.Swing > MaxSwing {
		return fmt.Errorf("%w: %v", ErrSwingRange, p.Swing)
	}
	for _, inst := range Instruments() {
		if err := p.Voices[inst].Validate(inst); err != nil {
			return err
		}
	}
	return p.Arp.Validate()
}

var lastID atomic.Uint64

// NextID returns a process-unique pattern identity.
func NextID() uint64 {
	return lastID.Add(1)
}

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrNonFinite         = errors.New("non-finite parameter")
	ErrTempoRange        = errors.New("tempo outside [60, 180]")
	ErrSwingRange        = errors.New("swing outside [0, 100]")
	ErrOctaveRange       = errors.New("octave shift outside [-2, 2]")
	ErrBankFull          = errors.New("pattern bank is full")
	ErrSlotRange         = errors.New("slot index out of range")
	ErrSlotEmpty         = errors.New("slot is empty")
	ErrIndexRange        = errors.New("arrangement index out of range")
	ErrNotFound          = errors.New("pattern not found")
)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
