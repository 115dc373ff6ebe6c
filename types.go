// Package drumsmith is a procedural drum machine: six synthesized drum
// voices and a monophonic arpeggiator on a 16-step grid, a live player with
// a swing-aware clock, and an offline renderer that bounces an arrangement
// of patterns to a 16-bit WAV file.
package drumsmith

import (
	"github.com/cbegin/drumsmith-go/internal/osc"
	"github.com/cbegin/drumsmith-go/internal/pattern"
)

type (
	Pattern      = pattern.Pattern
	Instrument   = pattern.Instrument
	VoiceParams  = pattern.VoiceParams
	StepSequence = pattern.StepSequence
	Arpeggiator  = pattern.Arpeggiator
	Note         = pattern.Note
	Bank         = pattern.Bank
	Arrangement  = pattern.Arrangement
	Waveform     = osc.Waveform
)

const (
	Kick  = pattern.Kick
	Snare = pattern.Snare
	Hihat = pattern.Hihat
	Tom   = pattern.Tom
	Crash = pattern.Crash
	Clap  = pattern.Clap

	Sine     = osc.Sine
	Square   = osc.Square
	Sawtooth = osc.Sawtooth
	Triangle = osc.Triangle

	Rest = pattern.Rest

	Steps    = pattern.Steps
	BankSize = pattern.BankSize
)

// NewPattern returns an empty pattern with default voices: 120 BPM, 50%
// swing, every arpeggiator step resting.
func NewPattern() Pattern { return pattern.New() }

// NewArrangement copies patterns into a new timeline.
func NewArrangement(patterns ...Pattern) *Arrangement {
	return pattern.NewArrangement(patterns...)
}

// DefaultVoiceParams returns the factory knob settings for inst.
func DefaultVoiceParams(inst Instrument) VoiceParams {
	return pattern.DefaultVoiceParams(inst)
}
