// Package project reads and writes the YAML documents the command line
// works with: a bank of patterns plus an arrangement of bank slots.
package project

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/cbegin/drumsmith-go/internal/osc"
	"github.com/cbegin/drumsmith-go/internal/pattern"
)

// Document is the on-disk form.
type Document struct {
	Patterns []PatternDoc `yaml:"patterns"`
	// Arrangement lists 1-based bank slots in play order.
	Arrangement []int `yaml:"arrangement,flow"`
}

type PatternDoc struct {
	Slot   int                 `yaml:"slot"`
	Name   string              `yaml:"name,omitempty"`
	Tempo  float64             `yaml:"tempo,omitempty"`
	Swing  *float64            `yaml:"swing,omitempty"`
	Steps  map[string]string   `yaml:"steps,omitempty"`
	Voices map[string]VoiceDoc `yaml:"voices,omitempty"`
	Arp    *ArpDoc             `yaml:"arp,omitempty"`
}

// VoiceDoc overrides the default parameters of one instrument. Missing
// fields keep their defaults.
type VoiceDoc struct {
	Frequency      *float64 `yaml:"frequency,omitempty"`
	NoiseFrequency *float64 `yaml:"noiseFrequency,omitempty"`
	Decay          *float64 `yaml:"decay,omitempty"`
	Tone           *float64 `yaml:"tone,omitempty"`
}

type ArpDoc struct {
	Waveform   string   `yaml:"waveform,omitempty"`
	Octave     int      `yaml:"octave,omitempty"`
	Notes      []*int   `yaml:"notes,flow"`
	NoteLength *float64 `yaml:"noteLength,omitempty"`
	Delay      *float64 `yaml:"delay,omitempty"`
	Feedback   *float64 `yaml:"feedback,omitempty"`
	Cutoff     *float64 `yaml:"cutoff,omitempty"`
	Resonance  *float64 `yaml:"resonance,omitempty"`
}

// Project is a decoded document.
type Project struct {
	Bank        *pattern.Bank
	Arrangement *pattern.Arrangement
}

var ErrSteps = errors.New("step row must have 16 steps")

// Decode parses and validates a document. Arrangement entries are copies
// of their bank patterns with fresh identities.
func Decode(data []byte) (*Project, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	bank := &pattern.Bank{}
	for i, pd := range doc.Patterns {
		p, err := pd.pattern()
		if err != nil {
			return nil, fmt.Errorf("project: pattern %d: %w", i+1, err)
		}
		if pd.Slot < 1 || pd.Slot > pattern.BankSize {
			return nil, fmt.Errorf("project: pattern %d: %w: slot %d", i+1, pattern.ErrSlotRange, pd.Slot)
		}
		if _, err := bank.Save(pd.Slot-1, p); err != nil {
			return nil, fmt.Errorf("project: pattern %d: %w", i+1, err)
		}
		if pd.Name != "" {
			if err := bank.Rename(pd.Slot-1, pd.Name); err != nil {
				return nil, err
			}
		}
	}
	arr := pattern.NewArrangement()
	for _, slot := range doc.Arrangement {
		p, ok := bank.Get(slot - 1)
		if !ok {
			return nil, fmt.Errorf("project: arrangement slot %d: %w", slot, pattern.ErrSlotEmpty)
		}
		arr.Add(p)
	}
	return &Project{Bank: bank, Arrangement: arr}, nil
}

// Load reads a document from path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Encode writes the bank and an arrangement. Arranged patterns are stored
// by the slot they were copied from.
func Encode(bank *pattern.Bank, arr *pattern.Arrangement) ([]byte, error) {
	var doc Document
	for _, p := range bank.Slots() {
		if p == nil {
			continue
		}
		doc.Patterns = append(doc.Patterns, encodePattern(*p))
	}
	if arr != nil {
		for _, p := range arr.Patterns() {
			doc.Arrangement = append(doc.Arrangement, p.Slot)
		}
	}
	return yaml.Marshal(&doc)
}

// Save writes the bank and arrangement to path.
func Save(path string, bank *pattern.Bank, arr *pattern.Arrangement) error {
	data, err := Encode(bank, arr)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (pd PatternDoc) pattern() (pattern.Pattern, error) {
	p := pattern.New()
	if pd.Tempo != 0 {
		p.Tempo = pd.Tempo
	}
	if pd.Swing != nil {
		p.Swing = *pd.Swing
	}
	for name, row := range pd.Steps {
		inst, err := pattern.ParseInstrument(name)
		if err != nil {
			return p, err
		}
		steps, err := ParseSteps(row)
		if err != nil {
			return p, fmt.Errorf("%s: %w", inst, err)
		}
		for s, on := range steps {
			p.Sequence.Set(inst, s, on)
		}
	}
	for name, vd := range pd.Voices {
		inst, err := pattern.ParseInstrument(name)
		if err != nil {
			return p, err
		}
		v := &p.Voices[inst]
		setIf(&v.Frequency, vd.Frequency)
		setIf(&v.NoiseFrequency, vd.NoiseFrequency)
		setIf(&v.Decay, vd.Decay)
		setIf(&v.Tone, vd.Tone)
	}
	if pd.Arp != nil {
		if err := pd.Arp.apply(&p.Arp); err != nil {
			return p, err
		}
	}
	return p, p.Validate()
}

func (ad *ArpDoc) apply(a *pattern.Arpeggiator) error {
	if ad.Waveform != "" {
		w, err := osc.ParseWaveform(ad.Waveform)
		if err != nil {
			return err
		}
		a.Waveform = w
	}
	a.OctaveShift = ad.Octave
	if len(ad.Notes) > pattern.Steps {
		return fmt.Errorf("arp: %d notes, at most %d", len(ad.Notes), pattern.Steps)
	}
	for i, n := range ad.Notes {
		if n == nil {
			continue
		}
		if *n < 0 || *n > 15 {
			return fmt.Errorf("arp: note %d at step %d outside 0..15", *n, i)
		}
		a.Pattern[i] = pattern.Note(*n)
	}
	setIf(&a.NoteLength, ad.NoteLength)
	setIf(&a.DelayTime, ad.Delay)
	setIf(&a.Feedback, ad.Feedback)
	setIf(&a.Cutoff, ad.Cutoff)
	setIf(&a.Resonance, ad.Resonance)
	return nil
}

func encodePattern(p pattern.Pattern) PatternDoc {
	swing := p.Swing
	pd := PatternDoc{
		Slot:   p.Slot,
		Name:   p.Name,
		Tempo:  p.Tempo,
		Swing:  &swing,
		Steps:  map[string]string{},
		Voices: map[string]VoiceDoc{},
	}
	for _, inst := range pattern.Instruments() {
		var row [pattern.Steps]bool
		hit := false
		for s := range row {
			row[s] = p.Sequence.Active(inst, s)
			hit = hit || row[s]
		}
		if hit {
			pd.Steps[inst.String()] = FormatSteps(row)
		}
		v := p.Voices[inst]
		if v != pattern.DefaultVoiceParams(inst) {
			pd.Voices[inst.String()] = VoiceDoc{
				Frequency:      ptr(v.Frequency),
				NoiseFrequency: ptr(v.NoiseFrequency),
				Decay:          ptr(v.Decay),
				Tone:           ptr(v.Tone),
			}
		}
	}
	a := p.Arp
	ad := &ArpDoc{
		Waveform:   a.Waveform.String(),
		Octave:     a.OctaveShift,
		NoteLength: ptr(a.NoteLength),
		Delay:      ptr(a.DelayTime),
		Feedback:   ptr(a.Feedback),
		Cutoff:     ptr(a.Cutoff),
		Resonance:  ptr(a.Resonance),
	}
	for _, n := range a.Pattern {
		if n.IsRest() {
			ad.Notes = append(ad.Notes, nil)
			continue
		}
		v := int(n)
		ad.Notes = append(ad.Notes, &v)
	}
	pd.Arp = ad
	return pd
}

// ParseSteps reads a row like "x...x...x...x...". x, X and 1 are hits; .,
// - and 0 are rests; spaces and | are ignored.
func ParseSteps(row string) ([pattern.Steps]bool, error) {
	var out [pattern.Steps]bool
	n := 0
	for _, r := range row {
		switch r {
		case ' ', '|':
			continue
		case 'x', 'X', '1':
			if n < pattern.Steps {
				out[n] = true
			}
		case '.', '-', '0':
		default:
			return out, fmt.Errorf("unexpected %q in step row %q", r, row)
		}
		n++
	}
	if n != pattern.Steps {
		return out, fmt.Errorf("%w: got %d in %q", ErrSteps, n, row)
	}
	return out, nil
}

// FormatSteps is the inverse of ParseSteps.
func FormatSteps(row [pattern.Steps]bool) string {
	var b strings.Builder
	for _, on := range row {
		if on {
			b.WriteByte('x')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func ptr(v float64) *float64 { return &v }
