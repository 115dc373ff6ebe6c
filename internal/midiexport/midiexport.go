// Package midiexport writes an arrangement as a Standard MIDI File: a tempo
// track, a General MIDI drum track and an arpeggiator track.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

const (
	TicksPerQuarter = 960
	TicksPerStep    = TicksPerQuarter / 4
	TicksPerPattern = TicksPerStep * timing.StepsPerPattern

	DrumChannel = 9 // GM channel 10
	ArpChannel  = 0

	drumGate = TicksPerStep / 2
	arpBase  = 48 // C3
)

// DrumNotes maps each instrument to its General MIDI percussion key.
var DrumNotes = [pattern.NumInstruments]uint8{
	pattern.Kick:  36,
	pattern.Snare: 38,
	pattern.Hihat: 42,
	pattern.Tom:   45,
	pattern.Crash: 49,
	pattern.Clap:  39,
}

var ErrEmpty = errors.New("nothing to export")

type event struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// StepTick returns the tick of step within a pattern. Swing is converted
// with the same offset the audio path uses, measured in steps.
func StepTick(step int, tempo, swing float64) uint32 {
	steps := timing.StepOffset(step, tempo, swing) / timing.StepSeconds(tempo)
	return uint32(math.Round(steps * TicksPerStep))
}

// Build converts patterns into an SMF.
func Build(patterns []pattern.Pattern) (*smf.SMF, error) {
	if len(patterns) == 0 {
		return nil, ErrEmpty
	}

	var tempo smf.Track
	tempo.Add(0, smf.MetaTrackSequenceName("drumsmith"))
	tempo.Add(0, smf.MetaMeter(4, 4))
	var tempoTick, last uint32
	prevTempo := -1.0
	for i, p := range patterns {
		if p.Tempo == prevTempo {
			continue
		}
		at := uint32(i) * TicksPerPattern
		tempo.Add(at-last, smf.MetaTempo(p.Tempo))
		last = at
		prevTempo = p.Tempo
	}
	tempoTick = uint32(len(patterns)) * TicksPerPattern
	tempo.Close(tempoTick - last)

	var drums, arp []event
	for i, p := range patterns {
		base := uint32(i) * TicksPerPattern
		for step := 0; step < timing.StepsPerPattern; step++ {
			on := base + StepTick(step, p.Tempo, p.Swing)
			for _, inst := range p.Sequence.ActiveAt(step) {
				key := DrumNotes[inst]
				drums = append(drums,
					event{tick: on, msg: midi.NoteOn(DrumChannel, key, velocity(p.Voices[inst].Tone))},
					event{tick: on + drumGate, off: true, msg: midi.NoteOff(DrumChannel, key)},
				)
			}
			note := p.Arp.Pattern[step]
			if note.IsRest() {
				continue
			}
			key := arpKey(note, p.Arp.OctaveShift)
			gate := uint32(math.Round(p.Arp.NoteLength * TicksPerStep))
			if gate == 0 {
				gate = 1
			}
			arp = append(arp,
				event{tick: on, msg: midi.NoteOn(ArpChannel, key, 100)},
				event{tick: on + gate, off: true, msg: midi.NoteOff(ArpChannel, key)},
			)
		}
	}
	trimMonophonic(arp)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	for _, tr := range []smf.Track{
		tempo,
		track("drums", drums, tempoTick),
		track("arpeggiator", arp, tempoTick),
	} {
		if err := s.Add(tr); err != nil {
			return nil, fmt.Errorf("midi export: %w", err)
		}
	}
	return s, nil
}

// Write encodes patterns as an SMF to w.
func Write(w io.Writer, patterns []pattern.Pattern) (int64, error) {
	s, err := Build(patterns)
	if err != nil {
		return 0, err
	}
	return s.WriteTo(w)
}

// trimMonophonic ends each arp note no later than the next one starts.
// Events come in on/off pairs in start order.
func trimMonophonic(events []event) {
	for i := 0; i+2 < len(events); i += 2 {
		if next := events[i+2].tick; events[i+1].tick > next {
			events[i+1].tick = next
		}
	}
}

func track(name string, events []event, end uint32) smf.Track {
	// Note-offs sort before note-ons on the same tick so a retriggered key
	// is not cut short.
	sort.SliceStable(events, func(a, b int) bool {
		if events[a].tick != events[b].tick {
			return events[a].tick < events[b].tick
		}
		return events[a].off && !events[b].off
	})
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	var last uint32
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	if end < last {
		end = last
	}
	tr.Close(end - last)
	return tr
}

func velocity(tone float64) uint8 {
	v := math.Round(tone * 127)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

func arpKey(n pattern.Note, octave int) uint8 {
	return uint8(arpBase + int(n) + 12*octave)
}
