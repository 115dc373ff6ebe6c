package pattern

import (
	"errors"
	"math"
	"testing"
)

func fullBank(t *testing.T) *Bank {
	t.Helper()
	b := &Bank{}
	for i := 0; i < BankSize; i++ {
		p := New()
		p.Tempo = float64(MinTempo + i*10)
		if _, err := b.Save(i, p); err != nil {
			t.Fatalf("save slot %d: %v", i, err)
		}
	}
	return b
}

func TestBankDeleteLeavesHole(t *testing.T) {
	b := fullBank(t)
	if err := b.Delete(3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := b.Count(); got != 7 {
		t.Fatalf("count = %d, want 7", got)
	}
	slots := b.Slots()
	for i, s := range slots {
		if i == 3 {
			if s != nil {
				t.Fatalf("slot 3 should be empty")
			}
			continue
		}
		if s == nil {
			t.Fatalf("slot %d should stay populated", i)
		}
		if want := float64(MinTempo + i*10); s.Tempo != want {
			t.Errorf("slot %d tempo = %v, want %v (slots must not compact)", i, s.Tempo, want)
		}
	}
}

func TestBankAppendFillsFirstHole(t *testing.T) {
	b := fullBank(t)
	if _, err := b.Append(New()); !errors.Is(err, ErrBankFull) {
		t.Fatalf("append to full bank: err = %v, want ErrBankFull", err)
	}
	if err := b.Delete(5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	p, err := b.Append(New())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if p.Slot != 6 || p.Name != "6" {
		t.Errorf("appended into slot %d name %q, want slot 6", p.Slot, p.Name)
	}
}

func TestBankSaveOverwritesAndSnapshots(t *testing.T) {
	b := &Bank{}
	p := New()
	p.Sequence.Set(Kick, 0, true)
	first, err := b.Save(2, p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Sequence.Set(Kick, 0, false)
	got, ok := b.Get(2)
	if !ok || !got.Sequence.Active(Kick, 0) {
		t.Fatalf("stored pattern should be an immutable snapshot")
	}
	second, err := b.Save(2, p)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if second.ID == first.ID {
		t.Errorf("overwrite should assign a fresh identity")
	}
	if b.Count() != 1 {
		t.Errorf("count = %d, want 1", b.Count())
	}
	if err := b.DeleteID(first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting the replaced id: err = %v, want ErrNotFound", err)
	}
	if err := b.DeleteID(second.ID); err != nil {
		t.Errorf("delete by id: %v", err)
	}
	if err := b.Delete(2); !errors.Is(err, ErrSlotEmpty) {
		t.Errorf("delete empty slot: err = %v, want ErrSlotEmpty", err)
	}
	if _, err := b.Save(BankSize, p); !errors.Is(err, ErrSlotRange) {
		t.Errorf("save out of range: err = %v, want ErrSlotRange", err)
	}
}

func TestBankRejectsInvalidPattern(t *testing.T) {
	b := &Bank{}
	p := New()
	p.Tempo = 200
	if _, err := b.Save(0, p); !errors.Is(err, ErrTempoRange) {
		t.Fatalf("err = %v, want ErrTempoRange", err)
	}
}

func TestPatternValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *Pattern)
		ok     bool
	}{
		{"defaults", func(p *Pattern) {}, true},
		{"tempo low", func(p *Pattern) { p.Tempo = 59 }, false},
		{"tempo high edge", func(p *Pattern) { p.Tempo = 180 }, true},
		{"swing high", func(p *Pattern) { p.Swing = 101 }, false},
		{"swing nan", func(p *Pattern) { p.Swing = math.NaN() }, false},
		{"octave", func(p *Pattern) { p.Arp.OctaveShift = 3 }, false},
		{"decay", func(p *Pattern) { p.Voices[Kick].Decay = 0 }, false},
		{"tone", func(p *Pattern) { p.Voices[Clap].Tone = 1.5 }, false},
		{"crash freq", func(p *Pattern) { p.Voices[Crash].Frequency = 8000 }, true},
		{"kick freq", func(p *Pattern) { p.Voices[Kick].Frequency = 8000 }, false},
		{"snare noise", func(p *Pattern) { p.Voices[Snare].NoiseFrequency = 50 }, false},
		{"feedback", func(p *Pattern) { p.Arp.Feedback = 1 }, false},
		{"inf cutoff", func(p *Pattern) { p.Arp.Cutoff = math.Inf(1) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New()
			tc.mutate(&p)
			err := p.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestArpeggiatorEditing(t *testing.T) {
	a := DefaultArpeggiator()
	a.ShiftOctave(5)
	if a.OctaveShift != MaxOctave {
		t.Errorf("octave = %d, want clamp to %d", a.OctaveShift, MaxOctave)
	}
	a.ShiftOctave(-9)
	if a.OctaveShift != MinOctave {
		t.Errorf("octave = %d, want clamp to %d", a.OctaveShift, MinOctave)
	}

	a.StepNote(0, 0)
	if a.Pattern[0] != 7 {
		t.Errorf("first touch on rest = %v, want 7", a.Pattern[0])
	}
	a.StepNote(0, 9)
	if a.Pattern[0] != 0 {
		t.Errorf("note should wrap to 0, got %d", a.Pattern[0])
	}
	a.StepNote(0, -1)
	if a.Pattern[0] != 15 {
		t.Errorf("note should wrap to 15, got %d", a.Pattern[0])
	}

	a.OctaveShift = 1
	a.Pattern[1] = 9 // A3
	if got := a.NoteFrequency(1); got != 440 {
		t.Errorf("A3 one octave up = %v, want 440", got)
	}
	if got := a.NoteFrequency(2); got != 0 {
		t.Errorf("rest frequency = %v, want 0", got)
	}
}

func TestStepSequenceActiveAt(t *testing.T) {
	var s StepSequence
	s.Set(Clap, 4, true)
	s.Set(Kick, 4, true)
	s.Toggle(Hihat, 4)
	s.Toggle(Hihat, 5)
	s.Toggle(Hihat, 5)
	s.Set(Kick, Steps, true) // ignored

	got := s.ActiveAt(4)
	want := []Instrument{Kick, Hihat, Clap}
	if len(got) != len(want) {
		t.Fatalf("ActiveAt(4) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ActiveAt(4) = %v, want %v", got, want)
		}
	}
	if len(s.ActiveAt(5)) != 0 {
		t.Errorf("step 5 should be silent")
	}
}

func TestParseInstrument(t *testing.T) {
	for _, inst := range Instruments() {
		got, err := ParseInstrument(inst.String())
		if err != nil || got != inst {
			t.Errorf("ParseInstrument(%q) = %v, %v", inst.String(), got, err)
		}
	}
	if _, err := ParseInstrument("cowbell"); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("cowbell: err = %v, want ErrUnknownInstrument", err)
	}
}

func TestArrangementEditing(t *testing.T) {
	mk := func(name string) Pattern {
		p := New()
		p.Name = name
		return p
	}
	a := NewArrangement(mk("a"), mk("b"), mk("c"))
	names := func() string {
		s := ""
		for _, p := range a.Patterns() {
			s += p.Name + " "
		}
		return s
	}

	if !a.Move(0, 1) {
		t.Fatalf("move should succeed")
	}
	if got := names(); got != "b a c " {
		t.Fatalf("after move: %q", got)
	}
	if a.Move(0, -1) {
		t.Fatalf("moving before the start should be ignored")
	}
	cp, err := a.Copy(1)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if got := names(); got != "b a a_copy c " {
		t.Fatalf("after copy: %q", got)
	}
	orig, _ := a.At(1)
	if cp.ID == orig.ID {
		t.Errorf("copy must get a fresh identity")
	}
	if err := a.MoveTo(3, 0); err != nil {
		t.Fatalf("move to: %v", err)
	}
	if got := names(); got != "c b a a_copy " {
		t.Fatalf("after move to: %q", got)
	}
	if err := a.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := names(); got != "c a a_copy " {
		t.Fatalf("after delete: %q", got)
	}
	if _, err := a.Insert(5, mk("x")); !errors.Is(err, ErrIndexRange) {
		t.Errorf("insert out of range: err = %v", err)
	}
	if _, err := a.Insert(3, mk("d")); err != nil {
		t.Errorf("insert at end: %v", err)
	}
	if a.Len() != 4 {
		t.Errorf("len = %d, want 4", a.Len())
	}
}

func TestArrangementCopiesAreIndependent(t *testing.T) {
	p := New()
	a := NewArrangement(p, p)
	first, _ := a.At(0)
	second, _ := a.At(1)
	if first.ID == second.ID {
		t.Fatalf("repeated pattern entries need distinct identities")
	}
	items := a.Patterns()
	items[0].Tempo = 61
	again, _ := a.At(0)
	if again.Tempo != DefaultTempo {
		t.Errorf("Patterns() must return a copy")
	}
}
