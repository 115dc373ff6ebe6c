package synth

import (
	"errors"
	"math"
	"math/cmplx"
	"runtime"
	"testing"

	"github.com/maddyblue/go-dsp/fft"

	"github.com/cbegin/drumsmith-go/internal/pattern"
)

const sr = 48000

type recorder struct {
	at     []float64
	voices []Voice
}

func (r *recorder) Schedule(at float64, v Voice) {
	r.at = append(r.at, at)
	r.voices = append(r.voices, v)
}

func drain(v Voice) []float64 {
	var out []float64
	for {
		s, done := v.Sample()
		if done {
			return out
		}
		out = append(out, s)
	}
}

func newEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := New(sr, seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestVoiceLengthFollowsDecay(t *testing.T) {
	e := newEngine(t, 1)
	for _, inst := range pattern.Instruments() {
		t.Run(inst.String(), func(t *testing.T) {
			p := pattern.DefaultVoiceParams(inst)
			v, err := e.Voice(inst, p)
			if err != nil {
				t.Fatalf("Voice: %v", err)
			}
			got := len(drain(v))
			want := int(math.Round(p.Decay * sr))
			if got != want {
				t.Fatalf("%s rendered %d samples, want %d", inst, got, want)
			}
			if _, done := v.Sample(); !done {
				t.Fatal("finished voice should stay done")
			}
		})
	}
}

func TestTriggerSchedulesOnTarget(t *testing.T) {
	e := newEngine(t, 1)
	rec := &recorder{}
	if err := e.Trigger(rec, 1.25, pattern.Kick, pattern.DefaultVoiceParams(pattern.Kick)); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if len(rec.at) != 1 || rec.at[0] != 1.25 {
		t.Fatalf("scheduled at %v, want [1.25]", rec.at)
	}
}

func TestNoiseIsDeterministicPerSeed(t *testing.T) {
	render := func(seed int64) []float64 {
		e := newEngine(t, seed)
		var out []float64
		for _, inst := range []pattern.Instrument{pattern.Hihat, pattern.Snare, pattern.Clap, pattern.Crash} {
			v, err := e.Voice(inst, pattern.DefaultVoiceParams(inst))
			if err != nil {
				t.Fatalf("Voice(%s): %v", inst, err)
			}
			out = append(out, drain(v)...)
		}
		return out
	}
	a, b, c := render(42), render(42), render(43)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for the same seed: %v != %v", i, a[i], b[i])
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestReseedRestartsNoise(t *testing.T) {
	e := newEngine(t, 7)
	p := pattern.DefaultVoiceParams(pattern.Hihat)
	v1, _ := e.Voice(pattern.Hihat, p)
	first := drain(v1)
	e.Reseed(7)
	v2, _ := e.Voice(pattern.Hihat, p)
	second := drain(v2)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs after reseed", i)
		}
	}
}

// bandEnergy splits the spectrum of x at split Hz.
func bandEnergy(x []float64, split float64) (low, high float64) {
	bins := fft.FFTReal(x)
	binHz := float64(sr) / float64(len(x))
	for i := 1; i < len(bins)/2; i++ {
		p := math.Pow(cmplx.Abs(bins[i]), 2)
		if float64(i)*binHz < split {
			low += p
		} else {
			high += p
		}
	}
	return low, high
}

func TestSpectralShape(t *testing.T) {
	tests := []struct {
		inst     pattern.Instrument
		split    float64
		wantHigh bool
	}{
		{pattern.Kick, 400, false},
		{pattern.Tom, 600, false},
		{pattern.Hihat, 1500, true},
		{pattern.Crash, 2000, true},
	}
	e := newEngine(t, 3)
	for _, tt := range tests {
		t.Run(tt.inst.String(), func(t *testing.T) {
			v, err := e.Voice(tt.inst, pattern.DefaultVoiceParams(tt.inst))
			if err != nil {
				t.Fatalf("Voice: %v", err)
			}
			samples := drain(v)[:4096]
			low, high := bandEnergy(samples, tt.split)
			if tt.wantHigh && high < 10*low {
				t.Errorf("%s: high %g low %g, want energy above %.0fHz", tt.inst, high, low, tt.split)
			}
			if !tt.wantHigh && low < 10*high {
				t.Errorf("%s: low %g high %g, want energy below %.0fHz", tt.inst, low, high, tt.split)
			}
		})
	}
}

func TestSilentAtZeroTone(t *testing.T) {
	e := newEngine(t, 1)
	for _, inst := range pattern.Instruments() {
		p := pattern.DefaultVoiceParams(inst)
		p.Tone = 0
		v, err := e.Voice(inst, p)
		if err != nil {
			t.Fatalf("Voice(%s): %v", inst, err)
		}
		for i, s := range drain(v) {
			if s != 0 {
				t.Fatalf("%s sample %d = %v, want 0", inst, i, s)
			}
		}
	}
}

func TestInvalidParams(t *testing.T) {
	e := newEngine(t, 1)
	tests := []struct {
		name string
		inst pattern.Instrument
		mod  func(*pattern.VoiceParams)
		want error
	}{
		{"zero decay", pattern.Kick, func(p *pattern.VoiceParams) { p.Decay = 0 }, ErrBadParams},
		{"negative frequency", pattern.Tom, func(p *pattern.VoiceParams) { p.Frequency = -5 }, ErrBadParams},
		{"nan tone", pattern.Hihat, func(p *pattern.VoiceParams) { p.Tone = math.NaN() }, pattern.ErrNonFinite},
		{"snare without noise", pattern.Snare, func(p *pattern.VoiceParams) { p.NoiseFrequency = 0 }, ErrBadParams},
		{"unknown instrument", pattern.Instrument(42), func(*pattern.VoiceParams) {}, pattern.ErrUnknownInstrument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pattern.DefaultVoiceParams(pattern.Kick)
			if tt.inst.Valid() {
				p = pattern.DefaultVoiceParams(tt.inst)
			}
			tt.mod(&p)
			rec := &recorder{}
			err := e.Trigger(rec, 0, tt.inst, p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(rec.voices) != 0 {
				t.Fatal("invalid trigger must not schedule a voice")
			}
		})
	}
	if _, err := New(0, 1); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("New(0) err = %v", err)
	}
}

func TestArpRestSchedulesNothing(t *testing.T) {
	e := newEngine(t, 1)
	arp := pattern.DefaultArpeggiator()
	rec := &recorder{}
	if err := e.TriggerNote(rec, 0, arp, 3, 0.125); err != nil {
		t.Fatalf("TriggerNote: %v", err)
	}
	if len(rec.voices) != 0 {
		t.Fatal("rest should not schedule a voice")
	}
	arp.Pattern[3] = 0 // C3 is a note, not a rest
	if err := e.TriggerNote(rec, 0.5, arp, 3, 0.125); err != nil {
		t.Fatalf("TriggerNote: %v", err)
	}
	if len(rec.voices) != 1 || rec.at[0] != 0.5 {
		t.Fatalf("scheduled %v, want one note at 0.5", rec.at)
	}
}

func TestArpNoteLengthIncludesDelayTail(t *testing.T) {
	e := newEngine(t, 1)
	arp := pattern.DefaultArpeggiator() // delay 0.3s, feedback 0.3
	arp.Pattern[0] = 9
	v, err := e.NoteVoice(arp, 0, 0.125)
	if err != nil {
		t.Fatalf("NoteVoice: %v", err)
	}
	samples := drain(v)
	// 6000 note frames plus seven 14400-frame echoes (0.3^6 < 0.001).
	if want := 6000 + 7*14400; len(samples) != want {
		t.Fatalf("arp length %d, want %d", len(samples), want)
	}
	if samples[14400+100] == 0 {
		t.Fatal("expected the first echo after one delay time")
	}
}

func TestArpTailIsCapped(t *testing.T) {
	e := newEngine(t, 1)
	arp := pattern.DefaultArpeggiator()
	arp.Pattern[0] = 0
	arp.DelayTime = 1
	arp.Feedback = 0.95
	v, err := e.NoteVoice(arp, 0, 0.125)
	if err != nil {
		t.Fatalf("NoteVoice: %v", err)
	}
	if got := len(drain(v)); got != int(maxArpTail*sr) {
		t.Fatalf("arp length %d, want %d", got, int(maxArpTail*sr))
	}
}

func TestArpRejectsBadStep(t *testing.T) {
	e := newEngine(t, 1)
	arp := pattern.DefaultArpeggiator()
	if _, err := e.NoteVoice(arp, 16, 0.125); !errors.Is(err, ErrBadParams) {
		t.Fatalf("err = %v, want ErrBadParams", err)
	}
	arp.Pattern[0] = 4
	if _, err := e.NoteVoice(arp, 0, 0); !errors.Is(err, ErrBadParams) {
		t.Fatalf("err = %v, want ErrBadParams", err)
	}
}

func TestEnvelopes(t *testing.T) {
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	if got := expRamp(1, 0.001, 0.5, 1); !near(got, math.Sqrt(0.001)) {
		t.Errorf("expRamp midpoint = %v", got)
	}
	if got := expRamp(0, 1, 0.5, 1); got != 0 {
		t.Errorf("expRamp from zero = %v, want 0", got)
	}
	if got := expRamp(0.7, 0.001, 2, 1); got != 0.001 {
		t.Errorf("expRamp after end = %v, want 0.001", got)
	}
	tone := 0.8
	checks := []struct {
		t, want float64
	}{
		{0, 0},
		{0.005, 0.4},
		{0.01, 0.8},
		{0.015, 0.4},
		{0.025, 0.32},
		{0.03, 0.64},
		{0.2, 0.001},
	}
	for _, c := range checks {
		if got := clapEnvelope(c.t, tone, 0.2); !near(got, c.want) {
			t.Errorf("clapEnvelope(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestExpEnvTracksExpRamp(t *testing.T) {
	tests := []struct {
		name        string
		v0, v1, dur float64
	}{
		{"gain", 0.7, envelopeFloor, 0.5},
		{"pitch", 50, 1, 0.5},
		{"octave", 100, 50, 0.3},
		{"from zero", 0, 1, 0.2},
		{"crossing", 1, -1, 0.2},
		{"instant", 0.5, envelopeFloor, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newExpEnv(tt.v0, tt.v1, tt.dur, sr)
			for i := 0; i < sr; i++ {
				want := expRamp(tt.v0, tt.v1, float64(i)/sr, tt.dur)
				got := env.next()
				if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
					t.Fatalf("sample %d: %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestLongVoicesAllocateNoSampleBuffers(t *testing.T) {
	e := newEngine(t, 1)
	var params [pattern.NumInstruments]pattern.VoiceParams
	for _, inst := range pattern.Instruments() {
		params[inst] = pattern.DefaultVoiceParams(inst)
		params[inst].Decay = 2
	}
	rec := &recorder{}
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	// A full arrangement: 8 patterns, every step, every instrument.
	for i := 0; i < 8*pattern.Steps; i++ {
		for _, inst := range pattern.Instruments() {
			if err := e.Trigger(rec, float64(i), inst, params[inst]); err != nil {
				t.Fatalf("Trigger(%s): %v", inst, err)
			}
		}
	}
	runtime.ReadMemStats(&after)
	if got := len(rec.voices); got != 768 {
		t.Fatalf("voices = %d, want 768", got)
	}
	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 16<<20 {
		t.Fatalf("triggering 768 two-second voices allocated %d bytes", alloc)
	}
}
