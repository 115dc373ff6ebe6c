package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/cbegin/drumsmith-go/internal/effects"
)

// dcVoice outputs level for n samples.
type dcVoice struct {
	level float64
	n     int
}

func (v *dcVoice) Sample() (float64, bool) {
	if v.n <= 0 {
		return 0, true
	}
	v.n--
	return v.level, false
}

func TestMixerStartsVoicesOnExactFrame(t *testing.T) {
	m := NewMixer(1000)
	m.Schedule(0.5, &dcVoice{level: 0.25, n: 10})
	m.Schedule(0.505, &dcVoice{level: 0.5, n: 2})

	buf, err := m.Render(context.Background(), 520)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for ch := 0; ch < Channels; ch++ {
		for i, s := range buf[ch] {
			var want float32
			switch {
			case i >= 505 && i < 507:
				want = 0.75
			case i >= 500 && i < 510:
				want = 0.25
			}
			if s != want {
				t.Fatalf("ch %d frame %d = %v, want %v", ch, i, s, want)
			}
		}
	}
	if m.Voices() != 0 {
		t.Fatalf("voices = %d, want 0 after they finished", m.Voices())
	}
	if got := m.Now(); got != 0.52 {
		t.Fatalf("Now = %v, want 0.52", got)
	}
}

func TestMixerLateVoiceStartsImmediately(t *testing.T) {
	m := NewMixer(1000)
	dst := make([]float32, 2*100)
	m.Process(dst)
	m.Schedule(0.01, &dcVoice{level: 1, n: 1})
	m.Process(dst[:4])
	if dst[0] != 1 || dst[1] != 1 || dst[2] != 0 {
		t.Fatalf("late voice frames = %v, want [1 1 0 0]", dst[:4])
	}
	if m.Frame() != 102 {
		t.Fatalf("frame = %d, want 102", m.Frame())
	}
}

func TestMixerVolumeAndMaster(t *testing.T) {
	m := NewMixer(1000)
	m.SetVolume(0.5)
	eq := effects.NewMasterEQ(1000)
	m.SetMaster(eq)
	m.Schedule(0, &dcVoice{level: 1, n: 1})
	dst := make([]float32, 2)
	m.Process(dst)
	if dst[0] != 0.5 || dst[1] != 0.5 {
		t.Fatalf("got %v, want half level through a flat EQ", dst)
	}
	for b := 0; b < effects.Bands; b++ {
		eq.SetGain(b, 0)
	}
	m.Schedule(0, &dcVoice{level: 1, n: 1})
	m.Process(dst)
	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("got %v, want silence with every band muted", dst)
	}
}

func TestMixerClear(t *testing.T) {
	m := NewMixer(1000)
	m.Schedule(0, &dcVoice{level: 1, n: 100})
	m.Schedule(1, &dcVoice{level: 1, n: 100})
	m.Process(make([]float32, 10))
	m.Clear()
	if m.Voices() != 0 {
		t.Fatalf("voices = %d after Clear", m.Voices())
	}
	dst := make([]float32, 10)
	m.Process(dst)
	for i, s := range dst {
		if s != 0 {
			t.Fatalf("sample %d = %v after Clear", i, s)
		}
	}
}

func TestMixerRenderHonorsContext(t *testing.T) {
	m := NewMixer(48000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Render(ctx, 48000); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestStreamReaderEncodesFloat32(t *testing.T) {
	m := NewMixer(1000)
	m.Schedule(0, &dcVoice{level: 0.5, n: 1})
	r := NewStreamReader(m)
	p := make([]byte, 16)
	n, err := r.Read(p)
	if err != nil || n != 16 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	l := math.Float32frombits(binary.LittleEndian.Uint32(p[0:]))
	rr := math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))
	next := math.Float32frombits(binary.LittleEndian.Uint32(p[8:]))
	if l != 0.5 || rr != 0.5 || next != 0 {
		t.Fatalf("decoded %v %v %v", l, rr, next)
	}
	if n, err := r.Read(make([]byte, 7)); n != 0 || err != nil {
		t.Fatalf("short read = %d, %v", n, err)
	}
	r.Close()
	if _, err := r.Read(p); err != io.EOF {
		t.Fatalf("read after close err = %v, want EOF", err)
	}
}
