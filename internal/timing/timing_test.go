package timing

import (
	"math"
	"testing"
)

func TestStepDurationIsExact(t *testing.T) {
	for tempo := 60; tempo <= 180; tempo++ {
		T := float64(tempo)
		if got, want := StepMillis(T), 15000/T; got != want {
			t.Fatalf("StepMillis(%d) = %v, want %v", tempo, got, want)
		}
		if got, want := StepSeconds(T), 15/T; got != want {
			t.Fatalf("StepSeconds(%d) = %v, want %v", tempo, got, want)
		}
	}
}

func TestSwingOnlyOnOddSteps(t *testing.T) {
	for swing := 0; swing <= 100; swing += 5 {
		S := float64(swing)
		for step := 0; step < StepsPerPattern; step++ {
			got := SwingOffset(step, 120, S)
			if step%2 == 0 {
				if got != 0 {
					t.Fatalf("even step %d swing %v: offset %v, want 0", step, S, got)
				}
				continue
			}
			want := (S / 100) * StepSeconds(120) * (2.0 / 3.0)
			if got != want {
				t.Fatalf("odd step %d swing %v: offset %v, want %v", step, S, got, want)
			}
		}
	}
}

func TestSwungSnareScenario(t *testing.T) {
	// tempo 120, swing 50: step 1 lands a third of a step late.
	got := StepOffset(1, 120, 50)
	want := 0.125 + 0.5*0.125*(2.0/3.0)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("step 1 at %v, want %v", got, want)
	}
	if math.Abs(got-0.16667) > 1e-4 {
		t.Fatalf("step 1 at %v, want ~0.1667", got)
	}
}

func TestScheduleStraightKicks(t *testing.T) {
	events := Schedule(0, []Meter{{Tempo: 120, Swing: 0}})
	if len(events) != 16 {
		t.Fatalf("events = %d, want 16", len(events))
	}
	for _, step := range []int{0, 4, 8, 12} {
		want := float64(step) / 8
		if events[step].Time != want {
			t.Errorf("step %d at %v, want %v", step, events[step].Time, want)
		}
	}
	if got := TotalSeconds([]Meter{{Tempo: 120}}); got != 2.0 {
		t.Errorf("total = %v, want 2.0", got)
	}
}

func TestScheduleIsAssociativeAcrossPatterns(t *testing.T) {
	a := Meter{Tempo: 97, Swing: 35}
	b := Meter{Tempo: 143, Swing: 80}

	joined := Schedule(0, []Meter{a, b})
	first := Schedule(0, []Meter{a})
	second := Schedule(PatternSeconds(a.Tempo), []Meter{b})

	if len(joined) != len(first)+len(second) {
		t.Fatalf("joined has %d events, want %d", len(joined), len(first)+len(second))
	}
	for i, ev := range first {
		if joined[i].Time != ev.Time {
			t.Fatalf("pattern a step %d: %v != %v", i, joined[i].Time, ev.Time)
		}
	}
	for i, ev := range second {
		j := joined[len(first)+i]
		if j.Time != ev.Time || j.Pattern != 1 || j.Step != ev.Step {
			t.Fatalf("pattern b step %d: joined %+v, separate %+v", i, j, ev)
		}
	}
}

func TestScheduleHasNoGapAtBoundary(t *testing.T) {
	meters := []Meter{{Tempo: 120}, {Tempo: 60}}
	events := Schedule(0, meters)
	boundary := events[16]
	if boundary.Pattern != 1 || boundary.Step != 0 {
		t.Fatalf("event 16 = %+v, want pattern 1 step 0", boundary)
	}
	if boundary.Time != 2.0 {
		t.Fatalf("second pattern starts at %v, want 2.0", boundary.Time)
	}
	last := events[len(events)-1]
	if want := 2.0 + 15*0.25; last.Time != want {
		t.Fatalf("last step at %v, want %v", last.Time, want)
	}
}

func TestCursorShiftAndDone(t *testing.T) {
	c := NewCursor(1, []Meter{{Tempo: 120}})
	c.Advance()
	c.Shift(0.5)
	if got := c.Time(); got != 1.5+0.125 {
		t.Fatalf("shifted time = %v", got)
	}
	for !c.Done() {
		c.Advance()
	}
	c.Advance()
	if c.Pattern() != 1 || c.Step() != 0 {
		t.Fatalf("done cursor moved: pattern %d step %d", c.Pattern(), c.Step())
	}
	if got := c.PatternStart(); got != 3.5 {
		t.Fatalf("pattern start after end = %v, want 3.5", got)
	}
}
