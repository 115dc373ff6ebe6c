// Package timing holds the one tempo/swing formula used by every scheduler:
// the live clock, the arrangement player, the offline renderer and the MIDI
// exporter all derive their timestamps from these functions.
package timing

// StepsPerPattern is the length of the step grid.
const StepsPerPattern = 16

// swingRatio is the share of a step an odd step is delayed by at 100% swing.
const swingRatio = 2.0 / 3.0

// StepMillis returns the sixteenth-note duration in milliseconds.
func StepMillis(tempo float64) float64 {
	return (60000 / tempo) / 4
}

// StepSeconds returns the sixteenth-note duration in seconds.
func StepSeconds(tempo float64) float64 {
	return (60 / tempo) / 4
}

// SwingOffset returns how far step is pushed late, in seconds. Only odd
// steps swing.
func SwingOffset(step int, tempo, swing float64) float64 {
	if step%2 == 0 {
		return 0
	}
	return (swing / 100) * StepSeconds(tempo) * swingRatio
}

// StepOffset returns the time of step relative to the start of its pattern.
func StepOffset(step int, tempo, swing float64) float64 {
	return float64(step)*StepSeconds(tempo) + SwingOffset(step, tempo, swing)
}

// PatternSeconds returns the length of one pattern.
func PatternSeconds(tempo float64) float64 {
	return StepSeconds(tempo) * StepsPerPattern
}

// Meter is the part of a pattern that affects timing.
type Meter struct {
	Tempo float64
	Swing float64
}

// TotalSeconds sums the lengths of the given patterns.
func TotalSeconds(meters []Meter) float64 {
	total := 0.0
	for _, m := range meters {
		total += PatternSeconds(m.Tempo)
	}
	return total
}

// Event is one step of an arrangement at an absolute time.
type Event struct {
	Time    float64 // seconds
	Pattern int
	Step    int
}

// Cursor walks the step grid of a sequence of patterns. Each pattern starts
// exactly where the previous one ended, so there is no gap or overlap at
// pattern boundaries.
type Cursor struct {
	meters       []Meter
	patternStart float64
	pattern      int
	step         int
}

// NewCursor positions a cursor on step 0 of the first pattern at start.
func NewCursor(start float64, meters []Meter) *Cursor {
	return &Cursor{meters: meters, patternStart: start}
}

// Done reports whether every step has been visited.
func (c *Cursor) Done() bool {
	return c.pattern >= len(c.meters)
}

func (c *Cursor) Pattern() int { return c.pattern }
func (c *Cursor) Step() int    { return c.step }

// PatternStart returns the absolute start time of the current pattern.
func (c *Cursor) PatternStart() float64 { return c.patternStart }

// Time returns the absolute time of the current step.
func (c *Cursor) Time() float64 {
	if c.Done() {
		return c.patternStart
	}
	m := c.meters[c.pattern]
	return c.patternStart + StepOffset(c.step, m.Tempo, m.Swing)
}

// Event returns the current step as an Event.
func (c *Cursor) Event() Event {
	return Event{Time: c.Time(), Pattern: c.pattern, Step: c.step}
}

// Advance moves to the next step, rolling over into the next pattern after
// step 15.
func (c *Cursor) Advance() {
	if c.Done() {
		return
	}
	c.step++
	if c.step >= StepsPerPattern {
		c.patternStart += PatternSeconds(c.meters[c.pattern].Tempo)
		c.pattern++
		c.step = 0
	}
}

// Shift moves the whole remaining grid by delta seconds. Used to resume a
// paused arrangement relative to a new clock reading.
func (c *Cursor) Shift(delta float64) {
	c.patternStart += delta
}

// Schedule lists every step of meters starting at start.
func Schedule(start float64, meters []Meter) []Event {
	out := make([]Event, 0, len(meters)*StepsPerPattern)
	for c := NewCursor(start, meters); !c.Done(); c.Advance() {
		out = append(out, c.Event())
	}
	return out
}
