package sequencer

import (
	"log/slog"
	"sync"

	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/synth"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

// DefaultLead is how far ahead of the audio clock the live clock fires,
// in seconds, so triggers land on exact frames instead of late.
const DefaultLead = 0.025

// ClockOptions configures a Clock. Zero values select the defaults.
type ClockOptions struct {
	Lead      float64
	AfterFunc AfterFunc
	Logger    *slog.Logger
	// OnStep is called after each step has been triggered.
	OnStep func(step int)
}

// Clock loops one pattern on the 16-step grid for live playback. Step k of
// a cycle is due at cycleStart + timing.StepOffset(k); every firing reads
// the audio clock and arms the next timer from that grid, so timer jitter
// never accumulates.
type Clock struct {
	engine    *synth.Engine
	target    synth.Target
	audio     AudioClock
	lead      float64
	afterFunc AfterFunc
	logger    *slog.Logger
	onStep    func(step int)

	mu         sync.Mutex
	pattern    pattern.Pattern
	playing    bool
	current    int // last step played
	next       int // step the next firing plays
	cycleStart float64
	timer      Timer
	gen        uint64
}

func NewClock(engine *synth.Engine, target synth.Target, audio AudioClock, opts ClockOptions) *Clock {
	if opts.Lead <= 0 {
		opts.Lead = DefaultLead
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Clock{
		engine:    engine,
		target:    target,
		audio:     audio,
		lead:      opts.Lead,
		afterFunc: opts.AfterFunc,
		logger:    opts.Logger,
		onStep:    opts.OnStep,
		pattern:   pattern.New(),
	}
}

// SetPattern replaces the pattern being looped. A tempo or swing change
// while playing keeps the next step's due time and re-times the rest of
// the cycle around it.
func (c *Clock) SetPattern(p pattern.Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.pattern
	c.pattern = p
	if !c.playing || (old.Tempo == p.Tempo && old.Swing == p.Swing) {
		return
	}
	due := c.cycleStart + timing.StepOffset(c.next, old.Tempo, old.Swing)
	c.cycleStart = due - timing.StepOffset(c.next, p.Tempo, p.Swing)
	c.arm()
}

// Pattern returns a copy of the pattern being looped.
func (c *Clock) Pattern() pattern.Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pattern
}

// Start plays from the current position. The first step sounds
// immediately.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.gen++
	now := c.audio.Now()
	p := c.pattern
	c.cycleStart = now + c.lead - timing.StepOffset(c.next, p.Tempo, p.Swing)
	gen := c.gen
	c.mu.Unlock()
	c.fire(gen)
}

// Stop cancels the pending firing and keeps the position.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Reset stops and rewinds to step 0.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.current = 0
	c.next = 0
}

func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Step returns the step most recently played, for the playhead.
func (c *Clock) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) stopLocked() {
	c.playing = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fire plays the next step and arms the timer for the one after. Firings
// from a cancelled generation are ignored.
func (c *Clock) fire(gen uint64) {
	c.mu.Lock()
	if !c.playing || gen != c.gen {
		c.mu.Unlock()
		return
	}
	p := c.pattern
	step := c.next
	at := c.cycleStart + timing.StepOffset(step, p.Tempo, p.Swing)
	c.current = step
	c.next = (step + 1) % timing.StepsPerPattern
	if c.next == 0 {
		c.cycleStart += timing.PatternSeconds(p.Tempo)
	}
	c.arm()
	c.mu.Unlock()

	if err := PlayStep(c.engine, c.target, &p, step, at); err != nil {
		c.logger.Warn("trigger failed", "step", step, "err", err)
	}
	if c.onStep != nil {
		c.onStep(step)
	}
}

// arm schedules the firing for c.next. Callers hold c.mu.
func (c *Clock) arm() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	p := c.pattern
	due := c.cycleStart + timing.StepOffset(c.next, p.Tempo, p.Swing)
	wait := due - c.lead - c.audio.Now()
	c.timer = c.afterFunc(seconds(wait), func() { c.fire(gen) })
}
