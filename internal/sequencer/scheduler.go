package sequencer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/synth"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

const (
	DefaultLookahead    = 0.1
	DefaultPollInterval = 25 * time.Millisecond
)

var ErrEmptyArrangement = errors.New("arrangement is empty")

// State is the transport state of a Scheduler.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// SchedulerOptions configures a Scheduler. Zero values select the
// defaults, except PollInterval < 0 which disables the background loop so
// the caller drives Poll itself.
type SchedulerOptions struct {
	Lookahead    float64
	PollInterval time.Duration
	Logger       *slog.Logger
	// OnStep is called for every step as it is scheduled. It runs on the
	// poll goroutine and must not call Pause or Reset.
	OnStep func(ev timing.Event)
	// OnEnd is called once after the last step of the arrangement.
	OnEnd func()
}

// Scheduler plays an arrangement of patterns back to back. A poll loop
// schedules every step due within the lookahead window ahead of the audio
// clock, using the same step grid as the offline renderer.
type Scheduler struct {
	engine    *synth.Engine
	target    synth.Target
	audio     AudioClock
	lookahead float64
	interval  time.Duration
	logger    *slog.Logger
	onStep    func(ev timing.Event)
	onEnd     func()

	mu       sync.Mutex
	patterns []pattern.Pattern
	cursor   *timing.Cursor
	state    State
	pausedAt float64
	last     timing.Event
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(engine *synth.Engine, target synth.Target, audio AudioClock, opts SchedulerOptions) *Scheduler {
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		engine:    engine,
		target:    target,
		audio:     audio,
		lookahead: opts.Lookahead,
		interval:  opts.PollInterval,
		logger:    opts.Logger,
		onStep:    opts.OnStep,
		onEnd:     opts.OnEnd,
	}
}

// Load replaces the arrangement and resets the transport.
func (s *Scheduler) Load(patterns []pattern.Pattern) {
	s.Reset()
	s.mu.Lock()
	s.patterns = append([]pattern.Pattern(nil), patterns...)
	s.mu.Unlock()
}

// Play starts from the beginning, or resumes where Pause left off.
func (s *Scheduler) Play() error {
	s.mu.Lock()
	switch s.state {
	case Playing:
		s.mu.Unlock()
		return nil
	case Paused:
		s.cursor.Shift(s.audio.Now() - s.pausedAt)
	default:
		if len(s.patterns) == 0 {
			s.mu.Unlock()
			return ErrEmptyArrangement
		}
		s.cursor = timing.NewCursor(s.audio.Now(), Meters(s.patterns))
		s.last = timing.Event{}
	}
	s.state = Playing
	s.startLoopLocked()
	s.mu.Unlock()
	s.Poll()
	return nil
}

// Pause stops scheduling and remembers the position.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return
	}
	s.state = Paused
	s.pausedAt = s.audio.Now()
	s.mu.Unlock()
	s.stopLoop()
}

// Reset stops and rewinds to the first step.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.state = Stopped
	s.cursor = nil
	s.last = timing.Event{}
	s.mu.Unlock()
	s.stopLoop()
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the last scheduled step.
func (s *Scheduler) Position() timing.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Poll schedules every step due before now+lookahead. When the
// arrangement is exhausted the scheduler stops, rewinds and calls OnEnd.
func (s *Scheduler) Poll() {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return
	}
	horizon := s.audio.Now() + s.lookahead
	var due []timing.Event
	for !s.cursor.Done() && s.cursor.Time() < horizon {
		due = append(due, s.cursor.Event())
		s.cursor.Advance()
	}
	finished := s.cursor.Done()
	patterns := s.patterns
	if len(due) > 0 {
		s.last = due[len(due)-1]
	}
	// The loop is detached under the lock so a Play racing with the end
	// of the arrangement starts a fresh one.
	var stop chan struct{}
	if finished {
		s.state = Stopped
		s.cursor = nil
		stop = s.stop
		s.stop, s.done = nil, nil
	}
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}

	for _, ev := range due {
		p := &patterns[ev.Pattern]
		if err := PlayStep(s.engine, s.target, p, ev.Step, ev.Time); err != nil {
			s.logger.Warn("trigger failed", "pattern", ev.Pattern, "step", ev.Step, "err", err)
		}
		if s.onStep != nil {
			s.onStep(ev)
		}
	}
	if finished {
		if s.onEnd != nil {
			s.onEnd()
		}
	}
}

func (s *Scheduler) startLoopLocked() {
	if s.interval < 0 || s.stop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Poll()
			}
		}
	}()
}

// stopLoop ends the poll goroutine and waits for it.
func (s *Scheduler) stopLoop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

// Meters returns the timing of each pattern.
func Meters(patterns []pattern.Pattern) []timing.Meter {
	out := make([]timing.Meter, len(patterns))
	for i, p := range patterns {
		out[i] = timing.Meter{Tempo: p.Tempo, Swing: p.Swing}
	}
	return out
}
