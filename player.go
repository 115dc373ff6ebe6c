package drumsmith

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cbegin/drumsmith-go/internal/audio"
	"github.com/cbegin/drumsmith-go/internal/effects"
	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/sequencer"
	"github.com/cbegin/drumsmith-go/internal/synth"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

// PlaybackEvent is sent on the Watch channel.
type PlaybackEvent struct {
	Kind    EventKind
	Pattern int // arrangement index, for arrangement events
	Step    int
}

type EventKind int

const (
	// EventStep: the live clock played Step.
	EventStep EventKind = iota
	// EventArrangementStep: the arrangement scheduled Step of Pattern.
	EventArrangementStep
	// EventArrangementEnded: the arrangement finished and rewound.
	EventArrangementEnded
)

// SampleSource produces interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Output is a live audio sink pulling from a SampleSource.
type Output interface {
	Play()
	Pause()
	Close() error
}

// OutputFactory opens the live output. The default streams through the
// system audio device.
type OutputFactory func(sampleRate int, src SampleSource) (Output, error)

func openDevice(sampleRate int, src SampleSource) (Output, error) {
	p, err := audio.NewPlayer(sampleRate, src)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate   int
	seed         int64
	logger       *slog.Logger
	output       OutputFactory
	lookahead    float64
	pollInterval time.Duration
	afterFunc    sequencer.AfterFunc
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		sampleRate:   DefaultSampleRate,
		seed:         time.Now().UnixNano(),
		output:       openDevice,
		lookahead:    sequencer.DefaultLookahead,
		pollInterval: sequencer.DefaultPollInterval,
	}
}

func WithSampleRate(sampleRate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithSeed fixes the noise generator seed.
func WithSeed(seed int64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.seed = seed
	}
}

func WithLogger(logger *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.logger = logger
	}
}

// WithOutput replaces the audio device.
func WithOutput(f OutputFactory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.output = f
	}
}

// WithLookahead sets how far ahead, in seconds, the arrangement scheduler
// queues steps.
func WithLookahead(seconds float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.lookahead = seconds
	}
}

// WithPollInterval sets how often the arrangement scheduler wakes up.
func WithPollInterval(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.pollInterval = d
	}
}

func withAfterFunc(f sequencer.AfterFunc) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.afterFunc = f
	}
}

// Player is the live side of the drum machine: a looping pattern clock
// for editing, an arrangement player, and one-shot auditioning, all mixed
// into a single output.
type Player struct {
	logger *slog.Logger
	engine *synth.Engine
	mixer  *audio.Mixer
	eq     *effects.MasterEQ
	clock  *sequencer.Clock
	sched  *sequencer.Scheduler
	out    Output

	mu        sync.Mutex
	closed    bool
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

// NewPlayer opens the audio output. It fails with KindInitialization when
// no output is available.
func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	engine, err := synth.New(cfg.sampleRate, cfg.seed)
	if err != nil {
		return nil, wrapError(err, KindInitialization, "player: engine", "The audio engine could not be started.")
	}
	p := &Player{
		logger: cfg.logger,
		engine: engine,
		mixer:  audio.NewMixer(cfg.sampleRate),
		eq:     effects.NewMasterEQ(cfg.sampleRate),
	}
	p.mixer.SetMaster(p.eq)
	p.clock = sequencer.NewClock(engine, p.mixer, p.mixer, sequencer.ClockOptions{
		AfterFunc: cfg.afterFunc,
		Logger:    cfg.logger,
		OnStep: func(step int) {
			p.sendEvent(PlaybackEvent{Kind: EventStep, Step: step})
		},
	})
	p.sched = sequencer.NewScheduler(engine, p.mixer, p.mixer, sequencer.SchedulerOptions{
		Lookahead:    cfg.lookahead,
		PollInterval: cfg.pollInterval,
		Logger:       cfg.logger,
		OnStep: func(ev timing.Event) {
			p.sendEvent(PlaybackEvent{Kind: EventArrangementStep, Pattern: ev.Pattern, Step: ev.Step})
		},
		OnEnd: func() {
			p.sendEvent(PlaybackEvent{Kind: EventArrangementEnded})
		},
	})

	out, err := cfg.output(cfg.sampleRate, p.mixer)
	if err != nil {
		return nil, wrapError(err, KindInitialization, "player: open output", "No audio output is available.")
	}
	p.out = out
	p.out.Play()
	return p, nil
}

// Start loops the current pattern from the current step.
func (p *Player) Start() {
	p.sched.Reset()
	p.clock.Start()
}

// Stop halts the pattern loop and keeps the playhead.
func (p *Player) Stop() { p.clock.Stop() }

// Reset halts the pattern loop and rewinds to step 0.
func (p *Player) Reset() { p.clock.Reset() }

func (p *Player) Playing() bool { return p.clock.Playing() }

// CurrentStep returns the playhead of the pattern loop.
func (p *Player) CurrentStep() int { return p.clock.Step() }

// Pattern returns a copy of the pattern being edited.
func (p *Player) Pattern() Pattern { return p.clock.Pattern() }

// SetPattern replaces the pattern being edited. It takes effect from the
// next step.
func (p *Player) SetPattern(pat Pattern) error {
	if err := pat.Validate(); err != nil {
		return wrapError(err, KindInvalidInput, "player: invalid pattern", fmt.Sprintf("The pattern is invalid: %v", err))
	}
	p.clock.SetPattern(pat)
	return nil
}

// EditPattern applies edit to a copy of the current pattern and installs
// it if the result is valid.
func (p *Player) EditPattern(edit func(*Pattern)) error {
	pat := p.clock.Pattern()
	edit(&pat)
	return p.SetPattern(pat)
}

// Load makes the pattern in a bank slot the one being edited.
func (p *Player) Load(bank *Bank, slot int) error {
	pat, ok := bank.Get(slot)
	if !ok {
		return newError(KindInvalidInput, fmt.Sprintf("player: slot %d empty", slot), fmt.Sprintf("Slot %d is empty.", slot+1))
	}
	return p.SetPattern(pat)
}

// Save stores the current pattern in a bank slot, or in the first free
// slot when slot is negative.
func (p *Player) Save(bank *Bank, slot int) (Pattern, error) {
	pat := p.clock.Pattern()
	var (
		saved Pattern
		err   error
	)
	if slot < 0 {
		saved, err = bank.Append(pat)
	} else {
		saved, err = bank.Save(slot, pat)
	}
	if err != nil {
		return Pattern{}, wrapError(err, KindInvalidInput, "player: save", saveIssue(err))
	}
	return saved, nil
}

func saveIssue(err error) string {
	if errors.Is(err, pattern.ErrBankFull) {
		return fmt.Sprintf("All %d pattern slots are full. Delete a pattern first.", BankSize)
	}
	return fmt.Sprintf("The pattern could not be saved: %v", err)
}

// Trigger auditions one instrument right now with the current pattern's
// settings.
func (p *Player) Trigger(inst Instrument) error {
	pat := p.clock.Pattern()
	if !inst.Valid() {
		return newError(KindInvalidInput, fmt.Sprintf("player: instrument %d", int(inst)), "Unknown instrument.")
	}
	if err := p.engine.Trigger(p.mixer, p.mixer.Now(), inst, pat.Voices[inst]); err != nil {
		return wrapError(err, KindInvalidInput, "player: trigger", fmt.Sprintf("The %s could not be played: %v", inst, err))
	}
	return nil
}

// PlayArrangement stops the pattern loop and plays patterns back to back
// from the start.
func (p *Player) PlayArrangement(patterns []Pattern) error {
	if len(patterns) == 0 {
		return newError(KindInvalidInput, "player: empty arrangement", "Add at least one pattern to the arrangement first.")
	}
	for i := range patterns {
		if err := patterns[i].Validate(); err != nil {
			return wrapError(err, KindInvalidInput, fmt.Sprintf("player: pattern %d", i+1),
				fmt.Sprintf("Pattern %d of the arrangement is invalid: %v", i+1, err))
		}
	}
	p.clock.Stop()
	p.sched.Load(patterns)
	if err := p.sched.Play(); err != nil {
		return wrapError(err, KindInvalidInput, "player: arrangement", "The arrangement could not be played.")
	}
	return nil
}

// PauseArrangement pauses arrangement playback.
func (p *Player) PauseArrangement() { p.sched.Pause() }

// ResumeArrangement continues a paused arrangement, or restarts a stopped
// one from the beginning.
func (p *Player) ResumeArrangement() error {
	if err := p.sched.Play(); err != nil {
		return wrapError(err, KindInvalidInput, "player: arrangement", "There is no arrangement to play.")
	}
	return nil
}

// ResetArrangement stops the arrangement and rewinds it.
func (p *Player) ResetArrangement() { p.sched.Reset() }

// ArrangementPosition returns the last scheduled step and whether the
// arrangement is playing.
func (p *Player) ArrangementPosition() (patternIndex, step int, playing bool) {
	ev := p.sched.Position()
	return ev.Pattern, ev.Step, p.sched.State() == sequencer.Playing
}

// SetMasterVolume sets the output level in [0, 1].
func (p *Player) SetMasterVolume(volume float64) {
	p.mixer.SetVolume(volume)
}

func (p *Player) MasterVolume() float64 {
	return p.mixer.Volume()
}

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, gain float64) {
	p.eq.SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float64 {
	return p.eq.Gain(band)
}

// Now returns the audio clock in seconds.
func (p *Player) Now() float64 { return p.mixer.Now() }

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 64) and events are dropped when it is full. Only the most
// recent Watch channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Close stops all playback and releases the output.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.clock.Stop()
	p.sched.Reset()
	p.mixer.Clear()
	return p.out.Close()
}
