package drumsmith

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/cbegin/drumsmith-go/internal/audio"
	"github.com/cbegin/drumsmith-go/internal/effects"
	"github.com/cbegin/drumsmith-go/internal/sequencer"
	"github.com/cbegin/drumsmith-go/internal/synth"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

const (
	DefaultSampleRate    = 48000
	DefaultRenderMargin  = 2.0 // seconds of tail after the last pattern
	DefaultRenderTimeout = 30 * time.Second
)

// Progress receives render progress in percent. Scheduling reports 0-40,
// rendering 50 and 60, encoding 95 and 100.
type Progress func(percent int)

type RendererOption func(*rendererConfig)

type rendererConfig struct {
	sampleRate int
	seed       int64
	timeout    time.Duration
	margin     float64
	logger     *slog.Logger
	eq         *[effects.Bands]float64
}

func defaultRendererConfig() rendererConfig {
	return rendererConfig{
		sampleRate: DefaultSampleRate,
		seed:       1,
		timeout:    DefaultRenderTimeout,
		margin:     DefaultRenderMargin,
	}
}

// WithRenderSampleRate sets the output sample rate.
func WithRenderSampleRate(sampleRate int) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithRenderSeed seeds the noise generator. Renders with the same seed and
// arrangement are byte-identical.
func WithRenderSeed(seed int64) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.seed = seed
	}
}

func WithRenderTimeout(d time.Duration) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.timeout = d
	}
}

// WithTailMargin sets how many seconds are rendered after the last step.
func WithTailMargin(seconds float64) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.margin = seconds
	}
}

func WithRenderLogger(logger *slog.Logger) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.logger = logger
	}
}

// WithMasterEQ applies the 5-band master EQ to the render. 1.0 is unity.
func WithMasterEQ(gains [effects.Bands]float64) RendererOption {
	return func(cfg *rendererConfig) {
		g := gains
		cfg.eq = &g
	}
}

// Renderer bounces an arrangement offline. One render may be in flight at
// a time; a second concurrent call fails with KindBusy.
type Renderer struct {
	cfg     rendererConfig
	busy    atomic.Bool
	aborted atomic.Bool
}

func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	cfg := defaultRendererConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, newError(KindInvalidInput, fmt.Sprintf("renderer: sample rate %d", cfg.sampleRate), "The sample rate must be positive.")
	}
	if cfg.margin < 0 || math.IsNaN(cfg.margin) {
		cfg.margin = 0
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Renderer{cfg: cfg}, nil
}

// Abort asks the render in flight, or the next one to start, to stop. It
// is checked before each pattern is scheduled and while rendering.
func (r *Renderer) Abort() {
	r.aborted.Store(true)
}

// Render bounces patterns to a 16-bit stereo WAV file. Partial output is
// never returned.
func (r *Renderer) Render(ctx context.Context, patterns []Pattern, progress Progress) ([]byte, error) {
	buf, err := r.RenderBuffer(ctx, patterns, progress)
	if err != nil {
		return nil, err
	}
	report(progress, 95)
	data, err := EncodeWAV(buf)
	if err != nil {
		return nil, err
	}
	report(progress, 100)
	r.cfg.logger.Debug("render complete", "frames", buf.Frames(), "bytes", len(data))
	return data, nil
}

// RenderBuffer bounces patterns to planar float audio.
func (r *Renderer) RenderBuffer(ctx context.Context, patterns []Pattern, progress Progress) (*Buffer, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, newError(KindBusy, "renderer: render in progress", "An export is already running.")
	}
	// An Abort issued before this point still stops the render; the flag
	// is cleared only once the render has finished.
	defer func() {
		r.aborted.Store(false)
		r.busy.Store(false)
	}()

	if len(patterns) == 0 {
		return nil, newError(KindInvalidInput, "renderer: empty arrangement", "Add at least one pattern to the arrangement before exporting.")
	}
	for i := range patterns {
		if err := patterns[i].Validate(); err != nil {
			return nil, wrapError(err, KindInvalidInput, fmt.Sprintf("renderer: pattern %d", i+1),
				fmt.Sprintf("Pattern %d of the arrangement is invalid: %v", i+1, err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	engine, err := synth.New(r.cfg.sampleRate, r.cfg.seed)
	if err != nil {
		return nil, wrapError(err, KindInvalidInput, "renderer: engine", "The renderer could not be initialized.")
	}
	mixer := audio.NewMixer(r.cfg.sampleRate)
	if r.cfg.eq != nil {
		eq := effects.NewMasterEQ(r.cfg.sampleRate)
		for band, g := range r.cfg.eq {
			eq.SetGain(band, g)
		}
		mixer.SetMaster(eq)
	}

	meters := sequencer.Meters(patterns)
	total := timing.TotalSeconds(meters)
	frames := int(math.Ceil((total + r.cfg.margin) * float64(r.cfg.sampleRate)))
	r.cfg.logger.Debug("render scheduling", "patterns", len(patterns), "seconds", total, "frames", frames)

	for c := timing.NewCursor(0, meters); !c.Done(); c.Advance() {
		if c.Step() == 0 {
			if err := r.interrupted(ctx); err != nil {
				return nil, err
			}
			report(progress, c.Pattern()*40/len(patterns))
		}
		ev := c.Event()
		if err := sequencer.PlayStep(engine, mixer, &patterns[ev.Pattern], ev.Step, ev.Time); err != nil {
			return nil, wrapError(err, KindInvalidInput, "renderer: trigger", fmt.Sprintf("A sound in pattern %d could not be rendered: %v", ev.Pattern+1, err))
		}
	}

	report(progress, 50)
	report(progress, 60)
	planes, err := mixer.Render(&abortContext{Context: ctx, aborted: &r.aborted}, frames)
	if err != nil {
		return nil, r.renderError(ctx, err)
	}
	return &Buffer{SampleRate: r.cfg.sampleRate, Channels: planes}, nil
}

func (r *Renderer) interrupted(ctx context.Context) error {
	if r.aborted.Load() {
		return newError(KindAborted, "renderer: aborted", "Rendering was aborted.")
	}
	if err := ctx.Err(); err != nil {
		return r.renderError(ctx, err)
	}
	return nil
}

func (r *Renderer) renderError(ctx context.Context, err error) error {
	if errors.Is(err, errAborted) || errors.Is(err, context.Canceled) {
		return wrapError(err, KindAborted, "renderer: aborted", "Rendering was aborted.")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return wrapError(err, KindRenderTimeout, "renderer: timeout",
			fmt.Sprintf("Render timeout: took longer than %s.", r.cfg.timeout))
	}
	return wrapError(err, KindAborted, "renderer: interrupted", "Rendering was interrupted.")
}

var errAborted = errors.New("render aborted")

// abortContext reports the renderer's abort flag as a context error so
// the mixer's block loop stops on it too.
type abortContext struct {
	context.Context
	aborted *atomic.Bool
}

func (c *abortContext) Err() error {
	if c.aborted.Load() {
		return errAborted
	}
	return c.Context.Err()
}

func report(p Progress, percent int) {
	if p != nil {
		p(percent)
	}
}
