// Package sequencer drives the synthesis engine in real time: Clock loops a
// single pattern for live editing and Scheduler plays an arrangement with
// lookahead scheduling.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/synth"
	"github.com/cbegin/drumsmith-go/internal/timing"
)

// AudioClock is the monotonic clock of the audio output, in seconds.
type AudioClock interface {
	Now() float64
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc runs f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SoundError is one voice that failed to trigger on a step.
type SoundError struct {
	Voice string
	Step  int
	Err   error
}

func (e *SoundError) Error() string {
	return fmt.Sprintf("step %d %s: %v", e.Step, e.Voice, e.Err)
}

func (e *SoundError) Unwrap() error { return e.Err }

// PlayStep triggers every active instrument of p at step, then the
// arpeggiator note, all at time at. Each sound is attempted on its own: a
// failing or panicking voice does not keep the others from playing. The
// returned error joins one *SoundError per failed sound.
func PlayStep(engine *synth.Engine, target synth.Target, p *pattern.Pattern, step int, at float64) error {
	var errs []error
	for _, inst := range p.Sequence.ActiveAt(step) {
		params := p.Voices[inst]
		err := guard(func() error {
			return engine.Trigger(target, at, inst, params)
		})
		if err != nil {
			errs = append(errs, &SoundError{Voice: inst.String(), Step: step, Err: err})
		}
	}
	err := guard(func() error {
		return engine.TriggerNote(target, at, p.Arp, step, timing.StepSeconds(p.Tempo))
	})
	if err != nil {
		errs = append(errs, &SoundError{Voice: "arpeggiator", Step: step, Err: err})
	}
	return errors.Join(errs...)
}

func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
