// Package effects holds the filters and master-bus processors used by the
// drum voices and the mixer.
package effects

import (
	"math"
	"sync/atomic"
)

// Effector processes stereo audio in-place.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Volume is a master gain stage. The gain may be changed from any goroutine.
type Volume struct {
	gain atomic.Uint64
}

func NewVolume(gain float64) *Volume {
	v := &Volume{}
	v.Set(gain)
	return v
}

// Set stores gain clamped to [0, 1].
func (v *Volume) Set(gain float64) {
	v.gain.Store(math.Float64bits(clamp(gain, 0, 1)))
}

func (v *Volume) Gain() float64 {
	return math.Float64frombits(v.gain.Load())
}

func (v *Volume) Process(l, r float32) (float32, float32) {
	g := float32(v.Gain())
	return l * g, r * g
}

func (v *Volume) Reset() {}
