package effects

import (
	"math"
	"sync/atomic"
)

// Bands is the number of master EQ bands.
const Bands = 5

// MasterEQ is a 5-band equalizer for the master bus, split at 200Hz,
// 800Hz, 2.5kHz and 8kHz. Gains are bit-cast into atomics so the audio
// thread reads them lock-free. While every gain is unity the EQ is bypassed
// and passes samples through untouched.
type MasterEQ struct {
	gains  [Bands]atomic.Uint64 // float64 bit patterns; 1.0 = unity
	alphas [Bands - 1]float64
	lpL    [Bands - 1]float64
	lpR    [Bands - 1]float64
}

var crossovers = [Bands - 1]float64{200, 800, 2500, 8000}

// NewMasterEQ creates an EQ with all gains at unity.
func NewMasterEQ(sampleRate int) *MasterEQ {
	eq := &MasterEQ{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range crossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = dt / (rc + dt)
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float64bits(1.0))
	}
	return eq
}

// SetGain sets band (0-4). 1.0 = unity, 0.0 = silence, 2.0 = +6dB.
func (eq *MasterEQ) SetGain(band int, gain float64) {
	if band >= 0 && band < Bands {
		if gain < 0 {
			gain = 0
		}
		eq.gains[band].Store(math.Float64bits(gain))
	}
}

func (eq *MasterEQ) Gain(band int) float64 {
	if band >= 0 && band < Bands {
		return math.Float64frombits(eq.gains[band].Load())
	}
	return 1.0
}

// Flat reports whether every band is at unity.
func (eq *MasterEQ) Flat() bool {
	for i := range eq.gains {
		if math.Float64frombits(eq.gains[i].Load()) != 1.0 {
			return false
		}
	}
	return true
}

func (eq *MasterEQ) Process(l, r float32) (float32, float32) {
	var g [Bands]float64
	flat := true
	for i := range eq.gains {
		g[i] = math.Float64frombits(eq.gains[i].Load())
		if g[i] != 1.0 {
			flat = false
		}
	}
	// Keep the crossover state warm so toggling a band does not click.
	var bandL, bandR [Bands]float64
	remL, remR := float64(l), float64(r)
	for i := 0; i < Bands-1; i++ {
		eq.lpL[i] += eq.alphas[i] * (remL - eq.lpL[i])
		eq.lpR[i] += eq.alphas[i] * (remR - eq.lpR[i])
		bandL[i] = eq.lpL[i]
		bandR[i] = eq.lpR[i]
		remL -= bandL[i]
		remR -= bandR[i]
	}
	if flat {
		return l, r
	}
	bandL[Bands-1] = remL
	bandR[Bands-1] = remR

	var outL, outR float64
	for i := 0; i < Bands; i++ {
		outL += bandL[i] * g[i]
		outR += bandR[i] * g[i]
	}
	return float32(outL), float32(outR)
}

func (eq *MasterEQ) Reset() {
	for i := range eq.lpL {
		eq.lpL[i] = 0
		eq.lpR[i] = 0
	}
}
