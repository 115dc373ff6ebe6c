package drumsmith

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"time"

	"github.com/youpy/go-wav"
)

const wavHeaderSize = 44

// Buffer is planar float audio, one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the length of the buffer in frames.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// EncodeWAV writes b as a canonical 16-bit PCM RIFF/WAVE file. Samples
// are clamped to [-1, 1]; negative values scale by 32768 and positive
// values by 32767.
func EncodeWAV(b *Buffer) ([]byte, error) {
	if b == nil || len(b.Channels) == 0 {
		return nil, newError(KindInvalidInput, "wav: empty buffer", "There is no audio to encode.")
	}
	if b.SampleRate <= 0 {
		return nil, newError(KindInvalidInput, "wav: invalid sample rate", "The audio buffer has an invalid sample rate.")
	}
	frames := len(b.Channels[0])
	for _, ch := range b.Channels {
		if ch == nil || len(ch) != frames {
			return nil, newError(KindEncoding, "wav: channel data missing", "The rendered audio is missing channel data.")
		}
	}

	channels := len(b.Channels)
	blockAlign := channels * 2
	byteRate := b.SampleRate * blockAlign
	dataSize := frames * blockAlign
	out := make([]byte, wavHeaderSize+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))

	pos := wavHeaderSize
	for i := 0; i < frames; i++ {
		for _, ch := range b.Channels {
			binary.LittleEndian.PutUint16(out[pos:], uint16(pcm16(ch[i])))
			pos += 2
		}
	}
	return out, nil
}

func pcm16(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7FFF)
}

// DecodeWAV reads a PCM WAV file into a planar buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	r := wav.NewReader(bytes.NewReader(data))
	format, err := r.Format()
	if err != nil {
		return nil, wrapError(err, KindInvalidInput, "wav: bad header", "The file is not a readable WAV file.")
	}
	channels := int(format.NumChannels)
	if channels == 0 {
		return nil, newError(KindInvalidInput, "wav: no channels", "The WAV file has no audio channels.")
	}
	b := &Buffer{SampleRate: int(format.SampleRate), Channels: make([][]float32, channels)}
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapError(err, KindInvalidInput, "wav: bad sample data", "The WAV file's sample data is corrupt.")
		}
		for _, s := range samples {
			for ch := 0; ch < channels; ch++ {
				b.Channels[ch] = append(b.Channels[ch], float32(r.FloatValue(s, uint(ch))))
			}
		}
	}
	return b, nil
}

// ExportFileName names an exported render after t, e.g.
// drumsmith-arrangement-2024-05-01T12-30-00-000Z.wav.
func ExportFileName(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "drumsmith-arrangement-" + stamp + ".wav"
}
