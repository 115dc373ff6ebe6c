package drumsmith

import (
	"bytes"
	"errors"

	"github.com/cbegin/drumsmith-go/internal/midiexport"
)

// ExportMIDI writes patterns as a Standard MIDI File: a tempo track, the
// drums on General MIDI channel 10 and the arpeggiator on channel 1. Steps
// land on the same swung grid as the audio render.
func ExportMIDI(patterns []Pattern) ([]byte, error) {
	if len(patterns) == 0 {
		return nil, newError(KindInvalidInput, "midi: empty arrangement", "Add at least one pattern to the arrangement before exporting.")
	}
	for i := range patterns {
		if err := patterns[i].Validate(); err != nil {
			return nil, wrapError(err, KindInvalidInput, "midi: invalid pattern", "A pattern in the arrangement is invalid.")
		}
	}
	var buf bytes.Buffer
	if _, err := midiexport.Write(&buf, patterns); err != nil {
		kind := KindEncoding
		if errors.Is(err, midiexport.ErrEmpty) {
			kind = KindInvalidInput
		}
		return nil, wrapError(err, kind, "midi: write", "The MIDI file could not be written.")
	}
	return buf.Bytes(), nil
}
