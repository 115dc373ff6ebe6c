package drumsmith

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds attached to every error the package returns.
const (
	// KindInitialization: no audio output is available.
	KindInitialization ftag.Kind = "initialization"
	// KindInvalidInput: empty arrangement, bad pattern or malformed buffer.
	KindInvalidInput ftag.Kind = "invalid_input"
	// KindRenderTimeout: an offline render ran past its deadline.
	KindRenderTimeout ftag.Kind = "render_timeout"
	// KindAborted: the caller cancelled a render.
	KindAborted ftag.Kind = "aborted"
	// KindEncoding: a buffer could not be written as WAV.
	KindEncoding ftag.Kind = "encoding"
	// KindBusy: a render is already in flight on this renderer.
	KindBusy ftag.Kind = "busy"
)

// KindOf returns the kind of err, or "" if it has none.
func KindOf(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	return ftag.Get(err)
}

// Message returns the human-readable description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}

func newError(kind ftag.Kind, msg, issue string) error {
	return fault.New(msg, ftag.With(kind), fmsg.WithDesc(msg, issue))
}

func wrapError(err error, kind ftag.Kind, msg, issue string) error {
	return fault.Wrap(err, ftag.With(kind), fmsg.WithDesc(msg, issue))
}
