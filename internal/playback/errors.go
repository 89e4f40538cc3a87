package playback

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidIndex      = errors.New("invalid index")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrResolutionFailed  = errors.New("track resolution failed")
	ErrSinkAttachFailed  = errors.New("cannot attach to voice channel")
	ErrNotVoiceConnected = errors.New("not connected to a voice channel")
	ErrTimeout           = errors.New("timed out")
	ErrUnavailable       = errors.New("unavailable")

	// errDisposed is returned by a session the registry already dropped.
	// Controller operations retry on a fresh session when they see it.
	errDisposed = errors.New("session disposed")
)

type Kind string

const (
	KindNone              Kind = "ok"
	KindInvalidIndex      Kind = "invalid_index"
	KindNothingPlaying    Kind = "nothing_playing"
	KindResolutionFailed  Kind = "resolution_failed"
	KindSinkAttachFailed  Kind = "sink_attach_failed"
	KindNotVoiceConnected Kind = "not_voice_connected"
	KindTimeout           Kind = "timeout"
	KindUnavailable       Kind = "unavailable"
	KindInternal          Kind = "internal"
)

// KindOf classifies err. Timeout and unavailability take precedence over the
// operation kind since they decide whether a retry makes sense.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrInvalidIndex):
		return KindInvalidIndex
	case errors.Is(err, ErrNothingPlaying):
		return KindNothingPlaying
	case errors.Is(err, ErrResolutionFailed):
		return KindResolutionFailed
	case errors.Is(err, ErrSinkAttachFailed):
		return KindSinkAttachFailed
	case errors.Is(err, ErrNotVoiceConnected):
		return KindNotVoiceConnected
	default:
		return KindInternal
	}
}

// wrapCollaborator tags a resolver or sink failure with kind, adding
// ErrTimeout for expired contexts so callers can tell the two apart.
func wrapCollaborator(kind error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) && !errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%w: %w: %w", kind, ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
