package playback

import (
	"context"
	"time"
)

// Resolver turns a user supplied locator into a Track. It may block on the
// network for several seconds and is never called with a session lock held.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (Track, error)
}

// Sink is the voice output for all sessions.
//
// Attach and Detach may block. Play, Pause, Resume and Stop are issued while
// the session lock is held and must only signal the output, not wait on it.
// When a stream started by Play ends on its own, the sink reports it back
// through Controller.StreamEnded with the same epoch.
type Sink interface {
	Attach(ctx context.Context, sessionID, channelID string) error
	Detach(sessionID string) error
	Play(sessionID string, epoch uint64, t Track) error
	Pause(sessionID string) error
	Resume(sessionID string) error
	Stop(sessionID string) error
}

// Recorder receives controller measurements.
type Recorder interface {
	ObserveCommand(op, outcome string)
	ObserveResolve(d time.Duration)
	TrackEnqueued()
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommand(string, string) {}
func (nopRecorder) ObserveResolve(time.Duration)  {}
func (nopRecorder) TrackEnqueued()                {}
