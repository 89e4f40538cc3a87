package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type PlayResult struct {
	Title string
	Index int
}

type SkipResult struct {
	Skipped Track
	// Next is the track that started playing, nil when the queue ran dry.
	Next *Track
}

type RemoveResult struct {
	Title string
	Index int
}

// Controller is the command facing API: one method per user command, each
// performing a single queue mutation or query on the session of a guild.
type Controller struct {
	registry *Registry
	resolver Resolver
	sink     Sink
	recorder Recorder
	logger   zerolog.Logger
}

type Option func(*Controller)

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func NewController(registry *Registry, resolver Resolver, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		registry: registry,
		resolver: resolver,
		sink:     sink,
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play resolves locator, attaches the sink to channelID and queues the track.
// Resolution and attachment happen before any session lock is taken, so a
// slow lookup never holds up another user's skip or pause.
func (c *Controller) Play(ctx context.Context, sessionID, channelID, locator string) (PlayResult, error) {
	res, err := c.play(ctx, sessionID, channelID, locator)
	c.observe("play", err)
	return res, err
}

func (c *Controller) play(ctx context.Context, sessionID, channelID, locator string) (PlayResult, error) {
	if channelID == "" {
		return PlayResult{}, ErrNotVoiceConnected
	}

	started := time.Now()
	track, err := c.resolver.Resolve(ctx, locator)
	c.recorder.ObserveResolve(time.Since(started))
	if err != nil {
		return PlayResult{}, wrapCollaborator(ErrResolutionFailed, err)
	}

	if err := c.sink.Attach(ctx, sessionID, channelID); err != nil {
		return PlayResult{}, wrapCollaborator(ErrSinkAttachFailed, err)
	}

	for {
		s := c.registry.GetOrCreate(sessionID)
		if err := s.Bind(channelID); err != nil {
			if errors.Is(err, errDisposed) {
				continue
			}
			return PlayResult{}, err
		}

		index, err := s.Enqueue(track)
		if errors.Is(err, errDisposed) {
			continue
		}
		if errors.Is(err, ErrSinkAttachFailed) {
			// The voice connection went away between Attach and Enqueue,
			// most likely through a concurrent stop.
			if detachErr := c.sink.Detach(sessionID); detachErr != nil {
				c.logger.Warn().Err(detachErr).Str("session", sessionID).Msg("detaching sink")
			}
			c.registry.RemoveIfIdle(sessionID)
			return PlayResult{}, err
		}
		if err != nil {
			return PlayResult{}, err
		}

		c.recorder.TrackEnqueued()
		c.logger.Info().Str("session", sessionID).Str("track", track.Title).Int("index", index).Msg("track queued")
		return PlayResult{Title: track.Title, Index: index}, nil
	}
}

func (c *Controller) Skip(sessionID string) (SkipResult, error) {
	var res SkipResult
	err := c.withSession(sessionID, func(s *Session) error {
		skipped, next, err := s.Skip()
		if err != nil {
			return err
		}
		res = SkipResult{Skipped: skipped, Next: next}
		return nil
	}, ErrNotVoiceConnected)
	c.observe("skip", err)
	return res, err
}

func (c *Controller) Pause(sessionID string) error {
	err := c.withSession(sessionID, (*Session).Pause, ErrNotVoiceConnected)
	c.observe("pause", err)
	return err
}

func (c *Controller) Resume(sessionID string) error {
	err := c.withSession(sessionID, (*Session).Resume, ErrNotVoiceConnected)
	c.observe("resume", err)
	return err
}

// Clear always succeeds, including for guilds that never played anything.
func (c *Controller) Clear(sessionID string) error {
	err := c.withSession(sessionID, func(s *Session) error {
		return s.Clear()
	}, nil)
	c.observe("clear", err)
	return err
}

func (c *Controller) Remove(sessionID string, index int) (RemoveResult, error) {
	var res RemoveResult
	err := c.withSession(sessionID, func(s *Session) error {
		t, err := s.Remove(index)
		if err != nil {
			return err
		}
		res = RemoveResult{Title: t.Title, Index: index}
		return nil
	}, ErrInvalidIndex)
	c.observe("remove", err)
	return res, err
}

// ListQueue never fails; unknown sessions list as empty and idle.
func (c *Controller) ListQueue(sessionID string) Snapshot {
	snap := Snapshot{SessionID: sessionID, State: StateIdle, Queue: []Track{}}
	_ = c.withSession(sessionID, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	}, nil)
	c.observe("playlist", nil)
	return snap
}

// Disconnect stops playback, forgets the queue and leaves the voice channel.
// It is also called when the bot was removed from the channel externally.
func (c *Controller) Disconnect(sessionID string) error {
	err := c.withSession(sessionID, func(s *Session) error {
		return s.Detach()
	}, ErrNotVoiceConnected)
	if err == nil || errors.Is(err, ErrNotVoiceConnected) {
		if detachErr := c.sink.Detach(sessionID); detachErr != nil {
			c.logger.Warn().Err(detachErr).Str("session", sessionID).Msg("detaching sink")
		}
	}
	c.registry.RemoveIfIdle(sessionID)
	c.observe("stop", err)
	return err
}

// StreamEnded is the sink's end-of-stream notification. Output faults are
// logged and otherwise handled like a natural end so the queue keeps moving.
func (c *Controller) StreamEnded(sessionID string, epoch uint64, cause error) {
	log := c.logger.With().Str("session", sessionID).Uint64("epoch", epoch).Logger()
	if cause != nil {
		log.Warn().Err(cause).Msg("stream failed, advancing")
	}

	s, ok := c.registry.Lookup(sessionID)
	if !ok {
		return
	}
	if !s.Advance(epoch) {
		log.Debug().Msg("stale stream end ignored")
	}
}

// Sessions lists the ids of all live sessions.
func (c *Controller) Sessions() []string {
	return c.registry.IDs()
}

// Inspect returns the snapshot of a live session without counting as a
// command.
func (c *Controller) Inspect(sessionID string) (Snapshot, bool) {
	s, ok := c.registry.Lookup(sessionID)
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// withSession runs fn on an existing session. When the guild has no session
// (or it was disposed under us) it returns absent, which may be nil.
func (c *Controller) withSession(sessionID string, fn func(*Session) error, absent error) error {
	for {
		s, ok := c.registry.Lookup(sessionID)
		if !ok {
			return absent
		}
		err := fn(s)
		if errors.Is(err, errDisposed) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", sessionID, err)
		}
		return nil
	}
}

func (c *Controller) observe(op string, err error) {
	c.recorder.ObserveCommand(op, string(KindOf(err)))
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("command failed")
	}
}
