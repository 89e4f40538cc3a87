package playback

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Session is the playback state of one guild: the queue of upcoming tracks,
// the track bound to the voice sink and its play state.
//
// queue[0] is "up next". The current track is never part of queue, so queue
// indices handed to users never address it.
type Session struct {
	id     string
	sink   Sink
	logger zerolog.Logger

	mu        sync.Mutex
	queue     []Track
	current   *Track
	state     State
	channelID string
	epoch     uint64
	disposed  bool
}

func newSession(id string, sink Sink, logger zerolog.Logger) *Session {
	return &Session{
		id:     id,
		sink:   sink,
		logger: logger.With().Str("session", id).Logger(),
		state:  StateIdle,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Bind records the voice channel the sink was attached to.
func (s *Session) Bind(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errDisposed
	}
	s.channelID = channelID
	return nil
}

// Enqueue appends t and starts it right away when nothing is playing. The
// returned index is the queue length before the append, so the first track
// of an idle session reports 0 even though it was promoted.
//
// When t itself is promoted and the sink refuses it, the sink has lost its
// voice connection: the binding is dropped and ErrSinkAttachFailed returned.
func (s *Session) Enqueue(t Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return 0, errDisposed
	}

	index := len(s.queue)
	s.queue = append(s.queue, t)
	if s.current != nil || s.state != StateIdle {
		return index, nil
	}
	if err := s.promote(); err != nil && index == 0 {
		s.channelID = ""
		return index, wrapCollaborator(ErrSinkAttachFailed, err)
	}
	return index, nil
}

// Advance moves to the next queued track after the stream identified by
// epoch ended. Notifications for an earlier stream are ignored; it reports
// whether anything changed.
func (s *Session) Advance(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || s.current == nil || epoch != s.epoch {
		return false
	}
	s.current = nil
	s.promote()
	return true
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errDisposed
	}
	if s.channelID == "" {
		return ErrNotVoiceConnected
	}
	if s.state != StatePlaying {
		return ErrNothingPlaying
	}
	if err := s.sink.Pause(s.id); err != nil {
		return wrapCollaborator(ErrUnavailable, err)
	}
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errDisposed
	}
	if s.channelID == "" {
		return ErrNotVoiceConnected
	}
	if s.state != StatePaused {
		return ErrNothingPlaying
	}
	if err := s.sink.Resume(s.id); err != nil {
		return wrapCollaborator(ErrUnavailable, err)
	}
	s.state = StatePlaying
	return nil
}

// Skip stops the current track and promotes the next one without waiting
// for the stream to end. It returns the skipped track and the one that
// started in its place, if any.
func (s *Session) Skip() (Track, *Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return Track{}, nil, errDisposed
	}
	if s.channelID == "" {
		return Track{}, nil, ErrNotVoiceConnected
	}
	if s.current == nil {
		return Track{}, nil, ErrNothingPlaying
	}

	skipped := *s.current
	s.stopSink()
	s.current = nil
	s.promote()

	if s.current == nil {
		return skipped, nil, nil
	}
	next := *s.current
	return skipped, &next, nil
}

func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errDisposed
	}
	s.reset()
	return nil
}

// Detach drops all playback state after the voice connection went away.
func (s *Session) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errDisposed
	}
	s.reset()
	s.channelID = ""
	return nil
}

// Remove deletes the queued track at index. The current track is not
// addressable.
func (s *Session) Remove(index int) (Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return Track{}, errDisposed
	}
	if index < 0 || index >= len(s.queue) {
		return Track{}, ErrInvalidIndex
	}

	removed := s.queue[index]
	s.queue = slices.Delete(s.queue, index, index+1)
	return removed, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		State:     s.state,
		Queue:     slices.Clone(s.queue),
		Connected: s.channelID != "",
	}
	if s.current != nil {
		current := *s.current
		snap.Current = &current
	}
	if snap.Queue == nil {
		snap.Queue = []Track{}
	}
	return snap
}

// idle reports whether the session may be dropped. Requires s.mu.
func (s *Session) idle() bool {
	return len(s.queue) == 0 && s.current == nil && s.channelID == ""
}

// promote pops queue heads into current until the sink accepts one. It
// returns the sink's error for the head it started with, nil when that head
// was accepted or the queue was empty. Requires s.mu.
func (s *Session) promote() error {
	var headErr error
	for first := true; len(s.queue) > 0; first = false {
		next := s.queue[0]
		s.queue = slices.Delete(s.queue, 0, 1)
		s.epoch++

		if err := s.sink.Play(s.id, s.epoch, next); err != nil {
			s.logger.Warn().Err(err).Str("track", next.Title).Msg("sink refused track, skipping")
			if first {
				headErr = err
			}
			continue
		}

		s.current = &next
		s.state = StatePlaying
		s.logger.Debug().Str("track", next.Title).Uint64("epoch", s.epoch).Int("queued", len(s.queue)).Msg("now playing")
		return headErr
	}

	s.current = nil
	s.state = StateIdle
	return headErr
}

// Requires s.mu.
func (s *Session) reset() {
	if s.current != nil {
		s.stopSink()
	}
	s.queue = nil
	s.current = nil
	s.state = StateIdle
}

// Requires s.mu.
func (s *Session) stopSink() {
	if err := s.sink.Stop(s.id); err != nil {
		s.logger.Warn().Err(err).Msg("stopping sink")
	}
}
