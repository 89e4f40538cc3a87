package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type fakeSink struct {
	mu        sync.Mutex
	calls     []string
	attached  map[string]string
	refuse    map[string]bool // titles Play rejects
	attachErr error
	pauseErr  error
	// strict makes Play fail for sessions that are not attached.
	strict bool
	// afterAttach runs once Attach returned its lock.
	afterAttach func()
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		attached: make(map[string]string),
		refuse:   make(map[string]bool),
	}
}

func (f *fakeSink) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSink) Attach(_ context.Context, sessionID, channelID string) error {
	f.mu.Lock()
	if f.attachErr != nil {
		f.mu.Unlock()
		return f.attachErr
	}
	f.attached[sessionID] = channelID
	f.record("attach %s %s", sessionID, channelID)
	hook := f.afterAttach
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeSink) Detach(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attached, sessionID)
	f.record("detach %s", sessionID)
	return nil
}

func (f *fakeSink) Play(sessionID string, epoch uint64, t Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[t.Title] {
		return errors.New("cannot open stream")
	}
	if _, ok := f.attached[sessionID]; f.strict && !ok {
		return errors.New("not attached")
	}
	f.record("play %s %d %s", sessionID, epoch, t.Title)
	return nil
}

func (f *fakeSink) Pause(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pauseErr != nil {
		return f.pauseErr
	}
	f.record("pause %s", sessionID)
	return nil
}

func (f *fakeSink) Resume(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("resume %s", sessionID)
	return nil
}

func (f *fakeSink) Stop(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop %s", sessionID)
	return nil
}

func (f *fakeSink) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeResolver maps a locator to a track titled after it. Locators listed in
// errs fail with the given error; block, when set, is waited on first.
type fakeResolver struct {
	errs  map[string]error
	block chan struct{}
}

func (f *fakeResolver) Resolve(ctx context.Context, locator string) (Track, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Track{}, ctx.Err()
		}
	}
	if err := f.errs[locator]; err != nil {
		return Track{}, err
	}
	return NewTrack(locator, "https://example.test/"+locator, 0), nil
}

type countingRecorder struct {
	mu       sync.Mutex
	commands map[string]int
	enqueued int
}

func (r *countingRecorder) ObserveCommand(op, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands == nil {
		r.commands = make(map[string]int)
	}
	r.commands[op+"/"+outcome]++
}

func (r *countingRecorder) ObserveResolve(time.Duration) {}

func (r *countingRecorder) TrackEnqueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued++
}
