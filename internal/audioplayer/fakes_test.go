package audioplayer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mhtoin/discobot/internal/audioplayer/processor"
	"github.com/mhtoin/discobot/internal/audioplayer/source"
	"github.com/mhtoin/discobot/internal/playback"
)

const frameBytes = FrameSize * processor.Channels * 2

// pcmFrames builds n frames whose first sample is the frame number.
func pcmFrames(n int) []byte {
	var buf bytes.Buffer
	for i := range n {
		frame := make([]byte, frameBytes)
		frame[0] = byte(i)
		buf.Write(frame)
	}
	return buf.Bytes()
}

// blockingReader serves data and then blocks until closed, like a live
// process pipe.
type blockingReader struct {
	r      io.Reader
	closed chan struct{}
	once   sync.Once
}

func (b *blockingReader) Read(p []byte) (int, error) {
	if b.r != nil {
		n, err := b.r.Read(p)
		if err != io.EOF {
			return n, err
		}
		b.r = nil
		if n > 0 {
			return n, nil
		}
	}
	<-b.closed
	return 0, errors.New("read on closed pipe")
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

type fakeSource struct {
	data    []byte
	endless bool
	openErr error

	mu      sync.Mutex
	reader  *blockingReader
	stopped bool
}

func (f *fakeSource) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if !f.endless {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reader = &blockingReader{r: bytes.NewReader(f.data), closed: make(chan struct{})}
	if f.stopped {
		f.reader.Close()
	}
	return f.reader, nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	if f.reader != nil {
		f.reader.Close()
	}
	return nil
}

func (f *fakeSource) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// passProcessor hands the source stream through unchanged.
type passProcessor struct{}

func (passProcessor) Process(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (passProcessor) Stop() error { return nil }

// tagEncoder emits the first sample of each frame as a one byte packet.
type tagEncoder struct{}

func (tagEncoder) Encode(pcm []int16, _, _ int) ([]byte, error) {
	return []byte{byte(pcm[0])}, nil
}

func newTagEncoder() (Encoder, error) { return tagEncoder{}, nil }

type fakeVoice struct {
	out chan []byte

	mu           sync.Mutex
	disconnected bool
}

func newFakeVoice(buffer int) *fakeVoice {
	return &fakeVoice{out: make(chan []byte, buffer)}
}

func (v *fakeVoice) Speaking(bool) error     { return nil }
func (v *fakeVoice) OpusSend() chan<- []byte { return v.out }

func (v *fakeVoice) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnected = true
	return nil
}

func (v *fakeVoice) isDisconnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnected
}

type fakeDialer struct {
	mu     sync.Mutex
	voices map[string]*fakeVoice
	joins  int
	err    error
	block  chan struct{}
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{voices: make(map[string]*fakeVoice)}
}

func (d *fakeDialer) Join(ctx context.Context, guildID, _ string) (Voice, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.joins++
	if d.err != nil {
		return nil, d.err
	}
	v, ok := d.voices[guildID]
	if !ok {
		v = newFakeVoice(64)
		d.voices[guildID] = v
	}
	return v, nil
}

func (d *fakeDialer) voice(guildID string) *fakeVoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voices[guildID]
}

// sourceSet hands out the registered fake source per track.
type sourceSet struct {
	mu      sync.Mutex
	sources map[string]*fakeSource
}

func (s *sourceSet) factory(t playback.Track) source.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[t.Source]; ok {
		return src
	}
	return &fakeSource{}
}
