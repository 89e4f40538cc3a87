package audioplayer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mhtoin/discobot/internal/audioplayer/processor"
	"github.com/mhtoin/discobot/internal/audioplayer/source"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

const (
	// FrameSize is 20ms of audio at 48kHz.
	FrameSize = 960
	// MaxPacketSize bounds a single opus packet.
	MaxPacketSize = 1000 * processor.Channels
	Bitrate       = 64000
)

var (
	// ErrStopped is returned by Run when the stream was stopped on request.
	ErrStopped = errors.New("stream stopped")
	// ErrOutputStalled means the voice connection stopped consuming packets.
	ErrOutputStalled = errors.New("voice output stalled")
)

// Encoder turns one PCM frame into an opus packet. *gopus.Encoder satisfies it.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

func NewOpusEncoder() (Encoder, error) {
	enc, err := gopus.NewEncoder(processor.SampleRate, processor.Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	enc.SetBitrate(Bitrate)
	return enc, nil
}

// Streamer pumps a single track from its source through the processor and
// the encoder into a voice connection.
type Streamer struct {
	source       source.Source
	processor    processor.Processor
	encoder      Encoder
	stallTimeout time.Duration
	logger       zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	resume chan struct{}
}

func NewStreamer(src source.Source, proc processor.Processor, enc Encoder, logger zerolog.Logger) *Streamer {
	return &Streamer{
		source:       src,
		processor:    proc,
		encoder:      enc,
		stallTimeout: 5 * time.Second,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

// Run streams until the track ends, the streamer is stopped or the output
// stalls. A natural end returns nil.
func (s *Streamer) Run(out chan<- []byte) error {
	r, err := s.source.Open()
	if err != nil {
		return s.failure(fmt.Errorf("open source: %w", err))
	}
	defer r.Close()

	pcm, err := s.processor.Process(r)
	if err != nil {
		return s.failure(fmt.Errorf("start processor: %w", err))
	}
	defer pcm.Close()

	frame := make([]int16, FrameSize*processor.Channels)
	raw := make([]byte, len(frame)*2)
	stall := time.NewTimer(s.stallTimeout)
	defer stall.Stop()

	for {
		if wait := s.pauseWait(); wait != nil {
			select {
			case <-wait:
			case <-s.stop:
				return ErrStopped
			}
		}

		if _, err := io.ReadFull(pcm, raw); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug().Msg("end of audio stream")
				return s.failure(nil)
			}
			return s.failure(fmt.Errorf("read pcm: %w", err))
		}
		for i := range frame {
			frame[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}

		packet, err := s.encoder.Encode(frame, FrameSize, MaxPacketSize)
		if err != nil {
			s.logger.Warn().Err(err).Msg("encoding frame, dropping")
			continue
		}

		stall.Reset(s.stallTimeout)
		select {
		case out <- packet:
		case <-s.stop:
			return ErrStopped
		case <-stall.C:
			return ErrOutputStalled
		}
	}
}

// failure maps errors caused by our own Stop back to ErrStopped.
func (s *Streamer) failure(err error) error {
	if s.Stopped() {
		return ErrStopped
	}
	return err
}

func (s *Streamer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume == nil {
		s.resume = make(chan struct{})
	}
}

func (s *Streamer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
}

func (s *Streamer) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume != nil
}

func (s *Streamer) pauseWait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume == nil {
		return nil
	}
	return s.resume
}

// Stop makes Run return ErrStopped. It kills the external processes but does
// not wait for Run to notice.
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if err := s.source.Stop(); err != nil {
			s.logger.Debug().Err(err).Msg("stopping source")
		}
		if err := s.processor.Stop(); err != nil {
			s.logger.Debug().Err(err).Msg("stopping processor")
		}
	})
}

func (s *Streamer) Stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
