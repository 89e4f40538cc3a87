package audioplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kkdai/youtube/v2"
	"github.com/mhtoin/discobot/internal/audioplayer/processor"
	"github.com/mhtoin/discobot/internal/audioplayer/source"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

var ErrNotAttached = errors.New("not attached to a voice channel")

// Voice is a live voice connection of one guild.
type Voice interface {
	Speaking(bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

// Dialer joins voice channels.
type Dialer interface {
	Join(ctx context.Context, guildID, channelID string) (Voice, error)
}

type (
	SourceFactory    func(t playback.Track) source.Source
	ProcessorFactory func() processor.Processor
	EncoderFactory   func() (Encoder, error)
)

// YTDLPSources streams every track through yt-dlp.
func YTDLPSources(path string, stderr io.Writer) SourceFactory {
	return func(t playback.Track) source.Source {
		return source.NewYTDLPSource(path, t.Source, stderr)
	}
}

// KkdaiSources streams YouTube videos natively and hands anything else to
// fallback.
func KkdaiSources(client *youtube.Client, fallback SourceFactory) SourceFactory {
	return func(t playback.Track) source.Source {
		if _, err := youtube.ExtractVideoID(t.Source); err != nil {
			return fallback(t)
		}
		return source.NewKkdaiSource(client, t.Source)
	}
}

func FfmpegProcessors(path string, volume float64, stderr io.Writer) ProcessorFactory {
	return func() processor.Processor {
		return processor.NewFfmpegProcessor(path, volume, stderr)
	}
}

type slot struct {
	voice     Voice
	channelID string
	streamer  *Streamer
	epoch     uint64
}

// Player drives the voice connections of all guilds. It implements
// playback.Sink.
type Player struct {
	dialer       Dialer
	newSource    SourceFactory
	newProcessor ProcessorFactory
	newEncoder   EncoderFactory
	logger       zerolog.Logger

	mu      sync.Mutex
	slots   map[string]*slot
	onEnded func(sessionID string, epoch uint64, err error)
}

func NewPlayer(dialer Dialer, sources SourceFactory, processors ProcessorFactory, logger zerolog.Logger) *Player {
	return &Player{
		dialer:       dialer,
		newSource:    sources,
		newProcessor: processors,
		newEncoder:   NewOpusEncoder,
		logger:       logger,
		slots:        make(map[string]*slot),
		onEnded:      func(string, uint64, error) {},
	}
}

func (p *Player) SetEncoderFactory(f EncoderFactory) {
	p.newEncoder = f
}

// SetStreamEndedHandler registers the callback for streams that ended on
// their own or failed. Streams stopped through Stop or Detach are not
// reported.
func (p *Player) SetStreamEndedHandler(fn func(sessionID string, epoch uint64, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

func (p *Player) Attach(ctx context.Context, guildID, channelID string) error {
	p.mu.Lock()
	if sl, ok := p.slots[guildID]; ok && sl.channelID == channelID {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	voice, err := p.dialer.Join(ctx, guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	sl, ok := p.slots[guildID]
	if !ok {
		sl = &slot{}
		p.slots[guildID] = sl
	}
	sl.voice = voice
	sl.channelID = channelID
	p.logger.Info().Str("guild", guildID).Str("channel", channelID).Msg("joined voice channel")
	return nil
}

func (p *Player) Detach(guildID string) error {
	p.mu.Lock()
	sl, ok := p.slots[guildID]
	delete(p.slots, guildID)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	if sl.streamer != nil {
		sl.streamer.Stop()
	}
	p.logger.Info().Str("guild", guildID).Msg("leaving voice channel")
	return sl.voice.Disconnect()
}

// Play replaces whatever the guild is streaming with t. The stream runs in
// the background.
func (p *Player) Play(guildID string, epoch uint64, t playback.Track) error {
	enc, err := p.newEncoder()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sl, ok := p.slots[guildID]
	if !ok {
		return ErrNotAttached
	}
	if sl.streamer != nil {
		sl.streamer.Stop()
	}

	logger := p.logger.With().Str("guild", guildID).Uint64("epoch", epoch).Str("track", t.Title).Logger()
	st := NewStreamer(p.newSource(t), p.newProcessor(), enc, logger)
	sl.streamer = st
	sl.epoch = epoch

	go p.stream(guildID, epoch, st, sl.voice, logger)
	return nil
}

func (p *Player) stream(guildID string, epoch uint64, st *Streamer, voice Voice, logger zerolog.Logger) {
	if err := voice.Speaking(true); err != nil {
		logger.Debug().Err(err).Msg("setting speaking status")
	}
	err := st.Run(voice.OpusSend())
	if err := voice.Speaking(false); err != nil {
		logger.Debug().Err(err).Msg("clearing speaking status")
	}

	if errors.Is(err, ErrStopped) {
		logger.Debug().Msg("stream stopped")
		return
	}

	p.mu.Lock()
	if sl, ok := p.slots[guildID]; ok && sl.streamer == st {
		sl.streamer = nil
	}
	onEnded := p.onEnded
	p.mu.Unlock()

	logger.Info().Err(err).Msg("stream ended")
	onEnded(guildID, epoch, err)
}

func (p *Player) Pause(guildID string) error {
	if st := p.current(guildID); st != nil {
		st.Pause()
	}
	return nil
}

func (p *Player) Resume(guildID string) error {
	if st := p.current(guildID); st != nil {
		st.Resume()
	}
	return nil
}

func (p *Player) Stop(guildID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sl, ok := p.slots[guildID]; ok && sl.streamer != nil {
		sl.streamer.Stop()
		sl.streamer = nil
	}
	return nil
}

// Channel returns the voice channel the player is attached to in guildID.
func (p *Player) Channel(guildID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sl, ok := p.slots[guildID]
	if !ok {
		return "", false
	}
	return sl.channelID, true
}

func (p *Player) current(guildID string) *Streamer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sl, ok := p.slots[guildID]; ok {
		return sl.streamer
	}
	return nil
}

var _ playback.Sink = (*Player)(nil)
