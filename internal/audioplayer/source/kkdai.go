package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
)

var ErrNoAudioFormat = errors.New("no audio format available")

// KkdaiSource downloads a YouTube audio stream in process, without yt-dlp.
type KkdaiSource struct {
	client *youtube.Client
	url    string

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewKkdaiSource(client *youtube.Client, url string) *KkdaiSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &KkdaiSource{
		client: client,
		url:    url,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (k *KkdaiSource) Open() (io.ReadCloser, error) {
	video, err := k.client.GetVideoContext(k.ctx, k.url)
	if err != nil {
		return nil, fmt.Errorf("fetch video: %w", err)
	}

	format, err := BestAudioFormat(video.Formats)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", video.ID, err)
	}

	stream, _, err := k.client.GetStreamContext(k.ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

func (k *KkdaiSource) Stop() error {
	k.once.Do(k.cancel)
	return nil
}

// BestAudioFormat picks the audio-only format with the highest bitrate,
// falling back to any format that carries audio.
func BestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	withAudio := formats.WithAudioChannels()
	if len(withAudio) == 0 {
		return nil, ErrNoAudioFormat
	}

	best := -1
	for i, f := range withAudio {
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == -1 || f.Bitrate > withAudio[best].Bitrate {
			best = i
		}
	}
	if best == -1 {
		best = 0
	}

	format := withAudio[best]
	return &format, nil
}
