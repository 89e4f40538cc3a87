// Package resolver turns what a user typed after /play into a playable track.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

var ErrEmptyLocator = errors.New("empty song locator")

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec, killing them when ctx is done.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// CommandContext reports "signal: killed" rather than the cause.
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// VideoClient is the part of the kkdai client the resolver needs.
type VideoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

type Resolver struct {
	youtube   VideoClient
	ytdlpPath string
	run       Runner
	logger    zerolog.Logger
}

type Option func(*Resolver)

// WithYouTubeClient resolves YouTube links natively instead of through yt-dlp.
func WithYouTubeClient(c VideoClient) Option {
	return func(r *Resolver) { r.youtube = c }
}

func WithRunner(run Runner) Option {
	return func(r *Resolver) { r.run = run }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(ytdlpPath string, opts ...Option) *Resolver {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	r := &Resolver{
		ytdlpPath: ytdlpPath,
		run:       ExecRunner,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve accepts a YouTube link, any other http(s) link yt-dlp understands,
// or free text which is searched on YouTube.
func (r *Resolver) Resolve(ctx context.Context, locator string) (playback.Track, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return playback.Track{}, ErrEmptyLocator
	}

	u, isURL := parseURL(locator)
	switch {
	case isURL && r.youtube != nil && IsYouTube(u):
		return r.resolveYouTube(ctx, locator)
	case isURL:
		t, err := r.resolveYTDLP(ctx, locator)
		if err != nil && ctx.Err() == nil && IsDirectMedia(u) {
			r.logger.Debug().Err(err).Str("url", locator).Msg("no metadata for direct media link")
			return playback.NewTrack("", locator, 0), nil
		}
		return t, err
	default:
		return r.resolveYTDLP(ctx, "ytsearch1:"+locator)
	}
}

func (r *Resolver) resolveYouTube(ctx context.Context, link string) (playback.Track, error) {
	video, err := r.youtube.GetVideoContext(ctx, link)
	if err != nil {
		return playback.Track{}, fmt.Errorf("youtube lookup: %w", err)
	}
	return playback.NewTrack(video.Title, "https://www.youtube.com/watch?v="+video.ID, video.Duration), nil
}

type ytdlpInfo struct {
	Title       string  `json:"title"`
	WebpageURL  string  `json:"webpage_url"`
	OriginalURL string  `json:"original_url"`
	Duration    float64 `json:"duration"`
}

func (r *Resolver) resolveYTDLP(ctx context.Context, target string) (playback.Track, error) {
	out, err := r.run(ctx, r.ytdlpPath, "-j", "--no-playlist", "--skip-download", target)
	if err != nil {
		return playback.Track{}, err
	}

	// Searches print one JSON document per hit; the first is the best match.
	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	if len(line) == 0 {
		return playback.Track{}, fmt.Errorf("no results for %q", strings.TrimPrefix(target, "ytsearch1:"))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(line, &info); err != nil {
		return playback.Track{}, fmt.Errorf("decode yt-dlp output: %w", err)
	}

	source := info.WebpageURL
	if source == "" {
		source = info.OriginalURL
	}
	if source == "" {
		source = target
	}
	return playback.NewTrack(info.Title, source, time.Duration(info.Duration*float64(time.Second))), nil
}

func parseURL(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, u.Scheme == "http" || u.Scheme == "https"
}

func IsYouTube(u *url.URL) bool {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

var mediaExtensions = map[string]bool{
	".mp3": true, ".ogg": true, ".opus": true, ".flac": true,
	".wav": true, ".m4a": true, ".aac": true, ".webm": true, ".mp4": true,
}

// IsDirectMedia reports whether u points straight at an audio or video file.
func IsDirectMedia(u *url.URL) bool {
	return mediaExtensions[strings.ToLower(path.Ext(u.Path))]
}
