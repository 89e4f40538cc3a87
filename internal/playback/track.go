package playback

import "time"

// UnknownTitle is used for tracks whose source reported no title.
const UnknownTitle = "Unknown"

// Track is one playable item. Source is an opaque locator understood by the
// Sink (a URL or a yt-dlp search expression).
type Track struct {
	Title    string
	Source   string
	Duration time.Duration
}

func NewTrack(title, source string, duration time.Duration) Track {
	if title == "" {
		title = UnknownTitle
	}
	return Track{
		Title:    title,
		Source:   source,
		Duration: duration,
	}
}

type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	SessionID string
	Current   *Track
	State     State
	Queue     []Track
	Connected bool
}

// Titles returns the queued titles in order.
func (s Snapshot) Titles() []string {
	titles := make([]string, len(s.Queue))
	for i, t := range s.Queue {
		titles[i] = t.Title
	}
	return titles
}
