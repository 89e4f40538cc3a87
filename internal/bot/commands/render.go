package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mhtoin/discobot/internal/dice"
	"github.com/mhtoin/discobot/internal/playback"
)

const (
	msgNotInVoice  = "You need to be in a voice channel to use this command!"
	msgGuildOnly   = "This command only works in a server."
	msgRateLimited = "Slow down! Try again in a moment."
)

const (
	// MaxMessageLength is the longest message content Discord accepts.
	MaxMessageLength = 2000
	maxDetailLength  = 300
)

func RenderGuildOnly() string   { return msgGuildOnly }
func RenderRateLimited() string { return msgRateLimited }

func RenderPlay(r playback.PlayResult) string {
	return fmt.Sprintf("Added %s to the Queue! Index: %d", clip(r.Title, maxDetailLength), r.Index)
}

func RenderSkip(r playback.SkipResult) string {
	if r.Next == nil {
		return "Skipped!"
	}
	return "Skipped!\nNow playing: " + clip(r.Next.Title, maxDetailLength)
}

func RenderRemove(r playback.RemoveResult) string {
	return fmt.Sprintf("Removed %s from the Queue! Index: %d", clip(r.Title, maxDetailLength), r.Index)
}

// RenderPlaylist lists the upcoming tracks by the index /remove accepts.
// Lines that would push the reply past MaxMessageLength are summarised.
func RenderPlaylist(s playback.Snapshot) string {
	var b strings.Builder
	if s.Current != nil {
		fmt.Fprintf(&b, "%s: %s\n\n", nowPlayingLabel(s.State), clip(s.Current.Title, maxDetailLength))
	}
	b.WriteString("Current Playlist:\n")

	for i, t := range s.Queue {
		line := fmt.Sprintf("%d: %s\n", i, t.Title)
		more := moreLine(len(s.Queue) - i - 1)
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line)+utf8.RuneCountInString(more) > MaxMessageLength {
			b.WriteString(moreLine(len(s.Queue) - i))
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func moreLine(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("…and %d more\n", n)
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func RenderNowPlaying(s playback.Snapshot) string {
	if s.Current == nil {
		return "Nothing is playing."
	}
	out := fmt.Sprintf("%s: %s", nowPlayingLabel(s.State), clip(s.Current.Title, maxDetailLength))
	if s.Current.Duration > 0 {
		out += " (" + s.Current.Duration.String() + ")"
	}
	if n := len(s.Queue); n > 0 {
		out += fmt.Sprintf("\n%d more in the queue.", n)
	}
	return out
}

func nowPlayingLabel(state playback.State) string {
	if state == playback.StatePaused {
		return "Paused"
	}
	return "Now playing"
}

func RenderRoll(r dice.Roll) string {
	var b strings.Builder
	b.WriteString("You rolled ")
	for _, n := range r.Rolls {
		b.WriteString(strconv.Itoa(n))
		b.WriteString(", ")
	}
	fmt.Fprintf(&b, "total: %d.", r.Total)
	return clip(b.String(), MaxMessageLength)
}

// RenderError maps a command failure to the reply shown to the user.
func RenderError(err error) string {
	if errors.Is(err, dice.ErrInvalidDice) {
		return "Can't roll that: " + detail(err, dice.ErrInvalidDice)
	}

	switch playback.KindOf(err) {
	case playback.KindInvalidIndex:
		return "Couldn't remove song."
	case playback.KindNothingPlaying:
		return "Nothing is playing."
	case playback.KindNotVoiceConnected:
		return "I am not connected to a voice channel"
	case playback.KindResolutionFailed:
		return "Failed to get song: " + detail(err, playback.ErrResolutionFailed)
	case playback.KindSinkAttachFailed:
		return "Couldn't join your voice channel."
	case playback.KindTimeout:
		return "That took too long, try again."
	default:
		return "Something went wrong, try again later."
	}
}

// detail is the part of err's text after the sentinel prefix, cut short
// since it may carry a tool's stderr.
func detail(err, sentinel error) string {
	return clip(strings.TrimPrefix(err.Error(), sentinel.Error()+": "), maxDetailLength)
}
