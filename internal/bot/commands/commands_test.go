package commands

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhtoin/discobot/internal/dice"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

type fakeResponder struct {
	replies  []string
	deferred bool
	edits    []string
}

func (f *fakeResponder) Respond(_ *discordgo.InteractionCreate, content string) error {
	f.replies = append(f.replies, content)
	return nil
}

func (f *fakeResponder) Defer(*discordgo.InteractionCreate) error {
	f.deferred = true
	return nil
}

func (f *fakeResponder) Edit(_ *discordgo.InteractionCreate, content string) error {
	f.edits = append(f.edits, content)
	return nil
}

func (f *fakeResponder) last() string {
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

type fakeQueue struct {
	calls    []string
	err      error
	play     playback.PlayResult
	deadline bool
	snap     playback.Snapshot
	removed  int
}

func (q *fakeQueue) Play(ctx context.Context, sessionID, channelID, locator string) (playback.PlayResult, error) {
	_, q.deadline = ctx.Deadline()
	q.calls = append(q.calls, "play "+sessionID+" "+channelID+" "+locator)
	return q.play, q.err
}

func (q *fakeQueue) Skip(sessionID string) (playback.SkipResult, error) {
	q.calls = append(q.calls, "skip "+sessionID)
	return playback.SkipResult{Skipped: playback.Track{Title: "A"}}, q.err
}

func (q *fakeQueue) Pause(sessionID string) error {
	q.calls = append(q.calls, "pause "+sessionID)
	return q.err
}

func (q *fakeQueue) Resume(sessionID string) error {
	q.calls = append(q.calls, "resume "+sessionID)
	return q.err
}

func (q *fakeQueue) Clear(sessionID string) error {
	q.calls = append(q.calls, "clear "+sessionID)
	return q.err
}

func (q *fakeQueue) Remove(sessionID string, index int) (playback.RemoveResult, error) {
	q.calls = append(q.calls, "remove "+sessionID)
	q.removed = index
	return playback.RemoveResult{Title: "B", Index: index}, q.err
}

func (q *fakeQueue) ListQueue(string) playback.Snapshot {
	return q.snap
}

func (q *fakeQueue) Disconnect(sessionID string) error {
	q.calls = append(q.calls, "stop "+sessionID)
	return q.err
}

func interaction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(v),
	}
}

func stringOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: v,
	}
}

func run(t *testing.T, q *fakeQueue, inVoice bool, i *discordgo.InteractionCreate) *fakeResponder {
	t.Helper()
	cmd, ok := Commands[i.ApplicationCommandData().Name]
	if !ok {
		t.Fatalf("command %q not registered", i.ApplicationCommandData().Name)
	}
	resp := &fakeResponder{}
	c := &Context{
		Ctx:         context.Background(),
		Interaction: i,
		Responder:   resp,
		Queue:       q,
		Roller:      dice.NewRoller(100, 1000, rand.NewPCG(1, 2)),
		VoiceChannel: func(guildID, userID string) (string, bool) {
			if !inVoice {
				return "", false
			}
			return "voice-" + userID, true
		},
		ResolveTimeout: time.Second,
		Logger:         zerolog.Nop(),
	}
	if err := cmd.Handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return resp
}

func TestRegisteredCommands(t *testing.T) {
	var names []string
	for _, c := range GetApplicationCommands() {
		names = append(names, c.Name)
	}
	want := "clear nowplaying pause ping play playlist remove resume roll skip stop"
	if got := strings.Join(names, " "); got != want {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	if Commands["roll"].GuildOnly || Commands["ping"].GuildOnly || !Commands["play"].GuildOnly {
		t.Fatal("unexpected GuildOnly flags")
	}
}

func TestPlayDefersAndEdits(t *testing.T) {
	q := &fakeQueue{play: playback.PlayResult{Title: "Song", Index: 0}}
	resp := run(t, q, true, interaction("play", stringOpt("song", " never gonna ")))

	if !resp.deferred || len(resp.replies) != 0 {
		t.Fatalf("play must defer, got replies %v", resp.replies)
	}
	if len(resp.edits) != 1 || resp.edits[0] != "Added Song to the Queue! Index: 0" {
		t.Fatalf("edits = %v", resp.edits)
	}
	if q.calls[0] != "play g1 voice-u1 never gonna" || !q.deadline {
		t.Fatalf("calls = %v, deadline = %v", q.calls, q.deadline)
	}
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	q := &fakeQueue{}
	resp := run(t, q, false, interaction("play", stringOpt("song", "x")))
	if resp.last() != msgNotInVoice || len(q.calls) != 0 {
		t.Fatalf("reply = %q, calls = %v", resp.last(), q.calls)
	}
}

func TestPlayFailureEditsError(t *testing.T) {
	q := &fakeQueue{err: playback.ErrSinkAttachFailed}
	resp := run(t, q, true, interaction("play", stringOpt("song", "x")))
	if len(resp.edits) != 1 || resp.edits[0] != "Couldn't join your voice channel." {
		t.Fatalf("edits = %v", resp.edits)
	}
}

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		call string
	}{
		{"pause", nil, "Paused!", "pause g1"},
		{"resume", nil, "Resumed!", "resume g1"},
		{"skip", nil, "Skipped!", "skip g1"},
		{"clear", nil, "Playlist cleared!", "clear g1"},
		{"stop", nil, "Bye!", "stop g1"},
		{"pause", playback.ErrNothingPlaying, "Nothing is playing.", "pause g1"},
		{"stop", playback.ErrNotVoiceConnected, "I am not connected to a voice channel", "stop g1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{err: tt.err}
			resp := run(t, q, true, interaction(tt.name))
			if resp.last() != tt.want {
				t.Fatalf("reply = %q, want %q", resp.last(), tt.want)
			}
			if len(q.calls) != 1 || q.calls[0] != tt.call {
				t.Fatalf("calls = %v", q.calls)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	q := &fakeQueue{}
	resp := run(t, q, true, interaction("remove", intOpt("song_index", 1)))
	if resp.last() != "Removed B from the Queue! Index: 1" || q.removed != 1 {
		t.Fatalf("reply = %q, removed = %d", resp.last(), q.removed)
	}

	q = &fakeQueue{err: playback.ErrInvalidIndex}
	resp = run(t, q, true, interaction("remove", intOpt("song_index", 9)))
	if resp.last() != "Couldn't remove song." {
		t.Fatalf("reply = %q", resp.last())
	}
}

func TestPlaylistAndNowPlaying(t *testing.T) {
	q := &fakeQueue{snap: playback.Snapshot{
		Current: &playback.Track{Title: "A"},
		State:   playback.StatePlaying,
		Queue:   []playback.Track{{Title: "B"}},
	}}
	if got := run(t, q, true, interaction("playlist")).last(); got != "Now playing: A\n\nCurrent Playlist:\n0: B\n" {
		t.Fatalf("playlist = %q", got)
	}
	if got := run(t, q, true, interaction("nowplaying")).last(); got != "Now playing: A\n1 more in the queue." {
		t.Fatalf("nowplaying = %q", got)
	}
}

func TestRoll(t *testing.T) {
	resp := run(t, &fakeQueue{}, false, interaction("roll", intOpt("dices", 3), intOpt("sides", 6)))
	if !strings.HasPrefix(resp.last(), "You rolled ") || !strings.Contains(resp.last(), "total: ") {
		t.Fatalf("reply = %q", resp.last())
	}

	resp = run(t, &fakeQueue{}, false, interaction("roll", intOpt("dices", 500), intOpt("sides", 6)))
	if !strings.HasPrefix(resp.last(), "Can't roll that: ") {
		t.Fatalf("reply = %q", resp.last())
	}
}

func TestPing(t *testing.T) {
	if got := run(t, &fakeQueue{}, false, interaction("ping")).last(); got != "Pong!" {
		t.Fatalf("reply = %q", got)
	}
}
