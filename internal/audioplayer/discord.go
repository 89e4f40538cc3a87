package audioplayer

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// DiscordDialer joins voice channels through a gateway session.
type DiscordDialer struct {
	session *discordgo.Session
	logger  zerolog.Logger
}

func NewDiscordDialer(s *discordgo.Session, logger zerolog.Logger) *DiscordDialer {
	return &DiscordDialer{session: s, logger: logger}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join blocks until the voice connection is ready or ctx is done. A join that
// completes after ctx expired is disconnected again.
func (d *DiscordDialer) Join(ctx context.Context, guildID, channelID string) (Voice, error) {
	done := make(chan joinResult, 1)
	go func() {
		vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return discordVoice{vc: r.vc}, nil
	case <-ctx.Done():
		go func() {
			r := <-done
			if r.err == nil {
				d.logger.Debug().Str("guild", guildID).Msg("dropping late voice join")
				r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

type discordVoice struct {
	vc *discordgo.VoiceConnection
}

func (v discordVoice) Speaking(b bool) error {
	return v.vc.Speaking(b)
}

func (v discordVoice) OpusSend() chan<- []byte {
	return v.vc.OpusSend
}

func (v discordVoice) Disconnect() error {
	return v.vc.Disconnect()
}
