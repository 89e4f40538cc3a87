package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "play",
			Description: "Queue a song from a link or a search",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "song",
					Description: "A YouTube link, any link yt-dlp supports, or search words",
					Required:    true,
				},
			},
		},
		GuildOnly: true,
		Handler:   play,
	})
}

func play(c *Context) error {
	opt, ok := c.Option("song")
	song := ""
	if ok {
		song = strings.TrimSpace(opt.StringValue())
	}
	if song == "" {
		return c.Reply("Tell me what to play.")
	}

	channelID, ok := c.VoiceChannel(c.GuildID(), c.UserID())
	if !ok {
		return c.Reply(msgNotInVoice)
	}

	// Resolving can outlive the interaction's three second reply window.
	if err := c.Responder.Defer(c.Interaction); err != nil {
		return err
	}

	ctx := c.Ctx
	if c.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ResolveTimeout)
		defer cancel()
	}

	res, err := c.Queue.Play(ctx, c.GuildID(), channelID, song)
	if err != nil {
		c.Logger.Info().Err(err).Str("song", song).Msg("play failed")
		return c.Responder.Edit(c.Interaction, RenderError(err))
	}
	return c.Responder.Edit(c.Interaction, RenderPlay(res))
}
