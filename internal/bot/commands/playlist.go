package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "playlist",
			Description: "Show the queue",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			return c.Reply(RenderPlaylist(c.Queue.ListQueue(c.GuildID())))
		},
	})

	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "nowplaying",
			Description: "Show the current song",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			return c.Reply(RenderNowPlaying(c.Queue.ListQueue(c.GuildID())))
		},
	})
}
