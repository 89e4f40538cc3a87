package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "clear",
			Description: "Stop playback and empty the queue",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			if err := c.Queue.Clear(c.GuildID()); err != nil {
				return c.ReplyError(err)
			}
			return c.Reply("Playlist cleared!")
		},
	})
}
