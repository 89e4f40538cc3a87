package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "stop",
			Description: "Stop music playback and leave the voice channel",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			if err := c.Queue.Disconnect(c.GuildID()); err != nil {
				return c.ReplyError(err)
			}
			return c.Reply("Bye!")
		},
	})
}
