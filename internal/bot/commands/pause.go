package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "pause",
			Description: "Pause current audio playback",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			if err := c.Queue.Pause(c.GuildID()); err != nil {
				return c.ReplyError(err)
			}
			return c.Reply("Paused!")
		},
	})
}
