package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "resume",
			Description: "Resume paused audio playback",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			if err := c.Queue.Resume(c.GuildID()); err != nil {
				return c.ReplyError(err)
			}
			return c.Reply("Resumed!")
		},
	})
}
