package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Skip the current song",
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			res, err := c.Queue.Skip(c.GuildID())
			if err != nil {
				return c.ReplyError(err)
			}
			return c.Reply(RenderSkip(res))
		},
	})
}
