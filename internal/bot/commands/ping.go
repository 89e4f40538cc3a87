package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "ping",
			Description: "Check if the bot is alive",
		},
		Handler: func(c *Context) error {
			return c.Reply("Pong!")
		},
	})
}
