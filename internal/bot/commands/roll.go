package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	minOne, minTwo := 1.0, 2.0
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "roll",
			Description: "Roll some dice",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "dices",
					Description: "How many dice",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "sides",
					Description: "Sides per die",
					Required:    true,
					MinValue:    &minTwo,
				},
			},
		},
		Handler: func(c *Context) error {
			dices, ok1 := c.Option("dices")
			sides, ok2 := c.Option("sides")
			if !ok1 || !ok2 {
				return c.Reply("Usage: /roll dices sides")
			}
			roll, err := c.Roller.Roll(int(dices.IntValue()), int(sides.IntValue()))
			if err != nil {
				return c.ReplyError(err)
			}
			return c.Reply(RenderRoll(roll))
		},
	})
}
