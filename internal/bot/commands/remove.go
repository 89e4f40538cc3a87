package commands

import (
	"github.com/bwmarrin/discordgo"
)

func init() {
	minIndex := 0.0
	RegisterCommand(Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "remove",
			Description: "Remove a song from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "song_index",
					Description: "Index shown by /playlist",
					Required:    true,
					MinValue:    &minIndex,
				},
			},
		},
		GuildOnly: true,
		Handler: func(c *Context) error {
			opt, ok := c.Option("song_index")
			if !ok {
				return c.Reply("Which song? Pass the index shown by /playlist.")
			}
			res, err := c.Queue.Remove(c.GuildID(), int(opt.IntValue()))
			if err != nil {
				return c.ReplyError(err)
			}
			return c.Reply(RenderRemove(res))
		},
	})
}
