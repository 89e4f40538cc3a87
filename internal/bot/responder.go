package bot

import (
	"github.com/bwmarrin/discordgo"
)

// sessionResponder replies through the interaction webhooks of a session.
type sessionResponder struct {
	session *discordgo.Session
}

func (r sessionResponder) Respond(i *discordgo.InteractionCreate, content string) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func (r sessionResponder) Defer(i *discordgo.InteractionCreate) error {
	return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (r sessionResponder) Edit(i *discordgo.InteractionCreate, content string) error {
	_, err := r.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}
