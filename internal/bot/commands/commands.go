package commands

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mhtoin/discobot/internal/dice"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

// Queue is the playback API the music commands drive.
type Queue interface {
	Play(ctx context.Context, sessionID, channelID, locator string) (playback.PlayResult, error)
	Skip(sessionID string) (playback.SkipResult, error)
	Pause(sessionID string) error
	Resume(sessionID string) error
	Clear(sessionID string) error
	Remove(sessionID string, index int) (playback.RemoveResult, error)
	ListQueue(sessionID string) playback.Snapshot
	Disconnect(sessionID string) error
}

// Responder sends interaction replies.
type Responder interface {
	Respond(i *discordgo.InteractionCreate, content string) error
	// Defer acknowledges the interaction so the reply can follow via Edit.
	Defer(i *discordgo.InteractionCreate) error
	Edit(i *discordgo.InteractionCreate, content string) error
}

// Context is what a handler gets for one interaction.
type Context struct {
	Ctx            context.Context
	Interaction    *discordgo.InteractionCreate
	Responder      Responder
	Queue          Queue
	Roller         *dice.Roller
	VoiceChannel   func(guildID, userID string) (string, bool)
	ResolveTimeout time.Duration
	Logger         zerolog.Logger
}

func (c *Context) GuildID() string {
	return c.Interaction.GuildID
}

func (c *Context) UserID() string {
	if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
		return c.Interaction.Member.User.ID
	}
	if c.Interaction.User != nil {
		return c.Interaction.User.ID
	}
	return ""
}

func (c *Context) Reply(content string) error {
	return c.Responder.Respond(c.Interaction, content)
}

func (c *Context) ReplyError(err error) error {
	return c.Reply(RenderError(err))
}

// Option returns the named option of the invoked command.
func (c *Context) Option(name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range c.Interaction.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

type Command struct {
	ApplicationCommand *discordgo.ApplicationCommand
	// GuildOnly commands are refused in direct messages.
	GuildOnly bool
	Handler   func(c *Context) error
}

var Commands = make(map[string]Command)

func RegisterCommand(cmd Command) {
	Commands[cmd.ApplicationCommand.Name] = cmd
}

// GetApplicationCommands returns the command schemas sorted by name.
func GetApplicationCommands() []*discordgo.ApplicationCommand {
	var appCommands []*discordgo.ApplicationCommand
	for _, cmd := range Commands {
		appCommands = append(appCommands, cmd.ApplicationCommand)
	}
	slices.SortFunc(appCommands, func(a, b *discordgo.ApplicationCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return appCommands
}

func UpdateBotStatus(s *discordgo.Session, status string, activityType discordgo.ActivityType, activityName string) error {
	activity := discordgo.Activity{
		Name: activityName,
		Type: activityType,
	}

	updateData := discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{&activity},
		Status:     status,
		AFK:        false,
	}

	return s.UpdateStatusComplex(updateData)
}
