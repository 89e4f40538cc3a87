package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/mhtoin/discobot/internal/bot/commands"
	"github.com/mhtoin/discobot/internal/dice"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

// RateRecorder counts interactions refused by the rate limit.
type RateRecorder interface {
	CommandRateLimited()
}

type Options struct {
	// GuildID registers commands on one guild instead of globally.
	GuildID        string
	ResolveTimeout time.Duration
	CommandRate    rate.Limit
	CommandBurst   int
	Recorder       RateRecorder
	// VoiceAttachment reports the channel the audio player is currently
	// connected to in a guild. Leave events for any other channel are stale.
	VoiceAttachment func(guildID string) (channelID string, ok bool)
	// OnShutdown runs after ctx is done, while the gateway is still open.
	OnShutdown func()
}

type Bot struct {
	Session *discordgo.Session

	opts      Options
	queue     commands.Queue
	roller    *dice.Roller
	limiter   *userLimiter
	responder commands.Responder
	logger    zerolog.Logger

	ctx context.Context
}

// NewSession creates the gateway session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	session.Identify.Intents = Intents
	return session, nil
}

func New(session *discordgo.Session, queue commands.Queue, roller *dice.Roller, opts Options, logger zerolog.Logger) *Bot {
	if opts.CommandBurst < 1 {
		opts.CommandBurst = 1
	}
	return &Bot{
		Session:   session,
		opts:      opts,
		queue:     queue,
		roller:    roller,
		limiter:   newUserLimiter(opts.CommandRate, opts.CommandBurst),
		responder: sessionResponder{session: session},
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Run connects to the gateway, registers the slash commands and blocks until
// ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.Session.AddHandler(b.onReady)
	b.Session.AddHandler(b.onInteraction)
	b.Session.AddHandler(b.onVoiceStateUpdate)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer b.Session.Close()

	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.opts.GuildID, commands.GetApplicationCommands())
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	b.logger.Info().Int("commands", len(registered)).Str("guild", b.opts.GuildID).Msg("bot is now running")

	<-ctx.Done()
	b.logger.Info().Msg("shutting down bot")
	if b.opts.OnShutdown != nil {
		b.opts.OnShutdown()
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected to gateway")
	if err := commands.UpdateBotStatus(s, "online", discordgo.ActivityTypeListening, "/play"); err != nil {
		b.logger.Warn().Err(err).Msg("updating presence")
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.handle(i, b.voiceChannel)
}

// handle dispatches one slash command. It never returns an error; failures
// end up in the log and, when possible, in a reply.
func (b *Bot) handle(i *discordgo.InteractionCreate, voiceChannel func(guildID, userID string) (string, bool)) {
	name := i.ApplicationCommandData().Name
	c := &commands.Context{
		Ctx:            b.ctx,
		Interaction:    i,
		Responder:      b.responder,
		Queue:          b.queue,
		Roller:         b.roller,
		VoiceChannel:   voiceChannel,
		ResolveTimeout: b.opts.ResolveTimeout,
	}
	c.Logger = b.logger.With().
		Str("request_id", uuid.NewString()).
		Str("command", name).
		Str("guild", i.GuildID).
		Str("user", c.UserID()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("command panicked")
		}
	}()

	cmd, ok := commands.Commands[name]
	if !ok {
		c.Logger.Warn().Msg("unknown command")
		return
	}
	if cmd.GuildOnly && i.GuildID == "" {
		b.reply(c, commands.RenderGuildOnly())
		return
	}
	if !b.limiter.Allow(c.UserID()) {
		if b.opts.Recorder != nil {
			b.opts.Recorder.CommandRateLimited()
		}
		c.Logger.Info().Msg("rate limited")
		b.reply(c, commands.RenderRateLimited())
		return
	}

	started := time.Now()
	if err := cmd.Handler(c); err != nil {
		c.Logger.Error().Err(err).Msg("command failed")
		return
	}
	c.Logger.Debug().Dur("took", time.Since(started)).Msg("command handled")
}

func (b *Bot) reply(c *commands.Context, content string) {
	if err := c.Reply(content); err != nil {
		c.Logger.Error().Err(err).Msg("replying")
	}
}

// voiceChannel finds the voice channel userID sits in, from the gateway state
// cache.
func (b *Bot) voiceChannel(guildID, userID string) (string, bool) {
	vs, err := b.Session.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || !leftVoice(s.State.User.ID, v) {
		return
	}
	var from string
	if v.BeforeUpdate != nil {
		from = v.BeforeUpdate.ChannelID
	}
	b.botLeftVoice(v.GuildID, from)
}

// botLeftVoice drops the guild's queue after the bot was disconnected from
// channel from, be it by /stop, a moderator or a channel deletion. from is
// empty when the state cache did not know the previous channel.
func (b *Bot) botLeftVoice(guildID, from string) {
	if from != "" && b.opts.VoiceAttachment != nil {
		if current, ok := b.opts.VoiceAttachment(guildID); ok && current != from {
			b.logger.Debug().Str("guild", guildID).Str("left", from).Str("attached", current).Msg("stale voice leave ignored")
			return
		}
	}

	err := b.queue.Disconnect(guildID)
	switch {
	case err == nil:
		b.logger.Info().Str("guild", guildID).Msg("removed from voice channel, queue dropped")
	case errors.Is(err, playback.ErrNotVoiceConnected):
	default:
		b.logger.Warn().Err(err).Str("guild", guildID).Msg("dropping queue after voice disconnect")
	}
}

func leftVoice(selfID string, v *discordgo.VoiceStateUpdate) bool {
	return v.VoiceState != nil && v.UserID == selfID && v.ChannelID == ""
}
