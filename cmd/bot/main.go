package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/mhtoin/discobot/internal/audioplayer"
	"github.com/mhtoin/discobot/internal/bot"
	"github.com/mhtoin/discobot/internal/config"
	"github.com/mhtoin/discobot/internal/dice"
	"github.com/mhtoin/discobot/internal/httpapi"
	"github.com/mhtoin/discobot/internal/logging"
	"github.com/mhtoin/discobot/internal/observability"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/mhtoin/discobot/internal/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	ytdlpLog := logging.Component(logger, "yt-dlp")
	sources := audioplayer.YTDLPSources(cfg.YTDLPPath, ytdlpLog)
	resolverOpts := []resolver.Option{resolver.WithLogger(logging.Component(logger, "resolver"))}
	if cfg.AudioBackend == config.BackendKkdai {
		client := &youtube.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
		sources = audioplayer.KkdaiSources(client, sources)
		resolverOpts = append(resolverOpts, resolver.WithYouTubeClient(client))
	}
	res := resolver.New(cfg.YTDLPPath, resolverOpts...)

	player := audioplayer.NewPlayer(
		audioplayer.NewDiscordDialer(session, logging.Component(logger, "voice")),
		sources,
		audioplayer.FfmpegProcessors(cfg.FFmpegPath, cfg.Volume, logging.Component(logger, "ffmpeg")),
		logging.Component(logger, "player"),
	)

	registry := playback.NewRegistry(player, logging.Component(logger, "session"))
	controller := playback.NewController(registry, res, player,
		playback.WithRecorder(metrics),
		playback.WithLogger(logging.Component(logger, "controller")),
	)
	player.SetStreamEndedHandler(controller.StreamEnded)
	metrics.TrackSessions(registry.Len)

	discord := bot.New(session, controller, dice.NewRoller(cfg.RollMaxDice, cfg.RollMaxSides, nil), bot.Options{
		GuildID:         cfg.GuildID,
		ResolveTimeout:  cfg.ResolveTimeout,
		CommandRate:     rate.Limit(cfg.CommandRate),
		CommandBurst:    cfg.CommandBurst,
		Recorder:        metrics,
		VoiceAttachment: player.Channel,
		OnShutdown: func() {
			for _, id := range controller.Sessions() {
				controller.Disconnect(id)
			}
		},
	}, logging.Component(logger, "bot"))

	api := httpapi.New(controller, metrics.Handler(), logging.Component(logger, "http"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return discord.Run(ctx) })
	g.Go(func() error { return api.Serve(ctx, cfg.HTTPAddr) })
	g.Go(func() error { return registry.RunJanitor(ctx, cfg.SweepInterval) })

	logger.Info().Str("backend", cfg.AudioBackend).Str("http", cfg.HTTPAddr).Msg("discobot starting")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("discobot stopped")
		return err
	}
	logger.Info().Msg("discobot stopped")
	return nil
}
