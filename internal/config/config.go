package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendYTDLP = "ytdlp"
	BackendKkdai = "kkdai"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	// GuildID registers commands on one guild only, which updates instantly.
	GuildID string `env:"DISCORD_GUILD_ID"`

	AudioBackend   string        `env:"AUDIO_BACKEND" envDefault:"ytdlp"`
	YTDLPPath      string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath     string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	Volume         float64       `env:"VOLUME" envDefault:"0.5"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"20s"`

	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`

	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"discobot"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"1"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"5"`

	RollMaxDice  int `env:"ROLL_MAX_DICE" envDefault:"100"`
	RollMaxSides int `env:"ROLL_MAX_SIDES" envDefault:"1000"`
}

// Load reads a .env file if present, then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.AudioBackend != BackendYTDLP && c.AudioBackend != BackendKkdai {
		errs = append(errs, fmt.Errorf("AUDIO_BACKEND must be %q or %q, got %q", BackendYTDLP, BackendKkdai, c.AudioBackend))
	}
	if c.Volume <= 0 || c.Volume > 2 {
		errs = append(errs, fmt.Errorf("VOLUME must be in (0, 2], got %v", c.Volume))
	}
	if c.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.CommandRate <= 0 || c.CommandBurst < 1 {
		errs = append(errs, errors.New("COMMAND_RATE and COMMAND_BURST must be positive"))
	}
	if c.RollMaxDice < 1 || c.RollMaxSides < 2 {
		errs = append(errs, errors.New("ROLL_MAX_DICE must be >= 1 and ROLL_MAX_SIDES >= 2"))
	}
	return errors.Join(errs...)
}
