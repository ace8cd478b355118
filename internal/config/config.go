package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath         string `envconfig:"DB_PATH" default:"./data/tasks.db"`
	DefaultTZ      string `envconfig:"DEFAULT_TZ" default:"Europe/Amsterdam"`
	DefaultDigest  string `envconfig:"DEFAULT_DIGEST" default:"09:00"` // chat-local HH:MM
	DefaultLeadMin int    `envconfig:"DEFAULT_LEAD_MIN" default:"30"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config and validates the defaults
// that feed new chats.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if _, err := domain.ValidateTZ(cfg.DefaultTZ); err != nil {
		return cfg, fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if _, _, err := domain.ParseClock(cfg.DefaultDigest); err != nil {
		return cfg, fmt.Errorf("DEFAULT_DIGEST: %w", err)
	}
	return cfg, nil
}

// DigestClock splits the validated DEFAULT_DIGEST value.
func (c Config) DigestClock() (hour, minute int) {
	hour, minute, _ = domain.ParseClock(c.DefaultDigest)
	return hour, minute
}
