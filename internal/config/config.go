package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bot
type Config struct {
	TelegramToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	OpenAIKey             string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIChatModel       string `mapstructure:"OPENAI_CHAT_MODEL"`
	OpenAITranscribeModel string `mapstructure:"OPENAI_TRANSCRIBE_MODEL"`
	OpenAILanguage        string `mapstructure:"OPENAI_LANGUAGE"`

	DBType      string `mapstructure:"DB_TYPE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	Timezone string `mapstructure:"TIMEZONE"`

	EnableScheduler   bool    `mapstructure:"ENABLE_SCHEDULER"`
	ReadingReminderAt string  `mapstructure:"READING_REMINDER_AT"`
	ReviewReminderAt  string  `mapstructure:"REVIEW_REMINDER_AT"`
	NoteDigestAt      string  `mapstructure:"NOTE_DIGEST_AT"`
	NotifyRatePerSec  float64 `mapstructure:"NOTIFY_RATE_PER_SEC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var keys = map[string]interface{}{
	"TELEGRAM_BOT_TOKEN":      "",
	"OPENAI_API_KEY":          "",
	"OPENAI_BASE_URL":         "",
	"OPENAI_CHAT_MODEL":       "gpt-4o-mini",
	"OPENAI_TRANSCRIBE_MODEL": "whisper-1",
	"OPENAI_LANGUAGE":         "ru",
	"DB_TYPE":                 "sqlite",
	"DATABASE_URL":            "",
	"SQLITE_PATH":             "data/readbot.db",
	"TIMEZONE":                "UTC",
	"ENABLE_SCHEDULER":        true,
	"READING_REMINDER_AT":     "20:00",
	"REVIEW_REMINDER_AT":      "10:00",
	"NOTE_DIGEST_AT":          "12:00",
	"NOTIFY_RATE_PER_SEC":     25.0,
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "text",
}

// Load reads configuration from .env and environment variables.
// A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}
	return FromViper(viper.New())
}

// FromViper binds the known keys of v to the environment and decodes them
func FromViper(v *viper.Viper) (*Config, error) {
	for key, def := range keys {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	for _, at := range []string{cfg.ReadingReminderAt, cfg.ReviewReminderAt, cfg.NoteDigestAt} {
		if _, err := time.Parse("15:04", at); err != nil {
			return nil, fmt.Errorf("invalid reminder time %q, expected HH:MM", at)
		}
	}
	if cfg.DBType == "postgres" && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when DB_TYPE=postgres")
	}
	if cfg.DBType != "postgres" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
	return &cfg, nil
}

// Location returns the timezone calendar days are counted in
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AIEnabled reports whether an OpenAI key is configured
func (c *Config) AIEnabled() bool {
	return c.OpenAIKey != ""
}

// Validate checks the settings needed to run the bot
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	return nil
}
