package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/readbot/internal/ai"
	"github.com/example/readbot/internal/config"
	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/journal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "readbot",
	Short:         "Reading journal with spaced repetition in Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = newLogger(c)
		return nil
	},
}

// Execute runs the command tree. It is called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(c *config.Config) *logrus.Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// openStore connects to the configured database and applies migrations
func openStore(ctx context.Context) (*database.Store, error) {
	db, err := database.Connect(ctx, database.Options{
		Type:        cfg.DBType,
		SQLitePath:  cfg.SQLitePath,
		PostgresURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return database.NewStore(db), nil
}

// newJournal builds the journal service. The AI collaborator is attached
// only when an OpenAI key is configured.
func newJournal(store *database.Store) (*journal.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	engine := gamification.NewEngine(store, loc, logger.WithField("component", "gamification"))

	var assistant journal.Assistant
	if cfg.AIEnabled() {
		gpt, err := ai.New(ai.Config{
			APIKey:          cfg.OpenAIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			ChatModel:       cfg.OpenAIChatModel,
			TranscribeModel: cfg.OpenAITranscribeModel,
			Language:        cfg.OpenAILanguage,
		}, logger.WithField("component", "ai"))
		if err != nil {
			return nil, fmt.Errorf("ai client: %w", err)
		}
		assistant = gpt
	} else {
		logger.Warn("OPENAI_API_KEY is not set: voice notes and review card generation are disabled")
	}

	return journal.NewService(store, engine, assistant, logger.WithField("component", "journal")), nil
}
