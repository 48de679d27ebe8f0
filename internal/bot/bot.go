package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/example/readbot/internal/journal"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// MenuButton represents a button in an inline keyboard
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Config holds the Telegram connection settings
type Config struct {
	Token string
	// APIEndpoint overrides the Bot API URL format, e.g. for a local Bot API server
	APIEndpoint string
	// PollTimeout is the long polling timeout in seconds
	PollTimeout int
}

// Bot is the Telegram front end of the reading journal
type Bot struct {
	api     *tgbotapi.BotAPI
	journal *journal.Service
	files   *http.Client
	log     logrus.FieldLogger
	timeout int

	wg sync.WaitGroup
}

// New connects to the Bot API and returns a bot serving svc
func New(cfg Config, svc *journal.Service, logger logrus.FieldLogger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	logger.WithField("account", api.Self.UserName).Info("Authorized on Telegram")

	return &Bot{
		api:     api,
		journal: svc,
		files:   &http.Client{Timeout: 60 * time.Second},
		log:     logger,
		timeout: cfg.PollTimeout,
	}, nil
}

// Start receives updates by long polling until ctx is cancelled.
// Updates are handled concurrently; Start returns after all handlers finish.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	if b.timeout > 0 {
		updateConfig.Timeout = b.timeout
	}
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("Bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("Bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("update_id", update.UpdateID).Errorf("Panic while handling update: %v", r)
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.HandleMessage(ctx, update.Message)
	}
	if err != nil {
		b.log.WithField("update_id", update.UpdateID).WithError(err).Error("Failed to handle update")
	}
}

// SendMessage implements scheduler.Notifier
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.sendHTML(chatID, text, nil)
}

// SendReviewReminder implements scheduler.Notifier. The message carries a
// button that opens the first due card.
func (b *Bot) SendReviewReminder(ctx context.Context, chatID int64, text string) error {
	kb := createKeyboard([][]MenuButton{{{Text: "🧠 Начать повторение", CallbackData: callbackReviewNext}}})
	return b.sendHTML(chatID, text, &kb)
}

func (b *Bot) sendHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	return b.sendMessage(msg)
}

func (b *Bot) sendMessage(c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) editHTML(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	return b.sendMessage(edit)
}
