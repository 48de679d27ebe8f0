package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/readbot/internal/ai"
	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/internal/journal"
	"github.com/example/readbot/internal/spaced_repetition"
	"github.com/example/readbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HandleMessage routes a chat message: /start is open to everyone, other
// commands, text notes and voice notes need a linked profile.
func (b *Bot) HandleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	chatID := message.Chat.ID

	if message.IsCommand() && message.Command() == "start" {
		return b.handleStart(ctx, message)
	}

	profile, err := b.journal.ProfileByChat(ctx, chatID)
	if errors.Is(err, models.ErrProfileNotFound) {
		return b.sendHTML(chatID, msgNotLinked, nil)
	}
	if err != nil {
		return err
	}
	log := b.log.WithFields(logrus.Fields{"user_id": profile.ID, "chat_id": chatID})

	switch {
	case message.IsCommand():
		err = b.HandleCommand(ctx, profile, message)
	case message.Voice != nil:
		err = b.handleVoice(ctx, profile, message)
	case strings.TrimSpace(message.Text) != "":
		err = b.handleTextNote(ctx, profile, message)
	default:
		return nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to handle message")
		return b.sendHTML(chatID, msgError, nil)
	}
	return nil
}

// HandleCommand handles bot commands of a linked chat
func (b *Bot) HandleCommand(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	switch message.Command() {
	case "help":
		return b.sendHTML(message.Chat.ID, helpText, nil)
	case "stats":
		return b.handleStats(ctx, profile, message)
	case "books":
		return b.handleBooks(ctx, profile, message)
	case "read":
		return b.handleRead(ctx, profile, message)
	case "review":
		return b.sendNextCard(ctx, profile, message.Chat.ID)
	default:
		return b.sendHTML(message.Chat.ID, msgUnknown, nil)
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	code := strings.TrimSpace(message.CommandArguments())
	if code == "" {
		return b.sendHTML(chatID, welcomeText, nil)
	}

	_, err := b.journal.LinkTelegram(ctx, code, chatID)
	switch {
	case err == nil:
		return b.sendHTML(chatID, msgLinked, nil)
	case errors.Is(err, models.ErrInvalidLinkCode):
		if _, sanitizeErr := journal.SanitizeLinkCode(code); sanitizeErr != nil {
			return b.sendHTML(chatID, msgBadCode, nil)
		}
		return b.sendHTML(chatID, msgUnknownCode, nil)
	default:
		b.log.WithField("chat_id", chatID).WithError(err).Error("Failed to link Telegram")
		return b.sendHTML(chatID, msgError, nil)
	}
}

func (b *Bot) handleStats(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	summary, err := b.journal.Summary(ctx, profile.ID)
	if err != nil {
		return err
	}
	return b.sendHTML(message.Chat.ID, formatStats(summary), nil)
}

func (b *Bot) handleBooks(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	books, err := b.journal.ReadingBooks(ctx, profile.ID)
	if err != nil {
		return err
	}
	return b.sendHTML(message.Chat.ID, formatBooks(books), nil)
}

func (b *Bot) handleRead(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	pages, err := strconv.Atoi(strings.TrimSpace(message.CommandArguments()))
	if err != nil || pages <= 0 {
		return b.sendHTML(chatID, msgReadUsage, nil)
	}

	book, err := b.journal.CurrentBook(ctx, profile.ID)
	if err != nil {
		return err
	}
	if book == nil {
		return b.sendHTML(chatID, msgNoBook, nil)
	}

	res, err := b.journal.LogReading(ctx, profile.ID, book.ID, pages, 0)
	if err != nil {
		return err
	}
	return b.sendHTML(chatID, formatReading(res), nil)
}

func (b *Bot) handleTextNote(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	res, err := b.journal.AddNote(ctx, profile.ID, journal.NoteInput{Text: message.Text})
	if err != nil {
		return err
	}
	// the user just typed the note, so it is not echoed back
	text, _ := formatNoteReply(res, false)
	return b.sendHTML(message.Chat.ID, text, nil)
}

func (b *Bot) handleVoice(ctx context.Context, profile *models.Profile, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	log := b.log.WithFields(logrus.Fields{"user_id": profile.ID, "chat_id": chatID})
	if message.Voice.FileSize > ai.MaxAudioSize {
		return b.sendHTML(chatID, "❌ Голосовое сообщение слишком длинное.", nil)
	}
	if err := b.sendHTML(chatID, msgVoiceWorking, nil); err != nil {
		log.WithError(err).Warn("Failed to acknowledge voice message")
	}

	audio, err := b.downloadFile(ctx, message.Voice.FileID)
	if err != nil {
		log.WithError(err).Error("Failed to download voice message")
		return b.sendHTML(chatID, msgVoiceError, nil)
	}

	res, err := b.journal.AddVoiceNote(ctx, profile.ID, audio, "voice.ogg")
	if errors.Is(err, journal.ErrAIDisabled) {
		return b.sendHTML(chatID, "❌ Голосовые заметки недоступны: не настроен OpenAI.", nil)
	}
	if err != nil {
		log.WithError(err).Error("Voice processing failed")
		return b.sendHTML(chatID, msgVoiceError, nil)
	}

	text, cut := formatNoteReply(res, true)
	if !cut {
		return b.sendHTML(chatID, text, nil)
	}
	kb := createKeyboard([][]MenuButton{{{Text: "📖 Показать полностью", CallbackData: showNoteData(res.Note.ID)}}})
	return b.sendHTML(chatID, text, &kb)
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, ai.MaxAudioSize+1))
}

// sendNextCard shows the most urgent due card with a "show answer" button
func (b *Bot) sendNextCard(ctx context.Context, profile *models.Profile, chatID int64) error {
	cards, err := b.journal.DueCards(ctx, profile.ID, 1)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return b.sendHTML(chatID, msgNoCards, nil)
	}
	card := cards[0]
	kb := createKeyboard([][]MenuButton{{{Text: "👀 Показать ответ", CallbackData: showAnswerData(card.ID)}}})
	return b.sendHTML(chatID, formatQuestion(&card), &kb)
}

func answerKeyboard(cardID string) tgbotapi.InlineKeyboardMarkup {
	row := make([]MenuButton, 0, len(spaced_repetition.Buttons))
	for _, btn := range spaced_repetition.Buttons {
		row = append(row, MenuButton{Text: buttonLabels[btn], CallbackData: answerData(btn, cardID)})
	}
	return createKeyboard([][]MenuButton{row})
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	profile, err := b.journal.ProfileByChat(ctx, chatID)
	if errors.Is(err, models.ErrProfileNotFound) {
		return b.answerCallback(callback.ID, "❌ Аккаунт не привязан", true)
	}
	if err != nil {
		return err
	}

	action, err := parseCallback(callback.Data)
	if err != nil {
		return b.answerCallback(callback.ID, "⚠️ Неизвестное действие", false)
	}

	switch action.Kind {
	case callbackNextCard:
		err = b.sendNextCard(ctx, profile, chatID)

	case callbackShowAnswer:
		var card *models.ReviewCard
		card, err = b.journal.Card(ctx, profile.ID, action.ID)
		if err == nil {
			kb := answerKeyboard(card.ID)
			err = b.editHTML(chatID, messageID, formatAnswer(card), &kb)
		}

	case callbackAnswer:
		var res *journal.AnswerResult
		res, err = b.journal.AnswerCard(ctx, profile.ID, action.ID, action.Button)
		if err == nil {
			if err = b.editHTML(chatID, messageID, formatAnswered(res), nil); err == nil {
				err = b.sendNextCard(ctx, profile, chatID)
			}
		}

	case callbackShowNote:
		var note *database.NoteWithBook
		note, err = b.journal.Note(ctx, profile.ID, action.ID)
		if err == nil {
			// keep the xp and streak lines of the original reply
			header := strings.SplitN(callback.Message.Text, "\n\n📝", 2)[0]
			err = b.editHTML(chatID, messageID, formatFullNote(header, note.Text()), nil)
		}
	}

	switch {
	case errors.Is(err, models.ErrCardNotFound):
		return b.answerCallback(callback.ID, "❌ Карточка не найдена", true)
	case errors.Is(err, models.ErrNoteNotFound):
		return b.answerCallback(callback.ID, "❌ Заметка не найдена", true)
	case err != nil:
		b.log.WithFields(logrus.Fields{"user_id": profile.ID, "data": callback.Data}).WithError(err).Error("Failed to handle callback")
		return b.answerCallback(callback.ID, "❌ Произошла ошибка", true)
	}
	return b.answerCallback(callback.ID, "", false)
}

// answerCallback removes the loading state of a pressed button
func (b *Bot) answerCallback(id, text string, alert bool) error {
	answer := tgbotapi.NewCallback(id, text)
	answer.ShowAlert = alert
	if _, err := b.api.Request(answer); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}
