package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/readbot/pkg/models"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// MaxAudioSize is the largest recording the transcription endpoint accepts
const MaxAudioSize = 25 * 1024 * 1024

// ErrAudioTooLarge is returned for recordings over MaxAudioSize
var ErrAudioTooLarge = errors.New("audio file too large (max 25MB)")

// Config holds the OpenAI client configuration
type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	Language        string
	MaxTokens       int
	MaxRetries      int
	RetryDelay      time.Duration
}

// ChatGPT is the OpenAI collaborator of the journal: it transcribes voice
// notes, tidies them up and drafts review cards from them.
type ChatGPT struct {
	client *openai.Client
	config Config
	log    logrus.FieldLogger
}

// New creates a new ChatGPT client
func New(cfg Config, logger logrus.FieldLogger) (*ChatGPT, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = openai.Whisper1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &ChatGPT{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		log:    logger,
	}, nil
}

// Transcribe converts a voice recording to text
func (c *ChatGPT) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) > MaxAudioSize {
		return "", ErrAudioTooLarge
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var text string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.config.TranscribeModel,
			FilePath: filename,
			Reader:   bytes.NewReader(audio),
			Language: c.config.Language,
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return text, nil
}

// FormatNote restructures a raw note into readable markdown.
// An empty answer falls back to the raw text.
func (c *ChatGPT) FormatNote(ctx context.Context, raw, bookTitle string) (string, error) {
	about := ""
	if bookTitle != "" {
		about = fmt.Sprintf(" о книге \"%s\"", bookTitle)
	}
	system := fmt.Sprintf("Ты помощник для ведения читательского дневника. Переформатируй заметку%s в структурированный, читаемый вид. "+
		"Сохрани все ключевые мысли, добавь структуру с заголовками если уместно. Используй markdown. Отвечай на русском.", about)

	formatted, err := c.chat(ctx, system, raw)
	if err != nil {
		return "", fmt.Errorf("failed to format note: %w", err)
	}
	if formatted == "" {
		return raw, nil
	}
	return formatted, nil
}

// GenerateReviewCards drafts 2-5 question/answer pairs from a note.
// Malformed model output yields no cards rather than an error.
func (c *ChatGPT) GenerateReviewCards(ctx context.Context, text, bookTitle string) ([]models.CardDraft, error) {
	from := ""
	if bookTitle != "" {
		from = fmt.Sprintf(" из книги \"%s\"", bookTitle)
	}
	system := fmt.Sprintf("На основе заметки%s создай 2-5 карточек для повторения материала. Каждая карточка содержит вопрос и краткий ответ. "+
		"Вопросы должны быть разного типа: фактические, на понимание, на применение. "+
		"Отвечай в формате JSON массива: [{\"question\": \"...\", \"answer\": \"...\"}]. Отвечай на русском. Ничего кроме JSON не пиши.", from)

	content, err := c.chat(ctx, system, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate review cards: %w", err)
	}

	drafts, err := ParseCardDrafts(content)
	if err != nil {
		c.log.WithError(err).Warn("Model returned malformed review cards")
		return nil, nil
	}
	return drafts, nil
}

func (c *ChatGPT) chat(ctx context.Context, system, user string) (string, error) {
	var result string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.config.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens: c.config.MaxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no response choices returned")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return result, err
}

// ParseCardDrafts decodes the JSON array the model answers with, tolerating
// a surrounding markdown code fence. Pairs with an empty side are dropped.
func ParseCardDrafts(content string) ([]models.CardDraft, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, nil
	}

	var raw []models.CardDraft
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}

	drafts := make([]models.CardDraft, 0, len(raw))
	for _, d := range raw {
		d.Question = strings.TrimSpace(d.Question)
		d.Answer = strings.TrimSpace(d.Answer)
		if d.Question == "" || d.Answer == "" {
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence with its language tag
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// doWithRetry executes fn with exponential backoff
func (c *ChatGPT) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == c.config.MaxRetries-1 {
			break
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * c.config.RetryDelay
		c.log.WithFields(logrus.Fields{"attempt": attempt + 1, "wait": wait}).WithError(err).Debug("OpenAI request failed, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
