package journal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/spaced_repetition"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
)

// Assistant is the AI collaborator used for notes. It is optional.
type Assistant interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	FormatNote(ctx context.Context, raw, bookTitle string) (string, error)
	GenerateReviewCards(ctx context.Context, text, bookTitle string) ([]models.CardDraft, error)
}

// ErrAIDisabled is returned for voice notes when no assistant is configured
var ErrAIDisabled = errors.New("AI features are disabled")

// linkCodeLen is the length of a Telegram link code in hex characters
const linkCodeLen = 8

// Outcome is the progression side effect of an activity
type Outcome struct {
	XPEarned     int
	XP           *gamification.XPResult
	Streak       *gamification.StreakResult
	Achievements []gamification.AchievementDefinition
}

// Service records reading activity and applies the progression rules to it
type Service struct {
	store  *database.Store
	engine *gamification.Engine
	sm2    *spaced_repetition.SM2
	ai     Assistant
	log    logrus.FieldLogger
}

// NewService creates the journal. assistant may be nil.
func NewService(store *database.Store, engine *gamification.Engine, assistant Assistant, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:  store,
		engine: engine,
		sm2:    spaced_repetition.NewSM2(),
		ai:     assistant,
		log:    logger,
	}
}

// Engine exposes the progression engine
func (s *Service) Engine() *gamification.Engine {
	return s.engine
}

// CreateProfile registers a new user
func (s *Service) CreateProfile(ctx context.Context, username string) (*models.Profile, error) {
	p := &models.Profile{Username: strings.TrimSpace(username)}
	if err := s.store.Profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", p.ID).Info("Profile created")
	return p, nil
}

// Profile returns a profile by ID
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.store.Profiles.GetByID(ctx, userID)
}

// ProfileByChat returns the profile linked to a Telegram chat
func (s *Service) ProfileByChat(ctx context.Context, chatID int64) (*models.Profile, error) {
	return s.store.Profiles.GetByTelegramChatID(ctx, chatID)
}

// IssueLinkCode generates a one-time code the user sends to the bot as /start CODE
func (s *Service) IssueLinkCode(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, linkCodeLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link code: %w", err)
	}
	code := strings.ToUpper(hex.EncodeToString(buf))
	if err := s.store.Profiles.SetLinkCode(ctx, userID, code); err != nil {
		return "", err
	}
	return code, nil
}

// SanitizeLinkCode upper-cases code and drops everything but hex digits.
// It fails unless exactly eight digits remain.
func SanitizeLinkCode(code string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			b.WriteRune(r)
		}
	}
	if b.Len() != linkCodeLen {
		return "", models.ErrInvalidLinkCode
	}
	return b.String(), nil
}

// LinkTelegram binds chatID to the profile that issued code and consumes the code
func (s *Service) LinkTelegram(ctx context.Context, code string, chatID int64) (*models.Profile, error) {
	code, err := SanitizeLinkCode(code)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Profiles.GetByLinkCode(ctx, code)
	if errors.Is(err, models.ErrProfileNotFound) {
		return nil, models.ErrInvalidLinkCode
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Profiles.LinkTelegram(ctx, p.ID, chatID); err != nil {
		return nil, err
	}
	p.TelegramChatID = &chatID
	p.TelegramLinkCode = nil
	s.log.WithFields(logrus.Fields{"user_id": p.ID, "chat_id": chatID}).Info("Telegram linked")
	return p, nil
}

// reward credits xp and evaluates achievements.
// Achievement failures are logged; the activity is already recorded by then.
func (s *Service) reward(ctx context.Context, userID string, amount int, out *Outcome) error {
	xp, err := s.engine.AddXP(ctx, userID, amount)
	if err != nil {
		return err
	}
	out.XPEarned = amount
	out.XP = xp

	awarded, err := s.engine.CheckAchievements(ctx, userID)
	if err != nil {
		s.log.WithField("user_id", userID).WithError(err).Error("Failed to check achievements")
	}
	out.Achievements = awarded
	return nil
}
