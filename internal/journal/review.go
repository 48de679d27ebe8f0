package journal

import (
	"context"

	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/spaced_repetition"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
)

// DueCards returns up to limit cards to review today, most urgent first
func (s *Service) DueCards(ctx context.Context, userID string, limit int) ([]models.ReviewCard, error) {
	today := s.engine.Today()
	cards, err := s.store.Cards.ListDue(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return spaced_repetition.PrioritizeDue(cards, today, limit), nil
}

// Card returns a review card of the user
func (s *Service) Card(ctx context.Context, userID, cardID string) (*models.ReviewCard, error) {
	return s.store.Cards.GetByID(ctx, userID, cardID)
}

// AnswerResult is the outcome of a review answer
type AnswerResult struct {
	Outcome
	Card    models.ReviewCard
	Quality spaced_repetition.QualityResponse
}

// AnswerCard reschedules a card from a review button and credits the review reward
func (s *Service) AnswerCard(ctx context.Context, userID, cardID string, button spaced_repetition.Button) (*AnswerResult, error) {
	quality, err := spaced_repetition.QualityFromButton(button)
	if err != nil {
		return nil, err
	}
	card, err := s.store.Cards.GetByID(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	s.sm2.Apply(card, quality, s.engine.Today())
	if err := s.store.Cards.UpdateSchedule(ctx, card); err != nil {
		return nil, err
	}

	res := &AnswerResult{Card: *card, Quality: quality}
	if err := s.reward(ctx, userID, gamification.XPReviewCard, &res.Outcome); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"card_id":     card.ID,
		"quality":     quality,
		"next_review": card.NextReview,
	}).Debug("Card answered")
	return res, nil
}

// Summary is the user's progress at a glance
type Summary struct {
	Profile      models.Profile
	Progress     gamification.LevelProgress
	ReadingBooks int
	DueCards     int
	Achievements []models.Achievement
}

// Summary collects the numbers shown by /stats
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	p, err := s.store.Profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	reading, err := s.store.Books.CountByStatus(ctx, userID, models.BookReading)
	if err != nil {
		return nil, err
	}
	due, err := s.store.Cards.CountDue(ctx, userID, s.engine.Today())
	if err != nil {
		return nil, err
	}
	achievements, err := s.store.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Profile:      *p,
		Progress:     gamification.Progress(p.XP),
		ReadingBooks: reading,
		DueCards:     due,
		Achievements: achievements,
	}, nil
}
