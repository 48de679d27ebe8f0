package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UserStats are the aggregates achievement predicates are evaluated against.
// TotalReviews counts cards reviewed successfully at least once, not review events.
type UserStats struct {
	BooksFinished int
	CurrentStreak int
	TotalNotes    int
	TotalReviews  int
	VoiceNotes    int
	MaxPagesInDay int
}

// AchievementDefinition is an entry of the fixed achievement catalog
type AchievementDefinition struct {
	Type        string
	Name        string
	Description string
	Icon        string
	Check       func(s UserStats) bool
}

// Achievements is the catalog, evaluated in this order.
var Achievements = []AchievementDefinition{
	{Type: "first_book", Name: "Первые шаги", Description: "Прочитать 1 книгу", Icon: "📖", Check: func(s UserStats) bool { return s.BooksFinished >= 1 }},
	{Type: "bookworm", Name: "Книжный червь", Description: "Прочитать 5 книг", Icon: "🐛", Check: func(s UserStats) bool { return s.BooksFinished >= 5 }},
	{Type: "librarian", Name: "Библиотекарь", Description: "Прочитать 20 книг", Icon: "📚", Check: func(s UserStats) bool { return s.BooksFinished >= 20 }},
	{Type: "week_streak", Name: "Неделя огня", Description: "7-дневный стрик", Icon: "🔥", Check: func(s UserStats) bool { return s.CurrentStreak >= 7 }},
	{Type: "month_streak", Name: "Месяц дисциплины", Description: "30-дневный стрик", Icon: "💪", Check: func(s UserStats) bool { return s.CurrentStreak >= 30 }},
	{Type: "note_master", Name: "Заметочник", Description: "50 заметок", Icon: "📝", Check: func(s UserStats) bool { return s.TotalNotes >= 50 }},
	{Type: "review_master", Name: "Мастер повторений", Description: "100 повторённых карточек", Icon: "🧠", Check: func(s UserStats) bool { return s.TotalReviews >= 100 }},
	{Type: "voice_reader", Name: "Голос читателя", Description: "10 голосовых заметок", Icon: "🎙️", Check: func(s UserStats) bool { return s.VoiceNotes >= 10 }},
	{Type: "marathon", Name: "Марафонец", Description: "100 страниц за день", Icon: "🏃", Check: func(s UserStats) bool { return s.MaxPagesInDay >= 100 }},
}

// Stats gathers the achievement aggregates of a user concurrently.
func (e *Engine) Stats(ctx context.Context, userID string) (UserStats, error) {
	var stats UserStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := e.store.CountFinishedBooks(gctx, userID)
		stats.BooksFinished = n
		return err
	})
	g.Go(func() error {
		p, err := e.store.GetProfile(gctx, userID)
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.CurrentStreak = p.CurrentStreak
		return nil
	})
	g.Go(func() error {
		n, err := e.store.CountNotes(gctx, userID, "")
		stats.TotalNotes = n
		return err
	})
	g.Go(func() error {
		n, err := e.store.CountNotes(gctx, userID, models.NoteVoice)
		stats.VoiceNotes = n
		return err
	})
	g.Go(func() error {
		n, err := e.store.CountReviewedCards(gctx, userID)
		stats.TotalReviews = n
		return err
	})
	g.Go(func() error {
		byDate, err := e.store.PagesByDate(gctx, userID)
		if err != nil {
			return err
		}
		for _, pages := range byDate {
			if pages > stats.MaxPagesInDay {
				stats.MaxPagesInDay = pages
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return UserStats{}, fmt.Errorf("failed to gather user stats: %w", err)
	}
	return stats, nil
}

// CheckAchievements awards every catalog achievement the user newly
// qualifies for and returns them in catalog order. Earned achievements are
// never revoked, so a second call without new activity returns nothing.
// Inserts are not rolled back: on error the achievements awarded so far are
// returned along with it.
func (e *Engine) CheckAchievements(ctx context.Context, userID string) ([]AchievementDefinition, error) {
	stats, err := e.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	earnedTypes, err := e.store.EarnedAchievementTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}
	earned := make(map[string]bool, len(earnedTypes))
	for _, t := range earnedTypes {
		earned[t] = true
	}

	var awarded []AchievementDefinition
	for _, def := range Achievements {
		if earned[def.Type] || !def.Check(stats) {
			continue
		}

		inserted, err := e.store.InsertAchievement(ctx, &models.Achievement{
			UserID:      userID,
			Type:        def.Type,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			EarnedAt:    e.now(),
		})
		if err != nil {
			return awarded, fmt.Errorf("failed to award %s: %w", def.Type, err)
		}
		// a concurrent check got there first
		if !inserted {
			continue
		}

		e.log.WithFields(logrus.Fields{"user_id": userID, "achievement": def.Type}).Info("Achievement earned")
		awarded = append(awarded, def)
	}

	return awarded, nil
}
