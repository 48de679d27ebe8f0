package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
)

// ProfileStore gives the engine serialized access to a profile.
type ProfileStore interface {
	// MutateProfile loads the profile of userID, hands it to fn and writes it
	// back when fn reports a change. Load and write happen in one write
	// transaction, so concurrent mutations of the same profile never lose
	// updates. Returns models.ErrProfileNotFound when the profile is absent.
	MutateProfile(ctx context.Context, userID string, fn func(p *models.Profile) (bool, error)) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// StatsStore answers the aggregate queries behind achievements.
type StatsStore interface {
	CountFinishedBooks(ctx context.Context, userID string) (int, error)
	// CountNotes counts notes of the given source, or all notes when source is empty.
	CountNotes(ctx context.Context, userID string, source models.NoteSource) (int, error)
	// CountReviewedCards counts distinct cards with at least one successful repetition.
	CountReviewedCards(ctx context.Context, userID string) (int, error)
	PagesByDate(ctx context.Context, userID string) (map[models.Date]int, error)
}

// AchievementStore persists earned achievements.
type AchievementStore interface {
	EarnedAchievementTypes(ctx context.Context, userID string) ([]string, error)
	// InsertAchievement stores a and reports false when the user already had that type.
	InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error)
}

// Store is everything the progression engine reads and writes.
type Store interface {
	ProfileStore
	StatsStore
	AchievementStore
}

// XPResult is the profile state after an xp change.
type XPResult struct {
	XP      int
	Level   int
	LevelUp bool
}

// StreakResult is the streak after a qualifying activity. IsNew is false
// when the streak had already been credited today.
type StreakResult struct {
	Streak int
	IsNew  bool
}

// Engine applies xp, streak and achievement rules to user profiles
type Engine struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewEngine creates an engine whose calendar days are taken in loc (UTC when nil).
func NewEngine(store Store, loc *time.Location, logger logrus.FieldLogger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   logger,
	}
}

// WithClock replaces the time source, for tests and replays.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Today is the current calendar day in the engine's timezone.
func (e *Engine) Today() models.Date {
	return models.DateOf(e.now(), e.loc)
}

// Location is the timezone calendar days are taken in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// AddXP credits amount to the user and rederives the level.
// A missing profile is not an error: the result is nil.
func (e *Engine) AddXP(ctx context.Context, userID string, amount int) (*XPResult, error) {
	var res *XPResult
	err := e.store.MutateProfile(ctx, userID, func(p *models.Profile) (bool, error) {
		newXP := p.XP + amount
		if newXP < 0 {
			newXP = 0
		}
		newLevel := Level(newXP)
		res = &XPResult{XP: newXP, Level: newLevel, LevelUp: newLevel > p.Level}

		p.XP = newXP
		p.Level = newLevel
		return true, nil
	})
	if errors.Is(err, models.ErrProfileNotFound) {
		e.log.WithField("user_id", userID).Debug("No profile, xp not credited")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}

	if res.LevelUp {
		e.log.WithFields(logrus.Fields{"user_id": userID, "level": res.Level}).Info("Level up")
	}
	return res, nil
}

// UpdateStreak credits today's reading day. The streak grows by one when the
// previous day was credited, restarts at one after a gap, and is credited at
// most once per calendar day. A missing profile yields a nil result.
func (e *Engine) UpdateStreak(ctx context.Context, userID string) (*StreakResult, error) {
	today := e.Today()
	yesterday := today.AddDays(-1)

	var res *StreakResult
	err := e.store.MutateProfile(ctx, userID, func(p *models.Profile) (bool, error) {
		if p.LastReadDate == today {
			res = &StreakResult{Streak: p.CurrentStreak, IsNew: false}
			return false, nil
		}

		newStreak := 1
		if p.LastReadDate == yesterday {
			newStreak = p.CurrentStreak + 1
		}

		p.CurrentStreak = newStreak
		if newStreak > p.LongestStreak {
			p.LongestStreak = newStreak
		}
		p.LastReadDate = today

		res = &StreakResult{Streak: newStreak, IsNew: true}
		return true, nil
	})
	if errors.Is(err, models.ErrProfileNotFound) {
		e.log.WithField("user_id", userID).Debug("No profile, streak not updated")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}
	return res, nil
}
