package database

import (
	"context"

	"github.com/example/readbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// Store groups the repositories of one database and serves as the
// persistence layer of the progression engine.
type Store struct {
	DB           *sqlx.DB
	Profiles     *ProfileRepository
	Books        *BookRepository
	Notes        *NoteRepository
	Cards        *ReviewCardRepository
	Sessions     *ReadingSessionRepository
	Achievements *AchievementRepository
}

// NewStore wires all repositories to db
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB:           db,
		Profiles:     NewProfileRepository(db),
		Books:        NewBookRepository(db),
		Notes:        NewNoteRepository(db),
		Cards:        NewReviewCardRepository(db),
		Sessions:     NewReadingSessionRepository(db),
		Achievements: NewAchievementRepository(db),
	}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) MutateProfile(ctx context.Context, userID string, fn func(p *models.Profile) (bool, error)) error {
	return s.Profiles.Mutate(ctx, userID, fn)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.Profiles.GetByID(ctx, userID)
}

func (s *Store) CountFinishedBooks(ctx context.Context, userID string) (int, error) {
	return s.Books.CountByStatus(ctx, userID, models.BookFinished)
}

func (s *Store) CountNotes(ctx context.Context, userID string, source models.NoteSource) (int, error) {
	return s.Notes.Count(ctx, userID, source)
}

func (s *Store) CountReviewedCards(ctx context.Context, userID string) (int, error) {
	return s.Cards.CountReviewed(ctx, userID)
}

func (s *Store) PagesByDate(ctx context.Context, userID string) (map[models.Date]int, error) {
	return s.Sessions.PagesByDate(ctx, userID)
}

func (s *Store) EarnedAchievementTypes(ctx context.Context, userID string) ([]string, error) {
	return s.Achievements.Types(ctx, userID)
}

func (s *Store) InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error) {
	return s.Achievements.Insert(ctx, a)
}
