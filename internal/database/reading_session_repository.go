package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/readbot/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReadingSessionRepository handles database operations for reading sessions
type ReadingSessionRepository struct {
	db *sqlx.DB
}

// NewReadingSessionRepository creates a new repository instance
func NewReadingSessionRepository(db *sqlx.DB) *ReadingSessionRepository {
	return &ReadingSessionRepository{db: db}
}

// Create inserts a new reading session
func (r *ReadingSessionRepository) Create(ctx context.Context, s *models.ReadingSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO reading_sessions (id, user_id, book_id, pages_read, duration_minutes, xp_earned, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.BookID, s.PagesRead, s.DurationMinutes, s.XPEarned, s.Date, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading session: %w", err)
	}
	return nil
}

// PagesByDate sums the pages the user read on each day
func (r *ReadingSessionRepository) PagesByDate(ctx context.Context, userID string) (map[models.Date]int, error) {
	var rows []struct {
		Date  models.Date `db:"date"`
		Pages int         `db:"pages"`
	}
	query := r.db.Rebind("SELECT date, SUM(pages_read) AS pages FROM reading_sessions WHERE user_id = ? GROUP BY date")
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to sum pages by date: %w", err)
	}

	byDate := make(map[models.Date]int, len(rows))
	for _, row := range rows {
		byDate[row.Date] = row.Pages
	}
	return byDate, nil
}

// UsersReadOn returns the IDs of users with at least one session on the day
func (r *ReadingSessionRepository) UsersReadOn(ctx context.Context, day models.Date) (map[string]bool, error) {
	var ids []string
	query := r.db.Rebind("SELECT DISTINCT user_id FROM reading_sessions WHERE date = ?")
	if err := r.db.SelectContext(ctx, &ids, query, day); err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}

	readers := make(map[string]bool, len(ids))
	for _, id := range ids {
		readers[id] = true
	}
	return readers, nil
}
