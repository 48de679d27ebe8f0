package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/readbot/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const reviewCardColumns = `id, user_id, note_id, book_id, question, answer, ease_factor,
	interval_days, repetitions, next_review, created_at`

// ReviewCardRepository handles database operations for review cards
type ReviewCardRepository struct {
	db *sqlx.DB
}

// NewReviewCardRepository creates a new repository instance
func NewReviewCardRepository(db *sqlx.DB) *ReviewCardRepository {
	return &ReviewCardRepository{db: db}
}

// CreateBatch inserts cards in a single transaction
func (r *ReviewCardRepository) CreateBatch(ctx context.Context, cards []*models.ReviewCard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO review_cards (id, user_id, note_id, book_id, question, answer, ease_factor, interval_days, repetitions, next_review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	now := time.Now().UTC()
	for _, c := range cards {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.EaseFactor == 0 {
			c.EaseFactor = models.DefaultEaseFactor
		}
		c.CreatedAt = now
		_, err := tx.ExecContext(ctx, query,
			c.ID, c.UserID, c.NoteID, c.BookID, c.Question, c.Answer,
			c.EaseFactor, c.IntervalDays, c.Repetitions, c.NextReview, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create review card: %w", err)
		}
	}
	return tx.Commit()
}

// GetByID returns a card owned by the user
func (r *ReviewCardRepository) GetByID(ctx context.Context, userID, id string) (*models.ReviewCard, error) {
	var c models.ReviewCard
	query := r.db.Rebind("SELECT " + reviewCardColumns + " FROM review_cards WHERE id = ? AND user_id = ?")
	if err := r.db.GetContext(ctx, &c, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get review card: %w", err)
	}
	return &c, nil
}

// ListDue returns the user's cards due on or before today
func (r *ReviewCardRepository) ListDue(ctx context.Context, userID string, today models.Date) ([]models.ReviewCard, error) {
	var cards []models.ReviewCard
	query := r.db.Rebind("SELECT " + reviewCardColumns + " FROM review_cards WHERE user_id = ? AND next_review <= ? ORDER BY next_review")
	if err := r.db.SelectContext(ctx, &cards, query, userID, today); err != nil {
		return nil, fmt.Errorf("failed to list due cards: %w", err)
	}
	return cards, nil
}

// UpdateSchedule stores the SM-2 state of a card
func (r *ReviewCardRepository) UpdateSchedule(ctx context.Context, c *models.ReviewCard) error {
	query := r.db.Rebind(`
		UPDATE review_cards SET ease_factor = ?, interval_days = ?, repetitions = ?, next_review = ?
		WHERE id = ? AND user_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, c.EaseFactor, c.IntervalDays, c.Repetitions, c.NextReview, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to update review card: %w", err)
	}
	return expectOneRow(res, models.ErrCardNotFound)
}

// CountReviewed counts cards with at least one successful repetition
func (r *ReviewCardRepository) CountReviewed(ctx context.Context, userID string) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM review_cards WHERE user_id = ? AND repetitions > 0")
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count reviewed cards: %w", err)
	}
	return n, nil
}

// CountDue counts the user's cards due on or before today
func (r *ReviewCardRepository) CountDue(ctx context.Context, userID string, today models.Date) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM review_cards WHERE user_id = ? AND next_review <= ?")
	if err := r.db.GetContext(ctx, &n, query, userID, today); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return n, nil
}

// DueCountsByUser returns the number of due cards per user, omitting users with none
func (r *ReviewCardRepository) DueCountsByUser(ctx context.Context, today models.Date) (map[string]int, error) {
	var rows []struct {
		UserID string `db:"user_id"`
		Due    int    `db:"due"`
	}
	query := r.db.Rebind("SELECT user_id, COUNT(*) AS due FROM review_cards WHERE next_review <= ? GROUP BY user_id")
	if err := r.db.SelectContext(ctx, &rows, query, today); err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Due
	}
	return counts, nil
}
