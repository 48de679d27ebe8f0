package database

import (
	"context"
	"fmt"

	"github.com/example/readbot/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AchievementRepository handles database operations for achievements
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository creates a new repository instance
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListByUser returns the user's achievements in the order they were earned
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	query := r.db.Rebind(`SELECT id, user_id, type, name, description, icon, earned_at
		FROM achievements WHERE user_id = ? ORDER BY earned_at, type`)
	if err := r.db.SelectContext(ctx, &achievements, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// Types returns the achievement types the user already holds
func (r *AchievementRepository) Types(ctx context.Context, userID string) ([]string, error) {
	var types []string
	query := r.db.Rebind("SELECT type FROM achievements WHERE user_id = ?")
	if err := r.db.SelectContext(ctx, &types, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list achievement types: %w", err)
	}
	return types, nil
}

// Insert stores an achievement unless the user already holds its type.
// It reports whether a row was written.
func (r *AchievementRepository) Insert(ctx context.Context, a *models.Achievement) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := r.db.Rebind(`
		INSERT INTO achievements (id, user_id, type, name, description, icon, earned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, type) DO NOTHING
	`)
	res, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.Type, a.Name, a.Description, a.Icon, a.EarnedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
