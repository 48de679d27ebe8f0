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

const profileColumns = `id, username, xp, level, current_streak, longest_streak, last_read_date,
	telegram_chat_id, telegram_link_code, created_at`

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile at level 1 with no xp
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Level = 1
	p.CreatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO profiles (id, username, xp, level, current_streak, longest_streak, created_at)
		VALUES (?, ?, 0, 1, 0, 0, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Username, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID returns a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getBy(ctx, "id", id)
}

// GetByTelegramChatID returns the profile linked to a Telegram chat
func (r *ProfileRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.Profile, error) {
	return r.getBy(ctx, "telegram_chat_id", chatID)
}

// GetByLinkCode returns the profile that issued a pending link code
func (r *ProfileRepository) GetByLinkCode(ctx context.Context, code string) (*models.Profile, error) {
	return r.getBy(ctx, "telegram_link_code", code)
}

func (r *ProfileRepository) getBy(ctx context.Context, column string, value interface{}) (*models.Profile, error) {
	var p models.Profile
	query := r.db.Rebind("SELECT " + profileColumns + " FROM profiles WHERE " + column + " = ?")
	if err := r.db.GetContext(ctx, &p, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// SetLinkCode stores a pending Telegram link code
func (r *ProfileRepository) SetLinkCode(ctx context.Context, id, code string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE profiles SET telegram_link_code = ? WHERE id = ?"), code, id)
	if err != nil {
		return fmt.Errorf("failed to set link code: %w", err)
	}
	return expectOneRow(res, models.ErrProfileNotFound)
}

// LinkTelegram binds a chat to the profile and consumes the link code
func (r *ProfileRepository) LinkTelegram(ctx context.Context, id string, chatID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// a chat belongs to one profile at a time
	if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE profiles SET telegram_chat_id = NULL WHERE telegram_chat_id = ? AND id <> ?"), chatID, id); err != nil {
		return fmt.Errorf("failed to unlink previous profile: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE profiles SET telegram_chat_id = ?, telegram_link_code = NULL WHERE id = ?"), chatID, id)
	if err != nil {
		return fmt.Errorf("failed to link telegram: %w", err)
	}
	if err := expectOneRow(res, models.ErrProfileNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// ListLinked returns all profiles with a linked Telegram chat
func (r *ProfileRepository) ListLinked(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	query := "SELECT " + profileColumns + " FROM profiles WHERE telegram_chat_id IS NOT NULL ORDER BY created_at"
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list linked profiles: %w", err)
	}
	return profiles, nil
}

// Mutate runs a read-modify-write of the progression fields inside one
// write transaction. Postgres locks the row with FOR UPDATE; sqlite
// connections begin immediate transactions, which hold the write lock.
func (r *ProfileRepository) Mutate(ctx context.Context, id string, fn func(p *models.Profile) (bool, error)) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT " + profileColumns + " FROM profiles WHERE id = ?"
	if r.db.DriverName() == "postgres" {
		query += " FOR UPDATE"
	}

	var p models.Profile
	if err := tx.GetContext(ctx, &p, tx.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrProfileNotFound
		}
		return fmt.Errorf("failed to load profile: %w", err)
	}

	changed, err := fn(&p)
	if err != nil {
		return err
	}
	if !changed {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE profiles SET
			xp = ?,
			level = ?,
			current_streak = ?,
			longest_streak = ?,
			last_read_date = ?
		WHERE id = ?
	`), p.XP, p.Level, p.CurrentStreak, p.LongestStreak, p.LastReadDate, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
