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

const noteColumns = `n.id, n.user_id, n.book_id, n.raw_transcription, n.formatted_text, n.manual_text,
	n.source, n.created_at`

// NoteWithBook is a note joined with the title of its book
type NoteWithBook struct {
	models.Note
	BookTitle *string `db:"book_title"`
}

// NoteRepository handles database operations for notes
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new repository instance
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a new note
func (r *NoteRepository) Create(ctx context.Context, n *models.Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Source == "" {
		n.Source = models.NoteManual
	}
	n.CreatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO notes (id, user_id, book_id, raw_transcription, formatted_text, manual_text, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.BookID, n.RawTranscription, n.FormattedText, n.ManualText, n.Source, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// GetByID returns a note owned by the user together with its book title
func (r *NoteRepository) GetByID(ctx context.Context, userID, id string) (*NoteWithBook, error) {
	var n NoteWithBook
	query := r.db.Rebind(`SELECT ` + noteColumns + `, b.title AS book_title
		FROM notes n LEFT JOIN books b ON b.id = n.book_id
		WHERE n.id = ? AND n.user_id = ?`)
	if err := r.db.GetContext(ctx, &n, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &n, nil
}

// Random returns a random note of the user, or ErrNoteNotFound when there are none
func (r *NoteRepository) Random(ctx context.Context, userID string) (*NoteWithBook, error) {
	var n NoteWithBook
	query := r.db.Rebind(`SELECT ` + noteColumns + `, b.title AS book_title
		FROM notes n LEFT JOIN books b ON b.id = n.book_id
		WHERE n.user_id = ?
		ORDER BY RANDOM() LIMIT 1`)
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to pick note: %w", err)
	}
	return &n, nil
}

// Count counts the user's notes of a source, or all of them when source is empty
func (r *NoteRepository) Count(ctx context.Context, userID string, source models.NoteSource) (int, error) {
	query := "SELECT COUNT(*) FROM notes WHERE user_id = ?"
	args := []interface{}{userID}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}
