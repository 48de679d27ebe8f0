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

const bookColumns = `id, user_id, title, author, total_pages, current_page, status,
	started_at, finished_at, created_at`

// BookRepository handles database operations for books
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository creates a new repository instance
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts a new book
func (r *BookRepository) Create(ctx context.Context, b *models.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BookWant
	}
	b.CreatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO books (id, user_id, title, author, total_pages, current_page, status, started_at, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.Title, b.Author, b.TotalPages, b.CurrentPage, b.Status,
		b.StartedAt, b.FinishedAt, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID returns a book owned by the user
func (r *BookRepository) GetByID(ctx context.Context, userID, id string) (*models.Book, error) {
	var b models.Book
	query := r.db.Rebind("SELECT " + bookColumns + " FROM books WHERE id = ? AND user_id = ?")
	if err := r.db.GetContext(ctx, &b, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

// ListByStatus returns the user's books with the given status, newest first.
// An empty status lists every book.
func (r *BookRepository) ListByStatus(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE user_id = ?"
	args := []interface{}{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// CurrentlyReading returns the most recently added book being read
func (r *BookRepository) CurrentlyReading(ctx context.Context, userID string) (*models.Book, error) {
	var b models.Book
	query := r.db.Rebind("SELECT " + bookColumns + " FROM books WHERE user_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1")
	if err := r.db.GetContext(ctx, &b, query, userID, models.BookReading); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get current book: %w", err)
	}
	return &b, nil
}

// UpdateProgress stores the reading position and shelf of a book
func (r *BookRepository) UpdateProgress(ctx context.Context, b *models.Book) error {
	query := r.db.Rebind(`
		UPDATE books SET current_page = ?, status = ?, started_at = ?, finished_at = ?
		WHERE id = ? AND user_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, b.CurrentPage, b.Status, b.StartedAt, b.FinishedAt, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return expectOneRow(res, models.ErrBookNotFound)
}

// CountByStatus counts the user's books with the given status
func (r *BookRepository) CountByStatus(ctx context.Context, userID string, status models.BookStatus) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM books WHERE user_id = ? AND status = ?")
	if err := r.db.GetContext(ctx, &n, query, userID, status); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// ExistsByTitle reports whether the user already tracks a book with this title
func (r *BookRepository) ExistsByTitle(ctx context.Context, userID, title string) (bool, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM books WHERE user_id = ? AND LOWER(title) = LOWER(?)")
	if err := r.db.GetContext(ctx, &n, query, userID, title); err != nil {
		return false, fmt.Errorf("failed to look up book: %w", err)
	}
	return n > 0, nil
}
