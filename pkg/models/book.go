package models

import "time"

// BookStatus is the shelf a book is on
type BookStatus string

const (
	BookReading  BookStatus = "reading"
	BookFinished BookStatus = "finished"
	BookPaused   BookStatus = "paused"
	BookWant     BookStatus = "want"
)

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case BookReading, BookFinished, BookPaused, BookWant:
		return true
	}
	return false
}

// Book represents a book tracked by a user
type Book struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Author      *string    `json:"author" db:"author"`
	TotalPages  *int       `json:"total_pages" db:"total_pages"`
	CurrentPage int        `json:"current_page" db:"current_page"`
	Status      BookStatus `json:"status" db:"status"`
	StartedAt   Date       `json:"started_at" db:"started_at"`
	FinishedAt  Date       `json:"finished_at" db:"finished_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ProgressPercent returns the read share rounded to a whole percent, or -1 when the length is unknown.
func (b *Book) ProgressPercent() int {
	if b.TotalPages == nil || *b.TotalPages <= 0 {
		return -1
	}
	return int(float64(b.CurrentPage)/float64(*b.TotalPages)*100 + 0.5)
}
