package models

import "time"

// ReadingSession records pages read in one sitting
type ReadingSession struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	BookID          string    `json:"book_id" db:"book_id"`
	PagesRead       int       `json:"pages_read" db:"pages_read"`
	DurationMinutes *int      `json:"duration_minutes" db:"duration_minutes"`
	XPEarned        int       `json:"xp_earned" db:"xp_earned"`
	Date            Date      `json:"date" db:"date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
