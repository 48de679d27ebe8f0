package models

import "time"

// DefaultEaseFactor is the ease of a card that has never been reviewed
const DefaultEaseFactor = 2.5

// ReviewCard is a flashcard scheduled with the SM-2 algorithm
type ReviewCard struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	NoteID       *string   `json:"note_id" db:"note_id"`
	BookID       *string   `json:"book_id" db:"book_id"`
	Question     string    `json:"question" db:"question"`
	Answer       string    `json:"answer" db:"answer"`
	EaseFactor   float64   `json:"ease_factor" db:"ease_factor"`
	IntervalDays int       `json:"interval_days" db:"interval_days"`
	Repetitions  int       `json:"repetitions" db:"repetitions"`
	NextReview   Date      `json:"next_review" db:"next_review"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CardDraft is a question/answer pair proposed by the AI before it becomes a card
type CardDraft struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
