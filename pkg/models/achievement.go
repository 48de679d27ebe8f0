package models

import "time"

// Achievement is an earned badge. At most one per user and type.
type Achievement struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Type        string    `json:"type" db:"type"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	EarnedAt    time.Time `json:"earned_at" db:"earned_at"`
}
