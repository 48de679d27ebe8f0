package models

import "time"

// Profile holds the per-user progression state
type Profile struct {
	ID               string    `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	XP               int       `json:"xp" db:"xp"`
	Level            int       `json:"level" db:"level"` // always derived from XP
	CurrentStreak    int       `json:"current_streak" db:"current_streak"`
	LongestStreak    int       `json:"longest_streak" db:"longest_streak"`
	LastReadDate     Date      `json:"last_read_date" db:"last_read_date"`
	TelegramChatID   *int64    `json:"telegram_chat_id" db:"telegram_chat_id"`
	TelegramLinkCode *string   `json:"-" db:"telegram_link_code"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
