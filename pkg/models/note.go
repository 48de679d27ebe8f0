package models

import "time"

// NoteSource tells how a note was captured
type NoteSource string

const (
	NoteManual NoteSource = "manual"
	NoteVoice  NoteSource = "voice"
)

// Note is a reading note, typed or transcribed from a voice message
type Note struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	BookID           *string    `json:"book_id" db:"book_id"`
	RawTranscription *string    `json:"raw_transcription" db:"raw_transcription"`
	FormattedText    *string    `json:"formatted_text" db:"formatted_text"`
	ManualText       *string    `json:"manual_text" db:"manual_text"`
	Source           NoteSource `json:"source" db:"source"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Text returns the best available body of the note.
func (n *Note) Text() string {
	for _, s := range []*string{n.FormattedText, n.ManualText, n.RawTranscription} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}
