package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrEmptyNote is returned when a note has no text
var ErrEmptyNote = errors.New("note is empty")

// NoteInput is a typed note. An empty BookID attaches the book being read.
type NoteInput struct {
	BookID string
	Text   string
}

// NoteResult is the outcome of saving a note
type NoteResult struct {
	Outcome
	Note      models.Note
	BookTitle string
	Cards     int
}

// AddNote saves a typed note, drafts review cards from it and credits the
// note reward and the streak.
func (s *Service) AddNote(ctx context.Context, userID string, in NoteInput) (*NoteResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyNote
	}
	book, err := s.noteBook(ctx, userID, in.BookID)
	if err != nil {
		return nil, err
	}

	note := models.Note{UserID: userID, ManualText: &text, Source: models.NoteManual}
	return s.saveNote(ctx, note, book, text, gamification.XPNoteManual)
}

// AddVoiceNote transcribes a voice message, formats it with the title of the
// book being read and saves it like a typed note.
func (s *Service) AddVoiceNote(ctx context.Context, userID string, audio []byte, filename string) (*NoteResult, error) {
	if s.ai == nil {
		return nil, ErrAIDisabled
	}
	book, err := s.noteBook(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyNote
	}

	formatted, err := s.ai.FormatNote(ctx, raw, titleOf(book))
	if err != nil {
		s.log.WithField("user_id", userID).WithError(err).Warn("Note formatting failed, keeping transcription")
		formatted = raw
	}

	note := models.Note{UserID: userID, RawTranscription: &raw, FormattedText: &formatted, Source: models.NoteVoice}
	return s.saveNote(ctx, note, book, formatted, gamification.XPNoteVoice)
}

func (s *Service) saveNote(ctx context.Context, note models.Note, book *models.Book, cardText string, xp int) (*NoteResult, error) {
	if book != nil {
		note.BookID = &book.ID
	}
	if err := s.store.Notes.Create(ctx, &note); err != nil {
		return nil, err
	}

	cards, err := s.GenerateCards(ctx, note.UserID, note.ID, book, cardText)
	if err != nil {
		s.log.WithField("note_id", note.ID).WithError(err).Warn("Review card generation failed")
	}

	streak, err := s.engine.UpdateStreak(ctx, note.UserID)
	if err != nil {
		return nil, err
	}

	res := &NoteResult{Note: note, BookTitle: titleOf(book), Cards: len(cards)}
	res.Streak = streak
	if err := s.reward(ctx, note.UserID, xp, &res.Outcome); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": note.UserID,
		"note_id": note.ID,
		"source":  note.Source,
		"cards":   len(cards),
	}).Info("Note saved")
	return res, nil
}

// GenerateCards asks the assistant for review cards on text and stores them
// due today. Without an assistant no cards are made.
func (s *Service) GenerateCards(ctx context.Context, userID, noteID string, book *models.Book, text string) ([]*models.ReviewCard, error) {
	if s.ai == nil {
		return nil, nil
	}
	drafts, err := s.ai.GenerateReviewCards(ctx, text, titleOf(book))
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	today := s.engine.Today()
	cards := make([]*models.ReviewCard, 0, len(drafts))
	for _, d := range drafts {
		c := &models.ReviewCard{
			UserID:     userID,
			Question:   d.Question,
			Answer:     d.Answer,
			EaseFactor: models.DefaultEaseFactor,
			NextReview: today,
		}
		if noteID != "" {
			id := noteID
			c.NoteID = &id
		}
		if book != nil {
			c.BookID = &book.ID
		}
		cards = append(cards, c)
	}
	if err := s.store.Cards.CreateBatch(ctx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Note returns a note of the user with its book title
func (s *Service) Note(ctx context.Context, userID, noteID string) (*database.NoteWithBook, error) {
	return s.store.Notes.GetByID(ctx, userID, noteID)
}

// RandomNote picks one of the user's notes, or returns nil when there are none
func (s *Service) RandomNote(ctx context.Context, userID string) (*database.NoteWithBook, error) {
	n, err := s.store.Notes.Random(ctx, userID)
	if errors.Is(err, models.ErrNoteNotFound) {
		return nil, nil
	}
	return n, err
}

func (s *Service) noteBook(ctx context.Context, userID, bookID string) (*models.Book, error) {
	if bookID == "" {
		return s.CurrentBook(ctx, userID)
	}
	b, err := s.store.Books.GetByID(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("note book: %w", err)
	}
	return b, nil
}

func titleOf(b *models.Book) string {
	if b == nil {
		return ""
	}
	return b.Title
}
