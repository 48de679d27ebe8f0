package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrInvalidPages is returned for non-positive page counts
var ErrInvalidPages = errors.New("pages must be positive")

// BookInput describes a book to add to a shelf
type BookInput struct {
	Title      string
	Author     string
	TotalPages int
	Status     models.BookStatus
}

// AddBook puts a book on the user's shelf. Books start as "want" unless a
// status is given; a book added as "reading" starts today.
func (s *Service) AddBook(ctx context.Context, userID string, in BookInput) (*models.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.New("book title is required")
	}
	status := in.Status
	if status == "" {
		status = models.BookWant
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown book status %q", status)
	}

	b := &models.Book{UserID: userID, Title: title, Status: status}
	if author := strings.TrimSpace(in.Author); author != "" {
		b.Author = &author
	}
	if in.TotalPages > 0 {
		pages := in.TotalPages
		b.TotalPages = &pages
	}
	today := s.engine.Today()
	switch status {
	case models.BookReading:
		b.StartedAt = today
	case models.BookFinished:
		b.StartedAt = today
		b.FinishedAt = today
		if b.TotalPages != nil {
			b.CurrentPage = *b.TotalPages
		}
	}

	if err := s.store.Books.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadingResult is the outcome of a logged reading session
type ReadingResult struct {
	Outcome
	Session      models.ReadingSession
	Book         models.Book
	BookFinished bool
}

// LogReading records pages read in a book. The streak is credited first so
// the session xp includes the streak bonus of a new reading day. Reaching
// the last page finishes the book for an extra reward.
func (s *Service) LogReading(ctx context.Context, userID, bookID string, pages, durationMinutes int) (*ReadingResult, error) {
	if pages <= 0 {
		return nil, ErrInvalidPages
	}
	book, err := s.store.Books.GetByID(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	streak, err := s.engine.UpdateStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessionXP := gamification.ReadingXP(pages, streak)
	today := s.engine.Today()

	session := models.ReadingSession{
		UserID:    userID,
		BookID:    book.ID,
		PagesRead: pages,
		XPEarned:  sessionXP,
		Date:      today,
	}
	if durationMinutes > 0 {
		session.DurationMinutes = &durationMinutes
	}
	if err := s.store.Sessions.Create(ctx, &session); err != nil {
		return nil, err
	}

	newPage := book.CurrentPage + pages
	finished := false
	if book.TotalPages != nil && newPage >= *book.TotalPages {
		newPage = *book.TotalPages
		finished = book.Status != models.BookFinished
	}
	book.CurrentPage = newPage
	if book.StartedAt.IsZero() {
		book.StartedAt = today
	}
	switch {
	case finished:
		book.Status = models.BookFinished
		book.FinishedAt = today
	case book.Status != models.BookFinished:
		book.Status = models.BookReading
	}
	if err := s.store.Books.UpdateProgress(ctx, book); err != nil {
		return nil, err
	}

	total := sessionXP
	if finished {
		total += gamification.XPBookFinished
	}

	res := &ReadingResult{Session: session, Book: *book, BookFinished: finished}
	res.Streak = streak
	if err := s.reward(ctx, userID, total, &res.Outcome); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"book_id":  book.ID,
		"pages":    pages,
		"xp":       total,
		"finished": finished,
	}).Info("Reading logged")
	return res, nil
}

// CurrentBook returns the book the user is reading now, or nil
func (s *Service) CurrentBook(ctx context.Context, userID string) (*models.Book, error) {
	b, err := s.store.Books.CurrentlyReading(ctx, userID)
	if errors.Is(err, models.ErrBookNotFound) {
		return nil, nil
	}
	return b, err
}

// ReadingBooks lists the books on the "reading" shelf
func (s *Service) ReadingBooks(ctx context.Context, userID string) ([]models.Book, error) {
	return s.store.Books.ListByStatus(ctx, userID, models.BookReading)
}

// HasBook reports whether the shelf already holds a book with this title, ignoring case.
func (s *Service) HasBook(ctx context.Context, userID, title string) (bool, error) {
	return s.store.Books.ExistsByTitle(ctx, userID, strings.TrimSpace(title))
}
