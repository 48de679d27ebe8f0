package journal

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/spaced_repetition"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	transcript string
	formatted  string
	drafts     []models.CardDraft
	cardsErr   error
	titles     []string
}

func (a *fakeAssistant) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return a.transcript, nil
}

func (a *fakeAssistant) FormatNote(ctx context.Context, raw, bookTitle string) (string, error) {
	a.titles = append(a.titles, bookTitle)
	if a.formatted == "" {
		return raw, nil
	}
	return a.formatted, nil
}

func (a *fakeAssistant) GenerateReviewCards(ctx context.Context, text, bookTitle string) ([]models.CardDraft, error) {
	return a.drafts, a.cardsErr
}

type testEnv struct {
	svc   *Service
	store *database.Store
	ai    *fakeAssistant
	now   time.Time
	user  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.Options{Type: database.TypeSQLite, SQLitePath: filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		store: database.NewStore(db),
		ai:    &fakeAssistant{},
		now:   time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	engine := gamification.NewEngine(env.store, time.UTC, logger).WithClock(func() time.Time { return env.now })
	env.svc = NewService(env.store, engine, env.ai, logger)

	p, err := env.svc.CreateProfile(ctx, "reader")
	require.NoError(t, err)
	env.user = p.ID
	return env
}

func (e *testEnv) profile(t *testing.T) *models.Profile {
	t.Helper()
	p, err := e.store.Profiles.GetByID(context.Background(), e.user)
	require.NoError(t, err)
	return p
}

func TestLinkTelegram(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	code, err := env.svc.IssueLinkCode(ctx, env.user)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Equal(t, strings.ToUpper(code), code)

	_, err = env.svc.LinkTelegram(ctx, "nope", 77)
	assert.ErrorIs(t, err, models.ErrInvalidLinkCode)
	_, err = env.svc.LinkTelegram(ctx, "00000000", 77)
	assert.ErrorIs(t, err, models.ErrInvalidLinkCode)

	p, err := env.svc.LinkTelegram(ctx, " "+strings.ToLower(code)+" ", 77)
	require.NoError(t, err)
	assert.Equal(t, env.user, p.ID)

	byChat, err := env.svc.ProfileByChat(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, env.user, byChat.ID)

	// codes are single use
	_, err = env.svc.LinkTelegram(ctx, code, 78)
	assert.ErrorIs(t, err, models.ErrInvalidLinkCode)
}

func TestSanitizeLinkCode(t *testing.T) {
	tests := map[string]string{
		"ab12cd34":    "AB12CD34",
		"AB-12-CD-34": "AB12CD34",
		" ab12cd34\n": "AB12CD34",
	}
	for in, want := range tests {
		got, err := SanitizeLinkCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "XYZ", "AB12CD3", "AB12CD345"} {
		_, err := SanitizeLinkCode(bad)
		assert.ErrorIs(t, err, models.ErrInvalidLinkCode, bad)
	}
}

func TestAddBook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	want, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "  Война и мир "})
	require.NoError(t, err)
	assert.Equal(t, "Война и мир", want.Title)
	assert.Equal(t, models.BookWant, want.Status)
	assert.True(t, want.StartedAt.IsZero())

	reading, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Дюна", Author: "Герберт", TotalPages: 600, Status: models.BookReading})
	require.NoError(t, err)
	assert.Equal(t, models.Date("2024-06-10"), reading.StartedAt)

	_, err = env.svc.AddBook(ctx, env.user, BookInput{Title: " "})
	assert.Error(t, err)
	_, err = env.svc.AddBook(ctx, env.user, BookInput{Title: "X", Status: "lost"})
	assert.Error(t, err)
}

func TestLogReadingFirstDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	book, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Дюна", TotalPages: 600, Status: models.BookReading})
	require.NoError(t, err)

	res, err := env.svc.LogReading(ctx, env.user, book.ID, 30, 45)
	require.NoError(t, err)

	// 30 pages * 2 + streak bonus 1 * 5
	assert.Equal(t, 65, res.XPEarned)
	assert.Equal(t, 65, res.Session.XPEarned)
	assert.Equal(t, models.Date("2024-06-10"), res.Session.Date)
	assert.Equal(t, &gamification.StreakResult{Streak: 1, IsNew: true}, res.Streak)
	assert.Equal(t, 30, res.Book.CurrentPage)
	assert.False(t, res.BookFinished)

	// second session the same day earns no streak bonus
	res, err = env.svc.LogReading(ctx, env.user, book.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, res.XPEarned)
	assert.False(t, res.Streak.IsNew)

	p := env.profile(t)
	assert.Equal(t, 85, p.XP)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, models.Date("2024-06-10"), p.LastReadDate)
}

func TestLogReadingFinishesBook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	book, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Рассказы", TotalPages: 50})
	require.NoError(t, err)

	res, err := env.svc.LogReading(ctx, env.user, book.ID, 80, 0)
	require.NoError(t, err)
	assert.True(t, res.BookFinished)
	assert.Equal(t, 50, res.Book.CurrentPage)
	assert.Equal(t, models.BookFinished, res.Book.Status)
	assert.Equal(t, models.Date("2024-06-10"), res.Book.FinishedAt)
	assert.Equal(t, models.Date("2024-06-10"), res.Book.StartedAt)

	// 80*2 + 5 streak bonus + 200 for finishing; the session keeps only its own xp
	assert.Equal(t, 365, res.XPEarned)
	assert.Equal(t, 165, res.Session.XPEarned)
	require.NotNil(t, res.XP)
	assert.Equal(t, 365, res.XP.XP)
	assert.Equal(t, 2, res.XP.Level)
	assert.True(t, res.XP.LevelUp)

	types := make([]string, 0, len(res.Achievements))
	for _, a := range res.Achievements {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"first_book"}, types)

	// a finished book is not finished twice
	env.now = env.now.Add(24 * time.Hour)
	res, err = env.svc.LogReading(ctx, env.user, book.ID, 5, 0)
	require.NoError(t, err)
	assert.False(t, res.BookFinished)
	assert.Equal(t, models.BookFinished, res.Book.Status)
	assert.Equal(t, 5*2+2*5, res.XPEarned)
	assert.Empty(t, res.Achievements)
}

func TestLogReadingStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	book, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Дюна", Status: models.BookReading})
	require.NoError(t, err)

	for day := 0; day < 7; day++ {
		_, err := env.svc.LogReading(ctx, env.user, book.ID, 1, 0)
		require.NoError(t, err)
		env.now = env.now.Add(24 * time.Hour)
	}
	p := env.profile(t)
	assert.Equal(t, 7, p.CurrentStreak)
	assert.Equal(t, 7, p.LongestStreak)

	earned, err := env.store.EarnedAchievementTypes(ctx, env.user)
	require.NoError(t, err)
	assert.Contains(t, earned, "week_streak")

	// skipping a day restarts the streak
	env.now = env.now.Add(24 * time.Hour)
	res, err := env.svc.LogReading(ctx, env.user, book.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak.Streak)
	assert.Equal(t, 7, env.profile(t).LongestStreak)
}

func TestLogReadingValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.LogReading(ctx, env.user, "missing", 10, 0)
	assert.ErrorIs(t, err, models.ErrBookNotFound)
	_, err = env.svc.LogReading(ctx, env.user, "missing", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidPages)
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	book, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Мастер и Маргарита", Status: models.BookReading})
	require.NoError(t, err)
	env.ai.drafts = []models.CardDraft{
		{Question: "Что не горит?", Answer: "Рукописи"},
		{Question: "Кто автор?", Answer: "Булгаков"},
	}

	res, err := env.svc.AddNote(ctx, env.user, NoteInput{Text: "Рукописи не горят"})
	require.NoError(t, err)
	assert.Equal(t, gamification.XPNoteManual, res.XPEarned)
	assert.Equal(t, 2, res.Cards)
	assert.Equal(t, "Мастер и Маргарита", res.BookTitle)
	require.NotNil(t, res.Note.BookID)
	assert.Equal(t, book.ID, *res.Note.BookID)
	assert.Equal(t, 1, res.Streak.Streak)

	due, err := env.svc.DueCards(ctx, env.user, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, models.Date("2024-06-10"), due[0].NextReview)

	_, err = env.svc.AddNote(ctx, env.user, NoteInput{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyNote)
}

func TestAddNoteSurvivesCardFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.ai.cardsErr = errors.New("rate limited")

	res, err := env.svc.AddNote(ctx, env.user, NoteInput{Text: "мысль"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cards)
	assert.Nil(t, res.Note.BookID)
	assert.Equal(t, gamification.XPNoteManual, env.profile(t).XP)
}

func TestAddVoiceNote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Солярис", Status: models.BookReading})
	require.NoError(t, err)
	env.ai.transcript = "ну вот океан он живой"
	env.ai.formatted = "## Океан\n\nОкеан Соляриса живой."
	env.ai.drafts = []models.CardDraft{{Question: "Каков океан?", Answer: "Живой"}}

	res, err := env.svc.AddVoiceNote(ctx, env.user, []byte("OggS"), "voice.ogg")
	require.NoError(t, err)
	assert.Equal(t, gamification.XPNoteVoice, res.XPEarned)
	assert.Equal(t, models.NoteVoice, res.Note.Source)
	assert.Equal(t, env.ai.formatted, res.Note.Text())
	assert.Equal(t, []string{"Солярис"}, env.ai.titles)
	assert.Equal(t, 1, res.Cards)

	full, err := env.svc.Note(ctx, env.user, res.Note.ID)
	require.NoError(t, err)
	require.NotNil(t, full.RawTranscription)
	assert.Equal(t, "ну вот океан он живой", *full.RawTranscription)
}

func TestAddVoiceNoteWithoutAI(t *testing.T) {
	env := newTestEnv(t)
	env.svc.ai = nil
	_, err := env.svc.AddVoiceNote(context.Background(), env.user, []byte("OggS"), "voice.ogg")
	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestAnswerCard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.ai.drafts = []models.CardDraft{{Question: "Q", Answer: "A"}}
	_, err := env.svc.AddNote(ctx, env.user, NoteInput{Text: "note"})
	require.NoError(t, err)

	due, err := env.svc.DueCards(ctx, env.user, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)

	res, err := env.svc.AnswerCard(ctx, env.user, due[0].ID, spaced_repetition.ButtonNormal)
	require.NoError(t, err)
	assert.Equal(t, spaced_repetition.QualityCorrectHesitation, res.Quality)
	assert.Equal(t, 1, res.Card.Repetitions)
	assert.Equal(t, 1, res.Card.IntervalDays)
	assert.Equal(t, models.Date("2024-06-11"), res.Card.NextReview)
	assert.Equal(t, gamification.XPReviewCard, res.XPEarned)
	assert.Equal(t, gamification.XPNoteManual+gamification.XPReviewCard, env.profile(t).XP)

	due, err = env.svc.DueCards(ctx, env.user, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = env.svc.AnswerCard(ctx, env.user, res.Card.ID, "meh")
	assert.Error(t, err)
	_, err = env.svc.AnswerCard(ctx, env.user, "missing", spaced_repetition.ButtonEasy)
	assert.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	book, err := env.svc.AddBook(ctx, env.user, BookInput{Title: "Дюна", TotalPages: 500, Status: models.BookReading})
	require.NoError(t, err)
	_, err = env.svc.LogReading(ctx, env.user, book.ID, 60, 0)
	require.NoError(t, err)

	sum, err := env.svc.Summary(ctx, env.user)
	require.NoError(t, err)
	assert.Equal(t, 125, sum.Profile.XP)
	assert.Equal(t, 2, sum.Progress.Level)
	assert.Equal(t, 25, sum.Progress.Current)
	assert.Equal(t, 300, sum.Progress.Needed)
	assert.Equal(t, 1, sum.ReadingBooks)
	assert.Equal(t, 0, sum.DueCards)
	assert.Empty(t, sum.Achievements)
}
