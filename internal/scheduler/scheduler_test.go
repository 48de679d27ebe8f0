package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC)

type sent struct {
	chatID int64
	text   string
	review bool
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail map[int64]bool
}

func (f *fakeNotifier) record(chatID int64, text string, review bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, sent{chatID: chatID, text: text, review: review})
	return nil
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatID int64, text string) error {
	return f.record(chatID, text, false)
}

func (f *fakeNotifier) SendReviewReminder(_ context.Context, chatID int64, text string) error {
	return f.record(chatID, text, true)
}

func (f *fakeNotifier) byChat() map[int64]sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]sent, len(f.sent))
	for _, s := range f.sent {
		out[s.chatID] = s
	}
	return out
}

type fixture struct {
	store    *database.Store
	notifier *fakeNotifier
	sched    *Scheduler
	alice    *models.Profile
	bob      *models.Profile
}

func linkedProfile(t *testing.T, store *database.Store, name string, chatID int64, streak int) *models.Profile {
	t.Helper()
	ctx := context.Background()
	p := &models.Profile{Username: name}
	require.NoError(t, store.Profiles.Create(ctx, p))
	require.NoError(t, store.Profiles.LinkTelegram(ctx, p.ID, chatID))
	require.NoError(t, store.MutateProfile(ctx, p.ID, func(p *models.Profile) (bool, error) {
		p.CurrentStreak = streak
		return true, nil
	}))
	return p
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.Options{Type: database.TypeSQLite, SQLitePath: filepath.Join(t.TempDir(), "sched.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := database.NewStore(db)

	f := &fixture{store: store, notifier: &fakeNotifier{}}
	f.alice = linkedProfile(t, store, "alice", 1, 3)
	f.bob = linkedProfile(t, store, "", 2, 0)

	// unlinked profiles never get reminders
	require.NoError(t, store.Profiles.Create(ctx, &models.Profile{Username: "carol"}))

	logger, _ := test.NewNullLogger()
	f.sched, err = New(store, f.notifier, Config{
		Location:          time.UTC,
		ReadingReminderAt: "20:00",
		ReviewReminderAt:  "09:00",
		NoteDigestAt:      "12:00",
		RatePerSec:        1000,
	}, logger)
	require.NoError(t, err)
	f.sched.WithClock(func() time.Time { return now })
	t.Cleanup(f.sched.Stop)
	return f
}

func (f *fixture) addBook(t *testing.T, userID, title string) *models.Book {
	t.Helper()
	b := &models.Book{UserID: userID, Title: title, Status: models.BookReading}
	require.NoError(t, f.store.Books.Create(context.Background(), b))
	return b
}

func TestNewRegistersJobs(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.sched.scheduler.Jobs(), 3)

	logger, _ := test.NewNullLogger()
	partial, err := New(f.store, f.notifier, Config{ReviewReminderAt: "09:00"}, logger)
	require.NoError(t, err)
	defer partial.Stop()
	assert.Len(t, partial.scheduler.Jobs(), 1)

	_, err = New(f.store, f.notifier, Config{ReadingReminderAt: "25:99"}, logger)
	assert.Error(t, err)
}

func TestSendReadingReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	dave := linkedProfile(t, f.store, "dave", 3, 5)
	daveBook := f.addBook(t, dave.ID, "Дюна")
	require.NoError(t, f.store.Sessions.Create(ctx, &models.ReadingSession{
		UserID: dave.ID, BookID: daveBook.ID, PagesRead: 12, Date: models.DateOf(now, time.UTC),
	}))
	// yesterday's reading does not count
	aliceBook := f.addBook(t, f.alice.ID, "Солярис")
	require.NoError(t, f.store.Sessions.Create(ctx, &models.ReadingSession{
		UserID: f.alice.ID, BookID: aliceBook.ID, PagesRead: 12, Date: "2024-06-09",
	}))

	n, err := f.sched.SendReadingReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := f.notifier.byChat()
	require.Contains(t, got, int64(1))
	require.Contains(t, got, int64(2))
	assert.NotContains(t, got, int64(3))

	assert.Contains(t, got[1].text, "Привет, alice! Время почитать!")
	assert.Contains(t, got[1].text, "Ваш стрик 3 дн.")
	assert.Contains(t, got[2].text, "Привет, читатель!")
	assert.NotContains(t, got[2].text, "стрик")
	assert.False(t, got[1].review)
}

func TestSendReviewReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	today := models.DateOf(now, time.UTC)
	require.NoError(t, f.store.Cards.CreateBatch(ctx, []*models.ReviewCard{
		{UserID: f.bob.ID, Question: "q1", Answer: "a1", NextReview: today},
		{UserID: f.bob.ID, Question: "q2", Answer: "a2", NextReview: today.AddDays(-3)},
		{UserID: f.alice.ID, Question: "q3", Answer: "a3", NextReview: today.AddDays(2)},
	}))

	n, err := f.sched.SendReviewReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := f.notifier.byChat()
	require.Contains(t, got, int64(2))
	assert.True(t, got[2].review)
	assert.True(t, strings.HasPrefix(got[2].text, "🧠 У вас 2 карточки для повторения!"))
}

func TestSendNoteDigest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	book := f.addBook(t, f.alice.ID, "Мастер & Маргарита")
	long := strings.Repeat("ж", 450)
	require.NoError(t, f.store.Notes.Create(ctx, &models.Note{UserID: f.alice.ID, BookID: &book.ID, ManualText: &long}))

	n, err := f.sched.SendNoteDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := f.notifier.byChat()
	require.Contains(t, got, int64(1))
	text := got[1].text
	assert.True(t, strings.HasPrefix(text, "💡 <b>Из ваших заметок:</b>\n📚 Мастер &amp; Маргарита\n\n"))
	assert.True(t, strings.HasSuffix(text, strings.Repeat("ж", 400)+"..."))
}

func TestFailedDeliveriesAreNotCounted(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = map[int64]bool{1: true}

	n, err := f.sched.SendReadingReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.notifier.byChat(), 1)
}

func TestCanceledContextStopsFanOut(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.sched.SendReadingReminders(ctx)
	assert.Error(t, err)
}

func TestCardsWord(t *testing.T) {
	tests := map[int]string{
		1: "карточка", 2: "карточки", 4: "карточки", 5: "карточек",
		11: "карточек", 12: "карточек", 14: "карточек", 21: "карточка",
		22: "карточки", 25: "карточек", 101: "карточка", 111: "карточек",
	}
	keys := make([]int, 0, len(tests))
	for n := range tests {
		keys = append(keys, n)
	}
	sort.Ints(keys)
	for _, n := range keys {
		assert.Equal(t, tests[n], CardsWord(n), "n=%d", n)
	}
}

func TestRunJobLogsOutcome(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	f.sched.log = logger

	f.sched.runJob("ok", func(context.Context) (int, error) { return 4, nil })
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 4, hook.LastEntry().Data["sent"])

	f.sched.runJob("broken", func(context.Context) (int, error) { return 0, errors.New("db down") })
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "broken", hook.LastEntry().Data["job"])
}
