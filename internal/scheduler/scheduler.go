package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync/atomic"
	"time"

	"github.com/example/readbot/internal/database"
	"github.com/example/readbot/pkg/models"
	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults for reminder delivery
const (
	// Telegram allows about 30 messages per second across chats
	DefaultRatePerSec = 25
	DefaultWorkers    = 8
	digestPreviewLen  = 400
)

// Notifier delivers reminders to a Telegram chat
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendReviewReminder(ctx context.Context, chatID int64, text string) error
}

// Config sets when the daily jobs run
type Config struct {
	Location          *time.Location
	ReadingReminderAt string
	ReviewReminderAt  string
	NoteDigestAt      string
	RatePerSec        float64
	Workers           int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	store     *database.Store
	loc       *time.Location
	limiter   *rate.Limiter
	workers   int
	now       func() time.Time
	log       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler with the reading reminder, review reminder and
// note digest registered as daily jobs. Empty times disable a job.
func New(store *database.Store, notifier Notifier, cfg Config, logger logrus.FieldLogger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		notifier:  notifier,
		store:     store,
		loc:       cfg.Location,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		workers:   cfg.Workers,
		now:       time.Now,
		log:       logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	jobs := []struct {
		name string
		at   string
		run  func(context.Context) (int, error)
	}{
		{"reading_reminder", cfg.ReadingReminderAt, s.SendReadingReminders},
		{"review_reminder", cfg.ReviewReminderAt, s.SendReviewReminders},
		{"note_digest", cfg.NoteDigestAt, s.SendNoteDigest},
	}
	for _, job := range jobs {
		if job.at == "" {
			continue
		}
		if _, err := s.scheduler.Every(1).Day().At(job.at).Do(s.runJob, job.name, job.run); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule %s at %s: %w", job.name, job.at, err)
		}
	}
	return s, nil
}

// WithClock replaces the time source used to pick "today".
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.log.WithField("jobs", len(s.scheduler.Jobs())).Info("Reminder scheduler started")
}

// Stop terminates all scheduled tasks and cancels running ones
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) runJob(name string, run func(context.Context) (int, error)) {
	log := s.log.WithField("job", name)
	sent, err := run(s.ctx)
	if err != nil {
		log.WithError(err).Error("Job failed")
		return
	}
	log.WithField("sent", sent).Info("Job finished")
}

func (s *Scheduler) today() models.Date {
	return models.DateOf(s.now(), s.loc)
}

// SendReadingReminders nudges linked users who have not read today
func (s *Scheduler) SendReadingReminders(ctx context.Context) (int, error) {
	profiles, err := s.store.Profiles.ListLinked(ctx)
	if err != nil {
		return 0, err
	}
	readers, err := s.store.Sessions.UsersReadOn(ctx, s.today())
	if err != nil {
		return 0, err
	}

	var targets []message
	for _, p := range profiles {
		if readers[p.ID] {
			continue
		}
		targets = append(targets, message{chatID: *p.TelegramChatID, userID: p.ID, text: readingReminderText(p)})
	}
	return s.fanOut(ctx, targets, s.notifier.SendMessage)
}

// SendReviewReminders tells linked users how many cards are due
func (s *Scheduler) SendReviewReminders(ctx context.Context) (int, error) {
	profiles, err := s.store.Profiles.ListLinked(ctx)
	if err != nil {
		return 0, err
	}
	due, err := s.store.Cards.DueCountsByUser(ctx, s.today())
	if err != nil {
		return 0, err
	}

	var targets []message
	for _, p := range profiles {
		count := due[p.ID]
		if count == 0 {
			continue
		}
		text := fmt.Sprintf("🧠 У вас %d %s для повторения!\n\nНажмите кнопку ниже или отправьте /review", count, CardsWord(count))
		targets = append(targets, message{chatID: *p.TelegramChatID, userID: p.ID, text: text})
	}
	return s.fanOut(ctx, targets, s.notifier.SendReviewReminder)
}

// SendNoteDigest sends every linked user one of their notes picked at random
func (s *Scheduler) SendNoteDigest(ctx context.Context) (int, error) {
	profiles, err := s.store.Profiles.ListLinked(ctx)
	if err != nil {
		return 0, err
	}

	var targets []message
	for _, p := range profiles {
		note, err := s.store.Notes.Random(ctx, p.ID)
		if errors.Is(err, models.ErrNoteNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		targets = append(targets, message{chatID: *p.TelegramChatID, userID: p.ID, text: digestText(note)})
	}
	return s.fanOut(ctx, targets, s.notifier.SendMessage)
}

type message struct {
	chatID int64
	userID string
	text   string
}

// fanOut delivers messages concurrently under the send rate limit.
// Failed deliveries are logged and not counted.
func (s *Scheduler) fanOut(ctx context.Context, targets []message, send func(context.Context, int64, string) error) (int, error) {
	var sent int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, m := range targets {
		m := m
		if err := s.limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			if err := send(gctx, m.chatID, m.text); err != nil {
				s.log.WithFields(logrus.Fields{"user_id": m.userID, "chat_id": m.chatID}).WithError(err).Warn("Failed to deliver reminder")
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(sent), err
	}
	return int(sent), ctx.Err()
}

func readingReminderText(p models.Profile) string {
	name := p.Username
	if name == "" {
		name = "читатель"
	}
	warning := ""
	if p.CurrentStreak > 0 {
		warning = fmt.Sprintf("\n⚠️ Ваш стрик %d дн., не потеряйте его!", p.CurrentStreak)
	}
	return fmt.Sprintf("📖 Привет, %s! Время почитать!%s\n\nОтправьте голосовую заметку или запишите чтение командой /read.",
		html.EscapeString(name), warning)
}

func digestText(note *database.NoteWithBook) string {
	body := []rune(note.Text())
	preview := string(body)
	if len(body) > digestPreviewLen {
		preview = string(body[:digestPreviewLen]) + "..."
	}
	bookInfo := ""
	if note.BookTitle != nil {
		bookInfo = "\n📚 " + html.EscapeString(*note.BookTitle)
	}
	return "💡 <b>Из ваших заметок:</b>" + bookInfo + "\n\n" + html.EscapeString(preview)
}

// CardsWord returns the Russian form of "карточка" that agrees with n
func CardsWord(n int) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return "карточек"
	}
	switch n % 10 {
	case 1:
		return "карточка"
	case 2, 3, 4:
		return "карточки"
	default:
		return "карточек"
	}
}
