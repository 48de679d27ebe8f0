package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/journal"
	"github.com/example/readbot/internal/spaced_repetition"
	"github.com/example/readbot/pkg/models"
)

// Notes longer than this are sent as a preview with a "show full" button
const notePreviewLen = 300

const (
	msgNotLinked    = "❌ Аккаунт не привязан. Используйте /start КОД"
	msgBadCode      = "❌ Неверный формат кода привязки."
	msgUnknownCode  = "❌ Неверный код привязки. Сгенерируйте новый командой profile link-code."
	msgLinked       = "✅ Telegram успешно привязан к аккаунту!\n\nТеперь вы можете:\n• Отправлять голосовые заметки\n• Отправлять текстовые заметки\n• Получать напоминания"
	msgError        = "❌ Произошла ошибка. Пожалуйста, попробуйте позже."
	msgVoiceError   = "❌ Ошибка обработки голосового сообщения. Попробуйте ещё раз."
	msgVoiceWorking = "🎙️ Обрабатываю голосовое сообщение..."
	msgNoCards      = "🎉 Нет карточек для повторения. Возвращайтесь завтра!"
	msgNoBook       = "📚 Нет книг в процессе чтения."
	msgReadUsage    = "Использование: /read СТРАНИЦЫ, например /read 25"
	msgUnknown      = "Неизвестная команда. Используйте /help."
)

const welcomeText = "📖 <b>Читательский Дневник</b>\n\n" +
	"Для привязки аккаунта используйте команду:\n/start КОД\n\n" +
	"Код выдаёт команда <code>readbot profile link-code</code>."

const helpText = "📖 <b>Справка</b>\n\n" +
	"/stats - статистика и уровень\n" +
	"/books - книги в процессе чтения\n" +
	"/read N - записать N прочитанных страниц текущей книги\n" +
	"/review - повторить карточки\n\n" +
	"Отправьте текст или голосовое сообщение, чтобы сохранить заметку."

var buttonLabels = map[spaced_repetition.Button]string{
	spaced_repetition.ButtonForgot: "😵 Забыл",
	spaced_repetition.ButtonHard:   "😓 Трудно",
	spaced_repetition.ButtonNormal: "🙂 Нормально",
	spaced_repetition.ButtonEasy:   "😎 Легко",
}

// truncate cuts s to at most n characters
func truncate(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

func formatAchievements(defs []gamification.AchievementDefinition) string {
	if len(defs) == 0 {
		return ""
	}
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Icon+" "+html.EscapeString(d.Name))
	}
	return "\n🏆 Новые достижения: " + strings.Join(names, ", ")
}

func formatLevelUp(xp *gamification.XPResult) string {
	if xp == nil || !xp.LevelUp {
		return ""
	}
	return fmt.Sprintf("\n⭐ Новый уровень: %d!", xp.Level)
}

func streakOf(s *gamification.StreakResult) int {
	if s == nil {
		return 0
	}
	return s.Streak
}

// noteHeader is the part of a note reply above the note text
func noteHeader(res *journal.NoteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Заметка сохранена! +%d XP\n🔥 Стрик: %d дн.", res.XPEarned, streakOf(res.Streak))
	if res.BookTitle != "" {
		fmt.Fprintf(&b, "\n📖 %s", html.EscapeString(res.BookTitle))
	}
	if res.Cards > 0 {
		fmt.Fprintf(&b, "\n🧠 Карточек для повторения: %d", res.Cards)
	}
	b.WriteString(formatLevelUp(res.XP))
	b.WriteString(formatAchievements(res.Achievements))
	return b.String()
}

// formatNoteReply renders a saved note and reports whether it was cut to a preview
func formatNoteReply(res *journal.NoteResult, showText bool) (string, bool) {
	header := noteHeader(res)
	if !showText {
		return header, false
	}
	text := res.Note.Text()
	preview, cut := truncate(text, notePreviewLen)
	if cut {
		return header + "\n\n📝 <b>Превью:</b>\n" + html.EscapeString(preview) + "...", true
	}
	return header + "\n\n📝 " + html.EscapeString(text), false
}

// formatFullNote expands a preview. header comes back from Telegram as plain text.
func formatFullNote(header, text string) string {
	return html.EscapeString(header) + "\n\n📝 <b>Полная заметка:</b>\n" + html.EscapeString(text)
}

func formatReading(res *journal.ReadingResult) string {
	var b strings.Builder
	if res.BookFinished {
		fmt.Fprintf(&b, "🎉 Книга «%s» прочитана! +%d XP", html.EscapeString(res.Book.Title), res.XPEarned)
	} else {
		fmt.Fprintf(&b, "📖 %s: +%d стр., +%d XP", html.EscapeString(res.Book.Title), res.Session.PagesRead, res.XPEarned)
		if pct := res.Book.ProgressPercent(); pct >= 0 {
			fmt.Fprintf(&b, " (%d%%)", pct)
		}
	}
	if res.Streak != nil && res.Streak.IsNew {
		fmt.Fprintf(&b, "\n🔥 Стрик: %d дн.", res.Streak.Streak)
	}
	b.WriteString(formatLevelUp(res.XP))
	b.WriteString(formatAchievements(res.Achievements))
	return b.String()
}

func formatStats(s *journal.Summary) string {
	return fmt.Sprintf("📊 <b>Ваша статистика</b>\n\n"+
		"🔥 Стрик: %d дн. (рекорд: %d)\n"+
		"⭐ Уровень: %d\n"+
		"✨ XP: %d (%d/%d до следующего уровня, %.0f%%)\n"+
		"📚 Читаю: %d книг\n"+
		"🧠 Карточек к повторению: %d\n"+
		"🏆 Достижений: %d",
		s.Profile.CurrentStreak, s.Profile.LongestStreak,
		s.Progress.Level,
		s.Profile.XP, s.Progress.Current, s.Progress.Needed, s.Progress.Percentage,
		s.ReadingBooks,
		s.DueCards,
		len(s.Achievements),
	)
}

func formatBooks(books []models.Book) string {
	if len(books) == 0 {
		return msgNoBook
	}
	lines := make([]string, 0, len(books))
	for _, b := range books {
		line := "• " + html.EscapeString(b.Title)
		if pct := b.ProgressPercent(); pct >= 0 {
			line += fmt.Sprintf(" (%d%%)", pct)
		}
		lines = append(lines, line)
	}
	return "📚 <b>Читаю сейчас:</b>\n\n" + strings.Join(lines, "\n")
}

func formatQuestion(c *models.ReviewCard) string {
	return "❓ <b>Вопрос:</b>\n" + html.EscapeString(c.Question)
}

func formatAnswer(c *models.ReviewCard) string {
	return formatQuestion(c) + "\n\n💡 <b>Ответ:</b>\n" + html.EscapeString(c.Answer)
}

func formatAnswered(res *journal.AnswerResult) string {
	text := formatAnswer(&res.Card) + fmt.Sprintf("\n\n✅ +%d XP. Следующее повторение: %s", res.XPEarned, res.Card.NextReview)
	return text + formatLevelUp(res.XP) + formatAchievements(res.Achievements)
}
