package bot

import (
	"strings"
	"testing"

	"github.com/example/readbot/internal/gamification"
	"github.com/example/readbot/internal/journal"
	"github.com/example/readbot/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTruncateCountsCharacters(t *testing.T) {
	s, cut := truncate("привет", 10)
	assert.False(t, cut)
	assert.Equal(t, "привет", s)

	s, cut = truncate("привет", 3)
	assert.True(t, cut)
	assert.Equal(t, "при", s)
}

func TestFormatNoteReplyShortNote(t *testing.T) {
	body := "<мысль> & вывод"
	res := &journal.NoteResult{
		Outcome: journal.Outcome{
			XPEarned:     gamification.XPNoteVoice,
			Streak:       &gamification.StreakResult{Streak: 3, IsNew: true},
			Achievements: []gamification.AchievementDefinition{gamification.Achievements[7]},
		},
		Note:      models.Note{FormattedText: &body},
		BookTitle: "Солярис",
	}

	text, cut := formatNoteReply(res, true)
	assert.False(t, cut)
	assert.True(t, strings.HasPrefix(text, "✅ Заметка сохранена! +30 XP\n🔥 Стрик: 3 дн."))
	assert.Contains(t, text, "📖 Солярис")
	assert.Contains(t, text, "🎙️ Голос читателя")
	assert.Contains(t, text, "&lt;мысль&gt; &amp; вывод")
}

func TestFormatBooks(t *testing.T) {
	assert.Equal(t, msgNoBook, formatBooks(nil))

	total := 400
	text := formatBooks([]models.Book{
		{Title: "Дюна", CurrentPage: 100, TotalPages: &total},
		{Title: "Без объёма", CurrentPage: 12},
	})
	assert.Contains(t, text, "• Дюна (25%)")
	assert.True(t, strings.HasSuffix(text, "• Без объёма"))
}

func TestFormatLevelUp(t *testing.T) {
	assert.Empty(t, formatLevelUp(nil))
	assert.Empty(t, formatLevelUp(&gamification.XPResult{XP: 10, Level: 1}))
	assert.Contains(t, formatLevelUp(&gamification.XPResult{XP: 100, Level: 2, LevelUp: true}), "Новый уровень: 2")
}
