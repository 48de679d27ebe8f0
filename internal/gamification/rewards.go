package gamification

// XP rewards per activity. Callers and the UI rely on these exact values.
const (
	XPPerPageRead       = 2
	XPNoteManual        = 20
	XPNoteVoice         = 30
	XPReviewCard        = 10
	XPBookFinished      = 200
	XPStreakBonusPerDay = 5
)

// ReadingXP is the reward for a reading session: two points per page plus
// the streak bonus when the session opened a new streak day.
func ReadingXP(pages int, streak *StreakResult) int {
	xp := pages * XPPerPageRead
	if streak != nil && streak.IsNew {
		xp += streak.Streak * XPStreakBonusPerDay
	}
	return xp
}
