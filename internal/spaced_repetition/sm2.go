package spaced_repetition

import (
	"fmt"
	"math"
	"sort"

	"github.com/example/readbot/pkg/models"
)

// SM2 implements the SuperMemo-2 variant used to schedule review cards
type SM2 struct {
	// Ответы с качеством ниже порога считаются забытыми
	PassThreshold int
	// Нижняя граница фактора легкости
	MinEaseFactor float64
}

// NewSM2 creates a new SM2 instance with the standard settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: 3,
		MinEaseFactor: 1.3,
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Result is the new schedule of a card after an answer
type Result struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
	NextReview   models.Date
}

// Schedule computes the next schedule of a card. A lapse restarts the
// repetition count; the ease factor is updated from the pre-answer value
// on every answer. The function has no error conditions.
func (sm *SM2) Schedule(quality QualityResponse, easeFactor float64, intervalDays, repetitions int, today models.Date) Result {
	q := float64(quality)

	var newInterval, newRepetitions int
	if int(quality) < sm.PassThreshold {
		newRepetitions = 0
		newInterval = 1
	} else {
		switch repetitions {
		case 0:
			newInterval = 1
		case 1:
			newInterval = 6
		default:
			newInterval = int(math.Round(float64(intervalDays) * easeFactor))
		}
		newRepetitions = repetitions + 1
	}

	newEF := easeFactor + 0.1 - (5-q)*(0.08+(5-q)*0.02)
	if newEF < sm.MinEaseFactor {
		newEF = sm.MinEaseFactor
	}

	return Result{
		EaseFactor:   newEF,
		IntervalDays: newInterval,
		Repetitions:  newRepetitions,
		NextReview:   today.AddDays(newInterval),
	}
}

// Apply schedules card in place.
func (sm *SM2) Apply(card *models.ReviewCard, quality QualityResponse, today models.Date) Result {
	res := sm.Schedule(quality, card.EaseFactor, card.IntervalDays, card.Repetitions, today)
	card.EaseFactor = res.EaseFactor
	card.IntervalDays = res.IntervalDays
	card.Repetitions = res.Repetitions
	card.NextReview = res.NextReview
	return res
}

// Button is one of the four answers offered by the review UI
type Button string

const (
	ButtonForgot Button = "forgot"
	ButtonHard   Button = "hard"
	ButtonNormal Button = "normal"
	ButtonEasy   Button = "easy"
)

// Buttons lists the review answers in display order.
var Buttons = []Button{ButtonForgot, ButtonHard, ButtonNormal, ButtonEasy}

// QualityFromButton maps a review button to an SM-2 quality.
// Qualities 0 and 2 are not reachable from the buttons.
func QualityFromButton(b Button) (QualityResponse, error) {
	switch b {
	case ButtonForgot:
		return QualityIncorrect, nil
	case ButtonHard:
		return QualityCorrectDifficult, nil
	case ButtonNormal:
		return QualityCorrectHesitation, nil
	case ButtonEasy:
		return QualityPerfect, nil
	}
	return 0, fmt.Errorf("unknown review button %q", b)
}

// PrioritizeDue returns up to limit cards due on or before today.
// Cards are ordered by due date; among cards due the same day,
// never-reviewed cards come first, then the hardest (lowest ease).
func PrioritizeDue(cards []models.ReviewCard, today models.Date, limit int) []models.ReviewCard {
	var due []models.ReviewCard
	for _, c := range cards {
		if c.NextReview.IsZero() || !today.Before(c.NextReview) {
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].NextReview != due[j].NextReview {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		if (due[i].Repetitions == 0) != (due[j].Repetitions == 0) {
			return due[i].Repetitions == 0
		}
		return due[i].EaseFactor < due[j].EaseFactor
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
