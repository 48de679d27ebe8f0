package bot

import (
	"fmt"
	"strings"

	"github.com/example/readbot/internal/spaced_repetition"
)

// Callback data of inline buttons
const (
	callbackReviewPrefix = "review_"
	callbackNotePrefix   = "show_note_"
	callbackReviewNext   = "review_next"
	reviewShow           = "show"
)

type callbackKind int

const (
	callbackUnknown callbackKind = iota
	callbackShowAnswer
	callbackAnswer
	callbackNextCard
	callbackShowNote
)

// callbackAction is a parsed inline button press
type callbackAction struct {
	Kind   callbackKind
	ID     string
	Button spaced_repetition.Button
}

func showAnswerData(cardID string) string {
	return callbackReviewPrefix + reviewShow + "_" + cardID
}

func answerData(b spaced_repetition.Button, cardID string) string {
	return callbackReviewPrefix + string(b) + "_" + cardID
}

func showNoteData(noteID string) string {
	return callbackNotePrefix + noteID
}

// parseCallback decodes button data: review_show_<card>, review_<button>_<card>,
// review_next and show_note_<note>.
func parseCallback(data string) (callbackAction, error) {
	switch {
	case data == callbackReviewNext:
		return callbackAction{Kind: callbackNextCard}, nil

	case strings.HasPrefix(data, callbackNotePrefix):
		id := strings.TrimPrefix(data, callbackNotePrefix)
		if id == "" {
			break
		}
		return callbackAction{Kind: callbackShowNote, ID: id}, nil

	case strings.HasPrefix(data, callbackReviewPrefix):
		parts := strings.SplitN(strings.TrimPrefix(data, callbackReviewPrefix), "_", 2)
		if len(parts) != 2 || parts[1] == "" {
			break
		}
		if parts[0] == reviewShow {
			return callbackAction{Kind: callbackShowAnswer, ID: parts[1]}, nil
		}
		button := spaced_repetition.Button(parts[0])
		if _, err := spaced_repetition.QualityFromButton(button); err != nil {
			return callbackAction{}, err
		}
		return callbackAction{Kind: callbackAnswer, ID: parts[1], Button: button}, nil
	}
	return callbackAction{}, fmt.Errorf("unknown callback data %q", data)
}
