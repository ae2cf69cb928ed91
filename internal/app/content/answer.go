package content

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/codequest-app/codequest/internal/domain"
)

// CheckChoice reports whether option index of a multiple-choice question
// is marked correct.
func CheckChoice(q domain.Question, index int) bool {
	if q.Kind != domain.KindMultipleChoice || index < 0 || index >= len(q.Options) {
		return false
	}
	return q.Options[index].IsCorrect
}

// CorrectOptions returns the indices of the options marked correct.
func CorrectOptions(q domain.Question) []int {
	var out []int
	for i, o := range q.Options {
		if o.IsCorrect {
			out = append(out, i)
		}
	}
	return out
}

// CheckEditText compares an answer to the corrected text, ignoring case
// and surrounding whitespace.
func CheckEditText(q domain.Question, answer string) bool {
	if q.Kind != domain.KindEditText {
		return false
	}
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(answer)) == fold.String(strings.TrimSpace(q.Correct))
}

// Words splits a press-mistake text into the words its positions index.
func Words(q domain.Question) []string {
	return strings.Fields(q.Text)
}

// CheckMistakes reports whether positions name exactly the authored
// mistake set. Order and repeats do not matter.
func CheckMistakes(q domain.Question, positions []int) bool {
	if q.Kind != domain.KindPressMistake {
		return false
	}
	return slices.Equal(normalizePositions(positions), normalizePositions(q.Mistakes))
}
