// Package domain: course content types.
// A Course is divided into Tasks; each Task holds an ordered list of typed
// Questions. Content is read-only during a session.
package domain

// Difficulty is the 1..5 tier a course or task is rated at.
type Difficulty int

const (
	DifficultyBeginner     Difficulty = 1
	DifficultyIntermediate Difficulty = 2
	DifficultyAdvanced     Difficulty = 3
	DifficultyExpert       Difficulty = 4
	DifficultyMaster       Difficulty = 5
)

// Course is a top-level unit of learning content.
type Course struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	ImageRef    string     `json:"image,omitempty"`
	Tasks       []Task     `json:"tasks,omitempty"`
}

// Task belongs to exactly one course.
type Task struct {
	ID            string     `json:"id"`
	CourseID      string     `json:"course_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Difficulty    Difficulty `json:"difficulty"`
	Order         int        `json:"order"`
	QuestionCount int        `json:"question_count"`
}

// QuestionKind is the closed set of question variants.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindFlipCard       QuestionKind = "flip_card"
	KindPressMistake   QuestionKind = "press_mistake"
	KindEditText       QuestionKind = "edit_text"
)

// Valid reports whether k is one of the known variants.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindFlipCard, KindPressMistake, KindEditText:
		return true
	}
	return false
}

// Option is one answer of a multiple-choice question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"correct"`
}

// Question is a tagged variant: only the fields of Kind are populated.
//
//	multiple_choice: Options
//	flip_card:       Front, Back
//	press_mistake:   Text, Mistakes (0-based word indices into Text)
//	edit_text:       Text (incorrect), Correct
type Question struct {
	ID          int          `json:"id"`
	Kind        QuestionKind `json:"type"`
	Prompt      string       `json:"prompt"`
	Explanation string       `json:"explanation,omitempty"`

	Options  []Option `json:"options,omitempty"`
	Front    string   `json:"front,omitempty"`
	Back     string   `json:"back,omitempty"`
	Text     string   `json:"text,omitempty"`
	Mistakes []int    `json:"mistakes,omitempty"`
	Correct  string   `json:"correct,omitempty"`
}
