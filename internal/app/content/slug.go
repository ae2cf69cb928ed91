package content

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/codequest-app/codequest/internal/domain"
)

// Slug lowercases s and replaces each space with an underscore:
// "Kotlin Basics" → "kotlin_basics". Surrounding whitespace is dropped.
func Slug(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(toLower(s)), " ", "_")
}

// TasksResource is the conventional resource name of a course's tasks.
func TasksResource(courseID string) string { return Slug(courseID) + "_tasks" }

// QuestionsResource is the conventional resource name of a task's questions.
func QuestionsResource(taskID string) string { return Slug(taskID) + "_questions" }

var difficultyNames = map[string]domain.Difficulty{
	"beginner":     domain.DifficultyBeginner,
	"intermediate": domain.DifficultyIntermediate,
	"advanced":     domain.DifficultyAdvanced,
	"expert":       domain.DifficultyExpert,
	"master":       domain.DifficultyMaster,
}

// ParseDifficulty maps difficulty text to its 1..5 tier. Names are matched
// case-insensitively; the digits "1".."5" are accepted as well. Anything
// else is tier 1.
func ParseDifficulty(s string) domain.Difficulty {
	s = strings.TrimSpace(toLower(s))
	if d, ok := difficultyNames[s]; ok {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 5 {
		return domain.Difficulty(n)
	}
	return domain.DifficultyBeginner
}

// toLower builds a Caser per call; Casers are not safe for concurrent use.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// DifficultyName is the inverse of ParseDifficulty for valid tiers.
func DifficultyName(d domain.Difficulty) string {
	for name, tier := range difficultyNames {
		if tier == d {
			return name
		}
	}
	return "beginner"
}
