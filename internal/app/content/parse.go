package content

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/codequest-app/codequest/internal/domain"
)

// ParseCourses decodes a course bundle. Any malformed entry fails the
// whole bundle with domain.ErrMalformedContent.
func ParseCourses(data []byte) ([]domain.Course, error) {
	records, err := decodeCourses(data)
	if err != nil {
		return nil, err
	}
	courses := make([]domain.Course, 0, len(records))
	for i, r := range records {
		id, title := strings.TrimSpace(r.ID), strings.TrimSpace(r.Title)
		if id == "" || title == "" {
			return nil, fmt.Errorf("%w: course %d: id and title are required", domain.ErrMalformedContent, i+1)
		}
		courses = append(courses, domain.Course{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(r.Description),
			Difficulty:  ParseDifficulty(string(r.Difficulty)),
			ImageRef:    strings.TrimSpace(r.Image),
		})
	}
	return courses, nil
}

// ParseTasks decodes a task bundle for courseID. Tasks without an order
// attribute take their 1-based position; the result is sorted by Order.
func ParseTasks(courseID string, data []byte) ([]domain.Task, error) {
	records, err := decodeTasks(data)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(records))
	for i, r := range records {
		id, title := strings.TrimSpace(r.ID), strings.TrimSpace(r.Title)
		if id == "" || title == "" {
			return nil, fmt.Errorf("%w: task %d: id and title are required", domain.ErrMalformedContent, i+1)
		}
		order := i + 1
		if s := strings.TrimSpace(r.Order); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: task %q: order %q", domain.ErrMalformedContent, id, s)
			}
			order = n
		}
		tasks = append(tasks, domain.Task{
			ID:          id,
			CourseID:    courseID,
			Title:       title,
			Description: strings.TrimSpace(r.Description),
			Difficulty:  ParseDifficulty(string(r.Difficulty)),
			Order:       order,
		})
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int { return a.Order - b.Order })
	return tasks, nil
}

// ParseRewards decodes a reward bundle. Cost must be a non-negative integer.
func ParseRewards(data []byte) ([]domain.Reward, error) {
	records, err := decodeRewards(data)
	if err != nil {
		return nil, err
	}
	rewards := make([]domain.Reward, 0, len(records))
	for i, r := range records {
		id, title := strings.TrimSpace(r.ID), strings.TrimSpace(r.Title)
		if id == "" || title == "" {
			return nil, fmt.Errorf("%w: reward %d: id and title are required", domain.ErrMalformedContent, i+1)
		}
		cost, err := strconv.ParseInt(strings.TrimSpace(r.Cost), 10, 64)
		if err != nil || cost < 0 {
			return nil, fmt.Errorf("%w: reward %q: cost %q", domain.ErrMalformedContent, id, r.Cost)
		}
		rewards = append(rewards, domain.Reward{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(r.Description),
			Cost:        cost,
			IconRef:     strings.TrimSpace(r.Icon),
		})
	}
	return rewards, nil
}

// ParseQuestions decodes a question bundle. Questions without an explicit
// id are numbered by their 1-based position in the bundle. Ids must be
// unique within the bundle.
func ParseQuestions(data []byte) ([]domain.Question, error) {
	records, err := decodeQuestions(data)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(records))
	seen := make(map[int]bool, len(records))
	for i, r := range records {
		q, err := r.question(i + 1)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", domain.ErrMalformedContent, i+1, err)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: question %d: duplicate id %d", domain.ErrMalformedContent, i+1, q.ID)
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, nil
}

func (r questionRecord) question(position int) (domain.Question, error) {
	q := domain.Question{
		ID:          position,
		Kind:        domain.QuestionKind(strings.TrimSpace(r.Type)),
		Prompt:      r.Prompt,
		Explanation: r.Explanation,
	}
	if r.ID != "" {
		id, err := strconv.Atoi(r.ID)
		if err != nil || id < 1 {
			return q, fmt.Errorf("id %q is not a positive integer", r.ID)
		}
		q.ID = id
	}
	if !q.Kind.Valid() {
		return q, fmt.Errorf("unknown type %q", r.Type)
	}
	if q.Kind != domain.KindFlipCard && q.Prompt == "" {
		return q, fmt.Errorf("%s requires a prompt", q.Kind)
	}

	switch q.Kind {
	case domain.KindMultipleChoice:
		if len(r.Options) == 0 {
			return q, fmt.Errorf("multiple_choice requires options")
		}
		for _, o := range r.Options {
			if o.Text == "" {
				return q, fmt.Errorf("option text is empty")
			}
		}
		q.Options = r.Options

	case domain.KindFlipCard:
		if len(r.Fronts) != 1 || len(r.Backs) != 1 {
			return q, fmt.Errorf("flip_card requires exactly one front and one back")
		}
		q.Front = strings.TrimSpace(r.Fronts[0])
		q.Back = strings.TrimSpace(r.Backs[0])

	case domain.KindPressMistake:
		if r.Text == nil || strings.TrimSpace(*r.Text) == "" {
			return q, fmt.Errorf("press_mistake requires text")
		}
		q.Text = strings.TrimSpace(*r.Text)
		positions := r.MistakeList
		if r.Mistakes != "" {
			parsed, err := parsePositions(r.Mistakes)
			if err != nil {
				return q, err
			}
			positions = parsed
		}
		for _, p := range positions {
			if p < 0 {
				return q, fmt.Errorf("mistake position %d is negative", p)
			}
		}
		q.Mistakes = normalizePositions(positions)

	case domain.KindEditText:
		if r.Text == nil || r.Correct == nil {
			return q, fmt.Errorf("edit_text requires text and correct")
		}
		q.Text = strings.TrimSpace(*r.Text)
		q.Correct = strings.TrimSpace(*r.Correct)
	}
	return q, nil
}

// parsePositions reads a comma or whitespace separated list of integers.
func parsePositions(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("mistake position %q is not an integer", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// normalizePositions returns the sorted distinct positions.
func normalizePositions(p []int) []int {
	out := slices.Clone(p)
	slices.Sort(out)
	return slices.Compact(out)
}
