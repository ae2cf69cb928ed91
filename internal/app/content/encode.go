package content

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/codequest-app/codequest/internal/domain"
)

// EncodeCourses writes courses in a form ParseCourses reads back unchanged.
func EncodeCourses(format Format, courses []domain.Course) ([]byte, error) {
	records := make([]courseRecord, len(courses))
	for i, c := range courses {
		records[i] = courseRecord{
			ID:          c.ID,
			Title:       c.Title,
			Difficulty:  looseString(DifficultyName(c.Difficulty)),
			Image:       c.ImageRef,
			Description: c.Description,
		}
	}
	if format == FormatXML {
		return marshalXML(xmlCourses{Courses: records})
	}
	return marshalJSON(map[string]any{"courses": records})
}

// EncodeTasks writes tasks in a form ParseTasks reads back unchanged.
func EncodeTasks(format Format, tasks []domain.Task) ([]byte, error) {
	if format == FormatXML {
		doc := xmlTasks{}
		for _, t := range tasks {
			doc.Tasks = append(doc.Tasks, taskRecord{
				ID:          t.ID,
				Title:       t.Title,
				Difficulty:  looseString(DifficultyName(t.Difficulty)),
				Order:       strconv.Itoa(t.Order),
				Description: t.Description,
			})
		}
		return marshalXML(doc)
	}
	list := make([]jsonTask, len(tasks))
	for i, t := range tasks {
		order := t.Order
		list[i] = jsonTask{
			taskRecord: taskRecord{
				ID:          t.ID,
				Title:       t.Title,
				Difficulty:  looseString(DifficultyName(t.Difficulty)),
				Description: t.Description,
			},
			Order: &order,
		}
	}
	return marshalJSON(map[string]any{"tasks": list})
}

// EncodeRewards writes rewards in a form ParseRewards reads back unchanged.
func EncodeRewards(format Format, rewards []domain.Reward) ([]byte, error) {
	if format == FormatXML {
		doc := xmlRewards{}
		for _, r := range rewards {
			doc.Rewards = append(doc.Rewards, rewardRecord{
				ID:          r.ID,
				Title:       r.Title,
				Cost:        strconv.FormatInt(r.Cost, 10),
				Icon:        r.IconRef,
				Description: r.Description,
			})
		}
		return marshalXML(doc)
	}
	list := make([]jsonReward, len(rewards))
	for i, r := range rewards {
		cost := r.Cost
		list[i] = jsonReward{
			rewardRecord: rewardRecord{ID: r.ID, Title: r.Title, Icon: r.IconRef, Description: r.Description},
			Cost:         &cost,
		}
	}
	return marshalJSON(map[string]any{"rewards": list})
}

// EncodeQuestions writes questions with explicit ids in a form
// ParseQuestions reads back unchanged.
func EncodeQuestions(format Format, questions []domain.Question) ([]byte, error) {
	if format == FormatXML {
		doc := xmlQuestions{}
		for _, q := range questions {
			doc.Questions = append(doc.Questions, toXMLQuestion(q))
		}
		return marshalXML(doc)
	}
	list := make([]jsonQuestion, len(questions))
	for i, q := range questions {
		list[i] = toJSONQuestion(q)
	}
	return marshalJSON(map[string]any{"questions": list})
}

func toXMLQuestion(q domain.Question) xmlQuestion {
	x := xmlQuestion{
		ID:          strconv.Itoa(q.ID),
		Type:        string(q.Kind),
		Prompt:      q.Prompt,
		Explanation: q.Explanation,
	}
	switch q.Kind {
	case domain.KindMultipleChoice:
		for _, o := range q.Options {
			x.Options = append(x.Options, xmlOption{Correct: o.IsCorrect, Text: o.Text})
		}
	case domain.KindFlipCard:
		x.Fronts = []string{q.Front}
		x.Backs = []string{q.Back}
	case domain.KindPressMistake:
		x.Text = ptr(q.Text)
		parts := make([]string, len(q.Mistakes))
		for i, p := range q.Mistakes {
			parts[i] = strconv.Itoa(p)
		}
		x.Mistakes = strings.Join(parts, ",")
	case domain.KindEditText:
		x.Text = ptr(q.Text)
		x.Correct = ptr(q.Correct)
	}
	return x
}

func toJSONQuestion(q domain.Question) jsonQuestion {
	j := jsonQuestion{
		ID:          json.RawMessage(strconv.Itoa(q.ID)),
		Type:        string(q.Kind),
		Prompt:      q.Prompt,
		Explanation: q.Explanation,
	}
	switch q.Kind {
	case domain.KindMultipleChoice:
		j.Options = q.Options
	case domain.KindFlipCard:
		j.Front = ptr(q.Front)
		j.Back = ptr(q.Back)
	case domain.KindPressMistake:
		j.Text = ptr(q.Text)
		j.Mistakes = q.Mistakes
	case domain.KindEditText:
		j.Text = ptr(q.Text)
		j.Correct = ptr(q.Correct)
	}
	return j
}

func marshalXML(v any) ([]byte, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func marshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }
