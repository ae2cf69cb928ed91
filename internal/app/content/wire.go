package content

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/codequest-app/codequest/internal/domain"
)

// Format is the encoding of a content bundle.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// Sniff detects a bundle's format from its first significant byte.
func Sniff(data []byte) (Format, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty bundle", domain.ErrMalformedContent)
	}
	switch data[0] {
	case '<':
		return FormatXML, nil
	case '{', '[':
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unrecognised bundle format", domain.ErrMalformedContent)
}

// ─── Shared records ────────────────────────────────────────────────────────
// Record types carry the authored text before validation. The XML and JSON
// shapes are both decoded into them.

type courseRecord struct {
	ID          string      `xml:"id,attr" json:"id"`
	Title       string      `xml:"title,attr" json:"title"`
	Difficulty  looseString `xml:"difficulty,attr,omitempty" json:"difficulty,omitempty"`
	Image       string      `xml:"image,attr,omitempty" json:"image,omitempty"`
	Description string      `xml:"description,omitempty" json:"description,omitempty"`
}

type taskRecord struct {
	ID          string      `xml:"id,attr" json:"id"`
	Title       string      `xml:"title,attr" json:"title"`
	Difficulty  looseString `xml:"difficulty,attr,omitempty" json:"difficulty,omitempty"`
	Order       string      `xml:"order,attr,omitempty" json:"-"`
	Description string      `xml:"description,omitempty" json:"description,omitempty"`
}

type rewardRecord struct {
	ID          string `xml:"id,attr" json:"id"`
	Title       string `xml:"title,attr" json:"title"`
	Cost        string `xml:"cost,attr" json:"-"`
	Icon        string `xml:"icon,attr,omitempty" json:"icon,omitempty"`
	Description string `xml:"description,omitempty" json:"description,omitempty"`
}

// looseString decodes a JSON string or number into its text form.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = looseString(text)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

// questionRecord is the format-neutral shape of one authored question.
// Fronts and Backs are lists so that "exactly one" can be enforced.
type questionRecord struct {
	ID          string
	Type        string
	Prompt      string
	Explanation string
	Options     []domain.Option
	Fronts      []string
	Backs       []string
	Text        *string
	Mistakes    string
	MistakeList []int
	Correct     *string
}

// ─── XML ───────────────────────────────────────────────────────────────────

type xmlCourses struct {
	XMLName xml.Name       `xml:"courses"`
	Courses []courseRecord `xml:"course"`
}

type xmlTasks struct {
	XMLName xml.Name     `xml:"tasks"`
	Tasks   []taskRecord `xml:"task"`
}

type xmlRewards struct {
	XMLName xml.Name       `xml:"rewards"`
	Rewards []rewardRecord `xml:"reward"`
}

type xmlOption struct {
	Correct bool   `xml:"correct,attr,omitempty"`
	Text    string `xml:",chardata"`
}

type xmlQuestion struct {
	ID          string      `xml:"id,attr,omitempty"`
	Type        string      `xml:"type,attr"`
	Prompt      string      `xml:"prompt,omitempty"`
	Explanation string      `xml:"explanation,omitempty"`
	Options     []xmlOption `xml:"option"`
	Fronts      []string    `xml:"front"`
	Backs       []string    `xml:"back"`
	Text        *string     `xml:"text"`
	Mistakes    string      `xml:"mistakes,omitempty"`
	Correct     *string     `xml:"correct"`
}

type xmlQuestions struct {
	XMLName   xml.Name      `xml:"questions"`
	Questions []xmlQuestion `xml:"question"`
}

func (q xmlQuestion) record() questionRecord {
	r := questionRecord{
		ID:          strings.TrimSpace(q.ID),
		Type:        strings.TrimSpace(q.Type),
		Prompt:      strings.TrimSpace(q.Prompt),
		Explanation: strings.TrimSpace(q.Explanation),
		Fronts:      q.Fronts,
		Backs:       q.Backs,
		Text:        q.Text,
		Mistakes:    q.Mistakes,
		Correct:     q.Correct,
	}
	for _, o := range q.Options {
		r.Options = append(r.Options, domain.Option{Text: strings.TrimSpace(o.Text), IsCorrect: o.Correct})
	}
	return r
}

// ─── JSON ──────────────────────────────────────────────────────────────────

type jsonTask struct {
	taskRecord
	Order *int `json:"order,omitempty"`
}

type jsonReward struct {
	rewardRecord
	Cost *int64 `json:"cost"`
}

type jsonQuestion struct {
	ID          json.RawMessage `json:"id,omitempty"`
	Type        string          `json:"type"`
	Prompt      string          `json:"prompt,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Options     []domain.Option `json:"options,omitempty"`
	Front       *string         `json:"front,omitempty"`
	Back        *string         `json:"back,omitempty"`
	Text        *string         `json:"text,omitempty"`
	Mistakes    []int           `json:"mistakes,omitempty"`
	Correct     *string         `json:"correct,omitempty"`
}

func (q jsonQuestion) record() questionRecord {
	r := questionRecord{
		ID:          jsonID(q.ID),
		Type:        q.Type,
		Prompt:      q.Prompt,
		Explanation: q.Explanation,
		Options:     q.Options,
		Text:        q.Text,
		MistakeList: q.Mistakes,
		Correct:     q.Correct,
	}
	if q.Front != nil {
		r.Fronts = []string{*q.Front}
	}
	if q.Back != nil {
		r.Backs = []string{*q.Back}
	}
	return r
}

// jsonID accepts an id authored either as a number or a string.
func jsonID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// unmarshalJSONList accepts either a bare array or an object wrapping the
// array under key.
func unmarshalJSONList[T any](data []byte, key string) ([]T, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	var list []T
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, fmt.Errorf("missing %q array", key)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ─── Decoding ──────────────────────────────────────────────────────────────

func decodeCourses(data []byte) ([]courseRecord, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if format == FormatXML {
		var doc xmlCourses
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, malformed(err)
		}
		return doc.Courses, nil
	}
	list, err := unmarshalJSONList[courseRecord](data, "courses")
	if err != nil {
		return nil, malformed(err)
	}
	return list, nil
}

func decodeTasks(data []byte) ([]taskRecord, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if format == FormatXML {
		var doc xmlTasks
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, malformed(err)
		}
		return doc.Tasks, nil
	}
	list, err := unmarshalJSONList[jsonTask](data, "tasks")
	if err != nil {
		return nil, malformed(err)
	}
	out := make([]taskRecord, len(list))
	for i, t := range list {
		out[i] = t.taskRecord
		if t.Order != nil {
			out[i].Order = strconv.Itoa(*t.Order)
		}
	}
	return out, nil
}

func decodeRewards(data []byte) ([]rewardRecord, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if format == FormatXML {
		var doc xmlRewards
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, malformed(err)
		}
		return doc.Rewards, nil
	}
	list, err := unmarshalJSONList[jsonReward](data, "rewards")
	if err != nil {
		return nil, malformed(err)
	}
	out := make([]rewardRecord, len(list))
	for i, r := range list {
		out[i] = r.rewardRecord
		if r.Cost != nil {
			out[i].Cost = strconv.FormatInt(*r.Cost, 10)
		}
	}
	return out, nil
}

func decodeQuestions(data []byte) ([]questionRecord, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if format == FormatXML {
		var doc xmlQuestions
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, malformed(err)
		}
		out := make([]questionRecord, len(doc.Questions))
		for i, q := range doc.Questions {
			out[i] = q.record()
		}
		return out, nil
	}
	list, err := unmarshalJSONList[jsonQuestion](data, "questions")
	if err != nil {
		return nil, malformed(err)
	}
	out := make([]questionRecord, len(list))
	for i, q := range list {
		out[i] = q.record()
	}
	return out, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrMalformedContent, err)
}
