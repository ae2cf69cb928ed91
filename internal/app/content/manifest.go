package content

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest names the bundles the catalog is built from. Tasks and
// Questions override the <slug>_tasks / <slug>_questions convention for
// individual courses and tasks.
//
//	courses: courses
//	rewards: rewards
//	tasks:
//	  go_basics: go_basics_v2_tasks
//	questions:
//	  go_vars: go_vars_quiz
type Manifest struct {
	Courses   string            `yaml:"courses"`
	Rewards   string            `yaml:"rewards"`
	Tasks     map[string]string `yaml:"tasks,omitempty"`
	Questions map[string]string `yaml:"questions,omitempty"`
}

// DefaultManifest uses the "courses" and "rewards" bundles and naming
// conventions for everything else.
func DefaultManifest() Manifest {
	return Manifest{Courses: "courses", Rewards: "rewards"}
}

// ParseManifest decodes a YAML manifest, filling unset bundle names with
// the defaults.
func ParseManifest(data []byte) (Manifest, error) {
	m := DefaultManifest()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Courses == "" {
		m.Courses = "courses"
	}
	if m.Rewards == "" {
		m.Rewards = "rewards"
	}
	return m, nil
}

// LoadManifest reads the "manifest" raw resource if present, else returns
// the default manifest.
func LoadManifest(p Provider, name string) (Manifest, error) {
	if name == "" {
		name = "manifest"
	}
	data, ok := p.Bytes(name, KindRaw)
	if !ok {
		return DefaultManifest(), nil
	}
	return ParseManifest(data)
}

func (m Manifest) tasksResource(courseID string) string {
	if r, ok := m.Tasks[courseID]; ok && r != "" {
		return r
	}
	return TasksResource(courseID)
}

func (m Manifest) questionsResource(taskID string) string {
	if r, ok := m.Questions[taskID]; ok && r != "" {
		return r
	}
	return QuestionsResource(taskID)
}
