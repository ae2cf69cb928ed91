// Package content loads course, task, question and reward bundles.
//
// Bundles are XML or JSON documents looked up by name through a Provider.
// A missing bundle yields an empty list and a warning; a malformed one
// fails that unit as a whole. Which bundle holds a course's tasks or a
// task's questions is decided by the Manifest, falling back to the
// <slug>_tasks and <slug>_questions naming convention.
package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Problem is one content defect found while indexing or checking.
type Problem struct {
	Unit     string `json:"unit"`
	Resource string `json:"resource"`
	Reason   string `json:"reason"` // "missing", "malformed" or "duplicate"
	Detail   string `json:"detail,omitempty"`
}

func (p Problem) String() string {
	s := fmt.Sprintf("%s (%s): %s", p.Unit, p.Resource, p.Reason)
	if p.Detail != "" {
		s += ": " + p.Detail
	}
	return s
}

// Catalog resolves content through a Provider and keeps an index of which
// course owns each task.
type Catalog struct {
	provider Provider
	manifest Manifest
	log      *logger.Logger

	mu         sync.RWMutex
	taskCourse map[string]string
	questions  map[string]int
	problems   []Problem
}

// NewCatalog creates a catalog and builds its task index.
// The returned error reports duplicate task ids; the catalog is usable
// either way, with the first registration of a duplicate winning.
func NewCatalog(p Provider, m Manifest, log *logger.Logger) (*Catalog, error) {
	c := &Catalog{
		provider: p,
		manifest: m,
		log:      log.With("component", "content"),
	}
	return c, c.Reload()
}

// Reload rebuilds the task index from the provider.
func (c *Catalog) Reload() error {
	taskCourse := make(map[string]string)
	questions := make(map[string]int)
	var problems []Problem
	var errs []error

	courses, err := c.LoadCourses()
	if err != nil {
		problems = append(problems, problemFor("courses", c.manifest.Courses, err))
	}

	for _, course := range courses {
		tasks, err := c.loadTasks(course.ID)
		if err != nil {
			problems = append(problems, problemFor("course "+course.ID+" tasks", c.manifest.tasksResource(course.ID), err))
			continue
		}
		for _, t := range tasks {
			if owner, dup := taskCourse[t.ID]; dup {
				problems = append(problems, Problem{
					Unit:     "task " + t.ID,
					Resource: c.manifest.tasksResource(course.ID),
					Reason:   "duplicate",
					Detail:   "already defined by course " + owner,
				})
				errs = append(errs, fmt.Errorf("%w: %q in courses %q and %q", domain.ErrDuplicateTask, t.ID, owner, course.ID))
				continue
			}
			taskCourse[t.ID] = course.ID

			qs, err := c.LoadQuestions(t.ID)
			if err != nil {
				problems = append(problems, problemFor("task "+t.ID+" questions", c.manifest.questionsResource(t.ID), err))
				continue
			}
			questions[t.ID] = len(qs)
		}
	}

	c.mu.Lock()
	c.taskCourse = taskCourse
	c.questions = questions
	c.problems = problems
	c.mu.Unlock()

	c.log.Info("content indexed", "courses", len(courses), "tasks", len(taskCourse), "problems", len(problems))
	return errors.Join(errs...)
}

// LoadCourses parses the course bundle.
func (c *Catalog) LoadCourses() ([]domain.Course, error) {
	data, ok := c.lookup("courses", c.manifest.Courses)
	if !ok {
		return []domain.Course{}, nil
	}
	courses, err := ParseCourses(data)
	if err != nil {
		return nil, c.failed("courses", c.manifest.Courses, err)
	}
	return courses, nil
}

// Course returns one course with its tasks attached.
func (c *Catalog) Course(courseID string) (domain.Course, error) {
	courses, err := c.LoadCourses()
	if err != nil {
		return domain.Course{}, err
	}
	for _, course := range courses {
		if course.ID != courseID {
			continue
		}
		tasks, err := c.LoadTasks(courseID)
		if err != nil {
			return domain.Course{}, err
		}
		course.Tasks = tasks
		return course, nil
	}
	return domain.Course{}, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, courseID)
}

// LoadTasks parses the task bundle of courseID, with question counts
// taken from the index.
func (c *Catalog) LoadTasks(courseID string) ([]domain.Task, error) {
	tasks, err := c.loadTasks(courseID)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	for i := range tasks {
		tasks[i].QuestionCount = c.questions[tasks[i].ID]
	}
	c.mu.RUnlock()
	return tasks, nil
}

func (c *Catalog) loadTasks(courseID string) ([]domain.Task, error) {
	unit := "course " + courseID + " tasks"
	name := c.manifest.tasksResource(courseID)
	data, ok := c.lookup(unit, name)
	if !ok {
		return []domain.Task{}, nil
	}
	tasks, err := ParseTasks(courseID, data)
	if err != nil {
		return nil, c.failed(unit, name, err)
	}
	return tasks, nil
}

// Task finds a task by id through the index.
func (c *Catalog) Task(taskID string) (domain.Task, error) {
	c.mu.RLock()
	courseID, ok := c.taskCourse[taskID]
	c.mu.RUnlock()
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	tasks, err := c.LoadTasks(courseID)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
}

// LoadQuestions parses the question bundle of taskID.
func (c *Catalog) LoadQuestions(taskID string) ([]domain.Question, error) {
	unit := "task " + taskID + " questions"
	name := c.manifest.questionsResource(taskID)
	data, ok := c.lookup(unit, name)
	if !ok {
		return []domain.Question{}, nil
	}
	qs, err := ParseQuestions(data)
	if err != nil {
		return nil, c.failed(unit, name, err)
	}
	return qs, nil
}

// LoadRewards parses the reward bundle.
func (c *Catalog) LoadRewards() ([]domain.Reward, error) {
	data, ok := c.lookup("rewards", c.manifest.Rewards)
	if !ok {
		return []domain.Reward{}, nil
	}
	rewards, err := ParseRewards(data)
	if err != nil {
		return nil, c.failed("rewards", c.manifest.Rewards, err)
	}
	return rewards, nil
}

// Image returns a drawable resource.
func (c *Catalog) Image(name string) ([]byte, bool) {
	return c.provider.Bytes(name, KindDrawable)
}

// CourseOf returns the course that owns taskID.
func (c *Catalog) CourseOf(taskID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.taskCourse[taskID]
	return id, ok
}

// Check reports every missing or malformed bundle and every missing image
// reference. An empty result means all content resolves.
func (c *Catalog) Check() []Problem {
	c.mu.RLock()
	problems := append([]Problem(nil), c.problems...)
	c.mu.RUnlock()

	if _, ok := c.provider.Bytes(c.manifest.Courses, KindRaw); !ok {
		problems = append(problems, Problem{Unit: "courses", Resource: c.manifest.Courses, Reason: "missing"})
	}
	if _, ok := c.provider.Bytes(c.manifest.Rewards, KindRaw); !ok {
		problems = append(problems, Problem{Unit: "rewards", Resource: c.manifest.Rewards, Reason: "missing"})
	} else if _, err := c.LoadRewards(); err != nil {
		problems = append(problems, problemFor("rewards", c.manifest.Rewards, err))
	}

	courses, _ := c.LoadCourses()
	for _, course := range courses {
		tasksName := c.manifest.tasksResource(course.ID)
		if _, ok := c.provider.Bytes(tasksName, KindRaw); !ok {
			problems = append(problems, Problem{Unit: "course " + course.ID + " tasks", Resource: tasksName, Reason: "missing"})
		}
		if course.ImageRef != "" {
			if _, ok := c.Image(course.ImageRef); !ok {
				problems = append(problems, Problem{Unit: "course " + course.ID + " image", Resource: course.ImageRef, Reason: "missing"})
			}
		}
	}

	c.mu.RLock()
	taskIDs := make([]string, 0, len(c.taskCourse))
	for id := range c.taskCourse {
		taskIDs = append(taskIDs, id)
	}
	c.mu.RUnlock()
	sort.Strings(taskIDs)
	for _, id := range taskIDs {
		name := c.manifest.questionsResource(id)
		if _, ok := c.provider.Bytes(name, KindRaw); !ok {
			problems = append(problems, Problem{Unit: "task " + id + " questions", Resource: name, Reason: "missing"})
		}
	}
	return problems
}

func (c *Catalog) lookup(unit, name string) ([]byte, bool) {
	data, ok := c.provider.Bytes(name, KindRaw)
	if !ok {
		metrics.ContentLoadFailures.WithLabelValues(unitKind(unit), "missing").Inc()
		c.log.Warn("content resource missing", "unit", unit, "resource", name)
	}
	return data, ok
}

func (c *Catalog) failed(unit, name string, err error) error {
	metrics.ContentLoadFailures.WithLabelValues(unitKind(unit), "malformed").Inc()
	c.log.Error("content resource malformed", "unit", unit, "resource", name, "error", err)
	return fmt.Errorf("load %s from %q: %w", unit, name, err)
}

func problemFor(unit, name string, err error) Problem {
	return Problem{Unit: unit, Resource: name, Reason: "malformed", Detail: err.Error()}
}

// unitKind keeps metric label cardinality bounded.
func unitKind(unit string) string {
	switch {
	case unit == "courses", unit == "rewards":
		return unit
	case strings.HasPrefix(unit, "course "):
		return "tasks"
	default:
		return "questions"
	}
}
