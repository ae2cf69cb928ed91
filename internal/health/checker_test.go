package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeContent struct {
	problems []content.Problem
	reloads  int
}

func (f *fakeContent) Check() []content.Problem { return f.problems }
func (f *fakeContent) Reload() error {
	f.reloads++
	return nil
}

type fakeBackend struct{ err error }

func (f fakeBackend) Ping(context.Context) error { return f.err }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker_SkipsNilDeps(t *testing.T) {
	c := NewChecker(Deps{DB: newTestDB(t)})
	if len(c.checks) != 1 {
		t.Errorf("checks = %d, want 1", len(c.checks))
	}

	c = NewChecker(Deps{DB: newTestDB(t), Content: &fakeContent{}, ContentDir: t.TempDir(), Backend: fakeBackend{}})
	if len(c.checks) != 4 {
		t.Errorf("checks = %d, want 4", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(Deps{DB: newTestDB(t), Content: &fakeContent{}, ContentDir: t.TempDir(), Backend: fakeBackend{}})
	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 4 {
		t.Fatalf("Statuses() = %d, want 4", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(Deps{DB: newTestDB(t)})

	// Before any run, there are no statuses, so IsHealthy returns true
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_ContentProblemsTriggerReload(t *testing.T) {
	fc := &fakeContent{problems: []content.Problem{
		{Unit: "course go tasks", Resource: "go_tasks", Reason: "missing"},
		{Unit: "task t1 questions", Resource: "t1_questions", Reason: "malformed"},
	}}
	c := NewChecker(Deps{Content: fc})
	c.RunOnce(context.Background())

	s := c.Statuses()[0]
	if s.Healthy || !strings.Contains(s.Error, "2 content problems") || !strings.Contains(s.Error, "go_tasks") {
		t.Errorf("status = %+v", s)
	}
	if fc.reloads != 1 {
		t.Errorf("reloads = %d, want 1", fc.reloads)
	}
	if c.IsHealthy() {
		t.Error("IsHealthy() should be false")
	}
}

func TestChecker_BackendDown(t *testing.T) {
	c := NewChecker(Deps{Backend: fakeBackend{err: errors.New("connection refused")}})
	c.RunOnce(context.Background())

	s := c.Statuses()[0]
	if s.Name != "backend" || s.Healthy || s.Error != "connection refused" {
		t.Errorf("status = %+v", s)
	}
}

func TestChecker_ContentDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "content")
	os.WriteFile(file, []byte("not a dir"), 0644)

	for name, dir := range map[string]string{
		"missing": filepath.Join(t.TempDir(), "nonexistent"),
		"file":    file,
	} {
		c := NewChecker(Deps{ContentDir: dir})
		c.RunOnce(context.Background())
		if c.Statuses()[0].Healthy {
			t.Errorf("%s: content_dir should fail", name)
		}
	}
}

func TestChecker_CustomCheck(t *testing.T) {
	c := NewChecker(Deps{})
	c.checks = []Check{
		{
			Name: "always_fail",
			CheckFn: func(ctx context.Context) error {
				return os.ErrPermission
			},
		},
	}

	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(Deps{DB: newTestDB(t)})
	c.RunOnce(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	// Verify it's a copy, not the same slice
	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
