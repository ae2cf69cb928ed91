// Package health runs periodic checks over the store, the content bundles
// and the backend, and records the results.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is a store that can report connectivity.
type Pinger interface {
	Ping() error
}

// RemotePinger is a remote service that can report connectivity.
type RemotePinger interface {
	Ping(ctx context.Context) error
}

// ContentChecker reports content defects.
type ContentChecker interface {
	Check() []content.Problem
	Reload() error
}

// Deps selects the checks NewChecker installs. Nil fields are skipped.
type Deps struct {
	DB         Pinger
	Content    ContentChecker
	ContentDir string
	Backend    RemotePinger
	Log        *logger.Logger
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *logger.Logger
}

// NewChecker creates a health checker for the given dependencies.
func NewChecker(d Deps) *Checker {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	c := &Checker{interval: 60 * time.Second, log: log.With("component", "health")}

	if d.DB != nil {
		c.checks = append(c.checks, Check{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return d.DB.Ping()
			},
			RecoverFn: func(ctx context.Context) error {
				return nil // SQLite auto-recovers via WAL
			},
		})
	}
	if d.ContentDir != "" {
		c.checks = append(c.checks, Check{
			Name: "content_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDir(d.ContentDir)
			},
		})
	}
	if d.Content != nil {
		c.checks = append(c.checks, Check{
			Name: "content",
			CheckFn: func(ctx context.Context) error {
				return problemsErr(d.Content.Check())
			},
			RecoverFn: func(ctx context.Context) error {
				return d.Content.Reload() // picks up bundles fixed on disk
			},
		})
	}
	if d.Backend != nil {
		c.checks = append(c.checks, Check{
			Name: "backend",
			CheckFn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				return d.Backend.Ping(ctx)
			},
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and records the results.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.log.Warn("health check failed", "check", check.Name, "error", err)
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.Warn("health recovery failed", "check", check.Name, "error", rerr)
				}
			}
		} else {
			s.Healthy = true
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(boolGauge(s.Healthy))
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check content dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path %s is not a directory", dir)
	}
	return nil
}

func problemsErr(problems []content.Problem) error {
	switch len(problems) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("content problem: %s", problems[0])
	default:
		return fmt.Errorf("%d content problems, first: %s", len(problems), problems[0])
	}
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
