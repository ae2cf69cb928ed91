// Package api provides the HTTP server for codequest.
// It exposes the course catalog and the per-user engagement operations
// (task completion, levels, streaks, daily reward, reward shop, casino).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codequest-app/codequest/internal/app/casino"
	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/app/engagement"
	"github.com/codequest-app/codequest/internal/app/reward"
	"github.com/codequest-app/codequest/internal/app/session"
	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/health"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Services are the application services the API exposes.
type Services struct {
	Catalog     *content.Catalog
	Profiles    domain.ProfileStore
	Completions domain.CompletionStore
	Levels      *engagement.LevelService
	Streaks     *engagement.StreakService
	Daily       *engagement.DailyService
	Tracker     *engagement.Tracker
	Shop        *reward.Shop
	Casino      *casino.Table
	Sessions    *session.Manager // optional; sees every backend error
	Health      *health.Checker  // optional

	// Provision creates a missing profile on first use. Local mode only;
	// the remote backend owns its users.
	Provision func(ctx context.Context, userID string) (bool, error)
}

// Random is the source of casino draws.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Server is the codequest HTTP API server.
type Server struct {
	svc            Services
	log            *logger.Logger
	metricsEnabled bool
	requireToken   bool
	now            func() time.Time
	random         Random
}

// NewServer creates a new API server.
func NewServer(svc Services, log *logger.Logger) *Server {
	return &Server{
		svc:    svc,
		log:    log.With("component", "api"),
		now:    time.Now,
		random: globalRand{},
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// RequireToken makes user routes demand a bearer token. Used when the
// profile store is the remote backend, which authorizes with that token.
func (s *Server) RequireToken() { s.requireToken = true }

// SetClock overrides the server clock.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// SetRandom overrides the casino draw source.
func (s *Server) SetRandom(r Random) { s.random = r }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/courses", s.handleListCourses)
		r.Get("/courses/{courseID}", s.handleGetCourse)
		r.Get("/courses/{courseID}/tasks", s.handleListTasks)
		r.Get("/tasks/{taskID}/questions", s.handleListQuestions)
		r.Post("/tasks/{taskID}/questions/{questionID}/answer", s.handleAnswer)
		r.Get("/rewards", s.handleListRewards)
		r.Get("/images/{name}", s.handleImage)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Get("/profile", s.handleProfile)
			r.Get("/level", s.handleLevel)
			r.Get("/streak", s.handleStreak)
			r.Get("/courses/{courseID}/progress", s.handleCourseProgress)
			r.Post("/tasks/{taskID}/complete", s.handleCompleteTask)
			r.Post("/daily", s.handleDaily)
			r.Get("/rewards", s.handleUserRewards)
			r.Post("/rewards/{rewardID}/purchase", s.handlePurchase)
			r.Post("/casino/{game}", s.handleCasino)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.svc.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.svc.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    code,
		},
	})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// unchanged.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
