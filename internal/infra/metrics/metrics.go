// Package metrics provides Prometheus metrics for codequest.
// Counters and gauges for task completion, XP, streaks, the reward shop,
// casino settlements, content loading and backend calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engagement ─────────────────────────────────────────────────────────────

// TasksCompleted tracks task completions; first marks the first completion
// of a task by a user ("true"/"false").
var TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "tasks_completed_total",
	Help:      "Total completed tasks.",
}, []string{"first"})

// XPAwarded tracks XP granted by source.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"source"})

// LevelUps tracks level-up events.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "level_ups_total",
	Help:      "Total level-up events.",
})

// StreakTransitions tracks streak state changes by kind.
var StreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "streak_transitions_total",
	Help:      "Streak transitions (started, unchanged, extended, reset).",
}, []string{"transition"})

// DailyRewardsCollected tracks daily reward collections.
var DailyRewardsCollected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "daily_rewards_collected_total",
	Help:      "Total daily rewards collected.",
})

// ─── Shop ───────────────────────────────────────────────────────────────────

// Purchases tracks reward purchase attempts by result.
var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "reward_purchases_total",
	Help:      "Reward purchase attempts by result.",
}, []string{"result"})

// PurchaseRollbacks tracks compensating refunds; outcome is "ok" or "failed".
var PurchaseRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "reward_purchase_rollbacks_total",
	Help:      "Compensating point refunds after a failed unlock.",
}, []string{"outcome"})

// ─── Casino ─────────────────────────────────────────────────────────────────

// CasinoSettlements tracks settlements per game.
var CasinoSettlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "casino_settlements_total",
	Help:      "Total casino settlements per game.",
}, []string{"game"})

// CasinoNetPoints tracks the net points moved by the casino per game.
var CasinoNetPoints = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "codequest",
	Name:      "casino_net_points",
	Help:      "Running sum of points won (positive) or lost (negative) per game.",
}, []string{"game"})

// ─── Content ────────────────────────────────────────────────────────────────

// ContentLoadFailures tracks content units that failed to load.
// reason is "missing" or "malformed".
var ContentLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "content_load_failures_total",
	Help:      "Content units that were missing or malformed.",
}, []string{"unit", "reason"})

// ─── Backend ────────────────────────────────────────────────────────────────

// BackendRequests tracks backend REST calls by operation and status class.
var BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "backend_requests_total",
	Help:      "Backend REST calls by operation and result.",
}, []string{"op", "result"})

// BackendLatency tracks backend REST call duration in seconds.
var BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "codequest",
	Name:      "backend_latency_seconds",
	Help:      "Backend REST call duration in seconds.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"op"})

// SessionsExpired tracks forced logouts after a JWT expiry signal.
var SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "codequest",
	Name:      "sessions_expired_total",
	Help:      "Sessions cleared because the backend reported JWT expired.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "codequest",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
