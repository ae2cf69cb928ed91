// Package domain: engagement types.
// The engagement core turns finished tasks into experience, levels, streaks
// and points. Level is always derived from XP, never stored beside it.
package domain

import "time"

// ─── Level / XP Types ───────────────────────────────────────────────────────

// LevelState is the level view derived from a cumulative XP total.
type LevelState struct {
	Level         int   `json:"level"`
	TotalXP       int64 `json:"total_xp"`
	XPIntoLevel   int64 `json:"xp_into_level"`
	XPToNextLevel int64 `json:"xp_to_next_level"`
}

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPTaskCompleted XPSource = "TASK_COMPLETED"
	XPDailyReward   XPSource = "DAILY_REWARD"
	XPStreakBonus   XPSource = "STREAK_BONUS"
)

// ─── Streak Types ───────────────────────────────────────────────────────────

// Streak tracks consecutive calendar days with at least one completed task.
// A zero LastActivity means the user has never completed a task.
type Streak struct {
	Current      int       `json:"current"`
	Longest      int       `json:"longest"`
	LastActivity time.Time `json:"last_activity"`
}

// Multiplier returns the XP multiplier for this streak.
// +5% per consecutive day, capped at +50%.
func (s Streak) Multiplier() float64 {
	bonus := float64(s.Current) * 0.05
	if bonus > 0.50 {
		bonus = 0.50
	}
	return 1.0 + bonus
}

// ─── Profile ────────────────────────────────────────────────────────────────

// UserAttributes is the per-user profile row the backend owns.
type UserAttributes struct {
	UserID        string    `json:"id"`
	Points        int64     `json:"points"`
	XP            int64     `json:"xp"`
	BellPeppers   int64     `json:"bell_peppers"`
	Streak        int       `json:"streak"`
	LongestStreak int       `json:"longest_streak"`
	LastTaskDate  time.Time `json:"last_task_date"`
	OpenedDailyAt time.Time `json:"opened_daily_at"`
}

// StreakState returns the streak portion of the profile.
func (u UserAttributes) StreakState() Streak {
	return Streak{
		Current:      u.Streak,
		Longest:      u.LongestStreak,
		LastActivity: u.LastTaskDate,
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerAccount names the balance a ledger entry moved.
type LedgerAccount string

const (
	AccountPoints LedgerAccount = "points"
	AccountXP     LedgerAccount = "xp"
)

// LedgerEntry is one movement of points or XP for a user.
type LedgerEntry struct {
	ID          int64         `json:"id"`
	UserID      string        `json:"user_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Account     LedgerAccount `json:"account"`
	Amount      int64         `json:"amount"` // signed
	Reference   string        `json:"reference,omitempty"`
	Description string        `json:"description,omitempty"`
	Balance     int64         `json:"balance"`
}

// ─── Rewards ────────────────────────────────────────────────────────────────

// Reward is a purchasable perk. Unlocked is per-user and derived, not part
// of the catalog entry.
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	IconRef     string `json:"icon,omitempty"`
	Unlocked    bool   `json:"unlocked"`
}

// ─── Casino ─────────────────────────────────────────────────────────────────

// Game identifies a casino minigame.
type Game string

const (
	GameCoinFlip  Game = "coin_flip"
	GameWheel     Game = "wheel"
	GameHorseRace Game = "horse_race"
)

// CasinoOutcome is the result of one settlement. It is never persisted
// beyond the ledger entry the settlement writes.
type CasinoOutcome struct {
	Game       Game    `json:"game"`
	Stake      int64   `json:"stake"`
	Awarded    int64   `json:"awarded"`
	Multiplier float64 `json:"multiplier"`
	Balance    int64   `json:"balance"`
}

// Net returns the points delta the outcome applied.
func (o CasinoOutcome) Net() int64 {
	return o.Awarded - o.Stake
}
