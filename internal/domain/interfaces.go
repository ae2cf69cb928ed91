package domain

import (
	"context"
	"time"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// infra/sqlite and infra/backend implement them; app packages depend on them.

// ProfileStore reads and mutates the per-user profile.
type ProfileStore interface {
	// Attributes returns the profile, or ErrUserNotFound.
	Attributes(ctx context.Context, userID string) (UserAttributes, error)

	// AddPoints applies a signed delta and returns the new balance.
	// A delta that would take the balance below zero fails with ErrNegativeValue.
	AddPoints(ctx context.Context, userID string, delta int64, reference string) (int64, error)

	// AddXP adds a non-negative amount and returns the new total.
	AddXP(ctx context.Context, userID string, amount int64, source XPSource) (int64, error)

	// SaveStreak persists streak count and date together, never one without the other.
	SaveStreak(ctx context.Context, userID string, streak Streak) error

	// MarkDailyOpened records when the daily reward was collected.
	MarkDailyOpened(ctx context.Context, userID string, at time.Time) error
}

// RewardStore tracks which rewards a user has unlocked.
type RewardStore interface {
	UnlockedRewards(ctx context.Context, userID string) ([]string, error)
	UnlockReward(ctx context.Context, userID, rewardID string) error
}

// Locker serializes read-then-write sequences per user.
type Locker interface {
	// Lock blocks until the user's lock is held or ctx is done.
	// The returned func releases it.
	Lock(ctx context.Context, userID string) (func(), error)
}

// CompletionStore records which tasks a user has finished.
type CompletionStore interface {
	// RecordCompletion stores a completion and reports whether it was the first.
	RecordCompletion(ctx context.Context, userID, taskID string, at time.Time) (bool, error)
	CompletedTasks(ctx context.Context, userID string) ([]string, error)

	// RemoveCompletion deletes a completion so a retry counts as first again.
	// Removing a completion that does not exist is not an error.
	RemoveCompletion(ctx context.Context, userID, taskID string) error
}
