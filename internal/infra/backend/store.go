package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
)

// Store adapts a Client to the domain store interfaces.
//
// Balance changes are read-modify-write against the profile row; callers
// serialize them per user with a domain.Locker.
type Store struct {
	c *Client
}

// NewStore wraps a client.
func NewStore(c *Client) *Store {
	return &Store{c: c}
}

// Attributes implements domain.ProfileStore.
func (s *Store) Attributes(ctx context.Context, userID string) (domain.UserAttributes, error) {
	return s.c.User(ctx, userID)
}

// AddPoints implements domain.ProfileStore.
func (s *Store) AddPoints(ctx context.Context, userID string, delta int64, reference string) (int64, error) {
	attrs, err := s.c.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	next := attrs.Points + delta
	if next < 0 {
		return attrs.Points, fmt.Errorf("%w: points %d%+d", domain.ErrNegativeValue, attrs.Points, delta)
	}
	if err := s.c.UpdateUser(ctx, userID, map[string]any{"points": next}); err != nil {
		return attrs.Points, err
	}
	s.c.log.Debug("points adjusted", "user_id", userID, "delta", delta, "balance", next, "reference", reference)
	return next, nil
}

// AddXP implements domain.ProfileStore.
func (s *Store) AddXP(ctx context.Context, userID string, amount int64, source domain.XPSource) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: xp amount %d", domain.ErrNegativeValue, amount)
	}
	attrs, err := s.c.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	next := attrs.XP + amount
	if err := s.c.UpdateUser(ctx, userID, map[string]any{"xp": next}); err != nil {
		return attrs.XP, err
	}
	s.c.log.Debug("xp added", "user_id", userID, "amount", amount, "total", next, "source", source)
	return next, nil
}

// SaveStreak implements domain.ProfileStore with one PATCH so the count
// and date never diverge.
func (s *Store) SaveStreak(ctx context.Context, userID string, st domain.Streak) error {
	patch := map[string]any{
		"streak":         st.Current,
		"longest_streak": st.Longest,
		"last_task_date": nil,
	}
	if !st.LastActivity.IsZero() {
		patch["last_task_date"] = st.LastActivity.UTC().Format(time.DateOnly)
	}
	return s.c.UpdateUser(ctx, userID, patch)
}

// MarkDailyOpened implements domain.ProfileStore.
func (s *Store) MarkDailyOpened(ctx context.Context, userID string, at time.Time) error {
	return s.c.UpdateUser(ctx, userID, map[string]any{"opened_daily_at": at.UTC().Format(time.RFC3339)})
}

// UnlockedRewards implements domain.RewardStore.
func (s *Store) UnlockedRewards(ctx context.Context, userID string) ([]string, error) {
	return s.c.UnlockedRewards(ctx, userID)
}

// UnlockReward implements domain.RewardStore.
func (s *Store) UnlockReward(ctx context.Context, userID, rewardID string) error {
	return s.c.UnlockReward(ctx, userID, rewardID)
}

// RecordCompletion implements domain.CompletionStore.
func (s *Store) RecordCompletion(ctx context.Context, userID, taskID string, at time.Time) (bool, error) {
	return s.c.RecordCompletion(ctx, userID, taskID, at)
}

// RemoveCompletion implements domain.CompletionStore.
func (s *Store) RemoveCompletion(ctx context.Context, userID, taskID string) error {
	return s.c.RemoveCompletion(ctx, userID, taskID)
}

// CompletedTasks implements domain.CompletionStore.
func (s *Store) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	return s.c.CompletedTasks(ctx, userID)
}

var (
	_ domain.ProfileStore    = (*Store)(nil)
	_ domain.RewardStore     = (*Store)(nil)
	_ domain.CompletionStore = (*Store)(nil)
)
