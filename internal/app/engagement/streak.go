// Package engagement implements the codequest engagement engine:
// levels derived from XP, daily streaks, daily rewards and task completion.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
)

// Transition names what a recorded activity did to a streak.
type Transition string

const (
	StreakStarted   Transition = "started"
	StreakUnchanged Transition = "unchanged"
	StreakExtended  Transition = "extended"
	StreakReset     Transition = "reset"
)

// ResetValue is the streak a user holds after a gap of two or more days.
// The activity that ends the gap counts, so the new streak is 1.
const ResetValue = 1

// civil reduces t to its calendar date at UTC midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayGap returns the number of calendar days from last to today.
func DayGap(last, today time.Time) int {
	return int(civil(today).Sub(civil(last)).Hours() / 24)
}

// NextStreak applies one activity on day today to s.
//
// No prior activity starts the streak at 1. Same day is a no-op. The next
// day extends by exactly one. A gap of two or more days resets to
// ResetValue. A today earlier than the last activity (clock skew) is
// treated as the same day.
func NextStreak(s domain.Streak, today time.Time) (domain.Streak, Transition) {
	day := civil(today)

	if s.LastActivity.IsZero() {
		s.Current = 1
		s.LastActivity = day
		s.Longest = max(s.Longest, s.Current)
		return s, StreakStarted
	}

	gap := DayGap(s.LastActivity, day)
	switch {
	case gap <= 0:
		return s, StreakUnchanged
	case gap == 1:
		s.Current++
		s.LastActivity = day
		s.Longest = max(s.Longest, s.Current)
		return s, StreakExtended
	default:
		s.Current = ResetValue
		s.LastActivity = day
		s.Longest = max(s.Longest, s.Current)
		return s, StreakReset
	}
}

// StreakService records activity days against the profile store.
type StreakService struct {
	store domain.ProfileStore
}

// NewStreakService creates a streak service.
func NewStreakService(store domain.ProfileStore) *StreakService {
	return &StreakService{store: store}
}

// Current loads the user's streak.
func (s *StreakService) Current(ctx context.Context, userID string) (domain.Streak, error) {
	attrs, err := s.store.Attributes(ctx, userID)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("get streak: %w", err)
	}
	return attrs.StreakState(), nil
}

// Record applies an activity on day and persists the result when it changed.
// Count and date are written in a single store call.
func (s *StreakService) Record(ctx context.Context, userID string, day time.Time) (domain.Streak, Transition, error) {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return domain.Streak{}, "", err
	}

	next, tr := NextStreak(current, day)
	if tr == StreakUnchanged {
		return next, tr, nil
	}
	if err := s.store.SaveStreak(ctx, userID, next); err != nil {
		return current, "", fmt.Errorf("save streak: %w", err)
	}
	return next, tr, nil
}
