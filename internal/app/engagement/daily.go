package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
)

// DailyReward is what collecting the once-per-day chest grants.
type DailyReward struct {
	XP     int64 `json:"xp"`
	Points int64 `json:"points"`
}

// ErrDailyCollected is returned when the reward was already collected today.
var ErrDailyCollected = errors.New("daily reward already collected today")

// CanCollectDaily reports whether a reward last opened at openedAt can be
// collected on day today. Never-opened rewards are always collectable.
func CanCollectDaily(openedAt, today time.Time) bool {
	if openedAt.IsZero() {
		return true
	}
	return DayGap(openedAt, today) >= 1
}

// DailyService grants the daily reward at most once per calendar day.
type DailyService struct {
	store  domain.ProfileStore
	locker domain.Locker
	reward DailyReward
}

// NewDailyService creates a daily reward service.
func NewDailyService(store domain.ProfileStore, locker domain.Locker, reward DailyReward) *DailyService {
	return &DailyService{store: store, locker: locker, reward: reward}
}

// Collect grants the daily reward for day. The profile's opened-at stamp is
// written last so a failure part-way leaves the reward collectable.
func (d *DailyService) Collect(ctx context.Context, userID string, day time.Time) (DailyReward, error) {
	unlock, err := d.locker.Lock(ctx, userID)
	if err != nil {
		return DailyReward{}, err
	}
	defer unlock()

	attrs, err := d.store.Attributes(ctx, userID)
	if err != nil {
		return DailyReward{}, err
	}
	if !CanCollectDaily(attrs.OpenedDailyAt, day) {
		return DailyReward{}, ErrDailyCollected
	}

	if d.reward.XP > 0 {
		if _, err := d.store.AddXP(ctx, userID, d.reward.XP, domain.XPDailyReward); err != nil {
			return DailyReward{}, fmt.Errorf("grant daily xp: %w", err)
		}
	}
	if d.reward.Points > 0 {
		if _, err := d.store.AddPoints(ctx, userID, d.reward.Points, "daily"); err != nil {
			return DailyReward{}, fmt.Errorf("grant daily points: %w", err)
		}
	}
	if err := d.store.MarkDailyOpened(ctx, userID, day); err != nil {
		return DailyReward{}, fmt.Errorf("mark daily opened: %w", err)
	}
	metrics.DailyRewardsCollected.Inc()
	metrics.XPAwarded.WithLabelValues(string(domain.XPDailyReward)).Add(float64(d.reward.XP))
	return d.reward, nil
}
