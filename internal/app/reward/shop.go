package reward

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Catalog supplies the purchasable rewards.
type Catalog interface {
	LoadRewards() ([]domain.Reward, error)
}

// Receipt describes a completed purchase.
type Receipt struct {
	Reward    domain.Reward `json:"reward"`
	Balance   int64         `json:"balance"`
	Reference string        `json:"reference"`
}

// PurchaseError is returned when unlocking a paid reward failed and the
// refund failed too. The user has been charged without the unlock.
type PurchaseError struct {
	UserID    string
	RewardID  string
	Cost      int64
	Reference string
	Unlock    error
	Refund    error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase %s for %s left %d points uncredited: unlock: %v; refund: %v",
		e.RewardID, e.UserID, e.Cost, e.Unlock, e.Refund)
}

// Unwrap exposes both failures to errors.Is and errors.As.
func (e *PurchaseError) Unwrap() []error {
	return []error{e.Unlock, e.Refund}
}

// Shop sells rewards for points.
type Shop struct {
	catalog  Catalog
	profiles domain.ProfileStore
	rewards  domain.RewardStore
	locker   domain.Locker
	log      *logger.Logger
}

// NewShop creates a shop.
func NewShop(catalog Catalog, profiles domain.ProfileStore, rewards domain.RewardStore, locker domain.Locker, log *logger.Logger) *Shop {
	return &Shop{
		catalog:  catalog,
		profiles: profiles,
		rewards:  rewards,
		locker:   locker,
		log:      log.With("component", "shop"),
	}
}

// List returns the catalog annotated with the user's unlocked rewards.
func (s *Shop) List(ctx context.Context, userID string) ([]domain.Reward, error) {
	all, err := s.catalog.LoadRewards()
	if err != nil {
		return nil, err
	}
	unlocked, err := s.rewards.UnlockedRewards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("unlocked rewards: %w", err)
	}
	return Annotate(all, unlocked), nil
}

// Purchase deducts the reward's cost and unlocks it for userID.
//
// The read-check-deduct-unlock sequence runs under the user's lock. If the
// unlock fails after the deduction the cost is refunded; if the refund
// fails as well a *PurchaseError carries both errors.
func (s *Shop) Purchase(ctx context.Context, userID, rewardID string) (Receipt, error) {
	reward, err := s.find(rewardID)
	if err != nil {
		metrics.Purchases.WithLabelValues("not_found").Inc()
		return Receipt{}, err
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	defer unlock()

	attrs, err := s.profiles.Attributes(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	unlocked, err := s.rewards.UnlockedRewards(ctx, userID)
	if err != nil {
		return Receipt{}, fmt.Errorf("unlocked rewards: %w", err)
	}
	if slices.Contains(unlocked, rewardID) {
		metrics.Purchases.WithLabelValues("already_unlocked").Inc()
		return Receipt{}, fmt.Errorf("%w: %s", domain.ErrRewardUnlocked, rewardID)
	}
	if !CanPurchase(reward, attrs.Points) {
		metrics.Purchases.WithLabelValues("insufficient").Inc()
		return Receipt{}, fmt.Errorf("%w: %s costs %d, have %d", domain.ErrInsufficientPoints, rewardID, reward.Cost, attrs.Points)
	}

	ref := "reward:" + rewardID + ":" + uuid.NewString()
	balance := attrs.Points
	if reward.Cost > 0 {
		balance, err = s.profiles.AddPoints(ctx, userID, -reward.Cost, ref)
		if errors.Is(err, domain.ErrNegativeValue) {
			metrics.Purchases.WithLabelValues("insufficient").Inc()
			return Receipt{}, fmt.Errorf("%w: %s", domain.ErrInsufficientPoints, rewardID)
		}
		if err != nil {
			metrics.Purchases.WithLabelValues("error").Inc()
			return Receipt{}, fmt.Errorf("deduct points: %w", err)
		}
	}

	if err := s.rewards.UnlockReward(ctx, userID, rewardID); err != nil {
		metrics.Purchases.WithLabelValues("error").Inc()
		return Receipt{}, s.rollback(ctx, userID, reward, ref, err)
	}

	metrics.Purchases.WithLabelValues("ok").Inc()
	s.log.Info("reward purchased", "user_id", userID, "reward", rewardID, "cost", reward.Cost, "balance", balance)

	reward.Unlocked = true
	return Receipt{Reward: reward, Balance: balance, Reference: ref}, nil
}

// refundTimeout bounds the compensating credit after a failed unlock.
const refundTimeout = 10 * time.Second

func (s *Shop) rollback(ctx context.Context, userID string, reward domain.Reward, ref string, unlockErr error) error {
	if reward.Cost == 0 {
		return fmt.Errorf("unlock %s: %w", reward.ID, unlockErr)
	}
	// The refund must outlive a cancelled request, or the user is charged
	// for nothing.
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()
	if _, err := s.profiles.AddPoints(refundCtx, userID, reward.Cost, ref+":refund"); err != nil {
		metrics.PurchaseRollbacks.WithLabelValues("failed").Inc()
		s.log.Error("purchase refund failed",
			"user_id", userID, "reward", reward.ID, "cost", reward.Cost,
			"unlock_error", unlockErr, "refund_error", err)
		return &PurchaseError{
			UserID:    userID,
			RewardID:  reward.ID,
			Cost:      reward.Cost,
			Reference: ref,
			Unlock:    unlockErr,
			Refund:    err,
		}
	}
	metrics.PurchaseRollbacks.WithLabelValues("ok").Inc()
	s.log.Warn("purchase rolled back", "user_id", userID, "reward", reward.ID, "error", unlockErr)
	return fmt.Errorf("unlock %s (points refunded): %w", reward.ID, unlockErr)
}

func (s *Shop) find(rewardID string) (domain.Reward, error) {
	all, err := s.catalog.LoadRewards()
	if err != nil {
		return domain.Reward{}, err
	}
	for _, r := range all {
		if r.ID == rewardID {
			return r, nil
		}
	}
	return domain.Reward{}, fmt.Errorf("%w: %s", domain.ErrRewardNotFound, rewardID)
}
