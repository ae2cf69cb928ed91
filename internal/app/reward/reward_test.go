package reward_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/codequest-app/codequest/internal/app/reward"
	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/lock"
	"github.com/codequest-app/codequest/internal/infra/sqlite"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// Progress
// ═══════════════════════════════════════════════════════════════════════════

func TestPercentComplete(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, -4, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{5, 3, 100},
		{-1, 3, 0},
		{1, 200, 0},
	}
	for _, tt := range tests {
		if got := reward.PercentComplete(tt.done, tt.total); got != tt.want {
			t.Errorf("PercentComplete(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestPercentComplete_Bounds(t *testing.T) {
	for total := -2; total <= 25; total++ {
		for done := -2; done <= 30; done++ {
			got := reward.PercentComplete(done, total)
			if got < 0 || got > 100 {
				t.Fatalf("PercentComplete(%d, %d) = %d out of range", done, total, got)
			}
		}
	}
}

func TestCourseProgress(t *testing.T) {
	course := domain.Course{ID: "go", Tasks: []domain.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}}
	if got := reward.CourseProgress(course, []string{"a", "c", "other"}); got != 50 {
		t.Errorf("CourseProgress = %d, want 50", got)
	}
	if got := reward.CourseProgress(domain.Course{}, []string{"a"}); got != 0 {
		t.Errorf("empty course = %d, want 0", got)
	}
}

func TestCanPurchase(t *testing.T) {
	r := domain.Reward{ID: "r", Cost: 100}
	if !reward.CanPurchase(r, 100) || !reward.CanPurchase(r, 101) || reward.CanPurchase(r, 99) {
		t.Error("CanPurchase boundary")
	}
	if !reward.CanPurchase(domain.Reward{Cost: 0}, 0) {
		t.Error("free locked reward should be purchasable")
	}
	for _, pts := range []int64{0, 100, 1000} {
		if reward.CanPurchase(domain.Reward{ID: "r", Cost: 10, Unlocked: true}, pts) {
			t.Errorf("CanPurchase(unlocked, %d) = true, want false", pts)
		}
	}
	if reward.CanPurchase(domain.Reward{Cost: 0, Unlocked: true}, 0) {
		t.Error("unlocked free reward should not be purchasable")
	}
}

func TestAnnotate(t *testing.T) {
	in := []domain.Reward{{ID: "a"}, {ID: "b", Unlocked: true}}
	out := reward.Annotate(in, []string{"a"})
	if !out[0].Unlocked || out[1].Unlocked {
		t.Errorf("Annotate = %+v", out)
	}
	if in[0].Unlocked {
		t.Error("Annotate must not mutate its input")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Shop
// ═══════════════════════════════════════════════════════════════════════════

type staticCatalog []domain.Reward

func (c staticCatalog) LoadRewards() ([]domain.Reward, error) { return c, nil }

var rewards = staticCatalog{
	{ID: "theme", Title: "Theme", Cost: 150},
	{ID: "hat", Title: "Hat", Cost: 150},
	{ID: "badge", Title: "Badge", Cost: 0},
}

func testDB(t *testing.T, points int64) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if _, err := db.EnsureProfile(ctx, "u1"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	if points > 0 {
		if _, err := db.AddPoints(ctx, "u1", points, "seed"); err != nil {
			t.Fatalf("seed points: %v", err)
		}
	}
	return db
}

func points(t *testing.T, db *sqlite.DB) int64 {
	t.Helper()
	attrs, err := db.Attributes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	return attrs.Points
}

func TestShop_Purchase(t *testing.T) {
	db := testDB(t, 200)
	shop := reward.NewShop(rewards, db, db, lock.NewMemory(), logger.Nop())
	ctx := context.Background()

	receipt, err := shop.Purchase(ctx, "u1", "theme")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if receipt.Balance != 50 || !receipt.Reward.Unlocked || receipt.Reference == "" {
		t.Errorf("receipt = %+v", receipt)
	}
	if got := points(t, db); got != 50 {
		t.Errorf("points = %d, want 50", got)
	}

	list, err := shop.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !list[0].Unlocked || list[1].Unlocked {
		t.Errorf("List = %+v", list)
	}
}

func TestShop_PurchaseRejections(t *testing.T) {
	db := testDB(t, 200)
	shop := reward.NewShop(rewards, db, db, lock.NewMemory(), logger.Nop())
	ctx := context.Background()

	if _, err := shop.Purchase(ctx, "u1", "ghost"); !errors.Is(err, domain.ErrRewardNotFound) {
		t.Errorf("unknown reward err = %v", err)
	}
	if _, err := shop.Purchase(ctx, "u1", "theme"); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := shop.Purchase(ctx, "u1", "theme"); !errors.Is(err, domain.ErrRewardUnlocked) {
		t.Errorf("repeat purchase err = %v", err)
	}
	if _, err := shop.Purchase(ctx, "u1", "hat"); !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Errorf("insufficient err = %v", err)
	}
	if got := points(t, db); got != 50 {
		t.Errorf("points = %d, want 50 after rejected purchases", got)
	}

	// Free rewards never touch the balance.
	if r, err := shop.Purchase(ctx, "u1", "badge"); err != nil || r.Balance != 50 {
		t.Errorf("free purchase = %+v, %v", r, err)
	}
}

func TestShop_ConcurrentPurchasesNeverOverspend(t *testing.T) {
	db := testDB(t, 200)
	shop := reward.NewShop(rewards, db, db, lock.NewMemory(), logger.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"theme", "hat"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = shop.Purchase(context.Background(), "u1", id)
		}(i, id)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientPoints):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Errorf("ok=%d insufficient=%d, want exactly one of each", ok, short)
	}
	if got := points(t, db); got != 50 {
		t.Errorf("points = %d, want 50", got)
	}
}

// failingUnlock wraps a reward store whose unlock always fails.
type failingUnlock struct {
	domain.RewardStore
	err error
}

func (f failingUnlock) UnlockReward(context.Context, string, string) error { return f.err }

// failingRefund wraps a profile store that rejects positive adjustments.
type failingRefund struct {
	domain.ProfileStore
	err error
}

func (f failingRefund) AddPoints(ctx context.Context, userID string, delta int64, ref string) (int64, error) {
	if delta > 0 {
		return 0, f.err
	}
	return f.ProfileStore.AddPoints(ctx, userID, delta, ref)
}

func TestShop_UnlockFailureRefunds(t *testing.T) {
	db := testDB(t, 200)
	unlockErr := errors.New("backend unavailable")
	shop := reward.NewShop(rewards, db, failingUnlock{db, unlockErr}, lock.NewMemory(), logger.Nop())

	_, err := shop.Purchase(context.Background(), "u1", "theme")
	if !errors.Is(err, unlockErr) {
		t.Fatalf("err = %v, want unlock error", err)
	}
	var pe *reward.PurchaseError
	if errors.As(err, &pe) {
		t.Error("refund succeeded; no PurchaseError expected")
	}
	if got := points(t, db); got != 200 {
		t.Errorf("points = %d, want 200 after refund", got)
	}
	unlocked, _ := db.UnlockedRewards(context.Background(), "u1")
	if len(unlocked) != 0 {
		t.Errorf("unlocked = %v, want none", unlocked)
	}
}

func TestShop_DoubleFailure(t *testing.T) {
	db := testDB(t, 200)
	unlockErr := errors.New("unlock failed")
	refundErr := errors.New("refund failed")
	shop := reward.NewShop(rewards, failingRefund{db, refundErr}, failingUnlock{db, unlockErr}, lock.NewMemory(), logger.Nop())

	_, err := shop.Purchase(context.Background(), "u1", "theme")
	var pe *reward.PurchaseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PurchaseError", err)
	}
	if !errors.Is(err, unlockErr) || !errors.Is(err, refundErr) {
		t.Errorf("PurchaseError should wrap both failures: %v", err)
	}
	if pe.RewardID != "theme" || pe.Cost != 150 || pe.UserID != "u1" {
		t.Errorf("PurchaseError = %+v", pe)
	}
	if got := points(t, db); got != 50 {
		t.Errorf("points = %d, want 50 (charged, not refunded)", got)
	}
}

// cancellingUnlock cancels the request context and then fails the unlock,
// as a client hanging up mid-purchase would.
type cancellingUnlock struct {
	domain.RewardStore
	cancel context.CancelFunc
}

func (c cancellingUnlock) UnlockReward(ctx context.Context, _, _ string) error {
	c.cancel()
	return ctx.Err()
}

func TestShop_RefundSurvivesCancelledRequest(t *testing.T) {
	db := testDB(t, 200)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shop := reward.NewShop(rewards, db, cancellingUnlock{db, cancel}, lock.NewMemory(), logger.Nop())

	_, err := shop.Purchase(ctx, "u1", "hat")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled from the unlock", err)
	}
	var pe *reward.PurchaseError
	if errors.As(err, &pe) {
		t.Fatalf("refund failed: %v", pe)
	}
	if got := points(t, db); got != 200 {
		t.Errorf("points = %d, want 200 after refund", got)
	}
}
