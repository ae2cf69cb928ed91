package engagement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codequest-app/codequest/internal/app/engagement"
	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/lock"
	"github.com/codequest-app/codequest/internal/infra/sqlite"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// testDB creates a temporary SQLite database with one profile for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.EnsureProfile(context.Background(), "u1"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	return db
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLevelForXP_Boundaries(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{209, 2},
		{210, 3}, // 100 + 110
		{330, 3},
		{331, 4}, // 100 + 110 + 121
		{-50, 1},
	}
	for _, tt := range tests {
		if got := engagement.LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestProgressInLevel_Zero(t *testing.T) {
	into, toNext := engagement.ProgressInLevel(0)
	if into != 0 || toNext != 100 {
		t.Errorf("ProgressInLevel(0) = (%d, %d), want (0, 100)", into, toNext)
	}
}

func TestProgressInLevel_Truncates(t *testing.T) {
	// Requirements: 100, 110, 121, 133 (133.1 truncated), 146 (146.3 truncated).
	want := []int64{100, 110, 121, 133, 146}
	for level, req := range want {
		start := engagement.XPForLevel(level + 1)
		_, toNext := engagement.ProgressInLevel(start)
		if toNext != req {
			t.Errorf("level %d requirement = %d, want %d", level+1, toNext, req)
		}
	}
	if got := engagement.XPForLevel(5); got != 464 {
		t.Errorf("XPForLevel(5) = %d, want 464", got)
	}
}

func TestLevel_Properties(t *testing.T) {
	prev := 1
	for xp := int64(0); xp < 200_000; xp += 37 {
		level := engagement.LevelForXP(xp)
		if level < 1 {
			t.Fatalf("LevelForXP(%d) = %d < 1", xp, level)
		}
		if level < prev {
			t.Fatalf("LevelForXP not monotonic at %d: %d < %d", xp, level, prev)
		}
		prev = level

		into, toNext := engagement.ProgressInLevel(xp)
		if into < 0 || into >= toNext {
			t.Fatalf("ProgressInLevel(%d) = (%d, %d) violates 0 <= into < toNext", xp, into, toNext)
		}
		state := engagement.StateForXP(xp)
		if state.Level != level || state.XPIntoLevel != into || state.XPToNextLevel != toNext {
			t.Fatalf("StateForXP(%d) = %+v disagrees with LevelForXP/ProgressInLevel", xp, state)
		}
		if engagement.XPForLevel(level)+into != xp {
			t.Fatalf("XPForLevel(%d)+%d != %d", level, into, xp)
		}
	}
}

func TestProgressPct(t *testing.T) {
	if got := engagement.ProgressPct(0); got != 0 {
		t.Errorf("ProgressPct(0) = %d, want 0", got)
	}
	if got := engagement.ProgressPct(50); got != 50 {
		t.Errorf("ProgressPct(50) = %d, want 50", got)
	}
	if got := engagement.ProgressPct(155); got != 50 { // 55 of 110
		t.Errorf("ProgressPct(155) = %d, want 50", got)
	}
}

func TestLevel_AddXP(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewLevelService(db)
	ctx := context.Background()

	state, up, err := svc.AddXP(ctx, "u1", 150, domain.XPTaskCompleted)
	if err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	if !up {
		t.Error("expected level up at 150 XP")
	}
	if state.Level != 2 || state.XPIntoLevel != 50 || state.XPToNextLevel != 110 {
		t.Errorf("state = %+v, want level 2, 50/110", state)
	}
}

func TestLevel_AddXP_NoLevelUp(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewLevelService(db)

	_, up, err := svc.AddXP(context.Background(), "u1", 10, domain.XPTaskCompleted)
	if err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	if up {
		t.Error("10 XP should not level up")
	}
}

func TestLevel_AddXP_RejectsNonPositive(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewLevelService(db)
	if _, _, err := svc.AddXP(context.Background(), "u1", 0, domain.XPTaskCompleted); err == nil {
		t.Error("AddXP(0) should fail")
	}
}

func TestLevel_Current(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewLevelService(db)
	ctx := context.Background()

	state, err := svc.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if state.Level != 1 || state.XPToNextLevel != 100 {
		t.Errorf("fresh state = %+v", state)
	}

	if _, err := svc.Current(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Current(ghost) error = %v, want ErrUserNotFound", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNextStreak_Transitions(t *testing.T) {
	day := time.Date(2025, 7, 10, 15, 0, 0, 0, time.UTC)
	last := time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		in    domain.Streak
		today time.Time
		want  int
		tr    engagement.Transition
	}{
		{"first activity", domain.Streak{}, day, 1, engagement.StreakStarted},
		{"same day", domain.Streak{Current: 4, LastActivity: day}, day.Add(3 * time.Hour), 4, engagement.StreakUnchanged},
		{"next day", domain.Streak{Current: 4, LastActivity: last}, day, 5, engagement.StreakExtended},
		{"two day gap", domain.Streak{Current: 4, LastActivity: last}, day.AddDate(0, 0, 1), engagement.ResetValue, engagement.StreakReset},
		{"long gap", domain.Streak{Current: 40, LastActivity: last}, day.AddDate(0, 2, 0), engagement.ResetValue, engagement.StreakReset},
		{"clock skew", domain.Streak{Current: 4, LastActivity: day}, last, 4, engagement.StreakUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tr := engagement.NextStreak(tt.in, tt.today)
			if got.Current != tt.want {
				t.Errorf("Current = %d, want %d", got.Current, tt.want)
			}
			if tr != tt.tr {
				t.Errorf("transition = %s, want %s", tr, tt.tr)
			}
		})
	}
}

func TestNextStreak_ResetValueIsOne(t *testing.T) {
	last := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for gap := 2; gap < 30; gap++ {
		s, tr := engagement.NextStreak(domain.Streak{Current: 9, LastActivity: last}, last.AddDate(0, 0, gap))
		if s.Current != 1 || tr != engagement.StreakReset {
			t.Fatalf("gap %d: streak = %d (%s), want 1 (reset)", gap, s.Current, tr)
		}
	}
}

func TestNextStreak_NeverMoreThanOnePerDay(t *testing.T) {
	s := domain.Streak{}
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		for h := 0; h < 24; h += 5 {
			s, _ = engagement.NextStreak(s, base.AddDate(0, 0, i).Add(time.Duration(h)*time.Hour))
		}
		if s.Current != i+1 {
			t.Fatalf("day %d: streak = %d, want %d", i, s.Current, i+1)
		}
	}
}

func TestDayGap_CrossesMonth(t *testing.T) {
	a := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 2, 1, 0, 1, 0, 0, time.UTC)
	if g := engagement.DayGap(a, b); g != 1 {
		t.Errorf("DayGap = %d, want 1", g)
	}
}

func TestStreak_ConsecutiveDays(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewStreakService(db)
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, _, err := svc.Record(ctx, "u1", base.AddDate(0, 0, i)); err != nil {
			t.Fatalf("record day %d: %v", i, err)
		}
	}

	streak, err := svc.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if streak.Current != 5 {
		t.Errorf("expected 5 consecutive, got %d", streak.Current)
	}
	if !streak.LastActivity.Equal(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastActivity = %v", streak.LastActivity)
	}
}

func TestStreak_BrokenKeepsLongest(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewStreakService(db)
	ctx := context.Background()

	day1 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.Record(ctx, "u1", day1)
	svc.Record(ctx, "u1", day1.AddDate(0, 0, 1))
	svc.Record(ctx, "u1", day1.AddDate(0, 0, 2))
	_, tr, _ := svc.Record(ctx, "u1", day1.AddDate(0, 0, 6))

	streak, _ := svc.Current(ctx, "u1")
	if tr != engagement.StreakReset || streak.Current != 1 {
		t.Errorf("expected reset to 1, got %d (%s)", streak.Current, tr)
	}
	if streak.Longest != 3 {
		t.Errorf("expected longest preserved at 3, got %d", streak.Longest)
	}
}

func TestStreak_SameDayIdempotent(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewStreakService(db)
	ctx := context.Background()

	day := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	svc.Record(ctx, "u1", day)
	svc.Record(ctx, "u1", day.Add(2*time.Hour))
	_, tr, _ := svc.Record(ctx, "u1", day.Add(5*time.Hour))

	streak, _ := svc.Current(ctx, "u1")
	if streak.Current != 1 || tr != engagement.StreakUnchanged {
		t.Errorf("expected 1 (idempotent), got %d (%s)", streak.Current, tr)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily Reward Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestCanCollectDaily(t *testing.T) {
	day := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	if !engagement.CanCollectDaily(time.Time{}, day) {
		t.Error("never opened should be collectable")
	}
	if engagement.CanCollectDaily(day, day.Add(10*time.Hour)) {
		t.Error("same day should not be collectable")
	}
	if !engagement.CanCollectDaily(day, day.AddDate(0, 0, 1)) {
		t.Error("next day should be collectable")
	}
}

func TestDaily_CollectOncePerDay(t *testing.T) {
	db := testDB(t)
	svc := engagement.NewDailyService(db, lock.NewMemory(), engagement.DailyReward{XP: 20, Points: 5})
	ctx := context.Background()
	day := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

	got, err := svc.Collect(ctx, "u1", day)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.XP != 20 || got.Points != 5 {
		t.Errorf("reward = %+v", got)
	}

	if _, err := svc.Collect(ctx, "u1", day.Add(time.Hour)); !errors.Is(err, engagement.ErrDailyCollected) {
		t.Errorf("second Collect error = %v, want ErrDailyCollected", err)
	}
	if _, err := svc.Collect(ctx, "u1", day.AddDate(0, 0, 1)); err != nil {
		t.Errorf("next-day Collect error = %v", err)
	}

	attrs, _ := db.Attributes(ctx, "u1")
	if attrs.XP != 40 || attrs.Points != 10 {
		t.Errorf("profile = %d xp / %d points, want 40 / 10", attrs.XP, attrs.Points)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Tracker Tests
// ═══════════════════════════════════════════════════════════════════════════

func newTracker(db *sqlite.DB) *engagement.Tracker {
	return engagement.NewTracker(db, db, lock.NewMemory(),
		engagement.TaskRewards{XPPerTier: 20, PointsPerTier: 10}, logger.Nop())
}

func TestTracker_FirstCompletion(t *testing.T) {
	db := testDB(t)
	tr := newTracker(db)
	ctx := context.Background()
	task := domain.Task{ID: "vars", Difficulty: domain.DifficultyIntermediate}
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	res, err := tr.Complete(ctx, "u1", task, day)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !res.First {
		t.Error("first completion not flagged")
	}
	// 20 * tier 2 * streak multiplier 1.05
	if res.XP != 42 {
		t.Errorf("XP = %d, want 42", res.XP)
	}
	if res.Points != 20 {
		t.Errorf("Points = %d, want 20", res.Points)
	}
	if res.Streak.Current != 1 || res.Transition != engagement.StreakStarted {
		t.Errorf("streak = %+v (%s)", res.Streak, res.Transition)
	}

	attrs, _ := db.Attributes(ctx, "u1")
	if attrs.XP != 42 || attrs.Points != 20 {
		t.Errorf("profile = %d xp / %d points", attrs.XP, attrs.Points)
	}
}

func TestTracker_RepeatCompletionCountsStreakOnly(t *testing.T) {
	db := testDB(t)
	tr := newTracker(db)
	ctx := context.Background()
	task := domain.Task{ID: "vars", Difficulty: domain.DifficultyBeginner}
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	tr.Complete(ctx, "u1", task, day)
	res, err := tr.Complete(ctx, "u1", task, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.First || res.XP != 0 || res.Points != 0 {
		t.Errorf("repeat result = %+v, want no XP/points", res)
	}
	if res.Streak.Current != 2 {
		t.Errorf("streak = %d, want 2", res.Streak.Current)
	}
	if res.Level.Level != 1 {
		t.Errorf("level = %d, want 1", res.Level.Level)
	}
}

func TestTracker_LevelUp(t *testing.T) {
	db := testDB(t)
	tr := newTracker(db)
	ctx := context.Background()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	// 20 * 5 * 1.05 = 105 -> level 2
	res, err := tr.Complete(ctx, "u1", domain.Task{ID: "boss", Difficulty: domain.DifficultyMaster}, day)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !res.LeveledUp || res.Level.Level != 2 {
		t.Errorf("result = %+v, want level-up to 2", res)
	}
}

// flakyXP fails the first AddXP call and passes everything else through.
type flakyXP struct {
	domain.ProfileStore
	failures int
}

func (f *flakyXP) AddXP(ctx context.Context, userID string, amount int64, source domain.XPSource) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("transient backend failure")
	}
	return f.ProfileStore.AddXP(ctx, userID, amount, source)
}

func TestTracker_FailedGrantIsRetriedAsFirst(t *testing.T) {
	db := testDB(t)
	profiles := &flakyXP{ProfileStore: db, failures: 1}
	tr := engagement.NewTracker(profiles, db, lock.NewMemory(),
		engagement.TaskRewards{XPPerTier: 20, PointsPerTier: 10}, logger.Nop())
	ctx := context.Background()
	task := domain.Task{ID: "vars", Difficulty: domain.DifficultyIntermediate}
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	if _, err := tr.Complete(ctx, "u1", task, day); err == nil {
		t.Fatal("expected the XP failure to surface")
	}
	attrs, _ := db.Attributes(ctx, "u1")
	if attrs.XP != 0 || attrs.Points != 0 {
		t.Errorf("after failure profile = %d xp / %d points, want nothing granted", attrs.XP, attrs.Points)
	}
	if done, _ := db.CompletedTasks(ctx, "u1"); len(done) != 0 {
		t.Errorf("completions after failure = %v, want none", done)
	}

	res, err := tr.Complete(ctx, "u1", task, day)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.First || res.XP != 42 || res.Points != 20 {
		t.Errorf("retry result = %+v, want first with 42 xp / 20 points", res)
	}
	attrs, _ = db.Attributes(ctx, "u1")
	if attrs.XP != 42 || attrs.Points != 20 {
		t.Errorf("after retry profile = %d xp / %d points, want 42 / 20", attrs.XP, attrs.Points)
	}
}
