package engagement

import (
	"context"
	"fmt"

	"github.com/codequest-app/codequest/internal/domain"
)

const (
	// BaseLevelXP is the XP needed to finish level 1.
	BaseLevelXP int64 = 100
	// LevelGrowth multiplies the requirement after each finished level.
	LevelGrowth = 1.1
)

// nextRequirement grows a level requirement by LevelGrowth, truncating.
// Truncation at every step fixes the level boundaries exactly; rounding
// would drift for large totals.
func nextRequirement(required int64) int64 {
	return int64(float64(required) * LevelGrowth)
}

// walkLevels consumes whole levels from totalXP and returns the reached
// level, the XP consumed by finished levels, and the requirement of the
// level in progress.
func walkLevels(totalXP int64) (level int, consumed, required int64) {
	if totalXP < 0 {
		totalXP = 0
	}
	level = 1
	required = BaseLevelXP
	for totalXP >= consumed+required {
		consumed += required
		level++
		required = nextRequirement(required)
	}
	return level, consumed, required
}

// LevelForXP returns the level for a cumulative XP total (>= 1).
func LevelForXP(totalXP int64) int {
	level, _, _ := walkLevels(totalXP)
	return level
}

// ProgressInLevel returns how far totalXP is into the current level and
// the size of that level. into < toNext always holds.
func ProgressInLevel(totalXP int64) (into, toNext int64) {
	_, consumed, required := walkLevels(totalXP)
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP - consumed, required
}

// XPForLevel returns the cumulative XP at which level starts.
func XPForLevel(level int) int64 {
	var total int64
	required := BaseLevelXP
	for l := 1; l < level; l++ {
		total += required
		required = nextRequirement(required)
	}
	return total
}

// StateForXP derives the full level view from a cumulative XP total.
func StateForXP(totalXP int64) domain.LevelState {
	if totalXP < 0 {
		totalXP = 0
	}
	level, consumed, required := walkLevels(totalXP)
	return domain.LevelState{
		Level:         level,
		TotalXP:       totalXP,
		XPIntoLevel:   totalXP - consumed,
		XPToNextLevel: required,
	}
}

// ProgressPct returns progress toward the next level (0–100).
func ProgressPct(totalXP int64) int {
	into, toNext := ProgressInLevel(totalXP)
	return int(into * 100 / toNext)
}

// LevelService reads XP from the profile store and derives levels.
// The level itself is never written anywhere.
type LevelService struct {
	store domain.ProfileStore
}

// NewLevelService creates a level service.
func NewLevelService(store domain.ProfileStore) *LevelService {
	return &LevelService{store: store}
}

// Current returns the user's derived level state.
func (l *LevelService) Current(ctx context.Context, userID string) (domain.LevelState, error) {
	attrs, err := l.store.Attributes(ctx, userID)
	if err != nil {
		return domain.LevelState{}, fmt.Errorf("get xp: %w", err)
	}
	return StateForXP(attrs.XP), nil
}

// AddXP adds experience points and returns (newState, leveledUp, error).
func (l *LevelService) AddXP(ctx context.Context, userID string, amount int64, source domain.XPSource) (domain.LevelState, bool, error) {
	if amount <= 0 {
		return domain.LevelState{}, false, fmt.Errorf("xp amount must be positive, got %d", amount)
	}

	total, err := l.store.AddXP(ctx, userID, amount, source)
	if err != nil {
		return domain.LevelState{}, false, fmt.Errorf("save xp: %w", err)
	}

	oldLevel := LevelForXP(total - amount)
	state := StateForXP(total)
	return state, state.Level > oldLevel, nil
}
