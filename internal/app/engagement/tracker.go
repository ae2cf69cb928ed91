package engagement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// undoTimeout bounds the rollback of a partially granted completion.
const undoTimeout = 10 * time.Second

// TaskRewards configures what a first completion grants per difficulty tier.
type TaskRewards struct {
	XPPerTier     int64
	PointsPerTier int64
}

// TaskResult summarizes one completed task.
type TaskResult struct {
	TaskID     string            `json:"task_id"`
	First      bool              `json:"first"`
	XP         int64             `json:"xp_awarded"`
	Points     int64             `json:"points_awarded"`
	Level      domain.LevelState `json:"level"`
	LeveledUp  bool              `json:"leveled_up"`
	Streak     domain.Streak     `json:"streak"`
	Transition Transition        `json:"streak_transition"`
}

// Tracker turns task completions into XP, points and streak updates.
type Tracker struct {
	profiles    domain.ProfileStore
	completions domain.CompletionStore
	locker      domain.Locker
	streaks     *StreakService
	levels      *LevelService
	rewards     TaskRewards
	log         *logger.Logger
}

// NewTracker creates a tracker.
func NewTracker(profiles domain.ProfileStore, completions domain.CompletionStore, locker domain.Locker, rewards TaskRewards, log *logger.Logger) *Tracker {
	return &Tracker{
		profiles:    profiles,
		completions: completions,
		locker:      locker,
		streaks:     NewStreakService(profiles),
		levels:      NewLevelService(profiles),
		rewards:     rewards,
		log:         log,
	}
}

// TaskXP returns the XP a first completion of task grants at streak s.
func (t *Tracker) TaskXP(task domain.Task, s domain.Streak) int64 {
	base := t.rewards.XPPerTier * int64(tier(task.Difficulty))
	return int64(float64(base) * s.Multiplier())
}

// Complete records that userID finished task on day.
//
// Every completion counts toward the streak; only the first completion of
// a task grants XP and points. If a first completion cannot be fully
// granted, the points already granted are taken back and the completion
// is removed, so a retry is first again.
func (t *Tracker) Complete(ctx context.Context, userID string, task domain.Task, day time.Time) (TaskResult, error) {
	unlock, err := t.locker.Lock(ctx, userID)
	if err != nil {
		return TaskResult{}, err
	}
	defer unlock()

	res := TaskResult{TaskID: task.ID}

	first, err := t.completions.RecordCompletion(ctx, userID, task.ID, day)
	if err != nil {
		return res, fmt.Errorf("record completion: %w", err)
	}
	res.First = first

	if err := t.grant(ctx, userID, task, day, &res); err != nil {
		if first {
			err = t.undo(ctx, userID, task, res.Points, err)
		}
		return TaskResult{TaskID: task.ID}, err
	}

	metrics.TasksCompleted.WithLabelValues(strconv.FormatBool(first)).Inc()
	metrics.StreakTransitions.WithLabelValues(string(res.Transition)).Inc()
	if res.XP > 0 {
		metrics.XPAwarded.WithLabelValues(string(domain.XPTaskCompleted)).Add(float64(res.XP))
	}
	if res.LeveledUp {
		metrics.LevelUps.Inc()
		t.log.Info("level up", "user_id", userID, "level", res.Level.Level)
	}
	t.log.Debug("task completed",
		"user_id", userID, "task", task.ID, "first", first,
		"xp", res.XP, "streak", res.Streak.Current, "transition", res.Transition)
	return res, nil
}

// grant advances the streak and applies the first-completion rewards.
// Points go before XP: points can be taken back, XP never decreases.
// res.Points is left non-zero only once the points are applied.
func (t *Tracker) grant(ctx context.Context, userID string, task domain.Task, day time.Time, res *TaskResult) error {
	streak, tr, err := t.streaks.Record(ctx, userID, day)
	if err != nil {
		return err
	}
	res.Streak, res.Transition = streak, tr

	if !res.First {
		state, err := t.levels.Current(ctx, userID)
		if err != nil {
			return err
		}
		res.Level = state
		return nil
	}

	if points := t.rewards.PointsPerTier * int64(tier(task.Difficulty)); points > 0 {
		if _, err := t.profiles.AddPoints(ctx, userID, points, "task:"+task.ID); err != nil {
			return fmt.Errorf("grant task points: %w", err)
		}
		res.Points = points
	}

	xp := t.TaskXP(task, streak)
	if xp <= 0 {
		state, err := t.levels.Current(ctx, userID)
		if err != nil {
			return err
		}
		res.Level = state
		return nil
	}
	state, up, err := t.levels.AddXP(ctx, userID, xp, domain.XPTaskCompleted)
	if err != nil {
		return err
	}
	res.XP, res.Level, res.LeveledUp = xp, state, up
	return nil
}

// undo reverses a partially granted first completion. It runs detached from
// ctx so a cancelled request still cleans up.
func (t *Tracker) undo(ctx context.Context, userID string, task domain.Task, points int64, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), undoTimeout)
	defer cancel()

	var errs []error
	if points > 0 {
		if _, err := t.profiles.AddPoints(ctx, userID, -points, "task:"+task.ID+":undo"); err != nil {
			errs = append(errs, fmt.Errorf("take back points: %w", err))
		}
	}
	if err := t.completions.RemoveCompletion(ctx, userID, task.ID); err != nil {
		errs = append(errs, fmt.Errorf("remove completion: %w", err))
	}
	if len(errs) > 0 {
		t.log.Error("task completion undo failed", "user_id", userID, "task", task.ID, "error", cause, "undo_errors", errors.Join(errs...))
		return errors.Join(append([]error{cause}, errs...)...)
	}
	t.log.Warn("task completion rolled back", "user_id", userID, "task", task.ID, "error", cause)
	return cause
}

func tier(d domain.Difficulty) int {
	if d < domain.DifficultyBeginner || d > domain.DifficultyMaster {
		return int(domain.DifficultyBeginner)
	}
	return int(d)
}
