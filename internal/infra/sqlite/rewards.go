package sqlite

import (
	"context"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
)

// ─── Rewards ────────────────────────────────────────────────────────────────

// UnlockedRewards implements domain.RewardStore.
func (d *DB) UnlockedRewards(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT reward_id FROM user_rewards WHERE user_id = ? ORDER BY unlocked_at ASC, reward_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockReward implements domain.RewardStore. Unlocking twice fails with
// ErrRewardUnlocked.
func (d *DB) UnlockReward(ctx context.Context, userID, rewardID string) error {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_rewards (user_id, reward_id, unlocked_at) VALUES (?, ?, ?)`,
		userID, rewardID, d.now().Unix(),
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrRewardUnlocked
	}
	return nil
}

// ─── Task Completions ───────────────────────────────────────────────────────

// RecordCompletion implements domain.CompletionStore.
func (d *DB) RecordCompletion(ctx context.Context, userID, taskID string, at time.Time) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_completions (user_id, task_id, first_at, last_at, count)
		 VALUES (?, ?, ?, ?, 1)`,
		userID, taskID, at.Unix(), at.Unix(),
	)
	if err != nil {
		return false, err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return true, nil
	}

	_, err = d.db.ExecContext(ctx,
		`UPDATE task_completions SET count = count + 1, last_at = ? WHERE user_id = ? AND task_id = ?`,
		at.Unix(), userID, taskID,
	)
	return false, err
}

// RemoveCompletion implements domain.CompletionStore.
func (d *DB) RemoveCompletion(ctx context.Context, userID, taskID string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM task_completions WHERE user_id = ? AND task_id = ?`,
		userID, taskID,
	)
	return err
}

// CompletedTasks implements domain.CompletionStore.
func (d *DB) CompletedTasks(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT task_id FROM task_completions WHERE user_id = ? ORDER BY first_at ASC, task_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Interface checks.
var (
	_ domain.ProfileStore    = (*DB)(nil)
	_ domain.RewardStore     = (*DB)(nil)
	_ domain.CompletionStore = (*DB)(nil)
)
