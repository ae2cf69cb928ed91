package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codequest-app/codequest/internal/domain"
)

// ─── Profiles ───────────────────────────────────────────────────────────────

// EnsureProfile creates an empty profile for userID if none exists.
// Returns true when a new row was inserted.
func (d *DB) EnsureProfile(ctx context.Context, userID string) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (user_id, created_at) VALUES (?, ?)`,
		userID, d.now().Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Attributes implements domain.ProfileStore.
func (d *DB) Attributes(ctx context.Context, userID string) (domain.UserAttributes, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT user_id, points, xp, bell_peppers, streak, longest_streak, last_task_date, opened_daily_at
		 FROM profiles WHERE user_id = ?`, userID,
	)
	return scanProfile(row)
}

// AddPoints implements domain.ProfileStore. Balance and journal row are
// written in one transaction.
func (d *DB) AddPoints(ctx context.Context, userID string, delta int64, reference string) (int64, error) {
	return d.adjust(ctx, userID, domain.AccountPoints, delta, reference, "")
}

// AddXP implements domain.ProfileStore.
func (d *DB) AddXP(ctx context.Context, userID string, amount int64, source domain.XPSource) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("xp amount must be non-negative, got %d", amount)
	}
	return d.adjust(ctx, userID, domain.AccountXP, amount, "", string(source))
}

// SaveStreak implements domain.ProfileStore. Count, longest and date land
// in a single UPDATE.
func (d *DB) SaveStreak(ctx context.Context, userID string, s domain.Streak) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE profiles SET streak = ?, longest_streak = ?, last_task_date = ? WHERE user_id = ?`,
		s.Current, s.Longest, nullableUnix(s.LastActivity), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// MarkDailyOpened implements domain.ProfileStore.
func (d *DB) MarkDailyOpened(ctx context.Context, userID string, at time.Time) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE profiles SET opened_daily_at = ? WHERE user_id = ?`,
		nullableUnix(at), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (d *DB) adjust(ctx context.Context, userID string, account domain.LedgerAccount, delta int64, reference, description string) (int64, error) {
	column := "points"
	if account == domain.AccountXP {
		column = "xp"
	}

	var balance int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT `+column+` FROM profiles WHERE user_id = ?`, userID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		balance = current + delta
		if balance < 0 {
			return fmt.Errorf("%w: %s %d%+d", domain.ErrNegativeValue, column, current, delta)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET `+column+` = ? WHERE user_id = ?`, balance, userID,
		); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger (user_id, timestamp, account, amount, reference, description, balance)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, d.now().Unix(), string(account), delta,
			nullStr(reference), nullStr(description), balance,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerEntries returns the most recent journal rows for a user and account.
func (d *DB) LedgerEntries(ctx context.Context, userID string, account domain.LedgerAccount, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp, account, amount, reference, description, balance
		 FROM ledger WHERE user_id = ? AND account = ? ORDER BY id DESC LIMIT ?`,
		userID, string(account), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts int64
		var ref, desc sql.NullString
		err := rows.Scan(&e.ID, &e.UserID, &ts, &e.Account, &e.Amount, &ref, &desc, &e.Balance)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Reference = ref.String
		e.Description = desc.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanProfile(s scanner) (domain.UserAttributes, error) {
	var u domain.UserAttributes
	var lastTask, opened sql.NullInt64
	err := s.Scan(&u.UserID, &u.Points, &u.XP, &u.BellPeppers,
		&u.Streak, &u.LongestStreak, &lastTask, &opened)
	if errors.Is(err, sql.ErrNoRows) {
		return u, domain.ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	u.LastTaskDate = fromNullableUnix(lastTask)
	u.OpenedDailyAt = fromNullableUnix(opened)
	return u, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
