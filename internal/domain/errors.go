package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.

var (
	// Session errors
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired: JWT expired")

	// Profile errors
	ErrUserNotFound  = errors.New("user not found")
	ErrNegativeValue = errors.New("balance cannot go below zero")

	// Content errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrMalformedContent = errors.New("malformed content")
	ErrDuplicateTask    = errors.New("duplicate task id")

	// Reward errors
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRewardUnlocked     = errors.New("reward already unlocked")
	ErrInsufficientPoints = errors.New("insufficient points")

	// Casino errors
	ErrInvalidStake = errors.New("stake must be positive and covered by points")
	ErrUnknownGame  = errors.New("unknown casino game")

	// Lock errors
	ErrLockTimeout = errors.New("timed out waiting for user lock")
)
