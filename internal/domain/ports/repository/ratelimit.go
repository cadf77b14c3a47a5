package repository

import (
	"context"
	"time"
)

// RateInfo describes the outcome of a rate-limit check.
type RateInfo struct {
	Allowed      bool
	CurrentCount int
	Limit        int
	Remaining    int
	ResetAfter   time.Duration
	Subject      string
	Action       string

	// Err is set when the underlying store was unreachable and the gate
	// failed open. Deliberate: the limiter must not become a single
	// point of failure for the pipeline.
	Err error
}

// WindowInfo summarizes one live rate window for inspection.
type WindowInfo struct {
	Count         int
	OldestRequest time.Time
	NewestRequest time.Time
	Period        time.Duration
	ResetsAfter   time.Duration
}

// RateLimiter gates request admission with sliding windows per
// (subject, action).
type RateLimiter interface {
	// Check counts events for userID+action within the trailing period.
	// When under limit and increment is true, the current instant is
	// recorded. On store failure it returns (true, info) with info.Err set.
	Check(ctx context.Context, userID int64, action string, limit int, period time.Duration, increment bool) (bool, RateInfo)

	// CheckGlobal applies the same algorithm keyed only by action, for
	// system-wide caps independent of per-user quotas.
	CheckGlobal(ctx context.Context, action string, limit int, period time.Duration, increment bool) (bool, RateInfo)

	// Windows lists a user's live rate windows, keyed by action.
	Windows(ctx context.Context, userID int64) (map[string]WindowInfo, error)
}
