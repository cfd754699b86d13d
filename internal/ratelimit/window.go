// Package ratelimit implements the hourly sliding-window limiter that backs
// the admission controller's secondary gate. The window state lives behind the
// Store interface so the per-process implementation can be swapped for a
// shared redis window without touching callers.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Result reports one sliding-window decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the wait until the oldest tracked request leaves the
	// window. Zero when allowed.
	RetryAfter time.Duration
	ResetTime  time.Time
}

// Store tracks request timestamps per key inside a rolling window.
type Store interface {
	// Take records one request under key if fewer than limit requests are
	// inside the window ending at now, and reports the decision either way.
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// KeyForTenant builds the window key for an authenticated tenant.
func KeyForTenant(id snowflake.ID) string { return fmt.Sprintf("user:%s", id) }

// KeyForIP builds the window key for an unauthenticated caller.
func KeyForIP(addr string) string { return fmt.Sprintf("ip:%s", addr) }
