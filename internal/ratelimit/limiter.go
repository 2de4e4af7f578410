// Package ratelimit throttles the public verification endpoint per client IP.
package ratelimit

import (
	"context"
	"time"
)

// Result reports a single rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before retrying. Zero
	// when the request was allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
