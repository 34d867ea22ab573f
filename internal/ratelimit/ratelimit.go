// Package ratelimit caps how often one caller may hit the write endpoints.
//
// Windows are sliding: a request counts against the limit for exactly Window
// after it was admitted, so bursts at a fixed-window boundary are not doubled.
package ratelimit

import (
	"context"
	"time"
)

// Class groups endpoints that share one budget per caller.
type Class string

const (
	// ClassPayment covers payment registration and minting.
	ClassPayment Class = "payment"
	// ClassInteract covers progression interactions.
	ClassInteract Class = "interact"
)

// Limit is a budget of Requests per sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result describes the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the oldest admitted request
// leaves the window, at least 1.
func (r *Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Store admits or rejects a request against key's window.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

func bucketKey(class Class, caller string) string {
	return string(class) + ":" + caller
}
