package ratelimit

import "context"

// RateLimiter throttles outbound gateway calls per delivery channel.
// Allow is a single non-blocking check; Wait blocks until a slot frees up
// or the context is cancelled.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
