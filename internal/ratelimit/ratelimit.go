// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit provides the shared token-bucket limiter the
// coordinator throttles task admission with.
// Implements: prd010-coordinator (R2);
//
//	docs/ARCHITECTURE § Rate Limiting.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultTokensPerSecond = 10

// Limiter grants cost-weighted admission tokens. Acquire suspends until
// the tokens are available or ctx is done. Implementations must be safe
// for concurrent use and must never double-grant the same tokens.
type Limiter interface {
	Acquire(ctx context.Context, cost int64) error
}

// TokenBucket is a refill-on-access token bucket. The zero value is not
// usable; construct with NewTokenBucket.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewTokenBucket returns a bucket that refills at ratePerSec tokens per
// second up to capacity. A non-positive capacity defaults to ratePerSec
// (minimum 1). The bucket starts full.
func NewTokenBucket(ratePerSec float64, capacity int64) (*TokenBucket, error) {
	if ratePerSec <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", ratePerSec)
	}
	cap := float64(capacity)
	if cap <= 0 {
		cap = ratePerSec
	}
	if cap < 1 {
		cap = 1
	}
	return &TokenBucket{
		capacity: cap,
		tokens:   cap,
		rate:     ratePerSec,
		last:     time.Now(),
	}, nil
}

// NewFromConfig builds a TokenBucket from config, applying the default
// refill rate when unset.
func NewFromConfig(cfg types.RateLimitConfig) (*TokenBucket, error) {
	rate := cfg.TokensPerSecond
	if rate <= 0 {
		rate = defaultTokensPerSecond
	}
	return NewTokenBucket(rate, cfg.Burst)
}

// Acquire blocks until cost tokens are available, then consumes them.
// A cost above the bucket capacity can never be satisfied and returns
// an error immediately. If ctx is done during the wait, Acquire returns
// ctx.Err() and consumes nothing.
func (b *TokenBucket) Acquire(ctx context.Context, cost int64) error {
	if cost <= 0 {
		cost = 1
	}
	need := float64(cost)

	b.mu.Lock()
	cap := b.capacity
	b.mu.Unlock()
	if need > cap {
		return fmt.Errorf("cost %d exceeds bucket capacity %v", cost, cap)
	}

	for {
		ok, wait := b.take(need)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// take refills the bucket and tries to consume need tokens. When the
// bucket is short it returns the duration until enough tokens will have
// accumulated.
func (b *TokenBucket) take(need float64) (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.last)
	if elapsed > 0 {
		b.tokens += b.rate * elapsed.Seconds()
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= need {
		b.tokens -= need
		return true, 0
	}

	short := need - b.tokens
	return false, time.Duration(short / b.rate * float64(time.Second))
}

// Tokens returns the current token balance after a refill. Intended for
// tests and diagnostics.
func (b *TokenBucket) Tokens() float64 {
	b.take(0)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
