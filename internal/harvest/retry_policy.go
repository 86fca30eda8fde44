package harvest

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// RetryPolicy decides whether a fetch attempt is worth repeating and how
// long to wait before the next one.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// LinearBackoffPolicy retries transient failures up to MaxAttempts with a
// capped linear backoff. Backoff is a pure function of the attempt number so
// it can be verified without timers.
type LinearBackoffPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// NewLinearBackoffPolicy builds a policy with the crawl defaults.
func NewLinearBackoffPolicy() LinearBackoffPolicy {
	return LinearBackoffPolicy{
		MaxAttempts: 5,
		Base:        1500 * time.Millisecond,
		Cap:         8 * time.Second,
	}
}

// ShouldRetry reports whether attempt (1-based) should be followed by
// another. Context cancellation and content failures are never retried.
func (p LinearBackoffPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrEmptyTitle)
}

// Backoff returns min(Base*attempt, Cap) for the given 1-based attempt.
func (p LinearBackoffPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base * time.Duration(attempt)
	if delay > p.Cap {
		delay = p.Cap
	}
	return delay
}

// Jitter returns a uniformly random duration in [0, limit). It falls back to
// limit/2 if the random source fails.
func Jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
