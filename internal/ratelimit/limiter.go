// Package ratelimit paces child process starts with a token bucket, so a
// parallel seed sweep does not bring every training process up at once.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use; a nil Limiter
// never blocks.
type Limiter struct {
	mu        sync.Mutex
	tokens    float64
	lastCheck time.Time
	rate      float64          // tokens per second
	burst     int              // max burst size (also initial token count)
	nowFunc   func() time.Time // injectable clock for testing
}

// NewLimiter creates a limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens:  float64(burst),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Every returns a limiter that allows one start immediately and then one
// per interval. A non-positive interval returns nil.
func Every(interval time.Duration) *Limiter {
	if interval <= 0 {
		return nil
	}
	return NewLimiter(1/interval.Seconds(), 1)
}

// refill adds the tokens earned since the last check. Callers hold mu.
func (l *Limiter) refill(now time.Time) {
	if l.lastCheck.IsZero() {
		l.lastCheck = now
		return
	}
	elapsed := now.Sub(l.lastCheck).Seconds()
	if elapsed > 0 {
		l.tokens += l.rate * elapsed
		if l.tokens > float64(l.burst) {
			l.tokens = float64(l.burst)
		}
		l.lastCheck = now
	}
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.nowFunc())
	if l.tokens < 1.0 {
		return false
	}
	l.tokens--
	return true
}

// Reserve takes a token, going into debt if necessary, and returns how long
// the caller must wait before acting on it.
func (l *Limiter) Reserve() time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.nowFunc())
	l.tokens--
	if l.tokens >= 0 || l.rate <= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := l.Reserve()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
