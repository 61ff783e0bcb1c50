package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5)
	if l == nil {
		t.Fatal("NewLimiter returned nil")
	}
	if l.rate != 10.0 {
		t.Errorf("rate = %f, want 10.0", l.rate)
	}
	if l.burst != 5 {
		t.Errorf("burst = %d, want 5", l.burst)
	}

	if l := NewLimiter(1, 0); l.burst != 1 {
		t.Errorf("burst below 1 should clamp to 1, got %d", l.burst)
	}
}

func TestEvery(t *testing.T) {
	if Every(0) != nil || Every(-time.Second) != nil {
		t.Error("non-positive interval should return nil")
	}
	l := Every(500 * time.Millisecond)
	if l.rate != 2.0 || l.burst != 1 {
		t.Errorf("Every(500ms) = rate %f burst %d, want 2/1", l.rate, l.burst)
	}
}

func TestAllow_WithinBurst(t *testing.T) {
	l := NewLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow() {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_RefillAfterWait(t *testing.T) {
	now := time.Now()
	l := NewLimiter(10.0, 2) // 10 tokens/sec
	l.nowFunc = func() time.Time { return now }

	l.Allow()
	l.Allow()
	if l.Allow() {
		t.Error("expected rejection after burst")
	}

	// Advance time by 200ms => 10 * 0.2 = 2 tokens refilled
	now = now.Add(200 * time.Millisecond)
	if !l.Allow() || !l.Allow() {
		t.Error("expected two requests allowed after refill")
	}
	if l.Allow() {
		t.Error("expected rejection after consuming refilled tokens")
	}
}

func TestAllow_RefillCapsAtBurst(t *testing.T) {
	now := time.Now()
	l := NewLimiter(100.0, 2)
	l.nowFunc = func() time.Time { return now }
	l.Allow()

	now = now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d after long idle, want burst 2", allowed)
	}
}

func TestReserve(t *testing.T) {
	now := time.Now()
	l := NewLimiter(2.0, 1) // one token every 500ms
	l.nowFunc = func() time.Time { return now }

	tests := []struct {
		advance time.Duration
		want    time.Duration
	}{
		{0, 0},
		{0, 500 * time.Millisecond},
		{0, time.Second},
		{time.Second, 500 * time.Millisecond},
	}
	for i, tt := range tests {
		now = now.Add(tt.advance)
		if got := l.Reserve(); got != tt.want {
			t.Errorf("reserve %d = %v, want %v", i, got, tt.want)
		}
	}
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	if !l.Allow() {
		t.Error("nil limiter should allow")
	}
	if d := l.Reserve(); d != 0 {
		t.Errorf("nil Reserve = %v", d)
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil Wait = %v", err)
	}
}

func TestWait_Paces(t *testing.T) {
	l := Every(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("three starts took %v, want at least ~60ms", elapsed)
	}
}

func TestWait_Cancelled(t *testing.T) {
	l := Every(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first Wait should not block: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestAllow_ConcurrentSafety(t *testing.T) {
	l := NewLimiter(0, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent requests, want exactly burst 50", allowed)
	}
}
