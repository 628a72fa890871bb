package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
		RequestTimeout:   50 * time.Millisecond,
	}
}

func TestBreaker_ClosedState(t *testing.T) {
	b := NewBreaker(testConfig())
	if b.State() != StateClosed {
		t.Fatalf("new breaker should start closed, got %s", b.State())
	}

	if err := b.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("successful call should not error: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("breaker should remain closed after success, got %s", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(testConfig())

	for i := 0; i < 3; i++ {
		if err := b.Call(context.Background(), func(ctx context.Context) error {
			return errors.New("source unavailable")
		}); err == nil {
			t.Fatal("failing call should return an error")
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("breaker should open after threshold failures, got %s", b.State())
	}

	if err := b.Call(context.Background(), func(ctx context.Context) error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("open breaker should reject calls with ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.FailureThreshold = 2
	b := NewBreaker(cfg)

	for i := 0; i < 2; i++ {
		b.Call(context.Background(), func(ctx context.Context) error { return errors.New("down") })
	}
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := b.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("probe call after timeout should be allowed through: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("breaker should be half-open after one probe success, got %s", b.State())
	}

	if err := b.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("second probe success should be allowed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("breaker should close after reaching success threshold, got %s", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.FailureThreshold = 1
	b := NewBreaker(cfg)

	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("down") })
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(60 * time.Millisecond)
	b.Call(context.Background(), func(ctx context.Context) error { return errors.New("still down") })

	if b.State() != StateOpen {
		t.Fatalf("a failed probe should reopen the breaker, got %s", b.State())
	}
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 10 * time.Millisecond
	cfg.FailureThreshold = 1
	b := NewBreaker(cfg)

	err := b.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != ErrRequestTimeout {
		t.Fatalf("expected ErrRequestTimeout, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("breaker should open on timeout, got %s", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(testConfig())
	for i := 0; i < 3; i++ {
		b.Call(context.Background(), func(ctx context.Context) error { return errors.New("down") })
	}
	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("breaker should be closed after reset, got %s", b.State())
	}
	if b.Stats().TotalRequests != 0 {
		t.Fatal("reset should clear counters")
	}
}

func TestManager_TracksMultipleSources(t *testing.T) {
	m := NewManager()
	m.AddSource("fpl-api", testConfig())
	m.AddSource("intelligence-feed", testConfig())

	m.Record("fpl-api", nil)
	m.Record("intelligence-feed", errors.New("feed timeout"))

	stats := m.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 tracked sources, got %d", len(stats))
	}
	if stats["fpl-api"].TotalFailures != 0 {
		t.Fatal("fpl-api should have no recorded failures")
	}
	if stats["intelligence-feed"].TotalFailures != 1 {
		t.Fatal("intelligence-feed should have one recorded failure")
	}
}

func TestManager_IsHealthyReflectsWorstSource(t *testing.T) {
	m := NewManager()
	cfg := testConfig()
	cfg.FailureThreshold = 1
	m.AddSource("fpl-api", cfg)

	if !m.IsHealthy() {
		t.Fatal("manager with no recorded calls should report healthy")
	}

	m.Record("fpl-api", errors.New("down"))
	if m.IsHealthy() {
		t.Fatal("manager should report unhealthy once a source opens")
	}
	if len(m.UnhealthySources()) != 1 {
		t.Fatal("expected one unhealthy source listed")
	}
}
