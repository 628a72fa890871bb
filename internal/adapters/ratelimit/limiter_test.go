package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(2.0, 2)

	if !limiter.Allow("fantasy.premierleague.com") {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow("fantasy.premierleague.com") {
		t.Error("second request should be allowed")
	}
	if limiter.Allow("fantasy.premierleague.com") {
		t.Error("third request should be blocked")
	}
}

func TestLimiter_IndependentHosts(t *testing.T) {
	limiter := NewLimiter(1.0, 1)

	if !limiter.Allow("api.fpl.example") {
		t.Error("first request to host 1 should be allowed")
	}
	if !limiter.Allow("transcripts.example") {
		t.Error("first request to host 2 should be allowed")
	}
	if limiter.Allow("api.fpl.example") {
		t.Error("second request to host 1 should be blocked")
	}
	if limiter.Allow("transcripts.example") {
		t.Error("second request to host 2 should be blocked")
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(10.0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx, "fpl.example"); err != nil {
		t.Fatalf("wait should not error on first request: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("first request should be immediate, took %v", elapsed)
	}

	start = time.Now()
	if err := limiter.Wait(ctx, "fpl.example"); err != nil {
		t.Fatalf("wait should not error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond || elapsed > 150*time.Millisecond {
		t.Errorf("second request should wait ~100ms, took %v", elapsed)
	}
}

func TestLimiter_WaitTimesOutUnderLoad(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.Allow("fpl.example")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := limiter.Wait(ctx, "fpl.example")
	elapsed := time.Since(start)

	if err == nil {
		t.Error("wait should time out with a short context")
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("wait should time out quickly, took %v", elapsed)
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewLimiter(100.0, 10)
	host := "fpl.example"

	const numGoroutines = 50
	const requestsPerGoroutine = 5

	var allowed, blocked int64
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < requestsPerGoroutine; j++ {
				if limiter.Allow(host) {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&blocked, 1)
				}
			}
		}()
	}
	wg.Wait()

	total := allowed + blocked
	if total != int64(numGoroutines*requestsPerGoroutine) {
		t.Errorf("total requests %d != expected %d", total, numGoroutines*requestsPerGoroutine)
	}
	if allowed < 10 {
		t.Errorf("should allow at least burst amount, allowed %d", allowed)
	}
	if blocked == 0 {
		t.Error("should block some requests under this load")
	}
}

func TestLimiter_Stats(t *testing.T) {
	limiter := NewLimiter(5.0, 10)
	host := "fpl.example"

	limiter.Allow(host)
	limiter.Allow(host)

	stats, exists := limiter.Stats()[host]
	if !exists {
		t.Fatal("stats should include the host")
	}
	if stats.Host != host {
		t.Errorf("host stats should be for %s, got %s", host, stats.Host)
	}
	if stats.RPS != 5.0 {
		t.Errorf("rps should be 5.0, got %f", stats.RPS)
	}
	if stats.Burst != 10 {
		t.Errorf("burst should be 10, got %d", stats.Burst)
	}
	if stats.TokensAvailable >= 10 {
		t.Errorf("tokens available should be < 10 after usage, got %f", stats.TokensAvailable)
	}
}

func TestLimiter_SetRPS(t *testing.T) {
	limiter := NewLimiter(1.0, 2)
	host := "fpl.example"

	limiter.Allow(host)
	limiter.Allow(host)
	if limiter.Allow(host) {
		t.Error("should be throttled at 1 rps")
	}

	limiter.SetRPS(10.0)
	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow(host) {
		t.Error("should allow requests after increasing rps")
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter := NewLimiter(1.0, 1)
	host := "fpl.example"

	limiter.Allow(host)
	if limiter.Allow(host) {
		t.Error("should be throttled before reset")
	}

	limiter.Reset()
	if !limiter.Allow(host) {
		t.Error("should allow requests after reset")
	}
}

func TestManager_AddSource(t *testing.T) {
	manager := NewManager()
	manager.AddSource("fpl-api", 5.0, 10)

	limiter, exists := manager.GetLimiter("fpl-api")
	if !exists {
		t.Fatal("source should exist after adding")
	}
	if limiter == nil {
		t.Fatal("limiter should not be nil")
	}
}

func TestManager_Allow(t *testing.T) {
	manager := NewManager()

	if !manager.Allow("unregistered-source", "fpl.example") {
		t.Error("should allow requests for an unregistered source")
	}

	manager.AddSource("fpl-api", 1.0, 1)
	if !manager.Allow("fpl-api", "fpl.example") {
		t.Error("first request should be allowed")
	}
	if manager.Allow("fpl-api", "fpl.example") {
		t.Error("second request should be blocked")
	}
}

func TestManager_Stats(t *testing.T) {
	manager := NewManager()
	manager.AddSource("fpl-api", 5.0, 10)
	manager.AddSource("press-conference-feed", 3.0, 5)

	manager.Allow("fpl-api", "fpl.example")
	manager.Allow("press-conference-feed", "transcripts.example")

	all := manager.Stats()
	if len(all) != 2 {
		t.Errorf("should have stats for 2 sources, got %d", len(all))
	}
	if len(all["fpl-api"]) == 0 {
		t.Error("fpl-api should have host stats")
	}
}
