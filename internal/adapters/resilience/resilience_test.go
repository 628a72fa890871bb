package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(name string) SourceConfig {
	cfg := DefaultSourceConfig(name)
	cfg.RPS = 1000
	cfg.Burst = 1000
	cfg.ConsecutiveFailureTrip = 2
	cfg.OpenTimeout = 30 * time.Millisecond
	return cfg
}

func TestGateway_CallSucceeds(t *testing.T) {
	g := NewGateway()
	g.Register(fastConfig("fpl-api"))

	err := g.Call(context.Background(), "fpl-api", "fpl-api", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	_, healthy := g.Health()
	if !healthy {
		t.Fatal("gateway should report healthy after a clean call")
	}
}

func TestGateway_UnregisteredSourceErrors(t *testing.T) {
	g := NewGateway()
	err := g.Call(context.Background(), "unknown", "unknown", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected an error for an unregistered source")
	}
}

func TestGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGateway()
	g.Register(fastConfig("intelligence-feed"))

	boom := errors.New("feed unavailable")
	for i := 0; i < 2; i++ {
		err := g.Call(context.Background(), "intelligence-feed", "intelligence-feed", func(ctx context.Context) error {
			return boom
		})
		if err == nil {
			t.Fatal("failing call should return an error")
		}
	}

	err := g.Call(context.Background(), "intelligence-feed", "intelligence-feed", func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Fatal("breaker should reject calls once tripped")
	}

	mgr, healthy := g.Health()
	if healthy {
		t.Fatal("gateway should report unhealthy once a source trips")
	}
	if len(mgr.UnhealthySources()) != 1 {
		t.Fatal("expected exactly one unhealthy source")
	}
}
