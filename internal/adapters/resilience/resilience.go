// Package resilience wraps calls to the injected league and intelligence
// adapters with a circuit breaker, a rate limiter, and a bounded timeout,
// one thin gobreaker wrapper per named upstream. Every call's outcome is
// also mirrored into an internal/net/circuit Manager so the monitor API
// can report per-source health without asking gobreaker for its private
// state.
package resilience

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker"

	"github.com/jolyonbrown/ronclanker/internal/adapters/ratelimit"
	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/net/circuit"
)

// SourceConfig is one upstream source's resilience policy.
type SourceConfig struct {
	Name                 string
	RequestTimeout        time.Duration
	RPS                   float64
	Burst                 int
	ConsecutiveFailureTrip int           // ReadyToTrip: consecutive failures
	MinRequestsForRateTrip int           // ReadyToTrip: minimum sample before rate-tripping
	FailureRateTrip       float64        // ReadyToTrip: failure ratio once MinRequestsForRateTrip is met
	OpenTimeout           time.Duration  // gobreaker Timeout: time spent open before a half-open probe
	ReportingThreshold    circuit.Config // mirrors into the reporting Manager
}

// DefaultSourceConfig returns a sane policy for a moderately-reliable feed.
func DefaultSourceConfig(name string) SourceConfig {
	return SourceConfig{
		Name:                   name,
		RequestTimeout:         10 * time.Second,
		RPS:                    2.0,
		Burst:                  4,
		ConsecutiveFailureTrip: 3,
		MinRequestsForRateTrip: 20,
		FailureRateTrip:        0.1,
		OpenTimeout:            60 * time.Second,
		ReportingThreshold: circuit.Config{
			FailureThreshold: 3,
			SuccessThreshold: 2,
			Timeout:          60 * time.Second,
			RequestTimeout:   10 * time.Second,
		},
	}
}

// Gateway gates and reports on calls to every registered upstream source.
type Gateway struct {
	breakers map[string]*gobreaker.CircuitBreaker
	limiter  *ratelimit.Manager
	report   *circuit.Manager
	timeouts map[string]time.Duration
}

// NewGateway builds an empty Gateway; call Register per source before use.
func NewGateway() *Gateway {
	return &Gateway{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		limiter:  ratelimit.NewManager(),
		report:   circuit.NewManager(),
		timeouts: make(map[string]time.Duration),
	}
}

// Register wires a named source's breaker, limiter and reporting entry.
func (g *Gateway) Register(cfg SourceConfig) {
	settings := gobreaker.Settings{
		Name:     cfg.Name,
		Interval: 60 * time.Second,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if int(counts.ConsecutiveFailures) >= cfg.ConsecutiveFailureTrip {
				return true
			}
			total := counts.Requests
			if total < uint32(cfg.MinRequestsForRateTrip) {
				return false
			}
			return float64(counts.TotalFailures)/float64(total) > cfg.FailureRateTrip
		},
	}
	g.breakers[cfg.Name] = gobreaker.NewCircuitBreaker(settings)
	g.limiter.AddSource(cfg.Name, cfg.RPS, cfg.Burst)
	g.report.AddSource(cfg.Name, cfg.ReportingThreshold)
	g.timeouts[cfg.Name] = cfg.RequestTimeout
}

// Call runs fn through source's rate limiter, bounded timeout and circuit
// breaker, and mirrors the outcome into the reporting Manager. host
// distinguishes endpoints sharing one source's rate budget (e.g. distinct
// intelligence feed handles); pass the source name itself if there is only
// one host per source.
func (g *Gateway) Call(ctx context.Context, source, host string, fn func(ctx context.Context) error) error {
	breaker, ok := g.breakers[source]
	if !ok {
		return domain.NewError(domain.ErrUpstreamUnavailable, "resilience.Gateway",
			map[string]any{"source": source, "reason": "not registered"})
	}

	if err := g.limiter.Wait(ctx, source, host); err != nil {
		return fmt.Errorf("resilience: rate limit wait for %s/%s: %w", source, host, err)
	}

	timeout := g.timeouts[source]
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := breaker.Execute(func() (any, error) {
		return nil, fn(callCtx)
	})

	g.report.Record(source, err)

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.NewError(domain.ErrSourceDegraded, "resilience.Gateway",
			map[string]any{"source": source, "state": err.Error()})
	}
	return err
}

// Health returns the reporting Manager's aggregate health, suitable for the
// monitor API's /healthz handler.
func (g *Gateway) Health() (*circuit.Manager, bool) {
	return g.report, g.report.IsHealthy()
}
