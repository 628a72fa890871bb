// Package ratelimit wraps golang.org/x/time/rate as a per-source, per-host
// token-bucket limiter for the external sources this core polls: the FPL
// data API and the intelligence feeds. Each intelligence source (a named
// feed, e.g. a press-conference transcript provider or a team-news scraper)
// gets its own limiter so one chatty feed can't burn through another
// feed's budget, and a slow-moving source never needs to wait behind a
// fast one.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-host token bucket for one source.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter with a fixed requests-per-second and burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[host] = limiter
	return limiter
}

// Allow reports whether a request to host is allowed right now.
func (l *Limiter) Allow(host string) bool {
	return l.getLimiter(host).Allow()
}

// Wait blocks until host's limiter admits a request or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.getLimiter(host).Wait(ctx)
}

// Reserve reserves a token for host, letting the caller inspect the delay
// before committing to the wait.
func (l *Limiter) Reserve(host string) *rate.Reservation {
	return l.getLimiter(host).Reserve()
}

// SetRPS updates the requests-per-second for every host under this limiter.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	for _, limiter := range l.limiters {
		limiter.SetLimit(rate.Limit(rps))
	}
}

// SetBurst updates the burst capacity for every host under this limiter.
func (l *Limiter) SetBurst(burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.burst = burst
	for _, limiter := range l.limiters {
		limiter.SetBurst(burst)
	}
}

// Stats reports the current token state for every tracked host.
func (l *Limiter) Stats() map[string]HostStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]HostStats)
	now := time.Now()
	for host, limiter := range l.limiters {
		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		stats[host] = HostStats{
			Host:            host,
			RPS:             float64(limiter.Limit()),
			Burst:           limiter.Burst(),
			TokensAvailable: limiter.Tokens(),
			NextAllowedAt:   now.Add(delay),
			Delay:           delay,
		}
	}
	return stats
}

// Reset drops every tracked host, restarting each at full burst.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}

// HostStats is a point-in-time view of one host's token bucket.
type HostStats struct {
	Host            string        `json:"host"`
	RPS             float64       `json:"rps"`
	Burst           int           `json:"burst"`
	TokensAvailable float64       `json:"tokens_available"`
	NextAllowedAt   time.Time     `json:"next_allowed_at"`
	Delay           time.Duration `json:"delay"`
}

// IsThrottled reports whether the next request on this host must wait.
func (s *HostStats) IsThrottled() bool { return s.Delay > 0 }

// Manager keys a Limiter per named source (e.g. "fpl-api",
// "press-conference-feed", "team-news-feed").
type Manager struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*Limiter)}
}

// AddSource registers a limiter for a named source.
func (m *Manager) AddSource(name string, rps float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = NewLimiter(rps, burst)
}

// GetLimiter returns the limiter registered for a source.
func (m *Manager) GetLimiter(source string) (*Limiter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limiter, exists := m.limiters[source]
	return limiter, exists
}

// Allow reports whether a request to source/host is allowed right now. A
// source with no registered limiter is unthrottled.
func (m *Manager) Allow(source, host string) bool {
	limiter, exists := m.GetLimiter(source)
	if !exists {
		return true
	}
	return limiter.Allow(host)
}

// Wait blocks until source/host is allowed, or ctx is cancelled. A source
// with no registered limiter returns immediately.
func (m *Manager) Wait(ctx context.Context, source, host string) error {
	limiter, exists := m.GetLimiter(source)
	if !exists {
		return nil
	}
	return limiter.Wait(ctx, host)
}

// Stats reports host-level stats for every registered source.
func (m *Manager) Stats() map[string]map[string]HostStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]map[string]HostStats)
	for source, limiter := range m.limiters {
		stats[source] = limiter.Stats()
	}
	return stats
}

// Reset clears every registered source's limiter state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, limiter := range m.limiters {
		limiter.Reset()
	}
}
