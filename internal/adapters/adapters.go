// Package adapters declares the inbound-adapter contracts the core
// depends on: a single LeagueDataSource for official league state and one
// IntelligenceSource per provider feed. Live HTTP/scraper clients plug in
// from outside; this package carries the contracts, the snapshot-file
// implementation (package filesource), and the resilience wrapping
// (package resilience).
package adapters

import (
	"context"
	"time"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// BootstrapData is the league-wide snapshot returned by one Bootstrap call.
type BootstrapData struct {
	Players   []domain.Player
	Clubs     []domain.Club
	Gameweeks []domain.Gameweek
}

// LivePlayerStat is one player's in-progress-gameweek line.
type LivePlayerStat struct {
	PlayerID int
	Minutes  int
	Points   int
}

// LeagueDataSource is the inbound adapter for official league state.
type LeagueDataSource interface {
	// Bootstrap returns players, clubs and gameweeks with current/next/
	// finished flags populated.
	Bootstrap(ctx context.Context) (BootstrapData, error)
	// PlayerHistory returns one player's completed-gameweek performances.
	PlayerHistory(ctx context.Context, playerID int) ([]domain.PlayerGameweekPerformance, error)
	// Fixtures returns every fixture with difficulty and finished state.
	Fixtures(ctx context.Context) ([]domain.Fixture, error)
	// LiveGameweek returns per-player live minutes/points for gw while it
	// is in progress.
	LiveGameweek(ctx context.Context, gw int) ([]LivePlayerStat, error)
}

// RawSignal is one unclassified item emitted by an IntelligenceSource
// ahead of classification by package intelligence.
type RawSignal struct {
	SourceID          string
	SourceReliability float64
	Type              domain.SignalType
	PlayerName        string
	Detail            string
	ObservedAt        time.Time
}

// IntelligenceSource is the inbound adapter for one provider feed (a news
// scraper, an RSS reader, a transcript fetcher). The core polls each
// registered source independently so one provider's outage never blocks
// another's signals.
type IntelligenceSource interface {
	// Poll returns every RawSignal observed since the given instant.
	Poll(ctx context.Context, since time.Time) ([]RawSignal, error)
	// Name identifies this source for resilience and logging purposes.
	Name() string
}
