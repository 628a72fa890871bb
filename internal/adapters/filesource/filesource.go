// Package filesource implements the LeagueDataSource and
// IntelligenceSource contracts over a directory of JSON snapshot files.
// A hand-curated snapshot is interchangeable with a live scraper as far
// as the core is concerned, which makes this adapter both the offline
// test fixture and the dry-run backend for the CLI.
//
// Layout under the snapshot directory:
//
//	bootstrap.json        {"players": [...], "clubs": [...], "gameweeks": [...]}
//	fixtures.json         [ ...fixtures... ]
//	history/<playerID>.json  [ ...performances... ]
//	live/<gw>.json        [ {"player_id":..,"minutes":..,"points":..} ]
//	signals.json          [ {"source_id":..,"type":..,"player_name":..,...} ]
package filesource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jolyonbrown/ronclanker/internal/adapters"
	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// League reads official-league state from snapshot files.
type League struct {
	dir string
}

// NewLeague returns a League reading from dir.
func NewLeague(dir string) *League {
	return &League{dir: dir}
}

var _ adapters.LeagueDataSource = (*League)(nil)

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("filesource: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("filesource: parse %s: %w", path, err)
	}
	return nil
}

// Bootstrap loads bootstrap.json.
func (l *League) Bootstrap(_ context.Context) (adapters.BootstrapData, error) {
	var payload struct {
		Players   []domain.Player   `json:"players"`
		Clubs     []domain.Club     `json:"clubs"`
		Gameweeks []domain.Gameweek `json:"gameweeks"`
	}
	if err := readJSON(filepath.Join(l.dir, "bootstrap.json"), &payload); err != nil {
		return adapters.BootstrapData{}, err
	}
	return adapters.BootstrapData{
		Players:   payload.Players,
		Clubs:     payload.Clubs,
		Gameweeks: payload.Gameweeks,
	}, nil
}

// PlayerHistory loads history/<playerID>.json. A missing file means the
// player has no recorded appearances yet, not an error.
func (l *League) PlayerHistory(_ context.Context, playerID int) ([]domain.PlayerGameweekPerformance, error) {
	path := filepath.Join(l.dir, "history", strconv.Itoa(playerID)+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var history []domain.PlayerGameweekPerformance
	if err := readJSON(path, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Fixtures loads fixtures.json.
func (l *League) Fixtures(_ context.Context) ([]domain.Fixture, error) {
	var fixtures []domain.Fixture
	if err := readJSON(filepath.Join(l.dir, "fixtures.json"), &fixtures); err != nil {
		return nil, err
	}
	return fixtures, nil
}

// LiveGameweek loads live/<gw>.json.
func (l *League) LiveGameweek(_ context.Context, gw int) ([]adapters.LivePlayerStat, error) {
	var stats []adapters.LivePlayerStat
	path := filepath.Join(l.dir, "live", strconv.Itoa(gw)+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	if err := readJSON(path, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// rawSignalRecord is the on-disk shape of one unclassified signal.
type rawSignalRecord struct {
	SourceID          string    `json:"source_id"`
	SourceReliability float64   `json:"source_reliability"`
	Type              string    `json:"type"`
	PlayerName        string    `json:"player_name"`
	Detail            string    `json:"detail"`
	ObservedAt        time.Time `json:"observed_at"`
}

// Intelligence reads raw signals from a JSON file, filtered by Poll's
// since cutoff.
type Intelligence struct {
	name        string
	reliability float64
	path        string
}

// NewIntelligence returns an Intelligence source named name reading from
// path. reliability overrides any per-record value of zero.
func NewIntelligence(name string, reliability float64, path string) *Intelligence {
	return &Intelligence{name: name, reliability: reliability, path: path}
}

var _ adapters.IntelligenceSource = (*Intelligence)(nil)

// Name identifies this source for resilience and logging.
func (i *Intelligence) Name() string { return i.name }

// Poll returns every recorded signal observed after since.
func (i *Intelligence) Poll(_ context.Context, since time.Time) ([]adapters.RawSignal, error) {
	if _, err := os.Stat(i.path); os.IsNotExist(err) {
		return nil, nil
	}
	var records []rawSignalRecord
	if err := readJSON(i.path, &records); err != nil {
		return nil, err
	}

	out := make([]adapters.RawSignal, 0, len(records))
	for _, rec := range records {
		if !rec.ObservedAt.After(since) {
			continue
		}
		reliability := rec.SourceReliability
		if reliability == 0 {
			reliability = i.reliability
		}
		sourceID := rec.SourceID
		if sourceID == "" {
			sourceID = i.name
		}
		out = append(out, adapters.RawSignal{
			SourceID:          sourceID,
			SourceReliability: reliability,
			Type:              domain.SignalType(rec.Type),
			PlayerName:        rec.PlayerName,
			Detail:            rec.Detail,
			ObservedAt:        rec.ObservedAt,
		})
	}
	return out, nil
}
