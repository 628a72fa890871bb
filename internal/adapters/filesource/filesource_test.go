package filesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLeagueBootstrapAndFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bootstrap.json"), `{
		"players": [{"ID": 1, "Name": "Haaland", "Position": "FWD", "NowCost": 151}],
		"clubs": [{"ID": 11, "ShortName": "MCI"}],
		"gameweeks": [{"Number": 5, "IsCurrent": true}]
	}`)
	writeFile(t, filepath.Join(dir, "fixtures.json"), `[
		{"ID": 1, "Gameweek": 5, "HomeClubID": 11, "AwayClubID": 3, "HomeDifficulty": 2, "AwayDifficulty": 5}
	]`)

	league := NewLeague(dir)

	bootstrap, err := league.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Len(t, bootstrap.Players, 1)
	assert.Equal(t, "Haaland", bootstrap.Players[0].Name)
	assert.Equal(t, domain.FWD, bootstrap.Players[0].Position)
	assert.True(t, bootstrap.Gameweeks[0].IsCurrent)

	fixtures, err := league.Fixtures(context.Background())
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, 2, fixtures[0].HomeDifficulty)
}

func TestLeaguePlayerHistory_MissingFileMeansNoAppearances(t *testing.T) {
	league := NewLeague(t.TempDir())

	history, err := league.PlayerHistory(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLeagueBootstrap_MissingFileErrors(t *testing.T) {
	league := NewLeague(t.TempDir())

	_, err := league.Bootstrap(context.Background())
	assert.Error(t, err)
}

func TestIntelligencePollFiltersBySince(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	writeFile(t, path, `[
		{"source_id": "sky", "source_reliability": 0.9, "type": "INJURY",
		 "player_name": "Saka", "detail": "ruled out for weeks",
		 "observed_at": "2025-09-01T10:00:00Z"},
		{"type": "ROTATION", "player_name": "Foden", "detail": "might be rested",
		 "observed_at": "2025-09-03T10:00:00Z"}
	]`)

	source := NewIntelligence("snapshot-news", 0.7, path)
	assert.Equal(t, "snapshot-news", source.Name())

	since := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	raw, err := source.Poll(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	// Defaults fill in when the record omits source fields.
	assert.Equal(t, "snapshot-news", raw[0].SourceID)
	assert.Equal(t, 0.7, raw[0].SourceReliability)
	assert.Equal(t, domain.SignalRotation, raw[0].Type)

	all, err := source.Poll(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sky", all[0].SourceID)
	assert.Equal(t, 0.9, all[0].SourceReliability)
}

func TestIntelligencePoll_MissingFileMeansQuietSource(t *testing.T) {
	source := NewIntelligence("snapshot-news", 0.7, filepath.Join(t.TempDir(), "signals.json"))

	raw, err := source.Poll(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, raw)
}
