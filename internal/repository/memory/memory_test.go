package memory

import (
	"context"
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Players().Upsert(ctx, domain.Player{ID: 1, Name: "Test Player"}))
	p, err := s.Players().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Test Player", p.Name)

	_, err = s.Players().Get(ctx, 999)
	assert.Error(t, err)
}

func TestPredictionKeyedByModelVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Predictions().Save(ctx, domain.Prediction{PlayerID: 1, Gameweek: 5, ModelVersion: "v1", ExpectedPoints: 4.0}))
	require.NoError(t, s.Predictions().Save(ctx, domain.Prediction{PlayerID: 1, Gameweek: 5, ModelVersion: "v2", ExpectedPoints: 5.0}))

	p, ok, err := s.Predictions().Get(ctx, 1, 5, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4.0, p.ExpectedPoints)

	_, ok, err = s.Predictions().Get(ctx, 1, 5, "v3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSquadPromoteDraft(t *testing.T) {
	s := New()
	ctx := context.Background()
	draft := domain.DraftSquad{ManagerID: 1, Gameweek: 10, Picks: []domain.Pick{{PlayerID: 1}}}
	require.NoError(t, s.Squads().PromoteDraft(ctx, draft))

	squad, err := s.Squads().Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, squad.Gameweek)
}

func TestIntelligenceActiveKeepsSignalWithoutExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := 7
	require.NoError(t, s.Intelligence().Save(ctx, domain.IntelligenceSignal{PlayerID: &id}))

	active, err := s.Intelligence().Active(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDecisionLatest(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, ok, err := s.Decisions().Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Decisions().Save(ctx, domain.Decision{Gameweek: 1}))
	require.NoError(t, s.Decisions().Save(ctx, domain.Decision{Gameweek: 2}))

	latest, ok, err := s.Decisions().Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, latest.Gameweek)
}

func TestPlayerFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	mid := domain.MID
	available := domain.Available
	require.NoError(t, s.Players().Upsert(ctx, domain.Player{ID: 1, Position: domain.MID, NowCost: 80, Status: domain.Available}))
	require.NoError(t, s.Players().Upsert(ctx, domain.Player{ID: 2, Position: domain.MID, NowCost: 120, Status: domain.Available}))
	require.NoError(t, s.Players().Upsert(ctx, domain.Player{ID: 3, Position: domain.FWD, NowCost: 80, Status: domain.Injured}))

	maxCost := 100
	out, err := s.Players().Filter(ctx, repository.PlayerFilter{Position: &mid, Status: &available, MaxNowCost: &maxCost})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)

	all, err := s.Players().Filter(ctx, repository.PlayerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFixtureUpcomingForClub(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Fixtures().Upsert(ctx, domain.Fixture{ID: 1, Gameweek: 5, HomeClubID: 7, AwayClubID: 8}))
	require.NoError(t, s.Fixtures().Upsert(ctx, domain.Fixture{ID: 2, Gameweek: 6, HomeClubID: 9, AwayClubID: 7}))
	require.NoError(t, s.Fixtures().Upsert(ctx, domain.Fixture{ID: 3, Gameweek: 9, HomeClubID: 7, AwayClubID: 10}))
	require.NoError(t, s.Fixtures().Upsert(ctx, domain.Fixture{ID: 4, Gameweek: 5, HomeClubID: 7, AwayClubID: 11, Finished: true}))

	out, err := s.Fixtures().UpcomingForClub(ctx, 7, 5, 8)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 5, out[0].Gameweek)
	assert.Equal(t, 6, out[1].Gameweek)
}

func TestGameweekSetStatusKeepsSingleCurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Gameweeks().Upsert(ctx, domain.Gameweek{Number: 5, IsCurrent: true}))
	require.NoError(t, s.Gameweeks().Upsert(ctx, domain.Gameweek{Number: 6, IsNext: true}))

	require.NoError(t, s.Gameweeks().SetStatus(ctx, 6, true, false, false))

	current, err := s.Gameweeks().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, current.Number)

	// The old current gameweek lost its flag in the same operation.
	require.NoError(t, s.Gameweeks().SetStatus(ctx, 5, false, false, true))
	current, err = s.Gameweeks().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, current.Number)
}

func TestClubRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Clubs().Upsert(ctx, domain.Club{ID: 3, ShortName: "ARS", Strength: domain.ClubStrength{HomeOverall: 1350}}))

	c, err := s.Clubs().Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ARS", c.ShortName)
	assert.Equal(t, 1350, c.Strength.HomeOverall)

	list, err := s.Clubs().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCaptainReviewsTrendMostRecentFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	for gw := 1; gw <= 4; gw++ {
		require.NoError(t, s.Captains().Record(ctx, domain.CaptainReview{
			Gameweek: gw, CaptainID: 100 + gw, PointsLeft: float64(gw),
		}))
	}

	recent, err := s.Captains().Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 4, recent[0].Gameweek)
	assert.Equal(t, 2, recent[2].Gameweek)

	// Re-recording a gameweek overwrites rather than duplicates.
	require.NoError(t, s.Captains().Record(ctx, domain.CaptainReview{Gameweek: 4, PointsLeft: 9}))
	recent, err = s.Captains().Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
	assert.InDelta(t, 9.0, recent[0].PointsLeft, 1e-9)
}
