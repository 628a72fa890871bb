package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

func perf(gw, points, minutes, goals, assists int) domain.PlayerGameweekPerformance {
	return domain.PlayerGameweekPerformance{
		PlayerID: 1, Gameweek: gw, ActualPoints: points, Minutes: minutes,
		Goals: goals, Assists: assists,
	}
}

func TestBuild_EmptyHistoryUsesDefaults(t *testing.T) {
	v := Build(1, 10, Static{Price: 75, Form: 4.2}, nil, FixtureContext{})

	assert.Equal(t, 75.0, v.Price)
	assert.Equal(t, 4.2, v.Form)
	assert.Equal(t, DefaultFixtureDifficulty, v.FixtureDifficulty)
	assert.Zero(t, v.AvgPoints)
	assert.Zero(t, v.SeasonGames)
	assert.Zero(t, v.MinutesReliability)
}

func TestBuild_RollingWindowTrimsToLastFive(t *testing.T) {
	history := []domain.PlayerGameweekPerformance{
		perf(1, 20, 90, 3, 0), // outside the window, must not leak in
		perf(2, 2, 90, 0, 0),
		perf(3, 2, 90, 0, 0),
		perf(4, 2, 90, 0, 0),
		perf(5, 2, 90, 0, 0),
		perf(6, 2, 90, 0, 0),
	}
	v := Build(1, 7, Static{}, history, DefaultFixtureContext())

	assert.InDelta(t, 2.0, v.AvgPoints, 1e-9)
	assert.Zero(t, v.AvgGoals)
	// Season totals still cover all six appearances.
	assert.Equal(t, 6, v.SeasonGames)
	assert.InDelta(t, 30.0/6.0, v.SeasonPointsPerGame, 1e-9)
}

func TestBuild_TrendSlope(t *testing.T) {
	rising := []domain.PlayerGameweekPerformance{
		perf(1, 2, 90, 0, 0),
		perf(2, 4, 90, 0, 0),
		perf(3, 6, 90, 0, 0),
		perf(4, 8, 90, 0, 0),
		perf(5, 10, 90, 0, 0),
	}
	v := Build(1, 6, Static{}, rising, DefaultFixtureContext())
	assert.InDelta(t, 2.0, v.PointsTrendSlope, 1e-9)

	flat := []domain.PlayerGameweekPerformance{
		perf(1, 5, 90, 0, 0),
		perf(2, 5, 90, 0, 0),
		perf(3, 5, 90, 0, 0),
	}
	v = Build(1, 4, Static{}, flat, DefaultFixtureContext())
	assert.InDelta(t, 0.0, v.PointsTrendSlope, 1e-9)
}

func TestBuild_MinutesReliabilityClamped(t *testing.T) {
	full := []domain.PlayerGameweekPerformance{perf(1, 2, 90, 0, 0), perf(2, 2, 90, 0, 0)}
	v := Build(1, 3, Static{}, full, DefaultFixtureContext())
	assert.InDelta(t, 1.0, v.MinutesReliability, 1e-9)

	cameo := []domain.PlayerGameweekPerformance{perf(1, 1, 9, 0, 0)}
	v = Build(1, 2, Static{}, cameo, DefaultFixtureContext())
	assert.InDelta(t, 0.1, v.MinutesReliability, 1e-9)
}

func TestBuild_AttackingThreatAndOverperformance(t *testing.T) {
	history := []domain.PlayerGameweekPerformance{
		{PlayerID: 1, Gameweek: 1, Minutes: 90, Goals: 2, Assists: 1, ExpectedGoals: 1.0, ExpectedAssists: 0.5},
		{PlayerID: 1, Gameweek: 2, Minutes: 90, Goals: 0, Assists: 1, ExpectedGoals: 0.6, ExpectedAssists: 0.5},
	}
	v := Build(1, 3, Static{}, history, DefaultFixtureContext())

	assert.InDelta(t, 1.0, v.AvgGoals, 1e-9)
	assert.InDelta(t, 1.0, v.AvgAssists, 1e-9)
	assert.InDelta(t, 4.0*1.0+3.0*1.0, v.AttackingThreat, 1e-9)
	assert.InDelta(t, 1.0-0.8, v.GoalsOverperformance, 1e-9)
	assert.InDelta(t, 1.0-0.5, v.AssistsOverperformance, 1e-9)
	assert.InDelta(t, 0.8+0.5, v.AvgExpectedGoalInvolvements, 1e-9)
}

func TestBuild_DefensiveContributionScore(t *testing.T) {
	history := []domain.PlayerGameweekPerformance{
		{PlayerID: 1, Gameweek: 1, Minutes: 90, Tackles: 4, ClearancesBlocksInterceptions: 6, Recoveries: 8},
		{PlayerID: 1, Gameweek: 2, Minutes: 90, Tackles: 2, ClearancesBlocksInterceptions: 4, Recoveries: 6},
	}
	v := Build(1, 3, Static{}, history, DefaultFixtureContext())

	assert.InDelta(t, 3.0, v.AvgTackles, 1e-9)
	assert.InDelta(t, 5.0, v.AvgCBI, 1e-9)
	assert.InDelta(t, 7.0, v.AvgRecoveries, 1e-9)
	assert.InDelta(t, 15.0, v.DefensiveContributionScore, 1e-9)
}

func TestSequence_LeftZeroPadsShortHistory(t *testing.T) {
	history := []domain.PlayerGameweekPerformance{
		perf(7, 6, 90, 1, 0),
		perf(8, 2, 90, 0, 0),
	}
	rows := Sequence(1, 9, Static{Form: 3.0}, history, nil, 5)

	assert.Len(t, rows, 5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, Vector{}, rows[i], "row %d should be zero padding", i)
	}
	assert.Equal(t, 7, rows[3].Gameweek)
	assert.Equal(t, 8, rows[4].Gameweek)
	// Each row only sees history up to its own gameweek.
	assert.InDelta(t, 6.0, rows[3].AvgPoints, 1e-9)
	assert.InDelta(t, 4.0, rows[4].AvgPoints, 1e-9)
}

func TestSequence_DefaultLength(t *testing.T) {
	rows := Sequence(1, 10, Static{}, nil, nil, 0)
	assert.Len(t, rows, DefaultSequenceLength)
}
