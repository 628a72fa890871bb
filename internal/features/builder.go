// Package features assembles the fixed-length feature vector and form
// sequence the Predictor consumes from a player's recent history. Any
// change to the ordered field list here is a breaking change to the
// predictor model contract and must bump ModelVersion in package
// predict/baseline.
package features

import (
	"math"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// DefaultSequenceLength is the number of trailing gameweek rows used for
// sequence-model consumers.
const DefaultSequenceLength = 6

// DefaultRollingWindow is the number of trailing appearances averaged for
// the rolling-average block.
const DefaultRollingWindow = 5

// DefaultFixtureDifficulty is substituted when no opponent is known.
const DefaultFixtureDifficulty = 3

// Vector is the fixed-length feature vector for one player in one target
// gameweek.
type Vector struct {
	PlayerID int
	Gameweek int

	Price             float64
	OwnershipPercent  float64
	Form              float64
	PointsPerGame     float64
	ICTInfluence      float64
	ICTCreativity     float64
	ICTThreat         float64

	AvgPoints       float64
	AvgMinutes      float64
	AvgGoals        float64
	AvgAssists      float64
	AvgBonus        float64
	AvgBPS          float64
	AvgCleanSheets  float64
	AvgSaves        float64
	AvgICTInfluence float64
	AvgICTCreativity float64
	AvgICTThreat    float64
	AvgExpectedGoals float64
	AvgExpectedAssists float64
	AvgExpectedGoalInvolvements float64

	PointsTrendSlope float64

	GoalsOverperformance   float64 // avg(goals - xG)
	AssistsOverperformance float64 // avg(assists - xA)

	SeasonGames            int
	SeasonPointsPerGame    float64
	SeasonMinutesPerGame   float64
	SeasonGoalsPerGame     float64
	SeasonAssistsPerGame   float64
	SeasonCleanSheetsPerGame float64

	OpponentStrength   int
	FixtureDifficulty  int
	IsHome             bool

	AvgTackles     float64
	AvgCBI         float64 // clearances + blocks + interceptions
	AvgRecoveries  float64
	DefensiveContributionScore float64

	MinutesReliability float64 // clamp(avg_minutes/90, 0, 1)
	AttackingThreat     float64 // 4*avg_goals + 3*avg_assists
}

// FixtureContext supplies the parts of a Vector that come from the
// upcoming fixture rather than player history.
type FixtureContext struct {
	OpponentStrength  int
	FixtureDifficulty int
	IsHome            bool
}

// DefaultFixtureContext is used when no fixture is known for the target
// gameweek (a blank gameweek).
func DefaultFixtureContext() FixtureContext {
	return FixtureContext{OpponentStrength: 0, FixtureDifficulty: DefaultFixtureDifficulty, IsHome: true}
}

// Static is the player's static, non-historical attributes.
type Static struct {
	Price            float64
	OwnershipPercent float64
	Form             float64
	PointsPerGame    float64
	ICTInfluence     float64
	ICTCreativity    float64
	ICTThreat        float64
}

// Build assembles the fixed feature vector for one player's target
// gameweek. history must be ordered oldest-first; only the trailing
// DefaultRollingWindow entries are used for rolling averages.
func Build(playerID, gameweek int, static Static, history []domain.PlayerGameweekPerformance, fixture FixtureContext) Vector {
	v := Vector{
		PlayerID:         playerID,
		Gameweek:         gameweek,
		Price:            static.Price,
		OwnershipPercent: static.OwnershipPercent,
		Form:             static.Form,
		PointsPerGame:    static.PointsPerGame,
		ICTInfluence:     static.ICTInfluence,
		ICTCreativity:    static.ICTCreativity,
		ICTThreat:        static.ICTThreat,
		OpponentStrength: fixture.OpponentStrength,
		FixtureDifficulty: fixture.FixtureDifficulty,
		IsHome:           fixture.IsHome,
	}
	if v.FixtureDifficulty == 0 {
		v.FixtureDifficulty = DefaultFixtureDifficulty
	}

	recent := history
	if len(recent) > DefaultRollingWindow {
		recent = recent[len(recent)-DefaultRollingWindow:]
	}
	n := float64(len(recent))
	if n == 0 {
		return v
	}

	var sumPoints, sumMinutes, sumGoals, sumAssists, sumBonus, sumBPS float64
	var sumCleanSheets, sumSaves, sumICTI, sumICTC, sumICTT float64
	var sumXG, sumXA float64
	var sumTackles, sumCBI, sumRecoveries float64

	for _, h := range recent {
		sumPoints += float64(h.ActualPoints)
		sumMinutes += float64(h.Minutes)
		sumGoals += float64(h.Goals)
		sumAssists += float64(h.Assists)
		sumBonus += float64(h.Bonus)
		sumBPS += float64(h.BPS)
		if h.CleanSheet {
			sumCleanSheets++
		}
		sumSaves += float64(h.Saves)
		sumICTI += h.ICTInfluence
		sumICTC += h.ICTCreativity
		sumICTT += h.ICTThreat
		sumXG += h.ExpectedGoals
		sumXA += h.ExpectedAssists
		sumTackles += float64(h.Tackles)
		sumCBI += float64(h.ClearancesBlocksInterceptions)
		sumRecoveries += float64(h.Recoveries)
	}

	v.AvgPoints = sumPoints / n
	v.AvgMinutes = sumMinutes / n
	v.AvgGoals = sumGoals / n
	v.AvgAssists = sumAssists / n
	v.AvgBonus = sumBonus / n
	v.AvgBPS = sumBPS / n
	v.AvgCleanSheets = sumCleanSheets / n
	v.AvgSaves = sumSaves / n
	v.AvgICTInfluence = sumICTI / n
	v.AvgICTCreativity = sumICTC / n
	v.AvgICTThreat = sumICTT / n
	v.AvgExpectedGoals = sumXG / n
	v.AvgExpectedAssists = sumXA / n
	v.AvgExpectedGoalInvolvements = v.AvgExpectedGoals + v.AvgExpectedAssists

	v.GoalsOverperformance = v.AvgGoals - v.AvgExpectedGoals
	v.AssistsOverperformance = v.AvgAssists - v.AvgExpectedAssists

	v.PointsTrendSlope = leastSquaresSlope(pointsSeries(recent))

	v.AvgTackles = sumTackles / n
	v.AvgCBI = sumCBI / n
	v.AvgRecoveries = sumRecoveries / n
	v.DefensiveContributionScore = v.AvgTackles + v.AvgCBI + v.AvgRecoveries

	v.SeasonGames = len(history)
	if v.SeasonGames > 0 {
		var totalPoints, totalMinutes, totalGoals, totalAssists, totalCS float64
		for _, h := range history {
			totalPoints += float64(h.ActualPoints)
			totalMinutes += float64(h.Minutes)
			totalGoals += float64(h.Goals)
			totalAssists += float64(h.Assists)
			if h.CleanSheet {
				totalCS++
			}
		}
		games := float64(v.SeasonGames)
		v.SeasonPointsPerGame = totalPoints / games
		v.SeasonMinutesPerGame = totalMinutes / games
		v.SeasonGoalsPerGame = totalGoals / games
		v.SeasonAssistsPerGame = totalAssists / games
		v.SeasonCleanSheetsPerGame = totalCS / games
	}

	v.MinutesReliability = clamp(v.AvgMinutes/90.0, 0, 1)
	v.AttackingThreat = 4*v.AvgGoals + 3*v.AvgAssists

	return v
}

// Sequence is the last N per-gameweek feature rows for sequence-model
// consumers, left zero-padded when history is shorter than N.
func Sequence(playerID int, targetGameweek int, static Static, history []domain.PlayerGameweekPerformance, fixtureByGameweek func(gw int) FixtureContext, n int) []Vector {
	if n <= 0 {
		n = DefaultSequenceLength
	}
	rows := make([]Vector, n)

	start := len(history) - n
	for i := 0; i < n; i++ {
		idx := start + i
		if idx < 0 {
			rows[i] = Vector{} // zero-padded
			continue
		}
		entry := history[idx]
		fx := DefaultFixtureContext()
		if fixtureByGameweek != nil {
			fx = fixtureByGameweek(entry.Gameweek)
		}
		rows[i] = Build(playerID, entry.Gameweek, static, history[:idx+1], fx)
	}
	return rows
}

func pointsSeries(history []domain.PlayerGameweekPerformance) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		out[i] = float64(h.ActualPoints)
	}
	return out
}

// leastSquaresSlope fits y = a + b*x over x = 0..len(y)-1 and returns b.
func leastSquaresSlope(y []float64) float64 {
	n := float64(len(y))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, yi := range y {
		x := float64(i)
		sumX += x
		sumY += yi
		sumXY += x * yi
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
