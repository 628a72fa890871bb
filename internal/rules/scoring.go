// Package rules is the closed-form truth about what is legal and how
// points are computed: the Rules & Scoring Engine. Every function here is
// deterministic, allocation-light on the hot path, and side-effect free.
package rules

import (
	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// Scoring point values for the 2025/26 season.
const (
	pointsMinutes1to59GKDEF = 1
	pointsMinutes60Plus     = 2

	pointsGoalGK  = 10
	pointsGoalDEF = 6
	pointsGoalMID = 5
	pointsGoalFWD = 4

	pointsAssist = 3

	pointsCleanSheetGKDEF = 4
	pointsCleanSheetMID   = 1
	pointsCleanSheetFWD   = 0

	pointsGoalsConcededPer2 = -1
	pointsSavesPer3         = 1

	pointsPenaltySaved  = 5
	pointsPenaltyMissed = -2
	pointsOwnGoal       = -2
	pointsYellowCard    = -1
	pointsRedCard       = -3

	// Defensive Contribution (new for 2025/26).
	defContributionThresholdDEF = 10
	defContributionThresholdMID = 12
	defContributionPoints       = 2
)

// PointsBreakdown itemises every component of a scored performance; Total
// is the sum of all other fields.
type PointsBreakdown struct {
	Minutes                int
	Goals                  int
	Assists                int
	CleanSheets            int
	GoalsConceded          int
	Saves                  int
	PenaltiesSaved         int
	PenaltiesMissed        int
	YellowCards            int
	RedCards               int
	OwnGoals               int
	Bonus                  int
	DefensiveContribution  int
	Total                  int
}

// Score computes the official points breakdown for one player's recorded
// performance in one gameweek.
func Score(p domain.PlayerGameweekPerformance, pos domain.Position) PointsBreakdown {
	b := PointsBreakdown{}

	switch pos {
	case domain.GK, domain.DEF:
		if p.Minutes > 0 && p.Minutes < 60 {
			b.Minutes = pointsMinutes1to59GKDEF
		} else if p.Minutes >= 60 {
			b.Minutes = pointsMinutes60Plus
		}
	default:
		if p.Minutes >= 60 {
			b.Minutes = pointsMinutes60Plus
		}
	}

	switch pos {
	case domain.GK:
		b.Goals = p.Goals * pointsGoalGK
	case domain.DEF:
		b.Goals = p.Goals * pointsGoalDEF
	case domain.MID:
		b.Goals = p.Goals * pointsGoalMID
	case domain.FWD:
		b.Goals = p.Goals * pointsGoalFWD
	}

	b.Assists = p.Assists * pointsAssist

	if p.Minutes >= 60 && p.CleanSheet {
		switch pos {
		case domain.GK, domain.DEF:
			b.CleanSheets = pointsCleanSheetGKDEF
		case domain.MID:
			b.CleanSheets = pointsCleanSheetMID
		case domain.FWD:
			b.CleanSheets = pointsCleanSheetFWD
		}
	}

	if pos == domain.GK || pos == domain.DEF {
		b.GoalsConceded = (p.GoalsConceded / 2) * pointsGoalsConcededPer2
	}

	if pos == domain.GK {
		b.Saves = (p.Saves / 3) * pointsSavesPer3
	}

	b.PenaltiesSaved = p.PenaltiesSaved * pointsPenaltySaved
	b.PenaltiesMissed = p.PenaltiesMissed * pointsPenaltyMissed
	b.YellowCards = p.YellowCards * pointsYellowCard
	b.RedCards = p.RedCards * pointsRedCard
	b.OwnGoals = p.OwnGoals * pointsOwnGoal
	b.Bonus = p.Bonus

	switch pos {
	case domain.DEF:
		total := p.Tackles + p.Interceptions + p.ClearancesBlocksInterceptions
		if total >= defContributionThresholdDEF {
			b.DefensiveContribution = defContributionPoints
		}
	case domain.MID:
		total := p.Tackles + p.Interceptions + p.ClearancesBlocksInterceptions + p.Recoveries
		if total >= defContributionThresholdMID {
			b.DefensiveContribution = defContributionPoints
		}
	}

	b.Total = b.Minutes + b.Goals + b.Assists + b.CleanSheets + b.GoalsConceded +
		b.Saves + b.PenaltiesSaved + b.PenaltiesMissed + b.YellowCards + b.RedCards +
		b.OwnGoals + b.Bonus + b.DefensiveContribution

	return b
}

// DifficultyMultiplier maps a 1..5 fixture difficulty rating (1 easiest) to
// the attacking-component scaling factor used by ExpectedPointsFallback.
func DifficultyMultiplier(difficulty int) float64 {
	switch difficulty {
	case 1:
		return 1.30
	case 2:
		return 1.15
	case 3:
		return 1.00
	case 4:
		return 0.85
	case 5:
		return 0.70
	default:
		return 1.00
	}
}

// Per90Rates is the rate vector ExpectedPointsFallback needs; callers
// derive it from season or rolling totals.
type Per90Rates struct {
	Goals                         float64
	Assists                       float64
	CleanSheetProbability         float64
	Tackles                       float64
	Interceptions                 float64
	ClearancesBlocksInterceptions float64
	Recoveries                    float64
	BonusPerGame                  float64
}

// ExpectedPointsFallback is the closed-form expected-points utility, used
// only when the trained Predictor is unavailable. It scales attacking
// per-90 rates by fixture difficulty and
// a minutes-probability, and thresholds the defensive-contribution
// probability on the per-90 average rather than simulating a discrete
// outcome.
func ExpectedPointsFallback(pos domain.Position, rates Per90Rates, difficulty int, minutesProbability float64) float64 {
	if minutesProbability <= 0 {
		return 0
	}
	mult := DifficultyMultiplier(difficulty)

	expGoals := rates.Goals * mult
	expAssists := rates.Assists * mult
	expCleanSheet := rates.CleanSheetProbability * mult

	var points float64
	if minutesProbability >= 60.0/90.0 {
		points += pointsMinutes60Plus
	} else if (pos == domain.GK || pos == domain.DEF) && minutesProbability > 0 {
		points += pointsMinutes1to59GKDEF
	}

	switch pos {
	case domain.GK:
		points += expGoals * pointsGoalGK
	case domain.DEF:
		points += expGoals * pointsGoalDEF
	case domain.MID:
		points += expGoals * pointsGoalMID
	case domain.FWD:
		points += expGoals * pointsGoalFWD
	}
	points += expAssists * pointsAssist

	switch pos {
	case domain.GK, domain.DEF:
		points += expCleanSheet * pointsCleanSheetGKDEF
	case domain.MID:
		points += expCleanSheet * pointsCleanSheetMID
	}

	points += rates.BonusPerGame

	switch pos {
	case domain.DEF:
		avg := rates.Tackles + rates.Interceptions + rates.ClearancesBlocksInterceptions
		if avg >= defContributionThresholdDEF {
			points += defContributionPoints * 0.80
		} else {
			points += defContributionPoints * 0.30
		}
	case domain.MID:
		avg := rates.Tackles + rates.Interceptions + rates.ClearancesBlocksInterceptions + rates.Recoveries
		if avg >= defContributionThresholdMID {
			points += defContributionPoints * 0.70
		} else {
			points += defContributionPoints * 0.20
		}
	}

	result := points * minutesProbability
	if result < 0 {
		return 0
	}
	return result
}
