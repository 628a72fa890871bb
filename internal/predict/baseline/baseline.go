// Package baseline implements the stock Predictor: a
// position-specialised, deterministic weighted-component scorer. A fixed,
// versioned weight vector per position is combined with the feature row
// by a straight weighted sum.
//
// Training (fitting the weight vectors from historical gameweek records)
// happens offline; this package only consumes the resulting artifact.
package baseline

import (
	"context"
	"fmt"
	"math"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
	"github.com/jolyonbrown/ronclanker/internal/predict"
)

// ModelVersion identifies this weight artifact. Any change to the feature
// list in package features, or to the weights below, must bump this.
const ModelVersion = "baseline-gbm-v1"

// Weights is one position's trained coefficient vector. Field names match
// features.Vector members they multiply.
type Weights struct {
	Intercept                  float64
	Form                       float64
	PointsPerGame              float64
	AvgPoints                  float64
	AvgGoals                   float64
	AvgAssists                 float64
	AvgBonus                   float64
	AvgCleanSheets             float64
	AvgSaves                   float64
	PointsTrendSlope           float64
	GoalsOverperformance       float64
	AssistsOverperformance     float64
	MinutesReliability         float64
	AttackingThreat            float64
	DefensiveContributionScore float64
	FixtureDifficultyPenalty   float64 // multiplies (3 - difficulty), positive favours easy fixtures
	HomeBonus                  float64
}

// WeightSet is a versioned, position-keyed artifact: what an offline
// training loop persists and this predictor loads.
type WeightSet struct {
	Version string
	ByPosition map[domain.Position]Weights
}

// DefaultWeights returns a hand-seeded starting artifact — the values a
// from-scratch training run would refine. They encode the obvious domain
// priors (attacking returns dominate for MID/FWD, clean sheets and
// defensive contribution dominate for GK/DEF) while the other components
// are trained corrections.
func DefaultWeights() WeightSet {
	return WeightSet{
		Version: ModelVersion,
		ByPosition: map[domain.Position]Weights{
			domain.GK: {
				Intercept: 1.2, Form: 0.35, PointsPerGame: 0.30, AvgPoints: 0.25,
				AvgCleanSheets: 2.2, AvgSaves: 0.35, MinutesReliability: 1.0,
				FixtureDifficultyPenalty: 0.25, HomeBonus: 0.15,
			},
			domain.DEF: {
				Intercept: 1.0, Form: 0.30, PointsPerGame: 0.30, AvgPoints: 0.20,
				AvgGoals: 3.0, AvgAssists: 1.8, AvgCleanSheets: 1.8,
				DefensiveContributionScore: 0.18, MinutesReliability: 1.0,
				PointsTrendSlope: 0.20, GoalsOverperformance: 0.4, AssistsOverperformance: 0.3,
				FixtureDifficultyPenalty: 0.30, HomeBonus: 0.15,
			},
			domain.MID: {
				Intercept: 0.9, Form: 0.35, PointsPerGame: 0.30, AvgPoints: 0.22,
				AvgGoals: 2.6, AvgAssists: 1.7, AvgCleanSheets: 0.5,
				DefensiveContributionScore: 0.10, AttackingThreat: 0.12,
				MinutesReliability: 1.0, PointsTrendSlope: 0.25,
				GoalsOverperformance: 0.45, AssistsOverperformance: 0.35,
				FixtureDifficultyPenalty: 0.28, HomeBonus: 0.18,
			},
			domain.FWD: {
				Intercept: 0.8, Form: 0.38, PointsPerGame: 0.32, AvgPoints: 0.22,
				AvgGoals: 2.2, AvgAssists: 1.4, AttackingThreat: 0.16,
				MinutesReliability: 1.0, PointsTrendSlope: 0.25,
				GoalsOverperformance: 0.5, AssistsOverperformance: 0.3,
				FixtureDifficultyPenalty: 0.32, HomeBonus: 0.2,
			},
		},
	}
}

// Predictor is the baseline linear scorer: one weight vector per position,
// combined with the feature row by a weighted sum.
type Predictor struct {
	weights WeightSet
}

// New constructs a baseline Predictor from a loaded weight artifact.
func New(weights WeightSet) *Predictor {
	return &Predictor{weights: weights}
}

var _ predict.Predictor = (*Predictor)(nil)

func (p *Predictor) Version() string { return p.weights.Version }

// Predict computes expected points deterministically from vector alone;
// sequence is accepted for interface parity with sequence-model
// predictors but unused by this implementation.
func (p *Predictor) Predict(_ context.Context, v features.Vector, _ []features.Vector, position domain.Position, _ int) (predict.Output, error) {
	w, ok := p.weights.ByPosition[position]
	if !ok {
		return predict.Output{}, fmt.Errorf("baseline predictor: no weights for position %s", position)
	}

	score := w.Intercept +
		w.Form*v.Form +
		w.PointsPerGame*v.PointsPerGame +
		w.AvgPoints*v.AvgPoints +
		w.AvgGoals*v.AvgGoals +
		w.AvgAssists*v.AvgAssists +
		w.AvgBonus*v.AvgBonus +
		w.AvgCleanSheets*v.AvgCleanSheets +
		w.AvgSaves*v.AvgSaves +
		w.PointsTrendSlope*v.PointsTrendSlope +
		w.GoalsOverperformance*v.GoalsOverperformance +
		w.AssistsOverperformance*v.AssistsOverperformance +
		w.MinutesReliability*v.MinutesReliability +
		w.AttackingThreat*v.AttackingThreat +
		w.DefensiveContributionScore*v.DefensiveContributionScore +
		w.FixtureDifficultyPenalty*(3.0-float64(v.FixtureDifficulty))

	if v.IsHome {
		score += w.HomeBonus
	}

	if score < 0 {
		score = 0
	}

	confidence := confidenceFor(v)

	return predict.Output{ExpectedPoints: score, Confidence: confidence}, nil
}

// confidenceFor derives a confidence score from how much history backs the
// vector: more appearances and higher minutes reliability both raise it.
func confidenceFor(v features.Vector) float64 {
	gameWeight := math.Min(float64(v.SeasonGames)/10.0, 1.0)
	c := 0.4 + 0.3*gameWeight + 0.3*v.MinutesReliability
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
