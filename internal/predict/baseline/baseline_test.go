package baseline

import (
	"context"
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_Deterministic(t *testing.T) {
	p := New(DefaultWeights())
	v := features.Vector{AvgPoints: 5, Form: 4.5, PointsPerGame: 4.0, AvgGoals: 0.4, AvgAssists: 0.2, MinutesReliability: 1, FixtureDifficulty: 2, IsHome: true}

	out1, err := p.Predict(context.Background(), v, nil, domain.MID, 10)
	require.NoError(t, err)
	out2, err := p.Predict(context.Background(), v, nil, domain.MID, 10)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Greater(t, out1.ExpectedPoints, 0.0)
}

func TestPredict_UnknownPositionErrors(t *testing.T) {
	p := New(WeightSet{Version: "empty", ByPosition: map[domain.Position]Weights{}})
	_, err := p.Predict(context.Background(), features.Vector{}, nil, domain.FWD, 1)
	require.Error(t, err)
}

func TestPredict_NeverNegative(t *testing.T) {
	p := New(DefaultWeights())
	v := features.Vector{FixtureDifficulty: 5, MinutesReliability: 0}
	out, err := p.Predict(context.Background(), v, nil, domain.GK, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.ExpectedPoints, 0.0)
}

func TestVersion(t *testing.T) {
	p := New(DefaultWeights())
	assert.Equal(t, ModelVersion, p.Version())
}

func TestConfidence_RisesWithHistory(t *testing.T) {
	p := New(DefaultWeights())
	thin := features.Vector{SeasonGames: 1, MinutesReliability: 0.2}
	rich := features.Vector{SeasonGames: 20, MinutesReliability: 1.0}

	outThin, _ := p.Predict(context.Background(), thin, nil, domain.MID, 1)
	outRich, _ := p.Predict(context.Background(), rich, nil, domain.MID, 1)
	assert.Less(t, outThin.Confidence, outRich.Confidence)
}
