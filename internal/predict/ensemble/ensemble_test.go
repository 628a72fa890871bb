package ensemble

import (
	"context"
	"errors"
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
	"github.com/jolyonbrown/ronclanker/internal/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	out     predict.Output
	err     error
	version string
}

func (f fakePredictor) Predict(context.Context, features.Vector, []features.Vector, domain.Position, int) (predict.Output, error) {
	return f.out, f.err
}
func (f fakePredictor) Version() string { return f.version }

func TestNew_RequiresMember(t *testing.T) {
	_, err := New()
	require.Error(t, err)
}

func TestPredict_AveragesPointsAndTakesMinConfidence(t *testing.T) {
	a := fakePredictor{out: predict.Output{ExpectedPoints: 4, Confidence: 0.9}, version: "a"}
	b := fakePredictor{out: predict.Output{ExpectedPoints: 6, Confidence: 0.5}, version: "b"}

	e, err := New(a, b)
	require.NoError(t, err)

	out, err := e.Predict(context.Background(), features.Vector{}, nil, domain.MID, 10)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.ExpectedPoints)
	assert.Equal(t, 0.5, out.Confidence)
}

func TestPredict_MemberErrorPropagates(t *testing.T) {
	a := fakePredictor{out: predict.Output{ExpectedPoints: 4, Confidence: 0.9}, version: "a"}
	b := fakePredictor{err: errors.New("model unavailable"), version: "b"}

	e, err := New(a, b)
	require.NoError(t, err)

	_, err = e.Predict(context.Background(), features.Vector{}, nil, domain.MID, 10)
	require.Error(t, err)
}

func TestVersion_Composed(t *testing.T) {
	a := fakePredictor{version: "a"}
	b := fakePredictor{version: "b"}
	e, _ := New(a, b)
	assert.Equal(t, "ensemble(a+b)", e.Version())
}
