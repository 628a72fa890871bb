// Package ensemble supplies an optional equal-weighted combination of
// multiple Predictor members: a way to blend a baseline linear model with
// a richer one without committing to either as the system of record. Any
// member's error fails the combined prediction.
package ensemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
	"github.com/jolyonbrown/ronclanker/internal/predict"
)

// Ensemble averages ExpectedPoints across its members and takes the
// minimum reported Confidence, so a disagreeing or low-confidence member
// pulls the combined signal down rather than being washed out.
type Ensemble struct {
	members []predict.Predictor
}

// New builds an Ensemble from at least one member. Order is preserved for
// Version() composition but does not affect the computed output.
func New(members ...predict.Predictor) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ensemble predictor: at least one member required")
	}
	return &Ensemble{members: members}, nil
}

var _ predict.Predictor = (*Ensemble)(nil)

// Version concatenates member versions so the calibration table can key
// on exactly which combination produced a given prediction.
func (e *Ensemble) Version() string {
	parts := make([]string, len(e.members))
	for i, m := range e.members {
		parts[i] = m.Version()
	}
	return "ensemble(" + strings.Join(parts, "+") + ")"
}

// Predict fans out to every member and combines their outputs. A member
// error is fatal to the whole prediction: a squad member missing a
// prediction must block downstream optimisation rather than silently
// degrade to fewer votes.
func (e *Ensemble) Predict(ctx context.Context, vector features.Vector, sequence []features.Vector, position domain.Position, gameweek int) (predict.Output, error) {
	var sumPoints float64
	minConfidence := 1.0

	for _, m := range e.members {
		out, err := m.Predict(ctx, vector, sequence, position, gameweek)
		if err != nil {
			return predict.Output{}, fmt.Errorf("ensemble member %s: %w", m.Version(), err)
		}
		sumPoints += out.ExpectedPoints
		if out.Confidence < minConfidence {
			minConfidence = out.Confidence
		}
	}

	return predict.Output{
		ExpectedPoints: sumPoints / float64(len(e.members)),
		Confidence:     minConfidence,
	}, nil
}
