// Package predict defines the Predictor capability contract. Concrete
// implementations (package predict/baseline, predict/ensemble) supply
// expected points for a feature vector; training is offline and out of
// scope for this core.
package predict

import (
	"context"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
)

// Output is the result of one prediction: expected points (>= 0) with a
// confidence in [0,1].
type Output struct {
	ExpectedPoints float64
	Confidence     float64
}

// Predictor is the capability every prediction implementation satisfies.
// Implementations must be deterministic for a given (feature vector,
// model version) pair.
type Predictor interface {
	Predict(ctx context.Context, vector features.Vector, sequence []features.Vector, position domain.Position, gameweek int) (Output, error)
	Version() string
}

// Request bundles one player's prediction inputs for batch use by the
// workflow orchestrator's per-player fan-out stage.
type Request struct {
	PlayerID int
	Position domain.Position
	Gameweek int
	Vector   features.Vector
	Sequence []features.Vector
}

// Result pairs a Request's PlayerID with its Output, or an error when the
// predictor could not cover that player; the optimiser must refuse to
// draft when any current-squad player is missing a prediction.
type Result struct {
	PlayerID int
	Output   Output
	Err      error
}
