package adjust

import (
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestAdjust_UnavailableZeroesOut(t *testing.T) {
	in := Input{RawExpectedPoints: 6.0, Status: domain.Unavailable}
	trace := Adjust(in, DefaultConfig())
	assert.Equal(t, 0.0, trace.Final)
}

func TestAdjust_InjuredChanceStepFunction(t *testing.T) {
	in := Input{RawExpectedPoints: 10.0, Status: domain.Injured, ChanceOfPlaying: intPtr(25)}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 3.0, trace.Final, 1e-9)
}

func TestAdjust_SignalDoubtMultiplies(t *testing.T) {
	in := Input{
		RawExpectedPoints: 5.0,
		Status:            domain.Available,
		Signals: []domain.IntelligenceSignal{
			{Disposition: domain.DispositionDoubt, Confidence: 0.8},
		},
	}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 5.0*(1-0.2*0.8), trace.Final, 1e-9)
}

func TestAdjust_PositiveSentimentOnlyWhenAvailable(t *testing.T) {
	in := Input{
		RawExpectedPoints: 5.0,
		Status:            domain.Doubtful,
		Signals: []domain.IntelligenceSignal{
			{Disposition: domain.DispositionPositive, Confidence: 0.9},
		},
	}
	trace := Adjust(in, DefaultConfig())
	// status not "available" (doubtful), so sentiment stage is skipped entirely.
	assert.InDelta(t, 5.0, trace.Final, 1e-9)
}

func TestAdjust_CalibrationSubtractsBiasAboveSampleFloor(t *testing.T) {
	table := domain.CalibrationTable{
		ByPosition: map[domain.Position]domain.CalibrationCell{
			domain.MID: {Key: "MID", Correction: 0.8, SampleSize: 25},
		},
	}
	in := Input{RawExpectedPoints: 5.0, Status: domain.Available, Position: domain.MID, Calibration: table}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 4.2, trace.Final, 1e-9)
}

func TestAdjust_CalibrationIgnoredBelowSampleFloor(t *testing.T) {
	table := domain.CalibrationTable{
		ByPosition: map[domain.Position]domain.CalibrationCell{
			domain.MID: {Key: "MID", Correction: 0.8, SampleSize: 5},
		},
	}
	in := Input{RawExpectedPoints: 5.0, Status: domain.Available, Position: domain.MID, Calibration: table}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 5.0, trace.Final, 1e-9)
}

func TestAdjust_PremiumFloorRescuesInFormAsset(t *testing.T) {
	in := Input{RawExpectedPoints: 1.0, Status: domain.Available, NowCost: 130, Form: 7.0}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 0.6*7.0, trace.Final, 1e-9)
}

func TestAdjust_PremiumFloorDoesNotLowerAlreadyHighValue(t *testing.T) {
	in := Input{RawExpectedPoints: 9.0, Status: domain.Available, NowCost: 130, Form: 7.0}
	trace := Adjust(in, DefaultConfig())
	assert.InDelta(t, 9.0, trace.Final, 1e-9)
}

func TestAdjust_NeverNegative(t *testing.T) {
	in := Input{
		RawExpectedPoints: 2.0,
		Status:            domain.Available,
		Signals: []domain.IntelligenceSignal{
			{Disposition: domain.DispositionDoubt, Confidence: 1.0},
			{Disposition: domain.DispositionNegative, Confidence: 1.0},
		},
	}
	table := domain.CalibrationTable{
		ByPosition: map[domain.Position]domain.CalibrationCell{
			domain.MID: {Key: "MID", Correction: 10.0, SampleSize: 100},
		},
	}
	in.Calibration = table
	in.Position = domain.MID
	trace := Adjust(in, DefaultConfig())
	assert.GreaterOrEqual(t, trace.Final, 0.0)
}

func TestAdjust_UnavailableOverridesPositiveNews(t *testing.T) {
	in := Input{
		RawExpectedPoints: 7.5,
		Status:            domain.Unavailable,
		Signals: []domain.IntelligenceSignal{
			{Disposition: domain.DispositionPositive, Confidence: 0.9},
		},
	}
	trace := Adjust(in, DefaultConfig())
	assert.Equal(t, 0.0, trace.Final)
}
