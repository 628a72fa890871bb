package calibration

import (
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func rows() []PredictionActual {
	return []PredictionActual{
		{PlayerID: 1, Position: domain.MID, NowCost: 120, Expected: 6, Actual: 4},
		{PlayerID: 2, Position: domain.MID, NowCost: 120, Expected: 5, Actual: 3},
		{PlayerID: 3, Position: domain.DEF, NowCost: 50, Expected: 3, Actual: 5},
	}
}

func TestReview_ComputesOverallAndBreakdowns(t *testing.T) {
	review := Review(10, rows())
	assert.Equal(t, 3, review.Overall.SampleSize)
	assert.Equal(t, 2, review.ByPosition[domain.MID].SampleSize)
	assert.Greater(t, review.ByPosition[domain.MID].MeanError, 0.0) // overpredicted
	assert.Less(t, review.ByPosition[domain.DEF].MeanError, 0.0)    // underpredicted
}

func TestUpdateCalibration_OnlyUpdatesAboveSampleFloor(t *testing.T) {
	review := Review(10, rows())
	table := UpdateCalibration(domain.CalibrationTable{}, review, 2, 30)
	_, hasMID := table.ByPosition[domain.MID]
	_, hasDEF := table.ByPosition[domain.DEF]
	assert.True(t, hasMID)
	assert.False(t, hasDEF) // sample size 1 < floor 2
}

func TestLearnThresholds_LowersOnConsistentOverperformance(t *testing.T) {
	outcomes := make([]TransferOutcome, 6)
	for i := range outcomes {
		outcomes[i] = TransferOutcome{Position: domain.FWD, ExpectedGain: 2.0, ActualGain: 4.0}
	}
	next := LearnThresholds(map[domain.Position]float64{domain.FWD: 2.0}, outcomes, 5)
	assert.Equal(t, 1.75, next[domain.FWD])
}

func TestLearnThresholds_RaisesOnConsistentUnderperformance(t *testing.T) {
	outcomes := make([]TransferOutcome, 6)
	for i := range outcomes {
		outcomes[i] = TransferOutcome{Position: domain.FWD, ExpectedGain: 3.0, ActualGain: 1.5}
	}
	next := LearnThresholds(map[domain.Position]float64{domain.FWD: 2.0}, outcomes, 5)
	assert.Equal(t, 2.25, next[domain.FWD])
}

func TestLearnThresholds_LeavesUnchangedBelowSampleGate(t *testing.T) {
	outcomes := []TransferOutcome{{Position: domain.FWD, ExpectedGain: 2.0, ActualGain: 10.0}}
	next := LearnThresholds(map[domain.Position]float64{domain.FWD: 2.0}, outcomes, 5)
	assert.Equal(t, 2.0, next[domain.FWD])
}

func TestPointsLeftOnTable_NeverNegative(t *testing.T) {
	gap := PointsLeftOnTable(CaptainOutcome{CaptainActualPoints: 20, BestPossiblePoints: 12})
	assert.Equal(t, 0.0, gap)
}

func TestCaptainTrend(t *testing.T) {
	assert.Zero(t, CaptainTrend(nil))

	reviews := []domain.CaptainReview{
		{Gameweek: 5, PointsLeft: 0},
		{Gameweek: 6, PointsLeft: 6},
		{Gameweek: 7, PointsLeft: 3},
	}
	assert.InDelta(t, 3.0, CaptainTrend(reviews), 1e-9)
}
