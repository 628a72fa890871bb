package planner

import (
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAnalyzeFixtures_Verdicts(t *testing.T) {
	easy := AnalyzeFixtures(1, []FixtureDifficulty{{1, 2}, {2, 2}, {3, 2}})
	assert.Equal(t, Target, easy.Verdict)

	hard := AnalyzeFixtures(2, []FixtureDifficulty{{1, 4}, {2, 4}, {3, 4}})
	assert.Equal(t, Avoid, hard.Verdict)

	mid := AnalyzeFixtures(3, []FixtureDifficulty{{1, 3}, {2, 3}, {3, 3}})
	assert.Equal(t, Hold, mid.Verdict)
}

func TestAnalyzeFixtures_DetectsFavourableSwing(t *testing.T) {
	window := []FixtureDifficulty{{1, 4}, {2, 4}, {3, 3}, {4, 2}, {5, 2}, {6, 2}}
	a := AnalyzeFixtures(1, window)
	assert.Equal(t, Favourable, a.Swing)
}

func TestWorthHit(t *testing.T) {
	assert.Equal(t, Take, WorthHit(8))
	assert.Equal(t, Take, WorthHit(5))
	assert.Equal(t, WaitForFT, WorthHit(4.5))
	assert.Equal(t, Skip, WorthHit(3))
}

func TestSequenceTransfers_ForcesUrgentAheadOfDiscretionary(t *testing.T) {
	targets := []TransferTarget{
		{PlayerOutID: 1, PlayerInID: 2, Priority: 5, ExpectedGain: 3, LatestByGW: 0},
		{PlayerOutID: 3, PlayerInID: 4, Priority: 1, ExpectedGain: 6, LatestByGW: 10},
	}
	bundles := SequenceTransfers(targets, 10, 12, 1, 5, 4)
	assert.NotEmpty(t, bundles)
	assert.Contains(t, bundleTargets(bundles[0]), 4)
}

func bundleTargets(b GameweekBundle) []int {
	var ids []int
	for _, t := range b.Scheduled {
		ids = append(ids, t.PlayerInID)
	}
	return ids
}

func TestRecommendWildcard_FirstHalfWindow(t *testing.T) {
	rec := RecommendWildcard(8, domain.FirstHalf, 19, nil)
	assert.Equal(t, 10, rec.WindowStart)
	assert.Equal(t, 15, rec.WindowEnd)
}

func TestRecommendWildcard_UrgentNearDeadline(t *testing.T) {
	rec := RecommendWildcard(18, domain.FirstHalf, 19, nil)
	assert.Equal(t, UrgencyHigh, rec.Urgency)
}

func TestRecommendBenchBoost_TargetsBestDouble(t *testing.T) {
	doubles := []DoubleGameweek{{Gameweek: 25, ClubsPlaying: 4}, {Gameweek: 30, ClubsPlaying: 8}}
	rec := RecommendBenchBoost(20, 38, doubles)
	assert.Equal(t, 30, rec.WindowStart)
}

func TestRecommendFreeHit_PrefersBlank(t *testing.T) {
	rec := RecommendFreeHit(20, 38, []BlankGameweek{{Gameweek: 33}})
	assert.Equal(t, 33, rec.WindowStart)
}

func TestTrackValue_ComputesProfitAndTrend(t *testing.T) {
	picks := []PickCost{{PlayerID: 1, PurchasePrice: 60, CurrentPrice: 65}}
	signals := map[int]PriceSignal{1: {PlayerID: 1, RisingProbability: 0.8}}
	values := TrackValue(picks, signals)
	assert.Equal(t, 62, values[0].SellingPrice)
	assert.Equal(t, TrendRising, values[0].Trend)
}
