package optimizer

import (
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeakestLink_PicksLowestExpectedPoints(t *testing.T) {
	squad := domain.Squad{Picks: []domain.Pick{{PlayerID: 1}, {PlayerID: 2}, {PlayerID: 3}}}
	byPlayer := map[int]PlayerInfo{
		1: {PlayerID: 1, ExpectedPoints: 5.0},
		2: {PlayerID: 2, ExpectedPoints: 1.2},
		3: {PlayerID: 3, ExpectedPoints: 4.0},
	}
	id, err := WeakestLink(squad, byPlayer)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestFindReplacement_RespectsHeadroomChanceAndPosition(t *testing.T) {
	cfg := DefaultConfig()
	pool := []PlayerInfo{
		{PlayerID: 10, Position: domain.MID, NowCost: 75, ExpectedPoints: 6.0, ChanceOfPlaying: intPtr(100)},
		{PlayerID: 11, Position: domain.MID, NowCost: 90, ExpectedPoints: 9.0, ChanceOfPlaying: intPtr(100)}, // too pricey
		{PlayerID: 12, Position: domain.MID, NowCost: 70, ExpectedPoints: 5.0, ChanceOfPlaying: intPtr(50)},  // chance too low
		{PlayerID: 13, Position: domain.DEF, NowCost: 70, ExpectedPoints: 8.0, ChanceOfPlaying: intPtr(100)}, // wrong position
	}
	best, found := FindReplacement(pool, map[int]bool{}, domain.MID, 80, cfg)
	require.True(t, found)
	assert.Equal(t, 10, best.PlayerID)
}

func intPtr(v int) *int { return &v }

func TestEvaluateTransfer_FreeTransferWithinThreshold(t *testing.T) {
	accept, hit, _ := EvaluateTransfer(domain.MID, 2.5, 1, domain.SeverityLow, DefaultConfig())
	assert.True(t, accept)
	assert.False(t, hit)
}

func TestEvaluateTransfer_StrongHitJustified(t *testing.T) {
	accept, hit, _ := EvaluateTransfer(domain.MID, 9.0, 0, domain.SeverityLow, DefaultConfig())
	assert.True(t, accept)
	assert.True(t, hit)
}

func TestEvaluateTransfer_MarginalHitNeedsHighSeverity(t *testing.T) {
	accept, _, _ := EvaluateTransfer(domain.MID, 6.0, 0, domain.SeverityLow, DefaultConfig())
	assert.False(t, accept)

	accept, hit, _ := EvaluateTransfer(domain.MID, 6.0, 0, domain.SeverityHigh, DefaultConfig())
	assert.True(t, accept)
	assert.True(t, hit)
}

func TestEvaluateTransfer_RolledWhenInsufficientGain(t *testing.T) {
	accept, _, _ := EvaluateTransfer(domain.MID, 1.0, 1, domain.SeverityLow, DefaultConfig())
	assert.False(t, accept)
}

func TestShouldRecommendWildcard(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, ShouldRecommendWildcard(3, true, cfg))
	assert.False(t, ShouldRecommendWildcard(2, true, cfg))
	assert.False(t, ShouldRecommendWildcard(4, false, cfg))
}

func TestSelectFormation_MaximisesTotalAndBreaksTies(t *testing.T) {
	byPosition := map[domain.Position][]PlayerInfo{
		domain.GK:  {{PlayerID: 1, ExpectedPoints: 4}, {PlayerID: 2, ExpectedPoints: 2}},
		domain.DEF: {{PlayerID: 3, ExpectedPoints: 5}, {PlayerID: 4, ExpectedPoints: 5}, {PlayerID: 5, ExpectedPoints: 4}, {PlayerID: 6, ExpectedPoints: 1}, {PlayerID: 7, ExpectedPoints: 0.5}},
		domain.MID: {{PlayerID: 8, ExpectedPoints: 6}, {PlayerID: 9, ExpectedPoints: 5}, {PlayerID: 10, ExpectedPoints: 4}, {PlayerID: 11, ExpectedPoints: 0.2}, {PlayerID: 12, ExpectedPoints: 0.1}},
		domain.FWD: {{PlayerID: 13, ExpectedPoints: 7}, {PlayerID: 14, ExpectedPoints: 0.3}, {PlayerID: 15, ExpectedPoints: 0.2}},
	}
	formation, ids, total := SelectFormation(byPosition)
	assert.Equal(t, 1, formation.gk)
	assert.Equal(t, 11, len(ids))
	assert.Greater(t, total, 0.0)
}

func TestAssignCaptainVice_PrefersDifferentClubForVice(t *testing.T) {
	byPlayer := map[int]PlayerInfo{
		1: {PlayerID: 1, ExpectedPoints: 9.0, ClubID: 100},
		2: {PlayerID: 2, ExpectedPoints: 7.0, ClubID: 100},
		3: {PlayerID: 3, ExpectedPoints: 6.0, ClubID: 200},
	}
	captain, vice := AssignCaptainVice([]int{1, 2, 3}, byPlayer)
	assert.Equal(t, 1, captain)
	assert.Equal(t, 3, vice)
}

func TestBuildDraft_RevalidatesAgainstRules(t *testing.T) {
	squad := buildTestSquad()
	byPlayer := buildTestPredictions()

	posFor := func(id int) domain.Position { return byPlayer[id].Position }
	clubFor := func(id int) int { return byPlayer[id].ClubID }

	result, err := BuildDraft(squad, 10, byPlayer, false, rules.DefaultConstraints(), posFor, clubFor)
	require.NoError(t, err)
	assert.NotZero(t, result.CaptainID)
	assert.NotZero(t, result.ViceID)
	assert.NotEqual(t, result.CaptainID, result.ViceID)
	assert.Len(t, result.Draft.Picks, 15)
}

func buildTestSquad() domain.Squad {
	picks := []domain.Pick{}
	for i := 1; i <= 15; i++ {
		picks = append(picks, domain.Pick{PlayerID: i, Slot: i, PurchasePrice: 50, SellingPrice: 50})
	}
	return domain.Squad{ManagerID: 1, Picks: picks}
}

func buildTestPredictions() map[int]PlayerInfo {
	pos := func(id int) domain.Position {
		switch {
		case id <= 2:
			return domain.GK
		case id <= 7:
			return domain.DEF
		case id <= 12:
			return domain.MID
		default:
			return domain.FWD
		}
	}
	out := map[int]PlayerInfo{}
	for i := 1; i <= 15; i++ {
		out[i] = PlayerInfo{PlayerID: i, Position: pos(i), ClubID: i % 10, ExpectedPoints: float64(20 - i)}
	}
	return out
}
