package intelligence

import (
	"testing"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() Roster {
	return Roster{
		"cole palmer":    123,
		"erling haaland": 456,
		"mohamed salah":  789,
		"bukayo saka":    321,
		"gabriel":        654,
	}
}

func TestClassify_ConfirmedInjuryIsHighAndActionable(t *testing.T) {
	c := New(testRoster(), DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "Cole Palmer",
		Details:           "Cole Palmer is confirmed out for six weeks with a knee injury",
		Type:              domain.SignalInjury,
		SourceReliability: 0.9,
	})

	require.NotNil(t, result.PlayerID)
	assert.Equal(t, 123, *result.PlayerID)
	assert.Equal(t, domain.SeverityHigh, result.Severity) // "weeks" -> high severity keyword
	assert.True(t, result.Actionable)
	assert.Equal(t, domain.DispositionDoubt, result.Disposition)
}

func TestClassify_RumourIsLowConfidenceAndNotActionable(t *testing.T) {
	c := New(testRoster(), DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "Haaland",
		Details:           "Haaland might be rested for the game",
		Type:              domain.SignalRotation,
		SourceReliability: 0.7,
	})

	assert.Less(t, result.Confidence, 0.6)
	assert.False(t, result.Actionable)
}

func TestClassify_SuspensionIsHighSeverity(t *testing.T) {
	c := New(testRoster(), DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "Gabriel",
		Details:           "Gabriel suspended for three games after red card",
		Type:              domain.SignalSuspension,
		SourceReliability: 0.95,
	})

	assert.Equal(t, domain.SeverityHigh, result.Severity)
	assert.Equal(t, domain.DispositionSuspended, result.Disposition)
	assert.True(t, result.Actionable)
}

func TestClassify_UnknownPlayerFailsToMatch(t *testing.T) {
	c := New(testRoster(), DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "Unknown Player",
		Details:           "Unknown Player is injured",
		Type:              domain.SignalInjury,
		SourceReliability: 0.8,
	})

	assert.Nil(t, result.PlayerID)
	assert.False(t, result.Actionable)
}

func TestClassify_FuzzyMatchesReorderedName(t *testing.T) {
	c := New(testRoster(), DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "Palmer Cole",
		Details:           "confirmed out",
		Type:              domain.SignalInjury,
		SourceReliability: 0.9,
	})

	require.NotNil(t, result.PlayerID)
	assert.Equal(t, 123, *result.PlayerID)
}

func TestClassify_LineupLeakBypassesMatchScoreGate(t *testing.T) {
	c := New(Roster{}, DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "",
		Details:           "confirmed leaked lineup: usual starter on the bench",
		Type:              domain.SignalLineupLeak,
		SourceReliability: 0.9,
	})
	// No roster match at all, yet the leak stays actionable: every
	// match-score gate, including the MEDIUM tier's, is waived.
	assert.Equal(t, domain.SeverityMedium, result.Severity)
	assert.True(t, result.Actionable)
}

func TestClassify_TokenlessLeakIsLowAndNotActionable(t *testing.T) {
	c := New(Roster{}, DefaultThresholds())
	result := c.Classify(RawIntelligence{
		PlayerName:        "",
		Details:           "confirmed starting lineup leaked",
		Type:              domain.SignalLineupLeak,
		SourceReliability: 0.9,
	})
	assert.Equal(t, domain.SeverityLow, result.Severity)
	assert.False(t, result.Actionable)
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	score := tokenSortRatio("cole palmer", "palmer cole")
	assert.Equal(t, 100.0, score)
}
