// Package intelligence classifies raw out-of-band signals (injury news,
// press-conference quotes, lineup leaks) before they are allowed to
// influence a prediction. It assigns a confidence score from language
// patterns, fuzzy-matches the mentioned name against the known player
// roster, assigns a severity, and gates actionability.
package intelligence

import (
	"strings"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// Thresholds configures the actionability gate.
type Thresholds struct {
	MinConfidence float64
	MinMatchScore float64
}

// DefaultThresholds returns the stock actionability gate.
func DefaultThresholds() Thresholds {
	return Thresholds{MinConfidence: 0.6, MinMatchScore: 70.0}
}

var highConfidenceWords = []string{
	"confirmed", "official", "announced", "definitely",
	"ruled out", "sidelined", "suspended", "banned",
}

var mediumConfidenceWords = []string{
	"expected", "likely", "probably", "should be",
	"set to", "looks like",
}

var lowConfidenceWords = []string{
	"might", "could", "possibly", "may",
	"rumor", "rumour", "speculation", "unconfirmed",
}

var criticalSeverityWords = []string{
	"long-term", "season", "months", "surgery",
	"acl", "cruciate", "fracture", "broken",
}

var highSeverityWords = []string{
	"weeks", "out for", "major", "serious",
	"suspended", "banned", "red card",
}

var mediumSeverityWords = []string{
	"doubtful", "fitness test", "assessed",
	"rotation", "rested", "bench",
}

// RawIntelligence is one piece of unclassified signal from an external
// source, prior to player matching or severity assignment.
type RawIntelligence struct {
	SourceID          string
	PlayerName        string
	Details           string
	Type              domain.SignalType
	SourceReliability float64
}

// Roster maps a lowercased player name to its FPL player ID, the lookup
// table Classify fuzzy-matches against.
type Roster map[string]int

// Classifier turns RawIntelligence into a domain.IntelligenceSignal.
type Classifier struct {
	roster     Roster
	idToName   map[int]string
	thresholds Thresholds
}

// New builds a Classifier over the given roster snapshot.
func New(roster Roster, thresholds Thresholds) *Classifier {
	idToName := make(map[int]string, len(roster))
	for name, id := range roster {
		idToName[id] = name
	}
	return &Classifier{roster: roster, idToName: idToName, thresholds: thresholds}
}

// Classify scores one raw signal end to end.
func (c *Classifier) Classify(raw RawIntelligence) domain.IntelligenceSignal {
	details := strings.ToLower(raw.Details)

	confidence := assessConfidence(details, raw.SourceReliability)
	playerID, matchedName, matchScore := c.matchPlayer(raw.PlayerName)
	severity := assessSeverity(details, raw.Type)
	disposition := dispositionFor(raw.Type, details)
	actionable := c.isActionable(confidence, severity, matchScore, raw.Type)

	var idPtr *int
	if playerID != 0 {
		id := playerID
		idPtr = &id
	}

	return domain.IntelligenceSignal{
		SourceID:          raw.SourceID,
		SourceReliability: raw.SourceReliability,
		RawType:           raw.Type,
		PlayerID:          idPtr,
		MatchedName:       matchedName,
		MatchScore:        matchScore,
		Confidence:        confidence,
		Severity:          severity,
		Disposition:       disposition,
		Actionable:        actionable,
		Detail:            raw.Details,
	}
}

func assessConfidence(text string, base float64) float64 {
	confidence := base

	if containsAny(text, highConfidenceWords) {
		confidence += 0.2
	} else if containsAny(text, mediumConfidenceWords) {
		confidence += 0.1
	}

	if containsAny(text, lowConfidenceWords) {
		confidence -= 0.2
	}

	return clamp01(confidence)
}

func assessSeverity(text string, intelType domain.SignalType) domain.Severity {
	switch {
	case containsAny(text, criticalSeverityWords):
		return domain.SeverityCritical
	case containsAny(text, highSeverityWords):
		return domain.SeverityHigh
	case containsAny(text, mediumSeverityWords):
		return domain.SeverityMedium
	}

	switch intelType {
	case domain.SignalSuspension, domain.SignalInjury:
		return domain.SeverityHigh
	case domain.SignalRotation:
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// dispositionFor maps a classified signal onto the coarse disposition the
// prediction adjuster consumes: whether the player is out,
// a doubt, suspended, or the news is actually positive (returning from
// injury, nailed-on selection confirmed).
func dispositionFor(intelType domain.SignalType, text string) domain.SignalDisposition {
	switch intelType {
	case domain.SignalSuspension:
		return domain.DispositionSuspended
	case domain.SignalInjury:
		if containsAny(text, []string{"ruled out", "sidelined", "confirmed out", "surgery"}) {
			return domain.DispositionInjured
		}
		return domain.DispositionDoubt
	case domain.SignalPressConference:
		if containsAny(text, []string{"fit", "available", "back in training", "return"}) {
			return domain.DispositionPositive
		}
		return domain.DispositionNeutral
	case domain.SignalLineupLeak:
		if containsAny(text, []string{"starts", "starting", "in the squad"}) {
			return domain.DispositionPositive
		}
		return domain.DispositionNegative
	}
	return domain.DispositionNeutral
}

// isActionable returns false at the first failing gate: the confidence
// and match-score floors apply to every signal, then a severity-specific
// bar decides (critical signals pass once the floors are met).
func (c *Classifier) isActionable(confidence float64, severity domain.Severity, matchScore float64, intelType domain.SignalType) bool {
	// Lineup leaks rarely carry a cleanly-matchable name, so every
	// match-score gate is waived for them; confidence gates still apply.
	matchOK := func(floor float64) bool {
		return intelType == domain.SignalLineupLeak || matchScore >= floor
	}

	if confidence < c.thresholds.MinConfidence {
		return false
	}
	if !matchOK(c.thresholds.MinMatchScore) {
		return false
	}

	switch severity {
	case domain.SeverityCritical:
		return true
	case domain.SeverityHigh:
		return confidence >= 0.7 && matchOK(75.0)
	case domain.SeverityMedium:
		return confidence >= 0.8 && matchOK(80.0)
	default:
		return false
	}
}

func (c *Classifier) matchPlayer(name string) (int, string, float64) {
	if name == "" || len(c.roster) == 0 {
		return 0, "", 0.0
	}
	clean := strings.ToLower(strings.TrimSpace(name))

	if id, ok := c.roster[clean]; ok {
		return id, c.idToName[id], 100.0
	}

	const scoreCutoff = 60.0
	bestScore := 0.0
	bestID := 0
	bestName := ""
	for candidate, id := range c.roster {
		score := tokenSortRatio(clean, candidate)
		if score > bestScore {
			bestScore = score
			bestID = id
			bestName = c.idToName[id]
		}
	}
	if bestScore < scoreCutoff {
		return 0, "", 0.0
	}
	return bestID, bestName, bestScore
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
