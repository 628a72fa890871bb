package planner

import "github.com/jolyonbrown/ronclanker/internal/domain"

// Urgency is how soon a chip window closes.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ChipRecommendation is one chip's suggested timing for the remainder of
// the current half.
type ChipRecommendation struct {
	Chip        domain.Chip
	WindowStart int
	WindowEnd   int
	Urgency     Urgency
	Rationale   string
}

// DoubleGameweek describes one gameweek where clubsPlaying clubs have two
// fixtures.
type DoubleGameweek struct {
	Gameweek      int
	ClubsPlaying  int
}

// BlankGameweek is a gameweek where a club has no fixture at all.
type BlankGameweek struct {
	Gameweek int
}

// RecommendWildcard favours mid-season windows (GW10-15 in the first
// half, or just before a double gameweek in the second half), escalating
// to high urgency inside the final 2 gameweeks of the half.
func RecommendWildcard(currentGW int, half domain.Half, halfDeadlineGW int, doubles []DoubleGameweek) ChipRecommendation {
	rec := ChipRecommendation{Chip: domain.Wildcard}

	if half == domain.FirstHalf {
		rec.WindowStart, rec.WindowEnd = 10, 15
		rec.Rationale = "mid-season form clarity, fixture swings settling"
	} else {
		target := halfDeadlineGW
		for _, d := range doubles {
			if d.Gameweek < target {
				target = d.Gameweek - 1
			}
		}
		rec.WindowStart, rec.WindowEnd = target, target
		rec.Rationale = "positions squad ahead of the earliest double gameweek"
	}

	rec.Urgency = urgencyFor(currentGW, halfDeadlineGW)
	return rec
}

// RecommendBenchBoost targets the double gameweek with the most clubs
// playing twice inside the half's remaining window.
func RecommendBenchBoost(currentGW, halfDeadlineGW int, doubles []DoubleGameweek) ChipRecommendation {
	rec := ChipRecommendation{Chip: domain.BenchBoost}
	best, ok := bestDouble(doubles)
	if !ok {
		rec.Rationale = "no double gameweek identified in remaining window; hold"
		rec.Urgency = UrgencyLow
		return rec
	}
	rec.WindowStart, rec.WindowEnd = best.Gameweek, best.Gameweek
	rec.Rationale = "double gameweek with most fixtures across the squad"
	rec.Urgency = urgencyFor(currentGW, halfDeadlineGW)
	return rec
}

// RecommendTripleCaptain targets a double-gameweek premium asset, or
// (absent a double gameweek in the half) an exceptional single fixture
// supplied by the caller as a fallback gameweek.
func RecommendTripleCaptain(currentGW, halfDeadlineGW int, doubles []DoubleGameweek, exceptionalFixtureGW int) ChipRecommendation {
	rec := ChipRecommendation{Chip: domain.TripleCaptain}
	if best, ok := bestDouble(doubles); ok {
		rec.WindowStart, rec.WindowEnd = best.Gameweek, best.Gameweek
		rec.Rationale = "double gameweek for a premium captaincy pick"
	} else {
		rec.WindowStart, rec.WindowEnd = exceptionalFixtureGW, exceptionalFixtureGW
		rec.Rationale = "no double gameweek in the half; exceptional single fixture"
	}
	rec.Urgency = urgencyFor(currentGW, halfDeadlineGW)
	return rec
}

// RecommendFreeHit targets blank gameweeks, otherwise saves until the
// half's deadline minus 2.
func RecommendFreeHit(currentGW, halfDeadlineGW int, blanks []BlankGameweek) ChipRecommendation {
	rec := ChipRecommendation{Chip: domain.FreeHit}
	if len(blanks) > 0 {
		gw := blanks[0].Gameweek
		for _, b := range blanks[1:] {
			if b.Gameweek < gw {
				gw = b.Gameweek
			}
		}
		rec.WindowStart, rec.WindowEnd = gw, gw
		rec.Rationale = "blank gameweek coverage"
	} else {
		gw := halfDeadlineGW - 2
		rec.WindowStart, rec.WindowEnd = gw, halfDeadlineGW
		rec.Rationale = "no blank gameweek identified; save until deadline minus 2"
	}
	rec.Urgency = urgencyFor(currentGW, halfDeadlineGW)
	return rec
}

func bestDouble(doubles []DoubleGameweek) (DoubleGameweek, bool) {
	var best DoubleGameweek
	found := false
	for _, d := range doubles {
		if !found || d.ClubsPlaying > best.ClubsPlaying {
			best = d
			found = true
		}
	}
	return best, found
}

func urgencyFor(currentGW, halfDeadlineGW int) Urgency {
	remaining := halfDeadlineGW - currentGW
	switch {
	case remaining <= 2:
		return UrgencyHigh
	case remaining <= 5:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
