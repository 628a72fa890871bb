// Package optimizer picks the next squad: given the current squad, bank,
// free-transfer count, and a map of adjusted expected points, it produces
// a valid DraftSquad for the target gameweek together with captain/vice
// assignment and an ordered transfer list. The shape throughout is rank,
// filter, pick-best, then re-validate the result against package rules.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/rules"
)

// PlayerInfo is the per-candidate data the optimiser needs: static
// attributes plus this gameweek's adjusted expected points.
type PlayerInfo struct {
	PlayerID        int
	Position        domain.Position
	ClubID          int
	NowCost         int
	ChanceOfPlaying *int
	ExpectedPoints  float64
	Severity        domain.Severity // highest-severity open signal, if any
}

// Config collects the optimiser's tunable thresholds.
type Config struct {
	ReplacementHeadroom  int // tenths of a currency unit, default 10 (1.0 unit)
	MinChanceOfPlaying   int // default 75
	TransferGainThreshold map[domain.Position]float64
	DefaultGainThreshold  float64 // used when a position has no entry
	HitThresholdStrong    float64 // default 8.0
	HitThresholdMarginal  float64 // default 5.0
	HorizonGameweeks      int     // default 3
	FreeTransferCap       int     // default 5
	WildcardUrgentCount   int     // default 3
}

// DefaultConfig returns the 2025/26 policy defaults.
func DefaultConfig() Config {
	return Config{
		ReplacementHeadroom:  10,
		MinChanceOfPlaying:   75,
		DefaultGainThreshold: 2.0,
		HitThresholdStrong:   8.0,
		HitThresholdMarginal: 5.0,
		HorizonGameweeks:     3,
		FreeTransferCap:      5,
		WildcardUrgentCount:  3,
	}
}

func (c Config) gainThreshold(pos domain.Position) float64 {
	if c.TransferGainThreshold != nil {
		if v, ok := c.TransferGainThreshold[pos]; ok {
			return v
		}
	}
	return c.DefaultGainThreshold
}

// TransferProposal is one candidate single transfer the optimiser
// evaluated, whether or not it was ultimately accepted.
type TransferProposal struct {
	Transfer     domain.Transfer
	HorizonGain  float64
	Accepted     bool
	HitIncurred  bool
	Rationale    string
}

// Result is everything BuildDraft produces for one gameweek.
type Result struct {
	Draft               domain.DraftSquad
	CaptainID           int
	ViceID              int
	Transfers           []domain.Transfer
	WildcardRecommended bool
}

// WeakestLink ranks the current squad by adjusted expected points and
// returns the lowest-ranked player's ID — the candidate to leave.
func WeakestLink(squad domain.Squad, byPlayer map[int]PlayerInfo) (int, error) {
	if len(squad.Picks) == 0 {
		return 0, fmt.Errorf("optimizer: empty squad")
	}
	weakestID := 0
	weakestEP := 0.0
	first := true
	for _, pick := range squad.Picks {
		info, ok := byPlayer[pick.PlayerID]
		if !ok {
			return 0, fmt.Errorf("optimizer: missing prediction for squad player %d", pick.PlayerID)
		}
		if first || info.ExpectedPoints < weakestEP {
			weakestEP = info.ExpectedPoints
			weakestID = pick.PlayerID
			first = false
		}
	}
	return weakestID, nil
}

// FindReplacement picks, among candidates not already in the squad, the
// same-position highest-expected-points player priced within headroom of
// the outgoing selling price and meeting the chance-of-playing floor.
func FindReplacement(pool []PlayerInfo, inSquad map[int]bool, position domain.Position, maxPrice int, cfg Config) (PlayerInfo, bool) {
	var best PlayerInfo
	found := false
	for _, cand := range pool {
		if inSquad[cand.PlayerID] {
			continue
		}
		if cand.Position != position {
			continue
		}
		if cand.NowCost > maxPrice {
			continue
		}
		if cand.ChanceOfPlaying != nil && *cand.ChanceOfPlaying < cfg.MinChanceOfPlaying {
			continue
		}
		if !found || cand.ExpectedPoints > best.ExpectedPoints {
			best = cand
			found = true
		}
	}
	return best, found
}

// EvaluateTransfer decides whether a single candidate transfer is worth
// taking given the free transfers currently banked.
func EvaluateTransfer(position domain.Position, horizonGain float64, freeAvailable int, outgoingSeverity domain.Severity, cfg Config) (accept bool, incursHit bool, rationale string) {
	if freeAvailable > 0 && horizonGain >= cfg.gainThreshold(position) {
		return true, false, "within free-transfer gain threshold"
	}
	if horizonGain >= cfg.HitThresholdStrong {
		return true, true, "hit justified: gain exceeds strong threshold"
	}
	if horizonGain >= cfg.HitThresholdMarginal && outgoingSeverity == domain.SeverityHigh {
		return true, true, "hit justified: marginal gain with HIGH-severity signal on outgoing player"
	}
	return false, false, "rolled: gain insufficient"
}

// ShouldRecommendWildcard implements the wildcard-trigger rule: when at
// least WildcardUrgentCount squad players carry CRITICAL/HIGH signals and
// the wildcard chip is available in the current half.
func ShouldRecommendWildcard(urgentCount int, wildcardAvailable bool, cfg Config) bool {
	return wildcardAvailable && urgentCount >= cfg.WildcardUrgentCount
}

type formationCandidate struct {
	gk, def, mid, fwd int
}

// legalFormations enumerates every 1 GK + (3-5 DEF + 2-5 MID + 1-3 FWD)
// combination summing to 10 outfield players.
func legalFormations() []formationCandidate {
	var out []formationCandidate
	for def := 3; def <= 5; def++ {
		for mid := 2; mid <= 5; mid++ {
			for fwd := 1; fwd <= 3; fwd++ {
				if def+mid+fwd == 10 {
					out = append(out, formationCandidate{gk: 1, def: def, mid: mid, fwd: fwd})
				}
			}
		}
	}
	return out
}

// SelectFormation picks the legal formation maximising the sum of the
// chosen starting XI's expected points, breaking ties in favour of fewer
// forwards then more midfielders. byPosition must list every squad
// member's PlayerInfo, pre-sorted by the caller is not required —
// SelectFormation sorts internally.
func SelectFormation(byPosition map[domain.Position][]PlayerInfo) (formationCandidate, []int, float64) {
	sorted := map[domain.Position][]PlayerInfo{}
	for pos, players := range byPosition {
		cp := append([]PlayerInfo(nil), players...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].ExpectedPoints > cp[j].ExpectedPoints })
		sorted[pos] = cp
	}

	var bestFormation formationCandidate
	var bestIDs []int
	bestTotal := -1.0
	haveBest := false

	for _, f := range legalFormations() {
		if len(sorted[domain.GK]) < f.gk || len(sorted[domain.DEF]) < f.def ||
			len(sorted[domain.MID]) < f.mid || len(sorted[domain.FWD]) < f.fwd {
			continue
		}
		ids, total := topN(sorted, f)

		better := total > bestTotal
		tie := total == bestTotal
		if tie && haveBest {
			if f.fwd < bestFormation.fwd || (f.fwd == bestFormation.fwd && f.mid > bestFormation.mid) {
				better = true
			}
		}
		if better || !haveBest {
			bestFormation = f
			bestIDs = ids
			bestTotal = total
			haveBest = true
		}
	}

	return bestFormation, bestIDs, bestTotal
}

func topN(sorted map[domain.Position][]PlayerInfo, f formationCandidate) ([]int, float64) {
	var ids []int
	var total float64
	take := func(pos domain.Position, n int) {
		for i := 0; i < n; i++ {
			p := sorted[pos][i]
			ids = append(ids, p.PlayerID)
			total += p.ExpectedPoints
		}
	}
	take(domain.GK, f.gk)
	take(domain.DEF, f.def)
	take(domain.MID, f.mid)
	take(domain.FWD, f.fwd)
	return ids, total
}

// OrderBench sorts non-starting squad members by descending expected
// points, with the non-starting goalkeeper forced to slot 12.
func OrderBench(squad domain.Squad, startingIDs map[int]bool, byPlayer map[int]PlayerInfo, playerPosition func(int) domain.Position) []int {
	var benchGK int
	var rest []PlayerInfo
	for _, pick := range squad.Picks {
		if startingIDs[pick.PlayerID] {
			continue
		}
		info := byPlayer[pick.PlayerID]
		if playerPosition(pick.PlayerID) == domain.GK {
			benchGK = pick.PlayerID
			continue
		}
		rest = append(rest, info)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ExpectedPoints > rest[j].ExpectedPoints })

	order := make([]int, 0, len(rest)+1)
	order = append(order, benchGK) // always slot 12
	for _, p := range rest {
		order = append(order, p.PlayerID)
	}
	return order
}

// AssignCaptainVice picks the captain as the highest-EP starter and the
// vice as the next highest starter from a different club where possible.
func AssignCaptainVice(startingIDs []int, byPlayer map[int]PlayerInfo) (captainID, viceID int) {
	sorted := append([]int(nil), startingIDs...)
	sort.Slice(sorted, func(i, j int) bool {
		return byPlayer[sorted[i]].ExpectedPoints > byPlayer[sorted[j]].ExpectedPoints
	})
	if len(sorted) == 0 {
		return 0, 0
	}
	captainID = sorted[0]
	captainClub := byPlayer[captainID].ClubID

	for _, id := range sorted[1:] {
		if byPlayer[id].ClubID != captainClub {
			return captainID, id
		}
	}
	if len(sorted) > 1 {
		return captainID, sorted[1]
	}
	return captainID, captainID
}

// BuildDraft assembles a full Result: formation selection, bench
// ordering, and captain/vice assignment over the (possibly transferred)
// squad, then re-validates the draft against the rules engine. A
// validation failure here is a bug condition, not a
// runtime error to be tolerated — callers should treat it as fatal.
func BuildDraft(
	squad domain.Squad,
	gameweek int,
	byPlayer map[int]PlayerInfo,
	tripleCaptainActive bool,
	constraints rules.Constraints,
	playerPosition func(int) domain.Position,
	playerClub func(int) int,
) (Result, error) {
	byPosition := map[domain.Position][]PlayerInfo{}
	for _, pick := range squad.Picks {
		info, ok := byPlayer[pick.PlayerID]
		if !ok {
			return Result{}, fmt.Errorf("optimizer: missing prediction for squad player %d", pick.PlayerID)
		}
		byPosition[info.Position] = append(byPosition[info.Position], info)
	}

	_, startingIDs, _ := SelectFormation(byPosition)
	startingSet := map[int]bool{}
	for _, id := range startingIDs {
		startingSet[id] = true
	}

	benchOrder := OrderBench(squad, startingSet, byPlayer, playerPosition)
	captainID, viceID := AssignCaptainVice(startingIDs, byPlayer)

	multiplier := 2
	if tripleCaptainActive {
		multiplier = 3
	}

	picks := make([]domain.Pick, 0, len(squad.Picks))
	slotFor := map[int]int{}
	for i, id := range startingIDs {
		slotFor[id] = i + 1
	}
	for i, id := range benchOrder {
		slotFor[id] = 12 + i
	}

	for _, orig := range squad.Picks {
		slot, ok := slotFor[orig.PlayerID]
		if !ok {
			return Result{}, fmt.Errorf("optimizer: player %d not assigned a slot", orig.PlayerID)
		}
		pick := orig
		pick.Slot = slot
		pick.IsCaptain = orig.PlayerID == captainID
		pick.IsVice = orig.PlayerID == viceID
		pick.Multiplier = 1
		if pick.IsCaptain {
			pick.Multiplier = multiplier
		}
		picks = append(picks, pick)
	}

	draft := domain.DraftSquad{ManagerID: squad.ManagerID, Gameweek: gameweek, Picks: picks, Bank: squad.Bank}

	validationSquad := domain.Squad{ManagerID: draft.ManagerID, Gameweek: draft.Gameweek, Picks: draft.Picks, Bank: draft.Bank}
	if err := rules.ValidateSquad(validationSquad, constraints, playerPosition, playerClub); err != nil {
		return Result{}, fmt.Errorf("optimizer: draft failed re-validation (bug condition): %w", err)
	}

	return Result{Draft: draft, CaptainID: captainID, ViceID: viceID}, nil
}
