package rules

import (
	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// Constraints collects the squad-building limits. Values come from
// Configuration at process start; Default returns the 2025/26 values.
type Constraints struct {
	TotalPlayers      int
	StartingPlayers   int
	MaxPerClub        int
	InitialBudget     int // tenths of a currency unit
	MinGoalkeepers    int
	MaxGoalkeepers    int
	MinDefenders      int
	MaxDefenders      int
	MinMidfielders    int
	MaxMidfielders    int
	MinForwards       int
	MaxForwards       int
	MinStartingDefenders int
	MinStartingForwards  int
}

// DefaultConstraints returns the official 2025/26 squad constraints.
func DefaultConstraints() Constraints {
	return Constraints{
		TotalPlayers:         15,
		StartingPlayers:      11,
		MaxPerClub:           3,
		InitialBudget:        1000,
		MinGoalkeepers:       2,
		MaxGoalkeepers:       2,
		MinDefenders:         3,
		MaxDefenders:         5,
		MinMidfielders:       2,
		MaxMidfielders:       5,
		MinForwards:          1,
		MaxForwards:          3,
		MinStartingDefenders: 3,
		MinStartingForwards:  1,
	}
}

type squadCounts struct {
	byPosition        map[domain.Position]int
	startingByPosition map[domain.Position]int
	startingTotal     int
	byClub            map[int]int
}

func countSquad(squad domain.Squad, playerPosition func(playerID int) domain.Position, playerClub func(playerID int) int) squadCounts {
	c := squadCounts{
		byPosition:         map[domain.Position]int{},
		startingByPosition: map[domain.Position]int{},
		byClub:             map[int]int{},
	}
	for _, pick := range squad.Picks {
		pos := playerPosition(pick.PlayerID)
		c.byPosition[pos]++
		c.byClub[playerClub(pick.PlayerID)]++
		if pick.Slot <= 11 {
			c.startingByPosition[pos]++
			c.startingTotal++
		}
	}
	return c
}

// ValidateSquad checks size, position distribution, starting-XI
// composition, club cap, budget, and captain/vice presence/distinctness,
// returning a *domain.CoreError identifying the violated invariant on
// failure.
func ValidateSquad(
	squad domain.Squad,
	constraints Constraints,
	playerPosition func(playerID int) domain.Position,
	playerClub func(playerID int) int,
) error {
	if len(squad.Picks) != constraints.TotalPlayers {
		return fail("squad_size", map[string]any{"got": len(squad.Picks), "want": constraints.TotalPlayers})
	}

	counts := countSquad(squad, playerPosition, playerClub)

	if counts.byPosition[domain.GK] < constraints.MinGoalkeepers || counts.byPosition[domain.GK] > constraints.MaxGoalkeepers {
		return fail("goalkeeper_count", map[string]any{"got": counts.byPosition[domain.GK]})
	}
	if counts.byPosition[domain.DEF] < constraints.MinDefenders || counts.byPosition[domain.DEF] > constraints.MaxDefenders {
		return fail("defender_count", map[string]any{"got": counts.byPosition[domain.DEF]})
	}
	if counts.byPosition[domain.MID] < constraints.MinMidfielders || counts.byPosition[domain.MID] > constraints.MaxMidfielders {
		return fail("midfielder_count", map[string]any{"got": counts.byPosition[domain.MID]})
	}
	if counts.byPosition[domain.FWD] < constraints.MinForwards || counts.byPosition[domain.FWD] > constraints.MaxForwards {
		return fail("forward_count", map[string]any{"got": counts.byPosition[domain.FWD]})
	}

	if counts.startingTotal != constraints.StartingPlayers {
		return fail("starting_xi_size", map[string]any{"got": counts.startingTotal})
	}
	if counts.startingByPosition[domain.GK] != 1 {
		return fail("starting_goalkeeper_count", map[string]any{"got": counts.startingByPosition[domain.GK]})
	}
	if counts.startingByPosition[domain.DEF] < constraints.MinStartingDefenders {
		return fail("starting_defender_minimum", map[string]any{"got": counts.startingByPosition[domain.DEF]})
	}
	if counts.startingByPosition[domain.FWD] < constraints.MinStartingForwards {
		return fail("starting_forward_minimum", map[string]any{"got": counts.startingByPosition[domain.FWD]})
	}

	for clubID, n := range counts.byClub {
		if n > constraints.MaxPerClub {
			return fail("club_cap", map[string]any{"club_id": clubID, "got": n, "max": constraints.MaxPerClub})
		}
	}

	total := 0
	for _, pick := range squad.Picks {
		total += pick.PurchasePrice
	}
	if total > constraints.InitialBudget {
		return fail("budget_exceeded", map[string]any{"total": total, "budget": constraints.InitialBudget})
	}

	var captainID, viceID int
	captains, vices := 0, 0
	for _, pick := range squad.Picks {
		if pick.IsCaptain {
			captains++
			captainID = pick.PlayerID
		}
		if pick.IsVice {
			vices++
			viceID = pick.PlayerID
		}
	}
	if captains != 1 {
		return fail("captain_count", map[string]any{"got": captains})
	}
	if vices != 1 {
		return fail("vice_captain_count", map[string]any{"got": vices})
	}
	if captainID == viceID {
		return fail("captain_vice_distinct", map[string]any{"player_id": captainID})
	}

	for _, pick := range squad.Picks {
		if pick.IsCaptain && pick.Slot > 11 {
			return fail("captain_not_starting", map[string]any{"player_id": pick.PlayerID})
		}
		if pick.IsVice && pick.Slot > 11 {
			return fail("vice_not_starting", map[string]any{"player_id": pick.PlayerID})
		}
	}

	return nil
}

func fail(invariant string, context map[string]any) error {
	context["invariant"] = invariant
	return domain.NewError(domain.ErrValidationFailure, "rules", context)
}

// ValidateTransfer checks that player out is currently held, player in is
// not, budget (using out's selling price) is sufficient, the resulting
// squad still satisfies ValidateSquad when positions differ, and the club
// cap still holds for the incoming player's club.
func ValidateTransfer(
	current domain.Squad,
	playerOutID, playerInID int,
	bank int,
	constraints Constraints,
	playerPosition func(playerID int) domain.Position,
	playerClub func(playerID int) int,
	playerNowCost func(playerID int) int,
) error {
	var outPick *domain.Pick
	for i := range current.Picks {
		if current.Picks[i].PlayerID == playerOutID {
			outPick = &current.Picks[i]
			break
		}
	}
	if outPick == nil {
		return fail("player_out_not_in_squad", map[string]any{"player_id": playerOutID})
	}
	for _, p := range current.Picks {
		if p.PlayerID == playerInID {
			return fail("player_in_already_in_squad", map[string]any{"player_id": playerInID})
		}
	}

	cost := playerNowCost(playerInID) - outPick.SellingPrice
	if cost > bank {
		return fail("insufficient_budget", map[string]any{"need": cost, "have": bank})
	}

	outPos := playerPosition(playerOutID)
	inPos := playerPosition(playerInID)
	if outPos != inPos {
		newSquad := domain.Squad{Picks: make([]domain.Pick, 0, len(current.Picks))}
		for _, p := range current.Picks {
			if p.PlayerID != playerOutID {
				newSquad.Picks = append(newSquad.Picks, p)
			}
		}
		newSquad.Picks = append(newSquad.Picks, domain.Pick{
			PlayerID:      playerInID,
			Slot:          outPick.Slot,
			PurchasePrice: playerNowCost(playerInID),
			SellingPrice:  playerNowCost(playerInID),
		})
		if err := ValidateSquad(newSquad, constraints, playerPosition, playerClub); err != nil {
			return err
		}
	}

	inClub := playerClub(playerInID)
	sameClub := 0
	for _, p := range current.Picks {
		if p.PlayerID != playerOutID && playerClub(p.PlayerID) == inClub {
			sameClub++
		}
	}
	if sameClub >= constraints.MaxPerClub {
		return fail("club_cap", map[string]any{"club_id": inClub, "got": sameClub + 1, "max": constraints.MaxPerClub})
	}

	return nil
}
