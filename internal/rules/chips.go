package rules

import "github.com/jolyonbrown/ronclanker/internal/domain"

// ChipHalves describes where the season splits into two chip windows.
// Default 2025/26 value is {First: 1..19, Second: 20..38}.
type ChipHalves struct {
	FirstHalfEnd  int // last gameweek of half 1 (inclusive)
	SecondHalfStart int // first gameweek of half 2 (inclusive)
}

// DefaultChipHalves returns the 2025/26 halves (split at GW19/20).
func DefaultChipHalves() ChipHalves {
	return ChipHalves{FirstHalfEnd: 19, SecondHalfStart: 20}
}

// HalfFor returns which half a gameweek falls in.
func (h ChipHalves) HalfFor(gameweek int) domain.Half {
	if gameweek <= h.FirstHalfEnd {
		return domain.FirstHalf
	}
	return domain.SecondHalf
}

// CanUseChip checks that chip is usable in gameweek: the correct half
// window, not already used in that half, and that Wildcard and Free Hit do
// not coexist in the same gameweek as each other or as a chip already
// activated that gameweek.
func CanUseChip(chip domain.Chip, gameweek int, history []domain.ChipUsage, halves ChipHalves) error {
	half := halves.HalfFor(gameweek)

	for _, used := range history {
		if used.Chip == chip && used.Half == half {
			return domain.NewError(domain.ErrChipUnavailable, "rules", map[string]any{
				"chip": chip, "half": half, "reason": "already_used_this_half",
			})
		}
	}

	if chip == domain.Wildcard || chip == domain.FreeHit {
		for _, used := range history {
			if used.Gameweek == gameweek && used.Chip != chip &&
				(used.Chip == domain.Wildcard || used.Chip == domain.FreeHit) {
				return domain.NewError(domain.ErrChipUnavailable, "rules", map[string]any{
					"chip": chip, "gameweek": gameweek, "reason": "wildcard_freehit_conflict",
				})
			}
		}
	}

	return nil
}
