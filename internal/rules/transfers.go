package rules

// HitPointCost is the per-transfer penalty beyond available free transfers.
const HitPointCost = 4

// SellingPrice applies the 50%-of-profit sell-on rule: the manager keeps
// the full purchase price plus half of any integer rise, rounded down.
func SellingPrice(purchasePrice, currentPrice int) int {
	if currentPrice <= purchasePrice {
		return currentPrice
	}
	profit := (currentPrice - purchasePrice) / 2
	return purchasePrice + profit
}

// TransferCost returns the points penalty for n transfers given the free
// transfers available, or 0 when a wildcard/free-hit chip is active.
func TransferCost(n, freeAvailable int, isWildcard, isFreeHit bool) int {
	if isWildcard || isFreeHit {
		return 0
	}
	extra := n - freeAvailable
	if extra <= 0 {
		return 0
	}
	return extra * HitPointCost
}

// FTTopup is a configured special-event free-transfer top-up (e.g. an
// AFCON absence wave): at EffectiveFromGW, FT is raised to at least TopupTo.
type FTTopup struct {
	TriggerAfterGW  int
	EffectiveFromGW int
	TopupTo         int
	CarryOver       bool
}

// GameweekTransferRecord is the minimal per-gameweek ledger FreeTransfers
// needs: transfers actually made that gameweek.
type GameweekTransferRecord struct {
	Gameweek         int
	TransfersMade    int
	WildcardOrFreeHit bool
}

// FreeTransfers computes the free-transfer count available at targetGW.
// Starting at 1 on gameweek 1, each gameweek adds 1 FT (carried up to cap),
// minus transfers actually made; configured top-ups override the running
// total at their effective gameweek.
func FreeTransfers(history []GameweekTransferRecord, targetGW, cap int, topups []FTTopup) int {
	ft := 1
	for gw := 2; gw <= targetGW; gw++ {
		ft++
		if ft > cap {
			ft = cap
		}
		for _, rec := range history {
			if rec.Gameweek == gw-1 && !rec.WildcardOrFreeHit {
				ft -= rec.TransfersMade
				if ft < 0 {
					ft = 0
				}
			}
		}
		for _, t := range topups {
			if gw == t.EffectiveFromGW {
				if ft < t.TopupTo {
					ft = t.TopupTo
				}
			}
		}
	}
	return ft
}
