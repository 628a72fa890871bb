package planner

// TransferTarget is one candidate the sequencer may schedule into the
// horizon, grounded on transfer_sequencer.py's target-pool shape.
type TransferTarget struct {
	PlayerOutID   int
	PlayerInID    int
	Priority      int // higher scheduled first among non-urgent targets
	ExpectedGain  float64
	LatestByGW    int // 0 means no deadline
}

// GameweekBundle is the sequencer's per-gameweek output: which targets it
// scheduled, hit cost incurred, and expected gain.
type GameweekBundle struct {
	Gameweek     int
	Scheduled    []TransferTarget
	HitCost      int
	ExpectedGain float64
	Banked       int // free transfers available for the next gameweek, after this gameweek's use and accrual
}

// SequenceTransfers walks the horizon gameweek by gameweek, forcing
// urgent targets (LatestByGW at or before the current gameweek) ahead of
// priority-ordered discretionary targets, banking free transfers
// (subject to cap) when nothing is scheduled.
func SequenceTransfers(targets []TransferTarget, startGW, horizonGW int, freeTransfersAtStart, ftCap, hitPointCost int) []GameweekBundle {
	remaining := append([]TransferTarget(nil), targets...)
	free := freeTransfersAtStart
	var bundles []GameweekBundle

	for gw := startGW; gw <= horizonGW; gw++ {
		var scheduled []TransferTarget
		var urgent, discretionary []TransferTarget
		var stillPending []TransferTarget

		for _, t := range remaining {
			if t.LatestByGW > 0 && t.LatestByGW <= gw {
				urgent = append(urgent, t)
			} else {
				discretionary = append(discretionary, t)
			}
		}
		discretionary = sortByPriorityDesc(discretionary)

		budget := free
		if budget < 0 {
			budget = 0
		}

		take := func(pool []TransferTarget) []TransferTarget {
			var left []TransferTarget
			for _, t := range pool {
				if budget > 0 {
					scheduled = append(scheduled, t)
					budget--
				} else {
					left = append(left, t)
				}
			}
			return left
		}
		leftoverUrgent := take(urgent)
		leftoverDiscretionary := take(discretionary)

		// Urgent targets past their deadline are forced through even
		// without a free transfer, incurring a hit.
		hitCount := 0
		for _, t := range leftoverUrgent {
			scheduled = append(scheduled, t)
			hitCount++
		}
		stillPending = append(stillPending, leftoverDiscretionary...)

		var gain float64
		for _, t := range scheduled {
			gain += t.ExpectedGain
		}

		free -= len(scheduled) - hitCount // hit-forced transfers don't consume an FT slot beyond what budget already allowed
		if free < 0 {
			free = 0
		}
		free++ // one FT accrues for the next gameweek
		if free > ftCap {
			free = ftCap
		}

		bundles = append(bundles, GameweekBundle{
			Gameweek:     gw,
			Scheduled:    scheduled,
			HitCost:      hitCount * hitPointCost,
			ExpectedGain: gain,
			Banked:       free,
		})

		remaining = stillPending
	}

	return bundles
}

func sortByPriorityDesc(targets []TransferTarget) []TransferTarget {
	out := append([]TransferTarget(nil), targets...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Priority < out[j].Priority; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// NetGain sums a sequence's expected gain less its total hit cost across
// every bundle.
func NetGain(bundles []GameweekBundle) float64 {
	var net float64
	for _, b := range bundles {
		net += b.ExpectedGain - float64(b.HitCost)
	}
	return net
}
