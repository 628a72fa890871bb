package planner

import "github.com/jolyonbrown/ronclanker/internal/rules"

// ValueTrend flags whether a pick's price looks likely to move, subject
// to an external price-rise/fall prediction the planner consumes if
// supplied. Price prediction itself lives outside this module.
type ValueTrend string

const (
	TrendRising  ValueTrend = "rising"
	TrendFalling ValueTrend = "falling"
	TrendStable  ValueTrend = "stable"
)

// PickValue is one squad pick's unrealised profit and price-movement
// signal.
type PickValue struct {
	PlayerID         int
	PurchasePrice    int
	CurrentPrice     int
	SellingPrice     int
	UnrealisedProfit int
	Trend            ValueTrend
}

// PriceSignal is the external price-movement prediction the planner may
// be given for a player; RisingProbability/FallingProbability are in
// [0,1] and come from a source outside this core.
type PriceSignal struct {
	PlayerID           int
	RisingProbability  float64
	FallingProbability float64
}

// PickCost is the minimal pick-pricing input TrackValue needs.
type PickCost struct {
	PlayerID      int
	PurchasePrice int
	CurrentPrice  int
}

// TrackValue computes each pick's unrealised profit via the selling-price
// formula and layers in an optional external price signal to flag
// players worth buying early (rising) or selling early (falling).
func TrackValue(picks []PickCost, signals map[int]PriceSignal) []PickValue {
	const signalThreshold = 0.6

	out := make([]PickValue, 0, len(picks))
	for _, p := range picks {
		sellPrice := rules.SellingPrice(p.PurchasePrice, p.CurrentPrice)
		pv := PickValue{
			PlayerID:         p.PlayerID,
			PurchasePrice:    p.PurchasePrice,
			CurrentPrice:     p.CurrentPrice,
			SellingPrice:     sellPrice,
			UnrealisedProfit: sellPrice - p.PurchasePrice,
			Trend:            TrendStable,
		}
		if sig, ok := signals[p.PlayerID]; ok {
			switch {
			case sig.RisingProbability >= signalThreshold:
				pv.Trend = TrendRising
			case sig.FallingProbability >= signalThreshold:
				pv.Trend = TrendFalling
			}
		}
		out = append(out, pv)
	}
	return out
}
