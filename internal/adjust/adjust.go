// Package adjust folds upstream availability, classified intelligence,
// sentiment, and learned calibration into a raw Predictor output to
// produce the expected-points figure the optimiser actually consumes.
// Each stage contributes a named factor to an audit trail rather than
// silently folding into an opaque number; factors compose by straight
// multiplication in a fixed priority order.
package adjust

import (
	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// Factor is one named multiplicative (or additive, for calibration)
// adjustment applied during Adjust, kept for the audit trail.
type Factor struct {
	Name       string
	Multiplier float64 // 1.0 for additive-only stages (calibration)
	Additive   float64
}

// Trace is the audit trail for one player's adjusted prediction.
type Trace struct {
	PlayerID int
	Raw      float64
	Final    float64
	Factors  []Factor
}

// Input bundles everything Adjust needs for one player in one gameweek.
type Input struct {
	PlayerID        int
	Position        domain.Position
	NowCost         int
	Form            float64
	RawExpectedPoints float64
	Status          domain.Availability
	ChanceOfPlaying *int
	Signals         []domain.IntelligenceSignal // classified signals naming this player
	Calibration     domain.CalibrationTable
}

// Config holds the adjuster's tunable thresholds.
type Config struct {
	PositionSampleFloor    int
	PriceBracketSampleFloor int
	PremiumPriceFloor      float64 // currency units, e.g. 12.0
	PremiumFormFloor       float64
}

// DefaultConfig returns the 2025/26 defaults.
func DefaultConfig() Config {
	return Config{
		PositionSampleFloor:     20,
		PriceBracketSampleFloor: 30,
		PremiumPriceFloor:       12.0,
		PremiumFormFloor:        5.0,
	}
}

// Adjust runs the full six-stage pipeline and returns the adjusted
// expected points together with the audit trail.
func Adjust(in Input, cfg Config) Trace {
	trace := Trace{PlayerID: in.PlayerID, Raw: in.RawExpectedPoints}
	value := in.RawExpectedPoints

	value, f1 := applyAvailability(value, in.Status, in.ChanceOfPlaying)
	trace.Factors = append(trace.Factors, f1)

	if in.Status != domain.Unavailable && in.Status != domain.Suspended {
		var f2s []Factor
		value, f2s = applySignals(value, in.Signals)
		trace.Factors = append(trace.Factors, f2s...)
	}

	if in.Status == domain.Available {
		var f3s []Factor
		value, f3s = applySentiment(value, in.Signals)
		trace.Factors = append(trace.Factors, f3s...)
	}

	value, f4s := applyCalibration(value, in.Position, in.NowCost, in.Calibration, cfg)
	trace.Factors = append(trace.Factors, f4s...)

	value, f5 := applyPremiumFloor(value, in.NowCost, in.Form, cfg)
	if f5 != nil {
		trace.Factors = append(trace.Factors, *f5)
	}

	if value < 0 {
		value = 0
		trace.Factors = append(trace.Factors, Factor{Name: "non_negativity_clamp", Multiplier: 1.0})
	}

	trace.Final = value
	return trace
}

// applyAvailability is stage 1: upstream status is authoritative.
func applyAvailability(value float64, status domain.Availability, chance *int) (float64, Factor) {
	switch status {
	case domain.Unavailable, domain.Suspended:
		return 0, Factor{Name: "upstream_" + string(status), Multiplier: 0}
	case domain.Injured:
		mult := stepForChance(chance)
		return value * mult, Factor{Name: "upstream_injured_chance", Multiplier: mult}
	default:
		return value, Factor{Name: "upstream_available", Multiplier: 1.0}
	}
}

func stepForChance(chance *int) float64 {
	if chance == nil {
		return 0.10
	}
	c := *chance
	switch {
	case c <= 0:
		return 0.10
	case c <= 25:
		return 0.30
	case c <= 50:
		return 0.60
	case c <= 75:
		return 0.80
	default:
		return 1.00
	}
}

// applySignals is stage 2: classified signals, consulted only when
// upstream isn't already unavailable/suspended.
func applySignals(value float64, signals []domain.IntelligenceSignal) (float64, []Factor) {
	var factors []Factor
	for _, s := range signals {
		switch s.Disposition {
		case domain.DispositionInjured:
			mult := 1 - 0.30*s.Confidence
			value *= mult
			factors = append(factors, Factor{Name: "signal_injured_disagree", Multiplier: mult})
		case domain.DispositionDoubt:
			mult := 1 - 0.20*s.Confidence
			value *= mult
			factors = append(factors, Factor{Name: "signal_doubt", Multiplier: mult})
		case domain.DispositionSuspended:
			// contradicted by upstream already-available status: ignored.
		}
	}
	return value, factors
}

// applySentiment is stage 3: only applied when upstream is available.
func applySentiment(value float64, signals []domain.IntelligenceSignal) (float64, []Factor) {
	var factors []Factor
	for _, s := range signals {
		switch s.Disposition {
		case domain.DispositionPositive:
			mult := 1 + 0.20*s.Confidence
			value *= mult
			factors = append(factors, Factor{Name: "sentiment_positive", Multiplier: mult})
		case domain.DispositionNegative:
			mult := 1 - 0.15*s.Confidence
			value *= mult
			factors = append(factors, Factor{Name: "sentiment_negative", Multiplier: mult})
		}
	}
	return value, factors
}

// applyCalibration is stage 4: subtracts learned additive bias corrections
// when the backing sample is large enough to trust.
func applyCalibration(value float64, position domain.Position, nowCost int, table domain.CalibrationTable, cfg Config) (float64, []Factor) {
	var factors []Factor

	if cell, ok := table.ByPosition[position]; ok && cell.SampleSize >= cfg.PositionSampleFloor {
		value -= cell.Correction
		factors = append(factors, Factor{Name: "calibration_position", Multiplier: 1.0, Additive: -cell.Correction})
	}

	bracket := domain.PriceBracketFor(nowCost)
	if cell, ok := table.ByPriceBracket[bracket]; ok && cell.SampleSize >= cfg.PriceBracketSampleFloor {
		value -= cell.Correction
		factors = append(factors, Factor{Name: "calibration_bracket_" + string(bracket), Multiplier: 1.0, Additive: -cell.Correction})
	}

	return value, factors
}

// applyPremiumFloor is stage 5: prevents a pathological underprediction
// from benching a clearly in-form premium asset.
func applyPremiumFloor(value float64, nowCost int, form float64, cfg Config) (float64, *Factor) {
	priceUnits := float64(nowCost) / 10.0
	if priceUnits < cfg.PremiumPriceFloor || form < cfg.PremiumFormFloor {
		return value, nil
	}
	floor := 0.6 * form
	if value >= floor {
		return value, nil
	}
	return floor, &Factor{Name: "premium_floor", Multiplier: 1.0, Additive: floor - value}
}
