package workflow

import (
	"context"
	"fmt"

	"github.com/jolyonbrown/ronclanker/internal/calibration"
	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// LearnResult is everything one post-resolution Learn pass produces:
// the prediction-error review, the calibration table it was folded into,
// nudged per-position transfer-gain thresholds, this gameweek's captain
// points-left-on-table figure, and the rolling mean of that figure over
// the stored review history.
type LearnResult struct {
	Review             calibration.ReviewResult
	UpdatedCalibration domain.CalibrationTable
	UpdatedThresholds  map[domain.Position]float64
	CaptainPointsLeft  float64
	CaptainTrendMean   float64
}

// captainTrendWindow is how many recent gameweeks the rolling captaincy
// trend averages over.
const captainTrendWindow = 10

// Learn reviews a resolved gameweek's predictions against actual results,
// updates the persisted calibration table, and nudges per-position
// transfer-gain thresholds. Call this once gameweek's
// fixtures have all finished and PlayerHistory/LiveGameweek reflect final
// stats.
func (o *Orchestrator) Learn(ctx context.Context, gameweek int) (LearnResult, error) {
	predictions, err := o.deps.Predictions.ForGameweek(ctx, gameweek)
	if err != nil {
		return LearnResult{}, fmt.Errorf("workflow: load predictions for gw %d: %w", gameweek, err)
	}

	rows := make([]calibration.PredictionActual, 0, len(predictions))
	for _, pred := range predictions {
		player, err := o.deps.Players.Get(ctx, pred.PlayerID)
		if err != nil {
			o.log.Warn().Err(err).Int("player_id", pred.PlayerID).Msg("skipping review row: player no longer known")
			continue
		}
		history, err := o.deps.Performances.History(ctx, pred.PlayerID, gameweek)
		if err != nil {
			return LearnResult{}, fmt.Errorf("workflow: load history for player %d: %w", pred.PlayerID, err)
		}
		actual, found := actualPointsFor(history, gameweek)
		if !found {
			continue // fixture not yet resolved for this player
		}
		rows = append(rows, calibration.PredictionActual{
			PlayerID: pred.PlayerID, Position: player.Position, NowCost: player.NowCost,
			Expected: pred.ExpectedPoints, Actual: float64(actual),
		})

		predErr := pred.ExpectedPoints - float64(actual)
		pred.ActualPoints = &actual
		pred.PredictionError = &predErr
		if err := o.deps.Predictions.Save(ctx, pred); err != nil {
			return LearnResult{}, fmt.Errorf("workflow: backfill prediction actuals player %d: %w", pred.PlayerID, err)
		}
	}

	review := calibration.Review(gameweek, rows)

	existing, err := o.deps.Calibration.Load(ctx)
	if err != nil {
		return LearnResult{}, fmt.Errorf("workflow: load calibration: %w", err)
	}
	updated := calibration.UpdateCalibration(existing, review, o.cfg.AdjustConfig.PositionSampleFloor, o.cfg.AdjustConfig.PriceBracketSampleFloor)
	if err := o.deps.Calibration.Save(ctx, updated); err != nil {
		return LearnResult{}, fmt.Errorf("workflow: save calibration: %w", err)
	}

	transferHistory, err := o.deps.Squads.TransferHistory(ctx, o.cfg.ManagerID, gameweek)
	if err != nil {
		return LearnResult{}, fmt.Errorf("workflow: load transfer history: %w", err)
	}
	// The realised gain of this gameweek's transfers is the first
	// post-transfer gameweek's points difference between the two players.
	for i, t := range transferHistory {
		if t.Gameweek != gameweek || t.ActualGain != nil {
			continue
		}
		inHistory, err := o.deps.Performances.History(ctx, t.PlayerInID, gameweek)
		if err != nil {
			return LearnResult{}, fmt.Errorf("workflow: history for transfer-in player %d: %w", t.PlayerInID, err)
		}
		outHistory, err := o.deps.Performances.History(ctx, t.PlayerOutID, gameweek)
		if err != nil {
			return LearnResult{}, fmt.Errorf("workflow: history for transfer-out player %d: %w", t.PlayerOutID, err)
		}
		inActual, inFound := actualPointsFor(inHistory, gameweek)
		outActual, outFound := actualPointsFor(outHistory, gameweek)
		if !inFound || !outFound {
			continue
		}
		gain := float64(inActual - outActual)
		if err := o.deps.Squads.BackfillTransferGain(ctx, o.cfg.ManagerID, gameweek, t.PlayerOutID, t.PlayerInID, gain); err != nil {
			return LearnResult{}, fmt.Errorf("workflow: backfill transfer gain: %w", err)
		}
		transferHistory[i].ActualGain = &gain
	}

	outcomes := make([]calibration.TransferOutcome, 0, len(transferHistory))
	for _, t := range transferHistory {
		if t.Gameweek != gameweek || t.ActualGain == nil {
			continue
		}
		player, err := o.deps.Players.Get(ctx, t.PlayerInID)
		if err != nil {
			continue
		}
		outcomes = append(outcomes, calibration.TransferOutcome{
			Position: player.Position, ExpectedGain: t.PredictedGain, ActualGain: *t.ActualGain,
		})
	}
	thresholds := calibration.LearnThresholds(o.cfg.OptimizerConfig.TransferGainThreshold, outcomes, o.cfg.ThresholdLearningMinSamples)

	draft, ok, err := o.deps.Decisions.Latest(ctx)
	if err != nil {
		return LearnResult{}, fmt.Errorf("workflow: load latest decision: %w", err)
	}
	var captainGap float64
	if ok && draft.Gameweek == gameweek {
		captainReview, reviewed, err := o.reviewCaptain(ctx, draft, gameweek)
		if err != nil {
			return LearnResult{}, fmt.Errorf("workflow: captain review: %w", err)
		}
		if reviewed {
			captainGap = captainReview.PointsLeft
			if err := o.deps.Captains.Record(ctx, captainReview); err != nil {
				return LearnResult{}, fmt.Errorf("workflow: record captain review: %w", err)
			}
		}
	}

	recentReviews, err := o.deps.Captains.Recent(ctx, captainTrendWindow)
	if err != nil {
		return LearnResult{}, fmt.Errorf("workflow: load captain trend: %w", err)
	}
	trendMean := calibration.CaptainTrend(recentReviews)

	o.log.Info().Int("gameweek", gameweek).Int("samples", review.Overall.SampleSize).
		Float64("rmse", review.Overall.RMSE).Float64("mean_error", review.Overall.MeanError).
		Float64("captain_trend_mean", trendMean).
		Msg("learning pass complete")

	return LearnResult{
		Review: review, UpdatedCalibration: updated, UpdatedThresholds: thresholds,
		CaptainPointsLeft: captainGap, CaptainTrendMean: trendMean,
	}, nil
}

func actualPointsFor(history []domain.PlayerGameweekPerformance, gameweek int) (int, bool) {
	for _, h := range history {
		if h.Gameweek == gameweek {
			return h.ActualPoints, true
		}
	}
	return 0, false
}

// reviewCaptain builds the gameweek's captaincy post-mortem from the
// resolved starting XI; reviewed is false when no starter has a resolved
// performance yet.
func (o *Orchestrator) reviewCaptain(ctx context.Context, decision domain.Decision, gameweek int) (domain.CaptainReview, bool, error) {
	var captainActual float64
	best := -1.0
	for _, pick := range decision.Draft.Picks {
		if pick.Slot > 11 {
			continue
		}
		history, err := o.deps.Performances.History(ctx, pick.PlayerID, gameweek)
		if err != nil {
			return domain.CaptainReview{}, false, err
		}
		actual, found := actualPointsFor(history, gameweek)
		if !found {
			continue
		}
		if float64(actual) > best {
			best = float64(actual)
		}
		if pick.PlayerID == decision.CaptainID {
			captainActual = float64(actual) * float64(pick.Multiplier)
		}
	}
	if best < 0 {
		return domain.CaptainReview{}, false, nil
	}

	bestPossible := best * 2
	gap := calibration.PointsLeftOnTable(calibration.CaptainOutcome{
		Gameweek: gameweek, CaptainActualPoints: captainActual, BestPossiblePoints: bestPossible,
	})
	return domain.CaptainReview{
		Gameweek:            gameweek,
		CaptainID:           decision.CaptainID,
		CaptainActualPoints: captainActual,
		BestPossiblePoints:  bestPossible,
		PointsLeft:          gap,
	}, true, nil
}
