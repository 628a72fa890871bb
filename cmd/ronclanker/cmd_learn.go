package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jolyonbrown/ronclanker/internal/config"
	"github.com/jolyonbrown/ronclanker/internal/workflow"
)

func newLearnCmd() *cobra.Command {
	var gameweek int

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run the post-gameweek learning pass",
		Long: `Joins predictions with actuals for a resolved gameweek, updates the
calibration table, nudges per-position transfer thresholds, and records
the captain points-left-on-table figure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if gameweek <= 0 || gameweek > 38 {
				return fmt.Errorf("--gameweek must be within 1..38, got %d", gameweek)
			}

			deps, cleanup, err := buildDependencies(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			orch := workflow.New(deps, cfg.Workflow(), log.Logger)
			result, err := orch.Learn(cmd.Context(), gameweek)
			if err != nil {
				return fmt.Errorf("learning pass: %w", err)
			}

			log.Info().
				Int("gameweek", gameweek).
				Int("samples", result.Review.Overall.SampleSize).
				Float64("rmse", result.Review.Overall.RMSE).
				Float64("mae", result.Review.Overall.MAE).
				Float64("mean_error", result.Review.Overall.MeanError).
				Float64("captain_points_left", result.CaptainPointsLeft).
				Float64("captain_trend_mean", result.CaptainTrendMean).
				Msg("learning pass complete")

			for pos, threshold := range result.UpdatedThresholds {
				log.Info().Str("position", string(pos)).Float64("threshold", threshold).Msg("transfer threshold")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&gameweek, "gameweek", 0, "Resolved gameweek to learn from (1..38)")
	_ = cmd.MarkFlagRequired("gameweek")
	return cmd
}
