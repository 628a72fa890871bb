package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jolyonbrown/ronclanker/internal/config"
	"github.com/jolyonbrown/ronclanker/internal/workflow"
)

func newRunCmd() *cobra.Command {
	var gameweek int
	var deadline time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one weekly decision workflow pass",
		Long: `Executes the full eight-step workflow for the target gameweek:
refresh, intelligence sweep, feature build, predict, adjust, optimise,
plan, emit. The emitted decision is persisted and printed.`,
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

			ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
			defer cancel()

			orch := workflow.New(deps, cfg.Workflow(), log.Logger)
			decision, err := orch.Run(ctx, gameweek)
			if err != nil {
				return fmt.Errorf("workflow run: %w", err)
			}

			log.Info().
				Int("gameweek", decision.Gameweek).
				Int("captain", decision.CaptainID).
				Int("vice", decision.ViceID).
				Int("transfers", len(decision.Transfers)).
				Float64("expected_points", decision.ExpectedTotalPoints).
				Msg("decision emitted")

			for _, t := range decision.Transfers {
				log.Info().
					Int("out", t.PlayerOutID).
					Int("in", t.PlayerInID).
					Int("hit_cost", t.HitCost).
					Float64("predicted_gain", t.PredictedGain).
					Str("reasoning", t.Reasoning).
					Msg("transfer")
			}
			for _, token := range decision.RationaleTokens {
				log.Info().Str("rationale", token).Msg("planner")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&gameweek, "gameweek", 0, "Target gameweek (1..38)")
	cmd.Flags().DurationVar(&deadline, "deadline", 10*time.Minute, "Global workflow deadline")
	_ = cmd.MarkFlagRequired("gameweek")
	return cmd
}
