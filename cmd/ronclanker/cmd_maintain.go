package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jolyonbrown/ronclanker/internal/config"
	"github.com/jolyonbrown/ronclanker/internal/workflow"
)

func newMaintainCmd() *cobra.Command {
	var refreshEvery, sweepEvery, purgeEvery time.Duration

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run the daily/hourly maintenance loop",
		Long: `Keeps state fresh between decision runs: periodic price/fixture
refresh, hourly intelligence sweeps, and a TTL purge of expired signals.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			deps, cleanup, err := buildDependencies(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := workflow.New(deps, cfg.Workflow(), log.Logger)
			sched := workflow.NewScheduler(orch, log.Logger)
			sched.RefreshInterval = refreshEvery
			sched.IntelligenceInterval = sweepEvery

			purgeTicker := time.NewTicker(purgeEvery)
			defer purgeTicker.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-purgeTicker.C:
						purged, err := deps.Signals.Purge(ctx)
						if err != nil {
							log.Warn().Err(err).Msg("signal purge failed, will retry next interval")
							continue
						}
						log.Info().Int("purged", purged).Msg("expired intelligence signals purged")
					}
				}
			}()

			sched.Start(ctx)
			return nil
		},
	}

	cmd.Flags().DurationVar(&refreshEvery, "refresh-every", 24*time.Hour, "Price/fixture refresh interval")
	cmd.Flags().DurationVar(&sweepEvery, "sweep-every", time.Hour, "Intelligence sweep interval")
	cmd.Flags().DurationVar(&purgeEvery, "purge-every", 24*time.Hour, "Expired-signal purge interval")
	return cmd
}
