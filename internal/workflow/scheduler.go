// Scheduler drives the Orchestrator on a maintenance cadence: a frequent
// price/fixture refresh, an hourly intelligence sweep, the full weekly
// decision workflow ahead of each deadline, and a post-gameweek learning
// pass once results are in. Every run logs through zerolog and writes
// nothing to the filesystem itself — persistence is the injected
// Repository's job.
package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs an Orchestrator's stages on independent tickers.
type Scheduler struct {
	orch *Orchestrator
	log  zerolog.Logger

	RefreshInterval      time.Duration
	IntelligenceInterval time.Duration
	WeeklyInterval       time.Duration
}

// NewScheduler returns a Scheduler with the stock cadences: a
// daily price/fixture refresh and an hourly intelligence sweep.
// WeeklyInterval is set to seven days, but Start does not tick on it.
func NewScheduler(orch *Orchestrator, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		orch:                 orch,
		log:                  log,
		RefreshInterval:      24 * time.Hour,
		IntelligenceInterval: time.Hour,
		WeeklyInterval:       7 * 24 * time.Hour,
	}
}

// RunRefreshOnce pulls the latest bootstrap/fixture snapshot without
// running the rest of the workflow — cheap enough to run several times a
// day so price changes and status updates are caught quickly.
func (s *Scheduler) RunRefreshOnce(ctx context.Context) error {
	s.log.Info().Msg("starting scheduled refresh")
	_, _, _, err := s.orch.refresh(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled refresh failed")
		return err
	}
	s.log.Info().Msg("scheduled refresh complete")
	return nil
}

// RunIntelligenceSweepOnce polls every intelligence source and persists
// classified signals without recomputing the full decision.
func (s *Scheduler) RunIntelligenceSweepOnce(ctx context.Context) error {
	s.log.Info().Msg("starting scheduled intelligence sweep")
	idx, _, _, err := s.orch.refresh(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("intelligence sweep aborted: refresh failed")
		return err
	}
	signals, err := s.orch.sweepIntelligence(ctx, idx)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled intelligence sweep failed")
		return err
	}
	s.log.Info().Int("players_flagged", len(signals)).Msg("scheduled intelligence sweep complete")
	return nil
}

// RunWeeklyWorkflowOnce runs the full eight-step workflow for the given
// gameweek, intended to fire once per gameweek ahead of its deadline.
func (s *Scheduler) RunWeeklyWorkflowOnce(ctx context.Context, gameweek int) error {
	s.log.Info().Int("gameweek", gameweek).Msg("starting scheduled weekly workflow run")
	decision, err := s.orch.Run(ctx, gameweek)
	if err != nil {
		s.log.Error().Err(err).Int("gameweek", gameweek).Msg("scheduled weekly workflow run failed")
		return err
	}
	s.log.Info().Int("gameweek", gameweek).Float64("expected_points", decision.ExpectedTotalPoints).
		Msg("scheduled weekly workflow run complete")
	return nil
}

// RunLearnOnce runs the post-resolution learning pass for a gameweek whose
// fixtures have all finished.
func (s *Scheduler) RunLearnOnce(ctx context.Context, gameweek int) error {
	s.log.Info().Int("gameweek", gameweek).Msg("starting scheduled learning pass")
	result, err := s.orch.Learn(ctx, gameweek)
	if err != nil {
		s.log.Error().Err(err).Int("gameweek", gameweek).Msg("scheduled learning pass failed")
		return err
	}
	s.log.Info().Int("gameweek", gameweek).Int("samples", result.Review.Overall.SampleSize).
		Float64("captain_points_left", result.CaptainPointsLeft).Msg("scheduled learning pass complete")
	return nil
}

// Start runs RunRefreshOnce and RunIntelligenceSweepOnce on their
// configured tickers until ctx is cancelled. The weekly workflow and
// post-gameweek learning pass are deadline-driven and are left to the
// caller (the CLI's `maintain` command) to invoke with the correct
// target gameweek.
func (s *Scheduler) Start(ctx context.Context) {
	refreshTicker := time.NewTicker(s.RefreshInterval)
	intelTicker := time.NewTicker(s.IntelligenceInterval)
	defer refreshTicker.Stop()
	defer intelTicker.Stop()

	s.log.Info().Dur("refresh_interval", s.RefreshInterval).Dur("intelligence_interval", s.IntelligenceInterval).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return
		case <-refreshTicker.C:
			if err := s.RunRefreshOnce(ctx); err != nil {
				s.log.Warn().Err(err).Msg("refresh tick failed, will retry next interval")
			}
		case <-intelTicker.C:
			if err := s.RunIntelligenceSweepOnce(ctx); err != nil {
				s.log.Warn().Err(err).Msg("intelligence tick failed, will retry next interval")
			}
		}
	}
}
