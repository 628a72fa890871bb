package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jolyonbrown/ronclanker/internal/adapters"
	"github.com/jolyonbrown/ronclanker/internal/adapters/filesource"
	"github.com/jolyonbrown/ronclanker/internal/adapters/resilience"
	"github.com/jolyonbrown/ronclanker/internal/config"
	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/predict/baseline"
	"github.com/jolyonbrown/ronclanker/internal/repository/cache"
	"github.com/jolyonbrown/ronclanker/internal/repository/memory"
	"github.com/jolyonbrown/ronclanker/internal/telemetry"
	"github.com/jolyonbrown/ronclanker/internal/repository/postgres"
	"github.com/jolyonbrown/ronclanker/internal/workflow"
)

// buildDependencies assembles the workflow's collaborators from the
// loaded configuration: snapshot-file adapters behind the resilience
// gateway, the baseline predictor, and either the Postgres repositories
// (when a DSN is configured) or the in-memory store.
func buildDependencies(cfg config.Config, log zerolog.Logger) (workflow.Dependencies, func(), error) {
	league := filesource.NewLeague(cfg.SnapshotDir)

	sources := []adapters.IntelligenceSource{
		filesource.NewIntelligence("snapshot-news", 0.7, filepath.Join(cfg.SnapshotDir, "signals.json")),
	}

	gateway := resilience.NewGateway()
	gateway.Register(resilience.DefaultSourceConfig("fpl-api"))
	for _, src := range sources {
		gateway.Register(resilience.DefaultSourceConfig(src.Name()))
	}

	deps := workflow.Dependencies{
		League:               league,
		Intelligence:         sources,
		ClassifierThresholds: cfg.ClassifierThresholds(),
		Predictor:            baseline.New(baseline.DefaultWeights()),
		Gateway:              gateway,
		Metrics:              telemetry.NewRegistry(),
	}

	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		deps.Memo = cache.New(client, 7*24*time.Hour)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("prediction memoization cache enabled")
	}

	if cfg.Database.DSN != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN)
		if err != nil {
			return workflow.Dependencies{}, nil, fmt.Errorf("connect postgres: %w", err)
		}
		timeout := cfg.Database.QueryTimeout()
		deps.Players = postgres.NewPlayerRepo(db, timeout)
		deps.Clubs = postgres.NewClubRepo(db, timeout)
		deps.Fixtures = postgres.NewFixtureRepo(db, timeout)
		deps.Gameweeks = postgres.NewGameweekRepo(db, timeout)
		deps.Performances = postgres.NewPerformanceRepo(db, timeout)
		deps.Squads = postgres.NewSquadRepo(db, timeout)
		deps.Predictions = postgres.NewPredictionRepo(db, timeout)
		deps.Signals = postgres.NewIntelligenceRepo(db, timeout)
		deps.Calibration = postgres.NewCalibrationRepo(db, timeout)
		deps.Captains = postgres.NewCaptainRepo(db, timeout)
		deps.Decisions = postgres.NewDecisionRepo(db, timeout)
		cleanup = func() { _ = db.Close() }
		log.Info().Msg("using postgres repositories")
		return deps, cleanup, nil
	}

	store := memory.New()
	deps.Players = store.Players()
	deps.Clubs = store.Clubs()
	deps.Fixtures = store.Fixtures()
	deps.Gameweeks = store.Gameweeks()
	deps.Performances = store.Performances()
	deps.Squads = store.Squads()
	deps.Predictions = store.Predictions()
	deps.Signals = store.Intelligence()
	deps.Calibration = store.Calibration()
	deps.Captains = store.Captains()
	deps.Decisions = store.Decisions()
	log.Info().Msg("no database configured, using in-memory repositories")

	if err := seedSquadFromSnapshot(cfg, store, log); err != nil {
		return workflow.Dependencies{}, nil, err
	}
	return deps, cleanup, nil
}

// seedSquadFromSnapshot loads squad.json from the snapshot directory into
// the in-memory store so a dry run starts from the held squad rather than
// an empty one. A missing file is fine; the run will then fail loudly at
// the squad-load stage instead of silently inventing one.
func seedSquadFromSnapshot(cfg config.Config, store *memory.Store, log zerolog.Logger) error {
	path := filepath.Join(cfg.SnapshotDir, "squad.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read squad snapshot: %w", err)
	}

	var squad domain.Squad
	if err := json.Unmarshal(raw, &squad); err != nil {
		return fmt.Errorf("parse squad snapshot: %w", err)
	}
	if squad.ManagerID == 0 {
		squad.ManagerID = cfg.ManagerID
	}

	draft := domain.DraftSquad{ManagerID: squad.ManagerID, Gameweek: squad.Gameweek, Picks: squad.Picks, Bank: squad.Bank}
	if err := store.Squads().PromoteDraft(context.Background(), draft); err != nil {
		return fmt.Errorf("seed squad snapshot: %w", err)
	}
	log.Info().Int("picks", len(squad.Picks)).Int("bank", squad.Bank).Msg("seeded squad from snapshot")
	return nil
}
