// Package workflow drives the weekly decision cycle — refresh,
// intelligence sweep, feature build, predict, adjust, optimise, plan,
// emit — as a pipeline of synchronous stages. Within a stage independent
// work items fan out across goroutines bounded by a semaphore channel;
// stage boundaries are hard: a stage starts only after its predecessor's
// outputs are persisted.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jolyonbrown/ronclanker/internal/adapters"
	"github.com/jolyonbrown/ronclanker/internal/adapters/resilience"
	"github.com/jolyonbrown/ronclanker/internal/adjust"
	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/features"
	"github.com/jolyonbrown/ronclanker/internal/intelligence"
	"github.com/jolyonbrown/ronclanker/internal/optimizer"
	"github.com/jolyonbrown/ronclanker/internal/planner"
	"github.com/jolyonbrown/ronclanker/internal/predict"
	"github.com/jolyonbrown/ronclanker/internal/repository"
	"github.com/jolyonbrown/ronclanker/internal/rules"
	"github.com/jolyonbrown/ronclanker/internal/telemetry"
)

// Dependencies are the collaborators a Run call fans out to.
type Dependencies struct {
	League               adapters.LeagueDataSource
	Intelligence         []adapters.IntelligenceSource
	ClassifierThresholds intelligence.Thresholds
	Predictor            predict.Predictor
	Gateway              *resilience.Gateway

	// Memo is an optional cross-run memoization layer for predictions
	// keyed on (player, gameweek, model version); nil disables it.
	Memo PredictionMemo

	// Metrics is the optional telemetry registry; nil disables recording.
	Metrics *telemetry.Registry

	// PriceSignals is the optional externally-supplied price-movement
	// prediction per player, consumed by the planning stage's value
	// tracker when present.
	PriceSignals map[int]planner.PriceSignal

	Players      repository.PlayerRepository
	Clubs        repository.ClubRepository
	Fixtures     repository.FixtureRepository
	Gameweeks    repository.GameweekRepository
	Performances repository.PerformanceRepository
	Squads       repository.SquadRepository
	Predictions  repository.PredictionRepository
	Signals      repository.IntelligenceRepository
	Calibration  repository.CalibrationRepository
	Captains     repository.CaptainRepository
	Decisions    repository.DecisionRepository
}

// Config is the process-wide tuning surface, already resolved into the
// component-level config types those packages expect.
type Config struct {
	ManagerID       int
	Constraints     rules.Constraints
	ChipHalves      rules.ChipHalves
	FTTopups        []rules.FTTopup
	FreeTransferCap int
	AdjustConfig    adjust.Config
	OptimizerConfig optimizer.Config
	HorizonGameweeks int
	MaxConcurrency  int
	ThresholdLearningMinSamples int
	IntelligenceTTL time.Duration
	TranscriptTTL   time.Duration

	// CandidatesPerPosition bounds the out-of-squad replacement pool the
	// predict stage fans out over, per position held.
	CandidatesPerPosition int
}

// DefaultConfig returns the 2025/26 defaults threaded through every
// component's own DefaultConfig.
func DefaultConfig(managerID int) Config {
	return Config{
		ManagerID:        managerID,
		Constraints:      rules.DefaultConstraints(),
		ChipHalves:       rules.DefaultChipHalves(),
		FreeTransferCap:  5,
		AdjustConfig:     adjust.DefaultConfig(),
		OptimizerConfig:  optimizer.DefaultConfig(),
		HorizonGameweeks: 4,
		MaxConcurrency:   8,
		ThresholdLearningMinSamples: 5,
		IntelligenceTTL:  30 * 24 * time.Hour,
		TranscriptTTL:    7 * 24 * time.Hour,
		CandidatesPerPosition: 20,
	}
}

// PredictionMemo memoizes Predictor output across runs so a retried
// workflow never recomputes a (player, gameweek, model version) triple.
// Satisfied by repository/cache.PredictionCache.
type PredictionMemo interface {
	Get(ctx context.Context, playerID, gameweek int, modelVersion string) (domain.Prediction, bool, error)
	Set(ctx context.Context, prediction domain.Prediction) error
}

// Orchestrator runs one workflow cycle per call to Run.
type Orchestrator struct {
	deps Dependencies
	cfg  Config
	log  zerolog.Logger
}

// New builds an Orchestrator from its wired dependencies and config.
func New(deps Dependencies, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Orchestrator{deps: deps, cfg: cfg, log: log}
}

// observeStage records a stage's duration when a metrics registry is
// wired.
func (o *Orchestrator) observeStage(stage string, start time.Time, err error) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveStage(stage, start, err)
	}
}

// playerIndex is the per-run lookup snapshot the rules/optimizer packages
// need, built once during refresh and reused by every later stage.
type playerIndex struct {
	byID map[int]domain.Player
}

func (idx playerIndex) position(playerID int) domain.Position { return idx.byID[playerID].Position }
func (idx playerIndex) club(playerID int) int                 { return idx.byID[playerID].ClubID }
func (idx playerIndex) nowCost(playerID int) int              { return idx.byID[playerID].NowCost }

// Run executes Refresh, Intelligence sweep, Feature build, Predict, Adjust,
// Optimise, Plan and Emit for one target gameweek and returns the emitted
// Decision.
func (o *Orchestrator) Run(ctx context.Context, gameweek int) (decision domain.Decision, err error) {
	start := time.Now()
	log := o.log.With().Int("gameweek", gameweek).Logger()
	if o.deps.Metrics != nil {
		defer func() {
			result := "ok"
			if err != nil {
				result = "error"
			}
			o.deps.Metrics.WorkflowRuns.WithLabelValues(result).Inc()
		}()
	}

	stageStart := time.Now()
	idx, fixturesByClub, fixtures, err := o.refresh(ctx)
	o.observeStage("refresh", stageStart, err)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: refresh: %w", err)
	}
	log.Info().Int("players", len(idx.byID)).Msg("refresh complete")

	stageStart = time.Now()
	activeSignals, err := o.sweepIntelligence(ctx, idx)
	o.observeStage("intelligence", stageStart, err)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: intelligence sweep: %w", err)
	}
	log.Info().Int("signals", len(activeSignals)).Msg("intelligence sweep complete")

	squad, err := o.deps.Squads.Current(ctx, o.cfg.ManagerID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: load current squad: %w", err)
	}

	calibrationTable, err := o.deps.Calibration.Load(ctx)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: load calibration: %w", err)
	}

	candidates, err := o.candidatePool(ctx, squad)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: candidate pool: %w", err)
	}

	required := make(map[int]bool, len(squad.Picks))
	targets := make([]int, 0, len(squad.Picks)+len(candidates))
	for _, pick := range squad.Picks {
		required[pick.PlayerID] = true
		targets = append(targets, pick.PlayerID)
	}
	targets = append(targets, candidates...)

	stageStart = time.Now()
	byPlayer, err := o.predictAndAdjust(ctx, targets, required, gameweek, idx, fixturesByClub, activeSignals, calibrationTable)
	o.observeStage("predict", stageStart, err)
	if err != nil {
		if o.deps.Metrics != nil {
			o.deps.Metrics.PredictionGaps.Inc()
		}
		return domain.Decision{}, fmt.Errorf("workflow: predict/adjust: %w", err)
	}
	log.Info().Int("predicted", len(byPlayer)).Int("candidates", len(candidates)).Msg("prediction and adjustment complete")

	transferHistory, err := o.deps.Squads.TransferHistory(ctx, o.cfg.ManagerID, gameweek-1)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: transfer history: %w", err)
	}
	chipHistory, err := o.deps.Squads.ChipHistory(ctx, o.cfg.ManagerID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: chip history: %w", err)
	}

	proposedSquad, transfers, deferred, freeLeft, wildcardRecommended, err := o.optimiseTransfers(squad, byPlayer, gameweek, transferHistory, chipHistory)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: transfer optimisation: %w", err)
	}

	result, err := optimizer.BuildDraft(proposedSquad, gameweek, byPlayer, false, o.cfg.Constraints, idx.position, idx.club)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: build draft: %w", err)
	}

	rationale := o.plan(gameweek, chipHistory, fixtures, squad, idx, deferred, freeLeft, wildcardRecommended)

	expectedTotal := 0.0
	for _, pick := range result.Draft.Picks {
		if pick.Slot > 11 {
			continue
		}
		expectedTotal += byPlayer[pick.PlayerID].ExpectedPoints * float64(pick.Multiplier)
	}

	decision = domain.Decision{
		Gameweek:            gameweek,
		Draft:               result.Draft,
		CaptainID:           result.CaptainID,
		ViceID:              result.ViceID,
		Transfers:           transfers,
		ExpectedTotalPoints: expectedTotal,
		RationaleTokens:     rationale,
		ProducedAt:          time.Now(),
	}

	stageStart = time.Now()
	err = o.emit(ctx, decision)
	o.observeStage("emit", stageStart, err)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("workflow: emit: %w", err)
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.DecisionExpectedPoints.Set(expectedTotal)
	}

	log.Info().Dur("elapsed", time.Since(start)).Float64("expected_points", expectedTotal).Msg("workflow run complete")
	return decision, nil
}

// refresh pulls bootstrap/fixture/history data through the resilience
// Gateway and persists it, returning the per-run player lookup snapshot,
// each club's next-fixture context, and the full fixture list the
// planning stage reads.
func (o *Orchestrator) refresh(ctx context.Context) (playerIndex, map[int]features.FixtureContext, []domain.Fixture, error) {
	var bootstrap adapters.BootstrapData
	err := o.deps.Gateway.Call(ctx, "fpl-api", "bootstrap", func(ctx context.Context) error {
		data, err := o.deps.League.Bootstrap(ctx)
		if err != nil {
			return err
		}
		bootstrap = data
		return nil
	})
	if err != nil {
		return playerIndex{}, nil, nil, err
	}

	var fixtures []domain.Fixture
	err = o.deps.Gateway.Call(ctx, "fpl-api", "fixtures", func(ctx context.Context) error {
		f, err := o.deps.League.Fixtures(ctx)
		if err != nil {
			return err
		}
		fixtures = f
		return nil
	})
	if err != nil {
		return playerIndex{}, nil, nil, err
	}

	idx := playerIndex{byID: make(map[int]domain.Player, len(bootstrap.Players))}
	for _, p := range bootstrap.Players {
		idx.byID[p.ID] = p
		if err := o.deps.Players.Upsert(ctx, p); err != nil {
			return playerIndex{}, nil, nil, fmt.Errorf("persist player %d: %w", p.ID, err)
		}
	}
	for _, c := range bootstrap.Clubs {
		if err := o.deps.Clubs.Upsert(ctx, c); err != nil {
			return playerIndex{}, nil, nil, fmt.Errorf("persist club %d: %w", c.ID, err)
		}
	}
	for _, gw := range bootstrap.Gameweeks {
		if err := o.deps.Gameweeks.Upsert(ctx, gw); err != nil {
			return playerIndex{}, nil, nil, fmt.Errorf("persist gameweek %d: %w", gw.Number, err)
		}
	}
	for _, f := range fixtures {
		if err := o.deps.Fixtures.Upsert(ctx, f); err != nil {
			return playerIndex{}, nil, nil, fmt.Errorf("persist fixture %d: %w", f.ID, err)
		}
	}

	fixtureByClub := map[int]features.FixtureContext{}
	for _, f := range fixtures {
		if f.Finished {
			continue
		}
		fixtureByClub[f.HomeClubID] = features.FixtureContext{OpponentStrength: f.AwayDifficulty, FixtureDifficulty: f.HomeDifficulty, IsHome: true}
		fixtureByClub[f.AwayClubID] = features.FixtureContext{OpponentStrength: f.HomeDifficulty, FixtureDifficulty: f.AwayDifficulty, IsHome: false}
	}

	return idx, fixtureByClub, fixtures, nil
}

// sweepIntelligence polls every registered IntelligenceSource concurrently,
// classifies each raw item, persists the classified signal, and returns
// every player's currently active signals.
func (o *Orchestrator) sweepIntelligence(ctx context.Context, idx playerIndex) (map[int][]domain.IntelligenceSignal, error) {
	since := time.Now().Add(-24 * time.Hour)

	type pollResult struct {
		raw []adapters.RawSignal
		err error
	}
	results := make([]pollResult, len(o.deps.Intelligence))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.cfg.MaxConcurrency)
	for i, source := range o.deps.Intelligence {
		wg.Add(1)
		go func(i int, source adapters.IntelligenceSource) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var raw []adapters.RawSignal
			err := o.deps.Gateway.Call(ctx, source.Name(), source.Name(), func(ctx context.Context) error {
				r, err := source.Poll(ctx, since)
				if err != nil {
					return err
				}
				raw = r
				return nil
			})
			results[i] = pollResult{raw: raw, err: err}
		}(i, source)
	}
	wg.Wait()

	roster := intelligence.Roster{}
	for _, p := range idx.byID {
		roster[strings.ToLower(p.Name)] = p.ID
	}
	classifier := intelligence.New(roster, o.deps.ClassifierThresholds)

	// Concurrent polls merge deterministically: classification order is
	// (observed_at, source id), never poll completion order.
	var merged []adapters.RawSignal
	for i, res := range results {
		if res.err != nil {
			o.log.Warn().Err(res.err).Str("source", o.deps.Intelligence[i].Name()).Msg("intelligence source degraded, skipping this sweep")
			if o.deps.Metrics != nil {
				o.deps.Metrics.SourceFailures.WithLabelValues(o.deps.Intelligence[i].Name()).Inc()
			}
			continue
		}
		merged = append(merged, res.raw...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].ObservedAt.Equal(merged[j].ObservedAt) {
			return merged[i].ObservedAt.Before(merged[j].ObservedAt)
		}
		return merged[i].SourceID < merged[j].SourceID
	})

	active := map[int][]domain.IntelligenceSignal{}
	for _, raw := range merged {
		signal := classifier.Classify(intelligence.RawIntelligence{
			SourceID:          raw.SourceID,
			PlayerName:        raw.PlayerName,
			Details:           raw.Detail,
			Type:              raw.Type,
			SourceReliability: raw.SourceReliability,
		})
		signal.ID = uuid.NewString()
		signal.Timestamp = raw.ObservedAt
		ttl := o.cfg.IntelligenceTTL
		if raw.Type == domain.SignalPressConference {
			ttl = o.cfg.TranscriptTTL
		}
		if ttl > 0 {
			signal.ExpiresAt = raw.ObservedAt.Add(ttl)
		}
		if o.deps.Metrics != nil {
			o.deps.Metrics.SignalsClassified.WithLabelValues(string(signal.Severity), strconv.FormatBool(signal.Actionable)).Inc()
		}
		if err := o.deps.Signals.Save(ctx, signal); err != nil {
			return nil, fmt.Errorf("persist signal for %q: %w", raw.PlayerName, err)
		}
		if signal.PlayerID != nil {
			active[*signal.PlayerID] = append(active[*signal.PlayerID], signal)
		}
	}
	return active, nil
}

// predictAndAdjust fans out Predictor calls across the given players —
// the current squad plus the replacement-candidate pool — bounded by
// Config.MaxConcurrency, then runs each result through the Prediction
// Adjuster. required marks the players whose prediction must not be
// missing.
func (o *Orchestrator) predictAndAdjust(
	ctx context.Context,
	playerIDs []int,
	required map[int]bool,
	gameweek int,
	idx playerIndex,
	fixtureByClub map[int]features.FixtureContext,
	activeSignals map[int][]domain.IntelligenceSignal,
	calibrationTable domain.CalibrationTable,
) (map[int]optimizer.PlayerInfo, error) {
	type outcome struct {
		playerID int
		info     optimizer.PlayerInfo
		err      error
	}
	outcomes := make([]outcome, len(playerIDs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.cfg.MaxConcurrency)
	for i, playerID := range playerIDs {
		wg.Add(1)
		go func(i int, playerID int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			player := idx.byID[playerID]
			history, err := o.deps.Performances.History(ctx, playerID, gameweek-1)
			if err != nil {
				outcomes[i] = outcome{playerID: playerID, err: err}
				return
			}

			static := features.Static{
				Price: float64(player.NowCost), OwnershipPercent: player.SelectedByPercent,
				Form: player.Form, PointsPerGame: player.PointsPerGame,
				ICTInfluence: player.ICTInfluence, ICTCreativity: player.ICTCreativity, ICTThreat: player.ICTThreat,
			}
			fixture := fixtureByClub[player.ClubID]
			if fixture == (features.FixtureContext{}) {
				fixture = features.DefaultFixtureContext()
			}
			vector := features.Build(playerID, gameweek, static, history, fixture)
			sequence := features.Sequence(playerID, gameweek, static, history, func(int) features.FixtureContext { return fixture }, features.DefaultSequenceLength)

			modelVersion := o.deps.Predictor.Version()
			var output predict.Output
			memoized := false
			if o.deps.Memo != nil {
				if cached, ok, err := o.deps.Memo.Get(ctx, playerID, gameweek, modelVersion); err == nil && ok {
					output = predict.Output{ExpectedPoints: cached.ExpectedPoints, Confidence: cached.Confidence}
					memoized = true
				}
			}
			if !memoized {
				out, err := o.deps.Predictor.Predict(ctx, vector, sequence, player.Position, gameweek)
				if err != nil {
					outcomes[i] = outcome{playerID: playerID, err: fmt.Errorf("no prediction for player %d: %w", playerID, err)}
					return
				}
				output = out
			}

			prediction := domain.Prediction{
				PlayerID: playerID, Gameweek: gameweek, ExpectedPoints: output.ExpectedPoints,
				Confidence: output.Confidence, ModelVersion: modelVersion, ProducedAt: time.Now(),
			}
			if err := o.deps.Predictions.Save(ctx, prediction); err != nil {
				outcomes[i] = outcome{playerID: playerID, err: err}
				return
			}
			if o.deps.Memo != nil && !memoized {
				if err := o.deps.Memo.Set(ctx, prediction); err != nil {
					o.log.Warn().Err(err).Int("player_id", playerID).Msg("prediction memoization write failed")
				}
			}

			trace := adjust.Adjust(adjust.Input{
				PlayerID: playerID, Position: player.Position, NowCost: player.NowCost, Form: player.Form,
				RawExpectedPoints: output.ExpectedPoints, Status: player.Status, ChanceOfPlaying: player.ChanceOfPlaying,
				Signals: activeSignals[playerID], Calibration: calibrationTable,
			}, o.cfg.AdjustConfig)

			outcomes[i] = outcome{playerID: playerID, info: optimizer.PlayerInfo{
				PlayerID: playerID, Position: player.Position, ClubID: player.ClubID, NowCost: player.NowCost,
				ChanceOfPlaying: player.ChanceOfPlaying, ExpectedPoints: trace.Final, Severity: worstSeverity(activeSignals[playerID]),
			}}
		}(i, playerID)
	}
	wg.Wait()

	// A gap on a current-squad player is fatal (the bench cannot be
	// chosen safely); a gap on a replacement candidate just shrinks the
	// pool.
	byPlayer := make(map[int]optimizer.PlayerInfo, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			if required[out.playerID] {
				return nil, out.err
			}
			o.log.Warn().Err(out.err).Int("player_id", out.playerID).Msg("candidate dropped from replacement pool")
			continue
		}
		byPlayer[out.playerID] = out.info
	}
	return byPlayer, nil
}

// candidatePool queries the full roster for out-of-squad replacement
// candidates: per position held in the squad, available players priced
// within replacement headroom of the squad's most expensive holder, kept
// to the best few by current form so prediction fan-out stays bounded.
func (o *Orchestrator) candidatePool(ctx context.Context, squad domain.Squad) ([]int, error) {
	perPosition := o.cfg.CandidatesPerPosition
	if perPosition <= 0 {
		perPosition = 20
	}

	inSquad := make(map[int]bool, len(squad.Picks))
	for _, pick := range squad.Picks {
		inSquad[pick.PlayerID] = true
	}

	maxCostByPosition := map[domain.Position]int{}
	for _, pick := range squad.Picks {
		player, err := o.deps.Players.Get(ctx, pick.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("squad player %d: %w", pick.PlayerID, err)
		}
		ceiling := rules.SellingPrice(pick.PurchasePrice, player.NowCost) + o.cfg.OptimizerConfig.ReplacementHeadroom
		if ceiling > maxCostByPosition[player.Position] {
			maxCostByPosition[player.Position] = ceiling
		}
	}

	var candidates []int
	for _, position := range []domain.Position{domain.GK, domain.DEF, domain.MID, domain.FWD} {
		maxCost, held := maxCostByPosition[position]
		if !held {
			continue
		}
		pos := position
		status := domain.Available
		pool, err := o.deps.Players.Filter(ctx, repository.PlayerFilter{
			Position: &pos, Status: &status, MaxNowCost: &maxCost,
		})
		if err != nil {
			return nil, fmt.Errorf("filter %s candidates: %w", position, err)
		}

		sort.Slice(pool, func(i, j int) bool {
			if pool[i].Form != pool[j].Form {
				return pool[i].Form > pool[j].Form
			}
			return pool[i].ID < pool[j].ID
		})
		kept := 0
		for _, p := range pool {
			if inSquad[p.ID] {
				continue
			}
			candidates = append(candidates, p.ID)
			kept++
			if kept >= perPosition {
				break
			}
		}
	}
	return candidates, nil
}

func worstSeverity(signals []domain.IntelligenceSignal) domain.Severity {
	rank := map[domain.Severity]int{domain.SeverityLow: 0, domain.SeverityMedium: 1, domain.SeverityHigh: 2, domain.SeverityCritical: 3}
	worst := domain.SeverityLow
	for _, s := range signals {
		if rank[s.Severity] > rank[worst] {
			worst = s.Severity
		}
	}
	return worst
}

// optimiseTransfers applies the weakest-link replacement loop across the
// current squad, accepting a transfer only when EvaluateTransfer clears
// the horizon-gain bar. Before any single transfer it fires the wildcard
// trigger: enough urgent squad signals surface a wildcard recommendation
// instead, and a fully-urgent squad with the wildcard spent is refused
// outright. Rejected-but-positive proposals come back as deferred
// targets for the planning stage's sequencer, along with the free
// transfers left after the accepted moves.
func (o *Orchestrator) optimiseTransfers(
	squad domain.Squad,
	byPlayer map[int]optimizer.PlayerInfo,
	gameweek int,
	history []domain.Transfer,
	chipHistory []domain.ChipUsage,
) (domain.Squad, []domain.Transfer, []planner.TransferTarget, int, bool, error) {
	chipGameweeks := map[int]bool{}
	for _, c := range chipHistory {
		if c.Chip == domain.Wildcard || c.Chip == domain.FreeHit {
			chipGameweeks[c.Gameweek] = true
		}
	}
	records := make([]rules.GameweekTransferRecord, 0, len(history))
	for _, t := range history {
		records = append(records, rules.GameweekTransferRecord{Gameweek: t.Gameweek, TransfersMade: 1, WildcardOrFreeHit: chipGameweeks[t.Gameweek]})
	}
	free := rules.FreeTransfers(records, gameweek, o.cfg.FreeTransferCap, o.cfg.FTTopups)
	maxTransfers := free + 2 // bounds hit-taking transfers beyond the free allowance

	urgentCount := 0
	for _, pick := range squad.Picks {
		severity := byPlayer[pick.PlayerID].Severity
		if severity == domain.SeverityCritical || severity == domain.SeverityHigh {
			urgentCount++
		}
	}
	wildcardAvailable := rules.CanUseChip(domain.Wildcard, gameweek, chipHistory, o.cfg.ChipHalves) == nil
	if urgentCount == len(squad.Picks) && !wildcardAvailable {
		return squad, nil, nil, free, false, domain.NewError(domain.ErrChipUnavailable, "workflow.Orchestrator", map[string]any{
			"gameweek":     gameweek,
			"urgent_count": urgentCount,
			"reason":       "entire squad flagged urgent and wildcard already used this half",
		})
	}
	if optimizer.ShouldRecommendWildcard(urgentCount, wildcardAvailable, o.cfg.OptimizerConfig) {
		// Single transfers cannot fix a squad this disrupted; surface the
		// wildcard instead and leave the squad untouched.
		o.log.Info().Int("urgent", urgentCount).Msg("wildcard recommended in place of transfers")
		return squad, nil, nil, free, true, nil
	}

	var transfers []domain.Transfer
	var deferred []planner.TransferTarget
	working := squad
	for len(transfers) < maxTransfers {
		weakestID, err := optimizer.WeakestLink(working, byPlayer)
		if err != nil {
			break
		}
		weakest := byPlayer[weakestID]

		inSquad := map[int]bool{}
		for _, p := range working.Picks {
			inSquad[p.PlayerID] = true
		}
		pool := make([]optimizer.PlayerInfo, 0, len(byPlayer))
		for _, info := range byPlayer {
			pool = append(pool, info)
		}
		sort.Slice(pool, func(i, j int) bool { return pool[i].PlayerID < pool[j].PlayerID })

		maxPrice := weakest.NowCost + o.cfg.OptimizerConfig.ReplacementHeadroom
		replacement, found := optimizer.FindReplacement(pool, inSquad, weakest.Position, maxPrice, o.cfg.OptimizerConfig)
		if !found {
			break
		}

		gain := replacement.ExpectedPoints - weakest.ExpectedPoints
		horizonGain := gain * float64(o.cfg.HorizonGameweeks)
		accept, incursHit, rationale := optimizer.EvaluateTransfer(weakest.Position, horizonGain, free, weakest.Severity, o.cfg.OptimizerConfig)
		if !accept {
			// Not worth it this gameweek; hand it to the sequencer so a
			// banked free transfer can pick it up later in the horizon.
			if gain > 0 {
				target := planner.TransferTarget{
					PlayerOutID:  weakestID,
					PlayerInID:   replacement.PlayerID,
					Priority:     int(horizonGain * 10),
					ExpectedGain: horizonGain,
				}
				if weakest.Severity == domain.SeverityHigh || weakest.Severity == domain.SeverityCritical {
					target.LatestByGW = gameweek + 1
				}
				deferred = append(deferred, target)
			}
			break
		}

		var outPick domain.Pick
		for _, p := range working.Picks {
			if p.PlayerID == weakestID {
				outPick = p
			}
		}
		hitCost := 0
		if incursHit {
			hitCost = rules.HitPointCost
		} else {
			free--
		}

		newPicks := make([]domain.Pick, 0, len(working.Picks))
		for _, p := range working.Picks {
			if p.PlayerID == weakestID {
				continue
			}
			newPicks = append(newPicks, p)
		}
		newPicks = append(newPicks, domain.Pick{
			PlayerID: replacement.PlayerID, Slot: outPick.Slot,
			PurchasePrice: replacement.NowCost, SellingPrice: replacement.NowCost,
		})
		working = domain.Squad{ManagerID: working.ManagerID, Gameweek: gameweek, Picks: newPicks, Bank: working.Bank + rules.SellingPrice(outPick.PurchasePrice, outPick.SellingPrice) - replacement.NowCost}

		transfers = append(transfers, domain.Transfer{
			Gameweek: gameweek, PlayerOutID: weakestID, PlayerInID: replacement.PlayerID,
			HitCost: hitCost, IsFree: hitCost == 0, Reasoning: rationale, PredictedGain: gain,
		})
	}

	return working, transfers, deferred, free, false, nil
}

// plan is the strategic-planning stage: per-club fixture analysis over
// the horizon, sequencing of deferred transfers against banked free
// transfers, chip-timing recommendations, and squad value tracking. Its
// output is the rationale-token list attached to the emitted Decision.
func (o *Orchestrator) plan(
	gameweek int,
	chipHistory []domain.ChipUsage,
	fixtures []domain.Fixture,
	squad domain.Squad,
	idx playerIndex,
	deferred []planner.TransferTarget,
	freeTransfers int,
	wildcardRecommended bool,
) []string {
	half := o.cfg.ChipHalves.HalfFor(gameweek)
	halfDeadline := o.cfg.ChipHalves.FirstHalfEnd
	if half == domain.SecondHalf {
		halfDeadline = 38
	}
	horizonEnd := gameweek + o.cfg.HorizonGameweeks - 1

	var tokens []string

	squadClubs := map[int]bool{}
	for _, pick := range squad.Picks {
		squadClubs[idx.club(pick.PlayerID)] = true
	}

	// Per-club difficulty windows over the horizon, from the fixture list
	// refreshed this run.
	windows := map[int][]planner.FixtureDifficulty{}
	fixturesPerClubGW := map[int]map[int]int{}
	for _, f := range fixtures {
		if f.Finished || f.Gameweek < gameweek || f.Gameweek > horizonEnd {
			continue
		}
		windows[f.HomeClubID] = append(windows[f.HomeClubID], planner.FixtureDifficulty{Gameweek: f.Gameweek, Difficulty: float64(f.HomeDifficulty)})
		windows[f.AwayClubID] = append(windows[f.AwayClubID], planner.FixtureDifficulty{Gameweek: f.Gameweek, Difficulty: float64(f.AwayDifficulty)})
		for _, clubID := range []int{f.HomeClubID, f.AwayClubID} {
			if fixturesPerClubGW[clubID] == nil {
				fixturesPerClubGW[clubID] = map[int]int{}
			}
			fixturesPerClubGW[clubID][f.Gameweek]++
		}
	}

	exceptionalFixtureGW := 0
	clubIDs := make([]int, 0, len(squadClubs))
	for clubID := range squadClubs {
		clubIDs = append(clubIDs, clubID)
	}
	sort.Ints(clubIDs)
	for _, clubID := range clubIDs {
		window := windows[clubID]
		sort.Slice(window, func(i, j int) bool { return window[i].Gameweek < window[j].Gameweek })

		analysis := planner.AnalyzeFixtures(clubID, window)
		if analysis.Verdict != planner.Hold {
			tokens = append(tokens, fmt.Sprintf("fixtures:club_%d:%s:avg_%.1f", clubID, analysis.Verdict, analysis.AverageDifficulty))
		}
		if analysis.Swing != planner.NoSwing {
			tokens = append(tokens, fmt.Sprintf("fixtures:club_%d:swing_%s", clubID, analysis.Swing))
		}
		for _, w := range window {
			if w.Difficulty <= 2 && (exceptionalFixtureGW == 0 || w.Gameweek < exceptionalFixtureGW) {
				exceptionalFixtureGW = w.Gameweek
			}
		}
	}

	// Double/blank detection across the horizon, restricted to clubs the
	// squad actually holds players from.
	var doubles []planner.DoubleGameweek
	var blanks []planner.BlankGameweek
	for gw := gameweek; gw <= horizonEnd; gw++ {
		playingTwice := 0
		blankSeen := false
		for clubID := range squadClubs {
			switch fixturesPerClubGW[clubID][gw] {
			case 0:
				blankSeen = true
			case 1:
			default:
				playingTwice++
			}
		}
		if playingTwice > 0 {
			doubles = append(doubles, planner.DoubleGameweek{Gameweek: gw, ClubsPlaying: playingTwice})
		}
		if blankSeen {
			blanks = append(blanks, planner.BlankGameweek{Gameweek: gw})
		}
	}

	used := map[domain.Chip]bool{}
	for _, c := range chipHistory {
		if c.Half == half {
			used[c.Chip] = true
		}
	}

	if wildcardRecommended {
		tokens = append(tokens, "wildcard:recommended:squad-wide urgent signals exceed transfer capacity")
	}
	if !used[domain.Wildcard] {
		rec := planner.RecommendWildcard(gameweek, half, halfDeadline, doubles)
		tokens = append(tokens, fmt.Sprintf("wildcard:%s:%s", rec.Urgency, rec.Rationale))
	}
	if !used[domain.BenchBoost] {
		rec := planner.RecommendBenchBoost(gameweek, halfDeadline, doubles)
		tokens = append(tokens, fmt.Sprintf("bench_boost:%s:%s", rec.Urgency, rec.Rationale))
	}
	if !used[domain.TripleCaptain] {
		rec := planner.RecommendTripleCaptain(gameweek, halfDeadline, doubles, exceptionalFixtureGW)
		tokens = append(tokens, fmt.Sprintf("triple_captain:%s:%s", rec.Urgency, rec.Rationale))
	}
	if !used[domain.FreeHit] {
		rec := planner.RecommendFreeHit(gameweek, halfDeadline, blanks)
		tokens = append(tokens, fmt.Sprintf("free_hit:%s:%s", rec.Urgency, rec.Rationale))
	}

	// Deferred transfers get sequenced against banked free transfers over
	// the rest of the horizon.
	if len(deferred) > 0 {
		for _, target := range deferred {
			tokens = append(tokens, fmt.Sprintf("hit:%d->%d:%s", target.PlayerOutID, target.PlayerInID, planner.WorthHit(target.ExpectedGain)))
		}
		bundles := planner.SequenceTransfers(deferred, gameweek+1, horizonEnd, freeTransfers, o.cfg.FreeTransferCap, rules.HitPointCost)
		for _, bundle := range bundles {
			if len(bundle.Scheduled) == 0 {
				continue
			}
			tokens = append(tokens, fmt.Sprintf("sequence:gw%d:%d transfers,hit_%d,gain_%.1f", bundle.Gameweek, len(bundle.Scheduled), bundle.HitCost, bundle.ExpectedGain))
		}
		tokens = append(tokens, fmt.Sprintf("sequence:net_gain_%.1f", planner.NetGain(bundles)))
	}

	// Value tracking over the held squad, with the external price signal
	// layered in when one is injected.
	picks := make([]planner.PickCost, 0, len(squad.Picks))
	for _, pick := range squad.Picks {
		picks = append(picks, planner.PickCost{
			PlayerID:      pick.PlayerID,
			PurchasePrice: pick.PurchasePrice,
			CurrentPrice:  idx.nowCost(pick.PlayerID),
		})
	}
	for _, value := range planner.TrackValue(picks, o.deps.PriceSignals) {
		if value.UnrealisedProfit != 0 || value.Trend != planner.TrendStable {
			tokens = append(tokens, fmt.Sprintf("value:player_%d:profit_%d:%s", value.PlayerID, value.UnrealisedProfit, value.Trend))
		}
	}

	return tokens
}

func (o *Orchestrator) emit(ctx context.Context, decision domain.Decision) error {
	if err := o.deps.Squads.PromoteDraft(ctx, decision.Draft); err != nil {
		return err
	}
	for _, t := range decision.Transfers {
		if err := o.deps.Squads.RecordTransfer(ctx, t); err != nil {
			return err
		}
	}
	return o.deps.Decisions.Save(ctx, decision)
}
