// Package repository defines the persistence contracts the rest of the
// core depends on. Concrete implementations live in subpackages: memory
// (in-process, for tests and dry runs), postgres (sqlx + lib/pq), and
// cache (a go-redis TTL wrapper for memoized predictions).
package repository

import (
	"context"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// PlayerFilter narrows a roster query. Nil fields match everything.
type PlayerFilter struct {
	Position   *domain.Position
	Status     *domain.Availability
	MinNowCost *int
	MaxNowCost *int
}

// PlayerRepository stores the league's player roster snapshot.
type PlayerRepository interface {
	Upsert(ctx context.Context, player domain.Player) error
	Get(ctx context.Context, playerID int) (domain.Player, error)
	List(ctx context.Context) ([]domain.Player, error)
	Filter(ctx context.Context, filter PlayerFilter) ([]domain.Player, error)
}

// ClubRepository stores the league's clubs with their strength ratings.
type ClubRepository interface {
	Upsert(ctx context.Context, club domain.Club) error
	Get(ctx context.Context, clubID int) (domain.Club, error)
	List(ctx context.Context) ([]domain.Club, error)
}

// FixtureRepository stores the fixture list with difficulty and results.
type FixtureRepository interface {
	Upsert(ctx context.Context, fixture domain.Fixture) error
	// UpcomingForClub returns clubID's unfinished fixtures within the
	// inclusive gameweek range, ordered by gameweek.
	UpcomingForClub(ctx context.Context, clubID, fromGameweek, throughGameweek int) ([]domain.Fixture, error)
	ForGameweek(ctx context.Context, gameweek int) ([]domain.Fixture, error)
}

// GameweekRepository stores the 38 rounds. Status flags mirror the
// upstream authority; SetStatus clears competing is_current/is_next flags
// in the same transaction so at most one of each is ever observable.
type GameweekRepository interface {
	Upsert(ctx context.Context, gameweek domain.Gameweek) error
	Current(ctx context.Context) (domain.Gameweek, error)
	SetStatus(ctx context.Context, number int, isCurrent, isNext, finished bool) error
}

// PerformanceRepository stores resolved per-gameweek player performances,
// the history features.Build reads from.
type PerformanceRepository interface {
	Record(ctx context.Context, perf domain.PlayerGameweekPerformance) error
	History(ctx context.Context, playerID int, throughGameweek int) ([]domain.PlayerGameweekPerformance, error)
}

// SquadRepository stores the manager's current squad and promotes drafts
// atomically.
type SquadRepository interface {
	Current(ctx context.Context, managerID int) (domain.Squad, error)
	PromoteDraft(ctx context.Context, draft domain.DraftSquad) error
	RecordTransfer(ctx context.Context, transfer domain.Transfer) error
	TransferHistory(ctx context.Context, managerID int, throughGameweek int) ([]domain.Transfer, error)
	ChipHistory(ctx context.Context, managerID int) ([]domain.ChipUsage, error)
	RecordChipUse(ctx context.Context, managerID int, usage domain.ChipUsage) error
	// BackfillTransferGain sets the realised gain on a recorded transfer
	// once its first gameweek resolves; transfers are otherwise immutable.
	BackfillTransferGain(ctx context.Context, managerID int, gameweek, playerOutID, playerInID int, actualGain float64) error
}

// PredictionRepository stores each raw (pre-adjustment) Predictor output,
// with actual points and prediction error back-filled by the learning
// pass, keyed on (player, gameweek, model version) so a repeated run
// overwrites rather than duplicates.
type PredictionRepository interface {
	Save(ctx context.Context, prediction domain.Prediction) error
	Get(ctx context.Context, playerID, gameweek int, modelVersion string) (domain.Prediction, bool, error)
	ForGameweek(ctx context.Context, gameweek int) ([]domain.Prediction, error)
}

// IntelligenceRepository stores classified signals with a TTL.
type IntelligenceRepository interface {
	Save(ctx context.Context, signal domain.IntelligenceSignal) error
	Active(ctx context.Context, playerID int) ([]domain.IntelligenceSignal, error)
	Purge(ctx context.Context) (int, error)
}

// CalibrationRepository stores the learned correction table.
type CalibrationRepository interface {
	Load(ctx context.Context) (domain.CalibrationTable, error)
	Save(ctx context.Context, table domain.CalibrationTable) error
}

// CaptainRepository stores per-gameweek captaincy reviews so the
// points-left-on-table figure can be read back as a rolling trend.
type CaptainRepository interface {
	Record(ctx context.Context, review domain.CaptainReview) error
	// Recent returns up to lastN reviews, most recent gameweek first.
	Recent(ctx context.Context, lastN int) ([]domain.CaptainReview, error)
}

// DecisionRepository stores each workflow run's final output for the
// monitor API and audit.
type DecisionRepository interface {
	Save(ctx context.Context, decision domain.Decision) error
	Latest(ctx context.Context) (domain.Decision, bool, error)
}
