// Package postgres implements the repository contracts against
// PostgreSQL using sqlx and lib/pq: one repo struct per table, bounded
// per-call context timeouts, and upserts via
// INSERT ... ON CONFLICT DO UPDATE.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/repository"
)

// Open dials PostgreSQL via lib/pq and verifies connectivity.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: connect: %w", err)
	}
	return db, nil
}

// PlayerRepo is the sqlx-backed player roster store.
type PlayerRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPlayerRepo constructs a PlayerRepo with a bounded per-call timeout.
func NewPlayerRepo(db *sqlx.DB, timeout time.Duration) *PlayerRepo {
	return &PlayerRepo{db: db, timeout: timeout}
}

type playerRow struct {
	ID                int      `db:"id"`
	Code              int      `db:"code"`
	Name              string   `db:"name"`
	Position          string   `db:"position"`
	ClubID            int      `db:"club_id"`
	NowCost           int      `db:"now_cost"`
	Status            string   `db:"status"`
	ChanceOfPlaying   *int     `db:"chance_of_playing"`
	Form              float64  `db:"form"`
	PointsPerGame     float64  `db:"points_per_game"`
	SeasonPoints      int      `db:"season_points"`
	SeasonMinutes     int      `db:"season_minutes"`
	SeasonGames       int      `db:"season_games"`
	ICTInfluence      float64  `db:"ict_influence"`
	ICTCreativity     float64  `db:"ict_creativity"`
	ICTThreat         float64  `db:"ict_threat"`
	ICTIndex          float64  `db:"ict_index"`
	ExpectedGoals     float64  `db:"expected_goals"`
	ExpectedAssists   float64  `db:"expected_assists"`
	SelectedByPercent float64  `db:"selected_by_percent"`
}

const playerColumns = `id, code, name, position, club_id, now_cost, status, chance_of_playing,
	form, points_per_game, season_points, season_minutes, season_games,
	ict_influence, ict_creativity, ict_threat, ict_index,
	expected_goals, expected_assists, selected_by_percent`

func (row playerRow) toDomain() domain.Player {
	return domain.Player{
		ID: row.ID, Code: row.Code, Name: row.Name,
		Position: domain.Position(row.Position), ClubID: row.ClubID, NowCost: row.NowCost,
		Status: domain.Availability(row.Status), ChanceOfPlaying: row.ChanceOfPlaying,
		Form: row.Form, PointsPerGame: row.PointsPerGame,
		SeasonPoints: row.SeasonPoints, SeasonMinutes: row.SeasonMinutes, SeasonGames: row.SeasonGames,
		ICTInfluence: row.ICTInfluence, ICTCreativity: row.ICTCreativity,
		ICTThreat: row.ICTThreat, ICTIndex: row.ICTIndex,
		ExpectedGoals: row.ExpectedGoals, ExpectedAssists: row.ExpectedAssists,
		SelectedByPercent: row.SelectedByPercent,
	}
}

func (r *PlayerRepo) Upsert(ctx context.Context, p domain.Player) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO players
		(id, code, name, position, club_id, now_cost, status, chance_of_playing,
		 form, points_per_game, season_points, season_minutes, season_games,
		 ict_influence, ict_creativity, ict_threat, ict_index,
		 expected_goals, expected_assists, selected_by_percent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			club_id = EXCLUDED.club_id,
			now_cost = EXCLUDED.now_cost,
			status = EXCLUDED.status,
			chance_of_playing = EXCLUDED.chance_of_playing,
			form = EXCLUDED.form,
			points_per_game = EXCLUDED.points_per_game,
			season_points = EXCLUDED.season_points,
			season_minutes = EXCLUDED.season_minutes,
			season_games = EXCLUDED.season_games,
			ict_influence = EXCLUDED.ict_influence,
			ict_creativity = EXCLUDED.ict_creativity,
			ict_threat = EXCLUDED.ict_threat,
			ict_index = EXCLUDED.ict_index,
			expected_goals = EXCLUDED.expected_goals,
			expected_assists = EXCLUDED.expected_assists,
			selected_by_percent = EXCLUDED.selected_by_percent`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Code, p.Name, p.Position, p.ClubID, p.NowCost, p.Status, p.ChanceOfPlaying,
		p.Form, p.PointsPerGame, p.SeasonPoints, p.SeasonMinutes, p.SeasonGames,
		p.ICTInfluence, p.ICTCreativity, p.ICTThreat, p.ICTIndex,
		p.ExpectedGoals, p.ExpectedAssists, p.SelectedByPercent)
	if err != nil {
		return fmt.Errorf("postgres repository: upsert player %d: %w", p.ID, err)
	}
	return nil
}

func (r *PlayerRepo) Get(ctx context.Context, playerID int) (domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row playerRow
	err := r.db.GetContext(ctx, &row, `SELECT `+playerColumns+` FROM players WHERE id = $1`, playerID)
	if err != nil {
		return domain.Player{}, fmt.Errorf("postgres repository: get player %d: %w", playerID, err)
	}
	return row.toDomain(), nil
}

func (r *PlayerRepo) List(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+playerColumns+` FROM players ORDER BY id`); err != nil {
		return nil, fmt.Errorf("postgres repository: list players: %w", err)
	}
	players := make([]domain.Player, len(rows))
	for i, row := range rows {
		players[i] = row.toDomain()
	}
	return players, nil
}

// Filter queries the roster by the optional position/price/status criteria
// of repository.PlayerFilter.
func (r *PlayerRepo) Filter(ctx context.Context, f repository.PlayerFilter) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + playerColumns + ` FROM players WHERE 1=1`
	var args []any
	if f.Position != nil {
		args = append(args, string(*f.Position))
		query += fmt.Sprintf(" AND position = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.MinNowCost != nil {
		args = append(args, *f.MinNowCost)
		query += fmt.Sprintf(" AND now_cost >= $%d", len(args))
	}
	if f.MaxNowCost != nil {
		args = append(args, *f.MaxNowCost)
		query += fmt.Sprintf(" AND now_cost <= $%d", len(args))
	}
	query += " ORDER BY id"

	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres repository: filter players: %w", err)
	}
	players := make([]domain.Player, len(rows))
	for i, row := range rows {
		players[i] = row.toDomain()
	}
	return players, nil
}

// PredictionRepo is the sqlx-backed prediction store, keyed so repeated
// runs for the same (player, gameweek, model version) overwrite rather
// than duplicate.
type PredictionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPredictionRepo(db *sqlx.DB, timeout time.Duration) *PredictionRepo {
	return &PredictionRepo{db: db, timeout: timeout}
}

func (r *PredictionRepo) Save(ctx context.Context, p domain.Prediction) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO predictions
		(player_id, gameweek, expected_points, confidence, model_version, produced_at, actual_points, prediction_error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (player_id, gameweek, model_version) DO UPDATE SET
			expected_points = EXCLUDED.expected_points,
			confidence = EXCLUDED.confidence,
			produced_at = EXCLUDED.produced_at,
			actual_points = EXCLUDED.actual_points,
			prediction_error = EXCLUDED.prediction_error`

	_, err := r.db.ExecContext(ctx, query,
		p.PlayerID, p.Gameweek, p.ExpectedPoints, p.Confidence, p.ModelVersion, p.ProducedAt, p.ActualPoints, p.PredictionError)
	if err != nil {
		return fmt.Errorf("postgres repository: save prediction player=%d gw=%d: %w", p.PlayerID, p.Gameweek, err)
	}
	return nil
}

type predictionRow struct {
	PlayerID        int       `db:"player_id"`
	Gameweek        int       `db:"gameweek"`
	ExpectedPoints  float64   `db:"expected_points"`
	Confidence      float64   `db:"confidence"`
	ModelVersion    string    `db:"model_version"`
	ProducedAt      time.Time `db:"produced_at"`
	ActualPoints    *int      `db:"actual_points"`
	PredictionError *float64  `db:"prediction_error"`
}

const predictionColumns = `player_id, gameweek, expected_points, confidence, model_version,
	produced_at, actual_points, prediction_error`

func (row predictionRow) toDomain() domain.Prediction {
	return domain.Prediction{
		PlayerID: row.PlayerID, Gameweek: row.Gameweek,
		ExpectedPoints: row.ExpectedPoints, Confidence: row.Confidence,
		ModelVersion: row.ModelVersion, ProducedAt: row.ProducedAt,
		ActualPoints: row.ActualPoints, PredictionError: row.PredictionError,
	}
}

func (r *PredictionRepo) Get(ctx context.Context, playerID, gameweek int, modelVersion string) (domain.Prediction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row predictionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+predictionColumns+` FROM predictions WHERE player_id = $1 AND gameweek = $2 AND model_version = $3`,
		playerID, gameweek, modelVersion)
	if err != nil {
		return domain.Prediction{}, false, nil
	}
	return row.toDomain(), true, nil
}

func (r *PredictionRepo) ForGameweek(ctx context.Context, gameweek int) ([]domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+predictionColumns+` FROM predictions WHERE gameweek = $1`, gameweek); err != nil {
		return nil, fmt.Errorf("postgres repository: predictions for gw %d: %w", gameweek, err)
	}
	out := make([]domain.Prediction, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// CalibrationRepo persists the learned correction table as a single
// JSON blob row; the table's internal shape has no row-per-cell query
// the core needs.
type CalibrationRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewCalibrationRepo(db *sqlx.DB, timeout time.Duration) *CalibrationRepo {
	return &CalibrationRepo{db: db, timeout: timeout}
}

type calibrationRow struct {
	ID      int    `db:"id"`
	ByPositionJSON []byte `db:"by_position_json"`
	ByBracketJSON  []byte `db:"by_bracket_json"`
}

func (r *CalibrationRepo) Load(ctx context.Context) (domain.CalibrationTable, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row calibrationRow
	err := r.db.GetContext(ctx, &row, `SELECT id, by_position_json, by_bracket_json FROM calibration_table WHERE id = 1`)
	if err != nil {
		return domain.CalibrationTable{
			ByPosition:     map[domain.Position]domain.CalibrationCell{},
			ByPriceBracket: map[domain.PriceBracket]domain.CalibrationCell{},
		}, nil
	}

	var table domain.CalibrationTable
	if err := json.Unmarshal(row.ByPositionJSON, &table.ByPosition); err != nil {
		return domain.CalibrationTable{}, fmt.Errorf("postgres repository: unmarshal calibration by-position: %w", err)
	}
	if err := json.Unmarshal(row.ByBracketJSON, &table.ByPriceBracket); err != nil {
		return domain.CalibrationTable{}, fmt.Errorf("postgres repository: unmarshal calibration by-bracket: %w", err)
	}
	return table, nil
}

func (r *CalibrationRepo) Save(ctx context.Context, table domain.CalibrationTable) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	byPosition, err := json.Marshal(table.ByPosition)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal calibration by-position: %w", err)
	}
	byBracket, err := json.Marshal(table.ByPriceBracket)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal calibration by-bracket: %w", err)
	}

	query := `
		INSERT INTO calibration_table (id, by_position_json, by_bracket_json)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			by_position_json = EXCLUDED.by_position_json,
			by_bracket_json = EXCLUDED.by_bracket_json`
	if _, err := r.db.ExecContext(ctx, query, byPosition, byBracket); err != nil {
		return fmt.Errorf("postgres repository: save calibration table: %w", err)
	}
	return nil
}

// PerformanceRepo is the sqlx-backed per-gameweek performance ledger
// features.Build reads its input series from.
type PerformanceRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPerformanceRepo(db *sqlx.DB, timeout time.Duration) *PerformanceRepo {
	return &PerformanceRepo{db: db, timeout: timeout}
}

func (r *PerformanceRepo) Record(ctx context.Context, perf domain.PlayerGameweekPerformance) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO player_performances
		(player_id, gameweek, minutes, goals, assists, clean_sheet, goals_conceded, saves,
		 bonus, bps, ict_influence, ict_creativity, ict_threat, expected_goals, expected_assists,
		 tackles, interceptions, clearances_blocks_interceptions, recoveries,
		 penalties_saved, penalties_missed, yellow_cards, red_cards, own_goals,
		 actual_points, opponent_club_id, venue)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
		ON CONFLICT (player_id, gameweek) DO UPDATE SET
			minutes = EXCLUDED.minutes, goals = EXCLUDED.goals, assists = EXCLUDED.assists,
			clean_sheet = EXCLUDED.clean_sheet, goals_conceded = EXCLUDED.goals_conceded,
			saves = EXCLUDED.saves, bonus = EXCLUDED.bonus, bps = EXCLUDED.bps,
			ict_influence = EXCLUDED.ict_influence, ict_creativity = EXCLUDED.ict_creativity,
			ict_threat = EXCLUDED.ict_threat, expected_goals = EXCLUDED.expected_goals,
			expected_assists = EXCLUDED.expected_assists,
			tackles = EXCLUDED.tackles, interceptions = EXCLUDED.interceptions,
			clearances_blocks_interceptions = EXCLUDED.clearances_blocks_interceptions,
			recoveries = EXCLUDED.recoveries,
			penalties_saved = EXCLUDED.penalties_saved, penalties_missed = EXCLUDED.penalties_missed,
			yellow_cards = EXCLUDED.yellow_cards, red_cards = EXCLUDED.red_cards,
			own_goals = EXCLUDED.own_goals,
			actual_points = EXCLUDED.actual_points,
			opponent_club_id = EXCLUDED.opponent_club_id, venue = EXCLUDED.venue`
	_, err := r.db.ExecContext(ctx, query,
		perf.PlayerID, perf.Gameweek, perf.Minutes, perf.Goals, perf.Assists, perf.CleanSheet,
		perf.GoalsConceded, perf.Saves, perf.Bonus, perf.BPS, perf.ICTInfluence, perf.ICTCreativity,
		perf.ICTThreat, perf.ExpectedGoals, perf.ExpectedAssists,
		perf.Tackles, perf.Interceptions, perf.ClearancesBlocksInterceptions, perf.Recoveries,
		perf.PenaltiesSaved, perf.PenaltiesMissed, perf.YellowCards, perf.RedCards, perf.OwnGoals,
		perf.ActualPoints, perf.OpponentClubID, perf.Venue)
	if err != nil {
		return fmt.Errorf("postgres repository: record performance player=%d gw=%d: %w", perf.PlayerID, perf.Gameweek, err)
	}
	return nil
}

type performanceRow struct {
	PlayerID                      int     `db:"player_id"`
	Gameweek                      int     `db:"gameweek"`
	Minutes                       int     `db:"minutes"`
	Goals                         int     `db:"goals"`
	Assists                       int     `db:"assists"`
	CleanSheet                    bool    `db:"clean_sheet"`
	GoalsConceded                 int     `db:"goals_conceded"`
	Saves                         int     `db:"saves"`
	Bonus                         int     `db:"bonus"`
	BPS                           int     `db:"bps"`
	ICTInfluence                  float64 `db:"ict_influence"`
	ICTCreativity                 float64 `db:"ict_creativity"`
	ICTThreat                     float64 `db:"ict_threat"`
	ExpectedGoals                 float64 `db:"expected_goals"`
	ExpectedAssists               float64 `db:"expected_assists"`
	Tackles                       int     `db:"tackles"`
	Interceptions                 int     `db:"interceptions"`
	ClearancesBlocksInterceptions int     `db:"clearances_blocks_interceptions"`
	Recoveries                    int     `db:"recoveries"`
	PenaltiesSaved                int     `db:"penalties_saved"`
	PenaltiesMissed               int     `db:"penalties_missed"`
	YellowCards                   int     `db:"yellow_cards"`
	RedCards                      int     `db:"red_cards"`
	OwnGoals                      int     `db:"own_goals"`
	ActualPoints                  int     `db:"actual_points"`
	OpponentClubID                int     `db:"opponent_club_id"`
	Venue                         string  `db:"venue"`
}

const performanceColumns = `player_id, gameweek, minutes, goals, assists, clean_sheet, goals_conceded,
	saves, bonus, bps, ict_influence, ict_creativity, ict_threat, expected_goals, expected_assists,
	tackles, interceptions, clearances_blocks_interceptions, recoveries,
	penalties_saved, penalties_missed, yellow_cards, red_cards, own_goals,
	actual_points, opponent_club_id, venue`

func (row performanceRow) toDomain() domain.PlayerGameweekPerformance {
	return domain.PlayerGameweekPerformance{
		PlayerID: row.PlayerID, Gameweek: row.Gameweek, Minutes: row.Minutes,
		Goals: row.Goals, Assists: row.Assists, CleanSheet: row.CleanSheet,
		GoalsConceded: row.GoalsConceded, Saves: row.Saves, Bonus: row.Bonus, BPS: row.BPS,
		ICTInfluence: row.ICTInfluence, ICTCreativity: row.ICTCreativity, ICTThreat: row.ICTThreat,
		ExpectedGoals: row.ExpectedGoals, ExpectedAssists: row.ExpectedAssists,
		Tackles: row.Tackles, Interceptions: row.Interceptions,
		ClearancesBlocksInterceptions: row.ClearancesBlocksInterceptions, Recoveries: row.Recoveries,
		PenaltiesSaved: row.PenaltiesSaved, PenaltiesMissed: row.PenaltiesMissed,
		YellowCards: row.YellowCards, RedCards: row.RedCards, OwnGoals: row.OwnGoals,
		ActualPoints: row.ActualPoints, OpponentClubID: row.OpponentClubID, Venue: row.Venue,
	}
}

func (r *PerformanceRepo) History(ctx context.Context, playerID int, throughGameweek int) ([]domain.PlayerGameweekPerformance, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []performanceRow
	query := `SELECT ` + performanceColumns + ` FROM player_performances WHERE player_id = $1 AND gameweek <= $2 ORDER BY gameweek`
	if err := r.db.SelectContext(ctx, &rows, query, playerID, throughGameweek); err != nil {
		return nil, fmt.Errorf("postgres repository: history player=%d: %w", playerID, err)
	}
	out := make([]domain.PlayerGameweekPerformance, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// SquadRepo is the sqlx-backed squad and transfer ledger. Picks are kept
// as a JSONB blob per gameweek snapshot, mirroring CalibrationRepo's
// marshalled-struct pattern, since the squad's internal shape (15 Picks
// with slot/price/captaincy) has no natural row-per-pick query the rest
// of the core needs.
type SquadRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewSquadRepo(db *sqlx.DB, timeout time.Duration) *SquadRepo {
	return &SquadRepo{db: db, timeout: timeout}
}

type squadRow struct {
	ManagerID int    `db:"manager_id"`
	Gameweek  int    `db:"gameweek"`
	PicksJSON []byte `db:"picks_json"`
	Bank      int    `db:"bank"`
}

func (r *SquadRepo) Current(ctx context.Context, managerID int) (domain.Squad, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row squadRow
	err := r.db.GetContext(ctx, &row, `SELECT manager_id, gameweek, picks_json, bank FROM squads WHERE manager_id = $1`, managerID)
	if err != nil {
		return domain.Squad{}, fmt.Errorf("postgres repository: no squad for manager %d: %w", managerID, err)
	}
	var picks []domain.Pick
	if err := json.Unmarshal(row.PicksJSON, &picks); err != nil {
		return domain.Squad{}, fmt.Errorf("postgres repository: unmarshal squad picks: %w", err)
	}
	return domain.Squad{ManagerID: row.ManagerID, Gameweek: row.Gameweek, Picks: picks, Bank: row.Bank}, nil
}

func (r *SquadRepo) PromoteDraft(ctx context.Context, draft domain.DraftSquad) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	picksJSON, err := json.Marshal(draft.Picks)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal draft picks: %w", err)
	}
	query := `
		INSERT INTO squads (manager_id, gameweek, picks_json, bank)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (manager_id) DO UPDATE SET
			gameweek = EXCLUDED.gameweek, picks_json = EXCLUDED.picks_json, bank = EXCLUDED.bank`
	if _, err := r.db.ExecContext(ctx, query, draft.ManagerID, draft.Gameweek, picksJSON, draft.Bank); err != nil {
		return fmt.Errorf("postgres repository: promote draft for manager %d: %w", draft.ManagerID, err)
	}
	return nil
}

// RecordTransfer appends to a single shared transfer ledger: Transfer
// carries no manager ID of its own, mirroring the in-memory repository's
// assumption that one running process manages one squad.
func (r *SquadRepo) RecordTransfer(ctx context.Context, transfer domain.Transfer) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO transfers
		(gameweek, player_out_id, player_in_id, hit_cost, is_free, reasoning, predicted_gain, actual_gain)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, query,
		transfer.Gameweek, transfer.PlayerOutID, transfer.PlayerInID,
		transfer.HitCost, transfer.IsFree, transfer.Reasoning, transfer.PredictedGain, transfer.ActualGain)
	if err != nil {
		return fmt.Errorf("postgres repository: record transfer gw=%d: %w", transfer.Gameweek, err)
	}
	return nil
}

type transferRow struct {
	Gameweek      int      `db:"gameweek"`
	PlayerOutID   int      `db:"player_out_id"`
	PlayerInID    int      `db:"player_in_id"`
	HitCost       int      `db:"hit_cost"`
	IsFree        bool     `db:"is_free"`
	Reasoning     string   `db:"reasoning"`
	PredictedGain float64  `db:"predicted_gain"`
	ActualGain    *float64 `db:"actual_gain"`
}

func (r *SquadRepo) TransferHistory(ctx context.Context, _ int, throughGameweek int) ([]domain.Transfer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []transferRow
	query := `SELECT gameweek, player_out_id, player_in_id, hit_cost, is_free, reasoning, predicted_gain, actual_gain
		FROM transfers WHERE gameweek <= $1 ORDER BY gameweek`
	if err := r.db.SelectContext(ctx, &rows, query, throughGameweek); err != nil {
		return nil, fmt.Errorf("postgres repository: transfer history: %w", err)
	}
	out := make([]domain.Transfer, len(rows))
	for i, row := range rows {
		out[i] = domain.Transfer{
			Gameweek: row.Gameweek, PlayerOutID: row.PlayerOutID, PlayerInID: row.PlayerInID,
			HitCost: row.HitCost, IsFree: row.IsFree, Reasoning: row.Reasoning,
			PredictedGain: row.PredictedGain, ActualGain: row.ActualGain,
		}
	}
	return out, nil
}

// BackfillTransferGain fills in the realised gain for one recorded
// transfer once its first gameweek has resolved.
func (r *SquadRepo) BackfillTransferGain(ctx context.Context, _ int, gameweek, playerOutID, playerInID int, actualGain float64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE transfers SET actual_gain = $4
		WHERE gameweek = $1 AND player_out_id = $2 AND player_in_id = $3 AND actual_gain IS NULL`
	if _, err := r.db.ExecContext(ctx, query, gameweek, playerOutID, playerInID, actualGain); err != nil {
		return fmt.Errorf("postgres repository: backfill transfer gain gw=%d: %w", gameweek, err)
	}
	return nil
}

func (r *SquadRepo) ChipHistory(ctx context.Context, managerID int) ([]domain.ChipUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out []domain.ChipUsage
	query := `SELECT chip, gameweek, half FROM chip_usages WHERE manager_id = $1 ORDER BY gameweek`
	if err := r.db.SelectContext(ctx, &out, query, managerID); err != nil {
		return nil, fmt.Errorf("postgres repository: chip history manager=%d: %w", managerID, err)
	}
	return out, nil
}

func (r *SquadRepo) RecordChipUse(ctx context.Context, managerID int, usage domain.ChipUsage) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `INSERT INTO chip_usages (manager_id, chip, gameweek, half) VALUES ($1,$2,$3,$4)`
	if _, err := r.db.ExecContext(ctx, query, managerID, usage.Chip, usage.Gameweek, usage.Half); err != nil {
		return fmt.Errorf("postgres repository: record chip use manager=%d: %w", managerID, err)
	}
	return nil
}

// IntelligenceRepo persists classified signals with their TTL stamped on
// ExpiresAt; Purge sweeps rows past it.
type IntelligenceRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewIntelligenceRepo(db *sqlx.DB, timeout time.Duration) *IntelligenceRepo {
	return &IntelligenceRepo{db: db, timeout: timeout}
}

func (r *IntelligenceRepo) Save(ctx context.Context, signal domain.IntelligenceSignal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if signal.PlayerID == nil {
		return nil
	}

	query := `
		INSERT INTO intelligence_signals
		(id, timestamp, source_id, source_reliability, raw_type, player_id, matched_name,
		 match_score, confidence, severity, disposition, actionable, detail, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		signal.ID, signal.Timestamp, signal.SourceID, signal.SourceReliability, signal.RawType,
		*signal.PlayerID, signal.MatchedName, signal.MatchScore, signal.Confidence, signal.Severity,
		signal.Disposition, signal.Actionable, signal.Detail, signal.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres repository: save signal for player %d: %w", *signal.PlayerID, err)
	}
	return nil
}

func (r *IntelligenceRepo) Active(ctx context.Context, playerID int) ([]domain.IntelligenceSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out []domain.IntelligenceSignal
	query := `
		SELECT id, timestamp, source_id, source_reliability, raw_type, player_id, matched_name,
		       match_score, confidence, severity, disposition, actionable, detail, expires_at
		FROM intelligence_signals
		WHERE player_id = $1 AND (expires_at IS NULL OR expires_at > now())`
	if err := r.db.SelectContext(ctx, &out, query, playerID); err != nil {
		return nil, fmt.Errorf("postgres repository: active signals player=%d: %w", playerID, err)
	}
	return out, nil
}

func (r *IntelligenceRepo) Purge(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM intelligence_signals WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("postgres repository: purge signals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres repository: purge signals rows affected: %w", err)
	}
	return int(n), nil
}

// DecisionRepo persists each workflow run's final output for the monitor
// API, storing the nested draft/transfers as a JSON blob per row like
// SquadRepo's picks column.
type DecisionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewDecisionRepo(db *sqlx.DB, timeout time.Duration) *DecisionRepo {
	return &DecisionRepo{db: db, timeout: timeout}
}

type decisionRow struct {
	Gameweek            int       `db:"gameweek"`
	DraftJSON           []byte    `db:"draft_json"`
	CaptainID           int       `db:"captain_id"`
	ViceID              int       `db:"vice_id"`
	TransfersJSON       []byte    `db:"transfers_json"`
	ChipUsed            *string   `db:"chip_used"`
	ExpectedTotalPoints float64   `db:"expected_total_points"`
	RationaleJSON       []byte    `db:"rationale_json"`
	ProducedAt          time.Time `db:"produced_at"`
}

func (r *DecisionRepo) Save(ctx context.Context, decision domain.Decision) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	draftJSON, err := json.Marshal(decision.Draft)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal decision draft: %w", err)
	}
	transfersJSON, err := json.Marshal(decision.Transfers)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal decision transfers: %w", err)
	}
	rationaleJSON, err := json.Marshal(decision.RationaleTokens)
	if err != nil {
		return fmt.Errorf("postgres repository: marshal decision rationale: %w", err)
	}
	var chipUsed *string
	if decision.ChipUsed != nil {
		s := string(*decision.ChipUsed)
		chipUsed = &s
	}

	query := `
		INSERT INTO decisions
		(gameweek, draft_json, captain_id, vice_id, transfers_json, chip_used, expected_total_points, rationale_json, produced_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.db.ExecContext(ctx, query,
		decision.Gameweek, draftJSON, decision.CaptainID, decision.ViceID, transfersJSON,
		chipUsed, decision.ExpectedTotalPoints, rationaleJSON, decision.ProducedAt)
	if err != nil {
		return fmt.Errorf("postgres repository: save decision gw=%d: %w", decision.Gameweek, err)
	}
	return nil
}

func (r *DecisionRepo) Latest(ctx context.Context) (domain.Decision, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row decisionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT gameweek, draft_json, captain_id, vice_id, transfers_json, chip_used, expected_total_points, rationale_json, produced_at
		FROM decisions ORDER BY produced_at DESC LIMIT 1`)
	if err != nil {
		return domain.Decision{}, false, nil
	}

	var draft domain.DraftSquad
	if err := json.Unmarshal(row.DraftJSON, &draft); err != nil {
		return domain.Decision{}, false, fmt.Errorf("postgres repository: unmarshal decision draft: %w", err)
	}
	var transfers []domain.Transfer
	if err := json.Unmarshal(row.TransfersJSON, &transfers); err != nil {
		return domain.Decision{}, false, fmt.Errorf("postgres repository: unmarshal decision transfers: %w", err)
	}
	var rationale []string
	if err := json.Unmarshal(row.RationaleJSON, &rationale); err != nil {
		return domain.Decision{}, false, fmt.Errorf("postgres repository: unmarshal decision rationale: %w", err)
	}
	var chipUsed *domain.Chip
	if row.ChipUsed != nil {
		c := domain.Chip(*row.ChipUsed)
		chipUsed = &c
	}

	return domain.Decision{
		Gameweek: row.Gameweek, Draft: draft, CaptainID: row.CaptainID, ViceID: row.ViceID,
		Transfers: transfers, ChipUsed: chipUsed, ExpectedTotalPoints: row.ExpectedTotalPoints,
		RationaleTokens: rationale, ProducedAt: row.ProducedAt,
	}, true, nil
}

// ClubRepo is the sqlx-backed club store.
type ClubRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewClubRepo(db *sqlx.DB, timeout time.Duration) *ClubRepo {
	return &ClubRepo{db: db, timeout: timeout}
}

type clubRow struct {
	ID          int    `db:"id"`
	ShortName   string `db:"short_name"`
	Name        string `db:"name"`
	HomeAttack  int    `db:"home_attack"`
	HomeDefence int    `db:"home_defence"`
	HomeOverall int    `db:"home_overall"`
	AwayAttack  int    `db:"away_attack"`
	AwayDefence int    `db:"away_defence"`
	AwayOverall int    `db:"away_overall"`
}

const clubColumns = `id, short_name, name, home_attack, home_defence, home_overall,
	away_attack, away_defence, away_overall`

func (row clubRow) toDomain() domain.Club {
	return domain.Club{
		ID: row.ID, ShortName: row.ShortName, Name: row.Name,
		Strength: domain.ClubStrength{
			HomeAttack: row.HomeAttack, HomeDefence: row.HomeDefence, HomeOverall: row.HomeOverall,
			AwayAttack: row.AwayAttack, AwayDefence: row.AwayDefence, AwayOverall: row.AwayOverall,
		},
	}
}

func (r *ClubRepo) Upsert(ctx context.Context, c domain.Club) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO clubs
		(id, short_name, name, home_attack, home_defence, home_overall,
		 away_attack, away_defence, away_overall)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			short_name = EXCLUDED.short_name,
			name = EXCLUDED.name,
			home_attack = EXCLUDED.home_attack,
			home_defence = EXCLUDED.home_defence,
			home_overall = EXCLUDED.home_overall,
			away_attack = EXCLUDED.away_attack,
			away_defence = EXCLUDED.away_defence,
			away_overall = EXCLUDED.away_overall`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ShortName, c.Name,
		c.Strength.HomeAttack, c.Strength.HomeDefence, c.Strength.HomeOverall,
		c.Strength.AwayAttack, c.Strength.AwayDefence, c.Strength.AwayOverall)
	if err != nil {
		return fmt.Errorf("postgres repository: upsert club %d: %w", c.ID, err)
	}
	return nil
}

func (r *ClubRepo) Get(ctx context.Context, clubID int) (domain.Club, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row clubRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+clubColumns+` FROM clubs WHERE id = $1`, clubID); err != nil {
		return domain.Club{}, fmt.Errorf("postgres repository: get club %d: %w", clubID, err)
	}
	return row.toDomain(), nil
}

func (r *ClubRepo) List(ctx context.Context) ([]domain.Club, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []clubRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+clubColumns+` FROM clubs ORDER BY id`); err != nil {
		return nil, fmt.Errorf("postgres repository: list clubs: %w", err)
	}
	clubs := make([]domain.Club, len(rows))
	for i, row := range rows {
		clubs[i] = row.toDomain()
	}
	return clubs, nil
}

// FixtureRepo is the sqlx-backed fixture store.
type FixtureRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewFixtureRepo(db *sqlx.DB, timeout time.Duration) *FixtureRepo {
	return &FixtureRepo{db: db, timeout: timeout}
}

type fixtureRow struct {
	ID             int       `db:"id"`
	Gameweek       int       `db:"gameweek"`
	HomeClubID     int       `db:"home_club_id"`
	AwayClubID     int       `db:"away_club_id"`
	Kickoff        time.Time `db:"kickoff"`
	HomeDifficulty int       `db:"home_difficulty"`
	AwayDifficulty int       `db:"away_difficulty"`
	Finished       bool      `db:"finished"`
	HomeScore      *int      `db:"home_score"`
	AwayScore      *int      `db:"away_score"`
}

const fixtureColumns = `id, gameweek, home_club_id, away_club_id, kickoff,
	home_difficulty, away_difficulty, finished, home_score, away_score`

func (row fixtureRow) toDomain() domain.Fixture {
	return domain.Fixture{
		ID: row.ID, Gameweek: row.Gameweek,
		HomeClubID: row.HomeClubID, AwayClubID: row.AwayClubID, Kickoff: row.Kickoff,
		HomeDifficulty: row.HomeDifficulty, AwayDifficulty: row.AwayDifficulty,
		Finished: row.Finished, HomeScore: row.HomeScore, AwayScore: row.AwayScore,
	}
}

func (r *FixtureRepo) Upsert(ctx context.Context, f domain.Fixture) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO fixtures
		(id, gameweek, home_club_id, away_club_id, kickoff,
		 home_difficulty, away_difficulty, finished, home_score, away_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			gameweek = EXCLUDED.gameweek,
			home_club_id = EXCLUDED.home_club_id,
			away_club_id = EXCLUDED.away_club_id,
			kickoff = EXCLUDED.kickoff,
			home_difficulty = EXCLUDED.home_difficulty,
			away_difficulty = EXCLUDED.away_difficulty,
			finished = EXCLUDED.finished,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.Gameweek, f.HomeClubID, f.AwayClubID, f.Kickoff,
		f.HomeDifficulty, f.AwayDifficulty, f.Finished, f.HomeScore, f.AwayScore)
	if err != nil {
		return fmt.Errorf("postgres repository: upsert fixture %d: %w", f.ID, err)
	}
	return nil
}

func (r *FixtureRepo) UpcomingForClub(ctx context.Context, clubID, fromGameweek, throughGameweek int) ([]domain.Fixture, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []fixtureRow
	query := `SELECT ` + fixtureColumns + ` FROM fixtures
		WHERE (home_club_id = $1 OR away_club_id = $1)
		  AND gameweek BETWEEN $2 AND $3 AND NOT finished
		ORDER BY gameweek, kickoff`
	if err := r.db.SelectContext(ctx, &rows, query, clubID, fromGameweek, throughGameweek); err != nil {
		return nil, fmt.Errorf("postgres repository: upcoming fixtures club=%d: %w", clubID, err)
	}
	out := make([]domain.Fixture, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *FixtureRepo) ForGameweek(ctx context.Context, gameweek int) ([]domain.Fixture, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []fixtureRow
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE gameweek = $1 ORDER BY kickoff, id`
	if err := r.db.SelectContext(ctx, &rows, query, gameweek); err != nil {
		return nil, fmt.Errorf("postgres repository: fixtures for gw %d: %w", gameweek, err)
	}
	out := make([]domain.Fixture, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// GameweekRepo is the sqlx-backed gameweek store. Status flags come from
// the upstream authority only; SetStatus rewrites is_current/is_next in
// one transaction so no reader observes two current gameweeks.
type GameweekRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewGameweekRepo(db *sqlx.DB, timeout time.Duration) *GameweekRepo {
	return &GameweekRepo{db: db, timeout: timeout}
}

type gameweekRow struct {
	Number    int       `db:"number"`
	Deadline  time.Time `db:"deadline"`
	IsCurrent bool      `db:"is_current"`
	IsNext    bool      `db:"is_next"`
	Finished  bool      `db:"finished"`
}

func (row gameweekRow) toDomain() domain.Gameweek {
	return domain.Gameweek{
		Number: row.Number, Deadline: row.Deadline,
		IsCurrent: row.IsCurrent, IsNext: row.IsNext, Finished: row.Finished,
	}
}

func (r *GameweekRepo) Upsert(ctx context.Context, gw domain.Gameweek) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO gameweeks (number, deadline, is_current, is_next, finished)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (number) DO UPDATE SET
			deadline = EXCLUDED.deadline,
			is_current = EXCLUDED.is_current,
			is_next = EXCLUDED.is_next,
			finished = EXCLUDED.finished`
	if _, err := r.db.ExecContext(ctx, query, gw.Number, gw.Deadline, gw.IsCurrent, gw.IsNext, gw.Finished); err != nil {
		return fmt.Errorf("postgres repository: upsert gameweek %d: %w", gw.Number, err)
	}
	return nil
}

func (r *GameweekRepo) Current(ctx context.Context) (domain.Gameweek, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row gameweekRow
	err := r.db.GetContext(ctx, &row,
		`SELECT number, deadline, is_current, is_next, finished FROM gameweeks WHERE is_current LIMIT 1`)
	if err != nil {
		return domain.Gameweek{}, fmt.Errorf("postgres repository: current gameweek: %w", err)
	}
	return row.toDomain(), nil
}

func (r *GameweekRepo) SetStatus(ctx context.Context, number int, isCurrent, isNext, finished bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres repository: begin gameweek status tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if isCurrent {
		if _, err := tx.ExecContext(ctx, `UPDATE gameweeks SET is_current = FALSE WHERE number <> $1`, number); err != nil {
			return fmt.Errorf("postgres repository: clear is_current: %w", err)
		}
	}
	if isNext {
		if _, err := tx.ExecContext(ctx, `UPDATE gameweeks SET is_next = FALSE WHERE number <> $1`, number); err != nil {
			return fmt.Errorf("postgres repository: clear is_next: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE gameweeks SET is_current = $2, is_next = $3, finished = $4 WHERE number = $1`,
		number, isCurrent, isNext, finished); err != nil {
		return fmt.Errorf("postgres repository: set gameweek %d status: %w", number, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres repository: commit gameweek status: %w", err)
	}
	return nil
}

// CaptainRepo persists per-gameweek captaincy reviews for trend queries.
type CaptainRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewCaptainRepo(db *sqlx.DB, timeout time.Duration) *CaptainRepo {
	return &CaptainRepo{db: db, timeout: timeout}
}

type captainReviewRow struct {
	Gameweek            int     `db:"gameweek"`
	CaptainID           int     `db:"captain_id"`
	CaptainActualPoints float64 `db:"captain_actual_points"`
	BestPossiblePoints  float64 `db:"best_possible_points"`
	PointsLeft          float64 `db:"points_left"`
}

func (r *CaptainRepo) Record(ctx context.Context, review domain.CaptainReview) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO captain_reviews
		(gameweek, captain_id, captain_actual_points, best_possible_points, points_left)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (gameweek) DO UPDATE SET
			captain_id = EXCLUDED.captain_id,
			captain_actual_points = EXCLUDED.captain_actual_points,
			best_possible_points = EXCLUDED.best_possible_points,
			points_left = EXCLUDED.points_left`
	if _, err := r.db.ExecContext(ctx, query,
		review.Gameweek, review.CaptainID, review.CaptainActualPoints, review.BestPossiblePoints, review.PointsLeft); err != nil {
		return fmt.Errorf("postgres repository: record captain review gw=%d: %w", review.Gameweek, err)
	}
	return nil
}

func (r *CaptainRepo) Recent(ctx context.Context, lastN int) ([]domain.CaptainReview, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []captainReviewRow
	query := `SELECT gameweek, captain_id, captain_actual_points, best_possible_points, points_left
		FROM captain_reviews ORDER BY gameweek DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, lastN); err != nil {
		return nil, fmt.Errorf("postgres repository: recent captain reviews: %w", err)
	}
	out := make([]domain.CaptainReview, len(rows))
	for i, row := range rows {
		out[i] = domain.CaptainReview{
			Gameweek: row.Gameweek, CaptainID: row.CaptainID,
			CaptainActualPoints: row.CaptainActualPoints,
			BestPossiblePoints:  row.BestPossiblePoints,
			PointsLeft:          row.PointsLeft,
		}
	}
	return out, nil
}
