// Package memory is an in-process implementation of the repository
// contracts, used by tests and by the CLI when no database is
// configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jolyonbrown/ronclanker/internal/domain"
	"github.com/jolyonbrown/ronclanker/internal/repository"
)

// Store is a single in-memory backing for every repository interface;
// callers obtain scoped views via the accessor methods below.
type Store struct {
	mu sync.RWMutex

	players      map[int]domain.Player
	clubs        map[int]domain.Club
	fixtures     map[int]domain.Fixture
	gameweeks    map[int]domain.Gameweek
	performances map[int][]domain.PlayerGameweekPerformance
	squads       map[int]domain.Squad
	transfers    map[int][]domain.Transfer
	chipUsages   map[int][]domain.ChipUsage
	predictions  map[string]domain.Prediction // key: playerID/gameweek/modelVersion
	signals      map[int][]domain.IntelligenceSignal
	calibration  domain.CalibrationTable
	captainReviews map[int]domain.CaptainReview
	decisions    []domain.Decision
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		players:      map[int]domain.Player{},
		clubs:        map[int]domain.Club{},
		fixtures:     map[int]domain.Fixture{},
		gameweeks:    map[int]domain.Gameweek{},
		performances: map[int][]domain.PlayerGameweekPerformance{},
		squads:       map[int]domain.Squad{},
		transfers:    map[int][]domain.Transfer{},
		chipUsages:   map[int][]domain.ChipUsage{},
		predictions:  map[string]domain.Prediction{},
		signals:      map[int][]domain.IntelligenceSignal{},
		captainReviews: map[int]domain.CaptainReview{},
	}
}

func predictionKey(playerID, gameweek int, modelVersion string) string {
	return fmt.Sprintf("%d/%d/%s", playerID, gameweek, modelVersion)
}

// Players returns a view satisfying repository.PlayerRepository.
func (s *Store) Players() *playerView { return &playerView{s} }

// Clubs returns a view satisfying repository.ClubRepository.
func (s *Store) Clubs() *clubView { return &clubView{s} }

// Fixtures returns a view satisfying repository.FixtureRepository.
func (s *Store) Fixtures() *fixtureView { return &fixtureView{s} }

// Gameweeks returns a view satisfying repository.GameweekRepository.
func (s *Store) Gameweeks() *gameweekView { return &gameweekView{s} }

// Performances returns a view satisfying repository.PerformanceRepository.
func (s *Store) Performances() *performanceView { return &performanceView{s} }

// Squads returns a view satisfying repository.SquadRepository.
func (s *Store) Squads() *squadView { return &squadView{s} }

// Predictions returns a view satisfying repository.PredictionRepository.
func (s *Store) Predictions() *predictionView { return &predictionView{s} }

// Intelligence returns a view satisfying repository.IntelligenceRepository.
func (s *Store) Intelligence() *intelligenceView { return &intelligenceView{s} }

// Calibration returns a view satisfying repository.CalibrationRepository.
func (s *Store) Calibration() *calibrationView { return &calibrationView{s} }

// Captains returns a view satisfying repository.CaptainRepository.
func (s *Store) Captains() *captainView { return &captainView{s} }

// Decisions returns a view satisfying repository.DecisionRepository.
func (s *Store) Decisions() *decisionView { return &decisionView{s} }

type playerView struct{ s *Store }

func (v *playerView) Upsert(_ context.Context, p domain.Player) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.players[p.ID] = p
	return nil
}

func (v *playerView) Get(_ context.Context, playerID int) (domain.Player, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.players[playerID]
	if !ok {
		return domain.Player{}, fmt.Errorf("memory repository: player %d not found", playerID)
	}
	return p, nil
}

func (v *playerView) List(_ context.Context) ([]domain.Player, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domain.Player, 0, len(v.s.players))
	for _, p := range v.s.players {
		out = append(out, p)
	}
	return out, nil
}

func (v *playerView) Filter(_ context.Context, f repository.PlayerFilter) ([]domain.Player, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Player
	for _, p := range v.s.players {
		if f.Position != nil && p.Position != *f.Position {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.MinNowCost != nil && p.NowCost < *f.MinNowCost {
			continue
		}
		if f.MaxNowCost != nil && p.NowCost > *f.MaxNowCost {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type clubView struct{ s *Store }

func (v *clubView) Upsert(_ context.Context, c domain.Club) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.clubs[c.ID] = c
	return nil
}

func (v *clubView) Get(_ context.Context, clubID int) (domain.Club, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	c, ok := v.s.clubs[clubID]
	if !ok {
		return domain.Club{}, fmt.Errorf("memory repository: club %d not found", clubID)
	}
	return c, nil
}

func (v *clubView) List(_ context.Context) ([]domain.Club, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domain.Club, 0, len(v.s.clubs))
	for _, c := range v.s.clubs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fixtureView struct{ s *Store }

func (v *fixtureView) Upsert(_ context.Context, f domain.Fixture) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.fixtures[f.ID] = f
	return nil
}

func (v *fixtureView) UpcomingForClub(_ context.Context, clubID, fromGameweek, throughGameweek int) ([]domain.Fixture, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Fixture
	for _, f := range v.s.fixtures {
		if f.Finished || (f.HomeClubID != clubID && f.AwayClubID != clubID) {
			continue
		}
		if f.Gameweek < fromGameweek || f.Gameweek > throughGameweek {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gameweek < out[j].Gameweek })
	return out, nil
}

func (v *fixtureView) ForGameweek(_ context.Context, gameweek int) ([]domain.Fixture, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Fixture
	for _, f := range v.s.fixtures {
		if f.Gameweek == gameweek {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type gameweekView struct{ s *Store }

func (v *gameweekView) Upsert(_ context.Context, gw domain.Gameweek) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.gameweeks[gw.Number] = gw
	return nil
}

func (v *gameweekView) Current(_ context.Context) (domain.Gameweek, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, gw := range v.s.gameweeks {
		if gw.IsCurrent {
			return gw, nil
		}
	}
	return domain.Gameweek{}, fmt.Errorf("memory repository: no current gameweek")
}

func (v *gameweekView) SetStatus(_ context.Context, number int, isCurrent, isNext, finished bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for n, gw := range v.s.gameweeks {
		if n == number {
			continue
		}
		changed := false
		if isCurrent && gw.IsCurrent {
			gw.IsCurrent = false
			changed = true
		}
		if isNext && gw.IsNext {
			gw.IsNext = false
			changed = true
		}
		if changed {
			v.s.gameweeks[n] = gw
		}
	}
	gw, ok := v.s.gameweeks[number]
	if !ok {
		return fmt.Errorf("memory repository: gameweek %d not found", number)
	}
	gw.IsCurrent = isCurrent
	gw.IsNext = isNext
	gw.Finished = finished
	v.s.gameweeks[number] = gw
	return nil
}

type performanceView struct{ s *Store }

func (v *performanceView) Record(_ context.Context, perf domain.PlayerGameweekPerformance) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.performances[perf.PlayerID] = append(v.s.performances[perf.PlayerID], perf)
	return nil
}

func (v *performanceView) History(_ context.Context, playerID int, throughGameweek int) ([]domain.PlayerGameweekPerformance, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.PlayerGameweekPerformance
	for _, p := range v.s.performances[playerID] {
		if p.Gameweek <= throughGameweek {
			out = append(out, p)
		}
	}
	return out, nil
}

type squadView struct{ s *Store }

func (v *squadView) Current(_ context.Context, managerID int) (domain.Squad, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	squad, ok := v.s.squads[managerID]
	if !ok {
		return domain.Squad{}, fmt.Errorf("memory repository: no squad for manager %d", managerID)
	}
	return squad, nil
}

func (v *squadView) PromoteDraft(_ context.Context, draft domain.DraftSquad) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.squads[draft.ManagerID] = domain.Squad{
		ManagerID: draft.ManagerID, Gameweek: draft.Gameweek, Picks: draft.Picks, Bank: draft.Bank,
	}
	return nil
}

func (v *squadView) RecordTransfer(_ context.Context, transfer domain.Transfer) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.transfers[0] = append(v.s.transfers[0], transfer)
	return nil
}

func (v *squadView) TransferHistory(_ context.Context, managerID int, throughGameweek int) ([]domain.Transfer, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Transfer
	for _, t := range v.s.transfers[0] {
		if t.Gameweek <= throughGameweek {
			out = append(out, t)
		}
	}
	return out, nil
}

func (v *squadView) ChipHistory(_ context.Context, managerID int) ([]domain.ChipUsage, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return append([]domain.ChipUsage(nil), v.s.chipUsages[managerID]...), nil
}

func (v *squadView) RecordChipUse(_ context.Context, managerID int, usage domain.ChipUsage) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.chipUsages[managerID] = append(v.s.chipUsages[managerID], usage)
	return nil
}

func (v *squadView) BackfillTransferGain(_ context.Context, _ int, gameweek, playerOutID, playerInID int, actualGain float64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i, t := range v.s.transfers[0] {
		if t.Gameweek == gameweek && t.PlayerOutID == playerOutID && t.PlayerInID == playerInID && t.ActualGain == nil {
			gain := actualGain
			v.s.transfers[0][i].ActualGain = &gain
		}
	}
	return nil
}

type predictionView struct{ s *Store }

func (v *predictionView) Save(_ context.Context, p domain.Prediction) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.predictions[predictionKey(p.PlayerID, p.Gameweek, p.ModelVersion)] = p
	return nil
}

func (v *predictionView) Get(_ context.Context, playerID, gameweek int, modelVersion string) (domain.Prediction, bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.predictions[predictionKey(playerID, gameweek, modelVersion)]
	return p, ok, nil
}

func (v *predictionView) ForGameweek(_ context.Context, gameweek int) ([]domain.Prediction, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Prediction
	for _, p := range v.s.predictions {
		if p.Gameweek == gameweek {
			out = append(out, p)
		}
	}
	return out, nil
}

type intelligenceView struct{ s *Store }

func (v *intelligenceView) Save(_ context.Context, signal domain.IntelligenceSignal) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if signal.PlayerID == nil {
		return nil
	}
	v.s.signals[*signal.PlayerID] = append(v.s.signals[*signal.PlayerID], signal)
	return nil
}

func (v *intelligenceView) Active(_ context.Context, playerID int) ([]domain.IntelligenceSignal, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	now := time.Now()
	var out []domain.IntelligenceSignal
	for _, s := range v.s.signals[playerID] {
		if s.ExpiresAt.IsZero() || s.ExpiresAt.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (v *intelligenceView) Purge(_ context.Context) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	now := time.Now()
	purged := 0
	for id, signals := range v.s.signals {
		var kept []domain.IntelligenceSignal
		for _, s := range signals {
			if s.ExpiresAt.IsZero() || s.ExpiresAt.After(now) {
				kept = append(kept, s)
			} else {
				purged++
			}
		}
		v.s.signals[id] = kept
	}
	return purged, nil
}

type calibrationView struct{ s *Store }

func (v *calibrationView) Load(_ context.Context) (domain.CalibrationTable, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.calibration, nil
}

func (v *calibrationView) Save(_ context.Context, table domain.CalibrationTable) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.calibration = table
	return nil
}

type captainView struct{ s *Store }

func (v *captainView) Record(_ context.Context, review domain.CaptainReview) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.captainReviews[review.Gameweek] = review
	return nil
}

func (v *captainView) Recent(_ context.Context, lastN int) ([]domain.CaptainReview, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domain.CaptainReview, 0, len(v.s.captainReviews))
	for _, r := range v.s.captainReviews {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gameweek > out[j].Gameweek })
	if lastN > 0 && len(out) > lastN {
		out = out[:lastN]
	}
	return out, nil
}

type decisionView struct{ s *Store }

func (v *decisionView) Save(_ context.Context, decision domain.Decision) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.decisions = append(v.s.decisions, decision)
	return nil
}

func (v *decisionView) Latest(_ context.Context) (domain.Decision, bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if len(v.s.decisions) == 0 {
		return domain.Decision{}, false, nil
	}
	return v.s.decisions[len(v.s.decisions)-1], true, nil
}
