// Package config loads the process-wide configuration from a YAML file
// once at start-up: read the file if present, fall back to documented
// defaults otherwise, and validate before handing the struct to the rest
// of the process.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jolyonbrown/ronclanker/internal/adjust"
	"github.com/jolyonbrown/ronclanker/internal/intelligence"
	"github.com/jolyonbrown/ronclanker/internal/optimizer"
	"github.com/jolyonbrown/ronclanker/internal/rules"
	"github.com/jolyonbrown/ronclanker/internal/workflow"
)

// ChipHalves configures the season-half boundaries for chip windows.
type ChipHalves struct {
	FirstHalfEnd    int `yaml:"first_half_end"`
	SecondHalfStart int `yaml:"second_half_start"`
}

// FTTopup is one configured special-event free-transfer top-up.
type FTTopup struct {
	TriggerAfterGW  int  `yaml:"trigger_after_gw"`
	EffectiveFromGW int  `yaml:"effective_from_gw"`
	TopupTo         int  `yaml:"topup_to"`
	CarryOver       bool `yaml:"carry_over"`
}

// Database configures the optional Postgres backing store. When DSN is
// empty the CLI falls back to the in-memory repository.
type Database struct {
	DSN                 string `yaml:"dsn"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

// QueryTimeout returns the per-call repository timeout.
func (d Database) QueryTimeout() time.Duration {
	if d.QueryTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.QueryTimeoutSeconds) * time.Second
}

// Redis configures the optional prediction-memoisation cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HTTP configures the monitor server.
type HTTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is every recognized tuning option plus the process wiring
// (database, cache, monitor server, snapshot directory) the CLI needs.
type Config struct {
	ManagerID int `yaml:"manager_id"`

	InitialBudget      int `yaml:"initial_budget"`
	MaxClubPlayers     int `yaml:"max_club_players"`
	MaxBankedTransfers int `yaml:"max_banked_transfers"`
	HitPointCost       int `yaml:"hit_point_cost"`

	HorizonGameweeks             int     `yaml:"horizon_gameweeks"`
	TransferGainThresholdDefault float64 `yaml:"transfer_gain_threshold_default"`
	HitThresholdStrong           float64 `yaml:"hit_threshold_strong"`
	HitThresholdMarginal         float64 `yaml:"hit_threshold_marginal"`

	ChipHalves ChipHalves `yaml:"chip_halves"`
	FTTopups   []FTTopup  `yaml:"ft_topups"`

	MinActionableConfidence float64 `yaml:"min_actionable_confidence"`
	MinPlayerMatchScore     float64 `yaml:"min_player_match_score"`

	PremiumPriceFloor int     `yaml:"premium_price_floor"` // tenths of a currency unit
	PremiumFormFloor  float64 `yaml:"premium_form_floor"`

	CalibrationMinSamplesPosition int `yaml:"calibration_min_samples_position"`
	CalibrationMinSamplesBracket  int `yaml:"calibration_min_samples_bracket"`
	ThresholdLearningMinSamples   int `yaml:"threshold_learning_min_samples"`

	IntelligenceTTLDays int `yaml:"intelligence_ttl_days"`
	TranscriptTTLDays   int `yaml:"transcript_ttl_days"`

	MaxConcurrency int `yaml:"max_concurrency"`

	SnapshotDir string   `yaml:"snapshot_dir"`
	Database    Database `yaml:"database"`
	Redis       Redis    `yaml:"redis"`
	HTTP        HTTP     `yaml:"http"`
}

// Default returns the 2025/26 defaults.
func Default() Config {
	return Config{
		ManagerID:                    1,
		InitialBudget:                1000,
		MaxClubPlayers:               3,
		MaxBankedTransfers:           5,
		HitPointCost:                 4,
		HorizonGameweeks:             4,
		TransferGainThresholdDefault: 2.0,
		HitThresholdStrong:           8.0,
		HitThresholdMarginal:         4.0,
		ChipHalves:                   ChipHalves{FirstHalfEnd: 19, SecondHalfStart: 20},
		MinActionableConfidence:      0.6,
		MinPlayerMatchScore:          70,
		PremiumPriceFloor:            120,
		PremiumFormFloor:             5.0,
		CalibrationMinSamplesPosition: 20,
		CalibrationMinSamplesBracket:  30,
		ThresholdLearningMinSamples:   5,
		IntelligenceTTLDays:           30,
		TranscriptTTLDays:             7,
		MaxConcurrency:                8,
		Database:                      Database{QueryTimeoutSeconds: 5},
		HTTP:                          HTTP{Host: "127.0.0.1", Port: 8080},
	}
}

// Load reads path, overlaying its values on Default(). A missing file is
// not an error: the defaults stand alone.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rules engine cannot honour.
func (c Config) Validate() error {
	if c.ManagerID <= 0 {
		return fmt.Errorf("manager_id must be positive, got %d", c.ManagerID)
	}
	if c.InitialBudget <= 0 {
		return fmt.Errorf("initial_budget must be positive, got %d", c.InitialBudget)
	}
	if c.MaxClubPlayers <= 0 || c.MaxClubPlayers > 15 {
		return fmt.Errorf("max_club_players out of range: %d", c.MaxClubPlayers)
	}
	if c.MaxBankedTransfers < 1 {
		return fmt.Errorf("max_banked_transfers must be at least 1, got %d", c.MaxBankedTransfers)
	}
	if c.ChipHalves.SecondHalfStart != c.ChipHalves.FirstHalfEnd+1 {
		return fmt.Errorf("chip_halves must be contiguous: first ends %d, second starts %d",
			c.ChipHalves.FirstHalfEnd, c.ChipHalves.SecondHalfStart)
	}
	if c.HorizonGameweeks < 1 || c.HorizonGameweeks > 6 {
		return fmt.Errorf("horizon_gameweeks must be within 1..6, got %d", c.HorizonGameweeks)
	}
	if c.MinActionableConfidence < 0 || c.MinActionableConfidence > 1 {
		return fmt.Errorf("min_actionable_confidence must be within 0..1, got %g", c.MinActionableConfidence)
	}
	for _, t := range c.FTTopups {
		if t.EffectiveFromGW <= t.TriggerAfterGW {
			return fmt.Errorf("ft_topup effective_from_gw %d must follow trigger_after_gw %d",
				t.EffectiveFromGW, t.TriggerAfterGW)
		}
	}
	return nil
}

// IntelligenceTTL returns the signal retention window for structured
// signals.
func (c Config) IntelligenceTTL() time.Duration {
	return time.Duration(c.IntelligenceTTLDays) * 24 * time.Hour
}

// TranscriptTTL returns the shorter retention window for transcript-derived
// signals.
func (c Config) TranscriptTTL() time.Duration {
	return time.Duration(c.TranscriptTTLDays) * 24 * time.Hour
}

// Workflow resolves this file-level configuration into the component-level
// config structs the orchestrator threads through the decision core.
func (c Config) Workflow() workflow.Config {
	constraints := rules.DefaultConstraints()
	constraints.MaxPerClub = c.MaxClubPlayers
	constraints.InitialBudget = c.InitialBudget

	topups := make([]rules.FTTopup, 0, len(c.FTTopups))
	for _, t := range c.FTTopups {
		topups = append(topups, rules.FTTopup{
			TriggerAfterGW:  t.TriggerAfterGW,
			EffectiveFromGW: t.EffectiveFromGW,
			TopupTo:         t.TopupTo,
			CarryOver:       t.CarryOver,
		})
	}

	adjustCfg := adjust.Config{
		PositionSampleFloor:     c.CalibrationMinSamplesPosition,
		PriceBracketSampleFloor: c.CalibrationMinSamplesBracket,
		PremiumPriceFloor:       float64(c.PremiumPriceFloor) / 10.0,
		PremiumFormFloor:        c.PremiumFormFloor,
	}

	optCfg := optimizer.DefaultConfig()
	optCfg.DefaultGainThreshold = c.TransferGainThresholdDefault
	optCfg.HitThresholdStrong = c.HitThresholdStrong
	optCfg.HitThresholdMarginal = c.HitThresholdMarginal
	optCfg.FreeTransferCap = c.MaxBankedTransfers

	return workflow.Config{
		ManagerID:                   c.ManagerID,
		Constraints:                 constraints,
		ChipHalves:                  rules.ChipHalves{FirstHalfEnd: c.ChipHalves.FirstHalfEnd, SecondHalfStart: c.ChipHalves.SecondHalfStart},
		FTTopups:                    topups,
		FreeTransferCap:             c.MaxBankedTransfers,
		AdjustConfig:                adjustCfg,
		OptimizerConfig:             optCfg,
		HorizonGameweeks:            c.HorizonGameweeks,
		MaxConcurrency:              c.MaxConcurrency,
		ThresholdLearningMinSamples: c.ThresholdLearningMinSamples,
		IntelligenceTTL:             c.IntelligenceTTL(),
		TranscriptTTL:               c.TranscriptTTL(),
	}
}

// ClassifierThresholds resolves the actionability-gate thresholds.
func (c Config) ClassifierThresholds() intelligence.Thresholds {
	return intelligence.Thresholds{
		MinConfidence: c.MinActionableConfidence,
		MinMatchScore: c.MinPlayerMatchScore,
	}
}
