package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/warfront/internal/extraction"
	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/siege"
)

// Tunables is the gameplay tuning surface, loaded once at startup. Durations
// are expressed in seconds in the YAML file.
type Tunables struct {
	ContestThreshold int `yaml:"contest_threshold"`

	Siege struct {
		PhaseThreshold       float64   `yaml:"phase_threshold"`
		LockDurationSec      int       `yaml:"lock_duration_sec"`
		AutoAdvance          bool      `yaml:"auto_advance"`
		InitialTickets       float64   `yaml:"initial_tickets"`
		AllowNegativeTickets bool      `yaml:"allow_negative_tickets"`
		DecayRate            float64   `yaml:"decay_rate"`
		MeterThresholds      []float64 `yaml:"meter_thresholds"`
		TicketBurn           float64   `yaml:"ticket_burn"`
	} `yaml:"siege"`

	Extraction struct {
		BaseTimeSec              int     `yaml:"base_time_sec"`
		MinTimeSec               int     `yaml:"min_time_sec"`
		BaseSuccessRate          float64 `yaml:"base_success_rate"`
		MinSuccessRate           float64 `yaml:"min_success_rate"`
		MaxSuccessRate           float64 `yaml:"max_success_rate"`
		ControlTimeBonusSec      int     `yaml:"control_time_bonus_sec"`
		EnemyTimePenaltyMult     float64 `yaml:"enemy_time_penalty_mult"`
		ContestFlatPenaltySec    int     `yaml:"contest_flat_penalty_sec"`
		VulnerabilityWindowSec   int     `yaml:"vulnerability_window_sec"`
		ControlSuccessBonus      float64 `yaml:"control_success_bonus"`
		EnemySuccessPenalty      float64 `yaml:"enemy_success_penalty"`
		ContestPenaltyPerFaction float64 `yaml:"contest_penalty_per_faction"`
		BaseInfluenceGain        int     `yaml:"base_influence_gain"`
		EnemyGainBoost           float64 `yaml:"enemy_gain_boost"`
		BaseLootMultiplier       float64 `yaml:"base_loot_multiplier"`
		MinLootMultiplier        float64 `yaml:"min_loot_multiplier"`
		MaxLootMultiplier        float64 `yaml:"max_loot_multiplier"`
		MaxSimultaneous          int     `yaml:"max_simultaneous"`
	} `yaml:"extraction"`

	Factions []*faction.Faction `yaml:"factions"`
}

// DefaultTunables returns the reference tuning.
func DefaultTunables() *Tunables {
	t := &Tunables{ContestThreshold: 40}

	t.Siege.PhaseThreshold = 100
	t.Siege.LockDurationSec = 600
	t.Siege.AutoAdvance = true
	t.Siege.InitialTickets = 500
	t.Siege.DecayRate = 0.002
	t.Siege.MeterThresholds = []float64{0.25, 0.5, 0.75, 0.9}
	t.Siege.TicketBurn = 1.0

	def := extraction.DefaultConfig()
	t.Extraction.BaseTimeSec = int(def.BaseTime / time.Second)
	t.Extraction.MinTimeSec = int(def.MinTime / time.Second)
	t.Extraction.BaseSuccessRate = def.BaseSuccessRate
	t.Extraction.MinSuccessRate = def.MinSuccessRate
	t.Extraction.MaxSuccessRate = def.MaxSuccessRate
	t.Extraction.ControlTimeBonusSec = int(def.ControlTimeBonus / time.Second)
	t.Extraction.EnemyTimePenaltyMult = def.EnemyTimePenaltyMult
	t.Extraction.ContestFlatPenaltySec = int(def.ContestFlatPenalty / time.Second)
	t.Extraction.VulnerabilityWindowSec = int(def.VulnerabilityWindow / time.Second)
	t.Extraction.ControlSuccessBonus = def.ControlSuccessBonus
	t.Extraction.EnemySuccessPenalty = def.EnemySuccessPenalty
	t.Extraction.ContestPenaltyPerFaction = def.ContestPenaltyPerFaction
	t.Extraction.BaseInfluenceGain = def.BaseInfluenceGain
	t.Extraction.EnemyGainBoost = def.EnemyGainBoost
	t.Extraction.BaseLootMultiplier = def.BaseLootMultiplier
	t.Extraction.MinLootMultiplier = def.MinLootMultiplier
	t.Extraction.MaxLootMultiplier = def.MaxLootMultiplier
	t.Extraction.MaxSimultaneous = def.MaxSimultaneous

	t.Factions = faction.Seed()
	return t
}

// LoadTunables reads tuning from a YAML file, falling back to defaults for
// an empty path. Fields omitted from the file keep their defaults.
func LoadTunables(path string) (*Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tunables: %w", err)
	}
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("tunables yaml: %w", err)
	}
	if len(t.Factions) == 0 {
		return nil, fmt.Errorf("tunables: at least one faction required")
	}
	return t, nil
}

// SiegeConfig converts the YAML block into the siege package's config.
func (t *Tunables) SiegeConfig() siege.Config {
	return siege.Config{
		PhaseThreshold:       t.Siege.PhaseThreshold,
		LockDuration:         time.Duration(t.Siege.LockDurationSec) * time.Second,
		AutoAdvance:          t.Siege.AutoAdvance,
		InitialTickets:       t.Siege.InitialTickets,
		AllowNegativeTickets: t.Siege.AllowNegativeTickets,
		DecayRate:            t.Siege.DecayRate,
		MeterThresholds:      t.Siege.MeterThresholds,
		TicketBurn:           t.Siege.TicketBurn,
	}
}

// ExtractionConfig converts the YAML block into the extraction package's
// config.
func (t *Tunables) ExtractionConfig() extraction.Config {
	e := t.Extraction
	return extraction.Config{
		BaseTime:                 time.Duration(e.BaseTimeSec) * time.Second,
		MinTime:                  time.Duration(e.MinTimeSec) * time.Second,
		BaseSuccessRate:          e.BaseSuccessRate,
		MinSuccessRate:           e.MinSuccessRate,
		MaxSuccessRate:           e.MaxSuccessRate,
		ControlTimeBonus:         time.Duration(e.ControlTimeBonusSec) * time.Second,
		EnemyTimePenaltyMult:     e.EnemyTimePenaltyMult,
		ContestFlatPenalty:       time.Duration(e.ContestFlatPenaltySec) * time.Second,
		VulnerabilityWindow:      time.Duration(e.VulnerabilityWindowSec) * time.Second,
		ControlSuccessBonus:      e.ControlSuccessBonus,
		EnemySuccessPenalty:      e.EnemySuccessPenalty,
		ContestPenaltyPerFaction: e.ContestPenaltyPerFaction,
		BaseInfluenceGain:        e.BaseInfluenceGain,
		EnemyGainBoost:           e.EnemyGainBoost,
		BaseLootMultiplier:       e.BaseLootMultiplier,
		MinLootMultiplier:        e.MinLootMultiplier,
		MaxLootMultiplier:        e.MaxLootMultiplier,
		MaxSimultaneous:          e.MaxSimultaneous,
	}
}
