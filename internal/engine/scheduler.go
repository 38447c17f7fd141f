// Package engine provides the frame scheduler and wires the territorial
// systems together.
package engine

import (
	"log/slog"
	"time"
)

// Default per-feature intervals, expressed in frames at the configured tick
// rate. Extraction and siege progress run every frame; heavier work runs on
// coarser cadences.
const (
	DefaultTickRateHz = 10

	CacheRefreshSeconds   = 2
	BonusRecomputeSeconds = 5
	TacticalSeconds       = 60
	StrategicSeconds      = 300
	PersistSeconds        = 30
	ValidateSeconds       = 15
)

// Scheduler drives the engine forward at a fixed tick rate, invoking each
// callback layer on its own interval.
type Scheduler struct {
	Tick       uint64
	TickRateHz int
	Speed      float64 // 0 = paused
	Running    bool

	// Callback layers — populated during setup.
	OnFrame          func(tick uint64, dt time.Duration) // every frame
	OnCacheRefresh   func(tick uint64)                   // ~2s
	OnBonusRecompute func(tick uint64)                   // ~5s
	OnValidate       func(tick uint64)                   // ~15s
	OnPersist        func(tick uint64)                   // ~30s
	OnTactical       func(tick uint64)                   // ~60s
	OnStrategic      func(tick uint64)                   // ~5min
}

// NewScheduler creates a scheduler at the default tick rate.
func NewScheduler() *Scheduler {
	return &Scheduler{TickRateHz: DefaultTickRateHz, Speed: 1.0}
}

// Run starts the frame loop. Blocks until Stop is called.
func (s *Scheduler) Run() {
	s.Running = true
	interval := time.Second / time.Duration(s.TickRateHz)
	slog.Info("scheduler started", "tick", s.Tick, "rate_hz", s.TickRateHz)

	for s.Running {
		if s.Speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		s.Step(interval)

		elapsed := time.Since(start)
		target := time.Duration(float64(interval) / s.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("scheduler stopped", "tick", s.Tick)
}

// Stop halts the frame loop.
func (s *Scheduler) Stop() {
	s.Running = false
}

// Step advances one frame. Exposed so tests can drive the schedule
// deterministically.
func (s *Scheduler) Step(dt time.Duration) {
	s.Tick++

	if s.OnFrame != nil {
		s.OnFrame(s.Tick, dt)
	}
	s.every(CacheRefreshSeconds, s.OnCacheRefresh)
	s.every(BonusRecomputeSeconds, s.OnBonusRecompute)
	s.every(ValidateSeconds, s.OnValidate)
	s.every(PersistSeconds, s.OnPersist)
	s.every(TacticalSeconds, s.OnTactical)
	s.every(StrategicSeconds, s.OnStrategic)
}

func (s *Scheduler) every(seconds int, fn func(tick uint64)) {
	if fn == nil {
		return
	}
	frames := uint64(seconds * s.TickRateHz)
	if frames == 0 {
		frames = 1
	}
	if s.Tick%frames == 0 {
		fn(s.Tick)
	}
}
