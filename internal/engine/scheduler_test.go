package engine

import (
	"testing"
	"time"
)

func TestSchedulerCadences(t *testing.T) {
	s := NewScheduler()

	var frames, refreshes, bonuses, validates, persists, tacticals, strategics int
	s.OnFrame = func(uint64, time.Duration) { frames++ }
	s.OnCacheRefresh = func(uint64) { refreshes++ }
	s.OnBonusRecompute = func(uint64) { bonuses++ }
	s.OnValidate = func(uint64) { validates++ }
	s.OnPersist = func(uint64) { persists++ }
	s.OnTactical = func(uint64) { tacticals++ }
	s.OnStrategic = func(uint64) { strategics++ }

	// One simulated minute at 10 Hz.
	dt := time.Second / time.Duration(s.TickRateHz)
	for i := 0; i < 60*s.TickRateHz; i++ {
		s.Step(dt)
	}

	if frames != 600 {
		t.Fatalf("frames = %d, want 600", frames)
	}
	if refreshes != 30 {
		t.Fatalf("cache refreshes = %d, want 30", refreshes)
	}
	if bonuses != 12 {
		t.Fatalf("bonus recomputes = %d, want 12", bonuses)
	}
	if validates != 4 {
		t.Fatalf("validates = %d, want 4", validates)
	}
	if persists != 2 {
		t.Fatalf("persists = %d, want 2", persists)
	}
	if tacticals != 1 {
		t.Fatalf("tacticals = %d, want 1", tacticals)
	}
	if strategics != 0 {
		t.Fatalf("strategics = %d, want 0 inside the first minute", strategics)
	}
}

func TestSchedulerStepPassesTick(t *testing.T) {
	s := NewScheduler()
	s.Tick = 41

	var seen uint64
	s.OnFrame = func(tick uint64, dt time.Duration) { seen = tick }
	s.Step(100 * time.Millisecond)

	if seen != 42 {
		t.Fatalf("tick = %d, want 42", seen)
	}
}

func TestSchedulerNilCallbacksAreSafe(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < 3001; i++ {
		s.Step(100 * time.Millisecond) // covers every cadence boundary
	}
	if s.Tick != 3001 {
		t.Fatalf("tick = %d, want 3001", s.Tick)
	}
}
