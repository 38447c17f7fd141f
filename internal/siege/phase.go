// Package siege models the escalation of a contested zone: a four-phase
// gate, a continuous dominance meter, and the attacker/defender ticket
// economy. A Director owns one siege instance per contested territory.
package siege

import "time"

// Phase is the siege escalation stage. Phases only move forward; Locked is
// terminal until the lock expires and the siege is retired.
type Phase uint8

const (
	PhaseProbe     Phase = iota // Initial skirmishing
	PhaseInterdict              // Supply lines cut, pressure building
	PhaseDominate               // One side holds the ground
	PhaseLocked                 // Outcome sealed for the lock duration
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseProbe:
		return "probe"
	case PhaseInterdict:
		return "interdict"
	case PhaseDominate:
		return "dominate"
	case PhaseLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Gate is the siege phase state machine. Only the siege authority mutates
// it; it is not safe for concurrent writers.
type Gate struct {
	phase        Phase
	progress     float64
	threshold    float64
	phaseStart   time.Time
	lockEnd      time.Time
	lockDuration time.Duration
	autoAdvance  bool

	now      func() time.Time
	onChange func(old, new Phase)
}

// NewGate creates a gate in PhaseProbe. threshold is the progress required
// to advance out of each phase.
func NewGate(threshold float64, lockDuration time.Duration, autoAdvance bool) *Gate {
	g := &Gate{
		threshold:    threshold,
		lockDuration: lockDuration,
		autoAdvance:  autoAdvance,
		now:          time.Now,
	}
	g.phaseStart = g.now()
	return g
}

// SetClock overrides the time source. Tests use this.
func (g *Gate) SetClock(now func() time.Time) { g.now = now }

// OnPhaseChange registers the phase-transition callback.
func (g *Gate) OnPhaseChange(fn func(old, new Phase)) { g.onChange = fn }

// Phase returns the current phase.
func (g *Gate) Phase() Phase { return g.phase }

// Progress returns progress toward the next phase, in [0, threshold].
func (g *Gate) Progress() float64 { return g.progress }

// PhaseStart returns when the current phase began.
func (g *Gate) PhaseStart() time.Time { return g.phaseStart }

// LockEnd returns when the lock expires. Zero until the gate locks.
func (g *Gate) LockEnd() time.Time { return g.lockEnd }

// CanAdvance reports whether AdvancePhase would succeed: progress has
// reached the threshold, or the gate sits in Dominate — the final seal into
// Locked never requires progress.
func (g *Gate) CanAdvance() bool {
	if g.phase == PhaseLocked {
		return false
	}
	if g.phase == PhaseDominate {
		return true
	}
	return g.progress >= g.threshold
}

// AdvancePhase moves to the next phase if CanAdvance allows it. Advancing
// from Locked is always a no-op. Entering Locked stamps the lock end time.
func (g *Gate) AdvancePhase() bool {
	if !g.CanAdvance() {
		return false
	}
	g.transition(g.phase + 1)
	return true
}

// SetPhase forces the gate to a phase. Authority-only escape hatch; fires
// the change callback like a normal transition.
func (g *Gate) SetPhase(p Phase) {
	if p == g.phase || p > PhaseLocked {
		return
	}
	g.transition(p)
}

// UpdatePhaseProgress adds delta to the phase progress, clamped to
// [0, threshold]. No-op while Locked. With auto-advance enabled, crossing
// the threshold advances the gate exactly once — the transition resets
// progress, so it cannot retrigger.
func (g *Gate) UpdatePhaseProgress(delta float64) {
	if g.phase == PhaseLocked {
		return
	}
	g.progress += delta
	if g.progress < 0 {
		g.progress = 0
	}
	if g.progress > g.threshold {
		g.progress = g.threshold
	}
	if g.autoAdvance && g.progress >= g.threshold {
		g.AdvancePhase()
	}
}

// IsLocked reports whether the zone is sealed: the gate reached Locked and
// the lock window has not yet expired.
func (g *Gate) IsLocked() bool {
	return g.phase == PhaseLocked && g.now().Before(g.lockEnd)
}

func (g *Gate) transition(next Phase) {
	old := g.phase
	g.phase = next
	g.progress = 0
	g.phaseStart = g.now()
	if next == PhaseLocked {
		g.lockEnd = g.phaseStart.Add(g.lockDuration)
	}
	if g.onChange != nil {
		g.onChange(old, next)
	}
}
