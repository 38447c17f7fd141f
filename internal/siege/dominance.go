package siege

import "time"

// Neutral is the resting point of a dominance meter: neither side ahead.
const Neutral = 0.5

// Meter is a continuous 0..1 dominance gauge for one contested zone.
// 1.0 means total attacker dominance, 0.0 total defender dominance. Deltas
// pass through a timed multiplier; passive decay pulls the value back toward
// neutral each tick.
type Meter struct {
	value          float64
	modifier       float64
	modifierExpiry time.Time

	decayRate    float64 // per tick, toward Neutral
	decayEnabled bool

	thresholds []float64
	above      []bool

	// Extreme (0 or 1) the complete callback last fired for; -1 when armed
	// for either. A swing straight from one extreme to the other fires again.
	lastExtreme float64

	now         func() time.Time
	onChange    func(old, new float64)
	onComplete  func(value float64)
	onThreshold func(threshold float64, rising bool)
}

// NewMeter creates a meter at Neutral with the given decay rate and
// notification thresholds. A zero decay rate disables passive decay.
func NewMeter(decayRate float64, thresholds []float64) *Meter {
	m := &Meter{
		value:        Neutral,
		modifier:     1.0,
		decayRate:    decayRate,
		decayEnabled: decayRate > 0,
		thresholds:   thresholds,
		above:        make([]bool, len(thresholds)),
		lastExtreme:  -1,
		now:          time.Now,
	}
	for i, th := range thresholds {
		m.above[i] = m.value >= th
	}
	return m
}

// SetClock overrides the time source. Tests use this.
func (m *Meter) SetClock(now func() time.Time) { m.now = now }

// OnChange registers the value-moved callback.
func (m *Meter) OnChange(fn func(old, new float64)) { m.onChange = fn }

// OnComplete registers the callback fired when the meter first hits an
// extreme (exactly 0 or 1). It re-arms once the value leaves the extreme;
// jumping straight to the opposite extreme counts as a fresh arrival.
func (m *Meter) OnComplete(fn func(value float64)) { m.onComplete = fn }

// OnThreshold registers the crossing callback. Each threshold fires at most
// once per direction; it must be un-crossed before it can fire again.
func (m *Meter) OnThreshold(fn func(threshold float64, rising bool)) { m.onThreshold = fn }

// Value returns the current meter value.
func (m *Meter) Value() float64 { return m.value }

// Modifier returns the active delta multiplier.
func (m *Meter) Modifier() float64 { return m.modifier }

// AddDelta applies d scaled by the active modifier, clamped to [0, 1].
func (m *Meter) AddDelta(d float64) {
	m.expireModifier()
	m.apply(d * m.modifier)
}

// ApplyModifier installs a delta multiplier for the given duration. The
// multiplier floors at 0.1 so the meter can never freeze entirely; it resets
// to 1.0 once the duration elapses (checked on the next tick or delta, not
// via a dedicated timer).
func (m *Meter) ApplyModifier(multiplier float64, duration time.Duration) {
	if multiplier < 0.1 {
		multiplier = 0.1
	}
	m.modifier = multiplier
	m.modifierExpiry = m.now().Add(duration)
}

// Tick expires stale modifiers and applies passive decay toward Neutral,
// never overshooting past it.
func (m *Meter) Tick() {
	m.expireModifier()
	if !m.decayEnabled || m.value == Neutral {
		return
	}
	step := m.decayRate
	if m.value > Neutral {
		if m.value-step < Neutral {
			step = m.value - Neutral
		}
		m.apply(-step)
	} else {
		if m.value+step > Neutral {
			step = Neutral - m.value
		}
		m.apply(step)
	}
}

func (m *Meter) apply(d float64) {
	old := m.value
	v := old + d
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if v == old {
		return
	}
	m.value = v

	if m.onChange != nil {
		m.onChange(old, v)
	}
	for i, th := range m.thresholds {
		isAbove := v >= th
		if isAbove != m.above[i] {
			m.above[i] = isAbove
			if m.onThreshold != nil {
				m.onThreshold(th, isAbove)
			}
		}
	}
	if v == 0 || v == 1 {
		if v != m.lastExtreme {
			m.lastExtreme = v
			if m.onComplete != nil {
				m.onComplete(v)
			}
		}
	} else {
		m.lastExtreme = -1
	}
}

func (m *Meter) expireModifier() {
	if m.modifier != 1.0 && !m.now().Before(m.modifierExpiry) {
		m.modifier = 1.0
	}
}
