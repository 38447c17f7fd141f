package siege

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/territory"
)

// Config carries the per-zone siege tunables.
type Config struct {
	PhaseThreshold       float64
	LockDuration         time.Duration
	AutoAdvance          bool
	InitialTickets       float64
	AllowNegativeTickets bool
	DecayRate            float64
	MeterThresholds      []float64
	TicketBurn           float64 // per tick at full dominance
}

// Instance is one active siege: the phase gate, dominance meter, and ticket
// pool for a single contested territory.
type Instance struct {
	Territory territory.Key
	Defender  faction.ID
	Attacker  faction.ID
	Gate      *Gate
	Meter     *Meter
	Tickets   *Pool
	StartedAt time.Time
}

// View is a read snapshot of an instance for the API.
type View struct {
	Territory       territory.Key `json:"territory"`
	Defender        faction.ID    `json:"defender"`
	Attacker        faction.ID    `json:"attacker"`
	Phase           string        `json:"phase"`
	Progress        float64       `json:"progress"`
	Locked          bool          `json:"locked"`
	Dominance       float64       `json:"dominance"`
	AttackerTickets float64       `json:"attacker_tickets"`
	DefenderTickets float64       `json:"defender_tickets"`
	StartedAt       time.Time     `json:"started_at"`
}

// Director owns one siege instance per contested territory. It observes the
// territorial authority: entering contest creates an instance, leaving
// contest retires it. The scheduler drives Tick every frame.
type Director struct {
	mu     sync.Mutex
	cfg    Config
	mgr    *territory.Manager
	sieges map[territory.Key]*Instance
	now    func() time.Time
}

// NewDirector creates a director bound to the territorial authority.
func NewDirector(cfg Config, mgr *territory.Manager) *Director {
	return &Director{
		cfg:    cfg,
		mgr:    mgr,
		sieges: make(map[territory.Key]*Instance),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Tests use this.
func (d *Director) SetClock(now func() time.Time) { d.now = now }

// TerritoryUpdated feeds influence swings into the zone's dominance meter:
// attacker gains push toward 1, defender gains pull toward 0.
func (d *Director) TerritoryUpdated(u territory.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inst, ok := d.sieges[territory.Key{ID: u.TerritoryID, Type: u.TerritoryType}]
	if !ok || u.Delta == 0 {
		return
	}
	delta := float64(u.Delta) / 200.0
	switch u.Faction {
	case inst.Defender:
		inst.Meter.AddDelta(-delta)
	default:
		inst.Meter.AddDelta(delta)
	}
}

// ControlChanged is part of the observer contract. Siege sides are pinned
// when the siege opens: a mid-siege dominance flip already registers on the
// meter through TerritoryUpdated, and reassigning the sides here would invert
// the meter's direction convention for the rest of the siege.
func (d *Director) ControlChanged(territory.ControlChange) {}

// ContestChanged opens a siege when a territory becomes contested and
// retires it when the contest clears.
func (d *Director) ContestChanged(c territory.ContestChange) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.Contested {
		d.begin(c.Territory, c.Contesting)
	} else {
		d.retire(c.Territory, "contest cleared")
	}
}

// Tick advances every active siege by one frame: meter decay, dominance
// pressure into phase progress, and ticket burn against the losing side.
func (d *Director) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, inst := range d.sieges {
		inst.Meter.Tick()
		v := inst.Meter.Value()

		switch {
		case v > 0.65:
			inst.Gate.UpdatePhaseProgress((v - 0.65) * 0.2)
			inst.Tickets.Consume(Defender, d.cfg.TicketBurn*(v-Neutral))
		case v < 0.35:
			inst.Tickets.Consume(Attacker, d.cfg.TicketBurn*(Neutral-v))
		}

		// A side out of tickets can no longer hold the phase back.
		if (inst.Tickets.Exhausted(Defender) || inst.Tickets.Exhausted(Attacker)) && inst.Gate.CanAdvance() {
			inst.Gate.AdvancePhase()
		}

		if inst.Gate.Phase() == PhaseLocked && !inst.Gate.IsLocked() {
			d.retire(key, "lock expired")
		}
	}
}

// Get returns the siege instance for a territory, or nil.
func (d *Director) Get(key territory.Key) *Instance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sieges[key]
}

// IsLocked reports whether the territory is under an active siege lock.
func (d *Director) IsLocked(key territory.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.sieges[key]
	return ok && inst.Gate.IsLocked()
}

// ViewOf returns a read view of the siege on a territory, if one is active.
func (d *Director) ViewOf(key territory.Key) (View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.sieges[key]
	if !ok {
		return View{}, false
	}
	return viewLocked(inst), true
}

// Snapshot returns read views of all active sieges.
func (d *Director) Snapshot() []View {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]View, 0, len(d.sieges))
	for _, inst := range d.sieges {
		out = append(out, viewLocked(inst))
	}
	return out
}

func viewLocked(inst *Instance) View {
	return View{
		Territory:       inst.Territory,
		Defender:        inst.Defender,
		Attacker:        inst.Attacker,
		Phase:           inst.Gate.Phase().String(),
		Progress:        inst.Gate.Progress(),
		Locked:          inst.Gate.IsLocked(),
		Dominance:       inst.Meter.Value(),
		AttackerTickets: inst.Tickets.Remaining(Attacker),
		DefenderTickets: inst.Tickets.Remaining(Defender),
		StartedAt:       inst.StartedAt,
	}
}

// begin creates a fresh siege instance. Caller holds d.mu.
func (d *Director) begin(key territory.Key, contesting []faction.ID) {
	if _, exists := d.sieges[key]; exists {
		return
	}

	state := d.mgr.GetState(key.ID, key.Type)
	defender := state.Dominant
	attacker := faction.None
	best := -1
	for _, f := range contesting {
		if f == defender {
			continue
		}
		if v := state.Influences[f]; v > best {
			best = v
			attacker = f
		}
	}

	gate := NewGate(d.cfg.PhaseThreshold, d.cfg.LockDuration, d.cfg.AutoAdvance)
	gate.SetClock(d.now)
	gate.OnPhaseChange(func(old, next Phase) {
		slog.Info("siege phase change",
			"territory", key.ID,
			"type", key.Type.String(),
			"old", old.String(),
			"new", next.String(),
		)
	})

	meter := NewMeter(d.cfg.DecayRate, d.cfg.MeterThresholds)
	meter.SetClock(d.now)

	pool := NewPool(d.cfg.InitialTickets, d.cfg.AllowNegativeTickets)
	pool.OnExhausted(func(side Side) {
		slog.Info("siege tickets exhausted",
			"territory", key.ID,
			"side", side.String(),
		)
	})

	d.sieges[key] = &Instance{
		Territory: key,
		Defender:  defender,
		Attacker:  attacker,
		Gate:      gate,
		Meter:     meter,
		Tickets:   pool,
		StartedAt: d.now(),
	}
	slog.Info("siege opened",
		"territory", key.ID,
		"type", key.Type.String(),
		"defender", defender,
		"attacker", attacker,
	)
}

// retire drops a siege instance. Caller holds d.mu.
func (d *Director) retire(key territory.Key, reason string) {
	if _, ok := d.sieges[key]; !ok {
		return
	}
	delete(d.sieges, key)
	slog.Info("siege retired", "territory", key.ID, "type", key.Type.String(), "reason", reason)
}
