package ai

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/metrics"
	"github.com/talgya/warfront/internal/territory"
)

// ActionType classifies a concrete AI action.
type ActionType uint8

const (
	ActionPush      ActionType = iota // add influence at the target
	ActionUndermine                   // erode the strongest rival's influence
)

// String returns the lowercase action type name.
func (a ActionType) String() string {
	if a == ActionPush {
		return "push"
	}
	return "undermine"
}

// Action is one concrete influence change scheduled for execution. Actions
// apply through the normal authority path, never a side channel.
type Action struct {
	Faction         faction.ID    `json:"faction"`
	Type            ActionType    `json:"type"`
	Target          territory.Key `json:"target"`
	TargetFaction   faction.ID    `json:"target_faction"` // faction whose influence changes
	InfluenceChange int           `json:"influence_change"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
}

// Authority is the write path the AI shares with players.
type Authority interface {
	UpdateInfluence(territoryID int, territoryType territory.Type, factionID faction.ID, delta int, cause string) bool
	Territories() []territory.Territory
	GetState(territoryID int, territoryType territory.Type) territory.Territory
}

type pending struct {
	d         Decision
	remaining time.Duration
}

// Manager owns one behavior instance per faction, created once at startup
// and alive for the session. It ticks pending-decision queues every frame
// and serializes resulting actions into the authority.
type Manager struct {
	mu        sync.Mutex
	authority Authority
	behaviors map[faction.ID]Behavior
	order     []faction.ID // stable iteration order
	queues    map[faction.ID][]pending
	actions   []Action
	now       func() time.Time
}

// NewManager creates the AI manager with one behavior per faction.
func NewManager(authority Authority, factions []*faction.Faction, contestThreshold int) *Manager {
	m := &Manager{
		authority: authority,
		behaviors: make(map[faction.ID]Behavior, len(factions)),
		queues:    make(map[faction.ID][]pending, len(factions)),
		now:       time.Now,
	}
	for _, f := range factions {
		m.behaviors[f.ID] = NewBehavior(f, contestThreshold)
		m.order = append(m.order, f.ID)
	}
	return m
}

// SetClock overrides the time source. Tests use this.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// EvaluateStrategic runs every faction's full territorial evaluation and
// queues the resulting decisions. The scheduler calls this every few
// minutes.
func (m *Manager) EvaluateStrategic() {
	territories := m.authority.Territories()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fid := range m.order {
		b := m.behaviors[fid]
		for _, d := range b.Evaluate(territories) {
			m.enqueueLocked(fid, d)
		}
	}
}

// EvaluateTactical re-runs evaluation only for factions with empty queues —
// a cheap between-strategic-cycles check that nothing urgent is being
// ignored. The scheduler calls this every minute.
func (m *Manager) EvaluateTactical() {
	var idle []faction.ID
	m.mu.Lock()
	for _, fid := range m.order {
		if len(m.queues[fid]) == 0 {
			idle = append(idle, fid)
		}
	}
	m.mu.Unlock()
	if len(idle) == 0 {
		return
	}

	territories := m.authority.Territories()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fid := range idle {
		for _, d := range m.behaviors[fid].Evaluate(territories) {
			if d.Type != DecisionDefend {
				continue // tactical pass only fast-tracks defense
			}
			m.enqueueLocked(fid, d)
		}
	}
}

// Tick advances all pending queues by dt, converts due decisions into
// actions, and applies actions whose scheduled time has arrived.
func (m *Manager) Tick(dt time.Duration) {
	m.mu.Lock()

	for _, fid := range m.order {
		queue := m.queues[fid]
		kept := queue[:0]
		for _, p := range queue {
			p.remaining -= dt
			if p.remaining > 0 {
				kept = append(kept, p)
				continue
			}
			m.actions = append(m.actions, m.convertLocked(fid, p.d)...)
		}
		m.queues[fid] = kept
	}

	now := m.now()
	var due []Action
	keptActions := m.actions[:0]
	for _, a := range m.actions {
		if a.ScheduledAt.After(now) {
			keptActions = append(keptActions, a)
			continue
		}
		due = append(due, a)
	}
	m.actions = keptActions
	m.mu.Unlock()

	for _, a := range due {
		accepted := m.authority.UpdateInfluence(a.Target.ID, a.Target.Type, a.TargetFaction, a.InfluenceChange, "ai:"+a.Type.String())
		if !accepted {
			slog.Warn("ai action rejected",
				"faction", a.Faction,
				"target", a.Target.ID,
				"type", a.Type.String(),
			)
		}
	}
}

// ContestChanged is the reactive path: a fresh contest event immediately
// consults involved behaviors, bypassing the strategic cadence.
func (m *Manager) ContestChanged(change territory.ContestChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fid := range m.order {
		if d := m.behaviors[fid].React(change); d != nil {
			m.enqueueLocked(fid, *d)
		}
	}
}

// TerritoryUpdated is part of territory.Observer; the AI only reacts to
// contest transitions.
func (m *Manager) TerritoryUpdated(territory.Update) {}

// ControlChanged is part of territory.Observer; dominance flips surface on
// the next evaluation pass.
func (m *Manager) ControlChanged(territory.ControlChange) {}

// Pending returns the number of queued decisions for a faction.
func (m *Manager) Pending(fid faction.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[fid])
}

func (m *Manager) enqueueLocked(fid faction.ID, d Decision) {
	// One pending decision per target per faction; fresher intent wins.
	for i, p := range m.queues[fid] {
		if p.d.Target == d.Target {
			m.queues[fid][i] = pending{d: d, remaining: d.Delay}
			return
		}
	}
	m.queues[fid] = append(m.queues[fid], pending{d: d, remaining: d.Delay})
	metrics.AIDecisions.Inc()
	slog.Debug("ai decision queued",
		"faction", fid,
		"type", d.Type.String(),
		"target", d.Target.ID,
		"priority", d.Priority,
		"resources", d.Resources,
		"reasoning", d.Reasoning,
	)
}

// convertLocked turns a due decision into concrete actions. Defensive and
// reinforcement intents push own influence; expansion splits between a push
// and an undermine against the strongest rival at the target.
func (m *Manager) convertLocked(fid faction.ID, d Decision) []Action {
	now := m.now()
	switch d.Type {
	case DecisionExpand:
		push := d.Resources * 2 / 3
		if push < 1 {
			push = 1
		}
		actions := []Action{{
			Faction:         fid,
			Type:            ActionPush,
			Target:          d.Target,
			TargetFaction:   fid,
			InfluenceChange: push,
			ScheduledAt:     now,
		}}
		state := m.authority.GetState(d.Target.ID, d.Target.Type)
		if rival := strongestRival(state, fid); rival != faction.None {
			actions = append(actions, Action{
				Faction:         fid,
				Type:            ActionUndermine,
				Target:          d.Target,
				TargetFaction:   rival,
				InfluenceChange: -(d.Resources - push),
				ScheduledAt:     now.Add(10 * time.Second),
			})
		}
		return actions
	default:
		return []Action{{
			Faction:         fid,
			Type:            ActionPush,
			Target:          d.Target,
			TargetFaction:   fid,
			InfluenceChange: d.Resources,
			ScheduledAt:     now,
		}}
	}
}

func strongestRival(t territory.Territory, fid faction.ID) faction.ID {
	rival := faction.None
	best := 0
	for f, v := range t.Influences {
		if f != fid && v > best {
			best = v
			rival = f
		}
	}
	return rival
}
