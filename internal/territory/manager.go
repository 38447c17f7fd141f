package territory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/metrics"
)

// Manager is the single write authority over territorial state. Every
// influence change — player, AI, or admin — funnels through UpdateInfluence.
// Reads are lock-cheap copies; a refreshable snapshot cache serves the
// periodic bonus recomputation, where sub-second staleness is acceptable.
type Manager struct {
	store     *Store
	factions  map[faction.ID]*faction.Faction
	threshold int
	now       func() time.Time

	obsMu     sync.RWMutex
	observers []Observer

	history *history

	events chan func()
	wg     sync.WaitGroup
	done   chan struct{}

	cacheMu sync.RWMutex
	cache   map[Key]Territory
}

// Option configures a Manager.
type Option func(*Manager)

// WithThreshold overrides the contestation threshold.
func WithThreshold(t int) Option {
	return func(m *Manager) { m.threshold = t }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the territorial authority over the given store.
func NewManager(store *Store, factions []*faction.Faction, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		factions:  faction.Index(factions),
		threshold: DefaultContestThreshold,
		now:       time.Now,
		history:   newHistory(256),
		events:    make(chan func(), 1024),
		done:      make(chan struct{}),
		cache:     make(map[Key]Territory),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.dispatch()
	return m
}

// Subscribe registers an observer for territorial events. Within one event
// observers run in registration order, but no ordering is promised across
// observers or relative to subsequent reads.
func (m *Manager) Subscribe(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, o)
}

// Threshold returns the contestation threshold in effect.
func (m *Manager) Threshold() int { return m.threshold }

// UpdateInfluence applies a clamped influence delta for a faction in a
// territory and recomputes the derived dominance/contested state. Returns
// false without mutating anything when the faction or territory identifier
// is invalid. Control-flip and contest-transition events fire after the
// mutation commits.
func (m *Manager) UpdateInfluence(territoryID int, territoryType Type, factionID faction.ID, delta int, cause string) bool {
	if territoryID <= 0 || territoryType > ControlPoint {
		metrics.UpdatesRejected.Inc()
		return false
	}
	if _, ok := m.factions[factionID]; !ok {
		metrics.UpdatesRejected.Inc()
		return false
	}

	key := Key{ID: territoryID, Type: territoryType}
	var (
		update  Update
		control *ControlChange
		contest *ContestChange
	)

	m.store.Mutate(key, func(t *Territory) {
		oldDominant := t.Dominant
		oldContested := t.Contested

		old := t.Influences[factionID]
		t.Influences[factionID] = clampInfluence(old + delta)
		t.LastUpdated = m.now()
		t.Recompute(m.threshold)

		update = Update{
			ID:             uuid.NewString(),
			TerritoryID:    territoryID,
			TerritoryType:  territoryType,
			Faction:        factionID,
			Delta:          delta,
			Cause:          cause,
			NewValue:       t.Influences[factionID],
			ControlChanged: t.Dominant != oldDominant,
			Timestamp:      t.LastUpdated,
		}
		if t.Dominant != oldDominant {
			control = &ControlChange{Territory: key, OldFaction: oldDominant, NewFaction: t.Dominant}
		}
		if t.Contested != oldContested {
			contest = &ContestChange{
				Territory:  key,
				Contested:  t.Contested,
				Contesting: contestingFactions(t.Influences, m.threshold),
			}
		}
	})

	metrics.UpdatesAccepted.Inc()
	m.history.add(update)

	m.emit(func(o Observer) { o.TerritoryUpdated(update) })
	if control != nil {
		metrics.ControlFlips.Inc()
		slog.Info("control flip",
			"territory", territoryID,
			"type", territoryType.String(),
			"old", control.OldFaction,
			"new", control.NewFaction,
			"cause", cause,
		)
		cc := *control
		m.emit(func(o Observer) { o.ControlChanged(cc) })
	}
	if contest != nil {
		metrics.ContestTransitions.Inc()
		slog.Info("contest change",
			"territory", territoryID,
			"type", territoryType.String(),
			"contested", contest.Contested,
			"factions", contest.Contesting,
		)
		cc := *contest
		m.emit(func(o Observer) { o.ContestChanged(cc) })
	}

	return true
}

// GetState returns a copy of the territory's current state. Unknown
// territories return a zero-value territory, never an error.
func (m *Manager) GetState(territoryID int, territoryType Type) Territory {
	t, _ := m.store.Get(Key{ID: territoryID, Type: territoryType})
	return t
}

// Lookup returns a territory's state and whether it exists.
func (m *Manager) Lookup(territoryID int, territoryType Type) (Territory, bool) {
	return m.store.Get(Key{ID: territoryID, Type: territoryType})
}

// GetFactionInfluence returns one faction's influence in a territory.
func (m *Manager) GetFactionInfluence(territoryID int, territoryType Type, factionID faction.ID) int {
	return m.GetState(territoryID, territoryType).Influences[factionID]
}

// GetDominantFaction returns the faction currently dominating a territory,
// or faction.None.
func (m *Manager) GetDominantFaction(territoryID int, territoryType Type) faction.ID {
	return m.GetState(territoryID, territoryType).Dominant
}

// IsContested reports whether two or more factions hold threshold influence.
func (m *Manager) IsContested(territoryID int, territoryType Type) bool {
	return m.GetState(territoryID, territoryType).Contested
}

// Territories returns copies of every known territory.
func (m *Manager) Territories() []Territory {
	return m.store.All()
}

// GetChildTerritories returns the territories whose ParentID matches.
func (m *Manager) GetChildTerritories(parentID int) []Territory {
	var out []Territory
	for _, t := range m.store.All() {
		if t.ParentID == parentID && t.ParentID != 0 {
			out = append(out, t)
		}
	}
	return out
}

// History returns up to n recent updates, newest first.
func (m *Manager) History(n int) []Update {
	return m.history.recent(n)
}

// Factions returns the configured faction index.
func (m *Manager) Factions() map[faction.ID]*faction.Faction {
	return m.factions
}

// RefreshCache rebuilds the read snapshot. The scheduler calls this every
// couple of seconds.
func (m *Manager) RefreshCache() {
	fresh := make(map[Key]Territory)
	for _, t := range m.store.All() {
		fresh[t.Key()] = t
	}
	m.cacheMu.Lock()
	m.cache = fresh
	m.cacheMu.Unlock()
}

// CachedState returns the snapshot view of a territory, falling back to the
// authoritative store when the cache has not seen it yet.
func (m *Manager) CachedState(territoryID int, territoryType Type) Territory {
	key := Key{ID: territoryID, Type: territoryType}
	m.cacheMu.RLock()
	t, ok := m.cache[key]
	m.cacheMu.RUnlock()
	if ok {
		return t
	}
	return m.GetState(territoryID, territoryType)
}

// ValidateCache checks cached dominance against the store and forces a
// refresh when they disagree. Inconsistency is a recoverable fault, not a
// crash.
func (m *Manager) ValidateCache() {
	m.cacheMu.RLock()
	snapshot := m.cache
	m.cacheMu.RUnlock()

	for key, cached := range snapshot {
		live, ok := m.store.Get(key)
		if !ok {
			continue
		}
		if live.Dominant != cached.Dominant || live.Contested != cached.Contested {
			slog.Warn("territorial cache inconsistent, refreshing",
				"territory", key.ID, "type", key.Type.String())
			m.RefreshCache()
			return
		}
	}
}

// Flush blocks until all queued observer notifications have been delivered.
// Intended for tests and shutdown.
func (m *Manager) Flush() {
	m.wg.Wait()
}

// Close stops the event dispatcher after draining pending notifications.
func (m *Manager) Close() {
	m.wg.Wait()
	close(m.done)
}

// emit queues an observer notification for asynchronous delivery. The
// authority never blocks on its collaborators: if the queue is full the
// notification is dropped with a warning.
func (m *Manager) emit(fn func(Observer)) {
	m.wg.Add(1)
	select {
	case m.events <- func() {
		defer m.wg.Done()
		m.obsMu.RLock()
		obs := make([]Observer, len(m.observers))
		copy(obs, m.observers)
		m.obsMu.RUnlock()
		for _, o := range obs {
			fn(o)
		}
	}:
	default:
		m.wg.Done()
		metrics.EventsDropped.Inc()
		slog.Warn("event queue full, notification dropped")
	}
}

func (m *Manager) dispatch() {
	for {
		select {
		case fn := <-m.events:
			fn()
		case <-m.done:
			return
		}
	}
}
