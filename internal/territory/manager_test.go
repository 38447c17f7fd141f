package territory

import (
	"sync"
	"testing"
	"time"

	"github.com/talgya/warfront/internal/faction"
)

// recordingObserver collects events for assertions. Dispatch is asynchronous;
// call Manager.Flush before reading.
type recordingObserver struct {
	mu       sync.Mutex
	updates  []Update
	controls []ControlChange
	contests []ContestChange
}

func (r *recordingObserver) TerritoryUpdated(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingObserver) ControlChanged(c ControlChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = append(r.controls, c)
}

func (r *recordingObserver) ContestChanged(c ContestChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contests = append(r.contests, c)
}

func testFactions() []*faction.Faction {
	return []*faction.Faction{
		{ID: 1, Name: "Alpha"},
		{ID: 2, Name: "Beta"},
	}
}

func newTestManager(t *testing.T) (*Manager, *recordingObserver) {
	t.Helper()
	store := NewStore()
	store.Put(&Territory{ID: 7, Type: District, Name: "Test District", Influences: map[faction.ID]int{1: 55, 2: 20}, Dominant: 1})
	m := NewManager(store, testFactions(), WithClock(func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}))
	t.Cleanup(m.Close)

	obs := &recordingObserver{}
	m.Subscribe(obs)
	return m, obs
}

func TestUpdateInfluenceControlFlip(t *testing.T) {
	m, obs := newTestManager(t)

	if !m.UpdateInfluence(7, District, 2, 40, "test") {
		t.Fatalf("update rejected")
	}
	m.Flush()

	state := m.GetState(7, District)
	if state.Influences[2] != 60 {
		t.Fatalf("influence = %d, want 60", state.Influences[2])
	}
	if state.Dominant != 2 {
		t.Fatalf("dominant = %v, want 2", state.Dominant)
	}
	if !state.Contested {
		t.Fatalf("expected contested: both factions above threshold")
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(obs.updates))
	}
	u := obs.updates[0]
	if u.NewValue != 60 || !u.ControlChanged || u.Cause != "test" {
		t.Fatalf("unexpected update record: %+v", u)
	}
	if len(obs.controls) != 1 || obs.controls[0].OldFaction != 1 || obs.controls[0].NewFaction != 2 {
		t.Fatalf("unexpected control change: %+v", obs.controls)
	}
	if len(obs.contests) != 1 || !obs.contests[0].Contested {
		t.Fatalf("unexpected contest change: %+v", obs.contests)
	}
	if len(obs.contests[0].Contesting) != 2 {
		t.Fatalf("contesting = %v, want both factions", obs.contests[0].Contesting)
	}
}

func TestUpdateInfluenceClampsAtBounds(t *testing.T) {
	m, _ := newTestManager(t)

	m.UpdateInfluence(7, District, 1, 500, "test")
	if got := m.GetFactionInfluence(7, District, 1); got != 100 {
		t.Fatalf("influence = %d, want 100", got)
	}

	m.UpdateInfluence(7, District, 1, -500, "test")
	if got := m.GetFactionInfluence(7, District, 1); got != 0 {
		t.Fatalf("influence = %d, want 0", got)
	}
}

func TestUpdateInfluenceRejectsInvalid(t *testing.T) {
	m, obs := newTestManager(t)

	cases := []struct {
		name        string
		territoryID int
		typ         Type
		factionID   faction.ID
	}{
		{"zero territory", 0, District, 1},
		{"negative territory", -3, District, 1},
		{"bad type", 7, Type(9), 1},
		{"unknown faction", 7, District, 99},
		{"none faction", 7, District, faction.None},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if m.UpdateInfluence(c.territoryID, c.typ, c.factionID, 10, "test") {
				t.Fatalf("expected rejection")
			}
		})
	}

	m.Flush()
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.updates) != 0 {
		t.Fatalf("rejected updates must not emit events, got %d", len(obs.updates))
	}
}

func TestContestClears(t *testing.T) {
	m, obs := newTestManager(t)

	m.UpdateInfluence(7, District, 2, 25, "test")  // 45: contested
	m.UpdateInfluence(7, District, 2, -10, "test") // 35: clears
	m.Flush()

	if m.IsContested(7, District) {
		t.Fatalf("expected contest cleared")
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.contests) != 2 {
		t.Fatalf("contest transitions = %d, want 2", len(obs.contests))
	}
	if !obs.contests[0].Contested || obs.contests[1].Contested {
		t.Fatalf("expected contested then cleared, got %+v", obs.contests)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	m, _ := newTestManager(t)

	m.UpdateInfluence(7, District, 1, 1, "first")
	m.UpdateInfluence(7, District, 1, 1, "second")
	m.UpdateInfluence(7, District, 1, 1, "third")

	h := m.History(2)
	if len(h) != 2 {
		t.Fatalf("history = %d entries, want 2", len(h))
	}
	if h[0].Cause != "third" || h[1].Cause != "second" {
		t.Fatalf("history order wrong: %q, %q", h[0].Cause, h[1].Cause)
	}
}

func TestGetChildTerritories(t *testing.T) {
	store := NewStore()
	store.Put(&Territory{ID: 1, Type: Region, Influences: map[faction.ID]int{}})
	store.Put(&Territory{ID: 101, Type: District, ParentID: 1, Influences: map[faction.ID]int{}})
	store.Put(&Territory{ID: 102, Type: District, ParentID: 1, Influences: map[faction.ID]int{}})
	store.Put(&Territory{ID: 103, Type: District, ParentID: 2, Influences: map[faction.ID]int{}})
	m := NewManager(store, testFactions())
	t.Cleanup(m.Close)

	children := m.GetChildTerritories(1)
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
}

func TestCachedStateRefreshAndValidate(t *testing.T) {
	m, _ := newTestManager(t)
	m.RefreshCache()

	m.UpdateInfluence(7, District, 1, 10, "test")

	// Cache lags until refreshed.
	if got := m.CachedState(7, District).Influences[1]; got != 55 {
		t.Fatalf("cached influence = %d, want stale 55", got)
	}

	m.RefreshCache()
	if got := m.CachedState(7, District).Influences[1]; got != 65 {
		t.Fatalf("cached influence = %d, want 65 after refresh", got)
	}

	// ValidateCache self-heals when derived state drifts.
	m.UpdateInfluence(7, District, 2, 60, "test") // 80: dominance flips to 2
	m.ValidateCache()
	if got := m.CachedState(7, District).Dominant; got != 2 {
		t.Fatalf("cached dominant = %v, want 2 after validate", got)
	}
}

func TestCachedStateFallsBackToStore(t *testing.T) {
	m, _ := newTestManager(t)
	// Never refreshed: the cache is empty, reads must still work.
	if got := m.CachedState(7, District).Influences[1]; got != 55 {
		t.Fatalf("fallback read = %d, want 55", got)
	}
}

func TestLookup(t *testing.T) {
	m, _ := newTestManager(t)
	if _, ok := m.Lookup(7, District); !ok {
		t.Fatalf("expected territory found")
	}
	if _, ok := m.Lookup(7, Region); ok {
		t.Fatalf("expected miss for wrong type")
	}
}
