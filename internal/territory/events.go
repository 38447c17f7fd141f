package territory

import (
	"sync"
	"time"

	"github.com/talgya/warfront/internal/faction"
)

// Update is the immutable record produced once per accepted influence
// mutation. Broadcast and persistence collaborators consume it; the Manager
// keeps only a bounded ring of recent ones.
type Update struct {
	ID             string     `json:"id"`
	TerritoryID    int        `json:"territory_id"`
	TerritoryType  Type       `json:"territory_type"`
	Faction        faction.ID `json:"faction"`
	Delta          int        `json:"delta"`
	Cause          string     `json:"cause"`
	NewValue       int        `json:"new_value"`
	ControlChanged bool       `json:"control_changed"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ControlChange fires when a territory's dominant faction flips.
type ControlChange struct {
	Territory  Key        `json:"territory"`
	OldFaction faction.ID `json:"old_faction"`
	NewFaction faction.ID `json:"new_faction"`
}

// ContestChange fires when a territory enters or leaves contested status.
// Contesting lists every faction at or above the threshold, lowest ID first.
type ContestChange struct {
	Territory  Key          `json:"territory"`
	Contested  bool         `json:"contested"`
	Contesting []faction.ID `json:"contesting_factions"`
}

// Observer receives territorial events after mutations commit. Callbacks run
// off the authority's critical path; implementations that can block should
// hand off to their own goroutine.
type Observer interface {
	TerritoryUpdated(Update)
	ControlChanged(ControlChange)
	ContestChanged(ContestChange)
}

// history is a fixed-capacity ring of recent updates.
type history struct {
	mu   sync.Mutex
	buf  []Update
	next int
	full bool
}

func newHistory(capacity int) *history {
	return &history{buf: make([]Update, capacity)}
}

func (h *history) add(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = u
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// recent returns up to n updates, newest first.
func (h *history) recent(n int) []Update {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.buf)
	}
	if n > size {
		n = size
	}
	out := make([]Update, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}
