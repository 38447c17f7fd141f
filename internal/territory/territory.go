// Package territory tracks per-territory faction influence and derives
// dominance and contested status from it. All writes go through the Manager;
// the Store enforces the data invariants.
package territory

import (
	"time"

	"github.com/talgya/warfront/internal/faction"
)

// Type places a territory in the map hierarchy.
type Type uint8

const (
	Region       Type = iota // Top-level theater
	District                 // Subdivision of a region
	ControlPoint             // Single capturable objective
)

// String returns the lowercase name of a territory type.
func (t Type) String() string {
	switch t {
	case Region:
		return "region"
	case District:
		return "district"
	case ControlPoint:
		return "controlpoint"
	default:
		return "unknown"
	}
}

// TypeFromString parses a territory type name. Returns false for unknown names.
func TypeFromString(s string) (Type, bool) {
	switch s {
	case "region":
		return Region, true
	case "district":
		return District, true
	case "controlpoint":
		return ControlPoint, true
	default:
		return 0, false
	}
}

// Key uniquely identifies a territory.
type Key struct {
	ID   int  `json:"id"`
	Type Type `json:"type"`
}

// Influence bounds. Values are always clamped into this range.
const (
	MinInfluence = 0
	MaxInfluence = 100
)

// DefaultContestThreshold is the influence a faction needs before it counts
// as contesting a territory.
const DefaultContestThreshold = 40

// Territory is one node of the Region/District/ControlPoint hierarchy.
// Dominant and Contested are derived from Influences after every mutation.
type Territory struct {
	ID             int                `json:"id"`
	Type           Type               `json:"type"`
	Name           string             `json:"name"`
	ParentID       int                `json:"parent_id"` // 0 for regions
	StrategicValue float64            `json:"strategic_value"`
	Influences     map[faction.ID]int `json:"influences"`
	Dominant       faction.ID         `json:"dominant"`
	Contested      bool               `json:"contested"`
	LastUpdated    time.Time          `json:"last_updated"`
}

// Key returns the territory's identity key.
func (t *Territory) Key() Key {
	return Key{ID: t.ID, Type: t.Type}
}

// Clone returns a deep copy safe to hand to readers.
func (t *Territory) Clone() Territory {
	cp := *t
	cp.Influences = make(map[faction.ID]int, len(t.Influences))
	for f, v := range t.Influences {
		cp.Influences[f] = v
	}
	return cp
}

// clampInfluence forces a value into [MinInfluence, MaxInfluence].
func clampInfluence(v int) int {
	if v < MinInfluence {
		return MinInfluence
	}
	if v > MaxInfluence {
		return MaxInfluence
	}
	return v
}

// dominantFaction returns the faction with the highest influence. Ties break
// to the lowest faction ID so repeated reads of the same map agree. Returns
// faction.None when the map is empty or all values are zero.
func dominantFaction(influences map[faction.ID]int) faction.ID {
	best := faction.None
	bestVal := 0
	for f, v := range influences {
		if v > bestVal || (v == bestVal && v > 0 && (best == faction.None || f < best)) {
			best = f
			bestVal = v
		}
	}
	return best
}

// contestingFactions returns the factions at or above the threshold, lowest
// ID first. A territory is contested when two or more qualify.
func contestingFactions(influences map[faction.ID]int, threshold int) []faction.ID {
	var out []faction.ID
	for f, v := range influences {
		if v >= threshold {
			out = append(out, f)
		}
	}
	// Small N; insertion sort keeps the order deterministic.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Recompute refreshes the derived fields from the influence map. The
// Manager calls it after every mutation; seeding and restore paths call it
// before installing territories into the store.
func (t *Territory) Recompute(threshold int) {
	t.Dominant = dominantFaction(t.Influences)
	t.Contested = len(contestingFactions(t.Influences, threshold)) >= 2
}
