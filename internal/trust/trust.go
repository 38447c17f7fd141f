// Package trust tracks pairwise actor reputation used to adjust extraction
// behavior. Betrayals and assists during extractions feed the ledger; the
// extraction point consults it for co-present actors.
package trust

import "sync"

// Score bounds. A pair's score drifts within [-1, 1]; 0 is neutral.
const (
	minScore = -1.0
	maxScore = 1.0

	assistStep   = 0.1
	betrayalStep = 0.25
)

// Ledger is an in-memory pairwise trust store. Scores are symmetric.
type Ledger struct {
	mu     sync.RWMutex
	scores map[pair]float64
}

type pair struct{ a, b string }

func orderedPair(a, b string) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a: a, b: b}
}

// NewLedger creates an empty trust ledger.
func NewLedger() *Ledger {
	return &Ledger{scores: make(map[pair]float64)}
}

// GetTrustModifier returns a multiplier in [0.5, 1.5] for a pair of actors:
// 1.0 for strangers, above for trusted partners, below for known betrayers.
// The territory argument is accepted for interface parity with richer
// implementations that weight by location history.
func (l *Ledger) GetTrustModifier(actorA, actorB string, territoryID int) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return 1.0 + l.scores[orderedPair(actorA, actorB)]*0.5
}

// RecordBetrayal lowers trust between two actors.
func (l *Ledger) RecordBetrayal(actorA, actorB string, territoryID int) {
	l.adjust(actorA, actorB, -betrayalStep)
}

// RecordAssistance raises trust between two actors.
func (l *Ledger) RecordAssistance(actorA, actorB string, territoryID int) {
	l.adjust(actorA, actorB, assistStep)
}

func (l *Ledger) adjust(a, b string, delta float64) {
	key := orderedPair(a, b)
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.scores[key] + delta
	if s < minScore {
		s = minScore
	}
	if s > maxScore {
		s = maxScore
	}
	l.scores[key] = s
}
