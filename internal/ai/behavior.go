// Package ai runs the autonomous per-faction strategy loops. Each faction
// gets one behavior instance that scans territorial state, ranks threats,
// and emits delayed decisions; the Manager converts due decisions into
// influence updates applied through the same authority path as players.
package ai

import (
	"fmt"
	"time"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/territory"
)

// DecisionType classifies a strategic decision.
type DecisionType uint8

const (
	DecisionDefend DecisionType = iota
	DecisionExpand
	DecisionReinforce
)

// String returns the lowercase decision type name.
func (d DecisionType) String() string {
	switch d {
	case DecisionDefend:
		return "defend"
	case DecisionExpand:
		return "expand"
	case DecisionReinforce:
		return "reinforce"
	default:
		return "unknown"
	}
}

// Decision is a queued strategic intent. It sits in the faction's pending
// queue until its delay elapses, then converts to concrete actions.
type Decision struct {
	Type      DecisionType  `json:"type"`
	Target    territory.Key `json:"target"`
	Priority  float64       `json:"priority"`
	Resources int           `json:"resources"` // influence points committed
	Reasoning string        `json:"reasoning"`
	Delay     time.Duration `json:"delay"`
}

// Behavior is one faction's strategy. Implementations differ in how they
// value territory; the threat-response skeleton is shared.
type Behavior interface {
	FactionID() faction.ID
	// Evaluate scans the territorial snapshot and returns zero or more
	// decisions: defensive first, expansion only when no threats exist.
	Evaluate(territories []territory.Territory) []Decision
	// React handles an immediate threat event, returning a short-delay
	// defensive decision or nil.
	React(change territory.ContestChange) *Decision
}

// core carries the threat logic shared by every strategy.
type core struct {
	f         *faction.Faction
	threshold int
	value     func(f *faction.Faction, t *territory.Territory) float64
}

// NewBehavior builds the strategy instance for a faction, selected by kind.
func NewBehavior(f *faction.Faction, contestThreshold int) Behavior {
	c := core{f: f, threshold: contestThreshold}
	switch f.Kind {
	case faction.KindMilitant:
		c.value = militantValue
	case faction.KindCorporate:
		c.value = corporateValue
	case faction.KindMercantile:
		c.value = mercantileValue
	default:
		c.value = scavengerValue
	}
	return &c
}

func (c *core) FactionID() faction.ID { return c.f.ID }

func (c *core) Evaluate(territories []territory.Territory) []Decision {
	type threat struct {
		t     territory.Territory
		score float64
	}

	var threats []threat
	for _, t := range territories {
		if t.Dominant != c.f.ID || !t.Contested {
			continue
		}
		threats = append(threats, threat{t: t, score: c.threatScore(&t)})
	}

	if len(threats) > 0 {
		worst := threats[0]
		for _, th := range threats[1:] {
			if th.score > worst.score {
				worst = th
			}
		}
		severity := c.severity(&worst.t)
		return []Decision{{
			Type:      DecisionDefend,
			Target:    worst.t.Key(),
			Priority:  worst.score,
			Resources: 5 + int(severity*20),
			Reasoning: fmt.Sprintf("%s holds %s but %d factions contest it", c.f.Name, worst.t.Name, len(contenders(&worst.t, c.threshold))),
			Delay:     c.decisionDelay(),
		}}
	}

	if c.f.Aggression <= c.f.ExpansionThreshold {
		return nil
	}

	var best *territory.Territory
	bestScore := 0.0
	for i := range territories {
		t := &territories[i]
		// Self-controlled, uncontested ground offers nothing to expand into.
		if t.Dominant == c.f.ID && !t.Contested {
			continue
		}
		if score := c.value(c.f, t); score > bestScore {
			bestScore = score
			best = t
		}
	}
	if best == nil {
		return nil
	}
	return []Decision{{
		Type:      DecisionExpand,
		Target:    best.Key(),
		Priority:  bestScore,
		Resources: 3 + int(c.f.Aggression*15),
		Reasoning: fmt.Sprintf("%s pushes into %s (value %.2f)", c.f.Name, best.Name, bestScore),
		Delay:     c.decisionDelay() * 2,
	}}
}

func (c *core) React(change territory.ContestChange) *Decision {
	if !change.Contested {
		return nil
	}
	involved := false
	for _, f := range change.Contesting {
		if f == c.f.ID {
			involved = true
			break
		}
	}
	if !involved {
		return nil
	}
	return &Decision{
		Type:      DecisionReinforce,
		Target:    change.Territory,
		Priority:  1.0,
		Resources: 4 + int(c.f.Aggression*8),
		Reasoning: fmt.Sprintf("%s reinforces contested territory %d", c.f.Name, change.Territory.ID),
		Delay:     5 * time.Second,
	}
}

// severity measures how badly a held territory is threatened: the strongest
// rival's influence relative to ours, scaled by the stakes.
func (c *core) severity(t *territory.Territory) float64 {
	own := t.Influences[c.f.ID]
	rival := 0
	for f, v := range t.Influences {
		if f != c.f.ID && v > rival {
			rival = v
		}
	}
	if own == 0 {
		return 1.0
	}
	s := float64(rival) / float64(own)
	if s > 1 {
		s = 1
	}
	return s * (0.5 + t.StrategicValue/2)
}

// threatScore ranks a threat for this faction: base severity divided by the
// defensive bonus, scaled inversely by aggression — aggressive factions
// perceive less threat in the same situation.
func (c *core) threatScore(t *territory.Territory) float64 {
	bonus := c.f.DefensiveBonus
	if bonus <= 0 {
		bonus = 1
	}
	return c.severity(t) / bonus / (0.5 + c.f.Aggression)
}

// decisionDelay staggers execution so factions do not all act on the same
// frame; focused (high tech) factions commit faster.
func (c *core) decisionDelay() time.Duration {
	base := 30 * time.Second
	return time.Duration(float64(base) * (1.2 - c.f.TechFocus*0.5))
}

func contenders(t *territory.Territory, threshold int) []faction.ID {
	var out []faction.ID
	for f, v := range t.Influences {
		if v >= threshold {
			out = append(out, f)
		}
	}
	return out
}

// Per-kind territorial value functions. Controlled territories score higher
// for retention, contested ones lower, regions above districts above control
// points — each kind tilts those weights its own way.

func baseValue(f *faction.Faction, t *territory.Territory) float64 {
	v := 0.3 + t.StrategicValue*0.5
	switch t.Type {
	case territory.Region:
		v *= 1.5
	case territory.District:
		v *= 1.2
	}
	if t.Dominant == f.ID {
		v *= 1.3 // retention
	}
	if t.Contested {
		v *= 0.6
	}
	return v
}

func militantValue(f *faction.Faction, t *territory.Territory) float64 {
	v := baseValue(f, t)
	// Militants relish taking enemy strongholds.
	if t.Dominant != faction.None && t.Dominant != f.ID {
		v *= 1.4
	}
	return v
}

func corporateValue(f *faction.Faction, t *territory.Territory) float64 {
	v := baseValue(f, t)
	// The Directorate consolidates strategic regions.
	if t.Type == territory.Region {
		v *= 1.0 + f.TechFocus*0.5
	}
	return v
}

func mercantileValue(f *faction.Faction, t *territory.Territory) float64 {
	v := baseValue(f, t)
	// Merchants chase rich, quiet ground.
	v *= 1.0 + f.EconomicFocus*t.StrategicValue
	if t.Contested {
		v *= 0.5
	}
	return v
}

func scavengerValue(f *faction.Faction, t *territory.Territory) float64 {
	v := baseValue(f, t)
	// Scavengers are the least averse to disputed ground.
	if t.Contested {
		v *= 1.5
	}
	if t.Type == territory.ControlPoint {
		v *= 1.3
	}
	return v
}
