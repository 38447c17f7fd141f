// Package faction defines the warring factions and their strategic profiles.
package faction

// ID is a unique identifier for a faction. Zero means "no faction".
type ID int

// None is the absence of a faction (neutral ground, no dominant owner).
const None ID = 0

// Faction describes one side of the war and the tunables that drive its
// behavior: how it fights for territory, how it extracts, and how its AI
// perceives threats.
type Faction struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`

	// Strategic disposition.
	Aggression     float64 `json:"aggression" yaml:"aggression"`           // 0 passive .. 1 relentless
	DefensiveBonus float64 `json:"defensive_bonus" yaml:"defensive_bonus"` // >= 1; dampens perceived threat
	EconomicFocus  float64 `json:"economic_focus" yaml:"economic_focus"`   // 0..1; weights resource territories
	TechFocus      float64 `json:"tech_focus" yaml:"tech_focus"`           // 0..1; weights strategic territories

	// Extraction tunables.
	LootMultiplier       float64 `json:"loot_multiplier" yaml:"loot_multiplier"`
	ExtractionEfficiency float64 `json:"extraction_efficiency" yaml:"extraction_efficiency"` // multiplier on extraction time, ~0.85..1.15
	InfluenceMultiplier  float64 `json:"influence_multiplier" yaml:"influence_multiplier"`   // scales territorial gain from extraction

	// AI expansion gate: aggression above this emits opportunistic pushes.
	ExpansionThreshold float64 `json:"expansion_threshold" yaml:"expansion_threshold"`
}

// Kind categorizes a faction's overall character.
type Kind uint8

const (
	KindMilitant   Kind = iota // Shock assaults, holds ground hard
	KindCorporate              // Disciplined, defense and tech focused
	KindMercantile             // Extraction economy, avoids long sieges
	KindScavenger              // Opportunistic raids on contested ground
)

// KindName returns a human-readable name for a faction kind.
func KindName(k Kind) string {
	switch k {
	case KindMilitant:
		return "militant"
	case KindCorporate:
		return "corporate"
	case KindMercantile:
		return "mercantile"
	case KindScavenger:
		return "scavenger"
	default:
		return "unknown"
	}
}

// Seed creates the four initial factions for a fresh campaign.
func Seed() []*Faction {
	return []*Faction{
		{
			ID:                   1,
			Name:                 "Red Meridian",
			Kind:                 KindMilitant,
			Aggression:           0.85,
			DefensiveBonus:       1.1,
			EconomicFocus:        0.3,
			TechFocus:            0.4,
			LootMultiplier:       0.95,
			ExtractionEfficiency: 1.05,
			InfluenceMultiplier:  1.15,
			ExpansionThreshold:   0.5,
		},
		{
			ID:                   2,
			Name:                 "Helion Directorate",
			Kind:                 KindCorporate,
			Aggression:           0.45,
			DefensiveBonus:       1.5,
			EconomicFocus:        0.6,
			TechFocus:            0.9,
			LootMultiplier:       1.0,
			ExtractionEfficiency: 0.9,
			InfluenceMultiplier:  1.0,
			ExpansionThreshold:   0.6,
		},
		{
			ID:                   3,
			Name:                 "Freeport Compact",
			Kind:                 KindMercantile,
			Aggression:           0.35,
			DefensiveBonus:       1.2,
			EconomicFocus:        0.95,
			TechFocus:            0.5,
			LootMultiplier:       1.25,
			ExtractionEfficiency: 0.85,
			InfluenceMultiplier:  0.9,
			ExpansionThreshold:   0.55,
		},
		{
			ID:                   4,
			Name:                 "Ash Veil",
			Kind:                 KindScavenger,
			Aggression:           0.7,
			DefensiveBonus:       0.9,
			EconomicFocus:        0.5,
			TechFocus:            0.25,
			LootMultiplier:       1.1,
			ExtractionEfficiency: 1.1,
			InfluenceMultiplier:  1.05,
			ExpansionThreshold:   0.45,
		},
	}
}

// Index builds an ID lookup map from a faction list.
func Index(factions []*Faction) map[ID]*Faction {
	idx := make(map[ID]*Faction, len(factions))
	for _, f := range factions {
		idx[f.ID] = f
	}
	return idx
}
