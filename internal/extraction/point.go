// Package extraction implements contested extraction points: zone objects
// that arbitrate risk/reward extraction attempts against the current
// territorial situation. One actor extracts at a time; presence, ownership,
// and contestation shape the time, odds, and payout of every attempt.
package extraction

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/metrics"
	"github.com/talgya/warfront/internal/territory"
)

// State is the extraction point lifecycle state.
type State uint8

const (
	Available   State = iota // Idle, accepting attempts
	InProgress               // One actor extracting
	Contested                // Extracting while a second faction is in the zone
	Unavailable              // Disabled (zone locked by siege)
	Compromised              // Last attempt failed; recovering
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case InProgress:
		return "in_progress"
	case Contested:
		return "contested"
	case Unavailable:
		return "unavailable"
	case Compromised:
		return "compromised"
	default:
		return "unknown"
	}
}

// Start/attempt rejections.
var (
	ErrUnavailable = errors.New("extraction point not available")
	ErrBusy        = errors.New("extraction already in progress")
	ErrNotPresent  = errors.New("actor not inside extraction radius")
	ErrCrowded     = errors.New("extraction radius at capacity")
)

// Actor is a player or AI operative interacting with the point.
type Actor struct {
	ID      string     `json:"id"`
	Faction faction.ID `json:"faction"`
}

// Authority is the territorial read/write surface the point needs. The
// territory Manager satisfies it; extraction rewards flow back through the
// same UpdateInfluence path as every other influence change.
type Authority interface {
	CachedState(territoryID int, territoryType territory.Type) territory.Territory
	UpdateInfluence(territoryID int, territoryType territory.Type, factionID faction.ID, delta int, cause string) bool
}

// TrustSource adjusts extraction behavior between specific actors. Optional.
type TrustSource interface {
	GetTrustModifier(actorA, actorB string, territoryID int) float64
	RecordBetrayal(actorA, actorB string, territoryID int)
	RecordAssistance(actorA, actorB string, territoryID int)
}

// Config carries the per-point tunables.
type Config struct {
	BaseTime time.Duration
	MinTime  time.Duration

	BaseSuccessRate float64
	MinSuccessRate  float64
	MaxSuccessRate  float64

	ControlTimeBonus     time.Duration
	EnemyTimePenaltyMult float64
	ContestFlatPenalty   time.Duration
	VulnerabilityWindow  time.Duration

	ControlSuccessBonus      float64
	EnemySuccessPenalty      float64
	ContestPenaltyPerFaction float64

	BaseInfluenceGain int
	EnemyGainBoost    float64

	BaseLootMultiplier float64
	MinLootMultiplier  float64
	MaxLootMultiplier  float64

	MaxSimultaneous int
}

// DefaultConfig returns the reference extraction tunables.
func DefaultConfig() Config {
	return Config{
		BaseTime:                 30 * time.Second,
		MinTime:                  3 * time.Second,
		BaseSuccessRate:          0.8,
		MinSuccessRate:           0.05,
		MaxSuccessRate:           0.98,
		ControlTimeBonus:         8 * time.Second,
		EnemyTimePenaltyMult:     1.4,
		ContestFlatPenalty:       6 * time.Second,
		VulnerabilityWindow:      4 * time.Second,
		ControlSuccessBonus:      0.1,
		EnemySuccessPenalty:      0.15,
		ContestPenaltyPerFaction: 0.08,
		BaseInfluenceGain:        5,
		EnemyGainBoost:           1.5,
		BaseLootMultiplier:       1.0,
		MinLootMultiplier:        0.5,
		MaxLootMultiplier:        3.0,
		MaxSimultaneous:          4,
	}
}

// EventKind classifies extraction events.
type EventKind uint8

const (
	EventStarted EventKind = iota
	EventContested
	EventResumed
	EventCanceled
	EventCompleted
	EventFailed
)

// Event is emitted on every extraction state transition of interest.
type Event struct {
	Kind      EventKind
	PointID   int
	SessionID string
	Actor     Actor
	Reason    string
	Progress  float64
	Influence int
	Loot      float64
}

type session struct {
	id       string
	actor    Actor
	duration time.Duration
	started  time.Time
}

// Point is a stateful extraction zone. All methods are safe for concurrent
// use; internally every mutation serializes on the point's lock.
type Point struct {
	mu sync.Mutex

	ID        int
	Name      string
	Territory territory.Key

	cfg       Config
	authority Authority
	trust     TrustSource
	factions  map[faction.ID]*faction.Faction

	state    State
	current  *session
	progress float64

	inExtract map[string]Actor // inside the inner extraction radius
	inContest map[string]Actor // inside the larger contestation radius

	// Cached territorial bonuses, recomputed every few seconds.
	owning        faction.ID
	influenceMult float64

	rng     *rand.Rand
	now     func() time.Time
	onEvent func(Event)
}

// PointOption configures a Point.
type PointOption func(*Point)

// WithTrust attaches the optional trust collaborator.
func WithTrust(t TrustSource) PointOption {
	return func(p *Point) { p.trust = t }
}

// WithRand overrides the success-roll source. Tests use this.
func WithRand(r *rand.Rand) PointOption {
	return func(p *Point) { p.rng = r }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) PointOption {
	return func(p *Point) { p.now = now }
}

// WithEventSink registers the event callback.
func WithEventSink(fn func(Event)) PointOption {
	return func(p *Point) { p.onEvent = fn }
}

// NewPoint creates an available extraction point inside the given territory.
func NewPoint(id int, name string, key territory.Key, cfg Config, authority Authority, factions []*faction.Faction, opts ...PointOption) *Point {
	p := &Point{
		ID:            id,
		Name:          name,
		Territory:     key,
		cfg:           cfg,
		authority:     authority,
		factions:      faction.Index(factions),
		state:         Available,
		inExtract:     make(map[string]Actor),
		inContest:     make(map[string]Actor),
		influenceMult: 1.0,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RecomputeBonuses()
	return p
}

// State returns the current lifecycle state.
func (p *Point) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Progress returns extraction progress in [0, 1].
func (p *Point) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// OwningFaction returns the cached controlling faction of the zone.
func (p *Point) OwningFaction() faction.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owning
}

// EnterContestArea records an actor inside the contestation radius.
func (p *Point) EnterContestArea(a Actor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inContest[a.ID] = a
}

// LeaveContestArea removes an actor from the zone entirely. If the actor
// was mid-extraction the attempt is canceled, not paused.
func (p *Point) LeaveContestArea(actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inContest, actorID)
	p.leaveExtractLocked(actorID)
}

// EnterExtractArea records an actor inside the inner extraction radius
// (which implies the contestation radius).
func (p *Point) EnterExtractArea(a Actor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inContest[a.ID] = a
	p.inExtract[a.ID] = a
}

// LeaveExtractArea removes an actor from the inner radius only. A departing
// extracting actor loses the attempt immediately.
func (p *Point) LeaveExtractArea(actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaveExtractLocked(actorID)
}

func (p *Point) leaveExtractLocked(actorID string) {
	if _, ok := p.inExtract[actorID]; !ok {
		return
	}
	delete(p.inExtract, actorID)
	if p.current != nil && p.current.actor.ID == actorID {
		p.cancelLocked("left zone")
	}
}

// CanExtract reports whether the actor may start an extraction right now.
func (p *Point) CanExtract(a Actor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canExtractLocked(a)
}

func (p *Point) canExtractLocked(a Actor) error {
	switch p.state {
	case Available:
	case InProgress, Contested:
		return ErrBusy
	default:
		return ErrUnavailable
	}
	if _, ok := p.inExtract[a.ID]; !ok {
		return ErrNotPresent
	}
	if len(p.inExtract) >= p.cfg.MaxSimultaneous {
		return ErrCrowded
	}
	return nil
}

// StartExtraction begins an attempt for the actor. Returns the session ID.
func (p *Point) StartExtraction(a Actor) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.canExtractLocked(a); err != nil {
		return "", err
	}

	s := &session{
		id:       uuid.NewString(),
		actor:    a,
		duration: p.extractionTimeLocked(a),
		started:  p.now(),
	}
	p.current = s
	p.progress = 0
	p.state = InProgress

	metrics.ExtractionsStarted.Inc()
	p.emit(Event{Kind: EventStarted, PointID: p.ID, SessionID: s.id, Actor: a})
	return s.id, nil
}

// CancelExtraction aborts the current attempt for an external reason
// (timeout, disconnect). Reserved state releases immediately.
func (p *Point) CancelExtraction(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked(reason)
}

func (p *Point) cancelLocked(reason string) {
	if p.current == nil {
		return
	}
	ev := Event{
		Kind:      EventCanceled,
		PointID:   p.ID,
		SessionID: p.current.id,
		Actor:     p.current.actor,
		Reason:    reason,
		Progress:  p.progress,
	}
	p.current = nil
	p.progress = 0
	p.state = Available
	metrics.ExtractionsCanceled.Inc()
	p.emit(ev)
}

// SetUnavailable disables or re-enables the point. The engine flips this
// while the surrounding territory is siege-locked.
func (p *Point) SetUnavailable(unavailable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if unavailable {
		if p.current != nil {
			p.cancelLocked("zone locked")
		}
		p.state = Unavailable
		return
	}
	if p.state == Unavailable {
		p.state = Available
	}
}

// Tick advances the active extraction by dt, handling contest transitions
// and completion. The scheduler calls this every frame.
func (p *Point) Tick(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Compromised:
		// Recover once the zone quiets down.
		if len(p.contestFactionsLocked()) < 2 {
			p.state = Available
		}
		return
	case InProgress, Contested:
	default:
		return
	}

	s := p.current
	if s == nil {
		p.state = Available
		return
	}
	if _, present := p.inExtract[s.actor.ID]; !present {
		p.cancelLocked("left zone")
		return
	}

	// A second faction inside the contest radius interrupts clean progress;
	// the attempt resumes (not restarts) when the contest clears.
	contesting := len(p.contestFactionsLocked()) >= 2
	if contesting && p.state == InProgress {
		p.state = Contested
		p.emit(Event{Kind: EventContested, PointID: p.ID, SessionID: s.id, Actor: s.actor, Progress: p.progress})
	} else if !contesting && p.state == Contested {
		p.state = InProgress
		p.emit(Event{Kind: EventResumed, PointID: p.ID, SessionID: s.id, Actor: s.actor, Progress: p.progress})
	}

	if s.duration <= 0 {
		s.duration = p.cfg.MinTime
	}
	p.progress += float64(dt) / float64(s.duration)
	if p.progress >= 1.0 {
		p.progress = 1.0
		p.completeLocked()
	}
}

func (p *Point) completeLocked() {
	s := p.current
	wasContested := p.state == Contested
	rate := p.successRateLocked(s.actor)
	metrics.ExtractionsCompleted.Inc()

	if p.rng.Float64() <= rate {
		gain := p.influenceGainLocked(s.actor)
		loot := p.lootMultiplierLocked(s.actor)
		p.authority.UpdateInfluence(p.Territory.ID, p.Territory.Type, s.actor.Faction, gain, "extraction")
		if p.trust != nil {
			for id, other := range p.inContest {
				if id != s.actor.ID && other.Faction == s.actor.Faction {
					p.trust.RecordAssistance(s.actor.ID, id, p.Territory.ID)
				}
			}
		}
		p.emit(Event{
			Kind:      EventCompleted,
			PointID:   p.ID,
			SessionID: s.id,
			Actor:     s.actor,
			Influence: gain,
			Loot:      loot,
			Progress:  1.0,
		})
		p.current = nil
		p.progress = 0
		p.state = Available
		return
	}

	// Failed roll: the point is compromised until the zone quiets down.
	if p.trust != nil && wasContested {
		for id, other := range p.inContest {
			if id != s.actor.ID && other.Faction != s.actor.Faction {
				p.trust.RecordBetrayal(s.actor.ID, id, p.Territory.ID)
			}
		}
	}
	p.emit(Event{Kind: EventFailed, PointID: p.ID, SessionID: s.id, Actor: s.actor, Progress: 1.0})
	p.current = nil
	p.progress = 0
	p.state = Compromised
}

// RecomputeBonuses refreshes the cached ownership and influence multiplier
// from the territorial snapshot. The scheduler calls this every few seconds.
func (p *Point) RecomputeBonuses() {
	t := p.authority.CachedState(p.Territory.ID, p.Territory.Type)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.owning = t.Dominant
	if t.Dominant != faction.None {
		p.influenceMult = 0.5 + float64(t.Influences[t.Dominant])/100.0
	} else {
		p.influenceMult = 1.0
	}
}

// ExtractionTime computes how long an attempt by this actor would take.
func (p *Point) ExtractionTime(a Actor) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.extractionTimeLocked(a)
}

func (p *Point) extractionTimeLocked(a Actor) time.Duration {
	t := float64(p.cfg.BaseTime)

	if p.owning != faction.None {
		if a.Faction == p.owning {
			t -= float64(p.cfg.ControlTimeBonus)
		} else {
			t *= p.cfg.EnemyTimePenaltyMult
		}
	}
	if len(p.contestFactionsLocked()) >= 2 {
		t += float64(p.cfg.ContestFlatPenalty + p.cfg.VulnerabilityWindow)
	}
	if f, ok := p.factions[a.Faction]; ok && f.ExtractionEfficiency > 0 {
		t *= f.ExtractionEfficiency
	}
	if p.trust != nil {
		if mod := p.avgTrustLocked(a); mod > 0 {
			t /= mod
		}
	}

	d := time.Duration(t)
	if d < p.cfg.MinTime {
		d = p.cfg.MinTime
	}
	return d
}

// SuccessRate computes the completion odds for an attempt by this actor.
func (p *Point) SuccessRate(a Actor) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.successRateLocked(a)
}

func (p *Point) successRateLocked(a Actor) float64 {
	r := p.cfg.BaseSuccessRate

	if p.owning != faction.None {
		if a.Faction == p.owning {
			r += p.cfg.ControlSuccessBonus
		} else {
			r -= p.cfg.EnemySuccessPenalty
		}
	}
	if n := len(p.contestFactionsLocked()); n > 2 {
		r -= float64(n-2) * p.cfg.ContestPenaltyPerFaction
	}
	r *= p.influenceMult

	if r < p.cfg.MinSuccessRate {
		r = p.cfg.MinSuccessRate
	}
	if r > p.cfg.MaxSuccessRate {
		r = p.cfg.MaxSuccessRate
	}
	return r
}

// InfluenceGain computes the territorial influence a successful attempt
// yields. Extracting from enemy ground pays more — risk buys reward.
func (p *Point) InfluenceGain(a Actor) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.influenceGainLocked(a)
}

func (p *Point) influenceGainLocked(a Actor) int {
	g := float64(p.cfg.BaseInfluenceGain)

	if p.owning != faction.None && a.Faction != p.owning {
		g *= p.cfg.EnemyGainBoost
	}
	if f, ok := p.factions[a.Faction]; ok && f.InfluenceMultiplier > 0 {
		g *= f.InfluenceMultiplier
	}
	if n := len(p.contestFactionsLocked()); n > 2 {
		g *= 1.0 - 0.15*float64(n-2)
	}

	gain := int(g + 0.5)
	if gain < 1 {
		gain = 1
	}
	return gain
}

// LootMultiplier computes the payout scalar for a successful attempt.
func (p *Point) LootMultiplier(a Actor) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lootMultiplierLocked(a)
}

func (p *Point) lootMultiplierLocked(a Actor) float64 {
	l := p.cfg.BaseLootMultiplier

	if p.owning != faction.None {
		if a.Faction == p.owning {
			l += 0.2
		} else {
			l += 0.5
		}
	}
	if f, ok := p.factions[a.Faction]; ok && f.LootMultiplier > 0 {
		l *= f.LootMultiplier
	}
	if n := len(p.contestFactionsLocked()); n >= 2 {
		l += 0.15 * float64(n)
	}
	switch p.Territory.Type {
	case territory.Region:
		l *= 1.4
	case territory.District:
		l *= 1.2
	}

	if l < p.cfg.MinLootMultiplier {
		l = p.cfg.MinLootMultiplier
	}
	if l > p.cfg.MaxLootMultiplier {
		l = p.cfg.MaxLootMultiplier
	}
	return l
}

// View is a read snapshot of the point for the API.
type View struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Territory     territory.Key `json:"territory"`
	State         string        `json:"state"`
	OwningFaction faction.ID    `json:"owning_faction"`
	Progress      float64       `json:"progress"`
	CurrentActor  string        `json:"current_actor,omitempty"`
	InExtract     int           `json:"in_extract_radius"`
	InContest     int           `json:"in_contest_radius"`
}

// Snapshot returns a read view of the point.
func (p *Point) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := View{
		ID:            p.ID,
		Name:          p.Name,
		Territory:     p.Territory,
		State:         p.state.String(),
		OwningFaction: p.owning,
		Progress:      p.progress,
		InExtract:     len(p.inExtract),
		InContest:     len(p.inContest),
	}
	if p.current != nil {
		v.CurrentActor = p.current.actor.ID
	}
	return v
}

// contestFactionsLocked returns the distinct factions present in the
// contestation radius.
func (p *Point) contestFactionsLocked() []faction.ID {
	seen := make(map[faction.ID]bool, 4)
	var out []faction.ID
	for _, a := range p.inContest {
		if !seen[a.Faction] {
			seen[a.Faction] = true
			out = append(out, a.Faction)
		}
	}
	return out
}

// avgTrustLocked averages the trust modifier between the extractor and the
// other actors inside the extraction radius.
func (p *Point) avgTrustLocked(a Actor) float64 {
	sum := 0.0
	n := 0
	for id := range p.inExtract {
		if id == a.ID {
			continue
		}
		sum += p.trust.GetTrustModifier(a.ID, id, p.Territory.ID)
		n++
	}
	if n == 0 {
		return 1.0
	}
	return sum / float64(n)
}

func (p *Point) emit(ev Event) {
	if p.onEvent != nil {
		p.onEvent(ev)
	}
}
