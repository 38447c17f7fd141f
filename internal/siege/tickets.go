package siege

// Side distinguishes the two parties of a siege.
type Side uint8

const (
	Attacker Side = iota
	Defender
)

// String returns the lowercase side name.
func (s Side) String() string {
	if s == Attacker {
		return "attacker"
	}
	return "defender"
}

// Pool tracks each side's remaining capacity to contest a siege. Amounts
// are scaled by a per-side consumption rate before applying; consumption
// floors at zero unless negative tickets are explicitly allowed, and refills
// ceiling at the initial allocation.
type Pool struct {
	initial  float64
	tickets  [2]float64
	rate     [2]float64
	negative bool

	exhausted [2]bool

	onConsumed  func(side Side, actual float64)
	onExhausted func(side Side)
}

// NewPool creates a pool with both sides at the initial allocation and
// consumption rates of 1.0.
func NewPool(initial float64, allowNegative bool) *Pool {
	return &Pool{
		initial:  initial,
		tickets:  [2]float64{initial, initial},
		rate:     [2]float64{1, 1},
		negative: allowNegative,
	}
}

// SetRate sets a side's consumption-rate multiplier.
func (p *Pool) SetRate(side Side, rate float64) { p.rate[side] = rate }

// OnConsumed registers the callback fired with the actual amount removed —
// not the requested amount, when clamping occurred.
func (p *Pool) OnConsumed(fn func(side Side, actual float64)) { p.onConsumed = fn }

// OnExhausted registers the callback fired exactly once per transition from
// above zero to zero or below. Refilling a side back above zero re-arms it.
func (p *Pool) OnExhausted(fn func(side Side)) { p.onExhausted = fn }

// Remaining returns a side's current ticket count.
func (p *Pool) Remaining(side Side) float64 { return p.tickets[side] }

// Exhausted reports whether a side has hit zero and not been refilled.
func (p *Pool) Exhausted(side Side) bool { return p.exhausted[side] }

// Consume removes amount (scaled by the side's rate) and returns the amount
// actually removed after clamping.
func (p *Pool) Consume(side Side, amount float64) float64 {
	cur := p.tickets[side]
	next := cur - amount*p.rate[side]
	if !p.negative && next < 0 {
		next = 0
	}
	actual := cur - next
	if actual == 0 {
		return 0
	}
	p.tickets[side] = next

	if p.onConsumed != nil {
		p.onConsumed(side, actual)
	}
	if cur > 0 && next <= 0 && !p.exhausted[side] {
		p.exhausted[side] = true
		if p.onExhausted != nil {
			p.onExhausted(side)
		}
	}
	return actual
}

// Refill adds amount (scaled by the side's rate), capped at the initial
// allocation. Returns the amount actually added.
func (p *Pool) Refill(side Side, amount float64) float64 {
	cur := p.tickets[side]
	next := cur + amount*p.rate[side]
	if next > p.initial {
		next = p.initial
	}
	actual := next - cur
	if actual == 0 {
		return 0
	}
	p.tickets[side] = next
	if next > 0 {
		p.exhausted[side] = false
	}
	return actual
}
