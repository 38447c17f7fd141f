package siege

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMeterStartsNeutral(t *testing.T) {
	m := NewMeter(0, nil)
	if m.Value() != Neutral {
		t.Fatalf("value = %v, want %v", m.Value(), Neutral)
	}
}

func TestMeterAddDeltaClamps(t *testing.T) {
	m := NewMeter(0, nil)
	m.AddDelta(2.0)
	if m.Value() != 1.0 {
		t.Fatalf("value = %v, want clamped at 1", m.Value())
	}
	m.AddDelta(-5.0)
	if m.Value() != 0.0 {
		t.Fatalf("value = %v, want clamped at 0", m.Value())
	}
}

func TestMeterModifierScalesDeltas(t *testing.T) {
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := NewMeter(0, nil)
	m.SetClock(func() time.Time { return clock })

	m.ApplyModifier(2.0, time.Minute)
	m.AddDelta(0.1)
	if !almostEqual(m.Value(), 0.7) {
		t.Fatalf("value = %v, want 0.7 with 2x modifier", m.Value())
	}

	// Expired modifier resets to 1.0 on the next delta.
	clock = clock.Add(2 * time.Minute)
	m.AddDelta(0.1)
	if !almostEqual(m.Value(), 0.8) {
		t.Fatalf("value = %v, want 0.8 after expiry", m.Value())
	}
	if m.Modifier() != 1.0 {
		t.Fatalf("modifier = %v, want reset to 1.0", m.Modifier())
	}
}

func TestMeterModifierFloor(t *testing.T) {
	m := NewMeter(0, nil)
	m.ApplyModifier(0.0, time.Minute)
	if m.Modifier() != 0.1 {
		t.Fatalf("modifier = %v, want floored at 0.1", m.Modifier())
	}
}

func TestMeterDecayNeverOvershootsNeutral(t *testing.T) {
	m := NewMeter(0.3, nil)
	m.AddDelta(0.2) // 0.7

	m.Tick() // 0.7 - 0.3 would land at 0.4; must stop at 0.5
	if !almostEqual(m.Value(), Neutral) {
		t.Fatalf("value = %v, want exactly neutral", m.Value())
	}
	m.Tick()
	if !almostEqual(m.Value(), Neutral) {
		t.Fatalf("decay at neutral must be a no-op, got %v", m.Value())
	}

	m.AddDelta(-0.2) // 0.3 — decay pulls upward too
	m.Tick()
	if !almostEqual(m.Value(), Neutral) {
		t.Fatalf("value = %v, want neutral from below", m.Value())
	}
}

func TestMeterThresholdEdgeTriggered(t *testing.T) {
	m := NewMeter(0, []float64{0.75})

	type crossing struct {
		th     float64
		rising bool
	}
	var crossings []crossing
	m.OnThreshold(func(th float64, rising bool) {
		crossings = append(crossings, crossing{th, rising})
	})

	m.AddDelta(0.3)  // 0.8: rising
	m.AddDelta(0.05) // 0.85: still above, no event
	m.AddDelta(-0.2) // 0.65: falling
	m.AddDelta(0.2)  // 0.85: rising again

	want := []crossing{{0.75, true}, {0.75, false}, {0.75, true}}
	if len(crossings) != len(want) {
		t.Fatalf("crossings = %v, want %v", crossings, want)
	}
	for i := range want {
		if crossings[i] != want[i] {
			t.Fatalf("crossing %d = %v, want %v", i, crossings[i], want[i])
		}
	}
}

func TestMeterCompleteFiresOncePerExtreme(t *testing.T) {
	m := NewMeter(0, nil)

	var fired []float64
	m.OnComplete(func(v float64) { fired = append(fired, v) })

	m.AddDelta(1.0) // hit 1.0
	m.AddDelta(0.5) // still 1.0, no change, no refire
	if len(fired) != 1 || fired[0] != 1.0 {
		t.Fatalf("fired = %v, want [1]", fired)
	}

	m.AddDelta(-0.1) // leaves extreme, re-arms
	m.AddDelta(0.1)  // back to 1.0
	if len(fired) != 2 {
		t.Fatalf("fired = %v, want refire after re-arm", fired)
	}

	m.AddDelta(-1.0) // hit 0.0
	if len(fired) != 3 || fired[2] != 0.0 {
		t.Fatalf("fired = %v, want completion at 0", fired)
	}
}

func TestMeterCompleteFiresOnDirectSwing(t *testing.T) {
	m := NewMeter(0, nil)

	var fired []float64
	m.OnComplete(func(v float64) { fired = append(fired, v) })

	m.AddDelta(0.5)  // 1.0
	m.AddDelta(-1.0) // straight to 0.0 without leaving the extremes
	if len(fired) != 2 || fired[0] != 1.0 || fired[1] != 0.0 {
		t.Fatalf("fired = %v, want [1 0]", fired)
	}
}

func TestMeterOnChangeSkipsNoMove(t *testing.T) {
	m := NewMeter(0, nil)
	var calls int
	m.OnChange(func(old, new float64) { calls++ })

	m.AddDelta(0)
	if calls != 0 {
		t.Fatalf("no-op delta fired change callback")
	}
	m.AddDelta(0.1)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
