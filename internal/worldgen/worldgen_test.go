package worldgen

import (
	"testing"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/territory"
)

func TestGenerateShape(t *testing.T) {
	territories, sites := Generate(42, faction.Seed(), territory.DefaultContestThreshold)

	var regions, districts, points int
	for _, tr := range territories {
		switch tr.Type {
		case territory.Region:
			regions++
			if tr.ParentID != 0 {
				t.Fatalf("region %d has parent %d, want none", tr.ID, tr.ParentID)
			}
		case territory.District:
			districts++
			if tr.ParentID < 1 || tr.ParentID > RegionCount {
				t.Fatalf("district %d parent %d outside region range", tr.ID, tr.ParentID)
			}
		case territory.ControlPoint:
			points++
		}
	}

	if regions != RegionCount {
		t.Fatalf("regions = %d, want %d", regions, RegionCount)
	}
	if districts != RegionCount*DistrictsPerRegion {
		t.Fatalf("districts = %d, want %d", districts, RegionCount*DistrictsPerRegion)
	}
	if points != RegionCount*DistrictsPerRegion*PointsPerDistrict {
		t.Fatalf("control points = %d, want %d", points, RegionCount*DistrictsPerRegion*PointsPerDistrict)
	}
	if len(sites) != RegionCount*DistrictsPerRegion {
		t.Fatalf("sites = %d, want one per district", len(sites))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := Generate(7, faction.Seed(), territory.DefaultContestThreshold)
	b, _ := Generate(7, faction.Seed(), territory.DefaultContestThreshold)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name || a[i].Dominant != b[i].Dominant {
			t.Fatalf("territory %d differs between runs", i)
		}
		if len(a[i].Influences) != len(b[i].Influences) {
			t.Fatalf("territory %d influence sets differ", i)
		}
		for f, v := range a[i].Influences {
			if b[i].Influences[f] != v {
				t.Fatalf("territory %d influence for %v differs", i, f)
			}
		}
	}
}

func TestGenerateDerivedStateConsistent(t *testing.T) {
	territories, _ := Generate(42, faction.Seed(), territory.DefaultContestThreshold)

	for _, tr := range territories {
		want := tr.Clone()
		want.Recompute(territory.DefaultContestThreshold)
		if tr.Dominant != want.Dominant || tr.Contested != want.Contested {
			t.Fatalf("territory %d derived state stale: %v/%v vs %v/%v",
				tr.ID, tr.Dominant, tr.Contested, want.Dominant, want.Contested)
		}
		if tr.StrategicValue <= 0 || tr.StrategicValue >= 1 {
			t.Fatalf("territory %d strategic value %v outside (0, 1)", tr.ID, tr.StrategicValue)
		}
	}

	// Sites anchor to districts that exist.
	byKey := make(map[territory.Key]bool, len(territories))
	for _, tr := range territories {
		byKey[tr.Key()] = true
	}
	_, sites := Generate(42, faction.Seed(), territory.DefaultContestThreshold)
	for _, s := range sites {
		if s.Territory.Type != territory.District {
			t.Fatalf("site %d anchored to %v, want district", s.ID, s.Territory.Type)
		}
		if !byKey[s.Territory] {
			t.Fatalf("site %d anchored to unknown territory %v", s.ID, s.Territory)
		}
	}
}
