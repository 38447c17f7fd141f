// Package worldgen synthesizes the default territory map used when the
// store is empty on first boot: 8 regions, 3 districts each, 2 control
// points per district, with noise-derived strategic values and staggered
// faction footholds.
package worldgen

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/territory"
)

const (
	RegionCount        = 8
	DistrictsPerRegion = 3
	PointsPerDistrict  = 2
)

var regionNames = [RegionCount]string{
	"Karst Verge",
	"Halcyon Reach",
	"The Sprawl",
	"Ferroline",
	"Dust Quarter",
	"Meridian Gate",
	"Low Anchorage",
	"Cinder Basin",
}

// Site marks where an extraction point should be placed.
type Site struct {
	ID        int
	Name      string
	Territory territory.Key
}

// Generate builds the default map. Deterministic for a given seed: the same
// campaign seed always yields the same starting footholds.
func Generate(seed int64, factions []*faction.Faction, contestThreshold int) ([]*territory.Territory, []Site) {
	noise := opensimplex.New(seed)
	rng := rand.New(rand.NewSource(seed))

	var territories []*territory.Territory
	var sites []Site

	districtID := 100
	pointID := 1000
	siteID := 1

	for r := 0; r < RegionCount; r++ {
		regionID := r + 1
		home := factions[r%len(factions)]
		rival := factions[(r+1)%len(factions)]

		sv := strategicValue(noise, float64(r), 0)
		region := &territory.Territory{
			ID:             regionID,
			Type:           territory.Region,
			Name:           regionNames[r],
			StrategicValue: sv,
			Influences: map[faction.ID]int{
				home.ID:  55 + rng.Intn(20),
				rival.ID: 15 + rng.Intn(15),
			},
		}
		// Frontier regions start disputed.
		if noise.Eval2(float64(r)*1.7, 3.3) > 0.35 {
			region.Influences[rival.ID] = 40 + rng.Intn(15)
		}
		region.Recompute(contestThreshold)
		territories = append(territories, region)

		for d := 0; d < DistrictsPerRegion; d++ {
			districtID++
			district := &territory.Territory{
				ID:             districtID,
				Type:           territory.District,
				Name:           fmt.Sprintf("%s District %d", regionNames[r], d+1),
				ParentID:       regionID,
				StrategicValue: strategicValue(noise, float64(r), float64(d+1)),
				Influences: map[faction.ID]int{
					home.ID: 40 + rng.Intn(30),
				},
			}
			if rng.Float64() < 0.4 {
				district.Influences[rival.ID] = 25 + rng.Intn(25)
			}
			district.Recompute(contestThreshold)
			territories = append(territories, district)

			for p := 0; p < PointsPerDistrict; p++ {
				pointID++
				point := &territory.Territory{
					ID:             pointID,
					Type:           territory.ControlPoint,
					Name:           fmt.Sprintf("%s CP-%d%d", regionNames[r], d+1, p+1),
					ParentID:       districtID,
					StrategicValue: strategicValue(noise, float64(districtID), float64(p+1)),
					Influences: map[faction.ID]int{
						home.ID: 30 + rng.Intn(40),
					},
				}
				point.Recompute(contestThreshold)
				territories = append(territories, point)
			}

			// One extraction site per district, anchored to it.
			sites = append(sites, Site{
				ID:        siteID,
				Name:      fmt.Sprintf("%s Cache %d", regionNames[r], d+1),
				Territory: district.Key(),
			})
			siteID++
		}
	}

	return territories, sites
}

// strategicValue maps noise into (0.15, 0.85).
func strategicValue(noise opensimplex.Noise, x, y float64) float64 {
	return 0.5 + 0.35*noise.Eval2(x*0.9, y*1.3)
}
