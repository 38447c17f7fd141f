// Game ties the territorial systems together and runs them each frame.
package engine

import (
	"log/slog"
	"time"

	"github.com/talgya/warfront/internal/ai"
	"github.com/talgya/warfront/internal/config"
	"github.com/talgya/warfront/internal/extraction"
	"github.com/talgya/warfront/internal/siege"
	"github.com/talgya/warfront/internal/territory"
	"github.com/talgya/warfront/internal/trust"
	"github.com/talgya/warfront/internal/worldgen"
)

// Game holds the complete engine state and wires systems together.
type Game struct {
	Tunables    *config.Tunables
	Territories *territory.Manager
	Sieges      *siege.Director
	Points      []*extraction.Point
	AI          *ai.Manager
	Trust       *trust.Ledger
}

// NewGame assembles the engine around an already-seeded territorial
// authority. Sites place the extraction points.
func NewGame(tun *config.Tunables, mgr *territory.Manager, sites []worldgen.Site) *Game {
	g := &Game{
		Tunables:    tun,
		Territories: mgr,
		Trust:       trust.NewLedger(),
	}

	g.Sieges = siege.NewDirector(tun.SiegeConfig(), mgr)
	mgr.Subscribe(g.Sieges)

	extractCfg := tun.ExtractionConfig()
	for _, site := range sites {
		p := extraction.NewPoint(site.ID, site.Name, site.Territory, extractCfg, mgr, tun.Factions,
			extraction.WithTrust(g.Trust),
			extraction.WithEventSink(logExtractionEvent),
		)
		g.Points = append(g.Points, p)
	}

	g.AI = ai.NewManager(mgr, tun.Factions, tun.ContestThreshold)
	mgr.Subscribe(g.AI)

	return g
}

// Frame advances everything that runs every tick: extraction progress,
// siege meters, and the AI decision queues.
func (g *Game) Frame(tick uint64, dt time.Duration) {
	g.Sieges.Tick()
	for _, p := range g.Points {
		if g.Sieges.IsLocked(p.Territory) {
			p.SetUnavailable(true)
		} else {
			p.SetUnavailable(false)
		}
		p.Tick(dt)
	}
	g.AI.Tick(dt)
}

// RecomputeBonuses refreshes every extraction point's cached territorial
// modifiers. Runs on the bonus cadence.
func (g *Game) RecomputeBonuses(tick uint64) {
	for _, p := range g.Points {
		p.RecomputeBonuses()
	}
}

// Point returns the extraction point with the given ID, or nil.
func (g *Game) Point(id int) *extraction.Point {
	for _, p := range g.Points {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func logExtractionEvent(ev extraction.Event) {
	switch ev.Kind {
	case extraction.EventCompleted:
		slog.Info("extraction completed",
			"point", ev.PointID,
			"actor", ev.Actor.ID,
			"faction", ev.Actor.Faction,
			"influence", ev.Influence,
			"loot", ev.Loot,
		)
	case extraction.EventCanceled:
		slog.Info("extraction canceled",
			"point", ev.PointID,
			"actor", ev.Actor.ID,
			"reason", ev.Reason,
			"progress", ev.Progress,
		)
	case extraction.EventFailed:
		slog.Info("extraction failed",
			"point", ev.PointID,
			"actor", ev.Actor.ID,
		)
	}
}
