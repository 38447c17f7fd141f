// Command warfront runs the territorial control and extraction engine.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/talgya/warfront/internal/api"
	"github.com/talgya/warfront/internal/broadcast"
	"github.com/talgya/warfront/internal/config"
	"github.com/talgya/warfront/internal/engine"
	"github.com/talgya/warfront/internal/persistence"
	"github.com/talgya/warfront/internal/territory"
	"github.com/talgya/warfront/internal/worldgen"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Warfront — territorial control engine")

	tun, err := config.LoadTunables(cfg.Tunables)
	if err != nil {
		slog.Error("failed to load tunables", "error", err, "path", cfg.Tunables)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Territory map (load saved state, or generate from seed) ──────
	// Generation is deterministic, so extraction sites can always be
	// derived from the seed even when territories come from the database.
	generated, sites := worldgen.Generate(cfg.Seed, tun.Factions, tun.ContestThreshold)

	var territories []*territory.Territory
	var startTick uint64

	if db.HasState() {
		slog.Info("found saved campaign, loading...")
		territories, err = db.LoadTerritories()
		if err != nil {
			slog.Error("failed to load territories", "error", err)
			os.Exit(1)
		}
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		slog.Info("campaign restored", "territories", len(territories), "tick", startTick)
	} else {
		slog.Info("no saved campaign, generating new map...", "seed", cfg.Seed)
		territories = generated
	}

	store := territory.NewStore()
	for _, t := range territories {
		store.Put(t)
	}

	mgr := territory.NewManager(store, tun.Factions, territory.WithThreshold(tun.ContestThreshold))
	defer mgr.Close()

	recorder := persistence.NewRecorder()
	mgr.Subscribe(recorder)

	hub := broadcast.NewHub()
	mgr.Subscribe(hub)

	// ── Engine ────────────────────────────────────────────────────────
	game := engine.NewGame(tun, mgr, sites)

	sched := engine.NewScheduler()
	sched.TickRateHz = cfg.TickRateHz
	sched.Tick = startTick

	sched.OnFrame = game.Frame
	sched.OnCacheRefresh = func(uint64) { mgr.RefreshCache() }
	sched.OnBonusRecompute = game.RecomputeBonuses
	sched.OnValidate = func(uint64) { mgr.ValidateCache() }
	sched.OnPersist = func(tick uint64) {
		db.Flush(mgr.Territories(), recorder.Drain())
		if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
			slog.Warn("failed to save tick metadata", "error", err)
		}
	}
	sched.OnTactical = func(uint64) { game.AI.EvaluateTactical() }
	sched.OnStrategic = func(uint64) { game.AI.EvaluateStrategic() }

	// Save on fresh generation only.
	if startTick == 0 && !db.HasState() {
		db.Flush(mgr.Territories(), nil)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("WARFRONT_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Game:     game,
		Sched:    sched,
		DB:       db,
		Hub:      hub,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		sched.Stop()
	}()

	fmt.Printf("\nWarfront is live: %d territories, %d extraction sites, %d factions.\n",
		store.Len(), len(sites), len(tun.Factions))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d\n", startTick)
	}
	fmt.Println("Starting engine... (Ctrl+C to stop)")

	sched.Run()

	// Final flush on shutdown. Wait for in-flight events so the recorder
	// has everything.
	slog.Info("final save...")
	mgr.Flush()
	db.Flush(mgr.Territories(), recorder.Drain())
	if err := db.SaveMeta("last_tick", strconv.FormatUint(sched.Tick, 10)); err != nil {
		slog.Warn("failed to save tick metadata", "error", err)
	}

	fmt.Println("Engine stopped. Campaign state saved.")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
