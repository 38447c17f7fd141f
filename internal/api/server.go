// Package api provides the HTTP API for observing and steering the
// territorial engine. GET endpoints are public (read-only observation);
// POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/warfront/internal/broadcast"
	"github.com/talgya/warfront/internal/engine"
	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/persistence"
	"github.com/talgya/warfront/internal/territory"
)

// Server serves the engine state over HTTP.
type Server struct {
	Game     *engine.Game
	Sched    *engine.Scheduler
	DB       *persistence.DB
	Hub      *broadcast.Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only — anyone can watch the campaign).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/territories", s.handleTerritories)
	mux.HandleFunc("/api/v1/territory/", s.handleTerritoryDetail)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/sieges", s.handleSieges)
	mux.HandleFunc("/api/v1/extractions", s.handleExtractions)
	mux.HandleFunc("/api/v1/updates", s.handleUpdates)

	// Live event stream.
	mux.HandleFunc("/ws", s.Hub.ServeWS)

	// Prometheus scrape endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/influence", s.adminOnly(s.handleInfluence))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no WARFRONT_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	territories := s.Game.Territories.Territories()
	contested := 0
	for _, t := range territories {
		if t.Contested {
			contested++
		}
	}

	writeJSON(w, map[string]any{
		"name":        "Warfront",
		"tick":        s.Sched.Tick,
		"speed":       s.Sched.Speed,
		"running":     s.Sched.Running,
		"territories": len(territories),
		"contested":   contested,
		"factions":    len(s.Game.Tunables.Factions),
		"sieges":      len(s.Game.Sieges.Snapshot()),
		"extractions": len(s.Game.Points),
		"subscribers": s.Hub.ClientCount(),
	})
}

func (s *Server) handleTerritories(w http.ResponseWriter, r *http.Request) {
	type summary struct {
		ID         int                `json:"id"`
		Type       string             `json:"type"`
		Name       string             `json:"name"`
		ParentID   int                `json:"parent_id,omitempty"`
		Dominant   faction.ID         `json:"dominant"`
		Contested  bool               `json:"contested"`
		Influences map[faction.ID]int `json:"influences"`
	}

	territories := s.Game.Territories.Territories()
	sort.Slice(territories, func(i, j int) bool {
		if territories[i].Type != territories[j].Type {
			return territories[i].Type < territories[j].Type
		}
		return territories[i].ID < territories[j].ID
	})

	out := make([]summary, 0, len(territories))
	for _, t := range territories {
		out = append(out, summary{
			ID:         t.ID,
			Type:       t.Type.String(),
			Name:       t.Name,
			ParentID:   t.ParentID,
			Dominant:   t.Dominant,
			Contested:  t.Contested,
			Influences: t.Influences,
		})
	}

	writeJSON(w, map[string]any{"territories": out})
}

// handleTerritoryDetail serves GET /api/v1/territory/:type/:id.
// Append ?children=1 to include direct children.
func (s *Server) handleTerritoryDetail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/territory/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/territory/:type/:id", http.StatusBadRequest)
		return
	}

	typ, ok := territory.TypeFromString(parts[0])
	if !ok {
		http.Error(w, "unknown territory type", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		http.Error(w, "invalid territory id", http.StatusBadRequest)
		return
	}

	t, ok := s.Game.Territories.Lookup(id, typ)
	if !ok {
		http.Error(w, "territory not found", http.StatusNotFound)
		return
	}

	resp := map[string]any{"territory": t}
	if r.URL.Query().Get("children") == "1" {
		resp["children"] = s.Game.Territories.GetChildTerritories(id)
	}
	if view, ok := s.Game.Sieges.ViewOf(t.Key()); ok {
		resp["siege"] = view
	}
	writeJSON(w, resp)
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"factions": s.Game.Tunables.Factions})
}

func (s *Server) handleSieges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sieges": s.Game.Sieges.Snapshot()})
}

func (s *Server) handleExtractions(w http.ResponseWriter, r *http.Request) {
	views := make([]any, 0, len(s.Game.Points))
	for _, p := range s.Game.Points {
		views = append(views, p.Snapshot())
	}
	writeJSON(w, map[string]any{"extractions": views})
}

// handleUpdates returns recent influence mutations, newest first. In-memory
// history covers the hot window; ?limit beyond it falls back to the database.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	updates := s.Game.Territories.History(limit)
	if len(updates) < limit && s.DB != nil {
		if persisted, err := s.DB.RecentUpdates(limit); err == nil && len(persisted) > len(updates) {
			updates = persisted
		}
	}

	writeJSON(w, map[string]any{"updates": updates})
}

// handleInfluence applies an admin influence mutation through the same
// authority path as players and AI.
func (s *Server) handleInfluence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TerritoryID   int    `json:"territory_id"`
		TerritoryType string `json:"territory_type"`
		FactionID     int    `json:"faction_id"`
		Delta         int    `json:"delta"`
		Cause         string `json:"cause"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	typ, ok := territory.TypeFromString(req.TerritoryType)
	if !ok {
		http.Error(w, "unknown territory type", http.StatusBadRequest)
		return
	}
	if req.Cause == "" {
		req.Cause = "admin"
	}

	accepted := s.Game.Territories.UpdateInfluence(req.TerritoryID, typ, faction.ID(req.FactionID), req.Delta, req.Cause)
	if !accepted {
		http.Error(w, "update rejected", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, map[string]any{
		"accepted": true,
		"state":    s.Game.Territories.GetState(req.TerritoryID, typ),
	})
}

// handleSpeed adjusts the scheduler speed (0 pauses the campaign).
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 10 {
		http.Error(w, "speed must be 0-10", http.StatusBadRequest)
		return
	}

	s.Sched.Speed = req.Speed
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}
