package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talgya/warfront/internal/broadcast"
	"github.com/talgya/warfront/internal/config"
	"github.com/talgya/warfront/internal/engine"
	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/territory"
	"github.com/talgya/warfront/internal/worldgen"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tun := config.DefaultTunables()

	store := territory.NewStore()
	store.Put(&territory.Territory{
		ID:         1,
		Type:       territory.Region,
		Name:       "Karst Verge",
		Influences: map[faction.ID]int{1: 60},
		Dominant:   1,
	})
	store.Put(&territory.Territory{
		ID:         101,
		Type:       territory.District,
		Name:       "Karst Verge District 1",
		ParentID:   1,
		Influences: map[faction.ID]int{1: 50},
		Dominant:   1,
	})
	mgr := territory.NewManager(store, tun.Factions, territory.WithThreshold(tun.ContestThreshold))
	t.Cleanup(mgr.Close)

	game := engine.NewGame(tun, mgr, []worldgen.Site{{
		ID: 1, Name: "Cache", Territory: territory.Key{ID: 101, Type: territory.District},
	}})

	return &Server{
		Game:     game,
		Sched:    engine.NewScheduler(),
		Hub:      broadcast.NewHub(),
		Port:     0,
		AdminKey: "secret",
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["territories"] != float64(2) {
		t.Fatalf("territories = %v, want 2", body["territories"])
	}
	if body["factions"] != float64(4) {
		t.Fatalf("factions = %v, want 4", body["factions"])
	}
}

func TestHandleTerritoryDetail(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.handleTerritoryDetail(w, httptest.NewRequest(http.MethodGet, "/api/v1/territory/region/1?children=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Territory territory.Territory   `json:"territory"`
		Children  []territory.Territory `json:"children"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Territory.Name != "Karst Verge" {
		t.Fatalf("name = %q, want Karst Verge", body.Territory.Name)
	}
	if len(body.Children) != 1 || body.Children[0].ID != 101 {
		t.Fatalf("children = %+v, want the one district", body.Children)
	}
}

func TestHandleTerritoryDetailErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/territory/region", http.StatusBadRequest},
		{"/api/v1/territory/castle/1", http.StatusBadRequest},
		{"/api/v1/territory/region/abc", http.StatusBadRequest},
		{"/api/v1/territory/region/999", http.StatusNotFound},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		s.handleTerritoryDetail(w, httptest.NewRequest(http.MethodGet, c.path, nil))
		if w.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.path, w.Code, c.want)
		}
	}
}

func TestHandleInfluenceRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	handler := s.adminOnly(s.handleInfluence)

	body := `{"territory_id":1,"territory_type":"region","faction_id":2,"delta":10}`

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/api/v1/influence", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/influence", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with token: %s", w.Code, w.Body.String())
	}

	if got := s.Game.Territories.GetFactionInfluence(1, territory.Region, 2); got != 10 {
		t.Fatalf("influence = %d, want 10 applied", got)
	}
}

func TestHandleInfluenceRejectsBadTarget(t *testing.T) {
	s := newTestServer(t)

	body := `{"territory_id":0,"territory_type":"region","faction_id":2,"delta":10}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/influence", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer secret")

	w := httptest.NewRecorder()
	s.adminOnly(s.handleInfluence)(w, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for rejected update", w.Code)
	}
}

func TestHandleSpeedValidates(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":50}`))
	r.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.adminOnly(s.handleSpeed)(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for out-of-range speed", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":0}`))
	r.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	s.adminOnly(s.handleSpeed)(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for pause", w.Code)
	}
	if s.Sched.Speed != 0 {
		t.Fatalf("speed = %v, want 0", s.Sched.Speed)
	}
}
