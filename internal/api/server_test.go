package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/engine"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	now := time.Now().UTC()
	grid := world.NewGrid(4)
	sim := engine.NewSim(grid, engine.WorldMeta{
		Seed: 42, Radius: 4, CreatedAt: now, LastAccrual: now,
	})
	srv := &Server{Sim: sim, AdminKey: "sekrit"}
	return srv, srv.Handler()
}

func addParcel(sim *engine.Sim, id string, q, r int, biome world.Biome, richness int, ownerID string) *world.Parcel {
	p := &world.Parcel{
		ID:              id,
		Coord:           world.HexCoord{Q: q, R: r},
		Biome:           biome,
		Richness:        richness,
		DefenseLevel:    1,
		StorageCapacity: world.BaseStorageCapacity,
	}
	if ownerID != "" {
		p.OwnerID = ownerID
		p.OwnerType = world.OwnerHuman
	}
	sim.Grid.Parcels[id] = p
	return p
}

func registerPlayer(t *testing.T, h http.Handler, name string) engine.Player {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q}`, name)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/players/register",
		strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", name, rec.Code, rec.Body.String())
	}
	var p engine.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode player: %v", err)
	}
	return p
}

func postJSON(h http.Handler, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope from %q: %v", rec.Body.String(), err)
	}
	return envelope.Error.Code
}

func TestStatusEndpoint(t *testing.T) {
	srv, h := newTestServer(t)
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomePlains, 80, "")
	addParcel(srv.Sim, "1,0", 1, 0, world.BiomeForest, 60, "someone")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		Name           string `json:"name"`
		Parcels        int    `json:"parcels"`
		ClaimedParcels int    `json:"claimed_parcels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.Name != "Frontier" || got.Parcels != 2 || got.ClaimedParcels != 1 {
		t.Fatalf("status = %+v", got)
	}
}

func TestWorldEndpoint(t *testing.T) {
	srv, h := newTestServer(t)
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomeVolcanic, 90, "owner-1")
	unclaimed := addParcel(srv.Sim, "1,-1", 1, -1, world.BiomePlains, 55, "")
	unclaimed.PurchasePriceAlgo = 2.5

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/world", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		Radius  int `json:"radius"`
		Parcels []struct {
			ID    string  `json:"id"`
			Biome string  `json:"biome"`
			Owner string  `json:"owner_id"`
			Price float64 `json:"price"`
		} `json:"parcels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode world: %v", err)
	}
	if got.Radius != 4 || len(got.Parcels) != 2 {
		t.Fatalf("world = radius %d, %d parcels", got.Radius, len(got.Parcels))
	}
	if got.Parcels[0].ID != "0,0" || got.Parcels[0].Biome != "volcanic" ||
		got.Parcels[0].Owner != "owner-1" {
		t.Fatalf("first parcel = %+v", got.Parcels[0])
	}
	if got.Parcels[1].Price != 2.5 {
		t.Fatalf("price = %v, want 2.5", got.Parcels[1].Price)
	}
}

func TestRegisterAndMineFlow(t *testing.T) {
	srv, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")
	if p.ID == "" || p.Name != "ada" || p.Iron == 0 {
		t.Fatalf("registered player = %+v", p)
	}

	addParcel(srv.Sim, "0,0", 0, 0, world.BiomePlains, 80, p.ID)
	srv.Sim.Players[p.ID].ParcelIDs = append(srv.Sim.Players[p.ID].ParcelIDs, "0,0")

	rec := postJSON(h, "/api/v1/actions/mine",
		map[string]string{"actor_id": p.ID, "parcel_id": "0,0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mine = %d, body %s", rec.Code, rec.Body.String())
	}

	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Yield == nil || res.Yield.Iron != 8 || res.Yield.Fuel != 4 || res.Yield.Crystal != 1 {
		t.Fatalf("yield = %+v", res.Yield)
	}
	if res.Parcel == nil || res.Parcel.Richness != 79 || res.Parcel.Iron != 8 {
		t.Fatalf("parcel = %+v", res.Parcel)
	}

	// Immediate second mine hits the cooldown.
	rec = postJSON(h, "/api/v1/actions/mine",
		map[string]string{"actor_id": p.ID, "parcel_id": "0,0"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cooldown mine = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "OnCooldown" {
		t.Fatalf("code = %s, want OnCooldown", code)
	}
}

func TestActionErrorMapping(t *testing.T) {
	srv, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomePlains, 80, p.ID)
	srv.Sim.Players[p.ID].ParcelIDs = append(srv.Sim.Players[p.ID].ParcelIDs, "0,0")
	addParcel(srv.Sim, "1,0", 1, 0, world.BiomeForest, 70, "ghost-rival")
	forSale := addParcel(srv.Sim, "2,0", 2, 0, world.BiomeDesert, 50, "")
	forSale.PurchasePriceAlgo = 2.5

	cases := []struct {
		name       string
		action     string
		payload    map[string]any
		wantStatus int
		wantCode   string
	}{
		{"missing parcel", "mine",
			map[string]any{"actor_id": p.ID, "parcel_id": "9,9"},
			http.StatusNotFound, "NotFound"},
		{"rival parcel", "mine",
			map[string]any{"actor_id": p.ID, "parcel_id": "1,0"},
			http.StatusConflict, "NotOwned"},
		{"unknown improvement", "upgrade",
			map[string]any{"actor_id": p.ID, "parcel_id": "0,0", "improvement": "moat"},
			http.StatusBadRequest, "InvalidParameters"},
		{"attack own parcel", "attack",
			map[string]any{"actor_id": p.ID, "parcel_id": "0,0", "troops": 1},
			http.StatusConflict, "InvalidState"},
		{"purchase without wallet", "purchase",
			map[string]any{"actor_id": p.ID, "parcel_id": "2,0"},
			http.StatusConflict, "InvalidState"},
		{"mint bogus tier", "mint-avatar",
			map[string]any{"actor_id": p.ID, "tier": 9},
			http.StatusBadRequest, "InvalidParameters"},
		{"unknown actor", "collect",
			map[string]any{"actor_id": "nobody"},
			http.StatusNotFound, "NotFound"},
	}

	for _, tc := range cases {
		rec := postJSON(h, "/api/v1/actions/"+tc.action, tc.payload)
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d (body %s)",
				tc.name, rec.Code, tc.wantStatus, rec.Body.String())
			continue
		}
		if code := errorCode(t, rec); code != tc.wantCode {
			t.Errorf("%s: code = %s, want %s", tc.name, code, tc.wantCode)
		}
	}
}

func TestInsufficientResourcesMapsTo402(t *testing.T) {
	srv, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomePlains, 80, p.ID)
	srv.Sim.Players[p.ID].ParcelIDs = append(srv.Sim.Players[p.ID].ParcelIDs, "0,0")
	srv.Sim.Players[p.ID].Iron = 0
	srv.Sim.Players[p.ID].Fuel = 0

	rec := postJSON(h, "/api/v1/actions/upgrade",
		map[string]string{"actor_id": p.ID, "parcel_id": "0,0", "improvement": "defense_turret"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402 (body %s)", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "InsufficientResources" {
		t.Fatalf("code = %s", code)
	}
}

func TestActionTransportErrors(t *testing.T) {
	_, h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/actions/mine",
		strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d, want 400", rec.Code)
	}

	rec = postJSON(h, "/api/v1/actions/teleport", map[string]string{"actor_id": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/actions/mine", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET action = %d, want 405", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, h := newTestServer(t)

	rec := postJSON(h, "/api/v1/players/register", map[string]string{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty name = %d, want 400", rec.Code)
	}

	registerPlayer(t, h, "ada")
	rec = postJSON(h, "/api/v1/players/register", map[string]string{"name": "ada"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate name = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "InvalidState" {
		t.Fatalf("code = %s, want InvalidState", code)
	}
}

func TestParcelAndPlayerEndpoints(t *testing.T) {
	srv, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomeMountains, 85, p.ID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parcels/0,0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("parcel detail = %d", rec.Code)
	}
	var parcel world.Parcel
	if err := json.Unmarshal(rec.Body.Bytes(), &parcel); err != nil {
		t.Fatalf("decode parcel: %v", err)
	}
	if parcel.ID != "0,0" || parcel.Richness != 85 {
		t.Fatalf("parcel = %+v", parcel)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/parcels/9,9", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing parcel = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/"+p.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("player detail = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing player = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/"+p.ID+"/battles", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("player battles = %d", rec.Code)
	}
	var battles []engine.Battle
	if err := json.Unmarshal(rec.Body.Bytes(), &battles); err != nil {
		t.Fatalf("decode battles: %v", err)
	}
	if len(battles) != 0 {
		t.Fatalf("battles = %+v, want none", battles)
	}
}

func TestBindWalletEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")

	rec := postJSON(h, "/api/v1/players/"+p.ID+"/bind-wallet",
		map[string]string{"address": "ADDR1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("bind wallet = %d, body %s", rec.Code, rec.Body.String())
	}

	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Player == nil || res.Player.WalletAddress != "ADDR1" || !res.Player.WelcomeBonusReceived {
		t.Fatalf("player after bind = %+v", res.Player)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	srv, h := newTestServer(t)
	p := registerPlayer(t, h, "ada")
	addParcel(srv.Sim, "0,0", 0, 0, world.BiomePlains, 80, p.ID)
	srv.Sim.Players[p.ID].ParcelIDs = append(srv.Sim.Players[p.ID].ParcelIDs, "0,0")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard = %d", rec.Code)
	}
	var rows []engine.LeaderboardRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "ada" || rows[0].Territories != 1 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestEventsEndpointLimit(t *testing.T) {
	_, h := newTestServer(t)
	registerPlayer(t, h, "ada")
	registerPlayer(t, h, "bea")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("events = %d", rec.Code)
	}
	var events []engine.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || !strings.Contains(events[0].Description, "bea") {
		t.Fatalf("events = %+v, want only the newest", events)
	}
}

func TestAdminAuth(t *testing.T) {
	srv, h := newTestServer(t)
	srv.Sweeper = engine.NewSweeper(srv.Sim, time.Minute)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no auth = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token = %d, body %s", rec.Code, rec.Body.String())
	}
	var got struct {
		SweepCount uint64 `json:"sweep_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode sweep response: %v", err)
	}
	if got.SweepCount != 1 {
		t.Fatalf("sweep count = %d, want 1", got.SweepCount)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.AdminKey = ""
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin = %d, want 403", rec.Code)
	}
}

func TestAdminEndpointsWithoutStore(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("snapshot without store = %d, want 503", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/outbox", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("outbox without store = %d, want 503", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q for unknown origin", got)
	}
}

func TestConfiguredCORSOrigin(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.CORSOrigins = []string{"https://frontier.example"}
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://frontier.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://frontier.example" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("different IP should have its own bucket")
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	rl := NewRateLimiter(0.0001, 1)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "10.1.1.1:5555"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if code := errorCode(t, rec); code != "RateLimited" {
		t.Fatalf("code = %s", code)
	}
}

func TestClientIPExtraction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4242"
	if got := clientIP(req); got != "192.168.1.5" {
		t.Fatalf("clientIP = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("forwarded clientIP = %q", got)
	}
}
