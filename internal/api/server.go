// Package api serves the world over HTTP.
// GET endpoints are public (read-only observation).
// Action endpoints validate request shape and delegate to the engine;
// game rules live there, never here. Admin endpoints require a bearer key.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/engine"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/persistence"
)

const maxSSEConns = 16

// Server serves the world state over HTTP.
type Server struct {
	Sim     *engine.Sim
	Sweeper *engine.Sweeper
	Store   *persistence.Store

	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	// CORSOrigins are the allowed frontend origins beyond localhost.
	CORSOrigins []string

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the full route table. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	actionLimiter := NewRateLimiter(10, 20)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only — anyone can watch the frontier).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/world", s.handleWorld)
	mux.HandleFunc("/api/v1/parcels/", s.handleParcelDetail)
	mux.HandleFunc("/api/v1/players/", s.handlePlayerRoutes(actionLimiter))
	mux.HandleFunc("/api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Mutating endpoints (POST, rate limited per IP).
	mux.HandleFunc("/api/v1/players/register", RateLimitMiddleware(actionLimiter, s.handleRegister))
	mux.HandleFunc("/api/v1/actions/", RateLimitMiddleware(actionLimiter, s.handleActions))

	// Admin endpoints (require bearer token).
	mux.HandleFunc("/api/v1/admin/sweep", s.adminOnly(s.handleAdminSweep))
	mux.HandleFunc("/api/v1/admin/snapshot", s.adminOnly(s.handleAdminSnapshot))
	mux.HandleFunc("/api/v1/admin/outbox", s.adminOnly(s.handleAdminOutbox))

	return s.corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("http api starting", "addr", addr, "admin_auth", s.AdminKey != "")

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("http server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
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

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "Forbidden", "admin endpoints disabled (no admin key set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type statusResponse struct {
		Name string `json:"name"`
		engine.Status
		SweepCount uint64    `json:"sweep_count"`
		LastSweep  time.Time `json:"last_sweep"`
	}

	resp := statusResponse{Name: "Frontier", Status: s.Sim.WorldStatus()}
	if s.Sweeper != nil {
		resp.SweepCount = s.Sweeper.SweepCount
		resp.LastSweep = s.Sweeper.LastSweep
	}
	writeJSON(w, resp)
}

// handleWorld returns the compact parcel list for the hex map renderer.
// Full parcel detail lives at /parcels/{id}.
func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	type parcelEntry struct {
		ID           string  `json:"id"`
		Q            int     `json:"q"`
		R            int     `json:"r"`
		Biome        string  `json:"biome"`
		Richness     int     `json:"richness"`
		OwnerID      string  `json:"owner_id,omitempty"`
		OwnerType    string  `json:"owner_type,omitempty"`
		DefenseLevel int     `json:"defense_level"`
		Price        float64 `json:"price,omitempty"`
		Contested    bool    `json:"contested,omitempty"`
	}

	parcels := s.Sim.WorldParcels()
	entries := make([]parcelEntry, 0, len(parcels))
	for _, p := range parcels {
		entries = append(entries, parcelEntry{
			ID:           p.ID,
			Q:            p.Coord.Q,
			R:            p.Coord.R,
			Biome:        p.Biome.String(),
			Richness:     p.Richness,
			OwnerID:      p.OwnerID,
			OwnerType:    string(p.OwnerType),
			DefenseLevel: p.DefenseLevel,
			Price:        p.PurchasePriceAlgo,
			Contested:    p.ActiveBattleID != "",
		})
	}

	writeJSON(w, map[string]any{
		"radius":  s.Sim.Grid.Radius,
		"parcels": entries,
	})
}

func (s *Server) handleParcelDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		writeError(w, http.StatusBadRequest, "InvalidParameters", "missing parcel id")
		return
	}

	p, err := s.Sim.GetParcel(parts[4])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, p)
}

// handlePlayerRoutes dispatches /players/{id}, /players/{id}/battles,
// and POST /players/{id}/bind-wallet.
func (s *Server) handlePlayerRoutes(limiter *RateLimiter) http.HandlerFunc {
	rateLimitedBind := RateLimitMiddleware(limiter, s.handleBindWallet)

	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 5 || parts[4] == "" {
			writeError(w, http.StatusBadRequest, "InvalidParameters", "missing player id")
			return
		}
		id := parts[4]

		if len(parts) >= 6 && parts[5] != "" {
			switch parts[5] {
			case "battles":
				writeJSON(w, s.Sim.PlayerBattles(id))
			case "bind-wallet":
				rateLimitedBind(w, r)
			default:
				writeError(w, http.StatusNotFound, "NotFound", "unknown player route")
			}
			return
		}

		p, err := s.Sim.GetPlayer(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, p)
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Leaderboard())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	writeJSON(w, s.Sim.RecentEvents(limit))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidParameters", "invalid json body")
		return
	}

	p, err := s.Sim.RegisterPlayer(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleBindWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidParameters", "invalid json body")
		return
	}

	s.apply(w, engine.BindWalletAction{ActorID: parts[4], Address: req.Address})
}

// handleActions decodes one action request and hands it to the engine.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/actions/")

	var act engine.Action
	var decodeErr error
	dec := json.NewDecoder(r.Body)

	switch name {
	case "mine":
		var a engine.MineAction
		decodeErr = dec.Decode(&a)
		act = a
	case "upgrade":
		var a engine.BuildAction
		decodeErr = dec.Decode(&a)
		act = a
	case "purchase":
		var a engine.PurchaseAction
		decodeErr = dec.Decode(&a)
		act = a
	case "collect":
		var a engine.CollectAction
		decodeErr = dec.Decode(&a)
		act = a
	case "claim":
		var a engine.ClaimFrontierAction
		decodeErr = dec.Decode(&a)
		act = a
	case "mint-avatar":
		var a engine.MintAvatarAction
		decodeErr = dec.Decode(&a)
		act = a
	case "switch-commander":
		var a engine.SwitchCommanderAction
		decodeErr = dec.Decode(&a)
		act = a
	case "deploy-drone":
		var a engine.DeployDroneAction
		decodeErr = dec.Decode(&a)
		act = a
	case "special-attack":
		var a engine.SpecialAttackAction
		decodeErr = dec.Decode(&a)
		act = a
	case "attack":
		var a engine.AttackAction
		decodeErr = dec.Decode(&a)
		act = a
	default:
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("unknown action %q", name))
		return
	}

	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "InvalidParameters", "invalid json body")
		return
	}
	s.apply(w, act)
}

// apply runs one action and writes either its result or the mapped
// domain error.
func (s *Server) apply(w http.ResponseWriter, a engine.Action) {
	res, err := s.Sim.Apply(a)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}
	if s.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "Internal", "sweeper not running")
		return
	}

	s.Sweeper.Sweep()
	writeJSON(w, map[string]any{
		"sweep_count": s.Sweeper.SweepCount,
		"last_sweep":  s.Sweeper.LastSweep,
	})
}

func (s *Server) handleAdminSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Internal", "database not available")
		return
	}

	snap := s.Sim.Snapshot()
	if err := s.Store.SaveWorldState(snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "snapshot failed")
		return
	}
	id, err := s.Store.SaveSnapshot(snap)
	if err != nil {
		slog.Error("snapshot archive failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "snapshot failed")
		return
	}

	writeJSON(w, map[string]any{
		"snapshot_id": id,
		"parcels":     len(snap.Parcels),
		"players":     len(snap.Players),
	})
}

func (s *Server) handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Internal", "database not available")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	entries, err := s.Store.OutboxEntries(limit)
	if err != nil {
		slog.Error("outbox query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "outbox query failed")
		return
	}
	writeJSON(w, entries)
}

// handleStream provides an SSE endpoint for live event streaming.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		writeError(w, http.StatusServiceUnavailable, "Internal", "too many stream connections")
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal", "streaming not supported")
		return
	}

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	// Catch-up backlog before the live feed.
	for _, e := range s.Sim.RecentEvents(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Debug("sse client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Debug("sse client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeError emits the structured error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// writeDomainError maps an engine error onto the wire taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	code := engine.ErrorCode(err)
	if code == "Internal" {
		slog.Error("internal action error", "error", err)
		writeError(w, http.StatusInternalServerError, code, "internal error")
		return
	}
	writeError(w, statusForCode(code), code, err.Error())
}

func statusForCode(code string) int {
	switch code {
	case "NotFound":
		return http.StatusNotFound
	case "NotOwned", "OnCooldown", "InvalidState":
		return http.StatusConflict
	case "InsufficientResources":
		return http.StatusPaymentRequired
	case "InvalidParameters":
		return http.StatusBadRequest
	case "LedgerUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
