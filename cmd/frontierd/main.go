// Command frontierd runs the Frontier world server: persistent hex map,
// token economy, battles, AI factions, and the external ledger bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/api"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/config"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/engine"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/ledger"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/persistence"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	// ── Database ──────────────────────────────────────────────────────
	store, err := persistence.Open(cfg.DBDialect, cfg.DBDSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "dialect", cfg.DBDialect)

	// ── Load or Generate World ────────────────────────────────────────
	sim, err := loadOrGenerate(store, cfg)
	if err != nil {
		slog.Error("world setup failed", "error", err)
		os.Exit(1)
	}

	// ── Ledger Bridge ─────────────────────────────────────────────────
	var collab ledger.Collaborator
	if hc := ledger.NewHTTPCollaborator(cfg.LedgerURL, cfg.LedgerAPIKey); hc != nil {
		collab = hc
		ensureAsset(store, sim, collab)
	} else {
		slog.Warn("ledger_url not set, external settlement disabled")
	}

	outbox := ledger.NewOutbox(store)
	sim.SetSettlement(outbox)

	flusher := ledger.NewFlusher(store, collab,
		time.Duration(cfg.FlushIntervalSecs)*time.Second)
	go flusher.Run()

	// ── Sweep Engine ──────────────────────────────────────────────────
	sweeper := engine.NewSweeper(sim, time.Duration(cfg.SweepIntervalSecs)*time.Second)
	sweeper.PersistEvery = cfg.PersistEverySweeps
	lastSnapshot := time.Now()
	sweeper.OnPersist = func() {
		snap := sim.Snapshot()
		if err := store.SaveWorldState(snap); err != nil {
			slog.Error("periodic save failed", "error", err)
		}
		if cfg.SnapshotIntervalMins > 0 &&
			time.Since(lastSnapshot) >= time.Duration(cfg.SnapshotIntervalMins)*time.Minute {
			lastSnapshot = time.Now()
			if id, err := store.SaveSnapshot(snap); err != nil {
				slog.Error("periodic snapshot failed", "error", err)
			} else {
				slog.Info("snapshot archived", "id", id)
			}
		}
	}
	go sweeper.Run()

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("admin_key not set, admin endpoints disabled")
	}
	apiServer := &api.Server{
		Sim:         sim,
		Sweeper:     sweeper,
		Store:       store,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
	}
	apiServer.Start()

	status := sim.WorldStatus()
	fmt.Printf("\nFrontier is live: %d parcels, %d factions (%d AI).\n",
		status.Parcels, status.Players, status.AIFactions)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	sweeper.Stop()
	flusher.Stop()

	slog.Info("final save...")
	snap := sim.Snapshot()
	if err := store.SaveWorldState(snap); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if id, err := store.SaveSnapshot(snap); err != nil {
		slog.Error("final snapshot failed", "error", err)
	} else {
		slog.Info("snapshot archived", "id", id)
	}

	fmt.Println("Server stopped. World state saved.")
}

// loadOrGenerate restores the persisted world, or generates and seeds a
// fresh one on first boot.
func loadOrGenerate(store *persistence.Store, cfg config.Config) (*engine.Sim, error) {
	initialized, err := store.Initialized()
	if err != nil {
		return nil, fmt.Errorf("check world state: %w", err)
	}

	if initialized {
		snap, err := store.LoadWorldState()
		if err != nil {
			return nil, fmt.Errorf("load world state: %w", err)
		}
		sim := engine.Restore(snap)
		slog.Info("world restored",
			"parcels", len(snap.Parcels),
			"players", len(snap.Players),
			"battles", len(snap.Battles))
		return sim, nil
	}

	seed := cfg.WorldSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	slog.Info("generating new world", "seed", seed, "radius", cfg.WorldRadius)

	gen := world.DefaultGenConfig()
	gen.Seed = seed
	gen.Radius = cfg.WorldRadius
	grid := world.Generate(gen)

	now := time.Now().UTC()
	sim := engine.NewSim(grid, engine.WorldMeta{
		Seed:        seed,
		Radius:      cfg.WorldRadius,
		CreatedAt:   now,
		LastAccrual: now,
	})
	sim.SeedAIFactions(cfg.AIFactions, cfg.AIClusterSize)

	for biome, count := range world.BiomeCounts(grid) {
		slog.Info("biome", "type", biome.String(), "count", count)
	}

	if err := store.SaveWorldState(sim.Snapshot()); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	return sim, nil
}

// ensureAsset looks up the game token asset on the ledger, creating it
// on first boot, and records the id in world metadata. Failure is
// tolerated: the game is authoritative locally and the outbox holds
// settlement intents until the ledger returns.
func ensureAsset(store *persistence.Store, sim *engine.Sim, collab ledger.Collaborator) {
	if sim.Meta.AssetID != 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	id, err := collab.LookupAsset(ctx)
	if err != nil {
		slog.Warn("asset lookup failed, continuing without asset id", "error", err)
		return
	}
	if id == 0 {
		id, err = collab.CreateAsset(ctx)
		if err != nil {
			slog.Warn("asset creation failed, continuing without asset id", "error", err)
			return
		}
		slog.Info("game asset created", "asset_id", id)
	}

	sim.Meta.AssetID = id
	if err := store.SaveAssetID(id); err != nil {
		slog.Error("failed to persist asset id", "error", err)
	}
}
