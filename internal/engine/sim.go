// Package engine holds the authoritative world state and every rule that
// mutates it: the action processor, the battle state machine, the AI
// faction pass, and the background sweep. All mutations are serialized
// behind one mutex; the HTTP layer, the sweep loop, and the AI are peer
// callers of the same locked entry points.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// Starting balances.
const (
	startingIron    = 100
	startingFuel    = 50
	startingCrystal = 10

	aiStartingIron     = 600
	aiStartingFuel     = 400
	aiStartingCrystal  = 60
	aiStartingFrontier = 20
)

// aiFactionNames seed the AI players, paired round-robin with behaviors.
var aiFactionNames = []string{
	"Crimson Syndicate",
	"Iron Covenant",
	"Void Cartel",
	"Solar Hegemony",
	"Ashen Collective",
	"Drift Combine",
	"Helios Pact",
	"Obsidian Union",
}

var aiBehaviors = []string{BehaviorExpansionist, BehaviorRaider, BehaviorDefensive}

// WorldMeta is the singleton world bookkeeping row.
type WorldMeta struct {
	Seed        int64     `json:"seed"`
	Radius      int       `json:"radius"`
	AssetID     uint64    `json:"asset_id"`
	LastAccrual time.Time `json:"last_accrual"`
	CreatedAt   time.Time `json:"created_at"`
}

// SettlementRecorder records external-ledger intents durably at the
// moment an in-game balance changes. Implementations must never block
// gameplay on external confirmation.
type SettlementRecorder interface {
	RecordCredit(playerID, address string, amount float64) error
	RecordDebit(playerID, address string, amount float64) error
}

// Sim is the authoritative world aggregate.
type Sim struct {
	mu sync.Mutex

	Grid    *world.Grid
	Players map[string]*Player
	Battles map[string]*Battle
	Events  []Event
	Meta    WorldMeta

	subscribers map[int]chan Event
	nextSubID   int

	settle SettlementRecorder
	nowFn  func() time.Time
	rng    *rand.Rand
}

// NewSim wraps a generated or restored grid into a live simulation.
func NewSim(grid *world.Grid, meta WorldMeta) *Sim {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	if meta.LastAccrual.IsZero() {
		meta.LastAccrual = meta.CreatedAt
	}
	return &Sim{
		Grid:        grid,
		Players:     make(map[string]*Player),
		Battles:     make(map[string]*Battle),
		Meta:        meta,
		subscribers: make(map[int]chan Event),
		nowFn:       func() time.Time { return time.Now().UTC() },
		rng:         rand.New(rand.NewSource(meta.Seed ^ 0x5eed)),
	}
}

// SetSettlement wires the external settlement recorder. Nil disables
// external mirroring; gameplay is unaffected either way.
func (s *Sim) SetSettlement(r SettlementRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle = r
}

// RegisterPlayer creates a human faction with starting balances.
func (s *Sim) RegisterPlayer(name string) (*Player, error) {
	if name == "" || len(name) > 64 {
		return nil, fmt.Errorf("player name must be 1-64 chars: %w", ErrInvalidParameters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.Players {
		if p.Name == name {
			return nil, fmt.Errorf("name %q taken: %w", name, ErrInvalidState)
		}
	}

	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		Iron:      startingIron,
		Fuel:      startingFuel,
		Crystal:   startingCrystal,
		CreatedAt: s.nowFn(),
	}
	s.Players[p.ID] = p

	s.pushEventLocked(Event{
		Type:        EventPlayerJoined,
		ActorID:     p.ID,
		Description: fmt.Sprintf("%s joined the frontier", p.Name),
	})
	slog.Info("player registered", "player_id", p.ID, "name", name)
	return p.clone(), nil
}

// SeedAIFactions creates n AI players and grants each a home cluster of
// parcels. Runs once at world creation.
func (s *Sim) SeedAIFactions(n, clusterSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(aiFactionNames) {
		n = len(aiFactionNames)
	}
	clusters := world.HomeClusters(s.Grid, n, clusterSize, s.Meta.Seed)

	for i, cluster := range clusters {
		p := &Player{
			ID:              uuid.NewString(),
			Name:            aiFactionNames[i],
			IsAI:            true,
			Behavior:        aiBehaviors[i%len(aiBehaviors)],
			Iron:            aiStartingIron,
			Fuel:            aiStartingFuel,
			Crystal:         aiStartingCrystal,
			FrontierBalance: aiStartingFrontier,
			CreatedAt:       s.nowFn(),
		}
		for _, parcelID := range cluster {
			parcel := s.Grid.Get(parcelID)
			if parcel == nil || parcel.Owned() {
				continue
			}
			parcel.OwnerID = p.ID
			parcel.OwnerType = world.OwnerAI
			parcel.PurchasePriceAlgo = 0
			p.addParcelID(parcelID)
		}
		s.Players[p.ID] = p
		slog.Info("AI faction seeded",
			"name", p.Name, "behavior", p.Behavior, "parcels", len(p.ParcelIDs))
	}
}

// playerLocked fetches a player or reports NotFound.
func (s *Sim) playerLocked(id string) (*Player, error) {
	p, ok := s.Players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// parcelLocked fetches a parcel or reports NotFound.
func (s *Sim) parcelLocked(id string) (*world.Parcel, error) {
	p := s.Grid.Get(id)
	if p == nil {
		return nil, fmt.Errorf("parcel %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Status is the headline world summary.
type Status struct {
	Parcels        int       `json:"parcels"`
	ClaimedParcels int       `json:"claimed_parcels"`
	ForSale        int       `json:"for_sale"`
	Players        int       `json:"players"`
	AIFactions     int       `json:"ai_factions"`
	PendingBattles int       `json:"pending_battles"`
	EventCount     int       `json:"event_count"`
	AssetID        uint64    `json:"asset_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// WorldStatus summarizes the world for the status endpoint.
func (s *Sim) WorldStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Parcels:    s.Grid.Count(),
		EventCount: len(s.Events),
		AssetID:    s.Meta.AssetID,
		CreatedAt:  s.Meta.CreatedAt,
	}
	for _, p := range s.Grid.Parcels {
		if p.Owned() {
			st.ClaimedParcels++
		}
		if p.PurchasePriceAlgo > 0 {
			st.ForSale++
		}
	}
	for _, p := range s.Players {
		st.Players++
		if p.IsAI {
			st.AIFactions++
		}
	}
	for _, b := range s.Battles {
		if b.Status == BattlePending {
			st.PendingBattles++
		}
	}
	return st
}

// GetParcel returns a copy of one parcel.
func (s *Sim) GetParcel(id string) (*world.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.parcelLocked(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// GetPlayer returns a copy of one player.
func (s *Sim) GetPlayer(id string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.playerLocked(id)
	if err != nil {
		return nil, err
	}
	return p.clone(), nil
}

// WorldParcels returns copies of every parcel in stable order.
func (s *Sim) WorldParcels() []*world.Parcel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*world.Parcel, 0, s.Grid.Count())
	for _, id := range s.Grid.SortedIDs() {
		out = append(out, s.Grid.Get(id).Clone())
	}
	return out
}

// PlayerBattles returns copies of every battle involving the player,
// newest first.
func (s *Sim) PlayerBattles(playerID string) []Battle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Battle
	for _, b := range s.Battles {
		if b.AttackerID == playerID || b.DefenderID == playerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTs.After(out[j].StartTs) })
	return out
}

// SimSnapshot is a consistent deep copy of the whole world, used by the
// persistence layer and the snapshot archiver.
type SimSnapshot struct {
	Meta    WorldMeta      `json:"meta"`
	Parcels []world.Parcel `json:"parcels"`
	Players []Player       `json:"players"`
	Battles []Battle       `json:"battles"`
	Events  []Event        `json:"events"`
}

// Snapshot captures the full world state under the lock.
func (s *Sim) Snapshot() *SimSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &SimSnapshot{Meta: s.Meta}

	for _, id := range s.Grid.SortedIDs() {
		snap.Parcels = append(snap.Parcels, *s.Grid.Get(id).Clone())
	}

	playerIDs := make([]string, 0, len(s.Players))
	for id := range s.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		snap.Players = append(snap.Players, *s.Players[id].clone())
	}

	battleIDs := make([]string, 0, len(s.Battles))
	for id := range s.Battles {
		battleIDs = append(battleIDs, id)
	}
	sort.Strings(battleIDs)
	for _, id := range battleIDs {
		snap.Battles = append(snap.Battles, *s.Battles[id])
	}

	snap.Events = append(snap.Events, s.Events...)
	return snap
}

// Restore rebuilds a live simulation from a snapshot.
func Restore(snap *SimSnapshot) *Sim {
	grid := world.NewGrid(snap.Meta.Radius)
	for i := range snap.Parcels {
		p := snap.Parcels[i]
		grid.Add(&p)
	}

	s := NewSim(grid, snap.Meta)
	for i := range snap.Players {
		p := snap.Players[i]
		s.Players[p.ID] = &p
	}
	for i := range snap.Battles {
		b := snap.Battles[i]
		s.Battles[b.ID] = &b
	}
	s.Events = append(s.Events, snap.Events...)
	return s
}
