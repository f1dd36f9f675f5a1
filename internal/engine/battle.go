package engine

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"lukechampine.com/blake3"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// Battle states and outcomes.
const (
	BattlePending  = "pending"
	BattleResolved = "resolved"

	OutcomeAttackerWins = "attacker_wins"
	OutcomeDefenderWins = "defender_wins"
)

// Battle is one combat record. Created pending by an attack action,
// resolved exactly once by the sweep, immutable afterward.
type Battle struct {
	ID         string `json:"id"`
	AttackerID string `json:"attacker_id"`
	// DefenderID is empty when the target parcel was unclaimed.
	DefenderID string `json:"defender_id,omitempty"`
	ParcelID   string `json:"parcel_id"`

	AttackerPower float64 `json:"attacker_power"`
	DefenderPower float64 `json:"defender_power"`
	Troops        int     `json:"troops"`
	BurnedIron    int     `json:"burned_iron"`
	BurnedFuel    int     `json:"burned_fuel"`

	StartTs   time.Time `json:"start_ts"`
	ResolveTs time.Time `json:"resolve_ts"`

	Status     string  `json:"status"`
	Outcome    string  `json:"outcome,omitempty"`
	RandFactor float64 `json:"rand_factor"`
}

// battleRandFactor derives the resolution adjustment in [-spread, +spread]
// from a hash of the battle id and start time. Reproducible from
// persisted battle fields alone; deliberately not a cryptographic or
// time-of-check random source.
func battleRandFactor(battleID string, startTs time.Time) float64 {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%d", battleID, startTs.Unix())))
	norm := float64(binary.BigEndian.Uint64(sum[:8])) / float64(math.MaxUint64)
	return norm*2*economy.BattleRandSpread - economy.BattleRandSpread
}

// ResolveDueBattles resolves every pending battle whose timer has
// elapsed. Idempotent: already-resolved battles are untouched. Returns
// the number resolved.
func (s *Sim) ResolveDueBattles(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]string, 0, 4)
	for id, b := range s.Battles {
		if b.Status == BattlePending && !now.Before(b.ResolveTs) {
			due = append(due, id)
		}
	}
	sort.Strings(due)

	for _, id := range due {
		s.resolveBattleLocked(s.Battles[id])
	}
	return len(due)
}

// resolveBattleLocked applies the outcome of one due battle.
func (s *Sim) resolveBattleLocked(b *Battle) {
	adjusted := b.AttackerPower * (1.0 + b.RandFactor)

	attacker := s.Players[b.AttackerID]
	var defender *Player
	if b.DefenderID != "" {
		defender = s.Players[b.DefenderID]
	}

	parcel := s.Grid.Get(b.ParcelID)

	if adjusted > b.DefenderPower {
		b.Outcome = OutcomeAttackerWins

		if parcel != nil {
			if defender != nil {
				defender.removeParcelID(parcel.ID)
				defender.AttacksLost++
			}
			if attacker != nil {
				attacker.addParcelID(parcel.ID)
				attacker.AttacksWon++
				parcel.OwnerID = attacker.ID
				parcel.OwnerType = ownerTypeFor(attacker)
			}
			parcel.PurchasePriceAlgo = 0
			// Battle damage: defenses halved, floor 1.
			parcel.DefenseLevel = parcel.DefenseLevel / 2
			if parcel.DefenseLevel < 1 {
				parcel.DefenseLevel = 1
			}
		}
	} else {
		b.Outcome = OutcomeDefenderWins
		if attacker != nil {
			attacker.AttacksLost++
		}
		if defender != nil {
			defender.AttacksWon++
		}
	}

	if parcel != nil && parcel.ActiveBattleID == b.ID {
		parcel.ActiveBattleID = ""
	}
	b.Status = BattleResolved

	desc := fmt.Sprintf("battle for %s: %s (power %.1f%+.0f%% vs %.1f)",
		b.ParcelID, b.Outcome, b.AttackerPower, b.RandFactor*100, b.DefenderPower)
	s.pushEventLocked(Event{
		Type:        EventBattleResolved,
		ActorID:     b.AttackerID,
		ParcelID:    b.ParcelID,
		BattleID:    b.ID,
		Description: desc,
	})
	slog.Info("battle resolved",
		"battle_id", b.ID, "parcel_id", b.ParcelID, "outcome", b.Outcome,
		"attacker_power", b.AttackerPower, "defender_power", b.DefenderPower,
		"rand_factor", b.RandFactor)
}

func ownerTypeFor(p *Player) world.OwnerType {
	if p.IsAI {
		return world.OwnerAI
	}
	return world.OwnerHuman
}
