package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// AI pacing. Not every faction acts every sweep; the gate throttles load
// and spaces decisions out.
const (
	aiActProbability    = 0.4
	aiAttackProbability = 0.25
	aiDefenseThreshold  = 3
	aiAttackTroops      = 2
)

// RunAIPass gives each AI faction one decision opportunity. Every
// decision routes through the same action handlers as human play, so the
// AI is bound by the same ownership, affordability, and cooldown rules.
// Individual failures are logged and never abort the pass.
func (s *Sim) RunAIPass(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.Players))
	for id, p := range s.Players {
		if p.IsAI {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		if s.rng.Float64() > aiActProbability {
			continue
		}
		s.aiActLocked(s.Players[id], now)
	}
}

func (s *Sim) aiActLocked(p *Player, now time.Time) {
	// Work the land first: mine the first cooldown-eligible parcel, one
	// per pass.
	for _, parcelID := range sortedIDs(p.ParcelIDs) {
		parcel := s.Grid.Get(parcelID)
		if parcel == nil {
			continue
		}
		if !parcel.LastMineTs.IsZero() && now.Sub(parcel.LastMineTs) < economy.MineCooldown {
			continue
		}
		if _, err := s.applyLocked(MineAction{ActorID: p.ID, ParcelID: parcelID}, now); err != nil {
			slog.Debug("ai mine rejected", "faction", p.Name, "parcel_id", parcelID, "error", err)
		}
		break
	}

	switch p.Behavior {
	case BehaviorExpansionist, BehaviorRaider:
		if s.rng.Float64() <= aiAttackProbability {
			s.aiAttackLocked(p, now)
		}
	case BehaviorDefensive:
		s.aiFortifyLocked(p, now)
	}
}

// aiAttackLocked launches a minimal raid. Expansionists prefer unclaimed
// land; raiders prefer enemy holdings.
func (s *Sim) aiAttackLocked(p *Player, now time.Time) {
	burnIron, burnFuel := economy.TroopBurn(aiAttackTroops, 0, 0)
	if !p.canAfford(burnIron, burnFuel, 0, 0) {
		return
	}

	var unclaimed, enemy []string
	for _, id := range s.Grid.SortedIDs() {
		parcel := s.Grid.Get(id)
		if parcel.OwnerID == p.ID || parcel.UnderBattle() {
			continue
		}
		if parcel.Owned() {
			enemy = append(enemy, id)
		} else {
			unclaimed = append(unclaimed, id)
		}
	}

	pool := unclaimed
	fallback := enemy
	if p.Behavior == BehaviorRaider {
		pool, fallback = enemy, unclaimed
	}
	if len(pool) == 0 {
		pool = fallback
	}
	if len(pool) == 0 {
		return
	}

	target := pool[s.rng.Intn(len(pool))]
	if _, err := s.applyLocked(AttackAction{
		ActorID:  p.ID,
		ParcelID: target,
		Troops:   aiAttackTroops,
	}, now); err != nil {
		slog.Debug("ai attack rejected", "faction", p.Name, "target", target, "error", err)
	}
}

// aiFortifyLocked raises the weakest holding's defenses while it sits
// below the threshold.
func (s *Sim) aiFortifyLocked(p *Player, now time.Time) {
	var weakest *world.Parcel
	for _, parcelID := range sortedIDs(p.ParcelIDs) {
		parcel := s.Grid.Get(parcelID)
		if parcel == nil || parcel.OwnerID != p.ID {
			continue
		}
		if weakest == nil || parcel.DefenseLevel < weakest.DefenseLevel {
			weakest = parcel
		}
	}
	if weakest == nil || weakest.DefenseLevel >= aiDefenseThreshold {
		return
	}

	next := weakest.ImprovementLevel(world.ImpDefenseTurret) + 1
	costIron, costFuel, ok := economy.ImprovementCost(world.ImpDefenseTurret, next)
	if !ok || !p.canAfford(costIron, costFuel, 0, 0) {
		return
	}

	if _, err := s.applyLocked(BuildAction{
		ActorID:     p.ID,
		ParcelID:    weakest.ID,
		Improvement: world.ImpDefenseTurret,
	}, now); err != nil {
		slog.Debug("ai fortify rejected", "faction", p.Name, "parcel_id", weakest.ID, "error", err)
	}
}

func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
