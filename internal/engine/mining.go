package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
)

// mineLocked works a parcel: yield from the economy tables, stored
// counters capped at capacity with overflow dropped, richness decay,
// cooldown reset.
func (s *Sim) mineLocked(act MineAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelLocked(act.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.OwnerID != player.ID {
		return nil, fmt.Errorf("parcel %s not owned by %s: %w", parcel.ID, player.ID, ErrNotOwned)
	}
	if !parcel.LastMineTs.IsZero() {
		if elapsed := now.Sub(parcel.LastMineTs); elapsed < economy.MineCooldown {
			return nil, fmt.Errorf("mine ready in %s: %w",
				(economy.MineCooldown - elapsed).Round(time.Second), ErrOnCooldown)
		}
	}

	mult := economy.YieldMultiplier(parcel.Improvements)
	raw := economy.MineYield(parcel.Biome, parcel.Richness, mult)

	// Storage cap: fill iron, then fuel, then crystal; overflow is lost.
	free := parcel.FreeCapacity()
	stored := economy.Yield{}
	stored.Iron = minInt(raw.Iron, free)
	free -= stored.Iron
	stored.Fuel = minInt(raw.Fuel, free)
	free -= stored.Fuel
	stored.Crystal = minInt(raw.Crystal, free)

	parcel.Iron += stored.Iron
	parcel.Fuel += stored.Fuel
	parcel.Crystal += stored.Crystal

	player.TotalIronMined += stored.Iron
	player.TotalFuelMined += stored.Fuel
	player.TotalCrystalMined += stored.Crystal

	parcel.Richness -= economy.RichnessDecay
	if parcel.Richness < economy.RichnessFloor {
		parcel.Richness = economy.RichnessFloor
	}
	parcel.LastMineTs = now

	s.pushEventLocked(Event{
		Type:     EventMine,
		ActorID:  player.ID,
		ParcelID: parcel.ID,
		Description: fmt.Sprintf("%s mined %s: %d iron, %d fuel, %d crystal",
			player.Name, parcel.ID, stored.Iron, stored.Fuel, stored.Crystal),
	})

	return &Result{
		Player: player.clone(),
		Parcel: parcel.Clone(),
		Yield:  &stored,
	}, nil
}

// collectLocked drains every owned parcel's stores into the player's
// balances. Atomic per player: all parcels or none.
func (s *Sim) collectLocked(act CollectAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}

	totals := CollectedTotals{}
	for _, parcelID := range player.ParcelIDs {
		parcel := s.Grid.Get(parcelID)
		if parcel == nil || parcel.OwnerID != player.ID {
			continue
		}
		if parcel.StoredTotal() == 0 {
			continue
		}
		totals.Iron += parcel.Iron
		totals.Fuel += parcel.Fuel
		totals.Crystal += parcel.Crystal
		totals.Parcels++
		parcel.Iron = 0
		parcel.Fuel = 0
		parcel.Crystal = 0
	}

	player.Iron += totals.Iron
	player.Fuel += totals.Fuel
	player.Crystal += totals.Crystal

	if totals.Parcels > 0 {
		s.pushEventLocked(Event{
			Type:    EventCollect,
			ActorID: player.ID,
			Description: fmt.Sprintf("%s collected %d iron, %d fuel, %d crystal from %d parcels",
				player.Name, totals.Iron, totals.Fuel, totals.Crystal, totals.Parcels),
		})
	}

	return &Result{
		Player:    player.clone(),
		Collected: &totals,
	}, nil
}

// claimFrontierLocked moves accrued frontier tokens from owned parcels
// into the player's balance, then records the external credit intent.
// The local balance change stands regardless of the external mirror.
func (s *Sim) claimFrontierLocked(act ClaimFrontierAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, parcelID := range player.ParcelIDs {
		parcel := s.Grid.Get(parcelID)
		if parcel == nil || parcel.OwnerID != player.ID {
			continue
		}
		total += parcel.FrontierAccumulated
		parcel.FrontierAccumulated = 0
	}

	player.FrontierBalance += total
	player.FrontierEarned += total

	if total > 0 && player.WalletAddress != "" && s.settle != nil {
		if err := s.settle.RecordCredit(player.ID, player.WalletAddress, total); err != nil {
			slog.Warn("settlement record failed, balance stands",
				"player_id", player.ID, "amount", total,
				"error", fmt.Errorf("%w: %v", ErrLedgerUnavailable, err))
		}
	}

	if total > 0 {
		s.pushEventLocked(Event{
			Type:        EventClaim,
			ActorID:     player.ID,
			Description: fmt.Sprintf("%s claimed %.2f frontier", player.Name, total),
		})
	}

	return &Result{
		Player:          player.clone(),
		ClaimedFrontier: total,
	}, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
