package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// buildLocked builds or levels an improvement on an owned parcel.
func (s *Sim) buildLocked(act BuildAction, now time.Time) (*Result, error) {
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

	spec, ok := economy.ImprovementSpecFor(act.Improvement)
	if !ok {
		return nil, fmt.Errorf("unknown improvement %q: %w", act.Improvement, ErrInvalidParameters)
	}

	next := parcel.ImprovementLevel(act.Improvement) + 1
	if next > spec.MaxLevel {
		return nil, fmt.Errorf("%s already at max level %d: %w",
			act.Improvement, spec.MaxLevel, ErrInvalidState)
	}
	if spec.Prereq != "" && !parcel.HasImprovement(spec.Prereq) {
		return nil, fmt.Errorf("%s requires %s: %w", act.Improvement, spec.Prereq, ErrInvalidState)
	}

	costIron, costFuel, _ := economy.ImprovementCost(act.Improvement, next)
	if !player.canAfford(costIron, costFuel, 0, 0) {
		return nil, fmt.Errorf("%s level %d costs %d iron %d fuel: %w",
			act.Improvement, next, costIron, costFuel, ErrInsufficientResources)
	}

	player.Iron -= costIron
	player.Fuel -= costFuel

	if next == 1 {
		parcel.Improvements = append(parcel.Improvements, world.Improvement{Type: act.Improvement, Level: 1})
	} else {
		for i := range parcel.Improvements {
			if parcel.Improvements[i].Type == act.Improvement {
				parcel.Improvements[i].Level = next
				break
			}
		}
	}

	parcel.DefenseLevel += spec.DefenseAdd
	parcel.StorageCapacity = economy.StorageCapacity(parcel.Improvements)
	parcel.FrontierPerDay = economy.FrontierPerDay(parcel.Improvements)

	s.pushEventLocked(Event{
		Type:     EventBuild,
		ActorID:  player.ID,
		ParcelID: parcel.ID,
		Description: fmt.Sprintf("%s built %s level %d on %s",
			player.Name, act.Improvement, next, parcel.ID),
	})

	return &Result{
		Player: player.clone(),
		Parcel: parcel.Clone(),
	}, nil
}

// purchaseLocked buys an unclaimed, listed parcel. Requires a bound
// wallet; the external charge is recorded as an outbox intent and never
// gates the ownership change.
func (s *Sim) purchaseLocked(act PurchaseAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelLocked(act.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.Owned() {
		return nil, fmt.Errorf("parcel %s already owned: %w", parcel.ID, ErrInvalidState)
	}
	if parcel.PurchasePriceAlgo <= 0 {
		return nil, fmt.Errorf("parcel %s not listed for sale: %w", parcel.ID, ErrInvalidState)
	}
	if parcel.UnderBattle() {
		return nil, fmt.Errorf("parcel %s is contested: %w", parcel.ID, ErrInvalidState)
	}
	if player.WalletAddress == "" {
		return nil, fmt.Errorf("purchase requires a bound wallet: %w", ErrInvalidState)
	}

	price := parcel.PurchasePriceAlgo
	parcel.OwnerID = player.ID
	parcel.OwnerType = ownerTypeFor(player)
	parcel.DefenseLevel = 1
	parcel.PurchasePriceAlgo = 0
	player.addParcelID(parcel.ID)

	if s.settle != nil {
		if err := s.settle.RecordDebit(player.ID, player.WalletAddress, price); err != nil {
			slog.Warn("settlement record failed, ownership stands",
				"player_id", player.ID, "parcel_id", parcel.ID, "amount", price,
				"error", fmt.Errorf("%w: %v", ErrLedgerUnavailable, err))
		}
	}

	s.pushEventLocked(Event{
		Type:     EventPurchase,
		ActorID:  player.ID,
		ParcelID: parcel.ID,
		Description: fmt.Sprintf("%s purchased %s for %.2f algo",
			player.Name, parcel.ID, price),
	})

	return &Result{
		Player: player.clone(),
		Parcel: parcel.Clone(),
	}, nil
}
