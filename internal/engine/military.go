package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
)

// attackLocked commits a force against a parcel: resources burn
// immediately win or lose, powers freeze at creation, and a pending
// battle starts its timer.
func (s *Sim) attackLocked(act AttackAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelLocked(act.ParcelID)
	if err != nil {
		return nil, err
	}
	if act.Troops < 1 {
		return nil, fmt.Errorf("attack needs at least one troop: %w", ErrInvalidParameters)
	}
	if act.ExtraIron < 0 || act.ExtraFuel < 0 {
		return nil, fmt.Errorf("negative resource commitment: %w", ErrInvalidParameters)
	}
	if parcel.OwnerID == player.ID {
		return nil, fmt.Errorf("cannot attack own parcel %s: %w", parcel.ID, ErrInvalidState)
	}
	if parcel.UnderBattle() {
		return nil, fmt.Errorf("parcel %s already under battle %s: %w",
			parcel.ID, parcel.ActiveBattleID, ErrInvalidState)
	}

	burnIron, burnFuel := economy.TroopBurn(act.Troops, act.ExtraIron, act.ExtraFuel)
	if !player.canAfford(burnIron, burnFuel, 0, 0) {
		return nil, fmt.Errorf("attack costs %d iron %d fuel: %w",
			burnIron, burnFuel, ErrInsufficientResources)
	}

	player.Iron -= burnIron
	player.Fuel -= burnFuel

	defenderBonus := 0.0
	defenderID := ""
	if parcel.Owned() {
		defenderID = parcel.OwnerID
		if defender, ok := s.Players[parcel.OwnerID]; ok {
			defenderBonus = defender.DefenseBonus()
		}
	}

	b := &Battle{
		ID:            uuid.NewString(),
		AttackerID:    player.ID,
		DefenderID:    defenderID,
		ParcelID:      parcel.ID,
		AttackerPower: economy.AttackerPower(act.Troops, act.ExtraIron, act.ExtraFuel, player.AttackBonus()),
		DefenderPower: economy.DefenderPower(parcel.DefenseLevel, parcel.Biome, defenderBonus),
		Troops:        act.Troops,
		BurnedIron:    burnIron,
		BurnedFuel:    burnFuel,
		StartTs:       now,
		ResolveTs:     now.Add(economy.BattleDuration),
		Status:        BattlePending,
	}
	b.RandFactor = battleRandFactor(b.ID, b.StartTs)

	s.Battles[b.ID] = b
	parcel.ActiveBattleID = b.ID

	s.pushEventLocked(Event{
		Type:     EventAttackLaunched,
		ActorID:  player.ID,
		ParcelID: parcel.ID,
		BattleID: b.ID,
		Description: fmt.Sprintf("%s attacks %s with %d troops",
			player.Name, parcel.ID, act.Troops),
	})

	battleCopy := *b
	return &Result{
		Player: player.clone(),
		Parcel: parcel.Clone(),
		Battle: &battleCopy,
	}, nil
}

// specialAttackLocked fires a commander special against a parcel.
// Cooldowns are keyed per attack type, not global.
func (s *Sim) specialAttackLocked(act SpecialAttackAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelLocked(act.ParcelID)
	if err != nil {
		return nil, err
	}

	spec, ok := economy.SpecialAttackSpecFor(act.AttackType)
	if !ok {
		return nil, fmt.Errorf("unknown special attack %q: %w", act.AttackType, ErrInvalidParameters)
	}
	if parcel.OwnerID == player.ID {
		return nil, fmt.Errorf("cannot target own parcel %s: %w", parcel.ID, ErrInvalidState)
	}

	commander := player.ActiveCommander()
	if commander == nil || commander.Tier < spec.MinTier {
		return nil, fmt.Errorf("%s requires an active commander of tier %d+: %w",
			act.AttackType, spec.MinTier, ErrInvalidState)
	}

	if last := player.SpecialLastUsed(act.AttackType); !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < spec.Cooldown {
			return nil, fmt.Errorf("%s ready in %s: %w",
				act.AttackType, (spec.Cooldown - elapsed).Round(time.Second), ErrOnCooldown)
		}
	}

	if player.FrontierBalance < spec.Cost {
		return nil, fmt.Errorf("%s costs %.1f frontier: %w",
			act.AttackType, spec.Cost, ErrInsufficientResources)
	}

	player.spendFrontier(spec.Cost)
	player.markSpecialUsed(act.AttackType, now)

	parcel.DefenseLevel -= spec.DefenseDamage
	if parcel.DefenseLevel < 1 {
		parcel.DefenseLevel = 1
	}
	if spec.StoreLossPct > 0 {
		parcel.Iron -= int(math.Floor(float64(parcel.Iron) * spec.StoreLossPct))
		parcel.Fuel -= int(math.Floor(float64(parcel.Fuel) * spec.StoreLossPct))
		parcel.Crystal -= int(math.Floor(float64(parcel.Crystal) * spec.StoreLossPct))
	}

	s.pushEventLocked(Event{
		Type:     EventSpecialAttack,
		ActorID:  player.ID,
		ParcelID: parcel.ID,
		Description: fmt.Sprintf("%s fired %s at %s",
			player.Name, act.AttackType, parcel.ID),
	})

	return &Result{
		Player: player.clone(),
		Parcel: parcel.Clone(),
	}, nil
}
