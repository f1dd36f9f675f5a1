package engine

import (
	"fmt"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// Action is one player-initiated command. Each variant carries its own
// payload; Apply dispatches through a single exhaustive match, so adding
// an action type is a compile-time change.
type Action interface {
	kind() string
}

type MineAction struct {
	ActorID  string `json:"actor_id"`
	ParcelID string `json:"parcel_id"`
}

type BuildAction struct {
	ActorID     string                `json:"actor_id"`
	ParcelID    string                `json:"parcel_id"`
	Improvement world.ImprovementType `json:"improvement"`
}

type PurchaseAction struct {
	ActorID  string `json:"actor_id"`
	ParcelID string `json:"parcel_id"`
}

type CollectAction struct {
	ActorID string `json:"actor_id"`
}

type ClaimFrontierAction struct {
	ActorID string `json:"actor_id"`
}

type MintAvatarAction struct {
	ActorID string `json:"actor_id"`
	Tier    int    `json:"tier"`
	Name    string `json:"name"`
}

type SwitchCommanderAction struct {
	ActorID     string `json:"actor_id"`
	CommanderID string `json:"commander_id"`
}

type DeployDroneAction struct {
	ActorID  string `json:"actor_id"`
	ParcelID string `json:"parcel_id"`
}

type SpecialAttackAction struct {
	ActorID    string `json:"actor_id"`
	ParcelID   string `json:"parcel_id"`
	AttackType string `json:"attack_type"`
}

type AttackAction struct {
	ActorID   string `json:"actor_id"`
	ParcelID  string `json:"parcel_id"`
	Troops    int    `json:"troops"`
	ExtraIron int    `json:"extra_iron"`
	ExtraFuel int    `json:"extra_fuel"`
}

type BindWalletAction struct {
	ActorID string `json:"actor_id"`
	Address string `json:"address"`
}

func (MineAction) kind() string            { return "mine" }
func (BuildAction) kind() string           { return "build" }
func (PurchaseAction) kind() string        { return "purchase" }
func (CollectAction) kind() string         { return "collect" }
func (ClaimFrontierAction) kind() string   { return "claim_frontier" }
func (MintAvatarAction) kind() string      { return "mint_avatar" }
func (SwitchCommanderAction) kind() string { return "switch_commander" }
func (DeployDroneAction) kind() string     { return "deploy_drone" }
func (SpecialAttackAction) kind() string   { return "special_attack" }
func (AttackAction) kind() string          { return "attack" }
func (BindWalletAction) kind() string      { return "bind_wallet" }

// CollectedTotals is what a collect action drained from owned parcels.
type CollectedTotals struct {
	Iron    int `json:"iron"`
	Fuel    int `json:"fuel"`
	Crystal int `json:"crystal"`
	Parcels int `json:"parcels"`
}

// Result carries the updated sub-state of a successful action. Fields
// are copies, safe to marshal after the lock is released.
type Result struct {
	Player          *Player          `json:"player,omitempty"`
	Parcel          *world.Parcel    `json:"parcel,omitempty"`
	Battle          *Battle          `json:"battle,omitempty"`
	Yield           *economy.Yield   `json:"yield,omitempty"`
	Collected       *CollectedTotals `json:"collected,omitempty"`
	ClaimedFrontier float64          `json:"claimed_frontier,omitempty"`
	Commander       *Commander       `json:"commander,omitempty"`
	Drone           *ReconDrone      `json:"drone,omitempty"`
}

// Apply validates and applies one action atomically. On any error the
// world is unchanged.
func (s *Sim) Apply(a Action) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(a, s.nowFn())
}

func (s *Sim) applyLocked(a Action, now time.Time) (*Result, error) {
	switch act := a.(type) {
	case MineAction:
		return s.mineLocked(act, now)
	case BuildAction:
		return s.buildLocked(act, now)
	case PurchaseAction:
		return s.purchaseLocked(act, now)
	case CollectAction:
		return s.collectLocked(act, now)
	case ClaimFrontierAction:
		return s.claimFrontierLocked(act, now)
	case MintAvatarAction:
		return s.mintAvatarLocked(act, now)
	case SwitchCommanderAction:
		return s.switchCommanderLocked(act, now)
	case DeployDroneAction:
		return s.deployDroneLocked(act, now)
	case SpecialAttackAction:
		return s.specialAttackLocked(act, now)
	case AttackAction:
		return s.attackLocked(act, now)
	case BindWalletAction:
		return s.bindWalletLocked(act, now)
	default:
		return nil, fmt.Errorf("unknown action %T: %w", a, ErrInvalidParameters)
	}
}
