package engine

import (
	"time"
)

// Behavior tags steering AI faction decisions.
const (
	BehaviorExpansionist = "expansionist"
	BehaviorRaider       = "raider"
	BehaviorDefensive    = "defensive"
)

// Commander is a minted avatar granting combat bonuses. At most one is
// active at a time and gates special-attack eligibility.
type Commander struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Tier         int       `json:"tier"`
	Title        string    `json:"title"`
	AttackBonus  float64   `json:"attack_bonus"`
	DefenseBonus float64   `json:"defense_bonus"`
	MintedAt     time.Time `json:"minted_at"`
}

// SpecialAttackRecord tracks the per-type cooldown of a special attack.
type SpecialAttackRecord struct {
	Type       string    `json:"type"`
	LastUsedTs time.Time `json:"last_used_ts"`
}

// Recon drone states.
const (
	DroneSurveying = "surveying"
	DroneReturned  = "returned"
)

// ReconDrone is a deployed survey drone. The sweep flips it to returned
// once its survey duration elapses, filling in the discovered resources.
type ReconDrone struct {
	ID                string    `json:"id"`
	TargetParcelID    string    `json:"target_parcel_id"`
	DeployedAt        time.Time `json:"deployed_at"`
	Status            string    `json:"status"`
	DiscoveredIron    int       `json:"discovered_iron"`
	DiscoveredFuel    int       `json:"discovered_fuel"`
	DiscoveredCrystal int       `json:"discovered_crystal"`
}

// Player is one faction, human or AI.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsAI     bool   `json:"is_ai"`
	Behavior string `json:"behavior,omitempty"`

	WalletAddress        string `json:"wallet_address,omitempty"`
	WelcomeBonusReceived bool   `json:"welcome_bonus_received"`

	Iron            int     `json:"iron"`
	Fuel            int     `json:"fuel"`
	Crystal         int     `json:"crystal"`
	FrontierBalance float64 `json:"frontier_balance"`

	TotalIronMined    int     `json:"total_iron_mined"`
	TotalFuelMined    int     `json:"total_fuel_mined"`
	TotalCrystalMined int     `json:"total_crystal_mined"`
	FrontierEarned    float64 `json:"frontier_earned"`
	FrontierBurned    float64 `json:"frontier_burned"`
	AttacksWon        int     `json:"attacks_won"`
	AttacksLost       int     `json:"attacks_lost"`

	ParcelIDs []string `json:"parcel_ids"`

	Commanders        []Commander `json:"commanders"`
	ActiveCommanderID string      `json:"active_commander_id,omitempty"`

	SpecialAttacks []SpecialAttackRecord `json:"special_attacks"`
	Drones         []ReconDrone          `json:"drones"`

	CreatedAt time.Time `json:"created_at"`
}

// ActiveCommander returns the active commander, or nil.
func (p *Player) ActiveCommander() *Commander {
	if p.ActiveCommanderID == "" {
		return nil
	}
	for i := range p.Commanders {
		if p.Commanders[i].ID == p.ActiveCommanderID {
			return &p.Commanders[i]
		}
	}
	return nil
}

// AttackBonus is the active commander's attack bonus, 0 without one.
func (p *Player) AttackBonus() float64 {
	if c := p.ActiveCommander(); c != nil {
		return c.AttackBonus
	}
	return 0
}

// DefenseBonus is the active commander's defense bonus, 0 without one.
func (p *Player) DefenseBonus() float64 {
	if c := p.ActiveCommander(); c != nil {
		return c.DefenseBonus
	}
	return 0
}

// SpecialLastUsed returns when the given special attack was last fired,
// zero time if never.
func (p *Player) SpecialLastUsed(kind string) time.Time {
	for _, rec := range p.SpecialAttacks {
		if rec.Type == kind {
			return rec.LastUsedTs
		}
	}
	return time.Time{}
}

// markSpecialUsed records the firing time of a special attack.
func (p *Player) markSpecialUsed(kind string, ts time.Time) {
	for i := range p.SpecialAttacks {
		if p.SpecialAttacks[i].Type == kind {
			p.SpecialAttacks[i].LastUsedTs = ts
			return
		}
	}
	p.SpecialAttacks = append(p.SpecialAttacks, SpecialAttackRecord{Type: kind, LastUsedTs: ts})
}

// ActiveDroneCount counts drones still out surveying.
func (p *Player) ActiveDroneCount() int {
	n := 0
	for _, d := range p.Drones {
		if d.Status == DroneSurveying {
			n++
		}
	}
	return n
}

// canAfford checks the resource balances without mutating them.
func (p *Player) canAfford(iron, fuel, crystal int, frontier float64) bool {
	return p.Iron >= iron && p.Fuel >= fuel && p.Crystal >= crystal &&
		p.FrontierBalance >= frontier
}

// spendFrontier burns frontier tokens, tracking the lifetime total.
func (p *Player) spendFrontier(amount float64) {
	p.FrontierBalance -= amount
	p.FrontierBurned += amount
}

func (p *Player) addParcelID(id string) {
	for _, existing := range p.ParcelIDs {
		if existing == id {
			return
		}
	}
	p.ParcelIDs = append(p.ParcelIDs, id)
}

func (p *Player) removeParcelID(id string) {
	for i, existing := range p.ParcelIDs {
		if existing == id {
			p.ParcelIDs = append(p.ParcelIDs[:i], p.ParcelIDs[i+1:]...)
			return
		}
	}
}

// clone returns a deep copy safe to hand out after the lock is released.
func (p *Player) clone() *Player {
	cp := *p
	cp.ParcelIDs = append([]string(nil), p.ParcelIDs...)
	cp.Commanders = append([]Commander(nil), p.Commanders...)
	cp.SpecialAttacks = append([]SpecialAttackRecord(nil), p.SpecialAttacks...)
	cp.Drones = append([]ReconDrone(nil), p.Drones...)
	return &cp
}
