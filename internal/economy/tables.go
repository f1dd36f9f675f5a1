// Package economy holds the static balance tables and the pure functions
// that compute yields, powers, costs, and accrual rates from them. Every
// other component consults these tables; none keeps its own copy of a
// constant.
package economy

import (
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// Base yield per mine action, before modifiers.
const (
	BaseYieldIron    = 10
	BaseYieldFuel    = 6
	BaseYieldCrystal = 2
)

// Mining.
const (
	MineCooldown  = 60 * time.Second
	RichnessDecay = 1
	RichnessFloor = 20
)

// Combat.
const (
	TroopPowerFactor   = 10.0
	ExtraIronFactor    = 0.5
	ExtraFuelFactor    = 0.8
	DefensePowerFactor = 15.0
	TroopCostIron      = 10
	TroopCostFuel      = 5
	BattleDuration     = 5 * time.Minute
	BattleRandSpread   = 0.10
)

// Recon drones.
const (
	DroneCost           = 3.0
	DroneSurveyDuration = 10 * time.Minute
	MaxActiveDrones     = 3
)

// One-time grant on first wallet binding.
const (
	WelcomeIron     = 200
	WelcomeFuel     = 100
	WelcomeCrystal  = 20
	WelcomeFrontier = 5.0
)

// BiomeMods are the yield and defense multipliers of a biome.
type BiomeMods struct {
	Yield   float64
	Defense float64
}

var biomeMods = map[world.Biome]BiomeMods{
	world.BiomePlains:      {Yield: 1.0, Defense: 1.0},
	world.BiomeForest:      {Yield: 1.1, Defense: 1.2},
	world.BiomeMountains:   {Yield: 0.8, Defense: 1.5},
	world.BiomeDesert:      {Yield: 1.2, Defense: 0.8},
	world.BiomeTundra:      {Yield: 0.7, Defense: 1.1},
	world.BiomeVolcanic:    {Yield: 1.4, Defense: 0.9},
	world.BiomeCrystalline: {Yield: 1.3, Defense: 1.3},
}

// BiomeYieldMod returns the mining yield multiplier for a biome.
func BiomeYieldMod(b world.Biome) float64 {
	if m, ok := biomeMods[b]; ok {
		return m.Yield
	}
	return 1.0
}

// BiomeDefenseMod returns the defense multiplier for a biome.
func BiomeDefenseMod(b world.Biome) float64 {
	if m, ok := biomeMods[b]; ok {
		return m.Defense
	}
	return 1.0
}

// resourceWeights skew which resources a biome produces. Plains is the
// neutral 1.0 baseline for all three.
type resourceWeight struct {
	Iron    float64
	Fuel    float64
	Crystal float64
}

var biomeResourceWeights = map[world.Biome]resourceWeight{
	world.BiomePlains:      {1.0, 1.0, 1.0},
	world.BiomeForest:      {0.8, 1.2, 0.9},
	world.BiomeMountains:   {1.5, 0.7, 1.1},
	world.BiomeDesert:      {1.0, 1.3, 0.8},
	world.BiomeTundra:      {1.1, 0.9, 1.0},
	world.BiomeVolcanic:    {0.9, 1.6, 0.9},
	world.BiomeCrystalline: {0.7, 0.8, 2.0},
}

// ImprovementSpec describes one buildable facility type: its cost curve,
// level cap, prerequisite, and per-level effects.
type ImprovementSpec struct {
	MaxLevel    int
	CostIron    int // level-1 cost; level n costs n times this
	CostFuel    int
	Prereq      world.ImprovementType // empty means none
	DefenseAdd  int                   // applied to the parcel on build
	YieldAdd    float64               // parcel yield multiplier per level
	CapacityAdd int                   // storage capacity per level
	FrontierAdd float64               // frontier tokens per day per level
}

var improvements = map[world.ImprovementType]ImprovementSpec{
	world.ImpDefenseTurret: {
		MaxLevel:   5,
		CostIron:   30,
		CostFuel:   10,
		DefenseAdd: 1,
	},
	world.ImpExtractor: {
		MaxLevel: 3,
		CostIron: 40,
		CostFuel: 20,
		YieldAdd: 0.25,
	},
	world.ImpStorageDepot: {
		MaxLevel:    4,
		CostIron:    25,
		CostFuel:    10,
		CapacityAdd: 50,
	},
	world.ImpSolarArray: {
		MaxLevel:    1,
		CostIron:    50,
		CostFuel:    30,
		FrontierAdd: 0.5,
	},
	world.ImpFrontierNode: {
		MaxLevel:    3,
		CostIron:    80,
		CostFuel:    40,
		Prereq:      world.ImpSolarArray,
		FrontierAdd: 1.0,
	},
}

// ImprovementSpecFor returns the spec for a facility type.
func ImprovementSpecFor(t world.ImprovementType) (ImprovementSpec, bool) {
	s, ok := improvements[t]
	return s, ok
}

// CommanderSpec is one avatar tier's mint cost and combat bonuses.
type CommanderSpec struct {
	Title        string
	MintCost     float64 // frontier tokens
	AttackBonus  float64
	DefenseBonus float64
}

var commanderTiers = map[int]CommanderSpec{
	1: {Title: "scout", MintCost: 10, AttackBonus: 0.05, DefenseBonus: 0.05},
	2: {Title: "captain", MintCost: 25, AttackBonus: 0.10, DefenseBonus: 0.10},
	3: {Title: "warlord", MintCost: 60, AttackBonus: 0.20, DefenseBonus: 0.15},
	4: {Title: "overlord", MintCost: 150, AttackBonus: 0.35, DefenseBonus: 0.25},
}

// CommanderSpecFor returns the spec for a commander tier.
func CommanderSpecFor(tier int) (CommanderSpec, bool) {
	s, ok := commanderTiers[tier]
	return s, ok
}

// Special attack identifiers.
const (
	SpecialSabotage      = "sabotage"
	SpecialEMPBurst      = "emp_burst"
	SpecialOrbitalStrike = "orbital_strike"
)

// SpecialAttackSpec is one special attack's cost, cooldown, tier gate,
// and effect on the target parcel.
type SpecialAttackSpec struct {
	Cost          float64 // frontier tokens
	Cooldown      time.Duration
	MinTier       int     // active commander tier required
	DefenseDamage int     // subtracted from target defense, floor 1
	StoreLossPct  float64 // fraction of stored resources destroyed
}

var specialAttacks = map[string]SpecialAttackSpec{
	SpecialSabotage:      {Cost: 5, Cooldown: 15 * time.Minute, MinTier: 2, DefenseDamage: 2},
	SpecialEMPBurst:      {Cost: 12, Cooldown: 30 * time.Minute, MinTier: 3, DefenseDamage: 3, StoreLossPct: 0.25},
	SpecialOrbitalStrike: {Cost: 25, Cooldown: 60 * time.Minute, MinTier: 4, DefenseDamage: 4},
}

// SpecialAttackSpecFor returns the spec for a special attack type.
func SpecialAttackSpecFor(kind string) (SpecialAttackSpec, bool) {
	s, ok := specialAttacks[kind]
	return s, ok
}
