package economy

import (
	"math"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

// Yield is the integer resource output of one mine action.
type Yield struct {
	Iron    int `json:"iron"`
	Fuel    int `json:"fuel"`
	Crystal int `json:"crystal"`
}

// Total returns the summed resource count of the yield.
func (y Yield) Total() int {
	return y.Iron + y.Fuel + y.Crystal
}

// MineYield computes the output of mining a parcel:
// base x biomeYieldMod x biomeResourceWeight x (richness/100) x multiplier,
// floored per resource.
func MineYield(b world.Biome, richness int, multiplier float64) Yield {
	mod := BiomeYieldMod(b)
	w, ok := biomeResourceWeights[b]
	if !ok {
		w = resourceWeight{1, 1, 1}
	}
	rich := float64(richness) / 100.0

	return Yield{
		Iron:    int(math.Floor(BaseYieldIron * mod * w.Iron * rich * multiplier)),
		Fuel:    int(math.Floor(BaseYieldFuel * mod * w.Fuel * rich * multiplier)),
		Crystal: int(math.Floor(BaseYieldCrystal * mod * w.Crystal * rich * multiplier)),
	}
}

// AttackerPower computes raw offensive power from committed troops and
// burned extras, scaled by the active commander's attack bonus (0 when
// the attacker has no active commander).
func AttackerPower(troops, extraIron, extraFuel int, commanderBonus float64) float64 {
	base := float64(troops)*TroopPowerFactor +
		float64(extraIron)*ExtraIronFactor +
		float64(extraFuel)*ExtraFuelFactor
	return base * (1.0 + commanderBonus)
}

// DefenderPower computes defensive power from the parcel's defense level
// and biome, scaled by the defending player's active commander bonus
// (0 for unclaimed parcels or commanders without one).
func DefenderPower(defenseLevel int, b world.Biome, commanderBonus float64) float64 {
	base := float64(defenseLevel) * DefensePowerFactor * BiomeDefenseMod(b)
	return base * (1.0 + commanderBonus)
}

// TroopBurn returns the resource cost of committing an attack force.
func TroopBurn(troops, extraIron, extraFuel int) (iron, fuel int) {
	return troops*TroopCostIron + extraIron, troops*TroopCostFuel + extraFuel
}

// ImprovementCost returns the price of buying the given level of a
// facility (level 1 = initial build). The cost curve is linear in level.
func ImprovementCost(t world.ImprovementType, level int) (iron, fuel int, ok bool) {
	s, found := improvements[t]
	if !found || level < 1 || level > s.MaxLevel {
		return 0, 0, false
	}
	return s.CostIron * level, s.CostFuel * level, true
}

// YieldMultiplier derives a parcel's mining multiplier from its built
// improvements.
func YieldMultiplier(imps []world.Improvement) float64 {
	mult := 1.0
	for _, imp := range imps {
		if s, ok := improvements[imp.Type]; ok {
			mult += s.YieldAdd * float64(imp.Level)
		}
	}
	return mult
}

// StorageCapacity derives a parcel's stored-resource cap from its built
// improvements.
func StorageCapacity(imps []world.Improvement) int {
	cap := world.BaseStorageCapacity
	for _, imp := range imps {
		if s, ok := improvements[imp.Type]; ok {
			cap += s.CapacityAdd * imp.Level
		}
	}
	return cap
}

// FrontierPerDay derives a parcel's daily frontier-token accrual from its
// built improvements.
func FrontierPerDay(imps []world.Improvement) float64 {
	rate := 0.0
	for _, imp := range imps {
		if s, ok := improvements[imp.Type]; ok {
			rate += s.FrontierAdd * float64(imp.Level)
		}
	}
	return rate
}
