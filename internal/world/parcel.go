package world

import "time"

// Biome is the fixed terrain category of a parcel, set at generation.
type Biome uint8

const (
	BiomePlains Biome = iota
	BiomeForest
	BiomeMountains
	BiomeDesert
	BiomeTundra
	BiomeVolcanic
	BiomeCrystalline
)

// NumBiomes is the count of biome values, for table sizing.
const NumBiomes = 7

func (b Biome) String() string {
	switch b {
	case BiomePlains:
		return "plains"
	case BiomeForest:
		return "forest"
	case BiomeMountains:
		return "mountains"
	case BiomeDesert:
		return "desert"
	case BiomeTundra:
		return "tundra"
	case BiomeVolcanic:
		return "volcanic"
	case BiomeCrystalline:
		return "crystalline"
	default:
		return "unknown"
	}
}

// OwnerType distinguishes human from AI ownership; empty means unclaimed.
type OwnerType string

const (
	OwnerHuman OwnerType = "human"
	OwnerAI    OwnerType = "ai"
)

// ImprovementType identifies a buildable facility on a parcel.
type ImprovementType string

const (
	ImpDefenseTurret ImprovementType = "defense_turret"
	ImpExtractor     ImprovementType = "extractor"
	ImpStorageDepot  ImprovementType = "storage_depot"
	ImpSolarArray    ImprovementType = "solar_array"
	ImpFrontierNode  ImprovementType = "frontier_node"
)

// Improvement is one built facility and its current level.
type Improvement struct {
	Type  ImprovementType `json:"type"`
	Level int             `json:"level"`
}

// BaseStorageCapacity is the stored-resource cap of an unimproved parcel.
const BaseStorageCapacity = 100

// Parcel is a single ownable map cell.
type Parcel struct {
	ID    string   `json:"id"`
	Coord HexCoord `json:"coord"`
	Biome Biome    `json:"biome"`

	// Richness scales mining yield; decays by 1 per mine, floor 20.
	Richness int `json:"richness"`

	OwnerID   string    `json:"owner_id,omitempty"`
	OwnerType OwnerType `json:"owner_type,omitempty"`

	DefenseLevel int `json:"defense_level"`

	Iron            int `json:"iron"`
	Fuel            int `json:"fuel"`
	Crystal         int `json:"crystal"`
	StorageCapacity int `json:"storage_capacity"`

	LastMineTs     time.Time `json:"last_mine_ts"`
	ActiveBattleID string    `json:"active_battle_id,omitempty"`

	Improvements []Improvement `json:"improvements"`

	FrontierAccumulated float64 `json:"frontier_accumulated"`
	FrontierPerDay      float64 `json:"frontier_per_day"`

	// PurchasePriceAlgo is the external-currency price of an unclaimed
	// parcel; 0 means not listed for sale.
	PurchasePriceAlgo float64 `json:"purchase_price_algo,omitempty"`
}

// Owned reports whether the parcel has an owner.
func (p *Parcel) Owned() bool {
	return p.OwnerID != ""
}

// UnderBattle reports whether a battle is pending on the parcel.
func (p *Parcel) UnderBattle() bool {
	return p.ActiveBattleID != ""
}

// StoredTotal is the sum of all stored resources.
func (p *Parcel) StoredTotal() int {
	return p.Iron + p.Fuel + p.Crystal
}

// FreeCapacity is the remaining storage headroom.
func (p *Parcel) FreeCapacity() int {
	free := p.StorageCapacity - p.StoredTotal()
	if free < 0 {
		return 0
	}
	return free
}

// Clone returns a deep copy safe to hand out across lock boundaries.
func (p *Parcel) Clone() *Parcel {
	cp := *p
	cp.Improvements = append([]Improvement(nil), p.Improvements...)
	return &cp
}

// ImprovementLevel returns the level of the given improvement type,
// or 0 if it has not been built.
func (p *Parcel) ImprovementLevel(t ImprovementType) int {
	for _, imp := range p.Improvements {
		if imp.Type == t {
			return imp.Level
		}
	}
	return 0
}

// HasImprovement reports whether the improvement type exists at any level.
func (p *Parcel) HasImprovement(t ImprovementType) bool {
	return p.ImprovementLevel(t) > 0
}
