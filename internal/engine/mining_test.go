package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

func TestMinePlainsParcel(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)

	res, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	if res.Yield.Iron != 8 || res.Yield.Fuel != 4 || res.Yield.Crystal != 1 {
		t.Fatalf("yield = %d/%d/%d, want 8/4/1", res.Yield.Iron, res.Yield.Fuel, res.Yield.Crystal)
	}
	if parcel.Iron != 8 || parcel.Fuel != 4 || parcel.Crystal != 1 {
		t.Fatalf("stored = %d/%d/%d, want 8/4/1", parcel.Iron, parcel.Fuel, parcel.Crystal)
	}
	if parcel.Richness != 79 {
		t.Fatalf("richness = %d, want 79", parcel.Richness)
	}
	if !parcel.LastMineTs.Equal(testNow) {
		t.Fatalf("last mine ts = %v, want %v", parcel.LastMineTs, testNow)
	}
	if p.TotalIronMined != 8 || p.TotalFuelMined != 4 || p.TotalCrystalMined != 1 {
		t.Fatalf("lifetime mined = %d/%d/%d", p.TotalIronMined, p.TotalFuelMined, p.TotalCrystalMined)
	}
}

func TestMineCooldown(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)

	if _, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID}); err != nil {
		t.Fatalf("first mine: %v", err)
	}

	_, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID})
	if !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("second mine error = %v, want ErrOnCooldown", err)
	}
	if parcel.Iron != 8 || parcel.Richness != 79 {
		t.Fatalf("rejected mine mutated parcel: iron=%d richness=%d", parcel.Iron, parcel.Richness)
	}

	s.nowFn = func() time.Time { return testNow.Add(61 * time.Second) }
	if _, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID}); err != nil {
		t.Fatalf("mine after cooldown: %v", err)
	}
	if parcel.Richness != 78 {
		t.Fatalf("richness = %d, want 78 after second mine", parcel.Richness)
	}
}

func TestMineRequiresOwnership(t *testing.T) {
	s := newTestSim()
	owner := addTestPlayer(s, "ada")
	rival := addTestPlayer(s, "brin")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, owner)
	unclaimed := addTestParcel(s, 1, 0, world.BiomePlains, 50, nil)

	if _, err := s.Apply(MineAction{ActorID: rival.ID, ParcelID: parcel.ID}); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("rival mine error = %v, want ErrNotOwned", err)
	}
	if _, err := s.Apply(MineAction{ActorID: rival.ID, ParcelID: unclaimed.ID}); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("unclaimed mine error = %v, want ErrNotOwned", err)
	}
	if _, err := s.Apply(MineAction{ActorID: rival.ID, ParcelID: "99,99"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing parcel error = %v, want ErrNotFound", err)
	}
	if _, err := s.Apply(MineAction{ActorID: "ghost", ParcelID: parcel.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing player error = %v, want ErrNotFound", err)
	}
}

func TestMineStorageCapDropsOverflow(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 100, p)
	parcel.Iron = 95

	res, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	// Raw yield at richness 100 is 10/6/2; only 5 units of room remain.
	if res.Yield.Iron != 5 || res.Yield.Fuel != 0 || res.Yield.Crystal != 0 {
		t.Fatalf("stored yield = %d/%d/%d, want 5/0/0", res.Yield.Iron, res.Yield.Fuel, res.Yield.Crystal)
	}
	if got := parcel.StoredTotal(); got != parcel.StorageCapacity {
		t.Fatalf("stored total = %d, want capacity %d", got, parcel.StorageCapacity)
	}
	if p.TotalIronMined != 5 || p.TotalFuelMined != 0 {
		t.Fatalf("lifetime counters credit dropped overflow: %d/%d", p.TotalIronMined, p.TotalFuelMined)
	}
}

func TestMineRichnessFloor(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 20, p)

	if _, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID}); err != nil {
		t.Fatalf("mine: %v", err)
	}
	if parcel.Richness != 20 {
		t.Fatalf("richness = %d, want floor 20", parcel.Richness)
	}
}

func TestStorageNeverExceedsCapacity(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomeVolcanic, 100, p)
	parcel.StorageCapacity = 25

	for i := 0; i < 6; i++ {
		s.nowFn = func() time.Time { return testNow.Add(time.Duration(i) * 2 * time.Minute) }
		if _, err := s.Apply(MineAction{ActorID: p.ID, ParcelID: parcel.ID}); err != nil {
			t.Fatalf("mine %d: %v", i, err)
		}
		if parcel.StoredTotal() > parcel.StorageCapacity {
			t.Fatalf("pass %d: stored %d exceeds capacity %d", i, parcel.StoredTotal(), parcel.StorageCapacity)
		}
	}
}

func TestCollectDrainsOwnedParcels(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	a := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)
	b := addTestParcel(s, 1, 0, world.BiomeForest, 60, p)
	a.Iron, a.Fuel = 12, 3
	b.Crystal = 7

	startIron, startFuel, startCrystal := p.Iron, p.Fuel, p.Crystal

	res, err := s.Apply(CollectAction{ActorID: p.ID})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.Collected.Iron != 12 || res.Collected.Fuel != 3 || res.Collected.Crystal != 7 || res.Collected.Parcels != 2 {
		t.Fatalf("collected = %+v", res.Collected)
	}
	if p.Iron != startIron+12 || p.Fuel != startFuel+3 || p.Crystal != startCrystal+7 {
		t.Fatalf("balances = %d/%d/%d", p.Iron, p.Fuel, p.Crystal)
	}
	if a.StoredTotal() != 0 || b.StoredTotal() != 0 {
		t.Fatal("parcels not drained")
	}

	// Second collect is a harmless no-op.
	res, err = s.Apply(CollectAction{ActorID: p.ID})
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if res.Collected.Parcels != 0 || res.Collected.Iron != 0 {
		t.Fatalf("second collect = %+v", res.Collected)
	}
}

func TestClaimFrontier(t *testing.T) {
	s := newTestSim()
	rec := &recordingSettlement{}
	s.SetSettlement(rec)

	p := addTestPlayer(s, "ada")
	p.WalletAddress = "ALGO123"
	a := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)
	b := addTestParcel(s, 1, 0, world.BiomeForest, 60, p)
	a.FrontierAccumulated = 1.5
	b.FrontierAccumulated = 2.5

	res, err := s.Apply(ClaimFrontierAction{ActorID: p.ID})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.ClaimedFrontier != 4.0 {
		t.Fatalf("claimed = %v, want 4.0", res.ClaimedFrontier)
	}
	if p.FrontierBalance != 104.0 || p.FrontierEarned != 4.0 {
		t.Fatalf("balance = %v earned = %v", p.FrontierBalance, p.FrontierEarned)
	}
	if a.FrontierAccumulated != 0 || b.FrontierAccumulated != 0 {
		t.Fatal("accrual not zeroed")
	}
	if len(rec.credits) != 1 || rec.credits[0] != 4.0 {
		t.Fatalf("recorded credits = %v", rec.credits)
	}

	// Nothing left: claim again yields zero and records nothing.
	res, err = s.Apply(ClaimFrontierAction{ActorID: p.ID})
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if res.ClaimedFrontier != 0 || len(rec.credits) != 1 {
		t.Fatalf("second claim = %v credits = %v", res.ClaimedFrontier, rec.credits)
	}
}

func TestClaimFrontierSurvivesRecorderFailure(t *testing.T) {
	s := newTestSim()
	s.SetSettlement(&recordingSettlement{fail: true})

	p := addTestPlayer(s, "ada")
	p.WalletAddress = "ALGO123"
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)
	parcel.FrontierAccumulated = 3.0

	res, err := s.Apply(ClaimFrontierAction{ActorID: p.ID})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.ClaimedFrontier != 3.0 || p.FrontierBalance != 103.0 {
		t.Fatalf("local balance did not stand: claimed=%v balance=%v", res.ClaimedFrontier, p.FrontierBalance)
	}
}

func TestClaimFrontierWithoutWalletStaysLocal(t *testing.T) {
	s := newTestSim()
	rec := &recordingSettlement{}
	s.SetSettlement(rec)

	p := addTestPlayer(s, "ada")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)
	parcel.FrontierAccumulated = 2.0

	if _, err := s.Apply(ClaimFrontierAction{ActorID: p.ID}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if p.FrontierBalance != 102.0 {
		t.Fatalf("balance = %v, want 102", p.FrontierBalance)
	}
	if len(rec.credits) != 0 {
		t.Fatalf("unbound wallet should not record credits, got %v", rec.credits)
	}
}
