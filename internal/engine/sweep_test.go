package engine

import (
	"math"
	"testing"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

func TestAccrueFrontier(t *testing.T) {
	s := newTestSim()
	p := addTestPlayer(s, "ada")
	producing := addTestParcel(s, 0, 0, world.BiomePlains, 80, p)
	producing.FrontierPerDay = 2.0
	idle := addTestParcel(s, 1, 0, world.BiomePlains, 60, p)

	// Twelve hours at 2.0/day accrues 1.0.
	credited := s.AccrueFrontier(testNow.Add(12 * time.Hour))
	if credited != 1 {
		t.Fatalf("credited %d parcels, want 1", credited)
	}
	if math.Abs(producing.FrontierAccumulated-1.0) > 1e-9 {
		t.Fatalf("accumulated = %v, want 1.0", producing.FrontierAccumulated)
	}
	if idle.FrontierAccumulated != 0 {
		t.Fatalf("idle parcel accrued %v", idle.FrontierAccumulated)
	}
	if !s.Meta.LastAccrual.Equal(testNow.Add(12 * time.Hour)) {
		t.Fatalf("last accrual = %v", s.Meta.LastAccrual)
	}

	// Same timestamp again: zero elapsed, zero drift.
	if credited := s.AccrueFrontier(testNow.Add(12 * time.Hour)); credited != 0 {
		t.Fatalf("repeat accrual credited %d", credited)
	}
	if math.Abs(producing.FrontierAccumulated-1.0) > 1e-9 {
		t.Fatalf("repeat accrual drifted to %v", producing.FrontierAccumulated)
	}

	// Another six hours adds half as much.
	s.AccrueFrontier(testNow.Add(18 * time.Hour))
	if math.Abs(producing.FrontierAccumulated-1.5) > 1e-9 {
		t.Fatalf("accumulated = %v, want 1.5", producing.FrontierAccumulated)
	}
}

func TestSweepRunsAllPhases(t *testing.T) {
	s := newTestSim()
	attacker := addTestPlayer(s, "ada")
	defender := addTestPlayer(s, "brin")
	parcel := addTestParcel(s, 0, 0, world.BiomePlains, 80, defender)
	parcel.FrontierPerDay = 1.0
	b := addTestBattle(s, attacker, defender, parcel, 20, 30, -0.10)

	attacker.Drones = append(attacker.Drones, ReconDrone{
		ID:             "drone-1",
		TargetParcelID: parcel.ID,
		DeployedAt:     testNow.Add(-20 * time.Minute),
		Status:         DroneSurveying,
	})

	later := testNow.Add(time.Hour)
	s.nowFn = func() time.Time { return later }

	w := NewSweeper(s, 0)
	w.Sweep()

	if b.Status != BattleResolved {
		t.Fatal("sweep left the due battle pending")
	}
	if attacker.Drones[0].Status != DroneReturned {
		t.Fatal("sweep left the due drone out")
	}
	if parcel.FrontierAccumulated == 0 {
		t.Fatal("sweep skipped accrual")
	}
	if w.SweepCount != 1 || !w.LastSweep.Equal(later) {
		t.Fatalf("sweeper bookkeeping: count=%d last=%v", w.SweepCount, w.LastSweep)
	}
}

func TestSweepPersistCadence(t *testing.T) {
	s := newTestSim()
	persisted := 0

	w := NewSweeper(s, time.Second)
	w.PersistEvery = 2
	w.OnPersist = func() { persisted++ }

	for i := 0; i < 5; i++ {
		w.Sweep()
	}
	if persisted != 2 {
		t.Fatalf("persisted %d times over 5 sweeps, want 2", persisted)
	}
}

func TestSweeperStopIdempotent(t *testing.T) {
	s := newTestSim()
	w := NewSweeper(s, time.Minute)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
