package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper drives the background passes: frontier accrual, battle
// resolution, drone returns, and the AI faction loop. It mutates the
// world only through the same locked entry points as everything else.
type Sweeper struct {
	Sim      *Sim
	Interval time.Duration

	// PersistEvery triggers OnPersist every N sweeps; 0 disables.
	PersistEvery int
	OnPersist    func()

	SweepCount uint64
	LastSweep  time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a sweeper on the given interval.
func NewSweeper(sim *Sim, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 12 * time.Second
	}
	return &Sweeper{
		Sim:          sim,
		Interval:     interval,
		PersistEvery: 5,
		stop:         make(chan struct{}),
	}
}

// Run loops until Stop is called. Blocks; start it in a goroutine.
func (w *Sweeper) Run() {
	slog.Info("sweep engine started", "interval", w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			slog.Info("sweep engine stopped", "sweeps", w.SweepCount)
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Sweep runs one full pass. Also invoked directly by the admin
// force-sweep endpoint.
func (w *Sweeper) Sweep() {
	now := w.Sim.nowFn()
	w.SweepCount++
	w.LastSweep = now

	accrued := w.Sim.AccrueFrontier(now)
	resolved := w.Sim.ResolveDueBattles(now)
	returned := w.Sim.AdvanceDrones(now)
	w.Sim.RunAIPass(now)

	if resolved > 0 || returned > 0 {
		slog.Info("sweep pass",
			"count", w.SweepCount,
			"battles_resolved", resolved,
			"drones_returned", returned,
			"parcels_accrued", accrued)
	}

	if w.OnPersist != nil && w.PersistEvery > 0 && w.SweepCount%uint64(w.PersistEvery) == 0 {
		w.OnPersist()
	}
}

// AccrueFrontier adds FrontierPerDay * elapsed to every producing
// parcel, tracked from the persisted last-accrual timestamp so restarts
// never double-pay or skip. Returns the number of parcels credited.
func (s *Sim) AccrueFrontier(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.Meta.LastAccrual)
	if elapsed <= 0 {
		return 0
	}
	days := elapsed.Seconds() / 86400.0

	credited := 0
	for _, p := range s.Grid.Parcels {
		if p.FrontierPerDay <= 0 {
			continue
		}
		p.FrontierAccumulated += p.FrontierPerDay * days
		credited++
	}
	s.Meta.LastAccrual = now
	return credited
}
