package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Flusher retry schedule.
const (
	defaultFlushInterval = 30 * time.Second
	defaultMaxAttempts   = 8
	retryBaseDelay       = 30 * time.Second
	retryMaxDelay        = 15 * time.Minute
	flushBatchSize       = 50
)

// Flusher drains pending outbox entries to the collaborator in the
// background. Failures back off per entry and cap out as failed; game
// balances are never touched either way.
type Flusher struct {
	store    Store
	collab   Collaborator
	interval time.Duration

	MaxAttempts int

	nowFn func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewFlusher creates a flusher on the given interval. A nil collaborator
// is allowed; flushing then becomes a no-op and entries stay pending.
func NewFlusher(store Store, collab Collaborator, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Flusher{
		store:       store,
		collab:      collab,
		interval:    interval,
		MaxAttempts: defaultMaxAttempts,
		nowFn:       func() time.Time { return time.Now().UTC() },
		stop:        make(chan struct{}),
	}
}

// Run loops until Stop is called. Blocks; start it in a goroutine.
func (f *Flusher) Run() {
	slog.Info("outbox flusher started", "interval", f.interval)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			slog.Info("outbox flusher stopped")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), f.interval)
			if _, err := f.FlushOnce(ctx); err != nil {
				slog.Warn("outbox flush pass failed", "error", err)
			}
			cancel()
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// FlushOnce attempts every due pending entry once and returns how many
// were sent.
func (f *Flusher) FlushOnce(ctx context.Context) (int, error) {
	if f.collab == nil {
		return 0, nil
	}

	entries, err := f.store.PendingOutbox(flushBatchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending outbox: %w", err)
	}

	now := f.nowFn()
	sent := 0
	for i := range entries {
		e := &entries[i]
		if now.Before(nextTryAt(e)) {
			continue
		}
		if err := f.flushEntry(ctx, e); err != nil {
			f.recordFailure(e, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// flushEntry pushes one entry through the collaborator and marks it
// sent.
func (f *Flusher) flushEntry(ctx context.Context, e *Entry) error {
	if e.Kind == KindCredit {
		optedIn, err := f.collab.IsOptedIn(ctx, e.Address)
		if err != nil {
			return err
		}
		if !optedIn {
			return fmt.Errorf("address %s not opted in to the game asset", e.Address)
		}
	}

	txID, err := f.collab.Transfer(ctx, e.Address, e.Amount)
	if err != nil {
		return err
	}

	sentTs := f.nowFn()
	if err := f.store.MarkOutboxSent(e.ID, txID, sentTs); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	slog.Info("outbox entry settled",
		"entry_id", e.ID, "kind", e.Kind, "player_id", e.PlayerID,
		"amount", e.Amount, "tx_id", txID)
	return nil
}

// recordFailure bumps the attempt counter and retires the entry once it
// hits the cap.
func (f *Flusher) recordFailure(e *Entry, cause error) {
	attempts := e.Attempts + 1
	terminal := attempts >= f.MaxAttempts

	if err := f.store.MarkOutboxFailed(e.ID, attempts, cause.Error(), terminal); err != nil {
		slog.Error("outbox failure not recorded", "entry_id", e.ID, "error", err)
		return
	}

	if terminal {
		slog.Error("outbox entry retired",
			"entry_id", e.ID, "kind", e.Kind, "player_id", e.PlayerID,
			"amount", e.Amount, "attempts", attempts, "error", cause)
	} else {
		slog.Warn("outbox entry deferred",
			"entry_id", e.ID, "attempts", attempts, "error", cause)
	}
}

// nextTryAt derives the retry time from persisted fields alone, so the
// schedule survives restarts: exponential from creation, capped.
func nextTryAt(e *Entry) time.Time {
	if e.Attempts == 0 {
		return e.CreatedTs
	}
	delay := retryBaseDelay * (1 << uint(e.Attempts-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return e.CreatedTs.Add(delay)
}
