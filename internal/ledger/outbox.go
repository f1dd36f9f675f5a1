package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outbox entry kinds and statuses.
const (
	KindCredit = "credit"
	KindDebit  = "debit"

	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Entry is one durable settlement intent. Written in the same lock
// scope as the balance change it mirrors, flushed outward later.
type Entry struct {
	ID        string    `db:"id" json:"id"`
	PlayerID  string    `db:"player_id" json:"player_id"`
	Address   string    `db:"address" json:"address"`
	Amount    float64   `db:"amount" json:"amount"`
	Kind      string    `db:"kind" json:"kind"`
	Status    string    `db:"status" json:"status"`
	Attempts  int       `db:"attempts" json:"attempts"`
	LastError string    `db:"last_error" json:"last_error,omitempty"`
	CreatedTs time.Time `db:"created_ts" json:"created_ts"`
	SentTs    time.Time `db:"sent_ts" json:"sent_ts,omitempty"`
	TxID      string    `db:"tx_id" json:"tx_id,omitempty"`
}

// Store is the durable home of outbox entries.
type Store interface {
	AppendOutbox(e *Entry) error
	PendingOutbox(limit int) ([]Entry, error)
	MarkOutboxSent(id, txID string, sentTs time.Time) error
	MarkOutboxFailed(id string, attempts int, lastError string, terminal bool) error
}

// Outbox records settlement intents. It satisfies the engine's
// settlement recorder so balance changes and their outbox rows commit
// together.
type Outbox struct {
	store Store
	nowFn func() time.Time
}

// NewOutbox wraps a store for intent recording.
func NewOutbox(store Store) *Outbox {
	return &Outbox{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// RecordCredit enqueues an outbound token credit.
func (o *Outbox) RecordCredit(playerID, address string, amount float64) error {
	return o.record(playerID, address, amount, KindCredit)
}

// RecordDebit enqueues an outbound token charge.
func (o *Outbox) RecordDebit(playerID, address string, amount float64) error {
	return o.record(playerID, address, amount, KindDebit)
}

func (o *Outbox) record(playerID, address string, amount float64, kind string) error {
	if amount <= 0 {
		return fmt.Errorf("outbox %s amount must be positive, got %v", kind, amount)
	}
	e := &Entry{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Address:   address,
		Amount:    amount,
		Kind:      kind,
		Status:    StatusPending,
		CreatedTs: o.nowFn(),
	}
	if err := o.store.AppendOutbox(e); err != nil {
		return fmt.Errorf("append outbox %s for %s: %w", kind, playerID, err)
	}
	return nil
}
