package persistence

import (
	"fmt"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/ledger"
)

type outboxRow struct {
	ID        string  `db:"id"`
	PlayerID  string  `db:"player_id"`
	Address   string  `db:"address"`
	Amount    float64 `db:"amount"`
	Kind      string  `db:"kind"`
	Status    string  `db:"status"`
	Attempts  int     `db:"attempts"`
	LastError string  `db:"last_error"`
	CreatedTs int64   `db:"created_ts"`
	SentTs    int64   `db:"sent_ts"`
	TxID      string  `db:"tx_id"`
}

func outboxToRow(e *ledger.Entry) *outboxRow {
	return &outboxRow{
		ID:        e.ID,
		PlayerID:  e.PlayerID,
		Address:   e.Address,
		Amount:    e.Amount,
		Kind:      e.Kind,
		Status:    e.Status,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		CreatedTs: unixOrZero(e.CreatedTs),
		SentTs:    unixOrZero(e.SentTs),
		TxID:      e.TxID,
	}
}

func outboxFromRow(row *outboxRow) ledger.Entry {
	return ledger.Entry{
		ID:        row.ID,
		PlayerID:  row.PlayerID,
		Address:   row.Address,
		Amount:    row.Amount,
		Kind:      row.Kind,
		Status:    row.Status,
		Attempts:  row.Attempts,
		LastError: row.LastError,
		CreatedTs: timeFromUnix(row.CreatedTs),
		SentTs:    timeFromUnix(row.SentTs),
		TxID:      row.TxID,
	}
}

// AppendOutbox durably records a settlement intent. Outbox rows survive
// full-replace world saves; they are owned by the flusher, not the sweep.
func (s *Store) AppendOutbox(e *ledger.Entry) error {
	q := `INSERT INTO ledger_outbox
		(id, player_id, address, amount, kind, status, attempts, last_error, created_ts, sent_ts, tx_id)
		VALUES
		(:id, :player_id, :address, :amount, :kind, :status, :attempts, :last_error, :created_ts, :sent_ts, :tx_id)`
	if _, err := s.conn.NamedExec(q, outboxToRow(e)); err != nil {
		return fmt.Errorf("append outbox entry %s: %w", e.ID, err)
	}
	return nil
}

// PendingOutbox returns up to limit pending entries, oldest first.
func (s *Store) PendingOutbox(limit int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []outboxRow
	q := s.conn.Rebind(
		"SELECT * FROM ledger_outbox WHERE status = ? ORDER BY created_ts, id LIMIT ?")
	if err := s.conn.Select(&rows, q, ledger.StatusPending, limit); err != nil {
		return nil, fmt.Errorf("load pending outbox: %w", err)
	}
	entries := make([]ledger.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, outboxFromRow(&rows[i]))
	}
	return entries, nil
}

// MarkOutboxSent records a confirmed external transfer.
func (s *Store) MarkOutboxSent(id, txID string, sentTs time.Time) error {
	q := s.conn.Rebind(
		"UPDATE ledger_outbox SET status = ?, tx_id = ?, sent_ts = ? WHERE id = ?")
	if _, err := s.conn.Exec(q, ledger.StatusSent, txID, unixOrZero(sentTs), id); err != nil {
		return fmt.Errorf("mark outbox %s sent: %w", id, err)
	}
	return nil
}

// MarkOutboxFailed bumps the attempt counter; terminal failures are
// retired so the flusher stops retrying them.
func (s *Store) MarkOutboxFailed(id string, attempts int, lastError string, terminal bool) error {
	status := ledger.StatusPending
	if terminal {
		status = ledger.StatusFailed
	}
	q := s.conn.Rebind(
		"UPDATE ledger_outbox SET status = ?, attempts = ?, last_error = ? WHERE id = ?")
	if _, err := s.conn.Exec(q, status, attempts, lastError, id); err != nil {
		return fmt.Errorf("mark outbox %s failed: %w", id, err)
	}
	return nil
}

// OutboxEntries lists recent outbox rows regardless of status, newest
// first. Admin visibility into settlement health.
func (s *Store) OutboxEntries(limit int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxRow
	q := s.conn.Rebind("SELECT * FROM ledger_outbox ORDER BY created_ts DESC, id LIMIT ?")
	if err := s.conn.Select(&rows, q, limit); err != nil {
		return nil, fmt.Errorf("load outbox entries: %w", err)
	}
	entries := make([]ledger.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, outboxFromRow(&rows[i]))
	}
	return entries, nil
}
