package persistence

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/engine"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// snapshotKeep is how many archive snapshots survive pruning.
const snapshotKeep = 7

// SnapshotInfo describes one archived snapshot without its payload.
type SnapshotInfo struct {
	ID        string    `db:"id" json:"id"`
	CreatedTs time.Time `json:"created_ts"`
	Checksum  string    `db:"checksum" json:"checksum"`
	Size      int       `json:"size_bytes"`
}

type snapshotRow struct {
	ID        string `db:"id"`
	CreatedTs int64  `db:"created_ts"`
	Checksum  string `db:"checksum"`
	Data      []byte `db:"data"`
}

// SaveSnapshot archives a compressed, checksummed copy of the world
// beside the live tables and prunes old archives. Returns the snapshot
// id. Archives are the recovery path when the live tables are damaged.
func (s *Store) SaveSnapshot(snap *engine.SimSnapshot) (string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	compressed, err := compressLZ4(raw)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	sum := blake3.Sum256(compressed)
	checksum := hex.EncodeToString(sum[:])

	id := uuid.NewString()
	q := s.conn.Rebind(
		"INSERT INTO snapshots (id, created_ts, checksum, data) VALUES (?, ?, ?, ?)")
	if _, err := s.conn.Exec(q, id, s.nowFn().Unix(), checksum, compressed); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	prune := s.conn.Rebind(`DELETE FROM snapshots WHERE id NOT IN (
		SELECT id FROM snapshots ORDER BY created_ts DESC, id LIMIT ?)`)
	if _, err := s.conn.Exec(prune, snapshotKeep); err != nil {
		return "", fmt.Errorf("prune snapshots: %w", err)
	}
	return id, nil
}

// LoadLatestSnapshot restores the newest archived snapshot, verifying
// its checksum before decoding. Returns nil when no archive exists.
func (s *Store) LoadLatestSnapshot() (*engine.SimSnapshot, error) {
	var row snapshotRow
	err := s.conn.Get(&row,
		"SELECT * FROM snapshots ORDER BY created_ts DESC, id LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decodeSnapshot(&row)
}

// LoadSnapshot restores a specific archived snapshot by id.
func (s *Store) LoadSnapshot(id string) (*engine.SimSnapshot, error) {
	var row snapshotRow
	err := s.conn.Get(&row, s.conn.Rebind("SELECT * FROM snapshots WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return decodeSnapshot(&row)
}

func decodeSnapshot(row *snapshotRow) (*engine.SimSnapshot, error) {
	sum := blake3.Sum256(row.Data)
	if got := hex.EncodeToString(sum[:]); got != row.Checksum {
		return nil, fmt.Errorf("snapshot %s checksum mismatch: stored %s, computed %s",
			row.ID, row.Checksum, got)
	}
	raw, err := decompressLZ4(row.Data)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %s: %w", row.ID, err)
	}
	var snap engine.SimSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", row.ID, err)
	}
	return &snap, nil
}

// ListSnapshots returns archive metadata, newest first.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	var rows []snapshotRow
	err := s.conn.Select(&rows,
		"SELECT * FROM snapshots ORDER BY created_ts DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	infos := make([]SnapshotInfo, 0, len(rows))
	for i := range rows {
		infos = append(infos, SnapshotInfo{
			ID:        rows[i].ID,
			CreatedTs: timeFromUnix(rows[i].CreatedTs),
			Checksum:  rows[i].Checksum,
			Size:      len(rows[i].Data),
		})
	}
	return infos, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
