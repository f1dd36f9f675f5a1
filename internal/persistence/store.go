// Package persistence stores the world in SQL: SQLite by default,
// Postgres by configuration. Saves are full-replace transactions from a
// consistent snapshot, so a loaded world is always one the engine
// actually produced.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store wraps a SQL connection for world state persistence.
type Store struct {
	conn    *sqlx.DB
	dialect string
	nowFn   func() time.Time
}

// Open connects, applies pragmas, and migrates the schema. The sqlite
// dialect runs single-connection WAL; postgres uses the pgx driver.
func Open(dialect, dsn string) (*Store, error) {
	var driverName string
	switch dialect {
	case "", DialectSQLite:
		dialect = DialectSQLite
		driverName = "sqlite"
		if dsn == "" {
			dsn = "frontier.db"
		}
	case DialectPostgres:
		driverName = "pgx"
		if dsn == "" {
			return nil, errors.New("postgres dialect requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unsupported db dialect %q", dialect)
	}

	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One writer connection keeps sqlite out of SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		if _, err := conn.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	s := &Store{
		conn:    conn,
		dialect: dialect,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Dialect reports the active dialect.
func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS parcels (
		id TEXT PRIMARY KEY,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		biome INTEGER NOT NULL,
		richness INTEGER NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		owner_type TEXT NOT NULL DEFAULT '',
		defense_level INTEGER NOT NULL,
		iron INTEGER NOT NULL,
		fuel INTEGER NOT NULL,
		crystal INTEGER NOT NULL,
		storage_capacity INTEGER NOT NULL,
		last_mine_ts BIGINT NOT NULL,
		active_battle_id TEXT NOT NULL DEFAULT '',
		improvements_json TEXT NOT NULL,
		frontier_accumulated REAL NOT NULL,
		frontier_per_day REAL NOT NULL,
		purchase_price_algo REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_ai INTEGER NOT NULL,
		behavior TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		welcome_bonus_received INTEGER NOT NULL,
		iron INTEGER NOT NULL,
		fuel INTEGER NOT NULL,
		crystal INTEGER NOT NULL,
		frontier_balance REAL NOT NULL,
		total_iron_mined INTEGER NOT NULL,
		total_fuel_mined INTEGER NOT NULL,
		total_crystal_mined INTEGER NOT NULL,
		frontier_earned REAL NOT NULL,
		frontier_burned REAL NOT NULL,
		attacks_won INTEGER NOT NULL,
		attacks_lost INTEGER NOT NULL,
		active_commander_id TEXT NOT NULL DEFAULT '',
		parcel_ids_json TEXT NOT NULL,
		commanders_json TEXT NOT NULL,
		special_attacks_json TEXT NOT NULL,
		drones_json TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS battles (
		id TEXT PRIMARY KEY,
		attacker_id TEXT NOT NULL,
		defender_id TEXT NOT NULL DEFAULT '',
		parcel_id TEXT NOT NULL,
		attacker_power REAL NOT NULL,
		defender_power REAL NOT NULL,
		troops INTEGER NOT NULL,
		burned_iron INTEGER NOT NULL,
		burned_fuel INTEGER NOT NULL,
		start_ts BIGINT NOT NULL,
		resolve_ts BIGINT NOT NULL,
		status TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		rand_factor REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		parcel_id TEXT NOT NULL DEFAULT '',
		battle_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		ts BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_outbox (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		address TEXT NOT NULL,
		amount REAL NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL,
		sent_ts BIGINT NOT NULL,
		tx_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_parcels_owner ON parcels(owner_id);
	CREATE INDEX IF NOT EXISTS idx_battles_status ON battles(status);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON ledger_outbox(status);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}

	blobType := "BLOB"
	if s.dialect == DialectPostgres {
		blobType = "BYTEA"
	}
	snapshots := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		created_ts BIGINT NOT NULL,
		checksum TEXT NOT NULL,
		data %s NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_ts);
	`, blobType)
	_, err := s.conn.Exec(snapshots)
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (s *Store) SaveMeta(key, value string) error {
	q := s.conn.Rebind(
		"INSERT INTO world_meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value")
	_, err := s.conn.Exec(q, key, value)
	return err
}

// GetMeta retrieves a metadata value, or "" when the key is absent.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.Get(&value, s.conn.Rebind("SELECT value FROM world_meta WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Initialized reports whether a world has ever been saved.
func (s *Store) Initialized() (bool, error) {
	v, err := s.GetMeta(metaInitialized)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// Meta keys.
const (
	metaInitialized = "initialized"
	metaSeed        = "seed"
	metaRadius      = "radius"
	metaAssetID     = "asset_id"
	metaLastAccrual = "last_accrual"
	metaCreatedAt   = "created_at"
)

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseInt64(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
