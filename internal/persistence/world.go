package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/engine"
	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
	"github.com/jmoiron/sqlx"
)

type parcelRow struct {
	ID                  string  `db:"id"`
	Q                   int     `db:"q"`
	R                   int     `db:"r"`
	Biome               int     `db:"biome"`
	Richness            int     `db:"richness"`
	OwnerID             string  `db:"owner_id"`
	OwnerType           string  `db:"owner_type"`
	DefenseLevel        int     `db:"defense_level"`
	Iron                int     `db:"iron"`
	Fuel                int     `db:"fuel"`
	Crystal             int     `db:"crystal"`
	StorageCapacity     int     `db:"storage_capacity"`
	LastMineTs          int64   `db:"last_mine_ts"`
	ActiveBattleID      string  `db:"active_battle_id"`
	ImprovementsJSON    string  `db:"improvements_json"`
	FrontierAccumulated float64 `db:"frontier_accumulated"`
	FrontierPerDay      float64 `db:"frontier_per_day"`
	PurchasePriceAlgo   float64 `db:"purchase_price_algo"`
}

type playerRow struct {
	ID                   string  `db:"id"`
	Name                 string  `db:"name"`
	IsAI                 int     `db:"is_ai"`
	Behavior             string  `db:"behavior"`
	WalletAddress        string  `db:"wallet_address"`
	WelcomeBonusReceived int     `db:"welcome_bonus_received"`
	Iron                 int     `db:"iron"`
	Fuel                 int     `db:"fuel"`
	Crystal              int     `db:"crystal"`
	FrontierBalance      float64 `db:"frontier_balance"`
	TotalIronMined       int     `db:"total_iron_mined"`
	TotalFuelMined       int     `db:"total_fuel_mined"`
	TotalCrystalMined    int     `db:"total_crystal_mined"`
	FrontierEarned       float64 `db:"frontier_earned"`
	FrontierBurned       float64 `db:"frontier_burned"`
	AttacksWon           int     `db:"attacks_won"`
	AttacksLost          int     `db:"attacks_lost"`
	ActiveCommanderID    string  `db:"active_commander_id"`
	ParcelIDsJSON        string  `db:"parcel_ids_json"`
	CommandersJSON       string  `db:"commanders_json"`
	SpecialAttacksJSON   string  `db:"special_attacks_json"`
	DronesJSON           string  `db:"drones_json"`
	CreatedAt            int64   `db:"created_at"`
}

type battleRow struct {
	ID            string  `db:"id"`
	AttackerID    string  `db:"attacker_id"`
	DefenderID    string  `db:"defender_id"`
	ParcelID      string  `db:"parcel_id"`
	AttackerPower float64 `db:"attacker_power"`
	DefenderPower float64 `db:"defender_power"`
	Troops        int     `db:"troops"`
	BurnedIron    int     `db:"burned_iron"`
	BurnedFuel    int     `db:"burned_fuel"`
	StartTs       int64   `db:"start_ts"`
	ResolveTs     int64   `db:"resolve_ts"`
	Status        string  `db:"status"`
	Outcome       string  `db:"outcome"`
	RandFactor    float64 `db:"rand_factor"`
}

type eventRow struct {
	ID          string `db:"id"`
	Seq         int    `db:"seq"`
	Type        string `db:"type"`
	ActorID     string `db:"actor_id"`
	ParcelID    string `db:"parcel_id"`
	BattleID    string `db:"battle_id"`
	Description string `db:"description"`
	Ts          int64  `db:"ts"`
}

const (
	insertParcel = `INSERT INTO parcels
		(id, q, r, biome, richness, owner_id, owner_type, defense_level,
		 iron, fuel, crystal, storage_capacity, last_mine_ts, active_battle_id,
		 improvements_json, frontier_accumulated, frontier_per_day, purchase_price_algo)
		VALUES
		(:id, :q, :r, :biome, :richness, :owner_id, :owner_type, :defense_level,
		 :iron, :fuel, :crystal, :storage_capacity, :last_mine_ts, :active_battle_id,
		 :improvements_json, :frontier_accumulated, :frontier_per_day, :purchase_price_algo)`

	insertPlayer = `INSERT INTO players
		(id, name, is_ai, behavior, wallet_address, welcome_bonus_received,
		 iron, fuel, crystal, frontier_balance,
		 total_iron_mined, total_fuel_mined, total_crystal_mined,
		 frontier_earned, frontier_burned, attacks_won, attacks_lost,
		 active_commander_id, parcel_ids_json, commanders_json,
		 special_attacks_json, drones_json, created_at)
		VALUES
		(:id, :name, :is_ai, :behavior, :wallet_address, :welcome_bonus_received,
		 :iron, :fuel, :crystal, :frontier_balance,
		 :total_iron_mined, :total_fuel_mined, :total_crystal_mined,
		 :frontier_earned, :frontier_burned, :attacks_won, :attacks_lost,
		 :active_commander_id, :parcel_ids_json, :commanders_json,
		 :special_attacks_json, :drones_json, :created_at)`

	insertBattle = `INSERT INTO battles
		(id, attacker_id, defender_id, parcel_id, attacker_power, defender_power,
		 troops, burned_iron, burned_fuel, start_ts, resolve_ts, status, outcome, rand_factor)
		VALUES
		(:id, :attacker_id, :defender_id, :parcel_id, :attacker_power, :defender_power,
		 :troops, :burned_iron, :burned_fuel, :start_ts, :resolve_ts, :status, :outcome, :rand_factor)`

	insertEvent = `INSERT INTO events
		(id, seq, type, actor_id, parcel_id, battle_id, description, ts)
		VALUES
		(:id, :seq, :type, :actor_id, :parcel_id, :battle_id, :description, :ts)`
)

// SaveWorldState replaces the persisted world with the snapshot in one
// transaction. Partial saves are impossible; a crash mid-save leaves the
// previous world intact.
func (s *Store) SaveWorldState(snap *engine.SimSnapshot) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"parcels", "players", "battles", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveParcels(tx, snap.Parcels); err != nil {
		return err
	}
	if err := savePlayers(tx, snap.Players); err != nil {
		return err
	}
	if err := saveBattles(tx, snap.Battles); err != nil {
		return err
	}
	if err := saveEvents(tx, snap.Events); err != nil {
		return err
	}
	if err := saveMetaTx(tx, snap.Meta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func saveParcels(tx *sqlx.Tx, parcels []world.Parcel) error {
	stmt, err := tx.PrepareNamed(insertParcel)
	if err != nil {
		return fmt.Errorf("prepare parcel insert: %w", err)
	}
	defer stmt.Close()

	for i := range parcels {
		row, err := parcelToRow(&parcels[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert parcel %s: %w", parcels[i].ID, err)
		}
	}
	return nil
}

func savePlayers(tx *sqlx.Tx, players []engine.Player) error {
	stmt, err := tx.PrepareNamed(insertPlayer)
	if err != nil {
		return fmt.Errorf("prepare player insert: %w", err)
	}
	defer stmt.Close()

	for i := range players {
		row, err := playerToRow(&players[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert player %s: %w", players[i].ID, err)
		}
	}
	return nil
}

func saveBattles(tx *sqlx.Tx, battles []engine.Battle) error {
	stmt, err := tx.PrepareNamed(insertBattle)
	if err != nil {
		return fmt.Errorf("prepare battle insert: %w", err)
	}
	defer stmt.Close()

	for i := range battles {
		if _, err := stmt.Exec(battleToRow(&battles[i])); err != nil {
			return fmt.Errorf("insert battle %s: %w", battles[i].ID, err)
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	stmt, err := tx.PrepareNamed(insertEvent)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		if _, err := stmt.Exec(eventToRow(&events[i], i)); err != nil {
			return fmt.Errorf("insert event %s: %w", events[i].ID, err)
		}
	}
	return nil
}

func saveMetaTx(tx *sqlx.Tx, meta engine.WorldMeta) error {
	pairs := [][2]string{
		{metaInitialized, "1"},
		{metaSeed, strconv.FormatInt(meta.Seed, 10)},
		{metaRadius, strconv.Itoa(meta.Radius)},
		{metaAssetID, strconv.FormatUint(meta.AssetID, 10)},
		{metaLastAccrual, strconv.FormatInt(unixOrZero(meta.LastAccrual), 10)},
		{metaCreatedAt, strconv.FormatInt(unixOrZero(meta.CreatedAt), 10)},
	}
	q := tx.Rebind(
		"INSERT INTO world_meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value")
	for _, kv := range pairs {
		if _, err := tx.Exec(q, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save meta %s: %w", kv[0], err)
		}
	}
	return nil
}

// LoadWorldState reads the persisted world back into a snapshot the
// engine can restore from.
func (s *Store) LoadWorldState() (*engine.SimSnapshot, error) {
	snap := &engine.SimSnapshot{}

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	snap.Meta = meta

	var parcelRows []parcelRow
	if err := s.conn.Select(&parcelRows, "SELECT * FROM parcels ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load parcels: %w", err)
	}
	for i := range parcelRows {
		p, err := parcelFromRow(&parcelRows[i])
		if err != nil {
			return nil, err
		}
		snap.Parcels = append(snap.Parcels, *p)
	}

	var playerRows []playerRow
	if err := s.conn.Select(&playerRows, "SELECT * FROM players ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	for i := range playerRows {
		p, err := playerFromRow(&playerRows[i])
		if err != nil {
			return nil, err
		}
		snap.Players = append(snap.Players, *p)
	}

	var battleRows []battleRow
	if err := s.conn.Select(&battleRows, "SELECT * FROM battles ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load battles: %w", err)
	}
	for i := range battleRows {
		snap.Battles = append(snap.Battles, *battleFromRow(&battleRows[i]))
	}

	var eventRows []eventRow
	if err := s.conn.Select(&eventRows, "SELECT * FROM events ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for i := range eventRows {
		snap.Events = append(snap.Events, *eventFromRow(&eventRows[i]))
	}

	return snap, nil
}

func (s *Store) loadMeta() (engine.WorldMeta, error) {
	var meta engine.WorldMeta

	seed, err := s.GetMeta(metaSeed)
	if err != nil {
		return meta, fmt.Errorf("load meta: %w", err)
	}
	radius, err := s.GetMeta(metaRadius)
	if err != nil {
		return meta, fmt.Errorf("load meta: %w", err)
	}
	assetID, err := s.GetMeta(metaAssetID)
	if err != nil {
		return meta, fmt.Errorf("load meta: %w", err)
	}
	lastAccrual, err := s.GetMeta(metaLastAccrual)
	if err != nil {
		return meta, fmt.Errorf("load meta: %w", err)
	}
	createdAt, err := s.GetMeta(metaCreatedAt)
	if err != nil {
		return meta, fmt.Errorf("load meta: %w", err)
	}

	meta.Seed = parseInt64(seed)
	r, _ := strconv.Atoi(radius)
	meta.Radius = r
	meta.AssetID, _ = strconv.ParseUint(assetID, 10, 64)
	meta.LastAccrual = timeFromUnix(parseInt64(lastAccrual))
	meta.CreatedAt = timeFromUnix(parseInt64(createdAt))
	return meta, nil
}

// SaveAssetID records the ledger asset id outside a full save, so a
// freshly created asset survives a crash before the first sweep.
func (s *Store) SaveAssetID(id uint64) error {
	return s.SaveMeta(metaAssetID, strconv.FormatUint(id, 10))
}

// RecentEvents returns up to limit persisted events, newest first.
func (s *Store) RecentEvents(limit int) ([]engine.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []eventRow
	q := s.conn.Rebind("SELECT * FROM events ORDER BY seq DESC LIMIT ?")
	if err := s.conn.Select(&rows, q, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	events := make([]engine.Event, 0, len(rows))
	for i := range rows {
		events = append(events, *eventFromRow(&rows[i]))
	}
	return events, nil
}

func parcelToRow(p *world.Parcel) (*parcelRow, error) {
	improvements, err := asJSON(p.Improvements)
	if err != nil {
		return nil, fmt.Errorf("encode improvements for %s: %w", p.ID, err)
	}
	return &parcelRow{
		ID:                  p.ID,
		Q:                   p.Coord.Q,
		R:                   p.Coord.R,
		Biome:               int(p.Biome),
		Richness:            p.Richness,
		OwnerID:             p.OwnerID,
		OwnerType:           string(p.OwnerType),
		DefenseLevel:        p.DefenseLevel,
		Iron:                p.Iron,
		Fuel:                p.Fuel,
		Crystal:             p.Crystal,
		StorageCapacity:     p.StorageCapacity,
		LastMineTs:          unixOrZero(p.LastMineTs),
		ActiveBattleID:      p.ActiveBattleID,
		ImprovementsJSON:    improvements,
		FrontierAccumulated: p.FrontierAccumulated,
		FrontierPerDay:      p.FrontierPerDay,
		PurchasePriceAlgo:   p.PurchasePriceAlgo,
	}, nil
}

func parcelFromRow(row *parcelRow) (*world.Parcel, error) {
	p := &world.Parcel{
		ID:                  row.ID,
		Coord:               world.HexCoord{Q: row.Q, R: row.R},
		Biome:               world.Biome(row.Biome),
		Richness:            row.Richness,
		OwnerID:             row.OwnerID,
		OwnerType:           world.OwnerType(row.OwnerType),
		DefenseLevel:        row.DefenseLevel,
		Iron:                row.Iron,
		Fuel:                row.Fuel,
		Crystal:             row.Crystal,
		StorageCapacity:     row.StorageCapacity,
		LastMineTs:          timeFromUnix(row.LastMineTs),
		ActiveBattleID:      row.ActiveBattleID,
		FrontierAccumulated: row.FrontierAccumulated,
		FrontierPerDay:      row.FrontierPerDay,
		PurchasePriceAlgo:   row.PurchasePriceAlgo,
	}
	if err := fromJSON(row.ImprovementsJSON, &p.Improvements); err != nil {
		return nil, fmt.Errorf("decode improvements for %s: %w", row.ID, err)
	}
	return p, nil
}

func playerToRow(p *engine.Player) (*playerRow, error) {
	parcelIDs, err := asJSON(p.ParcelIDs)
	if err != nil {
		return nil, fmt.Errorf("encode parcel ids for %s: %w", p.ID, err)
	}
	commanders, err := asJSON(p.Commanders)
	if err != nil {
		return nil, fmt.Errorf("encode commanders for %s: %w", p.ID, err)
	}
	specials, err := asJSON(p.SpecialAttacks)
	if err != nil {
		return nil, fmt.Errorf("encode special attacks for %s: %w", p.ID, err)
	}
	drones, err := asJSON(p.Drones)
	if err != nil {
		return nil, fmt.Errorf("encode drones for %s: %w", p.ID, err)
	}
	return &playerRow{
		ID:                   p.ID,
		Name:                 p.Name,
		IsAI:                 boolToInt(p.IsAI),
		Behavior:             p.Behavior,
		WalletAddress:        p.WalletAddress,
		WelcomeBonusReceived: boolToInt(p.WelcomeBonusReceived),
		Iron:                 p.Iron,
		Fuel:                 p.Fuel,
		Crystal:              p.Crystal,
		FrontierBalance:      p.FrontierBalance,
		TotalIronMined:       p.TotalIronMined,
		TotalFuelMined:       p.TotalFuelMined,
		TotalCrystalMined:    p.TotalCrystalMined,
		FrontierEarned:       p.FrontierEarned,
		FrontierBurned:       p.FrontierBurned,
		AttacksWon:           p.AttacksWon,
		AttacksLost:          p.AttacksLost,
		ActiveCommanderID:    p.ActiveCommanderID,
		ParcelIDsJSON:        parcelIDs,
		CommandersJSON:       commanders,
		SpecialAttacksJSON:   specials,
		DronesJSON:           drones,
		CreatedAt:            unixOrZero(p.CreatedAt),
	}, nil
}

func playerFromRow(row *playerRow) (*engine.Player, error) {
	p := &engine.Player{
		ID:                   row.ID,
		Name:                 row.Name,
		IsAI:                 row.IsAI != 0,
		Behavior:             row.Behavior,
		WalletAddress:        row.WalletAddress,
		WelcomeBonusReceived: row.WelcomeBonusReceived != 0,
		Iron:                 row.Iron,
		Fuel:                 row.Fuel,
		Crystal:              row.Crystal,
		FrontierBalance:      row.FrontierBalance,
		TotalIronMined:       row.TotalIronMined,
		TotalFuelMined:       row.TotalFuelMined,
		TotalCrystalMined:    row.TotalCrystalMined,
		FrontierEarned:       row.FrontierEarned,
		FrontierBurned:       row.FrontierBurned,
		AttacksWon:           row.AttacksWon,
		AttacksLost:          row.AttacksLost,
		ActiveCommanderID:    row.ActiveCommanderID,
		CreatedAt:            timeFromUnix(row.CreatedAt),
	}
	if err := fromJSON(row.ParcelIDsJSON, &p.ParcelIDs); err != nil {
		return nil, fmt.Errorf("decode parcel ids for %s: %w", row.ID, err)
	}
	if err := fromJSON(row.CommandersJSON, &p.Commanders); err != nil {
		return nil, fmt.Errorf("decode commanders for %s: %w", row.ID, err)
	}
	if err := fromJSON(row.SpecialAttacksJSON, &p.SpecialAttacks); err != nil {
		return nil, fmt.Errorf("decode special attacks for %s: %w", row.ID, err)
	}
	if err := fromJSON(row.DronesJSON, &p.Drones); err != nil {
		return nil, fmt.Errorf("decode drones for %s: %w", row.ID, err)
	}
	return p, nil
}

func battleToRow(b *engine.Battle) *battleRow {
	return &battleRow{
		ID:            b.ID,
		AttackerID:    b.AttackerID,
		DefenderID:    b.DefenderID,
		ParcelID:      b.ParcelID,
		AttackerPower: b.AttackerPower,
		DefenderPower: b.DefenderPower,
		Troops:        b.Troops,
		BurnedIron:    b.BurnedIron,
		BurnedFuel:    b.BurnedFuel,
		StartTs:       unixOrZero(b.StartTs),
		ResolveTs:     unixOrZero(b.ResolveTs),
		Status:        b.Status,
		Outcome:       b.Outcome,
		RandFactor:    b.RandFactor,
	}
}

func battleFromRow(row *battleRow) *engine.Battle {
	return &engine.Battle{
		ID:            row.ID,
		AttackerID:    row.AttackerID,
		DefenderID:    row.DefenderID,
		ParcelID:      row.ParcelID,
		AttackerPower: row.AttackerPower,
		DefenderPower: row.DefenderPower,
		Troops:        row.Troops,
		BurnedIron:    row.BurnedIron,
		BurnedFuel:    row.BurnedFuel,
		StartTs:       timeFromUnix(row.StartTs),
		ResolveTs:     timeFromUnix(row.ResolveTs),
		Status:        row.Status,
		Outcome:       row.Outcome,
		RandFactor:    row.RandFactor,
	}
}

func eventToRow(e *engine.Event, seq int) *eventRow {
	return &eventRow{
		ID:          e.ID,
		Seq:         seq,
		Type:        e.Type,
		ActorID:     e.ActorID,
		ParcelID:    e.ParcelID,
		BattleID:    e.BattleID,
		Description: e.Description,
		Ts:          unixOrZero(e.Ts),
	}
}

func eventFromRow(row *eventRow) *engine.Event {
	return &engine.Event{
		ID:          row.ID,
		Type:        row.Type,
		ActorID:     row.ActorID,
		ParcelID:    row.ParcelID,
		BattleID:    row.BattleID,
		Description: row.Description,
		Ts:          timeFromUnix(row.Ts),
	}
}

func asJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}
