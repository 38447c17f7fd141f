// Package persistence provides SQLite-based storage for territorial state.
// The authority seeds from it on boot and flushes back periodically; a
// failed flush degrades to a logged warning, never a rollback of in-memory
// state.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/warfront/internal/faction"
	"github.com/talgya/warfront/internal/metrics"
	"github.com/talgya/warfront/internal/territory"
)

// DB wraps a SQLite connection for territorial state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS territories (
		id INTEGER NOT NULL,
		type INTEGER NOT NULL,
		name TEXT NOT NULL,
		parent_id INTEGER NOT NULL,
		strategic_value REAL NOT NULL,
		influences_json TEXT NOT NULL,
		dominant INTEGER NOT NULL,
		contested INTEGER NOT NULL,
		last_updated INTEGER NOT NULL,
		PRIMARY KEY (id, type)
	);

	CREATE TABLE IF NOT EXISTS updates (
		id TEXT PRIMARY KEY,
		territory_id INTEGER NOT NULL,
		territory_type INTEGER NOT NULL,
		faction INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		cause TEXT NOT NULL,
		new_value INTEGER NOT NULL,
		control_changed INTEGER NOT NULL,
		ts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_updates_ts ON updates(ts);
	CREATE INDEX IF NOT EXISTS idx_updates_territory ON updates(territory_id, territory_type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// HasState reports whether any territories have been persisted.
func (db *DB) HasState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM territories"); err != nil {
		return false
	}
	return count > 0
}

// SaveTerritories writes all territories to the database (full replace).
func (db *DB) SaveTerritories(territories []territory.Territory) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM territories"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO territories
		(id, type, name, parent_id, strategic_value, influences_json, dominant, contested, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range territories {
		influencesJSON, _ := json.Marshal(t.Influences)

		contested := 0
		if t.Contested {
			contested = 1
		}

		_, err := stmt.Exec(
			t.ID, t.Type, t.Name, t.ParentID, t.StrategicValue,
			string(influencesJSON), t.Dominant, contested, t.LastUpdated.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert territory %d/%s: %w", t.ID, t.Type.String(), err)
		}
	}

	return tx.Commit()
}

// LoadTerritories reads all persisted territories.
func (db *DB) LoadTerritories() ([]*territory.Territory, error) {
	rows, err := db.conn.Queryx(`SELECT id, type, name, parent_id, strategic_value,
		influences_json, dominant, contested, last_updated FROM territories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*territory.Territory
	for rows.Next() {
		var (
			t              territory.Territory
			typ            uint8
			influencesJSON string
			dominant       int
			contested      int
			updated        int64
		)
		if err := rows.Scan(&t.ID, &typ, &t.Name, &t.ParentID, &t.StrategicValue,
			&influencesJSON, &dominant, &contested, &updated); err != nil {
			return nil, err
		}
		t.Type = territory.Type(typ)
		t.Dominant = faction.ID(dominant)
		t.Contested = contested != 0
		t.LastUpdated = time.Unix(updated, 0)
		t.Influences = make(map[faction.ID]int)
		if err := json.Unmarshal([]byte(influencesJSON), &t.Influences); err != nil {
			return nil, fmt.Errorf("territory %d influences: %w", t.ID, err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// AppendUpdates persists a batch of update records.
func (db *DB) AppendUpdates(updates []territory.Update) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range updates {
		controlChanged := 0
		if u.ControlChanged {
			controlChanged = 1
		}
		_, err := tx.Exec(`INSERT OR IGNORE INTO updates
			(id, territory_id, territory_type, faction, delta, cause, new_value, control_changed, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.TerritoryID, u.TerritoryType, u.Faction, u.Delta,
			u.Cause, u.NewValue, controlChanged, u.Timestamp.Unix(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentUpdates returns the most recent N persisted updates.
func (db *DB) RecentUpdates(limit int) ([]territory.Update, error) {
	rows, err := db.conn.Queryx(`SELECT id, territory_id, territory_type, faction,
		delta, cause, new_value, control_changed, ts
		FROM updates ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []territory.Update
	for rows.Next() {
		var (
			u              territory.Update
			typ            uint8
			fid            int
			controlChanged int
			ts             int64
		)
		if err := rows.Scan(&u.ID, &u.TerritoryID, &typ, &fid, &u.Delta,
			&u.Cause, &u.NewValue, &controlChanged, &ts); err != nil {
			return nil, err
		}
		u.TerritoryType = territory.Type(typ)
		u.Faction = faction.ID(fid)
		u.ControlChanged = controlChanged != 0
		u.Timestamp = time.Unix(ts, 0)
		out = append(out, u)
	}
	return out, rows.Err()
}

// SaveMeta stores a key-value pair in campaign metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Returns "" when absent.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Flush writes territories and pending updates with exponential-backoff
// retries. On final failure it logs and returns; the in-memory state stays
// authoritative either way.
func (db *DB) Flush(territories []territory.Territory, updates []territory.Update) {
	op := func() error {
		if err := db.SaveTerritories(territories); err != nil {
			return fmt.Errorf("save territories: %w", err)
		}
		if err := db.AppendUpdates(updates); err != nil {
			return fmt.Errorf("append updates: %w", err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second

	if err := backoff.Retry(op, policy); err != nil {
		metrics.PersistFailures.Inc()
		slog.Warn("persistence flush failed, state remains in memory", "error", err)
		return
	}
	slog.Debug("state flushed", "territories", len(territories), "updates", len(updates))
}
