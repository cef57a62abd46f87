// Package cache implements the optional session cache described in §5:
// pre-loaded tabular stores persisted between analysis runs, single-writer
// on creation and read-only thereafter. Tables are serialised with
// msgpack and backed by a pure-Go sqlite file, matching the teacher's
// choice of modernc.org/sqlite over the CGo mattn driver.
package cache

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/globalfund/allocengine/internal/store"
)

// ErrReadOnly is returned when a write is attempted against a cache opened
// with Open (read-only) rather than Create (single-writer).
var ErrReadOnly = errors.New("session cache is read-only")

// ErrTableNotCached is returned when the requested table name was never
// written to this cache.
var ErrTableNotCached = errors.New("table not present in session cache")

const schema = `CREATE TABLE IF NOT EXISTS session_cache (
	table_name TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

// SessionCache is a handle to one persisted session cache file.
type SessionCache struct {
	db       *sql.DB
	writable bool
}

// Create opens (creating if absent) a session cache file for writing. A
// cache is meant to be populated once, at analysis-run startup, then
// reopened read-only by later runs via Open.
func Create(path string) (*SessionCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise session cache schema: %w", err)
	}
	return &SessionCache{db: db, writable: true}, nil
}

// Open opens an existing session cache file read-only.
func Open(path string) (*SessionCache, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open session cache %s read-only: %w", path, err)
	}
	return &SessionCache{db: db, writable: false}, nil
}

// Close releases the underlying database handle.
func (c *SessionCache) Close() error { return c.db.Close() }

// PutTable serialises a tabular store's rows under name. Only valid on a
// cache opened with Create.
func PutTable[V any](c *SessionCache, name string, t *store.Table[V]) error {
	if !c.writable {
		return ErrReadOnly
	}
	payload, err := msgpack.Marshal(t.All())
	if err != nil {
		return fmt.Errorf("marshal table %s for session cache: %w", name, err)
	}
	_, err = c.db.Exec(`INSERT OR REPLACE INTO session_cache(table_name, payload) VALUES (?, ?)`, name, payload)
	if err != nil {
		return fmt.Errorf("persist table %s to session cache: %w", name, err)
	}
	return nil
}

// GetTable deserialises the rows previously stored under name.
func GetTable[V any](c *SessionCache, name string) ([]store.Row[V], error) {
	var payload []byte
	err := c.db.QueryRow(`SELECT payload FROM session_cache WHERE table_name = ?`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, ErrTableNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("read table %s from session cache: %w", name, err)
	}
	var rows []store.Row[V]
	if err := msgpack.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal table %s from session cache: %w", name, err)
	}
	return rows, nil
}
