// Package querycache memoizes Query Executor results keyed by the query
// string plus the index's current state fingerprint, so that repeated
// identical queries against an unchanged index skip re-execution. Adapted
// from the teacher's internal/storage.Cache, narrowed from three tiers
// (query/view/negative) to the one this project's executor actually needs:
// there is no separate "view" concept here, and a BadQuery/NotFound result
// is cheap enough to recompute that a negative-result tier buys nothing.
package querycache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL mirrors the teacher's query_cache tier TTL.
const DefaultTTL = 300 * time.Second

// Cache memoizes query results in a SQLite database under
// <project_root>/<cache_dir_name>/querycache.db.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the query cache database at
// <cacheDir>/querycache.db.
func Open(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dbPath := filepath.Join(cacheDir, "querycache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open query cache db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS query_cache (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			state_id TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create query_cache table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_query_cache_state_id ON query_cache(state_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create query_cache index: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the memoized value for key, unmarshaled into dest, but only
// if the entry's stateID matches the index's current state fingerprint and
// it has not expired. A stale or expired hit is treated as a miss and
// lazily deleted.
func (c *Cache) Get(key, stateID string, dest interface{}) (bool, error) {
	var valueJSON, entryStateID, expiresAt string
	err := c.db.QueryRow(`
		SELECT value_json, state_id, expires_at FROM query_cache WHERE key = ?
	`, key).Scan(&valueJSON, &entryStateID, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query cache lookup: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return false, fmt.Errorf("parse expires_at: %w", err)
	}
	if entryStateID != stateID || time.Now().After(expiry) {
		_, _ = c.db.Exec(`DELETE FROM query_cache WHERE key = ?`, key)
		return false, nil
	}

	if err := json.Unmarshal([]byte(valueJSON), dest); err != nil {
		return false, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set memoizes value under key, tagged with the index's current state
// fingerprint and a TTL. A later Get with a different stateID will treat
// this entry as stale regardless of TTL.
func (c *Cache) Set(key, stateID string, value interface{}, ttl time.Duration) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	now := time.Now()
	_, err = c.db.Exec(`
		INSERT INTO query_cache (key, value_json, state_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			state_id = excluded.state_id,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, key, string(valueJSON), stateID, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("query cache write: %w", err)
	}
	return nil
}

// Invalidate drops every entry not tagged with the given stateID — called
// once a fresh stateID is computed after a reindex, so the next query for
// any previously-cached key recomputes rather than returning a result from
// before the index changed.
func (c *Cache) Invalidate(stateID string) error {
	_, err := c.db.Exec(`DELETE FROM query_cache WHERE state_id != ?`, stateID)
	if err != nil {
		return fmt.Errorf("invalidate query cache: %w", err)
	}
	return nil
}

// Purge deletes every expired entry regardless of state_id. Callers may
// invoke this periodically; Get already purges lazily on a stale hit.
func (c *Cache) Purge() error {
	_, err := c.db.Exec(`DELETE FROM query_cache WHERE expires_at < ?`, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("purge query cache: %w", err)
	}
	return nil
}
