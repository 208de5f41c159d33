package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	fingerprint TEXT PRIMARY KEY,
	response    TEXT NOT NULL,
	expires_at  INTEGER NOT NULL,
	hit_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_response_cache_expires
	ON response_cache(expires_at);
`

// SQLiteCache is a durable Cache backed by SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (creating if necessary) the cache database.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer keeps WAL contention low

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Get returns a live entry and increments its hit counter. Expired
// rows are treated as absent and removed opportunistically.
func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT response, expires_at, hit_count FROM response_cache WHERE fingerprint = ?`, fingerprint)

	var entry Entry
	var expiresAt int64
	if err := row.Scan(&entry.Response, &expiresAt, &entry.HitCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry.ExpiresAt = time.UnixMilli(expiresAt)
	if time.Now().After(entry.ExpiresAt) {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE fingerprint = ?`, fingerprint)
		return nil, false, nil
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE response_cache SET hit_count = hit_count + 1 WHERE fingerprint = ?`, fingerprint); err != nil {
		return nil, false, fmt.Errorf("failed to increment hit count: %w", err)
	}
	entry.HitCount++
	return &entry, true, nil
}

// Set upserts an entry, resetting its hit counter.
func (c *SQLiteCache) Set(ctx context.Context, fingerprint, response string, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO response_cache (fingerprint, response, expires_at, hit_count)
		 VALUES (?, ?, ?, 0)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			response = excluded.response,
			expires_at = excluded.expires_at,
			hit_count = 0`,
		fingerprint, response, time.Now().Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Sweep deletes expired rows.
func (c *SQLiteCache) Sweep(ctx context.Context) (int, error) {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM response_cache WHERE expires_at < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(removed), nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
