// Package cache persists raw provider responses in SQLite with a day-granular TTL.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DefaultExpiryDays is how long a response stays valid.
	DefaultExpiryDays = 14
	// DefaultFileName is the cache file name inside the cache directory.
	DefaultFileName = "cache.sqlite"
)

// CacheDB manages the SQLite database connection for caching
type CacheDB struct {
	db         *sql.DB
	mu         sync.RWMutex
	path       string
	expiryDays int
	now        func() time.Time
}

// Option configures a CacheDB.
type Option func(*CacheDB)

// WithExpiryDays sets the TTL in days. Zero or a negative value disables
// expiry altogether.
func WithExpiryDays(days int) Option {
	return func(c *CacheDB) {
		c.expiryDays = max(days, 0)
	}
}

// WithClock overrides the wall clock used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *CacheDB) {
		if now != nil {
			c.now = now
		}
	}
}

// DefaultPath returns the per-user cache location.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(dir, "bookshelf", DefaultFileName), nil
}

// NewCacheDB opens (creating if needed) the cache at dbPath and sweeps
// expired entries.
func NewCacheDB(dbPath string, opts ...Option) (*CacheDB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	if _, err := db.Exec(QueriesSchema); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
	}

	c := &CacheDB{
		db:         db,
		path:       dbPath,
		expiryDays: DefaultExpiryDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := c.ClearExpired(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(err, closeErr)
	}

	return c, nil
}

// Path returns the database file location.
func (c *CacheDB) Path() string {
	return c.path
}

// ExpiryDays returns the configured TTL in days, zero meaning no expiry.
func (c *CacheDB) ExpiryDays() int {
	return c.expiryDays
}

// Close closes the database connection
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *CacheDB) today() string {
	return c.now().UTC().Format(dateLayout)
}

// Select returns the cached response for key when present and unexpired.
// An expired row met here is deleted.
func (c *CacheDB) Select(key string) (string, bool, error) {
	c.mu.RLock()
	var response string
	var expiry sql.NullString
	err := c.db.QueryRow(`SELECT response, expiry FROM queries WHERE query = ?`, key).Scan(&response, &expiry)
	c.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if expiry.Valid && expiry.String <= c.today() {
		slog.Debug("Cache expired", "key", key, "expiry", expiry.String)
		if err := c.Delete(key); err != nil {
			slog.Warn("Failed to delete expired cache entry", "key", key, "error", err)
		}
		return "", false, nil
	}

	return response, true, nil
}

// Insert stores response under key, replacing any previous entry.
func (c *CacheDB) Insert(key, response string) error {
	var expiry any
	if c.expiryDays > 0 {
		expiry = c.now().UTC().AddDate(0, 0, c.expiryDays).Format(dateLayout)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO queries (query, response, expiry)
		VALUES (?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET response = excluded.response, expiry = excluded.expiry
	`, key, response, expiry)
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes the entry for key if any.
func (c *CacheDB) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM queries WHERE query = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ClearExpired removes every entry whose expiry is today or earlier and
// returns the number of rows deleted.
func (c *CacheDB) ClearExpired() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(`DELETE FROM queries WHERE expiry IS NOT NULL AND expiry <= ?`, c.today())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "count", rows)
	}
	return rows, nil
}

// ClearAll removes all cache entries and returns the number deleted.
func (c *CacheDB) ClearAll() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(`DELETE FROM queries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	slog.Info("Cache cleared", "rows_deleted", rows)
	return rows, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries   int64
	Expired   int64
	Permanent int64
	SizeBytes int64
}

// Stats counts entries by expiry state and reports the file size.
func (c *CacheDB) Stats() (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	err := c.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expiry IS NOT NULL AND expiry <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN expiry IS NULL THEN 1 ELSE 0 END), 0)
		FROM queries
	`, c.today()).Scan(&s.Entries, &s.Expired, &s.Permanent)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}

	if info, err := os.Stat(c.path); err == nil {
		s.SizeBytes = info.Size()
	}
	return s, nil
}
