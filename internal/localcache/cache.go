// Package localcache is the durable store for the guest identity: a small
// key-value table in a device-local sqlite file holding the serialized task
// and category collections.
package localcache

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Keys for the two guest collections.
const (
	TasksKey      = "weekplan-tasks"
	CategoriesKey = "weekplan-categories"
)

// Cache is a blob store keyed by string, backed by a single sqlite file.
type Cache struct {
	db       *sql.DB
	lockFile *flock.Flock
}

// DefaultPath returns the default cache file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "weekplan-cache.db"
	}
	return filepath.Join(home, ".local", "share", "weekplan", "cache.db")
}

// Open opens (creating if needed) the cache file, takes an exclusive file
// lock against other processes, and applies migrations.
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lockFile := flock.New(path + ".lock")
	locked, err := lockFile.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cache lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("cache file %s is in use by another process", path)
	}

	// WAL mode; sqlite supports a single writer
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		lockFile.Unlock()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		lockFile.Unlock()
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	c := &Cache{db: db, lockFile: lockFile}

	if err := c.migrate(); err != nil {
		db.Close()
		lockFile.Unlock()
		return nil, fmt.Errorf("failed to migrate cache: %w", err)
	}

	return c, nil
}

func (c *Cache) migrate() error {
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return goose.Up(c.db, "migrations")
}

// Get returns the blob stored under key, reporting absence via ok.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores the blob under key, replacing any previous value.
func (c *Cache) Set(key string, value []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO cache (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

// SetMany stores several blobs in one transaction.
func (c *Cache) SetMany(values map[string][]byte) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range values {
		if _, err := tx.Exec(
			`INSERT INTO cache (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("failed to write cache key %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache transaction: %w", err)
	}
	return nil
}

// Remove deletes the blob stored under key. Removing an absent key is not
// an error.
func (c *Cache) Remove(key string) error {
	if _, err := c.db.Exec(`DELETE FROM cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove cache key %q: %w", key, err)
	}
	return nil
}

// Close closes the cache and releases the file lock.
func (c *Cache) Close() error {
	err := c.db.Close()
	if c.lockFile != nil {
		if unlockErr := c.lockFile.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}
