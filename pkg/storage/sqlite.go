package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseFileName is the sqlite file created inside the data directory.
const DatabaseFileName = "stackpick.db"

const schema = `
CREATE TABLE IF NOT EXISTS catalog_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       BLOB    NOT NULL,
	etag       TEXT    NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore implements Store on a local sqlite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database in dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFileName)
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Initialize creates the schema.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCatalogCache returns the cached catalog, its etag, and when it was saved.
func (s *SQLiteStore) GetCatalogCache(ctx context.Context) ([]byte, string, time.Time, error) {
	var (
		data    []byte
		etag    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, etag, updated_at FROM catalog_cache WHERE id = 1`,
	).Scan(&data, &etag, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", time.Time{}, ErrNoCache
	}
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to read catalog cache: %w", err)
	}
	return data, etag, time.Unix(0, updated), nil
}

// SaveCatalogCache replaces the cached catalog.
func (s *SQLiteStore) SaveCatalogCache(ctx context.Context, data []byte, etag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_cache (id, data, etag, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, etag = excluded.etag, updated_at = excluded.updated_at`,
		data, etag, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save catalog cache: %w", err)
	}
	return nil
}

// GetSetting returns a setting value, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a setting value.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting.
func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
