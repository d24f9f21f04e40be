// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// cacheTables maps collection names to their backing tables. Collection
// names come from callers as strings, so only known collections are allowed
// through to SQL.
var cacheTables = map[string]string{
	models.CollectionProducts:  "products",
	models.CollectionCustomers: "customers",
	models.CollectionBills:     "bills",
}

func cacheTable(collection string) (string, error) {
	table, ok := cacheTables[collection]
	if !ok {
		return "", fmt.Errorf("unknown collection: %q", collection)
	}
	return table, nil
}

// Open idempotently opens (or creates) the store at dbPath and migrates it
// to schemaVersion. Creating parent directories, opening the file and
// running migrations can all fail when the platform blocks persistence;
// every such failure is wrapped in storage.ErrStorageUnavailable so callers
// disable the offline subsystem instead of crashing.
func Open(dbPath string, schemaVersion int) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %v", storage.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", storage.ErrStorageUnavailable, err)
	}

	// Serialize writers; the queue is touched by both checkout and sync.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %v", storage.ErrStorageUnavailable, err)
	}

	if err := migrate(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: run migrations: %v", storage.ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
