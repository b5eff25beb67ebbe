package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/askdb/askdb/internal/errors"
)

// Store wraps the DuckDB connection used for schema management and seeding.
// Query execution does not go through the Store: the executor opens its own
// read-only connection via OpenReadOnly.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at dbPath in read-write mode
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to create database directory")
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	return &Store{db: db, path: dbPath}, nil
}

// OpenReadOnly opens a second connection to an existing database with the
// engine-level read-only flag set. Writes through this connection fail inside
// DuckDB itself, regardless of what SQL reaches it.
func OpenReadOnly(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase,
			fmt.Sprintf("database not found at %s", dbPath)).
			WithSuggestion("Run 'askdb seed' to create and populate the database")
	}

	db, err := sql.Open("duckdb", dbPath+"?access_mode=read_only")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database read-only")
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	return db, nil
}

// Initialize creates the banking schema using migrations
func (s *Store) Initialize(ctx context.Context) error {
	return NewMigrationManager(s.db).MigrateUp(ctx)
}

// DB exposes the underlying connection for seeding and introspection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
