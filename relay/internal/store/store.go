// CLAUDE:SUMMARY Relay database handle: opens the SQLite file through dbopen and applies Schema.
// Package store persists the relay's state in SQLite: raw captures, product
// lifecycle rows, the destination category index and the page-visit log.
package store

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/hazyhaar/itemrelay/dbopen"
)

// Store wraps the relay database.
type Store struct {
	DB *sql.DB
}

// Open opens the database file at path, creating it and its directory on
// first use.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{DB: db}, nil
}

// Memory returns a store on a fresh in-memory database, for tests.
func Memory(t testing.TB) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func (s *Store) Close() error { return s.DB.Close() }
