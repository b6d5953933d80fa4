// CLAUDE:SUMMARY Opens the relay's SQLite file with per-connection pragmas (WAL, busy_timeout, foreign keys) and applies the schema.
// Package dbopen opens the SQLite database behind the relay.
//
// Pragmas are passed in the DSN so that every pooled connection gets them,
// not only the first one:
//
//	foreign_keys(1) journal_mode(WAL) busy_timeout(ms) synchronous(NORMAL)
//
// The caller blank-imports modernc.org/sqlite. Tests use OpenMemory.
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const defaultBusyTimeout = 10_000

type options struct {
	busyTimeout int
	mkdir       bool
	schema      []string
}

// Option tunes Open.
type Option func(*options)

// WithBusyTimeout sets busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithMkdirAll creates the database directory when missing.
func WithMkdirAll() Option { return func(o *options) { o.mkdir = true } }

// WithSchema runs ddl once the database is open. Statements must be idempotent.
func WithSchema(ddl ...string) Option {
	return func(o *options) { o.schema = append(o.schema, ddl...) }
}

// DSN builds the driver name for path with the relay pragmas.
func DSN(path string, busyTimeout int) string {
	q := url.Values{}
	for _, p := range []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeout),
		"synchronous(NORMAL)",
	} {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Open opens the database at path, applies the pragmas and the schema, and
// checks the connection.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{busyTimeout: defaultBusyTimeout}
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdir && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir %s: %w", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", DSN(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
	}
	for i, ddl := range o.schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema %d: %w", i, err)
		}
	}
	return db, nil
}

// OpenMemory returns an in-memory database closed at test cleanup. The pool
// is pinned to one connection: each ":memory:" connection is its own database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
