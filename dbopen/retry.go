package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// busyBackoff is the wait before each retry of a statement that hit a lock.
var busyBackoff = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond}

// IsBusy reports whether err comes from a locked database.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"SQLITE_BUSY", "database is locked", "database table is locked"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// onBusy runs fn, running it again after each backoff step while it fails
// with a lock error.
func onBusy(ctx context.Context, fn func() error) error {
	err := fn()
	for _, wait := range busyBackoff {
		if !IsBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
		err = fn()
	}
	return err
}

// RunTx runs fn in a transaction, committed when fn returns nil. The whole
// transaction is replayed when the database is locked.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return onBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec runs one statement with the RunTx lock policy.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := onBusy(ctx, func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}
