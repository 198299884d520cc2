// Package mysql implements the engine's storage contracts on MySQL.
// Every conditional seat transition is a single UPDATE whose WHERE
// clause re-asserts the expected state, with the affected-row count
// deciding success; RunAtomic maps onto a database transaction so the
// multi-seat claim and the booking write commit or roll back together.
package mysql

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-ticketing/internal/store"
)

// dbtime is the DATETIME layout used when binding timestamps.  The DSN
// is opened with loc=UTC and parseTime=true, so values written in this
// layout round-trip as UTC time.Time.
const dbtime = "2006-01-02 15:04:05"

// Store provides the engine's persistence on top of a *sql.DB pool.
type Store struct {
    db *sql.DB
}

// New returns a Store bound to the given database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// RunAtomic opens a transaction, runs fn against it and commits when fn
// returns nil. Any error from fn (or the commit) rolls everything back.
func (s *Store) RunAtomic(ctx context.Context, fn func(tx store.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&storeTx{tx: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// storeTx implements store.Tx over an open *sql.Tx.  Its methods live
// in seats.go and bookings.go next to the corresponding reads.
type storeTx struct {
    tx *sql.Tx
}
