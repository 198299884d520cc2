package mysql

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// SeatMap loads the event's seat map with the raw stored status of
// every seat, ordered by row then column for deterministic output.
func (s *Store) SeatMap(ctx context.Context, eventID uint64) (*model.SeatMap, error) {
    const head = `SELECT layout_type, updated_at FROM seat_maps WHERE event_id = ?`
    sm := &model.SeatMap{EventID: eventID}
    err := s.db.QueryRowContext(ctx, head, eventID).Scan(&sm.LayoutType, &sm.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, store.ErrSeatMapNotFound
        }
        return nil, err
    }
    const q = `SELECT x, y, tier, price_cents, status, reserved_by, reserved_until
               FROM seats
               WHERE event_id = ?
               ORDER BY x, y`
    rows, err := s.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var seat model.Seat
        var reservedBy sql.NullInt64
        var reservedUntil sql.NullTime
        if err := rows.Scan(&seat.X, &seat.Y, &seat.Tier, &seat.PriceCents,
            &seat.Status, &reservedBy, &reservedUntil); err != nil {
            return nil, err
        }
        if reservedBy.Valid {
            seat.ReservedBy = uint64(reservedBy.Int64)
        }
        if reservedUntil.Valid {
            t := reservedUntil.Time.UTC()
            seat.ReservedUntil = &t
        }
        sm.Seats = append(sm.Seats, seat)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return sm, nil
}

// ReplaceSeatMap swaps the event's entire seat collection inside one
// transaction: upsert the seat_maps head row, drop the old seats and
// bulk-insert the new ones.
func (s *Store) ReplaceSeatMap(ctx context.Context, eventID uint64, layoutType string, seats []model.Seat) error {
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
    const upsert = `INSERT INTO seat_maps (event_id, layout_type, updated_at)
                    VALUES (?, ?, UTC_TIMESTAMP())
                    ON DUPLICATE KEY UPDATE layout_type = VALUES(layout_type), updated_at = UTC_TIMESTAMP()`
    if _, err := tx.ExecContext(ctx, upsert, eventID, layoutType); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, eventID); err != nil {
        return err
    }
    if len(seats) > 0 {
        query := `INSERT INTO seats (event_id, x, y, tier, price_cents, status) VALUES `
        args := make([]interface{}, 0, len(seats)*6)
        for i, seat := range seats {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?, ?)"
            args = append(args, eventID, seat.X, seat.Y, seat.Tier, seat.PriceCents, seat.Status)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ClaimSeat performs the conditional AVAILABLE→RESERVED transition (or
// reclaims an expired hold) in a single UPDATE, then reads back the
// authoritative price inside the same transaction.
func (t *storeTx) ClaimSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, until, now time.Time) (uint32, error) {
    const q = `UPDATE seats
               SET status = 'RESERVED', reserved_by = ?, reserved_until = ?
               WHERE event_id = ? AND x = ? AND y = ?
                 AND (status = 'AVAILABLE'
                      OR (status = 'RESERVED' AND reserved_until <= ?))`
    res, err := t.tx.ExecContext(ctx, q,
        userID, until.UTC().Format(dbtime),
        eventID, c.X, c.Y,
        now.UTC().Format(dbtime),
    )
    if err != nil {
        return 0, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return 0, store.ErrSeatConflict
    }
    var price uint32
    const sel = `SELECT price_cents FROM seats WHERE event_id = ? AND x = ? AND y = ?`
    if err := t.tx.QueryRowContext(ctx, sel, eventID, c.X, c.Y).Scan(&price); err != nil {
        return 0, err
    }
    return price, nil
}

// MarkSeatSold flips a seat held by userID under the heldUntil
// deadline to SOLD, clearing the hold fields. Matching reserved_until
// pins the update to the claim that wrote it, so a booking whose hold
// was reclaimed and re-held cannot sell the seat out from under the
// newer hold. Zero matched rows means the seat was not in that state.
func (t *storeTx) MarkSeatSold(ctx context.Context, eventID uint64, c model.Coord, userID uint64, heldUntil time.Time) error {
    const q = `UPDATE seats
               SET status = 'SOLD', reserved_by = NULL, reserved_until = NULL
               WHERE event_id = ? AND x = ? AND y = ?
                 AND status = 'RESERVED' AND reserved_by = ? AND reserved_until = ?`
    res, err := t.tx.ExecContext(ctx, q, eventID, c.X, c.Y, userID, heldUntil.UTC().Format(dbtime))
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return store.ErrSeatConflict
    }
    return nil
}

// ReleaseSeat returns a seat held by userID to AVAILABLE. A seat that
// already moved on is left untouched and reported as not released.
func (t *storeTx) ReleaseSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64) (bool, error) {
    const q = `UPDATE seats
               SET status = 'AVAILABLE', reserved_by = NULL, reserved_until = NULL
               WHERE event_id = ? AND x = ? AND y = ?
                 AND status = 'RESERVED' AND reserved_by = ?`
    res, err := t.tx.ExecContext(ctx, q, eventID, c.X, c.Y, userID)
    if err != nil {
        return false, err
    }
    n, _ := res.RowsAffected()
    return n > 0, nil
}

// ReleaseExpiredSeat is ReleaseSeat with the additional reserved_until
// guard, so a sweep never steals a seat a newer booking re-claimed.
func (t *storeTx) ReleaseExpiredSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, cutoff time.Time) (bool, error) {
    const q = `UPDATE seats
               SET status = 'AVAILABLE', reserved_by = NULL, reserved_until = NULL
               WHERE event_id = ? AND x = ? AND y = ?
                 AND status = 'RESERVED' AND reserved_by = ? AND reserved_until <= ?`
    res, err := t.tx.ExecContext(ctx, q, eventID, c.X, c.Y, userID, cutoff.UTC().Format(dbtime))
    if err != nil {
        return false, err
    }
    n, _ := res.RowsAffected()
    return n > 0, nil
}
