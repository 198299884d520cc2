package mysql

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// Booking loads one booking and its items, or ErrBookingNotFound.
func (s *Store) Booking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    const q = `SELECT id, user_id, event_id, status, total_cents, expires_at, created_at, updated_at
               FROM bookings WHERE id = ?`
    b, err := scanBooking(s.db.QueryRowContext(ctx, q, bookingID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, store.ErrBookingNotFound
        }
        return nil, err
    }
    items, err := s.itemsByBooking(ctx, []uint64{b.ID})
    if err != nil {
        return nil, err
    }
    b.Items = items[b.ID]
    return b, nil
}

// BookingsByUser returns the user's bookings newest first, with items
// populated in a single follow-up query.
func (s *Store) BookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    const q = `SELECT id, user_id, event_id, status, total_cents, expires_at, created_at, updated_at
               FROM bookings
               WHERE user_id = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := s.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings, err := collectBookings(rows)
    if err != nil {
        return nil, err
    }
    return s.attachItems(ctx, bookings)
}

// HeldCoords returns the seat coordinates referenced by the user's
// unexpired UNPAID bookings for the event.
func (s *Store) HeldCoords(ctx context.Context, userID, eventID uint64, now time.Time) (map[model.Coord]struct{}, error) {
    const q = `SELECT bi.x, bi.y
               FROM bookings b
               JOIN booking_items bi ON bi.booking_id = b.id
               WHERE b.user_id = ? AND b.event_id = ?
                 AND b.status = 'UNPAID' AND b.expires_at > ?`
    rows, err := s.db.QueryContext(ctx, q, userID, eventID, now.UTC().Format(dbtime))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    held := make(map[model.Coord]struct{})
    for rows.Next() {
        var c model.Coord
        if err := rows.Scan(&c.X, &c.Y); err != nil {
            return nil, err
        }
        held[c] = struct{}{}
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return held, nil
}

// ExpiredBookings returns up to limit UNPAID bookings whose hold
// deadline is at or before now, oldest deadline first. The
// (status, expires_at) index keeps this cheap for the sweeper.
func (s *Store) ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
    const q = `SELECT id, user_id, event_id, status, total_cents, expires_at, created_at, updated_at
               FROM bookings
               WHERE status = 'UNPAID' AND expires_at <= ?
               ORDER BY expires_at
               LIMIT ?`
    rows, err := s.db.QueryContext(ctx, q, now.UTC().Format(dbtime), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings, err := collectBookings(rows)
    if err != nil {
        return nil, err
    }
    return s.attachItems(ctx, bookings)
}

// InsertBooking writes the booking header and its items within the
// enclosing transaction, populating b.ID from the generated key.
func (t *storeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    const head = `INSERT INTO bookings (user_id, event_id, status, total_cents, expires_at)
                  VALUES (?, ?, ?, ?, ?)`
    var expires interface{}
    if b.ExpiresAt != nil {
        expires = b.ExpiresAt.UTC().Format(dbtime)
    }
    res, err := t.tx.ExecContext(ctx, head, b.UserID, b.EventID, b.Status, b.TotalCents, expires)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if len(b.Items) == 0 {
        return nil
    }
    query := `INSERT INTO booking_items (booking_id, x, y, price_cents) VALUES `
    args := make([]interface{}, 0, len(b.Items)*4)
    for i, it := range b.Items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, b.ID, it.X, it.Y, it.PriceCents)
    }
    _, err = t.tx.ExecContext(ctx, query, args...)
    return err
}

// SetBookingStatus moves a booking between statuses guarded by the
// current one. The hold deadline is cleared on every transition out of
// UNPAID, which is the only direction the engine performs.
func (t *storeTx) SetBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) error {
    const q = `UPDATE bookings
               SET status = ?, expires_at = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ?`
    res, err := t.tx.ExecContext(ctx, q, to, bookingID, from)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return store.ErrBookingConflict
    }
    return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanBooking(r rowScanner) (*model.Booking, error) {
    var b model.Booking
    var expires sql.NullTime
    if err := r.Scan(&b.ID, &b.UserID, &b.EventID, &b.Status, &b.TotalCents,
        &expires, &b.CreatedAt, &b.UpdatedAt); err != nil {
        return nil, err
    }
    if expires.Valid {
        e := expires.Time.UTC()
        b.ExpiresAt = &e
    }
    return &b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bookings, nil
}

// attachItems populates Items for every booking with one IN query.
func (s *Store) attachItems(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
    if len(bookings) == 0 {
        return bookings, nil
    }
    ids := make([]uint64, 0, len(bookings))
    for _, b := range bookings {
        ids = append(ids, b.ID)
    }
    items, err := s.itemsByBooking(ctx, ids)
    if err != nil {
        return nil, err
    }
    for i := range bookings {
        bookings[i].Items = items[bookings[i].ID]
    }
    return bookings, nil
}

func (s *Store) itemsByBooking(ctx context.Context, ids []uint64) (map[uint64][]model.BookingItem, error) {
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    query := `SELECT booking_id, x, y, price_cents
              FROM booking_items
              WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY booking_id, x, y`
    rows, err := s.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[uint64][]model.BookingItem)
    for rows.Next() {
        var bid uint64
        var it model.BookingItem
        if err := rows.Scan(&bid, &it.X, &it.Y, &it.PriceCents); err != nil {
            return nil, err
        }
        out[bid] = append(out[bid], it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
