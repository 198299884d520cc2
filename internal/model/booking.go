package model

import "time"

// BookingStatus enumerates the lifecycle of a booking.  A booking is
// created UNPAID and leaves that state exactly once: to PAID on a
// successful payment signal, to FAILED on a failed one, or to EXPIRED
// when the hold deadline passes (or the user cancels).  REFUNDED
// exists for a future refund path and is never set by this engine.
type BookingStatus string

const (
    BookingUnpaid   BookingStatus = "UNPAID"
    BookingPaid     BookingStatus = "PAID"
    BookingFailed   BookingStatus = "FAILED"
    BookingExpired  BookingStatus = "EXPIRED"
    BookingRefunded BookingStatus = "REFUNDED"
)

// BookingItem is one seat inside a booking.  The price is snapshotted
// at claim time and stays authoritative for the sale even if the seat
// map's nominal price later changes.
type BookingItem struct {
    X          int    `json:"x"`
    Y          int    `json:"y"`
    PriceCents uint32 `json:"price_cents"`
}

// Coord returns the item's seat coordinate.
func (i BookingItem) Coord() Coord { return Coord{X: i.X, Y: i.Y} }

// Booking records one user's attempt to purchase a specific seat set
// for one event.  While UNPAID and unexpired, every item corresponds
// to a seat RESERVED by this booking's user; once the booking leaves
// UNPAID that coupling is severed in the same atomic unit.  Bookings
// are never deleted – they are the audit trail of the transaction.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who placed the hold.
//  EventID    – event the seats belong to.
//  Items      – ordered seat/price snapshots taken at claim time.
//  TotalCents – sum of item prices, computed once at creation.
//  Status     – UNPAID, PAID, FAILED, EXPIRED or REFUNDED.
//  ExpiresAt  – hold deadline; meaningful only while UNPAID.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last transition timestamp.
type Booking struct {
    ID         uint64        `json:"id"`
    UserID     uint64        `json:"user_id"`
    EventID    uint64        `json:"event_id"`
    Items      []BookingItem `json:"items"`
    TotalCents uint32        `json:"total_cents"`
    Status     BookingStatus `json:"status"`
    ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
    CreatedAt  time.Time     `json:"created_at"`
    UpdatedAt  time.Time     `json:"updated_at"`
}

// ExpiredAt reports whether the booking's hold deadline has passed at
// the given instant.  Bookings without a deadline never expire.
func (b *Booking) ExpiredAt(now time.Time) bool {
    return b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}

// Coords returns the coordinates of every item in input order.
func (b *Booking) Coords() []Coord {
    out := make([]Coord, 0, len(b.Items))
    for _, it := range b.Items {
        out = append(out, it.Coord())
    }
    return out
}
