package model

import "time"

// SeatStatus enumerates the sale state of a single seat.  A seat only
// ever moves AVAILABLE → RESERVED → SOLD, or back from RESERVED to
// AVAILABLE when a hold is released or expires.  SOLD is terminal.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "AVAILABLE"
    SeatReserved  SeatStatus = "RESERVED"
    SeatSold      SeatStatus = "SOLD"
)

// Coord addresses one physical seat within an event's seat map.
// X is the row and Y is the column, both 1-based.
type Coord struct {
    X int `json:"x"`
    Y int `json:"y"`
}

// Valid reports whether the coordinate can address a real seat.
func (c Coord) Valid() bool { return c.X >= 1 && c.Y >= 1 }

// Seat represents the availability and pricing of one seat for an
// event.  ReservedBy and ReservedUntil are populated only while the
// seat is RESERVED; a RESERVED seat whose ReservedUntil has passed is
// claimable again even before the sweeper physically releases it.
//
// Fields:
//  X, Y          – seat coordinates (row, column), unique per event.
//  Tier          – pricing/category label (e.g. STANDARD, VIP).
//  PriceCents    – price in cents, fixed at generation time.
//  Status        – AVAILABLE, RESERVED or SOLD.
//  ReservedBy    – user holding the seat; zero when not RESERVED.
//  ReservedUntil – hold deadline; nil when not RESERVED.
type Seat struct {
    X             int        `json:"x"`
    Y             int        `json:"y"`
    Tier          string     `json:"tier"`
    PriceCents    uint32     `json:"price_cents"`
    Status        SeatStatus `json:"status"`
    ReservedBy    uint64     `json:"reserved_by,omitempty"`
    ReservedUntil *time.Time `json:"reserved_until,omitempty"`
}

// Coord returns the seat's coordinate pair.
func (s *Seat) Coord() Coord { return Coord{X: s.X, Y: s.Y} }

// HeldAt reports whether the seat carries a live hold at the given
// instant.  An expired hold does not count as held.
func (s *Seat) HeldAt(now time.Time) bool {
    return s.Status == SeatReserved && s.ReservedUntil != nil && s.ReservedUntil.After(now)
}
