package model

import "time"

// Layout types for a seat map.  Grid maps are produced by the
// generator from a compact row/column specification; freeform maps are
// uploaded seat-by-seat by the organizer.
const (
    LayoutGrid     = "grid"
    LayoutFreeform = "freeform"
)

// SeatMap is the complete per-event collection of individually
// addressable seats.  There is at most one seat map per event; it is
// replaced wholesale when the organizer regenerates the layout and
// mutated seat-by-seat as holds and sales progress.
type SeatMap struct {
    EventID    uint64    `json:"event_id"`
    LayoutType string    `json:"layout_type"`
    Seats      []Seat    `json:"seats"`
    UpdatedAt  time.Time `json:"updated_at"`
}
