// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingPaidEvent is published when an unpaid booking is successfully
// paid. It carries enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingPaidEvent struct {
    BookingID  uint64    `json:"booking_id"`
    UserID     uint64    `json:"user_id"`
    EventID    uint64    `json:"event_id"`
    Seats      []SeatRef `json:"seats"`
    TotalCents uint32    `json:"total_cents"`
    PaidAt     string    `json:"paid_at"`
}

// SeatRef identifies one seat inside a paid booking.
type SeatRef struct {
    X          int    `json:"x"`
    Y          int    `json:"y"`
    PriceCents uint32 `json:"price_cents"`
}
