package store

import (
    "context"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// Tx exposes the conditional, single-seat-granularity mutations the
// engine is allowed to perform. Every method is a check-and-set in one
// round trip: the guard is asserted as part of the same write, and a
// zero-row match is reported as a conflict rather than applied blindly.
// All methods run inside the atomic unit opened by Store.RunAtomic, so
// any error returned from the closure rolls the whole unit back.
type Tx interface {
    // ClaimSeat transitions a seat to RESERVED for userID with the
    // given deadline. The guard accepts a seat that is AVAILABLE or
    // RESERVED with a deadline at or before now (an expired hold is
    // fair game for reclaiming). It returns the seat's authoritative
    // price, or ErrSeatConflict when the guard matches nothing.
    ClaimSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, until, now time.Time) (uint32, error)

    // InsertBooking writes a new booking and its items, populating
    // b.ID on success.
    InsertBooking(ctx context.Context, b *model.Booking) error

    // SetBookingStatus moves a booking from one status to another,
    // guarded by the current status. The hold deadline is cleared
    // whenever the booking leaves UNPAID. Returns ErrBookingConflict
    // when the booking is not in the expected state.
    SetBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) error

    // MarkSeatSold finalizes a seat held by userID under the hold
    // deadline heldUntil, clearing the hold fields. Matching on the
    // deadline ties the flip to the booking that claimed the seat, so
    // a stale booking cannot sell a seat the same user has since
    // re-claimed under a newer hold. Returns ErrSeatConflict when the
    // seat is not in that exact state.
    MarkSeatSold(ctx context.Context, eventID uint64, c model.Coord, userID uint64, heldUntil time.Time) error

    // ReleaseSeat returns a seat held by userID to AVAILABLE. It is
    // tolerant: a seat that has already moved on reports false rather
    // than an error, since releases may race with the sweeper.
    ReleaseSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64) (bool, error)

    // ReleaseExpiredSeat is ReleaseSeat with an additional guard that
    // the hold deadline is at or before cutoff, so a sweep never
    // clobbers a seat a newer booking has already re-claimed.
    ReleaseExpiredSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, cutoff time.Time) (bool, error)
}

// Store is the engine's view of persistence. Reads run directly;
// mutations that must be indivisible run through RunAtomic.
type Store interface {
    // RunAtomic executes fn inside one atomic unit. If fn returns an
    // error nothing it did through the Tx is visible afterwards.
    RunAtomic(ctx context.Context, fn func(tx Tx) error) error

    // Event returns an event by ID, or ErrEventNotFound.
    Event(ctx context.Context, eventID uint64) (*model.Event, error)

    // CreateEvent inserts a new event, populating its ID.
    CreateEvent(ctx context.Context, e *model.Event) error

    // SeatMap returns the event's seat map with the raw stored status
    // of every seat, or ErrSeatMapNotFound.
    SeatMap(ctx context.Context, eventID uint64) (*model.SeatMap, error)

    // ReplaceSeatMap atomically swaps the event's seat collection for
    // the given one. Existing seats, including sold ones, are
    // discarded; callers gate this on the map having no sold seats or
    // live holds.
    ReplaceSeatMap(ctx context.Context, eventID uint64, layoutType string, seats []model.Seat) error

    // Booking returns a booking with its items, or ErrBookingNotFound.
    Booking(ctx context.Context, bookingID uint64) (*model.Booking, error)

    // BookingsByUser returns the user's bookings newest first.
    BookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)

    // HeldCoords returns the coordinates referenced by the user's
    // unexpired UNPAID bookings for the event. The coordinator uses it
    // to reject duplicate concurrent claims for seats the user already
    // holds.
    HeldCoords(ctx context.Context, userID, eventID uint64, now time.Time) (map[model.Coord]struct{}, error)

    // ExpiredBookings returns up to limit UNPAID bookings whose hold
    // deadline is at or before now, oldest first.
    ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
}
