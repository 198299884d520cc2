package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/seatmap"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// seatMapCacheTTL bounds how stale a cached seat map read may be; any
// seat mutation also invalidates the key eagerly.
const seatMapCacheTTL = 30 * time.Second

// Config carries the engine's tunable knobs. Hold durations are
// injected rather than compiled in so tests and deployments can use
// short holds.
type Config struct {
    // HoldTTL is how long a full booking's hold lasts.
    HoldTTL time.Duration
    // CartHoldTTL is the shorter exploratory hold used by
    // cart-style single-seat adds.
    CartHoldTTL time.Duration
    // SweepInterval is how often the background sweeper runs.
    SweepInterval time.Duration
    // SweepBatch caps how many expired bookings one sweep processes.
    SweepBatch int
}

// withDefaults fills zero fields with the reference values.
func (c Config) withDefaults() Config {
    if c.HoldTTL == 0 {
        c.HoldTTL = 10 * time.Minute
    }
    if c.CartHoldTTL == 0 {
        c.CartHoldTTL = 3 * time.Minute
    }
    if c.SweepInterval == 0 {
        c.SweepInterval = time.Minute
    }
    if c.SweepBatch == 0 {
        c.SweepBatch = 100
    }
    return c
}

// Coordinator orchestrates multi-seat claims and the booking lifecycle
// as atomic units against the store. It is safe for concurrent use;
// every mutation is guarded by conditional store transitions, never by
// read-then-write logic in this layer.
//
// The Redis client is optional: when nil, seat-map reads simply skip
// the cache.
type Coordinator struct {
    store       store.Store
    cache       *redis.Client
    holdTTL     time.Duration
    cartHoldTTL time.Duration
}

// NewCoordinator builds a Coordinator over the given store and
// optional Redis cache.
func NewCoordinator(st store.Store, cache *redis.Client, cfg Config) *Coordinator {
    cfg = cfg.withDefaults()
    return &Coordinator{
        store:       st,
        cache:       cache,
        holdTTL:     cfg.HoldTTL,
        cartHoldTTL: cfg.CartHoldTTL,
    }
}

// CreateBooking claims every requested seat for the user and opens an
// unpaid hold over them, all in one atomic unit. On any seat conflict
// nothing is claimed and the conflicting coordinates are reported via
// SeatConflictError.
func (s *Coordinator) CreateBooking(ctx context.Context, userID, eventID uint64, coords []model.Coord) (*model.Booking, error) {
    return s.create(ctx, userID, eventID, coords, s.holdTTL)
}

// AddCartHold places a short exploratory hold on a single seat, used
// by cart-style flows before the user commits to a full booking.
func (s *Coordinator) AddCartHold(ctx context.Context, userID, eventID uint64, coord model.Coord) (*model.Booking, error) {
    return s.create(ctx, userID, eventID, []model.Coord{coord}, s.cartHoldTTL)
}

func (s *Coordinator) create(ctx context.Context, userID, eventID uint64, coords []model.Coord, ttl time.Duration) (*model.Booking, error) {
    // Validate and de-duplicate before any store access, preserving
    // the input order for the claim attempts.
    unique := make([]model.Coord, 0, len(coords))
    seen := make(map[model.Coord]struct{}, len(coords))
    for _, c := range coords {
        if !c.Valid() {
            return nil, &InvalidCoordError{Coord: c}
        }
        if _, dup := seen[c]; dup {
            continue
        }
        seen[c] = struct{}{}
        unique = append(unique, c)
    }
    if len(unique) == 0 {
        return nil, ErrNoSeatsSelected
    }

    event, err := s.store.Event(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if !event.Bookable() {
        return nil, ErrEventNotBookable
    }

    now := time.Now().UTC()

    // Overlap guard: the same user must not issue a duplicate claim
    // for seats they already hold under a live unpaid booking.
    held, err := s.store.HeldCoords(ctx, userID, eventID, now)
    if err != nil {
        return nil, err
    }
    var overlapping []model.Coord
    for _, c := range unique {
        if _, ok := held[c]; ok {
            overlapping = append(overlapping, c)
        }
    }
    if len(overlapping) > 0 {
        return nil, &OverlapError{Seats: overlapping}
    }

    until := now.Add(ttl)
    booking := &model.Booking{
        UserID:    userID,
        EventID:   eventID,
        Status:    model.BookingUnpaid,
        ExpiresAt: &until,
        CreatedAt: now,
    }
    err = s.store.RunAtomic(ctx, func(tx store.Tx) error {
        // Attempt every seat so the caller learns the full conflict
        // list; a non-empty list aborts the unit and rolls back any
        // seats claimed earlier in this attempt.
        var conflicts []model.Coord
        for _, c := range unique {
            price, err := tx.ClaimSeat(ctx, eventID, c, userID, until, now)
            if err != nil {
                if errors.Is(err, store.ErrSeatConflict) {
                    conflicts = append(conflicts, c)
                    continue
                }
                return err
            }
            booking.Items = append(booking.Items, model.BookingItem{X: c.X, Y: c.Y, PriceCents: price})
            booking.TotalCents += price
        }
        if len(conflicts) > 0 {
            return &SeatConflictError{Seats: conflicts}
        }
        return tx.InsertBooking(ctx, booking)
    })
    if err != nil {
        return nil, err
    }
    s.invalidateSeatMap(ctx, eventID)
    return booking, nil
}

// FinalizePaid converts an unpaid booking into a sale: the booking
// moves to PAID and every claimed seat to SOLD in one atomic unit.
// Seats are matched on the booking's own hold deadline, so a booking
// whose hold lapsed and was re-claimed under a newer one cannot sell
// the seats. If any seat is not in the expected state the whole
// finalize fails and nothing commits.
func (s *Coordinator) FinalizePaid(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    b, err := s.store.Booking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    var heldUntil time.Time
    if b.ExpiresAt != nil {
        heldUntil = *b.ExpiresAt
    }
    err = s.store.RunAtomic(ctx, func(tx store.Tx) error {
        if err := tx.SetBookingStatus(ctx, b.ID, model.BookingUnpaid, model.BookingPaid); err != nil {
            return err
        }
        for _, it := range b.Items {
            if err := tx.MarkSeatSold(ctx, b.EventID, it.Coord(), b.UserID, heldUntil); err != nil {
                if errors.Is(err, store.ErrSeatConflict) {
                    return &SeatConflictError{Seats: []model.Coord{it.Coord()}}
                }
                return err
            }
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.invalidateSeatMap(ctx, b.EventID)
    b.Status = model.BookingPaid
    b.ExpiresAt = nil
    return b, nil
}

// FinalizeFailed marks an unpaid booking as failed and returns its
// seats to AVAILABLE. Seats that have already moved on (for example a
// racing sweep) are left untouched.
func (s *Coordinator) FinalizeFailed(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    b, err := s.store.Booking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if err := s.close(ctx, b, model.BookingFailed); err != nil {
        return nil, err
    }
    b.Status = model.BookingFailed
    b.ExpiresAt = nil
    return b, nil
}

// Cancel lets the booking's owner abandon an unpaid hold. The booking
// is closed as EXPIRED and its seats released tolerantly.
func (s *Coordinator) Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
    b, err := s.store.Booking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != userID {
        return nil, ErrNotOwner
    }
    if err := s.close(ctx, b, model.BookingExpired); err != nil {
        return nil, err
    }
    b.Status = model.BookingExpired
    b.ExpiresAt = nil
    return b, nil
}

// close flips an unpaid booking to a terminal non-paid status and
// releases whichever of its seats this user still holds, atomically.
func (s *Coordinator) close(ctx context.Context, b *model.Booking, to model.BookingStatus) error {
    err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
        if err := tx.SetBookingStatus(ctx, b.ID, model.BookingUnpaid, to); err != nil {
            return err
        }
        for _, it := range b.Items {
            if _, err := tx.ReleaseSeat(ctx, b.EventID, it.Coord(), b.UserID); err != nil {
                return err
            }
        }
        return nil
    })
    if err != nil {
        return err
    }
    s.invalidateSeatMap(ctx, b.EventID)
    return nil
}

// GetBooking returns a booking to its owner.
func (s *Coordinator) GetBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
    b, err := s.store.Booking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != userID {
        return nil, ErrNotOwner
    }
    return b, nil
}

// BookingsForUser lists the user's bookings newest first.
func (s *Coordinator) BookingsForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return s.store.BookingsByUser(ctx, userID)
}

// EffectiveSeatMap returns the event's seat map with presentation-level
// liveness applied: a RESERVED seat whose hold deadline has passed is
// reported AVAILABLE even before the sweeper physically reclaims it.
func (s *Coordinator) EffectiveSeatMap(ctx context.Context, eventID uint64) (*model.SeatMap, error) {
    sm, err := s.cachedSeatMap(ctx, eventID)
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    for i := range sm.Seats {
        seat := &sm.Seats[i]
        if seat.Status == model.SeatReserved && !seat.HeldAt(now) {
            seat.Status = model.SeatAvailable
            seat.ReservedBy = 0
            seat.ReservedUntil = nil
        }
    }
    return sm, nil
}

// ReplaceSeatMap lets the event's owner swap the seat collection for an
// explicit freeform list. Coordinates must be valid and unique, and the
// current map must hold no sold seats or live holds.
func (s *Coordinator) ReplaceSeatMap(ctx context.Context, ownerID, eventID uint64, seats []model.Seat) error {
    if err := s.checkOwner(ctx, ownerID, eventID); err != nil {
        return err
    }
    if err := s.replaceable(ctx, eventID); err != nil {
        return err
    }
    if len(seats) == 0 {
        return ErrNoSeatsSelected
    }
    seen := make(map[model.Coord]struct{}, len(seats))
    for i := range seats {
        c := seats[i].Coord()
        if !c.Valid() {
            return &InvalidCoordError{Coord: c}
        }
        if _, dup := seen[c]; dup {
            return fmt.Errorf("duplicate seat coordinate (%d,%d)", c.X, c.Y)
        }
        seen[c] = struct{}{}
        seats[i].Status = model.SeatAvailable
        seats[i].ReservedBy = 0
        seats[i].ReservedUntil = nil
    }
    if err := s.store.ReplaceSeatMap(ctx, eventID, model.LayoutFreeform, seats); err != nil {
        return err
    }
    s.invalidateSeatMap(ctx, eventID)
    return nil
}

// GenerateSeatMap expands a grid spec and installs the result as the
// event's seat map. Validation failures surface before anything is
// written.
func (s *Coordinator) GenerateSeatMap(ctx context.Context, ownerID, eventID uint64, spec seatmap.GridSpec) ([]model.Seat, error) {
    if err := s.checkOwner(ctx, ownerID, eventID); err != nil {
        return nil, err
    }
    if err := s.replaceable(ctx, eventID); err != nil {
        return nil, err
    }
    seats, err := seatmap.BuildGridSeats(spec)
    if err != nil {
        return nil, err
    }
    if err := s.store.ReplaceSeatMap(ctx, eventID, model.LayoutGrid, seats); err != nil {
        return nil, err
    }
    s.invalidateSeatMap(ctx, eventID)
    return seats, nil
}

// replaceable blocks a seat map swap while any existing seat is SOLD
// or under a live hold. Lapsed holds and a missing map do not block.
func (s *Coordinator) replaceable(ctx context.Context, eventID uint64) error {
    sm, err := s.store.SeatMap(ctx, eventID)
    if err != nil {
        if errors.Is(err, store.ErrSeatMapNotFound) {
            return nil
        }
        return err
    }
    now := time.Now().UTC()
    for i := range sm.Seats {
        seat := &sm.Seats[i]
        if seat.Status == model.SeatSold || seat.HeldAt(now) {
            return ErrSeatMapInUse
        }
    }
    return nil
}

func (s *Coordinator) checkOwner(ctx context.Context, ownerID, eventID uint64) error {
    event, err := s.store.Event(ctx, eventID)
    if err != nil {
        return err
    }
    if event.OwnerID != ownerID {
        return ErrNotOwner
    }
    return nil
}

// cachedSeatMap serves the raw seat map through Redis when available.
// Cache errors degrade to a direct store read.
func (s *Coordinator) cachedSeatMap(ctx context.Context, eventID uint64) (*model.SeatMap, error) {
    key := seatMapKey(eventID)
    if s.cache != nil {
        if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
            var sm model.SeatMap
            if err := json.Unmarshal(raw, &sm); err == nil {
                return &sm, nil
            }
        }
    }
    sm, err := s.store.SeatMap(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if s.cache != nil {
        if raw, err := json.Marshal(sm); err == nil {
            if err := s.cache.Set(ctx, key, raw, seatMapCacheTTL).Err(); err != nil {
                log.Printf("coordinator: seat map cache set failed: %v", err)
            }
        }
    }
    return sm, nil
}

func (s *Coordinator) invalidateSeatMap(ctx context.Context, eventID uint64) {
    if s.cache == nil {
        return
    }
    if err := s.cache.Del(ctx, seatMapKey(eventID)).Err(); err != nil {
        log.Printf("coordinator: seat map cache invalidation failed: %v", err)
    }
}

func seatMapKey(eventID uint64) string { return fmt.Sprintf("seats:%d", eventID) }
