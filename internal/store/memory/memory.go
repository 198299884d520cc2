// Package memory implements the engine's storage contracts in process
// memory. It mirrors the conditional-update semantics of the MySQL
// store: every seat transition re-asserts the expected state before
// applying, which makes it suitable both for unit tests and for
// running the server without a database. RunAtomic serializes atomic
// units under one mutex and restores a snapshot on error, so a failed
// closure leaves no partial writes, exactly like a rolled-back
// transaction.
package memory

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
    mu sync.Mutex

    events        map[uint64]*model.Event
    nextEventID   uint64
    maps          map[uint64]*seatMapState
    bookings      map[uint64]*model.Booking
    nextBookingID uint64
}

type seatMapState struct {
    layoutType string
    seats      []model.Seat // row-major order
    updatedAt  time.Time
}

// New returns an empty in-memory store.
func New() *Store {
    return &Store{
        events:        make(map[uint64]*model.Event),
        nextEventID:   1,
        maps:          make(map[uint64]*seatMapState),
        bookings:      make(map[uint64]*model.Booking),
        nextBookingID: 1,
    }
}

// RunAtomic serializes the closure under the store mutex. A snapshot
// taken before fn runs is restored when fn fails, so the unit is
// all-or-nothing even though it mutates live state.
func (s *Store) RunAtomic(ctx context.Context, fn func(tx store.Tx) error) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    snap := s.snapshot()
    if err := fn(&memTx{s: s}); err != nil {
        s.restore(snap)
        return err
    }
    return nil
}

// Event returns an event by ID.
func (s *Store) Event(ctx context.Context, eventID uint64) (*model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.events[eventID]
    if !ok {
        return nil, store.ErrEventNotFound
    }
    cp := *e
    return &cp, nil
}

// CreateEvent inserts a new event, assigning the next ID.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    e.ID = s.nextEventID
    s.nextEventID++
    if e.CreatedAt.IsZero() {
        e.CreatedAt = time.Now().UTC()
    }
    cp := *e
    s.events[e.ID] = &cp
    return nil
}

// SeatMap returns a copy of the event's seat map.
func (s *Store) SeatMap(ctx context.Context, eventID uint64) (*model.SeatMap, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    ms, ok := s.maps[eventID]
    if !ok {
        return nil, store.ErrSeatMapNotFound
    }
    out := &model.SeatMap{
        EventID:    eventID,
        LayoutType: ms.layoutType,
        Seats:      append([]model.Seat(nil), ms.seats...),
        UpdatedAt:  ms.updatedAt,
    }
    return out, nil
}

// ReplaceSeatMap swaps the event's seat collection wholesale.
func (s *Store) ReplaceSeatMap(ctx context.Context, eventID uint64, layoutType string, seats []model.Seat) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.maps[eventID] = &seatMapState{
        layoutType: layoutType,
        seats:      append([]model.Seat(nil), seats...),
        updatedAt:  time.Now().UTC(),
    }
    return nil
}

// Booking returns a booking by ID.
func (s *Store) Booking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[bookingID]
    if !ok {
        return nil, store.ErrBookingNotFound
    }
    return cloneBooking(b), nil
}

// BookingsByUser returns the user's bookings newest first.
func (s *Store) BookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Booking, 0)
    for _, b := range s.bookings {
        if b.UserID == userID {
            out = append(out, *cloneBooking(b))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].ID > out[j].ID
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    return out, nil
}

// HeldCoords returns coordinates referenced by the user's unexpired
// UNPAID bookings for the event.
func (s *Store) HeldCoords(ctx context.Context, userID, eventID uint64, now time.Time) (map[model.Coord]struct{}, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    held := make(map[model.Coord]struct{})
    for _, b := range s.bookings {
        if b.UserID != userID || b.EventID != eventID || b.Status != model.BookingUnpaid {
            continue
        }
        if b.ExpiresAt == nil || !b.ExpiresAt.After(now) {
            continue
        }
        for _, it := range b.Items {
            held[it.Coord()] = struct{}{}
        }
    }
    return held, nil
}

// ExpiredBookings returns up to limit UNPAID bookings past their hold
// deadline, oldest deadline first.
func (s *Store) ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Booking, 0)
    for _, b := range s.bookings {
        if b.Status == model.BookingUnpaid && b.ExpiredAt(now) {
            out = append(out, *cloneBooking(b))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

// memTx implements store.Tx against the locked live state.
type memTx struct {
    s *Store
}

func (t *memTx) seat(eventID uint64, c model.Coord) *model.Seat {
    ms, ok := t.s.maps[eventID]
    if !ok {
        return nil
    }
    for i := range ms.seats {
        if ms.seats[i].X == c.X && ms.seats[i].Y == c.Y {
            return &ms.seats[i]
        }
    }
    return nil
}

func (t *memTx) ClaimSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, until, now time.Time) (uint32, error) {
    seat := t.seat(eventID, c)
    if seat == nil {
        return 0, store.ErrSeatConflict
    }
    claimable := seat.Status == model.SeatAvailable ||
        (seat.Status == model.SeatReserved && seat.ReservedUntil != nil && !seat.ReservedUntil.After(now))
    if !claimable {
        return 0, store.ErrSeatConflict
    }
    u := until.UTC()
    seat.Status = model.SeatReserved
    seat.ReservedBy = userID
    seat.ReservedUntil = &u
    return seat.PriceCents, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    b.ID = t.s.nextBookingID
    t.s.nextBookingID++
    now := time.Now().UTC()
    if b.CreatedAt.IsZero() {
        b.CreatedAt = now
    }
    b.UpdatedAt = now
    t.s.bookings[b.ID] = cloneBooking(b)
    return nil
}

func (t *memTx) SetBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) error {
    b, ok := t.s.bookings[bookingID]
    if !ok || b.Status != from {
        return store.ErrBookingConflict
    }
    b.Status = to
    b.ExpiresAt = nil
    b.UpdatedAt = time.Now().UTC()
    return nil
}

func (t *memTx) MarkSeatSold(ctx context.Context, eventID uint64, c model.Coord, userID uint64, heldUntil time.Time) error {
    seat := t.seat(eventID, c)
    if seat == nil || seat.Status != model.SeatReserved || seat.ReservedBy != userID {
        return store.ErrSeatConflict
    }
    if seat.ReservedUntil == nil || !seat.ReservedUntil.Equal(heldUntil) {
        return store.ErrSeatConflict
    }
    seat.Status = model.SeatSold
    seat.ReservedBy = 0
    seat.ReservedUntil = nil
    return nil
}

func (t *memTx) ReleaseSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64) (bool, error) {
    seat := t.seat(eventID, c)
    if seat == nil || seat.Status != model.SeatReserved || seat.ReservedBy != userID {
        return false, nil
    }
    seat.Status = model.SeatAvailable
    seat.ReservedBy = 0
    seat.ReservedUntil = nil
    return true, nil
}

func (t *memTx) ReleaseExpiredSeat(ctx context.Context, eventID uint64, c model.Coord, userID uint64, cutoff time.Time) (bool, error) {
    seat := t.seat(eventID, c)
    if seat == nil || seat.Status != model.SeatReserved || seat.ReservedBy != userID {
        return false, nil
    }
    if seat.ReservedUntil == nil || seat.ReservedUntil.After(cutoff) {
        return false, nil
    }
    seat.Status = model.SeatAvailable
    seat.ReservedBy = 0
    seat.ReservedUntil = nil
    return true, nil
}

// snapshot/restore give RunAtomic rollback semantics.
type stateSnapshot struct {
    events        map[uint64]*model.Event
    nextEventID   uint64
    maps          map[uint64]*seatMapState
    bookings      map[uint64]*model.Booking
    nextBookingID uint64
}

func (s *Store) snapshot() stateSnapshot {
    snap := stateSnapshot{
        events:        make(map[uint64]*model.Event, len(s.events)),
        nextEventID:   s.nextEventID,
        maps:          make(map[uint64]*seatMapState, len(s.maps)),
        bookings:      make(map[uint64]*model.Booking, len(s.bookings)),
        nextBookingID: s.nextBookingID,
    }
    for id, e := range s.events {
        cp := *e
        snap.events[id] = &cp
    }
    for id, ms := range s.maps {
        snap.maps[id] = &seatMapState{
            layoutType: ms.layoutType,
            seats:      cloneSeats(ms.seats),
            updatedAt:  ms.updatedAt,
        }
    }
    for id, b := range s.bookings {
        snap.bookings[id] = cloneBooking(b)
    }
    return snap
}

func (s *Store) restore(snap stateSnapshot) {
    s.events = snap.events
    s.nextEventID = snap.nextEventID
    s.maps = snap.maps
    s.bookings = snap.bookings
    s.nextBookingID = snap.nextBookingID
}

func cloneSeats(in []model.Seat) []model.Seat {
    out := append([]model.Seat(nil), in...)
    for i := range out {
        if out[i].ReservedUntil != nil {
            t := *out[i].ReservedUntil
            out[i].ReservedUntil = &t
        }
    }
    return out
}

func cloneBooking(b *model.Booking) *model.Booking {
    cp := *b
    cp.Items = append([]model.BookingItem(nil), b.Items...)
    if b.ExpiresAt != nil {
        t := *b.ExpiresAt
        cp.ExpiresAt = &t
    }
    return &cp
}
