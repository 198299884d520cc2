package service

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/seatmap"
    "github.com/iliyamo/event-ticketing/internal/store"
    "github.com/iliyamo/event-ticketing/internal/store/memory"
)

const (
    ownerID = uint64(1)
    userOne = uint64(10)
    userTwo = uint64(11)
)

// newEngine builds a coordinator over a fresh in-memory store with a
// published event and a 2x2 grid: row 1 is VIP at 5000, row 2 default
// at 1000.
func newEngine(t *testing.T, cfg Config) (*memory.Store, *Coordinator, uint64) {
    t.Helper()
    st := memory.New()
    svc := NewCoordinator(st, nil, cfg)

    event := &model.Event{OwnerID: ownerID, Title: "launch night", Status: model.EventPublished}
    require.NoError(t, st.CreateEvent(context.Background(), event))

    _, err := svc.GenerateSeatMap(context.Background(), ownerID, event.ID, seatmap.GridSpec{
        Rows:    2,
        Cols:    2,
        Default: seatmap.TierPrice{Tier: "GA", PriceCents: 1000},
        Rules: []seatmap.RowRule{
            {Rows: []int{1}, Tier: "VIP", PriceCents: 5000},
        },
    })
    require.NoError(t, err)
    return st, svc, event.ID
}

func TestCreateBookingClaimsSeatsAtomically(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}})
    require.NoError(t, err)
    require.NotZero(t, b.ID)
    assert.Equal(t, model.BookingUnpaid, b.Status)
    assert.Equal(t, uint32(10000), b.TotalCents)
    require.NotNil(t, b.ExpiresAt)
    assert.True(t, b.ExpiresAt.After(time.Now().UTC()))

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    reserved := 0
    for _, s := range sm.Seats {
        if s.Status == model.SeatReserved {
            reserved++
            assert.Equal(t, userOne, s.ReservedBy)
        }
    }
    assert.Equal(t, 2, reserved)
}

func TestCreateBookingConflictReportsSeats(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}})
    require.NoError(t, err)

    _, err = svc.CreateBooking(ctx, userTwo, eventID, []model.Coord{{X: 1, Y: 2}, {X: 2, Y: 1}})
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Equal(t, []model.Coord{{X: 1, Y: 2}}, conflict.Seats)
}

func TestCreateBookingAllOrNothing(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    // (2,1) is free but the unit must roll back when (1,1) conflicts.
    _, err = svc.CreateBooking(ctx, userTwo, eventID, []model.Coord{{X: 2, Y: 1}, {X: 1, Y: 1}})
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    for _, s := range sm.Seats {
        if s.Coord() == (model.Coord{X: 2, Y: 1}) {
            assert.Equal(t, model.SeatAvailable, s.Status)
            assert.Zero(t, s.ReservedBy)
        }
    }
}

func TestCreateBookingValidation(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    _, err := svc.CreateBooking(ctx, userOne, eventID, nil)
    assert.ErrorIs(t, err, ErrNoSeatsSelected)

    _, err = svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 0, Y: 1}})
    var invalid *InvalidCoordError
    assert.ErrorAs(t, err, &invalid)

    // Duplicates collapse to one claim.
    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 2, Y: 2}, {X: 2, Y: 2}})
    require.NoError(t, err)
    assert.Len(t, b.Items, 1)
}

func TestCreateBookingUnknownEvent(t *testing.T) {
    _, svc, _ := newEngine(t, Config{})
    _, err := svc.CreateBooking(context.Background(), userOne, 999, []model.Coord{{X: 1, Y: 1}})
    assert.ErrorIs(t, err, store.ErrEventNotFound)
}

func TestCreateBookingDraftEventRejected(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    svc := NewCoordinator(st, nil, Config{})
    event := &model.Event{OwnerID: ownerID, Title: "draft", Status: model.EventDraft}
    require.NoError(t, st.CreateEvent(ctx, event))

    _, err := svc.CreateBooking(ctx, userOne, event.ID, []model.Coord{{X: 1, Y: 1}})
    assert.ErrorIs(t, err, ErrEventNotBookable)
}

func TestCreateBookingOverlapGuard(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    _, err = svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    var overlap *OverlapError
    require.ErrorAs(t, err, &overlap)
    assert.Equal(t, []model.Coord{{X: 1, Y: 1}}, overlap.Seats)
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    const attempts = 32
    var wg sync.WaitGroup
    results := make(chan error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            _, err := svc.CreateBooking(ctx, user, eventID, []model.Coord{{X: 2, Y: 2}})
            results <- err
        }(uint64(100 + i))
    }
    wg.Wait()
    close(results)

    wins := 0
    for err := range results {
        if err == nil {
            wins++
            continue
        }
        var conflict *SeatConflictError
        require.ErrorAs(t, err, &conflict)
    }
    assert.Equal(t, 1, wins)
}

func TestFinalizePaidSellsSeats(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}})
    require.NoError(t, err)

    paid, err := svc.FinalizePaid(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingPaid, paid.Status)
    assert.Equal(t, uint32(10000), paid.TotalCents)
    assert.Nil(t, paid.ExpiresAt)

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    sold := 0
    for _, s := range sm.Seats {
        if s.Status == model.SeatSold {
            sold++
            assert.Nil(t, s.ReservedUntil)
        }
    }
    assert.Equal(t, 2, sold)

    stored, err := st.Booking(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingPaid, stored.Status)
}

func TestFinalizePaidTwiceConflicts(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    _, err = svc.FinalizePaid(ctx, b.ID)
    require.NoError(t, err)

    _, err = svc.FinalizePaid(ctx, b.ID)
    assert.ErrorIs(t, err, store.ErrBookingConflict)
}

func TestFinalizePaidStaleHoldCannotSellReclaimedSeat(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{HoldTTL: -time.Minute})

    stale, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    // The same user re-claims the lapsed seat under a fresh hold.
    fresh := NewCoordinator(svcStore(svc), nil, Config{HoldTTL: time.Hour})
    live, err := fresh.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    // Paying the stale booking must not sell the seat out from under
    // the live hold.
    _, err = svc.FinalizePaid(ctx, stale.ID)
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Equal(t, []model.Coord{{X: 1, Y: 1}}, conflict.Seats)

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    for _, s := range sm.Seats {
        if s.Coord() == (model.Coord{X: 1, Y: 1}) {
            assert.Equal(t, model.SeatReserved, s.Status)
            require.NotNil(t, s.ReservedUntil)
            assert.True(t, s.ReservedUntil.Equal(*live.ExpiresAt))
        }
    }

    // The stale finalize rolled back and the live booking still pays.
    stored, err := st.Booking(ctx, stale.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingUnpaid, stored.Status)

    paid, err := fresh.FinalizePaid(ctx, live.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingPaid, paid.Status)
}

func TestFinalizeFailedReleasesSeats(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 2, Y: 1}})
    require.NoError(t, err)

    failed, err := svc.FinalizeFailed(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingFailed, failed.Status)

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    for _, s := range sm.Seats {
        assert.Equal(t, model.SeatAvailable, s.Status)
    }

    // The freed seat is claimable again.
    _, err = svc.CreateBooking(ctx, userTwo, eventID, []model.Coord{{X: 2, Y: 1}})
    assert.NoError(t, err)
}

func TestCancelBooking(t *testing.T) {
    ctx := context.Background()
    st, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    _, err = svc.Cancel(ctx, userTwo, b.ID)
    assert.ErrorIs(t, err, ErrNotOwner)

    cancelled, err := svc.Cancel(ctx, userOne, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingExpired, cancelled.Status)

    sm, err := st.SeatMap(ctx, eventID)
    require.NoError(t, err)
    for _, s := range sm.Seats {
        assert.Equal(t, model.SeatAvailable, s.Status)
    }
}

func TestCancelPaidBookingConflicts(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)
    _, err = svc.FinalizePaid(ctx, b.ID)
    require.NoError(t, err)

    _, err = svc.Cancel(ctx, userOne, b.ID)
    assert.ErrorIs(t, err, store.ErrBookingConflict)
}

func TestExpiredHoldIsReclaimable(t *testing.T) {
    ctx := context.Background()
    // A negative TTL makes every hold born expired.
    _, svc, eventID := newEngine(t, Config{HoldTTL: -time.Minute})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    // The seat is still RESERVED in storage, but the deadline has
    // passed, so another user claims it directly.
    fresh := NewCoordinator(svcStore(svc), nil, Config{})
    b, err := fresh.CreateBooking(ctx, userTwo, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)
    assert.Equal(t, userTwo, b.UserID)
}

// svcStore pulls the store back out for tests that need a second
// coordinator with different timing over the same data.
func svcStore(s *Coordinator) store.Store { return s.store }

func TestEffectiveSeatMapNormalizesExpiredHolds(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{HoldTTL: -time.Minute})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    sm, err := svc.EffectiveSeatMap(ctx, eventID)
    require.NoError(t, err)
    for _, s := range sm.Seats {
        assert.Equal(t, model.SeatAvailable, s.Status)
        assert.Zero(t, s.ReservedBy)
        assert.Nil(t, s.ReservedUntil)
    }
}

func TestGetBookingOwnerOnly(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    got, err := svc.GetBooking(ctx, userOne, b.ID)
    require.NoError(t, err)
    assert.Equal(t, b.ID, got.ID)

    _, err = svc.GetBooking(ctx, userTwo, b.ID)
    assert.ErrorIs(t, err, ErrNotOwner)
}

func TestBookingsForUserNewestFirst(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    first, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)
    second, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 2, Y: 2}})
    require.NoError(t, err)

    list, err := svc.BookingsForUser(ctx, userOne)
    require.NoError(t, err)
    require.Len(t, list, 2)
    assert.Equal(t, second.ID, list[0].ID)
    assert.Equal(t, first.ID, list[1].ID)
}

func TestCartHoldUsesShortTTL(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{HoldTTL: time.Hour, CartHoldTTL: time.Minute})

    b, err := svc.AddCartHold(ctx, userOne, eventID, model.Coord{X: 2, Y: 1})
    require.NoError(t, err)
    require.NotNil(t, b.ExpiresAt)
    assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), *b.ExpiresAt, 5*time.Second)
}

func TestReplaceSeatMapOwnerOnly(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    seats := []model.Seat{{X: 1, Y: 1, Tier: "GA", PriceCents: 500}}
    err := svc.ReplaceSeatMap(ctx, userTwo, eventID, seats)
    assert.ErrorIs(t, err, ErrNotOwner)

    err = svc.ReplaceSeatMap(ctx, ownerID, eventID, seats)
    require.NoError(t, err)

    sm, err := svc.EffectiveSeatMap(ctx, eventID)
    require.NoError(t, err)
    require.Len(t, sm.Seats, 1)
    assert.Equal(t, model.LayoutFreeform, sm.LayoutType)
}

func TestReplaceSeatMapBlockedByLiveHolds(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    seats := []model.Seat{{X: 1, Y: 1, Tier: "GA", PriceCents: 500}}
    err = svc.ReplaceSeatMap(ctx, ownerID, eventID, seats)
    assert.ErrorIs(t, err, ErrSeatMapInUse)

    _, err = svc.GenerateSeatMap(ctx, ownerID, eventID, seatmap.GridSpec{
        Rows:    1,
        Cols:    1,
        Default: seatmap.TierPrice{Tier: "GA", PriceCents: 100},
    })
    assert.ErrorIs(t, err, ErrSeatMapInUse)
}

func TestReplaceSeatMapBlockedBySoldSeats(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{})

    b, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)
    _, err = svc.FinalizePaid(ctx, b.ID)
    require.NoError(t, err)

    err = svc.ReplaceSeatMap(ctx, ownerID, eventID, []model.Seat{{X: 1, Y: 1, Tier: "GA", PriceCents: 500}})
    assert.ErrorIs(t, err, ErrSeatMapInUse)
}

func TestReplaceSeatMapAllowedAfterHoldsLapse(t *testing.T) {
    ctx := context.Background()
    _, svc, eventID := newEngine(t, Config{HoldTTL: -time.Minute})

    _, err := svc.CreateBooking(ctx, userOne, eventID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)

    err = svc.ReplaceSeatMap(ctx, ownerID, eventID, []model.Seat{{X: 1, Y: 1, Tier: "GA", PriceCents: 500}})
    assert.NoError(t, err)
}

func TestCreateBookingInvalidatesSeatMapCache(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    rdb, mock := redismock.NewClientMock()
    svc := NewCoordinator(st, rdb, Config{})

    event := &model.Event{OwnerID: ownerID, Title: "cached", Status: model.EventPublished}
    require.NoError(t, st.CreateEvent(ctx, event))
    require.NoError(t, st.ReplaceSeatMap(ctx, event.ID, model.LayoutGrid, []model.Seat{
        {X: 1, Y: 1, Tier: "GA", PriceCents: 1000, Status: model.SeatAvailable},
    }))

    key := seatMapKey(event.ID)
    mock.ExpectDel(key).SetVal(1)

    _, err := svc.CreateBooking(ctx, userOne, event.ID, []model.Coord{{X: 1, Y: 1}})
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}
