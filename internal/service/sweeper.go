package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// SweepSummary reports what one sweep pass reclaimed.
type SweepSummary struct {
    ExpiredBookings int
    ReleasedSeats   int
}

// Sweeper periodically expires overdue unpaid bookings and returns
// their seats to the pool. It is a safety net behind the lazy
// reclamation done by seat claims; both paths use the same conditional
// transitions, so they never clobber each other.
type Sweeper struct {
    store    store.Store
    cache    *redis.Client
    interval time.Duration
    batch    int
}

// NewSweeper builds a Sweeper with the config's interval and batch
// size.
func NewSweeper(st store.Store, cache *redis.Client, cfg Config) *Sweeper {
    cfg = cfg.withDefaults()
    return &Sweeper{
        store:    st,
        cache:    cache,
        interval: cfg.SweepInterval,
        batch:    cfg.SweepBatch,
    }
}

// Run sweeps on a fixed interval until the context is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()
    log.Printf("sweeper: running every %s", w.interval)
    for {
        select {
        case <-ctx.Done():
            log.Println("sweeper: stopped")
            return
        case <-ticker.C:
            sum, err := w.SweepOnce(ctx)
            if err != nil {
                log.Printf("sweeper: pass failed: %v", err)
                continue
            }
            if sum.ExpiredBookings > 0 {
                log.Printf("sweeper: expired %d bookings, released %d seats", sum.ExpiredBookings, sum.ReleasedSeats)
            }
        }
    }
}

// SweepOnce processes one batch of overdue unpaid bookings. Each
// booking is handled in its own atomic unit so one failure never
// blocks the rest of the batch.
func (w *Sweeper) SweepOnce(ctx context.Context) (SweepSummary, error) {
    now := time.Now().UTC()
    overdue, err := w.store.ExpiredBookings(ctx, now, w.batch)
    if err != nil {
        return SweepSummary{}, err
    }
    var sum SweepSummary
    for i := range overdue {
        b := &overdue[i]
        released, err := w.expire(ctx, b, now)
        if err != nil {
            if errors.Is(err, store.ErrBookingConflict) {
                // A racing pay, cancel or sweep already settled this
                // booking. Nothing to do.
                continue
            }
            log.Printf("sweeper: booking %d: %v", b.ID, err)
            continue
        }
        sum.ExpiredBookings++
        sum.ReleasedSeats += released
        w.invalidate(ctx, b.EventID)
    }
    return sum, nil
}

// expire flips one booking to EXPIRED and releases the seats it still
// holds. Seats already reclaimed or re-claimed by someone else are
// skipped, not failed.
func (w *Sweeper) expire(ctx context.Context, b *model.Booking, now time.Time) (int, error) {
    released := 0
    err := w.store.RunAtomic(ctx, func(tx store.Tx) error {
        if err := tx.SetBookingStatus(ctx, b.ID, model.BookingUnpaid, model.BookingExpired); err != nil {
            return err
        }
        for _, it := range b.Items {
            ok, err := tx.ReleaseExpiredSeat(ctx, b.EventID, it.Coord(), b.UserID, now)
            if err != nil {
                return err
            }
            if ok {
                released++
            }
        }
        return nil
    })
    if err != nil {
        return 0, err
    }
    return released, nil
}

func (w *Sweeper) invalidate(ctx context.Context, eventID uint64) {
    if w.cache == nil {
        return
    }
    if err := w.cache.Del(ctx, seatMapKey(eventID)).Err(); err != nil {
        log.Printf("sweeper: seat map cache invalidation failed: %v", err)
    }
}
