// Package service contains the booking transaction coordinator and the
// expiration sweeper: the two components that drive every seat and
// booking state transition in the engine.
package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// ErrNoSeatsSelected is returned when a claim names no valid seats.
var ErrNoSeatsSelected = errors.New("no seats selected")

// ErrEventNotBookable is returned when the event exists but is not in
// a state that accepts claims (draft or closed).
var ErrEventNotBookable = errors.New("event is not bookable")

// ErrNotOwner is returned when a caller operates on a booking or seat
// map that belongs to someone else.
var ErrNotOwner = errors.New("caller does not own this resource")

// ErrSeatMapInUse is returned when replacing a seat map would discard
// sold seats or live holds.
var ErrSeatMapInUse = errors.New("seat map has sold seats or live holds")

// InvalidCoordError reports a coordinate that cannot address a seat.
// It is rejected before any store access.
type InvalidCoordError struct {
    Coord model.Coord
}

func (e *InvalidCoordError) Error() string {
    return fmt.Sprintf("invalid seat coordinate (%d,%d)", e.Coord.X, e.Coord.Y)
}

// SeatConflictError reports the seats that could not be claimed or
// finalized, so the caller can drop them from the selection and retry.
type SeatConflictError struct {
    Seats []model.Coord
}

func (e *SeatConflictError) Error() string {
    return fmt.Sprintf("%d seat(s) unavailable", len(e.Seats))
}

// OverlapError reports requested seats the same user already holds
// under an unexpired unpaid booking for the same event.
type OverlapError struct {
    Seats []model.Coord
}

func (e *OverlapError) Error() string {
    return fmt.Sprintf("%d seat(s) already held by this user", len(e.Seats))
}
