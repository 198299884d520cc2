// Package store defines the storage contracts the booking engine runs
// against, together with the sentinel errors implementations must
// return. Higher layers compare against these values with errors.Is to
// map storage outcomes onto HTTP statuses without knowing which
// backend produced them.
package store

import "errors"

// ErrEventNotFound is returned when an event lookup yields no rows.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatMapNotFound is returned when an event has no seat map yet.
var ErrSeatMapNotFound = errors.New("seat map not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatConflict is returned by conditional seat transitions when the
// guard matched zero rows: the seat does not exist, is held by someone
// else, or is already sold.
var ErrSeatConflict = errors.New("seat conflict")

// ErrBookingConflict is returned by guarded booking transitions when
// the booking is not in the expected state, typically because a
// concurrent finalize or sweep got there first.
var ErrBookingConflict = errors.New("booking state conflict")
