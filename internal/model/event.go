package model

import "time"

// EventStatus enumerates the lifecycle of an event.  Only PUBLISHED
// events accept seat claims; DRAFT events are still being set up and
// CLOSED events no longer sell.
type EventStatus string

const (
    EventDraft     EventStatus = "DRAFT"
    EventPublished EventStatus = "PUBLISHED"
    EventClosed    EventStatus = "CLOSED"
)

// Event is the sellable entity a seat map belongs to.  The booking
// engine only needs its identity, owner and bookability; everything
// else about events (descriptions, venues, media) lives outside this
// service.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – organizer who owns the event and its seat map.
//  Title     – display name.
//  Status    – lifecycle state (DRAFT, PUBLISHED, CLOSED).
//  CreatedAt – creation timestamp.
type Event struct {
    ID        uint64      `json:"id"`
    OwnerID   uint64      `json:"owner_id"`
    Title     string      `json:"title"`
    Status    EventStatus `json:"status"`
    CreatedAt time.Time   `json:"created_at"`
}

// Bookable reports whether the event currently accepts seat claims.
func (e *Event) Bookable() bool { return e.Status == EventPublished }
