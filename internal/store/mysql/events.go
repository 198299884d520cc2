package mysql

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// Event returns an event by ID, or ErrEventNotFound.
func (s *Store) Event(ctx context.Context, eventID uint64) (*model.Event, error) {
    const q = `SELECT id, owner_id, title, status, created_at FROM events WHERE id = ?`
    var e model.Event
    err := s.db.QueryRowContext(ctx, q, eventID).
        Scan(&e.ID, &e.OwnerID, &e.Title, &e.Status, &e.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, store.ErrEventNotFound
        }
        return nil, err
    }
    return &e, nil
}

// CreateEvent inserts a new event and populates its generated ID.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
    const q = `INSERT INTO events (owner_id, title, status) VALUES (?, ?, ?)`
    res, err := s.db.ExecContext(ctx, q, e.OwnerID, e.Title, e.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    const sel = `SELECT created_at FROM events WHERE id = ?`
    return s.db.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt)
}
