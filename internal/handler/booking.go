package handler

import (
    "context"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
)

// CreateBooking handles POST /v1/events/:id/bookings.  The body names
// the seats to claim; either all of them are reserved under one unpaid
// booking or none are, and the conflicting seats come back in a 409.
func (h *API) CreateBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Seats []coordPair `json:"seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    coords := make([]model.Coord, 0, len(body.Seats))
    for _, p := range body.Seats {
        coords = append(coords, model.Coord{X: p.X, Y: p.Y})
    }
    booking, err := h.Svc.CreateBooking(c.Request().Context(), userID, eventID, coords)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, booking)
}

// AddCartSeat handles POST /v1/events/:id/cart.  It places a short
// exploratory hold on a single seat.
func (h *API) AddCartSeat(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body coordPair
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    booking, err := h.Svc.AddCartHold(c.Request().Context(), userID, eventID, model.Coord{X: body.X, Y: body.Y})
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, booking)
}

// PayBooking handles POST /v1/bookings/:id/pay.  On success the booking
// is PAID, its seats are SOLD, and a message is published for
// downstream consumers.  Publish failures are logged and ignored; the
// sale has already committed.
func (h *API) PayBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if _, err := h.Svc.GetBooking(c.Request().Context(), userID, id); err != nil {
        return writeError(c, err)
    }
    booking, err := h.Svc.FinalizePaid(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    go publishPaid(booking)
    return c.JSON(http.StatusOK, booking)
}

// FailBooking handles POST /v1/bookings/:id/fail.  The payment failed:
// the booking is closed as FAILED and its seats return to the pool.
func (h *API) FailBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if _, err := h.Svc.GetBooking(c.Request().Context(), userID, id); err != nil {
        return writeError(c, err)
    }
    booking, err := h.Svc.FinalizeFailed(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, booking)
}

// CancelBooking handles DELETE /v1/bookings/:id.  Only the owner may
// abandon their unpaid hold.
func (h *API) CancelBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    booking, err := h.Svc.Cancel(c.Request().Context(), userID, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, booking)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *API) GetBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    booking, err := h.Svc.GetBooking(c.Request().Context(), userID, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, booking)
}

// MyBookings handles GET /v1/my-bookings.
func (h *API) MyBookings(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookings, err := h.Svc.BookingsForUser(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, bookings)
}

// publishPaid fires the booking.paid message asynchronously with its
// own timeout so a slow broker never holds up the response.
func publishPaid(b *model.Booking) {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    ev := queue.BookingPaidEvent{
        BookingID:  b.ID,
        UserID:     b.UserID,
        EventID:    b.EventID,
        TotalCents: b.TotalCents,
        PaidAt:     time.Now().UTC().Format(time.RFC3339),
    }
    for _, it := range b.Items {
        ev.Seats = append(ev.Seats, queue.SeatRef{X: it.X, Y: it.Y, PriceCents: it.PriceCents})
    }
    if err := queue.PublishBookingPaid(ctx, ev); err != nil {
        log.Printf("handler: booking.paid publish failed for booking %d: %v", b.ID, err)
    }
}
