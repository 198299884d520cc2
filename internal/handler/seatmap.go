package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/seatmap"
)

// GetSeatMap handles GET /v1/events/:id/seats.  The response reflects
// hold liveness: a reserved seat whose hold has lapsed is reported as
// available even before the sweeper reclaims it.
func (h *API) GetSeatMap(c echo.Context) error {
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sm, err := h.Svc.EffectiveSeatMap(c.Request().Context(), eventID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, sm)
}

// seatPayload is the wire form for one seat in a freeform replace.
type seatPayload struct {
    X          int    `json:"x"`
    Y          int    `json:"y"`
    Tier       string `json:"tier"`
    PriceCents uint32 `json:"price_cents"`
}

// ReplaceSeatMap handles PUT /v1/events/:id/seats.  Only the event's
// owner may replace the seat collection; every seat comes back
// AVAILABLE.
func (h *API) ReplaceSeatMap(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Seats []seatPayload `json:"seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seats := make([]model.Seat, 0, len(body.Seats))
    for _, p := range body.Seats {
        tier := strings.TrimSpace(p.Tier)
        if tier == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "every seat needs a tier"})
        }
        seats = append(seats, model.Seat{
            X:          p.X,
            Y:          p.Y,
            Tier:       tier,
            PriceCents: p.PriceCents,
        })
    }
    if err := h.Svc.ReplaceSeatMap(c.Request().Context(), userID, eventID, seats); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "seats": len(seats)})
}

// GenerateSeatMap handles POST /v1/events/:id/seats:generate.  The body
// carries a grid spec which is expanded deterministically into seats.
func (h *API) GenerateSeatMap(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var spec seatmap.GridSpec
    if err := c.Bind(&spec); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seats, err := h.Svc.GenerateSeatMap(c.Request().Context(), userID, eventID, spec)
    if err != nil {
        var specErr *seatmap.SpecError
        if errors.As(err, &specErr) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": specErr.Error()})
        }
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"event_id": eventID, "seats": len(seats)})
}
