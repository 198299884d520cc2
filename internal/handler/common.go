package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
    "github.com/iliyamo/event-ticketing/internal/store"
)

// API bundles the booking coordinator and the store behind the HTTP
// surface.  All methods assume JWT authentication has already run so
// the user ID is available from the context.
type API struct {
    Svc   *service.Coordinator
    Store store.Store
}

// NewAPI constructs the handler set.  Both dependencies must be non-nil.
func NewAPI(svc *service.Coordinator, st store.Store) *API {
    if svc == nil || st == nil {
        panic("nil dependency passed to NewAPI")
    }
    return &API{Svc: svc, Store: st}
}

// getUserID extracts the authenticated user's ID from echo.Context.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("uid").(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid uid in context")
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// writeError maps domain errors onto the HTTP error taxonomy.  Seat and
// overlap conflicts include the offending coordinates so clients can
// refresh just those seats.
func writeError(c echo.Context, err error) error {
    var (
        seatConflict *service.SeatConflictError
        overlap      *service.OverlapError
        invalidCoord *service.InvalidCoordError
    )
    switch {
    case errors.As(err, &seatConflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error": "seats unavailable",
            "seats": coordPairs(seatConflict.Seats),
        })
    case errors.As(err, &overlap):
        return c.JSON(http.StatusConflict, echo.Map{
            "error": "seats already held by you",
            "seats": coordPairs(overlap.Seats),
        })
    case errors.As(err, &invalidCoord):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrNoSeatsSelected):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
    case errors.Is(err, service.ErrEventNotBookable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
    case errors.Is(err, service.ErrSeatMapInUse):
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat map has sold seats or live holds"})
    case errors.Is(err, service.ErrNotOwner):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, store.ErrEventNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, store.ErrSeatMapNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "seat map not found"})
    case errors.Is(err, store.ErrBookingNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    case errors.Is(err, store.ErrBookingConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a state that allows this"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

type coordPair struct {
    X int `json:"x"`
    Y int `json:"y"`
}

func coordPairs(cs []model.Coord) []coordPair {
    out := make([]coordPair, 0, len(cs))
    for _, c := range cs {
        out = append(out, coordPair{X: c.X, Y: c.Y})
    }
    return out
}
