package handler_test

import (
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/router"
    "github.com/iliyamo/event-ticketing/internal/service"
    "github.com/iliyamo/event-ticketing/internal/store/memory"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

const testSecret = "test-secret"

func newServer(t *testing.T) *echo.Echo {
    t.Helper()
    st := memory.New()
    svc := service.NewCoordinator(st, nil, service.Config{})
    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAPI(e, handler.NewAPI(svc, st), testSecret, nil)
    return e
}

func bearer(t *testing.T, userID uint64) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, userID, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
    var rd *strings.Reader
    if body == "" {
        rd = strings.NewReader("")
    } else {
        rd = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, path, rd)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
    t.Helper()
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

// setupEvent creates a published event with a 2x2 grid and returns its
// ID.
func setupEvent(t *testing.T, e *echo.Echo, owner string) uint64 {
    t.Helper()
    rec := do(e, http.MethodPost, "/v1/events", owner, `{"title":"launch night","status":"PUBLISHED"}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var event struct {
        ID uint64 `json:"id"`
    }
    decode(t, rec, &event)

    spec := `{"rows":2,"cols":2,"default":{"tier":"GA","price_cents":1000},"rules":[{"rows":[1],"tier":"VIP","price_cents":5000}]}`
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/seats/generate", event.ID), owner, spec)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    return event.ID
}

func TestHealthz(t *testing.T) {
    e := newServer(t)
    rec := do(e, http.MethodGet, "/healthz", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
    e := newServer(t)
    rec := do(e, http.MethodGet, "/v1/my-bookings", "", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = do(e, http.MethodGet, "/v1/my-bookings", "Bearer not-a-token", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlow(t *testing.T) {
    e := newServer(t)
    owner := bearer(t, 1)
    alice := bearer(t, 10)
    bob := bearer(t, 11)

    eventID := setupEvent(t, e, owner)

    // The whole front row for alice.
    rec := do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/bookings", eventID), alice,
        `{"seats":[{"x":1,"y":1},{"x":1,"y":2}]}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var booking struct {
        ID         uint64 `json:"id"`
        Status     string `json:"status"`
        TotalCents uint32 `json:"total_cents"`
    }
    decode(t, rec, &booking)
    assert.Equal(t, "UNPAID", booking.Status)
    assert.Equal(t, uint32(10000), booking.TotalCents)

    // Bob collides on (1,2) and learns which seat was the problem.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/bookings", eventID), bob,
        `{"seats":[{"x":1,"y":2},{"x":2,"y":1}]}`)
    require.Equal(t, http.StatusConflict, rec.Code)
    var conflict struct {
        Seats []struct {
            X int `json:"x"`
            Y int `json:"y"`
        } `json:"seats"`
    }
    decode(t, rec, &conflict)
    require.Len(t, conflict.Seats, 1)
    assert.Equal(t, 1, conflict.Seats[0].X)
    assert.Equal(t, 2, conflict.Seats[0].Y)

    // Bob cannot inspect alice's booking.
    rec = do(e, http.MethodGet, fmt.Sprintf("/v1/bookings/%d", booking.ID), bob, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    // Payment fails; the front row frees up.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/fail", booking.ID), alice, "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var failed struct {
        Status string `json:"status"`
    }
    decode(t, rec, &failed)
    assert.Equal(t, "FAILED", failed.Status)

    // Now bob's original request goes through.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/bookings", eventID), bob,
        `{"seats":[{"x":1,"y":2},{"x":2,"y":1}]}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var bobBooking struct {
        ID uint64 `json:"id"`
    }
    decode(t, rec, &bobBooking)

    // Alice cannot pay bob's booking.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/pay", bobBooking.ID), alice, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    // Bob pays and the seats sell.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/pay", bobBooking.ID), bob, "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var paid struct {
        Status     string `json:"status"`
        TotalCents uint32 `json:"total_cents"`
    }
    decode(t, rec, &paid)
    assert.Equal(t, "PAID", paid.Status)
    assert.Equal(t, uint32(6000), paid.TotalCents)

    // A second pay attempt conflicts.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/pay", bobBooking.ID), bob, "")
    assert.Equal(t, http.StatusConflict, rec.Code)

    rec = do(e, http.MethodGet, fmt.Sprintf("/v1/events/%d/seats", eventID), bob, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var sm struct {
        Seats []struct {
            Status string `json:"status"`
        } `json:"seats"`
    }
    decode(t, rec, &sm)
    sold := 0
    for _, s := range sm.Seats {
        if s.Status == "SOLD" {
            sold++
        }
    }
    assert.Equal(t, 2, sold)
}

func TestCancelBookingEndpoint(t *testing.T) {
    e := newServer(t)
    owner := bearer(t, 1)
    alice := bearer(t, 10)
    bob := bearer(t, 11)

    eventID := setupEvent(t, e, owner)

    rec := do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/cart", eventID), alice, `{"x":2,"y":2}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var booking struct {
        ID uint64 `json:"id"`
    }
    decode(t, rec, &booking)

    rec = do(e, http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", booking.ID), bob, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = do(e, http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", booking.ID), alice, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var cancelled struct {
        Status string `json:"status"`
    }
    decode(t, rec, &cancelled)
    assert.Equal(t, "EXPIRED", cancelled.Status)
}

func TestSeatMapEndpoints(t *testing.T) {
    e := newServer(t)
    owner := bearer(t, 1)
    alice := bearer(t, 10)

    eventID := setupEvent(t, e, owner)

    rec := do(e, http.MethodGet, fmt.Sprintf("/v1/events/%d/seats", eventID), alice, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var sm struct {
        LayoutType string `json:"layout_type"`
        Seats      []struct {
            X      int    `json:"x"`
            Y      int    `json:"y"`
            Tier   string `json:"tier"`
            Status string `json:"status"`
        } `json:"seats"`
    }
    decode(t, rec, &sm)
    assert.Equal(t, "grid", sm.LayoutType)
    require.Len(t, sm.Seats, 4)
    assert.Equal(t, "VIP", sm.Seats[0].Tier)
    assert.Equal(t, "AVAILABLE", sm.Seats[0].Status)

    // Only the owner may replace the map.
    body := `{"seats":[{"x":1,"y":1,"tier":"GA","price_cents":500}]}`
    rec = do(e, http.MethodPut, fmt.Sprintf("/v1/events/%d/seats", eventID), alice, body)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = do(e, http.MethodPut, fmt.Sprintf("/v1/events/%d/seats", eventID), owner, body)
    assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    // Bad grid specs come back as 400.
    rec = do(e, http.MethodPost, fmt.Sprintf("/v1/events/%d/seats/generate", eventID), owner,
        `{"rows":0,"cols":2,"default":{"tier":"GA","price_cents":1000}}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSeatMapUnknownEvent(t *testing.T) {
    e := newServer(t)
    alice := bearer(t, 10)
    rec := do(e, http.MethodGet, "/v1/events/999/seats", alice, "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEventValidation(t *testing.T) {
    e := newServer(t)
    owner := bearer(t, 1)

    rec := do(e, http.MethodPost, "/v1/events", owner, `{"title":"  "}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = do(e, http.MethodPost, "/v1/events", owner, `{"title":"x","status":"CLOSED"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
