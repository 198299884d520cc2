package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// CreateEvent handles POST /v1/events.  The authenticated user becomes
// the event's owner.  Status defaults to DRAFT; only DRAFT and
// PUBLISHED may be set at creation time.
func (h *API) CreateEvent(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Title  string `json:"title"`
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    title := strings.TrimSpace(body.Title)
    if title == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
    }
    status := model.EventDraft
    switch strings.ToUpper(strings.TrimSpace(body.Status)) {
    case "", string(model.EventDraft):
    case string(model.EventPublished):
        status = model.EventPublished
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    event := &model.Event{
        OwnerID: userID,
        Title:   title,
        Status:  status,
    }
    if err := h.Store.CreateEvent(c.Request().Context(), event); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, event)
}

// GetEvent handles GET /v1/events/:id.
func (h *API) GetEvent(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    event, err := h.Store.Event(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, event)
}
