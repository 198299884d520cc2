package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-ticketing/internal/config"
    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring to verify the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the booking API under /v1.  Every route requires a
// valid Bearer token; mutating seat and booking routes additionally run
// through the Redis token-bucket rate limiter when a client is
// available.
func RegisterAPI(e *echo.Echo, api *handler.API, jwtSecret string, rdb *redis.Client) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    // Events.
    g.POST("/events", api.CreateEvent)
    g.GET("/events/:id", api.GetEvent)

    // Seat maps.  Reads reflect hold liveness; writes are owner-only.
    g.GET("/events/:id/seats", api.GetSeatMap)
    g.PUT("/events/:id/seats", api.ReplaceSeatMap)
    g.POST("/events/:id/seats/generate", api.GenerateSeatMap)

    // Bookings and holds.
    g.POST("/events/:id/bookings", api.CreateBooking)
    g.POST("/events/:id/cart", api.AddCartSeat)
    g.POST("/bookings/:id/pay", api.PayBooking)
    g.POST("/bookings/:id/fail", api.FailBooking)
    g.DELETE("/bookings/:id", api.CancelBooking)
    g.GET("/bookings/:id", api.GetBooking)
    g.GET("/my-bookings", api.MyBookings)
}
