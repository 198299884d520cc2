package main // Entry point package

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/config"
    "github.com/iliyamo/event-ticketing/internal/database"
    "github.com/iliyamo/event-ticketing/internal/handler"
    "github.com/iliyamo/event-ticketing/internal/queue"
    "github.com/iliyamo/event-ticketing/internal/router"
    "github.com/iliyamo/event-ticketing/internal/service"
    "github.com/iliyamo/event-ticketing/internal/store/mysql"
)

func main() {
    // Load .env when present; real deployments set the environment
    // directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: the coordinator and rate limiter degrade
    // gracefully without it.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; seat map caching and rate limiting disabled")
    }

    st := mysql.New(db)
    engineCfg := service.Config{
        HoldTTL:       cfg.HoldTTL,
        CartHoldTTL:   cfg.CartHoldTTL,
        SweepInterval: cfg.SweepInterval,
        SweepBatch:    cfg.SweepBatch,
    }
    svc := service.NewCoordinator(st, rdb, engineCfg)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    // Background expiration sweeper.
    go service.NewSweeper(st, rdb, engineCfg).Run(ctx)

    // Background consumer for booking.paid messages.
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("booking consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.RegisterRoutes(e)
    router.RegisterAPI(e, handler.NewAPI(svc, st), cfg.JWTSecret, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        if err := e.Start(addr); err != nil {
            log.Printf("server stopped: %v", err)
        }
    }()

    <-ctx.Done()
    log.Println("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}
