package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"
    "github.com/spf13/cobra"

    "github.com/iliyamo/table-reservation/internal/broker"
    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/handler"
    "github.com/iliyamo/table-reservation/internal/middleware"
    "github.com/iliyamo/table-reservation/internal/router"
    "github.com/iliyamo/table-reservation/internal/worker"
)

func newServeCmd() *cobra.Command {
    var (
        migrateUp bool
        workers   bool
        consume   bool
        demo      bool
        logPath   string
    )

    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the HTTP API and background workers",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
            defer cancel()

            a, err := newApp(ctx, true)
            if err != nil {
                return err
            }
            defer a.Close()

            if migrateUp && a.db != nil {
                if err := database.Migrate(ctx, a.db); err != nil {
                    return err
                }
            }
            if demo && a.mem != nil {
                seedDemo(ctx, a)
            }

            avail, holds, reservations, queue, reminders := a.services()

            if workers {
                group := worker.Standard(a.booking, worker.Services{Holds: holds, Queue: queue, Reminders: reminders}, a.deps.Locker, a.log)
                go group.Run(ctx)
            }
            if consume && a.cfg.RabbitURL != "" {
                c := &broker.Consumer{URL: a.cfg.RabbitURL, LogPath: logPath, Log: a.log}
                go func() {
                    if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                        a.log.WithError(err).Error("notification consumer stopped")
                    }
                }()
            }

            ready := map[string]handler.Pinger{}
            if a.db != nil {
                ready["mysql"] = a.db
            }
            if a.rdb != nil {
                ready["redis"] = redisPinger{a.rdb}
            }

            e := echo.New()
            e.HideBanner = true
            e.Use(echomw.Recover())
            e.Use(middleware.RequestLogger(a.log))
            router.Register(e, router.Handlers{
                Availability: handler.NewAvailabilityHandler(avail, a.booking, a.log),
                Holds:        handler.NewHoldHandler(holds, a.log),
                Reservations: handler.NewReservationHandler(reservations, a.booking, a.log),
                Queue:        handler.NewQueueHandler(queue, a.log),
                Tables:       handler.NewTableHandler(a.dir, a.log),
                StaffAuth:    handler.NewStaffAuthHandler(a.staff, a.cfg.JWTSecret, a.cfg.AccessTTLMin, a.log),
                Ready:        handler.Ready(ready),
            }, router.Options{
                JWTSecret: a.cfg.JWTSecret,
                RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.rdb, a.log),
                Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), a.rdb),
            })

            addr := ":" + a.cfg.Port
            a.log.WithFields(logrus.Fields{"addr": addr, "env": a.cfg.Env, "store": a.cfg.Store}).Info("listening")
            errCh := make(chan error, 1)
            go func() { errCh <- e.Start(addr) }()

            select {
            case err := <-errCh:
                if !errors.Is(err, http.ErrServerClosed) {
                    return err
                }
                return nil
            case <-ctx.Done():
            }
            a.log.Info("shutting down")
            shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
            defer stop()
            return e.Shutdown(shutdownCtx)
        },
    }

    cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
    cmd.Flags().BoolVar(&workers, "workers", true, "run the hold sweeper, queue expiry and reminder workers")
    cmd.Flags().BoolVar(&consume, "consume", false, "also run the notification consumer")
    cmd.Flags().BoolVar(&demo, "demo", false, "seed a demo outlet (memory store only)")
    cmd.Flags().StringVar(&logPath, "delivery-log", "logs/notifications.log", "file the notification consumer appends to")
    return cmd
}
