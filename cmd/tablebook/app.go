package main

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/broker"
    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/counter"
    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/handler"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/logging"
    "github.com/iliyamo/table-reservation/internal/memstore"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
    "github.com/iliyamo/table-reservation/internal/service"
)

// staffStore is what login and the staff command need from persistence.
type staffStore interface {
    handler.StaffStore
    CreateStaff(ctx context.Context, st *model.Staff) error
}

// app holds everything built from configuration.  db is nil for the
// memory store and rdb is nil when Redis is unreachable.
type app struct {
    cfg     config.Config
    booking config.BookingConfig
    log     *logrus.Logger
    db      *sql.DB
    rdb     *redis.Client
    deps    service.Dependencies
    dir     handler.Directory
    staff   staffStore
    mem     *memstore.Store
}

// newApp loads configuration and opens the stores.  Redis and RabbitMQ are
// optional: without Redis the locks and queue counters stay in process,
// without RabbitMQ notifications are dropped.
func newApp(ctx context.Context, useRedis bool) (*app, error) {
    cfg, err := config.Load()
    if err != nil {
        return nil, err
    }
    booking, err := config.LoadBookingConfig()
    if err != nil {
        return nil, err
    }
    a := &app{cfg: cfg, booking: booking, log: logging.New(cfg.LogLevel, cfg.LogFormat)}

    switch cfg.Store {
    case "memory":
        a.mem = memstore.New(booking.Location)
        a.deps = service.Dependencies{
            Outlets: a.mem, Settings: a.mem, Tables: a.mem, Reservations: a.mem,
            Holds: a.mem, Queue: a.mem, Reminders: a.mem,
        }
        a.dir, a.staff = a.mem, a.mem
    default:
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            return nil, fmt.Errorf("open mysql: %w", err)
        }
        a.db = db
        outlets, tables := repository.NewOutletRepo(db), repository.NewTableRepo(db)
        a.deps = service.Dependencies{
            Outlets:      outlets,
            Settings:     repository.NewSettingsRepo(db, booking.Location),
            Tables:       tables,
            Reservations: repository.NewReservationRepo(db),
            Holds:        repository.NewHoldRepo(db),
            Queue:        repository.NewQueueRepo(db),
            Reminders:    repository.NewReminderRepo(db),
        }
        a.dir = directory{outlets, tables}
        a.staff = repository.NewStaffRepo(db)
    }

    if useRedis {
        if a.rdb = config.NewRedisClient(); a.rdb == nil {
            a.log.Warn("redis unavailable: using in-process locks and counters")
        }
    }
    if a.rdb != nil {
        a.deps.Locker = lock.NewRedisLocker(a.rdb, booking.LockTTL)
        a.deps.Codes = counter.NewRedis(a.rdb)
    } else {
        a.deps.Locker = lock.NewKeyedMutex()
        a.deps.Codes = counter.NewMemory()
    }
    if cfg.RabbitURL != "" {
        a.deps.Notifier = broker.NewPublisher(broker.DialTransport(cfg.RabbitURL), a.log)
    } else {
        a.log.Warn("RABBITMQ_URL not set: guest notifications are disabled")
    }
    a.deps.Log = a.log
    return a, nil
}

func (a *app) Close() error {
    var errs []error
    if a.rdb != nil {
        errs = append(errs, a.rdb.Close())
    }
    if a.db != nil {
        errs = append(errs, a.db.Close())
    }
    return errors.Join(errs...)
}

func (a *app) services() (*service.AvailabilityService, *service.HoldService, *service.ReservationService, *service.QueueService, *service.ReminderService) {
    return service.NewAvailabilityService(a.booking, a.deps),
        service.NewHoldService(a.booking, a.deps),
        service.NewReservationService(a.booking, a.deps),
        service.NewQueueService(a.booking, a.deps),
        service.NewReminderService(a.booking, a.deps)
}

// directory joins the outlet and table repositories for the catalog
// handler.
type directory struct {
    *repository.OutletRepo
    *repository.TableRepo
}

// redisPinger adapts the Redis client to handler.Pinger.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
