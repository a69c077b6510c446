package service

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/counter"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/memstore"
    "github.com/iliyamo/table-reservation/internal/model"
)

// day is the service date most tests book on.
var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
    return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func clock(hour, minute int) *time.Duration {
    d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
    return &d
}

type fixture struct {
    t        *testing.T
    ctx      context.Context
    store    *memstore.Store
    cfg      config.BookingConfig
    deps     Dependencies
    now      time.Time
    outlet   model.Outlet
    tables   []model.Table
    notifier *recordingNotifier
}

// newFixture builds an outlet with one table per capacity, default
// settings seating the sum of the tables for 90 minutes, and a clock
// fixed at 2026-10-15 09:00 UTC.
func newFixture(t *testing.T, caps ...int) *fixture {
    f := &fixture{
        t:        t,
        ctx:      context.Background(),
        store:    memstore.New(time.UTC),
        cfg:      config.DefaultBookingConfig(),
        now:      time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
        notifier: &recordingNotifier{},
    }
    f.outlet = f.store.AddOutlet(model.Outlet{Name: "Harbour", IsActive: true, MaxAdvanceDays: 30})
    total := 0
    for i, c := range caps {
        f.tables = append(f.tables, f.store.AddTable(model.Table{
            OutletID: f.outlet.ID,
            Number:   fmt.Sprintf("T%d", i+1),
            Capacity: c,
            IsActive: true,
        }))
        total += c
    }
    f.settings(total, 100)
    f.deps = Dependencies{
        Outlets:      f.store,
        Settings:     f.store,
        Tables:       f.store,
        Reservations: f.store,
        Holds:        f.store,
        Queue:        f.store,
        Reminders:    f.store,
        Notifier:     f.notifier,
        Locker:       lock.NewKeyedMutex(),
        Codes:        counter.NewMemory(),
        Now:          func() time.Time { return f.now },
    }
    return f
}

func (f *fixture) settings(capacity, allocation int) {
    f.store.SetDefaultSettings(f.outlet.ID, model.SlotSettings{
        Capacity:              capacity,
        AllocationPercent:     allocation,
        DiningDurationMinutes: 90,
    })
}

func (f *fixture) availability() *AvailabilityService { return NewAvailabilityService(f.cfg, f.deps) }
func (f *fixture) holds() *HoldService                { return NewHoldService(f.cfg, f.deps) }
func (f *fixture) reservations() *ReservationService  { return NewReservationService(f.cfg, f.deps) }
func (f *fixture) queue() *QueueService               { return NewQueueService(f.cfg, f.deps) }
func (f *fixture) reminders() *ReminderService        { return NewReminderService(f.cfg, f.deps) }

func (f *fixture) book(start time.Time, party int) model.Reservation {
    f.t.Helper()
    r, err := f.reservations().Create(f.ctx, CreateReservationRequest{
        OutletID:      f.outlet.ID,
        CustomerName:  "Ana",
        CustomerPhone: "+100000",
        PartySize:     party,
        StartTime:     start,
    })
    if err != nil {
        f.t.Fatalf("book %s: %v", start, err)
    }
    return r
}

type recordingNotifier struct {
    mu        sync.Mutex
    fail      bool
    confirmed []string
    canceled  []string
    reminders []model.ReminderKind
    called    []string
}

var errDeliver = errors.New("broker down")

func (n *recordingNotifier) ReservationConfirmed(_ context.Context, _ model.Outlet, r model.Reservation, tables []string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.fail {
        return errDeliver
    }
    n.confirmed = append(n.confirmed, fmt.Sprintf("%s:%v", r.Code, tables))
    return nil
}

func (n *recordingNotifier) ReservationCanceled(_ context.Context, _ model.Outlet, r model.Reservation, reason string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.fail {
        return errDeliver
    }
    n.canceled = append(n.canceled, r.Code+":"+reason)
    return nil
}

func (n *recordingNotifier) ReservationReminder(_ context.Context, _ model.Reservation, kind model.ReminderKind) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.fail {
        return errDeliver
    }
    n.reminders = append(n.reminders, kind)
    return nil
}

func (n *recordingNotifier) QueueEntryCalled(_ context.Context, e model.QueueEntry, table string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.fail {
        return errDeliver
    }
    n.called = append(n.called, e.Code+":"+table)
    return nil
}
