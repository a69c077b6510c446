package service

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/counter"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/logging"
    "github.com/iliyamo/table-reservation/internal/model"
)

// OutletStore looks up outlets and their booking policy.
type OutletStore interface {
    GetOutlet(ctx context.Context, id uint64) (model.Outlet, error)
}

// SettingsGateway returns the slot settings for an outlet at an instant,
// or nil when the outlet has no settings covering it.
type SettingsGateway interface {
    GetSlotSettings(ctx context.Context, outletID uint64, at time.Time) (*model.SlotSettings, error)
}

// TableCatalog lists an outlet's tables, active or not.
type TableCatalog interface {
    GetTables(ctx context.Context, outletID uint64) ([]model.Table, error)
}

// ReservationStore persists reservations, their table assignments and
// their status audit trail.  Interval queries only count reservations whose
// status occupies tables and whose [start, start+duration) overlaps
// [start, end).
type ReservationStore interface {
    ReservedCapacity(ctx context.Context, outletID uint64, start, end time.Time, excludeID uint64) (int, error)
    ReservedTableIDs(ctx context.Context, outletID uint64, start, end time.Time, excludeID uint64) ([]uint64, error)
    CodeExists(ctx context.Context, code string) (bool, error)
    // CreateReservation stores the reservation, its tables and the initial
    // status change atomically and fills in r.ID.
    CreateReservation(ctx context.Context, r *model.Reservation, change model.StatusChange) error
    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    GetReservationByCode(ctx context.Context, code string) (model.Reservation, error)
    // SaveReservation overwrites the reservation and its tables, appending
    // change when non-nil, provided the stored status still equals
    // expected.  Otherwise it returns repository.ErrConflict.
    SaveReservation(ctx context.Context, r *model.Reservation, expected model.ReservationStatus, change *model.StatusChange) error
    ListStatusChanges(ctx context.Context, reservationID uint64) ([]model.StatusChange, error)
    // ListReservations returns reservations starting in [from, to) ordered
    // by start time.
    ListReservations(ctx context.Context, outletID uint64, from, to time.Time) ([]model.Reservation, error)
}

// HoldStore persists table holds.  It never filters by expiry except where
// a method says so; the services decide what "active" means at now.
type HoldStore interface {
    // HeldTableIDs returns tables claimed by active, unexpired holds of
    // sessions other than excludeSession that overlap [start, end).
    HeldTableIDs(ctx context.Context, outletID uint64, start, end time.Time, excludeSession string, now time.Time) ([]uint64, error)
    CreateHold(ctx context.Context, h *model.TableHold) error
    GetHold(ctx context.Context, id string) (model.TableHold, error)
    // ActiveHoldBySession returns the newest hold of the session still
    // flagged active, or repository.ErrNotFound.
    ActiveHoldBySession(ctx context.Context, sessionID string) (model.TableHold, error)
    // DeactivateHold flips an active hold to inactive and reports whether
    // this call did it.
    DeactivateHold(ctx context.Context, id string) (bool, error)
    DeactivateSessionHolds(ctx context.Context, sessionID string) (int64, error)
    // ExpiredHolds lists active holds whose expiry is before now.
    ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.TableHold, error)
}

// QueueStore persists the walk-in queue.
type QueueStore interface {
    // CreateQueueEntry stores e as WAITING at the end of the outlet's
    // queue, filling in ID and Position.
    CreateQueueEntry(ctx context.Context, e *model.QueueEntry) error
    GetQueueEntry(ctx context.Context, id uint64) (model.QueueEntry, error)
    // ListQueue returns the outlet's entries in status ordered by
    // position, then join time.
    ListQueue(ctx context.Context, outletID uint64, status model.QueueStatus) ([]model.QueueEntry, error)
    // SaveQueueEntry overwrites e when its stored status still equals
    // expected and reports whether the row was written.
    SaveQueueEntry(ctx context.Context, e *model.QueueEntry, expected model.QueueStatus) (bool, error)
    // RewritePositions numbers the given WAITING entries 1..N in order.
    RewritePositions(ctx context.Context, outletID uint64, orderedIDs []uint64) error
    SetWaitEstimates(ctx context.Context, estimates map[uint64]int) error
    // AssignedTableIDs returns tables assigned to WAITING, READY or SEATED
    // entries other than excludeEntryID.
    AssignedTableIDs(ctx context.Context, outletID, excludeEntryID uint64) ([]uint64, error)
    // ExpiredReadyEntries lists READY entries whose deadline is before now.
    ExpiredReadyEntries(ctx context.Context, now time.Time, limit int) ([]model.QueueEntry, error)
    CountQueueByStatus(ctx context.Context, outletID uint64) (map[model.QueueStatus]int, error)
}

// ReminderScheduler receives "reminder needed" facts from the reservation
// lifecycle.  Scheduling a kind that is already pending for the
// reservation is a no-op.
type ReminderScheduler interface {
    ScheduleReminders(ctx context.Context, reservationID uint64, facts []model.ReminderFact) error
    CancelReminders(ctx context.Context, reservationID uint64) error
}

// ReminderStore is the ReminderScheduler plus the dispatch side.
type ReminderStore interface {
    ReminderScheduler
    DueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
    MarkReminder(ctx context.Context, id uint64, status model.ReminderStatus, at time.Time) error
}

// Notifier delivers guest-facing messages.  Delivery is best-effort: a
// failure is logged and never undoes the operation that triggered it.
type Notifier interface {
    ReservationConfirmed(ctx context.Context, outlet model.Outlet, r model.Reservation, tableNumbers []string) error
    ReservationCanceled(ctx context.Context, outlet model.Outlet, r model.Reservation, reason string) error
    ReservationReminder(ctx context.Context, r model.Reservation, kind model.ReminderKind) error
    QueueEntryCalled(ctx context.Context, e model.QueueEntry, tableNumber string) error
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) ReservationConfirmed(context.Context, model.Outlet, model.Reservation, []string) error {
    return nil
}
func (NopNotifier) ReservationCanceled(context.Context, model.Outlet, model.Reservation, string) error {
    return nil
}
func (NopNotifier) ReservationReminder(context.Context, model.Reservation, model.ReminderKind) error {
    return nil
}
func (NopNotifier) QueueEntryCalled(context.Context, model.QueueEntry, string) error { return nil }

// Dependencies wires the services to their collaborators.  Notifier,
// Locker, Codes, Log and Now have in-process defaults.
type Dependencies struct {
    Outlets      OutletStore
    Settings     SettingsGateway
    Tables       TableCatalog
    Reservations ReservationStore
    Holds        HoldStore
    Queue        QueueStore
    Reminders    ReminderStore
    Notifier     Notifier
    Locker       lock.Locker
    Codes        counter.Sequence
    Log          logrus.FieldLogger
    Now          func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
    if d.Notifier == nil {
        d.Notifier = NopNotifier{}
    }
    if d.Locker == nil {
        d.Locker = lock.NewKeyedMutex()
    }
    if d.Codes == nil {
        d.Codes = counter.NewMemory()
    }
    if d.Log == nil {
        d.Log = logging.Discard()
    }
    if d.Now == nil {
        d.Now = func() time.Time { return time.Now().UTC() }
    }
    return d
}

// activeOutlet loads an outlet and rejects inactive ones.
func (d Dependencies) activeOutlet(ctx context.Context, id uint64) (model.Outlet, error) {
    o, err := d.Outlets.GetOutlet(ctx, id)
    if err != nil {
        return model.Outlet{}, notFound(err, "outlet %d not found", id)
    }
    if !o.IsActive {
        return model.Outlet{}, newError(ErrPolicy, "outlet %d is not accepting bookings", id)
    }
    return o, nil
}

// conflictScope selects which claims count as "unavailable".
type conflictScope struct {
    excludeReservation uint64 // a reservation being updated does not conflict with itself
    excludeSession     string // a session's own hold does not conflict with it
    walkIns            bool   // tables assigned to walk-ins still in the queue or seated
    excludeEntry       uint64 // a walk-in's own assignment does not conflict with it
}

// unavailableTables is the single view of table contention shared by
// reservations, holds and the queue.  It always reads current state and is
// never cached beyond one operation.
func (d Dependencies) unavailableTables(ctx context.Context, outletID uint64, start, end time.Time, scope conflictScope) (map[uint64]struct{}, error) {
    reserved, err := d.Reservations.ReservedTableIDs(ctx, outletID, start, end, scope.excludeReservation)
    if err != nil {
        return nil, err
    }
    held, err := d.Holds.HeldTableIDs(ctx, outletID, start, end, scope.excludeSession, d.Now())
    if err != nil {
        return nil, err
    }
    out := make(map[uint64]struct{}, len(reserved)+len(held))
    for _, id := range reserved {
        out[id] = struct{}{}
    }
    for _, id := range held {
        out[id] = struct{}{}
    }
    if scope.walkIns && d.Queue != nil {
        assigned, err := d.Queue.AssignedTableIDs(ctx, outletID, scope.excludeEntry)
        if err != nil {
            return nil, err
        }
        for _, id := range assigned {
            out[id] = struct{}{}
        }
    }
    return out, nil
}

func (d Dependencies) slotSettings(ctx context.Context, outletID uint64, at time.Time) (*model.SlotSettings, error) {
    s, err := d.Settings.GetSlotSettings(ctx, outletID, at)
    if err != nil {
        return nil, fmt.Errorf("slot settings for outlet %d at %s: %w", outletID, at.Format(time.RFC3339), err)
    }
    return s, nil
}
