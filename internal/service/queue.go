package service

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/model"
)

// expiryBatch caps how many overdue READY entries one check handles.
const expiryBatch = 200

// JoinRequest adds a walk-in party to an outlet's queue.
type JoinRequest struct {
    OutletID      uint64
    CustomerName  string
    CustomerPhone string
    PartySize     int
}

// CallNextResult is the outcome of CallNext.  Empty is set when nobody is
// waiting.
type CallNextResult struct {
    Empty       bool              `json:"empty"`
    Entry       *model.QueueEntry `json:"entry,omitempty"`
    TableNumber string            `json:"table_number,omitempty"`
}

// QueueSummary counts an outlet's entries by status.
type QueueSummary struct {
    OutletID           uint64                    `json:"outlet_id"`
    Counts             map[model.QueueStatus]int `json:"counts"`
    AverageWaitMinutes float64                   `json:"average_wait_minutes"`
}

// QueueService runs the walk-in queue.  Operations that change ordering
// run under the outlet's queue lock; table assignment additionally takes
// the booking lock of the current service day.
type QueueService struct {
    cfg      config.BookingConfig
    deps     Dependencies
    estimate WaitEstimator
}

func NewQueueService(cfg config.BookingConfig, deps Dependencies) *QueueService {
    return &QueueService{cfg: cfg, deps: deps.withDefaults(), estimate: TurnoverEstimate(cfg.QueueTurnoverMinutes)}
}

// WithEstimator replaces the wait-time policy.
func (s *QueueService) WithEstimator(e WaitEstimator) *QueueService {
    s.estimate = e
    return s
}

// Join appends a WAITING entry with the next position and a code of the
// form Q001, numbered per outlet and day.
func (s *QueueService) Join(ctx context.Context, req JoinRequest) (model.QueueEntry, error) {
    req.CustomerName = strings.TrimSpace(req.CustomerName)
    req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
    switch {
    case req.CustomerName == "":
        return model.QueueEntry{}, newError(ErrValidation, "customer name is required")
    case req.PartySize <= 0:
        return model.QueueEntry{}, newError(ErrValidation, "party size must be positive")
    }
    outlet, err := s.deps.activeOutlet(ctx, req.OutletID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    now := s.deps.Now()
    n, err := s.deps.Codes.Next(ctx, outlet.ID, startOfDay(now, s.cfg.Location))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("next queue number: %w", err)
    }

    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(outlet.ID))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()

    e := model.QueueEntry{
        Code:          fmt.Sprintf("Q%03d", n),
        OutletID:      outlet.ID,
        CustomerName:  req.CustomerName,
        CustomerPhone: req.CustomerPhone,
        PartySize:     req.PartySize,
        Status:        model.QueueWaiting,
        JoinedAt:      now,
        UpdatedAt:     now,
    }
    if err := s.deps.Queue.CreateQueueEntry(ctx, &e); err != nil {
        return model.QueueEntry{}, fmt.Errorf("join queue: %w", err)
    }
    estimates, err := s.refreshEstimates(ctx, outlet.ID)
    if err != nil {
        s.deps.Log.WithError(err).WithField("outlet_id", outlet.ID).Warn("wait estimates not refreshed")
    }
    e.EstimatedWaitMinutes = estimates[e.ID]
    s.deps.Log.WithFields(logrus.Fields{
        "queue_id":  e.ID,
        "code":      e.Code,
        "outlet_id": outlet.ID,
        "position":  e.Position,
    }).Info("walk-in joined queue")
    return e, nil
}

// CallNext moves the next WAITING entry to READY and starts its
// confirmation window.  Flagged entries go first, oldest flag first;
// otherwise the lowest position wins.  When tableID is given the table is
// assigned in the same step.
func (s *QueueService) CallNext(ctx context.Context, outletID uint64, tableID *uint64) (CallNextResult, error) {
    if _, err := s.deps.activeOutlet(ctx, outletID); err != nil {
        return CallNextResult{}, err
    }
    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(outletID))
    if err != nil {
        return CallNextResult{}, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()

    waiting, err := s.deps.Queue.ListQueue(ctx, outletID, model.QueueWaiting)
    if err != nil {
        return CallNextResult{}, fmt.Errorf("list queue: %w", err)
    }
    if len(waiting) == 0 {
        return CallNextResult{Empty: true}, nil
    }
    idx := nextEligible(waiting)
    e := waiting[idx]
    now := s.deps.Now()

    var table model.Table
    if tableID != nil || e.AssignedTableID != nil {
        unlockDay, err := s.deps.Locker.Lock(ctx, lock.BookingKey(outletID, now, s.cfg.Location))
        if err != nil {
            return CallNextResult{}, fmt.Errorf("acquire booking lock: %w", err)
        }
        defer unlockDay()
    }
    switch {
    case tableID != nil:
        if table, err = s.freeTable(ctx, e, *tableID, now); err != nil {
            return CallNextResult{}, err
        }
        e.AssignedTableID = &table.ID
    case e.AssignedTableID != nil:
        // A stale assignment is dropped; the guest is called without a table.
        t, err := s.freeTable(ctx, e, *e.AssignedTableID, now)
        if err != nil {
            s.deps.Log.WithError(err).WithField("queue_id", e.ID).Warn("assigned table no longer free, calling without it")
            e.AssignedTableID = nil
        } else {
            table = t
        }
    }

    deadline := now.Add(s.cfg.ReadyGracePeriod)
    e.Status = model.QueueReady
    e.Position = 0
    e.IsHeld = false
    e.HeldAt = nil
    e.CalledAt = &now
    e.ReadyExpiresAt = &deadline
    e.UpdatedAt = now
    ok, err := s.deps.Queue.SaveQueueEntry(ctx, &e, model.QueueWaiting)
    if err != nil {
        return CallNextResult{}, fmt.Errorf("call entry: %w", err)
    }
    if !ok {
        return CallNextResult{}, newError(ErrInvalidState, "queue entry %s changed concurrently", e.Code)
    }

    rest := append(append([]model.QueueEntry(nil), waiting[:idx]...), waiting[idx+1:]...)
    if err := s.renumber(ctx, outletID, rest); err != nil {
        return CallNextResult{}, err
    }
    s.deps.Log.WithFields(logrus.Fields{
        "queue_id":  e.ID,
        "code":      e.Code,
        "outlet_id": outletID,
        "table":     table.Number,
        "deadline":  deadline.Format(time.RFC3339),
    }).Info("walk-in called")
    if err := s.deps.Notifier.QueueEntryCalled(ctx, e, table.Number); err != nil {
        s.deps.Log.WithError(err).WithField("queue_id", e.ID).Warn("call notification failed")
    }
    return CallNextResult{Entry: &e, TableNumber: table.Number}, nil
}

// nextEligible picks the index CallNext serves from a position-ordered
// WAITING list.
func nextEligible(waiting []model.QueueEntry) int {
    best := -1
    for i, e := range waiting {
        if !e.IsHeld || e.HeldAt == nil {
            continue
        }
        if best < 0 || e.HeldAt.Before(*waiting[best].HeldAt) {
            best = i
        }
    }
    if best >= 0 {
        return best
    }
    return 0
}

// RecommendTables suggests tables for an entry using the same rules as
// reservations, against tables that are not reserved, held or taken by
// another walk-in right now.  An empty Assignment means nothing fits.
func (s *QueueService) RecommendTables(ctx context.Context, entryID uint64) (Assignment, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return Assignment{}, err
    }
    if e.Status != model.QueueWaiting && e.Status != model.QueueReady {
        return Assignment{}, newError(ErrInvalidState, "queue entry %s is %s", e.Code, e.Status)
    }
    now := s.deps.Now()
    excluded, tables, err := s.walkInView(ctx, e, now)
    if err != nil {
        return Assignment{}, err
    }
    return SolveTables(e.PartySize, tables, excluded), nil
}

// AssignTable gives a WAITING or READY entry a table without changing its
// status.
func (s *QueueService) AssignTable(ctx context.Context, entryID, tableID uint64) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(e.OutletID))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()
    now := s.deps.Now()
    unlockDay, err := s.deps.Locker.Lock(ctx, lock.BookingKey(e.OutletID, now, s.cfg.Location))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("acquire booking lock: %w", err)
    }
    defer unlockDay()

    if e, err = s.getEntry(ctx, entryID); err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueWaiting && e.Status != model.QueueReady {
        return model.QueueEntry{}, newError(ErrInvalidState, "queue entry %s is %s", e.Code, e.Status)
    }
    table, err := s.freeTable(ctx, e, tableID, now)
    if err != nil {
        return model.QueueEntry{}, err
    }
    expected := e.Status
    e.AssignedTableID = &table.ID
    e.UpdatedAt = now
    if err := s.save(ctx, &e, expected); err != nil {
        return model.QueueEntry{}, err
    }
    s.deps.Log.WithFields(logrus.Fields{"queue_id": e.ID, "table": table.Number}).Info("walk-in table assigned")
    return e, nil
}

// walkInView returns the tables an entry may use now: everything except
// tables reserved or held over the next dining period and tables assigned
// to any other walk-in that is waiting, ready or seated.
func (s *QueueService) walkInView(ctx context.Context, e model.QueueEntry, now time.Time) (map[uint64]struct{}, []model.Table, error) {
    dining := time.Duration(s.cfg.WalkInDiningMinutes) * time.Minute
    settings, err := s.deps.slotSettings(ctx, e.OutletID, now)
    if err != nil {
        return nil, nil, err
    }
    if settings != nil && settings.DiningDurationMinutes > 0 {
        dining = settings.DiningDuration()
    }
    excluded, err := s.deps.unavailableTables(ctx, e.OutletID, now, now.Add(dining), conflictScope{walkIns: true, excludeEntry: e.ID})
    if err != nil {
        return nil, nil, fmt.Errorf("unavailable tables: %w", err)
    }
    tables, err := s.deps.Tables.GetTables(ctx, e.OutletID)
    if err != nil {
        return nil, nil, fmt.Errorf("list tables: %w", err)
    }
    return excluded, tables, nil
}

func (s *QueueService) freeTable(ctx context.Context, e model.QueueEntry, tableID uint64, now time.Time) (model.Table, error) {
    excluded, tables, err := s.walkInView(ctx, e, now)
    if err != nil {
        return model.Table{}, err
    }
    t, ok := indexTables(tables)[tableID]
    if !ok {
        return model.Table{}, newError(ErrNotFound, "table %d not found", tableID)
    }
    if !t.IsActive {
        return model.Table{}, newError(ErrInvalidState, "table %s is inactive", t.Number)
    }
    if t.Capacity < e.PartySize {
        return model.Table{}, newError(ErrValidation, "table %s seats %d, party is %d", t.Number, t.Capacity, e.PartySize)
    }
    if _, taken := excluded[t.ID]; taken {
        return model.Table{}, newError(ErrNoCapacity, "table %s is not available", t.Number)
    }
    return t, nil
}

// MarkSeated seats a READY entry.  An entry whose confirmation window has
// run out is cancelled instead and the call fails.
func (s *QueueService) MarkSeated(ctx context.Context, entryID uint64) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueReady {
        return model.QueueEntry{}, newError(ErrInvalidState, "queue entry %s is %s, expected READY", e.Code, e.Status)
    }
    now := s.deps.Now()
    if e.ConfirmationExpired(now) {
        if _, err := s.expire(ctx, e, now); err != nil {
            return model.QueueEntry{}, err
        }
        return model.QueueEntry{}, newError(ErrInvalidState, "confirmation window of %s has expired", e.Code)
    }
    e.Status = model.QueueSeated
    e.SeatedAt = &now
    e.UpdatedAt = now
    if err := s.save(ctx, &e, model.QueueReady); err != nil {
        return model.QueueEntry{}, err
    }
    s.deps.Log.WithField("queue_id", e.ID).Info("walk-in seated")
    return e, nil
}

// MarkCompleted closes a SEATED entry and frees its table.
func (s *QueueService) MarkCompleted(ctx context.Context, entryID uint64) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueSeated {
        return model.QueueEntry{}, newError(ErrInvalidState, "queue entry %s is %s, expected SEATED", e.Code, e.Status)
    }
    now := s.deps.Now()
    e.Status = model.QueueCompleted
    e.CompletedAt = &now
    e.UpdatedAt = now
    if err := s.save(ctx, &e, model.QueueSeated); err != nil {
        return model.QueueEntry{}, err
    }
    return e, nil
}

// MarkNoShow records that a called party never came forward.
func (s *QueueService) MarkNoShow(ctx context.Context, entryID uint64) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueReady {
        return model.QueueEntry{}, newError(ErrInvalidState, "queue entry %s is %s, expected READY", e.Code, e.Status)
    }
    now := s.deps.Now()
    e.Status = model.QueueNoShow
    e.UpdatedAt = now
    if err := s.save(ctx, &e, model.QueueReady); err != nil {
        return model.QueueEntry{}, err
    }
    return e, nil
}

// Cancel removes a WAITING or READY entry from the queue.
func (s *QueueService) Cancel(ctx context.Context, entryID uint64, reason string) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(e.OutletID))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()
    if e, err = s.getEntry(ctx, entryID); err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueWaiting && e.Status != model.QueueReady {
        return model.QueueEntry{}, newError(ErrInvalidState, "queue entry %s is %s", e.Code, e.Status)
    }
    if strings.TrimSpace(reason) == "" {
        reason = "cancelled by guest"
    }
    from := e.Status
    now := s.deps.Now()
    e.Status = model.QueueCancelled
    e.CancelReason = reason
    e.Position = 0
    e.IsHeld = false
    e.UpdatedAt = now
    if err := s.save(ctx, &e, from); err != nil {
        return model.QueueEntry{}, err
    }
    if from == model.QueueWaiting {
        if err := s.compact(ctx, e.OutletID); err != nil {
            return model.QueueEntry{}, err
        }
    }
    s.deps.Log.WithFields(logrus.Fields{"queue_id": e.ID, "reason": reason}).Info("walk-in cancelled")
    return e, nil
}

// Prioritize flags a WAITING entry so the next CallNext serves it ahead
// of position order.
func (s *QueueService) Prioritize(ctx context.Context, entryID uint64) (model.QueueEntry, error) {
    e, err := s.getEntry(ctx, entryID)
    if err != nil {
        return model.QueueEntry{}, err
    }
    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(e.OutletID))
    if err != nil {
        return model.QueueEntry{}, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()
    if e, err = s.getEntry(ctx, entryID); err != nil {
        return model.QueueEntry{}, err
    }
    if e.Status != model.QueueWaiting {
        return model.QueueEntry{}, newError(ErrInvalidState, "only waiting entries can be prioritized, %s is %s", e.Code, e.Status)
    }
    if e.IsHeld {
        return e, nil
    }
    now := s.deps.Now()
    e.IsHeld = true
    e.HeldAt = &now
    e.UpdatedAt = now
    if err := s.save(ctx, &e, model.QueueWaiting); err != nil {
        return model.QueueEntry{}, err
    }
    return e, nil
}

// Reorder puts the listed WAITING entries first, in the given order, and
// keeps the remaining WAITING entries after them in their current order.
// Positions come out dense from 1.
func (s *QueueService) Reorder(ctx context.Context, outletID uint64, orderedIDs []uint64) ([]model.QueueEntry, error) {
    unlock, err := s.deps.Locker.Lock(ctx, lock.QueueKey(outletID))
    if err != nil {
        return nil, fmt.Errorf("acquire queue lock: %w", err)
    }
    defer unlock()

    waiting, err := s.deps.Queue.ListQueue(ctx, outletID, model.QueueWaiting)
    if err != nil {
        return nil, fmt.Errorf("list queue: %w", err)
    }
    byID := make(map[uint64]model.QueueEntry, len(waiting))
    for _, e := range waiting {
        byID[e.ID] = e
    }
    ordered := make([]model.QueueEntry, 0, len(waiting))
    placed := make(map[uint64]bool, len(orderedIDs))
    for _, id := range orderedIDs {
        e, ok := byID[id]
        if !ok {
            return nil, newError(ErrValidation, "queue entry %d is not waiting at outlet %d", id, outletID)
        }
        if placed[id] {
            return nil, newError(ErrValidation, "queue entry %d listed twice", id)
        }
        placed[id] = true
        ordered = append(ordered, e)
    }
    for _, e := range waiting {
        if !placed[e.ID] {
            ordered = append(ordered, e)
        }
    }
    if err := s.renumber(ctx, outletID, ordered); err != nil {
        return nil, err
    }
    for i := range ordered {
        ordered[i].Position = i + 1
    }
    return ordered, nil
}

// UpdateWaitTimes recomputes the estimate of every WAITING entry without
// touching positions.
func (s *QueueService) UpdateWaitTimes(ctx context.Context, outletID uint64) (map[uint64]int, error) {
    return s.refreshEstimates(ctx, outletID)
}

// ExpireReady cancels READY entries whose confirmation window ended before
// now.  Each entry is cancelled by exactly one caller; an entry another
// process got to first is skipped.
func (s *QueueService) ExpireReady(ctx context.Context, now time.Time) (int, error) {
    overdue, err := s.deps.Queue.ExpiredReadyEntries(ctx, now, expiryBatch)
    if err != nil {
        return 0, fmt.Errorf("list overdue entries: %w", err)
    }
    expired := 0
    for _, e := range overdue {
        ok, err := s.expire(ctx, e, now)
        if err != nil {
            s.deps.Log.WithError(err).WithField("queue_id", e.ID).Warn("queue expiry failed")
            continue
        }
        if ok {
            expired++
        }
    }
    return expired, nil
}

func (s *QueueService) expire(ctx context.Context, e model.QueueEntry, now time.Time) (bool, error) {
    e.Status = model.QueueCancelled
    e.CancelReason = "confirmation window expired"
    e.UpdatedAt = now
    ok, err := s.deps.Queue.SaveQueueEntry(ctx, &e, model.QueueReady)
    if err != nil {
        return false, fmt.Errorf("expire entry: %w", err)
    }
    if ok {
        s.deps.Log.WithFields(logrus.Fields{"queue_id": e.ID, "code": e.Code}).Info("called walk-in expired")
    }
    return ok, nil
}

// Summary counts the outlet's entries by status and averages the wait
// estimate of those still WAITING.
func (s *QueueService) Summary(ctx context.Context, outletID uint64) (QueueSummary, error) {
    if _, err := s.deps.Outlets.GetOutlet(ctx, outletID); err != nil {
        return QueueSummary{}, notFound(err, "outlet %d not found", outletID)
    }
    counts, err := s.deps.Queue.CountQueueByStatus(ctx, outletID)
    if err != nil {
        return QueueSummary{}, fmt.Errorf("count queue: %w", err)
    }
    full := make(map[model.QueueStatus]int, len(model.AllQueueStatuses))
    for _, st := range model.AllQueueStatuses {
        full[st] = counts[st]
    }
    waiting, err := s.deps.Queue.ListQueue(ctx, outletID, model.QueueWaiting)
    if err != nil {
        return QueueSummary{}, fmt.Errorf("list queue: %w", err)
    }
    avg := 0.0
    if len(waiting) > 0 {
        total := 0
        for _, e := range waiting {
            total += e.EstimatedWaitMinutes
        }
        avg = float64(total) / float64(len(waiting))
    }
    return QueueSummary{OutletID: outletID, Counts: full, AverageWaitMinutes: avg}, nil
}

// List returns an outlet's entries in one status, in queue order.
func (s *QueueService) List(ctx context.Context, outletID uint64, status model.QueueStatus) ([]model.QueueEntry, error) {
    if !status.Valid() {
        return nil, newError(ErrValidation, "unknown queue status %q", status)
    }
    return s.deps.Queue.ListQueue(ctx, outletID, status)
}

// Get returns a queue entry.
func (s *QueueService) Get(ctx context.Context, entryID uint64) (model.QueueEntry, error) {
    return s.getEntry(ctx, entryID)
}

func (s *QueueService) getEntry(ctx context.Context, id uint64) (model.QueueEntry, error) {
    e, err := s.deps.Queue.GetQueueEntry(ctx, id)
    if err != nil {
        return model.QueueEntry{}, notFound(err, "queue entry %d not found", id)
    }
    return e, nil
}

func (s *QueueService) save(ctx context.Context, e *model.QueueEntry, expected model.QueueStatus) error {
    ok, err := s.deps.Queue.SaveQueueEntry(ctx, e, expected)
    if err != nil {
        return fmt.Errorf("save queue entry: %w", err)
    }
    if !ok {
        return newError(ErrInvalidState, "queue entry %s changed concurrently", e.Code)
    }
    return nil
}

// compact renumbers the outlet's WAITING entries after one left.
func (s *QueueService) compact(ctx context.Context, outletID uint64) error {
    waiting, err := s.deps.Queue.ListQueue(ctx, outletID, model.QueueWaiting)
    if err != nil {
        return fmt.Errorf("list queue: %w", err)
    }
    return s.renumber(ctx, outletID, waiting)
}

func (s *QueueService) renumber(ctx context.Context, outletID uint64, ordered []model.QueueEntry) error {
    ids := make([]uint64, len(ordered))
    for i, e := range ordered {
        ids[i] = e.ID
    }
    if err := s.deps.Queue.RewritePositions(ctx, outletID, ids); err != nil {
        return fmt.Errorf("rewrite positions: %w", err)
    }
    if _, err := s.refreshEstimates(ctx, outletID); err != nil {
        s.deps.Log.WithError(err).WithField("outlet_id", outletID).Warn("wait estimates not refreshed")
    }
    return nil
}

func (s *QueueService) refreshEstimates(ctx context.Context, outletID uint64) (map[uint64]int, error) {
    waiting, err := s.deps.Queue.ListQueue(ctx, outletID, model.QueueWaiting)
    if err != nil {
        return nil, err
    }
    tables, err := s.deps.Tables.GetTables(ctx, outletID)
    if err != nil {
        return nil, err
    }
    active := 0
    for _, t := range tables {
        if t.IsActive {
            active++
        }
    }
    sort.SliceStable(waiting, func(i, j int) bool { return waiting[i].Position < waiting[j].Position })
    estimates := make(map[uint64]int, len(waiting))
    for _, e := range waiting {
        estimates[e.ID] = s.estimate(e.Position, active)
    }
    if len(estimates) == 0 {
        return estimates, nil
    }
    return estimates, s.deps.Queue.SetWaitEstimates(ctx, estimates)
}
