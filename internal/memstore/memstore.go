// Package memstore keeps every booking aggregate in process memory.  It
// backs STORE=memory deployments and the service tests, and follows the
// same contracts as the MySQL repositories: interval queries use
// half-open overlap, guarded writes report misses, and lookups of missing
// rows return repository.ErrNotFound.
package memstore

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
)

// SettingsRule overrides an outlet's default settings on one weekday (or
// every day when Weekday is nil) between two clock offsets.
type SettingsRule struct {
    Weekday  *time.Weekday
    From, To time.Duration
    Settings model.SlotSettings
}

// Store is safe for concurrent use.
type Store struct {
    mu  sync.Mutex
    loc *time.Location

    outlets   map[uint64]model.Outlet
    tables    map[uint64]model.Table
    defaults  map[uint64]model.SlotSettings
    rules     map[uint64][]SettingsRule
    res       map[uint64]model.Reservation
    changes   []model.StatusChange
    holds     map[string]model.TableHold
    queue     map[uint64]model.QueueEntry
    reminders map[uint64]model.Reminder
    staff     map[uint64]model.Staff

    nextID uint64
}

// New returns an empty store.  loc is the timezone slot-setting rules are
// written in.
func New(loc *time.Location) *Store {
    if loc == nil {
        loc = time.UTC
    }
    return &Store{
        loc:       loc,
        outlets:   map[uint64]model.Outlet{},
        tables:    map[uint64]model.Table{},
        defaults:  map[uint64]model.SlotSettings{},
        rules:     map[uint64][]SettingsRule{},
        res:       map[uint64]model.Reservation{},
        holds:     map[string]model.TableHold{},
        queue:     map[uint64]model.QueueEntry{},
        reminders: map[uint64]model.Reminder{},
        staff:     map[uint64]model.Staff{},
    }
}

func (s *Store) id() uint64 {
    s.nextID++
    return s.nextID
}

// AddOutlet stores o, assigning an id when it has none.
func (s *Store) AddOutlet(o model.Outlet) model.Outlet {
    s.mu.Lock()
    defer s.mu.Unlock()
    if o.ID == 0 {
        o.ID = s.id()
    }
    s.outlets[o.ID] = o
    return o
}

// AddTable stores t, assigning an id when it has none.
func (s *Store) AddTable(t model.Table) model.Table {
    s.mu.Lock()
    defer s.mu.Unlock()
    if t.ID == 0 {
        t.ID = s.id()
    }
    s.tables[t.ID] = t
    return t
}

// SetDefaultSettings sets the settings used when no rule matches.
func (s *Store) SetDefaultSettings(outletID uint64, settings model.SlotSettings) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.defaults[outletID] = settings
}

// AddSettingsRule adds an override.  Earlier rules win.
func (s *Store) AddSettingsRule(outletID uint64, rule SettingsRule) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.rules[outletID] = append(s.rules[outletID], rule)
}

func (s *Store) GetOutlet(_ context.Context, id uint64) (model.Outlet, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    o, ok := s.outlets[id]
    if !ok {
        return model.Outlet{}, repository.ErrNotFound
    }
    return o, nil
}

// ListOutlets returns every outlet ordered by id.
func (s *Store) ListOutlets(_ context.Context) ([]model.Outlet, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Outlet, 0, len(s.outlets))
    for _, o := range s.outlets {
        out = append(out, o)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *Store) GetTables(_ context.Context, outletID uint64) ([]model.Table, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Table
    for _, t := range s.tables {
        if t.OutletID == outletID {
            out = append(out, t)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *Store) GetSlotSettings(_ context.Context, outletID uint64, at time.Time) (*model.SlotSettings, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    local := at.In(s.loc)
    clock := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
    for _, r := range s.rules[outletID] {
        if r.Weekday != nil && *r.Weekday != local.Weekday() {
            continue
        }
        if clock < r.From || clock >= r.To {
            continue
        }
        settings := r.Settings
        return &settings, nil
    }
    if d, ok := s.defaults[outletID]; ok {
        return &d, nil
    }
    return nil, nil
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func cloneIDs(ids []uint64) []uint64 { return append([]uint64(nil), ids...) }

func (s *Store) blocking(outletID uint64, start, end time.Time, excludeID uint64) []model.Reservation {
    var out []model.Reservation
    for _, r := range s.res {
        if r.OutletID != outletID || r.ID == excludeID || !r.Status.OccupiesTables() {
            continue
        }
        if overlaps(r.StartTime, r.EndTime(), start, end) {
            out = append(out, r)
        }
    }
    return out
}

func (s *Store) ReservedCapacity(_ context.Context, outletID uint64, start, end time.Time, excludeID uint64) (int, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    total := 0
    for _, r := range s.blocking(outletID, start, end, excludeID) {
        total += r.PartySize
    }
    return total, nil
}

func (s *Store) ReservedTableIDs(_ context.Context, outletID uint64, start, end time.Time, excludeID uint64) ([]uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var ids []uint64
    for _, r := range s.blocking(outletID, start, end, excludeID) {
        ids = append(ids, r.TableIDs...)
    }
    return ids, nil
}

func (s *Store) CodeExists(_ context.Context, code string) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, r := range s.res {
        if r.Code == code {
            return true, nil
        }
    }
    return false, nil
}

func (s *Store) CreateReservation(_ context.Context, r *model.Reservation, change model.StatusChange) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, other := range s.res {
        if other.Code == r.Code {
            return repository.ErrDuplicate
        }
    }
    r.ID = s.id()
    stored := *r
    stored.TableIDs = cloneIDs(r.TableIDs)
    s.res[r.ID] = stored
    change.ID = s.id()
    change.ReservationID = r.ID
    s.changes = append(s.changes, change)
    return nil
}

func (s *Store) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.res[id]
    if !ok {
        return model.Reservation{}, repository.ErrNotFound
    }
    r.TableIDs = cloneIDs(r.TableIDs)
    return r, nil
}

func (s *Store) GetReservationByCode(_ context.Context, code string) (model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, r := range s.res {
        if r.Code == code {
            r.TableIDs = cloneIDs(r.TableIDs)
            return r, nil
        }
    }
    return model.Reservation{}, repository.ErrNotFound
}

func (s *Store) SaveReservation(_ context.Context, r *model.Reservation, expected model.ReservationStatus, change *model.StatusChange) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    cur, ok := s.res[r.ID]
    if !ok {
        return repository.ErrNotFound
    }
    if cur.Status != expected {
        return repository.ErrConflict
    }
    stored := *r
    stored.TableIDs = cloneIDs(r.TableIDs)
    s.res[r.ID] = stored
    if change != nil {
        c := *change
        c.ID = s.id()
        c.ReservationID = r.ID
        s.changes = append(s.changes, c)
    }
    return nil
}

func (s *Store) ListStatusChanges(_ context.Context, reservationID uint64) ([]model.StatusChange, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.StatusChange
    for _, c := range s.changes {
        if c.ReservationID == reservationID {
            out = append(out, c)
        }
    }
    return out, nil
}

// ListReservations returns an outlet's reservations starting in
// [from, to), ordered by start time.
func (s *Store) ListReservations(_ context.Context, outletID uint64, from, to time.Time) ([]model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Reservation
    for _, r := range s.res {
        if r.OutletID == outletID && !r.StartTime.Before(from) && r.StartTime.Before(to) {
            r.TableIDs = cloneIDs(r.TableIDs)
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].StartTime.Equal(out[j].StartTime) {
            return out[i].StartTime.Before(out[j].StartTime)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (s *Store) HeldTableIDs(_ context.Context, outletID uint64, start, end time.Time, excludeSession string, now time.Time) ([]uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var ids []uint64
    for _, h := range s.holds {
        if h.OutletID != outletID || !h.ActiveAt(now) {
            continue
        }
        if excludeSession != "" && h.SessionID == excludeSession {
            continue
        }
        if overlaps(h.TargetTime, h.EndTime(), start, end) {
            ids = append(ids, h.TableIDs...)
        }
    }
    return ids, nil
}

func (s *Store) CreateHold(_ context.Context, h *model.TableHold) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.holds[h.ID]; ok {
        return repository.ErrDuplicate
    }
    stored := *h
    stored.TableIDs = cloneIDs(h.TableIDs)
    s.holds[h.ID] = stored
    return nil
}

func (s *Store) GetHold(_ context.Context, id string) (model.TableHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.holds[id]
    if !ok {
        return model.TableHold{}, repository.ErrNotFound
    }
    h.TableIDs = cloneIDs(h.TableIDs)
    return h, nil
}

func (s *Store) ActiveHoldBySession(_ context.Context, sessionID string) (model.TableHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var best *model.TableHold
    for _, h := range s.holds {
        if h.SessionID != sessionID || !h.IsActive {
            continue
        }
        if best == nil || h.CreatedAt.After(best.CreatedAt) {
            h := h
            best = &h
        }
    }
    if best == nil {
        return model.TableHold{}, repository.ErrNotFound
    }
    best.TableIDs = cloneIDs(best.TableIDs)
    return *best, nil
}

func (s *Store) DeactivateHold(_ context.Context, id string) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.holds[id]
    if !ok || !h.IsActive {
        return false, nil
    }
    h.IsActive = false
    s.holds[id] = h
    return true, nil
}

func (s *Store) DeactivateSessionHolds(_ context.Context, sessionID string) (int64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var n int64
    for id, h := range s.holds {
        if h.SessionID == sessionID && h.IsActive {
            h.IsActive = false
            s.holds[id] = h
            n++
        }
    }
    return n, nil
}

func (s *Store) ExpiredHolds(_ context.Context, now time.Time, limit int) ([]model.TableHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.TableHold
    for _, h := range s.holds {
        if h.IsActive && h.ExpiresAt.Before(now) {
            out = append(out, h)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

func (s *Store) CreateQueueEntry(_ context.Context, e *model.QueueEntry) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    last := 0
    for _, q := range s.queue {
        if q.OutletID == e.OutletID && q.Status == model.QueueWaiting && q.Position > last {
            last = q.Position
        }
    }
    e.ID = s.id()
    e.Position = last + 1
    s.queue[e.ID] = *e
    return nil
}

func (s *Store) GetQueueEntry(_ context.Context, id uint64) (model.QueueEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.queue[id]
    if !ok {
        return model.QueueEntry{}, repository.ErrNotFound
    }
    return e, nil
}

func (s *Store) ListQueue(_ context.Context, outletID uint64, status model.QueueStatus) ([]model.QueueEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.QueueEntry
    for _, e := range s.queue {
        if e.OutletID == outletID && e.Status == status {
            out = append(out, e)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Position != out[j].Position {
            return out[i].Position < out[j].Position
        }
        if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
            return out[i].JoinedAt.Before(out[j].JoinedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (s *Store) SaveQueueEntry(_ context.Context, e *model.QueueEntry, expected model.QueueStatus) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    cur, ok := s.queue[e.ID]
    if !ok {
        return false, repository.ErrNotFound
    }
    if cur.Status != expected {
        return false, nil
    }
    s.queue[e.ID] = *e
    return true, nil
}

func (s *Store) RewritePositions(_ context.Context, outletID uint64, orderedIDs []uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for i, id := range orderedIDs {
        e, ok := s.queue[id]
        if !ok || e.OutletID != outletID || e.Status != model.QueueWaiting {
            continue
        }
        e.Position = i + 1
        s.queue[id] = e
    }
    return nil
}

func (s *Store) SetWaitEstimates(_ context.Context, estimates map[uint64]int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for id, minutes := range estimates {
        if e, ok := s.queue[id]; ok {
            e.EstimatedWaitMinutes = minutes
            s.queue[id] = e
        }
    }
    return nil
}

func (s *Store) AssignedTableIDs(_ context.Context, outletID, excludeEntryID uint64) ([]uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var ids []uint64
    for _, e := range s.queue {
        if e.OutletID != outletID || e.ID == excludeEntryID || e.AssignedTableID == nil {
            continue
        }
        if !e.Status.Terminal() {
            ids = append(ids, *e.AssignedTableID)
        }
    }
    return ids, nil
}

func (s *Store) ExpiredReadyEntries(_ context.Context, now time.Time, limit int) ([]model.QueueEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.QueueEntry
    for _, e := range s.queue {
        if e.ConfirmationExpired(now) {
            out = append(out, e)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ReadyExpiresAt.Before(*out[j].ReadyExpiresAt) })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

func (s *Store) CountQueueByStatus(_ context.Context, outletID uint64) (map[model.QueueStatus]int, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    counts := map[model.QueueStatus]int{}
    for _, e := range s.queue {
        if e.OutletID == outletID {
            counts[e.Status]++
        }
    }
    return counts, nil
}

func (s *Store) ScheduleReminders(_ context.Context, reservationID uint64, facts []model.ReminderFact) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    pending := map[model.ReminderKind]bool{}
    for _, r := range s.reminders {
        if r.ReservationID == reservationID && r.Status == model.ReminderPending {
            pending[r.Kind] = true
        }
    }
    for _, f := range facts {
        if pending[f.Kind] {
            continue
        }
        id := s.id()
        s.reminders[id] = model.Reminder{
            ID:            id,
            ReservationID: reservationID,
            Kind:          f.Kind,
            DueAt:         f.DueAt,
            Status:        model.ReminderPending,
            CreatedAt:     time.Now().UTC(),
        }
        pending[f.Kind] = true
    }
    return nil
}

func (s *Store) CancelReminders(_ context.Context, reservationID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for id, r := range s.reminders {
        if r.ReservationID == reservationID && r.Status == model.ReminderPending {
            r.Status = model.ReminderCanceled
            s.reminders[id] = r
        }
    }
    return nil
}

func (s *Store) DueReminders(_ context.Context, now time.Time, limit int) ([]model.Reminder, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Reminder
    for _, r := range s.reminders {
        if r.Status == model.ReminderPending && !r.DueAt.After(now) {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].DueAt.Equal(out[j].DueAt) {
            return out[i].DueAt.Before(out[j].DueAt)
        }
        return out[i].ID < out[j].ID
    })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

func (s *Store) MarkReminder(_ context.Context, id uint64, status model.ReminderStatus, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.reminders[id]
    if !ok {
        return repository.ErrNotFound
    }
    r.Status = status
    if status == model.ReminderSent {
        sent := at
        r.SentAt = &sent
    }
    s.reminders[id] = r
    return nil
}

// Reminders returns every reminder of a reservation, ordered by due time.
func (s *Store) Reminders(reservationID uint64) []model.Reminder {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Reminder
    for _, r := range s.reminders {
        if r.ReservationID == reservationID {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
    return out
}

func (s *Store) CreateStaff(_ context.Context, st *model.Staff) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    email := strings.ToLower(st.Email)
    for _, other := range s.staff {
        if strings.ToLower(other.Email) == email {
            return repository.ErrDuplicate
        }
    }
    st.ID = s.id()
    s.staff[st.ID] = *st
    return nil
}

func (s *Store) GetStaffByEmail(_ context.Context, email string) (model.Staff, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    email = strings.ToLower(strings.TrimSpace(email))
    for _, st := range s.staff {
        if strings.ToLower(st.Email) == email {
            return st, nil
        }
    }
    return model.Staff{}, repository.ErrNotFound
}
