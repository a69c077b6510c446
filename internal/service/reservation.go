package service

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
)

// minChangeCutoff is the shortest window before a reservation in which it
// can no longer be changed or canceled.
const minChangeCutoff = 2 * time.Hour

// CreateReservationRequest describes a new booking.  When SessionID has a
// live hold for the same outlet and start time that seats the party, the
// held tables are used and the hold is consumed.
type CreateReservationRequest struct {
    OutletID        uint64
    CustomerName    string
    CustomerPhone   string
    CustomerEmail   string
    SpecialRequests string
    PartySize       int
    StartTime       time.Time
    SessionID       string
}

// UpdateReservationRequest changes a booking.  Nil fields are left alone.
type UpdateReservationRequest struct {
    PartySize       *int
    StartTime       *time.Time
    CustomerName    *string
    CustomerPhone   *string
    CustomerEmail   *string
    SpecialRequests *string
}

// ReservationService owns the reservation lifecycle.
type ReservationService struct {
    cfg     config.BookingConfig
    deps    Dependencies
    newCode func() (string, error)
}

func NewReservationService(cfg config.BookingConfig, deps Dependencies) *ReservationService {
    return &ReservationService{cfg: cfg, deps: deps.withDefaults(), newCode: randomCode}
}

// Create books a table.  New reservations start CONFIRMED.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (model.Reservation, error) {
    req.CustomerName = strings.TrimSpace(req.CustomerName)
    req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
    req.SessionID = strings.TrimSpace(req.SessionID)
    switch {
    case req.CustomerName == "":
        return model.Reservation{}, newError(ErrValidation, "customer name is required")
    case req.CustomerPhone == "":
        return model.Reservation{}, newError(ErrValidation, "customer phone is required")
    case req.PartySize <= 0:
        return model.Reservation{}, newError(ErrValidation, "party size must be positive")
    case req.StartTime.IsZero():
        return model.Reservation{}, newError(ErrValidation, "start time is required")
    }
    outlet, err := s.deps.activeOutlet(ctx, req.OutletID)
    if err != nil {
        return model.Reservation{}, err
    }
    now := s.deps.Now()
    if err := s.checkStart(outlet, req.StartTime, now); err != nil {
        return model.Reservation{}, err
    }

    unlock, err := s.deps.Locker.Lock(ctx, lock.BookingKey(outlet.ID, req.StartTime, s.cfg.Location))
    if err != nil {
        return model.Reservation{}, fmt.Errorf("acquire booking lock: %w", err)
    }
    defer unlock()

    settings, err := s.deps.slotSettings(ctx, outlet.ID, req.StartTime)
    if err != nil {
        return model.Reservation{}, err
    }
    if settings == nil || !settings.AcceptsReservations() {
        return model.Reservation{}, newError(ErrPolicy, "the slot at %s is not accepting reservations",
            req.StartTime.In(s.cfg.Location).Format("2006-01-02 15:04"))
    }
    tables, err := s.deps.Tables.GetTables(ctx, outlet.ID)
    if err != nil {
        return model.Reservation{}, fmt.Errorf("list tables: %w", err)
    }

    r := model.Reservation{
        OutletID:        outlet.ID,
        CustomerName:    req.CustomerName,
        CustomerPhone:   req.CustomerPhone,
        CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
        SpecialRequests: strings.TrimSpace(req.SpecialRequests),
        PartySize:       req.PartySize,
        StartTime:       req.StartTime,
        Duration:        settings.DiningDuration(),
        Status:          model.ReservationConfirmed,
        CreatedAt:       now,
        UpdatedAt:       now,
    }

    hold, err := s.deps.findSessionHold(ctx, req.SessionID)
    if err != nil {
        return model.Reservation{}, err
    }
    if hold != nil && !usableHold(*hold, outlet.ID, req.SessionID, req.StartTime, req.PartySize, tables, now) {
        hold = nil
    }
    if hold != nil {
        r.TableIDs = append([]uint64(nil), hold.TableIDs...)
        if hold.Duration > 0 {
            r.Duration = hold.Duration
        }
    } else {
        assignment, err := s.allocate(ctx, outlet.ID, req.PartySize, req.StartTime, r.EndTime(), settings.Capacity, tables,
            conflictScope{excludeSession: req.SessionID})
        if err != nil {
            return model.Reservation{}, err
        }
        r.TableIDs = assignment.TableIDs()
    }

    if r.Code, err = s.uniqueCode(ctx); err != nil {
        return model.Reservation{}, err
    }
    change := model.StatusChange{NewStatus: r.Status, Reason: "created", ChangedAt: now}
    if err := s.deps.Reservations.CreateReservation(ctx, &r, change); err != nil {
        return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
    }
    log := s.deps.Log.WithFields(logrus.Fields{
        "reservation_id": r.ID,
        "code":           r.Code,
        "outlet_id":      outlet.ID,
        "tables":         r.TableIDs,
    })
    if hold != nil {
        log = log.WithField("hold_id", hold.ID)
        if _, err := s.deps.Holds.DeactivateHold(ctx, hold.ID); err != nil {
            log.WithError(err).Warn("consumed hold not deactivated")
        }
    }
    log.Info("reservation created")

    s.schedule(ctx, r, now)
    if err := s.deps.Notifier.ReservationConfirmed(ctx, outlet, r, tableNumbers(r.TableIDs, tables)); err != nil {
        log.WithError(err).Warn("confirmation notification failed")
    }
    return r, nil
}

// allocate checks seat capacity and solves tables for [start, end).
func (s *ReservationService) allocate(ctx context.Context, outletID uint64, party int, start, end time.Time, capacity int, tables []model.Table, scope conflictScope) (Assignment, error) {
    reserved, err := s.deps.Reservations.ReservedCapacity(ctx, outletID, start, end, scope.excludeReservation)
    if err != nil {
        return Assignment{}, fmt.Errorf("reserved capacity: %w", err)
    }
    if capacity-reserved < party {
        return Assignment{}, newError(ErrNoCapacity, "not enough capacity for a party of %d at %s",
            party, start.In(s.cfg.Location).Format("15:04"))
    }
    excluded, err := s.deps.unavailableTables(ctx, outletID, start, end, scope)
    if err != nil {
        return Assignment{}, fmt.Errorf("unavailable tables: %w", err)
    }
    assignment := SolveTables(party, tables, excluded)
    if assignment.Empty() {
        return Assignment{}, newError(ErrNoCapacity, "no tables available for a party of %d at %s",
            party, start.In(s.cfg.Location).Format("15:04"))
    }
    return assignment, nil
}

// checkStart enforces operating hours and the outlet's advance window.
func (s *ReservationService) checkStart(o model.Outlet, start, now time.Time) error {
    if !withinOperatingHours(start, s.cfg) {
        return newError(ErrValidation, "start time %s is outside operating hours", start.In(s.cfg.Location).Format("15:04"))
    }
    earliest := now.Add(time.Duration(o.MinAdvanceHours) * time.Hour)
    if start.Before(earliest) {
        if o.MinAdvanceHours == 0 {
            return newError(ErrValidation, "start time %s is in the past", start.Format(time.RFC3339))
        }
        return newError(ErrPolicy, "reservations must be made at least %d hours in advance", o.MinAdvanceHours)
    }
    if o.MaxAdvanceDays > 0 && start.After(now.AddDate(0, 0, o.MaxAdvanceDays)) {
        return newError(ErrPolicy, "reservations can be made at most %d days in advance", o.MaxAdvanceDays)
    }
    return nil
}

// changeCutoff is how long before the start a reservation freezes.
func changeCutoff(o model.Outlet) time.Duration {
    half := time.Duration(o.MinAdvanceHours) * time.Hour / 2
    if half > minChangeCutoff {
        return half
    }
    return minChangeCutoff
}

func (s *ReservationService) checkCutoff(o model.Outlet, start, now time.Time) error {
    cutoff := changeCutoff(o)
    if now.After(start.Add(-cutoff)) {
        return newError(ErrPolicy, "reservations cannot be changed less than %s before the start", formatHours(cutoff))
    }
    return nil
}

// Update changes a confirmed or pending reservation.  A new party size or
// start time is re-checked against capacity, ignoring the reservation's
// own claim, and gets a fresh table assignment.  On any error nothing is
// written.
func (s *ReservationService) Update(ctx context.Context, id uint64, req UpdateReservationRequest) (model.Reservation, error) {
    seen, err := s.deps.Reservations.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %d not found", id)
    }
    days := []time.Time{seen.StartTime}
    if req.StartTime != nil {
        days = append(days, *req.StartTime)
    }
    unlock, err := s.lockDays(ctx, seen.OutletID, days...)
    if err != nil {
        return model.Reservation{}, err
    }
    defer unlock()

    // Re-read under the lock; concurrent updates apply one after the other.
    current, err := s.deps.Reservations.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %d not found", id)
    }
    if !s.sameDay(current.OutletID, current.StartTime, days...) {
        return model.Reservation{}, newError(ErrInvalidState, "reservation %s was moved concurrently", current.Code)
    }
    if !current.Status.OccupiesTables() {
        return model.Reservation{}, newError(ErrInvalidState, "a %s reservation cannot be changed", strings.ToLower(string(current.Status)))
    }
    outlet, err := s.deps.activeOutlet(ctx, current.OutletID)
    if err != nil {
        return model.Reservation{}, err
    }
    now := s.deps.Now()
    if err := s.checkCutoff(outlet, current.StartTime, now); err != nil {
        return model.Reservation{}, err
    }

    next := current
    next.TableIDs = append([]uint64(nil), current.TableIDs...)
    if req.CustomerName != nil {
        next.CustomerName = strings.TrimSpace(*req.CustomerName)
        if next.CustomerName == "" {
            return model.Reservation{}, newError(ErrValidation, "customer name is required")
        }
    }
    if req.CustomerPhone != nil {
        next.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
        if next.CustomerPhone == "" {
            return model.Reservation{}, newError(ErrValidation, "customer phone is required")
        }
    }
    if req.CustomerEmail != nil {
        next.CustomerEmail = strings.TrimSpace(*req.CustomerEmail)
    }
    if req.SpecialRequests != nil {
        next.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
    }
    if req.PartySize != nil {
        if *req.PartySize <= 0 {
            return model.Reservation{}, newError(ErrValidation, "party size must be positive")
        }
        next.PartySize = *req.PartySize
    }
    if req.StartTime != nil {
        next.StartTime = *req.StartTime
    }
    timeChanged := !next.StartTime.Equal(current.StartTime)

    if timeChanged || next.PartySize != current.PartySize {
        if timeChanged {
            if err := s.checkStart(outlet, next.StartTime, now); err != nil {
                return model.Reservation{}, err
            }
            if err := s.checkCutoff(outlet, next.StartTime, now); err != nil {
                return model.Reservation{}, err
            }
        }
        settings, err := s.deps.slotSettings(ctx, outlet.ID, next.StartTime)
        if err != nil {
            return model.Reservation{}, err
        }
        if settings == nil || !settings.AcceptsReservations() {
            return model.Reservation{}, newError(ErrPolicy, "the slot at %s is not accepting reservations",
                next.StartTime.In(s.cfg.Location).Format("2006-01-02 15:04"))
        }
        next.Duration = settings.DiningDuration()
        tables, err := s.deps.Tables.GetTables(ctx, outlet.ID)
        if err != nil {
            return model.Reservation{}, fmt.Errorf("list tables: %w", err)
        }
        assignment, err := s.allocate(ctx, outlet.ID, next.PartySize, next.StartTime, next.EndTime(), settings.Capacity, tables,
            conflictScope{excludeReservation: current.ID})
        if err != nil {
            return model.Reservation{}, err
        }
        next.TableIDs = assignment.TableIDs()
    }

    next.UpdatedAt = now
    if err := s.deps.Reservations.SaveReservation(ctx, &next, current.Status, nil); err != nil {
        return model.Reservation{}, s.saveError(err, id)
    }
    s.deps.Log.WithFields(logrus.Fields{
        "reservation_id": id,
        "start":          next.StartTime.Format(time.RFC3339),
        "party_size":     next.PartySize,
        "tables":         next.TableIDs,
    }).Info("reservation updated")
    if timeChanged {
        if err := s.deps.Reminders.CancelReminders(ctx, id); err != nil {
            s.deps.Log.WithError(err).WithField("reservation_id", id).Warn("stale reminders not canceled")
        }
        s.schedule(ctx, next, now)
    }
    return next, nil
}

// sameDay reports whether t falls on the service day of any of days.
func (s *ReservationService) sameDay(outletID uint64, t time.Time, days ...time.Time) bool {
    key := lock.BookingKey(outletID, t, s.cfg.Location)
    for _, d := range days {
        if lock.BookingKey(outletID, d, s.cfg.Location) == key {
            return true
        }
    }
    return false
}

// lockDays takes the booking lock of every service day touched, in key
// order so two updates crossing the same days cannot deadlock.
func (s *ReservationService) lockDays(ctx context.Context, outletID uint64, times ...time.Time) (lock.Unlock, error) {
    seen := map[string]bool{}
    var keys []string
    for _, t := range times {
        k := lock.BookingKey(outletID, t, s.cfg.Location)
        if !seen[k] {
            seen[k] = true
            keys = append(keys, k)
        }
    }
    sort.Strings(keys)
    var unlocks []lock.Unlock
    release := func() {
        for i := len(unlocks) - 1; i >= 0; i-- {
            unlocks[i]()
        }
    }
    for _, k := range keys {
        u, err := s.deps.Locker.Lock(ctx, k)
        if err != nil {
            release()
            return nil, fmt.Errorf("acquire booking lock: %w", err)
        }
        unlocks = append(unlocks, u)
    }
    return release, nil
}

// Cancel cancels a reservation.  Canceling twice is a no-op; completed and
// no-show reservations cannot be canceled.
func (s *ReservationService) Cancel(ctx context.Context, id uint64, reason string) (model.Reservation, error) {
    r, err := s.deps.Reservations.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %d not found", id)
    }
    switch r.Status {
    case model.ReservationCanceled:
        return r, nil
    case model.ReservationCompleted, model.ReservationNoShow:
        return model.Reservation{}, newError(ErrInvalidState, "a %s reservation cannot be canceled", strings.ToLower(string(r.Status)))
    }
    outlet, err := s.deps.Outlets.GetOutlet(ctx, r.OutletID)
    if err != nil {
        return model.Reservation{}, notFound(err, "outlet %d not found", r.OutletID)
    }
    now := s.deps.Now()
    if err := s.checkCutoff(outlet, r.StartTime, now); err != nil {
        return model.Reservation{}, err
    }
    if strings.TrimSpace(reason) == "" {
        reason = "canceled by guest"
    }
    if err := s.transition(ctx, &r, model.ReservationCanceled, reason, now); err != nil {
        return model.Reservation{}, err
    }
    if err := s.deps.Notifier.ReservationCanceled(ctx, outlet, r, reason); err != nil {
        s.deps.Log.WithError(err).WithField("reservation_id", id).Warn("cancellation notification failed")
    }
    return r, nil
}

// Confirm moves a pending reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.guarded(ctx, id, model.ReservationPending, model.ReservationConfirmed, "confirmed by staff")
}

// MarkNoShow records that the guest of a confirmed reservation never came.
func (s *ReservationService) MarkNoShow(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.guarded(ctx, id, model.ReservationConfirmed, model.ReservationNoShow, "guest did not arrive")
}

// MarkCompleted closes a confirmed reservation after the meal.
func (s *ReservationService) MarkCompleted(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.guarded(ctx, id, model.ReservationConfirmed, model.ReservationCompleted, "completed")
}

func (s *ReservationService) guarded(ctx context.Context, id uint64, from, to model.ReservationStatus, reason string) (model.Reservation, error) {
    r, err := s.deps.Reservations.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %d not found", id)
    }
    if r.Status != from {
        return model.Reservation{}, newError(ErrInvalidState, "reservation is %s, expected %s", r.Status, from)
    }
    if err := s.transition(ctx, &r, to, reason, s.deps.Now()); err != nil {
        return model.Reservation{}, err
    }
    return r, nil
}

// transition writes a status change guarded by the current status and
// appends the audit record.  Leaving the active states drops pending
// reminders.
func (s *ReservationService) transition(ctx context.Context, r *model.Reservation, to model.ReservationStatus, reason string, now time.Time) error {
    from := r.Status
    if !from.CanTransitionTo(to) {
        return newError(ErrInvalidState, "reservation cannot move from %s to %s", from, to)
    }
    next := *r
    next.Status = to
    next.UpdatedAt = now
    change := model.StatusChange{ReservationID: r.ID, OldStatus: from, NewStatus: to, Reason: reason, ChangedAt: now}
    if err := s.deps.Reservations.SaveReservation(ctx, &next, from, &change); err != nil {
        return s.saveError(err, r.ID)
    }
    *r = next
    s.deps.Log.WithFields(logrus.Fields{
        "reservation_id": r.ID,
        "from":           from,
        "to":             to,
    }).Info("reservation status changed")
    if !to.OccupiesTables() {
        if err := s.deps.Reminders.CancelReminders(ctx, r.ID); err != nil {
            s.deps.Log.WithError(err).WithField("reservation_id", r.ID).Warn("reminders not canceled")
        }
    }
    return nil
}

func (s *ReservationService) saveError(err error, id uint64) error {
    switch {
    case errors.Is(err, repository.ErrConflict):
        return newError(ErrInvalidState, "reservation %d was changed concurrently", id)
    case errors.Is(err, repository.ErrNotFound):
        return newError(ErrNotFound, "reservation %d not found", id)
    }
    return fmt.Errorf("save reservation: %w", err)
}

// Get returns a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id uint64) (model.Reservation, error) {
    r, err := s.deps.Reservations.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %d not found", id)
    }
    return r, nil
}

// GetByCode looks a reservation up by its guest-facing code.
func (s *ReservationService) GetByCode(ctx context.Context, code string) (model.Reservation, error) {
    code = strings.ToUpper(strings.TrimSpace(code))
    if len(code) != codeLength {
        return model.Reservation{}, newError(ErrValidation, "reservation code must be %d characters", codeLength)
    }
    r, err := s.deps.Reservations.GetReservationByCode(ctx, code)
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation %s not found", code)
    }
    return r, nil
}

// History returns the status audit trail, oldest first.
func (s *ReservationService) History(ctx context.Context, id uint64) ([]model.StatusChange, error) {
    if _, err := s.Get(ctx, id); err != nil {
        return nil, err
    }
    return s.deps.Reservations.ListStatusChanges(ctx, id)
}

// ListDay returns an outlet's reservations for the service day containing
// day, ordered by start time.
func (s *ReservationService) ListDay(ctx context.Context, outletID uint64, day time.Time) ([]model.Reservation, error) {
    if _, err := s.deps.Outlets.GetOutlet(ctx, outletID); err != nil {
        return nil, notFound(err, "outlet %d not found", outletID)
    }
    from := startOfDay(day, s.cfg.Location)
    return s.deps.Reservations.ListReservations(ctx, outletID, from, from.AddDate(0, 0, 1))
}

// reminderFacts lists the messages a reservation needs from now on.  A
// moved reservation gets a fresh confirmation with the new time.
func reminderFacts(r model.Reservation, now time.Time) []model.ReminderFact {
    facts := []model.ReminderFact{{Kind: model.ReminderConfirmation, DueAt: now}}
    if due := r.StartTime.Add(-24 * time.Hour); due.After(now) {
        facts = append(facts, model.ReminderFact{Kind: model.ReminderDayBefore, DueAt: due})
    }
    if due := r.StartTime.Add(-time.Hour); due.After(now) {
        facts = append(facts, model.ReminderFact{Kind: model.ReminderHourBefore, DueAt: due})
    }
    return facts
}

func (s *ReservationService) schedule(ctx context.Context, r model.Reservation, now time.Time) {
    facts := reminderFacts(r, now)
    if err := s.deps.Reminders.ScheduleReminders(ctx, r.ID, facts); err != nil {
        s.deps.Log.WithError(err).WithField("reservation_id", r.ID).Warn("reminders not scheduled")
    }
}

func formatHours(d time.Duration) string {
    h := d.Hours()
    if h == float64(int(h)) {
        return fmt.Sprintf("%d hours", int(h))
    }
    return fmt.Sprintf("%.1f hours", h)
}
