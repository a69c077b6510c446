package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
)

// sweepBatch caps how many expired holds one sweep pass reads.
const sweepBatch = 500

// HoldRequest asks for tables to be held for a session.
type HoldRequest struct {
    OutletID   uint64
    PartySize  int
    TargetTime time.Time
    SessionID  string
}

// HoldResult is the outcome of HoldService.Create.  A request that is
// valid but cannot be satisfied returns IsSuccessful false with a Reason
// rather than an error.
type HoldResult struct {
    IsSuccessful bool             `json:"is_successful"`
    Reason       string           `json:"reason,omitempty"`
    HoldID       string           `json:"hold_id,omitempty"`
    TableNumbers []string         `json:"table_numbers,omitempty"`
    ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
    Inefficient  bool             `json:"inefficient,omitempty"`
    Hold         *model.TableHold `json:"-"`
}

func holdFailed(format string, args ...any) HoldResult {
    return HoldResult{Reason: fmt.Sprintf(format, args...)}
}

// HoldService manages short-lived, session-scoped table holds.
type HoldService struct {
    cfg   config.BookingConfig
    deps  Dependencies
    newID func() string
}

func NewHoldService(cfg config.BookingConfig, deps Dependencies) *HoldService {
    return &HoldService{cfg: cfg, deps: deps.withDefaults(), newID: uuid.NewString}
}

// Create releases the session's current hold, if any, and holds tables
// for the new request.  The whole check-then-write runs under the booking
// lock of the outlet's service day.
func (s *HoldService) Create(ctx context.Context, req HoldRequest) (HoldResult, error) {
    req.SessionID = strings.TrimSpace(req.SessionID)
    if req.SessionID == "" {
        return HoldResult{}, newError(ErrValidation, "session id is required")
    }
    if req.PartySize <= 0 {
        return HoldResult{}, newError(ErrValidation, "party size must be positive")
    }
    if req.TargetTime.IsZero() {
        return HoldResult{}, newError(ErrValidation, "target time is required")
    }
    outlet, err := s.deps.activeOutlet(ctx, req.OutletID)
    if err != nil {
        return HoldResult{}, err
    }
    now := s.deps.Now()
    if req.TargetTime.Before(now) {
        return HoldResult{}, newError(ErrValidation, "target time %s is in the past", req.TargetTime.Format(time.RFC3339))
    }
    if !withinOperatingHours(req.TargetTime, s.cfg) {
        return HoldResult{}, newError(ErrValidation, "target time %s is outside operating hours",
            req.TargetTime.In(s.cfg.Location).Format("15:04"))
    }

    unlock, err := s.deps.Locker.Lock(ctx, lock.BookingKey(outlet.ID, req.TargetTime, s.cfg.Location))
    if err != nil {
        return HoldResult{}, fmt.Errorf("acquire booking lock: %w", err)
    }
    defer unlock()

    released, err := s.deps.Holds.DeactivateSessionHolds(ctx, req.SessionID)
    if err != nil {
        return HoldResult{}, fmt.Errorf("release previous hold: %w", err)
    }

    settings, err := s.deps.slotSettings(ctx, outlet.ID, req.TargetTime)
    if err != nil {
        return HoldResult{}, err
    }
    if settings == nil {
        return holdFailed("no slot settings cover %s", req.TargetTime.In(s.cfg.Location).Format("2006-01-02 15:04")), nil
    }
    if !settings.AcceptsReservations() {
        return holdFailed("the slot at %s is not accepting reservations", req.TargetTime.In(s.cfg.Location).Format("15:04")), nil
    }
    end := req.TargetTime.Add(settings.DiningDuration())
    reserved, err := s.deps.Reservations.ReservedCapacity(ctx, outlet.ID, req.TargetTime, end, 0)
    if err != nil {
        return HoldResult{}, fmt.Errorf("reserved capacity: %w", err)
    }
    if settings.Capacity-reserved < req.PartySize {
        return holdFailed("slot capacity exhausted for a party of %d", req.PartySize), nil
    }
    excluded, err := s.deps.unavailableTables(ctx, outlet.ID, req.TargetTime, end, conflictScope{excludeSession: req.SessionID})
    if err != nil {
        return HoldResult{}, fmt.Errorf("unavailable tables: %w", err)
    }
    tables, err := s.deps.Tables.GetTables(ctx, outlet.ID)
    if err != nil {
        return HoldResult{}, fmt.Errorf("list tables: %w", err)
    }
    assignment := SolveTables(req.PartySize, tables, excluded)
    if assignment.Empty() {
        return holdFailed("no tables available for a party of %d", req.PartySize), nil
    }

    hold := model.TableHold{
        ID:         s.newID(),
        OutletID:   outlet.ID,
        TableIDs:   assignment.TableIDs(),
        PartySize:  req.PartySize,
        TargetTime: req.TargetTime,
        Duration:   settings.DiningDuration(),
        SessionID:  req.SessionID,
        CreatedAt:  now,
        ExpiresAt:  now.Add(s.cfg.HoldTTL),
        IsActive:   true,
    }
    if err := s.deps.Holds.CreateHold(ctx, &hold); err != nil {
        return HoldResult{}, fmt.Errorf("create hold: %w", err)
    }
    s.deps.Log.WithFields(logrus.Fields{
        "hold_id":   hold.ID,
        "outlet_id": outlet.ID,
        "tables":    assignment.TableNumbers(),
        "strategy":  assignment.Strategy,
        "released":  released,
    }).Info("tables held")

    expires := hold.ExpiresAt
    return HoldResult{
        IsSuccessful: true,
        HoldID:       hold.ID,
        TableNumbers: assignment.TableNumbers(),
        ExpiresAt:    &expires,
        Inefficient:  assignment.Inefficient,
        Hold:         &hold,
    }, nil
}

// Release deactivates a hold.  Releasing an inactive hold is a no-op.
func (s *HoldService) Release(ctx context.Context, holdID string) error {
    if _, err := s.deps.Holds.GetHold(ctx, holdID); err != nil {
        return notFound(err, "hold %s not found", holdID)
    }
    done, err := s.deps.Holds.DeactivateHold(ctx, holdID)
    if err != nil {
        return fmt.Errorf("release hold: %w", err)
    }
    if done {
        s.deps.Log.WithField("hold_id", holdID).Info("hold released")
    }
    return nil
}

// GetActiveBySession returns the session's hold while it is still live.
func (s *HoldService) GetActiveBySession(ctx context.Context, sessionID string) (model.TableHold, error) {
    h, err := s.deps.Holds.ActiveHoldBySession(ctx, sessionID)
    if err != nil {
        return model.TableHold{}, notFound(err, "no active hold for session")
    }
    if !h.ActiveAt(s.deps.Now()) {
        return model.TableHold{}, newError(ErrNotFound, "no active hold for session")
    }
    return h, nil
}

// GetByID returns a hold.  IsActive reflects expiry even when the sweep
// has not run yet.
func (s *HoldService) GetByID(ctx context.Context, holdID string) (model.TableHold, error) {
    h, err := s.deps.Holds.GetHold(ctx, holdID)
    if err != nil {
        return model.TableHold{}, notFound(err, "hold %s not found", holdID)
    }
    h.IsActive = h.ActiveAt(s.deps.Now())
    return h, nil
}

// Sweep deactivates every hold that expired before now and returns how
// many it flipped.  A failure on one hold is logged and the sweep moves on.
func (s *HoldService) Sweep(ctx context.Context, now time.Time) (int, error) {
    expired, err := s.deps.Holds.ExpiredHolds(ctx, now, sweepBatch)
    if err != nil {
        return 0, fmt.Errorf("list expired holds: %w", err)
    }
    swept := 0
    for _, h := range expired {
        done, err := s.deps.Holds.DeactivateHold(ctx, h.ID)
        if err != nil {
            s.deps.Log.WithError(err).WithField("hold_id", h.ID).Warn("hold sweep failed")
            continue
        }
        if done {
            swept++
        }
    }
    if swept > 0 {
        s.deps.Log.WithField("count", swept).Info("expired holds swept")
    }
    return swept, nil
}

// usableHold reports whether h may stand in for the capacity check of a
// reservation: live, owned by the session, same outlet and start time,
// and seating at least the party.
func usableHold(h model.TableHold, outletID uint64, sessionID string, start time.Time, party int, tables []model.Table, now time.Time) bool {
    if !h.ActiveAt(now) || h.SessionID != sessionID || h.OutletID != outletID || !h.TargetTime.Equal(start) {
        return false
    }
    byID := indexTables(tables)
    seats := 0
    for _, id := range h.TableIDs {
        t, ok := byID[id]
        if !ok || !t.IsActive {
            return false
        }
        seats += t.Capacity
    }
    return seats >= party
}

// findSessionHold returns the session's stored hold, or nil when it has none.
func (d Dependencies) findSessionHold(ctx context.Context, sessionID string) (*model.TableHold, error) {
    if sessionID == "" {
        return nil, nil
    }
    h, err := d.Holds.ActiveHoldBySession(ctx, sessionID)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, nil
    }
    if err != nil {
        return nil, fmt.Errorf("session hold: %w", err)
    }
    return &h, nil
}

func indexTables(tables []model.Table) map[uint64]model.Table {
    m := make(map[uint64]model.Table, len(tables))
    for _, t := range tables {
        m[t.ID] = t
    }
    return m
}

func tableNumbers(ids []uint64, tables []model.Table) []string {
    byID := indexTables(tables)
    out := make([]string, 0, len(ids))
    for _, id := range ids {
        if t, ok := byID[id]; ok {
            out = append(out, t.Number)
        }
    }
    return out
}
