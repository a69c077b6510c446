package service

import (
    "context"
    "fmt"
    "sort"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/model"
)

// AvailabilityRequest asks whether a party can be seated on Date.  Date
// is any instant of the wanted day; PreferredTime is an offset from that
// day's midnight in the booking timezone.  Without a preferred time every
// open slot of the day is listed.
type AvailabilityRequest struct {
    OutletID      uint64
    PartySize     int
    Date          time.Time
    PreferredTime *time.Duration
}

// Slot is one bookable start time.
type Slot struct {
    Start           time.Time `json:"start"`
    DiningMinutes   int       `json:"dining_minutes"`
    DistanceMinutes int       `json:"distance_minutes"`
}

// AvailabilityResult answers an AvailabilityRequest.  When the preferred
// time is open Preferred is set and Alternatives is empty; otherwise
// Alternatives are ordered by distance from the preferred time.
type AvailabilityResult struct {
    Available    bool   `json:"available"`
    Preferred    *Slot  `json:"preferred,omitempty"`
    Alternatives []Slot `json:"alternatives"`
}

// AvailabilityService answers availability questions.  It never writes.
type AvailabilityService struct {
    cfg  config.BookingConfig
    deps Dependencies
}

func NewAvailabilityService(cfg config.BookingConfig, deps Dependencies) *AvailabilityService {
    return &AvailabilityService{cfg: cfg, deps: deps.withDefaults()}
}

// Check evaluates the request against current reservations and holds.
func (s *AvailabilityService) Check(ctx context.Context, req AvailabilityRequest) (AvailabilityResult, error) {
    if req.PartySize <= 0 {
        return AvailabilityResult{}, newError(ErrValidation, "party size must be positive")
    }
    now := s.deps.Now().In(s.cfg.Location)
    day := startOfDay(req.Date, s.cfg.Location)
    if day.Before(startOfDay(now, s.cfg.Location)) {
        return AvailabilityResult{}, newError(ErrValidation, "date %s is in the past", day.Format("2006-01-02"))
    }
    outlet, err := s.deps.activeOutlet(ctx, req.OutletID)
    if err != nil {
        return AvailabilityResult{}, err
    }
    tables, err := s.deps.Tables.GetTables(ctx, outlet.ID)
    if err != nil {
        return AvailabilityResult{}, fmt.Errorf("list tables: %w", err)
    }
    opens, closes := operatingWindow(day, s.cfg)

    if req.PreferredTime == nil {
        slots, err := s.openSlots(ctx, outlet.ID, req.PartySize, tables, opens, closes, now)
        if err != nil {
            return AvailabilityResult{}, err
        }
        return AvailabilityResult{Available: len(slots) > 0, Alternatives: slots}, nil
    }

    preferred := day.Add(*req.PreferredTime)
    if preferred.Before(opens) || preferred.After(closes) {
        return AvailabilityResult{}, newError(ErrValidation, "preferred time %s is outside operating hours %s-%s",
            preferred.Format("15:04"), opens.Format("15:04"), closes.Format("15:04"))
    }
    if preferred.Before(now) {
        return AvailabilityResult{}, newError(ErrValidation, "preferred time %s is in the past", preferred.Format(time.RFC3339))
    }

    slot, ok, err := s.checkSlot(ctx, outlet.ID, req.PartySize, tables, preferred)
    if err != nil {
        return AvailabilityResult{}, err
    }
    if ok {
        return AvailabilityResult{Available: true, Preferred: &slot, Alternatives: []Slot{}}, nil
    }

    alternatives := []Slot{}
    for offset := s.cfg.SlotStep; offset <= s.cfg.SearchRadius; offset += s.cfg.SlotStep {
        for _, candidate := range []time.Time{preferred.Add(-offset), preferred.Add(offset)} {
            if candidate.Before(opens) || candidate.After(closes) || candidate.Before(now) {
                continue
            }
            alt, ok, err := s.checkSlot(ctx, outlet.ID, req.PartySize, tables, candidate)
            if err != nil {
                return AvailabilityResult{}, err
            }
            if ok {
                alt.DistanceMinutes = int(offset / time.Minute)
                alternatives = append(alternatives, alt)
            }
        }
    }
    sort.SliceStable(alternatives, func(i, j int) bool {
        if alternatives[i].DistanceMinutes != alternatives[j].DistanceMinutes {
            return alternatives[i].DistanceMinutes < alternatives[j].DistanceMinutes
        }
        return alternatives[i].Start.Before(alternatives[j].Start)
    })
    s.deps.Log.WithFields(logrus.Fields{
        "outlet_id":    outlet.ID,
        "party_size":   req.PartySize,
        "preferred":    preferred.Format(time.RFC3339),
        "alternatives": len(alternatives),
    }).Debug("preferred slot unavailable")
    return AvailabilityResult{Available: false, Alternatives: alternatives}, nil
}

func (s *AvailabilityService) openSlots(ctx context.Context, outletID uint64, party int, tables []model.Table, opens, closes, now time.Time) ([]Slot, error) {
    slots := []Slot{}
    for t := opens; !t.After(closes); t = t.Add(s.cfg.SlotStep) {
        if t.Before(now) {
            continue
        }
        slot, ok, err := s.checkSlot(ctx, outletID, party, tables, t)
        if err != nil {
            return nil, err
        }
        if ok {
            slots = append(slots, slot)
        }
    }
    return slots, nil
}

// checkSlot applies the slot rules at start: settings must exist with a
// non-zero allocation, the seat capacity left after overlapping
// reservations must fit the party, and concrete tables must be free.
func (s *AvailabilityService) checkSlot(ctx context.Context, outletID uint64, party int, tables []model.Table, start time.Time) (Slot, bool, error) {
    settings, err := s.deps.slotSettings(ctx, outletID, start)
    if err != nil {
        return Slot{}, false, err
    }
    if settings == nil || !settings.AcceptsReservations() {
        return Slot{}, false, nil
    }
    end := start.Add(settings.DiningDuration())
    reserved, err := s.deps.Reservations.ReservedCapacity(ctx, outletID, start, end, 0)
    if err != nil {
        return Slot{}, false, fmt.Errorf("reserved capacity: %w", err)
    }
    if settings.Capacity-reserved < party {
        return Slot{}, false, nil
    }
    excluded, err := s.deps.unavailableTables(ctx, outletID, start, end, conflictScope{})
    if err != nil {
        return Slot{}, false, fmt.Errorf("unavailable tables: %w", err)
    }
    if SolveTables(party, tables, excluded).Empty() {
        return Slot{}, false, nil
    }
    return Slot{Start: start, DiningMinutes: settings.DiningDurationMinutes}, true, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
    t = t.In(loc)
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// operatingWindow returns the first and last seating instants of day.
func operatingWindow(day time.Time, cfg config.BookingConfig) (time.Time, time.Time) {
    return day.Add(cfg.OpensAt), day.Add(cfg.ClosesAt)
}

// withinOperatingHours reports whether t is a seating time of its own day.
func withinOperatingHours(t time.Time, cfg config.BookingConfig) bool {
    opens, closes := operatingWindow(startOfDay(t, cfg.Location), cfg)
    return !t.Before(opens) && !t.After(closes)
}
