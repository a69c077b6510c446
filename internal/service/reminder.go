package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
)

// ReminderService delivers scheduled reminders that have come due.
type ReminderService struct {
    cfg  config.BookingConfig
    deps Dependencies
}

func NewReminderService(cfg config.BookingConfig, deps Dependencies) *ReminderService {
    return &ReminderService{cfg: cfg, deps: deps.withDefaults()}
}

// DispatchDue sends every pending reminder due at or before now and
// returns how many went out.  Reminders of reservations that no longer
// hold tables are canceled.  A reminder whose delivery fails stays pending
// and is retried on the next pass.
func (s *ReminderService) DispatchDue(ctx context.Context, now time.Time) (int, error) {
    due, err := s.deps.Reminders.DueReminders(ctx, now, s.cfg.ReminderBatchSize)
    if err != nil {
        return 0, fmt.Errorf("list due reminders: %w", err)
    }
    sent := 0
    for _, rem := range due {
        log := s.deps.Log.WithFields(logrus.Fields{
            "reminder_id":    rem.ID,
            "reservation_id": rem.ReservationID,
            "kind":           rem.Kind,
        })
        r, err := s.deps.Reservations.GetReservation(ctx, rem.ReservationID)
        if errors.Is(err, repository.ErrNotFound) {
            s.mark(ctx, log, rem.ID, model.ReminderCanceled, now)
            continue
        }
        if err != nil {
            log.WithError(err).Warn("reminder reservation lookup failed")
            continue
        }
        if !r.Status.OccupiesTables() {
            s.mark(ctx, log, rem.ID, model.ReminderCanceled, now)
            continue
        }
        if err := s.deps.Notifier.ReservationReminder(ctx, r, rem.Kind); err != nil {
            log.WithError(err).Warn("reminder delivery failed")
            continue
        }
        if s.mark(ctx, log, rem.ID, model.ReminderSent, now) {
            sent++
        }
    }
    return sent, nil
}

func (s *ReminderService) mark(ctx context.Context, log logrus.FieldLogger, id uint64, status model.ReminderStatus, now time.Time) bool {
    if err := s.deps.Reminders.MarkReminder(ctx, id, status, now); err != nil {
        log.WithError(err).Warnf("reminder not marked %s", status)
        return false
    }
    return true
}
