package worker

import (
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/lock"
    "github.com/iliyamo/table-reservation/internal/service"
)

// Services are the task sources the standard runners drive.
type Services struct {
    Holds     *service.HoldService
    Queue     *service.QueueService
    Reminders *service.ReminderService
}

// Standard returns the hold sweeper, the READY expiry check and the
// reminder dispatcher with their configured intervals.  A nil service
// leaves its runner out.
func Standard(cfg config.BookingConfig, svc Services, locker lock.Locker, log logrus.FieldLogger) Group {
    var g Group
    if svc.Holds != nil {
        g.Runners = append(g.Runners, &Runner{Name: "hold-sweep", Interval: cfg.SweepInterval, Task: svc.Holds.Sweep, Locker: locker, Log: log})
    }
    if svc.Queue != nil {
        g.Runners = append(g.Runners, &Runner{Name: "queue-expiry", Interval: cfg.QueueCheckInterval, Task: svc.Queue.ExpireReady, Locker: locker, Log: log})
    }
    if svc.Reminders != nil {
        g.Runners = append(g.Runners, &Runner{Name: "reminders", Interval: cfg.ReminderInterval, Task: svc.Reminders.DispatchDue, Locker: locker, Log: log})
    }
    return g
}
