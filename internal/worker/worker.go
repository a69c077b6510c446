// Package worker runs the periodic maintenance tasks of the booking
// engine: sweeping expired holds, expiring READY walk-ins that missed their
// confirmation window and dispatching due reminders.
package worker

import (
    "context"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/lock"
)

// Task processes everything due at now and returns how many items it
// handled.  Per-item failures are the task's business; an error means the
// whole tick failed.
type Task func(ctx context.Context, now time.Time) (int, error)

// Runner calls Task every Interval.  When Locker is set, a tick only runs
// if it wins the task lock, so several replicas can run the same Runner
// and each tick is processed once.
type Runner struct {
    Name     string
    Interval time.Duration
    Task     Task
    Locker   lock.Locker
    Log      logrus.FieldLogger
    Now      func() time.Time
}

// Run ticks until ctx is cancelled.  The first tick happens immediately.
// A non-positive Interval ticks once a minute.
func (r *Runner) Run(ctx context.Context) error {
    interval := r.Interval
    if interval <= 0 {
        interval = time.Minute
    }
    t := time.NewTicker(interval)
    defer t.Stop()

    // kick immediately
    r.Tick(ctx)

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
            r.Tick(ctx)
        }
    }
}

// Tick runs the task once and reports how many items it handled.
func (r *Runner) Tick(ctx context.Context) int {
    log := r.Log.WithField("task", r.Name)
    if r.Locker != nil {
        unlock, ok, err := r.Locker.TryLock(ctx, lock.TaskKey(r.Name))
        if err != nil {
            log.WithError(err).Warn("worker: task lock failed")
            return 0
        }
        if !ok {
            log.Debug("worker: another instance holds the task lock")
            return 0
        }
        defer unlock()
    }

    now := time.Now().UTC()
    if r.Now != nil {
        now = r.Now()
    }
    n, err := r.Task(ctx, now)
    if err != nil {
        log.WithError(err).Error("worker: tick failed")
        return n
    }
    if n > 0 {
        log.WithField("count", n).Debug("worker: tick done")
    }
    return n
}

// Group runs several Runners and waits for all of them to stop.
type Group struct {
    Runners []*Runner
}

// Run starts every runner and blocks until ctx is cancelled and all of
// them have returned.
func (g Group) Run(ctx context.Context) {
    var wg sync.WaitGroup
    for _, r := range g.Runners {
        wg.Add(1)
        go func(r *Runner) {
            defer wg.Done()
            _ = r.Run(ctx)
        }(r)
    }
    wg.Wait()
}
