// Package lock serializes table allocation.  Every operation that reads the
// "unavailable tables" view and then writes a hold, reservation or walk-in
// assignment runs under the lock for its outlet and service day, so two
// sessions can never both claim the last table for overlapping intervals.
package lock

import (
    "context"
    "fmt"
    "time"
)

// Unlock releases a held lock.  Calling it more than once is safe.
type Unlock func()

// Locker acquires named locks.
type Locker interface {
    // Lock blocks until key is acquired or ctx is done.
    Lock(ctx context.Context, key string) (Unlock, error)
    // TryLock acquires key without waiting; ok is false when someone else holds it.
    TryLock(ctx context.Context, key string) (unlock Unlock, ok bool, err error)
}

// BookingKey names the lock covering every table interval of one outlet on
// one service day.  Dining intervals are bounded by the operating window, so
// two intervals that overlap always share the same day bucket.
func BookingKey(outletID uint64, at time.Time, loc *time.Location) string {
    if loc == nil {
        loc = time.UTC
    }
    return fmt.Sprintf("booking:%d:%s", outletID, at.In(loc).Format("2006-01-02"))
}

// QueueKey names the lock guarding an outlet's queue ordering.
func QueueKey(outletID uint64) string {
    return fmt.Sprintf("queue:%d", outletID)
}

// TaskKey names the lock that keeps a background task single-instance.
func TaskKey(name string) string {
    return "task:" + name
}
