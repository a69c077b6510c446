// Package counter hands out the per-outlet, per-day sequence numbers used
// for walk-in queue codes (Q001, Q002, ...).
package counter

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// Sequence returns the next number for an outlet on a service day.  The
// first call of a day returns 1.
type Sequence interface {
    Next(ctx context.Context, outletID uint64, day time.Time) (int64, error)
}

func dayKey(outletID uint64, day time.Time) string {
    return fmt.Sprintf("queue:outlet:%d:day:%s", outletID, day.Format("2006-01-02"))
}

// Redis is a Sequence shared by every replica, built on INCR.
type Redis struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewRedis returns a Redis sequence.  Day counters expire two days after
// their first use.
func NewRedis(rdb *redis.Client) *Redis {
    return &Redis{rdb: rdb, ttl: 48 * time.Hour}
}

// Next implements Sequence.
func (r *Redis) Next(ctx context.Context, outletID uint64, day time.Time) (int64, error) {
    key := dayKey(outletID, day)
    n, err := r.rdb.Incr(ctx, key).Result()
    if err != nil {
        return 0, fmt.Errorf("incr %s: %w", key, err)
    }
    if n == 1 {
        if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
            return 0, fmt.Errorf("expire %s: %w", key, err)
        }
    }
    return n, nil
}

// Memory is an in-process Sequence for single-replica and test setups.
type Memory struct {
    mu     sync.Mutex
    counts map[string]int64
}

// NewMemory returns an empty Memory sequence.
func NewMemory() *Memory {
    return &Memory{counts: make(map[string]int64)}
}

// Next implements Sequence.
func (m *Memory) Next(_ context.Context, outletID uint64, day time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    key := dayKey(outletID, day)
    m.counts[key]++
    return m.counts[key], nil
}
