package lock

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still carries our token, so a
// holder whose lease lapsed cannot free someone else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker is a Locker shared by every replica.  A lock is a key set
// with NX and a lease (TTL); the lease bounds how long a crashed holder can
// block others.
type RedisLocker struct {
    rdb      *redis.Client
    ttl      time.Duration
    retry    time.Duration
    prefix   string
    newToken func() string
}

// NewRedisLocker returns a RedisLocker whose locks expire after ttl.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    return &RedisLocker{
        rdb:      rdb,
        ttl:      ttl,
        retry:    25 * time.Millisecond,
        prefix:   "lock:",
        newToken: uuid.NewString,
    }
}

// TryLock implements Locker.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (Unlock, bool, error) {
    full := l.prefix + key
    token := l.newToken()
    ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
    if err != nil {
        return nil, false, err
    }
    if !ok {
        return nil, false, nil
    }
    return l.unlocker(full, token), true, nil
}

// Lock implements Locker by polling TryLock until ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
    for {
        unlock, ok, err := l.TryLock(ctx, key)
        if err != nil {
            return nil, err
        }
        if ok {
            return unlock, nil
        }
        t := time.NewTimer(l.retry)
        select {
        case <-ctx.Done():
            t.Stop()
            return nil, ctx.Err()
        case <-t.C:
        }
    }
}

func (l *RedisLocker) unlocker(key, token string) Unlock {
    var once sync.Once
    return func() {
        once.Do(func() {
            // Release must run even when the caller's context is already cancelled.
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            _ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
        })
    }
}
