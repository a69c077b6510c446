package lock

import (
    "context"
    "sync"
)

// KeyedMutex is an in-process Locker.  It is enough for a single replica
// and is the fallback when Redis is unavailable.
type KeyedMutex struct {
    mu    sync.Mutex
    locks map[string]*keyLock
}

type keyLock struct {
    ch   chan struct{}
    refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
    return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (m *KeyedMutex) ref(key string) *keyLock {
    m.mu.Lock()
    defer m.mu.Unlock()
    l, ok := m.locks[key]
    if !ok {
        l = &keyLock{ch: make(chan struct{}, 1)}
        m.locks[key] = l
    }
    l.refs++
    return l
}

func (m *KeyedMutex) unref(key string, l *keyLock) {
    m.mu.Lock()
    defer m.mu.Unlock()
    l.refs--
    if l.refs == 0 {
        delete(m.locks, key)
    }
}

func (m *KeyedMutex) unlocker(key string, l *keyLock) Unlock {
    var once sync.Once
    return func() {
        once.Do(func() {
            <-l.ch
            m.unref(key, l)
        })
    }
}

// Lock implements Locker.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
    l := m.ref(key)
    select {
    case l.ch <- struct{}{}:
        return m.unlocker(key, l), nil
    case <-ctx.Done():
        m.unref(key, l)
        return nil, ctx.Err()
    }
}

// TryLock implements Locker.
func (m *KeyedMutex) TryLock(ctx context.Context, key string) (Unlock, bool, error) {
    l := m.ref(key)
    select {
    case l.ch <- struct{}{}:
        return m.unlocker(key, l), true, nil
    default:
        m.unref(key, l)
        return nil, false, nil
    }
}
