package service

import (
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

func TestHoldCreate_Success(t *testing.T) {
    f := newFixture(t, 2, 4, 6)
    res, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    require.True(t, res.IsSuccessful, res.Reason)
    assert.Equal(t, []string{"T2"}, res.TableNumbers)
    require.NotNil(t, res.ExpiresAt)
    assert.Equal(t, f.now.Add(3*time.Minute), *res.ExpiresAt)
    assert.NotEmpty(t, res.HoldID)

    h, err := f.holds().GetActiveBySession(f.ctx, "web-1")
    require.NoError(t, err)
    assert.Equal(t, res.HoldID, h.ID)
    assert.Equal(t, 90*time.Minute, h.Duration)
}

func TestHoldCreate_OtherSessionExcluded(t *testing.T) {
    f := newFixture(t, 4)
    first, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    require.True(t, first.IsSuccessful)

    second, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 30), SessionID: "web-2"})
    require.NoError(t, err)
    assert.False(t, second.IsSuccessful)
    assert.Contains(t, second.Reason, "no tables available")
}

func TestHoldCreate_SameSessionReplacesPriorHold(t *testing.T) {
    f := newFixture(t, 4)
    first, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    again, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 3, TargetTime: at(19, 15), SessionID: "web-1"})
    require.NoError(t, err)
    require.True(t, again.IsSuccessful, again.Reason)
    assert.NotEqual(t, first.HoldID, again.HoldID)

    old, err := f.holds().GetByID(f.ctx, first.HoldID)
    require.NoError(t, err)
    assert.False(t, old.IsActive)
}

func TestHoldCreate_NegativeOutcomes(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 0)
    res, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 2, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    assert.False(t, res.IsSuccessful)
    assert.Contains(t, res.Reason, "not accepting reservations")

    f.settings(4, 100)
    res, err = f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 9, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    assert.False(t, res.IsSuccessful)
}

func TestHoldCreate_Validation(t *testing.T) {
    f := newFixture(t, 4)
    _, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 2, TargetTime: at(19, 0)})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 0, TargetTime: at(19, 0), SessionID: "s"})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 2, TargetTime: f.now.Add(-time.Hour), SessionID: "s"})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 2, TargetTime: at(23, 30), SessionID: "s"})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.holds().Create(f.ctx, HoldRequest{OutletID: 99, PartySize: 2, TargetTime: at(19, 0), SessionID: "s"})
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestHold_ExpiryIsHonouredBeforeSweep(t *testing.T) {
    f := newFixture(t, 4)
    res, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)

    f.now = f.now.Add(3 * time.Minute)
    h, err := f.holds().GetByID(f.ctx, res.HoldID)
    require.NoError(t, err)
    assert.False(t, h.IsActive)
    _, err = f.holds().GetActiveBySession(f.ctx, "web-1")
    assert.ErrorIs(t, err, ErrNotFound)

    other, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-2"})
    require.NoError(t, err)
    assert.True(t, other.IsSuccessful)
}

func TestHoldSweep(t *testing.T) {
    f := newFixture(t, 4, 4)
    for _, session := range []string{"a", "b"} {
        res, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: session})
        require.NoError(t, err)
        require.True(t, res.IsSuccessful)
    }
    n, err := f.holds().Sweep(f.ctx, f.now.Add(time.Minute))
    require.NoError(t, err)
    assert.Zero(t, n)

    n, err = f.holds().Sweep(f.ctx, f.now.Add(4*time.Minute))
    require.NoError(t, err)
    assert.Equal(t, 2, n)

    n, err = f.holds().Sweep(f.ctx, f.now.Add(5*time.Minute))
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestHoldRelease(t *testing.T) {
    f := newFixture(t, 4)
    res, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    require.NoError(t, f.holds().Release(f.ctx, res.HoldID))
    require.NoError(t, f.holds().Release(f.ctx, res.HoldID))
    assert.ErrorIs(t, f.holds().Release(f.ctx, "missing"), ErrNotFound)

    other, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-2"})
    require.NoError(t, err)
    assert.True(t, other.IsSuccessful)
}

func TestHoldCreate_ConcurrentSessionsGetDistinctTables(t *testing.T) {
    f := newFixture(t, 4)
    svc := f.holds()

    var wg sync.WaitGroup
    results := make([]HoldResult, 8)
    for i := range results {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            res, err := svc.Create(f.ctx, HoldRequest{
                OutletID:   f.outlet.ID,
                PartySize:  4,
                TargetTime: at(19, 0),
                SessionID:  string(rune('a' + i)),
            })
            if assert.NoError(t, err) {
                results[i] = res
            }
        }(i)
    }
    wg.Wait()

    won := 0
    for _, r := range results {
        if r.IsSuccessful {
            won++
        }
    }
    assert.Equal(t, 1, won)
}

func TestUsableHold(t *testing.T) {
    now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
    pool := []model.Table{{ID: 1, Capacity: 2, IsActive: true}, {ID: 2, Capacity: 4, IsActive: true}}
    h := model.TableHold{ID: "h", OutletID: 1, TableIDs: []uint64{1, 2}, TargetTime: at(19, 0), SessionID: "s",
        ExpiresAt: now.Add(time.Minute), IsActive: true}

    assert.True(t, usableHold(h, 1, "s", at(19, 0), 6, pool, now))
    assert.False(t, usableHold(h, 1, "s", at(19, 0), 7, pool, now), "too small")
    assert.False(t, usableHold(h, 1, "other", at(19, 0), 2, pool, now), "other session")
    assert.False(t, usableHold(h, 2, "s", at(19, 0), 2, pool, now), "other outlet")
    assert.False(t, usableHold(h, 1, "s", at(19, 15), 2, pool, now), "other time")
    assert.False(t, usableHold(h, 1, "s", at(19, 0), 2, pool, now.Add(time.Minute)), "expired")
}
