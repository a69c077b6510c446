package service

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

func starts(slots []Slot) []string {
    out := make([]string, len(slots))
    for i, s := range slots {
        out[i] = s.Start.Format("15:04")
    }
    return out
}

func TestCheck_PreferredOpen(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 100)

    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(19, 0)})
    require.NoError(t, err)
    assert.True(t, res.Available)
    require.NotNil(t, res.Preferred)
    assert.Equal(t, at(19, 0), res.Preferred.Start)
    assert.Equal(t, 90, res.Preferred.DiningMinutes)
    assert.Empty(t, res.Alternatives)
}

func TestCheck_AlternativesSortedByDistance(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 100)
    f.book(at(19, 0), 4)

    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(19, 30)})
    require.NoError(t, err)
    assert.False(t, res.Available)
    assert.Nil(t, res.Preferred)
    assert.Equal(t, []string{"20:30", "20:45", "21:00", "21:15", "17:30", "21:30"}, starts(res.Alternatives))
    assert.Equal(t, 60, res.Alternatives[0].DistanceMinutes)
    assert.Equal(t, 120, res.Alternatives[5].DistanceMinutes)
}

func TestCheck_AlternativesClampedToOperatingHours(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 100)
    f.book(at(21, 0), 4)

    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(21, 30)})
    require.NoError(t, err)
    for _, s := range res.Alternatives {
        assert.False(t, s.Start.After(at(22, 0)), "slot %s after closing", s.Start)
    }
    assert.Equal(t, []string{"19:30"}, starts(res.Alternatives))
}

func TestCheck_WithoutPreferredListsDay(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 100)
    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: day})
    require.NoError(t, err)
    assert.True(t, res.Available)
    assert.Len(t, res.Alternatives, 45)
    assert.Equal(t, "11:00", starts(res.Alternatives)[0])

    f.book(at(19, 0), 4)
    res, err = f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: day})
    require.NoError(t, err)
    assert.Len(t, res.Alternatives, 34)
}

func TestCheck_ZeroAllocationHasNoSlots(t *testing.T) {
    f := newFixture(t, 4)
    f.settings(4, 0)
    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: day, PreferredTime: clock(19, 0)})
    require.NoError(t, err)
    assert.False(t, res.Available)
    assert.Empty(t, res.Alternatives)
}

func TestCheck_CapacityLimitsEvenWithFreeTables(t *testing.T) {
    f := newFixture(t, 4, 4)
    f.settings(6, 100)
    f.book(at(19, 0), 4)
    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(19, 0)})
    require.NoError(t, err)
    assert.False(t, res.Available, "2 seats left of 6")
}

func TestCheck_HeldTablesAreUnavailable(t *testing.T) {
    f := newFixture(t, 4)
    hold, err := f.holds().Create(f.ctx, HoldRequest{OutletID: f.outlet.ID, PartySize: 4, TargetTime: at(19, 0), SessionID: "web-1"})
    require.NoError(t, err)
    require.True(t, hold.IsSuccessful)

    res, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(19, 0)})
    require.NoError(t, err)
    assert.False(t, res.Available)

    f.now = f.now.Add(3 * time.Minute)
    res, err = f.availability().Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 4, Date: day, PreferredTime: clock(19, 0)})
    require.NoError(t, err)
    assert.True(t, res.Available, "expired hold no longer blocks")
}

func TestCheck_Validation(t *testing.T) {
    f := newFixture(t, 4)
    svc := f.availability()

    _, err := svc.Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 0, Date: day})
    assert.ErrorIs(t, err, ErrValidation)

    _, err = svc.Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: day.AddDate(0, 0, -6)})
    assert.ErrorIs(t, err, ErrValidation)

    _, err = svc.Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: day, PreferredTime: clock(23, 0)})
    assert.ErrorIs(t, err, ErrValidation)

    today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
    _, err = svc.Check(f.ctx, AvailabilityRequest{OutletID: f.outlet.ID, PartySize: 2, Date: today, PreferredTime: clock(8, 0)})
    assert.ErrorIs(t, err, ErrValidation)

    _, err = svc.Check(f.ctx, AvailabilityRequest{OutletID: 404, PartySize: 2, Date: day})
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheck_InactiveOutlet(t *testing.T) {
    f := newFixture(t, 4)
    closed := f.store.AddOutlet(model.Outlet{Name: "Closed", IsActive: false})
    _, err := f.availability().Check(f.ctx, AvailabilityRequest{OutletID: closed.ID, PartySize: 2, Date: day})
    assert.ErrorIs(t, err, ErrPolicy)
}
