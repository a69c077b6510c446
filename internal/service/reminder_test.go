package service

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

func TestDispatchDue(t *testing.T) {
    f := newFixture(t, 4, 4)
    kept := f.book(at(19, 0), 2)
    dropped := f.book(at(19, 0), 2)
    _, err := f.reservations().Cancel(f.ctx, dropped.ID, "")
    require.NoError(t, err)

    sent, err := f.reminders().DispatchDue(f.ctx, f.now)
    require.NoError(t, err)
    assert.Equal(t, 1, sent, "only the live reservation's confirmation")
    assert.Equal(t, []model.ReminderKind{model.ReminderConfirmation}, f.notifier.reminders)

    sent, err = f.reminders().DispatchDue(f.ctx, at(18, 0))
    require.NoError(t, err)
    assert.Equal(t, 2, sent)

    for _, rem := range f.store.Reminders(kept.ID) {
        assert.Equal(t, model.ReminderSent, rem.Status, "%s", rem.Kind)
        require.NotNil(t, rem.SentAt)
    }
}

func TestDispatchDue_FailedDeliveryStaysPending(t *testing.T) {
    f := newFixture(t, 4)
    r := f.book(at(19, 0), 2)
    f.notifier.fail = true

    sent, err := f.reminders().DispatchDue(f.ctx, f.now)
    require.NoError(t, err)
    assert.Zero(t, sent)

    f.notifier.fail = false
    sent, err = f.reminders().DispatchDue(f.ctx, f.now.Add(time.Minute))
    require.NoError(t, err)
    assert.Equal(t, 1, sent)
    assert.Equal(t, model.ReminderSent, f.store.Reminders(r.ID)[0].Status)
}

func TestDispatchDue_CancelsRemindersOfClosedReservations(t *testing.T) {
    f := newFixture(t, 4)
    r := model.Reservation{OutletID: f.outlet.ID, Code: "NOSHOW2", PartySize: 2, StartTime: at(19, 0),
        Duration: 90 * time.Minute, Status: model.ReservationNoShow}
    require.NoError(t, f.store.CreateReservation(f.ctx, &r, model.StatusChange{NewStatus: r.Status}))
    require.NoError(t, f.store.ScheduleReminders(f.ctx, r.ID, []model.ReminderFact{{Kind: model.ReminderHourBefore, DueAt: f.now}}))
    require.NoError(t, f.store.ScheduleReminders(f.ctx, 4242, []model.ReminderFact{{Kind: model.ReminderHourBefore, DueAt: f.now}}))

    sent, err := f.reminders().DispatchDue(f.ctx, f.now)
    require.NoError(t, err)
    assert.Zero(t, sent)
    assert.Equal(t, model.ReminderCanceled, f.store.Reminders(r.ID)[0].Status)
    assert.Equal(t, model.ReminderCanceled, f.store.Reminders(4242)[0].Status)
    assert.Empty(t, f.notifier.reminders)
}
