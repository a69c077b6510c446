package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestReservationStatusTransitions(t *testing.T) {
    assert.True(t, ReservationPending.CanTransitionTo(ReservationConfirmed))
    assert.True(t, ReservationConfirmed.CanTransitionTo(ReservationNoShow))
    assert.True(t, ReservationConfirmed.CanTransitionTo(ReservationCompleted))
    assert.True(t, ReservationConfirmed.CanTransitionTo(ReservationCanceled))

    assert.False(t, ReservationConfirmed.CanTransitionTo(ReservationPending))
    assert.False(t, ReservationCanceled.CanTransitionTo(ReservationConfirmed))
    assert.False(t, ReservationCompleted.CanTransitionTo(ReservationCanceled))
    assert.False(t, ReservationPending.CanTransitionTo(ReservationNoShow))
    assert.False(t, ReservationStatus("BOGUS").Valid())
}

func TestQueueStatusTransitions(t *testing.T) {
    assert.True(t, QueueWaiting.CanTransitionTo(QueueReady))
    assert.True(t, QueueReady.CanTransitionTo(QueueNoShow))
    assert.True(t, QueueSeated.CanTransitionTo(QueueCompleted))
    assert.False(t, QueueWaiting.CanTransitionTo(QueueNoShow))
    assert.False(t, QueueWaiting.CanTransitionTo(QueueSeated))
    for _, s := range []QueueStatus{QueueCompleted, QueueCancelled, QueueNoShow} {
        assert.True(t, s.Terminal())
        for _, next := range AllQueueStatuses {
            assert.False(t, s.CanTransitionTo(next))
        }
    }
}

func TestTableHoldActiveAt(t *testing.T) {
    created := time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC)
    h := TableHold{IsActive: true, CreatedAt: created, ExpiresAt: created.Add(3 * time.Minute)}

    assert.True(t, h.ActiveAt(created.Add(2*time.Minute)))
    assert.False(t, h.ActiveAt(created.Add(3*time.Minute)))

    h.IsActive = false
    assert.False(t, h.ActiveAt(created))
}

func TestQueueEntryConfirmationExpired(t *testing.T) {
    deadline := time.Date(2026, 10, 20, 18, 5, 0, 0, time.UTC)
    e := QueueEntry{Status: QueueReady, ReadyExpiresAt: &deadline}

    assert.False(t, e.ConfirmationExpired(deadline))
    assert.True(t, e.ConfirmationExpired(deadline.Add(time.Second)))

    e.Status = QueueSeated
    assert.False(t, e.ConfirmationExpired(deadline.Add(time.Hour)))
}
