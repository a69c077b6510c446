package model

import "time"

// ReminderKind identifies which message a reminder delivers.
type ReminderKind string

const (
    ReminderConfirmation ReminderKind = "CONFIRMATION"
    ReminderDayBefore    ReminderKind = "DAY_BEFORE"
    ReminderHourBefore   ReminderKind = "HOUR_BEFORE"
)

// ReminderStatus tracks delivery of a reminder record.
type ReminderStatus string

const (
    ReminderPending  ReminderStatus = "PENDING"
    ReminderSent     ReminderStatus = "SENT"
    ReminderCanceled ReminderStatus = "CANCELED"
)

// ReminderFact is emitted by the reservation lifecycle when a message
// needs to go out at DueAt.  The scheduler decides how it is stored.
type ReminderFact struct {
    Kind  ReminderKind
    DueAt time.Time
}

// Reminder is a scheduled notification for a reservation.
type Reminder struct {
    ID            uint64         // reminders.id
    ReservationID uint64         // reminders.reservation_id
    Kind          ReminderKind   // reminders.kind
    DueAt         time.Time      // reminders.due_at
    Status        ReminderStatus // reminders.status
    SentAt        *time.Time     // reminders.sent_at (nullable)
    CreatedAt     time.Time      // reminders.created_at
}
