// Package broker carries guest notifications over RabbitMQ.  The publisher
// implements the booking services' Notifier; the consumer drains the
// notification queues into a delivery log.
package broker

// Queue names.  Each event type has its own durable queue so a backlog of
// reminders never delays a confirmation.
const (
    QueueReservationConfirmed = "reservation.confirmed"
    QueueReservationCanceled  = "reservation.canceled"
    QueueReservationReminder  = "reservation.reminder"
    QueueWalkInCalled         = "queue.called"
)

// AllQueues lists every queue the publisher writes to.
var AllQueues = []string{QueueReservationConfirmed, QueueReservationCanceled, QueueReservationReminder, QueueWalkInCalled}

// ReservationEvent is published when a reservation is confirmed, canceled
// or due a reminder.  It carries enough to message the guest without
// querying the primary database.
type ReservationEvent struct {
    ReservationID uint64   `json:"reservation_id"`
    Code          string   `json:"code"`
    OutletID      uint64   `json:"outlet_id"`
    OutletName    string   `json:"outlet_name,omitempty"`
    CustomerName  string   `json:"customer_name"`
    CustomerPhone string   `json:"customer_phone"`
    CustomerEmail string   `json:"customer_email,omitempty"`
    PartySize     int      `json:"party_size"`
    StartsAt      string   `json:"starts_at"`
    Tables        []string `json:"tables,omitempty"`
    Reason        string   `json:"reason,omitempty"`
    ReminderKind  string   `json:"reminder_kind,omitempty"`
    OccurredAt    string   `json:"occurred_at"`
}

// WalkInCalledEvent is published when a waiting party is called to the
// host stand.
type WalkInCalledEvent struct {
    EntryID       uint64 `json:"entry_id"`
    Code          string `json:"code"`
    OutletID      uint64 `json:"outlet_id"`
    CustomerName  string `json:"customer_name"`
    CustomerPhone string `json:"customer_phone"`
    PartySize     int    `json:"party_size"`
    Table         string `json:"table,omitempty"`
    ConfirmBy     string `json:"confirm_by,omitempty"`
    OccurredAt    string `json:"occurred_at"`
}
