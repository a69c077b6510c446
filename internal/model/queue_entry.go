package model

import "time"

// QueueStatus is the closed set of states a walk-in queue entry moves through.
type QueueStatus string

const (
    QueueWaiting   QueueStatus = "WAITING"
    QueueReady     QueueStatus = "READY"
    QueueSeated    QueueStatus = "SEATED"
    QueueCompleted QueueStatus = "COMPLETED"
    QueueCancelled QueueStatus = "CANCELLED"
    QueueNoShow    QueueStatus = "NO_SHOW"
)

// AllQueueStatuses lists every status in lifecycle order.
var AllQueueStatuses = []QueueStatus{QueueWaiting, QueueReady, QueueSeated, QueueCompleted, QueueCancelled, QueueNoShow}

var queueTransitions = map[QueueStatus][]QueueStatus{
    QueueWaiting: {QueueReady, QueueCancelled},
    QueueReady:   {QueueSeated, QueueCancelled, QueueNoShow},
    QueueSeated:  {QueueCompleted},
}

// Valid reports whether s is one of the known statuses.
func (s QueueStatus) Valid() bool {
    for _, known := range AllQueueStatuses {
        if s == known {
            return true
        }
    }
    return false
}

// Terminal reports whether no further transition is possible.
func (s QueueStatus) Terminal() bool {
    return s == QueueCompleted || s == QueueCancelled || s == QueueNoShow
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s QueueStatus) CanTransitionTo(next QueueStatus) bool {
    for _, allowed := range queueTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// QueueEntry is a walk-in party waiting for a table.  Position is only
// meaningful while Status is WAITING and is kept dense (1..N) across the
// outlet's waiting entries.
type QueueEntry struct {
    ID                   uint64      `json:"id"`
    Code                 string      `json:"code"`
    OutletID             uint64      `json:"outlet_id"`
    CustomerName         string      `json:"customer_name"`
    CustomerPhone        string      `json:"customer_phone"`
    PartySize            int         `json:"party_size"`
    Status               QueueStatus `json:"status"`
    Position             int         `json:"position"`
    EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
    AssignedTableID      *uint64     `json:"assigned_table_id,omitempty"`
    IsHeld               bool        `json:"is_held"`
    HeldAt               *time.Time  `json:"held_at,omitempty"`
    CalledAt             *time.Time  `json:"called_at,omitempty"`
    ReadyExpiresAt       *time.Time  `json:"ready_expires_at,omitempty"`
    SeatedAt             *time.Time  `json:"seated_at,omitempty"`
    CompletedAt          *time.Time  `json:"completed_at,omitempty"`
    CancelReason         string      `json:"cancel_reason,omitempty"`
    JoinedAt             time.Time   `json:"joined_at"`
    UpdatedAt            time.Time   `json:"updated_at"`
}

// ConfirmationExpired reports whether a READY entry has passed its
// confirmation deadline at now.
func (e QueueEntry) ConfirmationExpired(now time.Time) bool {
    return e.Status == QueueReady && e.ReadyExpiresAt != nil && now.After(*e.ReadyExpiresAt)
}
