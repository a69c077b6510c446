package model

import "time"

// ReservationStatus is the closed set of states a reservation moves through.
type ReservationStatus string

const (
    ReservationPending   ReservationStatus = "PENDING"
    ReservationConfirmed ReservationStatus = "CONFIRMED"
    ReservationCanceled  ReservationStatus = "CANCELED"
    ReservationNoShow    ReservationStatus = "NO_SHOW"
    ReservationCompleted ReservationStatus = "COMPLETED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
    ReservationPending:   {ReservationConfirmed, ReservationCanceled},
    ReservationConfirmed: {ReservationCanceled, ReservationNoShow, ReservationCompleted},
}

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
    switch s {
    case ReservationPending, ReservationConfirmed, ReservationCanceled, ReservationNoShow, ReservationCompleted:
        return true
    }
    return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
    for _, allowed := range reservationTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// OccupiesTables reports whether a reservation in this status blocks its
// assigned tables for its interval.
func (s ReservationStatus) OccupiesTables() bool {
    return s == ReservationPending || s == ReservationConfirmed
}

// Reservation is a booking of one or more tables for a party at a
// specific time.  While Status occupies tables, the reservation blocks
// TableIDs for [StartTime, StartTime+Duration).
//
// Fields:
//  ID              – primary key identifier.
//  Code            – 7 character human-shareable code.
//  OutletID        – outlet the reservation belongs to.
//  CustomerName    – guest contact name.
//  CustomerPhone   – guest phone number.
//  CustomerEmail   – guest email address (optional).
//  SpecialRequests – free-form notes from the guest.
//  PartySize       – number of guests; always positive.
//  StartTime       – when the party is seated (UTC).
//  Duration        – dining duration taken from the slot settings.
//  Status          – current state.
//  TableIDs        – tables assigned to the reservation.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64            `json:"id"`
    Code            string            `json:"code"`
    OutletID        uint64            `json:"outlet_id"`
    CustomerName    string            `json:"customer_name"`
    CustomerPhone   string            `json:"customer_phone"`
    CustomerEmail   string            `json:"customer_email,omitempty"`
    SpecialRequests string            `json:"special_requests,omitempty"`
    PartySize       int               `json:"party_size"`
    StartTime       time.Time         `json:"start_time"`
    Duration        time.Duration     `json:"-"`
    Status          ReservationStatus `json:"status"`
    TableIDs        []uint64          `json:"table_ids"`
    CreatedAt       time.Time         `json:"created_at"`
    UpdatedAt       time.Time         `json:"updated_at"`
}

// EndTime returns the exclusive end of the occupied interval.
func (r Reservation) EndTime() time.Time { return r.StartTime.Add(r.Duration) }

// StatusChange is an immutable audit record appended on every reservation
// status transition.
type StatusChange struct {
    ID            uint64            // reservation_status_changes.id
    ReservationID uint64            // reservation_status_changes.reservation_id
    OldStatus     ReservationStatus // empty for the initial record
    NewStatus     ReservationStatus
    Reason        string
    ChangedAt     time.Time
}
