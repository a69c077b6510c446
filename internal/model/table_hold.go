package model

import "time"

// TableHold is a short-lived claim on specific tables made by one client
// session while it finishes a booking.  Holds prevent other sessions from
// grabbing the same tables and lapse at ExpiresAt unless consumed by a
// reservation or released earlier.
//
// Fields:
//  ID         – opaque identifier (uuid) returned to the client.
//  OutletID   – outlet the tables belong to.
//  TableIDs   – tables being held.
//  PartySize  – party the tables were chosen for.
//  TargetTime – requested seating time.
//  Duration   – dining duration used for conflict checks.
//  SessionID  – client session that owns the hold.
//  CreatedAt  – creation timestamp.
//  ExpiresAt  – CreatedAt plus the hold TTL.
//  IsActive   – false once consumed, released or swept.
type TableHold struct {
    ID         string        `json:"id"`
    OutletID   uint64        `json:"outlet_id"`
    TableIDs   []uint64      `json:"table_ids"`
    PartySize  int           `json:"party_size"`
    TargetTime time.Time     `json:"target_time"`
    Duration   time.Duration `json:"-"`
    SessionID  string        `json:"session_id"`
    CreatedAt  time.Time     `json:"created_at"`
    ExpiresAt  time.Time     `json:"expires_at"`
    IsActive   bool          `json:"is_active"`
}

// ActiveAt reports whether the hold still claims its tables at now.  A
// hold whose expiry has passed is never active even before the sweep
// has flipped IsActive.
func (h TableHold) ActiveAt(now time.Time) bool {
    return h.IsActive && now.Before(h.ExpiresAt)
}

// EndTime returns the exclusive end of the held interval.
func (h TableHold) EndTime() time.Time { return h.TargetTime.Add(h.Duration) }
