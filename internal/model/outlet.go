package model

import "time"

// Outlet is a single restaurant location.  It scopes tables, slot
// settings, reservations and the walk-in queue.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the outlet.
//  IsActive        – inactive outlets accept neither bookings nor holds.
//  MinAdvanceHours – minimum notice before a reservation's start time.
//  MaxAdvanceDays  – how far ahead reservations may be made.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Outlet struct {
    ID              uint64    // outlets.id
    Name            string    // outlets.name
    IsActive        bool      // outlets.is_active
    MinAdvanceHours int       // outlets.min_advance_hours
    MaxAdvanceDays  int       // outlets.max_advance_days
    CreatedAt       time.Time // outlets.created_at
    UpdatedAt       time.Time // outlets.updated_at
}

// SlotSettings holds the capacity rules that apply to one outlet at one
// instant.  AllocationPercent of zero means the slot accepts no
// reservations at all, regardless of capacity.
type SlotSettings struct {
    Capacity              int // slot_settings.capacity
    AllocationPercent     int // slot_settings.allocation_percent (0–100)
    DiningDurationMinutes int // slot_settings.dining_duration_minutes
}

// AcceptsReservations reports whether the slot has a non-zero allocation.
func (s SlotSettings) AcceptsReservations() bool { return s.AllocationPercent > 0 }

// DiningDuration converts DiningDurationMinutes to a time.Duration.
func (s SlotSettings) DiningDuration() time.Duration {
    return time.Duration(s.DiningDurationMinutes) * time.Minute
}
