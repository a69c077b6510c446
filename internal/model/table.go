package model

// Table is a physical table at an outlet.  Tables are owned by the
// outlet configuration and are read-only to the booking engine.
//
// Fields:
//  ID       – primary key identifier.
//  OutletID – outlet the table belongs to.
//  Number   – label printed on the table (e.g. "A4").
//  Capacity – number of guests the table seats; always positive.
//  Section  – floor section (terrace, main, bar...).
//  IsActive – inactive tables are never assigned.
type Table struct {
    ID       uint64 `json:"id"`        // outlet_tables.id
    OutletID uint64 `json:"outlet_id"` // outlet_tables.outlet_id
    Number   string `json:"number"`    // outlet_tables.number
    Capacity int    `json:"capacity"`  // outlet_tables.capacity
    Section  string `json:"section"`   // outlet_tables.section
    IsActive bool   `json:"is_active"` // outlet_tables.is_active
}
