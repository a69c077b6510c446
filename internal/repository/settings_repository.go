package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/table-reservation/internal/model"
)

// SettingsRepo resolves slot settings from the slot_settings table.  A row
// may pin a weekday (0 = Sunday) and a [start_minute, end_minute) window of
// local clock time; NULL columns match anything.  The most specific
// matching row wins: weekday rules beat every-day rules, windowed rules
// beat open ones, and among equals the lowest id wins.
type SettingsRepo struct {
    db  *sql.DB
    loc *time.Location
}

// NewSettingsRepo returns a SettingsRepo that interprets rule clocks in loc.
func NewSettingsRepo(db *sql.DB, loc *time.Location) *SettingsRepo {
    if loc == nil {
        loc = time.UTC
    }
    return &SettingsRepo{db: db, loc: loc}
}

// GetSlotSettings returns the settings that apply to the outlet at the
// given instant, or nil when no row covers it.
func (r *SettingsRepo) GetSlotSettings(ctx context.Context, outletID uint64, at time.Time) (*model.SlotSettings, error) {
    local := at.In(r.loc)
    minute := local.Hour()*60 + local.Minute()
    const q = `SELECT capacity, allocation_percent, dining_duration_minutes
               FROM slot_settings
               WHERE outlet_id = ?
                 AND (weekday IS NULL OR weekday = ?)
                 AND (start_minute IS NULL OR start_minute <= ?)
                 AND (end_minute IS NULL OR end_minute > ?)
               ORDER BY weekday IS NULL, start_minute IS NULL, id
               LIMIT 1`
    var s model.SlotSettings
    err := r.db.QueryRowContext(ctx, q, outletID, int(local.Weekday()), minute, minute).Scan(
        &s.Capacity, &s.AllocationPercent, &s.DiningDurationMinutes,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}
