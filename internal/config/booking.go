package config

import (
    "fmt"
    "strings"
    "time"
)

// BookingConfig collects the policy knobs of the booking engine and the
// background tasks.  Defaults follow the restaurant's standard operating
// rules; every value can be overridden through the environment.
type BookingConfig struct {
    Location             *time.Location // timezone used for dates, operating hours and slot settings
    OpensAt              time.Duration  // offset from midnight of the first seating
    ClosesAt             time.Duration  // offset from midnight of the last seating
    SlotStep             time.Duration  // distance between candidate slots
    SearchRadius         time.Duration  // alternatives are searched this far either side
    HoldTTL              time.Duration  // lifetime of a table hold
    SweepInterval        time.Duration  // hold sweep period
    ReadyGracePeriod     time.Duration  // confirmation window of a called walk-in
    QueueCheckInterval   time.Duration  // period of the server-side READY expiry check
    ReminderInterval     time.Duration  // reminder dispatch period
    ReminderBatchSize    int            // reminders dispatched per tick
    QueueTurnoverMinutes int            // minutes a table takes to turn for the wait estimate
    WalkInDiningMinutes  int            // interval a walk-in blocks when no slot settings exist
    LockTTL              time.Duration  // lifetime of a distributed booking lock
}

// LoadBookingConfig reads BOOKING_* variables.  Unset values fall back to
// the defaults; a malformed timezone or opening time is an error.
func LoadBookingConfig() (BookingConfig, error) {
    loc, err := time.LoadLocation(envStr("BOOKING_TIMEZONE", "UTC"))
    if err != nil {
        return BookingConfig{}, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
    }
    opens, err := ParseClock(envStr("BOOKING_OPENS_AT", "11:00"))
    if err != nil {
        return BookingConfig{}, fmt.Errorf("BOOKING_OPENS_AT: %w", err)
    }
    closes, err := ParseClock(envStr("BOOKING_CLOSES_AT", "22:00"))
    if err != nil {
        return BookingConfig{}, fmt.Errorf("BOOKING_CLOSES_AT: %w", err)
    }
    if closes <= opens {
        return BookingConfig{}, fmt.Errorf("BOOKING_CLOSES_AT must be after BOOKING_OPENS_AT")
    }
    cfg := DefaultBookingConfig()
    cfg.Location = loc
    cfg.OpensAt = opens
    cfg.ClosesAt = closes
    cfg.SlotStep = envDur("BOOKING_SLOT_STEP", cfg.SlotStep)
    cfg.SearchRadius = envDur("BOOKING_SEARCH_RADIUS", cfg.SearchRadius)
    cfg.HoldTTL = envDur("HOLD_TTL", cfg.HoldTTL)
    cfg.SweepInterval = envDur("HOLD_SWEEP_INTERVAL", cfg.SweepInterval)
    cfg.ReadyGracePeriod = envDur("QUEUE_READY_GRACE", cfg.ReadyGracePeriod)
    cfg.QueueCheckInterval = envDur("QUEUE_CHECK_INTERVAL", cfg.QueueCheckInterval)
    cfg.ReminderInterval = envDur("REMINDER_INTERVAL", cfg.ReminderInterval)
    cfg.ReminderBatchSize = envInt("REMINDER_BATCH_SIZE", cfg.ReminderBatchSize)
    cfg.QueueTurnoverMinutes = envInt("QUEUE_TURNOVER_MINUTES", cfg.QueueTurnoverMinutes)
    cfg.WalkInDiningMinutes = envInt("WALKIN_DINING_MINUTES", cfg.WalkInDiningMinutes)
    cfg.LockTTL = envDur("BOOKING_LOCK_TTL", cfg.LockTTL)
    return cfg.normalized(), nil
}

// normalized replaces non-positive periods and sizes with the defaults.
func (c BookingConfig) normalized() BookingConfig {
    def := DefaultBookingConfig()
    for _, p := range []struct {
        v *time.Duration
        d time.Duration
    }{
        {&c.SlotStep, def.SlotStep},
        {&c.HoldTTL, def.HoldTTL},
        {&c.SweepInterval, def.SweepInterval},
        {&c.ReadyGracePeriod, def.ReadyGracePeriod},
        {&c.QueueCheckInterval, def.QueueCheckInterval},
        {&c.ReminderInterval, def.ReminderInterval},
        {&c.LockTTL, def.LockTTL},
    } {
        if *p.v <= 0 {
            *p.v = p.d
        }
    }
    if c.SearchRadius < 0 {
        c.SearchRadius = 0
    }
    if c.ReminderBatchSize < 1 {
        c.ReminderBatchSize = 1
    }
    if c.QueueTurnoverMinutes < 1 {
        c.QueueTurnoverMinutes = def.QueueTurnoverMinutes
    }
    if c.WalkInDiningMinutes < 1 {
        c.WalkInDiningMinutes = def.WalkInDiningMinutes
    }
    return c
}

// DefaultBookingConfig returns the standard policy: open 11:00–22:00 UTC,
// 15 minute slots searched two hours either way, 3 minute holds swept
// every 30 seconds and a 5 minute walk-in confirmation window.
func DefaultBookingConfig() BookingConfig {
    return BookingConfig{
        Location:             time.UTC,
        OpensAt:              11 * time.Hour,
        ClosesAt:             22 * time.Hour,
        SlotStep:             15 * time.Minute,
        SearchRadius:         2 * time.Hour,
        HoldTTL:              3 * time.Minute,
        SweepInterval:        30 * time.Second,
        ReadyGracePeriod:     5 * time.Minute,
        QueueCheckInterval:   15 * time.Second,
        ReminderInterval:     time.Minute,
        ReminderBatchSize:    100,
        QueueTurnoverMinutes: 15,
        WalkInDiningMinutes:  90,
        LockTTL:              10 * time.Second,
    }
}

// ParseClock turns "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
    t, err := time.Parse("15:04", strings.TrimSpace(s))
    if err != nil {
        return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
    }
    return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
