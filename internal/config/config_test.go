package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadMemoryStoreSkipsDatabaseVars(t *testing.T) {
    t.Setenv("STORE", "memory")
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "memory", cfg.Store)
    assert.Equal(t, 15, cfg.AccessTTLMin)
    assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadReportsMissingVars(t *testing.T) {
    t.Setenv("STORE", "mysql")
    t.Setenv("JWT_SECRET", "")
    t.Setenv("DB_USER", "")
    t.Setenv("DB_HOST", "")
    t.Setenv("DB_PORT", "")
    t.Setenv("DB_NAME", "")

    _, err := Load()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "JWT_SECRET")
    assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoadBookingConfigDefaults(t *testing.T) {
    cfg, err := LoadBookingConfig()
    require.NoError(t, err)
    assert.Equal(t, 11*time.Hour, cfg.OpensAt)
    assert.Equal(t, 22*time.Hour, cfg.ClosesAt)
    assert.Equal(t, 3*time.Minute, cfg.HoldTTL)
    assert.Equal(t, 30*time.Second, cfg.SweepInterval)
    assert.Equal(t, 5*time.Minute, cfg.ReadyGracePeriod)
}

func TestLoadBookingConfigOverrides(t *testing.T) {
    t.Setenv("BOOKING_TIMEZONE", "Asia/Jakarta")
    t.Setenv("BOOKING_OPENS_AT", "10:30")
    t.Setenv("HOLD_TTL", "90s")

    cfg, err := LoadBookingConfig()
    require.NoError(t, err)
    assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
    assert.Equal(t, 10*time.Hour+30*time.Minute, cfg.OpensAt)
    assert.Equal(t, 90*time.Second, cfg.HoldTTL)
}

func TestLoadBookingConfigZeroPeriodsFallBack(t *testing.T) {
    t.Setenv("HOLD_SWEEP_INTERVAL", "0s")
    t.Setenv("QUEUE_CHECK_INTERVAL", "-5s")
    t.Setenv("REMINDER_INTERVAL", "0s")
    t.Setenv("HOLD_TTL", "0s")
    t.Setenv("BOOKING_LOCK_TTL", "0s")
    t.Setenv("QUEUE_READY_GRACE", "0s")

    cfg, err := LoadBookingConfig()
    require.NoError(t, err)
    def := DefaultBookingConfig()
    assert.Equal(t, def.SweepInterval, cfg.SweepInterval)
    assert.Equal(t, def.QueueCheckInterval, cfg.QueueCheckInterval)
    assert.Equal(t, def.ReminderInterval, cfg.ReminderInterval)
    assert.Equal(t, def.HoldTTL, cfg.HoldTTL)
    assert.Equal(t, def.LockTTL, cfg.LockTTL)
    assert.Equal(t, def.ReadyGracePeriod, cfg.ReadyGracePeriod)
}

func TestLoadBookingConfigRejectsInvertedHours(t *testing.T) {
    t.Setenv("BOOKING_OPENS_AT", "22:00")
    t.Setenv("BOOKING_CLOSES_AT", "11:00")

    _, err := LoadBookingConfig()
    assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
    d, err := ParseClock("19:45")
    require.NoError(t, err)
    assert.Equal(t, 19*time.Hour+45*time.Minute, d)

    _, err = ParseClock("7pm")
    assert.Error(t, err)
}

func TestLoadRateLimitConfigClampsWriteBucket(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "5")
    t.Setenv("RATE_LIMIT_WRITE_CAPACITY", "50")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 5, cfg.Capacity)
    assert.Equal(t, 5, cfg.WriteCapacity)
    assert.Equal(t, 10*time.Second, cfg.TTL)
    assert.Equal(t, "tablebook:rl", cfg.Prefix)
}

func TestLoadRateLimitConfigShorthands(t *testing.T) {
    t.Setenv("RATE_LIMIT_BURST", "12")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")
    t.Setenv("RATE_LIMIT_ENABLED", "off")

    cfg := LoadRateLimitConfig()
    assert.False(t, cfg.Enabled)
    assert.Equal(t, 12, cfg.Capacity)
    assert.Equal(t, 1, cfg.RefillTokens)
    assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestLoadCacheConfig(t *testing.T) {
    cfg := LoadCacheConfig()
    assert.True(t, cfg.Enabled)
    assert.Equal(t, 5*time.Minute, cfg.TTL)

    t.Setenv("CACHE_TTL", "0s")
    assert.False(t, LoadCacheConfig().Enabled)
}

func TestRedisConfigOptions(t *testing.T) {
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_DB", "2")

    opt, err := LoadRedisConfig().Options()
    require.NoError(t, err)
    assert.Equal(t, "cache:6380", opt.Addr)
    assert.Equal(t, 2, opt.DB)
    assert.Nil(t, opt.TLSConfig)

    t.Setenv("REDIS_URL", "rediss://:pw@redis.internal:6390/4")
    opt, err = LoadRedisConfig().Options()
    require.NoError(t, err)
    assert.Equal(t, "redis.internal:6390", opt.Addr)
    assert.Equal(t, "pw", opt.Password)
    assert.Equal(t, 4, opt.DB)
    assert.NotNil(t, opt.TLSConfig)

    t.Setenv("REDIS_URL", "http://nope")
    _, err = LoadRedisConfig().Options()
    assert.Error(t, err)
}
