package config

import "time"

// RateLimitConfig configures the Redis token buckets in front of the guest
// endpoints.  Reads (availability, lookups) draw from a bucket of Capacity
// tokens; writes (holds, reservations, queue joins) draw from a separate
// bucket of WriteCapacity, never larger than Capacity.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    WriteCapacity  int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands that override capacity and refill.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        WriteCapacity:  envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_session_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "tablebook:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        cfg.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        cfg.RefillTokens = 1
        cfg.RefillInterval = every
    }
    return cfg.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.WriteCapacity < 1 || c.WriteCapacity > c.Capacity {
        c.WriteCapacity = c.Capacity
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // keys must outlive five refills
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
