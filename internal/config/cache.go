package config

import "time"

// CacheConfig configures the response cache in front of the outlet and
// table catalog.  Availability, holds and queue state change with every
// booking and are never cached.  With Enabled false or no Redis client the
// cache middleware passes requests straight through.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  A zero TTL disables the cache.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "tablebook:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
    if cfg.TTL <= 0 {
        cfg.Enabled = false
    }
    return cfg
}
