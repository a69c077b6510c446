package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
)

// NewTokenBucket limits the public booking endpoints with a Redis token
// bucket per key (see buildRateKey).  Redis errors fail open so an outage
// of the limiter never blocks bookings.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    limiterScript := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local refill_tokens = tonumber(ARGV[3])
        local interval_ms = tonumber(ARGV[4])
        local ttl_seconds = tonumber(ARGV[5])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 and refill_tokens > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + (intervals * refill_tokens))
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
    `)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key, capacity := bucketFor(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Int64Slice()
            if err != nil || len(vals) != 3 {
                log.WithError(err).WithField("key", key).Warn("ratelimit: redis error, letting request through")
                return next(c)
            }
            allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(retryMs) / 1000.0))
            if secs < 0 {
                secs = 0
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.WithFields(logrus.Fields{"key": key, "retry_ms": retryMs}).Info("ratelimit: blocked")
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many requests",
                "retry_after": secs,
            })
        }
    }
}

// bucketFor picks the bucket a request draws from.  Anything but a read
// goes to the smaller write bucket, keyed with a ":w" suffix.
func bucketFor(cfg config.RateLimitConfig, c echo.Context) (string, int) {
    key := buildRateKey(cfg, c)
    switch c.Request().Method {
    case http.MethodGet, http.MethodHead, http.MethodOptions:
        return key, cfg.Capacity
    }
    if cfg.WriteCapacity > 0 && cfg.WriteCapacity < cfg.Capacity {
        return key + ":w", cfg.WriteCapacity
    }
    return key, cfg.Capacity
}

// buildRateKey composes the bucket key.  Strategies combine the client
// ip, the caller (staff id or guest session, see actorID) and the route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    who := actorID(c)
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "session":
        parts = append(parts, "session", who)
    case "route":
        parts = append(parts, "route", route)
    case "ip_session":
        parts = append(parts, "ip", ip, "session", who)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "session_route":
        parts = append(parts, "session", who, "route", route)
    default: // "ip_session_route"
        parts = append(parts, "ip", ip, "session", who, "route", route)
    }
    return strings.Join(parts, ":")
}
