package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/table-reservation/internal/config"
)

// cachedResponse is what a catalog response is stored as.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter tees the response body into buf until limit bytes have been
// written.  Past the limit overflow is set and the response is not cached.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes method, route and query so every listing variant
// gets its own entry.  The route pattern keeps path parameters apart
// through the raw path.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    tail := strings.Join([]string{"method", r.Method, "route", c.Path(), "path", r.URL.Path, "q", r.URL.RawQuery}, ":")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches 200 responses to GET requests in Redis for cfg.TTL.
// It only wraps catalog routes; anything that depends on live table
// contention must stay uncached.  Redis errors degrade to a plain miss.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      cw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        cw.buf.Bytes(),
            })
            if err == nil {
                // The request context may already be done once the client
                // has its response.
                _ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
            }
            return nil
        }
    }
}
