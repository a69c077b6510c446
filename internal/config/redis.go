package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server that backs the distributed booking
// lock, the per-outlet queue counters, rate limiting and the catalog cache.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
    URL      string // redis:// or rediss:// URL; wins over the fields above
}

// LoadRedisConfig reads REDIS_URL, or REDIS_HOST/REDIS_PORT (REDIS_ADDR as
// a host:port shorthand), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
        URL:      os.Getenv("REDIS_URL"),
    }
}

// Options converts the config into go-redis options.
func (c RedisConfig) Options() (*redis.Options, error) {
    if c.URL != "" {
        opt, err := redis.ParseURL(c.URL)
        if err != nil {
            return nil, fmt.Errorf("REDIS_URL: %w", err)
        }
        return opt, nil
    }
    opt := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opt, nil
}

// NewRedisClient connects with LoadRedisConfig and pings the server.  It
// returns nil when Redis is unreachable; callers then fall back to
// in-process locks and counters and run without rate limiting or caching.
func NewRedisClient() *redis.Client {
    opt, err := LoadRedisConfig().Options()
    if err != nil {
        return nil
    }
    client := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
