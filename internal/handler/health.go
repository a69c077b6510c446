package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded ping of the backing stores
    "net/http" // net/http provides status codes and response helpers
    "time"     // ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is anything that can report whether it is reachable, such as
// *sql.DB or the Redis client adapter built by the server command.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is a liveness endpoint used by load balancers and monitoring
// systems.  It returns "ok" with a 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready checks every dependency and answers 503 naming the first one that
// does not respond.
func Ready(deps map[string]Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        for name, p := range deps {
            if err := p.PingContext(ctx); err != nil {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": name + " unavailable"})
            }
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
    }
}
