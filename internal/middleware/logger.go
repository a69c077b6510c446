package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger writes one access log line per request through logrus.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // Let Echo's error handler pick the status before we log it.
                c.Error(err)
            }

            req := c.Request()
            path := req.URL.Path
            if raw := req.URL.RawQuery; raw != "" {
                path = path + "?" + raw
            }
            entry := log.WithFields(logrus.Fields{
                "method":  req.Method,
                "path":    path,
                "route":   c.Path(),
                "status":  c.Response().Status,
                "latency": time.Since(start).String(),
                "ip":      c.RealIP(),
            })
            if s := SessionID(c); s != "" {
                entry = entry.WithField("session_id", s)
            }
            if c.Response().Status >= 500 {
                entry.Error("request")
            } else {
                entry.Info("request")
            }
            return nil
        }
    }
}
