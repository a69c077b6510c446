package middleware

// identity.go holds the helpers that name the caller of a request.  Staff
// are identified by the JWT subject; guests by the session id their client
// sends with every booking call.

import (
    "strings"

    "github.com/labstack/echo/v4"
)

// SessionHeader carries the guest's client session id.  Holds are scoped to
// it and the rate limiter keys on it.
const SessionHeader = "X-Session-ID"

// SessionID returns the trimmed session header, or "" when absent.
func SessionID(c echo.Context) string {
    return strings.TrimSpace(c.Request().Header.Get(SessionHeader))
}

// StaffID returns the authenticated staff id, or "" for guests.
func StaffID(c echo.Context) string {
    if v, ok := c.Get(CtxStaffID).(string); ok {
        return v
    }
    return ""
}

// actorID names the caller for rate limiting: the staff id when logged in,
// else the session id, else "anon".
func actorID(c echo.Context) string {
    if id := StaffID(c); id != "" {
        return "staff-" + id
    }
    if s := SessionID(c); s != "" {
        return s
    }
    return "anon"
}
