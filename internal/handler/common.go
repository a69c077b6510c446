package handler // package handler contains the HTTP handlers of the booking API

import (
    "context"  // context with timeout for service calls
    "errors"   // errors.Is classifies service failures
    "net/http" // HTTP status codes
    "strconv"  // path parameter parsing
    "time"     // request timeouts and time parsing

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "github.com/sirupsen/logrus"  // structured logging of unexpected failures

    "github.com/iliyamo/table-reservation/internal/service" // booking services and their error kinds
)

// requestTimeout bounds every service call made by a handler.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrValidation):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrPolicy):
        return http.StatusUnprocessableEntity
    case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrNoCapacity):
        return http.StatusConflict
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusGatewayTimeout
    }
    return http.StatusInternalServerError
}

// fail writes err as {"error": reason}.  Unclassified errors are logged and
// hidden behind a generic message.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
    status := statusFor(err)
    if status >= http.StatusInternalServerError {
        log.WithError(err).WithFields(logrus.Fields{
            "method": c.Request().Method,
            "route":  c.Path(),
        }).Error("request failed")
        return c.JSON(status, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}
