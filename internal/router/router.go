package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/table-reservation/internal/handler"    // handlers implementing each endpoint
    "github.com/iliyamo/table-reservation/internal/middleware" // JWT authentication and role enforcement
    "github.com/iliyamo/table-reservation/internal/model"      // staff role names
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
    Availability *handler.AvailabilityHandler
    Holds        *handler.HoldHandler
    Reservations *handler.ReservationHandler
    Queue        *handler.QueueHandler
    Tables       *handler.TableHandler
    StaffAuth    *handler.StaffAuthHandler
    Ready        echo.HandlerFunc
}

// Options carries the middleware the server command builds from config.
// RateLimit guards guest endpoints and Cache fronts the catalog reads;
// either may be nil.
type Options struct {
    JWTSecret string
    RateLimit echo.MiddlewareFunc
    Cache     echo.MiddlewareFunc
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
    out := make([]echo.MiddlewareFunc, 0, len(mws))
    for _, m := range mws {
        if m != nil {
            out = append(out, m)
        }
    }
    return out
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, h Handlers) {
    // Load balancers poll /healthz; /readyz also pings MySQL and Redis.
    e.GET("/healthz", handler.Health)
    if h.Ready != nil {
        e.GET("/readyz", h.Ready)
    }
}

// RegisterPublic registers the guest endpoints under /v1.  Guests are
// anonymous; holds and reservations are tied to the X-Session-ID header.
func RegisterPublic(e *echo.Echo, h Handlers, opt Options) {
    // Catalog reads change rarely and are served through the response cache.
    catalog := e.Group("/v1", chain(opt.Cache)...)
    catalog.GET("/outlets", h.Tables.Outlets)
    catalog.GET("/outlets/:id/tables", h.Tables.Tables)

    g := e.Group("/v1", chain(opt.RateLimit)...)
    g.GET("/outlets/:id/availability", h.Availability.Check)

    // Holds: one active hold per session, three minutes long.
    g.POST("/holds", h.Holds.Create)
    g.GET("/holds/current", h.Holds.Current)
    g.GET("/holds/:id", h.Holds.Get)
    g.DELETE("/holds/:id", h.Holds.Release)

    // Reservations are addressed by their public code.
    g.POST("/reservations", h.Reservations.Create)
    g.GET("/reservations/:code", h.Reservations.GetByCode)
    g.PATCH("/reservations/:code", h.Reservations.UpdateByCode)
    g.POST("/reservations/:code/cancel", h.Reservations.CancelByCode)

    // Walk-in queue.
    g.POST("/outlets/:id/queue", h.Queue.Join)
    g.GET("/outlets/:id/queue/summary", h.Queue.Summary)
    g.GET("/queue/:id", h.Queue.Get)
    g.POST("/queue/:id/cancel", h.Queue.Cancel)
}

// RegisterStaff registers the host stand endpoints.  Login is open; every
// other route requires a valid access token carrying the HOST or MANAGER
// role.
func RegisterStaff(e *echo.Echo, h Handlers, opt Options) {
    e.POST("/v1/staff/login", h.StaffAuth.Login, chain(opt.RateLimit)...)

    g := e.Group(
        "/v1/staff",
        middleware.JWTAuth(opt.JWTSecret),
        middleware.RequireRole(model.RoleHost, model.RoleManager),
    )

    // Reservation book.
    g.GET("/outlets/:id/reservations", h.Reservations.ListDay)
    g.GET("/reservations/:id/history", h.Reservations.History)
    g.POST("/reservations/:id/confirm", h.Reservations.Confirm())
    g.POST("/reservations/:id/no-show", h.Reservations.NoShow())
    g.POST("/reservations/:id/complete", h.Reservations.Complete())
    g.POST("/reservations/:id/cancel", h.Reservations.StaffCancel)

    // Queue board.
    g.GET("/outlets/:id/queue", h.Queue.List)
    g.POST("/outlets/:id/queue/call-next", h.Queue.CallNext)
    g.PUT("/outlets/:id/queue/order", h.Queue.Reorder)
    g.POST("/outlets/:id/queue/wait-times", h.Queue.UpdateWaitTimes)
    g.GET("/queue/:id/recommendation", h.Queue.Recommend)
    g.POST("/queue/:id/assign", h.Queue.Assign)
    g.POST("/queue/:id/seat", h.Queue.Seat)
    g.POST("/queue/:id/complete", h.Queue.Complete)
    g.POST("/queue/:id/no-show", h.Queue.NoShow)
    g.POST("/queue/:id/cancel", h.Queue.Cancel)
    g.POST("/queue/:id/prioritize", h.Queue.Prioritize)
}

// Register installs every route group.
func Register(e *echo.Echo, h Handlers, opt Options) {
    RegisterRoutes(e, h)
    RegisterPublic(e, h, opt)
    RegisterStaff(e, h, opt)
}
