package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/middleware"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/service"
)

// HoldHandler exposes table holds to guest clients.  The client session is
// taken from the X-Session-ID header.
type HoldHandler struct {
    Svc *service.HoldService
    Log logrus.FieldLogger
}

func NewHoldHandler(svc *service.HoldService, log logrus.FieldLogger) *HoldHandler {
    return &HoldHandler{Svc: svc, Log: log}
}

type createHoldReq struct {
    OutletID   uint64    `json:"outlet_id"`
    PartySize  int       `json:"party_size"`
    TargetTime time.Time `json:"target_time"`
}

type holdResp struct {
    model.TableHold
    DurationMinutes int `json:"duration_minutes"`
}

func toHoldResp(h model.TableHold) holdResp {
    return holdResp{TableHold: h, DurationMinutes: int(h.Duration / time.Minute)}
}

// Create handles POST /v1/holds.  A hold that cannot be granted is a 200
// with is_successful=false and a reason; only bad input is an error.
func (h *HoldHandler) Create(c echo.Context) error {
    var req createHoldReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    session := middleware.SessionID(c)
    if session == "" {
        return badRequest(c, middleware.SessionHeader+" header required")
    }

    ctx, cancel := requestCtx(c)
    defer cancel()
    res, err := h.Svc.Create(ctx, service.HoldRequest{
        OutletID:   req.OutletID,
        PartySize:  req.PartySize,
        TargetTime: req.TargetTime,
        SessionID:  session,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    status := http.StatusCreated
    if !res.IsSuccessful {
        status = http.StatusOK
    }
    return c.JSON(status, res)
}

// Get handles GET /v1/holds/:id.
func (h *HoldHandler) Get(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    hold, err := h.Svc.GetByID(ctx, c.Param("id"))
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toHoldResp(hold))
}

// Current handles GET /v1/holds/current, the active hold of the caller's
// session.
func (h *HoldHandler) Current(c echo.Context) error {
    session := middleware.SessionID(c)
    if session == "" {
        return badRequest(c, middleware.SessionHeader+" header required")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    hold, err := h.Svc.GetActiveBySession(ctx, session)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toHoldResp(hold))
}

// Release handles DELETE /v1/holds/:id.  Releasing twice is not an error.
func (h *HoldHandler) Release(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    if err := h.Svc.Release(ctx, c.Param("id")); err != nil {
        return fail(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
