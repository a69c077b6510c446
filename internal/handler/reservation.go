package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/middleware"
    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/service"
)

// ReservationHandler serves guest booking calls (addressed by the public
// code) and staff status transitions (addressed by id).
type ReservationHandler struct {
    Svc *service.ReservationService
    Cfg config.BookingConfig
    Log logrus.FieldLogger
}

func NewReservationHandler(svc *service.ReservationService, cfg config.BookingConfig, log logrus.FieldLogger) *ReservationHandler {
    return &ReservationHandler{Svc: svc, Cfg: cfg, Log: log}
}

// ----- DTOs -----

type createReservationReq struct {
    OutletID        uint64    `json:"outlet_id"`
    CustomerName    string    `json:"customer_name"`
    CustomerPhone   string    `json:"customer_phone"`
    CustomerEmail   string    `json:"customer_email"`
    SpecialRequests string    `json:"special_requests"`
    PartySize       int       `json:"party_size"`
    StartTime       time.Time `json:"start_time"`
}

type updateReservationReq struct {
    PartySize       *int       `json:"party_size"`
    StartTime       *time.Time `json:"start_time"`
    CustomerName    *string    `json:"customer_name"`
    CustomerPhone   *string    `json:"customer_phone"`
    CustomerEmail   *string    `json:"customer_email"`
    SpecialRequests *string    `json:"special_requests"`
}

type cancelReq struct {
    Reason string `json:"reason"`
}

type reservationResp struct {
    model.Reservation
    DurationMinutes int `json:"duration_minutes"`
}

func toReservationResp(r model.Reservation) reservationResp {
    if r.TableIDs == nil {
        r.TableIDs = []uint64{}
    }
    return reservationResp{Reservation: r, DurationMinutes: int(r.Duration / time.Minute)}
}

// ----- guest endpoints -----

// Create handles POST /v1/reservations.  When the caller's session holds
// tables for the same outlet and time, the hold is consumed.
func (h *ReservationHandler) Create(c echo.Context) error {
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    r, err := h.Svc.Create(ctx, service.CreateReservationRequest{
        OutletID:        req.OutletID,
        CustomerName:    strings.TrimSpace(req.CustomerName),
        CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
        CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
        SpecialRequests: req.SpecialRequests,
        PartySize:       req.PartySize,
        StartTime:       req.StartTime,
        SessionID:       middleware.SessionID(c),
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, toReservationResp(r))
}

// GetByCode handles GET /v1/reservations/:code.
func (h *ReservationHandler) GetByCode(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    r, err := h.Svc.GetByCode(ctx, c.Param("code"))
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// UpdateByCode handles PATCH /v1/reservations/:code.  Only the fields
// present in the body change.
func (h *ReservationHandler) UpdateByCode(c echo.Context) error {
    var req updateReservationReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    current, err := h.Svc.GetByCode(ctx, c.Param("code"))
    if err != nil {
        return fail(c, h.Log, err)
    }
    r, err := h.Svc.Update(ctx, current.ID, service.UpdateReservationRequest{
        PartySize:       req.PartySize,
        StartTime:       req.StartTime,
        CustomerName:    req.CustomerName,
        CustomerPhone:   req.CustomerPhone,
        CustomerEmail:   req.CustomerEmail,
        SpecialRequests: req.SpecialRequests,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// CancelByCode handles POST /v1/reservations/:code/cancel.
func (h *ReservationHandler) CancelByCode(c echo.Context) error {
    var req cancelReq
    _ = c.Bind(&req) // body is optional
    ctx, cancel := requestCtx(c)
    defer cancel()
    current, err := h.Svc.GetByCode(ctx, c.Param("code"))
    if err != nil {
        return fail(c, h.Log, err)
    }
    r, err := h.Svc.Cancel(ctx, current.ID, strings.TrimSpace(req.Reason))
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// ----- staff endpoints -----

// ListDay handles GET /v1/staff/outlets/:id/reservations?date=YYYY-MM-DD.
func (h *ReservationHandler) ListDay(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    day, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), h.Cfg.Location)
    if err != nil {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    list, err := h.Svc.ListDay(ctx, outletID, day)
    if err != nil {
        return fail(c, h.Log, err)
    }
    out := make([]reservationResp, 0, len(list))
    for _, r := range list {
        out = append(out, toReservationResp(r))
    }
    return c.JSON(http.StatusOK, out)
}

// History handles GET /v1/staff/reservations/:id/history.
func (h *ReservationHandler) History(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    changes, err := h.Svc.History(ctx, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    type changeResp struct {
        OldStatus model.ReservationStatus `json:"old_status,omitempty"`
        NewStatus model.ReservationStatus `json:"new_status"`
        Reason    string                  `json:"reason"`
        ChangedAt time.Time               `json:"changed_at"`
    }
    out := make([]changeResp, 0, len(changes))
    for _, ch := range changes {
        out = append(out, changeResp{OldStatus: ch.OldStatus, NewStatus: ch.NewStatus, Reason: ch.Reason, ChangedAt: ch.ChangedAt})
    }
    return c.JSON(http.StatusOK, out)
}

// transition wraps the staff-only status changes that take no body.
func (h *ReservationHandler) transition(fn func(context.Context, uint64) (model.Reservation, error)) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, ok := parseID(c, "id")
        if !ok {
            return badRequest(c, "invalid reservation id")
        }
        ctx, cancel := requestCtx(c)
        defer cancel()
        r, err := fn(ctx, id)
        if err != nil {
            return fail(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, toReservationResp(r))
    }
}

// Confirm handles POST /v1/staff/reservations/:id/confirm.
func (h *ReservationHandler) Confirm() echo.HandlerFunc { return h.transition(h.Svc.Confirm) }

// NoShow handles POST /v1/staff/reservations/:id/no-show.
func (h *ReservationHandler) NoShow() echo.HandlerFunc { return h.transition(h.Svc.MarkNoShow) }

// Complete handles POST /v1/staff/reservations/:id/complete.
func (h *ReservationHandler) Complete() echo.HandlerFunc { return h.transition(h.Svc.MarkCompleted) }

// StaffCancel handles POST /v1/staff/reservations/:id/cancel.
func (h *ReservationHandler) StaffCancel(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req cancelReq
    _ = c.Bind(&req)
    reason := strings.TrimSpace(req.Reason)
    if reason == "" {
        reason = "canceled by staff"
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    r, err := h.Svc.Cancel(ctx, id, reason)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}
