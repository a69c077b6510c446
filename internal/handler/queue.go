package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/service"
)

// QueueHandler serves the walk-in queue.  Joining, looking up and leaving
// the queue are public; everything that moves other guests around is staff
// only.
type QueueHandler struct {
    Svc *service.QueueService
    Log logrus.FieldLogger
}

func NewQueueHandler(svc *service.QueueService, log logrus.FieldLogger) *QueueHandler {
    return &QueueHandler{Svc: svc, Log: log}
}

type joinQueueReq struct {
    CustomerName  string `json:"customer_name"`
    CustomerPhone string `json:"customer_phone"`
    PartySize     int    `json:"party_size"`
}

type callNextReq struct {
    TableID *uint64 `json:"table_id"`
}

type assignTableReq struct {
    TableID uint64 `json:"table_id"`
}

type reorderReq struct {
    EntryIDs []uint64 `json:"entry_ids"`
}

// Join handles POST /v1/outlets/:id/queue.
func (h *QueueHandler) Join(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    var req joinQueueReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.Svc.Join(ctx, service.JoinRequest{
        OutletID:      outletID,
        CustomerName:  req.CustomerName,
        CustomerPhone: req.CustomerPhone,
        PartySize:     req.PartySize,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, e)
}

// Summary handles GET /v1/outlets/:id/queue/summary.
func (h *QueueHandler) Summary(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    sum, err := h.Svc.Summary(ctx, outletID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, sum)
}

// Get handles GET /v1/queue/:id.
func (h *QueueHandler) Get(c echo.Context) error {
    return h.entry(h.Svc.Get)(c)
}

// Cancel handles POST /v1/queue/:id/cancel for both guests and staff.
func (h *QueueHandler) Cancel(c echo.Context) error {
    var req cancelReq
    _ = c.Bind(&req)
    reason := strings.TrimSpace(req.Reason)
    return h.entry(func(ctx context.Context, id uint64) (model.QueueEntry, error) {
        return h.Svc.Cancel(ctx, id, reason)
    })(c)
}

// List handles GET /v1/staff/outlets/:id/queue?status=WAITING.
func (h *QueueHandler) List(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    status := model.QueueStatus(strings.ToUpper(c.QueryParam("status")))
    if status == "" {
        status = model.QueueWaiting
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    list, err := h.Svc.List(ctx, outletID, status)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if list == nil {
        list = []model.QueueEntry{}
    }
    return c.JSON(http.StatusOK, list)
}

// CallNext handles POST /v1/staff/outlets/:id/queue/call-next.  An empty
// queue is a 200 with empty=true.
func (h *QueueHandler) CallNext(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    var req callNextReq
    _ = c.Bind(&req)
    ctx, cancel := requestCtx(c)
    defer cancel()
    res, err := h.Svc.CallNext(ctx, outletID, req.TableID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Reorder handles PUT /v1/staff/outlets/:id/queue/order.
func (h *QueueHandler) Reorder(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    var req reorderReq
    if err := c.Bind(&req); err != nil || len(req.EntryIDs) == 0 {
        return badRequest(c, "entry_ids required")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    list, err := h.Svc.Reorder(ctx, outletID, req.EntryIDs)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, list)
}

// UpdateWaitTimes handles POST /v1/staff/outlets/:id/queue/wait-times.
func (h *QueueHandler) UpdateWaitTimes(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    waits, err := h.Svc.UpdateWaitTimes(ctx, outletID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    type waitResp struct {
        EntryID              uint64 `json:"entry_id"`
        EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
    }
    out := make([]waitResp, 0, len(waits))
    for id, m := range waits {
        out = append(out, waitResp{EntryID: id, EstimatedWaitMinutes: m})
    }
    return c.JSON(http.StatusOK, out)
}

// Recommend handles GET /v1/staff/queue/:id/recommendation.
func (h *QueueHandler) Recommend(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid queue entry id")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    a, err := h.Svc.RecommendTables(ctx, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if a.Tables == nil {
        a.Tables = []model.Table{}
    }
    return c.JSON(http.StatusOK, a)
}

// Assign handles POST /v1/staff/queue/:id/assign.
func (h *QueueHandler) Assign(c echo.Context) error {
    var req assignTableReq
    if err := c.Bind(&req); err != nil || req.TableID == 0 {
        return badRequest(c, "table_id required")
    }
    return h.entry(func(ctx context.Context, id uint64) (model.QueueEntry, error) {
        return h.Svc.AssignTable(ctx, id, req.TableID)
    })(c)
}

// Seat handles POST /v1/staff/queue/:id/seat.
func (h *QueueHandler) Seat(c echo.Context) error { return h.entry(h.Svc.MarkSeated)(c) }

// Complete handles POST /v1/staff/queue/:id/complete.
func (h *QueueHandler) Complete(c echo.Context) error { return h.entry(h.Svc.MarkCompleted)(c) }

// NoShow handles POST /v1/staff/queue/:id/no-show.
func (h *QueueHandler) NoShow(c echo.Context) error { return h.entry(h.Svc.MarkNoShow)(c) }

// Prioritize handles POST /v1/staff/queue/:id/prioritize.
func (h *QueueHandler) Prioritize(c echo.Context) error { return h.entry(h.Svc.Prioritize)(c) }

func (h *QueueHandler) entry(fn func(context.Context, uint64) (model.QueueEntry, error)) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, ok := parseID(c, "id")
        if !ok {
            return badRequest(c, "invalid queue entry id")
        }
        ctx, cancel := requestCtx(c)
        defer cancel()
        e, err := fn(ctx, id)
        if err != nil {
            return fail(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, e)
    }
}
