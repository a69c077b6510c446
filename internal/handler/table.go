package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/repository"
)

// Directory is the read side of the outlet and table catalog.
type Directory interface {
    ListOutlets(ctx context.Context) ([]model.Outlet, error)
    GetOutlet(ctx context.Context, id uint64) (model.Outlet, error)
    GetTables(ctx context.Context, outletID uint64) ([]model.Table, error)
}

// TableHandler lists outlets and their floor plans.  Responses are safe to
// cache; the router puts the Redis response cache in front of them.
type TableHandler struct {
    Dir Directory
    Log logrus.FieldLogger
}

func NewTableHandler(dir Directory, log logrus.FieldLogger) *TableHandler {
    return &TableHandler{Dir: dir, Log: log}
}

type outletResp struct {
    ID              uint64 `json:"id"`
    Name            string `json:"name"`
    MinAdvanceHours int    `json:"min_advance_hours"`
    MaxAdvanceDays  int    `json:"max_advance_days"`
}

// Outlets handles GET /v1/outlets.  Inactive outlets are left out.
func (h *TableHandler) Outlets(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    all, err := h.Dir.ListOutlets(ctx)
    if err != nil {
        return fail(c, h.Log, err)
    }
    out := make([]outletResp, 0, len(all))
    for _, o := range all {
        if o.IsActive {
            out = append(out, outletResp{ID: o.ID, Name: o.Name, MinAdvanceHours: o.MinAdvanceHours, MaxAdvanceDays: o.MaxAdvanceDays})
        }
    }
    return c.JSON(http.StatusOK, out)
}

// Tables handles GET /v1/outlets/:id/tables.  Only active tables are
// listed unless all=true.
func (h *TableHandler) Tables(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    if _, err := h.Dir.GetOutlet(ctx, outletID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "outlet not found"})
        }
        return fail(c, h.Log, err)
    }
    tables, err := h.Dir.GetTables(ctx, outletID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    all := c.QueryParam("all") == "true"
    out := make([]model.Table, 0, len(tables))
    for _, t := range tables {
        if all || t.IsActive {
            out = append(out, t)
        }
    }
    return c.JSON(http.StatusOK, out)
}
