package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/service"
)

// AvailabilityHandler answers "can we seat this party" questions.
type AvailabilityHandler struct {
    Svc *service.AvailabilityService
    Cfg config.BookingConfig
    Log logrus.FieldLogger
}

func NewAvailabilityHandler(svc *service.AvailabilityService, cfg config.BookingConfig, log logrus.FieldLogger) *AvailabilityHandler {
    return &AvailabilityHandler{Svc: svc, Cfg: cfg, Log: log}
}

// Check handles GET /v1/outlets/:id/availability?date=YYYY-MM-DD&party_size=N[&time=HH:MM].
// Without time it lists every open slot of the day.
func (h *AvailabilityHandler) Check(c echo.Context) error {
    outletID, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid outlet id")
    }
    party, err := strconv.Atoi(c.QueryParam("party_size"))
    if err != nil {
        return badRequest(c, "party_size must be a number")
    }
    day, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), h.Cfg.Location)
    if err != nil {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    req := service.AvailabilityRequest{OutletID: outletID, PartySize: party, Date: day}
    if raw := c.QueryParam("time"); raw != "" {
        clock, err := config.ParseClock(raw)
        if err != nil {
            return badRequest(c, "time must be HH:MM")
        }
        req.PreferredTime = &clock
    }

    ctx, cancel := requestCtx(c)
    defer cancel()
    res, err := h.Svc.Check(ctx, req)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if res.Alternatives == nil {
        res.Alternatives = []service.Slot{}
    }
    return c.JSON(http.StatusOK, res)
}
