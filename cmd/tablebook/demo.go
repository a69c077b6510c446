package main

import (
    "context"
    "fmt"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/utils"
)

// seedDemo fills the memory store with one outlet, eight tables and a
// manager account (manager@demo.local / demo) so the API can be tried
// without MySQL.
func seedDemo(ctx context.Context, a *app) {
    o := a.mem.AddOutlet(model.Outlet{Name: "Demo Bistro", IsActive: true, MinAdvanceHours: 1, MaxAdvanceDays: 30})
    total := 0
    for i, c := range []int{2, 2, 2, 4, 4, 4, 6, 8} {
        a.mem.AddTable(model.Table{OutletID: o.ID, Number: fmt.Sprintf("T%d", i+1), Capacity: c, Section: "main", IsActive: true})
        total += c
    }
    a.mem.SetDefaultSettings(o.ID, model.SlotSettings{Capacity: total, AllocationPercent: 80, DiningDurationMinutes: 90})

    hash, err := utils.HashPassword("demo", a.cfg.BcryptCost)
    if err != nil {
        a.log.WithError(err).Warn("demo: hash password")
        return
    }
    if err := a.mem.CreateStaff(ctx, &model.Staff{Email: "manager@demo.local", PasswordHash: hash, Role: model.RoleManager, IsActive: true}); err != nil {
        a.log.WithError(err).Warn("demo: create staff")
        return
    }
    a.log.WithField("outlet_id", o.ID).Info("demo outlet seeded")
}
