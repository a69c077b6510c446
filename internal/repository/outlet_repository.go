package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/table-reservation/internal/model"
)

// OutletRepo reads outlets and their booking policy.
type OutletRepo struct {
    db *sql.DB
}

// NewOutletRepo returns a new OutletRepo bound to the given database.
func NewOutletRepo(db *sql.DB) *OutletRepo { return &OutletRepo{db: db} }

const outletColumns = `id, name, is_active, min_advance_hours, max_advance_days, created_at, updated_at`

// GetOutlet returns the outlet with the given id or ErrNotFound.
func (r *OutletRepo) GetOutlet(ctx context.Context, id uint64) (model.Outlet, error) {
    var o model.Outlet
    err := r.db.QueryRowContext(ctx, `SELECT `+outletColumns+` FROM outlets WHERE id = ?`, id).Scan(
        &o.ID, &o.Name, &o.IsActive, &o.MinAdvanceHours, &o.MaxAdvanceDays, &o.CreatedAt, &o.UpdatedAt,
    )
    if err != nil {
        return model.Outlet{}, notFound(err)
    }
    return o, nil
}

// ListOutlets returns every outlet ordered by id.  The background workers
// use it to walk the queues of all outlets.
func (r *OutletRepo) ListOutlets(ctx context.Context) ([]model.Outlet, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+outletColumns+` FROM outlets ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Outlet
    for rows.Next() {
        var o model.Outlet
        if err := rows.Scan(&o.ID, &o.Name, &o.IsActive, &o.MinAdvanceHours, &o.MaxAdvanceDays, &o.CreatedAt, &o.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}
