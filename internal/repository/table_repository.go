package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/table-reservation/internal/model"
)

// TableRepo is the table catalog backed by outlet_tables.  Tables are
// maintained by outlet configuration, so the booking engine only reads.
type TableRepo struct {
    db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// GetTables lists every table of the outlet, active or not, ordered by
// capacity and then id so callers get a stable pool.
func (r *TableRepo) GetTables(ctx context.Context, outletID uint64) ([]model.Table, error) {
    const q = `SELECT id, outlet_id, number, capacity, section, is_active
               FROM outlet_tables
               WHERE outlet_id = ?
               ORDER BY capacity, id`
    rows, err := r.db.QueryContext(ctx, q, outletID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var tables []model.Table
    for rows.Next() {
        var t model.Table
        if err := rows.Scan(&t.ID, &t.OutletID, &t.Number, &t.Capacity, &t.Section, &t.IsActive); err != nil {
            return nil, err
        }
        tables = append(tables, t)
    }
    return tables, rows.Err()
}
