package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/model"
)

// HoldRepo provides data access to table_holds and table_hold_tables.
// Holds are never deleted: consuming, releasing or sweeping a hold flips
// is_active so the row stays around for support queries.  Expiry is
// compared against the now passed by the caller, not the database clock.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, outlet_id, party_size, target_time, duration_minutes, session_id, created_at, expires_at, is_active`

// HeldTableIDs returns the tables claimed by live holds of other sessions
// whose interval overlaps [start, end).  An empty excludeSession excludes
// nobody.
func (r *HoldRepo) HeldTableIDs(ctx context.Context, outletID uint64, start, end time.Time, excludeSession string, now time.Time) ([]uint64, error) {
    const q = `SELECT DISTINCT ht.table_id
               FROM table_hold_tables ht
               JOIN table_holds h ON h.id = ht.hold_id
               WHERE h.outlet_id = ?
                 AND h.is_active = 1
                 AND h.expires_at > ?
                 AND h.session_id <> ?
                 AND h.target_time < ?
                 AND DATE_ADD(h.target_time, INTERVAL h.duration_minutes MINUTE) > ?`
    rows, err := r.db.QueryContext(ctx, q, outletID, now.UTC(), excludeSession, end.UTC(), start.UTC())
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// CreateHold inserts the hold and its tables in one transaction.
func (r *HoldRepo) CreateHold(ctx context.Context, h *model.TableHold) error {
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        _, err := tx.ExecContext(ctx,
            `INSERT INTO table_holds (`+holdColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
            h.ID, h.OutletID, h.PartySize, h.TargetTime.UTC(), int(h.Duration/time.Minute), h.SessionID,
            h.CreatedAt.UTC(), h.ExpiresAt.UTC(), h.IsActive,
        )
        if err != nil {
            if isDuplicateKey(err) {
                return ErrDuplicate
            }
            return err
        }
        if len(h.TableIDs) == 0 {
            return nil
        }
        query := `INSERT INTO table_hold_tables (hold_id, table_id) VALUES `
        args := make([]interface{}, 0, len(h.TableIDs)*2)
        for i, id := range h.TableIDs {
            if i > 0 {
                query += ","
            }
            query += "(?, ?)"
            args = append(args, h.ID, id)
        }
        _, err = tx.ExecContext(ctx, query, args...)
        return err
    })
}

func scanHold(row rowScanner) (model.TableHold, error) {
    var (
        h       model.TableHold
        minutes int
    )
    if err := row.Scan(&h.ID, &h.OutletID, &h.PartySize, &h.TargetTime, &minutes, &h.SessionID, &h.CreatedAt, &h.ExpiresAt, &h.IsActive); err != nil {
        return model.TableHold{}, err
    }
    h.Duration = time.Duration(minutes) * time.Minute
    return h, nil
}

func (r *HoldRepo) withTables(ctx context.Context, h model.TableHold) (model.TableHold, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT table_id FROM table_hold_tables WHERE hold_id = ? ORDER BY table_id`, h.ID)
    if err != nil {
        return model.TableHold{}, err
    }
    ids, err := scanIDs(rows)
    if err != nil {
        return model.TableHold{}, err
    }
    h.TableIDs = ids
    return h, nil
}

// GetHold returns the hold with its tables or ErrNotFound.
func (r *HoldRepo) GetHold(ctx context.Context, id string) (model.TableHold, error) {
    h, err := scanHold(r.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM table_holds WHERE id = ?`, id))
    if err != nil {
        return model.TableHold{}, notFound(err)
    }
    return r.withTables(ctx, h)
}

// ActiveHoldBySession returns the newest hold of the session that is
// still flagged active, whether or not it has expired.
func (r *HoldRepo) ActiveHoldBySession(ctx context.Context, sessionID string) (model.TableHold, error) {
    h, err := scanHold(r.db.QueryRowContext(ctx,
        `SELECT `+holdColumns+` FROM table_holds WHERE session_id = ? AND is_active = 1 ORDER BY created_at DESC LIMIT 1`,
        sessionID,
    ))
    if err != nil {
        return model.TableHold{}, notFound(err)
    }
    return r.withTables(ctx, h)
}

// DeactivateHold flips one active hold and reports whether this call did
// it.  Releasing an already inactive hold is not an error.
func (r *HoldRepo) DeactivateHold(ctx context.Context, id string) (bool, error) {
    result, err := r.db.ExecContext(ctx, `UPDATE table_holds SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    return n > 0, err
}

// DeactivateSessionHolds flips every active hold of the session.
func (r *HoldRepo) DeactivateSessionHolds(ctx context.Context, sessionID string) (int64, error) {
    result, err := r.db.ExecContext(ctx, `UPDATE table_holds SET is_active = 0 WHERE session_id = ? AND is_active = 1`, sessionID)
    if err != nil {
        return 0, err
    }
    return result.RowsAffected()
}

// ExpiredHolds lists up to limit active holds whose expiry is before now,
// oldest first.  Table ids are not loaded.
func (r *HoldRepo) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.TableHold, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM table_holds WHERE is_active = 1 AND expires_at < ? ORDER BY expires_at LIMIT ?`,
        now.UTC(), limit,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.TableHold
    for rows.Next() {
        h, err := scanHold(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, h)
    }
    return out, rows.Err()
}
