package repository

import (
    "context"
    "database/sql"
    "sort"
    "time"

    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/model"
)

// QueueRepo persists walk-in queue entries.  Positions are only
// meaningful for WAITING rows; the service keeps them dense.
type QueueRepo struct {
    db *sql.DB
}

// NewQueueRepo returns a new QueueRepo bound to the given database.
func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

const queueColumns = `id, code, outlet_id, customer_name, customer_phone, party_size, status, position,
       estimated_wait_minutes, assigned_table_id, is_held, held_at, called_at, ready_expires_at,
       seated_at, completed_at, cancel_reason, joined_at, updated_at`

func scanQueueEntry(row rowScanner) (model.QueueEntry, error) {
    var (
        e                                   model.QueueEntry
        status                              string
        table                               sql.NullInt64
        held, called, expires, seated, done sql.NullTime
    )
    err := row.Scan(&e.ID, &e.Code, &e.OutletID, &e.CustomerName, &e.CustomerPhone, &e.PartySize, &status, &e.Position,
        &e.EstimatedWaitMinutes, &table, &e.IsHeld, &held, &called, &expires,
        &seated, &done, &e.CancelReason, &e.JoinedAt, &e.UpdatedAt)
    if err != nil {
        return model.QueueEntry{}, err
    }
    e.Status = model.QueueStatus(status)
    if table.Valid {
        id := uint64(table.Int64)
        e.AssignedTableID = &id
    }
    e.HeldAt = timePtr(held)
    e.CalledAt = timePtr(called)
    e.ReadyExpiresAt = timePtr(expires)
    e.SeatedAt = timePtr(seated)
    e.CompletedAt = timePtr(done)
    return e, nil
}

func scanQueueEntries(rows *sql.Rows) ([]model.QueueEntry, error) {
    defer rows.Close()
    var out []model.QueueEntry
    for rows.Next() {
        e, err := scanQueueEntry(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    return out, rows.Err()
}

func nullTableID(id *uint64) interface{} {
    if id == nil {
        return nil
    }
    return *id
}

// CreateQueueEntry appends e to the outlet's waiting line.  The current
// tail is read with FOR UPDATE so concurrent joins get distinct positions.
func (r *QueueRepo) CreateQueueEntry(ctx context.Context, e *model.QueueEntry) error {
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        var last int
        err := tx.QueryRowContext(ctx,
            `SELECT COALESCE(MAX(position), 0) FROM queue_entries WHERE outlet_id = ? AND status = 'WAITING' FOR UPDATE`,
            e.OutletID,
        ).Scan(&last)
        if err != nil {
            return err
        }
        position := last + 1
        result, err := tx.ExecContext(ctx,
            `INSERT INTO queue_entries
                (code, outlet_id, customer_name, customer_phone, party_size, status, position,
                 estimated_wait_minutes, is_held, cancel_reason, joined_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)`,
            e.Code, e.OutletID, e.CustomerName, e.CustomerPhone, e.PartySize, string(e.Status), position,
            e.EstimatedWaitMinutes, e.JoinedAt.UTC(), e.UpdatedAt.UTC(),
        )
        if err != nil {
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        e.ID = uint64(id)
        e.Position = position
        return nil
    })
}

// GetQueueEntry returns a single entry or ErrNotFound.
func (r *QueueRepo) GetQueueEntry(ctx context.Context, id uint64) (model.QueueEntry, error) {
    e, err := scanQueueEntry(r.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queue_entries WHERE id = ?`, id))
    if err != nil {
        return model.QueueEntry{}, notFound(err)
    }
    return e, nil
}

// ListQueue returns the outlet's entries in one status, by position then
// join time.
func (r *QueueRepo) ListQueue(ctx context.Context, outletID uint64, status model.QueueStatus) ([]model.QueueEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+queueColumns+` FROM queue_entries WHERE outlet_id = ? AND status = ? ORDER BY position, joined_at, id`,
        outletID, string(status),
    )
    if err != nil {
        return nil, err
    }
    return scanQueueEntries(rows)
}

// SaveQueueEntry overwrites every mutable column of e when the stored
// status still equals expected.  The boolean is false when another writer
// got there first.
func (r *QueueRepo) SaveQueueEntry(ctx context.Context, e *model.QueueEntry, expected model.QueueStatus) (bool, error) {
    const q = `UPDATE queue_entries
        SET customer_name = ?, customer_phone = ?, party_size = ?, status = ?, position = ?,
            estimated_wait_minutes = ?, assigned_table_id = ?, is_held = ?, held_at = ?, called_at = ?,
            ready_expires_at = ?, seated_at = ?, completed_at = ?, cancel_reason = ?, updated_at = ?
        WHERE id = ? AND status = ?`
    result, err := r.db.ExecContext(ctx, q,
        e.CustomerName, e.CustomerPhone, e.PartySize, string(e.Status), e.Position,
        e.EstimatedWaitMinutes, nullTableID(e.AssignedTableID), e.IsHeld, nullTime(e.HeldAt), nullTime(e.CalledAt),
        nullTime(e.ReadyExpiresAt), nullTime(e.SeatedAt), nullTime(e.CompletedAt), e.CancelReason, e.UpdatedAt.UTC(),
        e.ID, string(expected),
    )
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    return n > 0, err
}

// RewritePositions numbers the listed WAITING entries 1..N in the given
// order inside one transaction.  Ids that are no longer waiting are
// skipped by the WHERE clause.
func (r *QueueRepo) RewritePositions(ctx context.Context, outletID uint64, orderedIDs []uint64) error {
    if len(orderedIDs) == 0 {
        return nil
    }
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        stmt, err := tx.PrepareContext(ctx, `UPDATE queue_entries SET position = ? WHERE id = ? AND outlet_id = ? AND status = 'WAITING'`)
        if err != nil {
            return err
        }
        defer stmt.Close()
        for i, id := range orderedIDs {
            if _, err := stmt.ExecContext(ctx, i+1, id, outletID); err != nil {
                return err
            }
        }
        return nil
    })
}

// SetWaitEstimates stores the estimated wait of several entries.
func (r *QueueRepo) SetWaitEstimates(ctx context.Context, estimates map[uint64]int) error {
    if len(estimates) == 0 {
        return nil
    }
    ids := make([]uint64, 0, len(estimates))
    for id := range estimates {
        ids = append(ids, id)
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        stmt, err := tx.PrepareContext(ctx, `UPDATE queue_entries SET estimated_wait_minutes = ? WHERE id = ?`)
        if err != nil {
            return err
        }
        defer stmt.Close()
        for _, id := range ids {
            if _, err := stmt.ExecContext(ctx, estimates[id], id); err != nil {
                return err
            }
        }
        return nil
    })
}

// AssignedTableIDs returns tables assigned to WAITING, READY or SEATED
// entries other than excludeEntryID.
func (r *QueueRepo) AssignedTableIDs(ctx context.Context, outletID, excludeEntryID uint64) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT assigned_table_id FROM queue_entries
         WHERE outlet_id = ? AND id <> ? AND status IN ('WAITING', 'READY', 'SEATED')
           AND assigned_table_id IS NOT NULL`,
        outletID, excludeEntryID,
    )
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// ExpiredReadyEntries lists up to limit READY entries whose confirmation
// deadline is before now, across all outlets.
func (r *QueueRepo) ExpiredReadyEntries(ctx context.Context, now time.Time, limit int) ([]model.QueueEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+queueColumns+` FROM queue_entries
         WHERE status = 'READY' AND ready_expires_at < ?
         ORDER BY ready_expires_at LIMIT ?`,
        now.UTC(), limit,
    )
    if err != nil {
        return nil, err
    }
    return scanQueueEntries(rows)
}

// CountQueueByStatus returns the number of entries per status.  Statuses
// with no entries are absent from the map.
func (r *QueueRepo) CountQueueByStatus(ctx context.Context, outletID uint64) (map[model.QueueStatus]int, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_entries WHERE outlet_id = ? GROUP BY status`, outletID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    counts := map[model.QueueStatus]int{}
    for rows.Next() {
        var (
            status string
            n      int
        )
        if err := rows.Scan(&status, &n); err != nil {
            return nil, err
        }
        counts[model.QueueStatus(status)] = n
    }
    return counts, rows.Err()
}
