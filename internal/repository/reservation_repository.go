package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/model"
)

// ReservationRepo persists reservations, their table assignments in
// reservation_tables and the audit trail in reservation_status_changes.
// All timestamps are written in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, code, outlet_id, customer_name, customer_phone, customer_email,
       special_requests, party_size, start_time, duration_minutes, status, created_at, updated_at`

// overlapClause selects reservations that occupy tables during [start, end).
// Arguments: outlet_id, exclude id, end, start.
const overlapClause = `r.outlet_id = ?
  AND r.status IN ('PENDING', 'CONFIRMED')
  AND r.id <> ?
  AND r.start_time < ?
  AND DATE_ADD(r.start_time, INTERVAL r.duration_minutes MINUTE) > ?`

// ReservedCapacity sums the party sizes of reservations overlapping
// [start, end), skipping excludeID.
func (r *ReservationRepo) ReservedCapacity(ctx context.Context, outletID uint64, start, end time.Time, excludeID uint64) (int, error) {
    var total int
    err := r.db.QueryRowContext(ctx,
        `SELECT COALESCE(SUM(r.party_size), 0) FROM reservations r WHERE `+overlapClause,
        outletID, excludeID, end.UTC(), start.UTC(),
    ).Scan(&total)
    return total, err
}

// ReservedTableIDs returns the tables assigned to reservations overlapping
// [start, end), skipping excludeID.
func (r *ReservationRepo) ReservedTableIDs(ctx context.Context, outletID uint64, start, end time.Time, excludeID uint64) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT DISTINCT rt.table_id
         FROM reservation_tables rt
         JOIN reservations r ON r.id = rt.reservation_id
         WHERE `+overlapClause,
        outletID, excludeID, end.UTC(), start.UTC(),
    )
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// CodeExists reports whether any reservation already uses code.
func (r *ReservationRepo) CodeExists(ctx context.Context, code string) (bool, error) {
    var exists bool
    err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE code = ?)`, code).Scan(&exists)
    return exists, err
}

// CreateReservation inserts the reservation, its tables and the initial
// status change in one transaction and fills in res.ID.  A clash on the
// unique code returns ErrDuplicate.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation, change model.StatusChange) error {
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        const q = `INSERT INTO reservations
            (code, outlet_id, customer_name, customer_phone, customer_email, special_requests,
             party_size, start_time, duration_minutes, status, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
        result, err := tx.ExecContext(ctx, q,
            res.Code, res.OutletID, res.CustomerName, res.CustomerPhone, res.CustomerEmail, res.SpecialRequests,
            res.PartySize, res.StartTime.UTC(), int(res.Duration/time.Minute), string(res.Status),
            res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
        )
        if err != nil {
            if isDuplicateKey(err) {
                return ErrDuplicate
            }
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        if err := insertReservationTablesTx(ctx, tx, uint64(id), res.TableIDs); err != nil {
            return err
        }
        change.ReservationID = uint64(id)
        if err := insertStatusChangeTx(ctx, tx, change); err != nil {
            return err
        }
        res.ID = uint64(id)
        return nil
    })
}

// insertReservationTablesTx bulk inserts reservation_tables rows.  Passing
// an empty slice has no effect.
func insertReservationTablesTx(ctx context.Context, tx *sql.Tx, reservationID uint64, tableIDs []uint64) error {
    if len(tableIDs) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_tables (reservation_id, table_id) VALUES `
    args := make([]interface{}, 0, len(tableIDs)*2)
    for i, id := range tableIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?)"
        args = append(args, reservationID, id)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

func insertStatusChangeTx(ctx context.Context, tx *sql.Tx, c model.StatusChange) error {
    var old interface{}
    if c.OldStatus != "" {
        old = string(c.OldStatus)
    }
    _, err := tx.ExecContext(ctx,
        `INSERT INTO reservation_status_changes (reservation_id, old_status, new_status, reason, changed_at) VALUES (?, ?, ?, ?, ?)`,
        c.ReservationID, old, string(c.NewStatus), c.Reason, c.ChangedAt.UTC(),
    )
    return err
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
    var (
        res      model.Reservation
        requests sql.NullString
        minutes  int
        status   string
    )
    err := row.Scan(&res.ID, &res.Code, &res.OutletID, &res.CustomerName, &res.CustomerPhone, &res.CustomerEmail,
        &requests, &res.PartySize, &res.StartTime, &minutes, &status, &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return model.Reservation{}, err
    }
    res.SpecialRequests = requests.String
    res.Duration = time.Duration(minutes) * time.Minute
    res.Status = model.ReservationStatus(status)
    return res, nil
}

// GetReservation returns the reservation with its tables or ErrNotFound.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

// GetReservationByCode looks a reservation up by its public code.
func (r *ReservationRepo) GetReservationByCode(ctx context.Context, code string) (model.Reservation, error) {
    return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE code = ?`, code)
}

func (r *ReservationRepo) getOne(ctx context.Context, query string, arg interface{}) (model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx, query, arg))
    if err != nil {
        return model.Reservation{}, notFound(err)
    }
    tables, err := reservationTables(ctx, r.db, []uint64{res.ID})
    if err != nil {
        return model.Reservation{}, err
    }
    res.TableIDs = tables[res.ID]
    return res, nil
}

// reservationTables loads the table ids of several reservations at once.
func reservationTables(ctx context.Context, q queryer, ids []uint64) (map[uint64][]uint64, error) {
    out := make(map[uint64][]uint64, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    rows, err := q.QueryContext(ctx,
        `SELECT reservation_id, table_id FROM reservation_tables WHERE reservation_id IN (`+placeholders(len(ids))+`) ORDER BY reservation_id, table_id`,
        args...,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var resID, tableID uint64
        if err := rows.Scan(&resID, &tableID); err != nil {
            return nil, err
        }
        out[resID] = append(out[resID], tableID)
    }
    return out, rows.Err()
}

// SaveReservation overwrites the mutable columns and the table set of res
// provided its stored status still equals expected, appending change when
// given.  A status mismatch or missing row returns ErrConflict and leaves
// everything untouched.
func (r *ReservationRepo) SaveReservation(ctx context.Context, res *model.Reservation, expected model.ReservationStatus, change *model.StatusChange) error {
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        const q = `UPDATE reservations
            SET customer_name = ?, customer_phone = ?, customer_email = ?, special_requests = ?,
                party_size = ?, start_time = ?, duration_minutes = ?, status = ?, updated_at = ?
            WHERE id = ? AND status = ?`
        result, err := tx.ExecContext(ctx, q,
            res.CustomerName, res.CustomerPhone, res.CustomerEmail, res.SpecialRequests,
            res.PartySize, res.StartTime.UTC(), int(res.Duration/time.Minute), string(res.Status), res.UpdatedAt.UTC(),
            res.ID, string(expected),
        )
        if err != nil {
            return err
        }
        n, err := result.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrConflict
        }
        if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_tables WHERE reservation_id = ?`, res.ID); err != nil {
            return err
        }
        if err := insertReservationTablesTx(ctx, tx, res.ID, res.TableIDs); err != nil {
            return err
        }
        if change != nil {
            c := *change
            c.ReservationID = res.ID
            return insertStatusChangeTx(ctx, tx, c)
        }
        return nil
    })
}

// ListStatusChanges returns the audit trail of a reservation, oldest first.
func (r *ReservationRepo) ListStatusChanges(ctx context.Context, reservationID uint64) ([]model.StatusChange, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, reservation_id, old_status, new_status, reason, changed_at
         FROM reservation_status_changes WHERE reservation_id = ? ORDER BY changed_at, id`,
        reservationID,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.StatusChange
    for rows.Next() {
        var (
            c        model.StatusChange
            old      sql.NullString
            newState string
        )
        if err := rows.Scan(&c.ID, &c.ReservationID, &old, &newState, &c.Reason, &c.ChangedAt); err != nil {
            return nil, err
        }
        c.OldStatus = model.ReservationStatus(old.String)
        c.NewStatus = model.ReservationStatus(newState)
        out = append(out, c)
    }
    return out, rows.Err()
}

// ListReservations returns the outlet's reservations starting in
// [from, to), in any status, ordered by start time.
func (r *ReservationRepo) ListReservations(ctx context.Context, outletID uint64, from, to time.Time) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
         WHERE outlet_id = ? AND start_time >= ? AND start_time < ?
         ORDER BY start_time, id`,
        outletID, from.UTC(), to.UTC(),
    )
    if err != nil {
        return nil, err
    }
    var (
        out []model.Reservation
        ids []uint64
    )
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        out = append(out, res)
        ids = append(ids, res.ID)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    tables, err := reservationTables(ctx, r.db, ids)
    if err != nil {
        return nil, err
    }
    for i := range out {
        out[i].TableIDs = tables[out[i].ID]
    }
    return out, nil
}
