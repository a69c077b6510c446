package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/table-reservation/internal/database"
    "github.com/iliyamo/table-reservation/internal/model"
)

// ReminderRepo stores scheduled guest reminders.  A reservation has at
// most one PENDING reminder per kind.
type ReminderRepo struct {
    db *sql.DB
}

// NewReminderRepo returns a new ReminderRepo bound to the given database.
func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

// ScheduleReminders inserts one PENDING reminder per fact, skipping kinds
// that are already pending for the reservation.
func (r *ReminderRepo) ScheduleReminders(ctx context.Context, reservationID uint64, facts []model.ReminderFact) error {
    if len(facts) == 0 {
        return nil
    }
    return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
        rows, err := tx.QueryContext(ctx,
            `SELECT kind FROM reminders WHERE reservation_id = ? AND status = 'PENDING' FOR UPDATE`,
            reservationID,
        )
        if err != nil {
            return err
        }
        pending := map[model.ReminderKind]bool{}
        for rows.Next() {
            var kind string
            if err := rows.Scan(&kind); err != nil {
                rows.Close()
                return err
            }
            pending[model.ReminderKind(kind)] = true
        }
        if err := rows.Close(); err != nil {
            return err
        }

        query := `INSERT INTO reminders (reservation_id, kind, due_at, status) VALUES `
        var args []interface{}
        for _, f := range facts {
            if pending[f.Kind] {
                continue
            }
            pending[f.Kind] = true
            if len(args) > 0 {
                query += ","
            }
            query += "(?, ?, ?, 'PENDING')"
            args = append(args, reservationID, string(f.Kind), f.DueAt.UTC())
        }
        if len(args) == 0 {
            return nil
        }
        _, err = tx.ExecContext(ctx, query, args...)
        return err
    })
}

// CancelReminders cancels every pending reminder of the reservation.
func (r *ReminderRepo) CancelReminders(ctx context.Context, reservationID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE reminders SET status = 'CANCELED' WHERE reservation_id = ? AND status = 'PENDING'`,
        reservationID,
    )
    return err
}

// DueReminders lists up to limit pending reminders due at or before now.
func (r *ReminderRepo) DueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, reservation_id, kind, due_at, status, sent_at, created_at
         FROM reminders WHERE status = 'PENDING' AND due_at <= ?
         ORDER BY due_at, id LIMIT ?`,
        now.UTC(), limit,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Reminder
    for rows.Next() {
        var (
            rm           model.Reminder
            kind, status string
            sent         sql.NullTime
        )
        if err := rows.Scan(&rm.ID, &rm.ReservationID, &kind, &rm.DueAt, &status, &sent, &rm.CreatedAt); err != nil {
            return nil, err
        }
        rm.Kind = model.ReminderKind(kind)
        rm.Status = model.ReminderStatus(status)
        rm.SentAt = timePtr(sent)
        out = append(out, rm)
    }
    return out, rows.Err()
}

// MarkReminder records the outcome of a dispatch attempt.  sent_at is only
// set when the reminder was sent.
func (r *ReminderRepo) MarkReminder(ctx context.Context, id uint64, status model.ReminderStatus, at time.Time) error {
    var sentAt interface{}
    if status == model.ReminderSent {
        sentAt = at.UTC()
    }
    result, err := r.db.ExecContext(ctx,
        `UPDATE reminders SET status = ?, sent_at = COALESCE(?, sent_at) WHERE id = ?`,
        string(status), sentAt, id,
    )
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
