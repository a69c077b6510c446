package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type queryer interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// nullTime converts an optional timestamp into a driver value (UTC).
func nullTime(t *time.Time) interface{} {
    if t == nil {
        return nil
    }
    return t.UTC()
}

// timePtr converts a scanned sql.NullTime back into an optional timestamp.
func timePtr(nt sql.NullTime) *time.Time {
    if !nt.Valid {
        return nil
    }
    t := nt.Time.UTC()
    return &t
}

// scanIDs reads a single uint64 column from every row and closes rows.
func scanIDs(rows *sql.Rows) ([]uint64, error) {
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// isDuplicateKey reports MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}
