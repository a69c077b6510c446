package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/table-reservation/internal/model"
)

// StaffRepo handles CRUD operations for staff accounts.
type StaffRepo struct {
    db *sql.DB
}

// NewStaffRepo returns a new StaffRepo bound to the given database.
func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// CreateStaff inserts a staff account and sets its id.  Emails are stored
// lower-cased; a second account with the same email returns ErrDuplicate.
func (r *StaffRepo) CreateStaff(ctx context.Context, st *model.Staff) error {
    st.Email = strings.ToLower(strings.TrimSpace(st.Email))
    const q = `INSERT INTO staff (email, password_hash, role, is_active) VALUES (?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, st.Email, st.PasswordHash, st.Role, st.IsActive)
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
    st.ID = uint64(id)
    return nil
}

// GetStaffByEmail retrieves a staff account by email or ErrNotFound.
func (r *StaffRepo) GetStaffByEmail(ctx context.Context, email string) (model.Staff, error) {
    const q = `SELECT id, email, password_hash, role, is_active, created_at, updated_at FROM staff WHERE email = ?`
    var st model.Staff
    err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))).Scan(
        &st.ID, &st.Email, &st.PasswordHash, &st.Role, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
    )
    if err != nil {
        return model.Staff{}, notFound(err)
    }
    return st, nil
}
