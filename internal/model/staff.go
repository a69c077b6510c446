package model

import "time"

// Staff represents a restaurant employee allowed to operate the queue and
// move reservations through their staff-only transitions.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  PasswordHash – bcrypt hashed password.
//  Role         – HOST or MANAGER.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Staff struct {
    ID           uint64    // staff.id
    Email        string    // staff.email
    PasswordHash string    // staff.password_hash
    Role         string    // staff.role
    IsActive     bool      // staff.is_active
    CreatedAt    time.Time // staff.created_at
    UpdatedAt    time.Time // staff.updated_at
}

const (
    RoleHost    = "HOST"
    RoleManager = "MANAGER"
)
