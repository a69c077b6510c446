package repository

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

var (
    ctx     = context.Background()
    evening = time.Date(2026, 10, 20, 19, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() {
        assert.NoError(t, mock.ExpectationsWereMet())
        db.Close()
    })
    return db, mock
}

func TestPlaceholders(t *testing.T) {
    assert.Equal(t, "", placeholders(0))
    assert.Equal(t, "?", placeholders(1))
    assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestOutletRepo_GetOutlet(t *testing.T) {
    db, mock := newMock(t)
    repo := NewOutletRepo(db)

    mock.ExpectQuery(regexp.QuoteMeta("FROM outlets WHERE id = ?")).
        WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active", "min_advance_hours", "max_advance_days", "created_at", "updated_at"}).
            AddRow(7, "Harbour", true, 2, 30, evening, evening))
    o, err := repo.GetOutlet(ctx, 7)
    require.NoError(t, err)
    assert.Equal(t, "Harbour", o.Name)
    assert.Equal(t, 2, o.MinAdvanceHours)
    assert.True(t, o.IsActive)

    mock.ExpectQuery(regexp.QuoteMeta("FROM outlets WHERE id = ?")).WithArgs(8).WillReturnError(sql.ErrNoRows)
    _, err = repo.GetOutlet(ctx, 8)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestTableRepo_GetTables(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta("FROM outlet_tables")).
        WithArgs(1).
        WillReturnRows(sqlmock.NewRows([]string{"id", "outlet_id", "number", "capacity", "section", "is_active"}).
            AddRow(3, 1, "T3", 2, "bar", true).
            AddRow(1, 1, "T1", 4, "main", false))

    tables, err := NewTableRepo(db).GetTables(ctx, 1)
    require.NoError(t, err)
    require.Len(t, tables, 2)
    assert.Equal(t, "T3", tables[0].Number)
    assert.False(t, tables[1].IsActive)
}

func TestSettingsRepo_GetSlotSettings(t *testing.T) {
    db, mock := newMock(t)
    loc := time.FixedZone("UTC+2", 2*3600)
    repo := NewSettingsRepo(db, loc)

    // 19:00 UTC is 21:00 local on a Tuesday.
    mock.ExpectQuery(regexp.QuoteMeta("FROM slot_settings")).
        WithArgs(1, int(time.Tuesday), 21*60, 21*60).
        WillReturnRows(sqlmock.NewRows([]string{"capacity", "allocation_percent", "dining_duration_minutes"}).AddRow(40, 80, 120))
    s, err := repo.GetSlotSettings(ctx, 1, evening)
    require.NoError(t, err)
    require.NotNil(t, s)
    assert.Equal(t, model.SlotSettings{Capacity: 40, AllocationPercent: 80, DiningDurationMinutes: 120}, *s)

    mock.ExpectQuery(regexp.QuoteMeta("FROM slot_settings")).WillReturnError(sql.ErrNoRows)
    s, err = repo.GetSlotSettings(ctx, 1, evening)
    require.NoError(t, err)
    assert.Nil(t, s)
}

func TestStaffRepo_CreateStaff(t *testing.T) {
    db, mock := newMock(t)
    repo := NewStaffRepo(db)

    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO staff")).
        WithArgs("host@harbour.test", "hash", model.RoleHost, true).
        WillReturnResult(sqlmock.NewResult(5, 1))
    st := model.Staff{Email: " Host@Harbour.test ", PasswordHash: "hash", Role: model.RoleHost, IsActive: true}
    require.NoError(t, repo.CreateStaff(ctx, &st))
    assert.Equal(t, uint64(5), st.ID)
    assert.Equal(t, "host@harbour.test", st.Email)

    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO staff")).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
    dup := model.Staff{Email: "host@harbour.test", PasswordHash: "hash", Role: model.RoleHost}
    assert.ErrorIs(t, repo.CreateStaff(ctx, &dup), ErrDuplicate)
}

func TestStaffRepo_GetStaffByEmail(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta("FROM staff WHERE email = ?")).
        WithArgs("boss@harbour.test").
        WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
            AddRow(2, "boss@harbour.test", "hash", model.RoleManager, true, evening, evening))
    st, err := NewStaffRepo(db).GetStaffByEmail(ctx, "BOSS@harbour.test")
    require.NoError(t, err)
    assert.Equal(t, model.RoleManager, st.Role)
}

func TestIsDuplicateKey(t *testing.T) {
    assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
    assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1452}))
    assert.False(t, isDuplicateKey(errors.New("boom")))
}
