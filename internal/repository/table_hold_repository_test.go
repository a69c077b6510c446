package repository

import (
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

var holdRowColumns = []string{"id", "outlet_id", "party_size", "target_time", "duration_minutes", "session_id", "created_at", "expires_at", "is_active"}

const holdID = "6f1c2a3e-9b7d-4e21-8a55-0c4f7d2b9e10"

func TestHoldRepo_HeldTableIDs(t *testing.T) {
    db, mock := newMock(t)
    now := evening.Add(-time.Hour)
    end := evening.Add(90 * time.Minute)

    mock.ExpectQuery(regexp.QuoteMeta("FROM table_hold_tables ht")).
        WithArgs(1, now, "sess-a", end, evening).
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}).AddRow(4))

    ids, err := NewHoldRepo(db).HeldTableIDs(ctx, 1, evening, end, "sess-a", now)
    require.NoError(t, err)
    assert.Equal(t, []uint64{4}, ids)
}

func TestHoldRepo_CreateHold(t *testing.T) {
    db, mock := newMock(t)
    created := evening.Add(-2 * time.Hour)
    h := &model.TableHold{
        ID: holdID, OutletID: 1, TableIDs: []uint64{2, 3}, PartySize: 5, TargetTime: evening,
        Duration: 90 * time.Minute, SessionID: "sess-a", CreatedAt: created, ExpiresAt: created.Add(3 * time.Minute), IsActive: true,
    }

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO table_holds")).
        WithArgs(holdID, 1, 5, evening, 90, "sess-a", created, created.Add(3*time.Minute), true).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO table_hold_tables (hold_id, table_id) VALUES (?, ?),(?, ?)")).
        WithArgs(holdID, 2, holdID, 3).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectCommit()

    require.NoError(t, NewHoldRepo(db).CreateHold(ctx, h))
}

func TestHoldRepo_GetHold(t *testing.T) {
    db, mock := newMock(t)
    created := evening.Add(-2 * time.Hour)

    mock.ExpectQuery(regexp.QuoteMeta("FROM table_holds WHERE id = ?")).
        WithArgs(holdID).
        WillReturnRows(sqlmock.NewRows(holdRowColumns).
            AddRow(holdID, 1, 5, evening, 90, "sess-a", created, created.Add(3*time.Minute), true))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT table_id FROM table_hold_tables WHERE hold_id = ?")).
        WithArgs(holdID).
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}).AddRow(2).AddRow(3))

    h, err := NewHoldRepo(db).GetHold(ctx, holdID)
    require.NoError(t, err)
    assert.Equal(t, []uint64{2, 3}, h.TableIDs)
    assert.Equal(t, 90*time.Minute, h.Duration)
    assert.True(t, h.ActiveAt(created.Add(time.Minute)))
}

func TestHoldRepo_ActiveHoldBySessionMissing(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id = ? AND is_active = 1 ORDER BY created_at DESC LIMIT 1")).
        WithArgs("sess-z").
        WillReturnRows(sqlmock.NewRows(holdRowColumns))

    _, err := NewHoldRepo(db).ActiveHoldBySession(ctx, "sess-z")
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestHoldRepo_Deactivate(t *testing.T) {
    db, mock := newMock(t)
    repo := NewHoldRepo(db)

    mock.ExpectExec(regexp.QuoteMeta("UPDATE table_holds SET is_active = 0 WHERE id = ? AND is_active = 1")).
        WithArgs(holdID).
        WillReturnResult(sqlmock.NewResult(0, 1))
    done, err := repo.DeactivateHold(ctx, holdID)
    require.NoError(t, err)
    assert.True(t, done)

    mock.ExpectExec(regexp.QuoteMeta("UPDATE table_holds SET is_active = 0 WHERE id = ? AND is_active = 1")).
        WithArgs(holdID).
        WillReturnResult(sqlmock.NewResult(0, 0))
    done, err = repo.DeactivateHold(ctx, holdID)
    require.NoError(t, err)
    assert.False(t, done)

    mock.ExpectExec(regexp.QuoteMeta("WHERE session_id = ? AND is_active = 1")).
        WithArgs("sess-a").
        WillReturnResult(sqlmock.NewResult(0, 2))
    n, err := repo.DeactivateSessionHolds(ctx, "sess-a")
    require.NoError(t, err)
    assert.Equal(t, int64(2), n)
}

func TestHoldRepo_ExpiredHolds(t *testing.T) {
    db, mock := newMock(t)
    created := evening.Add(-2 * time.Hour)

    mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = 1 AND expires_at < ? ORDER BY expires_at LIMIT ?")).
        WithArgs(evening, 500).
        WillReturnRows(sqlmock.NewRows(holdRowColumns).
            AddRow(holdID, 1, 5, evening, 90, "sess-a", created, created.Add(3*time.Minute), true))

    holds, err := NewHoldRepo(db).ExpiredHolds(ctx, evening, 500)
    require.NoError(t, err)
    require.Len(t, holds, 1)
    assert.Equal(t, holdID, holds[0].ID)
}
