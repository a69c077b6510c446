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

func TestReminderRepo_ScheduleSkipsPendingKinds(t *testing.T) {
    db, mock := newMock(t)
    dayBefore := evening.Add(-24 * time.Hour)
    hourBefore := evening.Add(-time.Hour)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT kind FROM reminders WHERE reservation_id = ? AND status = 'PENDING' FOR UPDATE")).
        WithArgs(42).
        WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("CONFIRMATION"))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reminders (reservation_id, kind, due_at, status) VALUES (?, ?, ?, 'PENDING'),(?, ?, ?, 'PENDING')")).
        WithArgs(42, "DAY_BEFORE", dayBefore, 42, "HOUR_BEFORE", hourBefore).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectCommit()

    err := NewReminderRepo(db).ScheduleReminders(ctx, 42, []model.ReminderFact{
        {Kind: model.ReminderConfirmation, DueAt: evening.Add(-48 * time.Hour)},
        {Kind: model.ReminderDayBefore, DueAt: dayBefore},
        {Kind: model.ReminderHourBefore, DueAt: hourBefore},
    })
    require.NoError(t, err)
}

func TestReminderRepo_ScheduleNothingNew(t *testing.T) {
    db, mock := newMock(t)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT kind FROM reminders")).
        WithArgs(42).
        WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("HOUR_BEFORE"))
    mock.ExpectCommit()

    err := NewReminderRepo(db).ScheduleReminders(ctx, 42, []model.ReminderFact{{Kind: model.ReminderHourBefore, DueAt: evening}})
    require.NoError(t, err)
}

func TestReminderRepo_DueAndMark(t *testing.T) {
    db, mock := newMock(t)
    repo := NewReminderRepo(db)

    mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'PENDING' AND due_at <= ?")).
        WithArgs(evening, 100).
        WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_id", "kind", "due_at", "status", "sent_at", "created_at"}).
            AddRow(5, 42, "HOUR_BEFORE", evening.Add(-time.Minute), "PENDING", nil, evening.Add(-time.Hour)))
    due, err := repo.DueReminders(ctx, evening, 100)
    require.NoError(t, err)
    require.Len(t, due, 1)
    assert.Equal(t, model.ReminderHourBefore, due[0].Kind)
    assert.Nil(t, due[0].SentAt)

    mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = ?, sent_at = COALESCE(?, sent_at) WHERE id = ?")).
        WithArgs("SENT", evening, 5).
        WillReturnResult(sqlmock.NewResult(0, 1))
    require.NoError(t, repo.MarkReminder(ctx, 5, model.ReminderSent, evening))

    mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = ?")).
        WithArgs("CANCELED", nil, 6).
        WillReturnResult(sqlmock.NewResult(0, 0))
    assert.ErrorIs(t, repo.MarkReminder(ctx, 6, model.ReminderCanceled, evening), ErrNotFound)
}

func TestReminderRepo_CancelReminders(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders SET status = 'CANCELED' WHERE reservation_id = ? AND status = 'PENDING'")).
        WithArgs(42).
        WillReturnResult(sqlmock.NewResult(0, 3))
    require.NoError(t, NewReminderRepo(db).CancelReminders(ctx, 42))
}
