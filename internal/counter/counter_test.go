package counter

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func TestRedisNextSetsExpiryOnFirstUse(t *testing.T) {
    db, mock := redismock.NewClientMock()
    seq := NewRedis(db)

    mock.ExpectIncr("queue:outlet:2:day:2026-10-20").SetVal(1)
    mock.ExpectExpire("queue:outlet:2:day:2026-10-20", 48*time.Hour).SetVal(true)
    mock.ExpectIncr("queue:outlet:2:day:2026-10-20").SetVal(2)

    n, err := seq.Next(context.Background(), 2, day)
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)

    n, err = seq.Next(context.Background(), 2, day)
    require.NoError(t, err)
    assert.Equal(t, int64(2), n)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisNextError(t *testing.T) {
    db, mock := redismock.NewClientMock()
    mock.ExpectIncr("queue:outlet:2:day:2026-10-20").SetErr(errors.New("down"))

    _, err := NewRedis(db).Next(context.Background(), 2, day)
    assert.ErrorContains(t, err, "down")
}

func TestMemoryNextPerOutletAndDay(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    a, _ := m.Next(ctx, 1, day)
    b, _ := m.Next(ctx, 1, day)
    other, _ := m.Next(ctx, 2, day)
    tomorrow, _ := m.Next(ctx, 1, day.AddDate(0, 0, 1))

    assert.Equal(t, []int64{1, 2, 1, 1}, []int64{a, b, other, tomorrow})
}
