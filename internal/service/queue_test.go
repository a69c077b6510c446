package service

import (
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/model"
)

func (f *fixture) join(name string, party int) model.QueueEntry {
    f.t.Helper()
    e, err := f.queue().Join(f.ctx, JoinRequest{OutletID: f.outlet.ID, CustomerName: name, CustomerPhone: "+1", PartySize: party})
    if err != nil {
        f.t.Fatalf("join %s: %v", name, err)
    }
    return e
}

func (f *fixture) waitingCodes() []string {
    f.t.Helper()
    list, err := f.queue().List(f.ctx, f.outlet.ID, model.QueueWaiting)
    require.NoError(f.t, err)
    out := make([]string, len(list))
    for i, e := range list {
        out[i] = e.Code
        assert.Equal(f.t, i+1, e.Position, "dense position for %s", e.Code)
    }
    return out
}

func TestQueueJoin_PositionsCodesEstimates(t *testing.T) {
    f := newFixture(t, 2, 4, 6)
    a := f.join("A", 2)
    b := f.join("B", 2)
    c := f.join("C", 2)
    d := f.join("D", 2)

    assert.Equal(t, []string{"Q001", "Q002", "Q003", "Q004"}, []string{a.Code, b.Code, c.Code, d.Code})
    assert.Equal(t, 1, a.Position)
    assert.Equal(t, 4, d.Position)
    assert.Equal(t, 15, a.EstimatedWaitMinutes)
    assert.Equal(t, 30, d.EstimatedWaitMinutes)
    assert.Equal(t, model.QueueWaiting, d.Status)
}

func TestQueueJoin_Validation(t *testing.T) {
    f := newFixture(t, 2)
    _, err := f.queue().Join(f.ctx, JoinRequest{OutletID: f.outlet.ID, CustomerName: "", PartySize: 2})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.queue().Join(f.ctx, JoinRequest{OutletID: f.outlet.ID, CustomerName: "A", PartySize: 0})
    assert.ErrorIs(t, err, ErrValidation)
    _, err = f.queue().Join(f.ctx, JoinRequest{OutletID: 77, CustomerName: "A", PartySize: 2})
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestTurnoverEstimate_NonDecreasing(t *testing.T) {
    est := TurnoverEstimate(20)
    prev := 0
    for p := 1; p <= 30; p++ {
        got := est(p, 4)
        assert.GreaterOrEqual(t, got, prev)
        prev = got
    }
    assert.Equal(t, 20, est(1, 0), "no tables counts as one")
    assert.Equal(t, 0, est(0, 3))
}

func TestCallNext_FIFOAndDensePositions(t *testing.T) {
    f := newFixture(t, 2, 4)
    f.join("A", 2)
    f.join("B", 2)
    f.join("C", 2)

    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    require.False(t, res.Empty)
    assert.Equal(t, "Q001", res.Entry.Code)
    assert.Equal(t, model.QueueReady, res.Entry.Status)
    require.NotNil(t, res.Entry.ReadyExpiresAt)
    assert.Equal(t, f.now.Add(5*time.Minute), *res.Entry.ReadyExpiresAt)
    assert.Nil(t, res.Entry.AssignedTableID)
    assert.Equal(t, []string{"Q002", "Q003"}, f.waitingCodes())
    assert.Equal(t, []string{"Q001:"}, f.notifier.called)
}

func TestCallNext_PrioritizedFirst(t *testing.T) {
    f := newFixture(t, 2)
    f.join("A", 2)
    f.join("B", 2)
    c := f.join("C", 2)

    p, err := f.queue().Prioritize(f.ctx, c.ID)
    require.NoError(t, err)
    assert.True(t, p.IsHeld)

    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, "Q003", res.Entry.Code)
    assert.False(t, res.Entry.IsHeld)
    assert.Equal(t, []string{"Q001", "Q002"}, f.waitingCodes())

    res, err = f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, "Q001", res.Entry.Code)

    _, err = f.queue().Prioritize(f.ctx, res.Entry.ID)
    assert.ErrorIs(t, err, ErrInvalidState, "ready entries cannot be prioritized")
}

func TestCallNext_EmptyQueue(t *testing.T) {
    f := newFixture(t, 2)
    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.True(t, res.Empty)
    assert.Nil(t, res.Entry)
}

func TestCallNext_WithTable(t *testing.T) {
    f := newFixture(t, 2, 4)
    f.join("A", 4)
    f.join("B", 2)

    small := f.tables[0].ID
    _, err := f.queue().CallNext(f.ctx, f.outlet.ID, &small)
    assert.ErrorIs(t, err, ErrValidation, "two seats for a party of four")
    assert.Equal(t, []string{"Q001", "Q002"}, f.waitingCodes(), "failed call changes nothing")

    big := f.tables[1].ID
    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, &big)
    require.NoError(t, err)
    require.NotNil(t, res.Entry.AssignedTableID)
    assert.Equal(t, big, *res.Entry.AssignedTableID)
    assert.Equal(t, "T2", res.TableNumber)

    _, err = f.queue().CallNext(f.ctx, f.outlet.ID, &big)
    assert.ErrorIs(t, err, ErrNoCapacity, "table taken by the READY walk-in")
}

func TestCallNext_ReservedTableIsNotOffered(t *testing.T) {
    f := newFixture(t, 4)
    f.now = at(18, 0)
    f.book(at(19, 0), 4)
    f.join("A", 2)

    id := f.tables[0].ID
    _, err := f.queue().CallNext(f.ctx, f.outlet.ID, &id)
    assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestRecommendAndAssignTable(t *testing.T) {
    f := newFixture(t, 2, 4, 6)
    a := f.join("A", 4)
    b := f.join("B", 4)

    rec, err := f.queue().RecommendTables(f.ctx, a.ID)
    require.NoError(t, err)
    assert.Equal(t, []string{"T2"}, rec.TableNumbers())

    assigned, err := f.queue().AssignTable(f.ctx, a.ID, f.tables[1].ID)
    require.NoError(t, err)
    assert.Equal(t, model.QueueWaiting, assigned.Status, "assignment keeps the status")

    _, err = f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)

    rec, err = f.queue().RecommendTables(f.ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, []string{"T3"}, rec.TableNumbers(), "T2 belongs to the READY entry")

    again, err := f.queue().AssignTable(f.ctx, a.ID, f.tables[1].ID)
    require.NoError(t, err, "re-assigning an entry's own table")
    assert.Equal(t, model.QueueReady, again.Status)

    _, err = f.queue().AssignTable(f.ctx, b.ID, 999)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignTable_TableHeldByWaitingEntry(t *testing.T) {
    f := newFixture(t, 4)
    a := f.join("A", 4)
    b := f.join("B", 4)
    table := f.tables[0].ID

    _, err := f.queue().AssignTable(f.ctx, a.ID, table)
    require.NoError(t, err)
    _, err = f.queue().AssignTable(f.ctx, b.ID, table)
    assert.ErrorIs(t, err, ErrNoCapacity, "T1 already promised to A")

    rec, err := f.queue().RecommendTables(f.ctx, b.ID)
    require.NoError(t, err)
    assert.Empty(t, rec.TableNumbers())
}

func TestCallNext_NeverTwoReadyOnOneTable(t *testing.T) {
    f := newFixture(t, 4, 4)
    a := f.join("A", 4)
    b := f.join("B", 4)
    table := f.tables[1].ID

    _, err := f.queue().AssignTable(f.ctx, a.ID, table)
    require.NoError(t, err)
    first, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, "T2", first.TableNumber)

    _, err = f.queue().CallNext(f.ctx, f.outlet.ID, &table)
    assert.ErrorIs(t, err, ErrNoCapacity)

    ready, err := f.queue().List(f.ctx, f.outlet.ID, model.QueueReady)
    require.NoError(t, err)
    seen := map[uint64]string{}
    for _, e := range ready {
        if e.AssignedTableID == nil {
            continue
        }
        prev, dup := seen[*e.AssignedTableID]
        assert.False(t, dup, "%s and %s share a table", prev, e.Code)
        seen[*e.AssignedTableID] = e.Code
    }
    assert.Equal(t, []string{b.Code}, f.waitingCodes())
}

func TestCallNext_StaleAssignmentDropped(t *testing.T) {
    f := newFixture(t, 4)
    f.now = at(18, 0)
    a := f.join("A", 2)
    _, err := f.queue().AssignTable(f.ctx, a.ID, f.tables[0].ID)
    require.NoError(t, err)
    f.book(at(19, 0), 4)

    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, model.QueueReady, res.Entry.Status)
    assert.Nil(t, res.Entry.AssignedTableID, "reserved table is not kept")
    assert.Empty(t, res.TableNumber)
}

func TestMarkSeated_ExpiredWindowCancels(t *testing.T) {
    f := newFixture(t, 4)
    e := f.join("A", 2)
    _, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)

    f.now = f.now.Add(6 * time.Minute)
    _, err = f.queue().MarkSeated(f.ctx, e.ID)
    assert.ErrorIs(t, err, ErrInvalidState)

    got, err := f.queue().Get(f.ctx, e.ID)
    require.NoError(t, err)
    assert.Equal(t, model.QueueCancelled, got.Status)
    assert.Equal(t, "confirmation window expired", got.CancelReason)
}

func TestSeatAndComplete(t *testing.T) {
    f := newFixture(t, 4)
    e := f.join("A", 2)

    _, err := f.queue().MarkSeated(f.ctx, e.ID)
    assert.ErrorIs(t, err, ErrInvalidState, "waiting entries are not seated directly")

    id := f.tables[0].ID
    _, err = f.queue().CallNext(f.ctx, f.outlet.ID, &id)
    require.NoError(t, err)
    f.now = f.now.Add(4 * time.Minute)
    seated, err := f.queue().MarkSeated(f.ctx, e.ID)
    require.NoError(t, err)
    assert.Equal(t, model.QueueSeated, seated.Status)
    require.NotNil(t, seated.SeatedAt)

    _, err = f.queue().Cancel(f.ctx, e.ID, "")
    assert.ErrorIs(t, err, ErrInvalidState)

    done, err := f.queue().MarkCompleted(f.ctx, e.ID)
    require.NoError(t, err)
    assert.Equal(t, model.QueueCompleted, done.Status)

    rec, err := f.queue().RecommendTables(f.ctx, f.join("B", 2).ID)
    require.NoError(t, err)
    assert.Equal(t, []uint64{id}, rec.TableIDs(), "completed walk-in frees its table")
}

func TestMarkNoShow_ReadyOnly(t *testing.T) {
    f := newFixture(t, 4)
    e := f.join("A", 2)
    _, err := f.queue().MarkNoShow(f.ctx, e.ID)
    assert.ErrorIs(t, err, ErrInvalidState)

    _, err = f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    got, err := f.queue().MarkNoShow(f.ctx, e.ID)
    require.NoError(t, err)
    assert.Equal(t, model.QueueNoShow, got.Status)
}

func TestExpireReady_ExactlyOnce(t *testing.T) {
    f := newFixture(t, 4)
    f.join("A", 2)
    f.join("B", 2)
    f.join("C", 2)
    for i := 0; i < 2; i++ {
        _, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
        require.NoError(t, err)
    }

    n, err := f.queue().ExpireReady(f.ctx, f.now.Add(5*time.Minute))
    require.NoError(t, err)
    assert.Zero(t, n, "deadline itself is still inside the window")

    later := f.now.Add(6 * time.Minute)
    var wg sync.WaitGroup
    var mu sync.Mutex
    total := 0
    for i := 0; i < 4; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            n, err := f.queue().ExpireReady(f.ctx, later)
            if assert.NoError(t, err) {
                mu.Lock()
                total += n
                mu.Unlock()
            }
        }()
    }
    wg.Wait()
    assert.Equal(t, 2, total)

    sum, err := f.queue().Summary(f.ctx, f.outlet.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, sum.Counts[model.QueueCancelled])
    assert.Equal(t, 1, sum.Counts[model.QueueWaiting])
}

func TestQueueCancel_CompactsPositions(t *testing.T) {
    f := newFixture(t, 4)
    f.join("A", 2)
    b := f.join("B", 2)
    f.join("C", 2)

    got, err := f.queue().Cancel(f.ctx, b.ID, "left")
    require.NoError(t, err)
    assert.Equal(t, model.QueueCancelled, got.Status)
    assert.Equal(t, "left", got.CancelReason)
    assert.Equal(t, []string{"Q001", "Q003"}, f.waitingCodes())

    _, err = f.queue().Cancel(f.ctx, b.ID, "")
    assert.ErrorIs(t, err, ErrInvalidState)
}

func TestQueueReorder(t *testing.T) {
    f := newFixture(t, 4)
    a := f.join("A", 2)
    b := f.join("B", 2)
    c := f.join("C", 2)

    out, err := f.queue().Reorder(f.ctx, f.outlet.ID, []uint64{c.ID, a.ID})
    require.NoError(t, err)
    require.Len(t, out, 3)
    assert.Equal(t, []string{"Q003", "Q001", "Q002"}, f.waitingCodes())
    assert.Equal(t, b.ID, out[2].ID)

    _, err = f.queue().Reorder(f.ctx, f.outlet.ID, []uint64{a.ID, a.ID})
    assert.ErrorIs(t, err, ErrValidation)

    res, err := f.queue().CallNext(f.ctx, f.outlet.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, c.ID, res.Entry.ID)
    _, err = f.queue().Reorder(f.ctx, f.outlet.ID, []uint64{c.ID})
    assert.ErrorIs(t, err, ErrValidation, "READY entries cannot be reordered")
}

func TestUpdateWaitTimesAndSummary(t *testing.T) {
    f := newFixture(t, 4)
    f.join("A", 2)
    f.join("B", 2)
    f.join("C", 2)

    svc := f.queue().WithEstimator(func(position, _ int) int { return position * 10 })
    est, err := svc.UpdateWaitTimes(f.ctx, f.outlet.ID)
    require.NoError(t, err)
    assert.Len(t, est, 3)

    sum, err := svc.Summary(f.ctx, f.outlet.ID)
    require.NoError(t, err)
    assert.Equal(t, 3, sum.Counts[model.QueueWaiting])
    assert.Equal(t, 0, sum.Counts[model.QueueSeated])
    assert.InDelta(t, 20.0, sum.AverageWaitMinutes, 0.001)
    assert.Equal(t, []string{"Q001", "Q002", "Q003"}, f.waitingCodes(), "positions untouched")
}
