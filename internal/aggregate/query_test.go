package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/internal/invalidate"
	"github.com/cella-health/cella/internal/sqlite"
	"github.com/cella-health/cella/pkg/types"
)

// fakeReader serves fixed rows per table and can fail or block reads.
type fakeReader struct {
	mu     sync.Mutex
	rows   map[types.TableName][]types.Row
	fail   map[types.TableName]error
	gate   map[types.TableName]chan struct{}
	calls  atomic.Int64
	owners []types.OwnerFilter
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		rows: make(map[types.TableName][]types.Row),
		fail: make(map[types.TableName]error),
		gate: make(map[types.TableName]chan struct{}),
	}
}

func (f *fakeReader) Select(ctx context.Context, table types.TableName, owner types.OwnerFilter) ([]types.Row, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.owners = append(f.owners, owner)
	gate := f.gate[table]
	err := f.fail[table]
	rows := types.CloneRows(f.rows[table])
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (f *fakeReader) SelectDay(ctx context.Context, table types.TableName, owner types.OwnerFilter, _ time.Time) ([]types.Row, error) {
	return f.Select(ctx, table, owner)
}

func TestRun_Completeness(t *testing.T) {
	r := newFakeReader()
	r.rows[types.TableMeals] = []types.Row{{"id": "m1"}}
	q := New(r, cache.New())

	tables := []types.TableName{types.TableMeals, types.TableMoodLogs, types.TableMeals, types.TableProfiles}
	b, err := q.Run(t.Context(), "u1", tables)
	require.NoError(t, err)

	assert.Equal(t, []types.TableName{types.TableMeals, types.TableMoodLogs, types.TableProfiles}, b.Tables())
	assert.Len(t, b.Get(types.TableMeals), 1)
	assert.NotNil(t, b.Rows[types.TableMoodLogs])
	assert.Empty(t, b.Rows[types.TableMoodLogs])
	assert.False(t, b.IsLoading)
	assert.False(t, b.IsError)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	r := newFakeReader()
	r.rows[types.TableMedications] = []types.Row{{"id": "a"}, {"id": "b"}}
	r.rows[types.TableHydrationLogs] = []types.Row{{"id": "h"}}
	boom := errors.New("relation does not exist")
	r.fail[types.TableMeals] = boom
	q := New(r, cache.New())

	b, err := q.Run(t.Context(), "u1", Views["warrior"])
	require.NoError(t, err)

	assert.True(t, b.IsError)
	assert.ErrorIs(t, b.Err(types.TableMeals), boom)
	assert.Empty(t, b.Rows[types.TableMeals])
	assert.NotNil(t, b.Rows[types.TableMeals])
	assert.Len(t, b.Get(types.TableMedications), 2)
	assert.Len(t, b.Get(types.TableHydrationLogs), 1)
	assert.NoError(t, b.Err(types.TableMedications))
}

func TestRun_InvalidTableList(t *testing.T) {
	q := New(newFakeReader(), cache.New())
	_, err := q.Run(t.Context(), "u1", []types.TableName{types.TableMeals, "auth_users"})
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestRun_EmptyTableList(t *testing.T) {
	q := New(newFakeReader(), cache.New())
	b, err := q.Run(t.Context(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, b.Rows)
	assert.False(t, b.IsLoading)
}

func TestRun_GlobalTablesShareOneEntry(t *testing.T) {
	r := newFakeReader()
	r.rows[types.TableWeatherLogs] = []types.Row{{"id": "w"}}
	q := New(r, cache.New())

	for _, user := range []types.OwnerFilter{"u1", "u2", "u3"} {
		b, err := q.Run(t.Context(), user, []types.TableName{types.TableWeatherLogs})
		require.NoError(t, err)
		assert.Len(t, b.Get(types.TableWeatherLogs), 1)
	}
	assert.EqualValues(t, 1, r.calls.Load())
	assert.Equal(t, []types.OwnerFilter{types.NoOwner}, r.owners)
}

func TestRun_ConcurrentQueriesShareFetches(t *testing.T) {
	r := newFakeReader()
	gate := make(chan struct{})
	r.gate[types.TableMedications] = gate
	r.rows[types.TableMedications] = []types.Row{{"id": "a"}}
	q := New(r, cache.New())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := q.Run(context.Background(), "u1", []types.TableName{types.TableMedications})
			assert.NoError(t, err)
			assert.Len(t, b.Get(types.TableMedications), 1)
		}()
	}
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
	close(gate)
	wg.Wait()
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestStart_ReportsLoadingUntilReadsSettle(t *testing.T) {
	r := newFakeReader()
	gate := make(chan struct{})
	r.gate[types.TableMoodLogs] = gate
	r.rows[types.TableMeals] = []types.Row{{"id": "m1"}}
	q := New(r, cache.New())

	p, err := q.Start(t.Context(), "u1", []types.TableName{types.TableMeals, types.TableMoodLogs})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(p.Snapshot().Get(types.TableMeals)) == 1
	}, 2*time.Second, time.Millisecond)
	snap := p.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Empty(t, snap.Get(types.TableMoodLogs))

	close(gate)
	b, err := p.Wait(t.Context())
	require.NoError(t, err)
	assert.False(t, b.IsLoading)
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed after Wait returns")
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	r := newFakeReader()
	gate := make(chan struct{})
	defer close(gate)
	r.gate[types.TableMeals] = gate
	q := New(r, cache.New())

	p, err := q.Start(context.Background(), "u1", []types.TableName{types.TableMeals})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	b, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, b.IsLoading)
}

func TestReadDay_RequiresDayColumn(t *testing.T) {
	q := New(newFakeReader(), cache.New())
	_, err := q.ReadDay(t.Context(), types.TableMedications, "u1", time.Now())
	assert.ErrorIs(t, err, types.ErrNoDayColumn)
}

func TestMount_UnknownTable(t *testing.T) {
	q := New(newFakeReader(), cache.New())
	_, _, err := q.Mount("auth_users", "u1")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestMount_RefreshesAfterInvalidation(t *testing.T) {
	r := newFakeReader()
	r.rows[types.TableMeals] = []types.Row{{"id": "m1", "user_id": "u1"}}
	q := New(r, cache.New())

	rows, err := q.Read(t.Context(), types.TableMeals, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ch, unmount, err := q.Mount(types.TableMeals, "u1")
	require.NoError(t, err)

	r.mu.Lock()
	r.rows[types.TableMeals] = append(r.rows[types.TableMeals], types.Row{"id": "m2", "user_id": "u1"})
	r.mu.Unlock()

	inv := invalidate.New(q.Cache(), invalidate.DefaultGraph(), nil)
	assert.Equal(t, 1, inv.Invalidate(types.TableMeals, "u1"))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("mounted consumer was not notified")
	}
	key, err := Key(types.TableMeals, "u1")
	require.NoError(t, err)
	cached, ok := q.Cache().Peek(key)
	require.True(t, ok)
	assert.Len(t, cached, 2)

	unmount()
	_, open := <-ch
	assert.False(t, open)
}

func TestScenario_MedicationsWithoutLogs(t *testing.T) {
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	ctx := t.Context()
	for _, name := range []string{"Hydroxyurea", "Folic acid"} {
		_, err := b.Insert(ctx, types.TableMedications, types.Row{"user_id": "U", "name": name, "active": true})
		require.NoError(t, err)
	}

	q := New(b, cache.New())
	bundle, err := q.Run(ctx, "U", []types.TableName{types.TableMedications, types.TableMedicationLogs})
	require.NoError(t, err)

	assert.Len(t, bundle.Get(types.TableMedications), 2)
	assert.NotNil(t, bundle.Rows[types.TableMedicationLogs])
	assert.Empty(t, bundle.Rows[types.TableMedicationLogs])
	assert.False(t, bundle.IsLoading)
	assert.False(t, bundle.IsError)
}

func TestView(t *testing.T) {
	tables, err := View("schedule")
	require.NoError(t, err)
	assert.Equal(t, []types.TableName{types.TableAppointments, types.TableMedications}, tables)

	tables[0] = types.TableMeals
	assert.Equal(t, types.TableAppointments, Views["schedule"][0])

	_, err = View("nope")
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.Equal(t, []string{"circle", "crisis", "schedule", "warrior"}, ViewNames())
}
