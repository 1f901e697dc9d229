package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cella-health/cella/internal/sqlite"
	"github.com/cella-health/cella/pkg/types"
)

func setupBackend(t *testing.T) types.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := t.Context()
	src := setupBackend(t)

	_, err := src.Insert(ctx, types.TableMedications, types.Row{
		"user_id": "u1", "name": "Hydroxyurea", "times": []any{"08:00"}, "active": true,
	})
	require.NoError(t, err)
	_, err = src.Insert(ctx, types.TableHydrationLogs, types.Row{"user_id": "u1", "amount_ml": 500})
	require.NoError(t, err)
	_, err = src.Insert(ctx, types.TableHydrationLogs, types.Row{"user_id": "u2", "amount_ml": 250})
	require.NoError(t, err)

	dir := t.TempDir()
	tables := []types.TableName{types.TableMedications, types.TableHydrationLogs}
	exported, err := Export(ctx, src, dir, "u1", tables, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, exported.Rows[types.TableMedications])
	assert.Equal(t, 1, exported.Rows[types.TableHydrationLogs], "only u1's rows are exported")

	dst := setupBackend(t)
	imported, err := Import(ctx, dst, dir, tables, nil)
	require.NoError(t, err)
	assert.Equal(t, exported.Rows, imported.Rows)

	meds, err := dst.Select(ctx, types.TableMedications, "u1")
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, []any{"08:00"}, meds[0]["times"])
	assert.Equal(t, true, meds[0]["active"])
}

func TestImport_SkipsMalformedLinesAndMissingFiles(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		`{"id":"m1","user_id":"u1","mood":"tired"}`,
		`{not json`,
		``,
		`["array","is","valid","json","but","not","a","row"]`,
		`{"id":"m2","user_id":"u1","mood":"okay"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName(types.TableMoodLogs)), []byte(content), 0o644))

	dst := setupBackend(t)
	res, err := Import(t.Context(), dst, dir, []types.TableName{types.TableMoodLogs, types.TableMeals}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows[types.TableMoodLogs])
	assert.Equal(t, 2, res.Skipped[types.TableMoodLogs])
	assert.Zero(t, res.Rows[types.TableMeals])
}

func TestWriteJSONL_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, writeJSONL(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}
