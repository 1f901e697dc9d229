package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cella-health/cella/pkg/types"
)

func TestNew(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, types.ErrBackendEmpty)

	_, err = New("mongo")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	b, err := New(types.BackendPostgres)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestOpen_SQLite(t *testing.T) {
	b, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { b.Detach() })

	rows, err := b.Select(t.Context(), types.TableWeatherLogs, types.NoOwner)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
