package seed

import (
	"testing"
	"time"

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

func TestWarrior(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		check func(t *testing.T, b types.Backend)
	}{
		{
			name: "seeds profile medications hydration and weather",
			check: func(t *testing.T, b types.Backend) {
				wrote, err := Warrior(t.Context(), b, "warrior-1", "Ama", now)
				require.NoError(t, err)
				assert.True(t, wrote)

				profiles, err := b.Select(t.Context(), types.TableProfiles, "warrior-1")
				require.NoError(t, err)
				require.Len(t, profiles, 1)
				assert.Equal(t, "Ama", profiles[0]["full_name"])

				meds, err := b.Select(t.Context(), types.TableMedications, "warrior-1")
				require.NoError(t, err)
				assert.Len(t, meds, len(demoMedications))
				for _, m := range meds {
					assert.Equal(t, true, m["active"])
				}

				today, err := b.SelectDay(t.Context(), types.TableHydrationLogs, "warrior-1", now)
				require.NoError(t, err)
				assert.Len(t, today, len(demoHydration))

				weather, err := b.Select(t.Context(), types.TableWeatherLogs, types.NoOwner)
				require.NoError(t, err)
				assert.Len(t, weather, 1)
			},
		},
		{
			name: "second run is a no-op",
			check: func(t *testing.T, b types.Backend) {
				_, err := Warrior(t.Context(), b, "warrior-1", "Ama", now)
				require.NoError(t, err)

				wrote, err := Warrior(t.Context(), b, "warrior-1", "Ama", now)
				require.NoError(t, err)
				assert.False(t, wrote)

				meds, err := b.Select(t.Context(), types.TableMedications, "warrior-1")
				require.NoError(t, err)
				assert.Len(t, meds, len(demoMedications))
			},
		},
		{
			name: "empty user id is rejected",
			check: func(t *testing.T, b types.Backend) {
				_, err := Warrior(t.Context(), b, "", "Ama", now)
				assert.ErrorIs(t, err, types.ErrInvalidID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, setupBackend(t))
		})
	}
}
