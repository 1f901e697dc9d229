package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cella-health/cella/internal/snapshot"
	"github.com/cella-health/cella/pkg/cella"
	"github.com/cella-health/cella/pkg/types"
)

// testEnv holds isolated config and data directories for one test.
type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv("CELLA_BACKEND_URL", "http://127.0.0.1:1")
	t.Setenv("CELLA_API_KEY", "test-key")
	return testEnv{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes the CLI with the env's directories and returns stdout.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "cella %s", strings.Join(args, " "))
	return out
}

func decodeRows(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "version")
	assert.Contains(t, out, "cella v"+cella.Version)
	assert.Contains(t, out, modulePath)

	out = env.mustRun(t, "--json", "version")
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, cella.Version, v["version"])
}

func TestTables(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "tables")
	assert.Contains(t, out, "hydration_logs")
	assert.Contains(t, out, "view warrior:")

	out = env.mustRun(t, "--json", "tables")
	var listing struct {
		Tables []tableInfo                  `json:"tables"`
		Views  map[string][]types.TableName `json:"views"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Len(t, listing.Tables, len(types.StandardTableNames))
	assert.Contains(t, listing.Views, "crisis")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "Cella initialized")
	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.DirExists(t, env.dataDir)

	// A second init keeps the existing data.
	env.mustRun(t, "init")
}

func TestInit_DemoThenList(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "init", "--demo", "--user", "warrior-1")
	assert.Contains(t, out, "Seeded demo warrior warrior-1")

	rows := decodeRows(t, env.mustRun(t, "list", "medications", "--owner", "warrior-1"))
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "warrior-1", row["user_id"])
	}

	rows = decodeRows(t, env.mustRun(t, "list", "medications", "--owner", "someone-else"))
	assert.Empty(t, rows)

	out = env.mustRun(t, "init", "--demo", "--user", "warrior-1")
	assert.NotContains(t, out, "Seeded")
}

func TestInsertThenList(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	out := env.mustRun(t, "insert", "hydration_logs",
		`{"user_id":"u1","amount_ml":500,"logged_at":"2026-10-15T09:00:00Z"}`)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	id, _ := stored["id"].(string)
	require.NotEmpty(t, id)

	rows := decodeRows(t, env.mustRun(t, "list", "hydration_logs", "--owner", "u1", "--day", "2026-10-15"))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 500, rows[0]["amount_ml"])

	rows = decodeRows(t, env.mustRun(t, "list", "hydration_logs", "--owner", "u1", "--day", "2026-10-16"))
	assert.Empty(t, rows)

	out = env.mustRun(t, "update", "hydration_logs", id, `{"amount_ml":750}`)
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.EqualValues(t, 750, stored["amount_ml"])
}

func TestDataCommandErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown table", []string{"list", "auth_users"}},
		{"bad day", []string{"list", "meals", "--day", "15/10/2026"}},
		{"no day column", []string{"list", "medications", "--day", "2026-10-15"}},
		{"bad json", []string{"insert", "meals", "{"}},
		{"unknown column", []string{"insert", "meals", `{"flavour":"spicy"}`}},
		{"missing row", []string{"update", "meals", "missing", `{"name":"x"}`}},
		{"bundle without set", []string{"bundle", "u1"}},
		{"bundle with both", []string{"bundle", "u1", "--view", "warrior", "--tables", "meals"}},
		{"unknown view", []string{"bundle", "u1", "--view", "nope"}},
		{"bad message type", []string{"ask", "u1", "hello", "--type", "shout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestDataCommandsRequireCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")
	t.Setenv("CELLA_API_KEY", "")

	_, err := env.run(t, "list", "meals")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend credentials")
}

func TestBundle(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init", "--demo", "--user", "warrior-1")

	out := env.mustRun(t, "bundle", "warrior-1", "--tables", "medications,medication_logs")
	var bundle struct {
		Data      map[string][]map[string]any `json:"data"`
		IsLoading bool                        `json:"isLoading"`
		IsError   bool                        `json:"isError"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Len(t, bundle.Data["medications"], 2)
	assert.Empty(t, bundle.Data["medication_logs"])
	assert.False(t, bundle.IsLoading)
	assert.False(t, bundle.IsError)

	out = env.mustRun(t, "bundle", "warrior-1", "--view", "warrior")
	require.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Len(t, bundle.Data["hydration_logs"], 3)
	assert.Len(t, bundle.Data["profiles"], 1)
}

func TestAsk_FallsBackWhenBackendUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	out := env.mustRun(t, "--json", "ask", "u1", "is", "it", "hot?")
	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, true, reply["fallback"])
	assert.NotEmpty(t, reply["response"])

	rows := decodeRows(t, env.mustRun(t, "list", "chat_logs", "--owner", "u1"))
	require.Len(t, rows, 1)
	assert.Equal(t, "is it hot?", rows[0]["question"])
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init", "--demo", "--user", "warrior-1")

	dir := t.TempDir()
	out := env.mustRun(t, "export", dir, "--owner", "warrior-1", "--tables", "medications,profiles")
	assert.Contains(t, out, "exported 2 medications rows")
	assert.FileExists(t, filepath.Join(dir, snapshot.FileName(types.TableMedications)))

	// Move the medications into a fresh data dir.
	require.NoError(t, os.Remove(filepath.Join(dir, snapshot.FileName(types.TableProfiles))))
	other := newTestEnv(t)
	other.mustRun(t, "init")
	out = other.mustRun(t, "import", dir)
	assert.Contains(t, out, "imported 2 medications rows")

	rows := decodeRows(t, other.mustRun(t, "list", "medications", "--owner", "warrior-1"))
	assert.Len(t, rows, 2)
}

func TestFlow(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "flow", "onboarding")
	assert.Contains(t, out, "onboarding starts at email (EmailStep)")
	assert.Contains(t, out, "verification: [back resend verify]")

	out = env.mustRun(t, "flow", "onboarding", "email", "submit_email")
	assert.Equal(t, "verification (VerificationStep)\n", out)

	_, err := env.run(t, "flow", "onboarding", "email", "verify")
	assert.Error(t, err)
	_, err = env.run(t, "flow", "nope")
	assert.Error(t, err)
	_, err = env.run(t, "flow", "onboarding", "email")
	assert.Error(t, err)
}
