package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/cella", cfg)
	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-data/cella", data)

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg, err = DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "cella"), cfg)
	data, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "cella"), data)
}

func TestDefaultDirs_HomeUnavailable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Cleanup(func() { platformDir.homeDir = orig })
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	_, err := DefaultConfigDir()
	assert.Error(t, err)
	_, err = DefaultDataDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		env     string
		wantSub string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default when both empty", "", "", "cella"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd := t.TempDir()
	t.Chdir(cwd)
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config.yaml wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env wins when flag and config empty", "", "", "/env/data", "/env/data"},
		{"relative flag becomes absolute", "rel/data", "", "", filepath.Join(cwd, "rel/data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ProjectLocalDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	cwd := t.TempDir()
	t.Chdir(cwd)
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	cfg, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/cella", cfg)
	data, err := ResolveDataDir("", "")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-data/cella", data)

	require.NoError(t, os.Mkdir(filepath.Join(cwd, DefaultConfigDirName), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(cwd, DefaultDataDirName), 0o755))

	cfg, err = ResolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultConfigDirName), cfg)
	data, err = ResolveDataDir("", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultDataDirName), data)
}
