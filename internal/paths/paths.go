// Package paths resolves the configuration and data directories used by the
// cella CLI and server.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".cella"
	DefaultDataDirName   = ".cella-db"
)

// appName names the per-user platform directories.
const appName = "cella"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CELLA_CONFIG_DIR"
	EnvDataDir   = "CELLA_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/cella (fallback ~/.config/cella)
// macOS:   ~/Library/Application Support/cella
// Windows: %APPDATA%/cella
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/cella (fallback ~/.local/share/cella)
// macOS:   ~/Library/Application Support/cella
// Windows: %APPDATA%/cella
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appName), nil
	default:
		// macOS and Windows: same as config dir.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CELLA_CONFIG_DIR env > ./.cella if it exists > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	if local, ok := projectLocal(DefaultConfigDirName); ok {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > CELLA_DATA_DIR env > ./.cella-db if it exists >
// DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	if local, ok := projectLocal(DefaultDataDirName); ok {
		return local, nil
	}
	return DefaultDataDir()
}

// projectLocal returns the absolute path of name in the working directory
// when it exists there as a directory.
func projectLocal(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return abs, true
	}
	return "", false
}
