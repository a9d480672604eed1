// Package paths resolves the configuration and data directories of the
// stories CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "stories"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".stories"
	DefaultDataDirName   = ".stories-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "STORIES_CONFIG_DIR"
	EnvDataDir   = "STORIES_DATA_DIR"
)

// Resolver resolves directories against an environment. The zero value is
// not usable; call NewResolver.
type Resolver struct {
	Getenv        func(string) string
	Getwd         func() (string, error)
	HomeDir       func() (string, error)
	UserConfigDir func() (string, error)
	GOOS          string
}

// NewResolver returns a Resolver over the process environment.
func NewResolver() *Resolver {
	return &Resolver{
		Getenv:        os.Getenv,
		Getwd:         os.Getwd,
		HomeDir:       os.UserHomeDir,
		UserConfigDir: os.UserConfigDir,
		GOOS:          runtime.GOOS,
	}
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/stories (fallback ~/.config/stories)
// macOS:   ~/Library/Application Support/stories
// Windows: %APPDATA%/stories
func (r *Resolver) DefaultConfigDir() (string, error) {
	return r.platformDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/stories (fallback ~/.local/share/stories)
// macOS and Windows share the configuration directory.
func (r *Resolver) DefaultDataDir() (string, error) {
	return r.platformDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func (r *Resolver) platformDir(xdgVar, homeRel string) (string, error) {
	if r.GOOS != "linux" {
		dir, err := r.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := r.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := r.HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ConfigDir resolves the configuration directory:
// flag > STORIES_CONFIG_DIR > DefaultConfigDir.
func (r *Resolver) ConfigDir(flag string) (string, error) {
	if flag != "" {
		return r.abs(flag)
	}
	if env := r.Getenv(EnvConfigDir); env != "" {
		return r.abs(env)
	}
	return r.DefaultConfigDir()
}

// DataDir resolves the data directory:
// flag > config.yaml data_dir > STORIES_DATA_DIR > $(CWD)/.stories-db.
func (r *Resolver) DataDir(flag, configValue string) (string, error) {
	for _, candidate := range []string{flag, configValue, r.Getenv(EnvDataDir)} {
		if candidate != "" {
			return r.abs(candidate)
		}
	}
	cwd, err := r.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

func (r *Resolver) abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	cwd, err := r.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, path), nil
}

// ResolveConfigDir resolves the configuration directory against the process
// environment.
func ResolveConfigDir(flag string) (string, error) {
	return NewResolver().ConfigDir(flag)
}

// ResolveDataDir resolves the data directory against the process
// environment.
func ResolveDataDir(flag, configValue string) (string, error) {
	return NewResolver().DataDir(flag, configValue)
}
