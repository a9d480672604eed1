package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver returns a Resolver over env with /work as the working
// directory and /home/u as home.
func fakeResolver(goos string, env map[string]string) *Resolver {
	return &Resolver{
		Getenv:        func(k string) string { return env[k] },
		Getwd:         func() (string, error) { return "/work", nil },
		HomeDir:       func() (string, error) { return "/home/u", nil },
		UserConfigDir: func() (string, error) { return "/home/u/Library/Application Support", nil },
		GOOS:          goos,
	}
}

func TestDefaultDirs(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		env        map[string]string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux with XDG",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			wantConfig: "/xdg/config/stories",
			wantData:   "/xdg/data/stories",
		},
		{
			name:       "linux without XDG",
			goos:       "linux",
			wantConfig: "/home/u/.config/stories",
			wantData:   "/home/u/.local/share/stories",
		},
		{
			name:       "darwin",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored"},
			wantConfig: "/home/u/Library/Application Support/stories",
			wantData:   "/home/u/Library/Application Support/stories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fakeResolver(tt.goos, tt.env)

			config, err := r.DefaultConfigDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, config)

			data, err := r.DefaultDataDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestDefaultConfigDir_HomeError(t *testing.T) {
	r := fakeResolver("linux", nil)
	r.HomeDir = func() (string, error) { return "", errors.New("no home") }

	_, err := r.DefaultConfigDir()
	assert.EqualError(t, err, "no home")
}

func TestConfigDir(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{name: "flag wins over env", flag: "/explicit/config", env: "/env/config", want: "/explicit/config"},
		{name: "env when flag empty", env: "/env/config", want: "/env/config"},
		{name: "relative flag is made absolute", flag: "cfg", want: "/work/cfg"},
		{name: "platform default", want: "/home/u/.config/stories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fakeResolver("linux", map[string]string{EnvConfigDir: tt.env})
			got, err := r.ConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataDir(t *testing.T) {
	tests := []struct {
		name        string
		flag        string
		configValue string
		env         string
		want        string
	}{
		{name: "flag wins over all", flag: "/flag/data", configValue: "/config/data", env: "/env/data", want: "/flag/data"},
		{name: "config.yaml wins over env", configValue: "/config/data", env: "/env/data", want: "/config/data"},
		{name: "env when flag and config empty", env: "/env/data", want: "/env/data"},
		{name: "relative config value", configValue: "db", want: "/work/db"},
		{name: "CWD default", want: filepath.Join("/work", DefaultDataDirName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fakeResolver("linux", map[string]string{EnvDataDir: tt.env})
			got, err := r.DataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir_ProcessEnvironment(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, err := ResolveDataDir("", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultDataDirName), got)

	t.Setenv(EnvConfigDir, "relative/env")
	config, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(config), "expected absolute path, got %s", config)
}
