package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServeConfig_Defaults(t *testing.T) {
	cfg, err := LoadServeConfig(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "localhost:8765", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServeConfig_Overrides(t *testing.T) {
	cfg, err := LoadServeConfig(map[string]string{
		"STORIES_MCP_TRANSPORT":    "http",
		"STORIES_MCP_HTTP_ADDR":    ":9000",
		"STORIES_MCP_CALL_TIMEOUT": "2s",
	})
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.CallTimeout)
}

func TestLoadServeConfig_BadDuration(t *testing.T) {
	_, err := LoadServeConfig(map[string]string{"STORIES_MCP_CALL_TIMEOUT": "soon"})
	assert.Error(t, err)
}

func TestServeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServeConfig
		wantErr bool
	}{
		{name: "stdio", cfg: ServeConfig{Transport: TransportStdio}},
		{name: "http", cfg: ServeConfig{Transport: TransportHTTP, HTTPAddr: ":8765"}},
		{name: "http without address", cfg: ServeConfig{Transport: TransportHTTP}, wantErr: true},
		{name: "unknown transport", cfg: ServeConfig{Transport: "sse"}, wantErr: true},
		{name: "negative timeout", cfg: ServeConfig{Transport: TransportStdio, CallTimeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
