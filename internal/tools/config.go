package tools

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServeConfig holds the tool server settings read from the environment.
type ServeConfig struct {
	Transport   string        `env:"STORIES_MCP_TRANSPORT"    envDefault:"stdio"`
	HTTPAddr    string        `env:"STORIES_MCP_HTTP_ADDR"    envDefault:"localhost:8765"`
	CallTimeout time.Duration `env:"STORIES_MCP_CALL_TIMEOUT" envDefault:"30s"`
}

// LoadServeConfig parses ServeConfig from environ, or from the process
// environment when environ is nil.
func LoadServeConfig(environ map[string]string) (ServeConfig, error) {
	var cfg ServeConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return ServeConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the transport and timeout.
func (c ServeConfig) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", c.Transport)
	}
	if c.Transport == TransportHTTP && c.HTTPAddr == "" {
		return fmt.Errorf("http transport requires an address")
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative")
	}
	return nil
}
