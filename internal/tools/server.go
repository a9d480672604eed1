// Package tools exposes the story and criteria services as MCP tools over
// stdio or streamable HTTP.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/stories/internal/logging"
	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

const (
	serverName      = "stories"
	shutdownTimeout = 5 * time.Second
)

// Options configures NewServer.
type Options struct {
	Version     string
	CallTimeout time.Duration // zero means no per-call deadline
}

// runtime carries what every tool handler needs.
type runtime struct {
	svc     *service.Services
	logger  *slog.Logger
	timeout time.Duration
}

// NewServer builds an MCP server with every story and criteria tool
// registered.
func NewServer(svc *service.Services, logger *slog.Logger, opts Options) *mcp.Server {
	if logger == nil {
		logger = logging.Discard()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)

	rt := &runtime{svc: svc, logger: logger.With("component", "tools"), timeout: opts.CallTimeout}
	registerStoryTools(server, rt)
	registerCriteriaTools(server, rt)
	return server
}

// addTool registers fn under name with request tracking around it.
func addTool[In, Out any](server *mcp.Server, rt *runtime, name, description string, fn func(context.Context, In) (Out, error)) {
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: description}, handle(rt, name, fn))
}

// handle wraps fn with a request id, the call timeout and a log line per
// call. Service failures become tool errors reading "<code>: <message>".
func handle[In, Out any](rt *runtime, name string, fn func(context.Context, In) (Out, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input In) (*mcp.CallToolResult, Out, error) {
		ctx, requestID := logging.WithRequestID(ctx)
		if rt.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, rt.timeout)
			defer cancel()
		}

		start := time.Now()
		out, err := fn(ctx, input)
		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("tool", name),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			code := types.ErrorCode(err)
			attrs = append(attrs, slog.String("code", code), slog.String("error", err.Error()))
			level := slog.LevelError
			if types.IsUserError(err) {
				level = slog.LevelWarn
			}
			rt.logger.LogAttrs(ctx, level, "tool call failed", attrs...)
			var zero Out
			return nil, zero, fmt.Errorf("%s: %s", code, err.Error())
		}
		rt.logger.LogAttrs(ctx, slog.LevelInfo, "tool call", attrs...)
		return nil, out, nil
	}
}

// Serve runs server on the configured transport until ctx is cancelled or
// the transport fails.
func Serve(ctx context.Context, server *mcp.Server, cfg ServeConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	switch cfg.Transport {
	case TransportHTTP:
		return serveHTTP(ctx, server, cfg.HTTPAddr, logger)
	default:
		logger.Info("serving tools", "transport", TransportStdio)
		return server.Run(ctx, &mcp.StdioTransport{})
	}
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving tools", "transport", TransportHTTP, "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http transport: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
