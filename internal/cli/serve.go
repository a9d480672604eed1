package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/internal/tools"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		transport   string
		httpAddr    string
		callTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the story tools over MCP",
		Long: "Serve exposes every story and criteria operation as an MCP tool, over\n" +
			"stdio (default) or streamable HTTP. Settings come from STORIES_MCP_TRANSPORT,\n" +
			"STORIES_MCP_HTTP_ADDR and STORIES_MCP_CALL_TIMEOUT; flags override them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tools.LoadServeConfig(nil)
			if err != nil {
				return sysError(err)
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("call-timeout") {
				cfg.CallTimeout = callTimeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.withServices(cmd, func(_ context.Context, svc *service.Services) error {
				server := tools.NewServer(svc, a.logger, tools.Options{Version: Version, CallTimeout: cfg.CallTimeout})
				if err := tools.Serve(ctx, server, cfg, a.logger); err != nil && ctx.Err() == nil {
					return sysError(err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&transport, "transport", tools.TransportStdio, "transport: stdio or http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "listen address for the http transport")
	cmd.Flags().DurationVar(&callTimeout, "call-timeout", 0, "per-call deadline (0 disables)")
	return cmd
}
