// Package cli implements the stories command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/internal/logging"
	"github.com/mesh-intelligence/stories/internal/paths"
	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/sqlite"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds the global flag values and the state resolved before a
// subcommand runs.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	settings settings
	logger   *slog.Logger
}

// NewRootCmd creates the top-level "stories" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stories",
		Short: "Manage user stories and their acceptance criteria",
		Long: "Stories keeps user stories and acceptance criteria in a local SQLite\n" +
			"database and serves them to agents over MCP.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.stories-db)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newStoryCmd(a))
	root.AddCommand(newCriteriaCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

// Execute runs the root command with os.Args and returns the process exit
// code.
func Execute() int {
	return run(NewRootCmd(), os.Stderr)
}

func run(root *cobra.Command, stderr io.Writer) int {
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintf(stderr, "%s %s\n", color.RedString("error:"), err)
	return exitCode(err)
}

// setup resolves directories, reads config.yaml and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	s, err := settingsFrom(v)
	if err != nil {
		return sysError(err)
	}
	s.DataDir, err = paths.ResolveDataDir(a.dataDir, s.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{Level: s.LogLevel, Format: s.LogFormat})
	if err != nil {
		return sysError(fmt.Errorf("config: %w", err))
	}

	a.configDir = configDir
	a.settings = s
	a.logger = logger
	return nil
}

// openServices opens the store under the resolved data directory and builds
// the services over it. The caller must call the returned close function.
func (a *app) openServices(ctx context.Context) (*service.Services, func(), error) {
	store, err := sqlite.Open(ctx, types.Config{DataDir: a.settings.DataDir, Rules: a.settings.Rules})
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("open store: %w", err))
	}
	svc, err := service.New(store, a.settings.Rules, a.logger)
	if err != nil {
		store.Close()
		return nil, nil, sysError(err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			a.logger.Error("close store", "error", err)
		}
	}
	return svc, closeFn, nil
}

// withServices runs fn with services open for the duration of the call.
func (a *app) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Services) error) error {
	ctx := commandContext(cmd)
	svc, closeFn, err := a.openServices(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// exitCodeError carries an explicit exit code.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func sysError(err error) error {
	return &exitCodeError{code: exitSysError, err: err}
}

// exitCode maps err to a process exit code. Service errors split into user
// and system failures by kind; anything else, such as a bad flag, is a user
// error.
func exitCode(err error) int {
	var ce *exitCodeError
	if errors.As(err, &ce) {
		return ce.code
	}
	var te *types.Error
	if errors.As(err, &te) {
		if types.IsUserError(te) {
			return exitUserError
		}
		return exitSysError
	}
	return exitUserError
}

func notFoundError(entity, id string) error {
	return &types.Error{Kind: types.ErrNotFound, Entity: entity, ID: id}
}
