package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/stories"

// Version is the release version, set at build time with
// -ldflags "-X github.com/mesh-intelligence/stories/internal/cli.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stories version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "stories %s\nmodule: %s\n", Version, modulePath)
			if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "go: %s\n", info.GoVersion)
			}
			return nil
		},
	}
}
