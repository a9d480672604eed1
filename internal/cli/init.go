package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/pkg/sqlite"
	"github.com/mesh-intelligence/stories/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the stories store",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the database schema. Running init again is harmless.",
		Args:  cobra.NoArgs,
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	b, err := sqlite.Open(commandContext(cmd), types.Config{DataDir: a.settings.DataDir, Rules: a.settings.Rules})
	if err != nil {
		return sysError(fmt.Errorf("initialize storage: %w", err))
	}
	dbPath := b.Path()
	if err := b.Close(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	result := struct {
		ConfigFile string `json:"config_file"`
		Database   string `json:"database"`
	}{
		ConfigFile: filepath.Join(a.configDir, configFileExt),
		Database:   dbPath,
	}
	p := a.printer(cmd)
	if p.json {
		return p.JSON(result)
	}
	p.Successf("Initialized stories store")
	p.Field("config", result.ConfigFile)
	p.Field("database", result.Database)
	return nil
}
