package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/internal/importer"
	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// importReport is the JSON output of the import command.
type importReport struct {
	File    string         `json:"file"`
	Results []importResult `json:"results"`
}

type importResult struct {
	StoryID  string `json:"story_id"`
	Criteria int    `json:"criteria"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func newImportCmd(a *app) *cobra.Command {
	var opts importer.Options
	cmd := &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Import user stories and their criteria from YAML manifests",
		Long: "Import reads every manifest before writing anything, then creates each\n" +
			"story with its criteria in its own transaction. Ids left out of a\n" +
			"manifest are generated.",
		Example: `  stories import backlog.yaml
  stories import --continue-on-error sprint-*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifests, err := importer.LoadAll(commandContext(cmd), args)
			if err != nil {
				return err
			}
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				p := a.printer(cmd)
				reports := make([]importReport, 0, len(manifests))
				var firstErr error
				for _, m := range manifests {
					results, err := importer.Apply(ctx, svc, m, opts)
					reports = append(reports, toImportReport(m.Path, results))
					if !p.json {
						p.printImport(m.Path, results)
					}
					if err != nil {
						if firstErr == nil {
							firstErr = fmt.Errorf("%s: %w", m.Path, err)
						}
						if !opts.ContinueOnError {
							break
						}
					}
				}
				if p.json {
					if err := p.JSON(reports); err != nil {
						return err
					}
				}
				return firstErr
			})
		},
	}
	cmd.Flags().BoolVar(&opts.ContinueOnError, "continue-on-error", false, "keep importing after a story fails")
	return cmd
}

func toImportReport(path string, results []importer.Result) importReport {
	r := importReport{File: path, Results: make([]importResult, 0, len(results))}
	for _, res := range results {
		out := importResult{StoryID: res.StoryID, Criteria: res.Criteria}
		if res.Err != nil {
			out.Error = res.Err.Error()
			out.Code = types.ErrorCode(res.Err)
		}
		r.Results = append(r.Results, out)
	}
	return r
}

func (p *printer) printImport(path string, results []importer.Result) {
	fmt.Fprintln(p.w, labelColor(path))
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(p.w, "  %s %s: %v\n", errColor("✗"), res.StoryID, res.Err)
			continue
		}
		fmt.Fprintf(p.w, "  %s %s (%d criteria)\n", okColor("✓"), idColor(res.StoryID), res.Criteria)
	}
}
