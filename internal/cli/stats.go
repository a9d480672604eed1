package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// statsReport combines both statistics views.
type statsReport struct {
	Stories  *types.UserStoryStatistics          `json:"user_stories"`
	Criteria *types.AcceptanceCriteriaStatistics `json:"acceptance_criteria"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show user story and acceptance criteria statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				report, err := loadStats(ctx, svc)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(report)
				}
				p.printStats(report)
				return nil
			})
		},
	}
}

// loadStats reads both statistics concurrently.
func loadStats(ctx context.Context, svc *service.Services) (statsReport, error) {
	var report statsReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := svc.Stories.GetStatistics(gctx)
		report.Stories = s
		return err
	})
	g.Go(func() error {
		c, err := svc.Criteria.GetStatistics(gctx)
		report.Criteria = c
		return err
	})
	if err := g.Wait(); err != nil {
		return statsReport{}, err
	}
	return report, nil
}

func (p *printer) printStats(r statsReport) {
	fmt.Fprintln(p.w, idColor("User stories"))
	p.Field("total", r.Stories.TotalStories)
	p.Field("personas", r.Stories.PersonasCount)
	p.Field("criteria", r.Stories.TotalCriteria)
	p.Field("avg criteria per story", fmt.Sprintf("%.2f", r.Stories.AvgCriteriaPerStory))
	p.Counts("  "+labelColor("by persona:"), r.Stories.StoriesByPersona)

	fmt.Fprintln(p.w, idColor("Acceptance criteria"))
	p.Field("total", r.Criteria.TotalCriteria)
	p.Field("stories", r.Criteria.TotalStories)
	p.Counts("  "+labelColor("per story:"), r.Criteria.CriteriaDistribution)
}
