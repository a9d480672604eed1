package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

func newCriteriaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "criteria",
		Aliases: []string{"ac"},
		Short:   "Manage the acceptance criteria of user stories",
	}
	cmd.AddCommand(
		newCriteriaAddCmd(a),
		newCriteriaListCmd(a),
		newCriteriaGetCmd(a),
		newCriteriaUpdateCmd(a),
		newCriteriaDeleteCmd(a),
		newCriteriaClearCmd(a),
		newCriteriaSearchCmd(a),
		newCriteriaCountCmd(a),
	)
	return cmd
}

func newCriteriaAddCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "add <story-id> <description>...",
		Short: "Add acceptance criteria to a user story",
		Long: "Add one or more acceptance criteria to a user story. Several descriptions\n" +
			"are added in one transaction: either all are stored or none.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storyID, descriptions := args[0], args[1:]
			if id != "" && len(descriptions) > 1 {
				return fmt.Errorf("--id can only be used with a single description")
			}
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				p := a.printer(cmd)
				if len(descriptions) == 1 {
					if id == "" {
						id = svc.Criteria.NewID()
					}
					c, err := svc.Criteria.Create(ctx, types.CreateAcceptanceCriteriaRequest{
						ID:          id,
						UserStoryID: storyID,
						Description: descriptions[0],
					})
					if err != nil {
						return err
					}
					if p.json {
						return p.JSON(c)
					}
					p.Successf("Added acceptance criteria %s to %s", idColor(c.ID), idColor(storyID))
					return nil
				}

				reqs := make([]types.CreateAcceptanceCriteriaRequest, 0, len(descriptions))
				for _, d := range descriptions {
					reqs = append(reqs, types.CreateAcceptanceCriteriaRequest{
						ID:          svc.Criteria.NewID(),
						UserStoryID: storyID,
						Description: d,
					})
				}
				created, err := svc.Criteria.CreateBatch(ctx, reqs)
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(created)
				}
				p.Successf("Added %d acceptance criteria to %s", len(created), idColor(storyID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "criteria id (default: generated)")
	return cmd
}

func newCriteriaListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [story-id]",
		Short: "List acceptance criteria, all or for one user story",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				return a.printCriteria(cmd, func() ([]*types.AcceptanceCriteria, error) {
					if len(args) == 1 {
						return svc.Criteria.GetByUserStoryID(ctx, args[0])
					}
					return svc.Criteria.GetAll(ctx)
				})
			})
		},
	}
}

func newCriteriaGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an acceptance criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				c, err := svc.Criteria.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				if c == nil {
					return notFoundError(types.EntityAcceptanceCriteria, args[0])
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(c)
				}
				p.Criterion(c)
				return nil
			})
		},
	}
}

func newCriteriaUpdateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the description of an acceptance criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.UpdateAcceptanceCriteriaRequest
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				c, err := svc.Criteria.Update(ctx, args[0], req)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(c)
				}
				p.Successf("Updated acceptance criteria %s", idColor(c.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func newCriteriaDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an acceptance criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				if err := svc.Criteria.Delete(ctx, args[0]); err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(map[string]any{"id": args[0], "deleted": true})
				}
				p.Successf("Deleted acceptance criteria %s", idColor(args[0]))
				return nil
			})
		},
	}
}

func newCriteriaClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <story-id>",
		Short: "Delete every acceptance criterion of a user story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				n, err := svc.Criteria.DeleteByUserStoryID(ctx, args[0])
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(map[string]any{"user_story_id": args[0], "deleted": n})
				}
				p.Successf("Deleted %d acceptance criteria from %s", n, idColor(args[0]))
				return nil
			})
		},
	}
}

func newCriteriaSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search acceptance criteria descriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				return a.printCriteria(cmd, func() ([]*types.AcceptanceCriteria, error) {
					return svc.Criteria.Search(ctx, args[0])
				})
			})
		},
	}
}

func newCriteriaCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count [story-id]",
		Short: "Count acceptance criteria, all or for one user story",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				var (
					n   int64
					err error
				)
				if len(args) == 1 {
					n, err = svc.Criteria.CountByUserStoryID(ctx, args[0])
				} else {
					n, err = svc.Criteria.CountAll(ctx)
				}
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(map[string]int64{"count": n})
				}
				fmt.Fprintln(p.w, n)
				return nil
			})
		},
	}
}

func (a *app) printCriteria(cmd *cobra.Command, load func() ([]*types.AcceptanceCriteria, error)) error {
	list, err := load()
	if err != nil {
		return err
	}
	p := a.printer(cmd)
	if p.json {
		return p.JSON(list)
	}
	p.CriteriaLines(list)
	return nil
}
