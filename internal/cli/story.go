package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

func newStoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "story",
		Aliases: []string{"stories"},
		Short:   "Create, read, update and delete user stories",
	}
	cmd.AddCommand(
		newStoryCreateCmd(a),
		newStoryGetCmd(a),
		newStoryListCmd(a),
		newStoryUpdateCmd(a),
		newStoryDeleteCmd(a),
		newStorySearchCmd(a),
		newStoryPersonaCmd(a),
		newStoryGroupCmd(a),
	)
	return cmd
}

func newStoryCreateCmd(a *app) *cobra.Command {
	var (
		req      types.CreateUserStoryRequest
		criteria []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user story, optionally with acceptance criteria",
		Example: `  stories story create --title "Login" --persona "end user" \
    --description "As a user I want to log in" \
    --criterion "Given valid credentials I land on the dashboard"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				if req.ID == "" {
					req.ID = svc.Stories.NewID()
				}
				p := a.printer(cmd)
				if len(criteria) == 0 {
					story, err := svc.Stories.Create(ctx, req)
					if err != nil {
						return err
					}
					if p.json {
						return p.JSON(story)
					}
					p.Successf("Created user story %s", idColor(story.ID))
					return nil
				}

				reqs := make([]types.CreateAcceptanceCriteriaRequest, 0, len(criteria))
				for _, d := range criteria {
					reqs = append(reqs, types.CreateAcceptanceCriteriaRequest{ID: svc.Criteria.NewID(), Description: d})
				}
				story, err := svc.Stories.CreateWithCriteria(ctx, req, reqs)
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(story)
				}
				p.Successf("Created user story %s with %d acceptance criteria", idColor(story.ID), len(story.AcceptanceCriteria))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.ID, "id", "", "story id (default: generated)")
	cmd.Flags().StringVar(&req.Title, "title", "", "story title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "story description (required)")
	cmd.Flags().StringVar(&req.Persona, "persona", "", "persona the story serves (required)")
	cmd.Flags().StringArrayVar(&criteria, "criterion", nil, "acceptance criterion description (repeatable)")
	return cmd
}

func newStoryGetCmd(a *app) *cobra.Command {
	var withCriteria bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a user story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				p := a.printer(cmd)
				if withCriteria {
					story, err := svc.Stories.GetWithCriteria(ctx, args[0])
					if err != nil {
						return err
					}
					if story == nil {
						return notFoundError(types.EntityUserStory, args[0])
					}
					if p.json {
						return p.JSON(story)
					}
					p.StoryWithCriteria(story)
					return nil
				}

				story, err := svc.Stories.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				if story == nil {
					return notFoundError(types.EntityUserStory, args[0])
				}
				if p.json {
					return p.JSON(story)
				}
				p.Story(story)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withCriteria, "with-criteria", false, "include acceptance criteria")
	return cmd
}

func newStoryListCmd(a *app) *cobra.Command {
	var (
		limit, offset int
		withCriteria  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user stories in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paged := cmd.Flags().Changed("limit") || cmd.Flags().Changed("offset")
			if paged && withCriteria {
				return fmt.Errorf("--with-criteria cannot be combined with --limit or --offset")
			}
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				p := a.printer(cmd)
				if withCriteria {
					list, err := svc.Stories.GetAllWithCriteria(ctx)
					if err != nil {
						return err
					}
					if p.json {
						return p.JSON(list)
					}
					for _, s := range list {
						p.StoryWithCriteria(s)
					}
					return nil
				}

				var (
					list []*types.UserStory
					err  error
				)
				if paged {
					if !cmd.Flags().Changed("limit") {
						limit = svc.Rules.MaxPageSize
					}
					list, err = svc.Stories.GetPaginated(ctx, limit, offset)
				} else {
					list, err = svc.Stories.GetAll(ctx)
				}
				if err != nil {
					return err
				}
				if p.json {
					return p.JSON(list)
				}
				p.StoryLines(list)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default: max page size when paginating)")
	cmd.Flags().IntVar(&offset, "offset", 0, "stories to skip")
	cmd.Flags().BoolVar(&withCriteria, "with-criteria", false, "include acceptance criteria")
	return cmd
}

func newStoryUpdateCmd(a *app) *cobra.Command {
	var title, description, persona string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a user story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.UpdateUserStoryRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("persona") {
				req.Persona = &persona
			}
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				story, err := svc.Stories.Update(ctx, args[0], req)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(story)
				}
				p.Successf("Updated user story %s", idColor(story.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&persona, "persona", "", "new persona")
	return cmd
}

func newStoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user story and its acceptance criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				if err := svc.Stories.Delete(ctx, args[0]); err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(map[string]any{"id": args[0], "deleted": true})
				}
				p.Successf("Deleted user story %s", idColor(args[0]))
				return nil
			})
		},
	}
}

func newStorySearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, descriptions and personas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				return a.printStories(cmd, func() ([]*types.UserStory, error) {
					return svc.Stories.Search(ctx, args[0])
				})
			})
		},
	}
}

func newStoryPersonaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "persona <persona>",
		Short: "List the user stories of one persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				return a.printStories(cmd, func() ([]*types.UserStory, error) {
					return svc.Stories.GetByPersona(ctx, args[0])
				})
			})
		},
	}
}

func newStoryGroupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "group",
		Short: "Group user stories by persona",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				groups, err := svc.Stories.GetGroupedByPersona(ctx)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.json {
					return p.JSON(groups)
				}
				for _, persona := range sortedKeys(groups) {
					fmt.Fprintf(p.w, "%s (%d)\n", personaColor(persona), len(groups[persona]))
					for _, s := range groups[persona] {
						fmt.Fprintf(p.w, "  %s  %s\n", idColor(s.ID), s.Title)
					}
				}
				return nil
			})
		},
	}
}

func (a *app) printStories(cmd *cobra.Command, load func() ([]*types.UserStory, error)) error {
	list, err := load()
	if err != nil {
		return err
	}
	p := a.printer(cmd)
	if p.json {
		return p.JSON(list)
	}
	p.StoryLines(list)
	return nil
}
