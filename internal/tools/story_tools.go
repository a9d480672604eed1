package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// CreateStoryInput represents the tool input for story creation.
type CreateStoryInput struct {
	ID          string `json:"id" jsonschema:"story identifier, must start with the story prefix (US- by default)"`
	Title       string `json:"title" jsonschema:"story title, 1-200 characters"`
	Description string `json:"description" jsonschema:"story description, 1-2000 characters"`
	Persona     string `json:"persona" jsonschema:"persona the story serves"`
}

// CriterionInput is one criterion nested in a story creation.
type CriterionInput struct {
	ID          string `json:"id" jsonschema:"criteria identifier, must start with the criteria prefix (AC- by default)"`
	UserStoryID string `json:"user_story_id,omitempty" jsonschema:"parent story id; defaults to the story being created"`
	Description string `json:"description" jsonschema:"criterion description, 1-1000 characters"`
}

// CreateStoryWithCriteriaInput represents the tool input for creating a
// story together with its criteria.
type CreateStoryWithCriteriaInput struct {
	ID                 string           `json:"id" jsonschema:"story identifier"`
	Title              string           `json:"title" jsonschema:"story title, 1-200 characters"`
	Description        string           `json:"description" jsonschema:"story description, 1-2000 characters"`
	Persona            string           `json:"persona" jsonschema:"persona the story serves"`
	AcceptanceCriteria []CriterionInput `json:"acceptance_criteria,omitempty" jsonschema:"criteria created in the same transaction"`
}

// IDInput selects one record.
type IDInput struct {
	ID string `json:"id" jsonschema:"record identifier"`
}

// ListStoriesInput pages through stories. Without limit and offset every
// story is returned.
type ListStoriesInput struct {
	Limit  *int `json:"limit,omitempty" jsonschema:"page size, 1 to the configured maximum"`
	Offset *int `json:"offset,omitempty" jsonschema:"number of stories to skip"`
}

// UpdateStoryInput represents a partial story update.
type UpdateStoryInput struct {
	ID          string  `json:"id" jsonschema:"story identifier"`
	Title       *string `json:"title,omitempty" jsonschema:"new title"`
	Description *string `json:"description,omitempty" jsonschema:"new description"`
	Persona     *string `json:"persona,omitempty" jsonschema:"new persona"`
}

// SearchInput carries a case-insensitive substring query.
type SearchInput struct {
	Query string `json:"query" jsonschema:"substring to match, case-insensitive"`
}

// PersonaInput selects stories by persona.
type PersonaInput struct {
	Persona string `json:"persona" jsonschema:"exact persona to match"`
}

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// StoryResult wraps a created or updated story.
type StoryResult struct {
	Story Story `json:"story"`
}

// StoryLookupResult reports whether a story exists and returns it if so.
type StoryLookupResult struct {
	Found bool   `json:"found"`
	Story *Story `json:"story,omitempty"`
}

// StoryWithCriteriaResult wraps a story and its criteria.
type StoryWithCriteriaResult struct {
	Story StoryWithCriteria `json:"story"`
}

// StoryWithCriteriaLookupResult reports whether a story exists and returns it
// with its criteria if so.
type StoryWithCriteriaLookupResult struct {
	Found bool               `json:"found"`
	Story *StoryWithCriteria `json:"story,omitempty"`
}

// StoryListResult lists stories in creation order.
type StoryListResult struct {
	Stories []Story `json:"stories"`
	Count   int     `json:"count"`
}

// StoryGroupsResult maps persona to stories.
type StoryGroupsResult struct {
	Groups map[string][]Story `json:"groups"`
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func registerStoryTools(server *mcp.Server, rt *runtime) {
	addTool(server, rt, "create_user_story",
		"Create a user story", rt.createStory)
	addTool(server, rt, "create_user_story_with_criteria",
		"Create a user story and its acceptance criteria atomically", rt.createStoryWithCriteria)
	addTool(server, rt, "get_user_story",
		"Get a user story by id", rt.getStory)
	addTool(server, rt, "get_user_story_with_criteria",
		"Get a user story with its acceptance criteria", rt.getStoryWithCriteria)
	addTool(server, rt, "list_user_stories",
		"List user stories in creation order, optionally paginated", rt.listStories)
	addTool(server, rt, "update_user_story",
		"Update the supplied fields of a user story", rt.updateStory)
	addTool(server, rt, "delete_user_story",
		"Delete a user story and its acceptance criteria", rt.deleteStory)
	addTool(server, rt, "search_user_stories",
		"Search user stories by title, description or persona", rt.searchStories)
	addTool(server, rt, "get_user_stories_by_persona",
		"List the user stories of one persona", rt.storiesByPersona)
	addTool(server, rt, "group_user_stories_by_persona",
		"Group all user stories by persona", rt.groupStories)
	addTool(server, rt, "get_user_story_statistics",
		"Get user story totals and per-persona counts", rt.storyStatistics)
}

func (rt *runtime) createStory(ctx context.Context, in CreateStoryInput) (StoryResult, error) {
	story, err := rt.svc.Stories.Create(ctx, types.CreateUserStoryRequest{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Persona:     in.Persona,
	})
	if err != nil {
		return StoryResult{}, err
	}
	return StoryResult{Story: toStory(story)}, nil
}

func (rt *runtime) createStoryWithCriteria(ctx context.Context, in CreateStoryWithCriteriaInput) (StoryWithCriteriaResult, error) {
	criteria := make([]types.CreateAcceptanceCriteriaRequest, 0, len(in.AcceptanceCriteria))
	for _, c := range in.AcceptanceCriteria {
		criteria = append(criteria, types.CreateAcceptanceCriteriaRequest{
			ID:          c.ID,
			UserStoryID: c.UserStoryID,
			Description: c.Description,
		})
	}
	created, err := rt.svc.Stories.CreateWithCriteria(ctx, types.CreateUserStoryRequest{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Persona:     in.Persona,
	}, criteria)
	if err != nil {
		return StoryWithCriteriaResult{}, err
	}
	return StoryWithCriteriaResult{Story: toStoryWithCriteria(created)}, nil
}

func (rt *runtime) getStory(ctx context.Context, in IDInput) (StoryLookupResult, error) {
	story, err := rt.svc.Stories.GetByID(ctx, in.ID)
	if err != nil || story == nil {
		return StoryLookupResult{}, err
	}
	out := toStory(story)
	return StoryLookupResult{Found: true, Story: &out}, nil
}

func (rt *runtime) getStoryWithCriteria(ctx context.Context, in IDInput) (StoryWithCriteriaLookupResult, error) {
	story, err := rt.svc.Stories.GetWithCriteria(ctx, in.ID)
	if err != nil || story == nil {
		return StoryWithCriteriaLookupResult{}, err
	}
	out := toStoryWithCriteria(story)
	return StoryWithCriteriaLookupResult{Found: true, Story: &out}, nil
}

func (rt *runtime) listStories(ctx context.Context, in ListStoriesInput) (StoryListResult, error) {
	var (
		list []*types.UserStory
		err  error
	)
	if in.Limit == nil && in.Offset == nil {
		list, err = rt.svc.Stories.GetAll(ctx)
	} else {
		limit, offset := rt.svc.Rules.MaxPageSize, 0
		if in.Limit != nil {
			limit = *in.Limit
		}
		if in.Offset != nil {
			offset = *in.Offset
		}
		list, err = rt.svc.Stories.GetPaginated(ctx, limit, offset)
	}
	if err != nil {
		return StoryListResult{}, err
	}
	return StoryListResult{Stories: toStories(list), Count: len(list)}, nil
}

func (rt *runtime) updateStory(ctx context.Context, in UpdateStoryInput) (StoryResult, error) {
	story, err := rt.svc.Stories.Update(ctx, in.ID, types.UpdateUserStoryRequest{
		Title:       in.Title,
		Description: in.Description,
		Persona:     in.Persona,
	})
	if err != nil {
		return StoryResult{}, err
	}
	return StoryResult{Story: toStory(story)}, nil
}

func (rt *runtime) deleteStory(ctx context.Context, in IDInput) (DeleteResult, error) {
	if err := rt.svc.Stories.Delete(ctx, in.ID); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{ID: in.ID, Deleted: true}, nil
}

func (rt *runtime) searchStories(ctx context.Context, in SearchInput) (StoryListResult, error) {
	list, err := rt.svc.Stories.Search(ctx, in.Query)
	if err != nil {
		return StoryListResult{}, err
	}
	return StoryListResult{Stories: toStories(list), Count: len(list)}, nil
}

func (rt *runtime) storiesByPersona(ctx context.Context, in PersonaInput) (StoryListResult, error) {
	list, err := rt.svc.Stories.GetByPersona(ctx, in.Persona)
	if err != nil {
		return StoryListResult{}, err
	}
	return StoryListResult{Stories: toStories(list), Count: len(list)}, nil
}

func (rt *runtime) groupStories(ctx context.Context, _ EmptyInput) (StoryGroupsResult, error) {
	grouped, err := rt.svc.Stories.GetGroupedByPersona(ctx)
	if err != nil {
		return StoryGroupsResult{}, err
	}
	groups := make(map[string][]Story, len(grouped))
	for persona, list := range grouped {
		groups[persona] = toStories(list)
	}
	return StoryGroupsResult{Groups: groups}, nil
}

func (rt *runtime) storyStatistics(ctx context.Context, _ EmptyInput) (types.UserStoryStatistics, error) {
	stats, err := rt.svc.Stories.GetStatistics(ctx)
	if err != nil {
		return types.UserStoryStatistics{}, err
	}
	return *stats, nil
}
