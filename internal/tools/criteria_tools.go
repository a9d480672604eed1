package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// CreateCriterionInput represents the tool input for criteria creation.
type CreateCriterionInput struct {
	ID          string `json:"id" jsonschema:"criteria identifier, must start with the criteria prefix (AC- by default)"`
	UserStoryID string `json:"user_story_id" jsonschema:"parent user story identifier"`
	Description string `json:"description" jsonschema:"criterion description, 1-1000 characters"`
}

// CreateCriteriaBatchInput creates several criteria atomically.
type CreateCriteriaBatchInput struct {
	Criteria []CreateCriterionInput `json:"criteria" jsonschema:"criteria to create, all or none"`
}

// UpdateCriterionInput represents a partial criterion update.
type UpdateCriterionInput struct {
	ID          string  `json:"id" jsonschema:"criteria identifier"`
	Description *string `json:"description,omitempty" jsonschema:"new description"`
}

// StoryScopeInput optionally restricts a criteria query to one story.
type StoryScopeInput struct {
	UserStoryID string `json:"user_story_id,omitempty" jsonschema:"parent user story identifier; omit for all criteria"`
}

// UserStoryIDInput selects the criteria of one story.
type UserStoryIDInput struct {
	UserStoryID string `json:"user_story_id" jsonschema:"parent user story identifier"`
}

// CriterionResult wraps a created or updated criterion.
type CriterionResult struct {
	Criterion Criterion `json:"criterion"`
}

// CriterionLookupResult reports whether a criterion exists and returns it if
// so.
type CriterionLookupResult struct {
	Found     bool       `json:"found"`
	Criterion *Criterion `json:"criterion,omitempty"`
}

// CriteriaListResult lists criteria in creation order.
type CriteriaListResult struct {
	Criteria []Criterion `json:"criteria"`
	Count    int         `json:"count"`
}

// DeleteByStoryResult reports how many criteria a story lost.
type DeleteByStoryResult struct {
	UserStoryID string `json:"user_story_id"`
	Deleted     int64  `json:"deleted"`
}

// CountResult carries a criteria count, scoped to a story when
// UserStoryID is set.
type CountResult struct {
	UserStoryID string `json:"user_story_id,omitempty"`
	Count       int64  `json:"count"`
}

func registerCriteriaTools(server *mcp.Server, rt *runtime) {
	addTool(server, rt, "create_acceptance_criteria",
		"Create an acceptance criterion for an existing user story", rt.createCriterion)
	addTool(server, rt, "create_acceptance_criteria_batch",
		"Create several acceptance criteria atomically", rt.createCriteriaBatch)
	addTool(server, rt, "get_acceptance_criteria",
		"Get an acceptance criterion by id", rt.getCriterion)
	addTool(server, rt, "list_acceptance_criteria",
		"List acceptance criteria, optionally for one user story", rt.listCriteria)
	addTool(server, rt, "update_acceptance_criteria",
		"Update the description of an acceptance criterion", rt.updateCriterion)
	addTool(server, rt, "delete_acceptance_criteria",
		"Delete an acceptance criterion", rt.deleteCriterion)
	addTool(server, rt, "delete_acceptance_criteria_by_user_story",
		"Delete every acceptance criterion of a user story", rt.deleteCriteriaByStory)
	addTool(server, rt, "search_acceptance_criteria",
		"Search acceptance criteria by description", rt.searchCriteria)
	addTool(server, rt, "count_acceptance_criteria",
		"Count acceptance criteria, optionally for one user story", rt.countCriteria)
	addTool(server, rt, "get_acceptance_criteria_statistics",
		"Get acceptance criteria totals and per-story distribution", rt.criteriaStatistics)
}

func (rt *runtime) createCriterion(ctx context.Context, in CreateCriterionInput) (CriterionResult, error) {
	c, err := rt.svc.Criteria.Create(ctx, types.CreateAcceptanceCriteriaRequest{
		ID:          in.ID,
		UserStoryID: in.UserStoryID,
		Description: in.Description,
	})
	if err != nil {
		return CriterionResult{}, err
	}
	return CriterionResult{Criterion: toCriterion(c)}, nil
}

func (rt *runtime) createCriteriaBatch(ctx context.Context, in CreateCriteriaBatchInput) (CriteriaListResult, error) {
	reqs := make([]types.CreateAcceptanceCriteriaRequest, 0, len(in.Criteria))
	for _, c := range in.Criteria {
		reqs = append(reqs, types.CreateAcceptanceCriteriaRequest{
			ID:          c.ID,
			UserStoryID: c.UserStoryID,
			Description: c.Description,
		})
	}
	created, err := rt.svc.Criteria.CreateBatch(ctx, reqs)
	if err != nil {
		return CriteriaListResult{}, err
	}
	return CriteriaListResult{Criteria: toCriteria(created), Count: len(created)}, nil
}

func (rt *runtime) getCriterion(ctx context.Context, in IDInput) (CriterionLookupResult, error) {
	c, err := rt.svc.Criteria.GetByID(ctx, in.ID)
	if err != nil || c == nil {
		return CriterionLookupResult{}, err
	}
	out := toCriterion(c)
	return CriterionLookupResult{Found: true, Criterion: &out}, nil
}

func (rt *runtime) listCriteria(ctx context.Context, in StoryScopeInput) (CriteriaListResult, error) {
	var (
		list []*types.AcceptanceCriteria
		err  error
	)
	if in.UserStoryID == "" {
		list, err = rt.svc.Criteria.GetAll(ctx)
	} else {
		list, err = rt.svc.Criteria.GetByUserStoryID(ctx, in.UserStoryID)
	}
	if err != nil {
		return CriteriaListResult{}, err
	}
	return CriteriaListResult{Criteria: toCriteria(list), Count: len(list)}, nil
}

func (rt *runtime) updateCriterion(ctx context.Context, in UpdateCriterionInput) (CriterionResult, error) {
	c, err := rt.svc.Criteria.Update(ctx, in.ID, types.UpdateAcceptanceCriteriaRequest{Description: in.Description})
	if err != nil {
		return CriterionResult{}, err
	}
	return CriterionResult{Criterion: toCriterion(c)}, nil
}

func (rt *runtime) deleteCriterion(ctx context.Context, in IDInput) (DeleteResult, error) {
	if err := rt.svc.Criteria.Delete(ctx, in.ID); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{ID: in.ID, Deleted: true}, nil
}

func (rt *runtime) deleteCriteriaByStory(ctx context.Context, in UserStoryIDInput) (DeleteByStoryResult, error) {
	n, err := rt.svc.Criteria.DeleteByUserStoryID(ctx, in.UserStoryID)
	if err != nil {
		return DeleteByStoryResult{}, err
	}
	return DeleteByStoryResult{UserStoryID: in.UserStoryID, Deleted: n}, nil
}

func (rt *runtime) searchCriteria(ctx context.Context, in SearchInput) (CriteriaListResult, error) {
	list, err := rt.svc.Criteria.Search(ctx, in.Query)
	if err != nil {
		return CriteriaListResult{}, err
	}
	return CriteriaListResult{Criteria: toCriteria(list), Count: len(list)}, nil
}

func (rt *runtime) countCriteria(ctx context.Context, in StoryScopeInput) (CountResult, error) {
	var (
		n   int64
		err error
	)
	if in.UserStoryID == "" {
		n, err = rt.svc.Criteria.CountAll(ctx)
	} else {
		n, err = rt.svc.Criteria.CountByUserStoryID(ctx, in.UserStoryID)
	}
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{UserStoryID: in.UserStoryID, Count: n}, nil
}

func (rt *runtime) criteriaStatistics(ctx context.Context, _ EmptyInput) (types.AcceptanceCriteriaStatistics, error) {
	stats, err := rt.svc.Criteria.GetStatistics(ctx)
	if err != nil {
		return types.AcceptanceCriteriaStatistics{}, err
	}
	return *stats, nil
}
