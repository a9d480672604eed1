package service

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/stories/pkg/types"
)

func notFound(entity, id string) error {
	return &types.Error{
		Kind:    types.ErrNotFound,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

func alreadyExists(entity, id string) error {
	return &types.Error{
		Kind:    types.ErrAlreadyExists,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("%s %s already exists", entity, id),
	}
}

func parentNotFound(criteriaID, storyID string) error {
	return &types.Error{
		Kind:    types.ErrParentNotFound,
		Entity:  types.EntityAcceptanceCriteria,
		ID:      criteriaID,
		Field:   "user_story_id",
		Message: fmt.Sprintf("user story %s not found", storyID),
	}
}

func limitExceeded(criteriaID, storyID string, limit int) error {
	return &types.Error{
		Kind:    types.ErrLimitExceeded,
		Entity:  types.EntityAcceptanceCriteria,
		ID:      criteriaID,
		Message: fmt.Sprintf("user story %s already has the maximum of %d acceptance criteria", storyID, limit),
	}
}

// storageError wraps a repository failure. Errors that already carry a kind
// pass through unchanged.
func storageError(entity, id string, err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return &types.Error{
		Kind:    types.ErrStorage,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("storage failure: %v", err),
		Err:     err,
	}
}
