package types

import "time"

// AcceptanceCriteria is a verifiable condition attached to a UserStory.
type AcceptanceCriteria struct {
	ID          string    `json:"id"`
	UserStoryID string    `json:"user_story_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateAcceptanceCriteriaRequest carries the caller-supplied fields of a new
// criterion.
type CreateAcceptanceCriteriaRequest struct {
	ID          string `json:"id" yaml:"id" validate:"criteriaid"`
	UserStoryID string `json:"user_story_id" yaml:"user_story_id" validate:"storyid"`
	Description string `json:"description" yaml:"description" validate:"notblank,max=1000"`
}

// UpdateAcceptanceCriteriaRequest is a partial update. A nil Description
// leaves the stored value unchanged.
type UpdateAcceptanceCriteriaRequest struct {
	Description *string `json:"description,omitempty" validate:"omitnil,notblank,max=1000"`
}
