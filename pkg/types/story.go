package types

import "time"

// UserStory is a user-facing requirement record. It owns zero or more
// AcceptanceCriteria through AcceptanceCriteria.UserStoryID.
type UserStory struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Persona     string    `json:"persona"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateUserStoryRequest carries the caller-supplied fields of a new story.
// Timestamps are assigned by the service.
type CreateUserStoryRequest struct {
	ID          string `json:"id" yaml:"id" validate:"storyid"`
	Title       string `json:"title" yaml:"title" validate:"notblank,max=200"`
	Description string `json:"description" yaml:"description" validate:"notblank,max=2000"`
	Persona     string `json:"persona" yaml:"persona" validate:"notblank"`
}

// UpdateUserStoryRequest is a partial update. Nil fields are left unchanged.
type UpdateUserStoryRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,notblank,max=200"`
	Description *string `json:"description,omitempty" validate:"omitnil,notblank,max=2000"`
	Persona     *string `json:"persona,omitempty" validate:"omitnil,notblank"`
}

// IsEmpty reports whether the update carries no fields.
func (r UpdateUserStoryRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Persona == nil
}

// UserStoryWithCriteria is a story together with its criteria ordered by
// creation time.
type UserStoryWithCriteria struct {
	UserStory
	AcceptanceCriteria []*AcceptanceCriteria `json:"acceptance_criteria"`
}
