package types

import (
	"context"
	"time"
)

// StoryRepository provides storage primitives over user stories.
// Reads return a nil story, never an error, when the id is absent. Every
// method may fail with a storage error.
type StoryRepository interface {
	// Insert persists a new story with the timestamps already set.
	Insert(ctx context.Context, story *UserStory) error

	// GetByID returns the story or nil when absent.
	GetByID(ctx context.Context, id string) (*UserStory, error)

	// GetAll returns every story ordered by created_at ascending.
	GetAll(ctx context.Context) ([]*UserStory, error)

	// GetPaginated returns at most limit stories after skipping offset, in
	// created_at ascending order.
	GetPaginated(ctx context.Context, limit, offset int) ([]*UserStory, error)

	// GetByPersona returns the stories whose persona equals persona.
	GetByPersona(ctx context.Context, persona string) ([]*UserStory, error)

	// GetGroupedByPersona maps each persona to its stories in created_at
	// order.
	GetGroupedByPersona(ctx context.Context) (map[string][]*UserStory, error)

	// Update applies the non-nil fields of req and sets updated_at.
	// Returns nil when the story is absent.
	Update(ctx context.Context, id string, req UpdateUserStoryRequest, updatedAt time.Time) (*UserStory, error)

	// Delete removes the story and its criteria. Reports whether a story
	// was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Search matches query as a case-insensitive substring of title,
	// description or persona.
	Search(ctx context.Context, query string) ([]*UserStory, error)

	Count(ctx context.Context) (int64, error)

	// CountByPersona maps each persona to its number of stories.
	CountByPersona(ctx context.Context) (map[string]int64, error)
}

// CriteriaRepository provides storage primitives over acceptance criteria.
type CriteriaRepository interface {
	Insert(ctx context.Context, criteria *AcceptanceCriteria) error

	// InsertBatch persists all criteria or none of them.
	InsertBatch(ctx context.Context, criteria []*AcceptanceCriteria) error

	// GetByID returns the criterion or nil when absent.
	GetByID(ctx context.Context, id string) (*AcceptanceCriteria, error)

	GetAll(ctx context.Context) ([]*AcceptanceCriteria, error)

	// GetByUserStoryID returns the criteria of one story in created_at order.
	GetByUserStoryID(ctx context.Context, userStoryID string) ([]*AcceptanceCriteria, error)

	// Update applies a non-nil description and sets updated_at.
	// Returns nil when the criterion is absent.
	Update(ctx context.Context, id string, req UpdateAcceptanceCriteriaRequest, updatedAt time.Time) (*AcceptanceCriteria, error)

	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByUserStoryID removes every criterion of a story and returns
	// the number removed.
	DeleteByUserStoryID(ctx context.Context, userStoryID string) (int64, error)

	Search(ctx context.Context, query string) ([]*AcceptanceCriteria, error)

	Count(ctx context.Context) (int64, error)

	CountByUserStoryID(ctx context.Context, userStoryID string) (int64, error)

	// CountGroupedByUserStory maps every story id to its criteria count,
	// including stories with none.
	CountGroupedByUserStory(ctx context.Context) (map[string]int64, error)
}

// Store gives access to both repositories over one storage connection.
type Store interface {
	Stories() StoryRepository
	Criteria() CriteriaRepository

	// WithTx runs fn against a transaction-scoped Store. The transaction
	// commits when fn returns nil and rolls back otherwise. Calling WithTx
	// on a transaction-scoped Store runs fn in the same transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
