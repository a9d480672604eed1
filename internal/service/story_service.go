package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/stories/pkg/types"
)

const entityStory = types.EntityUserStory

// StoryService manages user stories and orchestrates composite creation of a
// story with its criteria.
type StoryService struct {
	base
	criteria *CriteriaService
}

// NewID returns a fresh story id with the configured prefix.
func (s *StoryService) NewID() string {
	return newID(s.rules.StoryIDPrefix)
}

// Create validates req, rejects a duplicate id and persists the story with
// both timestamps set to the same instant.
func (s *StoryService) Create(ctx context.Context, req types.CreateUserStoryRequest) (*types.UserStory, error) {
	if err := s.validate.Struct(entityStory, req); err != nil {
		return nil, err
	}

	var created *types.UserStory
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		story, err := s.create(ctx, tx, req)
		created = story
		return err
	})
	if err != nil {
		return nil, storageError(entityStory, req.ID, err)
	}
	s.logger.DebugContext(ctx, "created user story", "id", created.ID)
	return created, nil
}

func (s *StoryService) create(ctx context.Context, store types.Store, req types.CreateUserStoryRequest) (*types.UserStory, error) {
	existing, err := store.Stories().GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, alreadyExists(entityStory, req.ID)
	}

	now := s.now()
	story := &types.UserStory{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Persona:     req.Persona,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.Stories().Insert(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// CreateWithCriteria creates a story and its criteria in one transaction.
// Criteria with an empty user_story_id belong to the new story; any other
// id is a validation error. Any failure leaves nothing behind.
func (s *StoryService) CreateWithCriteria(ctx context.Context, req types.CreateUserStoryRequest, criteria []types.CreateAcceptanceCriteriaRequest) (*types.UserStoryWithCriteria, error) {
	if err := s.validate.Struct(entityStory, req); err != nil {
		return nil, err
	}
	owned := make([]types.CreateAcceptanceCriteriaRequest, len(criteria))
	for i, c := range criteria {
		if c.UserStoryID == "" {
			c.UserStoryID = req.ID
		}
		if c.UserStoryID != req.ID {
			return nil, validationError(entityCriteria, "user_story_id",
				"criteria[%d]: user_story_id %s does not match story %s", i, c.UserStoryID, req.ID)
		}
		if err := s.validate.Struct(entityCriteria, c); err != nil {
			return nil, batchItemError(i, err)
		}
		owned[i] = c
	}

	result := &types.UserStoryWithCriteria{}
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		story, err := s.create(ctx, tx, req)
		if err != nil {
			return err
		}
		result.UserStory = *story
		result.AcceptanceCriteria = make([]*types.AcceptanceCriteria, 0, len(owned))
		for _, c := range owned {
			created, err := s.criteria.create(ctx, tx, c, story.CreatedAt)
			if err != nil {
				return err
			}
			result.AcceptanceCriteria = append(result.AcceptanceCriteria, created)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(entityStory, req.ID, err)
	}
	s.logger.DebugContext(ctx, "created user story with criteria", "id", req.ID, "criteria", len(owned))
	return result, nil
}

// GetByID returns the story or nil when absent.
func (s *StoryService) GetByID(ctx context.Context, id string) (*types.UserStory, error) {
	story, err := s.store.Stories().GetByID(ctx, id)
	if err != nil {
		return nil, storageError(entityStory, id, err)
	}
	return story, nil
}

// GetWithCriteria returns the story with its criteria, or nil when absent.
func (s *StoryService) GetWithCriteria(ctx context.Context, id string) (*types.UserStoryWithCriteria, error) {
	story, err := s.GetByID(ctx, id)
	if err != nil || story == nil {
		return nil, err
	}
	criteria, err := s.store.Criteria().GetByUserStoryID(ctx, id)
	if err != nil {
		return nil, storageError(entityStory, id, err)
	}
	return &types.UserStoryWithCriteria{UserStory: *story, AcceptanceCriteria: criteria}, nil
}

func (s *StoryService) GetAll(ctx context.Context) ([]*types.UserStory, error) {
	stories, err := s.store.Stories().GetAll(ctx)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	return stories, nil
}

// GetAllWithCriteria returns every story with its criteria. Criteria are
// read in one query and grouped in memory.
func (s *StoryService) GetAllWithCriteria(ctx context.Context) ([]*types.UserStoryWithCriteria, error) {
	stories, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.Criteria().GetAll(ctx)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	byStory := make(map[string][]*types.AcceptanceCriteria)
	for _, c := range all {
		byStory[c.UserStoryID] = append(byStory[c.UserStoryID], c)
	}

	out := make([]*types.UserStoryWithCriteria, 0, len(stories))
	for _, story := range stories {
		criteria := byStory[story.ID]
		if criteria == nil {
			criteria = []*types.AcceptanceCriteria{}
		}
		out = append(out, &types.UserStoryWithCriteria{UserStory: *story, AcceptanceCriteria: criteria})
	}
	return out, nil
}

// GetPaginated returns one page of stories in creation order.
func (s *StoryService) GetPaginated(ctx context.Context, limit, offset int) ([]*types.UserStory, error) {
	switch {
	case limit <= 0:
		return nil, validationError(entityStory, "limit", "limit must be positive")
	case limit > s.rules.MaxPageSize:
		return nil, validationError(entityStory, "limit", "limit must be at most %d", s.rules.MaxPageSize)
	case offset < 0:
		return nil, validationError(entityStory, "offset", "offset must not be negative")
	}
	stories, err := s.store.Stories().GetPaginated(ctx, limit, offset)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	return stories, nil
}

// GetByPersona returns the stories of one persona. A blank persona matches
// nothing.
func (s *StoryService) GetByPersona(ctx context.Context, persona string) ([]*types.UserStory, error) {
	if strings.TrimSpace(persona) == "" {
		return []*types.UserStory{}, nil
	}
	stories, err := s.store.Stories().GetByPersona(ctx, persona)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	return stories, nil
}

func (s *StoryService) GetGroupedByPersona(ctx context.Context) (map[string][]*types.UserStory, error) {
	grouped, err := s.store.Stories().GetGroupedByPersona(ctx)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	return grouped, nil
}

// Update applies the supplied fields and stamps updated_at. An update with
// no fields only stamps updated_at.
func (s *StoryService) Update(ctx context.Context, id string, req types.UpdateUserStoryRequest) (*types.UserStory, error) {
	if err := s.validate.Struct(entityStory, req); err != nil {
		return nil, err
	}
	story, err := s.store.Stories().Update(ctx, id, req, s.now())
	if err != nil {
		return nil, storageError(entityStory, id, err)
	}
	if story == nil {
		return nil, notFound(entityStory, id)
	}
	s.logger.DebugContext(ctx, "updated user story", "id", id)
	return story, nil
}

// Delete removes the story and its criteria.
func (s *StoryService) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.Stories().Delete(ctx, id)
	if err != nil {
		return storageError(entityStory, id, err)
	}
	if !deleted {
		return notFound(entityStory, id)
	}
	s.logger.DebugContext(ctx, "deleted user story", "id", id)
	return nil
}

// Search matches query against title, description and persona,
// case-insensitively. A blank query matches nothing.
func (s *StoryService) Search(ctx context.Context, query string) ([]*types.UserStory, error) {
	if strings.TrimSpace(query) == "" {
		return []*types.UserStory{}, nil
	}
	stories, err := s.store.Stories().Search(ctx, query)
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	return stories, nil
}

// GetStatistics reads story and criteria totals in one transaction.
func (s *StoryService) GetStatistics(ctx context.Context) (*types.UserStoryStatistics, error) {
	stats := &types.UserStoryStatistics{}
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		var err error
		if stats.TotalStories, err = tx.Stories().Count(ctx); err != nil {
			return fmt.Errorf("counting stories: %w", err)
		}
		if stats.TotalCriteria, err = tx.Criteria().Count(ctx); err != nil {
			return fmt.Errorf("counting criteria: %w", err)
		}
		if stats.StoriesByPersona, err = tx.Stories().CountByPersona(ctx); err != nil {
			return fmt.Errorf("counting personas: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(entityStory, "", err)
	}
	stats.PersonasCount = int64(len(stats.StoriesByPersona))
	stats.AvgCriteriaPerStory = average(stats.TotalCriteria, stats.TotalStories)
	return stats, nil
}
