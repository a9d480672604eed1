package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/stories/pkg/types"
)

const entityCriteria = types.EntityAcceptanceCriteria

// CriteriaService manages acceptance criteria.
type CriteriaService struct {
	base
}

// NewID returns a fresh criteria id with the configured prefix.
func (s *CriteriaService) NewID() string {
	return newID(s.rules.CriteriaIDPrefix)
}

// Create validates req and persists a criterion. Checks run in order:
// fields, duplicate id, parent story, per-story limit.
func (s *CriteriaService) Create(ctx context.Context, req types.CreateAcceptanceCriteriaRequest) (*types.AcceptanceCriteria, error) {
	if err := s.validate.Struct(entityCriteria, req); err != nil {
		return nil, err
	}

	var created *types.AcceptanceCriteria
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		c, err := s.create(ctx, tx, req, s.now())
		created = c
		return err
	})
	if err != nil {
		return nil, storageError(entityCriteria, req.ID, err)
	}
	s.logger.DebugContext(ctx, "created acceptance criteria", "id", created.ID, "user_story_id", created.UserStoryID)
	return created, nil
}

// create runs the existence, parent and limit checks against store and
// inserts. The caller has validated req and owns the transaction.
func (s *CriteriaService) create(ctx context.Context, store types.Store, req types.CreateAcceptanceCriteriaRequest, now time.Time) (*types.AcceptanceCriteria, error) {
	existing, err := store.Criteria().GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, alreadyExists(entityCriteria, req.ID)
	}

	parent, err := store.Stories().GetByID(ctx, req.UserStoryID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, parentNotFound(req.ID, req.UserStoryID)
	}

	n, err := store.Criteria().CountByUserStoryID(ctx, req.UserStoryID)
	if err != nil {
		return nil, err
	}
	if n >= int64(s.rules.MaxCriteriaPerStory) {
		return nil, limitExceeded(req.ID, req.UserStoryID, s.rules.MaxCriteriaPerStory)
	}

	c := &types.AcceptanceCriteria{
		ID:          req.ID,
		UserStoryID: req.UserStoryID,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.Criteria().Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateBatch creates every criterion in reqs or none of them. Duplicate ids
// within the batch are ErrAlreadyExists and the per-story limit counts
// existing criteria plus the batch's.
func (s *CriteriaService) CreateBatch(ctx context.Context, reqs []types.CreateAcceptanceCriteriaRequest) ([]*types.AcceptanceCriteria, error) {
	if len(reqs) == 0 {
		return nil, validationError(entityCriteria, "criteria", "criteria batch must not be empty")
	}
	for i, req := range reqs {
		if err := s.validate.Struct(entityCriteria, req); err != nil {
			return nil, batchItemError(i, err)
		}
	}

	var created []*types.AcceptanceCriteria
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		c, err := s.createBatch(ctx, tx, reqs, s.now())
		created = c
		return err
	})
	if err != nil {
		return nil, storageError(entityCriteria, "", err)
	}
	s.logger.DebugContext(ctx, "created acceptance criteria batch", "count", len(created))
	return created, nil
}

func (s *CriteriaService) createBatch(ctx context.Context, store types.Store, reqs []types.CreateAcceptanceCriteriaRequest, now time.Time) ([]*types.AcceptanceCriteria, error) {
	seen := make(map[string]bool, len(reqs))
	perStory := make(map[string]int64)
	batch := make([]*types.AcceptanceCriteria, 0, len(reqs))

	for _, req := range reqs {
		if seen[req.ID] {
			return nil, alreadyExists(entityCriteria, req.ID)
		}
		seen[req.ID] = true

		existing, err := store.Criteria().GetByID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, alreadyExists(entityCriteria, req.ID)
		}

		count, ok := perStory[req.UserStoryID]
		if !ok {
			parent, err := store.Stories().GetByID(ctx, req.UserStoryID)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				return nil, parentNotFound(req.ID, req.UserStoryID)
			}
			count, err = store.Criteria().CountByUserStoryID(ctx, req.UserStoryID)
			if err != nil {
				return nil, err
			}
		}
		if count >= int64(s.rules.MaxCriteriaPerStory) {
			return nil, limitExceeded(req.ID, req.UserStoryID, s.rules.MaxCriteriaPerStory)
		}
		perStory[req.UserStoryID] = count + 1

		batch = append(batch, &types.AcceptanceCriteria{
			ID:          req.ID,
			UserStoryID: req.UserStoryID,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := store.Criteria().InsertBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// GetByID returns the criterion or nil when absent.
func (s *CriteriaService) GetByID(ctx context.Context, id string) (*types.AcceptanceCriteria, error) {
	c, err := s.store.Criteria().GetByID(ctx, id)
	if err != nil {
		return nil, storageError(entityCriteria, id, err)
	}
	return c, nil
}

// GetByUserStoryID returns the criteria of a story in creation order. A
// missing story yields an empty list.
func (s *CriteriaService) GetByUserStoryID(ctx context.Context, userStoryID string) ([]*types.AcceptanceCriteria, error) {
	list, err := s.store.Criteria().GetByUserStoryID(ctx, userStoryID)
	if err != nil {
		return nil, storageError(entityCriteria, "", err)
	}
	return list, nil
}

func (s *CriteriaService) GetAll(ctx context.Context) ([]*types.AcceptanceCriteria, error) {
	list, err := s.store.Criteria().GetAll(ctx)
	if err != nil {
		return nil, storageError(entityCriteria, "", err)
	}
	return list, nil
}

// Update applies the supplied description and stamps updated_at.
func (s *CriteriaService) Update(ctx context.Context, id string, req types.UpdateAcceptanceCriteriaRequest) (*types.AcceptanceCriteria, error) {
	if err := s.validate.Struct(entityCriteria, req); err != nil {
		return nil, err
	}
	c, err := s.store.Criteria().Update(ctx, id, req, s.now())
	if err != nil {
		return nil, storageError(entityCriteria, id, err)
	}
	if c == nil {
		return nil, notFound(entityCriteria, id)
	}
	s.logger.DebugContext(ctx, "updated acceptance criteria", "id", id)
	return c, nil
}

func (s *CriteriaService) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.Criteria().Delete(ctx, id)
	if err != nil {
		return storageError(entityCriteria, id, err)
	}
	if !deleted {
		return notFound(entityCriteria, id)
	}
	s.logger.DebugContext(ctx, "deleted acceptance criteria", "id", id)
	return nil
}

// DeleteByUserStoryID removes every criterion of a story and returns how
// many were removed. Zero matches is not an error.
func (s *CriteriaService) DeleteByUserStoryID(ctx context.Context, userStoryID string) (int64, error) {
	n, err := s.store.Criteria().DeleteByUserStoryID(ctx, userStoryID)
	if err != nil {
		return 0, storageError(entityCriteria, "", err)
	}
	s.logger.DebugContext(ctx, "deleted acceptance criteria of story", "user_story_id", userStoryID, "count", n)
	return n, nil
}

// Search matches query against descriptions, case-insensitively. A blank
// query matches nothing.
func (s *CriteriaService) Search(ctx context.Context, query string) ([]*types.AcceptanceCriteria, error) {
	if strings.TrimSpace(query) == "" {
		return []*types.AcceptanceCriteria{}, nil
	}
	list, err := s.store.Criteria().Search(ctx, query)
	if err != nil {
		return nil, storageError(entityCriteria, "", err)
	}
	return list, nil
}

func (s *CriteriaService) CountByUserStoryID(ctx context.Context, userStoryID string) (int64, error) {
	n, err := s.store.Criteria().CountByUserStoryID(ctx, userStoryID)
	if err != nil {
		return 0, storageError(entityCriteria, "", err)
	}
	return n, nil
}

func (s *CriteriaService) CountAll(ctx context.Context) (int64, error) {
	n, err := s.store.Criteria().Count(ctx)
	if err != nil {
		return 0, storageError(entityCriteria, "", err)
	}
	return n, nil
}

// GetStatistics reads the totals and the per-story distribution in one
// transaction.
func (s *CriteriaService) GetStatistics(ctx context.Context) (*types.AcceptanceCriteriaStatistics, error) {
	stats := &types.AcceptanceCriteriaStatistics{}
	err := s.store.WithTx(ctx, func(tx types.Store) error {
		var err error
		if stats.TotalCriteria, err = tx.Criteria().Count(ctx); err != nil {
			return err
		}
		if stats.TotalStories, err = tx.Stories().Count(ctx); err != nil {
			return err
		}
		stats.CriteriaDistribution, err = tx.Criteria().CountGroupedByUserStory(ctx)
		return err
	})
	if err != nil {
		return nil, storageError(entityCriteria, "", err)
	}
	stats.AvgCriteriaPerStory = average(stats.TotalCriteria, stats.TotalStories)
	return stats, nil
}

// batchItemError prefixes a validation message with the item's position.
func batchItemError(i int, err error) error {
	typed, ok := err.(*types.Error)
	if !ok {
		return err
	}
	item := *typed
	item.Message = fmt.Sprintf("criteria[%d]: %s", i, typed.Message)
	return &item
}

func average(total, over int64) float64 {
	if over == 0 {
		return 0
	}
	return float64(total) / float64(over)
}
