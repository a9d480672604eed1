// Package service implements the story and criteria services: validation,
// uniqueness, referential checks, per-story limits, composite writes and
// statistics over a types.Store.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/stories/internal/logging"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// Services bundles the two services built over one store.
type Services struct {
	Stories  *StoryService
	Criteria *CriteriaService
	Rules    types.Rules
}

// New builds both services over store. A nil logger discards output.
func New(store types.Store, rules types.Rules, logger *slog.Logger) (*Services, error) {
	if store == nil {
		return nil, fmt.Errorf("service: store is required")
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	b := base{
		store:    store,
		rules:    rules,
		validate: NewValidator(rules),
		now:      func() time.Time { return time.Now().UTC() },
	}
	criteria := &CriteriaService{base: b}
	criteria.logger = logger.With("service", "criteria")
	stories := &StoryService{base: b, criteria: criteria}
	stories.logger = logger.With("service", "stories")

	return &Services{Stories: stories, Criteria: criteria, Rules: rules}, nil
}

// base holds what both services share. It carries no mutable state, so the
// services are safe for concurrent use.
type base struct {
	store    types.Store
	rules    types.Rules
	validate *Validator
	logger   *slog.Logger
	now      func() time.Time
}

// newID returns prefix followed by a UUID v7.
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return prefix + uuid.New().String()
	}
	return prefix + id.String()
}
