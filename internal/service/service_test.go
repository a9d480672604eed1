package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stories/internal/sqlite"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// tickClock returns a strictly increasing instant on every call.
type tickClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// setupServices builds services over a fresh SQLite store with a
// deterministic clock.
func setupServices(t *testing.T) *Services {
	t.Helper()
	return setupServicesWithRules(t, types.DefaultRules())
}

func setupServicesWithRules(t *testing.T, rules types.Rules) *Services {
	t.Helper()
	b, err := sqlite.Open(context.Background(), types.Config{DataDir: t.TempDir(), Rules: rules})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	svc, err := New(b, rules, nil)
	require.NoError(t, err)

	clock := &tickClock{cur: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc.Stories.now = clock.Now
	svc.Criteria.now = clock.Now
	return svc
}

func storyReq(id string) types.CreateUserStoryRequest {
	return types.CreateUserStoryRequest{
		ID:          id,
		Title:       "Title " + id,
		Description: "As a user I want " + id,
		Persona:     "developer",
	}
}

func criteriaReq(id, storyID string) types.CreateAcceptanceCriteriaRequest {
	return types.CreateAcceptanceCriteriaRequest{
		ID:          id,
		UserStoryID: storyID,
		Description: "Given " + id,
	}
}

func ptr(s string) *string { return &s }

// requireKind asserts err is a *types.Error of kind.
func requireKind(t *testing.T, err error, kind error) *types.Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var typed *types.Error
	require.True(t, errors.As(err, &typed), "expected *types.Error, got %T", err)
	return typed
}

func TestNew(t *testing.T) {
	b, err := sqlite.Open(context.Background(), types.Config{DataDir: t.TempDir(), Rules: types.DefaultRules()})
	require.NoError(t, err)
	defer b.Close()

	_, err = New(nil, types.DefaultRules(), nil)
	assert.Error(t, err)

	_, err = New(b, types.Rules{}, nil)
	assert.ErrorIs(t, err, types.ErrPrefixEmpty)

	svc, err := New(b, types.DefaultRules(), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svc.Stories.NewID(), "US-"))
	assert.True(t, strings.HasPrefix(svc.Criteria.NewID(), "AC-"))
	assert.NotEqual(t, svc.Stories.NewID(), svc.Stories.NewID())
}

func TestServicesAreIndependent(t *testing.T) {
	a := setupServices(t)
	b := setupServices(t)
	ctx := context.Background()

	_, err := a.Stories.Create(ctx, storyReq("US-1"))
	require.NoError(t, err)

	got, err := b.Stories.GetByID(ctx, "US-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScenario_StoryWithTwoCriteria(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	_, err := svc.Stories.Create(ctx, types.CreateUserStoryRequest{
		ID:          "US-001",
		Title:       "User Login",
		Description: "As a user I want to log in",
		Persona:     "End User",
	})
	require.NoError(t, err)
	_, err = svc.Criteria.Create(ctx, types.CreateAcceptanceCriteriaRequest{
		ID: "AC-001", UserStoryID: "US-001", Description: "Valid credentials log the user in",
	})
	require.NoError(t, err)
	_, err = svc.Criteria.Create(ctx, types.CreateAcceptanceCriteriaRequest{
		ID: "AC-002", UserStoryID: "US-001", Description: "Invalid credentials show an error",
	})
	require.NoError(t, err)

	got, err := svc.Stories.GetWithCriteria(ctx, "US-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.AcceptanceCriteria, 2)
	assert.Equal(t, "AC-001", got.AcceptanceCriteria[0].ID)
	assert.Equal(t, "AC-002", got.AcceptanceCriteria[1].ID)

	require.NoError(t, svc.Stories.Delete(ctx, "US-001"))

	story, err := svc.Stories.GetByID(ctx, "US-001")
	require.NoError(t, err)
	assert.Nil(t, story)
	for _, id := range []string{"AC-001", "AC-002"} {
		c, err := svc.Criteria.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, c)
	}
}

// failingStore returns errStore from every repository call the services
// make first.
type failingStore struct{}

var errStore = errors.New("disk I/O error")

type failingStories struct{ types.StoryRepository }

func (failingStories) GetByID(context.Context, string) (*types.UserStory, error) {
	return nil, errStore
}

func (failingStories) Delete(context.Context, string) (bool, error) {
	return false, errStore
}

type failingCriteria struct{ types.CriteriaRepository }

func (failingCriteria) GetAll(context.Context) ([]*types.AcceptanceCriteria, error) {
	return nil, errStore
}

func (failingStore) Stories() types.StoryRepository { return failingStories{} }
func (failingStore) Criteria() types.CriteriaRepository { return failingCriteria{} }
func (s failingStore) WithTx(_ context.Context, fn func(types.Store) error) error {
	return fn(s)
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	svc, err := New(failingStore{}, types.DefaultRules(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"story get", func() error { _, err := svc.Stories.GetByID(ctx, "US-1"); return err }},
		{"story create", func() error { _, err := svc.Stories.Create(ctx, storyReq("US-1")); return err }},
		{"story delete", func() error { return svc.Stories.Delete(ctx, "US-1") }},
		{"criteria list", func() error { _, err := svc.Criteria.GetAll(ctx); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typed := requireKind(t, tt.call(), types.ErrStorage)
			assert.ErrorIs(t, typed, errStore)
			assert.Equal(t, "storage", typed.Code())
		})
	}
}
