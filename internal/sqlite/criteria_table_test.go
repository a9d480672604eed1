package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// setupStories opens a backend holding US-1 and US-2.
func setupStories(t *testing.T) *Backend {
	t.Helper()
	b := setupBackend(t)
	ctx := context.Background()
	require.NoError(t, b.Stories().Insert(ctx, newStory("US-1", 0)))
	require.NoError(t, b.Stories().Insert(ctx, newStory("US-2", 1)))
	return b
}

func TestCriteria_InsertAndGet(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()

	c := newCriterion("AC-1", "US-1", 5)
	require.NoError(t, b.Criteria().Insert(ctx, c))

	got, err := b.Criteria().GetByID(ctx, "AC-1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	missing, err := b.Criteria().GetByID(ctx, "AC-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCriteria_InsertBatch(t *testing.T) {
	tests := []struct {
		name      string
		batch     []*types.AcceptanceCriteria
		wantErr   bool
		wantCount int64
	}{
		{
			name: "all rows written",
			batch: []*types.AcceptanceCriteria{
				newCriterion("AC-1", "US-1", 2),
				newCriterion("AC-2", "US-2", 3),
			},
			wantCount: 2,
		},
		{
			name: "duplicate id writes nothing",
			batch: []*types.AcceptanceCriteria{
				newCriterion("AC-1", "US-1", 2),
				newCriterion("AC-1", "US-1", 3),
			},
			wantErr: true,
		},
		{
			name: "dangling parent writes nothing",
			batch: []*types.AcceptanceCriteria{
				newCriterion("AC-1", "US-1", 2),
				newCriterion("AC-2", "US-404", 3),
			},
			wantErr: true,
		},
		{
			name: "incomplete item is rejected before writing",
			batch: []*types.AcceptanceCriteria{
				newCriterion("AC-1", "US-1", 2),
				newCriterion("", "US-1", 3),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupStories(t)
			ctx := context.Background()

			err := b.Criteria().InsertBatch(ctx, tt.batch)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			n, err := b.Criteria().Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, n)
		})
	}
}

func TestCriteria_GetByUserStoryID(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()
	require.NoError(t, b.Criteria().Insert(ctx, newCriterion("AC-2", "US-1", 6)))
	require.NoError(t, b.Criteria().Insert(ctx, newCriterion("AC-1", "US-1", 5)))
	require.NoError(t, b.Criteria().Insert(ctx, newCriterion("AC-3", "US-2", 4)))

	got, err := b.Criteria().GetByUserStoryID(ctx, "US-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AC-1", "AC-2"}, ids(got))

	all, err := b.Criteria().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC-3", "AC-1", "AC-2"}, ids(all))

	none, err := b.Criteria().GetByUserStoryID(ctx, "US-404")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := b.Criteria().CountByUserStoryID(ctx, "US-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = b.Criteria().CountByUserStoryID(ctx, "US-404")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCriteria_Update(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()
	require.NoError(t, b.Criteria().Insert(ctx, newCriterion("AC-1", "US-1", 5)))

	desc := "Rewritten"
	got, err := b.Criteria().Update(ctx, "AC-1", types.UpdateAcceptanceCriteriaRequest{Description: &desc}, at(9))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rewritten", got.Description)
	assert.Equal(t, at(5), got.CreatedAt)
	assert.Equal(t, at(9), got.UpdatedAt)

	// No fields still stamps updated_at.
	got, err = b.Criteria().Update(ctx, "AC-1", types.UpdateAcceptanceCriteriaRequest{}, at(12))
	require.NoError(t, err)
	assert.Equal(t, "Rewritten", got.Description)
	assert.Equal(t, at(12), got.UpdatedAt)

	missing, err := b.Criteria().Update(ctx, "AC-404", types.UpdateAcceptanceCriteriaRequest{Description: &desc}, at(9))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCriteria_Delete(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()
	require.NoError(t, b.Criteria().InsertBatch(ctx, []*types.AcceptanceCriteria{
		newCriterion("AC-1", "US-1", 2),
		newCriterion("AC-2", "US-1", 3),
		newCriterion("AC-3", "US-2", 4),
	}))

	deleted, err := b.Criteria().Delete(ctx, "AC-3")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = b.Criteria().Delete(ctx, "AC-3")
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := b.Criteria().DeleteByUserStoryID(ctx, "US-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = b.Criteria().DeleteByUserStoryID(ctx, "US-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCriteria_Search(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()
	c1 := newCriterion("AC-1", "US-1", 2)
	c1.Description = "User sees the Login page"
	c2 := newCriterion("AC-2", "US-2", 3)
	c2.Description = "Discount of 10% applied"
	require.NoError(t, b.Criteria().InsertBatch(ctx, []*types.AcceptanceCriteria{c1, c2}))

	got, err := b.Criteria().Search(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, []string{"AC-1"}, ids(got))

	got, err = b.Criteria().Search(ctx, "10%")
	require.NoError(t, err)
	assert.Equal(t, []string{"AC-2"}, ids(got))
}

func TestCriteria_CountGroupedByUserStory(t *testing.T) {
	b := setupStories(t)
	ctx := context.Background()
	require.NoError(t, b.Criteria().InsertBatch(ctx, []*types.AcceptanceCriteria{
		newCriterion("AC-1", "US-1", 2),
		newCriterion("AC-2", "US-1", 3),
	}))

	counts, err := b.Criteria().CountGroupedByUserStory(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"US-1": 2, "US-2": 0}, counts)
}
