package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/internal/sqlite"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// connect starts a tool server over a fresh store and returns a connected
// client session.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, types.Config{DataDir: t.TempDir(), Rules: types.DefaultRules()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc, err := service.New(store, types.DefaultRules(), nil)
	require.NoError(t, err)

	server := NewServer(svc, nil, Options{Version: "test", CallTimeout: 5 * time.Second})
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// call invokes a tool and requires it to succeed, decoding its structured
// content into T.
func call[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	result := callRaw(t, session, name, args)
	require.False(t, result.IsError, "%s failed: %s", name, errorText(result))

	data, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func callRaw(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// callError invokes a tool that must fail and returns its error text.
func callError(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result := callRaw(t, session, name, args)
	require.True(t, result.IsError, "%s unexpectedly succeeded", name)
	return errorText(result)
}

func errorText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func storyArgs(id string) map[string]any {
	return map[string]any{
		"id":          id,
		"title":       "Title " + id,
		"description": "As a user I want " + id,
		"persona":     "developer",
	}
}

func TestNewServer_ListsTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"create_user_story",
		"create_user_story_with_criteria",
		"get_user_story",
		"get_user_story_with_criteria",
		"list_user_stories",
		"update_user_story",
		"delete_user_story",
		"search_user_stories",
		"get_user_stories_by_persona",
		"group_user_stories_by_persona",
		"get_user_story_statistics",
		"create_acceptance_criteria",
		"create_acceptance_criteria_batch",
		"get_acceptance_criteria",
		"list_acceptance_criteria",
		"update_acceptance_criteria",
		"delete_acceptance_criteria",
		"delete_acceptance_criteria_by_user_story",
		"search_acceptance_criteria",
		"count_acceptance_criteria",
		"get_acceptance_criteria_statistics",
	}, names)
}

func TestStoryTools_Lifecycle(t *testing.T) {
	session := connect(t)

	created := call[StoryResult](t, session, "create_user_story", storyArgs("US-1"))
	assert.Equal(t, "US-1", created.Story.ID)
	assert.Equal(t, created.Story.CreatedAt, created.Story.UpdatedAt)
	_, err := time.Parse(time.RFC3339Nano, created.Story.CreatedAt)
	require.NoError(t, err)

	got := call[StoryLookupResult](t, session, "get_user_story", map[string]any{"id": "US-1"})
	require.True(t, got.Found)
	assert.Equal(t, created.Story, *got.Story)

	missing := call[StoryLookupResult](t, session, "get_user_story", map[string]any{"id": "US-404"})
	assert.False(t, missing.Found)
	assert.Nil(t, missing.Story)

	updated := call[StoryResult](t, session, "update_user_story", map[string]any{"id": "US-1", "title": "Renamed"})
	assert.Equal(t, "Renamed", updated.Story.Title)
	assert.Equal(t, created.Story.Description, updated.Story.Description)

	deleted := call[DeleteResult](t, session, "delete_user_story", map[string]any{"id": "US-1"})
	assert.True(t, deleted.Deleted)

	text := callError(t, session, "delete_user_story", map[string]any{"id": "US-1"})
	assert.True(t, strings.HasPrefix(text, "not_found: "), text)
}

func TestStoryTools_ErrorCodes(t *testing.T) {
	session := connect(t)
	call[StoryResult](t, session, "create_user_story", storyArgs("US-1"))

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantCode string
	}{
		{
			name:     "duplicate id",
			tool:     "create_user_story",
			args:     storyArgs("US-1"),
			wantCode: "already_exists",
		},
		{
			name:     "wrong prefix",
			tool:     "create_user_story",
			args:     storyArgs("STORY-1"),
			wantCode: "validation",
		},
		{
			name:     "page too large",
			tool:     "list_user_stories",
			args:     map[string]any{"limit": 101},
			wantCode: "validation",
		},
		{
			name:     "criterion for missing story",
			tool:     "create_acceptance_criteria",
			args:     map[string]any{"id": "AC-1", "user_story_id": "US-404", "description": "d"},
			wantCode: "parent_not_found",
		},
		{
			name:     "update missing criterion",
			tool:     "update_acceptance_criteria",
			args:     map[string]any{"id": "AC-404", "description": "d"},
			wantCode: "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := callError(t, session, tt.tool, tt.args)
			assert.True(t, strings.HasPrefix(text, tt.wantCode+": "), text)
		})
	}
}

func TestStoryTools_ListAndGroup(t *testing.T) {
	session := connect(t)
	for _, id := range []string{"US-1", "US-2", "US-3"} {
		call[StoryResult](t, session, "create_user_story", storyArgs(id))
	}
	pm := storyArgs("US-4")
	pm["persona"] = "product manager"
	call[StoryResult](t, session, "create_user_story", pm)

	all := call[StoryListResult](t, session, "list_user_stories", nil)
	require.Equal(t, 4, all.Count)
	assert.Equal(t, "US-1", all.Stories[0].ID)

	page := call[StoryListResult](t, session, "list_user_stories", map[string]any{"limit": 2, "offset": 1})
	require.Len(t, page.Stories, 2)
	assert.Equal(t, "US-2", page.Stories[0].ID)
	assert.Equal(t, "US-3", page.Stories[1].ID)

	tail := call[StoryListResult](t, session, "list_user_stories", map[string]any{"offset": 3})
	require.Len(t, tail.Stories, 1)
	assert.Equal(t, "US-4", tail.Stories[0].ID)

	byPersona := call[StoryListResult](t, session, "get_user_stories_by_persona", map[string]any{"persona": "product manager"})
	require.Equal(t, 1, byPersona.Count)

	groups := call[StoryGroupsResult](t, session, "group_user_stories_by_persona", nil)
	assert.Len(t, groups.Groups["developer"], 3)
	assert.Len(t, groups.Groups["product manager"], 1)

	hits := call[StoryListResult](t, session, "search_user_stories", map[string]any{"query": "TITLE us-2"})
	require.Equal(t, 1, hits.Count)
	assert.Equal(t, "US-2", hits.Stories[0].ID)

	stats := call[types.UserStoryStatistics](t, session, "get_user_story_statistics", nil)
	assert.Equal(t, int64(4), stats.TotalStories)
	assert.Equal(t, int64(2), stats.PersonasCount)
	assert.Equal(t, map[string]int64{"developer": 3, "product manager": 1}, stats.StoriesByPersona)
}

func TestCriteriaTools_Lifecycle(t *testing.T) {
	session := connect(t)

	args := storyArgs("US-1")
	args["acceptance_criteria"] = []map[string]any{
		{"id": "AC-1", "description": "Given a login form"},
		{"id": "AC-2", "description": "Given a wrong password"},
	}
	created := call[StoryWithCriteriaResult](t, session, "create_user_story_with_criteria", args)
	require.Len(t, created.Story.AcceptanceCriteria, 2)
	assert.Equal(t, "US-1", created.Story.AcceptanceCriteria[1].UserStoryID)

	full := call[StoryWithCriteriaLookupResult](t, session, "get_user_story_with_criteria", map[string]any{"id": "US-1"})
	require.True(t, full.Found)
	assert.Equal(t, created.Story, *full.Story)

	batch := call[CriteriaListResult](t, session, "create_acceptance_criteria_batch", map[string]any{
		"criteria": []map[string]any{
			{"id": "AC-3", "user_story_id": "US-1", "description": "Given a locked account"},
			{"id": "AC-4", "user_story_id": "US-1", "description": "Given an expired session"},
		},
	})
	assert.Equal(t, 2, batch.Count)

	count := call[CountResult](t, session, "count_acceptance_criteria", map[string]any{"user_story_id": "US-1"})
	assert.Equal(t, int64(4), count.Count)

	hits := call[CriteriaListResult](t, session, "search_acceptance_criteria", map[string]any{"query": "PASSWORD"})
	require.Equal(t, 1, hits.Count)
	assert.Equal(t, "AC-2", hits.Criteria[0].ID)

	updated := call[CriterionResult](t, session, "update_acceptance_criteria", map[string]any{"id": "AC-1", "description": "Given a login page"})
	assert.Equal(t, "Given a login page", updated.Criterion.Description)

	got := call[CriterionLookupResult](t, session, "get_acceptance_criteria", map[string]any{"id": "AC-1"})
	require.True(t, got.Found)
	assert.Equal(t, updated.Criterion, *got.Criterion)

	call[DeleteResult](t, session, "delete_acceptance_criteria", map[string]any{"id": "AC-4"})
	removed := call[DeleteByStoryResult](t, session, "delete_acceptance_criteria_by_user_story", map[string]any{"user_story_id": "US-1"})
	assert.Equal(t, int64(3), removed.Deleted)

	list := call[CriteriaListResult](t, session, "list_acceptance_criteria", nil)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Criteria)

	stats := call[types.AcceptanceCriteriaStatistics](t, session, "get_acceptance_criteria_statistics", nil)
	assert.Zero(t, stats.TotalCriteria)
	assert.Equal(t, int64(1), stats.TotalStories)
	assert.Equal(t, map[string]int64{"US-1": 0}, stats.CriteriaDistribution)
}

func TestCriteriaTools_BatchIsAtomic(t *testing.T) {
	session := connect(t)
	call[StoryResult](t, session, "create_user_story", storyArgs("US-1"))

	text := callError(t, session, "create_acceptance_criteria_batch", map[string]any{
		"criteria": []map[string]any{
			{"id": "AC-1", "user_story_id": "US-1", "description": "ok"},
			{"id": "AC-2", "user_story_id": "US-404", "description": "orphan"},
		},
	})
	assert.True(t, strings.HasPrefix(text, "parent_not_found: "), text)

	count := call[CountResult](t, session, "count_acceptance_criteria", nil)
	assert.Zero(t, count.Count)
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	err := Serve(context.Background(), nil, ServeConfig{Transport: "carrier-pigeon"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}
