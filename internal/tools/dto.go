package tools

import (
	"time"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// Story is the tool representation of a user story. Timestamps are RFC 3339
// strings.
type Story struct {
	ID          string `json:"id" jsonschema:"user story identifier"`
	Title       string `json:"title" jsonschema:"story title"`
	Description string `json:"description" jsonschema:"story description"`
	Persona     string `json:"persona" jsonschema:"persona the story serves"`
	CreatedAt   string `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
	UpdatedAt   string `json:"updated_at" jsonschema:"RFC3339 last update timestamp"`
}

// Criterion is the tool representation of an acceptance criterion.
type Criterion struct {
	ID          string `json:"id" jsonschema:"acceptance criteria identifier"`
	UserStoryID string `json:"user_story_id" jsonschema:"parent user story identifier"`
	Description string `json:"description" jsonschema:"criterion description"`
	CreatedAt   string `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
	UpdatedAt   string `json:"updated_at" jsonschema:"RFC3339 last update timestamp"`
}

// StoryWithCriteria is a story with its criteria in creation order.
type StoryWithCriteria struct {
	ID                 string      `json:"id" jsonschema:"user story identifier"`
	Title              string      `json:"title" jsonschema:"story title"`
	Description        string      `json:"description" jsonschema:"story description"`
	Persona            string      `json:"persona" jsonschema:"persona the story serves"`
	CreatedAt          string      `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
	UpdatedAt          string      `json:"updated_at" jsonschema:"RFC3339 last update timestamp"`
	AcceptanceCriteria []Criterion `json:"acceptance_criteria" jsonschema:"criteria ordered by creation"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toStory(s *types.UserStory) Story {
	return Story{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Persona:     s.Persona,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

func toStories(list []*types.UserStory) []Story {
	out := make([]Story, 0, len(list))
	for _, s := range list {
		out = append(out, toStory(s))
	}
	return out
}

func toCriterion(c *types.AcceptanceCriteria) Criterion {
	return Criterion{
		ID:          c.ID,
		UserStoryID: c.UserStoryID,
		Description: c.Description,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func toCriteria(list []*types.AcceptanceCriteria) []Criterion {
	out := make([]Criterion, 0, len(list))
	for _, c := range list {
		out = append(out, toCriterion(c))
	}
	return out
}

func toStoryWithCriteria(s *types.UserStoryWithCriteria) StoryWithCriteria {
	return StoryWithCriteria{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Persona:            s.Persona,
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
		AcceptanceCriteria: toCriteria(s.AcceptanceCriteria),
	}
}
