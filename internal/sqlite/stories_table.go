// This file implements the user_stories table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// Compile-time interface check: storiesTable must implement StoryRepository.
var _ types.StoryRepository = (*storiesTable)(nil)

const storyColumns = "id, title, description, persona, created_at, updated_at"

// storyOrder gives creation order with insertion order as tiebreak.
const storyOrder = " ORDER BY created_at ASC, rowid ASC"

// storiesTable hydrates user_stories rows into *types.UserStory.
type storiesTable struct {
	backend *Backend
}

func (st *storiesTable) Insert(ctx context.Context, story *types.UserStory) error {
	_, err := st.backend.q().ExecContext(ctx,
		"INSERT INTO user_stories ("+storyColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		story.ID, story.Title, story.Description, story.Persona,
		formatTime(story.CreatedAt), formatTime(story.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user story %s: %w", story.ID, err)
	}
	return nil
}

func (st *storiesTable) GetByID(ctx context.Context, id string) (*types.UserStory, error) {
	row := st.backend.q().QueryRowContext(ctx,
		"SELECT "+storyColumns+" FROM user_stories WHERE id = ?", id,
	)
	story, err := hydrateStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user story %s: %w", id, err)
	}
	return story, nil
}

func (st *storiesTable) GetAll(ctx context.Context) ([]*types.UserStory, error) {
	return st.query(ctx, "listing user stories",
		"SELECT "+storyColumns+" FROM user_stories"+storyOrder,
	)
}

func (st *storiesTable) GetPaginated(ctx context.Context, limit, offset int) ([]*types.UserStory, error) {
	return st.query(ctx, "paginating user stories",
		"SELECT "+storyColumns+" FROM user_stories"+storyOrder+" LIMIT ? OFFSET ?",
		limit, offset,
	)
}

func (st *storiesTable) GetByPersona(ctx context.Context, persona string) ([]*types.UserStory, error) {
	return st.query(ctx, "listing user stories by persona",
		"SELECT "+storyColumns+" FROM user_stories WHERE persona = ?"+storyOrder,
		persona,
	)
}

func (st *storiesTable) GetGroupedByPersona(ctx context.Context) (map[string][]*types.UserStory, error) {
	all, err := st.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*types.UserStory)
	for _, story := range all {
		grouped[story.Persona] = append(grouped[story.Persona], story)
	}
	return grouped, nil
}

// Update reads the current row and writes it back with the supplied fields
// replaced, inside one transaction.
func (st *storiesTable) Update(ctx context.Context, id string, req types.UpdateUserStoryRequest, updatedAt time.Time) (*types.UserStory, error) {
	var updated *types.UserStory
	err := st.backend.atomic(ctx, func(q querier) error {
		row := q.QueryRowContext(ctx,
			"SELECT "+storyColumns+" FROM user_stories WHERE id = ?", id,
		)
		story, err := hydrateStory(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if req.Title != nil {
			story.Title = *req.Title
		}
		if req.Description != nil {
			story.Description = *req.Description
		}
		if req.Persona != nil {
			story.Persona = *req.Persona
		}
		story.UpdatedAt = updatedAt

		if _, err := q.ExecContext(ctx,
			"UPDATE user_stories SET title = ?, description = ?, persona = ?, updated_at = ? WHERE id = ?",
			story.Title, story.Description, story.Persona, formatTime(story.UpdatedAt), id,
		); err != nil {
			return err
		}
		updated = story
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating user story %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the story and its criteria in one transaction. The
// foreign key cascades as well; the explicit delete keeps the criteria
// removal visible in the statement log.
func (st *storiesTable) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := st.backend.atomic(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx,
			"DELETE FROM acceptance_criteria WHERE user_story_id = ?", id,
		); err != nil {
			return fmt.Errorf("deleting criteria: %w", err)
		}
		res, err := q.ExecContext(ctx, "DELETE FROM user_stories WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("deleting user story %s: %w", id, err)
	}
	return deleted, nil
}

func (st *storiesTable) Search(ctx context.Context, query string) ([]*types.UserStory, error) {
	pattern := likePattern(query)
	return st.query(ctx, "searching user stories",
		"SELECT "+storyColumns+` FROM user_stories
		WHERE title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR persona LIKE ? ESCAPE '\'`+storyOrder,
		pattern, pattern, pattern,
	)
}

func (st *storiesTable) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := st.backend.q().QueryRowContext(ctx, "SELECT COUNT(*) FROM user_stories").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting user stories: %w", err)
	}
	return n, nil
}

func (st *storiesTable) CountByPersona(ctx context.Context) (map[string]int64, error) {
	rows, err := st.backend.q().QueryContext(ctx,
		"SELECT persona, COUNT(*) FROM user_stories GROUP BY persona",
	)
	if err != nil {
		return nil, fmt.Errorf("counting user stories by persona: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var persona string
		var n int64
		if err := rows.Scan(&persona, &n); err != nil {
			return nil, fmt.Errorf("scanning persona count: %w", err)
		}
		counts[persona] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persona counts: %w", err)
	}
	return counts, nil
}

// query runs a multi-row select and hydrates every row. The result is
// empty, never nil, when nothing matches.
func (st *storiesTable) query(ctx context.Context, op, query string, args ...any) ([]*types.UserStory, error) {
	rows, err := st.backend.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	stories := []*types.UserStory{}
	for rows.Next() {
		story, err := hydrateStory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stories, nil
}

// hydrateStory converts a user_stories row into a *types.UserStory.
func hydrateStory(row scanner) (*types.UserStory, error) {
	var s types.UserStory
	var createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Persona, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	s.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	s.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}
