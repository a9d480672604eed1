// This file implements the acceptance_criteria table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// Compile-time interface check: criteriaTable must implement CriteriaRepository.
var _ types.CriteriaRepository = (*criteriaTable)(nil)

const criteriaColumns = "id, user_story_id, description, created_at, updated_at"

const criteriaOrder = " ORDER BY created_at ASC, rowid ASC"

const insertCriteria = "INSERT INTO acceptance_criteria (" + criteriaColumns + ") VALUES (?, ?, ?, ?, ?)"

// criteriaTable hydrates acceptance_criteria rows into *types.AcceptanceCriteria.
type criteriaTable struct {
	backend *Backend
}

func (ct *criteriaTable) Insert(ctx context.Context, c *types.AcceptanceCriteria) error {
	if err := insertCriterion(ctx, ct.backend.q(), c); err != nil {
		return fmt.Errorf("inserting acceptance criteria %s: %w", c.ID, err)
	}
	return nil
}

// InsertBatch checks every item before writing any row, then inserts all of
// them in one transaction.
func (ct *criteriaTable) InsertBatch(ctx context.Context, criteria []*types.AcceptanceCriteria) error {
	for i, c := range criteria {
		if c == nil || c.ID == "" || c.UserStoryID == "" {
			return fmt.Errorf("inserting acceptance criteria batch: item %d is incomplete", i)
		}
	}
	return ct.backend.atomic(ctx, func(q querier) error {
		for _, c := range criteria {
			if err := insertCriterion(ctx, q, c); err != nil {
				return fmt.Errorf("inserting acceptance criteria %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func insertCriterion(ctx context.Context, q querier, c *types.AcceptanceCriteria) error {
	_, err := q.ExecContext(ctx, insertCriteria,
		c.ID, c.UserStoryID, c.Description,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	return err
}

func (ct *criteriaTable) GetByID(ctx context.Context, id string) (*types.AcceptanceCriteria, error) {
	row := ct.backend.q().QueryRowContext(ctx,
		"SELECT "+criteriaColumns+" FROM acceptance_criteria WHERE id = ?", id,
	)
	c, err := hydrateCriteria(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting acceptance criteria %s: %w", id, err)
	}
	return c, nil
}

func (ct *criteriaTable) GetAll(ctx context.Context) ([]*types.AcceptanceCriteria, error) {
	return ct.query(ctx, "listing acceptance criteria",
		"SELECT "+criteriaColumns+" FROM acceptance_criteria"+criteriaOrder,
	)
}

func (ct *criteriaTable) GetByUserStoryID(ctx context.Context, userStoryID string) ([]*types.AcceptanceCriteria, error) {
	return ct.query(ctx, "listing acceptance criteria by user story",
		"SELECT "+criteriaColumns+" FROM acceptance_criteria WHERE user_story_id = ?"+criteriaOrder,
		userStoryID,
	)
}

func (ct *criteriaTable) Update(ctx context.Context, id string, req types.UpdateAcceptanceCriteriaRequest, updatedAt time.Time) (*types.AcceptanceCriteria, error) {
	var updated *types.AcceptanceCriteria
	err := ct.backend.atomic(ctx, func(q querier) error {
		row := q.QueryRowContext(ctx,
			"SELECT "+criteriaColumns+" FROM acceptance_criteria WHERE id = ?", id,
		)
		c, err := hydrateCriteria(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if req.Description != nil {
			c.Description = *req.Description
		}
		c.UpdatedAt = updatedAt

		if _, err := q.ExecContext(ctx,
			"UPDATE acceptance_criteria SET description = ?, updated_at = ? WHERE id = ?",
			c.Description, formatTime(c.UpdatedAt), id,
		); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating acceptance criteria %s: %w", id, err)
	}
	return updated, nil
}

func (ct *criteriaTable) Delete(ctx context.Context, id string) (bool, error) {
	res, err := ct.backend.q().ExecContext(ctx, "DELETE FROM acceptance_criteria WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting acceptance criteria %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting acceptance criteria %s: %w", id, err)
	}
	return n > 0, nil
}

func (ct *criteriaTable) DeleteByUserStoryID(ctx context.Context, userStoryID string) (int64, error) {
	res, err := ct.backend.q().ExecContext(ctx,
		"DELETE FROM acceptance_criteria WHERE user_story_id = ?", userStoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting acceptance criteria of %s: %w", userStoryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting acceptance criteria of %s: %w", userStoryID, err)
	}
	return n, nil
}

func (ct *criteriaTable) Search(ctx context.Context, query string) ([]*types.AcceptanceCriteria, error) {
	return ct.query(ctx, "searching acceptance criteria",
		"SELECT "+criteriaColumns+` FROM acceptance_criteria WHERE description LIKE ? ESCAPE '\'`+criteriaOrder,
		likePattern(query),
	)
}

func (ct *criteriaTable) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := ct.backend.q().QueryRowContext(ctx, "SELECT COUNT(*) FROM acceptance_criteria").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting acceptance criteria: %w", err)
	}
	return n, nil
}

func (ct *criteriaTable) CountByUserStoryID(ctx context.Context, userStoryID string) (int64, error) {
	var n int64
	if err := ct.backend.q().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM acceptance_criteria WHERE user_story_id = ?", userStoryID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting acceptance criteria of %s: %w", userStoryID, err)
	}
	return n, nil
}

// CountGroupedByUserStory left-joins from user_stories so stories without
// criteria report zero.
func (ct *criteriaTable) CountGroupedByUserStory(ctx context.Context) (map[string]int64, error) {
	rows, err := ct.backend.q().QueryContext(ctx, `SELECT s.id, COUNT(c.id)
		FROM user_stories s
		LEFT JOIN acceptance_criteria c ON c.user_story_id = s.id
		GROUP BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("counting acceptance criteria per story: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning criteria count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating criteria counts: %w", err)
	}
	return counts, nil
}

func (ct *criteriaTable) query(ctx context.Context, op, query string, args ...any) ([]*types.AcceptanceCriteria, error) {
	rows, err := ct.backend.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	criteria := []*types.AcceptanceCriteria{}
	for rows.Next() {
		c, err := hydrateCriteria(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return criteria, nil
}

// hydrateCriteria converts an acceptance_criteria row into a
// *types.AcceptanceCriteria.
func hydrateCriteria(row scanner) (*types.AcceptanceCriteria, error) {
	var c types.AcceptanceCriteria
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.UserStoryID, &c.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &c, nil
}
