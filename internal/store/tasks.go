package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// InsertTask inserts a task row. ON CONFLICT DO NOTHING for replay
// idempotency.
func (s *Store) InsertTask(ctx context.Context, q Querier, t core.Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks
		(id, session_id, title, description, status, org_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		t.ID,
		nullable(t.SessionID),
		t.Title,
		nullable(t.Description),
		string(t.Status),
		nullable(t.OrgID),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// SetTaskStatus records a state-machine transition. Transition legality is
// the caller's responsibility; replay re-applies recorded transitions
// without re-validating.
func (s *Store) SetTaskStatus(ctx context.Context, q Querier, id string, to core.TaskStatus, updatedAt string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?
	`, string(to), updatedAt, id)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return nil
}

// DeleteTask deletes a task visible in scope.
func (s *Store) DeleteTask(ctx context.Context, q Querier, id string, scope Scope) error {
	filter, args := scope.entityFilter()
	query := `DELETE FROM tasks WHERE id = ?` + filter
	args = append([]any{id}, args...)

	_, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// GetTask fetches a task by id. Unscoped: a raw id is treated as a
// capability.
func (s *Store) GetTask(ctx context.Context, id string) (core.Task, error) {
	var (
		t                             core.Task
		sessionID, description, orgID sql.NullString
		status                        string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, title, description, status, org_id, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &sessionID, &t.Title, &description, &status, &orgID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("get task: %w", err)
	}
	t.SessionID = ptr(sessionID)
	t.Description = ptr(description)
	t.Status = core.TaskStatus(status)
	t.OrgID = ptr(orgID)
	return t, nil
}

// ListTasks returns tasks visible in scope, optionally filtered by status,
// most recent first. Returns an empty slice, never nil.
func (s *Store) ListTasks(ctx context.Context, scope Scope, status core.TaskStatus, limit int) ([]core.Task, error) {
	filter, args := scope.entityFilter()
	query := `
		SELECT id, session_id, title, description, status, org_id, created_at, updated_at
		FROM tasks
		WHERE 1=1` + filter
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += `
		ORDER BY created_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []core.Task{}
	for rows.Next() {
		var (
			t                             core.Task
			sessionID, description, orgID sql.NullString
			st                            string
		)
		if err := rows.Scan(&t.ID, &sessionID, &t.Title, &description, &st, &orgID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.SessionID = ptr(sessionID)
		t.Description = ptr(description)
		t.Status = core.TaskStatus(st)
		t.OrgID = ptr(orgID)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
