package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// AddTask creates a task in the open state.
func (s *Service) AddTask(ctx context.Context, sessionID, title string, description *string) (core.Task, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Task{}, err
	}
	title = core.NormalizeText(title)
	if title == "" {
		return core.Task{}, core.NewInvalidInputError("task title is empty")
	}

	ts := s.timestamp()
	t := core.Task{
		ID:          core.NewID(core.PrefixTask),
		SessionID:   &sessionID,
		Title:       title,
		Description: description,
		Status:      core.TaskOpen,
		OrgID:       s.id.OrgIDPtr(),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	data := taskSnapshot(t)
	op := s.operation(ts, sessionID, core.OpCreate, core.EntityTask, t.ID, data)
	rec := s.auditRecord(sessionID, core.EntityTask, t.ID, core.AuditCreated, nil, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.InsertTask(ctx, q, t)
	})
	if err != nil {
		return core.Task{}, fmt.Errorf("add task: %w", err)
	}
	return t, nil
}

// MoveTask transitions a task through its state machine. The transition
// is validated before any write; a forbidden edge returns
// INVALID_TRANSITION and touches nothing.
func (s *Service) MoveTask(ctx context.Context, sessionID, id string, to core.TaskStatus, reason *string) (core.Task, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Task{}, err
	}
	if !core.ValidTaskStatus(string(to)) {
		return core.Task{}, core.NewInvalidInputError(fmt.Sprintf("unknown task status %q", to))
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return core.Task{}, fmt.Errorf("move task: %w", err)
	}
	if !t.Status.CanTransitionTo(to) {
		return core.Task{}, core.NewInvalidTransitionError(core.EntityTask, id, string(t.Status), string(to))
	}

	ts := s.timestamp()
	data := map[string]any{
		"from": string(t.Status),
		"to":   string(to),
	}
	if reason != nil {
		data["reason"] = *reason
	}
	op := s.operation(ts, sessionID, core.OpTransition, core.EntityTask, id, data)
	rec := s.auditRecord(sessionID, core.EntityTask, id, core.AuditTransitioned, data, ts)

	err = s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.SetTaskStatus(ctx, q, id, to, ts)
	})
	if err != nil {
		return core.Task{}, fmt.Errorf("move task: %w", err)
	}
	return s.store.GetTask(ctx, id)
}

// UpdateTask applies a partial update to title or description.
func (s *Service) UpdateTask(ctx context.Context, sessionID, id string, upd core.TaskUpdate) (core.Task, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Task{}, err
	}
	if upd.Empty() {
		return core.Task{}, core.NewInvalidInputError("update changes nothing")
	}
	if upd.Title.IsSet() && core.NormalizeText(upd.Title.Value()) == "" {
		return core.Task{}, core.NewInvalidInputError("task title is empty")
	}
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return core.Task{}, fmt.Errorf("update task: %w", err)
	}

	ts := s.timestamp()
	payload := upd.Payload()
	op := s.operation(ts, sessionID, core.OpUpdate, core.EntityTask, id, payload)
	rec := s.auditRecord(sessionID, core.EntityTask, id, core.AuditUpdated, payload, ts)

	scope := s.scope()
	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.ApplyUpdate(ctx, q, core.EntityTask, id, payload, ts, &scope)
	})
	if err != nil {
		return core.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.store.GetTask(ctx, id)
}

// DeleteTask removes a task visible to the caller.
func (s *Service) DeleteTask(ctx context.Context, sessionID, id string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	ts := s.timestamp()
	op := s.operation(ts, sessionID, core.OpDelete, core.EntityTask, id, map[string]any{})
	rec := s.auditRecord(sessionID, core.EntityTask, id, core.AuditDeleted, nil, ts)

	scope := s.scope()
	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.DeleteTask(ctx, q, id, scope)
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// GetTask fetches a task by id.
func (s *Service) GetTask(ctx context.Context, id string) (core.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListTasks returns tasks visible to the caller, optionally filtered by
// status.
func (s *Service) ListTasks(ctx context.Context, status core.TaskStatus, limit int) ([]core.Task, error) {
	if status != "" && !core.ValidTaskStatus(string(status)) {
		return nil, core.NewInvalidInputError(fmt.Sprintf("unknown task status %q", status))
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListTasks(ctx, s.scope(), status, limit)
}

func taskSnapshot(t core.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"session_id":  strOrNil(t.SessionID),
		"title":       t.Title,
		"description": strOrNil(t.Description),
		"status":      string(t.Status),
		"org_id":      strOrNil(t.OrgID),
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}
