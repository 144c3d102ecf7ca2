package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// StartSession opens a new session and its trail file.
func (s *Service) StartSession(ctx context.Context) (core.Session, error) {
	ts := s.timestamp()
	sess := core.Session{
		ID:        core.NewID(core.PrefixSession),
		StartedAt: ts,
		Status:    core.SessionActive,
		OrgID:     s.id.OrgIDPtr(),
	}

	data := sessionSnapshot(sess)
	op := s.operation(ts, sess.ID, core.OpCreate, core.EntitySession, sess.ID, data)
	rec := s.auditRecord(sess.ID, core.EntitySession, sess.ID, core.AuditCreated, nil, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.InsertSession(ctx, q, sess)
	})
	if err != nil {
		return core.Session{}, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// EndSession transitions a session to ended, recording an optional
// summary. Ending an already-ended session is an invalid transition.
func (s *Service) EndSession(ctx context.Context, id string, summary *string) (core.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return core.Session{}, fmt.Errorf("end session: %w", err)
	}
	if !sess.Status.CanTransitionTo(core.SessionEnded) {
		return core.Session{}, core.NewInvalidTransitionError(core.EntitySession, id, string(sess.Status), string(core.SessionEnded))
	}

	ts := s.timestamp()
	data := map[string]any{
		"from":     string(sess.Status),
		"to":       string(core.SessionEnded),
		"ended_at": ts,
	}
	if summary != nil {
		data["summary"] = *summary
	}
	op := s.operation(ts, id, core.OpTransition, core.EntitySession, id, data)
	rec := s.auditRecord(id, core.EntitySession, id, core.AuditTransitioned, data, ts)

	err = s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.EndSession(ctx, q, id, ts, summary)
	})
	if err != nil {
		return core.Session{}, fmt.Errorf("end session: %w", err)
	}
	return s.store.GetSession(ctx, id)
}

// GetSession fetches a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (core.Session, error) {
	return s.store.GetSession(ctx, id)
}

// ActiveSession returns the caller's most recently started active session.
func (s *Service) ActiveSession(ctx context.Context) (core.Session, error) {
	return s.store.ActiveSession(ctx, s.scope())
}

// ListSessions returns sessions visible to the caller.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]core.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListSessions(ctx, s.scope(), limit)
}

func sessionSnapshot(sess core.Session) map[string]any {
	return map[string]any{
		"id":         sess.ID,
		"started_at": sess.StartedAt,
		"ended_at":   strOrNil(sess.EndedAt),
		"status":     string(sess.Status),
		"summary":    strOrNil(sess.Summary),
		"org_id":     strOrNil(sess.OrgID),
	}
}

// strOrNil folds a *string into a JSON-ready value. Snapshots always
// carry every column, with null for no value.
func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
