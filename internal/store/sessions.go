package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// InsertSession inserts a session row. ON CONFLICT DO NOTHING for replay
// idempotency - the first write of an id wins.
func (s *Store) InsertSession(ctx context.Context, q Querier, sess core.Session) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions
		(id, started_at, ended_at, status, summary, org_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.StartedAt,
		nullable(sess.EndedAt),
		string(sess.Status),
		nullable(sess.Summary),
		nullable(sess.OrgID),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession marks a session ended, recording end time and optional
// summary. Safe to re-apply during replay: the row converges to the same
// final state.
func (s *Store) EndSession(ctx context.Context, q Querier, id, endedAt string, summary *string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, ended_at = ?, summary = COALESCE(?, summary)
		WHERE id = ?
	`,
		string(core.SessionEnded),
		endedAt,
		nullable(summary),
		id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// GetSession fetches a session by id. Unscoped: a raw id is treated as a
// capability.
func (s *Store) GetSession(ctx context.Context, id string) (core.Session, error) {
	var (
		sess                    core.Session
		endedAt, summary, orgID sql.NullString
		status                  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, status, summary, org_id
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.StartedAt, &endedAt, &status, &summary, &orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.Status = core.SessionStatus(status)
	sess.EndedAt = ptr(endedAt)
	sess.Summary = ptr(summary)
	sess.OrgID = ptr(orgID)
	return sess, nil
}

// ActiveSession returns the most recently started active session visible
// in scope, or ErrNotFound.
func (s *Store) ActiveSession(ctx context.Context, scope Scope) (core.Session, error) {
	filter, args := scope.entityFilter()
	query := `
		SELECT id FROM sessions
		WHERE status = 'active'` + filter + `
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT 1
	`
	var id string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, fmt.Errorf("active session: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("active session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// ListSessions returns sessions visible in scope, most recent first.
// Returns an empty slice, never nil.
func (s *Store) ListSessions(ctx context.Context, scope Scope, limit int) ([]core.Session, error) {
	filter, args := scope.entityFilter()
	query := `
		SELECT id, started_at, ended_at, status, summary, org_id
		FROM sessions
		WHERE 1=1` + filter + `
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []core.Session{}
	for rows.Next() {
		var (
			sess                    core.Session
			endedAt, summary, orgID sql.NullString
			status                  string
		)
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &endedAt, &status, &summary, &orgID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Status = core.SessionStatus(status)
		sess.EndedAt = ptr(endedAt)
		sess.Summary = ptr(summary)
		sess.OrgID = ptr(orgID)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
