package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// InsertFinding inserts a finding row. ON CONFLICT DO NOTHING for replay
// idempotency. Tags are separate rows; see InsertFindingTag.
func (s *Store) InsertFinding(ctx context.Context, q Querier, f core.Finding) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO findings
		(id, session_id, content, source, confidence, org_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		nullable(f.SessionID),
		f.Content,
		nullable(f.Source),
		string(f.Confidence),
		nullable(f.OrgID),
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert finding: %w", err)
	}
	return nil
}

// InsertFindingTag attaches a tag. Duplicate (finding, tag) pairs are
// silently ignored.
func (s *Store) InsertFindingTag(ctx context.Context, q Querier, findingID, tag string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO finding_tags (finding_id, tag)
		VALUES (?, ?)
		ON CONFLICT(finding_id, tag) DO NOTHING
	`, findingID, tag)
	if err != nil {
		return fmt.Errorf("insert finding tag: %w", err)
	}
	return nil
}

// DeleteFindingTag removes a tag. Removing an absent tag is a no-op.
func (s *Store) DeleteFindingTag(ctx context.Context, q Querier, findingID, tag string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM finding_tags WHERE finding_id = ? AND tag = ?
	`, findingID, tag)
	if err != nil {
		return fmt.Errorf("delete finding tag: %w", err)
	}
	return nil
}

// DeleteFinding deletes a finding visible in scope. Tag rows cascade.
func (s *Store) DeleteFinding(ctx context.Context, q Querier, id string, scope Scope) error {
	filter, args := scope.entityFilter()
	query := `DELETE FROM findings WHERE id = ?` + filter
	args = append([]any{id}, args...)

	_, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete finding: %w", err)
	}
	return nil
}

// GetFinding fetches a finding by id with its tags. Unscoped: a raw id is
// treated as a capability.
func (s *Store) GetFinding(ctx context.Context, id string) (core.Finding, error) {
	f, err := scanFinding(s.db.QueryRowContext(ctx, `
		SELECT id, session_id, content, source, confidence, org_id, created_at, updated_at
		FROM findings WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Finding{}, fmt.Errorf("finding %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Finding{}, fmt.Errorf("get finding: %w", err)
	}

	f.Tags, err = s.findingTags(ctx, id)
	if err != nil {
		return core.Finding{}, err
	}
	return f, nil
}

// ListFindings returns findings visible in scope, most recent first.
// Returns an empty slice, never nil.
func (s *Store) ListFindings(ctx context.Context, scope Scope, limit int) ([]core.Finding, error) {
	filter, args := scope.entityFilter()
	query := `
		SELECT id, session_id, content, source, confidence, org_id, created_at, updated_at
		FROM findings
		WHERE 1=1` + filter + `
		ORDER BY created_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`
	args = append(args, limit)
	return s.queryFindings(ctx, query, args...)
}

// SearchFindings runs a full-text MATCH over finding content, scoped.
// The FTS index is maintained by triggers, so search works identically on
// a rebuilt database.
func (s *Store) SearchFindings(ctx context.Context, scope Scope, match string, limit int) ([]core.Finding, error) {
	filter, scopeArgs := scope.entityFilter()
	query := `
		SELECT f.id, f.session_id, f.content, f.source, f.confidence, f.org_id, f.created_at, f.updated_at
		FROM findings_fts
		JOIN findings f ON f.rowid = findings_fts.rowid
		WHERE findings_fts MATCH ?` + filter + `
		ORDER BY f.created_at DESC, f.id COLLATE BINARY ASC
		LIMIT ?
	`
	args := append([]any{match}, scopeArgs...)
	args = append(args, limit)
	return s.queryFindings(ctx, query, args...)
}

func (s *Store) queryFindings(ctx context.Context, query string, args ...any) ([]core.Finding, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []core.Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range findings {
		findings[i].Tags, err = s.findingTags(ctx, findings[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

func (s *Store) findingTags(ctx context.Context, findingID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag FROM finding_tags WHERE finding_id = ? ORDER BY tag
	`, findingID)
	if err != nil {
		return nil, fmt.Errorf("finding tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFinding(r rowScanner) (core.Finding, error) {
	var (
		f                        core.Finding
		sessionID, source, orgID sql.NullString
		confidence               string
	)
	err := r.Scan(&f.ID, &sessionID, &f.Content, &source, &confidence, &orgID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return core.Finding{}, err
	}
	f.SessionID = ptr(sessionID)
	f.Source = ptr(source)
	f.Confidence = core.Confidence(confidence)
	f.OrgID = ptr(orgID)
	return f, nil
}
