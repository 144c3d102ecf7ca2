package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// InsertAudit appends an audit record. Always called inside the mutation
// transaction so the audit row and the mutation it describes commit or
// roll back together.
func (s *Store) InsertAudit(ctx context.Context, q Querier, rec core.AuditRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_trail
		(id, session_id, entity_type, entity_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		nullable(rec.SessionID),
		rec.EntityType,
		rec.EntityID,
		string(rec.Action),
		nullable(rec.Detail),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// AuditFilter narrows an audit query. Zero-value fields are not filtered.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     core.AuditAction
	SessionID  string
	Limit      int
}

// QueryAudit returns audit records matching the filter, most recent first.
// Returns an empty slice, never nil.
func (s *Store) QueryAudit(ctx context.Context, filter AuditFilter) ([]core.AuditRecord, error) {
	query := `
		SELECT id, session_id, entity_type, entity_id, action, detail, created_at
		FROM audit_trail
		WHERE 1=1`
	var args []any
	if filter.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, filter.EntityID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(filter.Action))
	}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	query += `
		ORDER BY created_at DESC, id COLLATE BINARY ASC
		LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	records := []core.AuditRecord{}
	for rows.Next() {
		var (
			rec               core.AuditRecord
			sessionID, detail sql.NullString
			action            string
		)
		if err := rows.Scan(&rec.ID, &sessionID, &rec.EntityType, &rec.EntityID, &action, &detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		rec.SessionID = ptr(sessionID)
		rec.Action = core.AuditAction(action)
		rec.Detail = ptr(detail)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountAudit returns the number of audit rows. Used to verify that rebuild
// starts from an empty audit log.
func (s *Store) CountAudit(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_trail`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit: %w", err)
	}
	return count, nil
}
