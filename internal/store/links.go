package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// InsertLink inserts a link row. ON CONFLICT DO NOTHING for replay
// idempotency.
func (s *Store) InsertLink(ctx context.Context, q Querier, l core.Link) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO entity_links
		(id, source_type, source_id, target_type, target_id, relation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		l.ID,
		string(l.SourceType),
		l.SourceID,
		string(l.TargetType),
		l.TargetID,
		string(l.Relation),
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// DeleteLink removes a link. Removing an absent link is a no-op.
func (s *Store) DeleteLink(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM entity_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// GetLink fetches a link by id.
func (s *Store) GetLink(ctx context.Context, id string) (core.Link, error) {
	var (
		l                core.Link
		srcType, tgtType string
		relation         string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_type, source_id, target_type, target_id, relation, created_at
		FROM entity_links WHERE id = ?
	`, id).Scan(&l.ID, &srcType, &l.SourceID, &tgtType, &l.TargetID, &relation, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Link{}, fmt.Errorf("link %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Link{}, fmt.Errorf("get link: %w", err)
	}
	l.SourceType = core.EntityType(srcType)
	l.TargetType = core.EntityType(tgtType)
	l.Relation = core.LinkRelation(relation)
	return l, nil
}

// ListLinks returns links touching the given entity, as source or target.
// Returns an empty slice, never nil.
func (s *Store) ListLinks(ctx context.Context, entityType core.EntityType, entityID string) ([]core.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, target_type, target_id, relation, created_at
		FROM entity_links
		WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, string(entityType), entityID, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []core.Link{}
	for rows.Next() {
		var (
			lk               core.Link
			srcType, tgtType string
			relation         string
		)
		if err := rows.Scan(&lk.ID, &srcType, &lk.SourceID, &tgtType, &lk.TargetID, &relation, &lk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		lk.SourceType = core.EntityType(srcType)
		lk.TargetType = core.EntityType(tgtType)
		lk.Relation = core.LinkRelation(relation)
		links = append(links, lk)
	}
	return links, rows.Err()
}
