package store

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// DeleteByID deletes one row without scope filtering. Replay uses this to
// re-apply recorded deletes; the delete was already scoped when it
// originally happened.
func (s *Store) DeleteByID(ctx context.Context, q Querier, entity core.EntityType, id string) error {
	table, ok := entityTable[entity]
	if !ok {
		return fmt.Errorf("delete: unknown entity type %q", entity)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	return nil
}

// Reset clears every replayable table plus the audit log so a rebuild
// starts from a clean slate. Catalog entries survive: they are registered
// directly and cannot be reconstructed from trail files. The FTS index
// empties via the delete triggers.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"finding_tags",
		"entity_links",
		"findings",
		"tasks",
		"sessions",
		"audit_trail",
	}
	return s.WithTx(ctx, func(q Querier) error {
		for _, table := range tables {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}
