package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lorekit/lore/internal/core"
)

// entityTable maps an entity type to its table.
var entityTable = map[core.EntityType]string{
	core.EntitySession: "sessions",
	core.EntityFinding: "findings",
	core.EntityTask:    "tasks",
	core.EntityLink:    "entity_links",
}

// TableFor returns the table backing an entity type.
func TableFor(entity core.EntityType) (string, bool) {
	t, ok := entityTable[entity]
	return t, ok
}

// updatableColumns whitelists the columns an update payload may touch, per
// entity. Payload keys come from trail files on disk, so they are never
// interpolated into SQL without passing this list.
var updatableColumns = map[core.EntityType]map[string]bool{
	core.EntitySession: {"summary": true},
	core.EntityFinding: {"content": true, "source": true, "confidence": true},
	core.EntityTask:    {"title": true, "description": true},
}

// tablesWithUpdatedAt lists entities whose table carries an updated_at
// column to stamp on every update.
var tablesWithUpdatedAt = map[core.EntityType]bool{
	core.EntityFinding: true,
	core.EntityTask:    true,
}

// ApplyUpdate applies a changed-fields payload to one row. The payload's
// tri-state semantics map directly to SQL: an absent key contributes no
// SET clause, an explicit null sets the column to NULL, a value sets the
// value. Unknown keys are skipped with a warning so trails written by
// newer builds still replay. Columns are emitted in sorted key order for
// deterministic statements.
//
// Live callers pass their scope so the WHERE clause enforces org
// visibility; replay passes nil because recorded operations were already
// scoped when they happened.
func (s *Store) ApplyUpdate(ctx context.Context, q Querier, entity core.EntityType, id string, payload map[string]any, updatedAt string, scope *Scope) error {
	table, ok := entityTable[entity]
	if !ok {
		return fmt.Errorf("apply update: unknown entity type %q", entity)
	}
	allowed, ok := updatableColumns[entity]
	if !ok {
		return fmt.Errorf("apply update: entity %q does not support updates", entity)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if !allowed[k] {
			slog.Warn("skipping unknown update column", "entity", entity, "column", k)
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	query := "UPDATE " + table + " SET "
	var args []any
	for i, k := range keys {
		if i > 0 {
			query += ", "
		}
		query += k + " = ?"
		args = append(args, payload[k])
	}
	if tablesWithUpdatedAt[entity] {
		query += ", updated_at = ?"
		args = append(args, updatedAt)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if scope != nil {
		filter, scopeArgs := scope.entityFilter()
		query += filter
		args = append(args, scopeArgs...)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}
