package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lorekit/lore/internal/core"
)

// RegisterCatalogEntry registers a dataset at its coordinate. The
// coordinate tuple is the table's primary key and the insert uses ON
// CONFLICT DO NOTHING, so two concurrent registrations of the same tuple
// collapse to one row at the SQLite level - no check-then-insert race.
// Returns whether this call inserted the row.
func (s *Store) RegisterCatalogEntry(ctx context.Context, entry core.CatalogEntry) (inserted bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_entries
		(id, ecosystem, package, version, dataset_path, visibility, org_id, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ecosystem, package, version, dataset_path) DO NOTHING
	`,
		entry.ID,
		entry.Ecosystem,
		entry.Package,
		entry.Version,
		entry.DatasetPath,
		string(entry.Visibility),
		nullable(entry.OrgID),
		nullable(entry.OwnerID),
		entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("register catalog entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("register catalog entry: rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListCatalog returns catalog entries visible in scope, optionally
// narrowed to one coordinate. Returns an empty slice, never nil.
func (s *Store) ListCatalog(ctx context.Context, scope Scope, coord *core.Coordinate) ([]core.CatalogEntry, error) {
	filter, args := scope.catalogFilter()
	query := `
		SELECT id, ecosystem, package, version, dataset_path, visibility, org_id, owner_id, created_at
		FROM catalog_entries
		WHERE 1=1` + filter
	if coord != nil {
		query += ` AND ecosystem = ? AND package = ? AND version = ?`
		args = append(args, coord.Ecosystem, coord.Package, coord.Version)
	}
	query += `
		ORDER BY ecosystem, package, version, dataset_path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	entries := []core.CatalogEntry{}
	for rows.Next() {
		var (
			e              core.CatalogEntry
			orgID, ownerID sql.NullString
			visibility     string
		)
		if err := rows.Scan(&e.ID, &e.Ecosystem, &e.Package, &e.Version, &e.DatasetPath, &visibility, &orgID, &ownerID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.Visibility = core.Visibility(visibility)
		e.OrgID = ptr(orgID)
		e.OwnerID = ptr(ownerID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PublicDatasetPaths returns the public dataset paths already registered
// at a coordinate. Indexers call this before doing redundant work;
// deliberately ignores team and private entries regardless of caller.
func (s *Store) PublicDatasetPaths(ctx context.Context, coord core.Coordinate) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset_path FROM catalog_entries
		WHERE ecosystem = ? AND package = ? AND version = ? AND visibility = 'public'
		ORDER BY dataset_path
	`, coord.Ecosystem, coord.Package, coord.Version)
	if err != nil {
		return nil, fmt.Errorf("public dataset paths: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan dataset path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
