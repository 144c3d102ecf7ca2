package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// RegisterDataset registers a dataset at a coordinate with the given
// visibility tier. The org is stamped only on team entries; private and
// public entries carry no org. Registration is first-write-wins on the
// coordinate tuple; a lost race reports inserted=false, not an error.
func (s *Service) RegisterDataset(ctx context.Context, coord core.Coordinate, datasetPath string, vis core.Visibility) (core.CatalogEntry, bool, error) {
	if coord.Ecosystem == "" || coord.Package == "" || coord.Version == "" {
		return core.CatalogEntry{}, false, core.NewInvalidInputError("incomplete coordinate")
	}
	if datasetPath == "" {
		return core.CatalogEntry{}, false, core.NewInvalidInputError("dataset path is required")
	}
	if vis == "" {
		vis = core.VisibilityPublic
	}
	if !core.ValidVisibility(string(vis)) {
		return core.CatalogEntry{}, false, core.NewInvalidInputError(fmt.Sprintf("unknown visibility %q", vis))
	}
	if vis == core.VisibilityTeam && !s.id.HasOrg() {
		return core.CatalogEntry{}, false, core.NewInvalidInputError("team visibility requires an org")
	}
	if vis == core.VisibilityPrivate && !s.id.HasUser() {
		return core.CatalogEntry{}, false, core.NewInvalidInputError("private visibility requires a user")
	}

	entry := core.CatalogEntry{
		ID:          core.NewID(core.PrefixCatalog),
		Ecosystem:   coord.Ecosystem,
		Package:     coord.Package,
		Version:     coord.Version,
		DatasetPath: datasetPath,
		Visibility:  vis,
		CreatedAt:   s.timestamp(),
	}
	if vis == core.VisibilityTeam {
		entry.OrgID = s.id.OrgIDPtr()
	}
	if s.id.HasUser() {
		owner := s.id.UserID
		entry.OwnerID = &owner
	}

	inserted, err := s.store.RegisterCatalogEntry(ctx, entry)
	if err != nil {
		return core.CatalogEntry{}, false, fmt.Errorf("register dataset: %w", err)
	}
	return entry, inserted, nil
}

// CheckBeforeIndex returns the public dataset paths already registered at
// a coordinate, so an indexer can skip work someone already published.
func (s *Service) CheckBeforeIndex(ctx context.Context, coord core.Coordinate) ([]string, error) {
	if coord.Ecosystem == "" || coord.Package == "" || coord.Version == "" {
		return nil, core.NewInvalidInputError("incomplete coordinate")
	}
	return s.store.PublicDatasetPaths(ctx, coord)
}

// Catalog lists catalog entries visible to the caller, optionally
// narrowed to one coordinate.
func (s *Service) Catalog(ctx context.Context, coord *core.Coordinate) ([]core.CatalogEntry, error) {
	return s.store.ListCatalog(ctx, s.scope(), coord)
}

// Audit queries the audit log.
func (s *Service) Audit(ctx context.Context, filter store.AuditFilter) ([]core.AuditRecord, error) {
	return s.store.QueryAudit(ctx, filter)
}
