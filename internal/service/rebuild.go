package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/trail"
)

// Rebuild wipes the replayable tables and reconstructs them from the
// trail files under trailDir. The trail writer and audit log are disabled
// for the duration so replaying does not record anything a second time.
// Catalog entries survive the rebuild; they have no trail to replay from.
//
// In strict mode, create payloads are schema-validated before the first
// write and any violation aborts the whole rebuild.
func (s *Service) Rebuild(ctx context.Context, trailDir string, strict bool) (trail.RebuildSummary, error) {
	s.trail.SetEnabled(false)
	s.setAuditEnabled(false)
	defer func() {
		s.trail.SetEnabled(true)
		s.setAuditEnabled(true)
	}()

	if err := s.store.Reset(ctx); err != nil {
		return trail.RebuildSummary{}, fmt.Errorf("rebuild: %w", err)
	}

	summary, err := trail.NewReplayer(s.store, s.reg).Replay(ctx, trailDir, strict)
	if err != nil {
		return trail.RebuildSummary{}, fmt.Errorf("rebuild: %w", err)
	}
	return summary, nil
}
