package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekit/lore/internal/core"
)

func TestQueryAuditFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seed := []core.AuditRecord{
		{ID: "aud-1", SessionID: strp("ses-1"), EntityType: "finding", EntityID: "fnd-1", Action: core.AuditCreated, CreatedAt: "2026-01-02T03:00:01Z"},
		{ID: "aud-2", SessionID: strp("ses-1"), EntityType: "finding", EntityID: "fnd-1", Action: core.AuditUpdated, CreatedAt: "2026-01-02T03:00:02Z"},
		{ID: "aud-3", SessionID: strp("ses-2"), EntityType: "task", EntityID: "tsk-1", Action: core.AuditCreated, CreatedAt: "2026-01-02T03:00:03Z"},
	}
	for _, rec := range seed {
		require.NoError(t, s.InsertAudit(ctx, s.DB(), rec))
	}

	records, err := s.QueryAudit(ctx, AuditFilter{EntityType: "finding", EntityID: "fnd-1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "aud-2", records[0].ID, "most recent first")

	records, err = s.QueryAudit(ctx, AuditFilter{Action: core.AuditCreated})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.QueryAudit(ctx, AuditFilter{SessionID: "ses-2"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "aud-3", records[0].ID)
}

func TestQueryAuditDefaultLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		rec := core.AuditRecord{
			ID:         core.NewID(core.PrefixAudit),
			EntityType: "finding",
			EntityID:   "fnd-1",
			Action:     core.AuditUpdated,
			CreatedAt:  fmt.Sprintf("2026-01-02T03:00:%02dZ", i%60),
		}
		require.NoError(t, s.InsertAudit(ctx, s.DB(), rec))
	}

	records, err := s.QueryAudit(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
