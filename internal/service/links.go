package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// AddLink relates two entities.
func (s *Service) AddLink(ctx context.Context, sessionID string, sourceType core.EntityType, sourceID string, targetType core.EntityType, targetID string, relation core.LinkRelation) (core.Link, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Link{}, err
	}
	if !core.ValidEntityType(string(sourceType)) || !core.ValidEntityType(string(targetType)) {
		return core.Link{}, core.NewInvalidInputError("unknown entity type in link")
	}
	if sourceID == "" || targetID == "" {
		return core.Link{}, core.NewInvalidInputError("link endpoints are required")
	}
	if !core.ValidLinkRelation(string(relation)) {
		return core.Link{}, core.NewInvalidInputError(fmt.Sprintf("unknown relation %q", relation))
	}

	ts := s.timestamp()
	l := core.Link{
		ID:         core.NewID(core.PrefixLink),
		SourceType: sourceType,
		SourceID:   sourceID,
		TargetType: targetType,
		TargetID:   targetID,
		Relation:   relation,
		CreatedAt:  ts,
	}

	data := map[string]any{
		"source_type": string(l.SourceType),
		"source_id":   l.SourceID,
		"target_type": string(l.TargetType),
		"target_id":   l.TargetID,
		"relation":    string(l.Relation),
	}
	op := s.operation(ts, sessionID, core.OpLink, core.EntityLink, l.ID, data)
	rec := s.auditRecord(sessionID, core.EntityLink, l.ID, core.AuditLinked, data, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.InsertLink(ctx, q, l)
	})
	if err != nil {
		return core.Link{}, fmt.Errorf("add link: %w", err)
	}
	return l, nil
}

// RemoveLink deletes a link.
func (s *Service) RemoveLink(ctx context.Context, sessionID, id string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if _, err := s.store.GetLink(ctx, id); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}

	ts := s.timestamp()
	op := s.operation(ts, sessionID, core.OpUnlink, core.EntityLink, id, map[string]any{})
	rec := s.auditRecord(sessionID, core.EntityLink, id, core.AuditUnlinked, nil, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.DeleteLink(ctx, q, id)
	})
	if err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}

// ListLinks returns links touching the given entity.
func (s *Service) ListLinks(ctx context.Context, entityType core.EntityType, entityID string) ([]core.Link, error) {
	if !core.ValidEntityType(string(entityType)) {
		return nil, core.NewInvalidInputError("unknown entity type")
	}
	return s.store.ListLinks(ctx, entityType, entityID)
}
