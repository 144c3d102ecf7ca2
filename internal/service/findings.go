package service

import (
	"context"
	"fmt"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// AddFinding captures a new finding in the given session. Content is
// NFC-normalized; an empty confidence defaults to medium.
func (s *Service) AddFinding(ctx context.Context, sessionID, content string, source *string, confidence core.Confidence, tags []string) (core.Finding, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Finding{}, err
	}
	content = core.NormalizeText(content)
	if content == "" {
		return core.Finding{}, core.NewInvalidInputError("finding content is empty")
	}
	if confidence == "" {
		confidence = core.ConfidenceMedium
	}
	if !core.ValidConfidence(string(confidence)) {
		return core.Finding{}, core.NewInvalidInputError(fmt.Sprintf("unknown confidence %q", confidence))
	}

	ts := s.timestamp()
	f := core.Finding{
		ID:         core.NewID(core.PrefixFinding),
		SessionID:  &sessionID,
		Content:    content,
		Source:     source,
		Confidence: confidence,
		OrgID:      s.id.OrgIDPtr(),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	for _, tag := range tags {
		if t := core.NormalizeTag(tag); t != "" {
			f.Tags = append(f.Tags, t)
		}
	}

	data := findingSnapshot(f)
	op := s.operation(ts, sessionID, core.OpCreate, core.EntityFinding, f.ID, data)
	rec := s.auditRecord(sessionID, core.EntityFinding, f.ID, core.AuditCreated, nil, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		if err := s.store.InsertFinding(ctx, q, f); err != nil {
			return err
		}
		for _, tag := range f.Tags {
			if err := s.store.InsertFindingTag(ctx, q, f.ID, tag); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Finding{}, fmt.Errorf("add finding: %w", err)
	}
	return f, nil
}

// UpdateFinding applies a partial update. The builder's payload drives
// both the SQL SET clauses and the trail line, so the recorded operation
// is exactly what was applied.
func (s *Service) UpdateFinding(ctx context.Context, sessionID, id string, upd core.FindingUpdate) (core.Finding, error) {
	if err := requireSession(sessionID); err != nil {
		return core.Finding{}, err
	}
	if upd.Empty() {
		return core.Finding{}, core.NewInvalidInputError("update changes nothing")
	}
	if upd.Confidence.IsSet() && !core.ValidConfidence(string(upd.Confidence.Value())) {
		return core.Finding{}, core.NewInvalidInputError(fmt.Sprintf("unknown confidence %q", upd.Confidence.Value()))
	}
	if upd.Content.IsSet() && core.NormalizeText(upd.Content.Value()) == "" {
		return core.Finding{}, core.NewInvalidInputError("finding content is empty")
	}
	if _, err := s.store.GetFinding(ctx, id); err != nil {
		return core.Finding{}, fmt.Errorf("update finding: %w", err)
	}

	ts := s.timestamp()
	payload := upd.Payload()
	op := s.operation(ts, sessionID, core.OpUpdate, core.EntityFinding, id, payload)
	rec := s.auditRecord(sessionID, core.EntityFinding, id, core.AuditUpdated, payload, ts)

	scope := s.scope()
	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.ApplyUpdate(ctx, q, core.EntityFinding, id, payload, ts, &scope)
	})
	if err != nil {
		return core.Finding{}, fmt.Errorf("update finding: %w", err)
	}
	return s.store.GetFinding(ctx, id)
}

// DeleteFinding removes a finding visible to the caller.
func (s *Service) DeleteFinding(ctx context.Context, sessionID, id string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if _, err := s.store.GetFinding(ctx, id); err != nil {
		return fmt.Errorf("delete finding: %w", err)
	}

	ts := s.timestamp()
	op := s.operation(ts, sessionID, core.OpDelete, core.EntityFinding, id, map[string]any{})
	rec := s.auditRecord(sessionID, core.EntityFinding, id, core.AuditDeleted, nil, ts)

	scope := s.scope()
	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		return s.store.DeleteFinding(ctx, q, id, scope)
	})
	if err != nil {
		return fmt.Errorf("delete finding: %w", err)
	}
	return nil
}

// TagFinding attaches a tag. Tagging twice is a no-op.
func (s *Service) TagFinding(ctx context.Context, sessionID, id, tag string) error {
	return s.tagOp(ctx, sessionID, id, tag, core.OpTag, core.AuditTagged)
}

// UntagFinding removes a tag. Removing an absent tag is a no-op.
func (s *Service) UntagFinding(ctx context.Context, sessionID, id, tag string) error {
	return s.tagOp(ctx, sessionID, id, tag, core.OpUntag, core.AuditUntagged)
}

func (s *Service) tagOp(ctx context.Context, sessionID, id, tag string, kind core.Op, action core.AuditAction) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	tag = core.NormalizeTag(tag)
	if tag == "" {
		return core.NewInvalidInputError("empty tag")
	}
	if _, err := s.store.GetFinding(ctx, id); err != nil {
		return fmt.Errorf("%s finding: %w", kind, err)
	}

	ts := s.timestamp()
	data := map[string]any{"tag": tag}
	op := s.operation(ts, sessionID, kind, core.EntityFinding, id, data)
	rec := s.auditRecord(sessionID, core.EntityFinding, id, action, data, ts)

	err := s.mutate(ctx, op, rec, func(q store.Querier) error {
		if kind == core.OpTag {
			return s.store.InsertFindingTag(ctx, q, id, tag)
		}
		return s.store.DeleteFindingTag(ctx, q, id, tag)
	})
	if err != nil {
		return fmt.Errorf("%s finding: %w", kind, err)
	}
	return nil
}

// GetFinding fetches a finding by id.
func (s *Service) GetFinding(ctx context.Context, id string) (core.Finding, error) {
	return s.store.GetFinding(ctx, id)
}

// ListFindings returns findings visible to the caller.
func (s *Service) ListFindings(ctx context.Context, limit int) ([]core.Finding, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListFindings(ctx, s.scope(), limit)
}

// SearchFindings runs a full-text search scoped to the caller.
func (s *Service) SearchFindings(ctx context.Context, query string, limit int) ([]core.Finding, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.SearchFindings(ctx, s.scope(), query, limit)
}

func findingSnapshot(f core.Finding) map[string]any {
	data := map[string]any{
		"id":         f.ID,
		"session_id": strOrNil(f.SessionID),
		"content":    f.Content,
		"source":     strOrNil(f.Source),
		"confidence": string(f.Confidence),
		"org_id":     strOrNil(f.OrgID),
		"created_at": f.CreatedAt,
		"updated_at": f.UpdatedAt,
	}
	if len(f.Tags) > 0 {
		tags := make([]any, len(f.Tags))
		for i, t := range f.Tags {
			tags[i] = t
		}
		data["tags"] = tags
	}
	return data
}
