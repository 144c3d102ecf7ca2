// Package service is the mutation orchestrator. Every mutation follows
// the same protocol inside one store transaction: entity write, audit
// insert, trail append (file I/O, pre-commit), commit. A failed trail
// append rolls the transaction back, so the store never holds state the
// trail doesn't.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/schema"
	"github.com/lorekit/lore/internal/store"
	"github.com/lorekit/lore/internal/trail"
)

// timeLayout is RFC3339 with fixed-width milliseconds, so timestamp
// strings sort lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Service wires the store, trail writer, schema registry, and caller
// identity together. The identity is fixed for the service lifetime; a
// different caller gets a different Service.
type Service struct {
	store *store.Store
	trail *trail.Writer
	reg   *schema.Registry
	id    core.Identity
	now   func() time.Time

	mu           sync.Mutex
	auditEnabled bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Tests use a deterministic clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service for one caller identity.
func New(st *store.Store, w *trail.Writer, reg *schema.Registry, id core.Identity, opts ...Option) *Service {
	s := &Service{
		store:        st,
		trail:        w,
		reg:          reg,
		id:           id,
		now:          time.Now,
		auditEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the caller identity this service was built for.
func (s *Service) Identity() core.Identity { return s.id }

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *Service) scope() store.Scope {
	return store.ScopeFor(s.id)
}

// mutate runs the mutation protocol: write, audit, trail append, commit.
func (s *Service) mutate(ctx context.Context, op core.Operation, rec core.AuditRecord, write func(q store.Querier) error) error {
	return s.store.WithTx(ctx, func(q store.Querier) error {
		if err := write(q); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, q, rec); err != nil {
			return err
		}
		// Trail last, still pre-commit: once this returns the line is on
		// disk, and only then may the transaction commit.
		if err := s.trail.AppendValidated(op, s.reg); err != nil {
			return err
		}
		return nil
	})
}

func (s *Service) appendAudit(ctx context.Context, q store.Querier, rec core.AuditRecord) error {
	s.mu.Lock()
	enabled := s.auditEnabled
	s.mu.Unlock()
	if !enabled {
		return nil
	}
	return s.store.InsertAudit(ctx, q, rec)
}

func (s *Service) setAuditEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEnabled = enabled
}

// auditRecord builds the audit row for a mutation. detail carries the
// operation payload as JSON when it has one.
func (s *Service) auditRecord(sessionID string, entity core.EntityType, entityID string, action core.AuditAction, data map[string]any, ts string) core.AuditRecord {
	rec := core.AuditRecord{
		ID:         core.NewID(core.PrefixAudit),
		EntityType: string(entity),
		EntityID:   entityID,
		Action:     action,
		CreatedAt:  ts,
	}
	if sessionID != "" {
		rec.SessionID = &sessionID
	}
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			detail := string(b)
			rec.Detail = &detail
		}
	}
	return rec
}

// operation builds a trail envelope.
func (s *Service) operation(ts, sessionID string, kind core.Op, entity core.EntityType, id string, data map[string]any) core.Operation {
	return core.Operation{
		V:       core.TrailVersion,
		TS:      ts,
		Session: sessionID,
		Op:      kind,
		Entity:  entity,
		ID:      id,
		Data:    data,
	}
}

// requireSession checks that a mutation carries the session whose trail
// file records it.
func requireSession(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("mutation requires a session: %w", core.NewInvalidInputError("empty session id"))
	}
	return nil
}
