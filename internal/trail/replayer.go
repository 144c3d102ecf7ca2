package trail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/schema"
	"github.com/lorekit/lore/internal/store"
)

// RebuildSummary reports what a replay did.
type RebuildSummary struct {
	Rebuilt            bool   `json:"rebuilt"`
	TrailFiles         int    `json:"trail_files"`
	OperationsReplayed int    `json:"operations_replayed"`
	EntitiesCreated    int    `json:"entities_created"`
	DurationMS         int64  `json:"duration_ms"`
}

// Replayer rebuilds the relational store from trail files. It writes to
// the store directly - never through the mutation orchestrator - so no
// audit records and no new trail lines are produced while replaying.
type Replayer struct {
	store *store.Store
	reg   *schema.Registry
}

// NewReplayer creates a replayer over an open store.
func NewReplayer(st *store.Store, reg *schema.Registry) *Replayer {
	return &Replayer{store: st, reg: reg}
}

// located is one decoded operation with its provenance for error messages
// and for preserving intra-file order on equal timestamps.
type located struct {
	file string
	line int
	at   time.Time
	ok   bool
	op   core.Operation
}

// Replay loads every *.jsonl file under dir, merges all operations into a
// single chronological sequence, validates the whole sequence, then
// applies it. Validation happens before the first write: a trail
// containing an unsupported envelope version leaves the store with zero
// replayed entities. In strict mode, create payloads are additionally
// schema-validated up front and any violation aborts the same way.
func (r *Replayer) Replay(ctx context.Context, dir string, strict bool) (RebuildSummary, error) {
	start := time.Now()

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return RebuildSummary{}, fmt.Errorf("replay: list trail files: %w", err)
	}
	sort.Strings(files)

	var ops []located
	for _, file := range files {
		fileOps, err := readTrailFile(file)
		if err != nil {
			return RebuildSummary{}, err
		}
		ops = append(ops, fileOps...)
	}

	// Stable sort by timestamp: operations from different sessions merge
	// chronologically, and equal timestamps keep their within-file order.
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].ok && ops[j].ok {
			return ops[i].at.Before(ops[j].at)
		}
		return ops[i].op.TS < ops[j].op.TS
	})

	if err := r.validate(ops, strict); err != nil {
		return RebuildSummary{}, err
	}

	summary := RebuildSummary{Rebuilt: true, TrailFiles: len(files)}
	for _, l := range ops {
		if err := r.apply(ctx, l.op); err != nil {
			return RebuildSummary{}, fmt.Errorf("replay: %s:%d: %w", l.file, l.line, err)
		}
		summary.OperationsReplayed++
		if l.op.Op == core.OpCreate || l.op.Op == core.OpLink {
			summary.EntitiesCreated++
		}
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	slog.Info("trail replay complete",
		"files", summary.TrailFiles,
		"operations", summary.OperationsReplayed,
		"entities", summary.EntitiesCreated,
		"duration_ms", summary.DurationMS)
	return summary, nil
}

// validate runs the pre-write pass over the merged sequence.
func (r *Replayer) validate(ops []located, strict bool) error {
	for _, l := range ops {
		if l.op.V != core.TrailVersion {
			return fmt.Errorf("replay: %s:%d: %w", l.file, l.line,
				core.NewUnsupportedVersionError(l.op.V, filepath.Base(l.file)))
		}
		if strict && l.op.Op == core.OpCreate {
			if err := r.reg.Validate(l.op.Entity, l.op.Data, schema.Strict); err != nil {
				return fmt.Errorf("replay: %s:%d: %w", l.file, l.line, err)
			}
		}
	}
	return nil
}

func readTrailFile(file string) ([]located, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", file, err)
	}
	defer f.Close()

	var ops []located
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var op core.Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("replay: %s:%d: decode: %w", file, line, err)
		}
		at, perr := time.Parse(time.RFC3339Nano, op.TS)
		ops = append(ops, located{file: file, line: line, at: at, ok: perr == nil, op: op})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: read %s: %w", file, err)
	}
	return ops, nil
}

// apply dispatches one operation to its idempotent store write.
func (r *Replayer) apply(ctx context.Context, op core.Operation) error {
	q := r.store.DB()

	switch op.Op {
	case core.OpCreate:
		return r.applyCreate(ctx, op)
	case core.OpUpdate:
		return r.store.ApplyUpdate(ctx, q, op.Entity, op.ID, op.Data, op.TS, nil)
	case core.OpTransition:
		return r.applyTransition(ctx, op)
	case core.OpTag:
		return r.store.InsertFindingTag(ctx, q, op.ID, getStr(op.Data, "tag"))
	case core.OpUntag:
		return r.store.DeleteFindingTag(ctx, q, op.ID, getStr(op.Data, "tag"))
	case core.OpLink:
		return r.store.InsertLink(ctx, q, core.Link{
			ID:         op.ID,
			SourceType: core.EntityType(getStr(op.Data, "source_type")),
			SourceID:   getStr(op.Data, "source_id"),
			TargetType: core.EntityType(getStr(op.Data, "target_type")),
			TargetID:   getStr(op.Data, "target_id"),
			Relation:   core.LinkRelation(getStr(op.Data, "relation")),
			CreatedAt:  op.TS,
		})
	case core.OpUnlink:
		return r.store.DeleteLink(ctx, q, op.ID)
	case core.OpDelete:
		return r.store.DeleteByID(ctx, q, op.Entity, op.ID)
	default:
		// Unknown ops from a same-version newer writer are skipped, not
		// fatal: the envelope version gates compatibility, not op names.
		slog.Warn("skipping unknown trail op", "op", op.Op, "entity", op.Entity, "id", op.ID)
		return nil
	}
}

func (r *Replayer) applyCreate(ctx context.Context, op core.Operation) error {
	q := r.store.DB()
	d := op.Data

	switch op.Entity {
	case core.EntitySession:
		return r.store.InsertSession(ctx, q, core.Session{
			ID:        op.ID,
			StartedAt: getStrOr(d, "started_at", op.TS),
			EndedAt:   getStrPtr(d, "ended_at"),
			Status:    core.SessionStatus(getStrOr(d, "status", string(core.SessionActive))),
			Summary:   getStrPtr(d, "summary"),
			OrgID:     getStrPtr(d, "org_id"),
		})
	case core.EntityFinding:
		f := core.Finding{
			ID:         op.ID,
			SessionID:  getStrPtr(d, "session_id"),
			Content:    getStr(d, "content"),
			Source:     getStrPtr(d, "source"),
			Confidence: core.Confidence(getStrOr(d, "confidence", string(core.ConfidenceMedium))),
			OrgID:      getStrPtr(d, "org_id"),
			CreatedAt:  getStrOr(d, "created_at", op.TS),
			UpdatedAt:  getStrOr(d, "updated_at", op.TS),
		}
		if err := r.store.InsertFinding(ctx, q, f); err != nil {
			return err
		}
		for _, tag := range getStrSlice(d, "tags") {
			if err := r.store.InsertFindingTag(ctx, q, op.ID, tag); err != nil {
				return err
			}
		}
		return nil
	case core.EntityTask:
		return r.store.InsertTask(ctx, q, core.Task{
			ID:          op.ID,
			SessionID:   getStrPtr(d, "session_id"),
			Title:       getStr(d, "title"),
			Description: getStrPtr(d, "description"),
			Status:      core.TaskStatus(getStrOr(d, "status", string(core.TaskOpen))),
			OrgID:       getStrPtr(d, "org_id"),
			CreatedAt:   getStrOr(d, "created_at", op.TS),
			UpdatedAt:   getStrOr(d, "updated_at", op.TS),
		})
	case core.EntityLink:
		return r.store.InsertLink(ctx, q, core.Link{
			ID:         op.ID,
			SourceType: core.EntityType(getStr(d, "source_type")),
			SourceID:   getStr(d, "source_id"),
			TargetType: core.EntityType(getStr(d, "target_type")),
			TargetID:   getStr(d, "target_id"),
			Relation:   core.LinkRelation(getStr(d, "relation")),
			CreatedAt:  getStrOr(d, "created_at", op.TS),
		})
	default:
		return fmt.Errorf("create: unknown entity type %q", op.Entity)
	}
}

func (r *Replayer) applyTransition(ctx context.Context, op core.Operation) error {
	q := r.store.DB()

	switch op.Entity {
	case core.EntitySession:
		if core.SessionStatus(getStr(op.Data, "to")) != core.SessionEnded {
			return fmt.Errorf("transition: session target %q", getStr(op.Data, "to"))
		}
		return r.store.EndSession(ctx, q, op.ID, getStrOr(op.Data, "ended_at", op.TS), getStrPtr(op.Data, "summary"))
	case core.EntityTask:
		to := core.TaskStatus(getStr(op.Data, "to"))
		if !core.ValidTaskStatus(string(to)) {
			return fmt.Errorf("transition: task target %q", string(to))
		}
		return r.store.SetTaskStatus(ctx, q, op.ID, to, op.TS)
	default:
		return fmt.Errorf("transition: entity %q has no state machine", op.Entity)
	}
}

func getStr(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func getStrOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// getStrPtr returns nil for both an absent key and an explicit null.
// For full create snapshots the two mean the same thing: no value.
func getStrPtr(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

func getStrSlice(m map[string]any, key string) []string {
	raw, _ := m[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
