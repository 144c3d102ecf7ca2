package trail

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/schema"
	"github.com/lorekit/lore/internal/store"
)

type replayFixture struct {
	store  *store.Store
	writer *Writer
	dir    string
}

func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	return &replayFixture{store: st, writer: NewWriter(dir), dir: dir}
}

func (f *replayFixture) replay(t *testing.T, strict bool) RebuildSummary {
	t.Helper()
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	summary, err := NewReplayer(f.store, reg).Replay(context.Background(), f.dir, strict)
	require.NoError(t, err)
	return summary
}

func op(ts, ses string, kind core.Op, entity core.EntityType, id string, data map[string]any) core.Operation {
	return core.Operation{V: core.TrailVersion, TS: ts, Session: ses, Op: kind, Entity: entity, ID: id, Data: data}
}

func sessionCreate(ts, id string) core.Operation {
	return op(ts, id, core.OpCreate, core.EntitySession, id, map[string]any{
		"id": id, "started_at": ts, "ended_at": nil, "status": "active", "summary": nil, "org_id": nil,
	})
}

func findingCreate(ts, ses, id, content string) core.Operation {
	return op(ts, ses, core.OpCreate, core.EntityFinding, id, map[string]any{
		"id": id, "session_id": ses, "content": content, "source": nil,
		"confidence": "medium", "org_id": nil, "created_at": ts, "updated_at": ts,
	})
}

func TestReplayRebuildsEntities(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-1")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:01Z", "ses-1", "fnd-1", "the scheduler steals work")))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:02Z", "ses-1", core.OpUpdate, core.EntityFinding, "fnd-1",
		map[string]any{"confidence": "high"})))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:03Z", "ses-1", core.OpTag, core.EntityFinding, "fnd-1",
		map[string]any{"tag": "runtime"})))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:04Z", "ses-1", core.OpTransition, core.EntitySession, "ses-1",
		map[string]any{"from": "active", "to": "ended", "ended_at": "2026-01-02T03:00:04Z", "summary": "done"})))

	summary := f.replay(t, false)
	assert.Equal(t, 1, summary.TrailFiles)
	assert.Equal(t, 5, summary.OperationsReplayed)
	assert.Equal(t, 2, summary.EntitiesCreated)

	finding, err := f.store.GetFinding(ctx, "fnd-1")
	require.NoError(t, err)
	assert.Equal(t, "the scheduler steals work", finding.Content)
	assert.Equal(t, core.ConfidenceHigh, finding.Confidence)
	assert.Equal(t, []string{"runtime"}, finding.Tags)

	sess, err := f.store.GetSession(ctx, "ses-1")
	require.NoError(t, err)
	assert.Equal(t, core.SessionEnded, sess.Status)
	require.NotNil(t, sess.Summary)
	assert.Equal(t, "done", *sess.Summary)

	// Search works on the rebuilt store: the FTS index repopulated via
	// the write-time triggers.
	hits, err := f.store.SearchFindings(ctx, store.Scope{}, "scheduler", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fnd-1", hits[0].ID)

	// Replay produces no audit records.
	count, err := f.store.CountAudit(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplayIsIdempotent(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-1")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:01Z", "ses-1", "fnd-1", "alpha")))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:02Z", "ses-1", core.OpTag, core.EntityFinding, "fnd-1",
		map[string]any{"tag": "a"})))

	f.replay(t, false)
	f.replay(t, false) // second replay over the same store

	findings, err := f.store.ListFindings(ctx, store.Scope{}, 10)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"a"}, findings[0].Tags)
}

func TestReplayMergesFilesChronologically(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// Two sessions interleaved in time. The finding is created in ses-2
	// at 03:00:01 and updated from ses-1 at 03:00:03; applying in file
	// order instead of time order would lose the update.
	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-2")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:01Z", "ses-2", "fnd-1", "draft wording")))
	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:02Z", "ses-1")))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:03Z", "ses-1", core.OpUpdate, core.EntityFinding, "fnd-1",
		map[string]any{"content": "final wording"})))

	f.replay(t, false)

	finding, err := f.store.GetFinding(ctx, "fnd-1")
	require.NoError(t, err)
	assert.Equal(t, "final wording", finding.Content)
}

func TestReplayDeleteAndUnlink(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-1")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:01Z", "ses-1", "fnd-1", "keep")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:02Z", "ses-1", "fnd-2", "remove")))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:03Z", "ses-1", core.OpLink, core.EntityLink, "lnk-1",
		map[string]any{"source_type": "finding", "source_id": "fnd-1", "target_type": "finding", "target_id": "fnd-2", "relation": "relates_to"})))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:04Z", "ses-1", core.OpUnlink, core.EntityLink, "lnk-1", map[string]any{})))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:05Z", "ses-1", core.OpDelete, core.EntityFinding, "fnd-2", map[string]any{})))

	f.replay(t, false)

	_, err := f.store.GetFinding(ctx, "fnd-2")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.store.GetLink(ctx, "lnk-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.store.GetFinding(ctx, "fnd-1")
	assert.NoError(t, err)
}

func TestReplayUpdateTriStateNull(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	create := findingCreate("2026-01-02T03:00:00Z", "ses-1", "fnd-1", "content")
	create.Data["source"] = "profiler"
	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T02:59:59Z", "ses-1")))
	require.NoError(t, f.writer.Append(create))
	require.NoError(t, f.writer.Append(op("2026-01-02T03:00:01Z", "ses-1", core.OpUpdate, core.EntityFinding, "fnd-1",
		map[string]any{"source": nil})))

	f.replay(t, false)

	finding, err := f.store.GetFinding(ctx, "fnd-1")
	require.NoError(t, err)
	assert.Nil(t, finding.Source, "explicit null in the trail clears the column")
	assert.Equal(t, "content", finding.Content, "absent keys stay untouched")
}

func TestReplayUnsupportedVersionAbortsBeforeAnyWrite(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// Valid operations first, the bad version last: the pre-pass must
	// still leave the store empty.
	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-1")))
	require.NoError(t, f.writer.Append(findingCreate("2026-01-02T03:00:01Z", "ses-1", "fnd-1", "valid")))
	bad := findingCreate("2026-01-02T03:00:02Z", "ses-1", "fnd-2", "from the future")
	bad.V = 99
	require.NoError(t, f.writer.Append(bad))

	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	_, err = NewReplayer(f.store, reg).Replay(ctx, f.dir, false)
	require.Error(t, err)
	assert.True(t, core.IsUnsupportedVersion(err))

	findings, err := f.store.ListFindings(ctx, store.Scope{}, 10)
	require.NoError(t, err)
	assert.Empty(t, findings)
	sessions, err := f.store.ListSessions(ctx, store.Scope{}, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestReplayDefaultsMissingVersion(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// A line written before the envelope carried a version field.
	legacy := `{"ts":"2026-01-02T03:00:00Z","ses":"ses-1","op":"create","entity":"finding","id":"fnd-1","data":{"id":"fnd-1","session_id":"ses-1","content":"legacy line","source":null,"confidence":"low","org_id":null,"created_at":"2026-01-02T03:00:00Z","updated_at":"2026-01-02T03:00:00Z"}}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "ses-1.jsonl"), []byte(legacy), 0o644))

	summary := f.replay(t, false)
	assert.Equal(t, 1, summary.OperationsReplayed)

	finding, err := f.store.GetFinding(ctx, "fnd-1")
	require.NoError(t, err)
	assert.Equal(t, "legacy line", finding.Content)
}

func TestReplayStrictAbortsOnSchemaViolation(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	require.NoError(t, f.writer.Append(sessionCreate("2026-01-02T03:00:00Z", "ses-1")))
	bad := findingCreate("2026-01-02T03:00:01Z", "ses-1", "fnd-1", "x")
	bad.Data["confidence"] = "certain"
	require.NoError(t, f.writer.Append(bad))

	reg, err := schema.NewRegistry()
	require.NoError(t, err)

	_, err = NewReplayer(f.store, reg).Replay(ctx, f.dir, true)
	require.Error(t, err)
	assert.True(t, core.IsValidationFailed(err))

	// Strict validation also runs before the first write.
	sessions, lerr := f.store.ListSessions(ctx, store.Scope{}, 10)
	require.NoError(t, lerr)
	assert.Empty(t, sessions)

	// The same trail replays fine in normal mode.
	summary, err := NewReplayer(f.store, reg).Replay(ctx, f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OperationsReplayed)
}

func TestReplayPreservesOrgID(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	create := findingCreate("2026-01-02T03:00:00Z", "ses-1", "fnd-1", "scoped row")
	create.Data["org_id"] = "org-acme"
	require.NoError(t, f.writer.Append(create))

	f.replay(t, false)

	finding, err := f.store.GetFinding(ctx, "fnd-1")
	require.NoError(t, err)
	require.NotNil(t, finding.OrgID)
	assert.Equal(t, "org-acme", *finding.OrgID)
}

func TestReplayEmptyDir(t *testing.T) {
	f := newReplayFixture(t)

	summary := f.replay(t, false)
	assert.True(t, summary.Rebuilt)
	assert.Zero(t, summary.TrailFiles)
	assert.Zero(t, summary.OperationsReplayed)
}
