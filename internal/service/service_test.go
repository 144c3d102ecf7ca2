package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/schema"
	"github.com/lorekit/lore/internal/store"
	"github.com/lorekit/lore/internal/testutil"
	"github.com/lorekit/lore/internal/trail"
)

type fixture struct {
	svc      *Service
	store    *store.Store
	writer   *trail.Writer
	trailDir string
}

func newFixture(t *testing.T, id core.Identity) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := schema.NewRegistry()
	require.NoError(t, err)

	trailDir := t.TempDir()
	w := trail.NewWriter(trailDir)

	clock := testutil.NewDeterministicClock(
		time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), time.Second)
	svc := New(st, w, reg, id, WithClock(clock.Now))

	return &fixture{svc: svc, store: st, writer: w, trailDir: trailDir}
}

func (f *fixture) trailLines(t *testing.T, sessionID string) []core.Operation {
	t.Helper()
	raw, err := os.ReadFile(f.writer.Path(sessionID))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var ops []core.Operation
	for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
		var op core.Operation
		require.NoError(t, json.Unmarshal([]byte(line), &op))
		ops = append(ops, op)
	}
	return ops
}

func TestMutationProtocolWritesRowAuditAndTrail(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	finding, err := f.svc.AddFinding(ctx, sess.ID, "maps iterate in random order", nil, core.ConfidenceHigh, []string{"Runtime"})
	require.NoError(t, err)
	assert.Equal(t, []string{"runtime"}, finding.Tags, "tags are normalized")

	// Row.
	got, err := f.svc.GetFinding(ctx, finding.ID)
	require.NoError(t, err)
	assert.Equal(t, "maps iterate in random order", got.Content)

	// Audit.
	records, err := f.svc.Audit(ctx, store.AuditFilter{EntityID: finding.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.AuditCreated, records[0].Action)

	// Trail: session create then finding create.
	ops := f.trailLines(t, sess.ID)
	require.Len(t, ops, 2)
	assert.Equal(t, core.OpCreate, ops[1].Op)
	assert.Equal(t, finding.ID, ops[1].ID)
	assert.Equal(t, "maps iterate in random order", ops[1].Data["content"])
}

func TestTrailAppendFailureRollsBackStore(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	// Replace the trail directory with a plain file: the next append
	// cannot create the directory and must fail.
	require.NoError(t, os.RemoveAll(f.trailDir))
	require.NoError(t, os.WriteFile(f.trailDir, []byte("not a directory"), 0o644))

	_, err = f.svc.AddFinding(ctx, sess.ID, "must not survive", nil, "", nil)
	require.Error(t, err)

	// Neither the entity row nor the audit row may exist.
	findings, err := f.svc.ListFindings(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, findings)

	records, err := f.svc.Audit(ctx, store.AuditFilter{EntityType: "finding"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateFindingTrailCarriesExactPayload(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	finding, err := f.svc.AddFinding(ctx, sess.ID, "v1", strp("profiler"), "", nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateFinding(ctx, sess.ID, finding.ID, core.FindingUpdate{
		Content: core.Set("v2"),
		Source:  core.Null[string](),
	})
	require.NoError(t, err)

	ops := f.trailLines(t, sess.ID)
	last := ops[len(ops)-1]
	assert.Equal(t, core.OpUpdate, last.Op)

	// Exactly the changed fields: content set, source explicit null,
	// confidence absent.
	assert.Equal(t, "v2", last.Data["content"])
	v, present := last.Data["source"]
	assert.True(t, present)
	assert.Nil(t, v)
	_, present = last.Data["confidence"]
	assert.False(t, present)

	got, err := f.svc.GetFinding(ctx, finding.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	assert.Nil(t, got.Source)
	assert.Equal(t, core.ConfidenceMedium, got.Confidence)
}

func TestEndSessionRecordsSummary(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	ended, err := f.svc.EndSession(ctx, sess.ID, strp("reviewed the scheduler"))
	require.NoError(t, err)
	assert.Equal(t, core.SessionEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)
	require.NotNil(t, ended.Summary)
	assert.Equal(t, "reviewed the scheduler", *ended.Summary)

	// Ending twice is an invalid transition.
	_, err = f.svc.EndSession(ctx, sess.ID, nil)
	require.Error(t, err)
	assert.True(t, core.IsInvalidTransition(err))
}

func TestMoveTaskValidatesTransitions(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, sess.ID, "profile the hot path", nil)
	require.NoError(t, err)

	// open -> done is forbidden; nothing may be written.
	before := len(f.trailLines(t, sess.ID))
	_, err = f.svc.MoveTask(ctx, sess.ID, task.ID, core.TaskDone, nil)
	require.Error(t, err)
	assert.True(t, core.IsInvalidTransition(err))
	assert.Len(t, f.trailLines(t, sess.ID), before, "rejected transition leaves no trail line")

	got, err := f.svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskOpen, got.Status)

	// The legal path works.
	_, err = f.svc.MoveTask(ctx, sess.ID, task.ID, core.TaskInProgress, nil)
	require.NoError(t, err)
	moved, err := f.svc.MoveTask(ctx, sess.ID, task.ID, core.TaskDone, strp("merged"))
	require.NoError(t, err)
	assert.Equal(t, core.TaskDone, moved.Status)
}

func TestUpdateAndDeleteTask(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, sess.ID, "draft writeup", strp("rough notes"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(ctx, sess.ID, task.ID, core.TaskUpdate{
		Title:       core.Set("final writeup"),
		Description: core.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "final writeup", updated.Title)
	assert.Nil(t, updated.Description)

	require.NoError(t, f.svc.DeleteTask(ctx, sess.ID, task.ID))
	_, err = f.svc.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Trail: create, update with explicit null, delete with empty data.
	ops := f.trailLines(t, sess.ID)
	require.Len(t, ops, 4)
	update := ops[2]
	assert.Equal(t, core.OpUpdate, update.Op)
	assert.Equal(t, "final writeup", update.Data["title"])
	v, present := update.Data["description"]
	assert.True(t, present)
	assert.Nil(t, v)
	del := ops[3]
	assert.Equal(t, core.OpDelete, del.Op)
	assert.Empty(t, del.Data)
}

func TestOrgStamping(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1", OrgID: "org-acme"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	finding, err := f.svc.AddFinding(ctx, sess.ID, "org scoped", nil, "", nil)
	require.NoError(t, err)

	require.NotNil(t, finding.OrgID)
	assert.Equal(t, "org-acme", *finding.OrgID)

	// The org also lands in the trail snapshot, so replay restores it.
	ops := f.trailLines(t, sess.ID)
	assert.Equal(t, "org-acme", ops[len(ops)-1].Data["org_id"])
}

func TestRebuildRoundTrip(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	finding, err := f.svc.AddFinding(ctx, sess.ID, "the compiler inlines small functions", nil, core.ConfidenceHigh, []string{"compiler"})
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, sess.ID, "measure inline budget", nil)
	require.NoError(t, err)
	_, err = f.svc.MoveTask(ctx, sess.ID, task.ID, core.TaskInProgress, nil)
	require.NoError(t, err)
	link, err := f.svc.AddLink(ctx, sess.ID, core.EntityFinding, finding.ID, core.EntityTask, task.ID, core.RelationSupports)
	require.NoError(t, err)
	_, _, err = f.svc.RegisterDataset(ctx, core.Coordinate{Ecosystem: "go", Package: "example.com/m", Version: "v1.0.0"}, "ds/m", core.VisibilityPublic)
	require.NoError(t, err)
	_, err = f.svc.EndSession(ctx, sess.ID, strp("good run"))
	require.NoError(t, err)

	before, err := f.svc.ListFindings(ctx, 10)
	require.NoError(t, err)

	summary, err := f.svc.Rebuild(ctx, f.trailDir, false)
	require.NoError(t, err)
	assert.True(t, summary.Rebuilt)
	assert.Equal(t, 1, summary.TrailFiles)

	// Entities come back identical.
	after, err := f.svc.ListFindings(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	gotTask, err := f.svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskInProgress, gotTask.Status)

	links, err := f.svc.ListLinks(ctx, core.EntityFinding, finding.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)

	gotSess, err := f.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SessionEnded, gotSess.Status)

	// Audit is operational context, not replayed.
	records, err := f.svc.Audit(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	// Catalog entries survive: they have no trail.
	entries, err := f.svc.Catalog(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Rebuilding did not append new trail lines.
	raw, err := os.ReadFile(f.writer.Path(sess.ID))
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(raw), "\n"))
}

func TestRegisterDatasetVisibilityRules(t *testing.T) {
	ctx := context.Background()

	// Team tier requires an org.
	solo := newFixture(t, core.Identity{UserID: "u1"})
	_, _, err := solo.svc.RegisterDataset(ctx, core.Coordinate{Ecosystem: "npm", Package: "p", Version: "1"}, "ds/a", core.VisibilityTeam)
	require.Error(t, err)

	org := newFixture(t, core.Identity{UserID: "u1", OrgID: "org-acme"})
	entry, inserted, err := org.svc.RegisterDataset(ctx, core.Coordinate{Ecosystem: "npm", Package: "p", Version: "1"}, "ds/a", core.VisibilityTeam)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NotNil(t, entry.OrgID)
	assert.Equal(t, "org-acme", *entry.OrgID)

	// Duplicate coordinate: silently deduplicated.
	_, inserted, err = org.svc.RegisterDataset(ctx, core.Coordinate{Ecosystem: "npm", Package: "p", Version: "1"}, "ds/a", core.VisibilityTeam)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Public entries never carry an org, even from an org member.
	pub, _, err := org.svc.RegisterDataset(ctx, core.Coordinate{Ecosystem: "npm", Package: "p2", Version: "1"}, "ds/b", core.VisibilityPublic)
	require.NoError(t, err)
	assert.Nil(t, pub.OrgID)
}

func TestCheckBeforeIndex(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	coord := core.Coordinate{Ecosystem: "pypi", Package: "requests", Version: "2.32.0"}
	_, _, err := f.svc.RegisterDataset(ctx, coord, "ds/requests", core.VisibilityPublic)
	require.NoError(t, err)

	paths, err := f.svc.CheckBeforeIndex(ctx, coord)
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/requests"}, paths)
}

func TestMutationsRequireSession(t *testing.T) {
	f := newFixture(t, core.Identity{UserID: "u1"})
	ctx := context.Background()

	_, err := f.svc.AddFinding(ctx, "", "content", nil, "", nil)
	assert.Error(t, err)
	_, err = f.svc.AddTask(ctx, "", "title", nil)
	assert.Error(t, err)
}

func strp(s string) *string { return &s }
