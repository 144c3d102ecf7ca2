package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/trail"
)

// Text renderers for the human-readable output format. Kept separate from
// the commands so golden tests can pin the exact rendering.

func renderSession(w io.Writer, s core.Session) {
	fmt.Fprintf(w, "%s  %s  started %s", s.ID, s.Status, s.StartedAt)
	if s.EndedAt != nil {
		fmt.Fprintf(w, "  ended %s", *s.EndedAt)
	}
	fmt.Fprintln(w)
	if s.Summary != nil {
		fmt.Fprintf(w, "  summary: %s\n", *s.Summary)
	}
}

func renderSessions(w io.Writer, sessions []core.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return
	}
	for _, s := range sessions {
		renderSession(w, s)
	}
}

func renderFinding(w io.Writer, f core.Finding) {
	fmt.Fprintf(w, "%s  [%s]  %s\n", f.ID, f.Confidence, f.Content)
	if f.Source != nil {
		fmt.Fprintf(w, "  source: %s\n", *f.Source)
	}
	if len(f.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(f.Tags, ", "))
	}
}

func renderFindings(w io.Writer, findings []core.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "no findings")
		return
	}
	for _, f := range findings {
		renderFinding(w, f)
	}
}

func renderTask(w io.Writer, t core.Task) {
	fmt.Fprintf(w, "%s  [%s]  %s\n", t.ID, t.Status, t.Title)
	if t.Description != nil {
		fmt.Fprintf(w, "  %s\n", *t.Description)
	}
}

func renderTasks(w io.Writer, tasks []core.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		renderTask(w, t)
	}
}

func renderLinks(w io.Writer, links []core.Link) {
	if len(links) == 0 {
		fmt.Fprintln(w, "no links")
		return
	}
	for _, l := range links {
		fmt.Fprintf(w, "%s  %s/%s -[%s]-> %s/%s\n", l.ID, l.SourceType, l.SourceID, l.Relation, l.TargetType, l.TargetID)
	}
}

func renderAudit(w io.Writer, records []core.AuditRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no audit records")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s %s %s\n", r.CreatedAt, r.ID, r.Action, r.EntityType, r.EntityID)
		if r.Detail != nil {
			fmt.Fprintf(w, "  %s\n", *r.Detail)
		}
	}
}

func renderCatalog(w io.Writer, entries []core.CatalogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no catalog entries")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s/%s@%s  %s  (%s)\n", e.Ecosystem, e.Package, e.Version, e.DatasetPath, e.Visibility)
	}
}

func renderRebuild(w io.Writer, s trail.RebuildSummary) {
	fmt.Fprintf(w, "rebuilt from %d trail file(s): %d operations, %d entities, %dms\n",
		s.TrailFiles, s.OperationsReplayed, s.EntitiesCreated, s.DurationMS)
}
