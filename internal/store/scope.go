package store

import "github.com/lorekit/lore/internal/core"

// Scope carries the caller's identity into read queries. The zero Scope is
// an unauthenticated caller: entity reads see only org-less rows, catalog
// reads see only public entries.
type Scope struct {
	UserID string
	OrgID  string
}

// ScopeFor derives the read scope from an identity.
func ScopeFor(id core.Identity) Scope {
	return Scope{UserID: id.UserID, OrgID: id.OrgID}
}

// entityFilter returns the org visibility fragment for entity list and
// search queries, with a leading AND. Callers with an org see their org's
// rows plus personal (org-less) rows; callers without an org see only
// org-less rows. Get-by-id deliberately skips this filter: a raw id works
// like a capability token, and cross-org sharing of ids is accepted.
func (sc Scope) entityFilter() (string, []any) {
	if sc.OrgID != "" {
		return " AND (org_id = ? OR org_id IS NULL)", []any{sc.OrgID}
	}
	return " AND org_id IS NULL", nil
}

// catalogFilter returns the visibility fragment for catalog queries, with
// a leading AND. public is always visible; team requires an org match;
// private requires ownership.
func (sc Scope) catalogFilter() (string, []any) {
	clause := "visibility = 'public'"
	var args []any
	if sc.OrgID != "" {
		clause += " OR (visibility = 'team' AND org_id = ?)"
		args = append(args, sc.OrgID)
	}
	if sc.UserID != "" {
		clause += " OR (visibility = 'private' AND owner_id = ?)"
		args = append(args, sc.UserID)
	}
	return " AND (" + clause + ")", args
}
