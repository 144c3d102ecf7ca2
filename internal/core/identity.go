package core

// Identity is the caller's resolved identity, written by the external auth
// flow and loaded at startup. It is injected once at service construction
// and treated as immutable for the service lifetime. A zero Identity means
// an unauthenticated caller: no user, no org, public-only catalog reads.
type Identity struct {
	UserID  string `json:"user_id" yaml:"user_id"`
	OrgID   string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	OrgRole string `json:"org_role,omitempty" yaml:"org_role,omitempty"`
}

// HasOrg reports whether the identity carries an org membership.
func (i Identity) HasOrg() bool { return i.OrgID != "" }

// HasUser reports whether the identity carries a user.
func (i Identity) HasUser() bool { return i.UserID != "" }

// OrgIDPtr returns the org id for stamping onto new entities, nil when the
// caller has no org.
func (i Identity) OrgIDPtr() *string {
	if i.OrgID == "" {
		return nil
	}
	org := i.OrgID
	return &org
}
