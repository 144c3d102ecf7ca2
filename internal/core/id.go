package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes, one per persisted row kind. Prefixed ids keep trail files
// and audit rows legible without a join.
const (
	PrefixSession = "ses"
	PrefixFinding = "fnd"
	PrefixTask    = "tsk"
	PrefixLink    = "lnk"
	PrefixAudit   = "aud"
	PrefixCatalog = "cat"
)

// NewID returns "{prefix}-{uuidv7}". UUIDv7 ids sort by creation time,
// which keeps id tiebreak ordering stable across rebuilds.
func NewID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}

// IDPrefix returns the prefix of a generated id, or "" if it has none.
func IDPrefix(id string) string {
	p, _, ok := strings.Cut(id, "-")
	if !ok {
		return ""
	}
	return p
}
