package core

// EntityType names a replayable entity kind. Audit records and catalog
// entries are not entity types: the audit log is append-only context, and
// the catalog is registered directly, never through the trail.
type EntityType string

const (
	EntitySession EntityType = "session"
	EntityFinding EntityType = "finding"
	EntityTask    EntityType = "task"
	EntityLink    EntityType = "link"
)

// ValidEntityType reports whether s names a known entity type.
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntitySession, EntityFinding, EntityTask, EntityLink:
		return true
	}
	return false
}

// Op is a trail operation kind.
type Op string

const (
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpTransition Op = "transition"
	OpTag        Op = "tag"
	OpUntag      Op = "untag"
	OpLink       Op = "link"
	OpUnlink     Op = "unlink"
	OpDelete     Op = "delete"
)

// SessionStatus is the session lifecycle state.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// CanTransitionTo reports whether the session state machine permits s -> to.
// ended is terminal.
func (s SessionStatus) CanTransitionTo(to SessionStatus) bool {
	return s == SessionActive && to == SessionEnded
}

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskAbandoned  TaskStatus = "abandoned"
)

// ValidTaskStatus reports whether s names a known task status.
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskOpen, TaskInProgress, TaskDone, TaskAbandoned:
		return true
	}
	return false
}

// CanTransitionTo reports whether the task state machine permits s -> to.
// done and abandoned are terminal.
func (s TaskStatus) CanTransitionTo(to TaskStatus) bool {
	switch s {
	case TaskOpen:
		return to == TaskInProgress || to == TaskAbandoned
	case TaskInProgress:
		return to == TaskDone || to == TaskAbandoned
	}
	return false
}

// Confidence grades a finding.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ValidConfidence reports whether s names a known confidence level.
func ValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// LinkRelation is the semantic kind of an entity link.
type LinkRelation string

const (
	RelationRelatesTo LinkRelation = "relates_to"
	RelationSupports  LinkRelation = "supports"
	RelationBlocks    LinkRelation = "blocks"
)

// ValidLinkRelation reports whether s names a known relation.
func ValidLinkRelation(s string) bool {
	switch LinkRelation(s) {
	case RelationRelatesTo, RelationSupports, RelationBlocks:
		return true
	}
	return false
}

// Visibility is the sharing tier of a catalog entry.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityTeam    Visibility = "team"
	VisibilityPrivate Visibility = "private"
)

// ValidVisibility reports whether s names a known visibility tier.
func ValidVisibility(s string) bool {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityTeam, VisibilityPrivate:
		return true
	}
	return false
}

// AuditAction labels an audit record.
type AuditAction string

const (
	AuditCreated      AuditAction = "created"
	AuditUpdated      AuditAction = "updated"
	AuditTransitioned AuditAction = "transitioned"
	AuditTagged       AuditAction = "tagged"
	AuditUntagged     AuditAction = "untagged"
	AuditLinked       AuditAction = "linked"
	AuditUnlinked     AuditAction = "unlinked"
	AuditDeleted      AuditAction = "deleted"
)
