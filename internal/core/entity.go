package core

// Session is one working session. All findings and tasks created while a
// session is active carry its id, and its trail file collects every
// operation performed during it.
type Session struct {
	ID        string        `json:"id"`
	StartedAt string        `json:"started_at"`
	EndedAt   *string       `json:"ended_at"`
	Status    SessionStatus `json:"status"`
	Summary   *string       `json:"summary"`
	OrgID     *string       `json:"org_id"`
}

// Finding is a captured piece of knowledge. Content is stored in NFC
// canonical form.
type Finding struct {
	ID         string     `json:"id"`
	SessionID  *string    `json:"session_id"`
	Content    string     `json:"content"`
	Source     *string    `json:"source"`
	Confidence Confidence `json:"confidence"`
	OrgID      *string    `json:"org_id"`
	CreatedAt  string     `json:"created_at"`
	UpdatedAt  string     `json:"updated_at"`
	Tags       []string   `json:"tags,omitempty"`
}

// Task is a unit of tracked work.
type Task struct {
	ID          string     `json:"id"`
	SessionID   *string    `json:"session_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	OrgID       *string    `json:"org_id"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// Link relates two entities.
type Link struct {
	ID         string       `json:"id"`
	SourceType EntityType   `json:"source_type"`
	SourceID   string       `json:"source_id"`
	TargetType EntityType   `json:"target_type"`
	TargetID   string       `json:"target_id"`
	Relation   LinkRelation `json:"relation"`
	CreatedAt  string       `json:"created_at"`
}

// AuditRecord is one append-only audit row. Audit records are written in
// the same transaction as the mutation they describe and are never
// replayed; a rebuilt store starts with an empty audit log.
type AuditRecord struct {
	ID         string      `json:"id"`
	SessionID  *string     `json:"session_id"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Action     AuditAction `json:"action"`
	Detail     *string     `json:"detail"`
	CreatedAt  string      `json:"created_at"`
}

// Coordinate identifies a package dataset.
type Coordinate struct {
	Ecosystem string `json:"ecosystem"`
	Package   string `json:"package"`
	Version   string `json:"version"`
}

// CatalogEntry records an indexed dataset at a coordinate. The tuple
// (ecosystem, package, version, dataset_path) is unique; registration is
// first-write-wins.
type CatalogEntry struct {
	ID          string     `json:"id"`
	Ecosystem   string     `json:"ecosystem"`
	Package     string     `json:"package"`
	Version     string     `json:"version"`
	DatasetPath string     `json:"dataset_path"`
	Visibility  Visibility `json:"visibility"`
	OrgID       *string    `json:"org_id"`
	OwnerID     *string    `json:"owner_id"`
	CreatedAt   string     `json:"created_at"`
}
