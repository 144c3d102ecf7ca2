package core

// Field is a tri-state update value: unset (leave the column alone),
// explicit null (set the column to NULL), or a value. A plain pointer
// cannot express all three, and replaying an update requires the
// distinction to survive serialization.
type Field[T any] struct {
	set  bool
	null bool
	val  T
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, val: v}
}

// Null returns a Field that sets the column to NULL.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet reports whether the field participates in the update at all.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field sets the column to NULL.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Value returns the carried value. Only meaningful when IsSet and !IsNull.
func (f Field[T]) Value() T { return f.val }

// payloadValue folds a set Field into the any it contributes to a
// changed-fields payload: nil for null, the value otherwise.
func payloadValue[T any](f Field[T]) any {
	if f.null {
		return nil
	}
	return f.val
}

// FindingUpdate is a partial update of a finding. Content and confidence
// are non-nullable columns; use Set only. Source accepts Null.
type FindingUpdate struct {
	Content    Field[string]
	Source     Field[string]
	Confidence Field[Confidence]
}

// Empty reports whether the update changes nothing.
func (u FindingUpdate) Empty() bool {
	return !u.Content.IsSet() && !u.Source.IsSet() && !u.Confidence.IsSet()
}

// Payload returns the changed-fields-only map. The same map drives both the
// SQL SET clauses of the live update and the trail line it records, so the
// two can never disagree.
func (u FindingUpdate) Payload() map[string]any {
	p := map[string]any{}
	if u.Content.IsSet() {
		p["content"] = NormalizeText(u.Content.Value())
	}
	if u.Source.IsSet() {
		p["source"] = payloadValue(u.Source)
	}
	if u.Confidence.IsSet() {
		p["confidence"] = string(u.Confidence.Value())
	}
	return p
}

// TaskUpdate is a partial update of a task. Title is non-nullable; use Set
// only. Description accepts Null. Status changes go through transitions,
// not updates.
type TaskUpdate struct {
	Title       Field[string]
	Description Field[string]
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return !u.Title.IsSet() && !u.Description.IsSet()
}

// Payload returns the changed-fields-only map.
func (u TaskUpdate) Payload() map[string]any {
	p := map[string]any{}
	if u.Title.IsSet() {
		p["title"] = NormalizeText(u.Title.Value())
	}
	if u.Description.IsSet() {
		p["description"] = payloadValue(u.Description)
	}
	return p
}
