// Package core defines the shared domain types for the lore persistence core:
// entity structs, enums with their transition rules, the identity value
// injected by the external auth flow, the trail operation envelope, and the
// tri-state update builders used for partial updates.
//
// # Critical Patterns
//
// CP-1: Trail Before Commit
//   - Every mutation appends a trail Operation before the store transaction
//     commits. The trail is the source of truth; the database is rebuildable
//     from trail files alone.
//
// CP-2: Tri-State Updates
//   - Partial updates distinguish "leave column alone", "set to NULL", and
//     "set to value". Field[T] models all three; collapsing them to a plain
//     pointer would make replay of updates ambiguous.
//
// CP-3: Org Scope Set Once
//   - An entity's org_id is stamped at creation from the caller's identity
//     and never mutated afterward.
package core
