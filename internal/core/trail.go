package core

import "encoding/json"

// TrailVersion is the envelope version this build writes and replays.
const TrailVersion = 1

// Operation is one trail envelope: a single line of a per-session JSONL
// trail file. The trail is the source of truth; the relational store can be
// deleted and rebuilt from trail files alone.
//
// Data shape by op:
//   - create: full field snapshot of the entity
//   - update: changed fields only; an explicit JSON null sets the column
//     to NULL, an absent key leaves it alone
//   - transition: {from, to, reason?} (sessions also carry ended_at/summary)
//   - tag/untag: {tag}
//   - link: {source_type, source_id, target_type, target_id, relation}
//   - unlink, delete: {}
type Operation struct {
	V       int            `json:"v"`
	TS      string         `json:"ts"`
	Session string         `json:"ses"`
	Op      Op             `json:"op"`
	Entity  EntityType     `json:"entity"`
	ID      string         `json:"id"`
	Data    map[string]any `json:"data"`
}

// UnmarshalJSON decodes an envelope, defaulting v to 1 when the field is
// absent. Envelopes written before the version field existed replay as v1.
func (o *Operation) UnmarshalJSON(b []byte) error {
	type alias Operation
	a := alias{V: TrailVersion}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*o = Operation(a)
	return nil
}
