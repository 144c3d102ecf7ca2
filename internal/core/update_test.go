package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindingUpdatePayloadChangedFieldsOnly(t *testing.T) {
	u := FindingUpdate{Content: Set("new content")}

	p := u.Payload()

	assert.Equal(t, map[string]any{"content": "new content"}, p)
	_, present := p["source"]
	assert.False(t, present, "untouched fields must not appear")
}

func TestFindingUpdatePayloadExplicitNull(t *testing.T) {
	u := FindingUpdate{Source: Null[string]()}

	p := u.Payload()

	v, present := p["source"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestFindingUpdatePayloadNormalizesContent(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) composes to U+00E9 under NFC.
	u := FindingUpdate{Content: Set("  café  ")}

	assert.Equal(t, "café", u.Payload()["content"])
}

func TestTaskUpdateEmpty(t *testing.T) {
	assert.True(t, TaskUpdate{}.Empty())
	assert.False(t, TaskUpdate{Title: Set("t")}.Empty())
	assert.False(t, TaskUpdate{Description: Null[string]()}.Empty())
}

func TestSessionTransitions(t *testing.T) {
	assert.True(t, SessionActive.CanTransitionTo(SessionEnded))
	assert.False(t, SessionEnded.CanTransitionTo(SessionActive))
	assert.False(t, SessionEnded.CanTransitionTo(SessionEnded))
}

func TestTaskTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskOpen, TaskInProgress, true},
		{TaskOpen, TaskAbandoned, true},
		{TaskOpen, TaskDone, false},
		{TaskInProgress, TaskDone, true},
		{TaskInProgress, TaskAbandoned, true},
		{TaskInProgress, TaskOpen, false},
		{TaskDone, TaskOpen, false},
		{TaskDone, TaskAbandoned, false},
		{TaskAbandoned, TaskInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNewIDPrefix(t *testing.T) {
	id := NewID(PrefixFinding)
	assert.Equal(t, "fnd", IDPrefix(id))

	other := NewID(PrefixFinding)
	assert.NotEqual(t, id, other)
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "parser", NormalizeTag("  Parser "))
}
