package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekit/lore/internal/core"
)

func validFinding() map[string]any {
	return map[string]any{
		"id":         "fnd-1",
		"session_id": "ses-1",
		"content":    "parser allocates per token",
		"source":     nil,
		"confidence": "high",
		"org_id":     nil,
		"created_at": "2026-01-02T03:04:05Z",
		"updated_at": "2026-01-02T03:04:05Z",
	}
}

func TestValidateAcceptsValidPayload(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.NoError(t, r.Validate(core.EntityFinding, validFinding(), Strict))
}

func TestValidateStrictRejectsBadEnum(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	data := validFinding()
	data["confidence"] = "certain"

	err = r.Validate(core.EntityFinding, data, Strict)
	require.Error(t, err)
	assert.True(t, core.IsValidationFailed(err))
}

func TestValidateStrictRejectsMissingRequiredField(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	data := validFinding()
	delete(data, "content")

	err = r.Validate(core.EntityFinding, data, Strict)
	require.Error(t, err)
	assert.True(t, core.IsValidationFailed(err))
}

func TestValidatePermissiveAllowsBadPayload(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	data := validFinding()
	data["confidence"] = "certain"

	// Permissive mode warns but never blocks a live write.
	assert.NoError(t, r.Validate(core.EntityFinding, data, Permissive))
}

func TestValidateOpenStructAllowsUnknownFields(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	data := validFinding()
	data["added_by_newer_writer"] = "x"

	assert.NoError(t, r.Validate(core.EntityFinding, data, Strict))
}

func TestValidateUnknownEntity(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.Error(t, r.Validate(core.EntityType("widget"), map[string]any{}, Strict))
}

func TestValidateSessionEndedPayload(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	data := map[string]any{
		"id":         "ses-1",
		"started_at": "2026-01-02T03:04:05Z",
		"ended_at":   "2026-01-02T04:00:00Z",
		"status":     "ended",
		"summary":    "wrapped up",
		"org_id":     nil,
	}
	assert.NoError(t, r.Validate(core.EntitySession, data, Strict))
}
