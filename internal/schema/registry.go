// Package schema validates entity payloads against per-entity CUE schemas.
//
// Validation has two modes sharing one code path: Permissive logs a warning
// and lets the write proceed (live captures must not be lost to a schema
// gap), Strict returns an error (rebuilds may refuse corrupt trails).
package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	_ "embed"

	"github.com/lorekit/lore/internal/core"
)

//go:embed schemas.cue
var schemaSource string

// Mode selects how a validation failure is handled.
type Mode int

const (
	// Permissive logs schema violations and reports success.
	Permissive Mode = iota

	// Strict returns schema violations as errors.
	Strict
)

// Registry holds the compiled entity schemas. Compile once, validate many;
// cue.Value is safe for concurrent use.
type Registry struct {
	schemas cue.Value
}

// NewRegistry compiles the embedded schemas.
func NewRegistry() (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schemas.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile entity schemas: %w", err)
	}
	return &Registry{schemas: v}, nil
}

// Validate unifies data against the schema for entity. In Permissive mode a
// violation is logged and nil is returned; in Strict mode it becomes a
// VALIDATION_FAILED domain error.
func (r *Registry) Validate(entity core.EntityType, data map[string]any, mode Mode) error {
	schema := r.schemas.LookupPath(cue.ParsePath(string(entity)))
	if !schema.Exists() {
		return fmt.Errorf("no schema for entity type %q", entity)
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", entity, err)
	}
	// JSON is a subset of CUE, so the payload compiles directly.
	val := r.schemas.Context().CompileBytes(b, cue.Filename(string(entity)+".json"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("decode %s payload: %w", entity, err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		detail := cueerrors.Details(err, nil)
		if mode == Strict {
			return core.NewValidationError(entity, idFromPayload(data), detail)
		}
		slog.Warn("payload failed schema validation",
			"entity", entity,
			"id", idFromPayload(data),
			"detail", detail)
	}
	return nil
}

func idFromPayload(data map[string]any) string {
	if id, ok := data["id"].(string); ok {
		return id
	}
	return ""
}
