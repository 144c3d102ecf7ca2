// Package trail reads and writes per-session operation logs. One JSONL
// file per session under the trail directory; each line is one
// core.Operation. Trail files are the source of truth: the relational
// store can be deleted and rebuilt from them alone.
package trail

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/schema"
)

// Writer appends operations to per-session trail files.
//
// Appends are serialized by an internal mutex and fsynced before
// returning, so a successful Append means the line is on disk. Callers
// append inside their store transaction, before commit: if the append
// fails the transaction rolls back, and if the commit fails the trail
// carries at most one extra line, which replay absorbs idempotently.
type Writer struct {
	mu      sync.Mutex
	dir     string
	enabled bool
}

// NewWriter creates a writer rooted at dir. The directory is created on
// first append.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, enabled: true}
}

// SetEnabled toggles the writer. Disabled during rebuild so replayed
// operations are not recorded a second time.
func (w *Writer) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

// Enabled reports whether appends are recorded.
func (w *Writer) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Path returns the trail file path for a session.
func (w *Writer) Path(sessionID string) string {
	return filepath.Join(w.dir, sessionID+".jsonl")
}

// Append writes one operation line to the session's trail file and syncs
// it to disk. A disabled writer silently drops the operation.
func (w *Writer) Append(op core.Operation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled {
		return nil
	}
	if op.Session == "" {
		return fmt.Errorf("append trail: operation has no session")
	}

	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("append trail: marshal: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("append trail: create dir: %w", err)
	}

	f, err := os.OpenFile(w.Path(op.Session), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append trail: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append trail: write: %w", err)
	}
	// The store commit happens after this returns; the line must already
	// be durable by then.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("append trail: sync: %w", err)
	}
	return nil
}

// AppendValidated appends after checking create payloads against the
// entity schema in permissive mode: a schema gap logs a warning but never
// loses a live capture.
func (w *Writer) AppendValidated(op core.Operation, reg *schema.Registry) error {
	if op.Op == core.OpCreate {
		if err := reg.Validate(op.Entity, op.Data, schema.Permissive); err != nil {
			return fmt.Errorf("append trail: %w", err)
		}
	}
	return w.Append(op)
}
