package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/lorekit/lore/internal/config"
	"github.com/lorekit/lore/internal/schema"
	"github.com/lorekit/lore/internal/service"
	"github.com/lorekit/lore/internal/store"
	"github.com/lorekit/lore/internal/trail"
)

// app wires config, identity, store, and service for one command run.
type app struct {
	cfg config.Config
	st  *store.Store
	svc *service.Service
}

func newApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	id, err := config.LoadIdentity(cfg.IdentityPath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load identity", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "create data dir", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	reg, err := schema.NewRegistry()
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "load schemas", err)
	}

	svc := service.New(st, trail.NewWriter(cfg.TrailPath()), reg, id)
	return &app{cfg: cfg, st: st, svc: svc}, nil
}

func (a *app) Close() error {
	return a.st.Close()
}

// resolveSession returns the explicit session id, or the caller's active
// session when none was given.
func (a *app) resolveSession(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	sess, err := a.svc.ActiveSession(ctx)
	if err != nil {
		return "", WrapExitError(ExitFailure, "no active session (start one or pass --session)", err)
	}
	return sess.ID, nil
}

// failure maps a service error to an exit-coded error.
func failure(action string, err error) error {
	return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", action), err)
}
