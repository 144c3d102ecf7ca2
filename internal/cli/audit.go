package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/lorekit/lore/internal/core"
	"github.com/lorekit/lore/internal/store"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}
	cmd.AddCommand(newAuditListCommand(opts))
	return cmd
}

func newAuditListCommand(opts *RootOptions) *cobra.Command {
	var (
		entityType string
		entityID   string
		action     string
		session    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.svc.Audit(cmd.Context(), store.AuditFilter{
				EntityType: entityType,
				EntityID:   entityID,
				Action:     core.AuditAction(action),
				SessionID:  session,
				Limit:      limit,
			})
			if err != nil {
				return failure("query audit", err)
			}
			return formatter(cmd, opts).Success(records, func(w io.Writer) {
				renderAudit(w, records)
			})
		},
	}
	cmd.Flags().StringVar(&entityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "filter by entity id")
	cmd.Flags().StringVar(&action, "action", "", "filter by action")
	cmd.Flags().StringVar(&session, "session", "", "filter by session id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records")
	return cmd
}
