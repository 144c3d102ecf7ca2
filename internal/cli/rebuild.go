package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(opts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the database from trail files",
		Long: `Wipes the replayable tables and reconstructs them from the trail files.
The audit log starts empty afterwards; catalog entries are kept.
With --strict, create payloads are schema-validated before the first write
and any violation aborts the rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.svc.Rebuild(cmd.Context(), app.cfg.TrailPath(), strict)
			if err != nil {
				return failure("rebuild", err)
			}
			return formatter(cmd, opts).Success(summary, func(w io.Writer) {
				renderRebuild(w, summary)
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on schema violations in the trail")
	return cmd
}
