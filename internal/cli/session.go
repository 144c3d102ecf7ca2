package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start, end, and list working sessions",
	}
	cmd.AddCommand(newSessionStartCommand(opts))
	cmd.AddCommand(newSessionEndCommand(opts))
	cmd.AddCommand(newSessionListCommand(opts))
	return cmd
}

func newSessionStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.svc.StartSession(cmd.Context())
			if err != nil {
				return failure("start session", err)
			}
			return formatter(cmd, opts).Success(sess, func(w io.Writer) {
				renderSession(w, sess)
			})
		},
	}
}

func newSessionEndCommand(opts *RootOptions) *cobra.Command {
	var summary string

	cmd := &cobra.Command{
		Use:   "end [session-id]",
		Short: "End a session (the active one when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			explicit := ""
			if len(args) == 1 {
				explicit = args[0]
			}
			id, err := app.resolveSession(cmd.Context(), explicit)
			if err != nil {
				return err
			}

			var summaryPtr *string
			if cmd.Flags().Changed("summary") {
				summaryPtr = &summary
			}
			sess, err := app.svc.EndSession(cmd.Context(), id, summaryPtr)
			if err != nil {
				return failure("end session", err)
			}
			return formatter(cmd, opts).Success(sess, func(w io.Writer) {
				renderSession(w, sess)
			})
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "session summary recorded at end")
	return cmd
}

func newSessionListCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			sessions, err := app.svc.ListSessions(cmd.Context(), limit)
			if err != nil {
				return failure("list sessions", err)
			}
			return formatter(cmd, opts).Success(sessions, func(w io.Writer) {
				renderSessions(w, sessions)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	return cmd
}
