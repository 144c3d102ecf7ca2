package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorekit/lore/internal/core"
)

// NewFindingCommand creates the finding command group.
func NewFindingCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finding",
		Short: "Capture, list, search, and edit findings",
	}
	cmd.AddCommand(newFindingAddCommand(opts))
	cmd.AddCommand(newFindingListCommand(opts))
	cmd.AddCommand(newFindingSearchCommand(opts))
	cmd.AddCommand(newFindingUpdateCommand(opts))
	cmd.AddCommand(newFindingTagCommand(opts, true))
	cmd.AddCommand(newFindingTagCommand(opts, false))
	cmd.AddCommand(newFindingDeleteCommand(opts))
	return cmd
}

func newFindingAddCommand(opts *RootOptions) *cobra.Command {
	var (
		session    string
		source     string
		confidence string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Capture a finding in the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}

			var sourcePtr *string
			if cmd.Flags().Changed("source") {
				sourcePtr = &source
			}
			f, err := app.svc.AddFinding(cmd.Context(), ses, args[0], sourcePtr, core.Confidence(confidence), tags)
			if err != nil {
				return failure("add finding", err)
			}
			return formatter(cmd, opts).Success(f, func(w io.Writer) {
				renderFinding(w, f)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	cmd.Flags().StringVar(&source, "source", "", "where the finding came from")
	cmd.Flags().StringVar(&confidence, "confidence", "", "low|medium|high (default medium)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func newFindingListCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			findings, err := app.svc.ListFindings(cmd.Context(), limit)
			if err != nil {
				return failure("list findings", err)
			}
			return formatter(cmd, opts).Success(findings, func(w io.Writer) {
				renderFindings(w, findings)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum findings to list")
	return cmd
}

func newFindingSearchCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over finding content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			findings, err := app.svc.SearchFindings(cmd.Context(), args[0], limit)
			if err != nil {
				return failure("search findings", err)
			}
			return formatter(cmd, opts).Success(findings, func(w io.Writer) {
				renderFindings(w, findings)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newFindingUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		session     string
		content     string
		source      string
		clearSource bool
		confidence  string
	)

	cmd := &cobra.Command{
		Use:   "update <finding-id>",
		Short: "Update fields of a finding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}

			var upd core.FindingUpdate
			if cmd.Flags().Changed("content") {
				upd.Content = core.Set(content)
			}
			switch {
			case clearSource:
				upd.Source = core.Null[string]()
			case cmd.Flags().Changed("source"):
				upd.Source = core.Set(source)
			}
			if cmd.Flags().Changed("confidence") {
				upd.Confidence = core.Set(core.Confidence(confidence))
			}

			f, err := app.svc.UpdateFinding(cmd.Context(), ses, args[0], upd)
			if err != nil {
				return failure("update finding", err)
			}
			return formatter(cmd, opts).Success(f, func(w io.Writer) {
				renderFinding(w, f)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&source, "source", "", "new source")
	cmd.Flags().BoolVar(&clearSource, "clear-source", false, "clear the source")
	cmd.Flags().StringVar(&confidence, "confidence", "", "new confidence (low|medium|high)")
	return cmd
}

func newFindingTagCommand(opts *RootOptions, add bool) *cobra.Command {
	use, short := "tag <finding-id> <tag>", "Attach a tag to a finding"
	if !add {
		use, short = "untag <finding-id> <tag>", "Remove a tag from a finding"
	}
	var session string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}

			if add {
				err = app.svc.TagFinding(cmd.Context(), ses, args[0], args[1])
			} else {
				err = app.svc.UntagFinding(cmd.Context(), ses, args[0], args[1])
			}
			if err != nil {
				return failure(strings.Fields(use)[0]+" finding", err)
			}

			f, err := app.svc.GetFinding(cmd.Context(), args[0])
			if err != nil {
				return failure("get finding", err)
			}
			return formatter(cmd, opts).Success(f, func(w io.Writer) {
				renderFinding(w, f)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	return cmd
}

func newFindingDeleteCommand(opts *RootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "delete <finding-id>",
		Short: "Delete a finding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}
			if err := app.svc.DeleteFinding(cmd.Context(), ses, args[0]); err != nil {
				return failure("delete finding", err)
			}
			return formatter(cmd, opts).Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				io.WriteString(w, "deleted "+args[0]+"\n")
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	return cmd
}
