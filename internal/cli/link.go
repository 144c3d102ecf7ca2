package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/lorekit/lore/internal/core"
)

// NewLinkCommand creates the link command group.
func NewLinkCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Relate entities to each other",
	}
	cmd.AddCommand(newLinkAddCommand(opts))
	cmd.AddCommand(newLinkRemoveCommand(opts))
	cmd.AddCommand(newLinkListCommand(opts))
	return cmd
}

func newLinkAddCommand(opts *RootOptions) *cobra.Command {
	var (
		session  string
		relation string
	)

	cmd := &cobra.Command{
		Use:   "add <source-type> <source-id> <target-type> <target-id>",
		Short: "Link two entities",
		Args:  cobra.ExactArgs(4),
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

			l, err := app.svc.AddLink(cmd.Context(), ses,
				core.EntityType(args[0]), args[1],
				core.EntityType(args[2]), args[3],
				core.LinkRelation(relation))
			if err != nil {
				return failure("add link", err)
			}
			return formatter(cmd, opts).Success(l, func(w io.Writer) {
				renderLinks(w, []core.Link{l})
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	cmd.Flags().StringVar(&relation, "relation", string(core.RelationRelatesTo), "relates_to|supports|blocks")
	return cmd
}

func newLinkRemoveCommand(opts *RootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "remove <link-id>",
		Short: "Remove a link",
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
			if err := app.svc.RemoveLink(cmd.Context(), ses, args[0]); err != nil {
				return failure("remove link", err)
			}
			return formatter(cmd, opts).Success(map[string]string{"removed": args[0]}, func(w io.Writer) {
				io.WriteString(w, "removed "+args[0]+"\n")
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	return cmd
}

func newLinkListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity-type> <entity-id>",
		Short: "List links touching an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			links, err := app.svc.ListLinks(cmd.Context(), core.EntityType(args[0]), args[1])
			if err != nil {
				return failure("list links", err)
			}
			return formatter(cmd, opts).Success(links, func(w io.Writer) {
				renderLinks(w, links)
			})
		},
	}
}
