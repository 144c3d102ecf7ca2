package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lorekit/lore/internal/core"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Register and browse indexed package datasets",
	}
	cmd.AddCommand(newCatalogRegisterCommand(opts))
	cmd.AddCommand(newCatalogCheckCommand(opts))
	cmd.AddCommand(newCatalogListCommand(opts))
	return cmd
}

func newCatalogRegisterCommand(opts *RootOptions) *cobra.Command {
	var visibility string

	cmd := &cobra.Command{
		Use:   "register <ecosystem> <package> <version> <dataset-path>",
		Short: "Register a dataset at a package coordinate",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			coord := core.Coordinate{Ecosystem: args[0], Package: args[1], Version: args[2]}
			entry, inserted, err := app.svc.RegisterDataset(cmd.Context(), coord, args[3], core.Visibility(visibility))
			if err != nil {
				return failure("register dataset", err)
			}

			result := struct {
				core.CatalogEntry
				Inserted bool `json:"inserted"`
			}{entry, inserted}
			return formatter(cmd, opts).Success(result, func(w io.Writer) {
				if inserted {
					fmt.Fprintf(w, "registered %s/%s@%s -> %s (%s)\n", coord.Ecosystem, coord.Package, coord.Version, entry.DatasetPath, entry.Visibility)
				} else {
					fmt.Fprintf(w, "already registered: %s/%s@%s -> %s\n", coord.Ecosystem, coord.Package, coord.Version, entry.DatasetPath)
				}
			})
		},
	}
	cmd.Flags().StringVar(&visibility, "visibility", string(core.VisibilityPublic), "public|team|private")
	return cmd
}

func newCatalogCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <ecosystem> <package> <version>",
		Short: "List public datasets already registered at a coordinate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			coord := core.Coordinate{Ecosystem: args[0], Package: args[1], Version: args[2]}
			paths, err := app.svc.CheckBeforeIndex(cmd.Context(), coord)
			if err != nil {
				return failure("check catalog", err)
			}
			return formatter(cmd, opts).Success(paths, func(w io.Writer) {
				if len(paths) == 0 {
					fmt.Fprintln(w, "not indexed yet")
					return
				}
				for _, p := range paths {
					fmt.Fprintln(w, p)
				}
			})
		},
	}
}

func newCatalogListCommand(opts *RootOptions) *cobra.Command {
	var (
		ecosystem string
		pkg       string
		version   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			var coord *core.Coordinate
			if ecosystem != "" && pkg != "" && version != "" {
				coord = &core.Coordinate{Ecosystem: ecosystem, Package: pkg, Version: version}
			}
			entries, err := app.svc.Catalog(cmd.Context(), coord)
			if err != nil {
				return failure("list catalog", err)
			}
			return formatter(cmd, opts).Success(entries, func(w io.Writer) {
				renderCatalog(w, entries)
			})
		},
	}
	cmd.Flags().StringVar(&ecosystem, "ecosystem", "", "narrow to an ecosystem")
	cmd.Flags().StringVar(&pkg, "package", "", "narrow to a package")
	cmd.Flags().StringVar(&version, "version", "", "narrow to a version")
	return cmd
}
