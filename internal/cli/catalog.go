package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/catalog"
	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/model"
)

func newCatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the equipment catalog",
		Long: `Inspect the equipment catalog sessions are created from.

Inside a workspace the catalog named in config.yaml is used; elsewhere the
built-in catalog. --file reads and validates a YAML catalog instead.`,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "YAML catalog file to read")

	load := func() (*model.Catalog, error) {
		if file != "" {
			return catalog.Load(file)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		c, err := inspect.Open(cwd)
		if errors.Is(err, workspace.ErrNoWorkspace) {
			return catalog.Default(), nil
		}
		if err != nil {
			return nil, err
		}
		defer c.Close()
		return c.Catalog(), nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List equipment categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, cat)
			}
			fmt.Fprintf(out, "%s %s\n", color.Header("Catalog"), color.Dim(cat.Version))
			for _, c := range cat.Categories {
				fmt.Fprintf(out, "  %-12s %-30s %d items\n", color.ID(string(c.ID)), c.Name, len(c.Items))
			}
			fmt.Fprintf(out, "%d categories, %d items\n", len(cat.Categories), cat.TotalItems())
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <category>",
		Short: "Show the items of one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := load()
			if err != nil {
				return err
			}
			c, ok := cat.Category(model.CategoryID(args[0]))
			if !ok {
				return errclass.ErrNotFound.WithMessagef("no category %q; run %s", args[0], color.ID("ppecheck catalog list"))
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, c)
			}
			fmt.Fprintf(out, "%s (%s)\n", color.Header(c.Name), c.ID)
			for _, it := range c.Items {
				fmt.Fprintf(out, "  %-12s %s\n", color.ID(string(it.ID)), it.Title)
				if it.Description != "" {
					fmt.Fprintf(out, "  %-12s %s\n", "", color.Dim(it.Description))
				}
			}
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
