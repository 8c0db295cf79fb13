package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a ppecheck workspace",
		Long: `Initialize a ppecheck workspace in dir (default: the current directory).

This creates .ppecheck/ with:
  - format_version and workspace_id
  - config.yaml with default settings
  - drafts/, records/ and evidence/ directories
  - audit/audit.jsonl, the hash-chained audit log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			c, err := inspect.Init(dir)
			if err != nil {
				return err
			}
			defer c.Close()
			ws := c.Workspace()

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, map[string]any{
					"root":           ws.Root,
					"workspace_id":   ws.ID,
					"format_version": ws.FormatVersion,
				})
			}
			fmt.Fprintf(out, "Initialized ppecheck workspace in %s\n", color.Success(ws.Root))
			fmt.Fprintf(out, "  Workspace ID: %s\n", color.ID(ws.ID))
			fmt.Fprintf(out, "  Catalog: %s (%d items)\n", c.Catalog().Version, c.Catalog().TotalItems())
			return nil
		},
	}
}
