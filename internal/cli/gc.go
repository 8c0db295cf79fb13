package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/gc"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
)

func newGCCmd() *cobra.Command {
	var (
		dryRun bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete evidence no draft or record references",
		Long: `Delete stored evidence files that no draft or archived record references.

Evidence stored more recently than --min-age is kept, since the draft it
belongs to may not be saved yet. Use --dry-run to see what would be deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				plan, err := c.PlanGC(cmd.Context(), minAge)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if dryRun {
					if jsonOutput {
						return outputJSON(out, plan)
					}
					fmt.Fprintf(out, "%d stored, %d referenced, %d to delete (%d bytes)\n",
						plan.Stored, plan.Referenced, len(plan.ToDelete), plan.ReclaimableSize)
					for _, ref := range plan.ToDelete {
						fmt.Fprintf(out, "  %s\n", color.Dim(string(ref)))
					}
					return nil
				}

				res, err := c.RunGC(cmd.Context(), plan)
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(out, res)
				}
				if len(res.Deleted) == 0 {
					fmt.Fprintln(out, "Nothing to delete.")
					return nil
				}
				fmt.Fprintln(out, color.Successf("Deleted %d evidence file(s), %d bytes", len(res.Deleted), res.DeletedBytes))
				if len(res.Skipped) > 0 {
					fmt.Fprintf(out, "Skipped %d file(s) referenced since planning.\n", len(res.Skipped))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted")
	cmd.Flags().DurationVar(&minAge, "min-age", gc.DefaultMinAge, "keep evidence stored more recently than this")
	return cmd
}
