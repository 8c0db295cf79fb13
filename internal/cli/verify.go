package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/archive"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [record]",
		Short: "Verify record checksums and evidence",
		Long: `Verify archived records.

Each record's checksum is recomputed and every evidence file it references
is re-hashed. Without an argument all records are verified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				var results []*archive.Result
				if len(args) == 1 {
					rec, err := c.Record(args[0])
					if err != nil {
						return err
					}
					results = []*archive.Result{c.VerifyRecord(rec.RecordID)}
				} else {
					var err error
					if results, err = c.VerifyRecords(cmd.Context()); err != nil {
						return err
					}
				}

				failed := 0
				for _, r := range results {
					if !r.OK() {
						failed++
					}
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					if results == nil {
						results = []*archive.Result{}
					}
					if err := outputJSON(out, results); err != nil {
						return err
					}
				} else {
					for _, r := range results {
						if r.OK() {
							fmt.Fprintf(out, "%s %s\n", color.Success("OK  "), r.RecordID)
							continue
						}
						fmt.Fprintf(out, "%s %s: %s\n", color.Error("FAIL"), r.RecordID, r.Error)
					}
					fmt.Fprintf(out, "%d record(s) verified, %d failed\n", len(results), failed)
				}
				if failed > 0 {
					return fmt.Errorf("%w%d record(s) failed verification", errSilent, failed)
				}
				return nil
			})
		},
	}
}
