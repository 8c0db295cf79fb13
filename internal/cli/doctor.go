package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/doctor"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
)

func newDoctorCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check workspace health",
		Long: `Check workspace health.

Runs diagnostic checks on drafts, config, catalog and the audit chain.
Use --strict to also verify every archived record and its evidence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				result, err := doctor.NewDoctor(c.Workspace()).Check(cmd.Context(), strict)
				if err != nil {
					return fmt.Errorf("doctor: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					if err := outputJSON(out, result); err != nil {
						return err
					}
				} else if len(result.Findings) == 0 {
					fmt.Fprintln(out, color.Success("Workspace is healthy."))
				} else {
					fmt.Fprintf(out, "Findings (%d):\n", len(result.Findings))
					for _, f := range result.Findings {
						fmt.Fprintf(out, "  [%s] %s: %s\n", severity(f.Severity), f.Category, f.Description)
					}
				}

				if !result.Healthy {
					return fmt.Errorf("%wworkspace is unhealthy", errSilent)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "include full record verification")
	return cmd
}

func severity(s string) string {
	switch s {
	case "critical", "error":
		return color.Error(s)
	case "warning":
		return color.Warning(s)
	}
	return color.Dim(s)
}
