package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// gateView is the JSON shape of a failed submission gate.
type gateView struct {
	Ready   bool            `json:"ready"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
	Pending []model.ItemRef `json:"pending,omitempty"`
}

func gateFrom(err error) gateView {
	if err == nil {
		return gateView{Ready: true}
	}
	v := gateView{Code: errclass.Code(err), Error: err.Error()}
	var ic *errclass.IncompleteChecklistError
	if errors.As(err, &ic) {
		v.Pending = ic.Pending
	}
	return v
}

// reportGate prints why a session cannot be submitted.
func reportGate(w io.Writer, err error) {
	var ic *errclass.IncompleteChecklistError
	switch {
	case errors.Is(err, errclass.ErrMissingProductName):
		fmt.Fprintf(w, "%s product name is missing; set it with %s\n",
			color.Error("Not ready:"), color.ID("ppecheck product --name <name>"))
	case errors.As(err, &ic):
		fmt.Fprintf(w, "%s %d item(s) still open:\n", color.Error("Not ready:"), len(ic.Pending))
		for _, p := range ic.Pending {
			fmt.Fprintf(w, "  %s %s\n", color.Status(model.StatusUndecided), p)
		}
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check whether a session can be submitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				_, err := c.Validate(sessionRef)
				if err != nil && !errclass.Recoverable(err) {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					if jerr := outputJSON(out, gateFrom(err)); jerr != nil {
						return jerr
					}
				} else if err == nil {
					fmt.Fprintln(out, color.Success("Ready to submit."))
				} else {
					reportGate(out, err)
				}
				if err != nil {
					return fmt.Errorf("%w%w", errSilent, err)
				}
				return nil
			})
		},
	}
}

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit a completed inspection",
		Long: `Submit a completed inspection.

Submission requires a product name and a decision for every item. The
resulting record is archived with a checksum, logged in the audit trail and
sent to the configured webhooks. Failed items make the outcome
success_with_issues; they never block submission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				rec, err := c.Submit(cmd.Context(), sessionRef)
				out := cmd.OutOrStdout()
				if errclass.Recoverable(err) {
					if jsonOutput {
						if jerr := outputJSON(out, gateFrom(err)); jerr != nil {
							return jerr
						}
					} else {
						reportGate(out, err)
					}
					return fmt.Errorf("%w%w", errSilent, err)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(out, rec)
				}
				fmt.Fprintf(out, "Submitted record %s: %s\n", color.ID(string(rec.RecordID)), color.Outcome(rec.Outcome))
				for _, f := range rec.FailedItems() {
					fmt.Fprintf(out, "  %s %s\n", color.Status(model.StatusFail), f)
				}
				return nil
			})
		},
	}
}
