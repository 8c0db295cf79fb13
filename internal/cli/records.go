package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// parseSince accepts a duration back from now ("72h") or a date
// ("2026-01-31").
func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use a duration like 72h or a date like 2026-01-31", v)
	}
	return t, nil
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Browse archived inspection records",
	}

	var (
		product, outcome, since, until string
		limit                          int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			sinceT, err := parseSince(since, now)
			if err != nil {
				return err
			}
			untilT, err := parseSince(until, now)
			if err != nil {
				return err
			}
			f := inspect.RecordFilter{Product: product, Since: sinceT, Until: untilT}
			if outcome != "" {
				f.Outcome = model.Outcome(outcome)
				if !f.Outcome.IsValid() {
					return fmt.Errorf("unknown outcome %q (use success or success_with_issues)", outcome)
				}
			}
			return withClient(func(c *inspect.Client) error {
				recs, err := c.Records(f)
				if err != nil {
					return err
				}
				if limit > 0 && len(recs) > limit {
					recs = recs[:limit]
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					if recs == nil {
						recs = []*model.InspectionRecord{}
					}
					return outputJSON(out, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(out, "No records.")
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(out, "%s  %s  %-28s %s\n", color.ID(string(r.RecordID)),
						r.SubmittedAt.Local().Format("2006-01-02 15:04"), color.Outcome(r.Outcome), productLabel(r))
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&product, "product", "", "match product name or code")
	list.Flags().StringVar(&outcome, "outcome", "", "success or success_with_issues")
	list.Flags().StringVar(&since, "since", "", "only records submitted after this time")
	list.Flags().StringVar(&until, "until", "", "only records submitted before this time")
	list.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")

	show := &cobra.Command{
		Use:   "show <record>",
		Short: "Show one record by id, id prefix or product code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				r, err := c.Record(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return outputJSON(out, r)
				}
				fmt.Fprintf(out, "%s %s\n", color.Header("Record"), color.ID(string(r.RecordID)))
				fmt.Fprintf(out, "  Product:   %s\n", productLabel(r))
				fmt.Fprintf(out, "  Outcome:   %s\n", color.Outcome(r.Outcome))
				fmt.Fprintf(out, "  Submitted: %s\n", r.SubmittedAt.Local().Format(time.RFC3339))
				if r.Inspector != "" {
					fmt.Fprintf(out, "  Inspector: %s\n", r.Inspector)
				}
				if r.Location != nil {
					fmt.Fprintf(out, "  Location:  %.5f, %.5f (cell %s)\n", r.Location.Latitude, r.Location.Longitude, r.LocationCell)
				}
				if r.GeneralNotes != "" {
					fmt.Fprintf(out, "  Notes:     %s\n", r.GeneralNotes)
				}
				fmt.Fprintf(out, "  Checksum:  %s\n", color.Dim(string(r.Checksum)))
				for _, cat := range r.CategoryOrder {
					fmt.Fprintf(out, "\n%s\n", color.Header(string(cat)))
					for _, it := range r.Categories[cat] {
						fmt.Fprintf(out, "  %s %s\n", color.Status(it.Status), it.ID)
						if it.Notes != "" {
							fmt.Fprintf(out, "         %s\n", color.Dim(it.Notes))
						}
					}
				}
				return nil
			})
		},
	}

	diffCmd := &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Compare two records item by item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				res, err := c.CompareRecords(args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return outputJSON(out, res)
				}
				fmt.Fprintf(out, "%s %s..%s\n", color.Header("Diff"), color.ID(string(res.FromRecordID)), color.ID(string(res.ToRecordID)))
				fmt.Fprintf(out, "  Outcome: %s -> %s\n", color.Outcome(res.FromOutcome), color.Outcome(res.ToOutcome))
				if !res.SameProduct {
					fmt.Fprintln(out, color.Warning("  records are for different products"))
				}
				if res.Empty() {
					fmt.Fprintln(out, "No item changes.")
					return nil
				}
				for _, ch := range res.Added {
					fmt.Fprintf(out, "  + %-30s %s\n", ch.Item, color.Status(ch.NewStatus))
				}
				for _, ch := range res.Removed {
					fmt.Fprintf(out, "  - %-30s %s\n", ch.Item, color.Status(ch.OldStatus))
				}
				for _, ch := range res.Modified {
					line := fmt.Sprintf("  ~ %-30s %s -> %s", ch.Item, color.Status(ch.OldStatus), color.Status(ch.NewStatus))
					if ch.NotesChanged {
						line += color.Dim(" notes")
					}
					if ch.EvidenceChanged {
						line += color.Dim(" evidence")
					}
					fmt.Fprintln(out, line)
				}
				if n := len(res.Regressions()); n > 0 {
					fmt.Fprintln(out, color.Errorf("%d item(s) newly failing", n))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, diffCmd)
	return cmd
}

func productLabel(r *model.InspectionRecord) string {
	if r.ProductCode == "" {
		return r.ProductName
	}
	return fmt.Sprintf("%s [%s]", r.ProductName, r.ProductCode)
}
