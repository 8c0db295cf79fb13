package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/checklist"
	"github.com/ppecheck/ppecheck/internal/validate"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/model"
)

func newStartCmd() *cobra.Command {
	var seed model.ProductSeed

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new inspection session",
		Long: `Start a new inspection session covering every item of the catalog.

The new session becomes the current session. Product name and code may be
given now or later with 'ppecheck product'; the name is required to submit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				s, err := c.Start(cmd.Context(), seed)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return outputJSON(out, s)
				}
				fmt.Fprintf(out, "Started session %s: %d items across %d categories\n",
					color.ID(s.ID.ShortID()), s.ItemCount(), len(s.CategoryOrder))
				if s.ProductName == "" {
					fmt.Fprintf(out, "  Set the product with %s\n", color.ID("ppecheck product --name <name>"))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&seed.Name, "name", "", "product name")
	cmd.Flags().StringVar(&seed.Code, "code", "", "product code or serial number")
	cmd.Flags().StringVar(&seed.GeneralNotes, "notes", "", "general notes")
	return cmd
}

type sessionRow struct {
	ID          model.SessionID `json:"id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code,omitempty"`
	Decided     int             `json:"decided"`
	Total       int             `json:"total"`
	Submitted   bool            `json:"submitted"`
	Current     bool            `json:"current"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				list, listErr := c.Sessions()
				var current model.SessionID
				if cur, err := c.Load(""); err == nil {
					current = cur.ID
				}

				rows := make([]sessionRow, 0, len(list))
				for _, s := range list {
					total := s.ItemCount()
					rows = append(rows, sessionRow{
						ID:          s.ID,
						ProductName: s.ProductName,
						ProductCode: s.ProductCode,
						Decided:     total - len(validate.PendingItems(s)),
						Total:       total,
						Submitted:   s.Submitted(),
						Current:     s.ID == current,
						CreatedAt:   s.CreatedAt,
					})
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					if err := outputJSON(out, rows); err != nil {
						return err
					}
					return listErr
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No sessions.")
				}
				for _, r := range rows {
					marker := " "
					if r.Current {
						marker = "*"
					}
					state := fmt.Sprintf("%d/%d", r.Decided, r.Total)
					if r.Submitted {
						state = color.Success("submitted")
					}
					name := r.ProductName
					if name == "" {
						name = color.Dim("(no product)")
					}
					fmt.Fprintf(out, "%s %s  %-10s %s  %s\n", marker, color.ID(r.ID.ShortID()),
						state, r.CreatedAt.Local().Format("2006-01-02 15:04"), name)
				}
				return listErr
			})
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <session>",
		Short: "Make a session current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				id, err := c.Use(args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{"current": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current session: %s\n", color.ID(id.ShortID()))
				return nil
			})
		},
	}
}

func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard [session]",
		Short: "Delete a draft session",
		Long: `Delete a draft session. Archived records made from it are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := sessionRef
			if len(args) == 1 {
				ref = args[0]
			}
			return withClient(func(c *inspect.Client) error {
				id, err := c.Discard(ref)
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{"discarded": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded session %s\n", color.ID(id.ShortID()))
				return nil
			})
		},
	}
}

type statusView struct {
	Session   *model.InspectionSession `json:"session"`
	Summaries []model.CategorySummary  `json:"summaries"`
	Pending   []model.ItemRef          `json:"pending"`
	Outcome   model.Outcome            `json:"outcome_if_submitted"`
}

func newStatusCmd() *cobra.Command {
	var brief bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the checklist of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				s, err := c.Load(sessionRef)
				if err != nil {
					return err
				}
				view := statusView{
					Session:   s,
					Summaries: checklist.Summaries(s),
					Pending:   validate.PendingItems(s),
					Outcome:   validate.ClassifyOutcome(s),
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return outputJSON(out, view)
				}
				printStatus(cmd, c.Catalog(), view, brief)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&brief, "brief", false, "show category totals only")
	return cmd
}

func printStatus(cmd *cobra.Command, cat *model.Catalog, v statusView, brief bool) {
	out := cmd.OutOrStdout()
	s := v.Session

	name := s.ProductName
	if name == "" {
		name = color.Warning("(not set)")
	}
	fmt.Fprintf(out, "%s %s\n", color.Header("Session"), color.ID(string(s.ID)))
	fmt.Fprintf(out, "  Product:  %s", name)
	if s.ProductCode != "" {
		fmt.Fprintf(out, " [%s]", s.ProductCode)
	}
	fmt.Fprintln(out)
	if s.Location != nil {
		fmt.Fprintf(out, "  Location: %.5f, %.5f (±%gm)\n", s.Location.Latitude, s.Location.Longitude, s.Location.AccuracyMeters)
	}
	if s.GeneralNotes != "" {
		fmt.Fprintf(out, "  Notes:    %s\n", s.GeneralNotes)
	}
	if s.Submitted() {
		fmt.Fprintf(out, "  %s %s\n", color.Success("Submitted"), s.SubmittedAt.Local().Format(time.RFC3339))
	}

	for _, sum := range v.Summaries {
		title := string(sum.CategoryID)
		if c, ok := cat.Category(sum.CategoryID); ok {
			title = c.Name
		}
		fmt.Fprintf(out, "\n%s  %d pass, %d fail, %d n/a, %d open\n",
			color.Header(title), sum.Pass, sum.Fail, sum.NotApplicable, sum.Undecided)
		if brief {
			continue
		}
		for _, it := range s.Categories[sum.CategoryID] {
			label := string(it.ID)
			if tpl, ok := cat.Template(sum.CategoryID, it.ID); ok {
				label = tpl.Title
			}
			fmt.Fprintf(out, "  %s %-14s %s\n", color.Status(it.Status), it.ID, label)
			if it.Notes != "" {
				fmt.Fprintf(out, "         %s\n", color.Dim(it.Notes))
			}
			if n := len(it.Evidence); n > 0 {
				fmt.Fprintf(out, "         %s\n", color.Dim(fmt.Sprintf("%d photo(s)", n)))
			}
		}
	}

	fmt.Fprintln(out)
	if len(v.Pending) > 0 {
		fmt.Fprintf(out, "%d item(s) still open.\n", len(v.Pending))
		return
	}
	fmt.Fprintf(out, "All items decided; outcome on submit: %s\n", color.Outcome(v.Outcome))
}
