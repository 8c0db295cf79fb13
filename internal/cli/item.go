package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/internal/checklist"
	"github.com/ppecheck/ppecheck/internal/location"
	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// itemArgs accepts "<category> <item>" or "<category>/<item>" and returns
// the remaining arguments.
func itemArgs(args []string) (model.CategoryID, model.ItemID, []string, error) {
	if len(args) == 0 {
		return "", "", nil, fmt.Errorf("missing item")
	}
	if cat, item, ok := strings.Cut(args[0], "/"); ok {
		return model.CategoryID(cat), model.ItemID(item), args[1:], nil
	}
	if len(args) < 2 {
		return "", "", nil, fmt.Errorf("missing item id after category %q", args[0])
	}
	return model.CategoryID(args[0]), model.ItemID(args[1]), args[2:], nil
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <item> <pass|fail|na>",
		Short: "Decide one checklist item",
		Long: `Decide one checklist item. The item may also be written as category/item.

Statuses: pass, fail, na (not applicable). A decided item can be changed to
another decision but never back to undecided.

Examples:
  ppecheck set harness webbing pass
  ppecheck set lanyard/hooks fail`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, item, rest, err := itemArgs(args)
			if err != nil {
				return err
			}
			if len(rest) != 1 {
				return fmt.Errorf("expected exactly one status")
			}
			status, err := model.ParseItemStatus(rest[0])
			if err != nil {
				return err
			}
			return withClient(func(c *inspect.Client) error {
				s, err := c.Decide(cmd.Context(), sessionRef, cat, item, status)
				if err != nil {
					return err
				}
				sum, err := checklist.CategorySummary(s, cat)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return outputJSON(out, map[string]any{
						"category": cat, "item": item, "status": status, "summary": sum,
					})
				}
				fmt.Fprintf(out, "%s %s/%s  (%s: %d/%d decided)\n", color.Status(status), cat, item,
					cat, sum.Total()-sum.Undecided, sum.Total())
				return nil
			})
		},
	}
}

func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [<category> <item>] <text>",
		Short: "Set item notes, or the general notes",
		Long: `Set the notes of one item, or the session's general notes when no item
is given. Notes replace any previous text; an empty string clears them.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cat  model.CategoryID
				item model.ItemID
				text = args[len(args)-1]
			)
			if len(args) > 1 {
				var err error
				if cat, item, _, err = itemArgs(args[:len(args)-1]); err != nil {
					return err
				}
			}
			return withClient(func(c *inspect.Client) error {
				if _, err := c.Note(cmd.Context(), sessionRef, cat, item, text); err != nil {
					return err
				}
				target := "general notes"
				if cat != "" {
					target = fmt.Sprintf("%s/%s", cat, item)
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{"target": target, "notes": text})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated notes for %s\n", target)
				return nil
			})
		},
	}
}

func newEvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Manage photo evidence",
	}
	add := &cobra.Command{
		Use:   "add [<category> <item>] <file>",
		Short: "Attach a photo to an item, or to the product",
		Long: `Attach a photo to an item, or to the product when no item is given.

Files are copied into the workspace and addressed by their SHA-256, so the
same photo is stored once however often it is attached.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cat  model.CategoryID
				item model.ItemID
				file = args[len(args)-1]
			)
			if len(args) > 1 {
				var err error
				if cat, item, _, err = itemArgs(args[:len(args)-1]); err != nil {
					return err
				}
			}
			return withClient(func(c *inspect.Client) error {
				ref, err := c.AttachEvidence(cmd.Context(), sessionRef, cat, item, file)
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{"ref": ref, "category": cat, "item": item})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Attached %s\n", color.ID(string(ref)))
				return nil
			})
		},
	}
	cmd.AddCommand(add)
	return cmd
}

func newProductCmd() *cobra.Command {
	var name, code string

	cmd := &cobra.Command{
		Use:   "product",
		Short: "Set the product name and code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				s, err := c.Load(sessionRef)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					name = s.ProductName
				}
				if !cmd.Flags().Changed("code") {
					code = s.ProductCode
				}
				if s, err = c.SetProduct(cmd.Context(), string(s.ID), name, code); err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{
						"product_name": s.ProductName, "product_code": s.ProductCode,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Product: %s [%s]\n", s.ProductName, s.ProductCode)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&code, "code", "", "product code or serial number")
	return cmd
}

func newLocateCmd() *cobra.Command {
	var loc model.Location

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Record where the inspection took place",
		Long: `Record where the inspection took place. Only the first location of a
session is kept; later calls leave it unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				stored, err := c.Locate(cmd.Context(), sessionRef, location.Fixed{Location: loc})
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{"stored": stored})
				}
				if stored {
					fmt.Fprintf(cmd.OutOrStdout(), "Location recorded: %.5f, %.5f\n", loc.Latitude, loc.Longitude)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Location already recorded; unchanged.")
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&loc.Latitude, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&loc.Longitude, "lon", 0, "longitude in degrees")
	cmd.Flags().Float64Var(&loc.AccuracyMeters, "accuracy", 0, "accuracy radius in meters")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}
