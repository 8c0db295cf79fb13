// Package validate gates submission and classifies finished inspections.
package validate

import (
	"slices"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// ValidateForSubmission reports the first unmet submission rule. A blank
// product name is checked before completeness; when items are pending the
// returned *errclass.IncompleteChecklistError names all of them.
func ValidateForSubmission(s *model.InspectionSession) error {
	if ident.IsBlank(s.ProductName) {
		return errclass.ErrMissingProductName.WithMessage("product name is required")
	}
	if pending := PendingItems(s); len(pending) > 0 {
		return &errclass.IncompleteChecklistError{Pending: pending}
	}
	return nil
}

// PendingItems lists undecided items, categories in catalog order and items
// in template order.
func PendingItems(s *model.InspectionSession) []model.ItemRef {
	var pending []model.ItemRef
	for _, cat := range order(s) {
		for _, it := range s.Categories[cat] {
			if !it.Status.IsDecided() {
				pending = append(pending, model.ItemRef{CategoryID: cat, ItemID: it.ID})
			}
		}
	}
	return pending
}

// ClassifyOutcome returns success_with_issues if any item failed.
func ClassifyOutcome(s *model.InspectionSession) model.Outcome {
	for _, items := range s.Categories {
		for _, it := range items {
			if it.Status == model.StatusFail {
				return model.OutcomeSuccessWithIssues
			}
		}
	}
	return model.OutcomeSuccess
}

// order falls back to the map keys for sessions decoded without an order,
// e.g. hand-edited drafts, so no category escapes the scan.
func order(s *model.InspectionSession) []model.CategoryID {
	if len(s.CategoryOrder) == len(s.Categories) {
		return s.CategoryOrder
	}
	seen := make(map[model.CategoryID]bool, len(s.CategoryOrder))
	out := make([]model.CategoryID, 0, len(s.Categories))
	for _, cat := range s.CategoryOrder {
		if _, ok := s.Categories[cat]; ok && !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	var rest []model.CategoryID
	for cat := range s.Categories {
		if !seen[cat] {
			rest = append(rest, cat)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
