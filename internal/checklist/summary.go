package checklist

import (
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// CategorySummary counts the statuses of one category's items.
func CategorySummary(s *model.InspectionSession, cat model.CategoryID) (model.CategorySummary, error) {
	items, ok := s.Categories[cat]
	if !ok {
		return model.CategorySummary{}, errclass.ErrUnknownItem.WithMessagef("unknown category %s", cat)
	}
	sum := model.CategorySummary{CategoryID: cat}
	for _, it := range items {
		switch it.Status {
		case model.StatusPass:
			sum.Pass++
		case model.StatusFail:
			sum.Fail++
		case model.StatusNotApplicable:
			sum.NotApplicable++
		default:
			sum.Undecided++
		}
	}
	return sum, nil
}

// Summaries returns one summary per category in catalog order.
func Summaries(s *model.InspectionSession) []model.CategorySummary {
	out := make([]model.CategorySummary, 0, len(s.CategoryOrder))
	for _, cat := range s.CategoryOrder {
		sum, err := CategorySummary(s, cat)
		if err != nil {
			// CategoryOrder and Categories are built together.
			panic("checklist: category order out of sync: " + err.Error())
		}
		out = append(out, sum)
	}
	return out
}
