package checklist

import (
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// SetItemStatus records a decision for one item. Any decided status may
// replace any other; returning an item to undecided is not supported.
func SetItemStatus(s *model.InspectionSession, cat model.CategoryID, item model.ItemID, status model.ItemStatus) error {
	st, err := lookup(s, cat, item)
	if err != nil {
		return err
	}
	if !status.IsDecided() {
		return errclass.ErrInvalidStatus.WithMessagef("cannot set %s/%s to %q", cat, item, status)
	}
	st.Status = status
	s.Version++
	return nil
}

// SetItemNotes replaces the free-text notes of one item.
func SetItemNotes(s *model.InspectionSession, cat model.CategoryID, item model.ItemID, text string) error {
	st, err := lookup(s, cat, item)
	if err != nil {
		return err
	}
	st.Notes = ident.NormalizeText(text)
	s.Version++
	return nil
}

// AppendEvidence adds ref to the end of the item's evidence list.
func AppendEvidence(s *model.InspectionSession, cat model.CategoryID, item model.ItemID, ref model.EvidenceRef) error {
	st, err := lookup(s, cat, item)
	if err != nil {
		return err
	}
	if ref == "" {
		return errclass.ErrInvalidEvidence.WithMessage("empty evidence reference")
	}
	st.Evidence = append(st.Evidence, ref)
	s.Version++
	return nil
}

// Item returns a copy of one item state.
func Item(s *model.InspectionSession, cat model.CategoryID, item model.ItemID) (model.ItemState, error) {
	st, err := lookup(s, cat, item)
	if err != nil {
		return model.ItemState{}, err
	}
	out := *st
	out.Evidence = append([]model.EvidenceRef(nil), st.Evidence...)
	return out, nil
}

func lookup(s *model.InspectionSession, cat model.CategoryID, item model.ItemID) (*model.ItemState, error) {
	items, ok := s.Categories[cat]
	if !ok {
		return nil, errclass.ErrUnknownItem.WithMessagef("unknown category %s", cat)
	}
	for i := range items {
		if items[i].ID == item {
			return &items[i], nil
		}
	}
	return nil, errclass.ErrUnknownItem.WithMessagef("unknown item %s/%s", cat, item)
}
