// Package diff compares two inspection records item by item, typically an
// earlier and a later inspection of the same product.
package diff

import (
	"slices"
	"strings"
	"time"

	"github.com/ppecheck/ppecheck/pkg/model"
)

// ChangeType represents the type of item change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change represents a single item change between records.
type Change struct {
	Item            model.ItemRef    `json:"item"`
	Type            ChangeType       `json:"type"`
	OldStatus       model.ItemStatus `json:"old_status,omitempty"`
	NewStatus       model.ItemStatus `json:"new_status,omitempty"`
	NotesChanged    bool             `json:"notes_changed,omitempty"`
	EvidenceChanged bool             `json:"evidence_changed,omitempty"`
}

// Regression reports whether an item that did not fail before fails now.
func (c *Change) Regression() bool {
	return c.NewStatus == model.StatusFail && c.OldStatus != model.StatusFail
}

// Result represents the result of comparing two records.
type Result struct {
	FromRecordID  model.RecordID `json:"from_record_id,omitempty"`
	ToRecordID    model.RecordID `json:"to_record_id"`
	FromTime      time.Time      `json:"from_time,omitempty"`
	ToTime        time.Time      `json:"to_time"`
	FromOutcome   model.Outcome  `json:"from_outcome,omitempty"`
	ToOutcome     model.Outcome  `json:"to_outcome"`
	SameProduct   bool           `json:"same_product"`
	Added         []*Change      `json:"added"`
	Removed       []*Change      `json:"removed"`
	Modified      []*Change      `json:"modified"`
	TotalAdded    int            `json:"total_added"`
	TotalRemoved  int            `json:"total_removed"`
	TotalModified int            `json:"total_modified"`
}

// Empty reports whether no item differs.
func (r *Result) Empty() bool {
	return r.TotalAdded+r.TotalRemoved+r.TotalModified == 0
}

// Regressions returns the modified items that fail in the later record
// but did not before.
func (r *Result) Regressions() []*Change {
	var out []*Change
	for _, c := range r.Modified {
		if c.Regression() {
			out = append(out, c)
		}
	}
	return out
}

// Diff compares two records. A nil from compares against an empty record,
// reporting every item of to as added.
func Diff(from, to *model.InspectionRecord) *Result {
	result := &Result{
		ToRecordID: to.RecordID,
		ToTime:     to.SubmittedAt,
		ToOutcome:  to.Outcome,
	}
	var fromItems map[model.ItemRef]model.ItemState
	if from != nil {
		result.FromRecordID = from.RecordID
		result.FromTime = from.SubmittedAt
		result.FromOutcome = from.Outcome
		result.SameProduct = sameProduct(from, to)
		fromItems = index(from)
	}
	toItems := index(to)

	for ref, now := range toItems {
		before, exists := fromItems[ref]
		if !exists {
			result.Added = append(result.Added, &Change{
				Item:      ref,
				Type:      ChangeAdded,
				NewStatus: now.Status,
			})
			continue
		}
		c := &Change{
			Item:            ref,
			Type:            ChangeModified,
			OldStatus:       before.Status,
			NewStatus:       now.Status,
			NotesChanged:    before.Notes != now.Notes,
			EvidenceChanged: !slices.Equal(before.Evidence, now.Evidence),
		}
		if c.OldStatus != c.NewStatus || c.NotesChanged || c.EvidenceChanged {
			result.Modified = append(result.Modified, c)
		}
	}
	for ref, before := range fromItems {
		if _, exists := toItems[ref]; !exists {
			result.Removed = append(result.Removed, &Change{
				Item:      ref,
				Type:      ChangeRemoved,
				OldStatus: before.Status,
			})
		}
	}

	sortChanges(result.Added)
	sortChanges(result.Removed)
	sortChanges(result.Modified)

	result.TotalAdded = len(result.Added)
	result.TotalRemoved = len(result.Removed)
	result.TotalModified = len(result.Modified)
	return result
}

// sameProduct matches on product code when both records carry one, and on
// the case-folded name otherwise.
func sameProduct(a, b *model.InspectionRecord) bool {
	if a.ProductCode != "" && b.ProductCode != "" {
		return a.ProductCode == b.ProductCode
	}
	return strings.EqualFold(strings.TrimSpace(a.ProductName), strings.TrimSpace(b.ProductName))
}

func index(rec *model.InspectionRecord) map[model.ItemRef]model.ItemState {
	out := make(map[model.ItemRef]model.ItemState)
	for _, cat := range rec.CategoryOrder {
		for _, it := range rec.Categories[cat] {
			out[model.ItemRef{CategoryID: cat, ItemID: it.ID}] = it
		}
	}
	return out
}

func sortChanges(changes []*Change) {
	slices.SortFunc(changes, func(a, b *Change) int {
		return strings.Compare(a.Item.String(), b.Item.String())
	})
}
