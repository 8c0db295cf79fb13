package checklist

import (
	"context"
	"fmt"
	"io"

	"github.com/ppecheck/ppecheck/pkg/adapter"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// CaptureFrom asks src for a fix and stores it with first-write-wins
// semantics. The source is not consulted when a location is already set.
// A source error leaves the session unchanged.
func CaptureFrom(ctx context.Context, s *model.InspectionSession, src adapter.LocationSource) (bool, error) {
	if s.Location != nil {
		return false, nil
	}
	loc, err := src.Locate(ctx)
	if err != nil {
		return false, fmt.Errorf("locate: %w", err)
	}
	return CaptureLocation(s, loc)
}

// AttachEvidence stores media through sink and appends the returned
// reference to the item. The item is resolved first so unknown items never
// leave orphaned media behind.
func AttachEvidence(ctx context.Context, s *model.InspectionSession, cat model.CategoryID, item model.ItemID,
	sink adapter.EvidenceSink, name string, r io.Reader) (model.EvidenceRef, error) {
	if _, err := lookup(s, cat, item); err != nil {
		return "", err
	}
	ref, err := sink.Put(ctx, name, r)
	if err != nil {
		return "", fmt.Errorf("store evidence: %w", err)
	}
	if err := AppendEvidence(s, cat, item, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// AttachProductEvidence is AttachEvidence for product-level media.
func AttachProductEvidence(ctx context.Context, s *model.InspectionSession, sink adapter.EvidenceSink,
	name string, r io.Reader) (model.EvidenceRef, error) {
	ref, err := sink.Put(ctx, name, r)
	if err != nil {
		return "", fmt.Errorf("store evidence: %w", err)
	}
	if err := AppendProductEvidence(s, ref); err != nil {
		return "", err
	}
	return ref, nil
}
