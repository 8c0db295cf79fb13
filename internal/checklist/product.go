package checklist

import (
	"github.com/ppecheck/ppecheck/internal/location"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// SetProductIdentity sets the product name and code. An empty name is
// accepted here and rejected at submission.
func SetProductIdentity(s *model.InspectionSession, name, code string) {
	s.ProductName = ident.NormalizeText(name)
	s.ProductCode = ident.NormalizeText(code)
	s.Version++
}

// AppendProductEvidence adds a product-level evidence reference.
func AppendProductEvidence(s *model.InspectionSession, ref model.EvidenceRef) error {
	if ref == "" {
		return errclass.ErrInvalidEvidence.WithMessage("empty evidence reference")
	}
	s.ProductEvidence = append(s.ProductEvidence, ref)
	s.Version++
	return nil
}

// SetGeneralNotes replaces the session-level notes.
func SetGeneralNotes(s *model.InspectionSession, text string) {
	s.GeneralNotes = ident.NormalizeText(text)
	s.Version++
}

// CaptureLocation stores loc if the session has no location yet. The first
// stored fix wins; later calls report false and leave the session as is.
func CaptureLocation(s *model.InspectionSession, loc model.Location) (bool, error) {
	if s.Location != nil {
		return false, nil
	}
	if err := location.Validate(loc, 0); err != nil {
		return false, err
	}
	s.Location = &loc
	s.Version++
	return true, nil
}
