package errclass

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppecheck/ppecheck/pkg/model"
)

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Engine error classes.
var (
	ErrEmptyCatalog        = &Error{Code: "E_EMPTY_CATALOG"}
	ErrUnknownItem         = &Error{Code: "E_UNKNOWN_ITEM"}
	ErrMissingProductName  = &Error{Code: "E_MISSING_PRODUCT_NAME"}
	ErrIncompleteChecklist = &Error{Code: "E_INCOMPLETE_CHECKLIST"}
	ErrInvalidStatus       = &Error{Code: "E_INVALID_STATUS"}
	ErrInvalidEvidence     = &Error{Code: "E_INVALID_EVIDENCE"}
	ErrInvalidLocation     = &Error{Code: "E_INVALID_LOCATION"}
	ErrSessionFinalized    = &Error{Code: "E_SESSION_FINALIZED"}
)

// Host error classes.
var (
	ErrCatalogInvalid    = &Error{Code: "E_CATALOG_INVALID"}
	ErrNameInvalid       = &Error{Code: "E_NAME_INVALID"}
	ErrVersionConflict   = &Error{Code: "E_VERSION_CONFLICT"}
	ErrNotFound          = &Error{Code: "E_NOT_FOUND"}
	ErrRecordCorrupt     = &Error{Code: "E_RECORD_CORRUPT"}
	ErrAuditChainBroken  = &Error{Code: "E_AUDIT_CHAIN_BROKEN"}
	ErrFormatUnsupported = &Error{Code: "E_FORMAT_UNSUPPORTED"}
)

// IncompleteChecklistError lists every item still undecided at submission.
type IncompleteChecklistError struct {
	Pending []model.ItemRef
}

func (e *IncompleteChecklistError) Error() string {
	refs := make([]string, len(e.Pending))
	for i, p := range e.Pending {
		refs[i] = p.String()
	}
	return fmt.Sprintf("%s: %d item(s) undecided: %s",
		ErrIncompleteChecklist.Code, len(e.Pending), strings.Join(refs, ", "))
}

func (e *IncompleteChecklistError) Unwrap() error { return ErrIncompleteChecklist }

// ItemIDs returns the pending item identifiers in scan order.
func (e *IncompleteChecklistError) ItemIDs() []model.ItemID {
	ids := make([]model.ItemID, len(e.Pending))
	for i, p := range e.Pending {
		ids[i] = p.ItemID
	}
	return ids
}

// Recoverable reports whether err is a submission gate the user can fix by
// correcting input, as opposed to a caller bug.
func Recoverable(err error) bool {
	return errors.Is(err, ErrMissingProductName) || errors.Is(err, ErrIncompleteChecklist)
}

// Code extracts the stable code from err, or "" when err carries none.
func Code(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	var ic *IncompleteChecklistError
	if errors.As(err, &ic) {
		return ErrIncompleteChecklist.Code
	}
	return ""
}
