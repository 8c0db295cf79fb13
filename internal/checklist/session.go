// Package checklist creates and mutates in-memory inspection sessions.
//
// A session is materialized from a catalog with one undecided ItemState per
// template in every category, so completeness can be checked across the
// whole catalog without knowing which categories a user visited. All
// operations are synchronous and operate on a session owned by the caller.
// Nothing here is safe for concurrent use on the same session.
package checklist

import (
	"time"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

type options struct {
	now func() time.Time
	id  func() model.SessionID
}

// Option configures NewSession.
type Option func(*options)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSessionID fixes the identifier of the new session.
func WithSessionID(id model.SessionID) Option {
	return func(o *options) { o.id = func() model.SessionID { return id } }
}

// NewSession materializes a session from cat. It fails only when the
// catalog has no templates at all; seed values are taken as given.
func NewSession(cat *model.Catalog, seed model.ProductSeed, opts ...Option) (*model.InspectionSession, error) {
	if cat == nil || len(cat.Categories) == 0 {
		return nil, errclass.ErrEmptyCatalog.WithMessage("catalog has no categories")
	}
	if cat.TotalItems() == 0 {
		return nil, errclass.ErrEmptyCatalog.WithMessage("catalog has no item templates")
	}

	o := options{now: time.Now, id: model.NewSessionID}
	for _, opt := range opts {
		opt(&o)
	}

	s := &model.InspectionSession{
		ID:             o.id(),
		CatalogVersion: cat.Version,
		ProductName:    ident.NormalizeText(seed.Name),
		ProductCode:    ident.NormalizeText(seed.Code),
		GeneralNotes:   ident.NormalizeText(seed.GeneralNotes),
		CategoryOrder:  make([]model.CategoryID, 0, len(cat.Categories)),
		Categories:     make(map[model.CategoryID][]model.ItemState, len(cat.Categories)),
		CreatedAt:      o.now().UTC(),
	}
	for _, c := range cat.Categories {
		items := make([]model.ItemState, len(c.Items))
		for i, tmpl := range c.Items {
			items[i] = model.ItemState{ID: tmpl.ID, Status: model.StatusUndecided}
		}
		s.CategoryOrder = append(s.CategoryOrder, c.ID)
		s.Categories[c.ID] = items
	}
	return s, nil
}

// EnsureOpen returns ErrSessionFinalized once a record has been assembled
// from s. Mutators do not call it; hosts that want read-only sessions after
// submission check it before mutating.
func EnsureOpen(s *model.InspectionSession) error {
	if s.Submitted() {
		return errclass.ErrSessionFinalized.WithMessagef("session %s submitted at %s",
			s.ID.ShortID(), s.SubmittedAt.Format(time.RFC3339))
	}
	return nil
}
