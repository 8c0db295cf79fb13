// Package submit turns a validated session into an immutable record.
package submit

import (
	"time"

	"github.com/ppecheck/ppecheck/internal/location"
	"github.com/ppecheck/ppecheck/internal/validate"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// Assembler builds InspectionRecords. The zero value is not usable; call
// NewAssembler.
type Assembler struct {
	now       func() time.Time
	inspector string
	cellLevel int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithInspector records who performed the inspection.
func WithInspector(name string) Option {
	return func(a *Assembler) { a.inspector = name }
}

// WithCellLevel sets the s2 level used for the record's location cell.
func WithCellLevel(level int) Option {
	return func(a *Assembler) { a.cellLevel = level }
}

// NewAssembler returns an Assembler using the wall clock.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{now: time.Now, cellLevel: location.DefaultCellLevel}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble snapshots s into a record. It does not re-validate; callers run
// validate.ValidateForSubmission first. The record shares no memory with s,
// so later edits to the session never reach it. The session is marked
// submitted unless it already was.
func (a *Assembler) Assemble(s *model.InspectionSession) *model.InspectionRecord {
	at := a.now().UTC()
	snap := s.Clone()

	rec := &model.InspectionRecord{
		RecordID:        model.NewRecordID(at),
		SessionID:       snap.ID,
		CatalogVersion:  snap.CatalogVersion,
		Inspector:       a.inspector,
		ProductName:     snap.ProductName,
		ProductCode:     snap.ProductCode,
		ProductEvidence: snap.ProductEvidence,
		GeneralNotes:    snap.GeneralNotes,
		CategoryOrder:   snap.CategoryOrder,
		Categories:      snap.Categories,
		Location:        snap.Location,
		Outcome:         validate.ClassifyOutcome(snap),
		CreatedAt:       snap.CreatedAt,
		SubmittedAt:     at,
	}
	if rec.Location != nil {
		rec.LocationCell = location.CellToken(*rec.Location, a.cellLevel)
	}

	if s.SubmittedAt == nil {
		s.SubmittedAt = &at
	}
	return rec
}
