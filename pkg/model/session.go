package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one in-progress inspection.
type SessionID string

// NewSessionID returns a random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ShortID returns the first 8 characters for display.
func (id SessionID) ShortID() string {
	s := string(id)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

func (id SessionID) String() string { return string(id) }

// EvidenceRef is an opaque handle to captured media (never the bytes).
type EvidenceRef string

// Location is a coordinate fix handed in by a geolocation adapter.
type Location struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at,omitempty"`
}

// ItemState is the per-session decision for one item template.
type ItemState struct {
	ID       ItemID        `json:"id"`
	Status   ItemStatus    `json:"status"`
	Notes    string        `json:"notes,omitempty"`
	Evidence []EvidenceRef `json:"evidence,omitempty"`
}

// ProductSeed carries the product fields known when an inspection starts.
type ProductSeed struct {
	Name         string `json:"name,omitempty"`
	Code         string `json:"code,omitempty"`
	GeneralNotes string `json:"general_notes,omitempty"`
}

// InspectionSession holds the mutable state of one inspection across every
// category of the catalog it was created from.
type InspectionSession struct {
	ID              SessionID                  `json:"id"`
	CatalogVersion  string                     `json:"catalog_version,omitempty"`
	ProductName     string                     `json:"product_name"`
	ProductCode     string                     `json:"product_code,omitempty"`
	ProductEvidence []EvidenceRef              `json:"product_evidence,omitempty"`
	GeneralNotes    string                     `json:"general_notes,omitempty"`
	CategoryOrder   []CategoryID               `json:"category_order"`
	Categories      map[CategoryID][]ItemState `json:"categories"`
	Location        *Location                  `json:"location,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	SubmittedAt     *time.Time                 `json:"submitted_at,omitempty"`
	// Version increases by one on every successful mutation.
	Version int64 `json:"version"`
}

// Submitted reports whether a record has been assembled from the session.
func (s *InspectionSession) Submitted() bool {
	return s.SubmittedAt != nil
}

// ItemCount returns the number of materialized item states.
func (s *InspectionSession) ItemCount() int {
	n := 0
	for _, items := range s.Categories {
		n += len(items)
	}
	return n
}

// Clone returns a deep copy sharing no slices, maps or pointers with s.
func (s *InspectionSession) Clone() *InspectionSession {
	out := *s
	out.ProductEvidence = cloneRefs(s.ProductEvidence)
	out.CategoryOrder = append([]CategoryID(nil), s.CategoryOrder...)
	out.Categories = CloneCategories(s.Categories)
	if s.Location != nil {
		loc := *s.Location
		out.Location = &loc
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		out.SubmittedAt = &t
	}
	return &out
}

// CloneCategories deep-copies a category to item-state mapping.
func CloneCategories(in map[CategoryID][]ItemState) map[CategoryID][]ItemState {
	out := make(map[CategoryID][]ItemState, len(in))
	for cat, items := range in {
		copied := make([]ItemState, len(items))
		for i, it := range items {
			copied[i] = it
			copied[i].Evidence = cloneRefs(it.Evidence)
		}
		out[cat] = copied
	}
	return out
}

func cloneRefs(in []EvidenceRef) []EvidenceRef {
	if in == nil {
		return nil
	}
	return append(make([]EvidenceRef, 0, len(in)), in...)
}
