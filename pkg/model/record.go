package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RecordID is the unique identifier for a submitted inspection: <unix_ms>-<rand8hex>
type RecordID string

// NewRecordID generates a new unique record ID for the given submission time.
func NewRecordID(at time.Time) RecordID {
	var randBytes [4]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return RecordID(fmt.Sprintf("%013d-%s", at.UnixMilli(), hex.EncodeToString(randBytes[:])))
}

// ShortID returns the first 8 characters for display.
func (id RecordID) ShortID() string {
	s := string(id)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

func (id RecordID) String() string { return string(id) }

// InspectionRecord is the immutable snapshot of a submitted session.
type InspectionRecord struct {
	RecordID        RecordID                   `json:"record_id"`
	SessionID       SessionID                  `json:"session_id"`
	CatalogVersion  string                     `json:"catalog_version,omitempty"`
	Inspector       string                     `json:"inspector,omitempty"`
	ProductName     string                     `json:"product_name"`
	ProductCode     string                     `json:"product_code,omitempty"`
	ProductEvidence []EvidenceRef              `json:"product_evidence,omitempty"`
	GeneralNotes    string                     `json:"general_notes,omitempty"`
	CategoryOrder   []CategoryID               `json:"category_order"`
	Categories      map[CategoryID][]ItemState `json:"categories"`
	Location        *Location                  `json:"location,omitempty"`
	// LocationCell is the s2 cell token of Location, empty without a fix.
	LocationCell string    `json:"location_cell,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Checksum     HashValue `json:"checksum,omitempty"`
}

// FailedItems lists every failed (category, item) pair in category order.
func (r *InspectionRecord) FailedItems() []ItemRef {
	var out []ItemRef
	for _, cat := range r.CategoryOrder {
		for _, it := range r.Categories[cat] {
			if it.Status == StatusFail {
				out = append(out, ItemRef{CategoryID: cat, ItemID: it.ID})
			}
		}
	}
	return out
}

// ItemRef names one item within the catalog.
type ItemRef struct {
	CategoryID CategoryID `json:"category_id"`
	ItemID     ItemID     `json:"item_id"`
}

func (r ItemRef) String() string {
	return string(r.CategoryID) + "/" + string(r.ItemID)
}
