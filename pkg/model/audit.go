package model

import "time"

// AuditEventType identifies the type of auditable event.
type AuditEventType string

const (
	EventTypeSessionCreate   AuditEventType = "session_create"
	EventTypeItemDecide      AuditEventType = "item_decide"
	EventTypeLocationCapture AuditEventType = "location_capture"
	EventTypeSubmit          AuditEventType = "inspection_submit"
	EventTypeDraftDiscard    AuditEventType = "draft_discard"
	EventTypeEvidenceGC      AuditEventType = "evidence_gc"
)

// AuditRecord is a single line in the audit log (JSONL format).
type AuditRecord struct {
	Timestamp  time.Time      `json:"timestamp"`
	EventType  AuditEventType `json:"event_type"`
	SessionID  SessionID      `json:"session_id,omitempty"`
	RecordID   RecordID       `json:"record_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	PrevHash   HashValue      `json:"prev_hash"`
	RecordHash HashValue      `json:"record_hash"`
}
