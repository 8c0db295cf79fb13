// Package gc reclaims evidence files that no draft or record references.
package gc

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// DefaultMinAge keeps recently stored evidence whose draft may not be saved yet.
const DefaultMinAge = 24 * time.Hour

// DraftLister lists every draft in the workspace, submitted or not.
type DraftLister interface {
	List() ([]*model.InspectionSession, error)
}

// RecordLister lists every archived record and fails when any of them
// cannot be read.
type RecordLister interface {
	LoadAll() ([]*model.InspectionRecord, error)
}

// Auditor appends audit events.
type Auditor interface {
	Append(eventType model.AuditEventType, sessionID model.SessionID, recordID model.RecordID, details map[string]any) error
}

// Plan lists the evidence a run would delete.
type Plan struct {
	PlanID          string              `json:"plan_id"`
	CreatedAt       time.Time           `json:"created_at"`
	Stored          int                 `json:"stored"`
	Referenced      int                 `json:"referenced"`
	ToDelete        []model.EvidenceRef `json:"to_delete"`
	ReclaimableSize int64               `json:"reclaimable_bytes"`
}

// Result reports what a run removed.
type Result struct {
	PlanID       string              `json:"plan_id"`
	Deleted      []model.EvidenceRef `json:"deleted"`
	Skipped      []model.EvidenceRef `json:"skipped,omitempty"`
	DeletedBytes int64               `json:"deleted_bytes"`
}

// Collector handles evidence garbage collection.
type Collector struct {
	drafts   DraftLister
	records  RecordLister
	evidence *evidence.FileStore
	audit    Auditor
	minAge   time.Duration
	now      func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithMinAge overrides DefaultMinAge. Zero makes every unreferenced
// object eligible.
func WithMinAge(d time.Duration) Option { return func(c *Collector) { c.minAge = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

// WithAuditor records each run.
func WithAuditor(a Auditor) Option { return func(c *Collector) { c.audit = a } }

// NewCollector creates a new evidence collector.
func NewCollector(drafts DraftLister, records RecordLister, store *evidence.FileStore, opts ...Option) *Collector {
	c := &Collector{
		drafts:   drafts,
		records:  records,
		evidence: store,
		minAge:   DefaultMinAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Plan computes the unreferenced evidence without deleting anything.
func (c *Collector) Plan(ctx context.Context) (*Plan, error) {
	protected, err := c.computeProtectedSet()
	if err != nil {
		return nil, fmt.Errorf("compute protected set: %w", err)
	}
	objs, err := c.evidence.List()
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}

	now := c.now()
	plan := &Plan{
		PlanID:     uuid.NewString(),
		CreatedAt:  now.UTC(),
		Stored:     len(objs),
		Referenced: len(protected),
		ToDelete:   []model.EvidenceRef{},
	}
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if protected[obj.Ref] || now.Sub(obj.ModTime) < c.minAge {
			continue
		}
		plan.ToDelete = append(plan.ToDelete, obj.Ref)
		plan.ReclaimableSize += obj.Size
	}
	slices.SortFunc(plan.ToDelete, func(a, b model.EvidenceRef) int {
		return strings.Compare(string(a), string(b))
	})
	return plan, nil
}

// Run deletes the plan's evidence. References picked up by a draft or
// record since the plan was made are skipped.
func (c *Collector) Run(ctx context.Context, plan *Plan) (*Result, error) {
	protected, err := c.computeProtectedSet()
	if err != nil {
		return nil, fmt.Errorf("compute protected set: %w", err)
	}
	objs, err := c.evidence.List()
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	sizes := make(map[model.EvidenceRef]int64, len(objs))
	for _, obj := range objs {
		sizes[obj.Ref] = obj.Size
	}

	result := &Result{PlanID: plan.PlanID, Deleted: []model.EvidenceRef{}}
	for _, ref := range plan.ToDelete {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if protected[ref] {
			result.Skipped = append(result.Skipped, ref)
			continue
		}
		size, stored := sizes[ref]
		if !stored {
			continue
		}
		if err := c.evidence.Remove(ref); err != nil {
			return result, err
		}
		result.Deleted = append(result.Deleted, ref)
		result.DeletedBytes += size
	}

	if c.audit != nil && len(result.Deleted) > 0 {
		if err := c.audit.Append(model.EventTypeEvidenceGC, "", "", map[string]any{
			"plan_id":       plan.PlanID,
			"deleted_count": len(result.Deleted),
			"deleted_bytes": result.DeletedBytes,
		}); err != nil {
			return result, fmt.Errorf("audit gc: %w", err)
		}
	}
	return result, nil
}

// computeProtectedSet collects every workspace reference from drafts,
// submitted ones included, and from archived records. Any draft or record
// that cannot be read fails the whole computation.
func (c *Collector) computeProtectedSet() (map[model.EvidenceRef]bool, error) {
	protected := make(map[model.EvidenceRef]bool)
	add := func(refs []model.EvidenceRef) {
		for _, r := range refs {
			if evidence.Owns(r) {
				protected[r] = true
			}
		}
	}

	sessions, err := c.drafts.List()
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	for _, s := range sessions {
		add(s.ProductEvidence)
		for _, items := range s.Categories {
			for _, it := range items {
				add(it.Evidence)
			}
		}
	}

	records, err := c.records.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for _, r := range records {
		add(r.ProductEvidence)
		for _, items := range r.Categories {
			for _, it := range items {
				add(it.Evidence)
			}
		}
	}
	return protected, nil
}
