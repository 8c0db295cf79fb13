package archive

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/internal/integrity"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// Result is the verification outcome for one record.
type Result struct {
	RecordID       model.RecordID `json:"record_id"`
	ChecksumValid  bool           `json:"checksum_valid"`
	EvidenceValid  bool           `json:"evidence_valid"`
	TamperDetected bool           `json:"tamper_detected"`
	Severity       string         `json:"severity,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// OK reports whether the record passed every check.
func (r *Result) OK() bool { return r.Error == "" }

// Verify checks a record's checksum and, with WithEvidence, that every
// stored evidence file still matches its reference.
func (s *Store) Verify(id model.RecordID) *Result {
	result := &Result{RecordID: id}

	rec, err := s.Load(id)
	if err != nil {
		result.Error = err.Error()
		result.TamperDetected = !errors.Is(err, errclass.ErrNotFound)
		result.Severity = "critical"
		return result
	}

	if err := integrity.VerifyRecord(rec); err != nil {
		result.Error = err.Error()
		result.TamperDetected = true
		result.Severity = "critical"
		return result
	}
	result.ChecksumValid = true

	if s.evidence == nil {
		result.EvidenceValid = true
		return result
	}
	var problems []string
	for _, ref := range evidenceRefs(rec) {
		if !evidence.Owns(ref) {
			continue
		}
		if err := s.evidence.Verify(ref); err != nil {
			problems = append(problems, err.Error())
		}
	}
	result.EvidenceValid = len(problems) == 0
	if !result.EvidenceValid {
		result.TamperDetected = true
		result.Severity = "error"
		result.Error = strings.Join(problems, "; ")
	}
	return result
}

// VerifyAll verifies every record concurrently. Results are ordered by id.
func (s *Store) VerifyAll(ctx context.Context) ([]*Result, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Verify(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b *Result) int {
		return strings.Compare(string(a.RecordID), string(b.RecordID))
	})
	return results, nil
}

func evidenceRefs(rec *model.InspectionRecord) []model.EvidenceRef {
	refs := slices.Clone(rec.ProductEvidence)
	for _, cat := range rec.CategoryOrder {
		for _, it := range rec.Categories[cat] {
			refs = append(refs, it.Evidence...)
		}
	}
	return refs
}
