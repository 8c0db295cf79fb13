// Package doctor diagnoses workspace health.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ppecheck/ppecheck/internal/archive"
	"github.com/ppecheck/ppecheck/internal/audit"
	"github.com/ppecheck/ppecheck/internal/catalog"
	"github.com/ppecheck/ppecheck/internal/draft"
	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/internal/gc"
	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/config"
	"github.com/ppecheck/ppecheck/pkg/errclass"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	if f.Severity == "critical" || f.Severity == "error" {
		r.Healthy = false
	}
}

// Doctor performs workspace health checks.
type Doctor struct {
	ws *workspace.Workspace
}

// NewDoctor creates a new doctor.
func NewDoctor(ws *workspace.Workspace) *Doctor {
	return &Doctor{ws: ws}
}

// Check runs all diagnostic checks. Strict mode also verifies every
// archived record and its evidence.
func (d *Doctor) Check(ctx context.Context, strict bool) (*Result, error) {
	result := &Result{Healthy: true}

	d.checkFormatVersion(result)
	d.checkConfig(result)
	d.checkDrafts(result)
	d.checkAudit(result)
	if strict {
		if err := d.checkRecords(ctx, result); err != nil {
			return nil, err
		}
	}
	d.checkOrphanTmp(result)
	d.checkEvidence(ctx, result)
	return result, nil
}

func (d *Doctor) checkFormatVersion(result *Result) {
	version, err := workspace.ReadFormatVersion(d.ws.Root)
	if err != nil {
		result.add(Finding{
			Category:    "format",
			Description: "format_version file missing or unreadable",
			Severity:    "critical",
			Path:        filepath.Join(d.ws.MetaDir(), workspace.FormatVersionFile),
		})
		return
	}
	if version > workspace.FormatVersion {
		result.add(Finding{
			Category:    "format",
			Description: fmt.Sprintf("format version %d > supported %d", version, workspace.FormatVersion),
			Severity:    "critical",
		})
	}
}

func (d *Doctor) checkConfig(result *Result) {
	cfg, err := config.Load(d.ws.Root)
	if err != nil {
		result.add(Finding{Category: "config", Description: err.Error(), Severity: "error", Path: d.ws.ConfigPath()})
		return
	}
	if _, err := catalog.Resolve(d.ws.ResolvePath(cfg.Catalog)); err != nil {
		result.add(Finding{Category: "catalog", Description: err.Error(), Severity: "error", Path: cfg.Catalog})
	}
}

func (d *Doctor) checkDrafts(result *Result) {
	store := draft.NewStore(d.ws.DraftsDir())
	if _, err := store.List(); err != nil {
		for _, e := range unjoin(err) {
			result.add(Finding{Category: "draft", Description: e.Error(), Severity: "warning"})
		}
	}

	cur, err := store.Current()
	if err != nil {
		return
	}
	if _, err := store.Load(cur); errors.Is(err, errclass.ErrNotFound) {
		result.add(Finding{
			Category:    "draft",
			Description: fmt.Sprintf("current session %s has no draft", cur.ShortID()),
			Severity:    "warning",
		})
	}
}

func (d *Doctor) checkAudit(result *Result) {
	if _, err := audit.NewFileAppender(d.ws.AuditPath()).VerifyChain(); err != nil {
		result.add(Finding{Category: "audit", Description: err.Error(), Severity: "critical", Path: d.ws.AuditPath()})
	}
}

func (d *Doctor) checkRecords(ctx context.Context, result *Result) error {
	store := archive.NewStore(d.ws.RecordsDir(), archive.WithEvidence(evidence.NewFileStore(d.ws.EvidenceDir())))
	results, err := store.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify records: %w", err)
	}
	for _, r := range results {
		if r.OK() {
			continue
		}
		result.add(Finding{
			Category:    "integrity",
			Description: fmt.Sprintf("record %s: %s", r.RecordID, r.Error),
			Severity:    r.Severity,
		})
	}
	return nil
}

func (d *Doctor) checkOrphanTmp(result *Result) {
	filepath.WalkDir(d.ws.MetaDir(), func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(e.Name(), ".ppecheck-tmp-") {
			result.add(Finding{
				Category:    "tmp",
				Description: fmt.Sprintf("orphan temp file: %s", e.Name()),
				Severity:    "info",
				Path:        path,
			})
		}
		return nil
	})
}

// checkEvidence reports evidence gc would delete. Unreadable drafts are
// already reported by checkDrafts.
func (d *Doctor) checkEvidence(ctx context.Context, result *Result) {
	c := gc.NewCollector(draft.NewStore(d.ws.DraftsDir()), archive.NewStore(d.ws.RecordsDir()),
		evidence.NewFileStore(d.ws.EvidenceDir()))
	plan, err := c.Plan(ctx)
	if err != nil || len(plan.ToDelete) == 0 {
		return
	}
	result.add(Finding{
		Category:    "evidence",
		Description: fmt.Sprintf("%d unreferenced evidence file(s), %d bytes; run 'ppecheck gc'", len(plan.ToDelete), plan.ReclaimableSize),
		Severity:    "info",
		Path:        d.ws.EvidenceDir(),
	})
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
