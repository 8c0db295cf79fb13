package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppecheck/ppecheck/internal/archive"
	"github.com/ppecheck/ppecheck/internal/audit"
	"github.com/ppecheck/ppecheck/internal/catalog"
	"github.com/ppecheck/ppecheck/internal/checklist"
	"github.com/ppecheck/ppecheck/internal/diff"
	"github.com/ppecheck/ppecheck/internal/draft"
	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/internal/gc"
	"github.com/ppecheck/ppecheck/internal/location"
	"github.com/ppecheck/ppecheck/internal/submit"
	"github.com/ppecheck/ppecheck/internal/validate"
	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/adapter"
	"github.com/ppecheck/ppecheck/pkg/config"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/logging"
	"github.com/ppecheck/ppecheck/pkg/metrics"
	"github.com/ppecheck/ppecheck/pkg/model"
	"github.com/ppecheck/ppecheck/pkg/webhook"
)

// Client runs inspections in one workspace.
type Client struct {
	ws      *workspace.Workspace
	cfg     *config.Config
	catalog *model.Catalog

	drafts    *draft.Store
	evidence  *evidence.FileStore
	archive   *archive.Store
	audit     *audit.FileAppender
	assembler *submit.Assembler
	metrics   *metrics.Registry
	publisher *webhook.Publisher
	sinks     []adapter.RecordSink

	log *logging.Logger
	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the time source for sessions, records and metrics.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option { return func(c *Client) { c.log = l } }

// WithRecordSink adds a sink that receives every archived record after the
// configured webhooks.
func WithRecordSink(s adapter.RecordSink) Option {
	return func(c *Client) { c.sinks = append(c.sinks, s) }
}

// WithCatalog replaces the catalog named in the workspace config.
func WithCatalog(cat *model.Catalog) Option { return func(c *Client) { c.catalog = cat } }

// Init creates a workspace at path and opens it.
func Init(path string, opts ...Option) (*Client, error) {
	if _, err := workspace.Init(path); err != nil {
		return nil, fmt.Errorf("ppecheck init: %w", err)
	}
	return openAt(path, opts)
}

// Open opens the workspace at or above path.
func Open(path string, opts ...Option) (*Client, error) {
	ws, err := workspace.Discover(path)
	if err != nil {
		return nil, fmt.Errorf("ppecheck open: %w", err)
	}
	return newClient(ws, opts)
}

// OpenOrInit opens the workspace rooted at path, creating it when missing.
func OpenOrInit(path string, opts ...Option) (*Client, error) {
	if info, err := os.Stat(filepath.Join(path, workspace.DirName)); err == nil && info.IsDir() {
		return openAt(path, opts)
	}
	return Init(path, opts...)
}

func openAt(path string, opts []Option) (*Client, error) {
	ws, err := workspace.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ppecheck open: %w", err)
	}
	return newClient(ws, opts)
}

func newClient(ws *workspace.Workspace, opts []Option) (*Client, error) {
	cfg, err := config.Load(ws.Root)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ws:       ws,
		cfg:      cfg,
		drafts:   draft.NewStore(ws.DraftsDir()),
		evidence: evidence.NewFileStore(ws.EvidenceDir()),
		audit:    audit.NewFileAppender(ws.AuditPath()),
		metrics:  metrics.NewRegistry(),
		log:      logging.Global(),
		now:      time.Now,
	}
	c.archive = archive.NewStore(ws.RecordsDir(), archive.WithEvidence(c.evidence))
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		if c.catalog, err = catalog.Resolve(ws.ResolvePath(cfg.Catalog)); err != nil {
			return nil, err
		}
	}
	c.assembler = submit.NewAssembler(
		submit.WithClock(c.now),
		submit.WithInspector(cfg.Inspector),
		submit.WithCellLevel(cfg.Submission.CellLevel),
	)
	if err := c.metrics.Register(metrics.NewWorkspaceCollector(c.archive, c.drafts)); err != nil {
		return nil, err
	}
	if hooks := webhookHooks(cfg.Webhooks); len(hooks) > 0 {
		c.publisher = webhook.NewPublisher(webhook.Config{
			Hooks:       hooks,
			WorkspaceID: ws.ID,
			MaxRetries:  cfg.WebhookMaxRetries,
			RetryDelay:  cfg.WebhookRetryDelay,
		}, webhook.WithLogger(c.log), webhook.WithClock(c.now))
	}
	return c, nil
}

func webhookHooks(in []config.WebhookConfig) []webhook.Hook {
	var hooks []webhook.Hook
	for _, h := range in {
		if !h.Enabled {
			continue
		}
		events := make([]webhook.EventType, len(h.Events))
		for i, e := range h.Events {
			events[i] = webhook.EventType(e)
		}
		hooks = append(hooks, webhook.Hook{URL: h.URL, Secret: h.Secret, Events: events, Enabled: true})
	}
	return hooks
}

// Close releases the webhook publisher.
func (c *Client) Close() error {
	if c.publisher != nil {
		return c.publisher.Close()
	}
	return nil
}

// Workspace returns the opened workspace.
func (c *Client) Workspace() *workspace.Workspace { return c.ws }

// Config returns the loaded configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Catalog returns the catalog new sessions are created from.
func (c *Client) Catalog() *model.Catalog { return c.catalog }

// Metrics returns the client's metrics registry.
func (c *Client) Metrics() *metrics.Registry { return c.metrics }

// Start creates a session over the whole catalog, saves it and makes it
// current.
func (c *Client) Start(_ context.Context, seed model.ProductSeed) (*model.InspectionSession, error) {
	s, err := checklist.NewSession(c.catalog, seed, checklist.WithClock(c.now))
	if err != nil {
		return nil, err
	}
	if err := c.drafts.Save(s, 0); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	if err := c.drafts.SetCurrent(s.ID); err != nil {
		return nil, err
	}
	c.record(model.EventTypeSessionCreate, s.ID, "", map[string]any{
		"product_name": s.ProductName,
		"items":        s.ItemCount(),
	})
	c.metrics.SessionStarted()
	c.log.Info("session started", map[string]any{"session_id": string(s.ID)})
	return s, nil
}

// Load returns the session named by ref: a full id, a unique id prefix, or
// "" for the current session.
func (c *Client) Load(ref string) (*model.InspectionSession, error) {
	id, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	return c.drafts.Load(id)
}

// Sessions lists saved sessions, oldest first. Unreadable drafts are
// reported in the error alongside the readable ones.
func (c *Client) Sessions() ([]*model.InspectionSession, error) {
	return c.drafts.List()
}

// Use makes ref the current session.
func (c *Client) Use(ref string) (model.SessionID, error) {
	id, err := c.resolve(ref)
	if err != nil {
		return "", err
	}
	return id, c.drafts.SetCurrent(id)
}

// Save persists s if nobody else saved the draft since expectedVersion.
func (c *Client) Save(s *model.InspectionSession, expectedVersion int64) error {
	return c.drafts.Save(s, expectedVersion)
}

// Decide records a status for one item.
func (c *Client) Decide(_ context.Context, ref string, cat model.CategoryID, item model.ItemID, status model.ItemStatus) (*model.InspectionSession, error) {
	s, err := c.update(ref, func(s *model.InspectionSession) error {
		return checklist.SetItemStatus(s, cat, item, status)
	})
	if err != nil {
		return nil, err
	}
	c.record(model.EventTypeItemDecide, s.ID, "", map[string]any{
		"category": string(cat),
		"item":     string(item),
		"status":   string(status),
	})
	return s, nil
}

// Note sets the notes of one item, or the general notes when cat and item
// are both empty.
func (c *Client) Note(_ context.Context, ref string, cat model.CategoryID, item model.ItemID, text string) (*model.InspectionSession, error) {
	return c.update(ref, func(s *model.InspectionSession) error {
		if cat == "" && item == "" {
			checklist.SetGeneralNotes(s, text)
			return nil
		}
		return checklist.SetItemNotes(s, cat, item, text)
	})
}

// SetProduct sets the product name and code.
func (c *Client) SetProduct(_ context.Context, ref, name, code string) (*model.InspectionSession, error) {
	return c.update(ref, func(s *model.InspectionSession) error {
		checklist.SetProductIdentity(s, name, code)
		return nil
	})
}

// AttachEvidence stores the file at path and attaches it to one item, or
// to the product when cat and item are both empty.
func (c *Client) AttachEvidence(ctx context.Context, ref string, cat model.CategoryID, item model.ItemID, path string) (model.EvidenceRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errclass.ErrInvalidEvidence.WithMessagef("open %s: %v", path, err)
	}
	defer f.Close()

	var evRef model.EvidenceRef
	_, err = c.update(ref, func(s *model.InspectionSession) error {
		var err error
		if cat == "" && item == "" {
			evRef, err = checklist.AttachProductEvidence(ctx, s, c.evidence, filepath.Base(path), f)
		} else {
			evRef, err = checklist.AttachEvidence(ctx, s, cat, item, c.evidence, filepath.Base(path), f)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return evRef, nil
}

// Locate captures a fix from src unless the session already has one. The
// fix must satisfy the configured accuracy bound. It reports whether a
// location was stored.
func (c *Client) Locate(ctx context.Context, ref string, src adapter.LocationSource) (bool, error) {
	bounded := adapter.LocationFunc(func(ctx context.Context) (model.Location, error) {
		loc, err := src.Locate(ctx)
		if err != nil {
			return loc, err
		}
		return loc, location.Validate(loc, c.cfg.Location.MaxAccuracyMeters)
	})

	var stored bool
	s, err := c.update(ref, func(s *model.InspectionSession) error {
		var err error
		stored, err = checklist.CaptureFrom(ctx, s, bounded)
		return err
	})
	if err != nil {
		return false, err
	}
	if stored {
		c.record(model.EventTypeLocationCapture, s.ID, "", map[string]any{
			"cell": location.CellToken(*s.Location, c.cfg.Submission.CellLevel),
		})
	}
	return stored, nil
}

// Validate runs the submission gate without submitting.
func (c *Client) Validate(ref string) (*model.InspectionSession, error) {
	s, err := c.Load(ref)
	if err != nil {
		return nil, err
	}
	return s, validate.ValidateForSubmission(s)
}

// Pending lists undecided items in catalog order.
func (c *Client) Pending(ref string) ([]model.ItemRef, error) {
	s, err := c.Load(ref)
	if err != nil {
		return nil, err
	}
	return validate.PendingItems(s), nil
}

// Submit validates the session, archives the resulting record and notifies
// the configured sinks. Sink failures are logged; the record stays
// archived.
func (c *Client) Submit(ctx context.Context, ref string) (*model.InspectionRecord, error) {
	start := c.now()
	s, err := c.Load(ref)
	if err != nil {
		return nil, err
	}
	if c.cfg.Submission.LockAfterSubmit {
		if err := checklist.EnsureOpen(s); err != nil {
			return nil, err
		}
	}
	if err := validate.ValidateForSubmission(s); err != nil {
		c.metrics.ValidationFailed(errclass.Code(err))
		c.log.Info("submission rejected", map[string]any{
			"session_id": string(s.ID),
			"reason":     errclass.Code(err),
		})
		return nil, err
	}

	expected := s.Version
	rec := c.assembler.Assemble(s)
	if err := c.archive.Publish(ctx, rec); err != nil {
		return nil, fmt.Errorf("archive record: %w", err)
	}
	// Marking the session submitted counts as a mutation.
	s.Version++
	if err := c.drafts.Save(s, expected); err != nil {
		return rec, fmt.Errorf("record %s archived but draft not updated: %w", rec.RecordID, err)
	}
	c.record(model.EventTypeSubmit, s.ID, rec.RecordID, map[string]any{
		"outcome":  string(rec.Outcome),
		"checksum": string(rec.Checksum),
	})
	c.metrics.Submitted(rec.Outcome, c.now().Sub(start))
	c.log.Info("inspection submitted", map[string]any{
		"session_id": string(s.ID),
		"record_id":  string(rec.RecordID),
		"outcome":    string(rec.Outcome),
	})

	c.notify(ctx, rec)
	return rec, nil
}

func (c *Client) notify(ctx context.Context, rec *model.InspectionRecord) {
	var sinks []adapter.RecordSink
	if c.publisher != nil {
		sinks = append(sinks, c.publisher)
	}
	sinks = append(sinks, c.sinks...)
	for _, sink := range sinks {
		if err := sink.Publish(ctx, rec); err != nil {
			c.log.Warn("record sink failed", map[string]any{
				"record_id": string(rec.RecordID),
				"error":     err.Error(),
			})
		}
	}
}

// Discard deletes a draft. Archived records are never touched.
func (c *Client) Discard(ref string) (model.SessionID, error) {
	id, err := c.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := c.drafts.Delete(id); err != nil {
		return "", err
	}
	c.record(model.EventTypeDraftDiscard, id, "", nil)
	return id, nil
}

// RecordFilter narrows Records. Zero fields match everything.
type RecordFilter struct {
	Product   string
	Outcome   model.Outcome
	SessionID model.SessionID
	Since     time.Time
	Until     time.Time
}

// Records returns archived records, newest first.
func (c *Client) Records(f RecordFilter) ([]*model.InspectionRecord, error) {
	return c.archive.Find(archive.FilterOptions{
		Product:   f.Product,
		Outcome:   f.Outcome,
		SessionID: f.SessionID,
		Since:     f.Since,
		Until:     f.Until,
	})
}

// Record resolves a record id, id prefix or product code.
func (c *Client) Record(query string) (*model.InspectionRecord, error) {
	return c.archive.FindOne(query)
}

// VerifyRecord checks one record's checksum and evidence.
func (c *Client) VerifyRecord(id model.RecordID) *archive.Result {
	return c.archive.Verify(id)
}

// VerifyRecords checks every archived record.
func (c *Client) VerifyRecords(ctx context.Context) ([]*archive.Result, error) {
	return c.archive.VerifyAll(ctx)
}

// CompareRecords diffs two records, each given as an id, id prefix or
// product code.
func (c *Client) CompareRecords(from, to string) (*diff.Result, error) {
	a, err := c.archive.FindOne(from)
	if err != nil {
		return nil, err
	}
	b, err := c.archive.FindOne(to)
	if err != nil {
		return nil, err
	}
	return diff.Diff(a, b), nil
}

// PlanGC lists stored evidence that no draft or record references and that
// is older than minAge.
func (c *Client) PlanGC(ctx context.Context, minAge time.Duration) (*gc.Plan, error) {
	return c.collector(minAge).Plan(ctx)
}

// RunGC deletes the evidence of plan that is still unreferenced.
func (c *Client) RunGC(ctx context.Context, plan *gc.Plan) (*gc.Result, error) {
	res, err := c.collector(0).Run(ctx, plan)
	if err != nil {
		return res, err
	}
	c.log.Info("evidence collected", map[string]any{
		"plan_id": plan.PlanID,
		"deleted": len(res.Deleted),
		"skipped": len(res.Skipped),
	})
	return res, nil
}

func (c *Client) collector(minAge time.Duration) *gc.Collector {
	return gc.NewCollector(c.drafts, c.archive, c.evidence,
		gc.WithMinAge(minAge), gc.WithAuditor(c.audit), gc.WithClock(c.now))
}

// EvidencePath returns the file behind a reference produced by this
// workspace.
func (c *Client) EvidencePath(ref model.EvidenceRef) (string, error) {
	return c.evidence.Path(ref)
}

func (c *Client) resolve(ref string) (model.SessionID, error) {
	if ref == "" {
		return c.drafts.Current()
	}
	return c.drafts.Resolve(ref)
}

// update applies fn to a freshly loaded session and saves it with a
// version check. fn must leave the session untouched when it fails.
func (c *Client) update(ref string, fn func(*model.InspectionSession) error) (*model.InspectionSession, error) {
	s, err := c.Load(ref)
	if err != nil {
		return nil, err
	}
	if c.cfg.Submission.LockAfterSubmit {
		if err := checklist.EnsureOpen(s); err != nil {
			return nil, err
		}
	}
	expected := s.Version
	if err := fn(s); err != nil {
		return nil, err
	}
	if s.Version == expected {
		return s, nil
	}
	if err := c.drafts.Save(s, expected); err != nil {
		return nil, err
	}
	return s, nil
}

// record appends an audit event. The audit log trails the drafts, so a
// failed append is logged and does not undo the change.
func (c *Client) record(ev model.AuditEventType, sid model.SessionID, rid model.RecordID, details map[string]any) {
	if err := c.audit.Append(ev, sid, rid, details); err != nil {
		c.log.ErrorErr("audit append failed", err, map[string]any{"event": string(ev)})
	}
}

var (
	_ adapter.RecordSink = (*archive.Store)(nil)
	_ adapter.RecordSink = (*webhook.Publisher)(nil)
)
