// Package archive stores submitted inspection records, one checksummed
// JSON file per record.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/internal/integrity"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/fsutil"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// Store is an adapter.RecordSink backed by a directory.
type Store struct {
	dir      string
	evidence *evidence.FileStore
}

// Option configures a Store.
type Option func(*Store)

// WithEvidence lets Verify check the media referenced by records.
func WithEvidence(fs *evidence.FileStore) Option {
	return func(s *Store) { s.evidence = fs }
}

// NewStore returns a store over dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish seals rec with its checksum and writes it. Records are
// immutable; publishing an id twice fails.
func (s *Store) Publish(ctx context.Context, rec *model.InspectionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ident.ValidateID("record", string(rec.RecordID)); err != nil {
		return err
	}
	path := s.path(rec.RecordID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("record %s already archived", rec.RecordID)
	}
	if err := integrity.Seal(rec); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}
	if err := fsutil.WriteJSON(path, rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Load reads one record without verifying it.
func (s *Store) Load(id model.RecordID) (*model.InspectionRecord, error) {
	if err := ident.ValidateID("record", string(id)); err != nil {
		return nil, err
	}
	var rec model.InspectionRecord
	err := fsutil.ReadJSON(s.path(id), &rec)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errclass.ErrNotFound.WithMessagef("no record %s", id)
	}
	if err != nil {
		return nil, errclass.ErrRecordCorrupt.WithMessagef("record %s: %v", id, err)
	}
	return &rec, nil
}

// IDs lists every stored record id.
func (s *Store) IDs() ([]model.RecordID, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records directory: %w", err)
	}
	var ids []model.RecordID
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, model.RecordID(name))
	}
	return ids, nil
}

// ListAll returns all readable records, newest submission first.
// Unreadable files are skipped; Verify reports them.
func (s *Store) ListAll() ([]*model.InspectionRecord, error) {
	out, err := s.LoadAll()
	var load *loadErrors
	if errors.As(err, &load) {
		return out, nil
	}
	return out, err
}

// LoadAll is ListAll for callers that must not act on a partial view: the
// records it could read are returned together with one joined error
// naming every file it could not.
func (s *Store) LoadAll() ([]*model.InspectionRecord, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}
	var (
		out  []*model.InspectionRecord
		errs []error
	)
	for _, id := range ids {
		rec, err := s.Load(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", id, err))
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *model.InspectionRecord) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return strings.Compare(string(b.RecordID), string(a.RecordID))
	})
	if len(errs) > 0 {
		return out, &loadErrors{err: errors.Join(errs...)}
	}
	return out, nil
}

type loadErrors struct{ err error }

func (e *loadErrors) Error() string { return e.err.Error() }
func (e *loadErrors) Unwrap() error { return e.err }

// FilterOptions narrows Find.
type FilterOptions struct {
	// Product matches name or code, case-insensitively, as a substring.
	Product   string
	Outcome   model.Outcome
	SessionID model.SessionID
	Since     time.Time
	Until     time.Time
}

// Find returns records matching every set criterion.
func (s *Store) Find(opts FilterOptions) ([]*model.InspectionRecord, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var out []*model.InspectionRecord
	for _, rec := range all {
		if matches(rec, opts) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func matches(rec *model.InspectionRecord, opts FilterOptions) bool {
	if opts.Product != "" {
		q := strings.ToLower(opts.Product)
		if !strings.Contains(strings.ToLower(rec.ProductName), q) &&
			!strings.Contains(strings.ToLower(rec.ProductCode), q) {
			return false
		}
	}
	if opts.Outcome != "" && rec.Outcome != opts.Outcome {
		return false
	}
	if opts.SessionID != "" && rec.SessionID != opts.SessionID {
		return false
	}
	if !opts.Since.IsZero() && rec.SubmittedAt.Before(opts.Since) {
		return false
	}
	if !opts.Until.IsZero() && rec.SubmittedAt.After(opts.Until) {
		return false
	}
	return true
}

// FindOne resolves a record id prefix or an exact product code.
func (s *Store) FindOne(query string) (*model.InspectionRecord, error) {
	if query == "" {
		return nil, errclass.ErrNotFound.WithMessage("empty record query")
	}
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var found []*model.InspectionRecord
	for _, rec := range all {
		if string(rec.RecordID) == query {
			return rec, nil
		}
		if strings.HasPrefix(string(rec.RecordID), query) || rec.ProductCode == query {
			found = append(found, rec)
		}
	}
	switch len(found) {
	case 0:
		return nil, errclass.ErrNotFound.WithMessagef("no record matching %q", query)
	case 1:
		return found[0], nil
	}
	ids := make([]string, len(found))
	for i, rec := range found {
		ids[i] = string(rec.RecordID)
	}
	return nil, fmt.Errorf("ambiguous query %q matches multiple records: %s", query, strings.Join(ids, ", "))
}

func (s *Store) path(id model.RecordID) string {
	return filepath.Join(s.dir, string(id)+".json")
}
