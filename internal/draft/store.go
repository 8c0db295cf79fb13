// Package draft persists in-progress sessions between process runs.
package draft

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/fsutil"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

const currentFile = "CURRENT"

// Store keeps one JSON file per session in a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store over dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes s if the stored draft is still at expectedVersion. Pass 0
// for a session that has never been saved. On success nothing else about
// s changes; its Version already reflects the mutations being saved.
func (st *Store) Save(s *model.InspectionSession, expectedVersion int64) error {
	if err := ident.ValidateID("session", string(s.ID)); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	var onDisk model.InspectionSession
	err := fsutil.ReadJSON(st.path(s.ID), &onDisk)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if expectedVersion != 0 {
			return errclass.ErrVersionConflict.WithMessagef("session %s: draft was deleted", s.ID.ShortID())
		}
	case err != nil:
		return fmt.Errorf("read draft: %w", err)
	case onDisk.Version != expectedVersion:
		return errclass.ErrVersionConflict.WithMessagef("session %s: draft is at version %d, expected %d",
			s.ID.ShortID(), onDisk.Version, expectedVersion)
	}

	if err := os.MkdirAll(st.dir, 0755); err != nil {
		return fmt.Errorf("create drafts dir: %w", err)
	}
	return fsutil.WriteJSON(st.path(s.ID), s)
}

// Load reads one draft.
func (st *Store) Load(id model.SessionID) (*model.InspectionSession, error) {
	if err := ident.ValidateID("session", string(id)); err != nil {
		return nil, err
	}
	var s model.InspectionSession
	err := fsutil.ReadJSON(st.path(id), &s)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errclass.ErrNotFound.WithMessagef("no draft %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns every readable draft, oldest first. Unreadable drafts are
// skipped and reported together in the returned error.
func (st *Store) List() ([]*model.InspectionSession, error) {
	ids, err := st.ids()
	if err != nil {
		return nil, err
	}
	var (
		out  []*model.InspectionSession
		errs []error
	)
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("draft %s: %w", id, err))
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *model.InspectionSession) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, errors.Join(errs...)
}

// Resolve expands a unique id prefix to a full session id.
func (st *Store) Resolve(prefix string) (model.SessionID, error) {
	ids, err := st.ids()
	if err != nil {
		return "", err
	}
	var matches []model.SessionID
	for _, id := range ids {
		if id == model.SessionID(prefix) {
			return id, nil
		}
		if prefix != "" && strings.HasPrefix(string(id), prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", errclass.ErrNotFound.WithMessagef("no draft matching %q", prefix)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("ambiguous session prefix %q matches %d drafts", prefix, len(matches))
}

// Delete removes a draft and clears the current pointer if it named it.
func (st *Store) Delete(id model.SessionID) error {
	if err := ident.ValidateID("session", string(id)); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := os.Stat(st.path(id)); errors.Is(err, os.ErrNotExist) {
		return errclass.ErrNotFound.WithMessagef("no draft %s", id)
	}
	if err := fsutil.RemoveAndSync(st.path(id)); err != nil {
		return err
	}
	if cur, _ := st.current(); cur == id {
		return fsutil.RemoveAndSync(filepath.Join(st.dir, currentFile))
	}
	return nil
}

// SetCurrent marks the session CLI commands act on by default.
func (st *Store) SetCurrent(id model.SessionID) error {
	if err := ident.ValidateID("session", string(id)); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := os.Stat(st.path(id)); err != nil {
		return errclass.ErrNotFound.WithMessagef("no draft %s", id)
	}
	return fsutil.AtomicWrite(filepath.Join(st.dir, currentFile), []byte(string(id)+"\n"), 0644)
}

// Current returns the current session id.
func (st *Store) Current() (model.SessionID, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current()
}

func (st *Store) current() (model.SessionID, error) {
	data, err := os.ReadFile(filepath.Join(st.dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", errclass.ErrNotFound.WithMessage("no current session; run 'ppecheck start' or 'ppecheck use'")
	}
	if err != nil {
		return "", fmt.Errorf("read current session: %w", err)
	}
	return model.SessionID(strings.TrimSpace(string(data))), nil
}

func (st *Store) ids() ([]model.SessionID, error) {
	entries, err := os.ReadDir(st.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts dir: %w", err)
	}
	var ids []model.SessionID
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, model.SessionID(name))
	}
	return ids, nil
}

func (st *Store) path(id model.SessionID) string {
	return filepath.Join(st.dir, string(id)+".json")
}
