// Package workspace locates and initializes the .ppecheck directory that
// holds drafts, records, evidence and the audit log.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ppecheck/ppecheck/pkg/config"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/fsutil"
)

const (
	FormatVersion     = 1
	DirName           = config.Dir
	FormatVersionFile = "format_version"
	WorkspaceIDFile   = "workspace_id"
)

// ErrNoWorkspace is returned by Discover when no .ppecheck is found.
var ErrNoWorkspace = errors.New("no ppecheck workspace found (no .ppecheck/ in parent directories)")

// Workspace is an initialized inspection workspace.
type Workspace struct {
	Root          string
	FormatVersion int
	ID            string
}

// Init creates a workspace at path. It refuses to reinitialize.
func Init(path string) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	meta := filepath.Join(abs, DirName)
	if _, err := os.Stat(filepath.Join(meta, FormatVersionFile)); err == nil {
		return nil, fmt.Errorf("workspace already initialized at %s", abs)
	}

	w := &Workspace{Root: abs, FormatVersion: FormatVersion, ID: uuid.NewString()}
	for _, dir := range []string{meta, w.DraftsDir(), w.RecordsDir(), w.EvidenceDir(), filepath.Dir(w.AuditPath())} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := fsutil.AtomicWrite(filepath.Join(meta, WorkspaceIDFile), []byte(w.ID+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write workspace_id: %w", err)
	}
	if _, err := os.Stat(config.Path(abs)); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(abs, config.Default()); err != nil {
			return nil, err
		}
	}
	// format_version goes last: its presence marks a complete workspace.
	version := []byte(strconv.Itoa(FormatVersion) + "\n")
	if err := fsutil.AtomicWrite(filepath.Join(meta, FormatVersionFile), version, 0644); err != nil {
		return nil, fmt.Errorf("write format_version: %w", err)
	}
	return w, nil
}

// Open loads the workspace rooted exactly at root.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	meta := filepath.Join(abs, DirName)
	if info, err := os.Stat(meta); err != nil || !info.IsDir() {
		return nil, ErrNoWorkspace
	}
	version, err := ReadFormatVersion(abs)
	if err != nil {
		return nil, err
	}
	if version > FormatVersion {
		return nil, errclass.ErrFormatUnsupported.WithMessagef(
			"format version %d > supported %d", version, FormatVersion)
	}
	id, _ := os.ReadFile(filepath.Join(meta, WorkspaceIDFile))
	return &Workspace{Root: abs, FormatVersion: version, ID: strings.TrimSpace(string(id))}, nil
}

// Discover walks up from cwd to find the workspace root.
func Discover(cwd string) (*Workspace, error) {
	path, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cwd, err)
	}
	for {
		if info, err := os.Stat(filepath.Join(path, DirName)); err == nil && info.IsDir() {
			return Open(path)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return nil, ErrNoWorkspace
		}
		path = parent
	}
}

// ReadFormatVersion parses .ppecheck/format_version under root.
func ReadFormatVersion(root string) (int, error) {
	data, err := os.ReadFile(filepath.Join(root, DirName, FormatVersionFile))
	if err != nil {
		return 0, fmt.Errorf("read format_version: %w", err)
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse format_version: %w", err)
	}
	return version, nil
}

// MetaDir returns the .ppecheck directory.
func (w *Workspace) MetaDir() string { return filepath.Join(w.Root, DirName) }

// DraftsDir holds one JSON file per open session.
func (w *Workspace) DraftsDir() string { return filepath.Join(w.MetaDir(), "drafts") }

// RecordsDir holds one JSON file per submitted inspection.
func (w *Workspace) RecordsDir() string { return filepath.Join(w.MetaDir(), "records") }

// EvidenceDir holds content-addressed media.
func (w *Workspace) EvidenceDir() string { return filepath.Join(w.MetaDir(), "evidence") }

// AuditPath is the hash-chained event log.
func (w *Workspace) AuditPath() string { return filepath.Join(w.MetaDir(), "audit", "audit.jsonl") }

// ConfigPath is the workspace config file.
func (w *Workspace) ConfigPath() string { return config.Path(w.Root) }

// ResolvePath makes a config-relative path absolute against the root.
func (w *Workspace) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Root, p)
}
