// Package evidence stores captured media in the workspace, addressed by
// content hash.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppecheck/ppecheck/internal/integrity"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/fsutil"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// RefPrefix starts every reference produced by FileStore.
const RefPrefix = "sha256:"

// FileStore is an adapter.EvidenceSink writing into a directory. Identical
// content is stored once.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Put copies r into the store and returns its reference. The name is only
// used in error messages.
func (s *FileStore) Put(ctx context.Context, name string, r io.Reader) (model.EvidenceRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".ppecheck-tmp-*")
	if err != nil {
		return "", fmt.Errorf("create evidence tmp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	if n == 0 {
		return "", errclass.ErrInvalidEvidence.WithMessagef("%s is empty", name)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	ref := model.EvidenceRef(RefPrefix + sum)
	dst := s.pathFor(sum)
	if _, err := os.Stat(dst); err == nil {
		return ref, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("create evidence shard: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	if err := fsutil.FsyncDir(filepath.Dir(dst)); err != nil {
		return "", err
	}
	return ref, nil
}

// Open returns the stored content for ref.
func (s *FileStore) Open(ref model.EvidenceRef) (io.ReadCloser, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errclass.ErrNotFound.WithMessagef("evidence %s", ref)
	}
	return f, err
}

// Path returns the file backing ref.
func (s *FileStore) Path(ref model.EvidenceRef) (string, error) {
	sum, ok := strings.CutPrefix(string(ref), RefPrefix)
	if !ok || len(sum) != sha256.Size*2 {
		return "", errclass.ErrInvalidEvidence.WithMessagef("not a stored evidence reference: %q", ref)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", errclass.ErrInvalidEvidence.WithMessagef("not a stored evidence reference: %q", ref)
	}
	return s.pathFor(sum), nil
}

// Verify rehashes the stored content of ref.
func (s *FileStore) Verify(ref model.EvidenceRef) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	sum, err := integrity.HashFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errclass.ErrNotFound.WithMessagef("evidence %s", ref)
		}
		return err
	}
	if RefPrefix+string(sum) != string(ref) {
		return errclass.ErrRecordCorrupt.WithMessagef("evidence %s: content hash is %s", ref, sum)
	}
	return nil
}

// Object is one stored evidence file.
type Object struct {
	Ref     model.EvidenceRef
	Size    int64
	ModTime time.Time
}

// List returns every stored object. Temp files left by interrupted puts
// are skipped.
func (s *FileStore) List() ([]Object, error) {
	shards, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read evidence dir: %w", err)
	}
	var out []Object
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.dir, shard.Name()))
		if err != nil {
			return nil, fmt.Errorf("read evidence shard: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), shard.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Object{
				Ref:     model.EvidenceRef(RefPrefix + e.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}
	return out, nil
}

// Remove deletes the stored content for ref. Removing a missing object is
// not an error.
func (s *FileStore) Remove(ref model.EvidenceRef) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove evidence %s: %w", ref, err)
	}
	return nil
}

// Owns reports whether ref was produced by a FileStore. References from
// other sinks are opaque and skipped by verification.
func Owns(ref model.EvidenceRef) bool {
	return strings.HasPrefix(string(ref), RefPrefix)
}

func (s *FileStore) pathFor(sum string) string {
	return filepath.Join(s.dir, sum[:2], sum)
}
