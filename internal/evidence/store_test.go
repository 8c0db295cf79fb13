package evidence_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/pkg/adapter"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ adapter.EvidenceSink = (*evidence.FileStore)(nil)

const helloRef = model.EvidenceRef("sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")

func TestPutOpen(t *testing.T) {
	dir := t.TempDir()
	store := evidence.NewFileStore(dir)

	ref, err := store.Put(context.Background(), "buckle.jpg", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, helloRef, ref)
	assert.True(t, evidence.Owns(ref))

	rc, err := store.Open(ref)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.NoError(t, store.Verify(ref))
}

func TestPut_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	store := evidence.NewFileStore(dir)

	a, err := store.Put(context.Background(), "a.jpg", strings.NewReader("hello"))
	require.NoError(t, err)
	b, err := store.Put(context.Background(), "b.jpg", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	}))
	assert.Len(t, files, 1, "one stored copy, no temp files")
}

func TestPut_Empty(t *testing.T) {
	_, err := evidence.NewFileStore(t.TempDir()).Put(context.Background(), "a.jpg", strings.NewReader(""))
	assert.True(t, errors.Is(err, errclass.ErrInvalidEvidence))
}

func TestPut_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := evidence.NewFileStore(t.TempDir()).Put(ctx, "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify_DetectsTampering(t *testing.T) {
	store := evidence.NewFileStore(t.TempDir())
	ref, err := store.Put(context.Background(), "a.jpg", strings.NewReader("hello"))
	require.NoError(t, err)

	path, err := store.Path(ref)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("jello"), 0644))

	assert.True(t, errors.Is(store.Verify(ref), errclass.ErrRecordCorrupt))

	require.NoError(t, os.Remove(path))
	assert.True(t, errors.Is(store.Verify(ref), errclass.ErrNotFound))
	_, err = store.Open(ref)
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}

func TestPath_RejectsForeignRefs(t *testing.T) {
	store := evidence.NewFileStore(t.TempDir())
	for _, ref := range []model.EvidenceRef{"img-1", "sha256:abc", "sha256:" + model.EvidenceRef(strings.Repeat("zz", 32))} {
		_, err := store.Path(ref)
		assert.True(t, errors.Is(err, errclass.ErrInvalidEvidence), ref)
	}
	assert.False(t, evidence.Owns("mem:photo"))
}

func TestListRemove(t *testing.T) {
	dir := t.TempDir()
	store := evidence.NewFileStore(dir)

	objs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, objs)

	ref, err := store.Put(context.Background(), "a.jpg", strings.NewReader("hello"))
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "b.jpg", strings.NewReader("world"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ppecheck-tmp-1"), []byte("x"), 0644))

	objs, err = store.List()
	require.NoError(t, err)
	require.Len(t, objs, 2)
	for _, o := range objs {
		assert.True(t, evidence.Owns(o.Ref))
		assert.Equal(t, int64(5), o.Size)
	}

	require.NoError(t, store.Remove(ref))
	require.NoError(t, store.Remove(ref))
	objs, err = store.List()
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.NotEqual(t, ref, objs[0].Ref)

	_, err = store.Open(ref)
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}
