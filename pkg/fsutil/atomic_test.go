package fsutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppecheck/ppecheck/pkg/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite_CreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.json")

	require.NoError(t, fsutil.AtomicWrite(path, []byte("old"), 0644))
	require.NoError(t, fsutil.AtomicWrite(path, []byte("new"), 0600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAtomicWrite_MissingDir(t *testing.T) {
	err := fsutil.AtomicWrite(filepath.Join(t.TempDir(), "nope", "f"), []byte("x"), 0644)
	assert.ErrorContains(t, err, "create tmp")
}

func TestWriteReadJSON(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, fsutil.WriteJSON(path, doc{Name: "harness", Count: 3}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"harness\",\n  \"count\": 3\n}\n", string(raw))

	var got doc
	require.NoError(t, fsutil.ReadJSON(path, &got))
	assert.Equal(t, doc{Name: "harness", Count: 3}, got)
}

func TestReadJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	var v map[string]any

	err := fsutil.ReadJSON(filepath.Join(dir, "missing.json"), &v)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	assert.ErrorContains(t, fsutil.ReadJSON(bad, &v), "parse bad.json")
}

func TestRemoveAndSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, fsutil.RemoveAndSync(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, fsutil.RemoveAndSync(path))
}
