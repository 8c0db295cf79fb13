package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/ppecheck/ppecheck/internal/workspace"
	"github.com/ppecheck/ppecheck/pkg/config"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")

	w, err := workspace.Init(root)
	require.NoError(t, err)
	assert.Equal(t, root, w.Root)
	assert.Equal(t, workspace.FormatVersion, w.FormatVersion)
	_, err = uuid.Parse(w.ID)
	assert.NoError(t, err)

	assert.DirExists(t, w.DraftsDir())
	assert.DirExists(t, w.RecordsDir())
	assert.DirExists(t, w.EvidenceDir())
	assert.DirExists(t, filepath.Dir(w.AuditPath()))
	assert.FileExists(t, w.ConfigPath())

	content, err := os.ReadFile(filepath.Join(root, ".ppecheck", "format_version"))
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(content))

	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Submission, cfg.Submission)
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Inspector = "site lead"
	require.NoError(t, config.Save(root, cfg))

	_, err := workspace.Init(root)
	require.NoError(t, err)

	loaded, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "site lead", loaded.Inspector)
}

func TestInit_Twice(t *testing.T) {
	root := t.TempDir()
	_, err := workspace.Init(root)
	require.NoError(t, err)
	_, err = workspace.Init(root)
	assert.ErrorContains(t, err, "already initialized")
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	w, err := workspace.Init(root)
	require.NoError(t, err)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := workspace.Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, w.Root, found.Root)
	assert.Equal(t, w.ID, found.ID)
}

func TestDiscover_NotFound(t *testing.T) {
	_, err := workspace.Discover(t.TempDir())
	assert.ErrorIs(t, err, workspace.ErrNoWorkspace)
}

func TestOpen_FutureFormat(t *testing.T) {
	root := t.TempDir()
	_, err := workspace.Init(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ppecheck", "format_version"), []byte("9\n"), 0644))

	_, err = workspace.Open(root)
	assert.True(t, errors.Is(err, errclass.ErrFormatUnsupported))
}

func TestResolvePath(t *testing.T) {
	w := &workspace.Workspace{Root: "/srv/site"}
	assert.Equal(t, filepath.Join("/srv/site", "catalogs", "a.yaml"), w.ResolvePath("catalogs/a.yaml"))
	assert.Equal(t, "/etc/cat.yaml", w.ResolvePath("/etc/cat.yaml"))
	assert.Equal(t, "", w.ResolvePath(""))
}
