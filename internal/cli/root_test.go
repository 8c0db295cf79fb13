package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppecheck/ppecheck/pkg/color"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/logging"
	"github.com/ppecheck/ppecheck/pkg/model"
)

func TestMain(m *testing.M) {
	color.Disable()
	os.Exit(m.Run())
}

func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func setupTestDir(t *testing.T) string {
	dir := t.TempDir()
	originalWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(originalWd)
	})
	return dir
}

const miniCatalog = `version: mini
categories:
  - id: harness
    name: Harness
    items:
      - id: webbing
        title: Webbing
        description: No cuts or fraying.
      - id: buckles
        title: Buckles
  - id: lanyard
    name: Lanyard
    items:
      - id: hooks
        title: Snap hooks
`

// setupWorkspace initializes a workspace using the mini catalog.
func setupWorkspace(t *testing.T) string {
	dir := setupTestDir(t)
	_, err := executeCommand("init")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(miniCatalog), 0644))
	_, err = executeCommand("config", "set", "catalog", "catalog.yaml")
	require.NoError(t, err)
	return dir
}

func TestRootCommand_Help(t *testing.T) {
	out, err := executeCommand("--help")
	require.NoError(t, err)
	assert.Contains(t, out, "personal protective equipment")
	for _, sub := range []string{"start", "set", "submit", "records", "doctor", "metrics"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommand_JSONFlag(t *testing.T) {
	_, err := executeCommand("--json", "--help")
	require.NoError(t, err)
	assert.True(t, jsonOutput)

	newRootCmd()
	assert.False(t, jsonOutput, "flags reset per command tree")
}

func TestInitCommand(t *testing.T) {
	dir := setupTestDir(t)
	out, err := executeCommand("init", "site-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized ppecheck workspace")

	_, err = os.Stat(filepath.Join(dir, "site-a", ".ppecheck", "format_version"))
	assert.NoError(t, err)

	_, err = executeCommand("init", "site-a")
	assert.Error(t, err)
}

func TestInitCommand_JSON(t *testing.T) {
	setupTestDir(t)
	out, err := executeCommand("--json", "init")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, float64(1), v["format_version"])
	assert.NotEmpty(t, v["workspace_id"])
}

func TestCommandsOutsideWorkspace(t *testing.T) {
	setupTestDir(t)
	_, err := executeCommand("status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ppecheck init")

	// The catalog is browsable without a workspace.
	out, err := executeCommand("catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "harness")
}

func TestCatalogCommands(t *testing.T) {
	setupWorkspace(t)

	out, err := executeCommand("catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 categories, 3 items")

	out, err = executeCommand("catalog", "show", "harness")
	require.NoError(t, err)
	assert.Contains(t, out, "Webbing")
	assert.Contains(t, out, "No cuts or fraying.")

	_, err = executeCommand("catalog", "show", "helmet")
	assert.ErrorIs(t, err, errclass.ErrNotFound)

	require.NoError(t, os.WriteFile("bad.yaml", []byte("version: x\ncategories: []\n"), 0644))
	out, err = executeCommand("catalog", "list", "--file", "bad.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "0 categories")
}

func TestInspectionFlow(t *testing.T) {
	setupWorkspace(t)
	_, err := executeCommand("config", "set", "inspector", "J. Doe")
	require.NoError(t, err)

	out, err := executeCommand("start", "--code", "HX-9")
	require.NoError(t, err)
	assert.Contains(t, out, "3 items across 2 categories")
	assert.Contains(t, out, "ppecheck product")

	out, err = executeCommand("set", "harness", "webbing", "pass")
	require.NoError(t, err)
	assert.Contains(t, out, "[pass] harness/webbing")
	assert.Contains(t, out, "1/2 decided")

	_, err = executeCommand("set", "harness/buckles", "na")
	require.NoError(t, err)
	_, err = executeCommand("set", "harness", "buckles", "undecided")
	assert.ErrorIs(t, err, errclass.ErrInvalidStatus)
	_, err = executeCommand("set", "harness", "nope", "pass")
	assert.ErrorIs(t, err, errclass.ErrUnknownItem)

	out, err = executeCommand("submit")
	assert.ErrorIs(t, err, errclass.ErrMissingProductName)
	assert.Contains(t, out, "product name is missing")

	out, err = executeCommand("product", "--name", "Harness X")
	require.NoError(t, err)
	assert.Contains(t, out, "Harness X [HX-9]")

	out, err = executeCommand("validate")
	require.Error(t, err)
	assert.True(t, errclass.Recoverable(err))
	assert.Contains(t, out, "1 item(s) still open")
	assert.Contains(t, out, "lanyard/hooks")

	_, err = executeCommand("set", "lanyard", "hooks", "fail")
	require.NoError(t, err)
	_, err = executeCommand("note", "lanyard", "hooks", "gate sticks")
	require.NoError(t, err)
	_, err = executeCommand("note", "kept in van")
	require.NoError(t, err)

	out, err = executeCommand("locate", "--lat", "48.1", "--lon", "11.6", "--accuracy", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Location recorded")

	out, err = executeCommand("status")
	require.NoError(t, err)
	assert.Contains(t, out, "[FAIL] hooks")
	assert.Contains(t, out, "gate sticks")
	assert.Contains(t, out, "success_with_issues")

	out, err = executeCommand("validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Ready to submit")

	out, err = executeCommand("submit")
	require.NoError(t, err)
	assert.Contains(t, out, "success_with_issues")
	assert.Contains(t, out, "[FAIL] lanyard/hooks")

	_, err = executeCommand("set", "lanyard", "hooks", "pass")
	assert.ErrorIs(t, err, errclass.ErrSessionFinalized)

	out, err = executeCommand("records", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Harness X [HX-9]")

	out, err = executeCommand("records", "show", "HX-9")
	require.NoError(t, err)
	assert.Contains(t, out, "J. Doe")
	assert.Contains(t, out, "gate sticks")
	assert.Contains(t, out, "kept in van")
	assert.Contains(t, out, "cell ")

	out, err = executeCommand("--json", "records", "list", "--outcome", "success")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = executeCommand("records", "list", "--outcome", "meh")
	assert.Error(t, err)

	out, err = executeCommand("verify")
	require.NoError(t, err)
	assert.Contains(t, out, "1 record(s) verified, 0 failed")

	out, err = executeCommand("doctor", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
}

func TestSessionsUseDiscard(t *testing.T) {
	setupWorkspace(t)

	_, err := executeCommand("start", "--name", "First")
	require.NoError(t, err)
	out, err := executeCommand("--json", "start", "--name", "Second")
	require.NoError(t, err)
	var second model.InspectionSession
	require.NoError(t, json.Unmarshal([]byte(out), &second))

	out, err = executeCommand("--json", "sessions")
	require.NoError(t, err)
	var rows []sessionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "First", rows[0].ProductName)
	assert.False(t, rows[0].Current)
	assert.True(t, rows[1].Current)
	assert.Equal(t, 3, rows[1].Total)

	_, err = executeCommand("use", string(rows[0].ID)[:8])
	require.NoError(t, err)
	out, err = executeCommand("status", "--brief")
	require.NoError(t, err)
	assert.Contains(t, out, "First")

	_, err = executeCommand("--session", second.ID.ShortID(), "set", "harness", "webbing", "pass")
	require.NoError(t, err)

	out, err = executeCommand("discard", string(second.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Discarded")

	out, err = executeCommand("sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "First")
	assert.NotContains(t, out, "Second")
}

func TestEvidenceAdd(t *testing.T) {
	dir := setupWorkspace(t)
	_, err := executeCommand("start", "--name", "Harness X")
	require.NoError(t, err)

	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("not really a jpeg"), 0644))

	out, err := executeCommand("evidence", "add", "harness", "webbing", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "sha256:")

	out, err = executeCommand("--json", "evidence", "add", photo)
	require.NoError(t, err)
	assert.Contains(t, out, `"ref": "sha256:`)

	_, err = executeCommand("evidence", "add", "harness", "webbing", "missing.jpg")
	assert.ErrorIs(t, err, errclass.ErrInvalidEvidence)
}

func TestConfigCommands(t *testing.T) {
	setupWorkspace(t)

	out, err := executeCommand("config", "get", "submission.lock_after_submit")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = executeCommand("config", "set", "inspector", "J. Doe")
	require.NoError(t, err)
	out, err = executeCommand("config", "get", "inspector")
	require.NoError(t, err)
	assert.Equal(t, "J. Doe\n", out)

	_, err = executeCommand("config", "set", "nope", "1")
	assert.Error(t, err)

	_, err = executeCommand("config", "webhook", "add", "https://hooks.example.com/ppe", "--secret", "s", "--event", "inspection.submitted")
	require.NoError(t, err)
	_, err = executeCommand("config", "webhook", "add", "https://x.example.com", "--event", "bogus")
	assert.Error(t, err)

	out, err = executeCommand("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hooks.example.com")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret: s\n")

	out, err = executeCommand("config", "webhook", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "inspection.submitted")

	_, err = executeCommand("config", "webhook", "remove", "https://hooks.example.com/ppe")
	require.NoError(t, err)
	_, err = executeCommand("config", "webhook", "remove", "https://hooks.example.com/ppe")
	assert.Error(t, err)
}

func TestSubmitDeliversWebhook(t *testing.T) {
	setupWorkspace(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Ppecheck-Event") == "inspection.submitted" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := executeCommand("config", "webhook", "add", srv.URL)
	require.NoError(t, err)
	_, err = executeCommand("start", "--name", "Harness X")
	require.NoError(t, err)
	for _, item := range []string{"harness/webbing", "harness/buckles", "lanyard/hooks"} {
		_, err = executeCommand("set", item, "pass")
		require.NoError(t, err)
	}
	out, err := executeCommand("submit")
	require.NoError(t, err)
	assert.Contains(t, out, "success")
	assert.Equal(t, int32(1), hits.Load())
}

func TestMetricsCommand(t *testing.T) {
	setupWorkspace(t)
	_, err := executeCommand("start", "--name", "Harness X")
	require.NoError(t, err)

	out, err := executeCommand("metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "inspection_drafts_open 1")
	assert.Contains(t, out, `inspection_records{outcome="success"} 0`)
}

func TestDoctorCommand_Unhealthy(t *testing.T) {
	dir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ppecheck", "audit", "audit.jsonl"), []byte("garbage\n"), 0644))

	out, err := executeCommand("doctor")
	require.Error(t, err)
	assert.ErrorIs(t, err, errSilent)
	assert.Contains(t, out, "[critical] audit")
}

func TestCompletionCommand(t *testing.T) {
	out, err := executeCommand("completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "ppecheck")

	_, err = executeCommand("completion", "tcsh")
	assert.Error(t, err)
}

func TestParseSince(t *testing.T) {
	now := mustTime(t, "2026-10-15T12:00:00Z")

	got, err := parseSince("48h", now)
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "2026-10-13T12:00:00Z"), got)

	got, err = parseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseSince("last tuesday", now)
	assert.Error(t, err)
}

func TestItemArgs(t *testing.T) {
	cat, item, rest, err := itemArgs([]string{"harness/webbing", "pass"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryID("harness"), cat)
	assert.Equal(t, model.ItemID("webbing"), item)
	assert.Equal(t, []string{"pass"}, rest)

	_, _, _, err = itemArgs([]string{"harness"})
	assert.Error(t, err)
}

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, v)
	require.NoError(t, err)
	return ts
}

func TestGCCommand(t *testing.T) {
	dir := setupWorkspace(t)
	_, err := executeCommand("start", "--name", "Harness X")
	require.NoError(t, err)
	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("orphaned soon"), 0644))
	_, err = executeCommand("evidence", "add", "harness", "webbing", photo)
	require.NoError(t, err)

	out, err := executeCommand("gc", "--min-age", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to delete.")

	_, err = executeCommand("discard")
	require.NoError(t, err)

	out, err = executeCommand("gc", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "0 to delete", "fresh evidence is kept by default")

	out, err = executeCommand("gc", "--dry-run", "--min-age", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "1 stored, 0 referenced, 1 to delete")

	out, err = executeCommand("gc", "--min-age", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 evidence file(s)")

	out, err = executeCommand("--json", "gc", "--dry-run", "--min-age", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `"to_delete": []`)
}

func TestRecordsDiff(t *testing.T) {
	setupWorkspace(t)
	runInspection := func(hooks string) {
		_, err := executeCommand("start", "--name", "Harness X")
		require.NoError(t, err)
		for _, args := range [][]string{
			{"set", "harness", "webbing", "pass"},
			{"set", "harness", "buckles", "pass"},
			{"set", "lanyard", "hooks", hooks},
			{"submit"},
		} {
			_, err = executeCommand(args...)
			require.NoError(t, err)
		}
	}
	runInspection("pass")
	runInspection("fail")

	out, err := executeCommand("--json", "records", "list")
	require.NoError(t, err)
	var recs []model.InspectionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	older, newer := string(recs[0].RecordID), string(recs[1].RecordID)
	if recs[0].Outcome != model.OutcomeSuccess {
		older, newer = newer, older
	}

	out, err = executeCommand("records", "diff", older, newer)
	require.NoError(t, err)
	assert.Contains(t, out, "success -> success_with_issues")
	assert.Contains(t, out, "lanyard/hooks")
	assert.Contains(t, out, "1 item(s) newly failing")

	out, err = executeCommand("records", "diff", older, older)
	require.NoError(t, err)
	assert.Contains(t, out, "No item changes.")
}

func TestConfiguredLogLevel(t *testing.T) {
	setupWorkspace(t)

	var logs bytes.Buffer
	prev := logging.Global()
	logging.SetGlobal(logging.NewLogger(logging.LevelWarn))
	logging.Global().SetOutput(&logs)
	t.Cleanup(func() { logging.SetGlobal(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	_, err := executeCommand("config", "webhook", "add", srv.URL)
	require.NoError(t, err)
	_, err = executeCommand("config", "set", "logging.level", "error")
	require.NoError(t, err)

	submitOne := func(extra ...string) {
		_, err := executeCommand("start", "--name", "Harness X")
		require.NoError(t, err)
		for _, item := range []string{"harness/webbing", "harness/buckles", "lanyard/hooks"} {
			_, err = executeCommand("set", item, "pass")
			require.NoError(t, err)
		}
		_, err = executeCommand(append(extra, "submit")...)
		require.NoError(t, err, "a failing webhook does not fail the submit")
	}

	submitOne()
	assert.False(t, logging.Global().Enabled(logging.LevelWarn))
	assert.NotContains(t, logs.String(), "record sink failed")

	submitOne("--log-level", "warn")
	assert.Contains(t, logs.String(), "record sink failed", "the flag wins over the configured level")
}
