package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppecheck/ppecheck/internal/archive"
	"github.com/ppecheck/ppecheck/internal/checklist"
	"github.com/ppecheck/ppecheck/internal/evidence"
	"github.com/ppecheck/ppecheck/internal/submit"
	"github.com/ppecheck/ppecheck/pkg/adapter"
	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/model"
)

var _ adapter.RecordSink = (*archive.Store)(nil)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func smallCatalog() *model.Catalog {
	return &model.Catalog{Version: "t", Categories: []model.Category{
		{ID: "harness", Name: "Harness", Items: []model.ItemTemplate{{ID: "h1", Title: "Webbing"}}},
	}}
}

func makeRecord(t *testing.T, name, code string, status model.ItemStatus, at time.Time, refs ...model.EvidenceRef) *model.InspectionRecord {
	t.Helper()
	s, err := checklist.NewSession(smallCatalog(), model.ProductSeed{Name: name, Code: code})
	require.NoError(t, err)
	require.NoError(t, checklist.SetItemStatus(s, "harness", "h1", status))
	for _, ref := range refs {
		require.NoError(t, checklist.AppendEvidence(s, "harness", "h1", ref))
	}
	return submit.NewAssembler(submit.WithClock(func() time.Time { return at })).Assemble(s)
}

func TestPublishLoad(t *testing.T) {
	st := archive.NewStore(t.TempDir())
	rec := makeRecord(t, "Harness A", "HA-1", model.StatusPass, base)

	require.NoError(t, st.Publish(context.Background(), rec))
	assert.NotEmpty(t, rec.Checksum)

	loaded, err := st.Load(rec.RecordID)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, loaded); diff != "" {
		t.Errorf("record changed on disk (-published +loaded):\n%s", diff)
	}
	assert.True(t, st.Verify(rec.RecordID).OK())
}

func TestPublish_Immutable(t *testing.T) {
	st := archive.NewStore(t.TempDir())
	rec := makeRecord(t, "Harness A", "", model.StatusPass, base)
	require.NoError(t, st.Publish(context.Background(), rec))
	assert.ErrorContains(t, st.Publish(context.Background(), rec), "already archived")
}

func TestLoad_Missing(t *testing.T) {
	_, err := archive.NewStore(t.TempDir()).Load("1714658400000-deadbeef")
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}

func TestListAllAndFind(t *testing.T) {
	st := archive.NewStore(t.TempDir())
	ctx := context.Background()
	older := makeRecord(t, "Harness A", "HA-1", model.StatusPass, base)
	newer := makeRecord(t, "Lanyard B", "LB-2", model.StatusFail, base.Add(2*time.Hour))
	require.NoError(t, st.Publish(ctx, older))
	require.NoError(t, st.Publish(ctx, newer))

	all, err := st.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.RecordID, all[0].RecordID)

	issues, err := st.Find(archive.FilterOptions{Outcome: model.OutcomeSuccessWithIssues})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Lanyard B", issues[0].ProductName)

	byProduct, err := st.Find(archive.FilterOptions{Product: "ha-"})
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, older.RecordID, byProduct[0].RecordID)

	since, err := st.Find(archive.FilterOptions{Since: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, newer.RecordID, since[0].RecordID)

	until, err := st.Find(archive.FilterOptions{Until: base.Add(time.Hour), SessionID: older.SessionID})
	require.NoError(t, err)
	require.Len(t, until, 1)
}

func TestLoadAll_ReportsUnreadableRecords(t *testing.T) {
	dir := t.TempDir()
	st := archive.NewStore(dir)
	ctx := context.Background()
	good := makeRecord(t, "Harness A", "HA-1", model.StatusPass, base)
	bad := makeRecord(t, "Lanyard B", "LB-2", model.StatusFail, base.Add(time.Hour))
	require.NoError(t, st.Publish(ctx, good))
	require.NoError(t, st.Publish(ctx, bad))

	path := filepath.Join(dir, string(bad.RecordID)+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-20], 0644))

	all, err := st.LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(bad.RecordID))
	require.Len(t, all, 1)
	assert.Equal(t, good.RecordID, all[0].RecordID)

	all, err = st.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestFindOne(t *testing.T) {
	st := archive.NewStore(t.TempDir())
	ctx := context.Background()
	a := makeRecord(t, "Harness A", "HA-1", model.StatusPass, base)
	b := makeRecord(t, "Harness B", "HB-1", model.StatusPass, base)
	require.NoError(t, st.Publish(ctx, a))
	require.NoError(t, st.Publish(ctx, b))

	got, err := st.FindOne(string(a.RecordID))
	require.NoError(t, err)
	assert.Equal(t, a.RecordID, got.RecordID)

	got, err = st.FindOne("HB-1")
	require.NoError(t, err)
	assert.Equal(t, b.RecordID, got.RecordID)

	// Both ids share the millisecond prefix.
	_, err = st.FindOne(string(a.RecordID)[:13])
	assert.ErrorContains(t, err, "ambiguous")

	_, err = st.FindOne("nothing")
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
}

func TestVerify_DetectsEditedRecord(t *testing.T) {
	dir := t.TempDir()
	st := archive.NewStore(dir)
	rec := makeRecord(t, "Harness A", "", model.StatusFail, base)
	require.NoError(t, st.Publish(context.Background(), rec))

	path := filepath.Join(dir, string(rec.RecordID)+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), `"fail"`, `"pass"`, 1)), 0644))

	res := st.Verify(rec.RecordID)
	assert.False(t, res.OK())
	assert.False(t, res.ChecksumValid)
	assert.True(t, res.TamperDetected)
	assert.Equal(t, "critical", res.Severity)
}

func TestVerify_Evidence(t *testing.T) {
	root := t.TempDir()
	media := evidence.NewFileStore(filepath.Join(root, "evidence"))
	st := archive.NewStore(filepath.Join(root, "records"), archive.WithEvidence(media))

	ref, err := media.Put(context.Background(), "a.jpg", strings.NewReader("photo"))
	require.NoError(t, err)
	rec := makeRecord(t, "Harness A", "", model.StatusPass, base, ref, "external:opaque")
	require.NoError(t, st.Publish(context.Background(), rec))

	res := st.Verify(rec.RecordID)
	require.True(t, res.OK(), res.Error)
	assert.True(t, res.EvidenceValid)

	path, err := media.Path(ref)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("edited"), 0644))

	res = st.Verify(rec.RecordID)
	assert.True(t, res.ChecksumValid)
	assert.False(t, res.EvidenceValid)
	assert.Equal(t, "error", res.Severity)
}

func TestVerifyAll(t *testing.T) {
	dir := t.TempDir()
	st := archive.NewStore(dir)
	for i := 0; i < 5; i++ {
		rec := makeRecord(t, "Harness", "", model.StatusPass, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, st.Publish(context.Background(), rec))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1714658400000-00000000.json"), []byte("{"), 0644))

	results, err := st.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)

	bad := 0
	for _, r := range results {
		if !r.OK() {
			bad++
			assert.Contains(t, r.Error, "E_RECORD_CORRUPT")
		}
	}
	assert.Equal(t, 1, bad)
}

func TestVerifyAll_Cancelled(t *testing.T) {
	st := archive.NewStore(t.TempDir())
	require.NoError(t, st.Publish(context.Background(), makeRecord(t, "H", "", model.StatusPass, base)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := st.VerifyAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
