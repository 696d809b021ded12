package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmon/internal/config"
	"carmon/internal/fasta"
	"carmon/internal/perrors"
	"carmon/internal/portal"
	"carmon/internal/table"
)

// mockAPI implements PortalAPI with overridable func fields.
type mockAPI struct {
	lookup      func(ctx context.Context, creds config.Credentials, numbers []string) ([]portal.SampleInfo, error)
	status      func(ctx context.Context, creds config.Credentials, numbers []string, statusCode, defectID string) error
	conclusions func(ctx context.Context, creds config.Credentials, changes []portal.ConclusionChange) error
	upload      func(ctx context.Context, creds config.Credentials, upload portal.UploadRequest) error
}

func (m *mockAPI) LookupSamples(ctx context.Context, creds config.Credentials, numbers []string) ([]portal.SampleInfo, error) {
	return m.lookup(ctx, creds, numbers)
}

func (m *mockAPI) ChangeStatus(ctx context.Context, creds config.Credentials, numbers []string, statusCode, defectID string) error {
	return m.status(ctx, creds, numbers, statusCode, defectID)
}

func (m *mockAPI) ChangeConclusions(ctx context.Context, creds config.Credentials, changes []portal.ConclusionChange) error {
	return m.conclusions(ctx, creds, changes)
}

func (m *mockAPI) UploadSequence(ctx context.Context, creds config.Credentials, upload portal.UploadRequest) error {
	return m.upload(ctx, creds, upload)
}

var _ PortalAPI = (*mockAPI)(nil)

func testCreds() config.Credentials {
	return config.Credentials{Token: "tok", Login: "lab", Password: "secret"}
}

// readyTable builds n rows with the ready local status and portal sample
// numbers SN-0001..SN-n.
func readyTable(t *testing.T, cfg *config.Config, n int) *table.Table {
	t.Helper()
	tbl := table.New()
	for i := 1; i <= n; i++ {
		rec := &table.Record{
			Barcode:            fmt.Sprintf("barcode%02d_%s", i, cfg.Pipeline.BarcodeSuffix),
			LabBarcode:         fmt.Sprintf("LT-%04d", i),
			PortalSampleNumber: fmt.Sprintf("SN-%04d", i),
			MatchStatus:        table.MatchOK,
			LocalStatus:        cfg.Vocab.StatusReady,
		}
		require.NoError(t, tbl.Append(rec))
	}
	return tbl
}

func TestChunks(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 85)

	got := chunks(tbl.Rows(), 40)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 40)
	assert.Len(t, got[1], 40)
	assert.Len(t, got[2], 5)

	assert.Nil(t, chunks(nil, 40))
	assert.Nil(t, chunks(tbl.Rows(), 0))
}

func TestDeriveLocalStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.ATGCThreshold = 10

	tbl := table.New()
	for i, match := range []table.MatchStatus{table.MatchOK, table.MatchRegionMismatch, table.MatchOK} {
		require.NoError(t, tbl.Append(&table.Record{
			Barcode:     fmt.Sprintf("barcode%02d_%s", i+1, cfg.Pipeline.BarcodeSuffix),
			MatchStatus: match,
		}))
	}

	seqs := []fasta.Sequence{
		// bare id, suffix appended during matching
		{ID: "barcode01", Seq: strings.Repeat("ATGC", 5)},
		{ID: "barcode02_" + cfg.Pipeline.BarcodeSuffix, Seq: strings.Repeat("ATGC", 5)},
		// mostly Ns, below threshold
		{ID: "barcode03_" + cfg.Pipeline.BarcodeSuffix, Seq: "ATG" + strings.Repeat("N", 40)},
		// not on the plate, ignored
		{ID: "barcode99_" + cfg.Pipeline.BarcodeSuffix, Seq: strings.Repeat("ATGC", 5)},
	}

	retained, err := DeriveLocalStatus(tbl, seqs, cfg)
	require.NoError(t, err)

	rec1, _ := tbl.Get("barcode01_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, table.True, rec1.SequenceValid)
	assert.Equal(t, cfg.Vocab.StatusReady, rec1.LocalStatus)

	rec2, _ := tbl.Get("barcode02_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, cfg.Vocab.StatusConfirm, rec2.LocalStatus)

	rec3, _ := tbl.Get("barcode03_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, table.False, rec3.SequenceValid)
	assert.Equal(t, cfg.Vocab.StatusDefect, rec3.LocalStatus)

	assert.Len(t, retained, 3)
	assert.NotContains(t, retained, "barcode99_"+cfg.Pipeline.BarcodeSuffix)
}

func TestDeriveLocalStatusMissingSample(t *testing.T) {
	cfg := config.Default()
	tbl := table.New()
	require.NoError(t, tbl.Append(&table.Record{Barcode: "barcode01_" + cfg.Pipeline.BarcodeSuffix}))
	require.NoError(t, tbl.Append(&table.Record{Barcode: "barcode02_" + cfg.Pipeline.BarcodeSuffix}))

	seqs := []fasta.Sequence{{ID: "barcode01", Seq: strings.Repeat("A", 30000)}}

	_, err := DeriveLocalStatus(tbl, seqs, cfg)
	require.Error(t, err)
	assert.True(t, perrors.IsData(err))
	assert.Contains(t, err.Error(), "barcode02_"+cfg.Pipeline.BarcodeSuffix)
}

func TestLookupSampleIDs(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 85)

	var calls [][]string
	api := &mockAPI{
		lookup: func(_ context.Context, creds config.Credentials, numbers []string) ([]portal.SampleInfo, error) {
			assert.Equal(t, "tok", creds.Token)
			calls = append(calls, numbers)
			out := make([]portal.SampleInfo, len(numbers))
			for i, n := range numbers {
				out[i] = portal.SampleInfo{ID: json.Number(fmt.Sprintf("%d", 1000+i)), SampleNumber: n}
			}
			return out, nil
		},
	}

	require.NoError(t, LookupSampleIDs(context.Background(), api, testCreds(), tbl, cfg, nil))

	// 85 rows at chunk size 40 means exactly three pages
	require.Len(t, calls, 3)
	assert.Len(t, calls[0], 40)
	assert.Len(t, calls[2], 5)

	for _, rec := range tbl.Rows() {
		assert.NotEmpty(t, rec.RemoteSampleID, rec.Barcode)
	}
}

func TestLookupSampleIDsAbortsOnChunkError(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 85)

	var calls int
	api := &mockAPI{
		lookup: func(_ context.Context, _ config.Credentials, numbers []string) ([]portal.SampleInfo, error) {
			calls++
			if calls == 2 {
				return nil, perrors.New(perrors.KindTransport, "portal.LookupSamples", "portal answered 500")
			}
			out := make([]portal.SampleInfo, len(numbers))
			for i, n := range numbers {
				out[i] = portal.SampleInfo{ID: json.Number(fmt.Sprintf("%d", i)), SampleNumber: n}
			}
			return out, nil
		},
	}

	err := LookupSampleIDs(context.Background(), api, testCreds(), tbl, cfg, nil)
	require.Error(t, err)
	assert.True(t, perrors.IsTransport(err))
	// stopped after the failed page, third never issued
	assert.Equal(t, 2, calls)

	// first page's ids survive the abort
	first, _ := tbl.Get(tbl.Barcodes()[0])
	assert.NotEmpty(t, first.RemoteSampleID)
}

func TestLookupSampleIDsAmbiguousSampleNumber(t *testing.T) {
	cfg := config.Default()
	tbl := table.New()
	for i := 1; i <= 2; i++ {
		require.NoError(t, tbl.Append(&table.Record{
			Barcode:            fmt.Sprintf("barcode%02d_%s", i, cfg.Pipeline.BarcodeSuffix),
			PortalSampleNumber: "SN-0001",
			LocalStatus:        cfg.Vocab.StatusReady,
		}))
	}

	api := &mockAPI{
		lookup: func(_ context.Context, _ config.Credentials, _ []string) ([]portal.SampleInfo, error) {
			return []portal.SampleInfo{{ID: "7", SampleNumber: "SN-0001"}}, nil
		},
	}

	err := LookupSampleIDs(context.Background(), api, testCreds(), tbl, cfg, nil)
	require.Error(t, err)
	assert.True(t, perrors.IsData(err))
	assert.Contains(t, err.Error(), "SN-0001")
}

func TestLookupSampleIDsReportsUnresolved(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 3)

	api := &mockAPI{
		lookup: func(_ context.Context, _ config.Credentials, numbers []string) ([]portal.SampleInfo, error) {
			// portal knows only the first sample
			return []portal.SampleInfo{{ID: "1", SampleNumber: numbers[0]}}, nil
		},
	}

	err := LookupSampleIDs(context.Background(), api, testCreds(), tbl, cfg, nil)
	require.Error(t, err)
	assert.True(t, perrors.IsData(err))
	assert.Contains(t, err.Error(), "2 samples did not receive a portal id")
}

func TestLookupSkipsRowsWithoutPortalNumber(t *testing.T) {
	cfg := config.Default()
	tbl := table.New()
	require.NoError(t, tbl.Append(&table.Record{
		Barcode:     "barcode01_" + cfg.Pipeline.BarcodeSuffix,
		LocalStatus: cfg.Vocab.StatusReady,
		// no PortalSampleNumber: the registry never resolved this row
	}))

	api := &mockAPI{
		lookup: func(_ context.Context, _ config.Credentials, _ []string) ([]portal.SampleInfo, error) {
			t.Fatal("no lookup expected for an empty eligible set")
			return nil, nil
		},
	}
	require.NoError(t, LookupSampleIDs(context.Background(), api, testCreds(), tbl, cfg, nil))
}

func TestPushStatus(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 85)

	var calls int
	api := &mockAPI{
		status: func(_ context.Context, creds config.Credentials, numbers []string, statusCode, defectID string) error {
			calls++
			assert.Equal(t, "1", statusCode)
			assert.Empty(t, defectID)
			assert.Equal(t, "tok", creds.Token)
			return nil
		},
	}

	require.NoError(t, PushStatus(context.Background(), api, testCreds(), tbl, cfg, cfg.Vocab.StatusReady, "", nil))
	assert.Equal(t, 3, calls)
	for _, rec := range tbl.Rows() {
		assert.Equal(t, MarkerStatusSet, rec.RemoteStatus)
	}
}

func TestPushStatusUnknownStatus(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 1)

	err := PushStatus(context.Background(), &mockAPI{}, testCreds(), tbl, cfg, "Totally made up", "", nil)
	require.Error(t, err)
	assert.True(t, perrors.IsConfig(err))
}

func TestPushStatusAbortsMidBatch(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 85)

	var calls int
	api := &mockAPI{
		status: func(_ context.Context, _ config.Credentials, _ []string, _, _ string) error {
			calls++
			if calls == 2 {
				return perrors.New(perrors.KindTransport, "portal.ChangeStatus", "portal answered 502")
			}
			return nil
		},
	}

	err := PushStatus(context.Background(), api, testCreds(), tbl, cfg, cfg.Vocab.StatusReady, "", nil)
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	// first chunk keeps its marker, later chunks stay untouched
	rows := tbl.Rows()
	assert.Equal(t, MarkerStatusSet, rows[0].RemoteStatus)
	assert.Empty(t, rows[80].RemoteStatus)
}

func TestPushConclusions(t *testing.T) {
	cfg := config.Default()
	tbl := table.New()
	require.NoError(t, tbl.Append(&table.Record{
		Barcode:         "barcode01_" + cfg.Pipeline.BarcodeSuffix,
		RemoteSampleID:  "101",
		LocalConclusion: "10",
	}))
	require.NoError(t, tbl.Append(&table.Record{
		// sentinel conclusion, not pushed
		Barcode:         "barcode02_" + cfg.Pipeline.BarcodeSuffix,
		RemoteSampleID:  "102",
		LocalConclusion: cfg.Vocab.ConclusionUnknown,
	}))
	require.NoError(t, tbl.Append(&table.Record{
		// no portal id, not pushed
		Barcode:         "barcode03_" + cfg.Pipeline.BarcodeSuffix,
		LocalConclusion: "10",
	}))

	var got []portal.ConclusionChange
	api := &mockAPI{
		conclusions: func(_ context.Context, _ config.Credentials, changes []portal.ConclusionChange) error {
			got = append(got, changes...)
			return nil
		},
	}

	require.NoError(t, PushConclusions(context.Background(), api, testCreds(), tbl, cfg, nil))
	require.Len(t, got, 1)
	assert.Equal(t, portal.ConclusionChange{SampleID: "101", Conclusion: "10"}, got[0])

	rec1, _ := tbl.Get("barcode01_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, MarkerConclusionSet, rec1.RemoteConclusionStatus)
	rec2, _ := tbl.Get("barcode02_" + cfg.Pipeline.BarcodeSuffix)
	assert.Empty(t, rec2.RemoteConclusionStatus)
}

func TestUploadSequences(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 3)
	// defect rows never upload
	require.NoError(t, tbl.Append(&table.Record{
		Barcode:     "barcode99_" + cfg.Pipeline.BarcodeSuffix,
		LocalStatus: cfg.Vocab.StatusDefect,
	}))

	seqs := map[string]string{}
	for _, rec := range tbl.Rows() {
		seqs[rec.Barcode] = strings.Repeat("ATGC", 10)
	}

	var uploaded []portal.UploadRequest
	api := &mockAPI{
		upload: func(_ context.Context, creds config.Credentials, up portal.UploadRequest) error {
			assert.True(t, creds.HasBasic())
			if up.SampleNumber == "SN-0002" {
				return perrors.New(perrors.KindTransport, "portal.UploadSequence", "portal answered 500")
			}
			uploaded = append(uploaded, up)
			return nil
		},
	}

	dir := t.TempDir()
	report, err := UploadSequences(context.Background(), api, testCreds(), tbl, seqs, cfg, dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.Finish.Before(report.Start))

	require.Len(t, uploaded, 2)
	assert.Equal(t, "LT-0001", uploaded[0].SampleData.SequenceName)
	assert.True(t, strings.HasPrefix(uploaded[0].Sequence, ">"+cfg.Upload.SequencePrefix+"LT-0001\n"))

	ok1, _ := tbl.Get("barcode01_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, MarkerUploaded, ok1.RemoteUploadStatus)
	failed, _ := tbl.Get("barcode02_" + cfg.Pipeline.BarcodeSuffix)
	assert.True(t, strings.HasPrefix(failed.RemoteUploadStatus, "Failed: "))
	skipped, _ := tbl.Get("barcode99_" + cfg.Pipeline.BarcodeSuffix)
	assert.Empty(t, skipped.RemoteUploadStatus)

	// every attempted sequence lands in the archive, success or not
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	data, err := os.ReadFile(filepath.Join(dir, cfg.Upload.SequencePrefix+"LT-0001.fasta"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ">"+cfg.Upload.SequencePrefix+"LT-0001\n"))
}

func TestUploadSequencesMissingSequence(t *testing.T) {
	cfg := config.Default()
	tbl := readyTable(t, cfg, 1)

	api := &mockAPI{
		upload: func(_ context.Context, _ config.Credentials, _ portal.UploadRequest) error {
			t.Fatal("no upload expected without a sequence")
			return nil
		},
	}

	report, err := UploadSequences(context.Background(), api, testCreds(), tbl, map[string]string{}, cfg, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 0, report.Succeeded)

	rec, _ := tbl.Get("barcode01_" + cfg.Pipeline.BarcodeSuffix)
	assert.Equal(t, "Failed: sequence missing from batch", rec.RemoteUploadStatus)
}

func TestUploadReportWriteFile(t *testing.T) {
	report := UploadReport{Attempted: 5, Succeeded: 4}
	report.Start = report.Finish

	path := filepath.Join(t.TempDir(), "report.tsv")
	require.NoError(t, report.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "attempted\t5")
	assert.Contains(t, string(data), "succeeded\t4")
	assert.Contains(t, string(data), "failed\t1")
}
