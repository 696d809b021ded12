package pipeline

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
	"go.uber.org/zap/zaptest"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/portal"
	"carmon/internal/registry"
	"carmon/internal/stages"
	"carmon/internal/table"
)

// mockPortal records every remote interaction of a run.
type mockPortal struct {
	entries []registry.Entry

	statusVocab     config.Vocabulary
	conclusionVocab config.Vocabulary

	lookupCalls     int
	statusCalls     []string
	conclusionCalls []portal.ConclusionChange
	uploadedSamples []string
	failUploadFor   string
}

func (m *mockPortal) FetchRegistryTable(_ context.Context, _ config.Credentials) ([]registry.Entry, error) {
	return m.entries, nil
}

func (m *mockPortal) VerifyStatusTypes(_ context.Context, _ config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error) {
	remote := m.statusVocab
	if remote == nil {
		remote = local
	}
	return remote, !remote.Equal(local), nil
}

func (m *mockPortal) VerifyConclusionTypes(_ context.Context, _ config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error) {
	remote := m.conclusionVocab
	if remote == nil {
		remote = local
	}
	return remote, !remote.Equal(local), nil
}

func (m *mockPortal) LookupSamples(_ context.Context, _ config.Credentials, numbers []string) ([]portal.SampleInfo, error) {
	m.lookupCalls++
	out := make([]portal.SampleInfo, len(numbers))
	for i, n := range numbers {
		out[i] = portal.SampleInfo{ID: json.Number(fmt.Sprintf("%d", 100+i)), SampleNumber: n}
	}
	return out, nil
}

func (m *mockPortal) ChangeStatus(_ context.Context, _ config.Credentials, numbers []string, statusCode, _ string) error {
	for _, n := range numbers {
		m.statusCalls = append(m.statusCalls, n+"="+statusCode)
	}
	return nil
}

func (m *mockPortal) ChangeConclusions(_ context.Context, _ config.Credentials, changes []portal.ConclusionChange) error {
	m.conclusionCalls = append(m.conclusionCalls, changes...)
	return nil
}

func (m *mockPortal) UploadSequence(_ context.Context, _ config.Credentials, up portal.UploadRequest) error {
	if up.SampleNumber == m.failUploadFor {
		return perrors.New(perrors.KindTransport, "portal.UploadSequence", "portal answered 500")
	}
	m.uploadedSamples = append(m.uploadedSamples, up.SampleNumber)
	return nil
}

var _ Portal = (*mockPortal)(nil)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// batchFixture lays out a two-sample batch: sample 1 sequences cleanly and
// resolves in the registry, sample 2 is a sequencing defect.
func batchFixture(t *testing.T, cfg *config.Config) (Inputs, *mockPortal) {
	t.Helper()
	dir := t.TempDir()

	instrument := writeFile(t, dir, "instrument.tsv",
		"LT-1001\t1\tA1\trun7\n"+
			"LT-1002\t2\tA2\trun7\n")
	lab := writeFile(t, dir, "lab.tsv",
		"LT-1001\tdezin-mow-001\tМосква\t\t2022-03-01\n"+
			"LT-1002\tdezin-spe-002\tСанкт-Петербург\t\t2022-03-01\n")

	good := strings.Repeat("ATGC", 10)
	bad := "ATG" + strings.Repeat("N", 50)
	fastaFile := writeFile(t, dir, "batch.fasta",
		">barcode01 run7\n"+good+"\n>barcode02 run7\n"+bad+"\n")

	lineage := writeFile(t, dir, "lineage.csv",
		"taxon,lineage\n"+
			"barcode01_"+cfg.Pipeline.BarcodeSuffix+",BA.2\n")
	clades := writeFile(t, dir, "clades.json",
		`{"results":[{"seqName":"barcode01_`+cfg.Pipeline.BarcodeSuffix+`","clade":"21L (Omicron)"}]}`)

	mock := &mockPortal{
		entries: []registry.Entry{
			{RegistryID: "11", DepartmentName: "dept A", SampleNumber: "MOW0012", Value: "dezin-mow-001"},
			{RegistryID: "12", DepartmentName: "dept B", SampleNumber: "SPE0044", Value: "dezin-spe-002"},
		},
	}
	return Inputs{
		InstrumentPath: instrument,
		LabPath:        lab,
		FastaPath:      fastaFile,
		LineagePath:    lineage,
		CladePath:      clades,
	}, mock
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.OutputDir = t.TempDir()
	cfg.Pipeline.ATGCThreshold = 10
	return cfg
}

func TestRunFullBatch(t *testing.T) {
	cfg := testConfig(t)
	in, mock := batchFixture(t, cfg)

	runner, err := NewRunner(cfg, mock, config.Credentials{Token: "tok", Login: "lab", Password: "pw"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tbl, err := runner.Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	ready, ok := tbl.Get("barcode01_" + cfg.Pipeline.BarcodeSuffix)
	require.True(t, ok)
	assert.Equal(t, table.MatchOK, ready.MatchStatus)
	assert.Equal(t, cfg.Vocab.StatusReady, ready.LocalStatus)
	assert.Equal(t, "BA.2", ready.Lineage)
	assert.Equal(t, "10", ready.LocalConclusion)
	assert.Equal(t, stages.MarkerUploaded, ready.RemoteUploadStatus)
	assert.Equal(t, stages.MarkerStatusSet, ready.RemoteStatus)
	assert.Equal(t, stages.MarkerConclusionSet, ready.RemoteConclusionStatus)
	assert.NotEmpty(t, ready.RemoteSampleID)

	defect, ok := tbl.Get("barcode02_" + cfg.Pipeline.BarcodeSuffix)
	require.True(t, ok)
	assert.Equal(t, cfg.Vocab.StatusDefect, defect.LocalStatus)
	assert.Equal(t, cfg.Vocab.ConclusionUnknown, defect.LocalConclusion)
	assert.Equal(t, stages.MarkerStatusSet, defect.RemoteStatus)
	assert.Empty(t, defect.RemoteUploadStatus)
	assert.Empty(t, defect.RemoteConclusionStatus)

	// one status change per sample, conclusion only for the concluded one
	assert.ElementsMatch(t, []string{"MOW0012=1", "SPE0044=3"}, mock.statusCalls)
	require.Len(t, mock.conclusionCalls, 1)
	assert.Equal(t, "10", mock.conclusionCalls[0].Conclusion)
	assert.Equal(t, []string{"MOW0012"}, mock.uploadedSamples)

	// every stage left its snapshot in the run directory
	for _, name := range []string{
		SnapAssembled, SnapReconciled, SnapLocal, SnapConcluded,
		SnapLookedUp, SnapStatusSet, SnapConcluSet, SnapFinal,
	} {
		_, err := os.Stat(filepath.Join(runner.RunDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(runner.RunDir, ReportFileName))
	assert.NoError(t, err)

	archive, err := os.ReadDir(filepath.Join(runner.RunDir, ArchiveDirName))
	require.NoError(t, err)
	assert.Len(t, archive, 1)

	// the final snapshot round-trips
	restored, err := table.ReadSnapshot(filepath.Join(runner.RunDir, SnapFinal))
	require.NoError(t, err)
	assert.Equal(t, tbl.Barcodes(), restored.Barcodes())
}

func TestRunKeepsSnapshotOnFailure(t *testing.T) {
	cfg := testConfig(t)
	in, mock := batchFixture(t, cfg)
	// break the clade report so conclude fails after local status derived
	require.NoError(t, os.WriteFile(in.CladePath, []byte("{"), 0o644))

	runner, err := NewRunner(cfg, mock, config.Credentials{Token: "tok"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tbl, err := runner.Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, perrors.IsData(err))
	require.NotNil(t, tbl)

	// stages up to local status left their snapshots, nothing ran after
	_, err = os.Stat(filepath.Join(runner.RunDir, SnapLocal))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(runner.RunDir, SnapConcluded))
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, mock.lookupCalls)
}

func TestSyncVocabulariesAdoptsPortalRevision(t *testing.T) {
	cfg := testConfig(t)
	mock := &mockPortal{
		statusVocab: config.Vocabulary{
			{Text: cfg.Vocab.StatusReady, Code: "71"},
			{Text: cfg.Vocab.StatusConfirm, Code: "72"},
			{Text: cfg.Vocab.StatusDefect, Code: "73"},
		},
	}

	runner, err := NewRunner(cfg, mock, config.Credentials{Token: "tok"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, runner.SyncVocabularies(context.Background()))

	code, ok := cfg.Vocab.Status.CodeByText(cfg.Vocab.StatusReady)
	require.True(t, ok)
	assert.Equal(t, "71", code)
}

func TestSyncVocabulariesRejectsMissingStatus(t *testing.T) {
	cfg := testConfig(t)
	mock := &mockPortal{
		statusVocab: config.Vocabulary{
			{Text: "Something else entirely", Code: "9"},
		},
	}

	runner, err := NewRunner(cfg, mock, config.Credentials{Token: "tok"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = runner.SyncVocabularies(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsConfig(err))
	assert.Contains(t, err.Error(), cfg.Vocab.StatusReady)
}

func TestNewRunnerCreatesUniqueRunDirs(t *testing.T) {
	cfg := testConfig(t)
	mock := &mockPortal{}

	a, err := NewRunner(cfg, mock, config.Credentials{}, nil)
	require.NoError(t, err)
	b, err := NewRunner(cfg, mock, config.Credentials{}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunDir, b.RunDir)
	assert.True(t, strings.HasPrefix(filepath.Base(a.RunDir), "run-"))
}
