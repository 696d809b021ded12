// Package pipeline strings the individual stages into one end-to-end batch
// run: assemble the plate table, reconcile it against the registry, derive
// local statuses and conclusions, then sync everything to the portal. Every
// stage writes a numbered table snapshot into a per-run directory so an
// aborted batch can be inspected and finished stage by stage.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carmon/internal/analysis"
	"carmon/internal/assemble"
	"carmon/internal/conclusion"
	"carmon/internal/config"
	"carmon/internal/fasta"
	"carmon/internal/perrors"
	"carmon/internal/portal"
	"carmon/internal/registry"
	"carmon/internal/stages"
	"carmon/internal/table"
)

// Snapshot file names, in stage order.
const (
	SnapAssembled  = "01-assembled.tsv"
	SnapReconciled = "02-reconciled.tsv"
	SnapLocal      = "03-local-status.tsv"
	SnapConcluded  = "04-concluded.tsv"
	SnapLookedUp   = "05-looked-up.tsv"
	SnapStatusSet  = "06-status-set.tsv"
	SnapConcluSet  = "07-conclusions-set.tsv"
	SnapFinal      = "08-final.tsv"

	ArchiveDirName = "sequences"
	ReportFileName = "upload-report.tsv"
)

// Portal is the portal surface the full run needs.
type Portal interface {
	stages.PortalAPI

	FetchRegistryTable(ctx context.Context, creds config.Credentials) ([]registry.Entry, error)
	VerifyStatusTypes(ctx context.Context, creds config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error)
	VerifyConclusionTypes(ctx context.Context, creds config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error)
}

var _ Portal = (*portal.Client)(nil)

// Inputs are the files of one sequencing batch.
type Inputs struct {
	InstrumentPath string
	LabPath        string
	FastaPath      string
	LineagePath    string
	CladePath      string

	// LineageSep is the column separator of the lineage report. Zero
	// means comma.
	LineageSep rune
}

// Runner executes one batch. Each Runner owns a fresh run directory under
// the configured output dir.
type Runner struct {
	cfg    *config.Config
	api    Portal
	creds  config.Credentials
	logger *zap.Logger

	// RunDir holds this run's snapshots, sequence archive and report.
	RunDir string
}

// NewRunner creates the run directory and the runner.
func NewRunner(cfg *config.Config, api Portal, creds config.Credentials, logger *zap.Logger) (*Runner, error) {
	const op = "pipeline.NewRunner"
	if logger == nil {
		logger = zap.NewNop()
	}
	runDir := filepath.Join(cfg.Pipeline.OutputDir, "run-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, perrors.Wrap(perrors.KindData, op, err, "failed to create run dir")
	}
	logger.Info("run directory created", zap.String("dir", runDir))
	return &Runner{cfg: cfg, api: api, creds: creds, logger: logger, RunDir: runDir}, nil
}

// Run executes the whole batch and returns the final table. The table
// returned alongside an error reflects everything that completed before the
// failure; its last snapshot is already on disk.
func (r *Runner) Run(ctx context.Context, in Inputs) (*table.Table, error) {
	tbl, err := r.Assemble(in)
	if err != nil {
		return nil, err
	}
	if err := r.Reconcile(ctx, tbl); err != nil {
		return tbl, err
	}
	seqs, err := r.DeriveLocal(tbl, in.FastaPath)
	if err != nil {
		return tbl, err
	}
	if err := r.Conclude(tbl, in); err != nil {
		return tbl, err
	}
	if err := r.SyncVocabularies(ctx); err != nil {
		return tbl, err
	}
	if err := r.Sync(ctx, tbl, seqs); err != nil {
		return tbl, err
	}
	return tbl, nil
}

// Assemble builds the plate table from the instrument and lab sheets.
func (r *Runner) Assemble(in Inputs) (*table.Table, error) {
	r.stage("assemble")
	tbl, err := assemble.Assemble(r.cfg, in.InstrumentPath, in.LabPath)
	if err != nil {
		return nil, err
	}
	return tbl, r.snapshot(tbl, SnapAssembled)
}

// Reconcile fetches the registry tables and matches every row.
func (r *Runner) Reconcile(ctx context.Context, tbl *table.Table) error {
	r.stage("reconcile")
	entries, err := r.api.FetchRegistryTable(ctx, r.creds)
	if err != nil {
		return err
	}
	r.logger.Info("registry fetched", zap.Int("entries", len(entries)))
	registry.NewEngine(entries).Reconcile(tbl)
	return r.snapshot(tbl, SnapReconciled)
}

// DeriveLocal parses the batch FASTA and derives per-sample validity and
// local status. The returned map feeds the upload stage.
func (r *Runner) DeriveLocal(tbl *table.Table, fastaPath string) (map[string]string, error) {
	r.stage("local status")
	seqs, err := fasta.ParseFile(fastaPath)
	if err != nil {
		return nil, err
	}
	retained, err := stages.DeriveLocalStatus(tbl, seqs, r.cfg)
	if err != nil {
		return nil, err
	}
	return retained, r.snapshot(tbl, SnapLocal)
}

// Conclude merges the lineage and clade calls and derives conclusions.
func (r *Runner) Conclude(tbl *table.Table, in Inputs) error {
	r.stage("conclude")
	sep := in.LineageSep
	if sep == 0 {
		sep = ','
	}
	if err := analysis.Merge(tbl, in.LineagePath, in.CladePath, r.cfg.Schema.Lineage, sep); err != nil {
		return err
	}
	conclusion.Derive(tbl, r.cfg.Vocab)
	return r.snapshot(tbl, SnapConcluded)
}

// SyncVocabularies compares the pinned status and conclusion dictionaries
// against the portal. The portal revision wins: on drift the remote
// vocabulary replaces the local one for the rest of the run, as long as the
// named pipeline statuses still exist in it.
func (r *Runner) SyncVocabularies(ctx context.Context) error {
	const op = "pipeline.SyncVocabularies"
	r.stage("vocabulary check")

	remote, drifted, err := r.api.VerifyStatusTypes(ctx, r.creds, r.cfg.Vocab.Status)
	if err != nil {
		return err
	}
	if drifted {
		r.logger.Warn("status vocabulary drifted, adopting portal revision",
			zap.Strings("remote", remote.Texts()))
		var missing []string
		for _, name := range []string{r.cfg.Vocab.StatusReady, r.cfg.Vocab.StatusConfirm, r.cfg.Vocab.StatusDefect} {
			if _, ok := remote.CodeByText(name); !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return perrors.New(perrors.KindConfig, op,
				"portal status vocabulary no longer carries: %s", strings.Join(missing, ", "))
		}
		r.cfg.Vocab.Status = remote
	}

	remote, drifted, err = r.api.VerifyConclusionTypes(ctx, r.creds, r.cfg.Vocab.Conclusions)
	if err != nil {
		return err
	}
	if drifted {
		r.logger.Warn("conclusion vocabulary drifted, adopting portal revision",
			zap.Strings("remote", remote.Texts()))
		r.cfg.Vocab.Conclusions = remote
	}
	return nil
}

// Sync pushes the finished table to the portal: sample lookup, one status
// change per local status, conclusions, then the sequence upload.
func (r *Runner) Sync(ctx context.Context, tbl *table.Table, seqs map[string]string) error {
	r.stage("sample lookup")
	if err := stages.LookupSampleIDs(ctx, r.api, r.creds, tbl, r.cfg, r.logger); err != nil {
		return err
	}
	if err := r.snapshot(tbl, SnapLookedUp); err != nil {
		return err
	}

	r.stage("status push")
	for _, statusText := range []string{r.cfg.Vocab.StatusReady, r.cfg.Vocab.StatusConfirm, r.cfg.Vocab.StatusDefect} {
		if err := stages.PushStatus(ctx, r.api, r.creds, tbl, r.cfg, statusText, "", r.logger); err != nil {
			return err
		}
	}
	if err := r.snapshot(tbl, SnapStatusSet); err != nil {
		return err
	}

	r.stage("conclusion push")
	if err := stages.PushConclusions(ctx, r.api, r.creds, tbl, r.cfg, r.logger); err != nil {
		return err
	}
	if err := r.snapshot(tbl, SnapConcluSet); err != nil {
		return err
	}

	r.stage("sequence upload")
	report, err := stages.UploadSequences(ctx, r.api, r.creds, tbl, seqs, r.cfg,
		filepath.Join(r.RunDir, ArchiveDirName), r.logger)
	if err != nil {
		return err
	}
	if err := report.WriteFile(filepath.Join(r.RunDir, ReportFileName)); err != nil {
		return err
	}
	return r.snapshot(tbl, SnapFinal)
}

func (r *Runner) stage(name string) {
	r.logger.Info("stage", zap.String("name", name))
}

func (r *Runner) snapshot(tbl *table.Table, name string) error {
	path := filepath.Join(r.RunDir, name)
	if err := tbl.WriteSnapshot(path); err != nil {
		return err
	}
	r.logger.Debug("snapshot written", zap.String("path", path), zap.Int("rows", tbl.Len()))
	return nil
}
