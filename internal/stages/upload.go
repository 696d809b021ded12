package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"carmon/internal/config"
	"carmon/internal/fasta"
	"carmon/internal/perrors"
	"carmon/internal/portal"
	"carmon/internal/table"
)

// UploadReport summarizes one upload batch.
type UploadReport struct {
	Start     time.Time
	Finish    time.Time
	Attempted int
	Succeeded int
}

// Failed reports how many uploads did not go through.
func (r UploadReport) Failed() int { return r.Attempted - r.Succeeded }

// WriteFile writes the report as tab-separated key/value lines.
func (r UploadReport) WriteFile(path string) error {
	const op = "stages.UploadReport.WriteFile"
	var b strings.Builder
	fmt.Fprintf(&b, "started\t%s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(&b, "finished\t%s\n", r.Finish.Format(time.RFC3339))
	fmt.Fprintf(&b, "attempted\t%d\n", r.Attempted)
	fmt.Fprintf(&b, "succeeded\t%d\n", r.Succeeded)
	fmt.Fprintf(&b, "failed\t%d\n", r.Failed())
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to write upload report")
	}
	return nil
}

// UploadSequences pushes the sequence of every sample in the ready status to
// the portal, one request per sample. Unlike the other remote stages a
// failed upload never aborts the batch: the error text lands in the row's
// upload tracking field and the loop moves on. Each attempted sequence is
// also archived as an individual FASTA file under archiveDir.
func UploadSequences(ctx context.Context, api PortalAPI, creds config.Credentials, tbl *table.Table, seqs map[string]string, cfg *config.Config, archiveDir string, logger *zap.Logger) (UploadReport, error) {
	const op = "stages.UploadSequences"
	if logger == nil {
		logger = zap.NewNop()
	}
	report := UploadReport{Start: time.Now()}

	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return report, perrors.Wrap(perrors.KindData, op, err, "failed to create archive dir")
	}

	eligible := tbl.Filter(func(r *table.Record) bool {
		return r.LocalStatus == cfg.Vocab.StatusReady
	})
	logger.Info("sequence upload", zap.Int("eligible", len(eligible)))

	for _, rec := range eligible {
		report.Attempted++
		seq, ok := seqs[rec.Barcode]
		if !ok {
			rec.RemoteUploadStatus = "Failed: sequence missing from batch"
			logger.Warn("upload skipped", zap.String("barcode", rec.Barcode),
				zap.String("reason", "sequence missing from batch"))
			continue
		}

		if err := archiveSequence(archiveDir, cfg.Upload, rec, seq); err != nil {
			return report, err
		}

		req := portal.BuildUploadRequest(cfg.Upload, rec.PortalSampleNumber, rec.LabBarcode, rec.MatchedValue, seq)
		if err := api.UploadSequence(ctx, creds, req); err != nil {
			rec.RemoteUploadStatus = "Failed: " + err.Error()
			logger.Warn("upload failed",
				zap.String("barcode", rec.Barcode),
				zap.String("sample_number", rec.PortalSampleNumber),
				zap.Error(err))
			continue
		}
		rec.RemoteUploadStatus = MarkerUploaded
		report.Succeeded++
	}

	report.Finish = time.Now()
	logger.Info("sequence upload done",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed()))
	return report, nil
}

func archiveSequence(dir string, up config.UploadConfig, rec *table.Record, seq string) error {
	const op = "stages.archiveSequence"
	name := up.SequencePrefix + rec.LabBarcode
	f, err := os.Create(filepath.Join(dir, name+".fasta"))
	if err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to create archive file")
	}
	if err := fasta.Write(f, name, seq, up.LineWidth); err != nil {
		f.Close()
		return perrors.Wrap(perrors.KindData, op, err, "failed to archive %s", rec.Barcode)
	}
	if err := f.Close(); err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to finish archive file")
	}
	return nil
}
