package stages

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/table"
)

// PushStatus sets statusText on the portal for every row the pipeline
// assigned that status locally. defectID is forwarded as-is; it only carries
// meaning for the defect status and stays empty otherwise.
func PushStatus(ctx context.Context, api PortalAPI, creds config.Credentials, tbl *table.Table, cfg *config.Config, statusText, defectID string, logger *zap.Logger) error {
	const op = "stages.PushStatus"
	if logger == nil {
		logger = zap.NewNop()
	}

	code, ok := cfg.Vocab.Status.CodeByText(statusText)
	if !ok {
		return perrors.New(perrors.KindConfig, op,
			"status %q is not in the status vocabulary (have: %s)",
			statusText, strings.Join(cfg.Vocab.Status.Texts(), ", "))
	}

	eligible := tbl.Filter(func(r *table.Record) bool {
		return r.LocalStatus == statusText && r.PortalSampleNumber != ""
	})
	logger.Info("status push",
		zap.String("status", statusText),
		zap.String("code", code),
		zap.Int("eligible", len(eligible)))

	for _, chunk := range chunks(eligible, cfg.Pipeline.ChunkSize) {
		if err := api.ChangeStatus(ctx, creds, sampleNumbers(chunk), code, defectID); err != nil {
			return err
		}
		for _, rec := range chunk {
			rec.RemoteStatus = MarkerStatusSet
		}
	}

	var missing []string
	for _, rec := range eligible {
		if rec.RemoteStatus != MarkerStatusSet {
			missing = append(missing, rec.Barcode)
		}
	}
	if len(missing) > 0 {
		return perrors.New(perrors.KindData, op,
			"%d samples did not get their status set: %s", len(missing), strings.Join(missing, ", "))
	}
	return nil
}
