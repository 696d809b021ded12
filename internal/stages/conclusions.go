package stages

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"carmon/internal/conclusion"
	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/portal"
	"carmon/internal/table"
)

// PushConclusions sends every real (non-sentinel) local conclusion to the
// portal. Requires the lookup stage to have run first, since changes are
// keyed by portal sample id.
func PushConclusions(ctx context.Context, api PortalAPI, creds config.Credentials, tbl *table.Table, cfg *config.Config, logger *zap.Logger) error {
	const op = "stages.PushConclusions"
	if logger == nil {
		logger = zap.NewNop()
	}

	eligible := tbl.Filter(func(r *table.Record) bool {
		return conclusion.Concluded(r, cfg.Vocab) && r.RemoteSampleID != ""
	})
	logger.Info("conclusion push", zap.Int("eligible", len(eligible)))

	for _, chunk := range chunks(eligible, cfg.Pipeline.ChunkSize) {
		changes := make([]portal.ConclusionChange, len(chunk))
		for i, rec := range chunk {
			changes[i] = portal.ConclusionChange{
				SampleID:   rec.RemoteSampleID,
				Conclusion: rec.LocalConclusion,
			}
		}
		if err := api.ChangeConclusions(ctx, creds, changes); err != nil {
			return err
		}
		for _, rec := range chunk {
			rec.RemoteConclusionStatus = MarkerConclusionSet
		}
	}

	var missing []string
	for _, rec := range eligible {
		if rec.RemoteConclusionStatus != MarkerConclusionSet {
			missing = append(missing, rec.Barcode)
		}
	}
	if len(missing) > 0 {
		return perrors.New(perrors.KindData, op,
			"%d samples did not get their conclusion set: %s", len(missing), strings.Join(missing, ", "))
	}
	return nil
}
