package stages

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/table"
)

// LookupSampleIDs resolves the portal-side sample id for every row whose
// local status is part of the portal status vocabulary. Rows without a
// portal sample number (unresolved registry match) cannot be looked up and
// are not eligible.
func LookupSampleIDs(ctx context.Context, api PortalAPI, creds config.Credentials, tbl *table.Table, cfg *config.Config, logger *zap.Logger) error {
	const op = "stages.LookupSampleIDs"
	if logger == nil {
		logger = zap.NewNop()
	}

	eligible := tbl.Filter(func(r *table.Record) bool {
		_, known := cfg.Vocab.Status.CodeByText(r.LocalStatus)
		return known && r.PortalSampleNumber != ""
	})
	logger.Info("sample id lookup",
		zap.Int("eligible", len(eligible)),
		zap.Int("chunk_size", cfg.Pipeline.ChunkSize))

	for _, chunk := range chunks(eligible, cfg.Pipeline.ChunkSize) {
		infos, err := api.LookupSamples(ctx, creds, sampleNumbers(chunk))
		if err != nil {
			return err
		}
		for _, info := range infos {
			matches := tbl.Filter(func(r *table.Record) bool {
				return r.PortalSampleNumber == info.SampleNumber
			})
			if len(matches) != 1 {
				return perrors.New(perrors.KindData, op,
					"portal sample %q (id %s) matches %d table rows, want exactly 1",
					info.SampleNumber, info.ID.String(), len(matches))
			}
			matches[0].RemoteSampleID = info.ID.String()
		}
	}

	var missing []string
	for _, rec := range eligible {
		if rec.RemoteSampleID == "" {
			missing = append(missing, rec.Barcode)
		}
	}
	if len(missing) > 0 {
		return perrors.New(perrors.KindData, op,
			"%d samples did not receive a portal id: %s", len(missing), strings.Join(missing, ", "))
	}
	return nil
}
