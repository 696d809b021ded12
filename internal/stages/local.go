package stages

import (
	"strings"

	"carmon/internal/config"
	"carmon/internal/fasta"
	"carmon/internal/perrors"
	"carmon/internal/table"
)

// DeriveLocalStatus checks every assembled sequence against the validity
// threshold and derives the local sample status:
//
//   - valid sequence, registry match OK        -> ready
//   - valid sequence, registry match not OK    -> confirmation required
//   - invalid sequence                         -> sequence defect
//
// Sequences in the FASTA that are not on the plate are ignored; plate rows
// missing from the FASTA reject the batch. The returned map holds the raw
// sequence text per barcode for the later upload stage.
func DeriveLocalStatus(tbl *table.Table, seqs []fasta.Sequence, cfg *config.Config) (map[string]string, error) {
	const op = "stages.DeriveLocalStatus"

	retained := make(map[string]string)
	for _, seq := range seqs {
		bc := seq.ID
		if !strings.HasSuffix(bc, "_"+cfg.Pipeline.BarcodeSuffix) {
			bc += "_" + cfg.Pipeline.BarcodeSuffix
		}
		rec, ok := tbl.Get(bc)
		if !ok {
			continue
		}
		if seq.ATGCCount() > cfg.Pipeline.ATGCThreshold {
			rec.SequenceValid = table.True
		} else {
			rec.SequenceValid = table.False
		}
		retained[bc] = seq.Seq
	}

	var missing []string
	for _, rec := range tbl.Rows() {
		if rec.SequenceValid == table.Unset {
			missing = append(missing, rec.Barcode)
		}
	}
	if len(missing) > 0 {
		return nil, perrors.New(perrors.KindData, op,
			"%d samples not found in the fasta file: %s", len(missing), strings.Join(missing, ", "))
	}

	for _, rec := range tbl.Rows() {
		switch {
		case rec.SequenceValid != table.True:
			rec.LocalStatus = cfg.Vocab.StatusDefect
		case rec.MatchStatus == table.MatchOK:
			rec.LocalStatus = cfg.Vocab.StatusReady
		default:
			rec.LocalStatus = cfg.Vocab.StatusConfirm
		}
	}
	return retained, nil
}
