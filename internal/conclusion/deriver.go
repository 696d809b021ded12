// Package conclusion derives the local quality conclusion for each sample
// from its lineage and clade calls. Pure table transformation, no portal
// access.
package conclusion

import (
	"carmon/internal/config"
	"carmon/internal/table"
)

// Key builds the lookup key for a lineage/clade pair.
func Key(lineage, clade string) string {
	return lineage + "|" + clade
}

// Derive assigns a local conclusion code to every record: the configured
// mapping for its lineage/clade pair, or the "not stated" sentinel when no
// mapping exists. Rerunning recomputes all codes.
func Derive(tbl *table.Table, vocab config.VocabConfig) {
	for _, rec := range tbl.Rows() {
		code, ok := vocab.ConclusionMap[Key(rec.Lineage, rec.Clade)]
		if !ok {
			code = vocab.ConclusionUnknown
		}
		rec.LocalConclusion = code
	}
}

// Concluded reports whether a record carries a real (non-sentinel)
// conclusion, i.e. is eligible for the conclusion push.
func Concluded(rec *table.Record, vocab config.VocabConfig) bool {
	return rec.LocalConclusion != "" && rec.LocalConclusion != vocab.ConclusionUnknown
}
