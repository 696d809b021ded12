// Package analysis merges the external caller outputs onto the working
// table: the lineage caller's delimited report and the clade caller's JSON
// report, both keyed by barcode.
package analysis

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strings"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/table"
)

// MergeLineage joins the lineage caller output onto the table. The report
// carries a header row; only the configured taxon and lineage columns are
// consumed. Taxon values must equal barcodes exactly. Rows for sequences
// outside the plate are ignored.
func MergeLineage(tbl *table.Table, path string, schema config.LineageSchema, sep rune) error {
	const op = "analysis.MergeLineage"

	f, err := os.Open(path)
	if err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to open lineage report")
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = sep
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to read lineage report header")
	}
	taxonIdx, lineageIdx := -1, -1
	for i, col := range header {
		switch col {
		case schema.TaxonColumn:
			taxonIdx = i
		case schema.LineageColumn:
			lineageIdx = i
		}
	}
	if taxonIdx < 0 || lineageIdx < 0 {
		return perrors.New(perrors.KindData, op,
			"lineage report is missing column %q or %q", schema.TaxonColumn, schema.LineageColumn)
	}

	for {
		vals, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return perrors.Wrap(perrors.KindData, op, err, "failed to parse lineage report")
		}
		if taxonIdx >= len(vals) || lineageIdx >= len(vals) {
			return perrors.New(perrors.KindData, op, "lineage report row is too short")
		}
		if rec, ok := tbl.Get(vals[taxonIdx]); ok {
			rec.Lineage = vals[lineageIdx]
		}
	}
	return nil
}

type cladeReport struct {
	Results []cladeResult `json:"results"`
}

type cladeResult struct {
	SeqName string `json:"seqName"`
	Clade   string `json:"clade"`
}

// MergeClades joins the clade caller JSON report onto the table. Sequence
// names may contain whitespace where the barcode has underscores; they are
// normalized before the exact match.
func MergeClades(tbl *table.Table, path string) error {
	const op = "analysis.MergeClades"

	data, err := os.ReadFile(path)
	if err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to read clade report")
	}
	var report cladeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return perrors.Wrap(perrors.KindData, op, err, "failed to parse clade report")
	}

	for _, res := range report.Results {
		key := strings.Join(strings.Fields(res.SeqName), "_")
		if rec, ok := tbl.Get(key); ok {
			rec.Clade = res.Clade
		}
	}
	return nil
}

// VerifyComplete enforces the merge completeness invariant: every record
// flagged as a valid sequence must carry both lineage and clade. This is a
// batch-level check, not a per-row warning.
func VerifyComplete(tbl *table.Table) error {
	const op = "analysis.VerifyComplete"

	var missing []string
	for _, rec := range tbl.Rows() {
		if rec.SequenceValid != table.True {
			continue
		}
		if rec.Lineage == "" || rec.Clade == "" {
			missing = append(missing, rec.Barcode)
		}
	}
	if len(missing) > 0 {
		return perrors.New(perrors.KindData, op,
			"%d valid sequences missing lineage or clade after merge: %s",
			len(missing), strings.Join(missing, ", "))
	}
	return nil
}

// Merge runs both joins and the completeness check.
func Merge(tbl *table.Table, lineagePath, cladePath string, schema config.LineageSchema, sep rune) error {
	if err := MergeLineage(tbl, lineagePath, schema, sep); err != nil {
		return err
	}
	if err := MergeClades(tbl, cladePath); err != nil {
		return err
	}
	return VerifyComplete(tbl)
}
