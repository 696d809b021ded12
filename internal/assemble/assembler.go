// Package assemble builds the canonical working table from the two input
// spreadsheets: the instrument roster (reference, defines the plate) and the
// internal lab submission table. Output size must equal the plate size or the
// whole batch is rejected; partial plates are never produced.
package assemble

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/table"
)

var dispensePattern = regexp.MustCompile(`^\d{1,2}$`)

// Assemble reads both input tables and produces the merged working table
// keyed by derived barcode. Inputs are tab-separated and carry no header row;
// column meaning comes from the configured schemas.
func Assemble(cfg *config.Config, instrumentPath, labPath string) (*table.Table, error) {
	const op = "assemble.Assemble"

	instrument, err := readRows(instrumentPath, cfg.Schema.Instrument.Columns)
	if err != nil {
		return nil, perrors.Wrap(perrors.KindData, op, err, "failed to read instrument table")
	}
	lab, err := readRows(labPath, cfg.Schema.Lab.Columns)
	if err != nil {
		return nil, perrors.Wrap(perrors.KindData, op, err, "failed to read lab table")
	}

	// Dispense position by sample identifier. Duplicate identifiers make
	// the join ambiguous and reject the batch.
	dispense := make(map[string]string, len(instrument))
	for _, row := range instrument {
		key := row[cfg.Schema.Instrument.JoinKey]
		if _, dup := dispense[key]; dup {
			return nil, perrors.New(perrors.KindData, op,
				"duplicate sample identifier %q in instrument table", key)
		}
		dispense[key] = row[cfg.Schema.Instrument.DispenseColumn]
	}

	labSeen := make(map[string]bool, len(lab))
	var matched []map[string]string
	for _, row := range lab {
		key := row[cfg.Schema.Lab.JoinKey]
		if labSeen[key] {
			return nil, perrors.New(perrors.KindData, op,
				"duplicate sample identifier %q in lab table", key)
		}
		labSeen[key] = true
		if _, ok := dispense[key]; ok {
			matched = append(matched, row)
		}
	}

	// The intersection must cover the whole plate; anything less means
	// samples are missing from the lab table.
	if len(matched) != len(instrument) {
		return nil, perrors.New(perrors.KindData, op,
			"plate has %d samples but only %d were found in the lab table",
			len(instrument), len(matched))
	}

	tbl := table.New()
	for _, row := range matched {
		key := row[cfg.Schema.Lab.JoinKey]
		barcode, err := Barcode(dispense[key], cfg.Pipeline.BarcodeSuffix)
		if err != nil {
			return nil, perrors.Wrap(perrors.KindData, op, err,
				"failed to assign a barcode to sample %q", key)
		}
		regionName := row[cfg.Schema.Lab.RegionColumn]
		regionCode, err := cfg.Regions.Short(regionName)
		if err != nil {
			return nil, err
		}
		rec := &table.Record{
			Barcode:          barcode,
			LabBarcode:       key,
			LabSampleName:    row[cfg.Schema.Lab.SampleNameColumn],
			LabRegistryGuess: row[cfg.Schema.Lab.RegistryGuessColumn],
			RegionName:       regionName,
			RegionCode:       regionCode,
		}
		if err := tbl.Append(rec); err != nil {
			return nil, perrors.Wrap(perrors.KindData, op, err, "failed to add sample %q", key)
		}
	}
	return tbl, nil
}

// Barcode composes the canonical barcode from a dispense position: the
// position zero-padded to two digits plus the reference genome suffix.
func Barcode(position, suffix string) (string, error) {
	if !dispensePattern.MatchString(position) {
		return "", fmt.Errorf("dispense position %q is not a one- or two-digit number", position)
	}
	if len(position) == 1 {
		position = "0" + position
	}
	return fmt.Sprintf("barcode%s_%s", position, suffix), nil
}

// readRows parses a headerless TSV into one map per row, keyed by the
// configured column names.
func readRows(path string, columns []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(columns)
	cr.LazyQuotes = true

	var rows []map[string]string
	for {
		vals, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s contains no rows", path)
	}
	return rows, nil
}
