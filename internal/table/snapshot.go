package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Columns is the snapshot column order. Snapshots always carry a header row
// so standalone stage commands can reload them without a schema.
var Columns = []string{
	"barcode",
	"lab_barcode",
	"lab_sample_name",
	"lab_registry_guess",
	"region_name",
	"region_code",
	"registry_id",
	"department_name",
	"portal_sample_number",
	"matched_value",
	"match_status",
	"lineage",
	"clade",
	"local_conclusion",
	"sequence_valid",
	"local_status",
	"remote_sample_id",
	"remote_upload_status",
	"remote_status",
	"remote_conclusion_status",
}

func (r *Record) values() []string {
	return []string{
		r.Barcode,
		r.LabBarcode,
		r.LabSampleName,
		r.LabRegistryGuess,
		r.RegionName,
		r.RegionCode,
		r.RegistryID,
		r.DepartmentName,
		r.PortalSampleNumber,
		r.MatchedValue,
		string(r.MatchStatus),
		r.Lineage,
		r.Clade,
		r.LocalConclusion,
		r.SequenceValid.String(),
		r.LocalStatus,
		r.RemoteSampleID,
		r.RemoteUploadStatus,
		r.RemoteStatus,
		r.RemoteConclusionStatus,
	}
}

func recordFromValues(vals []string) *Record {
	return &Record{
		Barcode:                vals[0],
		LabBarcode:             vals[1],
		LabSampleName:          vals[2],
		LabRegistryGuess:       vals[3],
		RegionName:             vals[4],
		RegionCode:             vals[5],
		RegistryID:             vals[6],
		DepartmentName:         vals[7],
		PortalSampleNumber:     vals[8],
		MatchedValue:           vals[9],
		MatchStatus:            MatchStatus(vals[10]),
		Lineage:                vals[11],
		Clade:                  vals[12],
		LocalConclusion:        vals[13],
		SequenceValid:          ParseTriState(vals[14]),
		LocalStatus:            vals[15],
		RemoteSampleID:         vals[16],
		RemoteUploadStatus:     vals[17],
		RemoteStatus:           vals[18],
		RemoteConclusionStatus: vals[19],
	}
}

// WriteTo writes the table as headered TSV.
func (t *Table) WriteTo(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for _, r := range t.rows {
		if err := cw.Write(r.values()); err != nil {
			return fmt.Errorf("failed to write snapshot row %s: %w", r.Barcode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSnapshot saves the table to path as headered TSV.
func (t *Table) WriteSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err := t.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}

// Read loads a table from headered TSV written by WriteTo.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, fmt.Errorf("snapshot header mismatch at column %d: got %q, want %q", i, header[i], col)
		}
	}

	t := New()
	for {
		vals, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}
		if err := t.Append(recordFromValues(vals)); err != nil {
			return nil, fmt.Errorf("invalid snapshot row: %w", err)
		}
	}
	return t, nil
}

// ReadSnapshot loads a table from a snapshot file.
func ReadSnapshot(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
