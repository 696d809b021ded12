package config

import "fmt"

// SchemaConfig names the columns of the headerless input files. The files
// carry no header row; the order here is the order on disk.
type SchemaConfig struct {
	Instrument InstrumentSchema `yaml:"instrument"`
	Lab        LabSchema        `yaml:"lab"`
	Lineage    LineageSchema    `yaml:"lineage"`
}

// InstrumentSchema describes the instrument roster export.
type InstrumentSchema struct {
	// Columns is the on-disk column order.
	Columns []string `yaml:"columns"`

	// JoinKey is the column holding the sample identifier shared with the
	// lab table.
	JoinKey string `yaml:"join_key"`

	// DispenseColumn holds the dispense position the barcode derives from.
	DispenseColumn string `yaml:"dispense_column"`
}

// LabSchema describes the internal lab submission table.
type LabSchema struct {
	Columns []string `yaml:"columns"`

	// JoinKey is the column matched against the instrument join key.
	JoinKey string `yaml:"join_key"`

	// SampleNameColumn holds the lab-submitted sample name.
	SampleNameColumn string `yaml:"sample_name_column"`

	// RegionColumn holds the full region name.
	RegionColumn string `yaml:"region_column"`

	// RegistryGuessColumn holds the free-text registry id hint.
	RegistryGuessColumn string `yaml:"registry_guess_column"`
}

// LineageSchema names the columns of the lineage caller output (headered).
type LineageSchema struct {
	TaxonColumn   string `yaml:"taxon_column"`
	LineageColumn string `yaml:"lineage_column"`
}

// DefaultSchema returns the built-in column schemas.
func DefaultSchema() SchemaConfig {
	return SchemaConfig{
		Instrument: InstrumentSchema{
			Columns:        []string{"sample_name", "dispense_to", "plate_well", "run_id"},
			JoinKey:        "sample_name",
			DispenseColumn: "dispense_to",
		},
		Lab: LabSchema{
			Columns: []string{
				"lab_barcode", "lab_sample_name", "lab_region",
				"registry_guess", "collection_date",
			},
			JoinKey:             "lab_barcode",
			SampleNameColumn:    "lab_sample_name",
			RegionColumn:        "lab_region",
			RegistryGuessColumn: "registry_guess",
		},
		Lineage: LineageSchema{
			TaxonColumn:   "taxon",
			LineageColumn: "lineage",
		},
	}
}

// Validate checks that every named column exists in its column list.
func (s SchemaConfig) Validate() error {
	if err := checkColumns("schema.instrument", s.Instrument.Columns,
		s.Instrument.JoinKey, s.Instrument.DispenseColumn); err != nil {
		return err
	}
	if err := checkColumns("schema.lab", s.Lab.Columns,
		s.Lab.JoinKey, s.Lab.SampleNameColumn, s.Lab.RegionColumn, s.Lab.RegistryGuessColumn); err != nil {
		return err
	}
	if s.Lineage.TaxonColumn == "" || s.Lineage.LineageColumn == "" {
		return fmt.Errorf("schema.lineage columns must not be empty")
	}
	return nil
}

func checkColumns(section string, columns []string, named ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%s.columns must not be empty", section)
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col == "" {
			return fmt.Errorf("%s.columns contains an empty name", section)
		}
		if seen[col] {
			return fmt.Errorf("%s.columns contains duplicate %q", section, col)
		}
		seen[col] = true
	}
	for _, col := range named {
		if col == "" {
			return fmt.Errorf("%s has an unset named column", section)
		}
		if !seen[col] {
			return fmt.Errorf("%s references column %q which is not in columns", section, col)
		}
	}
	return nil
}
