// Package config holds all carmon settings: portal endpoints, input column
// schemas, status and conclusion vocabularies, and the region rename table.
// Settings are loaded once from a YAML file and treated as immutable for the
// rest of the run; credentials are never part of the file and travel as an
// explicit value instead (see credentials.go).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all carmon configuration.
type Config struct {
	// Portal endpoints and transport settings
	Portal PortalConfig `yaml:"portal"`

	// Input column schemas
	Schema SchemaConfig `yaml:"schema"`

	// Status and conclusion vocabularies
	Vocab VocabConfig `yaml:"vocab"`

	// Region full name -> short code table
	Regions RegionTable `yaml:"regions"`

	// Pipeline knobs
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Metadata attached to every sequence upload
	Upload UploadConfig `yaml:"upload"`
}

// PipelineConfig configures batch-wide behavior.
type PipelineConfig struct {
	// ChunkSize is the page size for bulk portal requests.
	ChunkSize int `yaml:"chunk_size"`

	// ATGCThreshold is the minimal unambiguous base count for a sequence
	// to be considered valid.
	ATGCThreshold int `yaml:"atgc_threshold"`

	// BarcodeSuffix is the reference genome suffix composed into barcodes.
	BarcodeSuffix string `yaml:"barcode_suffix"`

	// OutputDir is where per-run snapshots, archives and reports go.
	OutputDir string `yaml:"output_dir"`
}

// UploadConfig carries the fixed sample_data fields of a sequence upload.
type UploadConfig struct {
	SampleType      string `yaml:"sample_type"`
	SeqArea         string `yaml:"seq_area"`
	Author          string `yaml:"author"`
	GenomPickMethod string `yaml:"genom_pick_method"`
	MethodReadyLib  string `yaml:"method_ready_lib"`
	Tech            string `yaml:"tech"`
	SequencePrefix  string `yaml:"sequence_prefix"`
	LineWidth       int    `yaml:"line_width"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration. Load starts from these values
// so a settings file only needs to override what actually differs.
func Default() *Config {
	return &Config{
		Portal:   DefaultPortal(),
		Schema:   DefaultSchema(),
		Vocab:    DefaultVocab(),
		Regions:  DefaultRegions(),
		Pipeline: DefaultPipeline(),
		Upload:   DefaultUpload(),
	}
}

// DefaultPipeline returns the built-in pipeline knobs.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		ChunkSize:     40,
		ATGCThreshold: 24000,
		BarcodeSuffix: "MN908947.3",
		OutputDir:     "carmon-out",
	}
}

// DefaultUpload returns the built-in sequence upload metadata.
func DefaultUpload() UploadConfig {
	return UploadConfig{
		SampleType:      "1",
		SeqArea:         "1",
		GenomPickMethod: "nf_artic",
		MethodReadyLib:  "MIDNIGHT",
		Tech:            "3",
		SequencePrefix:  "DEZIN-",
		LineWidth:       60,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Portal.Validate(); err != nil {
		return err
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if err := c.Vocab.Validate(); err != nil {
		return err
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk_size must be positive, got %d", c.Pipeline.ChunkSize)
	}
	if c.Pipeline.ATGCThreshold <= 0 {
		return fmt.Errorf("pipeline.atgc_threshold must be positive, got %d", c.Pipeline.ATGCThreshold)
	}
	if c.Pipeline.BarcodeSuffix == "" {
		return fmt.Errorf("pipeline.barcode_suffix must not be empty")
	}
	if c.Upload.LineWidth <= 0 {
		return fmt.Errorf("upload.line_width must be positive, got %d", c.Upload.LineWidth)
	}
	return nil
}

// HTTPTimeout parses the portal timeout, falling back to 30s.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Portal.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Portal.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
