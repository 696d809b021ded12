package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"carmon/internal/fasta"
	"carmon/internal/stages"
	"carmon/internal/table"
)

var (
	uploadTable string
	uploadFasta string
	uploadOut   string
)

// uploadCmd pushes the sequences of ready samples to the portal
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the sequences of ready samples to the portal",
	Long: `Uploads the sequence of every sample in the ready status, one
request per sample with the login/password pair. A failed upload is recorded
on its row and never stops the batch. Every attempted sequence is archived
as an individual FASTA file next to the upload report.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadTable, "table", "table.tsv", "Snapshot file to update")
	uploadCmd.Flags().StringVar(&uploadFasta, "fasta", "", "Batch FASTA file (required)")
	uploadCmd.Flags().StringVar(&uploadOut, "out", "", "Output directory (default: the configured output dir)")
	_ = uploadCmd.MarkFlagRequired("fasta")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	parsed, err := fasta.ParseFile(uploadFasta)
	if err != nil {
		return err
	}
	seqs := make(map[string]string, len(parsed))
	for _, s := range parsed {
		bc := s.ID
		if !strings.HasSuffix(bc, "_"+cfg.Pipeline.BarcodeSuffix) {
			bc += "_" + cfg.Pipeline.BarcodeSuffix
		}
		seqs[bc] = s.Seq
	}

	outDir := uploadOut
	if outDir == "" {
		outDir = cfg.Pipeline.OutputDir
	}

	return withSnapshot(uploadTable, func(tbl *table.Table) error {
		report, err := stages.UploadSequences(ctx, client, creds, tbl, seqs, cfg,
			filepath.Join(outDir, "sequences"), logger)
		if err != nil {
			return err
		}
		if err := report.WriteFile(filepath.Join(outDir, "upload-report.tsv")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d of %d sequences\n", report.Succeeded, report.Attempted)
		return nil
	})
}
