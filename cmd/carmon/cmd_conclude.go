package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carmon/internal/analysis"
	"carmon/internal/conclusion"
	"carmon/internal/fasta"
	"carmon/internal/stages"
	"carmon/internal/table"
)

var (
	concludeTable   string
	concludeFasta   string
	concludeLineage string
	concludeClades  string
	lineageSep      string
)

// concludeCmd derives validity, local status and conclusions
var concludeCmd = &cobra.Command{
	Use:   "conclude",
	Short: "Derive sequence validity, local statuses and conclusions",
	Long: `Checks every sequence in the batch FASTA against the validity
threshold, derives the local sample status, merges the lineage and clade
reports and assigns a conclusion per sample. Every sample on the plate must
appear in the FASTA, and every valid sequence must have lineage and clade
calls.`,
	RunE: runConclude,
}

func init() {
	concludeCmd.Flags().StringVar(&concludeTable, "table", "table.tsv", "Snapshot file to update")
	concludeCmd.Flags().StringVar(&concludeFasta, "fasta", "", "Batch FASTA file (required)")
	concludeCmd.Flags().StringVar(&concludeLineage, "lineage", "", "Lineage caller report (required)")
	concludeCmd.Flags().StringVar(&concludeClades, "clades", "", "Clade caller JSON report (required)")
	concludeCmd.Flags().StringVar(&lineageSep, "lineage-sep", ",", "Column separator of the lineage report")
	_ = concludeCmd.MarkFlagRequired("fasta")
	_ = concludeCmd.MarkFlagRequired("lineage")
	_ = concludeCmd.MarkFlagRequired("clades")
}

func runConclude(cmd *cobra.Command, args []string) error {
	sep := ','
	if lineageSep != "" {
		sep = []rune(lineageSep)[0]
	}

	seqs, err := fasta.ParseFile(concludeFasta)
	if err != nil {
		return err
	}

	return withSnapshot(concludeTable, func(tbl *table.Table) error {
		if _, err := stages.DeriveLocalStatus(tbl, seqs, cfg); err != nil {
			return err
		}
		if err := analysis.Merge(tbl, concludeLineage, concludeClades, cfg.Schema.Lineage, sep); err != nil {
			return err
		}
		conclusion.Derive(tbl, cfg.Vocab)

		concluded := len(tbl.Filter(func(r *table.Record) bool { return conclusion.Concluded(r, cfg.Vocab) }))
		fmt.Fprintf(cmd.OutOrStdout(), "concluded %d of %d samples\n", concluded, tbl.Len())
		return nil
	})
}
