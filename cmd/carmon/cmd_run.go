package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carmon/internal/pipeline"
)

var runInputs pipeline.Inputs

// runCmd executes the whole batch end to end
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole batch end to end",
	Long: `Executes every stage in order: assemble, reconcile against the
registries, derive validity and local statuses, merge lineage and clade
calls, derive conclusions, then sync statuses, conclusions and sequences to
the portal. Each stage leaves a numbered snapshot in a fresh run directory,
so an aborted batch can be finished stage by stage from its last snapshot.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVar(&runInputs.InstrumentPath, "instrument", "", "Instrument roster TSV (required)")
	runCmd.Flags().StringVar(&runInputs.LabPath, "lab", "", "Lab submission TSV (required)")
	runCmd.Flags().StringVar(&runInputs.FastaPath, "fasta", "", "Batch FASTA file (required)")
	runCmd.Flags().StringVar(&runInputs.LineagePath, "lineage", "", "Lineage caller report (required)")
	runCmd.Flags().StringVar(&runInputs.CladePath, "clades", "", "Clade caller JSON report (required)")
	_ = runCmd.MarkFlagRequired("instrument")
	_ = runCmd.MarkFlagRequired("lab")
	_ = runCmd.MarkFlagRequired("fasta")
	_ = runCmd.MarkFlagRequired("lineage")
	_ = runCmd.MarkFlagRequired("clades")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	runner, err := pipeline.NewRunner(cfg, client, creds, logger)
	if err != nil {
		return err
	}

	tbl, err := runner.Run(ctx, runInputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "batch done: %d samples, artifacts in %s\n", tbl.Len(), runner.RunDir)
	return nil
}
