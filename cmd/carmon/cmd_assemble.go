package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carmon/internal/assemble"
)

var (
	instrumentPath string
	labPath        string
	assembleOut    string
)

// assembleCmd builds the working table from the two input spreadsheets
var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Build the working table from the instrument and lab sheets",
	Long: `Joins the instrument roster (defines the plate) with the lab
submission table, derives a barcode per dispense position and writes the
result as a table snapshot. The whole plate must be covered or the batch is
rejected.`,
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&instrumentPath, "instrument", "", "Instrument roster TSV (required)")
	assembleCmd.Flags().StringVar(&labPath, "lab", "", "Lab submission TSV (required)")
	assembleCmd.Flags().StringVar(&assembleOut, "table", "table.tsv", "Snapshot file to write")
	_ = assembleCmd.MarkFlagRequired("instrument")
	_ = assembleCmd.MarkFlagRequired("lab")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	tbl, err := assemble.Assemble(cfg, instrumentPath, labPath)
	if err != nil {
		return err
	}
	if err := tbl.WriteSnapshot(assembleOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "assembled %d samples into %s\n", tbl.Len(), assembleOut)
	return nil
}
