package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carmon/internal/stages"
	"carmon/internal/table"
)

var conclusionsTable string

// conclusionsCmd pushes the derived conclusions to the portal
var conclusionsCmd = &cobra.Command{
	Use:   "conclusions",
	Short: "Push the derived conclusions to the portal",
	Long: `Looks up the portal sample id for every sample with a known local
status, then sets the derived conclusion for every sample that has a real
one. Samples whose lineage/clade pair is unmapped carry the "not stated"
sentinel and are skipped.`,
	RunE: runConclusions,
}

func init() {
	conclusionsCmd.Flags().StringVar(&conclusionsTable, "table", "table.tsv", "Snapshot file to update")
}

func runConclusions(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	return withSnapshot(conclusionsTable, func(tbl *table.Table) error {
		if err := stages.LookupSampleIDs(ctx, client, creds, tbl, cfg, logger); err != nil {
			return err
		}
		if err := stages.PushConclusions(ctx, client, creds, tbl, cfg, logger); err != nil {
			return err
		}
		pushed := len(tbl.Filter(func(r *table.Record) bool {
			return r.RemoteConclusionStatus == stages.MarkerConclusionSet
		}))
		fmt.Fprintf(cmd.OutOrStdout(), "conclusions set for %d samples\n", pushed)
		return nil
	})
}
