package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carmon/internal/registry"
	"carmon/internal/table"
)

var reconcileTable string

// reconcileCmd matches the working table against the portal registries
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match the working table against the portal registries",
	Long: `Fetches every registry table from the portal, searches each sample
name in it and records the match status plus the matched registry fields in
the snapshot. Rerunning recomputes every match from scratch.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileTable, "table", "table.tsv", "Snapshot file to update")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	entries, err := client.FetchRegistryTable(ctx, creds)
	if err != nil {
		return err
	}
	logger.Info("registry fetched", zap.Int("entries", len(entries)))

	return withSnapshot(reconcileTable, func(tbl *table.Table) error {
		registry.NewEngine(entries).Reconcile(tbl)
		resolved := len(tbl.Filter(func(r *table.Record) bool { return r.MatchStatus.Resolved() }))
		fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d samples, %d resolved\n", tbl.Len(), resolved)
		return nil
	})
}
