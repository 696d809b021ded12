package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carmon/internal/stages"
	"carmon/internal/table"
)

var (
	statusTable string
	statusText  string
	defectID    string
)

// statusCmd pushes one local status to the portal
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Push one local status to the portal",
	Long: `Sets the given status on the portal for every sample the pipeline
assigned it locally, in fixed-size pages. A failed page aborts the stage;
already pushed pages stay set. Without --status all three pipeline statuses
are pushed in turn.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusTable, "table", "table.tsv", "Snapshot file to update")
	statusCmd.Flags().StringVar(&statusText, "status", "", "Status text to push (default: all pipeline statuses)")
	statusCmd.Flags().StringVar(&defectID, "defect-id", "", "Defect identifier forwarded with the status change")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	texts := []string{statusText}
	if statusText == "" {
		texts = []string{cfg.Vocab.StatusReady, cfg.Vocab.StatusConfirm, cfg.Vocab.StatusDefect}
	}

	return withSnapshot(statusTable, func(tbl *table.Table) error {
		for _, text := range texts {
			if err := stages.PushStatus(ctx, client, creds, tbl, cfg, text, defectID, logger); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "statuses pushed: %s\n", strings.Join(texts, ", "))
		return nil
	})
}
