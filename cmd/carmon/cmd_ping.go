package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pingCmd verifies portal connectivity and the configured token
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check portal connectivity and credentials",
	Long: `Calls the portal's identity endpoint with the configured token and
prints who the portal thinks you are. Fails when the token is missing,
expired or the portal is unreachable.`,
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := batchContext()
	defer cancel()

	client := newPortalClient()
	defer client.Close()

	who, err := client.Ping(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "portal ok: %s (%s, id %s)\n", who.FullName, who.Login, who.ID)
	return nil
}
