package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"carmon/internal/config"
	"carmon/internal/portal"
	"carmon/internal/table"
)

var (
	// Global flags
	cfgPath string
	envFile string
	verbose bool
	timeout time.Duration

	// Loaded in PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
	creds  config.Credentials
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "carmon",
	Short: "carmon - sequencing batch tracker and portal sync",
	Long: `carmon turns one sequencing batch (instrument roster, lab submission
table, FASTA, lineage and clade reports) into a reconciled sample table and
syncs it to the surveillance portal: sample statuses, conclusions and the
sequences themselves.

Run 'carmon run' for the whole batch, or drive it stage by stage with the
assemble/reconcile/conclude/status/conclusions/upload subcommands, which
read and rewrite a table snapshot file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg = config.Default()
			err = cfg.Validate()
		}
		if err != nil {
			return err
		}

		creds, err = config.LoadCredentials(envFile)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (built-in defaults when omitted)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file with portal credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Batch operation timeout")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(concludeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(conclusionsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// batchContext returns the operation context with the timeout applied and
// SIGINT/SIGTERM wired to cancellation.
func batchContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newPortalClient() *portal.Client {
	return portal.New(cfg, logger)
}

// withSnapshot loads the snapshot, runs fn over the table, and writes the
// table back. The write happens even when fn fails: a remote stage that
// aborts mid-batch has already pushed earlier pages, and losing their
// markers would desync the snapshot from the portal.
func withSnapshot(path string, fn func(tbl *table.Table) error) error {
	tbl, err := table.ReadSnapshot(path)
	if err != nil {
		return err
	}
	fnErr := fn(tbl)
	if err := tbl.WriteSnapshot(path); err != nil {
		if fnErr != nil {
			logger.Error("snapshot write failed after stage error", zap.Error(err))
			return fnErr
		}
		return err
	}
	return fnErr
}
