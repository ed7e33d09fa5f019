package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jobsweep/logger"
	"github.com/teranos/jobsweep/sweep"
)

// NewResetCmd builds the reset-jobs root command
func NewResetCmd() *cobra.Command {
	flags := &globalFlags{}
	root := newRootCmd("reset-jobs",
		"Move Failed jobs back to Created in the document store",
		`reset-jobs rewrites every job whose status is Failed so the orchestrator
picks it up again: status Created, version 0, updated_at set to created_at,
and metadata cut down to block_number_to_run. Other metadata is discarded.

Examples:
  reset-jobs --connection-string mongodb://localhost:27017
  reset-jobs --dry-run -v
  MONGO_URI=mongodb://... reset-jobs --database orchestrator --collection jobs`,
		flags)

	var dryRun bool
	root.Flags().String("database", "", "Database name (overrides reset.database_name)")
	root.Flags().String("collection", "", "Collection name (overrides reset.collection_name)")
	root.Flags().String("pushgateway", "", "Prometheus Pushgateway URL (overrides metrics.pushgateway_url)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "Log the updates without writing them")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runReset(cmd, flags, dryRun)
	}
	return root
}

func runReset(cmd *cobra.Command, flags *globalFlags, dryRun bool) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, _, err := loadConfig(cmd, flags,
		flagBinding{flag: "database", key: "reset.database_name"},
		flagBinding{flag: "collection", key: "reset.collection_name"},
		flagBinding{flag: "pushgateway", key: "metrics.pushgateway_url"},
	)
	if err != nil {
		return err
	}
	if err := cfg.ValidateReset(); err != nil {
		return err
	}
	if err := applyLogConfig(cfg, flags); err != nil {
		return err
	}
	defer logger.Cleanup()

	log := logger.ComponentLogger("reset-jobs")
	log.Infow("Connecting to document store",
		logger.FieldDatabase, cfg.Reset.DatabaseName,
		logger.FieldCollection, cfg.Reset.CollectionName,
	)
	store, err := openStore(ctx, cfg.Store.ConnectionString, cfg.Reset.DatabaseName, cfg.Reset.CollectionName)
	if err != nil {
		return err
	}
	defer closeStore(store)

	metrics := sweep.NewMetrics()
	result, err := sweep.NewResetter(store, sweep.ResetterOptions{DryRun: dryRun, Metrics: metrics}).Reset(ctx)
	pushMetrics(metrics, cfg.Metrics, sweep.UtilityReset)
	if err != nil {
		return err
	}

	if !logger.JSONOutput {
		printResetSummary(cmd.OutOrStdout(), result)
	}
	return nil
}

func printResetSummary(w io.Writer, r sweep.ResetResult) {
	title := "Reset Summary"
	if r.DryRun {
		title += " (dry run, nothing written)"
	}
	fmt.Fprintf(w, "\n%s\n", pterm.Bold.Sprint(title))
	fmt.Fprintf(w, "  Failed jobs scanned: %s\n", pterm.LightCyan(r.Scanned))
	fmt.Fprintf(w, "  Jobs updated:        %s\n", pterm.Green(r.Updated))
	fmt.Fprintf(w, "  Took:                %s\n", pterm.Gray(r.Duration.Round(time.Millisecond)))
}
