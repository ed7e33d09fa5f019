package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jobsweep/am"
	"github.com/teranos/jobsweep/internal/httpclient"
	"github.com/teranos/jobsweep/logger"
	"github.com/teranos/jobsweep/sweep"
)

// NewRetryCmd builds the retry-jobs root command
func NewRetryCmd() *cobra.Command {
	flags := &globalFlags{}
	root := newRootCmd("retry-jobs",
		"Ask the orchestrator to re-dispatch every Failed job",
		`retry-jobs reads the UUID of every job whose status is Failed, then calls
GET {base_url}/jobs/{uuid}/retry for each, one at a time, pausing
retry_delay seconds between calls. Records whose id cannot be decoded are
skipped. A failed call is counted and the run carries on.

Examples:
  retry-jobs --connection-string mongodb://localhost:27017
  retry-jobs --base-url http://orchestrator:3000 --delay 0.5
  retry-jobs --schedule "@every 30m"      # keep running, sweep every 30 minutes`,
		flags)

	root.Flags().String("database", "", "Database name (overrides retry.database_name)")
	root.Flags().String("collection", "", "Collection name (overrides retry.collection_name)")
	root.Flags().String("base-url", "", "Retry endpoint root (overrides retry.base_url)")
	root.Flags().Float64("delay", 0, "Seconds between calls (overrides retry.retry_delay)")
	root.Flags().Int("batch-size", 0, "Cursor batch size (overrides retry.batch_size)")
	root.Flags().Int("timeout", 0, "Per-request timeout in seconds (overrides retry.timeout_seconds)")
	root.Flags().String("schedule", "", `Cron spec to repeat the sweep, e.g. "*/30 * * * *" or "@every 30m"`)
	root.Flags().String("pushgateway", "", "Prometheus Pushgateway URL (overrides metrics.pushgateway_url)")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runRetry(cmd, flags)
	}
	return root
}

func runRetry(cmd *cobra.Command, flags *globalFlags) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, _, err := loadConfig(cmd, flags,
		flagBinding{flag: "database", key: "retry.database_name"},
		flagBinding{flag: "collection", key: "retry.collection_name"},
		flagBinding{flag: "base-url", key: "retry.base_url"},
		flagBinding{flag: "delay", key: "retry.retry_delay"},
		flagBinding{flag: "batch-size", key: "retry.batch_size"},
		flagBinding{flag: "timeout", key: "retry.timeout_seconds"},
		flagBinding{flag: "schedule", key: "retry.schedule"},
		flagBinding{flag: "pushgateway", key: "metrics.pushgateway_url"},
	)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRetry(); err != nil {
		return err
	}
	if err := applyLogConfig(cfg, flags); err != nil {
		return err
	}
	defer logger.Cleanup()

	client, err := httpclient.New(cfg.Retry.BaseURL, httpclient.Options{
		Timeout:        cfg.Retry.Timeout(),
		BlockPrivateIP: cfg.Retry.BlockPrivateIP,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Retry.Schedule == "" {
		_, err := retryOnce(ctx, cfg, client, out)
		return err
	}

	logger.Infow("Scheduled sweeps enabled", "schedule", cfg.Retry.Schedule)
	return sweep.RunScheduled(ctx, cfg.Retry.Schedule, func(ctx context.Context) error {
		_, err := retryOnce(ctx, cfg, client, out)
		return err
	}, nil)
}

// retryOnce is one full sweep: connect, collect, retry, summarize, close
func retryOnce(ctx context.Context, cfg am.Config, client sweep.Caller, out io.Writer) (sweep.RetrySummary, error) {
	log := logger.ComponentLogger("retry-jobs")
	log.Infow("Connecting to document store",
		logger.FieldDatabase, cfg.Retry.DatabaseName,
		logger.FieldCollection, cfg.Retry.CollectionName,
	)
	store, err := openStore(ctx, cfg.Store.ConnectionString, cfg.Retry.DatabaseName, cfg.Retry.CollectionName)
	if err != nil {
		return sweep.RetrySummary{}, err
	}
	defer closeStore(store)

	metrics := sweep.NewMetrics()
	summary, err := sweep.NewRetrier(store, client, sweep.RetrierOptions{
		BatchSize: cfg.Retry.BatchSize,
		Delay:     cfg.Retry.Delay(),
		Metrics:   metrics,
	}).Run(ctx)
	pushMetrics(metrics, cfg.Metrics, sweep.UtilityRetry)

	if !logger.JSONOutput {
		printRetrySummary(out, summary)
	}
	return summary, err
}

func printRetrySummary(w io.Writer, s sweep.RetrySummary) {
	fmt.Fprintf(w, "\n%s\n", pterm.Bold.Sprint("Retry Summary"))
	fmt.Fprintf(w, "  Total jobs processed: %s\n", pterm.LightCyan(s.Total))
	fmt.Fprintf(w, "  Successful retries:   %s\n", pterm.Green(s.Successful))
	fmt.Fprintf(w, "  Failed retries:       %s\n", pterm.Red(s.Failed))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped records:      %s\n", pterm.Yellow(s.Skipped))
	}
	fmt.Fprintf(w, "  Took:                 %s\n", pterm.Gray(s.Duration.Round(time.Millisecond)))
}
