// Package commands holds the cobra command trees of the reset-jobs and
// retry-jobs binaries.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teranos/jobsweep/am"
	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/logger"
	"github.com/teranos/jobsweep/sweep"
)

// closeTimeout bounds store disconnect and metrics push after a run
const closeTimeout = 10 * time.Second

// globalFlags are shared by both binaries
type globalFlags struct {
	configFile string
	jsonOutput bool
	verbosity  int
}

// flagBinding maps a command-line flag to its config key
type flagBinding struct {
	flag string
	key  string
}

// newRootCmd builds a binary's root command with the persistent flags, the
// logger bootstrap and the am/version subcommands wired in.
func newRootCmd(use, short, long string, flags *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Config is not loaded yet; log.json and log.theme from files
			// take effect once the run loads it.
			if err := logger.Initialize(flags.jsonOutput, flags.verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			logger.Debugw("Logger ready", "verbosity", logger.LevelName(flags.verbosity))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file (default: cascade of /etc/jobsweep, ~/.jobsweep, ./"+am.ConfigFileName+")")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Emit JSON log lines")
	root.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "Increase output verbosity (-v debug, -vv raw documents)")
	root.PersistentFlags().String("connection-string", "", "Document store connection string (overrides store.connection_string)")

	root.AddCommand(newAmCmd(use, flags))
	root.AddCommand(newVersionCmd(use, flags))
	return root
}

// loadConfig builds the immutable Config for a run: defaults < files < env <
// flags. The bindings map command flags onto config keys.
func loadConfig(cmd *cobra.Command, flags *globalFlags, bindings ...flagBinding) (am.Config, *viper.Viper, error) {
	v, err := am.NewViper(flags.configFile)
	if err != nil {
		return am.Config{}, nil, err
	}

	all := append([]flagBinding{
		{flag: "connection-string", key: "store.connection_string"},
		{flag: "json", key: "log.json"},
	}, bindings...)
	for _, b := range all {
		if err := bindFlag(v, cmd.Flags(), b); err != nil {
			return am.Config{}, nil, err
		}
	}

	cfg, err := am.Load(v)
	if err != nil {
		return am.Config{}, nil, err
	}
	return cfg, v, nil
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, b flagBinding) error {
	f := fs.Lookup(b.flag)
	if f == nil {
		return errors.Newf("flag --%s is not defined", b.flag)
	}
	if err := v.BindPFlag(b.key, f); err != nil {
		return errors.Wrapf(err, "failed to bind --%s", b.flag)
	}
	return nil
}

// applyLogConfig rebuilds the logger once the config is known
func applyLogConfig(cfg am.Config, flags *globalFlags) error {
	return logger.InitializeWithOptions(logger.Options{
		JSON:      cfg.Log.JSON || flags.jsonOutput,
		Verbosity: flags.verbosity,
		Theme:     cfg.Log.Theme,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// pushMetrics pushes run metrics when a Pushgateway is configured. Failure
// is a warning only.
func pushMetrics(m *sweep.Metrics, cfg am.MetricsConfig, utility string) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	log := logger.ComponentLogger("metrics")
	if err := m.Push(ctx, cfg.PushgatewayURL, cfg.JobName, utility); err != nil {
		log.Warnw("Metrics push failed", logger.FieldURL, cfg.PushgatewayURL, logger.FieldError, err.Error())
		return
	}
	log.Debugw("Metrics pushed", logger.FieldURL, cfg.PushgatewayURL)
}

// Execute runs a root command and returns the process exit code: 0 when the
// run completed, 1 when it aborted.
func Execute(root *cobra.Command) int {
	err := root.Execute()
	if err == nil {
		return 0
	}

	logger.Errorw("Run aborted",
		logger.FieldError, err.Error(),
		logger.FieldErrorType, errorKind(err),
		logger.FieldStack, fmt.Sprintf("%+v", err),
	)
	printError(os.Stderr, err)
	logger.Cleanup()
	return 1
}

func errorKind(err error) string {
	switch {
	case errors.IsInvalidConfigError(err):
		return "invalid_config"
	case errors.IsStoreConnectionError(err):
		return "store"
	case errors.IsRecordShapeError(err):
		return "record_shape"
	case errors.IsRemoteCallError(err):
		return "remote_call"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	default:
		return "unknown"
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", pterm.Red("Error:"), err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "  %s %s\n", pterm.Yellow("hint:"), hint)
	}
}
