package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/jobsweep/am"
	"github.com/teranos/jobsweep/errors"
)

// newAmCmd builds "am": inspect and bootstrap configuration ("I am")
func newAmCmd(binary string, flags *globalFlags) *cobra.Command {
	amCmd := &cobra.Command{
		Use:   "am",
		Short: "Inspect and bootstrap jobsweep configuration",
		Long: `Display and manage jobsweep configuration.

Configuration sources (later overrides earlier):
  1. Built-in defaults
  2. /etc/jobsweep/` + am.ConfigFileName + `
  3. ~/.jobsweep/` + am.ConfigFileName + `
  4. ./` + am.ConfigFileName + ` (searched up from the working directory)
  5. ` + am.EnvPrefix + `_* environment variables (MONGO_URI for the connection string)
  6. Command line flags

Examples:
  ` + binary + ` am show                  # Show effective configuration
  ` + binary + ` am show --format json    # ... as JSON
  ` + binary + ` am init                  # Write a starter ./` + am.ConfigFileName + `
  ` + binary + ` am where                 # List config files checked`,
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration (credentials masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return renderConfig(cmd, cfg.Redacted(), format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			pterm.Fprintln(cmd.OutOrStdout(), pterm.Green("✓ Configuration is valid"))
			return nil
		},
	}

	var (
		initPath  string
		initForce bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + am.ConfigFileName + " with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := am.WriteStarterConfig(initPath, cfg, initForce); err != nil {
				return err
			}
			pterm.Fprintln(cmd.OutOrStdout(), pterm.Green("✓ Wrote ")+initPath)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initPath, "path", am.ConfigFileName, "Where to write the file")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (keeps rotating backups)")

	whereCmd := &cobra.Command{
		Use:   "where",
		Short: "Show which config files are checked and which exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if flags.configFile != "" {
				fmt.Fprintf(out, "Explicit config file (cascade skipped): %s\n", flags.configFile)
				return nil
			}
			fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
			for i, path := range am.ConfigPaths() {
				state := pterm.Gray("missing")
				if _, err := os.Stat(path); err == nil {
					state = pterm.Green("found")
				}
				fmt.Fprintf(out, "  %d. %s  %s\n", i+1, path, state)
			}
			fmt.Fprintf(out, "  env: %s_* (e.g. %s_RETRY_BASE_URL), MONGO_URI\n", am.EnvPrefix, am.EnvPrefix)
			return nil
		},
	}

	amCmd.AddCommand(showCmd, validateCmd, initCmd, whereCmd)
	return amCmd
}

func renderConfig(cmd *cobra.Command, cfg am.Config, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# jobsweep configuration\n%s", data)

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# jobsweep configuration\n%s", data)

	default:
		return errors.WithHint(
			errors.NewInvalidConfigError("unsupported format: %s", format),
			"supported: toml, json, yaml")
	}
	return nil
}
