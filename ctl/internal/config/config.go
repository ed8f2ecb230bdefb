package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spectrumscale/scale-go/common/logger"
	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// This package handles the global command line tool config - the global flags, environment
// variable bindings and config file handling.

// Defines all the global flags and binds them to the backends config singleton
func InitGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(config.ConfigFileKey, "", "Read settings from this file (TOML, YAML or JSON). Flags and environment variables take precedence.")

	cmd.PersistentFlags().Bool(config.DebugKey, false, "Print additional details that are normally hidden.")

	cmd.PersistentFlags().Bool(config.RawKey, false, "Print raw values without SI or IEC prefixes (except durations).")

	cmd.PersistentFlags().String(config.BinDirKey, mmcmd.DefaultBinDir, "The directory containing the GPFS administration commands.")

	cmd.PersistentFlags().String(config.AdminHostKey, "", `Run administration commands on this cluster node using ssh.
	By default commands are run locally which requires this node to be a cluster member with admin access.`)

	cmd.PersistentFlags().Duration(config.CmdTimeoutKey, 300*time.Second, "Maximum time each administration command may run before it is terminated.")

	cmd.PersistentFlags().Int(config.CmdRetriesKey, 1, "How many times an administration command that timed out is attempted again.")

	cmd.PersistentFlags().Duration(config.PollIntervalKey, 5*time.Second, "Time between checks while waiting for nodes to become active or down.")

	cmd.PersistentFlags().Int(config.PollRetriesKey, 36, "Maximum number of checks while waiting for nodes to become active or down.")

	cmd.PersistentFlags().Duration(config.NsdSettleIntervalKey, 5*time.Second, "Time between checks while waiting for NSD server changes to show up.")

	cmd.PersistentFlags().Int(config.NsdSettleRetriesKey, 12, "Maximum number of checks while waiting for NSD server changes to show up.")

	cmd.PersistentFlags().String(config.StateDirKey, "/var/lib/scalectl", "Directory where the journal of batch operations is kept.")

	cmd.PersistentFlags().Bool(config.JournalDisableKey, false, "Do not record batch operations in the journal.")

	cmd.PersistentFlags().String(config.MetricsTextfileKey, "", `Write metrics about executed administration commands to this file on exit.
	The file uses the Prometheus text format and can be collected by the node exporter textfile collector.`)

	cmd.PersistentFlags().String(config.LogTypeKey, string(logger.StdErr), fmt.Sprintf("Where log messages are written (%s, %s, %s).", logger.StdErr, logger.StdOut, logger.LogFile))
	cmd.PersistentFlags().String(config.LogFileKey, "/var/log/scalectl/scalectl.log", fmt.Sprintf("The file log messages are written to when --%s=%s.", config.LogTypeKey, logger.LogFile))

	cmd.PersistentFlags().Int8(config.LogLevelKey, 0, fmt.Sprintf(`By default all logging is disabled except for fatal errors.
	Optionally additional logging can be enabled to assist with debugging (0=Fatal, 1=Error, 2=Warn, 3=Info, 4+5=Debug).
	When enabling logging you may wish to set --%s=0 to ensure output and log messages are synchronized.`, config.PageSizeKey))

	cmd.PersistentFlags().Bool(config.LogDeveloperKey, false, "Enable logging at DebugLevel and above and print stack traces at WarnLevel and above.")
	cmd.PersistentFlags().MarkHidden(config.LogDeveloperKey)

	cmd.PersistentFlags().StringSlice(config.ColumnsKey, []string{}, `When printing structured data, the columns/fields to include (use 'all' to include everything).
	Refer to the help for each command to see the available columns.`)
	cmd.PersistentFlags().Uint(config.PageSizeKey, 100, `The number of rows/elements to print before output is flushed to stdout.
	When printing using a table, the header will be repeated after printing this many rows (no headers are printed when set to 0).
	If set to 0, rows are written immediately and table columns may not be aligned.`)
	cmd.PersistentFlags().String(config.OutputKey, config.OutputTable.String(), fmt.Sprintf(`How structured output is printed (%s, %s, %s, %s).
	If the number of elements to print is greater than %s multiple JSON lists separated by newlines will be printed (increase %s if needed).`,
		config.OutputTable, config.OutputJSON, config.OutputJSONPretty, config.OutputNDJSON, config.PageSizeKey, config.PageSizeKey))

	// Environment variables should start with SCALECTL_
	viper.SetEnvPrefix("scalectl")
	// Environment variables cannot use "-", replace with "_"
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Bind all persistent pflags to viper
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		viper.BindEnv(flag.Name)
		viper.BindPFlag(flag.Name, flag)
	})
}

// ReadConfigFile loads the config file if one was specified. Values from the file are used for
// settings not set with a flag or environment variable.
func ReadConfigFile() error {
	path := viper.GetString(config.ConfigFileKey)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return nil
}

func Cleanup() {
	config.Cleanup()
}
