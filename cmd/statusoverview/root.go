package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/telemetry"
)

var (
	cfgFile  string
	logLevel string

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config

	// app holds all wired dependencies; populated by PersistentPreRunE.
	app *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "statusoverview",
	Short: "Status Overview: deployment dashboard backend",
	Long: `Status Overview serves the deployment dashboard API: which build of every
app runs in which environment, build history, CSV export and Jenkins bulk
deployments.

Without a subcommand it runs the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(telemetry.NewLogger(logLevel, os.Stdout))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// --log-level flag takes precedence over value in config file.
		if cmd.Flags().Changed("log-level") {
			cfg.Telemetry.LogLevel = logLevel
		}
		logFile, err := initLogger(cfg.Telemetry.LogLevel, cfg.Telemetry.LogFile)
		if err != nil {
			return err
		}

		app, err = buildAppContext(cfg)
		if err != nil {
			if logFile != nil {
				logFile.Close() //nolint:errcheck
			}
			return fmt.Errorf("building app context: %w", err)
		}
		app.logFile = logFile

		return nil
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(appsCmd)
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogger installs the default logger: JSON to stdout, and to logFile as
// well when one is configured. The opened file is returned for the caller to
// close; it is nil without a logFile.
func initLogger(level, logFile string) (*os.File, error) {
	if logFile == "" {
		slog.SetDefault(telemetry.NewLogger(level, os.Stdout))
		return nil, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logFile, err)
	}
	slog.SetDefault(telemetry.NewLogger(level, os.Stdout, f))
	return f, nil
}
