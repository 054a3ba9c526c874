// Package cmd provides the CLI commands for Weft.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/errors"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the weft CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weft",
		Short: "Live composition of shared template fragments",
		Long: `Weft watches a directory tree for template source files and expands
a small directive language embedded in HTML comments: partial markers,
output-path overrides, and file includes. Rendered files are rewritten
on every save, and editing a shared fragment re-renders every file
that includes it.

Running 'weft' with no arguments starts watching the current directory.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation behaves like `weft watch`.
			return runWatch(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("weft version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.weft/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the file logger before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	level := loadConfig().LogLevel
	if debugMode {
		level = "debug"
	}

	cleanup, err := logging.SetupDefault(level)
	if err != nil {
		// Logging failure downgrades to the default stderr logger.
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

// teardownLogging flushes and closes the log file.
func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig reads the sidecar config from the working directory.
func loadConfig() *config.Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return config.Load(wd)
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		return err
	}
	return nil
}
