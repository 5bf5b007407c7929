package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memsim/config"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/internal/report"
	"github.com/joshuapare/memsim/system"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "Simulate memory allocation, caching and paging",
	Long: `memsim simulates an operating system's memory management stack:
first/best/worst fit and buddy allocators over a byte-addressed physical
memory, a two-level set-associative write-through cache, and paged virtual
memory with FIFO, LRU or Clock replacement.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Configuration file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Enable logging at debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a file instead of stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the file configuration, or the defaults without --config.
// Logging flags override the file.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
		printVerbose("Loaded configuration: %s\n", configPath)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	return cfg, nil
}

func setupLogging() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.Log.Options()
	if err != nil {
		return err
	}
	return logger.Init(opts)
}

// newSystem builds a System from the effective configuration.
func newSystem() (*system.System, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	sys, err := system.New(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create simulator: %w", err)
	}
	return sys, cfg, nil
}

// newReporter writes to w, or discards everything in quiet mode.
func newReporter(w io.Writer) *report.Reporter {
	if quiet {
		w = io.Discard
	}
	return report.New(w, reportOptions())
}

// newErrorReporter writes "Error: ..." lines to stderr.
func newErrorReporter() *report.Reporter {
	return report.New(os.Stderr, reportOptions())
}

func reportOptions() report.Options {
	opts := report.DefaultOptions()
	opts.Color = !noColor
	if jsonOut {
		opts.Format = report.FormatJSON
	}
	return opts
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
