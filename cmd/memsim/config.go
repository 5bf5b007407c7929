package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memsim/config"
)

var configFormat string

func init() {
	cmd := newConfigCmd()
	cmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format: yaml or json")
	rootCmd.AddCommand(cmd)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `The config command prints the configuration the simulator would run
with: the built-in defaults, overlaid with --config and the logging flags.
The output is a valid configuration file.

Example:
  memsim config > sim.yaml
  memsim config --config sim.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig()
		},
	}
	return cmd
}

func runConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	name := configFormat
	if jsonOut {
		name = string(config.FormatJSON)
	}
	format, err := config.ParseFormat(name)
	if err != nil {
		return err
	}
	return cfg.Encode(os.Stdout, format)
}
