package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memsim/internal/shell"
)

var (
	runStopOnError bool
	runReport      bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&runStopOnError, "stop-on-error", false, "Abort at the first failing command")
	cmd.Flags().BoolVar(&runReport, "report", false, "Print the session report after the script")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a file of simulator commands",
		Long: `The run command executes a script of shell commands, one per line.
Blank lines and lines starting with # are ignored. Failing commands print
an error and the script continues unless --stop-on-error is set.

Example:
  memsim run scenario.txt
  memsim run scenario.txt --stop-on-error --report
  memsim run scenario.txt --config sim.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), args)
		},
	}
	return cmd
}

func runScript(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scriptPath := args[0]

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	sys, _, err := newSystem()
	if err != nil {
		return err
	}
	defer sys.Close()

	printVerbose("Running script: %s\n", scriptPath)

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	rep := newReporter(os.Stdout)
	sh := shell.New(sys, rep, out)
	sh.SetErrorReporter(newErrorReporter())

	if err := sh.Run(ctx, f, shell.RunOptions{StopOnError: runStopOnError}); err != nil {
		return fmt.Errorf("%s: %w", scriptPath, err)
	}
	if runReport {
		return sh.Exec("stats")
	}
	return nil
}
