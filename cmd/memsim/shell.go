package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memsim/internal/shell"
)

func init() {
	rootCmd.AddCommand(newShellCmd())
}

func newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive simulator shell",
		Long: `The shell command reads simulator commands from standard input, one
per line, until exit, quit or end of input. Type 'help' inside the shell
for the command list.

Example:
  memsim shell
  memsim shell --config sim.yaml
  echo "malloc 100" | memsim shell --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), os.Stdin)
		},
	}
	return cmd
}

const banner = `
╔════════════════════════════════════════════════════════╗
║              Memory Management Simulator               ║
╚════════════════════════════════════════════════════════╝

Type 'help' for available commands.

`

func runShell(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sys, cfg, err := newSystem()
	if err != nil {
		return err
	}
	defer sys.Close()

	interactive := !jsonOut && !quiet
	if interactive {
		printInfo("%s", banner)
		printInfo("Memory: %d bytes, allocator: %s\n\n", cfg.Memory.Size, cfg.Allocator.Strategy.DisplayName())
	}

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	sh := shell.New(sys, newReporter(os.Stdout), out)
	sh.SetErrorReporter(newErrorReporter())

	if err := sh.Run(ctx, in, shell.RunOptions{Interactive: interactive}); err != nil {
		return err
	}
	if interactive {
		printInfo("\nGoodbye!\n")
	}
	return nil
}
