// Package shell parses and executes simulator commands, line by line, for
// the interactive REPL and the script runner.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/memsim/alloc"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/internal/report"
	"github.com/joshuapare/memsim/system"
)

const DefaultPrompt = "> "

// Shell executes commands against a System and writes results through a Reporter.
type Shell struct {
	sys    *system.System
	rep    *report.Reporter
	errRep *report.Reporter
	out    io.Writer
	prompt string
}

// New creates a Shell. out receives dumps, help and the prompt.
func New(sys *system.System, rep *report.Reporter, out io.Writer) *Shell {
	return &Shell{sys: sys, rep: rep, errRep: rep, out: out, prompt: DefaultPrompt}
}

// SetErrorReporter sends "Error: <msg>" lines to rep instead of the main reporter.
func (sh *Shell) SetErrorReporter(rep *report.Reporter) { sh.errRep = rep }

// SetPrompt changes the interactive prompt.
func (sh *Shell) SetPrompt(p string) { sh.prompt = p }

// RunOptions controls Run.
type RunOptions struct {
	// Interactive prints the prompt before each line.
	Interactive bool

	// StopOnError aborts at the first failing command instead of
	// reporting it and continuing.
	StopOnError bool
}

// Run executes every line of r until EOF, exit, or context cancellation.
// Failed commands are reported as "Error: <msg>" and the loop continues
// unless StopOnError is set.
func (sh *Shell) Run(ctx context.Context, r io.Reader, opts RunOptions) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Interactive {
			fmt.Fprint(sh.out, sh.prompt)
		}
		if !scanner.Scan() {
			break
		}
		lineNo++

		err := sh.Exec(scanner.Text())
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			logger.Debug("shell: command failed", "line", lineNo, "error", err)
			if rerr := sh.errRep.Error(err); rerr != nil {
				return rerr
			}
			if opts.StopOnError {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	return scanner.Err()
}

// Exec runs one line. It returns ErrExit for exit and quit.
func (sh *Shell) Exec(line string) error {
	cmd := Parse(line)
	if cmd.Empty() {
		return nil
	}
	logger.Debug("shell: exec", "command", cmd.Name, "args", cmd.Args)

	switch cmd.Name {
	case "init":
		return sh.initCmd(cmd.Args)
	case "set":
		return sh.setCmd(cmd.Args)
	case "malloc":
		return sh.malloc(cmd.Args)
	case "free":
		return sh.free(cmd.Args)
	case "free_addr":
		return sh.freeAddr(cmd.Args)
	case "read":
		return sh.read(cmd.Args)
	case "write":
		return sh.write(cmd.Args)
	case "dump":
		return sh.dump(cmd.Args)
	case "stats":
		return sh.stats(cmd.Args)
	case "recent":
		return sh.recent(cmd.Args)
	case "flush":
		return sh.flush(cmd.Args)
	case "reset":
		sh.sys.ResetSession()
		return sh.rep.Message("Session statistics reset")
	case "help":
		_, err := io.WriteString(sh.out, helpText)
		return err
	case "exit", "quit":
		return ErrExit
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
}

func (sh *Shell) initCmd(args []string) error {
	if len(args) != 2 || strings.ToLower(args[0]) != "memory" {
		return usage("init memory <size>")
	}
	size, err := ParseNumber(args[1])
	if err != nil {
		return err
	}
	if err := sh.sys.InitMemory(size); err != nil {
		return err
	}
	return sh.rep.Message("Memory initialized: %s bytes", sh.rep.Count(size))
}

func (sh *Shell) setCmd(args []string) error {
	if len(args) != 2 {
		return usage("set allocator|cache|vm <value>")
	}
	switch strings.ToLower(args[0]) {
	case "allocator":
		kind, err := alloc.ParseKind(args[1])
		if err != nil {
			return err
		}
		if err := sh.sys.SetAllocator(kind); err != nil {
			return err
		}
		return sh.rep.Message("Allocator set to: %s", kind.DisplayName())
	case "cache":
		on, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		cfg := sh.sys.Config().Cache
		if err := sh.sys.ConfigureCache(on, cfg.L1, cfg.L2); err != nil {
			return err
		}
		if !on {
			return sh.rep.Message("Cache disabled")
		}
		return sh.rep.Message("Cache enabled: L1 %s; L2 %s", cfg.L1, cfg.L2)
	case "vm":
		on, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		geometry := sh.sys.Config().VM.Geometry()
		if err := sh.sys.ConfigureVM(on, geometry); err != nil {
			return err
		}
		if !on {
			return sh.rep.Message("Virtual memory disabled")
		}
		return sh.rep.Message("Virtual memory enabled: %s", geometry)
	default:
		return usage("set allocator|cache|vm <value>")
	}
}

func (sh *Shell) malloc(args []string) error {
	if len(args) != 1 {
		return usage("malloc <size>")
	}
	size, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	id, err := sh.sys.Allocate(size)
	if err != nil {
		return err
	}
	addr, err := sh.sys.Allocator().BlockAddress(id)
	if err != nil {
		return err
	}
	return sh.rep.Message("Allocated block id=%d at address=0x%04x", id, addr)
}

func (sh *Shell) free(args []string) error {
	if len(args) != 1 {
		return usage("free <block_id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := sh.sys.Deallocate(alloc.BlockID(id)); err != nil {
		return err
	}
	return sh.rep.Message("Block %d freed", id)
}

func (sh *Shell) freeAddr(args []string) error {
	if len(args) != 1 {
		return usage("free_addr <address>")
	}
	addr, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	if err := sh.sys.DeallocateByAddress(addr); err != nil {
		return err
	}
	return sh.rep.Message("Block at address 0x%x freed", addr)
}

func (sh *Shell) read(args []string) error {
	if len(args) != 1 {
		return usage("read <address>")
	}
	addr, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	res := sh.sys.Read(addr)
	if !res.OK() {
		return res.Err
	}
	return sh.rep.Access(res)
}

func (sh *Shell) write(args []string) error {
	if len(args) != 2 {
		return usage("write <address> <byte>")
	}
	addr, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	b, err := parseByte(args[1])
	if err != nil {
		return err
	}
	res := sh.sys.Write(addr, b)
	if !res.OK() {
		return res.Err
	}
	return sh.rep.Access(res)
}

func (sh *Shell) dump(args []string) error {
	if len(args) != 1 {
		return usage("dump memory|cache|vm")
	}
	switch strings.ToLower(args[0]) {
	case "memory":
		return sh.sys.DumpMemory(sh.out)
	case "cache":
		return sh.sys.DumpCache(sh.out)
	case "vm":
		return sh.sys.DumpVM(sh.out)
	default:
		return usage("dump memory|cache|vm")
	}
}

func (sh *Shell) stats(args []string) error {
	if len(args) > 1 {
		return usage("stats [alloc|cache|vm|session]")
	}
	if len(args) == 0 {
		return sh.rep.Report(report.Collect(sh.sys, sh.rep.Options().Recent))
	}

	switch strings.ToLower(args[0]) {
	case "alloc", "allocator":
		st, err := sh.sys.AllocatorStats()
		if err != nil {
			return err
		}
		return sh.rep.Stats(st)
	case "cache":
		st, err := sh.sys.CacheStats()
		if err != nil {
			return err
		}
		return sh.rep.Stats(st)
	case "vm":
		st, err := sh.sys.VMStats()
		if err != nil {
			return err
		}
		return sh.rep.Stats(st)
	case "session":
		return sh.rep.Session(report.Collect(sh.sys, 0))
	default:
		return usage("stats [alloc|cache|vm|session]")
	}
}

func (sh *Shell) recent(args []string) error {
	n := uint64(sh.rep.Options().Recent)
	if len(args) > 1 {
		return usage("recent [count]")
	}
	if len(args) == 1 {
		var err error
		if n, err = ParseNumber(args[0]); err != nil {
			return err
		}
	}
	n = min(n, system.HistoryLimit)

	var accesses []report.Access
	for _, res := range sh.sys.Recent(int(n)) {
		accesses = append(accesses, report.NewAccess(res))
	}
	return sh.rep.Recent(accesses)
}

// flush empties whichever of the cache hierarchy and VM are enabled.
func (sh *Shell) flush(args []string) error {
	if len(args) != 0 {
		return usage("flush")
	}
	var flushed []string
	if sh.sys.Cache() != nil {
		if err := sh.sys.FlushCaches(); err != nil {
			return err
		}
		flushed = append(flushed, "cache")
	}
	if sh.sys.VM() != nil {
		if err := sh.sys.FlushVM(); err != nil {
			return err
		}
		flushed = append(flushed, "virtual memory")
	}
	if len(flushed) == 0 {
		return sh.rep.Message("Nothing to flush (cache and virtual memory are disabled)")
	}
	return sh.rep.Message("Flushed %s", strings.Join(flushed, " and "))
}
