// Package cmd wires the pl0r command-line interface. It preserves a
// strict exit-code contract (64 usage, 65 data error, 66 no input, 70
// runtime trap): cobra's own error printing and process exit are
// silenced so main can compute the right code itself.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jkorhonen/pl0r/internal/compiler"
	"github.com/jkorhonen/pl0r/internal/config"
	"github.com/jkorhonen/pl0r/internal/diag"
	"github.com/jkorhonen/pl0r/internal/flushio"
	"github.com/jkorhonen/pl0r/internal/panicerr"
	"github.com/jkorhonen/pl0r/internal/vm"
)

// Version is overridable at build time with -ldflags "-X
// github.com/jkorhonen/pl0r/cmd.Version=...".
var Version = "0.1.0"

// Options are the flags understood by the root command.
type Options struct {
	ConfigPath  string
	Trace       bool
	NoListing   bool
	DumpSymbols bool
}

// Exit carries a process exit code out of Execute without calling
// os.Exit directly, so tests can observe it.
type Exit struct{ Code int }

func (e *Exit) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// NewRoot builds the root cobra.Command. stdin/stdout/stderr are
// threaded through explicitly (rather than read from the os package
// inside RunE) so tests can redirect them.
func NewRoot(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts Options

	root := &cobra.Command{
		Use:           "pl0r <srcfile>",
		Short:         "PL0R: PL/0 compiler and stack-machine interpreter",
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return run(args[0], opts, stdin, stdout, stderr)
		},
	}

	root.SetVersionTemplate("PL0R {{.Version}}: PL/0 in Go\n")

	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "pl0r.toml", "path to a pl0r.toml config file")
	root.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "enable leveled trace logging to stderr")
	root.PersistentFlags().BoolVar(&opts.NoListing, "no-listing", false, "suppress the cumulative code listing")
	root.PersistentFlags().BoolVar(&opts.DumpSymbols, "dump-symbols", false, "print the symbol table after compilation")

	return root
}

func run(srcfile string, opts Options, stdin io.Reader, stdout, stderr io.Writer) error {
	out := flushio.NewWriteFlusher(stdout)
	vmOut := flushio.WriteFlusher(out)
	defer func() { vmOut.Flush() }()

	fmt.Fprintf(stderr, "PL0R %s: PL/0 in Go\n", Version)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "could not read config %s: %v\n", opts.ConfigPath, err)
		return &Exit{Code: diag.ExitDataErr}
	}
	if opts.Trace {
		cfg.Runtime.Trace = true
	}
	if opts.NoListing {
		cfg.Runtime.Listing = false
	}

	src, err := os.ReadFile(srcfile)
	if err != nil {
		fmt.Fprintf(stderr, "could not read source file %s: %v\n", srcfile, err)
		return &Exit{Code: diag.ExitNoInput}
	}

	log := newLogger(stderr, cfg.Runtime.Trace)

	diags := diag.NewSink(func(line string) { fmt.Fprintln(stderr, line) })
	limits := cfg.CompilerLimits()

	var comp *compiler.Compiler
	compileErr := panicerr.Run(func() error {
		comp = compiler.New(string(src), limits, diags, log)
		comp.Run()
		return nil
	})
	if compileErr != nil {
		var fatal *diag.Fatal
		if pe, ok := panicerr.As(compileErr); ok {
			if f, ok := pe.Value.(*diag.Fatal); ok {
				fatal = f
			}
		}
		if fatal != nil {
			fmt.Fprintln(stderr, fatal.Error())
			return &Exit{Code: diag.ExitDataErr}
		}
		fmt.Fprintln(stderr, compileErr)
		return &Exit{Code: diag.ExitDataErr}
	}
	if cfg.Runtime.Listing {
		for _, line := range comp.Code().Listing(0, comp.Code().Len()) {
			fmt.Fprintln(out, line)
		}
	}
	if opts.DumpSymbols {
		dumpSymbols(out, comp)
	}

	if cfg.Runtime.Trace {
		// Tee program output alongside the trace log, so `!`-printed
		// values line up with the trace lines that produced them
		// instead of landing in a separately redirected stream.
		vmOut = flushio.WriteFlushers(out, flushio.NewWriteFlusher(stderr))
	}
	m := vm.New(comp.Code(), stdin, vmOut, log)
	runErr := panicerr.Run(func() error {
		m.Run()
		return nil
	})
	if runErr != nil {
		fmt.Fprintln(stderr, runErr)
		return &Exit{Code: 70} // EX_SOFTWARE: a runtime trap, not a usage/data/io error
	}

	// A non-fatal scan error doesn't stop compilation or execution; it
	// only determines the exit code once the program has run to completion.
	if diags.Had {
		return &Exit{Code: diag.ExitDataErr}
	}

	return nil
}

func dumpSymbols(out io.Writer, comp *compiler.Compiler) {
	syms := comp.Symbols()
	fmt.Fprintln(out, "symbols:")
	for i := 1; i <= syms.Len(); i++ {
		e := syms.At(i)
		fmt.Fprintf(out, "%5d %-16s %-10s val/lev=%-6d adr=%d\n", i, e.Name, e.Kind, e.ValOrLev, e.Addr)
	}
}

func newLogger(out io.Writer, trace bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if trace {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return logrus.NewEntry(log)
}
