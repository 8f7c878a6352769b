// Command pl0r compiles and runs a PL/0 source file: a single-pass
// recursive-descent compiler emits a flat instruction stream for an
// abstract stack machine, which is then interpreted directly.
package main

import (
	"os"

	"github.com/jkorhonen/pl0r/cmd"
)

func main() {
	root := cmd.NewRoot(os.Stdin, os.Stdout, os.Stderr)
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		if ex, ok := err.(*cmd.Exit); ok {
			os.Exit(ex.Code)
		}
		// cobra-level errors (bad flags, wrong arg count) are usage errors.
		os.Exit(64)
	}
}
