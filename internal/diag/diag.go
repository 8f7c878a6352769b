// Package diag carries the PL/0 numbered diagnostic catalog and its
// fatal/non-fatal error split: a scan error only flips a flag and
// lexing continues, while a parse error is fatal and terminates the
// compile.
package diag

import "fmt"

// Process exit codes, per the CLI contract.
const (
	ExitOK       = 0
	ExitUsage    = 64
	ExitDataErr  = 65
	ExitNoInput  = 66
)

// messages is the numbered catalog, index 1..32. Index 0 is unused so
// that message numbers in source and in this table always match. A few
// slots (25, 29, 31) are reserved but currently empty.
var messages = [...]string{
	0:  "",
	1:  "Use = instead of :=",
	2:  "= must be followed by a number",
	3:  "Identifier must be followed by =",
	4:  "const, var, procedure must be followed by an identifier",
	5:  "Semicolon or comma missing",
	6:  "Incorrect symbol after procedure declaration",
	7:  "Statement expected",
	8:  "Incorrect symbol after statement part in block",
	9:  "Period expected",
	10: "Semicolon between statements is missing",
	11: "Undeclared identifier",
	12: "Assignment to constant or procedure is not allowed",
	13: "Assignment operator := expected",
	14: "Call must be followed by an identifier",
	15: "Call of a constant or a variable is meaningless",
	16: "then expected",
	17: "Semicolon or end expected",
	18: "do expected",
	19: "Incorrect symbol following statement",
	20: "Relational operator expected",
	21: "Expression must not contain a procedure identifier",
	22: "Right parenthesis missing",
	23: "The preceding factor cannot be followed by this symbol",
	24: "An expression cannot begin with this symbol",
	25: "",
	26: "A read must be followed by an identifier",
	27: "A read to constant or procedure is meaningless",
	28: "Unknown relational operator",
	29: "",
	30: "This number is too large",
	31: "",
	32: "Block nesting too deep",
}

// Message returns the catalog text for diagnostic number n.
func Message(n int) string {
	if n < 0 || n >= len(messages) {
		return ""
	}
	return messages[n]
}

// Fatal is the error raised for a numbered parse/semantic diagnostic. It
// is recovered exactly once at the top of the program and mapped to
// ExitDataErr.
type Fatal struct {
	Line int
	Num  int
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("[line %d Error : %s", e.Line, Message(e.Num))
}

// NewFatal builds a Fatal diagnostic for line and catalog number n.
func NewFatal(line, n int) *Fatal { return &Fatal{Line: line, Num: n} }

// Scan is a non-fatal lexical diagnostic: it is reported but lexing
// continues, matching the scanner's "had error" flag.
type Scan struct {
	Line    int
	Message string
}

func (e *Scan) Error() string {
	return fmt.Sprintf("[line %d Error : %s", e.Line, e.Message)
}

// Sink collects diagnostics raised during a single compile. It tracks
// whether any non-fatal scan error occurred as an instance field rather
// than a package-level global, so concurrent compiles don't interfere.
type Sink struct {
	Had bool
	out func(string)
}

// NewSink creates a Sink that writes reported lines through report.
func NewSink(report func(string)) *Sink {
	return &Sink{out: report}
}

// ScanError reports a non-fatal scan error and marks Had.
func (s *Sink) ScanError(line int, message string) {
	s.Had = true
	if s.out != nil {
		s.out((&Scan{Line: line, Message: message}).Error())
	}
}

// Raise panics with a *Fatal for catalog number n at line. A fatal
// diagnostic terminates the compile immediately; callers at the top of
// the program recover this panic and translate it into ExitDataErr,
// instead of threading an error return through every recursive-descent
// call frame.
func Raise(line, n int) {
	panic(NewFatal(line, n))
}
