// Package symtab implements PL/0's flat, append-only symbol table: every
// declared name (constant, variable, or procedure) gets one entry,
// scoping is enforced purely by remembering a table-length watermark at
// block entry, and lookup walks backward from the current length so
// shadowing naturally favors the most recent (innermost) declaration.
package symtab

import "github.com/jkorhonen/pl0r/internal/diag"

// Kind distinguishes the three things a PL/0 name can denote.
type Kind int

const (
	Constant Kind = iota
	Variable
	Procedure
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "const"
	case Variable:
		return "var"
	case Procedure:
		return "procedure"
	default:
		return "unknown"
	}
}

// Entry is one symbol-table row. ValOrLev holds the constant's value for
// Constant entries, or the declaring lexical level for Variable and
// Procedure entries. Addr holds the frame slot for Variable entries, or
// the procedure's entry code index for Procedure entries (filled in once
// its body is compiled).
type Entry struct {
	Name     string
	Kind     Kind
	ValOrLev int
	Addr     int
}

// Table is the append-only symbol table. Index 0 is reserved as the
// sentinel used by Position: a lookup first writes the queried name
// into table[0], then scans downward, guaranteeing termination even
// for an undeclared name.
type Table struct {
	entries []Entry
	limit   int
}

// New creates a Table pre-sized to limit entries, with entry 0 reserved
// as the sentinel.
func New(limit int) *Table {
	return &Table{entries: make([]Entry, 1, limit+1), limit: limit}
}

// Len returns the number of entries entered so far, which is also the
// index of the most recent one (index 0 is the sentinel).
func (t *Table) Len() int { return len(t.entries) - 1 }

// At returns the entry at index i (1-based; Position never returns 0 for
// a found symbol).
func (t *Table) At(i int) *Entry { return &t.entries[i] }

// Enter appends a new entry, applying per-kind rules:
//   - Constant: val must fit within addrMax, else diagnostic 30 is raised.
//   - Variable: records lev, assigns the next frame slot from *dx and
//     advances it.
//   - Procedure: records lev; Addr is left for the caller to fill in once
//     the body's entry point is known.
//
// line is only used to attribute a raised diagnostic. Enter panics via
// diag.Raise on overflow of the table's capacity, enforcing a hard limit
// rather than silently overrunning the backing array.
func (t *Table) Enter(line int, name string, kind Kind, valOrLev int, dx *int, addrMax int) {
	if len(t.entries) > t.limit {
		// No catalog entry covers "symbol table full"; reusing 30 keeps
		// every hard-capacity overrun (code buffer, symbol table) under
		// the same "This number is too large" diagnostic rather than
		// borrowing one that names an unrelated syntax error.
		diag.Raise(line, 30)
	}
	e := Entry{Name: name, Kind: kind, ValOrLev: valOrLev}
	switch kind {
	case Constant:
		if valOrLev > addrMax {
			diag.Raise(line, 30)
		}
		e.ValOrLev = valOrLev
	case Variable:
		e.Addr = *dx
		*dx++
	case Procedure:
		e.Addr = 0
	}
	t.entries = append(t.entries, e)
}

// Position performs a sentinel-guarded linear search: it writes id into
// the sentinel slot, then scans backward from tx
// (the caller's remembered table length, restricting visibility to names
// declared at or before that point) down to 0. A return of 0 means "not
// found"; callers raise diagnostic 11.
func (t *Table) Position(tx int, id string) int {
	t.entries[0].Name = id
	i := tx
	for t.entries[i].Name != id {
		i--
	}
	return i
}
