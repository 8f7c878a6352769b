// Package code implements PL/0's flat, append-only instruction buffer:
// an index-addressed array of (Op, Level, Addr) triples, written at a
// monotonically increasing cursor with occasional backpatch writes to
// previously emitted entries. The buffer is pre-sized to its capacity
// limit at construction; emitting past that limit raises a fatal
// diagnostic rather than growing unbounded.
package code

import (
	"fmt"

	"github.com/jkorhonen/pl0r/internal/diag"
)

// Op is one of PL/0's eight opcodes.
type Op int

const (
	Lit Op = iota
	Opr
	Lod
	Sto
	Cal
	Int
	Jmp
	Jpc
)

var mnemonics = [...]string{
	Lit: "lit",
	Opr: "opr",
	Lod: "lod",
	Sto: "sto",
	Cal: "cal",
	Int: "int",
	Jmp: "jmp",
	Jpc: "jpc",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(mnemonics) {
		return mnemonics[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// OPR sub-operations, selected by an Opr instruction's Addr field.
const (
	OprRet = 0
	OprNeg = 1
	OprAdd = 2
	OprSub = 3
	OprMul = 4
	OprDiv = 5
	OprOdd = 6
	// 7 is unused — reserved, left as a no-op at dispatch time.
	OprEq  = 8
	OprNe  = 9
	OprLt  = 10
	OprGe  = 11
	OprGt  = 12
	OprLe  = 13
	OprRd  = 14
	OprWr  = 15
)

// Instruction is one (fct, level, adr) triple.
type Instruction struct {
	Op    Op
	Level int
	Addr  int
}

// Buffer is the append-only, backpatchable code array.
type Buffer struct {
	instrs []Instruction
	limit  int
}

// New creates a Buffer pre-sized to limit instructions (CODE_ARR_SIZE).
// ADDR_MAX is enforced separately, against the values that become Addr
// operands (constant values and number literals), not here.
func New(limit int) *Buffer {
	return &Buffer{instrs: make([]Instruction, 0, limit), limit: limit}
}

// Len returns the next-write cursor.
func (b *Buffer) Len() int { return len(b.instrs) }

// Emit appends an instruction and returns its index, raising diagnostic
// 30 if the buffer's capacity would be exceeded: a full instruction
// stream is treated as a hard compile-time limit, not a silently
// truncated one.
func (b *Buffer) Emit(line int, op Op, level, addr int) int {
	if len(b.instrs) >= b.limit {
		diag.Raise(line, 30)
	}
	b.instrs = append(b.instrs, Instruction{Op: op, Level: level, Addr: addr})
	return len(b.instrs) - 1
}

// Patch overwrites the Addr field of a previously emitted instruction,
// used to resolve forward jumps (JMP/JPC) and procedure entry points
// once their target is known.
func (b *Buffer) Patch(index, addr int) {
	b.instrs[index].Addr = addr
}

// At returns the instruction at index i, for the interpreter's fetch
// step.
func (b *Buffer) At(i int) Instruction { return b.instrs[i] }

// Listing renders instructions [from, to) as
// "<index> <mnemonic> <level> <addr>", one line per instruction. The
// outermost block always calls this with from=0, so the listing is
// cumulative across nested blocks.
func (b *Buffer) Listing(from, to int) []string {
	lines := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		in := b.instrs[i]
		lines = append(lines, fmt.Sprintf("%5d%5s%3d%5d", i, in.Op, in.Level, in.Addr))
	}
	return lines
}
