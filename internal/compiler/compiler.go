// Package compiler implements PL/0's single-pass recursive-descent
// parser and code generator: one token of lookahead drives both grammar
// recognition and instruction emission in the same pass, with no
// intermediate AST. Block nesting and symbol visibility are resolved at
// compile time and realized at runtime by the display/static-link
// machine in internal/vm.
package compiler

import (
	"github.com/sirupsen/logrus"

	"github.com/jkorhonen/pl0r/internal/code"
	"github.com/jkorhonen/pl0r/internal/diag"
	"github.com/jkorhonen/pl0r/internal/scanner"
	"github.com/jkorhonen/pl0r/internal/symtab"
	"github.com/jkorhonen/pl0r/internal/token"
)

// Limits bundles the hard caps a compile enforces, overridable via
// internal/config.
type Limits struct {
	AddrMax         int
	CodeSize        int
	TableSize       int
	MaxBlockNesting int
}

// DefaultLimits are the compiler's built-in hard caps.
var DefaultLimits = Limits{
	AddrMax:         2047,
	CodeSize:        2047,
	TableSize:       100,
	MaxBlockNesting: 3,
}

// Compiler drives the scanner, populates the symbol table, and emits
// instructions in a single pass.
type Compiler struct {
	scan   *scanner.Scanner
	sym    token.Token
	syms   *symtab.Table
	code   *code.Buffer
	limits Limits
	log    *logrus.Entry

	listFrom int // start index for the next Listing() call
}

// New creates a Compiler over src. diags collects non-fatal scan errors;
// log may be nil to disable trace output.
func New(src string, limits Limits, diags *diag.Sink, log *logrus.Entry) *Compiler {
	return &Compiler{
		scan:   scanner.New(src, diags),
		syms:   symtab.New(limits.TableSize),
		code:   code.New(limits.CodeSize),
		limits: limits,
		log:    log,
	}
}

// Code returns the compiled instruction buffer, valid after Run returns
// without panicking.
func (c *Compiler) Code() *code.Buffer { return c.code }

// Symbols returns the compiler's symbol table, valid after Run returns
// without panicking. Exposed for --dump-symbols.
func (c *Compiler) Symbols() *symtab.Table { return c.syms }

// Run compiles the whole program: fetches the first significant symbol,
// compiles the top-level block, and requires a trailing period. Fatal
// diagnostics are raised via diag.Raise, a panic recovered once by the
// caller rather than unwound through every recursive call.
func (c *Compiler) Run() {
	c.nextSym()
	c.block(0, 0)
	if c.sym.Type != token.Period {
		diag.Raise(c.scan.Line(), 9)
	}
}

// nextSym repeatedly pulls tokens from the scanner, discarding
// whitespace, until a significant token is latched into c.sym.
func (c *Compiler) nextSym() {
	for {
		t := c.scan.Next()
		if c.log != nil {
			c.log.Debugf("scan %v @line %d", t, t.Line)
		}
		if t.Type != token.WhiteSpace {
			c.sym = t
			return
		}
	}
}

func (c *Compiler) line() int { return c.sym.Line }

func (c *Compiler) expect(t token.Type, errNum int) {
	if c.sym.Type != t {
		diag.Raise(c.line(), errNum)
		return
	}
	c.nextSym()
}

// gen emits an instruction at the current cursor.
func (c *Compiler) gen(op code.Op, level, addr int) int {
	return c.code.Emit(c.line(), op, level, addr)
}

// block compiles one block (the program itself, or one procedure body)
// at lexical level lev, with tx the symbol-table length visible to this
// block's enclosing scope (the declaring procedure's own entry index for
// nested blocks, or 0 at the top level).
func (c *Compiler) block(lev, tx int) {
	dx := 3 // data-allocation cursor; slots 0..2 are the frame header
	tx0 := tx

	// Stash the forward jump's code index in the symbol table entry at
	// tx0 so it can be backpatched below, then jump over the
	// declarations straight to the body.
	c.syms.At(tx0).Addr = c.code.Len()
	jmp := c.gen(code.Jmp, 0, 0)

	if lev > c.limits.MaxBlockNesting {
		diag.Raise(c.line(), 32)
	}

	for {
		if c.sym.Type == token.Const {
			c.nextSym()
			for {
				c.constDecl(&tx)
				for c.sym.Type == token.Comma {
					c.nextSym()
					c.constDecl(&tx)
				}
				c.expect(token.Semicolon, 5)
				if c.sym.Type != token.Ident {
					break
				}
			}
		}

		if c.sym.Type == token.Var {
			c.nextSym()
			for {
				c.varDecl(lev, &tx, &dx)
				for c.sym.Type == token.Comma {
					c.nextSym()
					c.varDecl(lev, &tx, &dx)
				}
				c.expect(token.Semicolon, 5)
				if c.sym.Type != token.Ident {
					break
				}
			}
		}

		for c.sym.Type == token.Procedure {
			c.nextSym()
			if c.sym.Type != token.Ident {
				diag.Raise(c.line(), 4)
			}
			name := c.sym.Name
			c.syms.Enter(c.line(), name, symtab.Procedure, lev, &dx, c.limits.AddrMax)
			tx = c.syms.Len()
			c.nextSym()
			c.expect(token.Semicolon, 5)
			c.block(lev+1, tx)
			c.expect(token.Semicolon, 5)
		}

		if c.sym.Type != token.Const && c.sym.Type != token.Var && c.sym.Type != token.Procedure {
			break
		}
	}

	// Backpatch the entry jump, then remember the body's entry point on
	// the procedure's own symbol entry so callers resolve to it.
	entry := c.code.Len()
	c.code.Patch(jmp, entry)
	c.syms.At(tx0).Addr = entry

	listFrom := c.listFrom
	c.gen(code.Int, 0, dx)
	c.statement(lev, tx)
	c.gen(code.Opr, 0, code.OprRet)

	for _, line := range c.code.Listing(listFrom, c.code.Len()) {
		if c.log != nil {
			c.log.Debug(line)
		}
	}
}

func (c *Compiler) constDecl(tx *int) {
	if c.sym.Type != token.Ident {
		diag.Raise(c.line(), 4)
	}
	name := c.sym.Name
	c.nextSym()
	if c.sym.Type != token.Equal && c.sym.Type != token.Becomes {
		diag.Raise(c.line(), 3)
	}
	if c.sym.Type == token.Becomes {
		diag.Raise(c.line(), 1)
	}
	c.nextSym()
	if c.sym.Type != token.Number {
		diag.Raise(c.line(), 2)
	}
	var unused int
	c.syms.Enter(c.line(), name, symtab.Constant, c.sym.Num, &unused, c.limits.AddrMax)
	*tx = c.syms.Len()
	c.nextSym()
}

func (c *Compiler) varDecl(lev int, tx, dx *int) {
	if c.sym.Type != token.Ident {
		diag.Raise(c.line(), 4)
	}
	c.syms.Enter(c.line(), c.sym.Name, symtab.Variable, lev, dx, c.limits.AddrMax)
	*tx = c.syms.Len()
	c.nextSym()
}

// statement compiles a single statement, or nothing at all if the
// current symbol doesn't start one (an empty statement is legal).
func (c *Compiler) statement(lev, tx int) {
	switch c.sym.Type {
	case token.Ident:
		name := c.sym.Name
		i := c.syms.Position(tx, name)
		if i == 0 {
			diag.Raise(c.line(), 11)
		}
		e := c.syms.At(i)
		if e.Kind != symtab.Variable {
			diag.Raise(c.line(), 12)
		}
		c.nextSym()
		c.expect(token.Becomes, 13)
		c.expression(lev, tx)
		c.gen(code.Sto, lev-e.ValOrLev, e.Addr)

	case token.Call:
		c.nextSym()
		if c.sym.Type != token.Ident {
			diag.Raise(c.line(), 14)
		}
		i := c.syms.Position(tx, c.sym.Name)
		if i == 0 {
			diag.Raise(c.line(), 11)
		}
		e := c.syms.At(i)
		if e.Kind != symtab.Procedure {
			diag.Raise(c.line(), 15)
		}
		c.gen(code.Cal, lev-e.ValOrLev, e.Addr)
		c.nextSym()

	case token.Read:
		c.nextSym()
		if c.sym.Type != token.Ident {
			diag.Raise(c.line(), 26)
		}
		i := c.syms.Position(tx, c.sym.Name)
		if i == 0 {
			diag.Raise(c.line(), 11)
		}
		c.gen(code.Opr, 0, code.OprRd)
		e := c.syms.At(i)
		if e.Kind != symtab.Variable {
			diag.Raise(c.line(), 27)
		}
		c.gen(code.Sto, lev-e.ValOrLev, e.Addr)
		c.nextSym()

	case token.Write:
		c.nextSym()
		c.expression(lev, tx)
		c.gen(code.Opr, 0, code.OprWr)

	case token.Begin:
		c.nextSym()
		c.statement(lev, tx)
		for startsStatementOrSemicolon(c.sym.Type) {
			c.expect(token.Semicolon, 10)
			c.statement(lev, tx)
		}
		c.expect(token.End, 17)

	case token.If:
		c.nextSym()
		c.condition(lev, tx)
		c.expect(token.Then, 16)
		cx1 := c.gen(code.Jpc, 0, 0)
		c.statement(lev, tx)
		c.code.Patch(cx1, c.code.Len())

	case token.While:
		cx1 := c.code.Len()
		c.nextSym()
		c.condition(lev, tx)
		cx2 := c.gen(code.Jpc, 0, 0)
		c.expect(token.Do, 18)
		c.statement(lev, tx)
		c.gen(code.Jmp, 0, cx1)
		c.code.Patch(cx2, c.code.Len())
	}
}

// startsStatementOrSemicolon reports whether t keeps a begin...end block
// going: an identifier, a number, a left parenthesis, or the separating
// semicolon. Statement keywords (call, if, while, begin, ?, !) are not in
// the set, so a missing semicolon before one of them is reported as
// diagnostic 17 rather than 10.
func startsStatementOrSemicolon(t token.Type) bool {
	switch t {
	case token.Ident, token.Number, token.LParen, token.Semicolon:
		return true
	}
	return false
}

func (c *Compiler) condition(lev, tx int) {
	if c.sym.Type == token.Odd {
		c.nextSym()
		c.expression(lev, tx)
		c.gen(code.Opr, 0, code.OprOdd)
		return
	}
	c.expression(lev, tx)
	if !token.Relational(c.sym.Type) {
		diag.Raise(c.line(), 20)
		return
	}
	relop := c.sym.Type
	c.nextSym()
	c.expression(lev, tx)
	switch relop {
	case token.Equal:
		c.gen(code.Opr, 0, code.OprEq)
	case token.NotEqual:
		c.gen(code.Opr, 0, code.OprNe)
	case token.Less:
		c.gen(code.Opr, 0, code.OprLt)
	case token.GreaterEqual:
		c.gen(code.Opr, 0, code.OprGe)
	case token.Greater:
		c.gen(code.Opr, 0, code.OprGt)
	case token.LessEqual:
		c.gen(code.Opr, 0, code.OprLe)
	default:
		diag.Raise(c.line(), 28)
	}
}

func (c *Compiler) expression(lev, tx int) {
	neg := false
	if c.sym.Type == token.Plus || c.sym.Type == token.Minus {
		neg = c.sym.Type == token.Minus
		c.nextSym()
		c.term(lev, tx)
		if neg {
			c.gen(code.Opr, 0, code.OprNeg)
		}
	} else {
		c.term(lev, tx)
	}

	for c.sym.Type == token.Plus || c.sym.Type == token.Minus {
		op := c.sym.Type
		c.nextSym()
		c.term(lev, tx)
		if op == token.Plus {
			c.gen(code.Opr, 0, code.OprAdd)
		} else {
			c.gen(code.Opr, 0, code.OprSub)
		}
	}
}

func (c *Compiler) term(lev, tx int) {
	c.factor(lev, tx)
	for c.sym.Type == token.Times || c.sym.Type == token.Slash {
		op := c.sym.Type
		c.nextSym()
		c.factor(lev, tx)
		if op == token.Times {
			c.gen(code.Opr, 0, code.OprMul)
		} else {
			c.gen(code.Opr, 0, code.OprDiv)
		}
	}
}

func (c *Compiler) factor(lev, tx int) {
	switch c.sym.Type {
	case token.Ident:
		i := c.syms.Position(tx, c.sym.Name)
		if i == 0 {
			diag.Raise(c.line(), 11)
		}
		e := c.syms.At(i)
		switch e.Kind {
		case symtab.Constant:
			c.gen(code.Lit, 0, e.ValOrLev)
		case symtab.Variable:
			c.gen(code.Lod, lev-e.ValOrLev, e.Addr)
		case symtab.Procedure:
			diag.Raise(c.line(), 21)
		}
		c.nextSym()
	case token.Number:
		n := c.sym.Num
		if n > c.limits.AddrMax {
			diag.Raise(c.line(), 30)
			n = 0
		}
		c.gen(code.Lit, 0, n)
		c.nextSym()
	case token.LParen:
		c.nextSym()
		c.expression(lev, tx)
		c.expect(token.RParen, 22)
	default:
		diag.Raise(c.line(), 24)
	}
}
