// Package vm implements the PL/0 abstract stack machine: a fixed-size
// integer stack, three registers (program counter, frame base, stack
// top), and lexical scoping resolved at runtime by walking the static
// link chain stored in each activation frame. Opcode dispatch is a
// straight switch over the 8 opcodes plus 16 OPR sub-operations;
// runtime traps (stack overflow/underflow, division by zero) halt via
// panic, recovered once by the caller via internal/panicerr.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jkorhonen/pl0r/internal/code"
	"github.com/jkorhonen/pl0r/internal/flushio"
)

// HaltError is raised (via panic) for runtime traps: stack
// overflow/underflow and division by zero. Reads of malformed input
// silently yield 0 instead of halting.
type HaltError struct{ Reason string }

func (e HaltError) Error() string { return fmt.Sprintf("VM halted: %s", e.Reason) }

func halt(format string, args ...interface{}) {
	panic(HaltError{Reason: fmt.Sprintf(format, args...)})
}

// Machine is one instance of the PL/0 stack machine.
type Machine struct {
	Code *code.Buffer

	stack []int // s[0..StackSize)
	p     int   // program counter
	b     int   // base of current activation frame
	t     int   // top-of-stack index

	in  *bufio.Reader
	out flushio.WriteFlusher

	log *logrus.Entry
}

// StackSize is the length of the stack array. Slot 0 is never used, so
// 500 slots are usable.
const StackSize = 501

// New creates a Machine executing code, reading `?` input from in and
// writing `!`/banner output to out. log may be nil to disable tracing.
// out is wrapped in a flushio.WriteFlusher so buffered writers (e.g. a
// bufio-backed stdout) are flushed before every blocking read, keeping
// prompts visible ahead of the input they precede.
func New(c *code.Buffer, in io.Reader, out io.Writer, log *logrus.Entry) *Machine {
	return &Machine{
		Code:  c,
		stack: make([]int, StackSize),
		in:    bufio.NewReader(in),
		out:   flushio.NewWriteFlusher(out),
		log:   log,
	}
}

func (m *Machine) tracef(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Debugf(format, args...)
	}
}

// base walks the static link chain l levels out from frame base bl,
// resolving the activation frame of the lexically enclosing scope l
// levels above the current one. This is how LOD/STO reach non-local
// variables: the compiler emits l = currentLevel - declLevel.
func (m *Machine) base(l, bl int) int {
	for ; l > 0; l-- {
		bl = m.stack[bl]
	}
	return bl
}

func (m *Machine) push(v int) {
	m.t++
	if m.t >= len(m.stack) {
		halt("stack overflow")
	}
	m.stack[m.t] = v
}

func (m *Machine) pop() int {
	v := m.stack[m.t]
	m.t--
	if m.t < 0 {
		halt("stack underflow")
	}
	return v
}

// Run executes the loaded code until the outermost procedure's return
// restores p to 0, printing the startup and termination banners.
func (m *Machine) Run() {
	fmt.Fprintln(m.out, " start pl/0")

	m.t = 0
	m.b = 1
	m.p = 0
	m.stack[1] = 0
	m.stack[2] = 0
	m.stack[3] = 0

	for {
		in := m.Code.At(m.p)
		m.p++
		m.tracef("@%d %s %d %d  b=%d t=%d", m.p-1, in.Op, in.Level, in.Addr, m.b, m.t)
		m.step(in)
		if m.p == 0 {
			break
		}
	}

	fmt.Fprintln(m.out, " end pl/0")
}

func (m *Machine) step(in code.Instruction) {
	switch in.Op {
	case code.Lit:
		m.push(in.Addr)
	case code.Lod:
		m.push(m.stack[m.base(in.Level, m.b)+in.Addr])
	case code.Sto:
		m.stack[m.base(in.Level, m.b)+in.Addr] = m.pop()
	case code.Cal:
		m.stack[m.t+1] = m.base(in.Level, m.b)
		m.stack[m.t+2] = m.b
		m.stack[m.t+3] = m.p
		m.b = m.t + 1
		m.p = in.Addr
	case code.Int:
		m.t += in.Addr
		if m.t >= len(m.stack) {
			halt("stack overflow")
		}
	case code.Jmp:
		m.p = in.Addr
	case code.Jpc:
		if m.pop() == 0 {
			m.p = in.Addr
		}
	case code.Opr:
		m.opr(in.Addr)
	default:
		halt("unknown opcode %v", in.Op)
	}
}

func (m *Machine) opr(k int) {
	switch k {
	case code.OprRet:
		m.t = m.b - 1
		m.p = m.stack[m.t+3]
		m.b = m.stack[m.t+2]
	case code.OprNeg:
		m.stack[m.t] = -m.stack[m.t]
	case code.OprAdd:
		b, a := m.pop(), m.pop()
		m.push(a + b)
	case code.OprSub:
		b, a := m.pop(), m.pop()
		m.push(a - b)
	case code.OprMul:
		b, a := m.pop(), m.pop()
		m.push(a * b)
	case code.OprDiv:
		if m.stack[m.t] == 0 {
			halt("division by zero")
		}
		b, a := m.pop(), m.pop()
		m.push(a / b)
	case code.OprOdd:
		m.stack[m.t] = m.stack[m.t] % 2
	case code.OprEq:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a == b))
	case code.OprNe:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a != b))
	case code.OprLt:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a < b))
	case code.OprGe:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a >= b))
	case code.OprGt:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a > b))
	case code.OprLe:
		b, a := m.pop(), m.pop()
		m.push(boolInt(a <= b))
	case code.OprRd:
		m.push(m.readInt())
	case code.OprWr:
		fmt.Fprintln(m.out, m.stack[m.t])
	default:
		// Sub-operation 7 and anything beyond 15 is a deliberate no-op.
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// readInt reads one whitespace-trimmed line from stdin and parses it as
// an integer; on any failure it silently yields 0.
func (m *Machine) readInt() int {
	m.out.Flush()
	line, _ := m.in.ReadString('\n')
	line = strings.TrimSpace(line)
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0
	}
	return n
}
