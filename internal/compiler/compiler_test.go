package compiler_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkorhonen/pl0r/internal/compiler"
	"github.com/jkorhonen/pl0r/internal/diag"
	"github.com/jkorhonen/pl0r/internal/panicerr"
	"github.com/jkorhonen/pl0r/internal/vm"
)

// compileAndRun compiles src and, if compilation succeeds, runs it,
// returning the VM's stdout. It stops the test (via require) on any
// unexpected fatal diagnostic, so scenario tests only need to assert on
// output.
func compileAndRun(t *testing.T, src, stdin string) string {
	t.Helper()
	sink := diag.NewSink(func(line string) { t.Logf("scan error: %s", line) })

	var comp *compiler.Compiler
	err := panicerr.Run(func() error {
		comp = compiler.New(src, compiler.DefaultLimits, sink, nil)
		comp.Run()
		return nil
	})
	require.NoError(t, err, "unexpected compile failure")
	require.False(t, sink.Had, "unexpected non-fatal scan error")

	var out bytes.Buffer
	m := vm.New(comp.Code(), strings.NewReader(stdin), &out, nil)
	err = panicerr.Run(func() error {
		m.Run()
		return nil
	})
	require.NoError(t, err, "unexpected runtime trap")
	return out.String()
}

// compileExpectFatal compiles src and returns the fatal diagnostic
// number, requiring that compilation actually failed with one.
func compileExpectFatal(t *testing.T, src string) int {
	t.Helper()
	sink := diag.NewSink(func(string) {})
	err := panicerr.Run(func() error {
		c := compiler.New(src, compiler.DefaultLimits, sink, nil)
		c.Run()
		return nil
	})
	require.Error(t, err)
	pe, ok := panicerr.As(err)
	require.True(t, ok)
	fatal, ok := pe.Value.(*diag.Fatal)
	require.True(t, ok, "expected a *diag.Fatal, got %T: %v", pe.Value, pe.Value)
	return fatal.Num
}

func TestS1ConstantsAndArithmetic(t *testing.T) {
	out := compileAndRun(t, `var x; begin x := 2 + 3 * 4; ! x end.`, "")
	assert.Contains(t, out, "14")
}

func TestS2WhileLoop(t *testing.T) {
	out := compileAndRun(t, `var i, s; begin i := 1; s := 0; while i < 11 do begin s := s + i; i := i + 1 end; ! s end.`, "")
	assert.Contains(t, out, "55")
}

func TestS3ProcedureNonLocalAccess(t *testing.T) {
	out := compileAndRun(t, `var x; procedure p; begin x := x + 1 end; begin x := 0; call p; call p; ! x end.`, "")
	assert.Contains(t, out, "2")
}

func TestS4OddCondition(t *testing.T) {
	out := compileAndRun(t, `var n; begin ? n; if odd n then ! 1 end.`, "7\n")
	assert.Contains(t, out, "1")

	out = compileAndRun(t, `var n; begin ? n; if odd n then ! 1 end.`, "8\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		assert.NotEqual(t, "1", strings.TrimSpace(line))
	}
}

func TestS5NestedProcedures(t *testing.T) {
	out := compileAndRun(t, `procedure a; var y; procedure b; begin y := 5 end; begin call b; ! y end; call a.`, "")
	assert.Contains(t, out, "5")
}

func TestS6NumberTooLarge(t *testing.T) {
	assert.Equal(t, 30, compileExpectFatal(t, `const c = 3000; .`))
}

func TestS7BecomesInConst(t *testing.T) {
	assert.Equal(t, 1, compileExpectFatal(t, `const c := 5; .`))
}

func TestS8BlockNestingTooDeep(t *testing.T) {
	src := `procedure a;
procedure b;
procedure c;
procedure d;
begin end;
begin end;
begin end;
begin end;
.`
	assert.Equal(t, 32, compileExpectFatal(t, src))
}

func TestUndeclaredIdentifier(t *testing.T) {
	assert.Equal(t, 11, compileExpectFatal(t, `var x; begin y := 1 end.`))
}

func TestAssignmentToProcedure(t *testing.T) {
	assert.Equal(t, 12, compileExpectFatal(t, `procedure p; begin end; begin p := 1 end.`))
}

func TestMissingPeriod(t *testing.T) {
	assert.Equal(t, 9, compileExpectFatal(t, `var x; begin x := 1 end`))
}

func TestGoldenInstructionListing(t *testing.T) {
	sink := diag.NewSink(func(string) {})
	comp := compiler.New(`var x; x := 1 + 1.`, compiler.DefaultLimits, sink, nil)
	comp.Run()
	require.False(t, sink.Had)

	want := []string{
		"    0  jmp  0    1",
		"    1  int  0    4",
		"    2  lit  0    1",
		"    3  lit  0    1",
		"    4  opr  0    2",
		"    5  sto  0    3",
		"    6  opr  0    0",
	}
	got := comp.Code().Listing(0, comp.Code().Len())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("instruction listing mismatch (-want +got):\n%s", diff)
	}
}
