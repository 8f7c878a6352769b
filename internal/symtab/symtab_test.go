package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterAndPosition(t *testing.T) {
	tab := New(10)
	dx := 3

	tab.Enter(1, "pi", Constant, 314, &dx, 2047)
	tab.Enter(2, "x", Variable, 0, &dx, 2047)
	tab.Enter(3, "p", Procedure, 0, &dx, 2047)

	require.Equal(t, 3, tab.Len())
	assert.Equal(t, 4, dx) // only the Variable entry advances dx

	pi := tab.At(1)
	assert.Equal(t, "pi", pi.Name)
	assert.Equal(t, Constant, pi.Kind)
	assert.Equal(t, 314, pi.ValOrLev)

	x := tab.At(2)
	assert.Equal(t, Variable, x.Kind)
	assert.Equal(t, 3, x.Addr)

	assert.Equal(t, 2, tab.Position(tab.Len(), "x"))
	assert.Equal(t, 0, tab.Position(tab.Len(), "nope"))
}

func TestPositionRespectsWatermark(t *testing.T) {
	tab := New(10)
	dx := 3
	tab.Enter(1, "x", Variable, 0, &dx, 2047)
	outerLen := tab.Len()
	tab.Enter(2, "y", Variable, 1, &dx, 2047)

	// A lookup restricted to the outer watermark can't see the inner name.
	assert.Equal(t, 0, tab.Position(outerLen, "y"))
	assert.Equal(t, 2, tab.Position(tab.Len(), "y"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "const", Constant.String())
	assert.Equal(t, "var", Variable.String())
	assert.Equal(t, "procedure", Procedure.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestEnterConstantOverflowRaises(t *testing.T) {
	tab := New(10)
	dx := 3
	assert.PanicsWithError(t, "[line 5 Error : This number is too large", func() {
		tab.Enter(5, "big", Constant, 3000, &dx, 2047)
	})
}

func TestEnterTableOverflowRaises(t *testing.T) {
	tab := New(1)
	dx := 3
	tab.Enter(1, "a", Variable, 0, &dx, 2047)
	assert.PanicsWithError(t, "[line 2 Error : This number is too large", func() {
		tab.Enter(2, "b", Variable, 0, &dx, 2047)
	})
}
