package opcodes

import (
	"testing"

	"scratchc/internal/ir"
	"scratchc/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueArityAgreesWithWasmInputs(t *testing.T) {
	// Every registered opcode's acceptable_inputs length is what its
	// own wasm emitter is written against; this is a structural check
	// that nobody changed one without the other for the opcodes with a
	// fixed (non-field-dependent) arity.
	fixedArity := map[ir.Kind]int{
		ir.OperatorAdd:            2,
		ir.OperatorSubtract:       2,
		ir.OperatorMultiply:       2,
		ir.OperatorDivide:         2,
		ir.OperatorMod:            2,
		ir.OperatorRandom:         2,
		ir.OperatorEquals:         2,
		ir.OperatorLt:             2,
		ir.OperatorGt:             2,
		ir.OperatorAnd:            2,
		ir.OperatorOr:             2,
		ir.OperatorNot:            1,
		ir.OperatorJoin:           2,
		ir.HqInteger:              0,
		ir.HqFloat:                0,
		ir.HqText:                 0,
		ir.HqBoolean:              0,
		ir.HqDrop:                 1,
		ir.HqDup:                  1,
		ir.DataVariable:           0,
		ir.DataChangeVariableBy:   1,
		ir.DataAddToList:          1,
		ir.DataItemOfList:         1,
		ir.DataLengthOfList:       0,
		ir.DataReplaceItemOfList:  2,
		ir.ProceduresArgument:     0,
		ir.LooksSay:               1,
		ir.MotionGotoXY:           2,
	}
	for k, want := range fixedArity {
		d, ok := Lookup(k)
		require.True(t, ok, "kind %d not registered", k)
		inputs, err := d.AcceptableInputs(ir.LiteralFields{})
		require.NoError(t, err)
		assert.Len(t, inputs, want, "kind %d", k)
	}
}

func TestDupOutputTypeDoublesInput(t *testing.T) {
	d, ok := Lookup(ir.HqDup)
	require.True(t, ok)
	rt, err := d.OutputType([]types.Type{types.IntPos}, ir.NoFields{})
	require.NoError(t, err)
	assert.Equal(t, ir.ReturnMulti, rt.Kind)
	assert.Equal(t, []types.Type{types.IntPos, types.IntPos}, rt.Multi)
}

func TestBooleanOutputTypeAtomicPerLiteral(t *testing.T) {
	d, ok := Lookup(ir.HqBoolean)
	require.True(t, ok)

	trueRT, err := d.OutputType(nil, ir.LiteralFields{Bool: true})
	require.NoError(t, err)
	assert.Equal(t, types.BooleanTrue, trueRT.Single)

	falseRT, err := d.OutputType(nil, ir.LiteralFields{Bool: false})
	require.NoError(t, err)
	assert.Equal(t, types.BooleanFalse, falseRT.Single)
}

func TestIntegerLiteralSignClassification(t *testing.T) {
	d, ok := Lookup(ir.HqInteger)
	require.True(t, ok)

	pos, err := d.OutputType(nil, ir.LiteralFields{Int: 5})
	require.NoError(t, err)
	assert.Equal(t, types.IntPos, pos.Single)

	neg, err := d.OutputType(nil, ir.LiteralFields{Int: -5})
	require.NoError(t, err)
	assert.Equal(t, types.IntNeg, neg.Single)

	zero, err := d.OutputType(nil, ir.LiteralFields{Int: 0})
	require.NoError(t, err)
	assert.Equal(t, types.IntZero, zero.Single)
}

func TestScreenRefreshOpcodesAreMarked(t *testing.T) {
	assert.True(t, RequestsScreenRefresh(ir.LooksSay))
	assert.True(t, RequestsScreenRefresh(ir.MotionGotoXY))
	assert.False(t, RequestsScreenRefresh(ir.OperatorAdd))
}

func TestUnregisteredKindFailsUnimplemented(t *testing.T) {
	_, err := AcceptableInputs(ir.ControlIfElse, ir.NoFields{})
	require.Error(t, err)
}

func TestCastPrefersSourceBase(t *testing.T) {
	got := preferredBase(types.IntPos, types.QuasiInt.Or(types.Float))
	assert.Equal(t, types.QuasiInt, got)
}

func TestClassifyStringContent(t *testing.T) {
	assert.Equal(t, types.StringBoolean, classifyStringContent("true"))
	assert.Equal(t, types.StringNan, classifyStringContent("NaN"))
	assert.Equal(t, types.StringNumber, classifyStringContent("42"))
	assert.Equal(t, types.StringOther, classifyStringContent("hello"))
}
