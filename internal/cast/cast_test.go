package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scratchc/internal/ir"
	"scratchc/internal/types"
)

func newStep(t *testing.T, ops ...ir.Opcode) *ir.Step {
	t.Helper()
	proj := ir.NewProject()
	step := ir.NewStep(proj, ir.Context{})
	for _, op := range ops {
		step.Push(op)
	}
	return step
}

func TestStepNoOpWhenConsumerAlreadyAccepts(t *testing.T) {
	// join(text, text) -> both operands already accept String; no casts.
	step := newStep(t,
		ir.Opcode{Kind: ir.HqText, Fields: ir.LiteralFields{Text: "a"}},
		ir.Opcode{Kind: ir.HqText, Fields: ir.LiteralFields{Text: "b"}},
		ir.Opcode{Kind: ir.OperatorJoin, Fields: ir.NoFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)
	require.NoError(t, Step(step))
	ops := step.Opcodes()
	require.Len(t, ops, 4)
	for _, op := range ops {
		assert.NotEqual(t, ir.HqCast, op.Kind)
	}
}

func TestStepInsertsCastBeforeBooleanConsumer(t *testing.T) {
	// control_if_else wants a Boolean, but hq_integer(5) produces IntPos;
	// a cast must be spliced in right after the integer literal.
	step := newStep(t,
		ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 5}},
		ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)
	require.NoError(t, Step(step))

	ops := step.Opcodes()
	require.Len(t, ops, 4)
	assert.Equal(t, ir.HqInteger, ops[0].Kind)
	assert.Equal(t, ir.HqCast, ops[1].Kind)
	cf, ok := ops[1].Fields.(ir.CastFields)
	require.True(t, ok)
	assert.Equal(t, types.Boolean, cf.To)
	assert.Equal(t, ir.ControlIfElse, ops[2].Kind)
	assert.Equal(t, ir.HqYield, ops[3].Kind)
}

func TestStepInsertsTwoCastsInDescendingOrder(t *testing.T) {
	// add(text, text) -> both operands need a Number cast; verify both
	// land right after their own producer and indices don't collide.
	step := newStep(t,
		ir.Opcode{Kind: ir.HqText, Fields: ir.LiteralFields{Text: "a"}},
		ir.Opcode{Kind: ir.HqText, Fields: ir.LiteralFields{Text: "b"}},
		ir.Opcode{Kind: ir.OperatorAdd, Fields: ir.NoFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)
	require.NoError(t, Step(step))

	ops := step.Opcodes()
	require.Len(t, ops, 6)
	assert.Equal(t, ir.HqText, ops[0].Kind)
	assert.Equal(t, ir.HqCast, ops[1].Kind)
	assert.Equal(t, ir.HqText, ops[2].Kind)
	assert.Equal(t, ir.HqCast, ops[3].Kind)
	assert.Equal(t, ir.OperatorAdd, ops[4].Kind)
	assert.Equal(t, ir.HqYield, ops[5].Kind)
}

func TestStepIsIdempotentOnAlreadyCastOpcodes(t *testing.T) {
	step := newStep(t,
		ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 5}},
		ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{}},
		ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}},
	)
	require.NoError(t, Step(step))
	first := step.Opcodes()

	require.NoError(t, Step(step))
	second := step.Opcodes()

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Kind, second[i].Kind)
	}
}

func TestProjectWalksEveryStep(t *testing.T) {
	proj := ir.NewProject()
	a := ir.NewStep(proj, ir.Context{})
	a.Push(ir.Opcode{Kind: ir.HqInteger, Fields: ir.LiteralFields{Int: 1}})
	a.Push(ir.Opcode{Kind: ir.ControlIfElse, Fields: ir.IfElseFields{}})
	a.Push(ir.Opcode{Kind: ir.HqYield, Fields: ir.YieldFields{Mode: ir.YieldMode{Kind: ir.YieldNone}}})

	require.NoError(t, Project(proj))

	ops := a.Opcodes()
	require.Len(t, ops, 4)
	assert.Equal(t, ir.HqCast, ops[1].Kind)
}
